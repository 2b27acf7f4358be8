// Package picker provides the interactive multi-select used to choose the
// day's katas.
package picker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	ErrInterrupted = errors.New("Interrupted")
	ErrNotTTY      = errors.New("Not a TTY")
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7BD88F"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// Picker chooses a subset of options.
type Picker interface {
	Select(ctx context.Context, title string, options []string) ([]string, error)
}

// Terminal is the bubbletea-backed Picker.
type Terminal struct {
	In  io.Reader
	Out io.Writer
}

// NewTerminal returns a picker on the process's standard streams.
func NewTerminal() *Terminal {
	return &Terminal{In: os.Stdin, Out: os.Stdout}
}

// Select shows options and returns the chosen ones in option order.
func (t *Terminal) Select(ctx context.Context, title string, options []string) ([]string, error) {
	if f, ok := t.In.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return nil, ErrNotTTY
	}
	p := tea.NewProgram(newModel(title, options),
		tea.WithContext(ctx),
		tea.WithInput(t.In),
		tea.WithOutput(t.Out),
	)
	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil, ErrInterrupted
		}
		return nil, fmt.Errorf("picker: %w", err)
	}
	m, ok := final.(*model)
	if !ok {
		return nil, fmt.Errorf("picker: unexpected model %T", final)
	}
	if m.aborted {
		return nil, ErrInterrupted
	}
	return m.chosen(), nil
}

type model struct {
	title    string
	options  []string
	cursor   int
	selected map[int]bool
	done     bool
	aborted  bool
}

func newModel(title string, options []string) *model {
	return &model{title: title, options: options, selected: make(map[int]bool)}
}

func (m *model) Init() tea.Cmd { return nil }

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "ctrl+c", "esc", "q":
		m.aborted = true
		return m, tea.Quit
	case "enter":
		m.done = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	case " ", "space", "x":
		if len(m.options) > 0 {
			m.selected[m.cursor] = !m.selected[m.cursor]
		}
	case "a":
		all := len(m.chosen()) < len(m.options)
		for i := range m.options {
			m.selected[i] = all
		}
	}
	return m, nil
}

func (m *model) View() string {
	if m.done || m.aborted {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")
	for i, opt := range m.options {
		cursor := "  "
		if i == m.cursor {
			cursor = cursorStyle.Render("> ")
		}
		box := "[ ] "
		line := opt
		if m.selected[i] {
			box = "[x] "
			line = selectedStyle.Render(opt)
		}
		b.WriteString(cursor + box + line + "\n")
	}
	b.WriteString(hintStyle.Render("space: toggle  a: all  enter: confirm  esc: cancel"))
	b.WriteString("\n")
	return b.String()
}

func (m *model) chosen() []string {
	var out []string
	for i, opt := range m.options {
		if m.selected[i] {
			out = append(out, opt)
		}
	}
	return out
}
