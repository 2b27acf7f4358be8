package practice

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/starford/katac/internal/katas"
)

const timeLayout = "2006-01-02 15:04"

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// ListWorkspaces prints the registered workspaces.
func (s *Service) ListWorkspaces(_ context.Context) error {
	if err := s.requireState(); err != nil {
		return err
	}
	workspaces := s.state.Workspaces()
	if len(workspaces) == 0 {
		fmt.Fprintln(s.out, "No workspaces registered")
		return nil
	}
	t := newTable("NAME", "PATH", "REMOTE", "KATAS")
	for _, ws := range workspaces {
		name := ws.Name
		if name == s.workspace {
			name += " *"
		}
		t.Row(name, ws.Path, ws.Remote, strconv.Itoa(len(ws.Katas)))
	}
	fmt.Fprintln(s.out, t.String())
	return nil
}

// ListKatas prints the kata names of a workspace, one per line.
func (s *Service) ListKatas(_ context.Context, workspace string) error {
	list, err := s.WorkspaceKatas(workspace)
	if err != nil {
		return err
	}
	for _, k := range list {
		fmt.Fprintln(s.out, k.Name)
	}
	return nil
}

// ListAllKatas prints every known kata. long adds the path and the
// README metadata.
func (s *Service) ListAllKatas(_ context.Context, long bool) error {
	all, err := s.Katas()
	if err != nil {
		return err
	}
	if !long {
		for _, k := range all {
			fmt.Fprintln(s.out, k.Name)
		}
		return nil
	}
	t := newTable("NAME", "PATH", "TITLE", "TAGS")
	for _, k := range all {
		meta, err := katas.Describe(k.Path)
		if err != nil {
			meta = katas.Meta{}
		}
		t.Row(k.Name, s.display(k.Path), meta.Title, strings.Join(meta.Tags, ", "))
	}
	fmt.Fprintln(s.out, t.String())
	return nil
}

// History prints the latest practice entries.
func (s *Service) History(ctx context.Context, limit int) error {
	if err := s.requireState(); err != nil {
		return err
	}
	if s.log == nil {
		return nil
	}
	entries, err := s.log.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(s.out, "No history yet")
		return nil
	}
	t := newTable("WHEN", "WORKSPACE", "DAY", "KATA", "ACTION", "STATUS")
	for _, e := range entries {
		day := ""
		if e.Day > 0 {
			day = strconv.Itoa(e.Day)
		}
		t.Row(e.CreatedAt.Local().Format(timeLayout), e.Workspace, day, e.Kata, e.Action, e.Status)
	}
	fmt.Fprintln(s.out, t.String())
	return nil
}

// Stats prints per-kata practice totals.
func (s *Service) Stats(ctx context.Context) error {
	if err := s.requireState(); err != nil {
		return err
	}
	if s.log == nil {
		return nil
	}
	stats, err := s.log.Stats(ctx)
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		fmt.Fprintln(s.out, "No history yet")
		return nil
	}
	t := newTable("KATA", "COPIES", "RUNS", "FAILURES", "LAST DAY", "LAST SEEN")
	for _, st := range stats {
		last := ""
		if !st.LastSeen.IsZero() {
			last = st.LastSeen.Local().Format(timeLayout)
		}
		t.Row(st.Kata, strconv.Itoa(st.Copies), strconv.Itoa(st.Runs), strconv.Itoa(st.Failures), strconv.Itoa(st.LastDay), last)
	}
	fmt.Fprintln(s.out, t.String())
	return nil
}
