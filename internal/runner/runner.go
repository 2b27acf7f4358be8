// Package runner decides how a kata folder is executed and launches it.
//
// The fallback order is fixed: a custom command wins, then a Makefile (when
// make is installed), then the OS run script (run.sh, or run.bat on
// Windows). A folder with none of these has no runner.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/starford/katac/internal/apperr"
	"github.com/starford/katac/internal/storage"
)

// Kind identifies the mechanism used to run a kata.
type Kind int

const (
	None Kind = iota
	Custom
	Make
	Script
)

func (k Kind) String() string {
	switch k {
	case Custom:
		return "custom"
	case Make:
		return "make"
	case Script:
		return "script"
	default:
		return "none"
	}
}

// File names looked up in a kata folder.
const (
	Makefile   = "Makefile"
	ShScript   = "run.sh"
	BatScript  = "run.bat"
	makeTarget = "run"
)

// Env describes the host. Tests build it by hand; DetectEnv probes the
// real machine.
type Env struct {
	GOOS          string
	MakeAvailable bool
}

// DetectEnv inspects the current host.
func DetectEnv() Env {
	_, err := exec.LookPath("make")
	return Env{GOOS: runtime.GOOS, MakeAvailable: err == nil}
}

// ScriptName returns the OS-specific run script name.
func (e Env) ScriptName() string {
	if e.GOOS == "windows" {
		return BatScript
	}
	return ShScript
}

// Plan is a resolved way to run one kata folder.
type Plan struct {
	Kind Kind
	Dir  string
	Args []string
}

// Select picks the runner for dir. command, when non-empty, is split on
// whitespace and always wins.
func Select(dir, command string, env Env) Plan {
	if fields := strings.Fields(command); len(fields) > 0 {
		return Plan{Kind: Custom, Dir: dir, Args: fields}
	}
	if env.MakeAvailable && isFile(filepath.Join(dir, Makefile)) {
		return Plan{Kind: Make, Dir: dir, Args: []string{"make", makeTarget, "-s"}}
	}
	script := filepath.Join(dir, env.ScriptName())
	if isFile(script) {
		if env.GOOS == "windows" {
			return Plan{Kind: Script, Dir: dir, Args: []string{"cmd", "/C", BatScript}}
		}
		abs, err := filepath.Abs(script)
		if err != nil {
			abs = script
		}
		return Plan{Kind: Script, Dir: dir, Args: []string{abs}}
	}
	return Plan{Kind: None, Dir: dir}
}

// Run executes the plan and waits for it. Standard streams are wired to
// stdout and stderr; stdin is inherited from the parent process.
func (p Plan) Run(ctx context.Context, stdout, stderr io.Writer) error {
	if p.Kind == None || len(p.Args) == 0 {
		return fmt.Errorf("runner: %s: %w", p.Dir, apperr.ErrNoRunner)
	}
	cmd := exec.CommandContext(ctx, p.Args[0], p.Args[1:]...)
	cmd.Dir = p.Dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("runner: %s %s: %w", p.Kind, strings.Join(p.Args, " "), err)
	}
	return nil
}

const (
	makefileContent = "run:\n\t@echo \"TODO: add your run command here\"\n"
	shContent       = "#!/usr/bin/env bash\n\n# TODO: replace this line with your run command (example: npm run test)\necho \"TODO: add your run command here\"\n"
	batContent      = "@echo off\r\nREM TODO: replace this line with your run command\r\necho TODO: add your run command here\r\n"
)

// Seed writes the default runner into a freshly created kata folder: a
// Makefile when make is available, otherwise the OS run script. It returns
// the name of the written file.
func Seed(dir string, env Env) (string, error) {
	store, err := storage.NewFS(dir)
	if err != nil {
		return "", err
	}
	switch {
	case env.MakeAvailable:
		return Makefile, store.Write(Makefile, []byte(makefileContent), 0o644)
	case env.GOOS == "windows":
		return BatScript, store.Write(BatScript, []byte(batContent), 0o644)
	default:
		return ShScript, store.Write(ShScript, []byte(shContent), 0o755)
	}
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
