package practice

import (
	"context"
	"fmt"
	"io"
	"os/exec"
)

// Git is the subset of git used for remote workspaces.
type Git interface {
	Clone(ctx context.Context, remote, path string) error
	Pull(ctx context.Context, path string) error
}

// ExecGit runs the git binary.
type ExecGit struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Clone clones remote into path.
func (g *ExecGit) Clone(ctx context.Context, remote, path string) error {
	return g.run(ctx, "clone", remote, path)
}

// Pull fast-forwards the repository at path.
func (g *ExecGit) Pull(ctx context.Context, path string) error {
	return g.run(ctx, "-C", path, "pull", "--ff-only")
}

func (g *ExecGit) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Stdout = g.Stdout
	cmd.Stderr = g.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git %s: %w", args[0], err)
	}
	return nil
}
