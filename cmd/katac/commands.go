package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/starford/katac/internal"
	"github.com/starford/katac/internal/apperr"
	"github.com/starford/katac/internal/mcpserver"
	"github.com/starford/katac/internal/practice"
)

func init() {
	// -v is taken by --verbose.
	cli.VersionFlag = &cli.BoolFlag{Name: "version", Usage: "print the version"}
}

type serviceAction func(ctx context.Context, cmd *cli.Command, svc *practice.Service) error

// launcher opens the application for one command invocation.
type launcher struct {
	stdout io.Writer
	stderr io.Writer
}

func (r *launcher) open(ctx context.Context, cmd *cli.Command) (*internal.App, error) {
	return internal.Open(ctx,
		internal.WithConfigPath(cmd.String("config-file")),
		internal.WithDirs(internal.Dirs{
			KatasDir: cmd.String("katas-dir"),
			DaysDir:  cmd.String("days-dir"),
		}),
		internal.WithStateEnabled(cmd.Bool("state")),
		internal.WithVerbose(cmd.Bool("verbose")),
		internal.WithOutput(r.stdout, r.stderr),
	)
}

func (r *launcher) with(fn serviceAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		app, err := r.open(ctx, cmd)
		if err != nil {
			return err
		}
		defer app.Close()
		return fn(ctx, cmd, app.Service)
	}
}

func usageError(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return apperr.Usage(err)
}

func newCommand(stdout, stderr io.Writer) *cli.Command {
	r := &launcher{stdout: stdout, stderr: stderr}

	cmd := &cli.Command{
		Name:      "katac",
		Usage:     "Copy katas into numbered day folders and run them",
		ArgsUsage: "[kata names...]",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "katas-dir",
				Aliases: []string{"k"},
				Usage:   "Directory holding the katas (env " + internal.EnvKatasDir + ")",
			},
			&cli.StringFlag{
				Name:    "days-dir",
				Aliases: []string{"d"},
				Usage:   "Directory holding the day folders (env " + internal.EnvDaysDir + ")",
			},
			&cli.StringFlag{
				Name:    "config-file",
				Aliases: []string{"c"},
				Usage:   "Path to the local config file",
				Sources: cli.EnvVars(internal.EnvConfigFile),
			},
			&cli.BoolFlag{
				Name:  "state",
				Usage: "Use the global state and history (--state=false to disable)",
				Value: true,
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Action: r.with(func(ctx context.Context, cmd *cli.Command, svc *practice.Service) error {
			if cmd.NArg() == 0 {
				return svc.Start(ctx)
			}
			return svc.Copy(ctx, cmd.Args().Slice())
		}),
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Run katas of the current day (all of them by default)",
				ArgsUsage: "[kata names...]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "command", Usage: "Custom command run inside each kata folder"},
				},
				Action: r.with(func(ctx context.Context, cmd *cli.Command, svc *practice.Service) error {
					return svc.Run(ctx, cmd.Args().Slice(), cmd.String("command"))
				}),
			},
			{
				Name:      "random",
				Usage:     "Copy a number of random katas into the next day",
				ArgsUsage: "<number>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					n, err := countArg(cmd)
					if err != nil {
						return err
					}
					return r.with(func(ctx context.Context, _ *cli.Command, svc *practice.Service) error {
						return svc.Random(ctx, n)
					})(ctx, cmd)
				},
			},
			{
				Name:      "new",
				Aliases:   []string{"add"},
				Usage:     "Create a new kata in the katas directory",
				ArgsUsage: "<name>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() != 1 {
						return apperr.Usage(errors.New("new expects exactly one kata name"))
					}
					return r.with(func(ctx context.Context, cmd *cli.Command, svc *practice.Service) error {
						return svc.New(ctx, cmd.Args().First())
					})(ctx, cmd)
				},
			},
			{
				Name:  "init",
				Usage: "Create the katas and days directories and a katac.toml",
				Action: r.with(func(ctx context.Context, _ *cli.Command, svc *practice.Service) error {
					return svc.Init(ctx)
				}),
			},
			{
				Name:  "start",
				Usage: "Pick katas interactively and copy them into the next day",
				Action: r.with(func(ctx context.Context, _ *cli.Command, svc *practice.Service) error {
					return svc.Start(ctx)
				}),
			},
			{
				Name:  "upgrade",
				Usage: "Pull remote workspaces and rescan every workspace",
				Action: r.with(func(ctx context.Context, _ *cli.Command, svc *practice.Service) error {
					return svc.Upgrade(ctx)
				}),
			},
			workspaceCommand(r),
			{
				Name:  "history",
				Usage: "Show recent practice history",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "Number of entries to show"},
					&cli.BoolFlag{Name: "stats", Usage: "Show per-kata totals instead"},
				},
				Action: r.with(func(ctx context.Context, cmd *cli.Command, svc *practice.Service) error {
					if cmd.Bool("stats") {
						return svc.Stats(ctx)
					}
					return svc.History(ctx, int(cmd.Int("limit")))
				}),
			},
			{
				Name:      "watch",
				Usage:     "Re-run katas of the current day when their files change",
				ArgsUsage: "[kata names...]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "command", Usage: "Custom command run inside each kata folder"},
				},
				Action: r.with(func(ctx context.Context, cmd *cli.Command, svc *practice.Service) error {
					return svc.Watch(ctx, cmd.Args().Slice(), cmd.String("command"))
				}),
			},
			{
				Name:  "mcp",
				Usage: "Serve katac tools over MCP on stdio",
				Action: r.with(func(_ context.Context, _ *cli.Command, svc *practice.Service) error {
					return mcpserver.New(svc, version).ServeStdio()
				}),
			},
		},
	}

	setUsageHandler(cmd)
	return cmd
}

func workspaceCommand(r *launcher) *cli.Command {
	return &cli.Command{
		Name:  "workspace",
		Usage: "Manage workspaces",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Register a workspace, cloning it first when a remote is given",
				ArgsUsage: "[name]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Workspace root (default: working directory)"},
					&cli.StringFlag{Name: "remote", Aliases: []string{"r"}, Usage: "Git remote to clone"},
				},
				Action: r.with(func(ctx context.Context, cmd *cli.Command, svc *practice.Service) error {
					return svc.AddWorkspace(ctx, cmd.Args().First(), cmd.String("path"), cmd.String("remote"))
				}),
			},
			{
				Name:  "list",
				Usage: "List registered workspaces",
				Action: r.with(func(ctx context.Context, _ *cli.Command, svc *practice.Service) error {
					return svc.ListWorkspaces(ctx)
				}),
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Unregister a workspace",
				ArgsUsage: "<name>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() != 1 {
						return apperr.Usage(errors.New("remove expects exactly one workspace name"))
					}
					return r.with(func(ctx context.Context, cmd *cli.Command, svc *practice.Service) error {
						return svc.RemoveWorkspace(ctx, cmd.Args().First())
					})(ctx, cmd)
				},
			},
			{
				Name:      "list-katas",
				Usage:     "List the katas of a workspace (default: current)",
				ArgsUsage: "[workspace]",
				Action: r.with(func(ctx context.Context, cmd *cli.Command, svc *practice.Service) error {
					return svc.ListKatas(ctx, cmd.Args().First())
				}),
			},
			{
				Name:  "list-all-katas",
				Usage: "List every known kata",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "long", Aliases: []string{"l"}, Usage: "Show paths and README metadata"},
				},
				Action: r.with(func(ctx context.Context, cmd *cli.Command, svc *practice.Service) error {
					return svc.ListAllKatas(ctx, cmd.Bool("long"))
				}),
			},
		},
	}
}

func countArg(cmd *cli.Command) (int, error) {
	if cmd.NArg() != 1 {
		return 0, apperr.Usage(errors.New("random expects the number of katas"))
	}
	n, err := strconv.Atoi(cmd.Args().First())
	if err != nil || n < 1 {
		return 0, apperr.Usage(fmt.Errorf("invalid number of katas %q", cmd.Args().First()))
	}
	return n, nil
}

func setUsageHandler(cmd *cli.Command) {
	cmd.OnUsageError = usageError
	for _, sub := range cmd.Commands {
		setUsageHandler(sub)
	}
}
