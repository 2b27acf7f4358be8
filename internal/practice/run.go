package practice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/katac/internal/checksum"
	"github.com/starford/katac/internal/days"
	"github.com/starford/katac/internal/history"
	"github.com/starford/katac/internal/runner"
	"github.com/starford/katac/internal/watch"
)

// Run runs the named katas of the current day one after the other, or all
// of them when names is empty. command, when set, replaces the detected
// runner. A kata without a runner is reported and skipped.
func (s *Service) Run(ctx context.Context, names []string, command string) error {
	if len(names) == 0 {
		var err error
		if names, err = s.DayKatas(); err != nil {
			return err
		}
	}
	dayPath, day, err := days.CurrentPath(s.daysDir)
	if err != nil {
		return err
	}
	if day == 0 {
		return s.noDay()
	}

	var failed []error
	for i, name := range names {
		header := fmt.Sprintf("\n> Running %s [%d/%d]", name, i+1, len(names))
		fmt.Fprintf(s.out, "%s\n%s\n", header, strings.Repeat("-", len(header)))
		if err := s.runKata(ctx, filepath.Join(dayPath, name), day, command); err != nil {
			failed = append(failed, fmt.Errorf("kata %s: %w", name, err))
		}
	}
	return summarize(failed, len(names), "runs")
}

// runKata runs one kata folder and records the outcome. A missing runner is
// not a failure.
func (s *Service) runKata(ctx context.Context, dir string, day int, command string) error {
	kata := filepath.Base(dir)
	plan := runner.Select(dir, command, s.env)
	if plan.Kind == runner.None {
		fmt.Fprintf(s.out, "No Makefile/run file found in %s\n", s.display(dir))
		s.record(ctx, history.Entry{Day: day, Kata: kata, Action: history.ActionRun, Status: history.StatusSkipped})
		return nil
	}

	s.logger.Debug("practice: run", slog.String("kind", plan.Kind.String()), slog.String("dir", dir))
	sum, _ := checksum.Dir(dir)
	err := plan.Run(ctx, s.out, s.errOut)
	entry := history.Entry{Day: day, Kata: kata, Action: history.ActionRun, Status: history.StatusOK, Checksum: sum}
	if err != nil {
		entry.Status = history.StatusFailed
		entry.Detail = err.Error()
	}
	s.record(ctx, entry)
	return err
}

// Watch re-runs a kata of the current day whenever its files change, until
// ctx is cancelled or the process is interrupted. names restricts the
// watched katas.
func (s *Service) Watch(ctx context.Context, names []string, command string) error {
	dayPath, day, err := days.CurrentPath(s.daysDir)
	if err != nil {
		return err
	}
	if day == 0 || !isDir(dayPath) {
		return s.noDay()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	fmt.Fprintf(s.out, "Watching %s for changes, press Ctrl-C to stop\n", s.display(dayPath))

	g.Go(func() error {
		defer cancel()
		return watch.Watch(gCtx, dayPath, names, s.logger, watch.DefaultDebounce, func(ctx context.Context, kata string) {
			header := fmt.Sprintf("\n> Running %s", kata)
			fmt.Fprintf(s.out, "%s\n%s\n", header, strings.Repeat("-", len(header)))
			if err := s.runKata(ctx, filepath.Join(dayPath, kata), day, command); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				fmt.Fprintf(s.out, "Error: %v\n", err)
			}
		})
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			s.logger.Info("practice: received signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("watch %s: %w", dayPath, err)
	}
	return nil
}
