package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/starford/katac/internal/apperr"
)

var version = "dev"

func main() {
	cmd := newCommand(os.Stdout, os.Stderr)

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("katac: command failed", slog.String("error", err.Error()))
		os.Exit(apperr.ExitCode(err))
	}
}
