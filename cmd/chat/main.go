// Command chat is the interactive console client. It streams answers from
// the selected provider and lets earlier user messages be edited.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"github.com/leofalp/aichat/core/chat"
	"github.com/leofalp/aichat/core/dispatch"
	"github.com/leofalp/aichat/internal/config"
	"github.com/leofalp/aichat/internal/repl"
	slogobs "github.com/leofalp/aichat/providers/observability/slog"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitConfig  = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("chat", flag.ContinueOnError)
	flags.SetOutput(stderr)
	provider := flags.String("provider", "", "provider to use: openai, azure, gemini or claude")
	configPath := flags.String("config", "", "path to a YAML config file (default $"+config.EnvConfigFile+")")
	if err := flags.Parse(args); err != nil {
		return exitConfig
	}

	logger := newLogger(stderr, slogobs.GetLogLevelFromEnv())

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		return exitConfig
	}
	if *provider != "" {
		cfg.Provider = *provider
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return exitConfig
	}

	level, _ := slogobs.ParseLogLevel(cfg.LogLevel)
	logger = newLogger(stderr, level)

	observer := slogobs.New(logger)
	dispatcher := dispatch.FromConfig(cfg, nil, dispatch.WithObserver(observer))
	if err := repl.Preflight(stderr, dispatcher, cfg.Provider); err != nil {
		return exitConfig
	}

	session := chat.NewSession(dispatcher,
		chat.WithSystemPrompt(cfg.SystemPrompt),
		chat.WithProvider(cfg.Provider),
		chat.WithObserver(observer),
	)
	logger.Debug("Session started", "session", session.ID(), "provider", cfg.Provider)

	if err := repl.New(session, stdin, stdout).Run(ctx); err != nil {
		logger.Error("Chat ended with an error", "session", session.ID(), "error", err)
		return exitFailure
	}
	return exitOK
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
