// Command chatserver serves one chat session as a web page.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/leofalp/aichat/core/chat"
	"github.com/leofalp/aichat/core/dispatch"
	"github.com/leofalp/aichat/internal/config"
	"github.com/leofalp/aichat/internal/web"
	slogobs "github.com/leofalp/aichat/providers/observability/slog"
)

const shutdownTimeout = 10 * time.Second

func main() {
	provider := flag.String("provider", "", "initially selected provider: openai, azure, gemini or claude")
	configPath := flag.String("config", "", "path to a YAML config file (default $"+config.EnvConfigFile+")")
	addr := flag.String("addr", "", "listen address (default from config)")
	flag.Parse()

	logger := newLogger(slogobs.GetLogLevelFromEnv())
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *provider != "" {
		cfg.Provider = *provider
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	level, _ := slogobs.ParseLogLevel(cfg.LogLevel)
	logger = newLogger(level)
	slog.SetDefault(logger)

	observer := slogobs.New(logger)
	dispatcher := dispatch.FromConfig(cfg, nil, dispatch.WithObserver(observer))
	for _, name := range dispatcher.Providers() {
		if err := dispatcher.Check(name); err != nil {
			slog.Warn("Provider not configured, answers will be placeholders", "provider", name, "error", err)
		}
	}

	session := chat.NewSession(dispatcher,
		chat.WithSystemPrompt(cfg.SystemPrompt),
		chat.WithProvider(cfg.Provider),
		chat.WithObserver(observer),
	)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           web.NewRouter(web.NewHandler(session, dispatcher.Providers(), logger)),
		ReadHeaderTimeout: 10 * time.Second,
		// Provider calls have no deadline, so neither do responses.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Server listening", "addr", srv.Addr, "provider", cfg.Provider, "session", session.ID())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
