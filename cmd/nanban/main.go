// Package main is the entry point for the Nanban server. Nanban is a
// Tamil conversational companion: dialect- and persona-aware replies,
// consented cross-session memory, and optional spoken audio.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nanban-ai/nanban/internal/catalog"
	"github.com/nanban-ai/nanban/internal/config"
	"github.com/nanban-ai/nanban/internal/llm"
	"github.com/nanban-ai/nanban/internal/logging"
	"github.com/nanban-ai/nanban/internal/orchestrator"
	"github.com/nanban-ai/nanban/internal/server"
	"github.com/nanban-ai/nanban/internal/store"
	"github.com/nanban-ai/nanban/internal/voice"
)

var version = "0.1.0"

var cfgPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "nanban",
		Short: "Nanban - Tamil conversational companion server",
		Long: `Nanban serves a Tamil conversational companion over HTTP:
dialect-aware slang, selectable personas, consented memory across
sessions, and optional text-to-speech audio.

Start the server:  nanban serve`,
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "nanban.yaml", "config file path")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Nanban v%s\n", version)
		},
	})
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	// .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	logger, logCloser, err := logging.New(logging.Config{
		Level: cfg.Logging.Level,
		File:  cfg.Logging.File,
	})
	if err != nil {
		return err
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	cat := catalog.New()
	if cfg.Catalog.ProfilePath != "" {
		cat, err = catalog.Load(cfg.Catalog.ProfilePath)
		if err != nil {
			return fmt.Errorf("load catalog profiles: %w", err)
		}
		logger.Info().Str("path", cfg.Catalog.ProfilePath).Msg("loaded profile overrides")
	}

	st, err := store.Open(cfg.Store.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	client := llm.NewClient(llm.Config{
		Endpoint:    cfg.LLM.Endpoint,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Timeout:     time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		MaxAttempts: cfg.LLM.MaxAttempts,
		RetryDelay:  time.Duration(cfg.LLM.RetryDelayMs) * time.Millisecond,
	}, logger)

	var synth *voice.Synthesizer
	if cfg.Voice.Enabled {
		synth = voice.NewSynthesizer(voice.SynthConfig{
			Endpoint: cfg.Voice.Endpoint,
			APIKey:   cfg.Voice.APIKey,
			Timeout:  time.Duration(cfg.Voice.TimeoutSec) * time.Second,
		}, logger)
		if synth == nil {
			logger.Warn().Msg("voice enabled but endpoint or api key missing, running text-only")
		}
	}
	engine := voice.NewEngine(synth, logger)

	orch := orchestrator.New(cat, client, engine, logger)
	srv := server.New(st, orch, cat, cfg.Store.HistoryLimit, logger)

	httpSrv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr()).Msg("server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
