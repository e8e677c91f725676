package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mama165/sdk-go/logs"
	"github.com/spf13/cobra"

	"github.com/Tyrowin/talknow/internal/server"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

type flags struct {
	envFile  string
	port     string
	logLevel string
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:           "talknow",
		Short:         "Meeting registry and real-time room relay",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVar(&f.envFile, "env-file", "", "file of KEY=VALUE lines loaded before the environment (default .env if present)")
	cmd.Flags().StringVar(&f.port, "port", "", "listen address, overrides SERVER_PORT (e.g. :5000)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "DEBUG, INFO, WARN or ERROR, overrides LOG_LEVEL")
	return cmd
}

func run(ctx context.Context, f flags) error {
	cfg, err := server.LoadConfig(f.envFile)
	if err != nil {
		return err
	}
	if f.port != "" {
		cfg.Port = f.port
	}
	if f.logLevel != "" {
		cfg.LogLevel = strings.ToUpper(f.logLevel)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logs.GetLoggerFromString(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting TalkNow server", "port", cfg.Port, "origins", cfg.AllowedOrigins)
	if err := server.New(log, cfg).Run(ctx); err != nil {
		return err
	}
	log.Info("Program stopped cleanly")
	return nil
}
