package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/logger"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/server"
)

// NewServeCmd creates the serve command for starting the HTTP server.
func NewServeCmd(cfgFile *string) *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server exposing the generation pipeline",
		Long: `Start the HTTP server exposing generate, generate_stream, search, verify,
and history over the retrieval-and-generation pipeline.

Examples:
  # Start server using config defaults
  draftgen serve

  # Start on a custom port
  draftgen serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *cfgFile, port, host)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config)")

	return cmd
}

func runServe(ctx context.Context, cfgFile string, port int, host string) error {
	log := logger.Get()

	d, err := bootstrap(ctx, cfgFile)
	if err != nil {
		return err
	}
	defer d.Close()

	serverCfg := d.cfg.Server
	if port != 0 {
		serverCfg.Port = port
	}
	if host != "" {
		serverCfg.Host = host
	}

	srv := server.New(serverCfg, d.orchestrator, d.searcher, d.verifier, d.hist)

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("server listening", "host", serverCfg.Host, "port", serverCfg.Port)
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("server shutdown initiated", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		log.Info("server stopped")
	}

	return nil
}
