package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gostones/emotion-report/internal/config"
	"github.com/gostones/emotion-report/internal/gateway"
	"github.com/gostones/emotion-report/internal/logging"
	"github.com/gostones/emotion-report/internal/objectstore"
	"github.com/gostones/emotion-report/internal/web"
)

var (
	configFlag string
	portFlag   int
)

var rootCmd = &cobra.Command{
	Use:   "emotion-server",
	Short: "Web UI for requesting and downloading emotion analysis reports",
	Long: `emotion-server serves the emotion analysis page: submit the S3 location of
a video, browse the generated report results and download the last report.
All report work is done by the backend configured under api.base_url.

Examples:
  emotion-server
  emotion-server --port 8080
  CONFIG_PATH=/etc/emotion.yaml emotion-server`,
	SilenceUsage: true,
	RunE:         runServer,
}

func init() {
	rootCmd.Flags().StringVarP(&configFlag, "config", "c", "", "Path to the yaml config (default $CONFIG_PATH)")
	rootCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides server.port)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.Path(configFlag))
	if err != nil {
		return err
	}
	if portFlag != 0 {
		cfg.Server.Port = portFlag
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	logging.Init(cfg.Log.Level, cfg.Log.Console)

	backend := gateway.New(cfg.API.BaseURL, cfg.API.Timeout)
	opts := web.Options{
		SessionTTL:     cfg.Server.SessionTTL,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}
	if cfg.Preflight {
		opts.Submitter = objectstore.NewPreflightSubmitter(backend)
	}
	handler, err := web.NewServer(backend, opts)
	if err != nil {
		return err
	}

	// a submit waits for the backend to finish the analysis
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.API.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	log.Info().
		Str("addr", srv.Addr).
		Str("backend", cfg.API.BaseURL).
		Bool("preflight", cfg.Preflight).
		Msg("listening")
	fmt.Printf("\n  Emotion analysis app: http://localhost:%d\n\n", cfg.Server.Port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
