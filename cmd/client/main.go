package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gostones/emotion-report/internal/config"
	"github.com/gostones/emotion-report/internal/gateway"
	"github.com/gostones/emotion-report/internal/logging"
)

var (
	configFlag string
	apiURLFlag string

	cfg     *config.Config
	backend *gateway.Client
)

var rootCmd = &cobra.Command{
	Use:   "emotion-client",
	Short: "Request, list and download emotion analysis reports",
	Long: `emotion-client drives the emotion analysis backend from the terminal.

Examples:
  emotion-client upload --file video.mp4 --bucket videos
  emotion-client request --bucket videos --key video.mp4
  emotion-client list
  emotion-client download --dir ~/Downloads`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Path to the yaml config (default $CONFIG_PATH)")
	rootCmd.PersistentFlags().StringVar(&apiURLFlag, "api-url", "", "Backend base URL (overrides api.base_url)")

	rootCmd.AddCommand(requestCmd, listCmd, showCmd, downloadCmd, uploadCmd, checkCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(config.Path(configFlag))
	if err != nil {
		return err
	}
	if apiURLFlag != "" {
		cfg.API.BaseURL = apiURLFlag
	}
	logging.Init(cfg.Log.Level, cfg.Log.Console)
	backend = gateway.New(cfg.API.BaseURL, cfg.API.Timeout)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
