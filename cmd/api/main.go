package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xavierca1/leadcapture/internal/config"
)

var version = "dev"

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "leadcapture",
	Short: "Multi-channel lead capture pipeline",
	Long:  "Polls the mailbox and the telephony API, receives WhatsApp and web-form webhooks, extracts lead details and reconciles them into the lead store.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
