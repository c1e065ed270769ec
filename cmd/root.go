package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadhook/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "leadhook",
	Short: "Thumbtack lead webhook service",
	Long:  "Receives Thumbtack leads from Zapier and forwarded emails, extracts lead details, forwards them to the PCM CRM and alerts the owner by SMS.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
