// Package cli holds the execdash command tree.
package cli

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/execdash/execdash/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "execdash",
	Short: "execdash API server",
	Long:  `Resource visibility and access control backend for the CEO/CTO dashboard.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			configPath = os.Getenv("EXECDASH_CONFIG_PATH")
		}
		if err := config.LoadConfig(configPath); err != nil {
			return err
		}
		return config.ConfigureLogger(config.App.Log)
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (default: ./config/dev.config.yaml)")
}
