// Package cli implements the linkedin-connector commands.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/yourusername/linkedin-connector/internal/config"
)

// AppVersion is reported by --version
const AppVersion = "1.0.0"

// NewRootCmd builds the command tree. Each call returns fresh flag state.
func NewRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "linkedin-connector",
		Short: "Send LinkedIn connection requests from a CSV",
		Long: `linkedin-connector logs into LinkedIn once and sends a connection
request with a personal note to every profile listed in a CSV file
(columns profile_url and invite_msg), then exports a status report.`,
		Version:       AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (falls back to $CONFIG_PATH, then "+config.DefaultPath+")")

	// Add subcommands (alphabetical)
	rootCmd.AddCommand(newHistoryCmd(&configPath))
	rootCmd.AddCommand(newRunCmd(&configPath))
	rootCmd.AddCommand(newServeCmd(&configPath))

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	rootCmd := NewRootCmd()
	err := rootCmd.Execute()
	if err != nil {
		rootCmd.PrintErrln(styleError.Render("Error:"), err)
	}
	return err
}
