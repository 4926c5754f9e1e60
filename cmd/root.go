package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the meetgate application
var rootCmd = &cobra.Command{
	Use:   "meetgate",
	Short: "Gatekeeps meeting requests before they reach your calendar",
	Long: `meetgate talks to people who want time on your calendar, decides whether
their request justifies a live meeting, collects the details needed to book it
and puts the meeting on your calendar.

It can run as:
  - An HTTP API with a per-job server-sent event stream (default transport)
  - An MCP (Model Context Protocol) server for AI assistants over stdio`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// configPath is shared by every subcommand that reads the config file.
var configPath string

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "meetgate version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the YAML config file (can also be set via MEETGATE_CONFIG env var)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newSlotsCmd())
	rootCmd.AddCommand(newJobsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
