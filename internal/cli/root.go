package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/crewdesk/crewdesk/internal/cli.version=1.2.3"
	version = "0.4.0"
	logo    = "\n" +
		"   ____                   ____            _\n" +
		"  / ___|_ __ _____      _|  _ \\  ___  ___| | __\n" +
		" | |   | '__/ _ \\ \\ /\\ / / | | |/ _ \\/ __| |/ /\n" +
		" | |___| | |  __/\\ V  V /| |_| |  __/\\__ \\   <\n" +
		"  \\____|_|  \\___| \\_/\\_/ |____/ \\___||___/_|\\_\\\n"
)

var rootCmd = &cobra.Command{
	Use:   "crewdesk",
	Short: "CrewDesk - AI agent team for your business",
	Long:  color.CyanString(logo) + "\nAn eight-agent AI business team with shared memory, served over HTTP.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(serveCmd)
}
