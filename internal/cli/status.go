package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crewdesk/crewdesk/internal/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("🏷️ CrewDesk Version")
		fmt.Printf("Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("📊 CrewDesk Status")
		fmt.Printf("Version: %s\n", version)

		configPath, err := config.ConfigPath()
		if err == nil {
			if _, statErr := os.Stat(configPath); statErr == nil {
				fmt.Println("Config:   ✓ Found (" + configPath + ")")
			} else {
				fmt.Println("Config:   ✗ Not found (using defaults)")
			}
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Println("Config:   ? Unable to load:", err)
			return
		}
		if cfg.Provider.APIKey != "" {
			fmt.Println("API Key:  ✓ Found")
		} else {
			fmt.Println("API Key:  ✗ Not found (set CREWDESK_PROVIDER_API_KEY)")
		}
		if dbPath, err := config.ExpandPath(cfg.Paths.Database); err == nil {
			if _, statErr := os.Stat(dbPath); statErr == nil {
				fmt.Println("Database: ✓ " + dbPath)
			} else {
				fmt.Println("Database: ✗ Not created yet (" + dbPath + ")")
			}
		}
		if len(cfg.Queue.Brokers) > 0 {
			fmt.Printf("Kafka:    ✓ %v\n", cfg.Queue.Brokers)
		} else {
			fmt.Println("Kafka:    ✗ Disabled (jobs are dropped)")
		}
		if cfg.Notify.SlackToken != "" && cfg.Notify.SlackChannel != "" {
			fmt.Println("Slack:    ✓ Enabled")
		} else {
			fmt.Println("Slack:    ✗ Disabled")
		}
	},
}
