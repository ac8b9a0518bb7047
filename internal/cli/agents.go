package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/crewdesk/crewdesk/internal/registry"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the agent roster",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("👥 CrewDesk Agents")
		reg := registry.Roster()
		for _, id := range reg.AgentIDs() {
			name := color.GreenString("%-8s", reg.DisplayName(id))
			fmt.Printf("  %s @%s\n", name, id)
			fmt.Printf("           expertise: %s\n", strings.Join(reg.Keywords(id), ", "))
		}
		fmt.Println("\nAddress an agent by name: crewdesk task kevin \"review this stack trace\"")
		fmt.Println("Or pair two agents over HTTP: \"@alex ask @kevin is this possible?\"")
	},
}
