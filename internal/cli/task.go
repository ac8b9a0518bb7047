package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/crewdesk/crewdesk/internal/registry"
)

var (
	taskOwner        string
	taskExternalID   string
	taskConversation string
)

var taskCmd = &cobra.Command{
	Use:   "task <agent> <prompt...>",
	Short: "Run a one-off task with a single agent",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		agentID, ok := rt.registry.Resolve(args[0])
		if !ok {
			return fmt.Errorf("unknown agent %q (try 'crewdesk agents')", args[0])
		}
		handler, ok := rt.registry.Instance(agentID)
		if !ok {
			return fmt.Errorf("agent %s not wired", agentID)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		prompt := strings.Join(args[1:], " ")
		if taskConversation != "" {
			if err := rt.store.EnsureConversation(taskConversation, taskOwner, agentID); err != nil {
				return err
			}
		}
		out, err := handler.Process(ctx, &registry.Request{
			OwnerID:        taskOwner,
			Prompt:         prompt,
			ExternalID:     taskExternalID,
			ConversationID: taskConversation,
		})
		if err != nil {
			return err
		}

		fmt.Println(color.GreenString("%s:", rt.registry.DisplayName(agentID)))
		fmt.Println(out.Response)
		for _, c := range out.ConsultedAgents {
			fmt.Println(color.YellowString("\n(consulted %s for %s)", c.AgentName, c.Reason))
		}
		return nil
	},
}

func init() {
	f := taskCmd.Flags()
	f.StringVar(&taskOwner, "owner", "local", "Owner id the task is recorded under")
	f.StringVar(&taskExternalID, "external-id", "", "Idempotency key (generated when empty)")
	f.StringVar(&taskConversation, "conversation", "", "Conversation id for context memory")
}
