// Package notify posts best-effort task notifications to Slack. Delivery
// failures are logged and swallowed; notifications never affect task
// outcomes.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/slack-go/slack"
)

// poster is the slice of the Slack API the notifier uses.
type poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier announces finished agent tasks in a Slack channel.
type SlackNotifier struct {
	api     poster
	channel string
	timeout time.Duration
}

// NewSlackNotifier returns a notifier, or nil when token or channel is
// unset. Callers treat a nil notifier as "notifications off".
func NewSlackNotifier(token, channel string) *SlackNotifier {
	if token == "" || channel == "" {
		return nil
	}
	return &SlackNotifier{
		api:     slack.New(token),
		channel: channel,
		timeout: 10 * time.Second,
	}
}

// TaskFinished posts a short status line for a finished task. Long summaries
// are truncated; errors only produce a log entry.
func (n *SlackNotifier) TaskFinished(agentName, status, summary string) {
	if n == nil {
		return
	}

	const maxSummary = 400
	if len(summary) > maxSummary {
		summary = summary[:maxSummary] + "…"
	}

	icon := ":white_check_mark:"
	if status != "completed" {
		icon = ":x:"
	}
	text := fmt.Sprintf("%s *%s* task %s\n%s", icon, agentName, status, summary)

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	_, _, err := n.api.PostMessageContext(ctx, n.channel, slack.MsgOptionText(text, false))
	if err != nil {
		slog.Warn("Slack notification failed", "agent", agentName, "status", status, "error", err)
	}
}
