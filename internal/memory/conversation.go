// Package memory provides conversation history windows for context-aware
// agent responses.
package memory

import (
	"fmt"
	"log/slog"

	"github.com/crewdesk/crewdesk/internal/provider"
	"github.com/crewdesk/crewdesk/internal/store"
)

// DefaultContextWindow is the number of recent messages included when the
// caller does not configure one.
const DefaultContextWindow = 10

// ConversationMemory stores and retrieves conversation turns so agents can
// remember previous messages.
type ConversationMemory struct {
	store      *store.Store
	maxContext int
}

// New creates a conversation memory over the given store. maxContext bounds
// the retrieval window; zero or negative selects DefaultContextWindow.
func New(s *store.Store, maxContext int) *ConversationMemory {
	if maxContext <= 0 {
		maxContext = DefaultContextWindow
	}
	return &ConversationMemory{store: s, maxContext: maxContext}
}

// AddMessage appends a turn to the conversation log and returns the message
// id. agentName is set for assistant turns.
func (m *ConversationMemory) AddMessage(conversationID, role, content, agentName, metadata string) (int64, error) {
	id, err := m.store.AddMessage(conversationID, role, content, agentName, metadata)
	if err != nil {
		return 0, fmt.Errorf("conversation %s: %w", conversationID, err)
	}
	slog.Debug("Message added to conversation", "conversation_id", conversationID, "role", role)
	return id, nil
}

// GetContext returns the most recent window of a conversation as role/content
// pairs ready for model input, chronological, optionally excluding system
// messages.
func (m *ConversationMemory) GetContext(conversationID string, includeSystem bool) ([]provider.Message, error) {
	msgs, err := m.store.RecentMessages(conversationID, m.maxContext)
	if err != nil {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, err)
	}

	out := make([]provider.Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Role == "system" && !includeSystem {
			continue
		}
		out = append(out, provider.Message{Role: msg.Role, Content: msg.Content})
	}
	return out, nil
}

// Summary aggregates a conversation: message count, agents involved, and the
// first/last timestamps. Returns (nil, nil) for an empty conversation.
type Summary struct {
	ConversationID string   `json:"conversation_id"`
	MessageCount   int      `json:"message_count"`
	AgentsInvolved []string `json:"agents_involved"`
	FirstMessageAt string   `json:"first_message_at"`
	LastMessageAt  string   `json:"last_message_at"`
}

// GetSummary returns the conversation summary, or (nil, nil) when the
// conversation has no messages.
func (m *ConversationMemory) GetSummary(conversationID string) (*Summary, error) {
	msgs, err := m.store.AllMessages(conversationID)
	if err != nil {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, err)
	}
	if len(msgs) == 0 {
		return nil, nil
	}

	seen := make(map[string]bool)
	var agents []string
	for _, msg := range msgs {
		if msg.AgentName != "" && !seen[msg.AgentName] {
			seen[msg.AgentName] = true
			agents = append(agents, msg.AgentName)
		}
	}

	return &Summary{
		ConversationID: conversationID,
		MessageCount:   len(msgs),
		AgentsInvolved: agents,
		FirstMessageAt: msgs[0].CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		LastMessageAt:  msgs[len(msgs)-1].CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}, nil
}

// Clear removes every message in a conversation.
func (m *ConversationMemory) Clear(conversationID string) error {
	if err := m.store.ClearConversation(conversationID); err != nil {
		return err
	}
	slog.Info("Cleared conversation", "conversation_id", conversationID)
	return nil
}

// FormatContextForPrompt renders messages as a readable block for prompt
// injection, truncated to maxChars with a marker when the history is longer.
func FormatContextForPrompt(messages []provider.Message, maxChars int) string {
	if len(messages) == 0 {
		return "No previous conversation context."
	}
	if maxChars <= 0 {
		maxChars = 3000
	}

	out := "CONVERSATION HISTORY:"
	total := 0
	for _, msg := range messages {
		label := "USER"
		if msg.Role != "user" {
			label = "ASSISTANT"
		}
		line := "\n" + label + ": " + msg.Content
		if total+len(line) > maxChars {
			out += "\n[Earlier messages truncated...]"
			break
		}
		out += line
		total += len(line)
	}
	return out
}
