package memory

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/crewdesk/crewdesk/internal/provider"
	"github.com/crewdesk/crewdesk/internal/store"
)

func newTestMemory(t *testing.T, window int) *ConversationMemory {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	s, err := store.NewWithDB(db)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s, window)
}

func TestGetContextWindow(t *testing.T) {
	m := newTestMemory(t, 3)

	for i := 1; i <= 5; i++ {
		if _, err := m.AddMessage("conv-1", "user", fmt.Sprintf("m%d", i), "", ""); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := m.GetContext("conv-1", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected window of 3, got %d", len(msgs))
	}
	if msgs[0].Content != "m3" || msgs[2].Content != "m5" {
		t.Fatalf("unexpected window contents: %+v", msgs)
	}
}

func TestGetContextFiltersSystem(t *testing.T) {
	m := newTestMemory(t, 0)

	m.AddMessage("conv-1", "system", "internal note", "", "")
	m.AddMessage("conv-1", "user", "hello", "", "")
	m.AddMessage("conv-1", "assistant", "hi", "engineer", "")

	msgs, err := m.GetContext("conv-1", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected system turn filtered, got %d messages", len(msgs))
	}

	all, err := m.GetContext("conv-1", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected all turns with includeSystem, got %d", len(all))
	}
}

func TestGetSummary(t *testing.T) {
	m := newTestMemory(t, 0)

	summary, err := m.GetSummary("empty-conv")
	if err != nil {
		t.Fatal(err)
	}
	if summary != nil {
		t.Fatalf("expected nil summary for empty conversation, got %+v", summary)
	}

	m.AddMessage("conv-1", "user", "q", "", "")
	m.AddMessage("conv-1", "assistant", "a1", "engineer", "")
	m.AddMessage("conv-1", "assistant", "a2", "engineer", "")
	m.AddMessage("conv-1", "assistant", "a3", "finance_manager", "")

	summary, err = m.GetSummary("conv-1")
	if err != nil {
		t.Fatal(err)
	}
	if summary.MessageCount != 4 {
		t.Fatalf("unexpected message count: %d", summary.MessageCount)
	}
	if len(summary.AgentsInvolved) != 2 {
		t.Fatalf("expected deduped agents, got %v", summary.AgentsInvolved)
	}
}

func TestFormatContextForPrompt(t *testing.T) {
	if got := FormatContextForPrompt(nil, 0); got != "No previous conversation context." {
		t.Fatalf("unexpected empty format: %q", got)
	}

	msgs := []provider.Message{
		{Role: "user", Content: "what is our runway"},
		{Role: "assistant", Content: "about 14 months"},
	}
	got := FormatContextForPrompt(msgs, 0)
	if !strings.HasPrefix(got, "CONVERSATION HISTORY:") {
		t.Fatalf("missing header: %q", got)
	}
	if !strings.Contains(got, "\nUSER: what is our runway") || !strings.Contains(got, "\nASSISTANT: about 14 months") {
		t.Fatalf("missing turns: %q", got)
	}
}

func TestFormatContextForPromptTruncates(t *testing.T) {
	msgs := []provider.Message{
		{Role: "user", Content: strings.Repeat("a", 50)},
		{Role: "user", Content: strings.Repeat("b", 50)},
	}
	got := FormatContextForPrompt(msgs, 60)
	if !strings.Contains(got, "[Earlier messages truncated...]") {
		t.Fatalf("expected truncation marker: %q", got)
	}
	if strings.Contains(got, "bbb") {
		t.Fatalf("second message should be cut: %q", got)
	}
}
