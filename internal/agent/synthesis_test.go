package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/crewdesk/crewdesk/internal/registry"
)

func TestSynthesizeRequiresTwoMentions(t *testing.T) {
	env := newTestEnv(t)
	team := NewTeam(env.deps.Registry, env.deps.Router)

	for _, prompt := range []string{
		"no mentions here",
		"@kevin can you look at this?",
		"@kevin and @engineer are the same agent",
	} {
		_, err := team.Synthesize(context.Background(), "owner-1", prompt)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("prompt %q: expected ValidationError, got %v", prompt, err)
		}
	}
}

func TestSynthesizeTwoAgentExchange(t *testing.T) {
	env := newTestEnv(t)
	team := NewTeam(env.deps.Registry, env.deps.Router)

	res, err := team.Synthesize(context.Background(), "owner-1", "@alex ask @kevin is this possible?")
	if err != nil {
		t.Fatal(err)
	}

	if len(res.AgentsInvolved) != 2 ||
		res.AgentsInvolved[0] != registry.ProductManager ||
		res.AgentsInvolved[1] != registry.Engineer {
		t.Fatalf("unexpected agents: %v", res.AgentsInvolved)
	}
	if res.PrimaryAgent != "Alex" || res.SecondaryAgent != "Kevin" {
		t.Fatalf("unexpected names: %s, %s", res.PrimaryAgent, res.SecondaryAgent)
	}
	if !strings.Contains(res.Response, "**Alex** asked **Kevin**: is this possible?") {
		t.Fatalf("unexpected final response:\n%s", res.Response)
	}
	if !strings.Contains(res.Response, "**Kevin's response:**") ||
		!strings.Contains(res.Response, "**Alex's synthesis:**") {
		t.Fatalf("missing sections:\n%s", res.Response)
	}

	// Secondary answers first, primary synthesizes second.
	if len(env.llm.calls) != 2 {
		t.Fatalf("expected 2 model calls, got %d", len(env.llm.calls))
	}
	firstUser := env.llm.calls[0].Messages[len(env.llm.calls[0].Messages)-1].Content
	if !strings.Contains(firstUser, "You are Kevin.") || !strings.Contains(firstUser, "is asking you") {
		t.Fatalf("unexpected secondary prompt: %s", firstUser)
	}
	secondUser := env.llm.calls[1].Messages[len(env.llm.calls[1].Messages)-1].Content
	if !strings.Contains(secondUser, "You are Alex.") || !strings.Contains(secondUser, "synthesize") {
		t.Fatalf("unexpected primary prompt: %s", secondUser)
	}

	// Both runs leave ledger entries under the same owner.
	tasks, err := env.deps.Store.ListTasks("owner-1", "", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(tasks))
	}
}

func TestSynthesizeStripsFillerWords(t *testing.T) {
	env := newTestEnv(t)
	team := NewTeam(env.deps.Registry, env.deps.Router)

	res, err := team.Synthesize(context.Background(), "owner-1", "@marcus tell @ryan the task budget numbers")
	if err != nil {
		t.Fatal(err)
	}
	// "tell" is dropped, "task" stays intact.
	if !strings.Contains(res.Response, "**Marcus** asked **Ryan**: the task budget numbers") {
		t.Fatalf("unexpected question extraction:\n%s", res.Response)
	}
}

func TestSynthesizeSecondaryFailurePropagates(t *testing.T) {
	env := newTestEnv(t)
	env.llm.errs = []error{errors.New("model down")}
	team := NewTeam(env.deps.Registry, env.deps.Router)

	_, err := team.Synthesize(context.Background(), "owner-1", "@alex ask @kevin is this possible?")
	if err == nil {
		t.Fatal("expected error when the secondary agent fails")
	}
	if !strings.Contains(err.Error(), registry.Engineer) {
		t.Fatalf("error should name the failing agent: %v", err)
	}
}
