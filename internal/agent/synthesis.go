package agent

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/crewdesk/crewdesk/internal/registry"
	"github.com/crewdesk/crewdesk/internal/router"
)

// Team runs the multi-agent synthesis flow: "@alex ask @kevin is this
// possible?" — the second mentioned agent answers, the first synthesizes.
type Team struct {
	reg    *registry.Registry
	router *router.Router
}

// NewTeam creates the synthesis coordinator over the roster.
func NewTeam(reg *registry.Registry, r *router.Router) *Team {
	return &Team{reg: reg, router: r}
}

// SynthesisResult is the combined outcome of a two-agent exchange.
type SynthesisResult struct {
	Response       string   `json:"response"`
	AgentsInvolved []string `json:"agents_involved"`
	PrimaryAgent   string   `json:"primary_agent"`
	SecondaryAgent string   `json:"secondary_agent"`
}

var fillerWords = regexp.MustCompile(`\b(ask|tell)\b`)

// Synthesize parses the mentions, has the secondary agent answer the
// question, then has the primary agent fold that answer into a final
// response. Fewer than two resolvable mentions is a ValidationError.
func (t *Team) Synthesize(ctx context.Context, ownerID, prompt string) (*SynthesisResult, error) {
	mentioned := t.router.ParseMentions(prompt)
	if len(mentioned) < 2 {
		return nil, &ValidationError{Msg: "mention at least 2 agents (e.g. '@alex ask @kevin')"}
	}

	primaryID, secondaryID := mentioned[0], mentioned[1]
	primaryName := t.reg.DisplayName(primaryID)
	secondaryName := t.reg.DisplayName(secondaryID)

	primary, ok := t.reg.Instance(primaryID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, primaryID)
	}
	secondary, ok := t.reg.Instance(secondaryID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, secondaryID)
	}

	question := t.router.StripMentions(prompt)
	question = strings.TrimSpace(strings.Join(strings.Fields(fillerWords.ReplaceAllString(question, "")), " "))

	slog.Info("Multi-agent exchange", "primary", primaryID, "secondary", secondaryID)

	secondaryPrompt := fmt.Sprintf(`You are %s. Another team member (%s) is asking you:

%s

Please provide a clear, helpful answer based on your expertise.`, secondaryName, primaryName, question)

	secondaryOut, err := secondary.Process(ctx, &registry.Request{
		OwnerID: ownerID,
		Prompt:  secondaryPrompt,
		Context: map[string]any{"multi_agent": true, "requesting_agent": primaryID},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", secondaryID, err)
	}
	secondaryResponse := secondaryOut.Response

	primaryPrompt := fmt.Sprintf(`You are %s. You asked %s the following question:

%q

%s's response:
%s

Now synthesize this information and provide a final, helpful response to the user.
Acknowledge %s's input and add your own perspective if relevant.`,
		primaryName, secondaryName, question, secondaryName, secondaryResponse, secondaryName)

	primaryOut, err := primary.Process(ctx, &registry.Request{
		OwnerID: ownerID,
		Prompt:  primaryPrompt,
		Context: map[string]any{"multi_agent": true, "consulted_agent": secondaryID},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", primaryID, err)
	}

	final := fmt.Sprintf(`**%s** asked **%s**: %s

---

**%s's response:**
%s

---

**%s's synthesis:**
%s`, primaryName, secondaryName, question,
		secondaryName, secondaryResponse,
		primaryName, primaryOut.Response)

	return &SynthesisResult{
		Response:       final,
		AgentsInvolved: []string{primaryID, secondaryID},
		PrimaryAgent:   primaryName,
		SecondaryAgent: secondaryName,
	}, nil
}
