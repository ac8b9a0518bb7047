// Package agent implements the per-agent task pipeline and the multi-agent
// synthesis flow. Every agent shares one lifecycle: idempotency check, task
// creation, context assembly, optional consultation, model call, persistence,
// best-effort finalization.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/crewdesk/crewdesk/internal/memory"
	"github.com/crewdesk/crewdesk/internal/provider"
	"github.com/crewdesk/crewdesk/internal/registry"
	"github.com/crewdesk/crewdesk/internal/router"
	"github.com/crewdesk/crewdesk/internal/store"
)

// maxConsultationDepth bounds agent-to-agent hops. A consulted agent runs at
// depth 1 and never consults further, so chains cannot recurse.
const maxConsultationDepth = 1

// TaskLedger is the idempotency surface the pipeline needs from the store.
type TaskLedger interface {
	BeginTask(externalID, agentName, ownerID, input string) (*store.AgentTask, bool, error)
	FinalizeStatus(taskID, status, output, errorText string)
}

// Memory is the conversation surface the pipeline needs.
type Memory interface {
	AddMessage(conversationID, role, content, agentName, metadata string) (int64, error)
	GetContext(conversationID string, includeSystem bool) ([]provider.Message, error)
}

// JobQueue hands work to background workers. Implementations must tolerate a
// missing broker by dropping the job with a log line.
type JobQueue interface {
	Enqueue(ctx context.Context, topic string, payload any) error
}

// Notifier delivers best-effort task notifications to an external channel.
type Notifier interface {
	TaskFinished(agentName, status, summary string)
}

// Spec is the per-agent configuration a Pipeline runs with. The eight roster
// specs live in specs.go.
type Spec struct {
	AgentID      string
	SystemPrompt string
	Model        string
	MaxTokens    int
	Temperature  float64

	// ContextAware lets the agent pull in a colleague when the prompt leans
	// into another agent's expertise. Only the personal assistant consults;
	// specialist agents answer from their own domain.
	ContextAware bool

	// GatherContext loads the agent's slice of business data for prompt
	// injection. Nil means the agent runs on the prompt alone.
	GatherContext func(ctx context.Context, deps *Deps, ownerID string) (map[string]any, error)

	// PostProcess runs side effects after a successful model call (enqueue
	// jobs, record events) and may contribute extra output data.
	PostProcess func(ctx context.Context, deps *Deps, req *registry.Request, responseText string) (map[string]any, error)
}

// Deps bundles the collaborators shared by all pipelines.
type Deps struct {
	Store    *store.Store
	Ledger   TaskLedger
	Memory   Memory
	Provider provider.LLMProvider
	Router   *router.Router
	Registry *registry.Registry
	Queue    JobQueue
	Notifier Notifier

	// Topics for background job handoff. Empty values fall back to the
	// defaults in specs.go.
	ScrapeTopic string
	EmailTopic  string
}

// Pipeline runs one agent's uniform task lifecycle.
type Pipeline struct {
	spec *Spec
	deps *Deps
}

// NewPipeline builds a pipeline for one agent spec.
func NewPipeline(spec *Spec, deps *Deps) *Pipeline {
	return &Pipeline{spec: spec, deps: deps}
}

// AgentID returns the canonical id this pipeline serves.
func (p *Pipeline) AgentID() string { return p.spec.AgentID }

// Process runs the full lifecycle for one request. Duplicate external ids
// short-circuit to the stored result without a second model call.
func (p *Pipeline) Process(ctx context.Context, req *registry.Request) (*registry.Output, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, &ValidationError{Msg: "prompt is required"}
	}

	externalID := req.ExternalID
	if externalID == "" {
		externalID = store.GenerateExternalID(p.spec.AgentID)
	}

	inputJSON, err := json.Marshal(map[string]any{"prompt": req.Prompt, "context": req.Context})
	if err != nil {
		return nil, fmt.Errorf("encode task input: %w", err)
	}

	task, isNew, err := p.deps.Ledger.BeginTask(externalID, p.spec.AgentID, req.OwnerID, string(inputJSON))
	if err != nil {
		return nil, err
	}
	if !isNew {
		slog.Info("Returning existing result", "agent", p.spec.AgentID, "external_id", externalID, "status", task.Status)
		return replayTask(task)
	}

	out, err := p.run(ctx, task, req)
	if err != nil {
		p.deps.Ledger.FinalizeStatus(task.ID, store.TaskStatusFailed, "", err.Error())
		p.notify(store.TaskStatusFailed, err.Error())
		return nil, err
	}

	outJSON, merr := json.Marshal(out)
	if merr != nil {
		slog.Error("Output serialization failed", "task_id", task.ID, "error", merr)
		outJSON = []byte(`{}`)
	}
	p.deps.Ledger.FinalizeStatus(task.ID, store.TaskStatusCompleted, string(outJSON), "")
	p.notify(store.TaskStatusCompleted, out.Response)

	slog.Info("Agent task completed", "agent", p.spec.AgentID, "task_id", task.ID, "tokens", out.TokensUsed)
	return out, nil
}

func (p *Pipeline) run(ctx context.Context, task *store.AgentTask, req *registry.Request) (*registry.Output, error) {
	var history []provider.Message
	if req.ConversationID != "" {
		if _, err := p.deps.Memory.AddMessage(req.ConversationID, "user", req.Prompt, "", ""); err != nil {
			return nil, err
		}
		var err error
		history, err = p.deps.Memory.GetContext(req.ConversationID, false)
		if err != nil {
			return nil, err
		}
		// The user turn just written comes back as the last history entry;
		// the prompt is sent separately below.
		if n := len(history); n > 0 && history[n-1].Role == "user" && history[n-1].Content == req.Prompt {
			history = history[:n-1]
		}
	}

	bizContext := map[string]any{}
	if p.spec.GatherContext != nil {
		gathered, err := p.spec.GatherContext(ctx, p.deps, req.OwnerID)
		if err != nil {
			return nil, err
		}
		bizContext = gathered
	}
	for k, v := range req.Context {
		bizContext[k] = v
	}

	var consultations []registry.Consultation
	if p.spec.ContextAware && req.ConsultationDepth < maxConsultationDepth {
		if suggestion := p.deps.Router.ShouldConsult(req.Prompt, p.spec.AgentID); suggestion != nil {
			slog.Info("Consulting colleague", "agent", p.spec.AgentID,
				"colleague", suggestion.AgentID, "reason", suggestion.Reason)
			answer := p.consult(ctx, req.OwnerID, suggestion, req.Prompt)
			bizContext["agent_consultation"] = map[string]string{
				"agent": suggestion.AgentName,
				"input": answer,
			}
			consultations = append(consultations, registry.Consultation{
				AgentID:   suggestion.AgentID,
				AgentName: suggestion.AgentName,
				Reason:    suggestion.Reason,
				Answer:    answer,
			})
		}
	}

	messages := []provider.Message{{Role: "system", Content: p.spec.SystemPrompt}}
	if len(bizContext) > 0 {
		ctxJSON, err := json.MarshalIndent(bizContext, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode context: %w", err)
		}
		messages = append(messages, provider.Message{Role: "system", Content: "Business data:\n" + string(ctxJSON)})
	}
	if len(history) > 0 {
		messages = append(messages, provider.Message{
			Role:    "system",
			Content: memory.FormatContextForPrompt(history, 0),
		})
	}
	messages = append(messages, provider.Message{Role: "user", Content: req.Prompt})

	resp, err := p.deps.Provider.Chat(ctx, &provider.ChatRequest{
		Messages:    messages,
		Model:       p.spec.Model,
		MaxTokens:   p.spec.MaxTokens,
		Temperature: p.spec.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%s model call: %w", p.spec.AgentID, err)
	}

	data := map[string]any{}
	if p.spec.PostProcess != nil {
		extra, err := p.spec.PostProcess(ctx, p.deps, req, resp.Content)
		if err != nil {
			return nil, err
		}
		for k, v := range extra {
			data[k] = v
		}
	}

	if req.ConversationID != "" {
		if _, err := p.deps.Memory.AddMessage(req.ConversationID, "assistant", resp.Content, p.spec.AgentID, ""); err != nil {
			slog.Warn("Assistant turn not persisted", "conversation_id", req.ConversationID, "error", err)
		}
	}

	return &registry.Output{
		Response:        resp.Content,
		Data:            data,
		ConsultedAgents: consultations,
		TokensUsed:      resp.TokensUsed,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// consult asks another agent for input. It never fails: any error collapses
// to a fixed "not available" answer so the primary response still goes out.
// The consulted run gets a fresh idempotency key and shares no conversation
// state with the caller.
func (p *Pipeline) consult(ctx context.Context, ownerID string, s *router.Suggestion, question string) string {
	unavailable := fmt.Sprintf("Agent %s not available", s.AgentID)

	handler, ok := p.deps.Registry.Instance(s.AgentID)
	if !ok {
		return unavailable
	}

	formatted := p.deps.Router.FormatAgentRequest(p.spec.AgentID, s.AgentID, question)
	keyPrefix := fmt.Sprintf("%s-consult-%s", strings.ToLower(p.deps.Registry.DisplayName(p.spec.AgentID)), s.AgentID)

	out, err := handler.Process(ctx, &registry.Request{
		OwnerID:           ownerID,
		Prompt:            formatted,
		ExternalID:        store.GenerateExternalID(keyPrefix),
		ConsultationDepth: maxConsultationDepth,
	})
	if err != nil || out == nil {
		slog.Warn("Consultation failed", "agent", p.spec.AgentID, "colleague", s.AgentID, "error", err)
		return unavailable
	}
	return router.ExtractAgentResponse(out.Response)
}

func (p *Pipeline) notify(status, summary string) {
	if p.deps.Notifier == nil {
		return
	}
	p.deps.Notifier.TaskFinished(p.spec.AgentID, status, summary)
}

// replayTask reconstructs the output of a previously seen external id.
// Completed tasks return their stored output; failed tasks surface the stored
// error; in-flight tasks report processing without blocking.
func replayTask(task *store.AgentTask) (*registry.Output, error) {
	switch task.Status {
	case store.TaskStatusCompleted:
		var out registry.Output
		if err := json.Unmarshal([]byte(task.Output), &out); err != nil {
			// Stored output that is not valid JSON comes back as plain text.
			return &registry.Output{Response: task.Output}, nil
		}
		return &out, nil
	case store.TaskStatusFailed:
		return nil, fmt.Errorf("task %s already failed: %s", task.ID, task.ErrorText)
	default:
		return &registry.Output{
			Response:  "This request is still being processed.",
			Data:      map[string]any{"task_id": task.ID, "status": task.Status},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}, nil
	}
}
