// Package registry holds the immutable agent roster: canonical ids, display
// names, alias resolution, expertise keywords, and handler references.
package registry

import (
	"context"
	"strings"
)

// Canonical agent ids.
const (
	ProductManager      = "product_manager"
	FinanceManager      = "finance_manager"
	MarketingStrategist = "marketing_strategist"
	LeadgenScraper      = "leadgen_scraper"
	OutboundEmailer     = "outbound_emailer"
	BookingCallprep     = "booking_callprep"
	Engineer            = "engineer"
	PersonalAssistant   = "personal_assistant"
)

// Handler is the uniform per-agent processing contract. Implementations run
// the full task pipeline for one agent.
type Handler interface {
	Process(ctx context.Context, req *Request) (*Output, error)
}

// Request carries one agent invocation.
type Request struct {
	OwnerID        string         `json:"owner_id"`
	Prompt         string         `json:"prompt"`
	Context        map[string]any `json:"context,omitempty"`
	ExternalID     string         `json:"external_id,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	// ConsultationDepth counts agent-to-agent hops. Zero for end-user
	// requests; a consulted agent runs at depth 1 and never consults further.
	ConsultationDepth int `json:"-"`
}

// Consultation records one cross-agent consultation folded into a response.
type Consultation struct {
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
	Reason    string `json:"reason"`
	Answer    string `json:"answer,omitempty"`
}

// Output is the structured result every agent produces.
type Output struct {
	Response        string         `json:"response"`
	Data            map[string]any `json:"data,omitempty"`
	ConsultedAgents []Consultation `json:"consulted_agents,omitempty"`
	TokensUsed      int            `json:"tokens_used,omitempty"`
	Timestamp       string         `json:"timestamp"`
}

// Descriptor is one registry entry, immutable after startup.
type Descriptor struct {
	AgentID     string
	DisplayName string
	Aliases     []string
	Keywords    []string
	Handler     Handler
}

// Registry is the immutable agent table built once at process start and
// injected into the router, parser, and pipelines. Iteration order is the
// registration order, which makes expertise tie-breaks deterministic.
type Registry struct {
	order   []string
	entries map[string]*Descriptor
	aliases map[string]string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		entries: make(map[string]*Descriptor),
		aliases: make(map[string]string),
	}
}

// Register adds a descriptor. The agent id and its aliases resolve
// case-insensitively. Registration order is preserved.
func (r *Registry) Register(d *Descriptor) {
	if _, dup := r.entries[d.AgentID]; !dup {
		r.order = append(r.order, d.AgentID)
	}
	r.entries[d.AgentID] = d
	r.aliases[strings.ToLower(d.AgentID)] = d.AgentID
	for _, alias := range d.Aliases {
		r.aliases[strings.ToLower(alias)] = d.AgentID
	}
}

// Resolve maps a name or alias to a canonical agent id. ok is false for
// unknown names.
func (r *Registry) Resolve(nameOrAlias string) (string, bool) {
	id, ok := r.aliases[strings.ToLower(strings.TrimSpace(nameOrAlias))]
	return id, ok
}

// DisplayName returns the human-facing name for an agent id, falling back to
// the id itself.
func (r *Registry) DisplayName(agentID string) string {
	if d, ok := r.entries[agentID]; ok {
		return d.DisplayName
	}
	return agentID
}

// Keywords returns the expertise keyword set for an agent id.
func (r *Registry) Keywords(agentID string) []string {
	if d, ok := r.entries[agentID]; ok {
		return d.Keywords
	}
	return nil
}

// Instance returns the handler for an agent id.
func (r *Registry) Instance(agentID string) (Handler, bool) {
	d, ok := r.entries[agentID]
	if !ok || d.Handler == nil {
		return nil, false
	}
	return d.Handler, true
}

// AgentIDs returns the canonical ids in registration order.
func (r *Registry) AgentIDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Get returns the full descriptor for an agent id.
func (r *Registry) Get(agentID string) (*Descriptor, bool) {
	d, ok := r.entries[agentID]
	return d, ok
}

// Roster builds the default eight-agent table without handlers; the caller
// binds handlers after constructing the pipelines.
func Roster() *Registry {
	r := New()
	r.Register(&Descriptor{
		AgentID:     ProductManager,
		DisplayName: "Alex",
		Aliases:     []string{"alex"},
		Keywords:    []string{"product", "roadmap", "features", "market", "trends", "insights", "strategy"},
	})
	r.Register(&Descriptor{
		AgentID:     FinanceManager,
		DisplayName: "Marcus",
		Aliases:     []string{"marcus"},
		Keywords:    []string{"finance", "budget", "revenue", "expenses", "profit", "cost", "pricing"},
	})
	r.Register(&Descriptor{
		AgentID:     MarketingStrategist,
		DisplayName: "Ryan",
		Aliases:     []string{"ryan"},
		Keywords:    []string{"marketing", "campaign", "branding", "audience", "content", "ads"},
	})
	r.Register(&Descriptor{
		AgentID:     LeadgenScraper,
		DisplayName: "Jake",
		Aliases:     []string{"jake"},
		Keywords:    []string{"leads", "prospects", "scraping", "data", "research", "contacts"},
	})
	r.Register(&Descriptor{
		AgentID:     OutboundEmailer,
		DisplayName: "Chris",
		Aliases:     []string{"chris"},
		Keywords:    []string{"email", "outreach", "communication", "messaging", "follow-up"},
	})
	r.Register(&Descriptor{
		AgentID:     BookingCallprep,
		DisplayName: "Daniel",
		Aliases:     []string{"daniel"},
		Keywords:    []string{"meetings", "calls", "calendar", "scheduling", "prep", "scripts"},
	})
	r.Register(&Descriptor{
		AgentID:     Engineer,
		DisplayName: "Kevin",
		Aliases:     []string{"kevin"},
		Keywords:    []string{"code", "technical", "programming", "development", "bug", "implementation", "api"},
	})
	r.Register(&Descriptor{
		AgentID:     PersonalAssistant,
		DisplayName: "Sophia",
		Aliases:     []string{"sophia", "assistant"},
		Keywords:    []string{"task", "schedule", "organize", "manage", "assign", "calendar", "summary"},
	})
	return r
}

// BindHandler attaches a handler to an existing descriptor.
func (r *Registry) BindHandler(agentID string, h Handler) {
	if d, ok := r.entries[agentID]; ok {
		d.Handler = h
	}
}
