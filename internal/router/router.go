// Package router resolves which agent should handle a message: explicit
// @mentions, keyword-based expertise scoring, and cross-agent consultation
// suggestions.
package router

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/crewdesk/crewdesk/internal/registry"
)

// ScoreThreshold is the minimum keyword score before the router suggests
// handing a message to another agent. Below it the match is treated as noise.
const ScoreThreshold = 2

var mentionPattern = regexp.MustCompile(`@(\w+)`)

// Router maps messages to agents using the roster's aliases and expertise
// keywords.
type Router struct {
	reg *registry.Registry
}

// New creates a router over the given roster.
func New(reg *registry.Registry) *Router {
	return &Router{reg: reg}
}

// ParseMentions extracts @mentions from text and resolves them to canonical
// agent ids. Unknown mentions are dropped; duplicates collapse to the first
// occurrence, so the result preserves first-mention order.
//
//	"@alex please ask @kevin if this is possible" -> [product_manager, engineer]
func (r *Router) ParseMentions(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(strings.ToLower(text), -1)

	var agentIDs []string
	seen := make(map[string]bool)
	for _, m := range matches {
		agentID, ok := r.reg.Resolve(m[1])
		if !ok || seen[agentID] {
			continue
		}
		seen[agentID] = true
		agentIDs = append(agentIDs, agentID)
	}
	return agentIDs
}

// DetectAgent scores every agent's expertise keywords against the text and
// returns the best match, excluding currentAgent. Scoring is case-insensitive
// substring counting, one point per matching keyword. Matches below
// ScoreThreshold return "". Ties resolve to the earlier roster entry, so the
// result is deterministic for any input.
func (r *Router) DetectAgent(text, currentAgent string) string {
	textLower := strings.ToLower(text)

	best := ""
	bestScore := 0
	for _, agentID := range r.reg.AgentIDs() {
		if agentID == currentAgent {
			continue
		}
		score := 0
		for _, keyword := range r.reg.Keywords(agentID) {
			if strings.Contains(textLower, keyword) {
				score++
			}
		}
		if score > bestScore {
			best = agentID
			bestScore = score
		}
	}

	if bestScore < ScoreThreshold {
		return ""
	}
	return best
}

// StripMentions removes every @mention that resolves to a known agent,
// leaving the underlying question. Unknown @tokens are kept as written.
func (r *Router) StripMentions(text string) string {
	out := mentionPattern.ReplaceAllStringFunc(text, func(m string) string {
		if _, ok := r.reg.Resolve(m[1:]); ok {
			return ""
		}
		return m
	})
	return strings.TrimSpace(strings.Join(strings.Fields(out), " "))
}

// Suggestion names the agent a handler should consult and why.
type Suggestion struct {
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
	Reason    string `json:"reason"`
}

// consultReasons maps (current, suggested) agent pairs to a human-readable
// consultation reason. Pairs not listed fall back to a generic expertise line.
var consultReasons = map[[2]string]string{
	{registry.ProductManager, registry.Engineer}:             "technical feasibility and implementation details",
	{registry.ProductManager, registry.FinanceManager}:       "budget and cost analysis",
	{registry.ProductManager, registry.MarketingStrategist}:  "market positioning and messaging",
	{registry.MarketingStrategist, registry.FinanceManager}:  "campaign budget and ROI projections",
	{registry.MarketingStrategist, registry.OutboundEmailer}: "email campaign execution",
	{registry.FinanceManager, registry.ProductManager}:       "product revenue impact analysis",
	{registry.Engineer, registry.ProductManager}:             "product requirements and specifications",
}

// ShouldConsult decides whether currentAgent should pull in a colleague for
// this message. Returns nil when no other agent clears the score threshold.
func (r *Router) ShouldConsult(text, currentAgent string) *Suggestion {
	suggested := r.DetectAgent(text, currentAgent)
	if suggested == "" {
		return nil
	}

	name := r.reg.DisplayName(suggested)
	reason, ok := consultReasons[[2]string{currentAgent, suggested}]
	if !ok {
		reason = name + "'s expertise"
	}
	return &Suggestion{AgentID: suggested, AgentName: name, Reason: reason}
}

// FormatAgentRequest renders the envelope one agent sends another during a
// consultation.
func (r *Router) FormatAgentRequest(fromAgent, toAgent, question string) string {
	fromName := r.reg.DisplayName(fromAgent)
	toName := r.reg.DisplayName(toAgent)

	return fmt.Sprintf(`
[INTER-AGENT REQUEST]
From: %s (%s)
To: %s (%s)

%s is asking for your input:
%s

Please provide a clear, concise answer focusing on your area of expertise.
This will be used by %s to provide a complete response to the user.
`, fromName, fromAgent, toName, toAgent, fromName, question, fromName)
}

var (
	interAgentHeader = regexp.MustCompile(`(?s)\[INTER-AGENT REQUEST\].*?(\n\n|\z)`)
	fromToLines      = regexp.MustCompile(`(?m)^(From|To):.*$`)
)

// ExtractAgentResponse strips consultation envelope artifacts from a model
// response so only the answer remains.
func ExtractAgentResponse(fullResponse string) string {
	out := interAgentHeader.ReplaceAllString(fullResponse, "")
	out = fromToLines.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}
