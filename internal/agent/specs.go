package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/crewdesk/crewdesk/internal/registry"
	"github.com/crewdesk/crewdesk/internal/store"
)

// Default job topics; config can override them through Deps.
const (
	DefaultScrapeTopic = "scrape.jobs"
	DefaultEmailTopic  = "email.jobs"
)

// Wire builds a pipeline for every roster agent and binds it as that agent's
// handler. Call once at startup, after Deps is fully populated.
func Wire(deps *Deps) {
	if deps.ScrapeTopic == "" {
		deps.ScrapeTopic = DefaultScrapeTopic
	}
	if deps.EmailTopic == "" {
		deps.EmailTopic = DefaultEmailTopic
	}
	for _, spec := range Specs() {
		deps.Registry.BindHandler(spec.AgentID, NewPipeline(spec, deps))
	}
}

// Specs returns the eight roster agent configurations.
func Specs() []*Spec {
	return []*Spec{
		{
			AgentID: registry.ProductManager,
			SystemPrompt: "You are Alex, a Product Manager AI agent. " +
				"Analyze trends, create product insights, and manage roadmaps. " +
				"Provide actionable recommendations based on market data.",
			Model:         "nvidia/nemotron-4-340b-instruct",
			MaxTokens:     2000,
			Temperature:   0.7,
			GatherContext: productContext,
		},
		{
			AgentID: registry.FinanceManager,
			SystemPrompt: "You are Marcus, a Finance Manager AI agent. " +
				"Analyze financial data, track expenses, and provide budget insights. " +
				"Give clear financial recommendations and forecasts.",
			Model:         "nvidia/nemotron-4-340b-instruct",
			MaxTokens:     2000,
			Temperature:   0.5,
			GatherContext: financeContext,
		},
		{
			AgentID: registry.MarketingStrategist,
			SystemPrompt: "You are Ryan, a Marketing Strategist AI agent. " +
				"Create marketing campaigns, analyze performance, and optimize strategies. " +
				"Provide creative and data-driven marketing recommendations.",
			Model:         "nvidia/nemotron-4-340b-instruct",
			MaxTokens:     2000,
			Temperature:   0.8,
			GatherContext: marketingContext,
		},
		{
			AgentID: registry.LeadgenScraper,
			SystemPrompt: "You are Jake, a Lead Generation AI agent. " +
				"Identify promising prospects, qualify leads against the given criteria, " +
				"and summarize what makes each lead worth pursuing.",
			Model:         "anthropic/claude-3-haiku",
			MaxTokens:     2000,
			Temperature:   0.5,
			GatherContext: leadsContext,
			PostProcess:   enqueueScrapeJobs,
		},
		{
			AgentID: registry.OutboundEmailer,
			SystemPrompt: "You are Chris, an Outbound Email AI agent. " +
				"Write personalized, concise outreach emails that get replies. " +
				"Match the tone to the lead and always include a clear next step.",
			Model:         "anthropic/claude-3-haiku",
			MaxTokens:     2000,
			Temperature:   0.7,
			GatherContext: outreachContext,
			PostProcess:   enqueueEmailJobs,
		},
		{
			AgentID: registry.BookingCallprep,
			SystemPrompt: "You are Daniel, a Booking and Call Prep AI agent. " +
				"Schedule meetings, prepare call briefs, and write call scripts. " +
				"Keep briefs short: who they are, what they want, what to ask.",
			Model:         "anthropic/claude-3-haiku",
			MaxTokens:     2000,
			Temperature:   0.5,
			GatherContext: bookingContext,
		},
		{
			AgentID: registry.Engineer,
			SystemPrompt: "You are Kevin, an Engineer AI agent. " +
				"Write code, debug issues, and provide technical solutions. " +
				"Give clear, well-documented code examples.",
			Model:       "anthropic/claude-3-haiku",
			MaxTokens:   3000,
			Temperature: 0.3,
			PostProcess: extractCodeBlocks,
		},
		{
			AgentID: registry.PersonalAssistant,
			SystemPrompt: "You are Sophia, the Personal AI Assistant.\n\n" +
				"You have access to ALL business data: tasks, leads, calendar, product insights, " +
				"campaigns, and email activity.\n\n" +
				"You are intelligent, proactive, and organized. You:\n" +
				"- Understand context from past conversations and data\n" +
				"- Assign tasks intelligently with specific dates/times\n" +
				"- Coordinate with other agents (Alex, Marcus, Ryan, Jake, Chris, Daniel, Kevin)\n" +
				"- Provide actionable, structured responses\n" +
				"- Anticipate user needs\n\n" +
				"Be conversational but professional. Think like an executive assistant who knows " +
				"everything about the user's business.",
			Model:         "nvidia/nemotron-4-340b-instruct",
			MaxTokens:     3000,
			Temperature:   0.7,
			ContextAware:  true,
			GatherContext: assistantContext,
		},
	}
}

func productContext(ctx context.Context, deps *Deps, ownerID string) (map[string]any, error) {
	insights, err := deps.Store.RecentInsights(ownerID, 10)
	if err != nil {
		return nil, err
	}
	return map[string]any{"insights": insights}, nil
}

func financeContext(ctx context.Context, deps *Deps, ownerID string) (map[string]any, error) {
	campaigns, err := deps.Store.RecentCampaigns(ownerID, 10)
	if err != nil {
		return nil, err
	}
	return map[string]any{"campaign_budgets": campaigns}, nil
}

func marketingContext(ctx context.Context, deps *Deps, ownerID string) (map[string]any, error) {
	campaigns, err := deps.Store.RecentCampaigns(ownerID, 10)
	if err != nil {
		return nil, err
	}
	leads, err := deps.Store.TopLeads(ownerID, 10)
	if err != nil {
		return nil, err
	}
	return map[string]any{"campaigns": campaigns, "top_leads": leads}, nil
}

func leadsContext(ctx context.Context, deps *Deps, ownerID string) (map[string]any, error) {
	leads, err := deps.Store.TopLeads(ownerID, 30)
	if err != nil {
		return nil, err
	}
	return map[string]any{"leads": leads}, nil
}

func outreachContext(ctx context.Context, deps *Deps, ownerID string) (map[string]any, error) {
	leads, err := deps.Store.TopLeads(ownerID, 30)
	if err != nil {
		return nil, err
	}
	events, err := deps.Store.RecentEmailEvents(ownerID, 50)
	if err != nil {
		return nil, err
	}
	return map[string]any{"leads": leads, "email_activity": events}, nil
}

func bookingContext(ctx context.Context, deps *Deps, ownerID string) (map[string]any, error) {
	events, err := deps.Store.UpcomingCalendarEvents(ownerID, time.Now().UTC(), 20)
	if err != nil {
		return nil, err
	}
	leads, err := deps.Store.TopLeads(ownerID, 10)
	if err != nil {
		return nil, err
	}
	return map[string]any{"calendar": events, "leads": leads}, nil
}

// assistantContext gives the personal assistant the full business picture.
func assistantContext(ctx context.Context, deps *Deps, ownerID string) (map[string]any, error) {
	out := map[string]any{}

	tasks, err := deps.Store.ListTasks(ownerID, "", "", 20)
	if err != nil {
		return nil, err
	}
	out["recent_tasks"] = tasks

	leads, err := deps.Store.TopLeads(ownerID, 30)
	if err != nil {
		return nil, err
	}
	out["leads"] = leads

	calendar, err := deps.Store.UpcomingCalendarEvents(ownerID, time.Now().UTC(), 20)
	if err != nil {
		return nil, err
	}
	out["calendar"] = calendar

	insights, err := deps.Store.RecentInsights(ownerID, 10)
	if err != nil {
		return nil, err
	}
	out["insights"] = insights

	campaigns, err := deps.Store.RecentCampaigns(ownerID, 10)
	if err != nil {
		return nil, err
	}
	out["campaigns"] = campaigns

	emailActivity, err := deps.Store.RecentEmailEvents(ownerID, 50)
	if err != nil {
		return nil, err
	}
	out["email_activity"] = emailActivity

	return out, nil
}

var urlPattern = regexp.MustCompile(`https?://\S+`)

// enqueueScrapeJobs hands every URL in the prompt to the scrape workers. The
// model response covers qualification; actual fetching happens out of band.
func enqueueScrapeJobs(ctx context.Context, deps *Deps, req *registry.Request, responseText string) (map[string]any, error) {
	urls := urlPattern.FindAllString(req.Prompt, -1)
	if len(urls) == 0 {
		return nil, nil
	}

	queued := 0
	for _, url := range urls {
		job := map[string]any{
			"url":       url,
			"owner_id":  req.OwnerID,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		if err := deps.Queue.Enqueue(ctx, deps.ScrapeTopic, job); err != nil {
			return nil, fmt.Errorf("enqueue scrape job: %w", err)
		}
		queued++
	}
	return map[string]any{"scrape_jobs_queued": queued, "urls": urls}, nil
}

// enqueueEmailJobs queues one send per recipient in the request context and
// records a "queued" email event for each. Workers own the actual delivery.
func enqueueEmailJobs(ctx context.Context, deps *Deps, req *registry.Request, responseText string) (map[string]any, error) {
	recipients := stringSlice(req.Context["lead_emails"])
	if len(recipients) == 0 {
		return nil, nil
	}

	queued := 0
	for _, email := range recipients {
		job := map[string]any{
			"to_email":  email,
			"body":      responseText,
			"owner_id":  req.OwnerID,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		if err := deps.Queue.Enqueue(ctx, deps.EmailTopic, job); err != nil {
			return nil, fmt.Errorf("enqueue email job: %w", err)
		}
		if err := deps.Store.InsertEmailEvent(&store.EmailEvent{
			OwnerID:   req.OwnerID,
			LeadEmail: email,
			EventType: "queued",
		}); err != nil {
			return nil, err
		}
		queued++
	}
	return map[string]any{"emails_queued": queued}, nil
}

var codeBlockPattern = regexp.MustCompile("```(\\w*)\\n((?s:.*?))```")

// extractCodeBlocks pulls fenced code out of the model response so API
// clients get structured snippets alongside the prose.
func extractCodeBlocks(ctx context.Context, deps *Deps, req *registry.Request, responseText string) (map[string]any, error) {
	matches := codeBlockPattern.FindAllStringSubmatch(responseText, -1)
	if len(matches) == 0 {
		return nil, nil
	}

	blocks := make([]map[string]string, 0, len(matches))
	for _, m := range matches {
		lang := m[1]
		if lang == "" {
			lang = "text"
		}
		blocks = append(blocks, map[string]string{
			"language": lang,
			"code":     strings.TrimSpace(m[2]),
		})
	}
	return map[string]any{"code_blocks": blocks}, nil
}

func stringSlice(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
