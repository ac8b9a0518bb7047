package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/crewdesk/crewdesk/internal/agent"
	"github.com/crewdesk/crewdesk/internal/config"
	"github.com/crewdesk/crewdesk/internal/memory"
	"github.com/crewdesk/crewdesk/internal/notify"
	"github.com/crewdesk/crewdesk/internal/provider"
	"github.com/crewdesk/crewdesk/internal/queue"
	"github.com/crewdesk/crewdesk/internal/registry"
	"github.com/crewdesk/crewdesk/internal/router"
	"github.com/crewdesk/crewdesk/internal/store"
)

// runtime holds the assembled agent team and its collaborators.
type runtime struct {
	cfg      *config.Config
	store    *store.Store
	registry *registry.Registry
	router   *router.Router
	memory   *memory.ConversationMemory
	team     *agent.Team
	producer *queue.Producer
}

// buildRuntime loads config, opens the database, and wires every agent
// pipeline into the roster.
func buildRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	dbPath, err := config.ExpandPath(cfg.Paths.Database)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}

	reg := registry.Roster()
	rt := router.New(reg)
	mem := memory.New(st, cfg.Memory.ContextWindow)
	llm := provider.NewOpenRouterProvider(cfg.Provider.APIKey, cfg.Provider.APIBase,
		cfg.Provider.DefaultModel, cfg.Provider.CallTimeout)
	producer := queue.NewProducer(cfg.Queue.Brokers)

	deps := &agent.Deps{
		Store:       st,
		Ledger:      st,
		Memory:      mem,
		Provider:    llm,
		Router:      rt,
		Registry:    reg,
		Queue:       producer,
		ScrapeTopic: cfg.Queue.ScrapeTopic,
		EmailTopic:  cfg.Queue.EmailTopic,
	}
	if n := notify.NewSlackNotifier(cfg.Notify.SlackToken, cfg.Notify.SlackChannel); n != nil {
		deps.Notifier = n
	}
	agent.Wire(deps)

	return &runtime{
		cfg:      cfg,
		store:    st,
		registry: reg,
		router:   rt,
		memory:   mem,
		team:     agent.NewTeam(reg, rt),
		producer: producer,
	}, nil
}

func (r *runtime) close() {
	r.producer.Close()
	r.store.Close()
}
