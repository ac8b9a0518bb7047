// Package config provides configuration types and loading for crewdesk.
package config

import "time"

// Config is the root configuration struct.
// Top-level groups: Paths, Provider, Memory, Gateway, Queue, Notify.
type Config struct {
	Paths    PathsConfig    `json:"paths"`
	Provider ProviderConfig `json:"provider"`
	Memory   MemoryConfig   `json:"memory"`
	Gateway  GatewayConfig  `json:"gateway"`
	Queue    QueueConfig    `json:"queue"`
	Notify   NotifyConfig   `json:"notify"`
}

// PathsConfig groups filesystem locations.
type PathsConfig struct {
	// Database is the SQLite file backing tasks, conversations, and business
	// records.
	Database string `json:"database" envconfig:"DATABASE"`
}

// ProviderConfig configures the model API client.
type ProviderConfig struct {
	APIKey       string        `json:"apiKey" envconfig:"API_KEY"`
	APIBase      string        `json:"apiBase" envconfig:"API_BASE"`
	DefaultModel string        `json:"defaultModel" envconfig:"DEFAULT_MODEL"`
	CallTimeout  time.Duration `json:"callTimeout" envconfig:"CALL_TIMEOUT"`
}

// MemoryConfig configures conversation memory.
type MemoryConfig struct {
	// ContextWindow is the number of recent turns injected into prompts.
	ContextWindow int `json:"contextWindow" envconfig:"CONTEXT_WINDOW"`
}

// GatewayConfig configures the HTTP API.
type GatewayConfig struct {
	Host string `json:"host" envconfig:"HOST"`
	Port int    `json:"port" envconfig:"PORT"`
}

// QueueConfig configures the Kafka job handoff.
type QueueConfig struct {
	Brokers     []string `json:"brokers" envconfig:"BROKERS"`
	ScrapeTopic string   `json:"scrapeTopic" envconfig:"SCRAPE_TOPIC"`
	EmailTopic  string   `json:"emailTopic" envconfig:"EMAIL_TOPIC"`
}

// NotifyConfig configures Slack task notifications.
type NotifyConfig struct {
	SlackToken   string `json:"slackToken" envconfig:"SLACK_TOKEN"`
	SlackChannel string `json:"slackChannel" envconfig:"SLACK_CHANNEL"`
}

// DefaultConfig returns the built-in defaults. Load layers the config file
// and environment on top.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			Database: "~/.crewdesk/crewdesk.db",
		},
		Provider: ProviderConfig{
			APIBase:      "https://openrouter.ai/api/v1",
			DefaultModel: "nvidia/nemotron-nano-12b-v2-vl:free",
			CallTimeout:  60 * time.Second,
		},
		Memory: MemoryConfig{
			ContextWindow: 10,
		},
		Gateway: GatewayConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Queue: QueueConfig{
			ScrapeTopic: "scrape.jobs",
			EmailTopic:  "email.jobs",
		},
	}
}
