package store

import (
	"time"
)

// Task status values. A task starts as processing and moves to exactly one
// terminal status; it never re-enters processing.
const (
	TaskStatusProcessing = "processing"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

// AgentTask is one record per agent invocation attempt. ExternalID is the
// idempotency key: at most one task row exists per external_id.
type AgentTask struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	AgentName   string     `json:"agent_name"`
	Input       string     `json:"input"`  // serialized request parameters
	Status      string     `json:"status"` // processing | completed | failed
	ExternalID  string     `json:"external_id"`
	Output      string     `json:"output,omitempty"` // JSON, present iff completed
	ErrorText   string     `json:"error,omitempty"`  // present iff failed
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ConversationMessage is one turn in a conversation. Messages are immutable
// once written; retrieval order is strictly created_at ascending.
type ConversationMessage struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"` // user | assistant | system
	Content        string    `json:"content"`
	AgentName      string    `json:"agent_name,omitempty"`
	Metadata       string    `json:"metadata,omitempty"` // JSON blob
	CreatedAt      time.Time `json:"created_at"`
}

// Conversation is the optional grouping envelope around a message log.
type Conversation struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	AgentType string    `json:"agent_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Lead is a prospect record produced by the lead-gen agent.
type Lead struct {
	ID        int64     `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Company   string    `json:"company"`
	Email     string    `json:"email"`
	Score     int       `json:"score"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ProductInsight is a structured finding persisted by the product manager.
type ProductInsight struct {
	ID        int64     `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// Campaign is a marketing campaign record.
type Campaign struct {
	ID        int64     `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Channel   string    `json:"channel"`
	Budget    float64   `json:"budget"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// EmailEvent records outbound email activity (sent, opened, replied).
type EmailEvent struct {
	ID        int64     `json:"id"`
	OwnerID   string    `json:"owner_id"`
	LeadEmail string    `json:"lead_email"`
	EventType string    `json:"event_type"`
	CreatedAt time.Time `json:"created_at"`
}

// CalendarEvent is an upcoming meeting used for call-prep context.
type CalendarEvent struct {
	ID        int64     `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Attendees string    `json:"attendees"`
	CreatedAt time.Time `json:"created_at"`
}

// Schema is the base DDL applied on open. Statements are idempotent so the
// store can be reopened against an existing database.
const Schema = `
CREATE TABLE IF NOT EXISTS agent_tasks (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	agent_name TEXT NOT NULL,
	input TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'processing',
	external_id TEXT UNIQUE NOT NULL,
	output TEXT NOT NULL DEFAULT '',
	error_text TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	completed_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_agent_tasks_owner ON agent_tasks(owner_id, created_at);
CREATE INDEX IF NOT EXISTS idx_agent_tasks_status ON agent_tasks(status);

CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	agent_type TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_conversations_owner ON conversations(owner_id, updated_at);

CREATE TABLE IF NOT EXISTS conversation_messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	agent_name TEXT NOT NULL DEFAULT '',
	metadata TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_conv_messages_conv ON conversation_messages(conversation_id, created_at);

CREATE TABLE IF NOT EXISTS leads (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	company TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	score INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'new',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_leads_owner_score ON leads(owner_id, score);

CREATE TABLE IF NOT EXISTS product_insights (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS campaigns (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	channel TEXT NOT NULL DEFAULT '',
	budget REAL NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'draft',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS email_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id TEXT NOT NULL,
	lead_email TEXT NOT NULL DEFAULT '',
	event_type TEXT NOT NULL DEFAULT 'sent',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS calendar_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	start_time DATETIME NOT NULL,
	end_time DATETIME,
	attendees TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_calendar_owner_start ON calendar_events(owner_id, start_time);
`
