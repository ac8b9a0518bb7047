package store

import (
	"database/sql"
	"fmt"
)

// CreateConversation inserts a conversation envelope. The id must be unique;
// callers either supply one or derive it from agent, owner, and task.
func (s *Store) CreateConversation(c *Conversation) (*Conversation, error) {
	if c.ID == "" {
		return nil, fmt.Errorf("create conversation: id is required")
	}
	_, err := s.db.Exec(`INSERT INTO conversations (id, owner_id, title, agent_type)
		VALUES (?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.Title, c.AgentType)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return s.GetConversation(c.ID)
}

// EnsureConversation creates the envelope if it does not exist yet.
func (s *Store) EnsureConversation(id, ownerID, agentType string) error {
	_, err := s.db.Exec(`INSERT INTO conversations (id, owner_id, agent_type)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		id, ownerID, agentType)
	if err != nil {
		return fmt.Errorf("ensure conversation: %w", err)
	}
	return nil
}

// GetConversation returns a conversation by id, or (nil, nil) when absent.
func (s *Store) GetConversation(id string) (*Conversation, error) {
	var c Conversation
	err := s.db.QueryRow(`SELECT id, owner_id, title, agent_type, created_at, updated_at
		FROM conversations WHERE id = ?`, id).
		Scan(&c.ID, &c.OwnerID, &c.Title, &c.AgentType, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &c, nil
}

// ListConversations returns an owner's conversations, most recently updated
// first.
func (s *Store) ListConversations(ownerID string, limit int) ([]Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT id, owner_id, title, agent_type, created_at, updated_at
		FROM conversations WHERE owner_id = ? ORDER BY updated_at DESC LIMIT ?`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Title, &c.AgentType, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateConversationTitle renames a conversation and bumps updated_at.
func (s *Store) UpdateConversationTitle(id, title string) error {
	res, err := s.db.Exec(`UPDATE conversations SET title = ?, updated_at = datetime('now')
		WHERE id = ?`, title, id)
	if err != nil {
		return fmt.Errorf("update conversation title: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("conversation not found: %s", id)
	}
	return nil
}

// AddMessage appends one immutable turn to a conversation log and returns the
// message id. Ordering is established by the insert timestamp, never by the
// caller.
func (s *Store) AddMessage(conversationID, role, content, agentName, metadata string) (int64, error) {
	if metadata == "" {
		metadata = "{}"
	}
	res, err := s.db.Exec(`INSERT INTO conversation_messages
		(conversation_id, role, content, agent_name, metadata)
		VALUES (?, ?, ?, ?, ?)`,
		conversationID, role, content, agentName, metadata)
	if err != nil {
		return 0, fmt.Errorf("add message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("add message: %w", err)
	}
	_, _ = s.db.Exec(`UPDATE conversations SET updated_at = datetime('now') WHERE id = ?`, conversationID)
	return id, nil
}

// RecentMessages returns the most recent limit messages of a conversation in
// chronological order (oldest of the window first).
func (s *Store) RecentMessages(conversationID string, limit int) ([]ConversationMessage, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`SELECT id, conversation_id, role, content, agent_name, metadata, created_at
		FROM (
			SELECT id, conversation_id, role, content, agent_name, metadata, created_at
			FROM conversation_messages
			WHERE conversation_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		) ORDER BY created_at ASC, id ASC`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	defer rows.Close()

	var out []ConversationMessage
	for rows.Next() {
		var m ConversationMessage
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.AgentName, &m.Metadata, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AllMessages returns every message of a conversation in chronological order.
func (s *Store) AllMessages(conversationID string) ([]ConversationMessage, error) {
	rows, err := s.db.Query(`SELECT id, conversation_id, role, content, agent_name, metadata, created_at
		FROM conversation_messages WHERE conversation_id = ?
		ORDER BY created_at ASC, id ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("all messages: %w", err)
	}
	defer rows.Close()

	var out []ConversationMessage
	for rows.Next() {
		var m ConversationMessage
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.AgentName, &m.Metadata, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ClearConversation deletes every message in a conversation. The only bulk
// mutation the message log supports.
func (s *Store) ClearConversation(conversationID string) error {
	_, err := s.db.Exec(`DELETE FROM conversation_messages WHERE conversation_id = ?`, conversationID)
	if err != nil {
		return fmt.Errorf("clear conversation: %w", err)
	}
	return nil
}
