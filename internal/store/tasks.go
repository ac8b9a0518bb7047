package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// BeginTask implements the idempotency ledger entry point. It atomically
// inserts a new processing task keyed by externalID, or returns the existing
// row when one is already present. isNew reports whether this caller owns the
// task and must run the pipeline; when false the caller must short-circuit
// and return the stored output verbatim.
//
// Atomicity relies on the UNIQUE constraint on external_id: the insert uses
// ON CONFLICT DO NOTHING, so under concurrent duplicates exactly one caller
// observes isNew=true.
func (s *Store) BeginTask(externalID, agentName, ownerID, input string) (*AgentTask, bool, error) {
	if externalID == "" {
		return nil, false, fmt.Errorf("begin task: external id is required")
	}

	taskID := uuid.NewString()
	res, err := s.db.Exec(`INSERT INTO agent_tasks (id, owner_id, agent_name, input, status, external_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO NOTHING`,
		taskID, ownerID, agentName, input, TaskStatusProcessing, externalID)
	if err != nil {
		return nil, false, fmt.Errorf("begin task: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("begin task: %w", err)
	}

	task, err := s.GetTaskByExternalID(externalID)
	if err != nil {
		return nil, false, err
	}
	if task == nil {
		return nil, false, fmt.Errorf("begin task: row for external id %s vanished", externalID)
	}
	return task, inserted > 0, nil
}

// CompleteTask marks a task completed with its serialized output. Terminal;
// callers invoke it at most once per task id.
func (s *Store) CompleteTask(taskID, output string) error {
	_, err := s.db.Exec(`UPDATE agent_tasks
		SET status = ?, output = ?, completed_at = datetime('now')
		WHERE id = ? AND status = ?`,
		TaskStatusCompleted, output, taskID, TaskStatusProcessing)
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	return nil
}

// FailTask marks a task failed with the error text. Terminal.
func (s *Store) FailTask(taskID, errorText string) error {
	_, err := s.db.Exec(`UPDATE agent_tasks
		SET status = ?, error_text = ?, completed_at = datetime('now')
		WHERE id = ? AND status = ?`,
		TaskStatusFailed, errorText, taskID, TaskStatusProcessing)
	if err != nil {
		return fmt.Errorf("fail task: %w", err)
	}
	return nil
}

// FinalizeStatus is the named fire-and-forget finalization policy: it marks
// the task completed or failed and logs (but does not return) any
// persistence error, so a finalize failure never masks the result already
// computed for the caller.
func (s *Store) FinalizeStatus(taskID, status, output, errorText string) {
	var err error
	switch status {
	case TaskStatusCompleted:
		err = s.CompleteTask(taskID, output)
	case TaskStatusFailed:
		err = s.FailTask(taskID, errorText)
	default:
		err = fmt.Errorf("finalize status: %q is not terminal", status)
	}
	if err != nil {
		slog.Error("Task finalization failed", "task_id", taskID, "status", status, "error", err)
	}
}

// GetTask returns a task by id, or an error if absent.
func (s *Store) GetTask(taskID string) (*AgentTask, error) {
	task, err := s.scanTask(s.db.QueryRow(taskSelect+` WHERE id = ?`, taskID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task not found: %s", taskID)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// GetTaskByExternalID returns the task for an idempotency key, or (nil, nil)
// when none exists.
func (s *Store) GetTaskByExternalID(externalID string) (*AgentTask, error) {
	if externalID == "" {
		return nil, nil
	}
	task, err := s.scanTask(s.db.QueryRow(taskSelect+` WHERE external_id = ?`, externalID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task by external id: %w", err)
	}
	return task, nil
}

// ListTasks returns an owner's tasks, newest first, optionally filtered by
// status and agent name.
func (s *Store) ListTasks(ownerID, status, agentName string, limit int) ([]AgentTask, error) {
	if limit <= 0 {
		limit = 20
	}
	query := taskSelect + ` WHERE owner_id = ?`
	args := []any{ownerID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	if agentName != "" {
		query += ` AND agent_name = ?`
		args = append(args, agentName)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []AgentTask
	for rows.Next() {
		task, err := s.scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

const taskSelect = `SELECT id, owner_id, agent_name, input, status, external_id,
	COALESCE(output,''), COALESCE(error_text,''), created_at, completed_at
	FROM agent_tasks`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanTask(row rowScanner) (*AgentTask, error) {
	var t AgentTask
	var completedAt sql.NullTime
	err := row.Scan(&t.ID, &t.OwnerID, &t.AgentName, &t.Input, &t.Status,
		&t.ExternalID, &t.Output, &t.ErrorText, &t.CreatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return &t, nil
}

// GenerateExternalID mints an idempotency key with the given prefix:
// prefix-YYYYMMDDHHMMSS-<8 hex chars>. Unique per logical request.
func GenerateExternalID(prefix string) string {
	ts := time.Now().UTC().Format("20060102150405")
	unique := uuid.NewString()[:8]
	if prefix == "" {
		return ts + "-" + unique
	}
	return prefix + "-" + ts + "-" + unique
}
