package store

import (
	"database/sql"
	"sync"
	"sync/atomic"
	"testing"

	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewWithDB(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBeginTaskNew(t *testing.T) {
	s := newTestStore(t)

	task, isNew, err := s.BeginTask("ext-001", "finance_manager", "owner-1", `{"prompt":"q1"}`)
	if err != nil {
		t.Fatalf("begin task: %v", err)
	}
	if !isNew {
		t.Fatal("expected isNew for first begin")
	}
	if task.Status != TaskStatusProcessing {
		t.Fatalf("expected processing, got %s", task.Status)
	}
	if task.ID == "" {
		t.Fatal("expected generated task id")
	}
	if task.ExternalID != "ext-001" {
		t.Fatalf("unexpected external id: %s", task.ExternalID)
	}
}

func TestBeginTaskDuplicateReturnsExisting(t *testing.T) {
	s := newTestStore(t)

	first, isNew, err := s.BeginTask("ext-dup", "engineer", "owner-1", "{}")
	if err != nil || !isNew {
		t.Fatalf("first begin: isNew=%v err=%v", isNew, err)
	}
	if err := s.CompleteTask(first.ID, `{"response":"done"}`); err != nil {
		t.Fatalf("complete: %v", err)
	}

	second, isNew, err := s.BeginTask("ext-dup", "engineer", "owner-1", "{}")
	if err != nil {
		t.Fatalf("second begin: %v", err)
	}
	if isNew {
		t.Fatal("expected isNew=false for duplicate external id")
	}
	if second.ID != first.ID {
		t.Fatalf("expected same task row, got %s vs %s", second.ID, first.ID)
	}
	if second.Output != `{"response":"done"}` {
		t.Fatalf("expected stored output, got %q", second.Output)
	}

	// Exactly one row exists for the key.
	var count int
	s.DB().QueryRow(`SELECT COUNT(*) FROM agent_tasks WHERE external_id = 'ext-dup'`).Scan(&count)
	if count != 1 {
		t.Fatalf("expected 1 task row, got %d", count)
	}
}

func TestBeginTaskConcurrentDuplicates(t *testing.T) {
	// A dedicated handle pinned to one connection: each :memory: connection
	// is its own database, so the pool must not open a second one.
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	s, err := NewWithDB(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	const workers = 8
	var wg sync.WaitGroup
	var newCount atomic.Int32
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, isNew, err := s.BeginTask("ext-race", "engineer", "owner-1", "{}")
			if err != nil {
				errs <- err
				return
			}
			if isNew {
				newCount.Add(1)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("begin task: %v", err)
	}

	// Exactly one caller owns the task; the rest see the existing row.
	if newCount.Load() != 1 {
		t.Fatalf("expected exactly one isNew=true, got %d", newCount.Load())
	}
	var count int
	s.DB().QueryRow(`SELECT COUNT(*) FROM agent_tasks WHERE external_id = 'ext-race'`).Scan(&count)
	if count != 1 {
		t.Fatalf("expected 1 task row, got %d", count)
	}
}

func TestBeginTaskRequiresExternalID(t *testing.T) {
	s := newTestStore(t)
	if _, _, err := s.BeginTask("", "engineer", "owner-1", "{}"); err == nil {
		t.Fatal("expected error for empty external id")
	}
}

func TestTerminalStatusIsSticky(t *testing.T) {
	s := newTestStore(t)

	task, _, err := s.BeginTask("ext-term", "engineer", "owner-1", "{}")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.FailTask(task.ID, "model timeout"); err != nil {
		t.Fatalf("fail: %v", err)
	}

	// A later complete must not overwrite the terminal status.
	if err := s.CompleteTask(task.ID, `{"response":"late"}`); err != nil {
		t.Fatalf("complete: %v", err)
	}
	got, err := s.GetTask(task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != TaskStatusFailed {
		t.Fatalf("expected failed to stick, got %s", got.Status)
	}
	if got.ErrorText != "model timeout" {
		t.Fatalf("unexpected error text: %q", got.ErrorText)
	}
	if got.CompletedAt == nil {
		t.Fatal("expected completed_at to be set")
	}
}

func TestFinalizeStatusSwallowsBadStatus(t *testing.T) {
	s := newTestStore(t)
	// Must not panic or surface an error for a non-terminal status.
	s.FinalizeStatus("missing-task", "processing", "", "")
}

func TestListTasksFilters(t *testing.T) {
	s := newTestStore(t)

	a, _, _ := s.BeginTask("ext-a", "engineer", "owner-1", "{}")
	s.CompleteTask(a.ID, "{}")
	s.BeginTask("ext-b", "finance_manager", "owner-1", "{}")
	s.BeginTask("ext-c", "engineer", "owner-2", "{}")

	tasks, err := s.ListTasks("owner-1", "", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks for owner-1, got %d", len(tasks))
	}

	tasks, err = s.ListTasks("owner-1", TaskStatusCompleted, "engineer", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].ExternalID != "ext-a" {
		t.Fatalf("unexpected filter result: %+v", tasks)
	}
}

func TestGenerateExternalID(t *testing.T) {
	a := GenerateExternalID("assistant")
	b := GenerateExternalID("assistant")
	if a == b {
		t.Fatal("expected unique ids")
	}
	if len(a) == 0 || a[:10] != "assistant-" {
		t.Fatalf("unexpected prefix: %s", a)
	}
	if GenerateExternalID("") == "" {
		t.Fatal("expected non-empty id without prefix")
	}
}
