package gateway

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/crewdesk/crewdesk/internal/agent"
	"github.com/crewdesk/crewdesk/internal/memory"
	"github.com/crewdesk/crewdesk/internal/provider"
	"github.com/crewdesk/crewdesk/internal/registry"
	"github.com/crewdesk/crewdesk/internal/router"
	"github.com/crewdesk/crewdesk/internal/store"
)

type scriptedProvider struct {
	response string
}

func (p *scriptedProvider) Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	return &provider.ChatResponse{Content: p.response, Model: req.Model, TokensUsed: 5}, nil
}

func (p *scriptedProvider) DefaultModel() string { return "test-model" }

type discardQueue struct{}

func (discardQueue) Enqueue(ctx context.Context, topic string, payload any) error { return nil }

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	st, err := store.NewWithDB(db)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	reg := registry.Roster()
	rt := router.New(reg)
	mem := memory.New(st, 0)
	deps := &agent.Deps{
		Store:    st,
		Ledger:   st,
		Memory:   mem,
		Provider: &scriptedProvider{response: "on it"},
		Router:   rt,
		Registry: reg,
		Queue:    discardQueue{},
	}
	agent.Wire(deps)

	srv := httptest.NewServer(New(reg, agent.NewTeam(reg, rt), st, mem).Handler())
	t.Cleanup(srv.Close)
	return srv, st
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func TestRosterEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := getJSON(t, srv.URL+"/api/agents")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	data, ok := body["data"].([]any)
	if !ok || len(data) != 8 {
		t.Fatalf("expected 8 roster entries, got %v", body["data"])
	}
}

func TestAgentEndpointByAlias(t *testing.T) {
	srv, st := newTestServer(t)

	resp, body := postJSON(t, srv.URL+"/api/agents/kevin",
		`{"owner_id":"owner-1","prompt":"review the deploy","external_id":"ext-gw-1"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %v", resp.StatusCode, body)
	}
	data := body["data"].(map[string]any)
	if data["response"] != "on it" {
		t.Fatalf("unexpected response: %v", data)
	}

	task, err := st.GetTaskByExternalID("ext-gw-1")
	if err != nil || task == nil {
		t.Fatalf("task not recorded: %v", err)
	}
	if task.AgentName != registry.Engineer {
		t.Fatalf("alias not resolved to engineer: %s", task.AgentName)
	}
}

func TestAgentEndpointUnknownAgent(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := postJSON(t, srv.URL+"/api/agents/nobody", `{"owner_id":"o","prompt":"hi"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestAgentEndpointValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := postJSON(t, srv.URL+"/api/agents/kevin", `{"prompt":"no owner"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestMultiAgentEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := postJSON(t, srv.URL+"/api/multi-agent",
		`{"owner_id":"owner-1","prompt":"@alex ask @kevin is this possible?"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %v", resp.StatusCode, body)
	}
	data := body["data"].(map[string]any)
	agents, _ := data["agents_involved"].([]any)
	if len(agents) != 2 || agents[0] != registry.ProductManager || agents[1] != registry.Engineer {
		t.Fatalf("unexpected agents_involved: %v", agents)
	}
	if !strings.Contains(data["response"].(string), "**Alex** asked **Kevin**") {
		t.Fatalf("unexpected synthesis response: %v", data["response"])
	}
}

func TestMultiAgentEndpointNeedsTwoMentions(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := postJSON(t, srv.URL+"/api/multi-agent",
		`{"owner_id":"owner-1","prompt":"@kevin can you check this?"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for single mention, got %d: %v", resp.StatusCode, body)
	}
}

func TestConversationLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	// Create.
	resp, body := postJSON(t, srv.URL+"/api/conversations",
		`{"owner_id":"owner-1","title":"Planning","agent_type":"sophia"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d: %v", resp.StatusCode, body)
	}
	conv := body["data"].(map[string]any)
	convID := conv["id"].(string)
	if !strings.HasPrefix(convID, "personal_assistant_owner-1_") {
		t.Fatalf("unexpected conversation id: %s", convID)
	}

	// Chat into it.
	resp, _ = postJSON(t, srv.URL+"/api/agents/sophia",
		`{"owner_id":"owner-1","prompt":"plan my week","conversation_id":"`+convID+`"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat status %d", resp.StatusCode)
	}

	// Messages list shows both turns.
	resp, body = getJSON(t, srv.URL+"/api/conversations/owner-1/"+convID+"/messages")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("messages status %d", resp.StatusCode)
	}
	if msgs := body["data"].([]any); len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}

	// Summary counts them.
	_, body = getJSON(t, srv.URL+"/api/conversations/owner-1/"+convID+"/summary")
	summary := body["data"].(map[string]any)
	if summary["message_count"].(float64) != 2 {
		t.Fatalf("unexpected summary: %v", summary)
	}

	// Another owner cannot read it.
	resp, _ = getJSON(t, srv.URL+"/api/conversations/owner-2/"+convID+"/messages")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign owner, got %d", resp.StatusCode)
	}

	// Rename.
	req, _ := http.NewRequest(http.MethodPatch,
		srv.URL+"/api/conversations/owner-1/"+convID+"/title", strings.NewReader(`{"title":"Week plan"}`))
	req.Header.Set("Content-Type", "application/json")
	renameResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	renameResp.Body.Close()
	if renameResp.StatusCode != http.StatusOK {
		t.Fatalf("rename status %d", renameResp.StatusCode)
	}

	// Clear.
	req, _ = http.NewRequest(http.MethodDelete,
		srv.URL+"/api/conversations/owner-1/"+convID+"/messages", nil)
	clearResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	clearResp.Body.Close()
	if clearResp.StatusCode != http.StatusOK {
		t.Fatalf("clear status %d", clearResp.StatusCode)
	}
	_, body = getJSON(t, srv.URL+"/api/conversations/owner-1/"+convID+"/messages")
	if msgs, _ := body["data"].([]any); len(msgs) != 0 {
		t.Fatalf("expected cleared conversation, got %d messages", len(msgs))
	}
}

func TestTasksEndpointFilters(t *testing.T) {
	srv, _ := newTestServer(t)

	postJSON(t, srv.URL+"/api/agents/kevin", `{"owner_id":"owner-1","prompt":"one"}`)
	postJSON(t, srv.URL+"/api/agents/marcus", `{"owner_id":"owner-1","prompt":"two"}`)

	_, body := getJSON(t, srv.URL+"/api/tasks/owner-1?agent=engineer")
	tasks := body["data"].([]any)
	if len(tasks) != 1 {
		t.Fatalf("expected 1 engineer task, got %d", len(tasks))
	}
}
