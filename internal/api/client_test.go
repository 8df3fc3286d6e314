package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"pkt.systems/flowdeck/schema"
)

type recordedRequest struct {
	method    string
	path      string
	body      string
	requestID string
	accept    string
}

type fakeServer struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(w http.ResponseWriter, r *http.Request)
}

func newFakeServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*fakeServer, *Client) {
	t.Helper()
	fs := &fakeServer{handler: handler}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		fs.mu.Lock()
		fs.requests = append(fs.requests, recordedRequest{
			method:    r.Method,
			path:      r.URL.Path,
			body:      string(data),
			requestID: r.Header.Get("X-Request-Id"),
			accept:    r.Header.Get("Accept"),
		})
		fs.mu.Unlock()
		fs.handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return fs, New(srv.URL + "/api/")
}

func (fs *fakeServer) last() recordedRequest {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.requests[len(fs.requests)-1]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestGetWorkflowDecodesDefinition(t *testing.T) {
	fs, client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":12,"name":"billing","description":"nightly","definition":{"nodes":[{"id":"n1","type":"start","label":"Start","positionX":10,"positionY":20}],"edges":[{"id":"e1","source":"n1","target":"n2"}]},"createdAt":"2025-01-02T03:04:05Z","updatedAt":"2025-01-02T03:04:05Z"}`)
	})
	wf, err := client.GetWorkflow(context.Background(), 12)
	if err != nil {
		t.Fatalf("GetWorkflow: %v", err)
	}
	if wf.ID != 12 || wf.Name != "billing" || wf.Description != "nightly" {
		t.Fatalf("unexpected workflow: %+v", wf)
	}
	if len(wf.Definition.Nodes) != 1 || wf.Definition.Nodes[0].PositionX != 10 || wf.Definition.Nodes[0].PositionY != 20 {
		t.Fatalf("unexpected nodes: %+v", wf.Definition.Nodes)
	}
	if len(wf.Definition.Edges) != 1 || wf.Definition.Edges[0].Target != "n2" {
		t.Fatalf("unexpected edges: %+v", wf.Definition.Edges)
	}
	req := fs.last()
	if req.method != http.MethodGet || req.path != "/api/workflows/12" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.requestID == "" {
		t.Fatalf("expected request id header")
	}
}

func TestUpdateWorkflowSendsBody(t *testing.T) {
	fs, client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, schema.Workflow{ID: 3, Name: "renamed"})
	})
	req := schema.UpdateWorkflowRequest{
		Name: "renamed",
		Definition: schema.WorkflowDef{
			Nodes: []schema.NodeDef{{ID: "a", Type: "log", Label: "Log", PositionX: 1, PositionY: 2}},
			Edges: []schema.EdgeDef{},
		},
	}
	wf, err := client.UpdateWorkflow(context.Background(), 3, req)
	if err != nil {
		t.Fatalf("UpdateWorkflow: %v", err)
	}
	if wf.Name != "renamed" {
		t.Fatalf("unexpected response: %+v", wf)
	}
	got := fs.last()
	if got.method != http.MethodPut || got.path != "/api/workflows/3" {
		t.Fatalf("unexpected request: %+v", got)
	}
	var sent schema.UpdateWorkflowRequest
	if err := json.Unmarshal([]byte(got.body), &sent); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if sent.Name != "renamed" || len(sent.Definition.Nodes) != 1 || sent.Definition.Nodes[0].Type != "log" {
		t.Fatalf("unexpected body: %s", got.body)
	}
}

func TestNonSuccessStatusReturnsAPIError(t *testing.T) {
	_, client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workflow not found"})
	})
	_, err := client.GetWorkflow(context.Background(), 99)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, schema.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	var apiErr *schema.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Message != "workflow not found" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
	if !IsNotFound(err) {
		t.Fatalf("expected IsNotFound")
	}
}

func TestPlainTextErrorBody(t *testing.T) {
	_, client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database is locked", http.StatusInternalServerError)
	})
	err := client.DeleteWorkflow(context.Background(), 5)
	var apiErr *schema.APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "database is locked" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()
	_, err := New(url).ListWorkflows(context.Background())
	if !errors.Is(err, schema.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestExecuteAndHistoryEndpoints(t *testing.T) {
	fs, client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/workflows/4/execute":
			writeJSON(w, http.StatusAccepted, schema.Execution{ID: 50, WorkflowID: 4, Status: "running"})
		case r.URL.Path == "/api/workflows/4/executions":
			writeJSON(w, http.StatusOK, []schema.Execution{{ID: 50, WorkflowID: 4, Status: "success"}})
		case r.URL.Path == "/api/executions/50/logs":
			writeJSON(w, http.StatusOK, []schema.ExecutionLog{{ID: 1, ExecutionID: 50, NodeID: "n1", Status: "success"}})
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	})
	ctx := context.Background()
	exec, err := client.ExecuteWorkflow(ctx, 4)
	if err != nil || exec.ID != 50 {
		t.Fatalf("ExecuteWorkflow: %+v %v", exec, err)
	}
	execs, err := client.ListExecutions(ctx, 4)
	if err != nil || len(execs) != 1 || execs[0].Status != "success" {
		t.Fatalf("ListExecutions: %+v %v", execs, err)
	}
	logs, err := client.ExecutionLogs(ctx, 50)
	if err != nil || len(logs) != 1 || logs[0].NodeID != "n1" {
		t.Fatalf("ExecutionLogs: %+v %v", logs, err)
	}
	if got := len(fs.requests); got != 3 {
		t.Fatalf("expected 3 requests, got %d", got)
	}
}

func TestImportWorkflowPostsDocumentVerbatim(t *testing.T) {
	fs, client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, schema.Workflow{ID: 8, Name: "imported"})
	})
	doc := json.RawMessage(`{"name":"imported","definition":{"nodes":[],"edges":[]}}`)
	wf, err := client.ImportWorkflow(context.Background(), schema.ImportWorkflowRequest{Document: doc})
	if err != nil || wf.ID != 8 {
		t.Fatalf("ImportWorkflow: %+v %v", wf, err)
	}
	if got := fs.last(); got.path != "/api/workflows/import" || got.body != string(doc) {
		t.Fatalf("unexpected request: %+v", got)
	}
	if _, err := client.ImportWorkflow(context.Background(), schema.ImportWorkflowRequest{Document: json.RawMessage("{oops")}); !errors.Is(err, schema.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

func TestOpenDebugRunRequestsEventStream(t *testing.T) {
	fs, client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"event\":\"started\"}\n")
	})
	resp, err := client.OpenDebugRun(context.Background(), 6)
	if err != nil {
		t.Fatalf("OpenDebugRun: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.HasPrefix(string(body), "data: ") {
		t.Fatalf("unexpected body: %q", body)
	}
	got := fs.last()
	if got.method != http.MethodPost || got.path != "/api/workflows/6/execute/debug" || got.accept != "text/event-stream" {
		t.Fatalf("unexpected request: %+v", got)
	}
}

func TestNewDefaultsBaseURL(t *testing.T) {
	if got := New("  ").BaseURL(); got != DefaultBaseURL {
		t.Fatalf("unexpected base url %q", got)
	}
	if got := New("http://example.test/api/", WithTracing(true)).BaseURL(); got != "http://example.test/api" {
		t.Fatalf("unexpected base url %q", got)
	}
}

func TestExportWorkflowReturnsRawDocument(t *testing.T) {
	const doc = `{"name":"Alpha","definition":{"nodes":[],"edges":[]},"version":2}`
	fs, client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, doc)
	})
	got, err := client.ExportWorkflow(context.Background(), 3)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if string(got) != doc {
		t.Fatalf("expected raw document, got %s", got)
	}
	if req := fs.last(); req.method != http.MethodGet || req.path != "/api/workflows/3/export" {
		t.Fatalf("unexpected request %s %s", req.method, req.path)
	}
}
