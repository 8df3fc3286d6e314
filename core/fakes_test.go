package core

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"pkt.systems/flowdeck/schema"
)

type updateCall struct {
	id  schema.WorkflowID
	req schema.UpdateWorkflowRequest
}

type fakeRepo struct {
	mu         sync.Mutex
	nextID     schema.WorkflowID
	workflows  map[schema.WorkflowID]schema.Workflow
	getErr     map[schema.WorkflowID]error
	getCalls   map[schema.WorkflowID]int
	updates    []updateCall
	updateErr  error
	deleted    []schema.WorkflowID
	executions map[schema.WorkflowID][]schema.Execution
	executed   []schema.WorkflowID
	debugBody  string

	// updateStarted/updateRelease pause UpdateWorkflow until the test lets it finish.
	updateStarted chan schema.WorkflowID
	updateRelease chan struct{}
	// listStarted/listRelease pause ListExecutions.
	listStarted chan schema.WorkflowID
	listRelease chan struct{}
}

func newFakeRepo(workflows ...schema.Workflow) *fakeRepo {
	r := &fakeRepo{
		nextID:     100,
		workflows:  make(map[schema.WorkflowID]schema.Workflow),
		getErr:     make(map[schema.WorkflowID]error),
		getCalls:   make(map[schema.WorkflowID]int),
		executions: make(map[schema.WorkflowID][]schema.Execution),
	}
	for _, wf := range workflows {
		r.workflows[wf.ID] = wf
	}
	return r
}

func sampleWorkflow(id schema.WorkflowID, name string, nodeIDs ...schema.NodeID) schema.Workflow {
	def := schema.WorkflowDef{Nodes: []schema.NodeDef{}, Edges: []schema.EdgeDef{}}
	for i, nid := range nodeIDs {
		def.Nodes = append(def.Nodes, schema.NodeDef{
			ID:         nid,
			Type:       schema.NodeLog,
			Label:      strings.ToUpper(string(nid)),
			PositionX:  float64(10 * i),
			PositionY:  float64(20 * i),
			Properties: map[string]any{"message": fmt.Sprintf("hello %s", nid)},
		})
		if i > 0 {
			def.Edges = append(def.Edges, schema.EdgeDef{
				ID:     schema.EdgeID(fmt.Sprintf("e%d", i)),
				Source: nodeIDs[i-1],
				Target: nid,
			})
		}
	}
	return schema.Workflow{ID: id, Name: name, Description: name + " flow", Definition: def}
}

func (r *fakeRepo) calls(id schema.WorkflowID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getCalls[id]
}

func (r *fakeRepo) lastUpdate() (updateCall, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.updates) == 0 {
		return updateCall{}, false
	}
	return r.updates[len(r.updates)-1], true
}

func (r *fakeRepo) ListWorkflows(ctx context.Context) ([]schema.Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]schema.Workflow, 0, len(r.workflows))
	for _, wf := range r.workflows {
		out = append(out, wf)
	}
	return out, nil
}

func (r *fakeRepo) GetWorkflow(ctx context.Context, id schema.WorkflowID) (schema.Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getCalls[id]++
	if err := r.getErr[id]; err != nil {
		return schema.Workflow{}, err
	}
	wf, ok := r.workflows[id]
	if !ok {
		return schema.Workflow{}, &schema.APIError{Method: http.MethodGet, Path: fmt.Sprintf("/workflows/%d", id), StatusCode: http.StatusNotFound}
	}
	return wf, nil
}

func (r *fakeRepo) CreateWorkflow(ctx context.Context, req schema.CreateWorkflowRequest) (schema.Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	wf := schema.Workflow{ID: r.nextID, Name: req.Name, Description: req.Description, Definition: req.Definition}
	r.workflows[wf.ID] = wf
	return wf, nil
}

func (r *fakeRepo) UpdateWorkflow(ctx context.Context, id schema.WorkflowID, req schema.UpdateWorkflowRequest) (schema.Workflow, error) {
	if r.updateStarted != nil {
		r.updateStarted <- id
		<-r.updateRelease
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return schema.Workflow{}, r.updateErr
	}
	r.updates = append(r.updates, updateCall{id: id, req: req})
	wf := schema.Workflow{ID: id, Name: req.Name, Description: req.Description, Definition: req.Definition}
	r.workflows[id] = wf
	return wf, nil
}

func (r *fakeRepo) DeleteWorkflow(ctx context.Context, id schema.WorkflowID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.workflows, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakeRepo) ImportWorkflow(ctx context.Context, req schema.ImportWorkflowRequest) (schema.Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	wf := sampleWorkflow(r.nextID, "imported", "a", "b")
	r.workflows[wf.ID] = wf
	return wf, nil
}

func (r *fakeRepo) ExecuteWorkflow(ctx context.Context, id schema.WorkflowID) (schema.Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executed = append(r.executed, id)
	exec := schema.Execution{ID: schema.ExecutionID(len(r.executed)), WorkflowID: id, Status: "running"}
	r.executions[id] = append([]schema.Execution{exec}, r.executions[id]...)
	return exec, nil
}

func (r *fakeRepo) ListExecutions(ctx context.Context, id schema.WorkflowID) ([]schema.Execution, error) {
	if r.listStarted != nil {
		r.listStarted <- id
		<-r.listRelease
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]schema.Execution(nil), r.executions[id]...), nil
}

func (r *fakeRepo) ExecutionLogs(ctx context.Context, id schema.ExecutionID) ([]schema.ExecutionLog, error) {
	return []schema.ExecutionLog{{ID: 1, ExecutionID: id, NodeID: "a", Status: "success"}}, nil
}

func (r *fakeRepo) OpenDebugRun(ctx context.Context, id schema.WorkflowID) (*http.Response, error) {
	return &http.Response{
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		Body:       io.NopCloser(strings.NewReader(r.debugBody)),
	}, nil
}

type captureSink struct {
	mu     sync.Mutex
	tabs   []schema.TabEvent
	debugs []schema.DebugStreamEvent
}

func (c *captureSink) OnTabEvent(event schema.TabEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tabs = append(c.tabs, event)
}

func (c *captureSink) OnDebugEvent(event schema.DebugStreamEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.debugs = append(c.debugs, event)
}

func (c *captureSink) tabTypes() []schema.TabEventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]schema.TabEventType, 0, len(c.tabs))
	for _, ev := range c.tabs {
		out = append(out, ev.Type)
	}
	return out
}

type memoryStore struct {
	mu    sync.Mutex
	state schema.PersistedTabs
	saves int
}

func (m *memoryStore) Load(ctx context.Context) schema.PersistedTabs {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *memoryStore) Save(ctx context.Context, tabs []schema.Tab, active *schema.WorkflowID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.state = schema.PersistedTabs{Tabs: append([]schema.Tab(nil), tabs...), ActiveTab: active}
}
