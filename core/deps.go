package core

import (
	"context"
	"net/http"

	"pkt.systems/flowdeck/schema"
	"pkt.systems/pslog"
)

// Repository is the workflow server as seen by the session.
type Repository interface {
	ListWorkflows(ctx context.Context) ([]schema.Workflow, error)
	GetWorkflow(ctx context.Context, id schema.WorkflowID) (schema.Workflow, error)
	CreateWorkflow(ctx context.Context, req schema.CreateWorkflowRequest) (schema.Workflow, error)
	UpdateWorkflow(ctx context.Context, id schema.WorkflowID, req schema.UpdateWorkflowRequest) (schema.Workflow, error)
	DeleteWorkflow(ctx context.Context, id schema.WorkflowID) error
	ImportWorkflow(ctx context.Context, req schema.ImportWorkflowRequest) (schema.Workflow, error)
	ExecuteWorkflow(ctx context.Context, id schema.WorkflowID) (schema.Execution, error)
	ListExecutions(ctx context.Context, id schema.WorkflowID) ([]schema.Execution, error)
	ExecutionLogs(ctx context.Context, id schema.ExecutionID) ([]schema.ExecutionLog, error)
	OpenDebugRun(ctx context.Context, id schema.WorkflowID) (*http.Response, error)
}

// TabStore keeps the tab list and active id across restarts.
type TabStore interface {
	Load(ctx context.Context) schema.PersistedTabs
	Save(ctx context.Context, tabs []schema.Tab, active *schema.WorkflowID)
}

// Metrics receives session counters.
type Metrics interface {
	ObserveOperation(op string, err error)
	SetOpenTabs(n int)
}

// SessionDeps captures the collaborators of a Session.
type SessionDeps struct {
	Repository Repository
	Store      TabStore
	EventSink  EventSink
	Metrics    Metrics
	// StreamMetrics receives debug stream counters when set.
	StreamMetrics StreamObserver
	Logger        pslog.Logger
}
