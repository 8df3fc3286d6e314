package schema

// SessionSnapshot is a read-only copy of the editor session for rendering.
type SessionSnapshot struct {
	Tabs             []Tab
	ActiveTab        *WorkflowID
	Workflow         *Workflow
	Canvas           CanvasState
	SelectedNode     *NodeID
	Executions       []Execution
	ExecutionLogs    []ExecutionLog
	ShowExecutions   bool
	CachedCanvasTabs []WorkflowID
}

// PersistedTabs is the durable tab bookkeeping restored on startup.
type PersistedTabs struct {
	Tabs      []Tab
	ActiveTab *WorkflowID
}
