package schema

import (
	"strconv"
	"time"
)

// WorkflowID identifies a workflow on the server. Tabs are keyed by it.
type WorkflowID int64

// String renders the id in decimal form.
func (id WorkflowID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ExecutionID identifies one execution of a workflow.
type ExecutionID int64

// NodeID identifies a node within a workflow definition.
type NodeID string

// EdgeID identifies an edge within a workflow definition.
type EdgeID string

// Tab is an open editing session bound to one workflow.
type Tab struct {
	ID   WorkflowID `json:"id"`
	Name string     `json:"name"`
}

// Workflow is the server-owned workflow entity.
type Workflow struct {
	ID          WorkflowID  `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Definition  WorkflowDef `json:"definition"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Execution describes one run of a workflow.
type Execution struct {
	ID         ExecutionID `json:"id"`
	WorkflowID WorkflowID  `json:"workflowId"`
	Status     string      `json:"status"`
	StartedAt  *time.Time  `json:"startedAt,omitempty"`
	FinishedAt *time.Time  `json:"finishedAt,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// ExecutionLog is the per-node record of an execution.
type ExecutionLog struct {
	ID          int64       `json:"id"`
	ExecutionID ExecutionID `json:"executionId"`
	NodeID      NodeID      `json:"nodeId"`
	NodeType    NodeType    `json:"nodeType"`
	Status      string      `json:"status"`
	Input       string      `json:"input,omitempty"`
	Output      string      `json:"output,omitempty"`
	Error       string      `json:"error,omitempty"`
	ExecutedAt  time.Time   `json:"executedAt"`
}
