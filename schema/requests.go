package schema

import "encoding/json"

// CreateWorkflowRequest asks the server to persist a new workflow.
type CreateWorkflowRequest struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Definition  WorkflowDef `json:"definition"`
}

// UpdateWorkflowRequest replaces a workflow's metadata and definition.
type UpdateWorkflowRequest struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Definition  WorkflowDef `json:"definition"`
}

// ImportWorkflowRequest carries an exported workflow document verbatim.
type ImportWorkflowRequest struct {
	Document json.RawMessage
}
