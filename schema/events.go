package schema

import "time"

// DebugEventKind is the event tag of a debug stream line.
type DebugEventKind string

const (
	// DebugEventStarted opens an execution.
	DebugEventStarted DebugEventKind = "started"
	// DebugEventNode reports one executed node.
	DebugEventNode DebugEventKind = "node"
	// DebugEventFinished closes an execution.
	DebugEventFinished DebugEventKind = "finished"
)

// DebugEvent is one decoded line of a debug run stream.
type DebugEvent struct {
	ExecutionID ExecutionID    `json:"executionId"`
	Event       DebugEventKind `json:"event"`
	NodeID      NodeID         `json:"nodeId,omitempty"`
	NodeType    NodeType       `json:"nodeType,omitempty"`
	NodeLabel   string         `json:"nodeLabel,omitempty"`
	Status      string         `json:"status"`
	Input       string         `json:"input,omitempty"`
	Output      string         `json:"output,omitempty"`
	Error       string         `json:"error,omitempty"`
	ExecutedAt  time.Time      `json:"executedAt"`
}

// TabEventType describes tab lifecycle changes.
type TabEventType string

const (
	// TabEventOpened indicates a tab was added.
	TabEventOpened TabEventType = "opened"
	// TabEventClosed indicates a tab was removed.
	TabEventClosed TabEventType = "closed"
	// TabEventActivated indicates a tab became active.
	TabEventActivated TabEventType = "activated"
	// TabEventSaved indicates the tab's workflow was written to the server.
	TabEventSaved TabEventType = "saved"
	// TabEventCleared indicates the last tab closed and the session is empty.
	TabEventCleared TabEventType = "cleared"
)

// TabEvent reports a change to the tab list or active tab.
type TabEvent struct {
	Type      TabEventType
	Tab       Tab
	ActiveTab *WorkflowID
}

// DebugStreamEvent is a debug event tagged with the workflow whose run produced it.
type DebugStreamEvent struct {
	WorkflowID WorkflowID
	Event      DebugEvent
}
