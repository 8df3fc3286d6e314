package schema

// NodeType tags which executor and config UI a node uses. The set is open:
// unknown tags are carried verbatim.
type NodeType string

const (
	NodeStart          NodeType = "start"
	NodeEnd            NodeType = "end"
	NodeHTTPRequest    NodeType = "http_request"
	NodeHTTPIn         NodeType = "http_in"
	NodeHTTPOut        NodeType = "http_out"
	NodeGraphQL        NodeType = "graphql"
	NodeCondition      NodeType = "condition"
	NodeSwitch         NodeType = "switch"
	NodeTransform      NodeType = "transform"
	NodeFunction       NodeType = "function"
	NodeDelay          NodeType = "delay"
	NodeLog            NodeType = "log"
	NodeCron           NodeType = "cron"
	NodeExec           NodeType = "exec"
	NodeSSH            NodeType = "ssh"
	NodeDatabase       NodeType = "database"
	NodeRedis          NodeType = "redis"
	NodeRedisSubscribe NodeType = "redis_subscribe"
	NodeEmail          NodeType = "email"
	NodeEmailReceive   NodeType = "email_receive"
	NodeReadFile       NodeType = "read_file"
	NodeWriteFile      NodeType = "write_file"
	NodeFlow           NodeType = "flow"
	NodeContinue       NodeType = "continue"
	NodeGetConfigStore NodeType = "get_config_store"
	NodeSetConfigStore NodeType = "set_config_store"
)

// DefaultNodeType is written for nodes that carry no type tag.
const DefaultNodeType = NodeStart

// Position is a canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData carries the label and the open, node-type specific property bag.
type NodeData struct {
	Label      string         `json:"label"`
	Properties map[string]any `json:"properties"`
}

// Node is a canvas node.
type Node struct {
	ID       NodeID   `json:"id"`
	Type     NodeType `json:"type"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// Edge is a canvas edge between two nodes.
type Edge struct {
	ID           EdgeID `json:"id"`
	Source       NodeID `json:"source"`
	Target       NodeID `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
	Label        string `json:"label,omitempty"`
	Animated     bool   `json:"animated,omitempty"`
}

// CanvasState is the live node/edge graph of one tab.
type CanvasState struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NodeDef is the wire form of a node inside a workflow definition.
type NodeDef struct {
	ID         NodeID         `json:"id"`
	Type       NodeType       `json:"type"`
	Label      string         `json:"label"`
	PositionX  float64        `json:"positionX"`
	PositionY  float64        `json:"positionY"`
	Properties map[string]any `json:"properties,omitempty"`
}

// EdgeDef is the wire form of an edge inside a workflow definition.
type EdgeDef struct {
	ID           EdgeID `json:"id"`
	Source       NodeID `json:"source"`
	Target       NodeID `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
	Label        string `json:"label,omitempty"`
}

// WorkflowDef is the stored graph of a workflow.
type WorkflowDef struct {
	Nodes []NodeDef `json:"nodes"`
	Edges []EdgeDef `json:"edges"`
}
