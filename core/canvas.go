package core

import (
	"fmt"

	"pkt.systems/flowdeck/schema"
)

// canvasFromDefinition materializes a stored definition for editing.
// Edges are always drawn animated.
func canvasFromDefinition(def schema.WorkflowDef) schema.CanvasState {
	canvas := schema.CanvasState{
		Nodes: make([]schema.Node, 0, len(def.Nodes)),
		Edges: make([]schema.Edge, 0, len(def.Edges)),
	}
	for _, n := range def.Nodes {
		props := cloneProperties(n.Properties)
		if props == nil {
			props = map[string]any{}
		}
		canvas.Nodes = append(canvas.Nodes, schema.Node{
			ID:       n.ID,
			Type:     n.Type,
			Position: schema.Position{X: n.PositionX, Y: n.PositionY},
			Data:     schema.NodeData{Label: n.Label, Properties: props},
		})
	}
	for _, e := range def.Edges {
		canvas.Edges = append(canvas.Edges, schema.Edge{
			ID:           e.ID,
			Source:       e.Source,
			Target:       e.Target,
			SourceHandle: e.SourceHandle,
			TargetHandle: e.TargetHandle,
			Label:        e.Label,
			Animated:     true,
		})
	}
	return canvas
}

// definitionFromCanvas serializes a canvas into the wire format.
// Untyped nodes are written as DefaultNodeType and unlabeled nodes take
// their type tag as label.
func definitionFromCanvas(canvas schema.CanvasState) schema.WorkflowDef {
	def := schema.WorkflowDef{
		Nodes: make([]schema.NodeDef, 0, len(canvas.Nodes)),
		Edges: make([]schema.EdgeDef, 0, len(canvas.Edges)),
	}
	for _, n := range canvas.Nodes {
		label := n.Data.Label
		if label == "" {
			label = string(n.Type)
		}
		props := cloneProperties(n.Data.Properties)
		if props == nil {
			props = map[string]any{}
		}
		def.Nodes = append(def.Nodes, schema.NodeDef{
			ID:         n.ID,
			Type:       schema.NormalizeNodeType(n.Type),
			Label:      label,
			PositionX:  n.Position.X,
			PositionY:  n.Position.Y,
			Properties: props,
		})
	}
	for _, e := range canvas.Edges {
		def.Edges = append(def.Edges, schema.EdgeDef{
			ID:           e.ID,
			Source:       e.Source,
			Target:       e.Target,
			SourceHandle: e.SourceHandle,
			TargetHandle: e.TargetHandle,
			Label:        e.Label,
		})
	}
	return def
}

func cloneCanvas(canvas schema.CanvasState) schema.CanvasState {
	out := schema.CanvasState{
		Nodes: make([]schema.Node, len(canvas.Nodes)),
		Edges: append([]schema.Edge{}, canvas.Edges...),
	}
	for i, n := range canvas.Nodes {
		out.Nodes[i] = cloneNode(n)
	}
	return out
}

func cloneNode(n schema.Node) schema.Node {
	n.Data.Properties = cloneProperties(n.Data.Properties)
	return n
}

// cloneProperties copies nested maps and slices so cached canvases never
// share mutable state with the live one.
func cloneProperties(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneProperties(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

func cloneWorkflow(wf *schema.Workflow) *schema.Workflow {
	if wf == nil {
		return nil
	}
	out := *wf
	out.Definition = schema.WorkflowDef{
		Nodes: make([]schema.NodeDef, len(wf.Definition.Nodes)),
		Edges: append([]schema.EdgeDef(nil), wf.Definition.Edges...),
	}
	for i, n := range wf.Definition.Nodes {
		n.Properties = cloneProperties(n.Properties)
		out.Definition.Nodes[i] = n
	}
	return &out
}

// mergeNodeData applies a patch to node data: "label" replaces the label,
// "properties" replaces the property bag and any other key is merged into it.
func mergeNodeData(data schema.NodeData, patch map[string]any) (schema.NodeData, error) {
	out := schema.NodeData{Label: data.Label, Properties: cloneProperties(data.Properties)}
	for k, v := range patch {
		switch k {
		case "label":
			label, ok := v.(string)
			if !ok {
				return schema.NodeData{}, fmt.Errorf("%w: label must be a string", schema.ErrInvalidRequest)
			}
			out.Label = label
		case "properties":
			props, ok := v.(map[string]any)
			if !ok && v != nil {
				return schema.NodeData{}, fmt.Errorf("%w: properties must be an object", schema.ErrInvalidRequest)
			}
			out.Properties = cloneProperties(props)
		default:
			if out.Properties == nil {
				out.Properties = map[string]any{}
			}
			out.Properties[k] = cloneValue(v)
		}
	}
	if out.Properties == nil {
		out.Properties = map[string]any{}
	}
	return out, nil
}

func edgeKey(e schema.Edge) string {
	return fmt.Sprintf("%s\x00%s\x00%s\x00%s", e.Source, e.SourceHandle, e.Target, e.TargetHandle)
}

func defaultEdgeID(e schema.Edge) schema.EdgeID {
	return schema.EdgeID(fmt.Sprintf("edge-%s%s-%s%s", e.Source, e.SourceHandle, e.Target, e.TargetHandle))
}
