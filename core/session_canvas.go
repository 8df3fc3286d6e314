package core

import (
	"fmt"
	"strings"

	"pkt.systems/flowdeck/schema"
)

// editableLocked reports whether the live canvas belongs to a loaded tab.
func (s *Session) editableLocked() error {
	if s.active == 0 {
		return schema.ErrNoActiveTab
	}
	if !s.findLocked(s.active).loaded() {
		return schema.ErrTabNotLoaded
	}
	return nil
}

// Canvas returns a deep copy of the live canvas.
func (s *Session) Canvas() schema.CanvasState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneCanvas(s.live)
}

// SetNodes replaces the nodes of the live canvas.
func (s *Session) SetNodes(nodes []schema.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	out := make([]schema.Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, cloneNode(n))
	}
	s.live.Nodes = out
	if s.selected != nil && indexOfNode(out, *s.selected) < 0 {
		s.selected = nil
	}
	return nil
}

// SetEdges replaces the edges of the live canvas.
func (s *Session) SetEdges(edges []schema.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	s.live.Edges = append([]schema.Edge{}, edges...)
	return nil
}

// AddNode appends a node to the live canvas. Node ids must be unique.
func (s *Session) AddNode(node schema.Node) error {
	if strings.TrimSpace(string(node.ID)) == "" {
		return fmt.Errorf("%w: node id is required", schema.ErrInvalidRequest)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	if indexOfNode(s.live.Nodes, node.ID) >= 0 {
		return fmt.Errorf("%w: duplicate node id %q", schema.ErrInvalidRequest, node.ID)
	}
	node = cloneNode(node)
	if node.Data.Properties == nil {
		node.Data.Properties = map[string]any{}
	}
	s.live.Nodes = append(s.live.Nodes, node)
	return nil
}

// UpdateNodeData merges patch into a node's data.
func (s *Session) UpdateNodeData(id schema.NodeID, patch map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	i := indexOfNode(s.live.Nodes, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", schema.ErrNodeNotFound, id)
	}
	data, err := mergeNodeData(s.live.Nodes[i].Data, patch)
	if err != nil {
		return err
	}
	s.live.Nodes[i].Data = data
	return nil
}

// RemoveNode deletes a node and every edge attached to it.
func (s *Session) RemoveNode(id schema.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	i := indexOfNode(s.live.Nodes, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", schema.ErrNodeNotFound, id)
	}
	s.live.Nodes = append(s.live.Nodes[:i], s.live.Nodes[i+1:]...)
	edges := s.live.Edges[:0]
	for _, e := range s.live.Edges {
		if e.Source == id || e.Target == id {
			continue
		}
		edges = append(edges, e)
	}
	s.live.Edges = edges
	if s.selected != nil && *s.selected == id {
		s.selected = nil
	}
	return nil
}

// Connect adds an animated edge between two nodes. Connecting the same
// handles twice returns the existing edge.
func (s *Session) Connect(edge schema.Edge) (schema.Edge, error) {
	if edge.Source == "" || edge.Target == "" {
		return schema.Edge{}, fmt.Errorf("%w: edge source and target are required", schema.ErrInvalidRequest)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return schema.Edge{}, err
	}
	for _, id := range []schema.NodeID{edge.Source, edge.Target} {
		if indexOfNode(s.live.Nodes, id) < 0 {
			return schema.Edge{}, fmt.Errorf("%w: %s", schema.ErrNodeNotFound, id)
		}
	}
	key := edgeKey(edge)
	for _, existing := range s.live.Edges {
		if edgeKey(existing) == key {
			return existing, nil
		}
	}
	edge.Animated = true
	if edge.ID == "" {
		edge.ID = defaultEdgeID(edge)
	}
	s.live.Edges = append(s.live.Edges, edge)
	return edge, nil
}

// SelectNode marks a node as selected; an empty id clears the selection.
func (s *Session) SelectNode(id schema.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		s.selected = nil
		return nil
	}
	if indexOfNode(s.live.Nodes, id) < 0 {
		return fmt.Errorf("%w: %s", schema.ErrNodeNotFound, id)
	}
	s.selected = &id
	return nil
}

// SelectedNode returns a copy of the selected node.
func (s *Session) SelectedNode() (schema.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return schema.Node{}, false
	}
	i := indexOfNode(s.live.Nodes, *s.selected)
	if i < 0 {
		return schema.Node{}, false
	}
	return cloneNode(s.live.Nodes[i]), true
}

func indexOfNode(nodes []schema.Node, id schema.NodeID) int {
	for i, n := range nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}
