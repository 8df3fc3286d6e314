package core

import "pkt.systems/flowdeck/schema"

// tab tracks one open workflow. canvas is nil until the workflow has been
// materialized in this process.
type tab struct {
	ID     schema.WorkflowID
	Name   string
	meta   *schema.Workflow
	canvas *schema.CanvasState
}

func (t *tab) Snapshot() schema.Tab {
	return schema.Tab{ID: t.ID, Name: t.Name}
}

func (t *tab) loaded() bool {
	return t != nil && t.canvas != nil
}

func (t *tab) store(canvas schema.CanvasState) {
	c := cloneCanvas(canvas)
	t.canvas = &c
}

func indexOfTab(tabs []*tab, id schema.WorkflowID) int {
	for i, t := range tabs {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func removeTab(tabs []*tab, id schema.WorkflowID) []*tab {
	for i, current := range tabs {
		if current.ID == id {
			return append(tabs[:i], tabs[i+1:]...)
		}
	}
	return tabs
}
