package core

import (
	"context"
	"fmt"
	"strings"

	"pkt.systems/flowdeck/internal/logx"
	"pkt.systems/flowdeck/schema"
	"pkt.systems/pslog"
)

// OpenWorkflow makes the workflow the active tab, fetching it when it is not
// already cached. A failed fetch leaves the session untouched.
func (s *Session) OpenWorkflow(ctx context.Context, id schema.WorkflowID) error {
	if err := schema.ValidateWorkflowID(id); err != nil {
		return err
	}
	log := logx.WithTab(ctx, id)

	s.mu.Lock()
	if s.active == id && s.findLocked(id).loaded() {
		s.mu.Unlock()
		log.Debug("session workflow open skipped", "reason", "already active")
		return nil
	}
	if s.findLocked(id).loaded() {
		s.mu.Unlock()
		return s.SwitchTab(ctx, id)
	}
	s.mu.Unlock()
	return s.openFetched(ctx, id, log)
}

// openFetched fetches a workflow and commits it as the active tab.
func (s *Session) openFetched(ctx context.Context, id schema.WorkflowID, log pslog.Logger) error {
	repo, err := s.repository()
	if err != nil {
		return err
	}
	log.Info("session workflow open start")
	wf, err := repo.GetWorkflow(ctx, id)
	if err != nil {
		log.Warn("session workflow open failed", "err", err)
		s.observe("open", err)
		return err
	}
	wf.ID = id
	canvas := canvasFromDefinition(wf.Definition)

	s.mu.Lock()
	s.flushLocked()
	t := s.findLocked(id)
	opened := t == nil
	if opened {
		t = &tab{ID: id}
		s.tabs = append(s.tabs, t)
	}
	t.Name = wf.Name
	t.meta = cloneWorkflow(&wf)
	t.store(canvas)
	s.activateLocked(t)
	events := make([]schema.TabEvent, 0, 2)
	if opened {
		events = append(events, s.tabEventLocked(schema.TabEventOpened, t.Snapshot()))
	}
	events = append(events, s.tabEventLocked(schema.TabEventActivated, t.Snapshot()))
	s.mu.Unlock()

	s.emit(events...)
	s.persist(ctx)
	s.setOpenTabs()
	s.observe("open", nil)
	logx.WithWorkflow(log, &wf).Info("session workflow opened", "new_tab", opened)
	return nil
}

// SwitchTab activates an open tab. Unknown ids are ignored. The cached canvas
// is restored before any network call; workflow metadata is refreshed
// afterwards and applied only if the tab is still active.
func (s *Session) SwitchTab(ctx context.Context, id schema.WorkflowID) error {
	log := logx.WithTab(ctx, id)

	s.mu.Lock()
	t := s.findLocked(id)
	if t == nil {
		s.mu.Unlock()
		log.Debug("session tab switch ignored", "reason", "not open")
		return nil
	}
	if s.active == id && t.loaded() {
		s.mu.Unlock()
		return nil
	}
	if !t.loaded() {
		s.mu.Unlock()
		return s.openFetched(ctx, id, log)
	}
	s.flushLocked()
	s.activateLocked(t)
	gen := s.gen
	event := s.tabEventLocked(schema.TabEventActivated, t.Snapshot())
	s.mu.Unlock()

	s.emit(event)
	s.persist(ctx)
	s.observe("switch", nil)
	log.Info("session tab switched")
	s.refreshActive(ctx, id, gen, log)
	return nil
}

// refreshActive re-reads workflow metadata for the tab that was active at
// generation gen. Failures are logged only.
func (s *Session) refreshActive(ctx context.Context, id schema.WorkflowID, gen uint64, log pslog.Logger) {
	repo, err := s.repository()
	if err != nil {
		return
	}
	wf, err := repo.GetWorkflow(ctx, id)
	if err != nil {
		log.Warn("session workflow refresh failed", "err", err)
		return
	}
	wf.ID = id

	s.mu.Lock()
	if s.gen != gen || s.active != id {
		s.mu.Unlock()
		log.Debug("session workflow refresh discarded", "reason", "tab changed")
		return
	}
	t := s.findLocked(id)
	if t == nil {
		s.mu.Unlock()
		return
	}
	t.meta = cloneWorkflow(&wf)
	s.workflow = cloneWorkflow(&wf)
	if !t.loaded() {
		canvas := canvasFromDefinition(wf.Definition)
		t.store(canvas)
		s.live = canvas
	}
	renamed := wf.Name != "" && wf.Name != t.Name
	if renamed {
		t.Name = wf.Name
	}
	s.mu.Unlock()

	if renamed {
		s.persist(ctx)
	}
	log.Debug("session workflow refreshed")
}

// CloseTab removes a tab and its cached canvas. When the active tab closes
// the tab now at its index (or the new last tab) becomes active; closing the
// last tab empties the session.
func (s *Session) CloseTab(ctx context.Context, id schema.WorkflowID) error {
	log := logx.WithTab(ctx, id)

	s.mu.Lock()
	idx := indexOfTab(s.tabs, id)
	if idx < 0 {
		s.mu.Unlock()
		log.Debug("session tab close ignored", "reason", "not open")
		return nil
	}
	closed := s.tabs[idx]
	wasActive := s.active == id
	if !wasActive {
		s.flushLocked()
	}
	s.tabs = removeTab(s.tabs, id)
	closed.canvas = nil
	closed.meta = nil

	var next *tab
	events := make([]schema.TabEvent, 0, 2)
	if wasActive {
		if len(s.tabs) > 0 {
			next = s.tabs[min(idx, len(s.tabs)-1)]
			s.activateLocked(next)
		} else {
			s.clearLocked()
		}
	}
	events = append(events, s.tabEventLocked(schema.TabEventClosed, closed.Snapshot()))
	switch {
	case next != nil:
		events = append(events, s.tabEventLocked(schema.TabEventActivated, next.Snapshot()))
	case wasActive:
		events = append(events, s.tabEventLocked(schema.TabEventCleared, closed.Snapshot()))
	}
	gen := s.gen
	s.mu.Unlock()

	s.emit(events...)
	s.persist(ctx)
	s.setOpenTabs()
	s.observe("close", nil)
	log.Info("session tab closed", "was_active", wasActive)
	if next != nil {
		s.refreshActive(ctx, next.ID, gen, logx.WithTab(ctx, next.ID))
	}
	return nil
}

// CreateNewWorkflow stores a new empty workflow and opens it without a fetch.
func (s *Session) CreateNewWorkflow(ctx context.Context, name, description string) (schema.Workflow, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return schema.Workflow{}, fmt.Errorf("%w: workflow name is required", schema.ErrInvalidRequest)
	}
	repo, err := s.repository()
	if err != nil {
		return schema.Workflow{}, err
	}
	log := logx.Ctx(ctx)
	log.Info("session workflow create start", "name", name)
	empty := definitionFromCanvas(emptyCanvas())
	wf, err := repo.CreateWorkflow(ctx, schema.CreateWorkflowRequest{
		Name:        name,
		Description: description,
		Definition:  empty,
	})
	if err != nil {
		log.Warn("session workflow create failed", "err", err)
		s.observe("create", err)
		return schema.Workflow{}, err
	}
	if err := schema.ValidateWorkflowID(wf.ID); err != nil {
		log.Warn("session workflow create failed", "err", err)
		s.observe("create", err)
		return schema.Workflow{}, err
	}
	if wf.Name == "" {
		wf.Name = name
	}

	s.mu.Lock()
	s.flushLocked()
	t := s.findLocked(wf.ID)
	opened := t == nil
	if opened {
		t = &tab{ID: wf.ID}
		s.tabs = append(s.tabs, t)
	}
	t.Name = wf.Name
	t.meta = cloneWorkflow(&wf)
	t.store(emptyCanvas())
	s.activateLocked(t)
	s.workflows = append(s.workflows, wf)
	events := []schema.TabEvent{}
	if opened {
		events = append(events, s.tabEventLocked(schema.TabEventOpened, t.Snapshot()))
	}
	events = append(events, s.tabEventLocked(schema.TabEventActivated, t.Snapshot()))
	s.mu.Unlock()

	s.emit(events...)
	s.persist(ctx)
	s.setOpenTabs()
	s.observe("create", nil)
	logx.WithTab(ctx, wf.ID).Info("session workflow created", "name", wf.Name)
	return wf, nil
}

// SaveActiveWorkflow writes the active tab's live canvas to the workflow id
// captured at call time. A failed save leaves local edits untouched.
func (s *Session) SaveActiveWorkflow(ctx context.Context) (schema.Workflow, error) {
	_, wf, err := s.saveActive(ctx)
	return wf, err
}

func (s *Session) saveActive(ctx context.Context) (schema.WorkflowID, schema.Workflow, error) {
	repo, err := s.repository()
	if err != nil {
		return 0, schema.Workflow{}, err
	}

	s.mu.Lock()
	id := s.active
	if id == 0 {
		s.mu.Unlock()
		return 0, schema.Workflow{}, schema.ErrNoActiveTab
	}
	t := s.findLocked(id)
	if !t.loaded() {
		s.mu.Unlock()
		return id, schema.Workflow{}, schema.ErrTabNotLoaded
	}
	req := schema.UpdateWorkflowRequest{
		Name:       t.Name,
		Definition: definitionFromCanvas(s.live),
	}
	if t.meta != nil {
		if t.meta.Name != "" {
			req.Name = t.meta.Name
		}
		req.Description = t.meta.Description
	}
	saved := cloneCanvas(s.live)
	s.mu.Unlock()

	log := logx.WithTab(ctx, id)
	log.Info("session workflow save start", "nodes", len(req.Definition.Nodes), "edges", len(req.Definition.Edges))
	wf, err := repo.UpdateWorkflow(ctx, id, req)
	if err != nil {
		log.Warn("session workflow save failed", "err", err)
		s.observe("save", err)
		return id, schema.Workflow{}, err
	}
	if wf.ID == 0 {
		wf = schema.Workflow{ID: id, Name: req.Name, Description: req.Description}
	}
	wf.ID = id
	wf.Definition = req.Definition

	s.mu.Lock()
	var events []schema.TabEvent
	renamed := false
	if t := s.findLocked(id); t != nil {
		if wf.Name != "" && wf.Name != t.Name {
			t.Name = wf.Name
			renamed = true
		}
		t.meta = cloneWorkflow(&wf)
		// A tab that is no longer active already holds a newer flushed canvas.
		if s.active == id {
			s.workflow = cloneWorkflow(&wf)
			t.store(saved)
		}
		events = append(events, s.tabEventLocked(schema.TabEventSaved, t.Snapshot()))
	}
	s.mu.Unlock()

	s.emit(events...)
	if renamed {
		s.persist(ctx)
	}
	s.observe("save", nil)
	logx.WithWorkflow(log, &wf).Info("session workflow saved")
	return id, wf, nil
}
