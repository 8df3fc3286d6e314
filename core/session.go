package core

import (
	"context"
	"sync"

	"pkt.systems/flowdeck/internal/logx"
	"pkt.systems/flowdeck/schema"
	"pkt.systems/pslog"
)

// Session is the multi-tab editor session. It is safe for concurrent use;
// repository calls never run while the session lock is held.
type Session struct {
	cfg           schema.SessionConfig
	repo          Repository
	store         TabStore
	sink          EventSink
	metrics       Metrics
	streamMetrics StreamObserver
	logger        pslog.Logger

	persistMu sync.Mutex

	mu        sync.Mutex
	tabs      []*tab
	active    schema.WorkflowID
	workflow  *schema.Workflow
	live      schema.CanvasState
	selected  *schema.NodeID
	history   *historyCache
	workflows []schema.Workflow
	// gen changes whenever the active tab changes; results of network calls
	// started under an older generation are not applied.
	gen uint64
}

// NewSession constructs an empty session.
func NewSession(cfg schema.SessionConfig, deps SessionDeps) (*Session, error) {
	normalized, err := schema.NormalizeSessionConfig(cfg)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Session{
		cfg:           normalized,
		repo:          deps.Repository,
		store:         deps.Store,
		sink:          deps.EventSink,
		metrics:       deps.Metrics,
		streamMetrics: deps.StreamMetrics,
		logger:        logger,
		live:          emptyCanvas(),
		history:       newHistoryCache(normalized),
	}, nil
}

// Restore loads the persisted tab list and re-fetches the active workflow.
// Duplicate ids are dropped and an active id that is not open is cleared.
// A failed fetch leaves the restored tabs open and returns the error.
func (s *Session) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	state := s.store.Load(ctx)
	seen := make(map[schema.WorkflowID]struct{}, len(state.Tabs))
	tabs := make([]*tab, 0, len(state.Tabs))
	for _, persisted := range state.Tabs {
		if schema.ValidateWorkflowID(persisted.ID) != nil {
			continue
		}
		if _, ok := seen[persisted.ID]; ok {
			continue
		}
		seen[persisted.ID] = struct{}{}
		tabs = append(tabs, &tab{ID: persisted.ID, Name: persisted.Name})
	}
	var active schema.WorkflowID
	if state.ActiveTab != nil && indexOfTab(tabs, *state.ActiveTab) >= 0 {
		active = *state.ActiveTab
	}

	s.mu.Lock()
	s.tabs = tabs
	s.clearLocked()
	s.active = active
	s.mu.Unlock()

	s.logger.Info("session restored", "tabs", len(tabs), "active", int64(active))
	s.persist(ctx)
	s.setOpenTabs()
	if active == 0 {
		return nil
	}
	return s.openFetched(ctx, active, logx.WithTab(ctx, active))
}

// Snapshot returns a copy of the session for rendering.
func (s *Session) Snapshot() schema.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := schema.SessionSnapshot{
		Tabs:           s.tabListLocked(),
		ActiveTab:      s.activeRefLocked(),
		Workflow:       cloneWorkflow(s.workflow),
		Canvas:         cloneCanvas(s.live),
		Executions:     s.history.Executions(),
		ExecutionLogs:  s.history.Logs(),
		ShowExecutions: s.history.visible,
	}
	if s.selected != nil {
		id := *s.selected
		snap.SelectedNode = &id
	}
	for _, t := range s.tabs {
		if t.loaded() {
			snap.CachedCanvasTabs = append(snap.CachedCanvasTabs, t.ID)
		}
	}
	return snap
}

// Tabs returns the open tabs in display order.
func (s *Session) Tabs() []schema.Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tabListLocked()
}

// ActiveTab reports the active workflow id, if any.
func (s *Session) ActiveTab() (schema.WorkflowID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.active != 0
}

func (s *Session) repository() (Repository, error) {
	if s.repo == nil {
		return nil, schema.ErrRepositoryUnavailable
	}
	return s.repo, nil
}

func (s *Session) findLocked(id schema.WorkflowID) *tab {
	if i := indexOfTab(s.tabs, id); i >= 0 {
		return s.tabs[i]
	}
	return nil
}

// flushLocked stores the live canvas under the currently active id. It must
// run before the active id is reassigned.
func (s *Session) flushLocked() {
	if s.active == 0 {
		return
	}
	t := s.findLocked(s.active)
	if !t.loaded() {
		return
	}
	t.store(s.live)
}

func (s *Session) activateLocked(t *tab) {
	s.active = t.ID
	if t.canvas != nil {
		s.live = cloneCanvas(*t.canvas)
	} else {
		s.live = emptyCanvas()
	}
	s.workflow = cloneWorkflow(t.meta)
	s.selected = nil
	s.history.reset()
	s.gen++
}

func (s *Session) clearLocked() {
	s.active = 0
	s.workflow = nil
	s.live = emptyCanvas()
	s.selected = nil
	s.history.reset()
	s.gen++
}

func (s *Session) tabListLocked() []schema.Tab {
	out := make([]schema.Tab, 0, len(s.tabs))
	for _, t := range s.tabs {
		out = append(out, t.Snapshot())
	}
	return out
}

func (s *Session) activeRefLocked() *schema.WorkflowID {
	if s.active == 0 {
		return nil
	}
	id := s.active
	return &id
}

func (s *Session) tabEventLocked(kind schema.TabEventType, t schema.Tab) schema.TabEvent {
	return schema.TabEvent{Type: kind, Tab: t, ActiveTab: s.activeRefLocked()}
}

// persist writes the latest tab list. Writes are serialized so an older
// snapshot never overwrites a newer one.
func (s *Session) persist(ctx context.Context) {
	if s.store == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	s.mu.Lock()
	tabs := s.tabListLocked()
	active := s.activeRefLocked()
	s.mu.Unlock()
	s.store.Save(ctx, tabs, active)
}

func (s *Session) emit(events ...schema.TabEvent) {
	if s.sink == nil {
		return
	}
	for _, event := range events {
		s.sink.OnTabEvent(event)
	}
}

func (s *Session) observe(op string, err error) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(op, err)
	}
}

func (s *Session) setOpenTabs() {
	if s.metrics == nil {
		return
	}
	s.mu.Lock()
	n := len(s.tabs)
	s.mu.Unlock()
	s.metrics.SetOpenTabs(n)
}

func emptyCanvas() schema.CanvasState {
	return schema.CanvasState{Nodes: []schema.Node{}, Edges: []schema.Edge{}}
}
