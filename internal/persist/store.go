package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pkt.systems/flowdeck/schema"
	"pkt.systems/pslog"
)

const (
	// KeyOpenTabs holds the JSON array of open tabs.
	KeyOpenTabs = "open_tabs"
	// KeyActiveTab holds the JSON nullable active workflow id.
	KeyActiveTab = "active_tab"
)

// ErrWriteDisabled is returned by backends that refuse writes.
var ErrWriteDisabled = errors.New("state writes disabled")

// TabStore persists the open tab list and the active tab id.
// Reads tolerate missing or corrupt values; writes never fail the caller.
type TabStore struct {
	backend Backend
	log     pslog.Logger
}

// NewTabStore wraps a backend.
func NewTabStore(backend Backend, logger pslog.Logger) *TabStore {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	return &TabStore{backend: backend, log: logger}
}

// Load returns the persisted tabs and active id. Missing or unparsable
// values read as empty.
func (s *TabStore) Load(ctx context.Context) schema.PersistedTabs {
	var out schema.PersistedTabs
	if data, ok := s.read(ctx, KeyOpenTabs); ok {
		var tabs []schema.Tab
		if err := json.Unmarshal(data, &tabs); err != nil {
			s.warn("state decode failed", KeyOpenTabs, err)
		} else {
			out.Tabs = tabs
		}
	}
	if data, ok := s.read(ctx, KeyActiveTab); ok {
		var active *schema.WorkflowID
		if err := json.Unmarshal(data, &active); err != nil {
			s.warn("state decode failed", KeyActiveTab, err)
		} else {
			out.ActiveTab = active
		}
	}
	if s.log != nil {
		s.log.Debug("state load ok", "tabs", len(out.Tabs), "active", out.ActiveTab != nil)
	}
	return out
}

// SaveTabs writes the open tab list.
func (s *TabStore) SaveTabs(ctx context.Context, tabs []schema.Tab) {
	if tabs == nil {
		tabs = []schema.Tab{}
	}
	s.write(ctx, KeyOpenTabs, tabs)
}

// SaveActive writes the active tab id; nil is stored as JSON null.
func (s *TabStore) SaveActive(ctx context.Context, active *schema.WorkflowID) {
	s.write(ctx, KeyActiveTab, active)
}

// Save writes both keys.
func (s *TabStore) Save(ctx context.Context, tabs []schema.Tab, active *schema.WorkflowID) {
	s.SaveTabs(ctx, tabs)
	s.SaveActive(ctx, active)
}

// Close releases the backend.
func (s *TabStore) Close() error {
	return s.backend.Close()
}

func (s *TabStore) read(ctx context.Context, key string) ([]byte, bool) {
	data, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.warn("state load failed", key, err)
		return nil, false
	}
	return data, ok
}

func (s *TabStore) write(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		s.warn("state save failed", key, err)
		return
	}
	if err := s.backend.Set(ctx, key, data); err != nil {
		s.warn("state save failed", key, fmt.Errorf("%w: %w", schema.ErrPersistence, err))
	}
}

func (s *TabStore) warn(msg, key string, err error) {
	if s.log != nil {
		s.log.Warn(msg, "key", key, "err", err)
	}
}
