package cache

import (
	"context"
	"sync"
	"time"

	"catalogsync/internal/model"
)

// MemoryStore keeps the report in process.
type MemoryStore struct {
	// Now is the clock used for expiry.
	Now func() time.Time

	mu      sync.Mutex
	report  *model.Report
	expires time.Time
}

// NewMemoryStore returns an empty store on the wall clock.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Now: time.Now}
}

func (m *MemoryStore) Load(_ context.Context) (*model.Report, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.report == nil {
		return nil, false, nil
	}
	if !m.now().Before(m.expires) {
		m.report = nil
		return nil, false, nil
	}

	return m.report, true, nil
}

func (m *MemoryStore) Save(_ context.Context, r *model.Report, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.report = r
	m.expires = m.now().Add(ttl)
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.report = nil
	return nil
}

func (m *MemoryStore) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}
