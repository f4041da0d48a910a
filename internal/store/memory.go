package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/sheetsync/internal/core"
)

// Memory is an in-process Backend. It serves dry runs and tests.
type Memory struct {
	mu      sync.RWMutex
	records map[string]core.PersistedRecord
	now     func() time.Time
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]core.PersistedRecord),
		now:     time.Now,
	}
}

// NewMemoryFrom creates a Memory store holding recs.
func NewMemoryFrom(recs []core.PersistedRecord) *Memory {
	m := NewMemory()
	for _, r := range recs {
		m.records[r.Key] = r
	}
	return m
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

func (m *Memory) FindByKey(_ context.Context, key string) (*core.PersistedRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[key]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *Memory) Create(_ context.Context, rec core.DomainRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[rec.Key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, rec.Key)
	}
	now := m.now().UTC()
	r := core.NewPersisted(rec)
	r.CreatedAt = now
	r.UpdatedAt = now
	m.records[rec.Key] = r
	return nil
}

func (m *Memory) Update(_ context.Context, existing core.PersistedRecord, with core.DomainRecord) error {
	if !core.Changed(existing, with) {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	merged := core.Merge(existing, with)
	merged.UpdatedAt = m.now().UTC()
	m.records[existing.Key] = merged
	return nil
}

func (m *Memory) DeleteWhereKeyNotIn(_ context.Context, keys []string) (int64, error) {
	keep := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		keep[k] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for k := range m.records {
		if _, ok := keep[k]; !ok {
			delete(m.records, k)
			n++
		}
	}
	return n, nil
}

func (m *Memory) List(_ context.Context) ([]core.PersistedRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.PersistedRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
