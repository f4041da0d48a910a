package core

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// fakeStore is an in-memory Store with failure injection.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]PersistedRecord

	failFind   map[string]error
	failCreate map[string]error
	failUpdate map[string]error
	failDelete error

	creates int
	updates int
	deletes int
}

func newFakeStore(seed ...PersistedRecord) *fakeStore {
	s := &fakeStore{
		records:    make(map[string]PersistedRecord),
		failFind:   make(map[string]error),
		failCreate: make(map[string]error),
		failUpdate: make(map[string]error),
	}
	for _, r := range seed {
		s.records[r.Key] = r
	}
	return s
}

func (s *fakeStore) FindByKey(_ context.Context, key string) (*PersistedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failFind[key]; err != nil {
		return nil, err
	}
	r, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *fakeStore) Create(_ context.Context, rec DomainRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failCreate[rec.Key]; err != nil {
		return err
	}
	if _, ok := s.records[rec.Key]; ok {
		return errors.New("duplicate key value violates unique constraint")
	}
	s.records[rec.Key] = NewPersisted(rec)
	s.creates++
	return nil
}

func (s *fakeStore) Update(_ context.Context, existing PersistedRecord, with DomainRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failUpdate[with.Key]; err != nil {
		return err
	}
	s.records[existing.Key] = Merge(existing, with)
	s.updates++
	return nil
}

func (s *fakeStore) DeleteWhereKeyNotIn(_ context.Context, keys []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deletes++
	if s.failDelete != nil {
		return 0, s.failDelete
	}
	keep := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		keep[k] = struct{}{}
	}
	var n int64
	for k := range s.records {
		if _, ok := keep[k]; !ok {
			delete(s.records, k)
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) List(_ context.Context) ([]PersistedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]PersistedRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *fakeStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.records))
	for k := range s.records {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *fakeStore) get(key string) (PersistedRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[key]
	return r, ok
}
