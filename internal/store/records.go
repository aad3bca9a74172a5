package store

import (
	"sync"

	"github.com/grantley-gardens/tribunal-cli/internal/model"
)

// RecordStore is the canonical in-memory collection of decision records,
// keyed by (source, id). It is the only shared mutable resource in a run.
// Every update replaces the whole record under the lock, so readers never
// observe a half-written record; callers exchange clones, never the stored
// pointers.
type RecordStore struct {
	mu         sync.RWMutex
	records    map[model.Key]*model.Decision
	order      []model.Key
	collisions []model.Key
}

// NewRecordStore creates an empty record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{records: make(map[model.Key]*model.Decision)}
}

// Upsert adds a discovered record in pending state. If a record with the
// same (source, id) already exists the first one wins, the collision is
// recorded for reporting, and Upsert returns false. Records are never
// deleted, only updated in place.
func (s *RecordStore) Upsert(d *model.Decision) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := d.Key()
	if _, exists := s.records[key]; exists {
		s.collisions = append(s.collisions, key)
		return false
	}

	c := d.Clone()
	if c.State == "" {
		c.State = model.StatePending
	}
	s.records[key] = c
	s.order = append(s.order, key)
	return true
}

// Get returns a clone of the record for key, if present.
func (s *RecordStore) Get(key model.Key) (*model.Decision, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.records[key]
	if !ok {
		return nil, false
	}
	return d.Clone(), true
}

// Claim transitions a pending record to in_progress and returns a clone.
// It returns false if the record is absent or not pending, so a key handed
// to two workers can only be claimed by one.
func (s *RecordStore) Claim(key model.Key) (*model.Decision, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.records[key]
	if !ok || d.State != model.StatePending {
		return nil, false
	}
	d.State = model.StateInProgress
	return d.Clone(), true
}

// Complete replaces the stored record with the worker's enriched copy and
// marks it done. The replace is atomic from any reader's point of view.
func (s *RecordStore) Complete(d *model.Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := d.Clone()
	c.State = model.StateDone
	c.FailReason = ""
	s.records[c.Key()] = c
}

// Update replaces the stored record without touching its state. Used by
// phases that fill fields on already-terminal records (fallback text,
// structured extraction).
func (s *RecordStore) Update(d *model.Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[d.Key()] = d.Clone()
}

// Fail marks the record failed with a reason. The record stays in the
// store; failures are enumerable, never dropped.
func (s *RecordStore) Fail(key model.Key, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.records[key]
	if !ok {
		return
	}
	d.State = model.StateFailed
	d.FailReason = reason
}

// PendingKeys returns the keys of all pending records in insertion order.
func (s *RecordStore) PendingKeys() []model.Key {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []model.Key
	for _, k := range s.order {
		if s.records[k].State == model.StatePending {
			keys = append(keys, k)
		}
	}
	return keys
}

// ResetTransient resets every record not marked done back to pending and
// returns how many were reset. Called after a checkpoint load (in_progress
// must not survive a reload) and between run-level retry passes.
func (s *RecordStore) ResetTransient() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, d := range s.records {
		if d.State == model.StateInProgress || d.State == model.StateFailed {
			d.State = model.StatePending
			n++
		}
	}
	return n
}

// Snapshot returns clones of all records in insertion order. The copy is
// taken under the read lock; callers may serialize it without blocking
// writers for longer than the copy itself.
func (s *RecordStore) Snapshot() []*model.Decision {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Decision, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.records[k].Clone())
	}
	return out
}

// ReplaceAll resets the store to the given records, preserving their order.
func (s *RecordStore) ReplaceAll(decisions []*model.Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[model.Key]*model.Decision, len(decisions))
	s.order = s.order[:0]
	s.collisions = nil
	for _, d := range decisions {
		key := d.Key()
		if _, exists := s.records[key]; exists {
			s.collisions = append(s.collisions, key)
			continue
		}
		s.records[key] = d.Clone()
		s.order = append(s.order, key)
	}
}

// Len returns the number of records.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Counts returns the number of records per enrichment state.
func (s *RecordStore) Counts() map[model.EnrichState]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[model.EnrichState]int)
	for _, d := range s.records {
		counts[d.State]++
	}
	return counts
}

// Collisions returns the keys that collided on Upsert or ReplaceAll.
func (s *RecordStore) Collisions() []model.Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Key(nil), s.collisions...)
}
