package store

import (
	"sync"
	"time"

	"github.com/dchernopolskiy/Flare-sub001/internal/model"
)

// MemoryStore is an in-memory Store used for dry runs and tests. It applies
// the same retention semantics as the SQLite store.
type MemoryStore struct {
	mu       sync.Mutex
	jobs     []model.Job
	tracking map[string]map[string]time.Time
	boards   []model.Board
	starred  map[string]bool
	applied  map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tracking: make(map[string]map[string]time.Time),
		starred:  make(map[string]bool),
		applied:  make(map[string]bool),
	}
}

func (s *MemoryStore) LoadJobs() ([]model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Job, len(s.jobs))
	copy(out, s.jobs)
	return out, nil
}

func (s *MemoryStore) SaveJobs(jobs []model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = make([]model.Job, len(jobs))
	copy(s.jobs, jobs)
	return nil
}

func (s *MemoryStore) LoadTracking(source string) (map[string]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]time.Time, len(s.tracking[source]))
	for id, t := range s.tracking[source] {
		out[id] = t
	}
	return out, nil
}

func (s *MemoryStore) SaveTracking(jobs []model.Job, source string, now time.Time, retention time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.tracking[source]
	if m == nil {
		m = make(map[string]time.Time)
		s.tracking[source] = m
	}
	for _, j := range jobs {
		if _, ok := m[j.ID]; ok {
			continue
		}
		firstSeen := j.FirstSeen
		if firstSeen.IsZero() {
			firstSeen = now
		}
		m[j.ID] = firstSeen
	}
	cutoff := now.Add(-retention)
	for id, t := range m {
		if t.Before(cutoff) {
			delete(m, id)
		}
	}
	return nil
}

func (s *MemoryStore) ClearTracking(source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tracking, source)
	return nil
}

func (s *MemoryStore) LoadBoards() ([]model.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Board, len(s.boards))
	copy(out, s.boards)
	return out, nil
}

func (s *MemoryStore) SaveBoards(boards []model.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boards = make([]model.Board, len(boards))
	copy(s.boards, boards)
	return nil
}

func (s *MemoryStore) LoadStarred() (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySet(s.starred), nil
}

func (s *MemoryStore) SaveStarred(ids map[string]bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starred = copySet(ids)
	return nil
}

func (s *MemoryStore) LoadApplied() (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySet(s.applied), nil
}

func (s *MemoryStore) SaveApplied(ids map[string]bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied = copySet(ids)
	return nil
}

func copySet(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for id, ok := range in {
		if ok {
			out[id] = true
		}
	}
	return out
}
