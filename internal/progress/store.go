package progress

import (
	"sort"
	"sync"
)

// Listener is notified of every accepted event. It is called with the store
// lock released but from the goroutine that produced the event.
type Listener func(Event)

type Store struct {
	mu       sync.RWMutex
	data     map[string]Event
	listener Listener
}

func NewStore(l Listener) *Store {
	return &Store{data: make(map[string]Event), listener: l}
}

// Upsert records e as the latest state of its evaluation. Invalid events and
// transitions out of a final state are ignored.
func (s *Store) Upsert(e Event) bool {
	if s == nil || e.Validate() != nil {
		return false
	}
	s.mu.Lock()
	if prev, ok := s.data[e.Key()]; ok && IsFinal(prev.State) {
		s.mu.Unlock()
		return false
	}
	s.data[e.Key()] = e
	l := s.listener
	s.mu.Unlock()

	if l != nil {
		l(e)
	}
	return true
}

// Snapshot returns all events ordered by plan, then criterion.
func (s *Store) Snapshot() []Event {
	return s.snapshot(false)
}

// SnapshotUnscored returns only evaluations that finished without a score.
func (s *Store) SnapshotUnscored() []Event {
	return s.snapshot(true)
}

func (s *Store) snapshot(unscoredOnly bool) []Event {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Event, 0, len(s.data))
	for _, e := range s.data {
		if unscoredOnly && !IsUnscored(e.State) {
			continue
		}
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Plan == result[j].Plan {
			return result[i].Criterion < result[j].Criterion
		}
		return result[i].Plan < result[j].Plan
	})
	return result
}

// Counts returns the number of evaluations per state.
func (s *Store) Counts() map[string]int {
	counts := make(map[string]int)
	if s == nil {
		return counts
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.data {
		counts[e.State]++
	}
	return counts
}
