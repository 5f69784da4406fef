package toast

import "sync"

// SeenSet remembers notification ids already surfaced. An id leaves the set
// only through Reset, or through pruning once a capacity is set and the id is
// no longer part of the observed collection.
type SeenSet struct {
	mu       sync.Mutex
	capacity int
	ids      map[int64]struct{}
	order    []int64
}

// NewSeenSet builds a set. capacity 0 means unbounded.
func NewSeenSet(capacity int) *SeenSet {
	if capacity < 0 {
		capacity = 0
	}
	return &SeenSet{capacity: capacity, ids: map[int64]struct{}{}}
}

// Add inserts id and reports whether it was new.
func (s *SeenSet) Add(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

func (s *SeenSet) Has(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Reset forgets every id.
func (s *SeenSet) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = map[int64]struct{}{}
	s.order = nil
}

// Prune trims the set down to capacity, oldest first, skipping ids still in
// current so they can never be toasted twice.
func (s *SeenSet) Prune(current map[int64]struct{}) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capacity == 0 || len(s.ids) <= s.capacity {
		return 0
	}
	excess := len(s.ids) - s.capacity
	kept := s.order[:0]
	removed := 0
	for _, id := range s.order {
		if removed < excess {
			if _, live := current[id]; !live {
				delete(s.ids, id)
				removed++
				continue
			}
		}
		kept = append(kept, id)
	}
	s.order = kept
	return removed
}
