package memory

import (
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// LongTermEntry is a fact kept across turns.
type LongTermEntry struct {
	Content   string    `json:"content"`
	Context   string    `json:"context"`
	Timestamp time.Time `json:"timestamp"`
}

// LongTermRecord is a keyed entry, used for snapshots and listings.
type LongTermRecord struct {
	Key   string        `json:"key"`
	Entry LongTermEntry `json:"entry"`
}

// LongTermStore keeps entries in insertion order so pruning can drop the
// oldest ones.
type LongTermStore struct {
	m *orderedmap.OrderedMap[string, LongTermEntry]
}

// NewLongTermStore creates an empty store.
func NewLongTermStore() *LongTermStore {
	return &LongTermStore{m: orderedmap.New[string, LongTermEntry]()}
}

// Set inserts or replaces key. Replacing keeps the original position.
func (s *LongTermStore) Set(key string, e LongTermEntry) {
	s.m.Set(key, e)
}

// Get returns the entry for key.
func (s *LongTermStore) Get(key string) (LongTermEntry, bool) {
	return s.m.Get(key)
}

// Has reports whether key is present.
func (s *LongTermStore) Has(key string) bool {
	_, ok := s.m.Get(key)
	return ok
}

// Len returns the number of entries.
func (s *LongTermStore) Len() int {
	return s.m.Len()
}

// Records returns the entries oldest first.
func (s *LongTermStore) Records() []LongTermRecord {
	out := make([]LongTermRecord, 0, s.m.Len())
	for p := s.m.Oldest(); p != nil; p = p.Next() {
		out = append(out, LongTermRecord{Key: p.Key, Entry: p.Value})
	}
	return out
}

// Prune keeps only the newest keep entries once the store holds more than
// limit. It returns how many entries were dropped.
func (s *LongTermStore) Prune(limit, keep int) int {
	if s.m.Len() <= limit {
		return 0
	}
	drop := s.m.Len() - keep
	for i := 0; i < drop; i++ {
		oldest := s.m.Oldest()
		if oldest == nil {
			return i
		}
		s.m.Delete(oldest.Key)
	}
	return drop
}

// Clear removes all entries.
func (s *LongTermStore) Clear() {
	s.m = orderedmap.New[string, LongTermEntry]()
}
