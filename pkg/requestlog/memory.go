package requestlog

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore implements SubscribableStore with a bounded FIFO buffer.
type InMemoryStore struct {
	mu          sync.RWMutex
	entries     []*Entry
	maxEntries  int
	subMu       sync.RWMutex
	subscribers map[Subscriber]struct{}
}

// NewInMemoryStore creates an InMemoryStore retaining up to maxEntries
// entries (default 1000 when <= 0).
func NewInMemoryStore(maxEntries int) *InMemoryStore {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &InMemoryStore{
		entries:     make([]*Entry, 0, maxEntries),
		maxEntries:  maxEntries,
		subscribers: make(map[Subscriber]struct{}),
	}
}

// Record retains an entry, evicting the oldest when at capacity.
func (s *InMemoryStore) Record(entry *Entry) {
	if entry == nil {
		return
	}

	s.mu.Lock()
	if entry.ID == "" {
		entry.ID = "req-" + uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if len(s.entries) >= s.maxEntries {
		s.entries = s.entries[1:]
	}
	s.entries = append(s.entries, entry)
	s.mu.Unlock()

	s.subMu.RLock()
	for sub := range s.subscribers {
		select {
		case sub <- entry:
		default:
			// drop for slow subscribers
		}
	}
	s.subMu.RUnlock()
}

// Get retrieves an entry by ID, nil when unknown.
func (s *InMemoryStore) Get(id string) *Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, entry := range s.entries {
		if entry.ID == id {
			return entry
		}
	}
	return nil
}

// List returns entries newest first, optionally filtered.
func (s *InMemoryStore) List(filter *Filter) []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Entry, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		entry := s.entries[i]
		if filter != nil && !matchesFilter(entry, filter) {
			continue
		}
		result = append(result, entry)
	}

	if filter != nil {
		if filter.Offset > 0 {
			if filter.Offset >= len(result) {
				return []*Entry{}
			}
			result = result[filter.Offset:]
		}
		if filter.Limit > 0 && filter.Limit < len(result) {
			result = result[:filter.Limit]
		}
	}
	return result
}

func matchesFilter(entry *Entry, filter *Filter) bool {
	if filter.Method != "" && entry.Method != filter.Method {
		return false
	}
	if filter.URL != "" && !strings.HasPrefix(entry.URL, filter.URL) {
		return false
	}
	if filter.RuleKey != "" && entry.RuleKey != filter.RuleKey {
		return false
	}
	if filter.Status != 0 && entry.Status != filter.Status {
		return false
	}
	return true
}

// Clear removes all retained entries.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make([]*Entry, 0, s.maxEntries)
}

// Count returns the number of retained entries.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Subscribe registers for live entries. The returned function
// unsubscribes and closes the channel.
func (s *InMemoryStore) Subscribe() (Subscriber, func()) {
	ch := make(Subscriber, 100)

	s.subMu.Lock()
	s.subscribers[ch] = struct{}{}
	s.subMu.Unlock()

	unsubscribe := func() {
		s.subMu.Lock()
		delete(s.subscribers, ch)
		s.subMu.Unlock()
		close(ch)
	}
	return ch, unsubscribe
}

// Ensure InMemoryStore implements SubscribableStore.
var _ SubscribableStore = (*InMemoryStore)(nil)
