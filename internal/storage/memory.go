package storage

import (
	"sync"

	"github.com/stubwire/stubwire/pkg/rule"
)

// OrderedRuleStore is a thread-safe in-memory RuleStore that preserves
// insertion order. Replacing an existing key keeps the original position;
// new keys append.
type OrderedRuleStore struct {
	mu    sync.RWMutex
	rules map[string]*rule.Rule
	order []string
}

// NewOrderedRuleStore creates an empty OrderedRuleStore.
func NewOrderedRuleStore() *OrderedRuleStore {
	return &OrderedRuleStore{
		rules: make(map[string]*rule.Rule),
	}
}

// Get retrieves a rule by key. Returns nil if not found.
func (s *OrderedRuleStore) Get(key string) *rule.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules[key]
}

// Set stores or replaces a rule. The swap is atomic with respect to
// concurrent lookups: readers see either the old or the new rule, never a
// partial update.
func (s *OrderedRuleStore) Set(r *rule.Rule) {
	if r == nil || r.Key == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rules[r.Key]; !exists {
		s.order = append(s.order, r.Key)
	}
	s.rules[r.Key] = r
}

// Delete removes a rule by key. Returns true if deleted.
func (s *OrderedRuleStore) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rules[key]; !exists {
		return false
	}
	delete(s.rules, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns all rules in insertion order.
func (s *OrderedRuleStore) List() []*rule.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*rule.Rule, 0, len(s.order))
	for _, key := range s.order {
		result = append(result, s.rules[key])
	}
	return result
}

// Count returns the number of stored rules.
func (s *OrderedRuleStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules)
}

// Exists checks if a rule with the given key exists.
func (s *OrderedRuleStore) Exists(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.rules[key]
	return exists
}

// Clear removes all rules.
func (s *OrderedRuleStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = make(map[string]*rule.Rule)
	s.order = nil
}

// Ensure OrderedRuleStore implements RuleStore.
var _ RuleStore = (*OrderedRuleStore)(nil)
