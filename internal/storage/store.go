// Package storage provides rule storage abstractions and implementations.
package storage

import "github.com/stubwire/stubwire/pkg/rule"

// RuleStore is the contract for rule storage backends. Implementations
// must preserve insertion order: List returns rules in the order they were
// first registered, and replacing an existing key keeps its position.
type RuleStore interface {
	// Get retrieves a rule by key. Returns nil if not found.
	Get(key string) *rule.Rule

	// Set stores a rule. An existing key is replaced in place; a new key
	// is appended at the end of the order.
	Set(r *rule.Rule)

	// Delete removes a rule by key. Returns true if deleted.
	Delete(key string) bool

	// List returns all rules in insertion order.
	List() []*rule.Rule

	// Count returns the number of stored rules.
	Count() int

	// Exists checks if a rule with the given key exists.
	Exists(key string) bool

	// Clear removes all rules.
	Clear()
}
