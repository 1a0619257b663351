// Package registry provides the ordered rule registry that owns rule
// lifecycle: registration, replacement, reset and the global switches.
package registry

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/stubwire/stubwire/internal/matching"
	"github.com/stubwire/stubwire/internal/storage"
	"github.com/stubwire/stubwire/pkg/logging"
	"github.com/stubwire/stubwire/pkg/rule"
)

// Registry holds the live rule set plus the global enable/disable and log
// switches. A registry is constructed explicitly and passed to whoever
// needs it; there is no process-wide instance.
//
// All state is exposed only through the registry's methods. Rules returned
// by lookups are copies, so holding one cannot bypass the registry's
// atomicity guarantees.
type Registry struct {
	mu      sync.RWMutex
	store   storage.RuleStore
	enabled bool
	logging bool
	log     *slog.Logger
}

// New creates an empty registry. Matching starts enabled and the log
// toggle starts on; neither is reset by Reset.
func New() *Registry {
	return &Registry{
		store:   storage.NewOrderedRuleStore(),
		enabled: true,
		logging: true,
		log:     logging.Nop(),
	}
}

// SetLogger sets the operational logger.
func (rg *Registry) SetLogger(log *slog.Logger) {
	rg.mu.Lock()
	defer rg.mu.Unlock()
	if log != nil {
		rg.log = log
	}
}

// Register validates and normalizes a spec and inserts the resulting rule.
// A rule whose key already exists replaces the previous one atomically,
// keeping its original insertion position. A spec with no derivable key
// fails with rule.ErrNoKey; nothing is registered.
func (rg *Registry) Register(spec rule.Spec) (*rule.Rule, error) {
	r, err := rule.Normalize(spec)
	if err != nil {
		return nil, err
	}

	rg.mu.Lock()
	defer rg.mu.Unlock()
	replaced := rg.store.Exists(r.Key)
	rg.store.Set(r)

	rg.log.Debug("rule registered",
		"key", r.Key,
		"method", r.Method,
		"replaced", replaced,
	)
	return r.Clone(), nil
}

// BulkRegister registers a full named rule set at once, e.g. one produced
// by the runtime-configuration generator. Entries are applied in lexical
// name order so the registry's insertion order is deterministic. Entries
// that fail validation are skipped and logged; the rest still register.
// The first failure is returned after the whole set has been applied.
func (rg *Registry) BulkRegister(specs map[string]rule.Spec) error {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	var firstErr error
	for _, name := range names {
		if _, err := rg.Register(specs[name]); err != nil {
			rg.log.Warn("skipping invalid rule", "name", name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Unregister removes a single rule by key. Returns false when the key is
// unknown.
func (rg *Registry) Unregister(key string) bool {
	rg.mu.Lock()
	defer rg.mu.Unlock()
	removed := rg.store.Delete(key)
	if removed {
		rg.log.Debug("rule unregistered", "key", key)
	}
	return removed
}

// Reset clears all rules. The enable/disable and log switches keep their
// current values.
func (rg *Registry) Reset() {
	rg.mu.Lock()
	defer rg.mu.Unlock()
	rg.store.Clear()
	rg.log.Info("registry reset")
}

// SetEnabled toggles the global matching switch. When disabled, matching
// is fully bypassed regardless of individual rule state.
func (rg *Registry) SetEnabled(enabled bool) {
	rg.mu.Lock()
	defer rg.mu.Unlock()
	rg.enabled = enabled
	rg.log.Info("mocking switch changed", "enabled", enabled)
}

// Enabled reports the global matching switch.
func (rg *Registry) Enabled() bool {
	rg.mu.RLock()
	defer rg.mu.RUnlock()
	return rg.enabled
}

// SetLogging toggles diagnostic logging of match/response cycles.
func (rg *Registry) SetLogging(enabled bool) {
	rg.mu.Lock()
	defer rg.mu.Unlock()
	rg.logging = enabled
	rg.log.Info("diagnostics switch changed", "enabled", enabled)
}

// LoggingEnabled reports the diagnostics switch.
func (rg *Registry) LoggingEnabled() bool {
	rg.mu.RLock()
	defer rg.mu.RUnlock()
	return rg.logging
}

// Lookup returns a copy of the rule for a key, or nil.
func (rg *Registry) Lookup(key string) *rule.Rule {
	rg.mu.RLock()
	defer rg.mu.RUnlock()
	return rg.store.Get(key).Clone()
}

// Rules returns copies of all rules in insertion order.
func (rg *Registry) Rules() []*rule.Rule {
	rg.mu.RLock()
	defer rg.mu.RUnlock()
	live := rg.store.List()
	out := make([]*rule.Rule, len(live))
	for i, r := range live {
		out[i] = r.Clone()
	}
	return out
}

// Count returns the number of registered rules.
func (rg *Registry) Count() int {
	rg.mu.RLock()
	defer rg.mu.RUnlock()
	return rg.store.Count()
}

// Match selects the rule for a url and method. A missing method defaults
// to GET. See MatchRequest for the algorithm.
func (rg *Registry) Match(url, method string) (*rule.Rule, bool) {
	return rg.MatchRequest(&rule.Request{URL: url, Method: method})
}

// MatchRequest selects the first rule, in insertion order, whose criteria
// match the request. Disabled and exhausted rules are skipped. A rule
// whose evaluation errors counts as no-match for that rule only; the pass
// continues. Returns (nil, false) when the global switch is off or no
// rule matches. The returned rule is a copy.
func (rg *Registry) MatchRequest(req *rule.Request) (*rule.Rule, bool) {
	rg.mu.RLock()
	defer rg.mu.RUnlock()

	if !rg.enabled {
		return nil, false
	}

	for _, r := range rg.store.List() {
		if r.Disable || r.Exhausted() {
			continue
		}
		switch matching.Eval(r, req) {
		case matching.Match:
			return r.Clone(), true
		case matching.EvalError:
			rg.log.Debug("rule evaluation failed, treating as no-match", "key", r.Key)
		}
	}
	return nil, false
}

// Consume claims one use of a rule. The check and decrement are a single
// serialized step: when two response cycles race for the last remaining
// use, exactly one wins. Unbounded rules always succeed. Returns false
// when the rule is gone, disabled or exhausted; the count never drops
// below zero.
func (rg *Registry) Consume(key string) bool {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	r := rg.store.Get(key)
	if r == nil || r.Disable {
		return false
	}
	if r.Times == nil {
		return true
	}
	if *r.Times <= 0 {
		return false
	}
	*r.Times--
	return true
}
