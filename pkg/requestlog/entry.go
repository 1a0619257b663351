// Package requestlog provides the diagnostics records emitted for every
// match-and-respond cycle, plus sinks to collect and render them.
package requestlog

import (
	"time"

	"github.com/stubwire/stubwire/pkg/rule"
)

// Entry captures one synthesized transaction: the intercepted request,
// the response built for it, and a snapshot of the rule that matched.
type Entry struct {
	// ID is a unique identifier for the log entry.
	ID string `json:"id"`

	// Timestamp is when the request entered the engine.
	Timestamp time.Time `json:"timestamp"`

	// Method and URL describe the intercepted request.
	Method string `json:"method"`
	URL    string `json:"url"`

	// RequestHeaders are the request headers as supplied by the caller.
	RequestHeaders map[string]string `json:"requestHeaders,omitempty"`

	// RequestBody is the request payload, truncated if oversized.
	RequestBody string `json:"requestBody,omitempty"`

	// Status and StatusText describe the synthesized response.
	Status     int    `json:"status"`
	StatusText string `json:"statusText,omitempty"`

	// ResponseHeaders are the merged response headers, marker included.
	ResponseHeaders map[string]string `json:"responseHeaders,omitempty"`

	// ResponseBody is the synthesized payload, truncated if oversized.
	ResponseBody string `json:"responseBody,omitempty"`

	// DurationMs is the full cycle time including the configured delay.
	DurationMs int `json:"durationMs"`

	// RuleKey is the key of the matched rule.
	RuleKey string `json:"ruleKey"`

	// Rule is the matched-rule snapshot at response time.
	Rule *RuleSnapshot `json:"rule,omitempty"`
}

// RuleSnapshot is the matched rule's state at response time. Verbose sinks
// render every field; minimal sinks reduce it to URL, Method, DelayMs,
// Times, Status and Disable.
type RuleSnapshot struct {
	Key     string            `json:"key"`
	URL     string            `json:"url"`
	URLKind string            `json:"urlKind,omitempty"`
	Method  string            `json:"method"`
	Status  int               `json:"status"`
	Header  map[string]string `json:"header,omitempty"`
	DelayMs int               `json:"delayMs"`

	// Times is the remaining uses after this response, nil for unbounded.
	Times *int `json:"times,omitempty"`

	Disable bool `json:"disable"`

	// When is the rule's condition source, verbose only.
	When string `json:"when,omitempty"`
}

// Snapshot builds a RuleSnapshot from a rule copy.
func Snapshot(r *rule.Rule) *RuleSnapshot {
	if r == nil {
		return nil
	}
	s := &RuleSnapshot{
		Key:     r.Key,
		URL:     r.URLSource,
		URLKind: string(r.URLKind),
		Method:  r.Method,
		Status:  r.Status,
		Header:  r.Header,
		DelayMs: int(r.Delay.Milliseconds()),
		Disable: r.Disable,
		When:    r.WhenSource,
	}
	if r.Times != nil {
		t := *r.Times
		s.Times = &t
	}
	return s
}
