// Package rule provides the Rule type describing a single mock: match
// criteria plus the response template returned when a request matches.
package rule

import (
	"fmt"
	"regexp"
	"time"

	"github.com/expr-lang/expr/vm"
)

// MethodAny is the method wildcard matching every request method.
const MethodAny = "ANY"

// URLKind identifies how a rule's url matcher is interpreted.
type URLKind string

const (
	// URLSubstring matches when the request URL contains the value.
	URLSubstring URLKind = "substring"
	// URLRegexp matches when the compiled pattern matches anywhere in the URL.
	URLRegexp URLKind = "regexp"
	// URLGlob matches the URL against a doublestar glob pattern.
	URLGlob URLKind = "glob"
)

// Spec is the loosely-typed registration input accepted at the boundary.
// Exactly one of URL, URLPattern, URLGlob must be set; everything else is
// optional. A Spec never enters the registry directly — Normalize turns it
// into a validated Rule or reports why it cannot.
type Spec struct {
	// URL is a plain string matched by substring containment.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// URLPattern is a regular expression matched against the full URL,
	// unanchored unless the pattern itself anchors.
	URLPattern string `json:"urlPattern,omitempty" yaml:"urlPattern,omitempty"`

	// URLGlob is a doublestar glob pattern (e.g. "/api/**").
	URLGlob string `json:"urlGlob,omitempty" yaml:"urlGlob,omitempty"`

	// Method is GET/POST/PUT/PATCH/DELETE/HEAD or ANY (default ANY).
	// Comparison is case-insensitive.
	Method string `json:"method,omitempty" yaml:"method,omitempty"`

	// Body is the response payload template. Strings and []byte are sent
	// verbatim; any other value is rendered as JSON.
	Body any `json:"body,omitempty" yaml:"body,omitempty"`

	// Status is the response status code (default 200).
	Status int `json:"status,omitempty" yaml:"status,omitempty"`

	// Header holds response headers merged into the synthesized response.
	Header map[string]string `json:"header,omitempty" yaml:"header,omitempty"`

	// DelayMs holds the response for this many milliseconds before it is
	// returned (default 0).
	DelayMs int `json:"delayMs,omitempty" yaml:"delayMs,omitempty"`

	// Times is the permitted number of uses. Nil means unbounded.
	Times *int `json:"times,omitempty" yaml:"times,omitempty"`

	// Disable skips the rule during matching without removing it.
	Disable bool `json:"disable,omitempty" yaml:"disable,omitempty"`

	// When is an optional boolean expression over the request descriptor
	// (env: url, method, header, body). Compiled at registration.
	//
	// When, BodyJSONPath and RequestHeaders do not take part in key
	// derivation: two specs sharing a url matcher and method replace each
	// other even when these extras differ.
	When string `json:"when,omitempty" yaml:"when,omitempty"`

	// BodyJSONPath maps JSONPath expressions to expected values evaluated
	// against a JSON request body. The expected value "*" checks existence.
	// Not part of the key; see When.
	BodyJSONPath map[string]any `json:"bodyJsonPath,omitempty" yaml:"bodyJsonPath,omitempty"`

	// RequestHeaders are request-header criteria. Values support simple
	// wildcard patterns (prefix*, *suffix, *contains*). Not part of the
	// key; see When.
	RequestHeaders map[string]string `json:"requestHeaders,omitempty" yaml:"requestHeaders,omitempty"`
}

// Rule is a validated, normalized mock rule. Rules are created by Normalize
// and after that mutated only through the registry (use consumption); all
// other access sees copies.
type Rule struct {
	// Key uniquely identifies the rule within a registry. Derived from the
	// url matcher and method, so re-registering the same criteria replaces
	// the previous rule.
	Key string

	// URLKind selects the url matching strategy.
	URLKind URLKind

	// URLSource is the original matcher text (substring, pattern or glob).
	URLSource string

	// Pattern is the compiled regexp when URLKind is URLRegexp.
	Pattern *regexp.Regexp

	// Method is the normalized (upper-case) method, or MethodAny.
	Method string

	Body   any
	Status int
	Header map[string]string
	Delay  time.Duration

	// Times is the remaining permitted uses; nil means unbounded.
	Times *int

	Disable bool

	// When is the compiled condition program, nil when unset.
	When *vm.Program

	// WhenSource is the original condition text, kept for diagnostics.
	WhenSource string

	BodyJSONPath   map[string]any
	RequestHeaders map[string]string
}

// Exhausted reports whether the rule's usage budget is spent.
// Unbounded rules are never exhausted.
func (r *Rule) Exhausted() bool {
	return r.Times != nil && *r.Times <= 0
}

// Clone returns a deep copy of the rule. Compiled programs are shared;
// they are immutable after compilation.
func (r *Rule) Clone() *Rule {
	if r == nil {
		return nil
	}
	c := *r
	if r.Times != nil {
		t := *r.Times
		c.Times = &t
	}
	c.Header = cloneStringMap(r.Header)
	c.RequestHeaders = cloneStringMap(r.RequestHeaders)
	if r.BodyJSONPath != nil {
		c.BodyJSONPath = make(map[string]any, len(r.BodyJSONPath))
		for k, v := range r.BodyJSONPath {
			c.BodyJSONPath[k] = v
		}
	}
	return &c
}

func (r *Rule) String() string {
	return fmt.Sprintf("rule(%s)", r.Key)
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
