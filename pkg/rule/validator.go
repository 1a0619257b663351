package rule

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/expr-lang/expr"
)

// ErrNoKey is reported when a spec carries no url matcher, so no stable
// key can be derived. The spec is rejected without registering anything.
var ErrNoKey = errors.New("rule: no derivable key (url matcher missing)")

// ValidationError describes why a spec was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

// validMethods are the methods a rule may declare, plus the ANY wildcard.
var validMethods = map[string]bool{
	"GET":     true,
	"POST":    true,
	"PUT":     true,
	"PATCH":   true,
	"DELETE":  true,
	"HEAD":    true,
	MethodAny: true,
}

// Normalize validates a Spec and produces an immutable Rule, or reports
// why the spec cannot enter a registry. Invalid specs never become rules.
func Normalize(spec Spec) (*Rule, error) {
	kind, source, err := urlMatcher(spec)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(strings.TrimSpace(spec.Method))
	if method == "" {
		method = MethodAny
	}
	if !validMethods[method] {
		return nil, &ValidationError{
			Field:   "method",
			Message: fmt.Sprintf("invalid method: %s", spec.Method),
		}
	}

	status := spec.Status
	if status == 0 {
		status = 200
	}
	if status < 100 || status > 599 {
		return nil, &ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("status must be in 100..599, got %d", status),
		}
	}

	if spec.DelayMs < 0 {
		return nil, &ValidationError{Field: "delayMs", Message: "delay must be >= 0"}
	}

	var times *int
	if spec.Times != nil {
		if *spec.Times < 0 {
			return nil, &ValidationError{Field: "times", Message: "times must be >= 0"}
		}
		t := *spec.Times
		times = &t
	}

	r := &Rule{
		Key:            deriveKey(method, kind, source),
		URLKind:        kind,
		URLSource:      source,
		Method:         method,
		Body:           spec.Body,
		Status:         status,
		Header:         cloneStringMap(spec.Header),
		Delay:          time.Duration(spec.DelayMs) * time.Millisecond,
		Times:          times,
		Disable:        spec.Disable,
		WhenSource:     spec.When,
		RequestHeaders: cloneStringMap(spec.RequestHeaders),
	}

	if kind == URLRegexp {
		re, err := regexp.Compile(source)
		if err != nil {
			return nil, &ValidationError{
				Field:   "urlPattern",
				Message: fmt.Sprintf("invalid regex pattern: %s", err),
			}
		}
		r.Pattern = re
	}

	if spec.When != "" {
		prog, err := expr.Compile(spec.When, expr.AsBool(), expr.AllowUndefinedVariables())
		if err != nil {
			return nil, &ValidationError{
				Field:   "when",
				Message: fmt.Sprintf("invalid condition: %s", err),
			}
		}
		r.When = prog
	}

	if len(spec.BodyJSONPath) > 0 {
		r.BodyJSONPath = make(map[string]any, len(spec.BodyJSONPath))
		for k, v := range spec.BodyJSONPath {
			r.BodyJSONPath[k] = v
		}
	}

	// Response bodies are not meaningful for HEAD.
	if method == "HEAD" {
		r.Body = nil
	}

	// Bodies are rendered at response time; a template that cannot be
	// rendered must never enter a registry.
	if err := checkRenderable(r.Body); err != nil {
		return nil, &ValidationError{
			Field:   "body",
			Message: fmt.Sprintf("body cannot be rendered: %s", err),
		}
	}

	return r, nil
}

// checkRenderable verifies a body template can produce response bytes.
// Strings and byte slices always can; everything else must be
// JSON-marshalable.
func checkRenderable(body any) error {
	switch body.(type) {
	case nil, string, []byte, json.RawMessage:
		return nil
	default:
		_, err := json.Marshal(body)
		return err
	}
}

// urlMatcher picks the single url matcher a spec declares.
func urlMatcher(spec Spec) (URLKind, string, error) {
	var (
		kind   URLKind
		source string
		count  int
	)
	if spec.URL != "" {
		kind, source = URLSubstring, spec.URL
		count++
	}
	if spec.URLPattern != "" {
		kind, source = URLRegexp, spec.URLPattern
		count++
	}
	if spec.URLGlob != "" {
		kind, source = URLGlob, spec.URLGlob
		count++
	}
	if count == 0 {
		return "", "", ErrNoKey
	}
	if count > 1 {
		return "", "", &ValidationError{
			Field:   "url",
			Message: "url, urlPattern and urlGlob are mutually exclusive",
		}
	}
	return kind, source, nil
}

// deriveKey builds the stable registry key for a rule. The kind acts as a
// salt so a substring matcher and an identical pattern text never collide.
// Match extras (When, BodyJSONPath, RequestHeaders) are deliberately left
// out: the key identifies what endpoint a rule mocks, and re-registering
// the same endpoint replaces the previous rule.
func deriveKey(method string, kind URLKind, source string) string {
	return fmt.Sprintf("%s %s:%s", method, kind, source)
}
