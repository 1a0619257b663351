// Package matching provides pure request evaluation against rules.
package matching

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/expr-lang/expr"

	"github.com/stubwire/stubwire/pkg/rule"
)

// Outcome is the tri-state result of evaluating one rule against one
// request. Evaluation errors (bad pattern, failing condition program) are
// explicit rather than swallowed; callers treat them as no-match.
type Outcome int

const (
	// NoMatch means the rule's criteria did not match.
	NoMatch Outcome = iota
	// Match means every declared criterion matched.
	Match
	// EvalError means a criterion could not be evaluated. Treated as
	// no-match by the registry; never aborts the overall match pass.
	EvalError
)

// Eval evaluates a single rule against a request descriptor. It does not
// consult rule state (disable, times); the registry owns lifecycle.
func Eval(r *rule.Rule, req *rule.Request) Outcome {
	if r == nil || req == nil {
		return NoMatch
	}

	if !MatchMethod(r.Method, req.EffectiveMethod()) {
		return NoMatch
	}

	if out := matchURL(r, req.URL); out != Match {
		return out
	}

	for name, pattern := range r.RequestHeaders {
		if !MatchHeaderPattern(pattern, req.HeaderGet(name)) {
			return NoMatch
		}
	}

	if len(r.BodyJSONPath) > 0 && !MatchJSONPath(r.BodyJSONPath, req.Body) {
		return NoMatch
	}

	if r.When != nil {
		out, err := expr.Run(r.When, conditionEnv(req))
		if err != nil {
			return EvalError
		}
		matched, ok := out.(bool)
		if !ok {
			return EvalError
		}
		if !matched {
			return NoMatch
		}
	}

	return Match
}

// MatchMethod checks the rule method against the request method.
// ANY matches everything; otherwise case-insensitive equality.
func MatchMethod(expected, actual string) bool {
	if expected == rule.MethodAny {
		return true
	}
	return strings.EqualFold(expected, actual)
}

// matchURL applies the rule's url matcher to the request URL.
func matchURL(r *rule.Rule, url string) Outcome {
	switch r.URLKind {
	case rule.URLSubstring:
		if strings.Contains(url, r.URLSource) {
			return Match
		}
		return NoMatch
	case rule.URLRegexp:
		if r.Pattern == nil {
			return EvalError
		}
		if r.Pattern.MatchString(url) {
			return Match
		}
		return NoMatch
	case rule.URLGlob:
		ok, err := doublestar.Match(r.URLSource, url)
		if err != nil {
			return EvalError
		}
		if ok {
			return Match
		}
		return NoMatch
	default:
		return EvalError
	}
}

// conditionEnv builds the environment a rule condition runs against.
// Header names are lower-cased so conditions don't depend on caller casing.
func conditionEnv(req *rule.Request) map[string]any {
	header := make(map[string]string, len(req.Header))
	for k, v := range req.Header {
		header[strings.ToLower(k)] = v
	}
	return map[string]any{
		"url":    req.URL,
		"method": req.EffectiveMethod(),
		"header": header,
		"body":   string(req.Body),
	}
}
