package registry

import (
	"fmt"
	"regexp"

	"github.com/stubwire/stubwire/pkg/rule"
)

// Options carries the recognized options for per-method registration.
// Zero values mean the defaults: delay 0, status 200, unbounded times,
// no extra headers.
type Options struct {
	DelayMs int
	Status  int
	Times   *int
	Header  map[string]string
}

// Get registers a rule matching GET requests. urlMatcher is either a
// plain string (substring containment) or a *regexp.Regexp.
func (rg *Registry) Get(urlMatcher, body any, opts *Options) (*rule.Rule, error) {
	return rg.registerMethod("GET", urlMatcher, body, opts)
}

// Post registers a rule matching POST requests.
func (rg *Registry) Post(urlMatcher, body any, opts *Options) (*rule.Rule, error) {
	return rg.registerMethod("POST", urlMatcher, body, opts)
}

// Put registers a rule matching PUT requests.
func (rg *Registry) Put(urlMatcher, body any, opts *Options) (*rule.Rule, error) {
	return rg.registerMethod("PUT", urlMatcher, body, opts)
}

// Patch registers a rule matching PATCH requests.
func (rg *Registry) Patch(urlMatcher, body any, opts *Options) (*rule.Rule, error) {
	return rg.registerMethod("PATCH", urlMatcher, body, opts)
}

// Delete registers a rule matching DELETE requests.
func (rg *Registry) Delete(urlMatcher, body any, opts *Options) (*rule.Rule, error) {
	return rg.registerMethod("DELETE", urlMatcher, body, opts)
}

// Head registers a rule matching HEAD requests. The body argument is
// accepted for symmetry but always discarded: response bodies are not
// meaningful for HEAD.
func (rg *Registry) Head(urlMatcher, body any, opts *Options) (*rule.Rule, error) {
	return rg.registerMethod("HEAD", urlMatcher, body, opts)
}

// Any registers a rule matching every request method.
func (rg *Registry) Any(urlMatcher, body any, opts *Options) (*rule.Rule, error) {
	return rg.registerMethod(rule.MethodAny, urlMatcher, body, opts)
}

func (rg *Registry) registerMethod(method string, urlMatcher, body any, opts *Options) (*rule.Rule, error) {
	spec := rule.Spec{Method: method, Body: body}

	switch m := urlMatcher.(type) {
	case string:
		spec.URL = m
	case *regexp.Regexp:
		if m == nil {
			return nil, rule.ErrNoKey
		}
		spec.URLPattern = m.String()
	case nil:
		return nil, rule.ErrNoKey
	default:
		return nil, &rule.ValidationError{
			Field:   "url",
			Message: fmt.Sprintf("unsupported url matcher type %T", urlMatcher),
		}
	}

	if opts != nil {
		spec.DelayMs = opts.DelayMs
		spec.Status = opts.Status
		spec.Times = opts.Times
		spec.Header = opts.Header
	}

	return rg.Register(spec)
}
