// Package engine provides the response orchestrator: it selects a rule for
// an intercepted request, synthesizes the response and emits diagnostics.
package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/stubwire/stubwire/pkg/logging"
	"github.com/stubwire/stubwire/pkg/registry"
	"github.com/stubwire/stubwire/pkg/requestlog"
	"github.com/stubwire/stubwire/pkg/rule"
)

// maxLoggedBody bounds request/response payloads captured into
// diagnostic entries.
const maxLoggedBody = 10 << 10 // 10KB

// Result is the outcome of one respond cycle. Matched false means
// passthrough: no rule claimed the request and the caller should proceed
// with the real network call (or forward to the proxy collaborator).
type Result struct {
	Matched  bool
	Rule     *rule.Rule
	Response *Response
}

// Engine orchestrates match-and-respond cycles against a registry.
type Engine struct {
	registry *registry.Registry
	sink     requestlog.Sink
	log      *slog.Logger
}

// New creates an engine bound to a registry. Diagnostics are dropped
// until a sink is set.
func New(reg *registry.Registry) *Engine {
	return &Engine{
		registry: reg,
		sink:     requestlog.Nop,
		log:      logging.Nop(),
	}
}

// SetSink sets the diagnostics sink.
func (e *Engine) SetSink(sink requestlog.Sink) {
	if sink != nil {
		e.sink = sink
	} else {
		e.sink = requestlog.Nop
	}
}

// SetLogger sets the operational logger.
func (e *Engine) SetLogger(log *slog.Logger) {
	if log != nil {
		e.log = log
	}
}

// Registry returns the registry the engine responds from.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Matches reports whether any rule would claim the request, without
// consuming a use or producing a response. Used by the proxy collaborator
// to decide between mocking and forwarding.
func (e *Engine) Matches(req *rule.Request) bool {
	_, ok := e.registry.MatchRequest(req)
	return ok
}

// Respond runs one match-and-respond cycle.
//
// On no match it returns a passthrough result. On match it waits the
// rule's delay (cancellable through ctx; cancellation consumes no use and
// emits nothing), claims one use, builds the response and records a
// diagnostic entry before returning. When the use cannot be claimed —
// the rule lost a race for its final use, or was removed or disabled
// while waiting — the cycle degrades to passthrough.
func (e *Engine) Respond(ctx context.Context, req *rule.Request) (*Result, error) {
	if req == nil {
		return &Result{}, nil
	}

	start := time.Now()

	matched, ok := e.registry.MatchRequest(req)
	if !ok {
		return &Result{}, nil
	}

	if matched.Delay > 0 {
		timer := time.NewTimer(matched.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if !e.registry.Consume(matched.Key) {
		e.log.Debug("rule use lost after delay, passing through", "key", matched.Key)
		return &Result{}, nil
	}

	// Snapshot the post-consume state so diagnostics report the budget
	// remaining after this response.
	if current := e.registry.Lookup(matched.Key); current != nil {
		matched = current
	}

	resp, err := e.buildResponse(matched, req)
	if err != nil {
		return nil, err
	}

	e.record(start, req, matched, resp)

	return &Result{Matched: true, Rule: matched, Response: resp}, nil
}

// buildResponse synthesizes the response for a matched rule.
func (e *Engine) buildResponse(r *rule.Rule, req *rule.Request) (*Response, error) {
	resp := &Response{
		Status: r.Status,
		Header: make(map[string]string, len(r.Header)+2),
	}

	// HEAD responses never carry a body, whatever the rule configured.
	if req.EffectiveMethod() != "HEAD" {
		body, isJSON, err := renderBody(r.Body)
		if err != nil {
			return nil, err
		}
		resp.Body = body

		if !headerHas(r.Header, "Content-Type") && len(body) > 0 {
			switch {
			case isJSON, looksLikeJSON(string(body)):
				resp.Header["Content-Type"] = "application/json"
			case looksLikeXML(string(body)):
				resp.Header["Content-Type"] = "application/xml"
			default:
				resp.Header["Content-Type"] = "text/plain"
			}
		}
	}

	// Rule headers win on collision, except the reserved marker.
	for name, value := range r.Header {
		resp.Header[name] = value
	}
	for name := range resp.Header {
		if strings.EqualFold(name, PoweredByHeader) {
			delete(resp.Header, name)
		}
	}
	resp.Header[PoweredByHeader] = PoweredByValue

	return resp, nil
}

// record emits the diagnostic entry for a completed cycle. Recording is
// gated on the registry's log switch and never affects control flow.
func (e *Engine) record(start time.Time, req *rule.Request, r *rule.Rule, resp *Response) {
	if !e.registry.LoggingEnabled() {
		return
	}

	entry := &requestlog.Entry{
		Timestamp:       start,
		Method:          req.EffectiveMethod(),
		URL:             req.URL,
		RequestHeaders:  req.Header,
		RequestBody:     truncate(string(req.Body)),
		Status:          resp.Status,
		StatusText:      resp.StatusText(),
		ResponseHeaders: resp.Header,
		ResponseBody:    truncate(string(resp.Body)),
		DurationMs:      int(time.Since(start).Milliseconds()),
		RuleKey:         r.Key,
		Rule:            requestlog.Snapshot(r),
	}
	e.sink.Record(entry)
}

func headerHas(header map[string]string, name string) bool {
	for k := range header {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

func truncate(s string) string {
	if len(s) > maxLoggedBody {
		return s[:maxLoggedBody]
	}
	return s
}
