package engine

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stubwire/stubwire/pkg/registry"
	"github.com/stubwire/stubwire/pkg/requestlog"
	"github.com/stubwire/stubwire/pkg/rule"
)

func intPtr(n int) *int { return &n }

// collectSink captures diagnostic entries for assertions.
type collectSink struct {
	mu      sync.Mutex
	entries []*requestlog.Entry
}

func (s *collectSink) Record(e *requestlog.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

func (s *collectSink) all() []*requestlog.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*requestlog.Entry(nil), s.entries...)
}

func newEngine(t *testing.T) (*Engine, *collectSink) {
	t.Helper()
	e := New(registry.New())
	sink := &collectSink{}
	e.SetSink(sink)
	return e, sink
}

func respond(t *testing.T, e *Engine, req *rule.Request) *Result {
	t.Helper()
	res, err := e.Respond(context.Background(), req)
	require.NoError(t, err)
	return res
}

func TestRespond_TimesThenPassthrough(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.Registry().Get("/api/user", map[string]any{"id": 1}, &registry.Options{Times: intPtr(2)})
	require.NoError(t, err)

	req := &rule.Request{URL: "/api/user", Method: "GET"}

	for i := 0; i < 2; i++ {
		res := respond(t, e, req)
		require.True(t, res.Matched, "hit %d", i+1)
		assert.Equal(t, 200, res.Response.Status)
		assert.JSONEq(t, `{"id":1}`, string(res.Response.Body))
		assert.Equal(t, "application/json", res.Response.Header["Content-Type"])
	}

	res := respond(t, e, req)
	assert.False(t, res.Matched, "third hit passes through")
}

func TestRespond_AnyMethodRegexp(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.Registry().Any(regexp.MustCompile(`^/health`), nil, &registry.Options{Status: 204})
	require.NoError(t, err)

	for _, method := range []string{"POST", "GET", "DELETE"} {
		res := respond(t, e, &rule.Request{URL: "/health/live", Method: method})
		require.True(t, res.Matched, method)
		assert.Equal(t, 204, res.Response.Status)
		assert.Empty(t, res.Response.Body)
	}
}

func TestRespond_HeadHasNoBody(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.Registry().Head("/api/user", nil, nil)
	require.NoError(t, err)

	res := respond(t, e, &rule.Request{URL: "/api/user", Method: "HEAD"})
	require.True(t, res.Matched)
	assert.Empty(t, res.Response.Body)
	assert.Equal(t, PoweredByValue, res.Response.Header[PoweredByHeader])
}

func TestRespond_MarkerHeaderNotOverridable(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.Registry().Register(rule.Spec{
		URL: "/api",
		Header: map[string]string{
			"x-powered-by": "something-else",
			"X-Request-Id": "abc",
		},
	})
	require.NoError(t, err)

	res := respond(t, e, &rule.Request{URL: "/api", Method: "GET"})
	require.True(t, res.Matched)
	assert.Equal(t, PoweredByValue, res.Response.Header[PoweredByHeader])
	assert.Equal(t, "abc", res.Response.Header["X-Request-Id"])

	marker := 0
	for name := range res.Response.Header {
		if name == PoweredByHeader || name == "x-powered-by" {
			marker++
		}
	}
	assert.Equal(t, 1, marker, "exactly one marker header survives")
}

func TestRespond_RuleContentTypeWins(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.Registry().Register(rule.Spec{
		URL:    "/api",
		Body:   `{"raw": true}`,
		Header: map[string]string{"Content-Type": "text/custom"},
	})
	require.NoError(t, err)

	res := respond(t, e, &rule.Request{URL: "/api", Method: "GET"})
	require.True(t, res.Matched)
	assert.Equal(t, "text/custom", res.Response.Header["Content-Type"])
}

func TestRespond_SniffsContentType(t *testing.T) {
	e, _ := newEngine(t)

	cases := []struct {
		name string
		body any
		want string
	}{
		{"json string", `{"ok":true}`, "application/json"},
		{"xml string", `<note><to>x</to></note>`, "application/xml"},
		{"plain string", "hello", "text/plain"},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			url := "/sniff/" + tc.name
			_, err := e.Registry().Register(rule.Spec{URL: url, Body: tc.body})
			require.NoError(t, err)

			res := respond(t, e, &rule.Request{URL: url, Method: "GET"})
			require.True(t, res.Matched, "case %d", i)
			assert.Equal(t, tc.want, res.Response.Header["Content-Type"])
		})
	}
}

func TestRespond_DelayCancellation(t *testing.T) {
	e, sink := newEngine(t)
	r, err := e.Registry().Register(rule.Spec{URL: "/slow", DelayMs: 5000, Times: intPtr(1)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := e.Respond(ctx, &rule.Request{URL: "/slow", Method: "GET"})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("respond did not return after cancellation")
	}

	stored := e.Registry().Lookup(r.Key)
	require.NotNil(t, stored)
	assert.Equal(t, 1, *stored.Times, "cancellation consumes no use")
	assert.Empty(t, sink.all(), "cancellation emits no diagnostic")
}

func TestRespond_Delay(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.Registry().Register(rule.Spec{URL: "/slow", DelayMs: 50})
	require.NoError(t, err)

	start := time.Now()
	res := respond(t, e, &rule.Request{URL: "/slow", Method: "GET"})
	require.True(t, res.Matched)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestRespond_Diagnostics(t *testing.T) {
	e, sink := newEngine(t)
	_, err := e.Registry().Register(rule.Spec{URL: "/api/user", Times: intPtr(2), Status: 200, Body: "ok"})
	require.NoError(t, err)

	res := respond(t, e, &rule.Request{
		URL:    "/api/user",
		Method: "GET",
		Header: map[string]string{"Accept": "text/plain"},
		Body:   []byte("payload"),
	})
	require.True(t, res.Matched)

	entries := sink.all()
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, "GET", entry.Method)
	assert.Equal(t, "/api/user", entry.URL)
	assert.Equal(t, 200, entry.Status)
	assert.Equal(t, "OK", entry.StatusText)
	assert.Equal(t, "payload", entry.RequestBody)
	assert.Equal(t, "ok", entry.ResponseBody)
	require.NotNil(t, entry.Rule)
	require.NotNil(t, entry.Rule.Times)
	assert.Equal(t, 1, *entry.Rule.Times, "snapshot reflects the budget after this response")
}

func TestRespond_DiagnosticsGated(t *testing.T) {
	e, sink := newEngine(t)
	_, err := e.Registry().Register(rule.Spec{URL: "/api"})
	require.NoError(t, err)

	e.Registry().SetLogging(false)
	res := respond(t, e, &rule.Request{URL: "/api", Method: "GET"})
	require.True(t, res.Matched, "log switch never affects matching")
	assert.Empty(t, sink.all())

	e.Registry().SetLogging(true)
	respond(t, e, &rule.Request{URL: "/api", Method: "GET"})
	assert.Len(t, sink.all(), 1)
}

func TestRespond_NilRequest(t *testing.T) {
	e, _ := newEngine(t)
	res, err := e.Respond(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, res.Matched)
}

func TestMatches(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.Registry().Register(rule.Spec{URL: "/api", Times: intPtr(1)})
	require.NoError(t, err)

	req := &rule.Request{URL: "/api", Method: "GET"}
	assert.True(t, e.Matches(req))
	assert.True(t, e.Matches(req), "matches probes without consuming")

	res := respond(t, e, req)
	require.True(t, res.Matched)
	assert.False(t, e.Matches(req), "budget spent")
}

func TestRenderBody(t *testing.T) {
	cases := []struct {
		name   string
		body   any
		want   string
		isJSON bool
	}{
		{"nil", nil, "", false},
		{"string", "hello", "hello", false},
		{"bytes", []byte("raw"), "raw", false},
		{"map", map[string]any{"id": 1}, `{"id":1}`, true},
		{"slice", []int{1, 2}, `[1,2]`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, isJSON, err := renderBody(tc.body)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(got))
			assert.Equal(t, tc.isJSON, isJSON)
		})
	}
}

func TestRenderBody_Unmarshalable(t *testing.T) {
	_, _, err := renderBody(func() {})
	assert.Error(t, err)
}
