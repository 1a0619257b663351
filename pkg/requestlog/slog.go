package requestlog

import "log/slog"

// SlogSink renders entries as structured, human-scannable records grouped
// into request, response and rule sections. Verbosity is an explicit
// construction choice: verbose sinks emit the full rule snapshot, minimal
// sinks reduce it to url, method, delay, times, status and disable. A
// SlogSink never fails; with a nil logger it is a no-op.
type SlogSink struct {
	log     *slog.Logger
	verbose bool
}

// NewSlogSink creates a SlogSink writing to log. verbose selects the full
// rule snapshot over the minimal field set.
func NewSlogSink(log *slog.Logger, verbose bool) *SlogSink {
	return &SlogSink{log: log, verbose: verbose}
}

// Record emits one entry.
func (s *SlogSink) Record(entry *Entry) {
	if s == nil || s.log == nil || entry == nil {
		return
	}

	attrs := []any{
		slog.String("method", entry.Method),
		slog.String("url", entry.URL),
		slog.Int("status", entry.Status),
		slog.Group("request",
			slog.Any("headers", entry.RequestHeaders),
			slog.String("body", entry.RequestBody),
		),
		slog.Group("response",
			slog.String("body", entry.ResponseBody),
			slog.Int("elapsedMs", entry.DurationMs),
			slog.Any("headers", entry.ResponseHeaders),
			slog.Int("status", entry.Status),
			slog.String("statusText", entry.StatusText),
		),
		s.ruleGroup(entry.Rule),
	}

	if entry.Status >= 400 {
		s.log.Warn("mocked response", attrs...)
		return
	}
	s.log.Info("mocked response", attrs...)
}

func (s *SlogSink) ruleGroup(snap *RuleSnapshot) slog.Attr {
	if snap == nil {
		return slog.Group("rule")
	}

	times := -1
	if snap.Times != nil {
		times = *snap.Times
	}

	if !s.verbose {
		return slog.Group("rule",
			slog.String("url", snap.URL),
			slog.String("method", snap.Method),
			slog.Int("delayMs", snap.DelayMs),
			slog.Int("times", times),
			slog.Int("status", snap.Status),
			slog.Bool("disable", snap.Disable),
		)
	}

	return slog.Group("rule",
		slog.String("key", snap.Key),
		slog.String("url", snap.URL),
		slog.String("urlKind", snap.URLKind),
		slog.String("method", snap.Method),
		slog.Int("delayMs", snap.DelayMs),
		slog.Int("times", times),
		slog.Int("status", snap.Status),
		slog.Bool("disable", snap.Disable),
		slog.Any("header", snap.Header),
		slog.String("when", snap.When),
	)
}

// Ensure SlogSink implements Sink.
var _ Sink = (*SlogSink)(nil)
