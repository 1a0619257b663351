package requestlog

// Sink receives diagnostic entries. Implementations must never fail or
// block the response path; a sink that cannot record simply drops.
type Sink interface {
	Record(entry *Entry)
}

// Store is a Sink that also retains entries for later inspection.
type Store interface {
	Sink

	// Get retrieves an entry by ID, nil when unknown.
	Get(id string) *Entry

	// List returns entries newest first, optionally filtered.
	List(filter *Filter) []*Entry

	// Clear removes all entries.
	Clear()

	// Count returns the number of retained entries.
	Count() int
}

// Filter selects entries in Store.List.
type Filter struct {
	// Method filters by request method (exact, case-sensitive).
	Method string

	// URL filters by URL prefix.
	URL string

	// RuleKey filters by matched rule key.
	RuleKey string

	// Status filters by response status code.
	Status int

	// Limit caps the number of returned entries; 0 means no cap.
	Limit int

	// Offset skips that many entries after filtering.
	Offset int
}

// Subscriber receives new entries as they are recorded.
type Subscriber chan *Entry

// SubscribableStore extends Store with live entry streaming.
type SubscribableStore interface {
	Store

	// Subscribe returns a channel of new entries and an unsubscribe
	// function. Slow subscribers miss entries rather than block.
	Subscribe() (Subscriber, func())
}

// Multi fans entries out to several sinks.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

type multiSink []Sink

func (m multiSink) Record(entry *Entry) {
	for _, s := range m {
		if s != nil {
			s.Record(entry)
		}
	}
}

// Nop is a Sink that drops everything.
var Nop Sink = nopSink{}

type nopSink struct{}

func (nopSink) Record(*Entry) {}
