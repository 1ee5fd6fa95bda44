package pipeline

import "github.com/sheldonz/invoscan/pkg/invoice"

// EventKind discriminates pipeline events.
type EventKind string

const (
	// EventLog carries a human-readable progress line.
	EventLog EventKind = "log"
	// EventProgress carries processed/total counters.
	EventProgress EventKind = "progress"
	// EventDone is the final event; Result is set and the channel closes
	// after it.
	EventDone EventKind = "done"
)

// Event is one message from a running batch.
type Event struct {
	Kind EventKind

	Message string // EventLog

	Processed int     // EventProgress
	Total     int     // EventProgress
	Percent   float64 // EventProgress

	Result *Result // EventDone
}

// Hooks receives pipeline callbacks. Nil members are skipped, so callers
// install only what they consume.
type Hooks struct {
	Log      func(msg string)
	Progress func(processed, total int)
	FileDone func(rec invoice.Record)
}

func (h Hooks) log(msg string) {
	if h.Log != nil {
		h.Log(msg)
	}
}

func (h Hooks) progress(processed, total int) {
	if h.Progress != nil {
		h.Progress(processed, total)
	}
}

func (h Hooks) fileDone(rec invoice.Record) {
	if h.FileDone != nil {
		h.FileDone(rec)
	}
}

// EventStream adapts Hooks onto a single buffered channel for consumers
// that select on events instead of installing callbacks. The orchestrator
// runs in a worker goroutine with the stream's Hooks; the consumer drains
// Events until it is closed by Done.
type EventStream struct {
	ch chan Event
}

// NewEventStream returns a stream with the given buffer size.
func NewEventStream(buffer int) *EventStream {
	return &EventStream{ch: make(chan Event, buffer)}
}

// Hooks returns callback hooks that forward onto the stream.
func (s *EventStream) Hooks() Hooks {
	return Hooks{
		Log: func(msg string) {
			s.ch <- Event{Kind: EventLog, Message: msg}
		},
		Progress: func(processed, total int) {
			pct := 0.0
			if total > 0 {
				pct = float64(processed) / float64(total) * 100
			}
			s.ch <- Event{Kind: EventProgress, Processed: processed, Total: total, Percent: pct}
		},
	}
}

// Events is the consumer side of the stream.
func (s *EventStream) Events() <-chan Event {
	return s.ch
}

// Done emits the final event and closes the stream. Call exactly once,
// after the batch returns.
func (s *EventStream) Done(result *Result) {
	s.ch <- Event{Kind: EventDone, Result: result}
	close(s.ch)
}
