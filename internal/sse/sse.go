// Package sse implements the progress protocol (C10): a bounded channel of
// typed events with a sentinel terminal event, plus the line-delimited wire
// encoding the HTTP transport writes to the response body.
//
// The orchestrator never writes to an http.ResponseWriter directly — it
// publishes to an *Emitter, which the transport layer drains. This keeps
// the pipeline transport-agnostic (§9 REDESIGN FLAGS): the same orchestrator
// code path backs both the synchronous generate() call and the streaming
// generate_stream() call.
package sse

import (
	"fmt"
	"io"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/core"
)

// EventType tags the three envelope kinds on the wire.
type EventType string

const (
	EventProgress EventType = "progress"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is one envelope published to the channel. Exactly one of Progress,
// Complete, Error is set, matching Type.
type Event struct {
	Type     EventType
	Progress core.ProgressEvent
	Complete core.CompleteEvent
	Error    core.ErrorEvent
}

// IsTerminal reports whether this event ends the stream.
func (e Event) IsTerminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}

// Emitter is a bounded, single-writer channel of Events terminated by
// exactly one of EventComplete or EventError. The orchestrator owns the
// send side; the transport layer drains Events.
type Emitter struct {
	ch     chan Event
	closed bool
}

// NewEmitter allocates an Emitter with the given channel capacity. A small
// buffer (progress events are infrequent and the transport drains promptly)
// keeps sends non-blocking in the common case without unbounded growth.
func NewEmitter(buffer int) *Emitter {
	if buffer <= 0 {
		buffer = 16
	}
	return &Emitter{ch: make(chan Event, buffer)}
}

// Progress publishes a progress event for stage.
func (e *Emitter) Progress(stage core.Stage, message string) {
	e.send(Event{Type: EventProgress, Progress: core.ProgressEvent{
		Step:       stage,
		Percentage: core.StagePercentage[stage],
		Message:    message,
	}})
}

// Complete publishes the terminal complete event and closes the channel.
func (e *Emitter) Complete(markdown, draftID string) {
	e.send(Event{Type: EventComplete, Complete: core.CompleteEvent{Markdown: markdown, DraftID: draftID}})
	e.Close()
}

// Error publishes the terminal error event and closes the channel.
func (e *Emitter) Error(err error) {
	e.send(Event{Type: EventError, Error: core.ErrorEvent{Kind: core.Kind(err), Message: err.Error()}})
	e.Close()
}

func (e *Emitter) send(ev Event) {
	if e.closed {
		return
	}
	e.ch <- ev
}

// Close closes the channel. Safe to call more than once.
func (e *Emitter) Close() {
	if e.closed {
		return
	}
	e.closed = true
	close(e.ch)
}

// Events exposes the receive side for the transport layer to range over.
func (e *Emitter) Events() <-chan Event {
	return e.ch
}

// WriteTo drains ch, writing each event to w in the line-delimited SSE wire
// format until the channel closes or ctx-equivalent cancellation is
// signalled by the caller stopping the range early. flush, if non-nil, is
// called after every event so the client observes it promptly.
func WriteTo(w io.Writer, flush func(), ch <-chan Event, encode func(any) ([]byte, error)) error {
	for ev := range ch {
		var payload any
		switch ev.Type {
		case EventProgress:
			payload = ev.Progress
		case EventComplete:
			payload = ev.Complete
		case EventError:
			payload = ev.Error
		}
		body, err := encode(payload)
		if err != nil {
			return fmt.Errorf("sse: encode event: %w", err)
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, body); err != nil {
			return fmt.Errorf("sse: write event: %w", err)
		}
		if flush != nil {
			flush()
		}
	}
	return nil
}
