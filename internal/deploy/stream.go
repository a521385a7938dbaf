// Package deploy implements the action-streaming orchestrator: it maps a
// fixed catalog of deployment actions onto ordered step lists, executes the
// steps through external git and docker compose commands, and multiplexes
// their line-oriented output onto a single ordered event stream per
// invocation.
package deploy

import "context"

// EventKind discriminates stream event payloads.
type EventKind int

const (
	// EventLine carries one line of process output.
	EventLine EventKind = iota
	// EventSection carries a human-readable phase banner.
	EventSection
	// EventDone is the terminal success marker.
	EventDone
	// EventError is the terminal failure marker; the payload holds the
	// failure message.
	EventError
)

// Event is one frame delivered to the stream's single subscriber.
type Event struct {
	Kind    EventKind
	Payload string
}

// streamBuffer bounds how far the producer may run ahead of a slow
// consumer before blocking.
const streamBuffer = 64

// Stream is the ordered, single-producer single-consumer output channel of
// one pipeline invocation. The producer appends events until it emits
// exactly one terminal marker (EventDone or EventError) and closes the
// channel; the consumer observes events strictly in production order.
type Stream struct {
	ch chan Event
}

func newStream() *Stream {
	return &Stream{ch: make(chan Event, streamBuffer)}
}

// Events returns the receive side of the stream. The channel is closed
// after the terminal event.
func (s *Stream) Events() <-chan Event {
	return s.ch
}

// send delivers one event, blocking while the buffer is full. It returns
// the context error if the consumer went away before accepting the event.
func (s *Stream) send(ctx context.Context, ev Event) error {
	select {
	case s.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Stream) line(ctx context.Context, text string) error {
	return s.send(ctx, Event{Kind: EventLine, Payload: text})
}

func (s *Stream) section(ctx context.Context, banner string) error {
	return s.send(ctx, Event{Kind: EventSection, Payload: banner})
}

func (s *Stream) close() {
	close(s.ch)
}
