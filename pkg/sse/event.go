// Package sse implements the two halves of Server-Sent Events used by scribe:
// Writer encodes model fragments into proxy-safe SSE frames for clients, and
// Reader/TeeReader parse SSE events back out of an upstream byte stream (an
// OpenAI-compatible provider, or the scribe server itself when used by the
// summarize command).
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Event represents a single parsed SSE event, delimited by a blank line
// in the upstream byte stream.
type Event struct {
	// Type is the SSE event type from the "event:" field.
	// An empty string means the default "message" type per the SSE spec.
	Type string

	// Data is the concatenated contents of all "data:" lines for this event,
	// joined with "\n" (per the SSE spec, multiple data fields are joined
	// with a single newline).
	Data string

	// ID is the last event ID from the "id:" field, if present.
	ID string
}
