package sse

import (
	"bytes"
	"io"
	"strings"
)

const (
	// ErrorPrefix starts the payload of the terminal event written by
	// WriteError.
	ErrorPrefix = "Error: "

	dataPrefix = "data: "

	// filler is written between the lines of a multi-line fragment. Some
	// buffering layers coalesce consecutive frames that look blank; a
	// single-space payload keeps each line break observable downstream.
	filler = "data:  \n"
)

var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Writer encodes text fragments as SSE frames. Every WriteFragment or
// WriteError is a single Write on the underlying io.Writer, so backpressure
// from the destination is felt per fragment. A Writer is not safe for
// concurrent use.
type Writer struct {
	w   io.Writer
	buf bytes.Buffer
}

// NewWriter returns a Writer that writes frames to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteFragment writes one model fragment. Empty fragments write nothing.
// A fragment with k line breaks becomes k+1 "data: <line>\n\n" events with a
// filler line after each of the first k.
func (w *Writer) WriteFragment(fragment string) (int, error) {
	if fragment == "" {
		return 0, nil
	}

	w.buf.Reset()
	lines := strings.Split(lineBreaks.Replace(fragment), "\n")
	for i, line := range lines {
		w.buf.WriteString(dataPrefix)
		w.buf.WriteString(line)
		w.buf.WriteString("\n\n")
		if i < len(lines)-1 {
			w.buf.WriteString(filler)
		}
	}

	return w.w.Write(w.buf.Bytes())
}

// WriteError writes the terminal "data: Error: <message>\n\n" event. Line
// breaks in the message are folded to spaces so it stays a single event.
func (w *Writer) WriteError(err error) (int, error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	msg = strings.ReplaceAll(lineBreaks.Replace(msg), "\n", " ")

	return io.WriteString(w.w, dataPrefix+ErrorPrefix+msg+"\n\n")
}

// DecodeFragment recovers the text carried by one event produced by Writer,
// as parsed by TeeReader. A filler line joins onto the event that follows it
// as a leading " \n", which stands for the line break in the original text.
func DecodeFragment(data string) string {
	if rest, ok := strings.CutPrefix(data, " \n"); ok {
		return "\n" + rest
	}
	return data
}

// IsError reports whether the event data is a terminal error event.
func IsError(data string) bool {
	return strings.HasPrefix(data, ErrorPrefix)
}
