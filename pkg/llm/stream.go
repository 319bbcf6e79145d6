// Package llm defines the provider-agnostic contract for streaming text
// generation. Concrete providers live under pkg/llm/provider.
package llm

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ErrStreamClosed is returned by Recv once Close has been called.
var ErrStreamClosed = errors.New("llm: stream closed")

// Stream is a forward-only sequence of text fragments from one generation
// call. It cannot be restarted.
//
// Recv returns io.EOF once the model finishes normally. Any other error is an
// upstream failure and ends the stream. Close releases the upstream call and
// may be called any number of times, from any goroutine.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Generator opens streaming generation calls against one model.
type Generator interface {
	// Stream starts generating text for prompt. Errors from opening the
	// call are returned directly; errors after that surface through Recv.
	Stream(ctx context.Context, prompt string) (Stream, error)

	// Name returns the provider name, e.g. "gemini".
	Name() string

	// Model returns the model identifier requests are sent to.
	Model() string
}

// Drain reads stream to the end, closes it and returns the concatenated text.
// On an upstream error the text received so far is returned alongside it.
func Drain(stream Stream) (string, error) {
	defer stream.Close()

	var b strings.Builder
	for {
		fragment, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return b.String(), nil
			}
			return b.String(), err
		}
		b.WriteString(fragment)
	}
}
