package testutils

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/papercomputeco/scribe/pkg/llm"
)

// MockStream is a scripted llm.Stream. It yields Fragments in order, then
// returns Err if set, otherwise repeats Forever if set, otherwise io.EOF.
// A stream handed out by MockGenerator returns the context's error once the
// generation context is done.
type MockStream struct {
	Fragments []string
	Err       error

	// Forever makes the stream endless once Fragments run out.
	Forever string

	// Delay paces every Recv call.
	Delay time.Duration

	// ReportUsage is returned from Usage once the stream is exhausted.
	ReportUsage *llm.Usage

	mu         sync.Mutex
	pos        int
	done       bool
	closeCalls int
	closed     chan struct{}
	ctx        context.Context
}

// NewMockStream returns a stream that yields fragments then io.EOF.
func NewMockStream(fragments ...string) *MockStream {
	return &MockStream{Fragments: fragments}
}

func (s *MockStream) init() {
	if s.closed == nil {
		s.closed = make(chan struct{})
	}
}

func (s *MockStream) Recv() (string, error) {
	ctx := s.context()
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.init()

	if s.closeCalls > 0 {
		return "", llm.ErrStreamClosed
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.pos < len(s.Fragments) {
		f := s.Fragments[s.pos]
		s.pos++
		return f, nil
	}
	if s.Err != nil {
		return "", s.Err
	}
	if s.Forever != "" {
		return s.Forever, nil
	}
	s.done = true
	return "", io.EOF
}

func (s *MockStream) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

func (s *MockStream) bind(ctx context.Context) *MockStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = ctx
	return s
}

func (s *MockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init()

	s.closeCalls++
	if s.closeCalls == 1 {
		close(s.closed)
	}
	return nil
}

func (s *MockStream) Usage() *llm.Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.done {
		return nil
	}
	return s.ReportUsage
}

// CloseCalls returns how many times Close was called.
func (s *MockStream) CloseCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCalls
}

// Closed returns a channel that is closed on the first Close call.
func (s *MockStream) Closed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init()
	return s.closed
}

// MockGenerator is an llm.Generator that hands out a prepared stream and
// records the prompts it was asked to generate for.
type MockGenerator struct {
	// NextStream is returned by the next call to Stream. When nil a stream
	// yielding a single "ok" fragment is returned.
	NextStream *MockStream

	// OpenErr is returned from Stream instead of a stream.
	OpenErr error

	mu      sync.Mutex
	prompts []string
}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

func (g *MockGenerator) Stream(ctx context.Context, prompt string) (llm.Stream, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.prompts = append(g.prompts, prompt)
	if g.OpenErr != nil {
		return nil, g.OpenErr
	}
	if g.NextStream != nil {
		return g.NextStream.bind(ctx), nil
	}
	return NewMockStream("ok").bind(ctx), nil
}

func (g *MockGenerator) Name() string  { return "mock" }
func (g *MockGenerator) Model() string { return "mock-model" }

// Prompts returns every prompt passed to Stream, in call order.
func (g *MockGenerator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}
