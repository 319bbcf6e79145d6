// Package gemini streams completions from Google Gemini through the
// google.golang.org/genai SDK.
package gemini

import (
	"context"
	"fmt"
	"io"
	"iter"
	"net/http"
	"sync"
	"sync/atomic"

	"google.golang.org/genai"

	"github.com/papercomputeco/scribe/pkg/llm"
)

const (
	Name         = "gemini"
	DefaultModel = "gemini-2.5-flash"
)

// ContentStreamer is the subset of *genai.Models used by the Generator.
type ContentStreamer interface {
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API endpoint.
	BaseURL    string
	HTTPClient *http.Client
}

// Generator implements llm.Generator for Gemini models.
type Generator struct {
	models ContentStreamer
	model  string
}

// New creates a genai client for the Gemini API backend. When cfg.APIKey is
// empty the SDK falls back to GOOGLE_API_KEY / GEMINI_API_KEY.
func New(ctx context.Context, cfg Config) (*Generator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}
	return NewWithStreamer(client.Models, cfg.Model), nil
}

// NewWithStreamer builds a Generator on an existing ContentStreamer.
func NewWithStreamer(models ContentStreamer, model string) *Generator {
	if model == "" {
		model = DefaultModel
	}
	return &Generator{models: models, model: model}
}

func (g *Generator) Name() string  { return Name }
func (g *Generator) Model() string { return g.model }

// Stream starts the generation lazily: the SDK issues the request on the
// first Recv, so errors from opening the call surface there.
func (g *Generator) Stream(ctx context.Context, prompt string) (llm.Stream, error) {
	ctx, cancel := context.WithCancel(ctx)
	next, stop := iter.Pull2(g.models.GenerateContentStream(ctx, g.model, genai.Text(prompt), nil))
	return &stream{next: next, stop: stop, cancel: cancel}, nil
}

type stream struct {
	next   func() (*genai.GenerateContentResponse, error, bool)
	stop   func()
	cancel context.CancelFunc

	closed atomic.Bool
	usage  atomic.Pointer[llm.Usage]

	// mu serialises next and stop, which must not run concurrently.
	mu   sync.Mutex
	done bool
}

func (s *stream) Recv() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if s.closed.Load() {
			return "", llm.ErrStreamClosed
		}
		if s.done {
			return "", io.EOF
		}

		resp, err, ok := s.next()
		if !ok {
			s.done = true
			return "", io.EOF
		}
		if err != nil {
			s.done = true
			if s.closed.Load() {
				return "", llm.ErrStreamClosed
			}
			return "", fmt.Errorf("gemini: %w", err)
		}
		if resp == nil {
			continue
		}

		if md := resp.UsageMetadata; md != nil {
			s.usage.Store(&llm.Usage{
				PromptTokens:     int(md.PromptTokenCount),
				CompletionTokens: int(md.CandidatesTokenCount),
				TotalTokens:      int(md.TotalTokenCount),
			})
		}

		if text := resp.Text(); text != "" {
			return text, nil
		}
	}
}

// Close cancels the request first so that an in-flight Recv returns, then
// stops the iterator.
func (s *stream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop()
	return nil
}

func (s *stream) Usage() *llm.Usage {
	return s.usage.Load()
}
