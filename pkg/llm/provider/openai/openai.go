// Package openai streams completions from any server that speaks the OpenAI
// Chat Completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/papercomputeco/scribe/pkg/llm"
	"github.com/papercomputeco/scribe/pkg/sse"
)

const (
	Name = "openai"

	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"

	doneSentinel = "[DONE]"
	maxErrorBody = 4 << 10
)

// Config configures a Generator. Zero values fall back to the defaults.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

// Generator implements llm.Generator over /chat/completions.
type Generator struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func New(cfg Config) *Generator {
	g := &Generator{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  cfg.HTTPClient,
	}
	if g.baseURL == "" {
		g.baseURL = DefaultBaseURL
	}
	if g.model == "" {
		g.model = DefaultModel
	}
	if g.client == nil {
		g.client = http.DefaultClient
	}
	return g
}

func (g *Generator) Name() string  { return Name }
func (g *Generator) Model() string { return g.model }

// Stream posts prompt as a single user message and returns once the upstream
// has answered with a 200 and started streaming.
func (g *Generator) Stream(ctx context.Context, prompt string) (llm.Stream, error) {
	body, err := json.Marshal(chatRequest{
		Model:         g.model,
		Messages:      []chatMessage{{Role: "user", Content: prompt}},
		Stream:        true,
		StreamOptions: &streamOptions{IncludeUsage: true},
	})
	if err != nil {
		return nil, fmt.Errorf("openai: encoding request: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("openai: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("openai: sending request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer cancel()
		defer resp.Body.Close()
		return nil, statusError(resp)
	}

	return &stream{
		body:   resp.Body,
		events: sse.NewReader(resp.Body),
		cancel: cancel,
	}, nil
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != nil && env.Error.Message != "" {
		return fmt.Errorf("openai: upstream returned %d: %s", resp.StatusCode, env.Error.Message)
	}

	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("openai: upstream returned %d: %s", resp.StatusCode, msg)
}

type stream struct {
	body   io.ReadCloser
	events *sse.TeeReader
	cancel context.CancelFunc

	closed    atomic.Bool
	closeOnce sync.Once

	mu    sync.Mutex
	done  bool
	usage atomic.Pointer[llm.Usage]
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

		ev, err := s.events.Next()
		if err != nil {
			if s.closed.Load() {
				return "", llm.ErrStreamClosed
			}
			return "", fmt.Errorf("openai: reading stream: %w", err)
		}
		// Some servers close the connection without sending [DONE].
		if ev == nil || strings.TrimSpace(ev.Data) == doneSentinel {
			s.done = true
			return "", io.EOF
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
			return "", fmt.Errorf("openai: decoding chunk: %w", err)
		}
		if chunk.Error != nil {
			return "", errors.New("openai: " + chunk.Error.Message)
		}
		if chunk.Usage != nil {
			s.usage.Store(&llm.Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			})
		}

		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			return chunk.Choices[0].Delta.Content, nil
		}
	}
}

// Close aborts the request. It does not wait for an in-flight Recv.
func (s *stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.cancel()
		err = s.body.Close()
	})
	return err
}

func (s *stream) Usage() *llm.Usage {
	return s.usage.Load()
}
