package ollama

import (
	"bufio"
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
)

const (
	Name = "ollama"

	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"

	maxErrorBody = 4 << 10
)

type Config struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// Generator implements llm.Generator over Ollama's native chat API.
type Generator struct {
	baseURL string
	model   string
	client  *http.Client
}

func New(cfg Config) *Generator {
	g := &Generator{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
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

func (g *Generator) Stream(ctx context.Context, prompt string) (llm.Stream, error) {
	body, err := json.Marshal(chatRequest{
		Model:    g.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama: encoding request: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ollama: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ollama: sending request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer cancel()
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var chunk chatChunk
		if json.Unmarshal(raw, &chunk) == nil && chunk.Error != "" {
			return nil, fmt.Errorf("ollama: upstream returned %d: %s", resp.StatusCode, chunk.Error)
		}
		return nil, fmt.Errorf("ollama: upstream returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	return &stream{body: resp.Body, lines: scanner, cancel: cancel}, nil
}

type stream struct {
	body   io.ReadCloser
	lines  *bufio.Scanner
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

		if !s.lines.Scan() {
			if s.closed.Load() {
				return "", llm.ErrStreamClosed
			}
			if err := s.lines.Err(); err != nil {
				return "", fmt.Errorf("ollama: reading stream: %w", err)
			}
			s.done = true
			return "", io.EOF
		}

		line := s.lines.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var chunk chatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", fmt.Errorf("ollama: decoding chunk: %w", err)
		}
		if chunk.Error != "" {
			return "", errors.New("ollama: " + chunk.Error)
		}
		if chunk.Done {
			s.done = true
			s.usage.Store(&llm.Usage{
				PromptTokens:     chunk.PromptEvalCount,
				CompletionTokens: chunk.EvalCount,
				TotalTokens:      chunk.PromptEvalCount + chunk.EvalCount,
			})
		}
		if chunk.Message.Content != "" {
			return chunk.Message.Content, nil
		}
	}
}

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
