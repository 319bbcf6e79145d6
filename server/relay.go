package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/scribe/pkg/llm"
	"github.com/papercomputeco/scribe/pkg/sse"
	"github.com/papercomputeco/scribe/pkg/utils"
	"github.com/papercomputeco/scribe/server/header"
)

// maxLoggedError bounds upstream error text in log lines.
const maxLoggedError = 512

// errShuttingDown is sent to clients whose stream is cut short by Close.
var errShuttingDown = errors.New("server is shutting down")

// relayResult describes how a relay ended.
type relayResult struct {
	outcome   string
	fragments int
	usage     *llm.Usage

	// err is the upstream or client write error, nil for outcomeOK.
	err error
}

// relay opens a generation for prompt and writes every fragment to w as SSE.
//
// An upstream error, whether from opening the call or mid-stream, is written
// as a single terminal error event. A failed write means the client is gone:
// relay stops reading and closes the stream. The stream is always closed
// before relay returns. Cancelling ctx ends the relay with errShuttingDown.
func relay(ctx context.Context, gen llm.Generator, prompt string, w io.Writer, onFragment func()) relayResult {
	sw := sse.NewWriter(w)

	stream, err := gen.Stream(ctx, prompt)
	if err != nil {
		outcome := outcomeUpstreamError
		if ctx.Err() != nil {
			outcome, err = outcomeShutdown, errShuttingDown
		}
		if _, werr := sw.WriteError(err); werr != nil {
			return relayResult{outcome: outcomeClientGone, err: werr}
		}
		return relayResult{outcome: outcome, err: err}
	}
	defer stream.Close()

	res := relayResult{}
	for {
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			res.outcome = outcomeOK
			res.usage = llm.UsageOf(stream)
			return res
		}
		if err != nil {
			res.err = err
			res.outcome = outcomeUpstreamError
			if ctx.Err() != nil {
				res.err = errShuttingDown
				res.outcome = outcomeShutdown
			}
			if _, werr := sw.WriteError(res.err); werr != nil {
				res.outcome = outcomeClientGone
				res.err = werr
			}
			return res
		}
		if fragment == "" {
			continue
		}

		if _, err := sw.WriteFragment(fragment); err != nil {
			res.outcome = outcomeClientGone
			res.err = err
			return res
		}
		res.fragments++
		if onFragment != nil {
			onFragment()
		}
	}
}

// stream commits a 200 text/event-stream response and relays prompt into it
// from a separate goroutine. fasthttp reads the pipe and flushes each write to
// the socket as a chunk.
func (s *Server) stream(c *fiber.Ctx, route, prompt string) error {
	header.SetStreamHeaders(c)
	c.Status(fiber.StatusOK)

	logger := s.logger.With("request_id", requestID(c), "route", route)
	if claims := claimsFrom(c); claims != nil {
		logger.Debug("opening stream", "subject", claims.Subject)
	}

	pr, pw := io.Pipe()
	go s.runRelay(pw, route, prompt, logger)

	// Unknown size (-1) makes fasthttp use chunked transfer encoding.
	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}

func (s *Server) runRelay(pw *io.PipeWriter, route, prompt string, logger *slog.Logger) {
	// Closing the pipe ends the response, so it happens after all accounting.
	defer pw.Close()

	// The relay outlives the handler, so it hangs off the server context
	// instead of the request context.
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	s.metrics.activeStreams.Inc()
	defer s.metrics.activeStreams.Dec()

	start := time.Now()
	fragments := s.metrics.fragmentsTotal.WithLabelValues(route)
	res := relay(ctx, s.generator, prompt, pw, fragments.Inc)
	elapsed := time.Since(start)

	s.metrics.streamsTotal.WithLabelValues(route, res.outcome).Inc()
	s.metrics.streamDuration.WithLabelValues(route, res.outcome).Observe(elapsed.Seconds())
	if res.usage != nil {
		s.metrics.tokensTotal.WithLabelValues("prompt").Add(float64(res.usage.PromptTokens))
		s.metrics.tokensTotal.WithLabelValues("completion").Add(float64(res.usage.CompletionTokens))
	}

	attrs := []any{
		"outcome", res.outcome,
		"fragments", res.fragments,
		"duration", elapsed,
	}
	switch res.outcome {
	case outcomeOK:
		if res.usage != nil {
			attrs = append(attrs, "total_tokens", res.usage.TotalTokens)
		}
		logger.Info("stream finished", attrs...)
	case outcomeUpstreamError:
		logger.Warn("stream ended by upstream error", append(attrs, "error", utils.Truncate(res.err.Error(), maxLoggedError))...)
	case outcomeShutdown:
		logger.Info("stream cut short by shutdown", attrs...)
	case outcomeClientGone:
		logger.Debug("client went away", append(attrs, "error", res.err)...)
	}
}
