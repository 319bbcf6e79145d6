package openai_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/scribe/pkg/llm"
	"github.com/papercomputeco/scribe/pkg/llm/provider/openai"
)

func deltaChunk(content string) string {
	return fmt.Sprintf(`{"id":"chatcmpl-1","object":"chat.completion.chunk","model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":%q},"finish_reason":null}]}`, content)
}

func writeEvents(w http.ResponseWriter, payloads ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	for _, p := range payloads {
		fmt.Fprintf(w, "data: %s\n\n", p)
	}
	w.(http.Flusher).Flush()
}

var _ = Describe("Generator", func() {
	var (
		server  *httptest.Server
		handler http.HandlerFunc
		gen     *openai.Generator
	)

	BeforeEach(func() {
		handler = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
		gen = openai.New(openai.Config{BaseURL: server.URL + "/v1/", APIKey: "sk-test", Model: "gpt-test"})
	})

	AfterEach(func() {
		server.Close()
	})

	It("reports its name and model", func() {
		Expect(gen.Name()).To(Equal("openai"))
		Expect(gen.Model()).To(Equal("gpt-test"))
		Expect(openai.New(openai.Config{}).Model()).To(Equal(openai.DefaultModel))
	})

	It("sends a streaming chat completion request", func() {
		type captured struct {
			path string
			auth string
			body map[string]any
		}
		requests := make(chan captured, 1)
		handler = func(w http.ResponseWriter, r *http.Request) {
			c := captured{path: r.URL.Path, auth: r.Header.Get("Authorization")}
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &c.body)
			requests <- c
			writeEvents(w, "[DONE]")
		}

		stream, err := gen.Stream(context.Background(), "summarize this")
		Expect(err).NotTo(HaveOccurred())
		defer stream.Close()

		var got captured
		Eventually(requests).Should(Receive(&got))
		Expect(got.path).To(Equal("/v1/chat/completions"))
		Expect(got.auth).To(Equal("Bearer sk-test"))
		Expect(got.body).To(HaveKeyWithValue("model", "gpt-test"))
		Expect(got.body).To(HaveKeyWithValue("stream", true))
		Expect(got.body["messages"]).To(Equal([]any{
			map[string]any{"role": "user", "content": "summarize this"},
		}))
	})

	It("yields content deltas in order and ends at [DONE]", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			writeEvents(w,
				`{"choices":[{"index":0,"delta":{"role":"assistant"},"finish_reason":null}]}`,
				deltaChunk("Hello"),
				deltaChunk("\nWorld"),
				`{"choices":[],"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}`,
				"[DONE]",
				deltaChunk("ignored"),
			)
		}

		stream, err := gen.Stream(context.Background(), "hi")
		Expect(err).NotTo(HaveOccurred())

		text, err := llm.Drain(stream)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("Hello\nWorld"))
		Expect(llm.UsageOf(stream)).To(Equal(&llm.Usage{PromptTokens: 5, CompletionTokens: 2, TotalTokens: 7}))
	})

	It("treats a closed connection without [DONE] as the end of the stream", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			writeEvents(w, deltaChunk("only"))
		}

		stream, err := gen.Stream(context.Background(), "hi")
		Expect(err).NotTo(HaveOccurred())

		text, err := llm.Drain(stream)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("only"))
	})

	It("fails to open when the upstream rejects the request", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"error":{"message":"Rate limit reached","type":"requests"}}`)
		}

		_, err := gen.Stream(context.Background(), "hi")
		Expect(err).To(MatchError(ContainSubstring("429")))
		Expect(err).To(MatchError(ContainSubstring("Rate limit reached")))
	})

	It("falls back to the raw body for unstructured errors", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, "upstream unavailable\n")
		}

		_, err := gen.Stream(context.Background(), "hi")
		Expect(err).To(MatchError("openai: upstream returned 502: upstream unavailable"))
	})

	It("surfaces an error chunk mid-stream", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			writeEvents(w, deltaChunk("partial"), `{"error":{"message":"overloaded"}}`)
		}

		stream, err := gen.Stream(context.Background(), "hi")
		Expect(err).NotTo(HaveOccurred())

		text, err := llm.Drain(stream)
		Expect(text).To(Equal("partial"))
		Expect(err).To(MatchError("openai: overloaded"))
	})

	It("rejects undecodable chunks", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			writeEvents(w, "{not json")
		}

		stream, err := gen.Stream(context.Background(), "hi")
		Expect(err).NotTo(HaveOccurred())
		defer stream.Close()

		_, err = stream.Recv()
		Expect(err).To(MatchError(ContainSubstring("decoding chunk")))
	})

	It("releases the upstream request on Close", func() {
		released := make(chan struct{})
		handler = func(w http.ResponseWriter, r *http.Request) {
			writeEvents(w, deltaChunk("first"))
			<-r.Context().Done()
			close(released)
		}

		stream, err := gen.Stream(context.Background(), "hi")
		Expect(err).NotTo(HaveOccurred())

		fragment, err := stream.Recv()
		Expect(err).NotTo(HaveOccurred())
		Expect(fragment).To(Equal("first"))

		Expect(stream.Close()).To(Succeed())
		Expect(stream.Close()).To(Succeed())
		Eventually(released).Should(BeClosed())

		_, err = stream.Recv()
		Expect(err).To(MatchError(llm.ErrStreamClosed))
	})
})
