package llm

// Usage contains token counts for one generation call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// UsageReporter is implemented by streams that learn token counts from the
// provider, usually with the final chunk.
type UsageReporter interface {
	// Usage returns nil until the provider has reported usage.
	Usage() *Usage
}

// UsageOf returns the usage reported by stream, or nil when the stream does
// not report usage or has not done so yet.
func UsageOf(stream Stream) *Usage {
	if r, ok := stream.(UsageReporter); ok {
		return r.Usage()
	}
	return nil
}
