package llm

import (
	"context"
	"fmt"
)

// Provider defines the interface for interacting with a language model backend.
type Provider interface {
	// Generate performs a single non-streaming completion.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
	// GenerateStream writes chunks to ch in arrival order and closes ch when it
	// returns. A chunk with Done set marks a clean end of the stream.
	GenerateStream(ctx context.Context, req *GenerateRequest, ch chan<- StreamResponse) error
	// GenerateImage produces a single image artifact for a prompt.
	GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResponse, error)
}

// Message is one turn of model context.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RequestOptions are optional sampling parameters. Nil fields keep provider defaults.
type RequestOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	Seed        *int     `json:"seed,omitempty"`
	NumCtx      *int     `json:"num_ctx,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	// System overrides the configured system prompt for one request.
	System *string `json:"-"`
}

// GenerateRequest is a provider-neutral completion request.
type GenerateRequest struct {
	Model    string          `json:"model"`
	Prompt   string          `json:"prompt,omitempty"`
	Messages []Message       `json:"messages,omitempty"`
	Stream   bool            `json:"stream"`
	Options  *RequestOptions `json:"options,omitempty"`
}

// GenerateResponse is the result of a non-streaming completion.
type GenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// GenerationStats are the timing and token counters reported with the final chunk.
type GenerationStats struct {
	TotalDuration   int64 `json:"total_duration,omitempty"`
	LoadDuration    int64 `json:"load_duration,omitempty"`
	PromptEvalCount int   `json:"prompt_eval_count,omitempty"`
	EvalCount       int   `json:"eval_count,omitempty"`
	EvalDuration    int64 `json:"eval_duration,omitempty"`
}

// StreamResponse is a single chunk of a streamed completion.
type StreamResponse struct {
	Content string
	Done    bool
	Stats   *GenerationStats
	// Error carries a failure reported by the provider inside the stream.
	Error string
}

// ImageRequest asks the provider for one generated image.
type ImageRequest struct {
	Model  string
	Prompt string
	Size   string
}

// ImageResponse references a generated image.
type ImageResponse struct {
	URL           string
	RevisedPrompt string
}

// APIError is an explicit failure returned by the provider, as opposed to a
// broken connection.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}
