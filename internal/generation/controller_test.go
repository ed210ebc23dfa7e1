package generation_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	app_errors "flowchat/backend/internal/errors"
	"flowchat/backend/internal/generation"
	"flowchat/backend/internal/llm"
	mock_llm "flowchat/backend/internal/llm/mocks"
)

// scriptedProvider replays a fixed list of chunks and then returns err.
type scriptedProvider struct {
	chunks []llm.StreamResponse
	err    error
	calls  atomic.Int32
}

func (p *scriptedProvider) Generate(context.Context, *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	return nil, errors.New("not used")
}

func (p *scriptedProvider) GenerateImage(context.Context, *llm.ImageRequest) (*llm.ImageResponse, error) {
	return nil, errors.New("not used")
}

func (p *scriptedProvider) GenerateStream(ctx context.Context, _ *llm.GenerateRequest, ch chan<- llm.StreamResponse) error {
	defer close(ch)
	p.calls.Add(1)
	for _, c := range p.chunks {
		select {
		case ch <- c:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.err
}

func contentChunks(parts ...string) []llm.StreamResponse {
	out := make([]llm.StreamResponse, 0, len(parts))
	for _, p := range parts {
		out = append(out, llm.StreamResponse{Content: p})
	}
	return out
}

func drain(s *generation.Stream) string {
	var b strings.Builder
	for c := range s.Chunks() {
		b.WriteString(c)
	}
	return b.String()
}

func TestController_Generate(t *testing.T) {
	ctx := context.Background()
	req := &llm.GenerateRequest{Model: "m", Messages: []llm.Message{{Role: "user", Content: "hi"}}}

	t.Run("Completes with end marker", func(t *testing.T) {
		provider := &scriptedProvider{chunks: append(contentChunks("a", "b", "c"),
			llm.StreamResponse{Done: true, Stats: &llm.GenerationStats{EvalCount: 3}})}
		stream := generation.NewController(provider).Generate(ctx, req)

		assert.Equal(t, "abc", drain(stream))
		require.NoError(t, stream.Err())
		assert.Equal(t, 3, stream.Delivered())
		require.NotNil(t, stream.Stats())
		assert.Equal(t, 3, stream.Stats().EvalCount)
	})

	t.Run("Cancel keeps the delivered chunks", func(t *testing.T) {
		provider := &scriptedProvider{chunks: append(contentChunks("1", "2", "3", "4", "5"), llm.StreamResponse{Done: true})}
		stream := generation.NewController(provider).Generate(ctx, req)

		var got []string
		for i := 0; i < 2; i++ {
			got = append(got, <-stream.Chunks())
		}
		stream.Cancel()

		err := stream.Err()
		require.ErrorIs(t, err, generation.ErrCancelled)
		assert.False(t, generation.Retryable(err))
		assert.Equal(t, []string{"1", "2"}, got)
		assert.Equal(t, 2, stream.Delivered())
		assert.Empty(t, drain(stream))
	})

	t.Run("Cancelled context never reaches the provider", func(t *testing.T) {
		provider := &scriptedProvider{chunks: contentChunks("x")}
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		stream := generation.NewController(provider).Generate(cctx, req)
		assert.Empty(t, drain(stream))
		assert.ErrorIs(t, stream.Err(), generation.ErrCancelled)
		assert.Zero(t, provider.calls.Load())
	})

	t.Run("Missing end marker is a transport failure", func(t *testing.T) {
		provider := &scriptedProvider{chunks: contentChunks("par", "tial")}
		stream := generation.NewController(provider).Generate(ctx, req)

		assert.Equal(t, "partial", drain(stream))
		err := stream.Err()
		require.ErrorIs(t, err, generation.ErrTransport)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
		assert.True(t, generation.Retryable(err))
		assert.Equal(t, "transport", generation.Kind(err))
	})

	t.Run("Error chunk is a provider failure", func(t *testing.T) {
		provider := &scriptedProvider{chunks: append(contentChunks("a"), llm.StreamResponse{Error: "model exploded"})}
		stream := generation.NewController(provider).Generate(ctx, req)

		assert.Equal(t, "a", drain(stream))
		err := stream.Err()
		require.ErrorIs(t, err, generation.ErrProvider)
		assert.ErrorContains(t, err, "model exploded")
		assert.ErrorIs(t, err, app_errors.ErrUnavailable)
	})

	t.Run("APIError is a provider failure", func(t *testing.T) {
		provider := &scriptedProvider{err: &llm.APIError{Provider: "ollama", StatusCode: 500, Message: "boom"}}
		stream := generation.NewController(provider).Generate(ctx, req)

		drain(stream)
		err := stream.Err()
		require.ErrorIs(t, err, generation.ErrProvider)
		var apiErr *llm.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 500, apiErr.StatusCode)
	})

	t.Run("Connection failure is a transport failure", func(t *testing.T) {
		provider := &scriptedProvider{err: errors.New("dial tcp: connection refused")}
		stream := generation.NewController(provider).Generate(ctx, req)

		drain(stream)
		assert.ErrorIs(t, stream.Err(), generation.ErrTransport)
		assert.Zero(t, stream.Delivered())
	})
}

func TestRetryable(t *testing.T) {
	assert.False(t, generation.Retryable(nil))
	assert.False(t, generation.Retryable(errors.New("plain")))
	assert.False(t, generation.Retryable(&generation.Error{Class: generation.ErrCancelled}))
	assert.True(t, generation.Retryable(&generation.Error{Class: generation.ErrProvider}))
	assert.Equal(t, "", generation.Kind(errors.New("plain")))
}

func TestController_GenerateArtifact(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		provider := mock_llm.NewMockProvider(t)
		provider.On("GenerateImage", ctx, &llm.ImageRequest{Model: "dall-e-3", Prompt: "a red fox"}).
			Return(&llm.ImageResponse{URL: "https://img/fox.png", RevisedPrompt: "a red fox at dawn"}, nil).Once()

		artifact, err := generation.NewController(provider).GenerateArtifact(ctx, "dall-e-3", "  a red fox ")
		require.NoError(t, err)
		assert.Equal(t, "image", artifact.Kind)
		assert.Equal(t, "https://img/fox.png", artifact.URL)
		assert.Equal(t, "a red fox", artifact.Prompt)
		assert.Equal(t, "a red fox at dawn", artifact.RevisedPrompt)
	})

	t.Run("Provider rejection", func(t *testing.T) {
		provider := mock_llm.NewMockProvider(t)
		provider.On("GenerateImage", ctx, mock.Anything).
			Return(nil, &llm.APIError{Provider: "openai", StatusCode: 400, Message: "content policy"}).Once()

		_, err := generation.NewController(provider).GenerateArtifact(ctx, "dall-e-3", "x")
		assert.ErrorIs(t, err, generation.ErrProvider)
	})

	t.Run("Empty prompt", func(t *testing.T) {
		provider := mock_llm.NewMockProvider(t)
		_, err := generation.NewController(provider).GenerateArtifact(ctx, "dall-e-3", "   ")
		assert.ErrorIs(t, err, app_errors.ErrValidation)
	})

	t.Run("Cancelled before start", func(t *testing.T) {
		provider := mock_llm.NewMockProvider(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := generation.NewController(provider).GenerateArtifact(cctx, "dall-e-3", "x")
		assert.ErrorIs(t, err, generation.ErrCancelled)
	})
}
