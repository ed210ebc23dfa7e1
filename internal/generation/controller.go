package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	app_errors "flowchat/backend/internal/errors"
	"flowchat/backend/internal/llm"
	"flowchat/backend/internal/metrics"
	"flowchat/backend/internal/model"
)

// Controller runs generations against a provider. It holds no per-request
// state; every call to Generate returns an independent Stream.
type Controller struct {
	provider llm.Provider
}

func NewController(provider llm.Provider) *Controller {
	return &Controller{provider: provider}
}

// Stream is one in-flight generation.
type Stream struct {
	chunks chan string
	done   chan struct{}
	cancel context.CancelFunc

	delivered int
	stats     *llm.GenerationStats
	err       error
}

// Chunks delivers content in arrival order. It is closed when the generation
// ends for any reason.
func (s *Stream) Chunks() <-chan string { return s.chunks }

// Err blocks until the generation has ended and returns nil on completion or
// a *Error otherwise.
func (s *Stream) Err() error {
	<-s.done
	return s.err
}

// Cancel stops the generation. Chunks already delivered stay delivered.
func (s *Stream) Cancel() { s.cancel() }

// Delivered is the number of chunks handed to the consumer. Valid after Err returns.
func (s *Stream) Delivered() int {
	<-s.done
	return s.delivered
}

// Stats are the provider counters reported with the end marker, if any.
func (s *Stream) Stats() *llm.GenerationStats {
	<-s.done
	return s.stats
}

// Generate starts a streaming generation. No timeout is applied; ctx and
// Stream.Cancel are the only ways to stop it early.
func (c *Controller) Generate(ctx context.Context, req *llm.GenerateRequest) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		chunks: make(chan string),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	if err := ctx.Err(); err != nil {
		s.finish(&Error{Class: ErrCancelled, Err: err})
		return s
	}

	go s.run(ctx, c.provider, req)
	return s
}

func (s *Stream) run(ctx context.Context, provider llm.Provider, req *llm.GenerateRequest) {
	raw := make(chan llm.StreamResponse)
	errc := make(chan error, 1)
	streamReq := *req
	streamReq.Stream = true
	go func() { errc <- provider.GenerateStream(ctx, &streamReq, raw) }()

	var (
		sawDone  bool
		inStream string
		stopped  bool
	)
	for chunk := range raw {
		if stopped {
			continue
		}
		if chunk.Error != "" {
			inStream = chunk.Error
			stopped = true
			continue
		}
		if chunk.Content != "" {
			select {
			case s.chunks <- chunk.Content:
				s.delivered++
				metrics.GenerationChunks.Inc()
			case <-ctx.Done():
				stopped = true
				continue
			}
		}
		if chunk.Done {
			sawDone = true
			s.stats = chunk.Stats
			stopped = true
		}
	}
	providerErr := <-errc

	switch {
	case sawDone:
		s.finish(nil)
	case ctx.Err() != nil:
		s.finish(&Error{Class: ErrCancelled, Err: ctx.Err()})
	case inStream != "":
		s.finish(&Error{Class: ErrProvider, Err: errors.New(inStream)})
	case providerErr != nil:
		s.finish(classify(providerErr, nil))
	default:
		s.finish(&Error{Class: ErrTransport, Err: fmt.Errorf("stream ended without completion marker: %w", io.ErrUnexpectedEOF)})
	}
}

func (s *Stream) finish(err *Error) {
	outcome := "completed"
	if err != nil {
		s.err = err
		outcome = err.Kind()
		if err.Class != ErrCancelled {
			slog.Warn("Generation failed", "class", outcome, "delivered", s.delivered, "error", err.Err)
		}
	}
	metrics.GenerationsTotal.WithLabelValues(outcome).Inc()
	s.cancel()
	close(s.chunks)
	close(s.done)
}

// GenerateArtifact produces a single image artifact. Failures are classified
// like streaming failures.
func (c *Controller) GenerateArtifact(ctx context.Context, imageModel, prompt string) (*model.Artifact, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("%w: artifact prompt is empty", app_errors.ErrValidation)
	}
	if err := ctx.Err(); err != nil {
		return nil, &Error{Class: ErrCancelled, Err: err}
	}

	resp, err := c.provider.GenerateImage(ctx, &llm.ImageRequest{Model: imageModel, Prompt: prompt})
	if err != nil {
		return nil, classify(err, ctx.Err())
	}
	return &model.Artifact{
		Kind:          "image",
		URL:           resp.URL,
		Prompt:        prompt,
		RevisedPrompt: resp.RevisedPrompt,
		CreatedAt:     time.Now().UTC(),
	}, nil
}
