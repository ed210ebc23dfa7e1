package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
)

type openaiProvider struct {
	client *openai.Client
}

// NewOpenAIProvider returns a Provider for OpenAI or any API compatible with it.
func NewOpenAIProvider(apiKey, baseURL string) Provider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &openaiProvider{client: openai.NewClientWithConfig(cfg)}
}

func (p *openaiProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	resp, err := p.client.CreateChatCompletion(ctx, toChatCompletionRequest(req, false))
	if err != nil {
		return nil, wrapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &APIError{Provider: "openai", StatusCode: 200, Message: "empty chat response"}
	}
	return &GenerateResponse{
		Model:    resp.Model,
		Response: resp.Choices[0].Message.Content,
		Done:     true,
	}, nil
}

func (p *openaiProvider) GenerateStream(ctx context.Context, req *GenerateRequest, ch chan<- StreamResponse) error {
	defer close(ch)

	stream, err := p.client.CreateChatCompletionStream(ctx, toChatCompletionRequest(req, true))
	if err != nil {
		return wrapOpenAIError(err)
	}
	defer stream.Close()

	finished := false
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			if !finished {
				return fmt.Errorf("openai stream closed before finish: %w", io.ErrUnexpectedEOF)
			}
			select {
			case ch <- StreamResponse{Done: true}:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		}
		if err != nil {
			return wrapOpenAIError(err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		choice := resp.Choices[0]
		if choice.FinishReason != "" {
			finished = true
		}
		if choice.Delta.Content == "" {
			continue
		}
		select {
		case ch <- StreamResponse{Content: choice.Delta.Content}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *openaiProvider) GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResponse, error) {
	size := req.Size
	if size == "" {
		size = openai.CreateImageSize1024x1024
	}
	resp, err := p.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         req.Prompt,
		Model:          req.Model,
		Size:           size,
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return nil, wrapOpenAIError(err)
	}
	if len(resp.Data) == 0 {
		return nil, &APIError{Provider: "openai", StatusCode: 200, Message: "empty image response"}
	}
	return &ImageResponse{URL: resp.Data[0].URL, RevisedPrompt: resp.Data[0].RevisedPrompt}, nil
}

func toChatCompletionRequest(req *GenerateRequest, stream bool) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	if req.Prompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})
	}

	out := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   stream,
	}
	if opts := req.Options; opts != nil {
		if opts.Temperature != nil {
			out.Temperature = float32(*opts.Temperature)
		}
		if opts.TopP != nil {
			out.TopP = float32(*opts.TopP)
		}
		out.Seed = opts.Seed
		out.Stop = opts.Stop
	}
	return out
}

// wrapOpenAIError turns explicit API failures into *APIError and leaves
// transport failures as plain wrapped errors.
func wrapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Provider: "openai", StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &APIError{Provider: "openai", StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error()}
	}
	return fmt.Errorf("openai request failed: %w", err)
}
