package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type ollamaProvider struct {
	client *http.Client
	url    string
}

// NewOllamaProvider returns a Provider that talks to an Ollama server.
func NewOllamaProvider(url string) Provider {
	return &ollamaProvider{
		client: &http.Client{},
		url:    url,
	}
}

type ollamaChatResponse struct {
	Model   string  `json:"model"`
	Message Message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error,omitempty"`
	GenerationStats
}

func (p *ollamaProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	payload := *req
	payload.Stream = false
	if payload.Prompt != "" && len(payload.Messages) == 0 {
		payload.Messages = []Message{{Role: "user", Content: payload.Prompt}}
		payload.Prompt = ""
	}

	resp, err := p.post(ctx, "/api/chat", &payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("could not decode response: %w", err)
	}
	if chatResp.Error != "" {
		return nil, &APIError{Provider: "ollama", StatusCode: resp.StatusCode, Message: chatResp.Error}
	}
	return &GenerateResponse{
		Model:    chatResp.Model,
		Response: chatResp.Message.Content,
		Done:     chatResp.Done,
	}, nil
}

func (p *ollamaProvider) GenerateStream(ctx context.Context, req *GenerateRequest, ch chan<- StreamResponse) error {
	defer close(ch)

	payload := *req
	payload.Stream = true
	resp, err := p.post(ctx, "/api/chat", &payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var chunk ollamaChatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return fmt.Errorf("could not decode stream chunk: %w", err)
		}

		out := StreamResponse{Content: chunk.Message.Content, Done: chunk.Done, Error: chunk.Error}
		if chunk.Done {
			stats := chunk.GenerationStats
			out.Stats = &stats
		}

		select {
		case ch <- out:
		case <-ctx.Done():
			return ctx.Err()
		}
		if out.Done || out.Error != "" {
			return nil
		}
	}
	return scanner.Err()
}

// GenerateImage is not offered by Ollama's chat API.
func (p *ollamaProvider) GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResponse, error) {
	return nil, &APIError{Provider: "ollama", StatusCode: http.StatusNotImplemented, Message: "image generation is not supported"}
}

func (p *ollamaProvider) post(ctx context.Context, path string, payload *GenerateRequest) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("could not marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, &APIError{Provider: "ollama", StatusCode: resp.StatusCode, Message: string(bodyBytes)}
	}
	return resp, nil
}
