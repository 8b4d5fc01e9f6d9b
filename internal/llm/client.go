// Package llm provides a unified client for chat and embedding models
// with support for both Ollama (primary) and OpenAI platform (fallback)
package llm

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"

	"inboxai/internal/config"
)

// TokenStream delivers answer fragments as the model produces them.
// Recv returns io.EOF after the final fragment.
type TokenStream interface {
	Recv() (string, error)
	Close() error
}

// Client wraps the OpenAI-compatible API with Ollama as the local
// primary and the OpenAI platform as fallback.
type Client struct {
	primary      *openai.Client
	fallback     *openai.Client
	useOllama    bool
	providerName string
	embedModel   openai.EmbeddingModel

	mu          sync.RWMutex
	chatModel   string
	temperature float32
}

// NewClient creates a model client. Ollama speaks the OpenAI wire
// format under /v1, so both providers share one SDK.
func NewClient(cfg *config.Config) (*Client, error) {
	client := &Client{
		embedModel:  openai.EmbeddingModel(cfg.EmbeddingModel),
		temperature: float32(cfg.LLMTemperature),
	}

	if cfg.UseOllama() {
		ollamaConfig := openai.DefaultConfig("ollama")
		ollamaConfig.BaseURL = strings.TrimRight(cfg.OllamaURL, "/") + "/v1"
		client.primary = openai.NewClientWithConfig(ollamaConfig)
		client.useOllama = true
		client.chatModel = cfg.OllamaModel
		client.providerName = "Ollama"

		fmt.Printf("[LLM_CLIENT] Primary provider: Ollama (endpoint: %s, model: %s)\n", cfg.OllamaURL, cfg.OllamaModel)
	}

	if cfg.HasOpenAIFallback() {
		client.fallback = openai.NewClient(cfg.OpenAIKey)

		if !client.useOllama {
			// Use OpenAI as primary since Ollama is not configured
			client.primary = client.fallback
			client.fallback = nil
			client.chatModel = string(openai.GPT4oMini)
			client.embedModel = openai.SmallEmbedding3
			client.providerName = "OpenAI"

			fmt.Printf("[LLM_CLIENT] Primary provider: OpenAI (Ollama not configured)\n")
		} else {
			fmt.Printf("[LLM_CLIENT] Fallback provider: OpenAI\n")
		}
	}

	if client.primary == nil {
		return nil, fmt.Errorf("no model provider configured: set OLLAMA_URL or OPENAI_API_KEY")
	}

	return client, nil
}

// TestConnection verifies the API connection works
func (c *Client) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := c.Embed(ctx, []string{"test"})
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %v", c.providerName, err)
	}

	fmt.Printf("[LLM_CLIENT] Connection test successful (%s)\n", c.providerName)
	return nil
}

// Embed generates embeddings for the given texts
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.primary.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: c.embedModel,
	})

	if err != nil && c.fallback != nil {
		// Try fallback provider
		fmt.Printf("[LLM_CLIENT] Primary embedding failed, trying fallback: %v\n", err)
		resp, err = c.fallback.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: openai.SmallEmbedding3,
		})
		if err != nil {
			return nil, fmt.Errorf("both providers failed: %v", err)
		}
		fmt.Printf("[LLM_CLIENT] Fallback embedding succeeded\n")
	} else if err != nil {
		return nil, err
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		embeddings[i] = data.Embedding
	}

	return embeddings, nil
}

// Generate runs a chat completion for a single prompt and returns the
// full answer text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.Model(),
		Messages:    []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}},
		Temperature: c.temperatureValue(),
	}

	resp, err := c.primary.CreateChatCompletion(ctx, req)
	if err != nil && c.fallback != nil {
		// Try fallback provider with OpenAI model name
		fmt.Printf("[LLM_CLIENT] Primary chat failed, trying fallback: %v\n", err)
		req.Model = string(openai.GPT4oMini)
		resp, err = c.fallback.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", fmt.Errorf("both providers failed: %v", err)
		}
		fmt.Printf("[LLM_CLIENT] Fallback chat succeeded\n")
	} else if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateStream runs a chat completion and returns the answer as a
// token stream.
func (c *Client) GenerateStream(ctx context.Context, prompt string) (TokenStream, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.Model(),
		Messages:    []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}},
		Temperature: c.temperatureValue(),
		Stream:      true,
	}

	stream, err := c.primary.CreateChatCompletionStream(ctx, req)
	if err != nil && c.fallback != nil {
		fmt.Printf("[LLM_CLIENT] Primary stream failed, trying fallback: %v\n", err)
		req.Model = string(openai.GPT4oMini)
		stream, err = c.fallback.CreateChatCompletionStream(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("both providers failed: %v", err)
		}
	} else if err != nil {
		return nil, err
	}

	return &chatStream{stream: stream}, nil
}

// chatStream adapts the SDK stream to TokenStream, skipping the
// role-only and empty delta frames the wire protocol produces.
type chatStream struct {
	stream *openai.ChatCompletionStream
}

func (s *chatStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			if err == io.EOF {
				return "", io.EOF
			}
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			return delta, nil
		}
	}
}

func (s *chatStream) Close() error {
	return s.stream.Close()
}

// ListModels returns the model ids the primary provider serves.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	resp, err := c.primary.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %v", err)
	}

	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.ID)
	}
	return names, nil
}

// SetModel switches the chat model at runtime.
func (c *Client) SetModel(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chatModel = name
	fmt.Printf("[LLM_CLIENT] Chat model set to %s\n", name)
}

// SetTemperature updates the sampling temperature, clamped to [0, 1].
func (c *Client) SetTemperature(t float64) {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.temperature = float32(t)
}

// Model returns the current chat model name.
func (c *Client) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.chatModel
}

// Temperature returns the current sampling temperature.
func (c *Client) Temperature() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return float64(c.temperature)
}

func (c *Client) temperatureValue() float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.temperature
}

// ProviderName returns the current primary provider name
func (c *Client) ProviderName() string {
	return c.providerName
}

// EmbeddingModelName returns the embedding model name being used
func (c *Client) EmbeddingModelName() string {
	return string(c.embedModel)
}
