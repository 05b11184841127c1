package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

type OllamaConfig struct {
	// Host is empty to read OLLAMA_HOST from the environment.
	Host           string
	ChatModel      string
	EmbeddingModel string
	Temperature    float64
	MaxTokens      int
}

type OllamaClient struct {
	client *api.Client
	cfg    OllamaConfig
}

func NewOllamaClient(cfg OllamaConfig) (*OllamaClient, error) {
	if cfg.ChatModel == "" || cfg.EmbeddingModel == "" {
		return nil, fmt.Errorf("ollama chat and embedding models are required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	var client *api.Client
	if cfg.Host == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama client from environment failed: %w", err)
		}
		client = c
	} else {
		u, err := url.Parse(cfg.Host)
		if err != nil {
			return nil, fmt.Errorf("parse ollama host failed: %w", err)
		}
		client = api.NewClient(u, http.DefaultClient)
	}
	return &OllamaClient{client: client, cfg: cfg}, nil
}

func (c *OllamaClient) Complete(ctx context.Context, system, user string) (string, error) {
	if strings.TrimSpace(user) == "" {
		return "", ErrEmptyInput
	}
	messages := make([]api.Message, 0, 2)
	if system != "" {
		messages = append(messages, api.Message{Role: "system", Content: system})
	}
	messages = append(messages, api.Message{Role: "user", Content: user})

	stream := false
	req := &api.ChatRequest{
		Model:    c.cfg.ChatModel,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": c.cfg.Temperature,
			"num_predict": c.cfg.MaxTokens,
		},
	}

	var sb strings.Builder
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat failed: %w", err)
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *OllamaClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("embedding input %d: %w", i, ErrEmptyInput)
		}
	}
	resp, err := c.client.Embed(ctx, &api.EmbedRequest{Model: c.cfg.EmbeddingModel, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("ollama embed failed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d vectors for %d inputs: %w", len(resp.Embeddings), len(texts), ErrEmptyResponse)
	}
	return resp.Embeddings, nil
}
