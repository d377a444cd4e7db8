package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures the chat completion client
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	Temperature  float32
	MaxTokens    int
	SystemPrompt string
}

// DefaultSystemPrompt frames the model as a listings writer
const DefaultSystemPrompt = "You are a helpful assistant that generates informative and accurate event listings."

// OpenAIClient generates newsletter text with OpenAI chat completions
type OpenAIClient struct {
	client       *openai.Client
	model        string
	temperature  float32
	maxTokens    int
	systemPrompt string
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}

	return &OpenAIClient{
		client:       openai.NewClientWithConfig(clientConfig),
		model:        model,
		temperature:  cfg.Temperature,
		maxTokens:    maxTokens,
		systemPrompt: systemPrompt,
	}, nil
}

// Generate sends prompt as the user message and returns the reply text
func (o *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	startTime := time.Now()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: o.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices from OpenAI")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty response from OpenAI")
	}

	log.Printf("[OPENAI] %s replied with %d chars in %v (%d tokens, ~$%.4f)",
		o.model, len(content), time.Since(startTime), resp.Usage.TotalTokens, o.calculateCost(resp.Usage))
	return content, nil
}

// calculateCost estimates request cost in USD from per-million-token prices
func (o *OpenAIClient) calculateCost(usage openai.Usage) float64 {
	inputPrice, outputPrice := 0.15, 0.60 // gpt-4o-mini
	switch {
	case strings.HasPrefix(o.model, "gpt-4o-mini"):
	case strings.HasPrefix(o.model, "gpt-4o"):
		inputPrice, outputPrice = 2.50, 10.00
	case strings.HasPrefix(o.model, "gpt-4"):
		inputPrice, outputPrice = 30.00, 60.00
	}
	return float64(usage.PromptTokens)*inputPrice/1e6 + float64(usage.CompletionTokens)*outputPrice/1e6
}

// GetModel returns the current OpenAI model being used
func (o *OpenAIClient) GetModel() string {
	return o.model
}
