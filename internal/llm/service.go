package llm

import (
	"context"
	"time"
)

// Service defines the interface for LLM operations
type Service interface {
	// Complete returns the model's free-text reply to prompt
	Complete(ctx context.Context, prompt Prompt) (string, error)
	Configure(config Config) error
}

// Prompt is a single-turn conversation
type Prompt struct {
	System string `json:"system,omitempty"`
	User   string `json:"user"`
}

// Config represents LLM service configuration
type Config struct {
	Provider  string        `json:"provider"` // openai, anthropic, ollama
	Model     string        `json:"model"`
	APIKey    string        `json:"api_key,omitempty"`
	BaseURL   string        `json:"base_url,omitempty"`
	Timeout   time.Duration `json:"timeout,omitempty"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

// Provider constants for different LLM providers
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// Model constants for common models
const (
	ModelGPT4oMini = "gpt-4o-mini"
	ModelClaude35  = "claude-3-5-haiku-latest"
	ModelLlama3    = "llama3"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultMaxToken = 1000
)

// Default base URLs per provider
const (
	OpenAIBaseURL    = "https://api.openai.com/v1"
	AnthropicBaseURL = "https://api.anthropic.com/v1"
	OllamaBaseURL    = "http://localhost:11434"
)
