package llm

import (
	"os"

	"github.com/alexSpace56/data-navigator/internal/config"
)

// providerKeyEnv names the conventional environment variable for each provider's key
var providerKeyEnv = map[string]string{
	ProviderOpenAI:    "OPENAI_API_KEY",
	ProviderAnthropic: "ANTHROPIC_API_KEY",
}

// FromConfig converts application settings into a client configuration.
// A missing API key or Ollama base URL falls back to the provider's
// conventional environment variable.
func FromConfig(cfg config.LLMConfig) Config {
	c := Config{
		Provider: cfg.Provider,
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Timeout:  config.Duration(cfg.Timeout, defaultTimeout),
	}

	if c.APIKey == "" {
		if name, ok := providerKeyEnv[c.Provider]; ok {
			c.APIKey = os.Getenv(name)
		}
	}

	if c.Provider == ProviderOllama && c.BaseURL == "" {
		c.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}

	if c.Model == "" {
		switch c.Provider {
		case ProviderAnthropic:
			c.Model = ModelClaude35
		case ProviderOllama:
			c.Model = ModelLlama3
		default:
			c.Model = ModelGPT4oMini
		}
	}

	return c
}

// NewFromConfig builds a manager with the configured provider registered and ready
func NewFromConfig(cfg config.LLMConfig) (*Manager, error) {
	clientConfig := FromConfig(cfg)

	managerConfig := DefaultManagerConfig()
	managerConfig.DefaultProvider = clientConfig.Provider
	managerConfig.Timeout = clientConfig.Timeout

	manager := NewManager(managerConfig)

	client := NewClient(clientConfig)
	if err := manager.RegisterProvider(clientConfig.Provider, client); err != nil {
		return nil, err
	}

	if err := manager.Configure(clientConfig); err != nil {
		return nil, err
	}

	return manager, nil
}
