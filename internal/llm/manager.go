package llm

import (
	"context"
	"sort"
	"time"

	"github.com/alexSpace56/data-navigator/internal/errors"
	"github.com/alexSpace56/data-navigator/internal/logging"
)

// Manager handles multiple LLM providers with retries and provider fallback
type Manager struct {
	providers map[string]Service
	config    ManagerConfig
}

// ManagerConfig configures the LLM manager behavior
type ManagerConfig struct {
	DefaultProvider   string        `json:"default_provider"`
	FallbackProviders []string      `json:"fallback_providers"`
	RetryAttempts     int           `json:"retry_attempts"`
	RetryDelay        time.Duration `json:"retry_delay"`
	Timeout           time.Duration `json:"timeout"`
}

// NewManager creates a new LLM manager with the given configuration
func NewManager(config ManagerConfig) *Manager {
	return &Manager{
		providers: make(map[string]Service),
		config:    config,
	}
}

// RegisterProvider registers a new LLM provider
func (m *Manager) RegisterProvider(name string, service Service) error {
	if name == "" {
		return errors.New(errors.ErrTypeValidation, "provider name cannot be empty")
	}

	if service == nil {
		return errors.New(errors.ErrTypeValidation, "service cannot be nil")
	}

	m.providers[name] = service

	return nil
}

// Configure configures a specific provider
func (m *Manager) Configure(config Config) error {
	provider, exists := m.providers[config.Provider]
	if !exists {
		return errors.Newf(errors.ErrTypeConfig, "provider %s not registered", config.Provider)
	}

	return provider.Configure(config)
}

// Complete tries the default provider, then each fallback provider in order
func (m *Manager) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if m.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.Timeout)
		defer cancel()
	}

	var lastErr error

	for _, name := range m.order() {
		provider, exists := m.providers[name]
		if !exists {
			continue
		}

		text, err := m.tryProvider(ctx, provider, prompt)
		if err == nil {
			return text, nil
		}

		lastErr = err

		logging.WithFields(map[string]interface{}{
			"provider": name,
		}).WarnWithErr("LLM provider failed", err)

		if ctx.Err() != nil {
			return "", errors.Wrap(ctx.Err(), errors.ErrTypeTimeout, "LLM request timed out")
		}
	}

	if lastErr == nil {
		return "", errors.New(errors.ErrTypeConfig, "no LLM provider registered")
	}

	return "", errors.Wrap(lastErr, errors.ErrTypeLLM, "all LLM providers failed")
}

func (m *Manager) order() []string {
	names := []string{}
	if m.config.DefaultProvider != "" {
		names = append(names, m.config.DefaultProvider)
	}

	for _, name := range m.config.FallbackProviders {
		if name != m.config.DefaultProvider {
			names = append(names, name)
		}
	}

	return names
}

// tryProvider attempts one provider with retries
func (m *Manager) tryProvider(ctx context.Context, provider Service, prompt Prompt) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= m.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(m.config.RetryDelay):
			}
		}

		text, err := provider.Complete(ctx, prompt)
		if err == nil {
			return text, nil
		}

		lastErr = err

		// config errors will not fix themselves
		if ctx.Err() != nil || errors.GetType(err) == errors.ErrTypeConfig {
			break
		}
	}

	return "", lastErr
}

// GetAvailableProviders returns the registered provider names, sorted
func (m *Manager) GetAvailableProviders() []string {
	providers := make([]string, 0, len(m.providers))
	for name := range m.providers {
		providers = append(providers, name)
	}

	sort.Strings(providers)

	return providers
}

// IsProviderRegistered checks if a provider is registered
func (m *Manager) IsProviderRegistered(name string) bool {
	_, exists := m.providers[name]
	return exists
}

// DefaultManagerConfig returns a sensible default configuration
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		DefaultProvider: ProviderOpenAI,
		RetryAttempts:   1,
		RetryDelay:      time.Second,
		Timeout:         defaultTimeout,
	}
}
