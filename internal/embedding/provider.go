package embedding

import (
	"context"
	"time"

	"github.com/alexSpace56/data-navigator/internal/errors"
	"github.com/alexSpace56/data-navigator/internal/python"
)

// Provider turns texts into fixed-dimension vectors
type Provider interface {
	// Embed returns one vector per text, in input order
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of every vector this provider returns
	Dimensions() int

	// Name identifies the provider and model
	Name() string
}

// Config represents embedding provider configuration
type Config struct {
	Provider   string        `json:"provider"` // local, openai, hash
	Model      string        `json:"model"`
	Dimensions int           `json:"dimensions"`
	BaseURL    string        `json:"base_url"`
	APIKey     string        `json:"-"`
	Timeout    time.Duration `json:"timeout"`
	BatchSize  int           `json:"batch_size"`
	CacheDir   string        `json:"cache_dir"`
}

const (
	DefaultModel      = "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2"
	DefaultDimensions = 384
	defaultTimeout    = 60 * time.Second
	defaultBatchSize  = 256
)

// DefaultConfig returns default embedding configuration
func DefaultConfig() Config {
	return Config{
		Provider:   "local",
		Model:      DefaultModel,
		Dimensions: DefaultDimensions,
		Timeout:    defaultTimeout,
		BatchSize:  defaultBatchSize,
	}
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeout
	}

	return c.Timeout
}

func (c Config) batchSize() int {
	if c.BatchSize <= 0 {
		return defaultBatchSize
	}

	return c.BatchSize
}

// NewProvider builds the provider named in the configuration
func NewProvider(cfg Config) (Provider, error) {
	if cfg.Dimensions <= 0 {
		return nil, errors.NewConfigError("embedding dimensions must be positive", "dimensions")
	}

	switch cfg.Provider {
	case "local", "":
		return NewLocalProvider(cfg, python.NewEnvironment(cfg.CacheDir)), nil
	case "openai":
		return NewOpenAIProvider(cfg)
	case "hash":
		return NewHashProvider(cfg.Dimensions), nil
	default:
		return nil, errors.NewConfigError("unsupported embedding provider: "+cfg.Provider, "provider")
	}
}

// Validate checks that vectors line up with texts and all have dimension dim
func Validate(texts []string, vectors [][]float32, dim int) error {
	if len(vectors) != len(texts) {
		return errors.Newf(
			errors.ErrTypeEmbedding,
			"expected %d embeddings, got %d",
			len(texts),
			len(vectors),
		)
	}

	for i, v := range vectors {
		if len(v) != dim {
			return errors.Newf(
				errors.ErrTypeEmbedding,
				"embedding %d has dimension %d, expected %d",
				i,
				len(v),
				dim,
			)
		}
	}

	return nil
}

// EmbedOne embeds a single text as a batch of one
func EmbedOne(ctx context.Context, p Provider, text string) ([]float32, error) {
	vectors, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	if err := Validate([]string{text}, vectors, p.Dimensions()); err != nil {
		return nil, err
	}

	return vectors[0], nil
}

// wrapCallError classifies a failed provider call, preferring the context's verdict
func wrapCallError(ctx context.Context, err error, message string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Wrap(ctxErr, errors.ErrTypeTimeout, message)
	}

	return errors.Wrap(err, errors.ErrTypeEmbedding, message)
}

func toFloat32(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}

	return out
}
