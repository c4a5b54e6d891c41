package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/alexSpace56/data-navigator/internal/errors"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider calls an OpenAI-compatible /embeddings endpoint, one request per batch
type OpenAIProvider struct {
	config Config
	client *http.Client
}

type openAIEmbeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenAIProvider creates a provider for the configured endpoint
func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIBaseURL
	}

	if cfg.APIKey == "" && strings.HasPrefix(cfg.BaseURL, defaultOpenAIBaseURL) {
		return nil, errors.NewConfigError("API key is required for the openai embedding provider", "api_key")
	}

	if cfg.Model == "" || cfg.Model == DefaultModel {
		cfg.Model = "text-embedding-3-small"
	}

	return &OpenAIProvider{
		config: cfg,
		// the per-call context carries the deadline; the client bound is a backstop
		client: &http.Client{Timeout: 2 * cfg.timeout()},
	}, nil
}

// Embed sends texts in batches of the configured size and concatenates the results
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.timeout())
	defer cancel()

	vectors := make([][]float32, 0, len(texts))
	size := p.config.batchSize()

	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))

		batch, err := p.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}

		vectors = append(vectors, batch...)
	}

	if err := Validate(texts, vectors, p.config.Dimensions); err != nil {
		return nil, err
	}

	return vectors, nil
}

func (p *OpenAIProvider) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(openAIEmbeddingRequest{
		Input:      texts,
		Model:      p.config.Model,
		Dimensions: p.config.Dimensions,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbedding, "failed to marshal request")
	}

	url := strings.TrimSuffix(p.config.BaseURL, "/") + "/embeddings"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbedding, "failed to create request")
	}

	req.Header.Set("Content-Type", "application/json")

	if p.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, wrapCallError(ctx, err, "embedding request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapCallError(ctx, err, "failed to read embedding response")
	}

	var parsed openAIEmbeddingResponse
	if err := json.Unmarshal(data, &parsed); err != nil && resp.StatusCode == http.StatusOK {
		return nil, errors.Wrap(err, errors.ErrTypeEmbedding, "failed to decode embedding response")
	}

	if resp.StatusCode != http.StatusOK {
		message := resp.Status
		if parsed.Error != nil && parsed.Error.Message != "" {
			message = fmt.Sprintf("%s: %s", resp.Status, parsed.Error.Message)
		}

		return nil, errors.Newf(errors.ErrTypeEmbedding, "embeddings API error: %s", message)
	}

	sort.SliceStable(parsed.Data, func(i, j int) bool {
		return parsed.Data[i].Index < parsed.Data[j].Index
	})

	vectors := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		vectors[i] = toFloat32(d.Embedding)
	}

	return vectors, nil
}

// Dimensions returns the requested vector dimension
func (p *OpenAIProvider) Dimensions() int {
	return p.config.Dimensions
}

// Name returns the provider name for identification
func (p *OpenAIProvider) Name() string {
	return "openai:" + p.config.Model
}
