package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/alexSpace56/data-navigator/internal/errors"
)

const embedScript = "embed.py"

// commander builds the command that runs a script; python.Environment satisfies it
type commander interface {
	Command(ctx context.Context, scriptName string, args ...string) (*exec.Cmd, error)
}

// LocalProvider runs a sentence-transformers model through the embedded Python script
type LocalProvider struct {
	config Config
	env    commander
}

// embeddingResult represents the JSON response from embed.py
type embeddingResult struct {
	Embeddings [][]float64 `json:"embeddings"`
	Model      string      `json:"model"`
	Dimension  int         `json:"dimension"`
	Count      int         `json:"count"`
}

// NewLocalProvider creates a local provider; the Python environment is prepared on first use
func NewLocalProvider(cfg Config, env commander) *LocalProvider {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	return &LocalProvider{config: cfg, env: env}
}

// Embed runs the whole batch through one script invocation
func (p *LocalProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.timeout())
	defer cancel()

	input, err := json.Marshal(texts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbedding, "failed to marshal input")
	}

	cmd, err := p.env.Command(ctx, embedScript, "--model", p.config.Model, "--stdin")
	if err != nil {
		return nil, err
	}

	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		return nil, wrapCallError(ctx, fmt.Errorf("%w: %s", err, detail), "local embedding failed")
	}

	var result embeddingResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbedding, "failed to parse embedding result")
	}

	if result.Dimension != 0 && result.Dimension != p.config.Dimensions {
		return nil, errors.Newf(
			errors.ErrTypeEmbedding,
			"model %s produces %d dimensions, expected %d",
			result.Model,
			result.Dimension,
			p.config.Dimensions,
		)
	}

	vectors := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		vectors[i] = toFloat32(emb)
	}

	if err := Validate(texts, vectors, p.config.Dimensions); err != nil {
		return nil, err
	}

	return vectors, nil
}

// Dimensions returns the configured model dimension
func (p *LocalProvider) Dimensions() int {
	return p.config.Dimensions
}

// Name returns the provider name for identification
func (p *LocalProvider) Name() string {
	return "local:" + p.config.Model
}
