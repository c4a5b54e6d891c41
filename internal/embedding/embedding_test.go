package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexSpace56/data-navigator/internal/errors"
)

// fakeEnv re-executes the test binary as a stand-in for embed.py
type fakeEnv struct {
	mode string
	dim  int
}

func (f fakeEnv) Command(ctx context.Context, scriptName string, args ...string) (*exec.Cmd, error) {
	cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess", "--")
	cmd.Env = append(os.Environ(),
		"GO_WANT_HELPER_PROCESS=1",
		"HELPER_MODE="+f.mode,
		"HELPER_DIM="+strconv.Itoa(f.dim),
	)

	return cmd, nil
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	var texts []string
	_ = json.NewDecoder(os.Stdin).Decode(&texts)

	dim, _ := strconv.Atoi(os.Getenv("HELPER_DIM"))

	switch os.Getenv("HELPER_MODE") {
	case "fail":
		fmt.Fprint(os.Stderr, "model not found")
		os.Exit(1)
	case "sleep":
		time.Sleep(10 * time.Second)
	case "short":
		texts = texts[:len(texts)-1]
	}

	vectors := make([][]float64, len(texts))
	for i := range texts {
		vectors[i] = make([]float64, dim)
		vectors[i][i%dim] = 1
	}

	_ = json.NewEncoder(os.Stdout).Encode(map[string]any{
		"embeddings": vectors,
		"model":      "fake",
		"dimension":  dim,
		"count":      len(vectors),
	})
	os.Exit(0)
}

func localConfig(dim int) Config {
	cfg := DefaultConfig()
	cfg.Dimensions = dim
	cfg.Timeout = 5 * time.Second

	return cfg
}

func TestLocalProviderEmbed(t *testing.T) {
	p := NewLocalProvider(localConfig(4), fakeEnv{mode: "ok", dim: 4})

	vectors, err := p.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, []float32{0, 1, 0, 0}, vectors[1])
	assert.Equal(t, 4, p.Dimensions())
	assert.Equal(t, "local:"+DefaultModel, p.Name())
}

func TestLocalProviderEmptyInput(t *testing.T) {
	p := NewLocalProvider(localConfig(4), fakeEnv{mode: "fail", dim: 4})

	vectors, err := p.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestLocalProviderFailures(t *testing.T) {
	tests := []struct {
		name     string
		env      fakeEnv
		expected errors.ErrorType
	}{
		{"script error", fakeEnv{mode: "fail", dim: 4}, errors.ErrTypeEmbedding},
		{"wrong count", fakeEnv{mode: "short", dim: 4}, errors.ErrTypeEmbedding},
		{"wrong dimension", fakeEnv{mode: "ok", dim: 8}, errors.ErrTypeEmbedding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewLocalProvider(localConfig(4), tt.env)

			_, err := p.Embed(context.Background(), []string{"a", "b"})
			require.Error(t, err)
			assert.Equal(t, tt.expected, errors.GetType(err))
		})
	}
}

func TestLocalProviderTimeout(t *testing.T) {
	cfg := localConfig(4)
	cfg.Timeout = 200 * time.Millisecond

	p := NewLocalProvider(cfg, fakeEnv{mode: "sleep", dim: 4})

	_, err := p.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeTimeout))
}

func newEmbeddingServer(t *testing.T, dim int, calls *atomic.Int32) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openAIEmbeddingRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		type item struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		}

		// reply out of order to exercise index sorting
		data := make([]item, len(req.Input))
		for i := range req.Input {
			vec := make([]float64, dim)
			vec[0] = float64(len(req.Input[i]))
			data[len(req.Input)-1-i] = item{Index: i, Embedding: vec}
		}

		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
}

func TestOpenAIProviderBatches(t *testing.T) {
	var calls atomic.Int32

	server := newEmbeddingServer(t, 3, &calls)
	defer server.Close()

	p, err := NewOpenAIProvider(Config{
		BaseURL:    server.URL + "/v1",
		APIKey:     "test-key",
		Dimensions: 3,
		BatchSize:  2,
		Timeout:    5 * time.Second,
	})
	require.NoError(t, err)

	vectors, err := p.Embed(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)
	require.Len(t, vectors, 5)

	for i, v := range vectors {
		assert.Equal(t, float32(i+1), v[0], "vector %d out of order", i)
	}

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "openai:text-embedding-3-small", p.Name())
}

func TestOpenAIProviderErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "bad key"}}`))
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(Config{BaseURL: server.URL, APIKey: "x", Dimensions: 3})
	require.NoError(t, err)

	_, err = p.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeEmbedding))
	assert.Contains(t, err.Error(), "bad key")
}

func TestOpenAIProviderTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(Config{
		BaseURL:    server.URL,
		APIKey:     "x",
		Dimensions: 3,
		Timeout:    100 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = p.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeTimeout))
}

func TestOpenAIProviderRequiresKey(t *testing.T) {
	_, err := NewOpenAIProvider(Config{Dimensions: 3})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestHashProvider(t *testing.T) {
	p := NewHashProvider(64)

	vectors, err := p.Embed(context.Background(), []string{
		"Table well_repair_status. Contains fields: id, status, repair_date.",
		"Table well_repair_status. Contains fields: id, status, repair_date.",
		"",
	})
	require.NoError(t, err)
	require.NoError(t, Validate(make([]string, 3), vectors, 64))

	assert.Equal(t, vectors[0], vectors[1], "hashing is deterministic")

	var norm float64
	for _, v := range vectors[0] {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
	assert.Equal(t, make([]float32, 64), vectors[2])
}

func TestHashProviderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHashProvider(8).Embed(ctx, []string{"a"})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate([]string{"a"}, [][]float32{{1, 2}}, 2))

	err := Validate([]string{"a", "b"}, [][]float32{{1, 2}}, 2)
	assert.True(t, errors.IsType(err, errors.ErrTypeEmbedding))

	err = Validate([]string{"a"}, [][]float32{{1, 2, 3}}, 2)
	assert.True(t, errors.IsType(err, errors.ErrTypeEmbedding))
}

func TestEmbedOne(t *testing.T) {
	vec, err := EmbedOne(context.Background(), NewHashProvider(16), "well status")
	require.NoError(t, err)
	assert.Len(t, vec, 16)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Config{Provider: "hash", Dimensions: 32})
	require.NoError(t, err)
	assert.Equal(t, 32, p.Dimensions())

	p, err = NewProvider(Config{Provider: "local", Dimensions: 384})
	require.NoError(t, err)
	assert.IsType(t, &LocalProvider{}, p)

	_, err = NewProvider(Config{Provider: "cohere", Dimensions: 384})
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))

	_, err = NewProvider(Config{Provider: "hash"})
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}
