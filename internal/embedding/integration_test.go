//go:build integration

package embedding

import (
	"context"
	"fmt"
	"math"
	"os"
	"testing"
	"time"

	"github.com/alexSpace56/data-navigator/internal/python"
)

var testProvider *LocalProvider

func TestMain(m *testing.M) {
	if _, err := python.FindUV(); err != nil {
		fmt.Fprintf(os.Stderr, "uv not installed, skipping integration tests\n")
		os.Exit(0)
	}

	cacheDir, err := os.MkdirTemp("", "embedding-integration-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1)
	}

	cfg := DefaultConfig()
	cfg.Timeout = 10 * time.Minute
	testProvider = NewLocalProvider(cfg, python.NewEnvironment(cacheDir))

	code := m.Run()
	_ = os.RemoveAll(cacheDir)
	os.Exit(code)
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}

	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestLocalProviderRanksRelatedDescriptions(t *testing.T) {
	vectors, err := testProvider.Embed(context.Background(), []string{
		"Column repair date. Required field.",
		"When was the well repaired?",
		"Trigger trg_touch. Purpose: Automatically updates the last modification time",
	})
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}

	related := cosine(vectors[0], vectors[1])
	unrelated := cosine(vectors[2], vectors[1])

	if related <= unrelated {
		t.Errorf("expected repair column closer to the question: related=%.3f unrelated=%.3f", related, unrelated)
	}
}

func TestLocalProviderMultilingual(t *testing.T) {
	vectors, err := testProvider.Embed(context.Background(), []string{
		"Дата ремонта. Обязательное поле.",
		"repair date",
	})
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}

	if len(vectors[0]) != DefaultDimensions {
		t.Errorf("expected %d dimensions, got %d", DefaultDimensions, len(vectors[0]))
	}
}
