package embedding

import (
	"context"
	"strconv"

	"github.com/alexSpace56/data-navigator/internal/cache"
	"github.com/alexSpace56/data-navigator/internal/logging"
)

// CachedProvider serves repeated texts from a vector store and sends only
// the misses to the wrapped provider, still as a single call.
type CachedProvider struct {
	inner Provider
	store cache.Store
}

// NewCachedProvider wraps inner with store
func NewCachedProvider(inner Provider, store cache.Store) *CachedProvider {
	return &CachedProvider{inner: inner, store: store}
}

func (p *CachedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	dim := p.inner.Dimensions()
	vectors := make([][]float32, len(texts))

	var (
		missing []int
		pending []string
	)

	for i, text := range texts {
		vec, ok, err := p.store.Get(ctx, p.key(text))
		if err != nil {
			// an unreadable cache only costs a provider call
			logging.WithField("provider", p.inner.Name()).WarnWithErr("Failed to read cached embedding", err)
		}

		if ok && len(vec) == dim {
			vectors[i] = vec
			continue
		}

		missing = append(missing, i)
		pending = append(pending, text)
	}

	if len(pending) == 0 {
		return vectors, nil
	}

	fresh, err := p.inner.Embed(ctx, pending)
	if err != nil {
		return nil, err
	}

	if err := Validate(pending, fresh, dim); err != nil {
		return nil, err
	}

	for j, i := range missing {
		vectors[i] = fresh[j]

		if err := p.store.Put(ctx, p.key(pending[j]), fresh[j]); err != nil {
			logging.WithField("provider", p.inner.Name()).WarnWithErr("Failed to cache embedding", err)
		}
	}

	logging.WithFields(map[string]interface{}{
		"provider": p.inner.Name(),
		"cached":   len(texts) - len(pending),
		"embedded": len(pending),
	}).Debug("Embedded texts")

	return vectors, nil
}

func (p *CachedProvider) Dimensions() int { return p.inner.Dimensions() }

func (p *CachedProvider) Name() string { return p.inner.Name() }

func (p *CachedProvider) key(text string) string {
	return cache.Key(p.inner.Name(), strconv.Itoa(p.inner.Dimensions()), text)
}
