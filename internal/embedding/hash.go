package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// HashProvider embeds texts offline by hashing word tokens into buckets.
// Texts sharing words land close together, which is enough for development
// and tests; it carries no semantics beyond token overlap.
type HashProvider struct {
	dim int
}

// NewHashProvider creates a hashing provider of the given dimension
func NewHashProvider(dim int) *HashProvider {
	if dim <= 0 {
		dim = DefaultDimensions
	}

	return &HashProvider{dim: dim}
}

// Embed hashes every text; it never fails except on a cancelled context
func (p *HashProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, wrapCallError(ctx, err, "hash embedding cancelled")
		}

		vectors[i] = p.vector(text)
	}

	return vectors, nil
}

func (p *HashProvider) vector(text string) []float32 {
	vec := make([]float32, p.dim)

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for _, token := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum64()

		bucket := int(sum % uint64(p.dim))
		if sum&(1<<63) != 0 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}

	if norm == 0 {
		return vec
	}

	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}

	return vec
}

// Dimensions returns the vector dimension
func (p *HashProvider) Dimensions() int {
	return p.dim
}

// Name returns the provider name for identification
func (p *HashProvider) Name() string {
	return "hash:" + strconv.Itoa(p.dim)
}
