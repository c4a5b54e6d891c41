package testutil

import (
	"context"
	"sync"

	"github.com/alexSpace56/data-navigator/internal/embedding"
	"github.com/alexSpace56/data-navigator/internal/errors"
	"github.com/alexSpace56/data-navigator/internal/schema"
)

// Operation keys for error injection
const (
	OpTables     = "tables"
	OpProcedures = "procedures"
	OpTriggers   = "triggers"
	OpEmbed      = "embed"
)

// MockSource implements schema.Source for testing with error injection
type MockSource struct {
	mu sync.RWMutex

	tables     []schema.Table
	procedures []schema.Routine
	triggers   []schema.Routine
	errors     map[string]error
	callCounts map[string]int
	closed     bool
}

// MockOption is a functional option for configuring MockSource
type MockOption func(*MockSource)

// WithTables sets the tables returned by FetchTables
func WithTables(tables ...schema.Table) MockOption {
	return func(m *MockSource) {
		m.tables = tables
	}
}

// WithProcedures sets the routines returned by FetchProcedures
func WithProcedures(procs ...schema.Routine) MockOption {
	return func(m *MockSource) {
		m.procedures = procs
	}
}

// WithTriggers sets the routines returned by FetchTriggers
func WithTriggers(triggers ...schema.Routine) MockOption {
	return func(m *MockSource) {
		m.triggers = triggers
	}
}

// WithError makes the operation named by key fail with err
func WithError(key string, err error) MockOption {
	return func(m *MockSource) {
		m.errors[key] = err
	}
}

// NewMockSource creates a new mock schema source with the given options
func NewMockSource(opts ...MockOption) *MockSource {
	mock := &MockSource{
		errors:     make(map[string]error),
		callCounts: make(map[string]int),
	}

	for _, opt := range opts {
		opt(mock)
	}

	return mock
}

func (m *MockSource) record(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCounts[op]++

	return m.errors[op]
}

func (m *MockSource) FetchTables(context.Context) ([]schema.Table, error) {
	if err := m.record(OpTables); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.tables, nil
}

func (m *MockSource) FetchProcedures(context.Context) ([]schema.Routine, error) {
	if err := m.record(OpProcedures); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.procedures, nil
}

func (m *MockSource) FetchTriggers(context.Context) ([]schema.Routine, error) {
	if err := m.record(OpTriggers); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.triggers, nil
}

func (m *MockSource) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	return nil
}

// SetTables replaces the tables between runs
func (m *MockSource) SetTables(tables ...schema.Table) {
	m.mu.Lock()
	m.tables = tables
	m.mu.Unlock()
}

// CallCount returns how many times op was called
func (m *MockSource) CallCount(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.callCounts[op]
}

// Closed reports whether Close was called
func (m *MockSource) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.closed
}

// MockProvider wraps the hash provider with call recording and error injection
type MockProvider struct {
	mu sync.Mutex

	inner    *embedding.HashProvider
	err      error
	calls    int
	batches  [][]string
	override func(texts []string) [][]float32
}

// ProviderOption configures MockProvider
type ProviderOption func(*MockProvider)

// WithEmbedError makes every Embed call fail
func WithEmbedError(err error) ProviderOption {
	return func(p *MockProvider) {
		p.err = err
	}
}

// WithVectors replaces the hash vectors with a fixed function of the input
func WithVectors(fn func(texts []string) [][]float32) ProviderOption {
	return func(p *MockProvider) {
		p.override = fn
	}
}

// NewMockProvider creates a provider of the given dimension
func NewMockProvider(dim int, opts ...ProviderOption) *MockProvider {
	p := &MockProvider{inner: embedding.NewHashProvider(dim)}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *MockProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	p.calls++
	p.batches = append(p.batches, append([]string(nil), texts...))
	err, override := p.err, p.override
	p.mu.Unlock()

	if err != nil {
		return nil, err
	}

	if override != nil {
		return override(texts), nil
	}

	return p.inner.Embed(ctx, texts)
}

func (p *MockProvider) Dimensions() int { return p.inner.Dimensions() }

func (p *MockProvider) Name() string { return "mock" }

// Calls returns the number of Embed calls
func (p *MockProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.calls
}

// Batches returns every batch of texts passed to Embed
func (p *MockProvider) Batches() [][]string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([][]string(nil), p.batches...)
}

// ErrIntrospection is the error engines without routine catalogs return
var ErrIntrospection = errors.New(errors.ErrTypeIntrospection, "unsupported by engine")
