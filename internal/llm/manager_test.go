package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alexSpace56/data-navigator/internal/errors"
)

// MockService implements the Service interface for testing
type MockService struct {
	mock.Mock
}

func (m *MockService) Complete(ctx context.Context, prompt Prompt) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockService) Configure(config Config) error {
	return m.Called(config).Error(0)
}

func testManagerConfig() ManagerConfig {
	return ManagerConfig{
		DefaultProvider:   "primary",
		FallbackProviders: []string{"secondary"},
		RetryAttempts:     1,
		RetryDelay:        time.Millisecond,
		Timeout:           time.Second,
	}
}

func TestManager_RegisterProvider(t *testing.T) {
	manager := NewManager(DefaultManagerConfig())

	require.NoError(t, manager.RegisterProvider("b", &MockService{}))
	require.NoError(t, manager.RegisterProvider("a", &MockService{}))

	assert.Error(t, manager.RegisterProvider("", &MockService{}))
	assert.Error(t, manager.RegisterProvider("c", nil))

	assert.Equal(t, []string{"a", "b"}, manager.GetAvailableProviders())
	assert.True(t, manager.IsProviderRegistered("a"))
	assert.False(t, manager.IsProviderRegistered("c"))
}

func TestManager_Configure(t *testing.T) {
	manager := NewManager(testManagerConfig())

	primary := &MockService{}
	primary.On("Configure", mock.Anything).Return(nil).Once()
	require.NoError(t, manager.RegisterProvider("primary", primary))

	require.NoError(t, manager.Configure(Config{Provider: "primary"}))
	primary.AssertExpectations(t)

	err := manager.Configure(Config{Provider: "missing"})
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestManager_CompleteUsesDefault(t *testing.T) {
	manager := NewManager(testManagerConfig())

	primary := &MockService{}
	primary.On("Complete", mock.Anything, Prompt{User: "q"}).Return("answer", nil).Once()

	secondary := &MockService{}

	require.NoError(t, manager.RegisterProvider("primary", primary))
	require.NoError(t, manager.RegisterProvider("secondary", secondary))

	text, err := manager.Complete(context.Background(), Prompt{User: "q"})
	require.NoError(t, err)
	assert.Equal(t, "answer", text)

	primary.AssertExpectations(t)
	secondary.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestManager_CompleteRetriesThenFallsBack(t *testing.T) {
	manager := NewManager(testManagerConfig())

	primary := &MockService{}
	primary.On("Complete", mock.Anything, mock.Anything).
		Return("", errors.New(errors.ErrTypeLLM, "overloaded")).Twice()

	secondary := &MockService{}
	secondary.On("Complete", mock.Anything, mock.Anything).Return("from secondary", nil).Once()

	require.NoError(t, manager.RegisterProvider("primary", primary))
	require.NoError(t, manager.RegisterProvider("secondary", secondary))

	text, err := manager.Complete(context.Background(), Prompt{User: "q"})
	require.NoError(t, err)
	assert.Equal(t, "from secondary", text)

	primary.AssertNumberOfCalls(t, "Complete", 2)
	secondary.AssertExpectations(t)
}

func TestManager_CompleteDoesNotRetryConfigErrors(t *testing.T) {
	cfg := testManagerConfig()
	cfg.FallbackProviders = nil
	manager := NewManager(cfg)

	primary := &MockService{}
	primary.On("Complete", mock.Anything, mock.Anything).
		Return("", errors.New(errors.ErrTypeConfig, "not configured")).Once()
	require.NoError(t, manager.RegisterProvider("primary", primary))

	_, err := manager.Complete(context.Background(), Prompt{User: "q"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrTypeLLM, errors.GetType(err))
	primary.AssertNumberOfCalls(t, "Complete", 1)
}

func TestManager_CompleteNoProviders(t *testing.T) {
	manager := NewManager(testManagerConfig())

	_, err := manager.Complete(context.Background(), Prompt{User: "q"})
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestManager_CompleteTimeout(t *testing.T) {
	cfg := testManagerConfig()
	cfg.Timeout = 50 * time.Millisecond
	manager := NewManager(cfg)

	primary := &MockService{}
	primary.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return("", context.DeadlineExceeded)
	require.NoError(t, manager.RegisterProvider("primary", primary))

	_, err := manager.Complete(context.Background(), Prompt{User: "q"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrTypeTimeout, errors.GetType(err))
}
