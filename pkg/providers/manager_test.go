package providers_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Roska-x/Ninjutsu/pkg/errors"
	"github.com/Roska-x/Ninjutsu/pkg/optimizer"
	"github.com/Roska-x/Ninjutsu/pkg/providers"
	"github.com/Roska-x/Ninjutsu/pkg/testutil"
)

func plan(query string) optimizer.QueryPlan {
	return optimizer.QueryPlan{Engine: "test", Query: query}
}

func TestSelectExplicit(t *testing.T) {
	registry := providers.NewRegistry()
	registry.Register(testutil.NewMockProvider("google"))
	registry.Register(testutil.NewMockProvider("serper").Unconfigured())
	manager := providers.NewManager(registry)

	t.Run("configured engine", func(t *testing.T) {
		selected, err := manager.Select(providers.SelectionMode("google"))
		require.NoError(t, err)
		require.Len(t, selected, 1)
		assert.Equal(t, "google", selected[0].Name())
	})

	t.Run("unknown engine", func(t *testing.T) {
		_, err := manager.Select(providers.SelectionMode("bing"))
		require.Error(t, err)
		var cfgErr *errors.ConfigError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("unconfigured engine", func(t *testing.T) {
		_, err := manager.Select(providers.SelectionMode("serper"))
		require.Error(t, err)
		var cfgErr *errors.ConfigError
		assert.ErrorAs(t, err, &cfgErr)
	})
}

func TestSelectAllSkipsUnconfigured(t *testing.T) {
	registry := providers.NewRegistry()
	registry.Register(testutil.NewMockProvider("google"))
	registry.Register(testutil.NewMockProvider("serper").Unconfigured())
	registry.Register(testutil.NewMockProvider("duckduckgo"))
	manager := providers.NewManager(registry)

	selected, err := manager.Select(providers.SelectAll)
	require.NoError(t, err)
	require.Len(t, selected, 2)
	assert.Equal(t, "google", selected[0].Name())
	assert.Equal(t, "duckduckgo", selected[1].Name())
}

func TestSelectAllWithNothingConfigured(t *testing.T) {
	registry := providers.NewRegistry()
	registry.Register(testutil.NewMockProvider("google").Unconfigured())
	manager := providers.NewManager(registry)

	_, err := manager.Select(providers.SelectAll)
	assert.ErrorIs(t, err, errors.ErrProviderUnavailable)
}

func TestSelectAutoHonorsPriority(t *testing.T) {
	registry := providers.NewRegistry()
	registry.Register(testutil.NewMockProvider("google"))
	registry.Register(testutil.NewMockProvider("serper"))
	manager := providers.NewManager(registry,
		providers.WithPriority([]string{"serper", "google"}))

	selected, err := manager.Select(providers.SelectAuto)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, "serper", selected[0].Name())
}

func TestSelectAutoSkipsExhaustedRateBudget(t *testing.T) {
	registry := providers.NewRegistry()
	registry.Register(testutil.NewMockProvider("google"))
	registry.Register(testutil.NewMockProvider("serper"))
	manager := providers.NewManager(registry,
		providers.WithPriority([]string{"google", "serper"}),
		providers.WithRateInterval("google", time.Hour))

	// Drain google's budget; auto-select should fall through to serper.
	require.True(t, manager.Limiter("google").Allow())

	selected, err := manager.Select(providers.SelectAuto)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, "serper", selected[0].Name())
}

func TestSelectAutoSkipsUnconfigured(t *testing.T) {
	registry := providers.NewRegistry()
	registry.Register(testutil.NewMockProvider("google").Unconfigured())
	registry.Register(testutil.NewMockProvider("serper"))
	manager := providers.NewManager(registry)

	selected, err := manager.Select(providers.SelectAuto)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, "serper", selected[0].Name())
}

func TestSearchRetriesRetryableErrors(t *testing.T) {
	mock := testutil.NewMockProvider("google").
		Respond(testutil.SearchResponse{Error: errors.ErrRateLimited}).
		Respond(testutil.SearchResponse{Error: errors.ErrNetwork}).
		Respond(testutil.SearchResponse{Results: []providers.RawResult{
			testutil.Result("google", "https://example.com/a", "a", "b"),
		}})

	registry := providers.NewRegistry()
	registry.Register(mock)
	manager := providers.NewManager(registry,
		providers.WithRetries(2),
		providers.WithBackoffBase(time.Millisecond))

	results, attempts, err := manager.Search(context.Background(), mock, plan("q"), providers.SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Len(t, results, 1)
}

func TestSearchDoesNotRetryFatalErrors(t *testing.T) {
	for _, fatal := range []error{errors.ErrAuth, errors.ErrQuota, errors.ErrParse} {
		mock := testutil.NewMockProvider("google").
			Respond(testutil.SearchResponse{Error: fatal})

		registry := providers.NewRegistry()
		registry.Register(mock)
		manager := providers.NewManager(registry,
			providers.WithRetries(3),
			providers.WithBackoffBase(time.Millisecond))

		_, attempts, err := manager.Search(context.Background(), mock, plan("q"), providers.SearchOptions{})
		require.ErrorIs(t, err, fatal)
		assert.Equal(t, 1, attempts, "fatal error %v must not be retried", fatal)
	}
}

func TestSearchExhaustsRetryBudget(t *testing.T) {
	mock := testutil.NewMockProvider("google").
		Respond(testutil.SearchResponse{Error: errors.ErrNetwork})

	registry := providers.NewRegistry()
	registry.Register(mock)
	manager := providers.NewManager(registry,
		providers.WithRetries(2),
		providers.WithBackoffBase(time.Millisecond))

	_, attempts, err := manager.Search(context.Background(), mock, plan("q"), providers.SearchOptions{})
	require.ErrorIs(t, err, errors.ErrNetwork)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, mock.CallCount())
}

func TestSearchStopsOnContextCancel(t *testing.T) {
	mock := testutil.NewMockProvider("google").
		Respond(testutil.SearchResponse{Error: errors.ErrNetwork})

	registry := providers.NewRegistry()
	registry.Register(mock)
	manager := providers.NewManager(registry,
		providers.WithRetries(5),
		providers.WithBackoffBase(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, _, err := manager.Search(ctx, mock, plan("q"), providers.SearchOptions{})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second, "cancel must cut the backoff wait short")
}

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	registry := providers.NewRegistry()
	registry.Register(testutil.NewMockProvider("a"))
	registry.Register(testutil.NewMockProvider("b"))
	registry.Register(testutil.NewMockProvider("a")) // re-register keeps position

	assert.Equal(t, []string{"a", "b"}, registry.Names())
}
