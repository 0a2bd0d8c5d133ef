// Package testutil provides testing utilities for the ninjutsu application
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Roska-x/Ninjutsu/pkg/optimizer"
	"github.com/Roska-x/Ninjutsu/pkg/providers"
)

// MockProvider implements providers.Provider for testing
type MockProvider struct {
	mu       sync.RWMutex
	name     string
	caps     optimizer.Capabilities
	unconfig bool

	calls     []ExecutedSearch
	responses []SearchResponse
}

type ExecutedSearch struct {
	Query   string
	Options providers.SearchOptions
}

// SearchResponse scripts the outcome of one Search call. Responses are
// consumed in order; the last one repeats once the script runs out.
type SearchResponse struct {
	Results []providers.RawResult
	Error   error
	Delay   time.Duration
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		name: name,
		caps: optimizer.Capabilities{
			Site: true, Filetype: true, InTitle: true, InURL: true,
			ExactPhrase: true, BooleanOR: true,
			MaxQueryLength: 2048,
		},
	}
}

// WithCapabilities replaces the default full capability set.
func (m *MockProvider) WithCapabilities(caps optimizer.Capabilities) *MockProvider {
	m.caps = caps
	return m
}

// Unconfigured makes the provider report missing credentials.
func (m *MockProvider) Unconfigured() *MockProvider {
	m.unconfig = true
	return m
}

// Respond appends a scripted response.
func (m *MockProvider) Respond(resp SearchResponse) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
	return m
}

func (m *MockProvider) Name() string                         { return m.name }
func (m *MockProvider) Capabilities() optimizer.Capabilities { return m.caps }
func (m *MockProvider) Configured() bool                     { return !m.unconfig }

func (m *MockProvider) Search(ctx context.Context, plan optimizer.QueryPlan, opts providers.SearchOptions) ([]providers.RawResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, ExecutedSearch{Query: plan.Query, Options: opts})
	call := len(m.calls) - 1
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.responses) == 0 {
		return nil, nil
	}
	if call >= len(m.responses) {
		call = len(m.responses) - 1
	}
	resp := m.responses[call]

	if resp.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(resp.Delay):
		}
	}
	return resp.Results, resp.Error
}

// Calls returns a copy of the recorded Search invocations.
func (m *MockProvider) Calls() []ExecutedSearch {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ExecutedSearch, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many Search invocations were recorded.
func (m *MockProvider) CallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.calls)
}

// Result builds a RawResult with the common fields filled in.
func Result(engine, url, title, snippet string) providers.RawResult {
	return providers.RawResult{
		URL:     url,
		Title:   title,
		Snippet: snippet,
		Engine:  engine,
	}
}

// WriteTempCatalog writes a catalog document into a temp dir and returns
// its path. The file is cleaned up with the test.
func WriteTempCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dorks.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp catalog: %v", err)
	}
	return path
}
