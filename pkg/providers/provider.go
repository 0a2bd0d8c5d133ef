// Package providers implements the search backends and the manager that
// owns them. Each backend conforms to the same Provider contract and maps
// its native failures into the shared error taxonomy; no provider error
// type leaks past this package's boundary.
package providers

import (
	"context"
	"net/http"
	"time"

	"github.com/Roska-x/Ninjutsu/pkg/optimizer"
)

// RawResult is one provider-reported hit. It is transient: the execution
// engine folds raw results into aggregated findings and discards them.
type RawResult struct {
	URL      string
	Title    string
	Snippet  string
	Engine   string
	Position int
}

// SearchOptions carries per-call knobs shared by all providers.
type SearchOptions struct {
	// MaxResults caps the number of results requested from the backend.
	MaxResults int

	// Page selects the result page, starting at 1. Zero means first page.
	Page int
}

func (o SearchOptions) normalized() SearchOptions {
	if o.MaxResults <= 0 {
		o.MaxResults = 10
	}
	if o.Page <= 0 {
		o.Page = 1
	}
	return o
}

// Provider is the uniform search backend contract. One outbound network call
// per Search invocation; retry policy lives in the Manager, not here.
type Provider interface {
	// Name returns the unique engine identifier (e.g. "google", "serper").
	Name() string

	// Capabilities returns the query syntax this engine understands.
	Capabilities() optimizer.Capabilities

	// Configured reports whether the provider has the credentials it needs.
	Configured() bool

	// Search executes one query plan and returns normalized results.
	// Failures are mapped onto the errors package sentinels.
	Search(ctx context.Context, plan optimizer.QueryPlan, opts SearchOptions) ([]RawResult, error)
}

// Config is the per-engine configuration consumed by provider constructors.
type Config struct {
	APIKey   string
	EngineID string // google custom search engine id (cx)
	BaseURL  string // override for tests; empty selects the real endpoint

	HTTPClient *http.Client
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}
