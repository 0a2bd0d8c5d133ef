package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/Roska-x/Ninjutsu/pkg/errors"
	"github.com/Roska-x/Ninjutsu/pkg/optimizer"
)

const googleBaseURL = "https://www.googleapis.com/customsearch/v1"

// GoogleProvider queries the Google Custom Search JSON API.
type GoogleProvider struct {
	apiKey   string
	engineID string
	baseURL  string
	client   *http.Client
}

type googleResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

func NewGoogleProvider(cfg Config) *GoogleProvider {
	base := cfg.BaseURL
	if base == "" {
		base = googleBaseURL
	}
	return &GoogleProvider{
		apiKey:   cfg.APIKey,
		engineID: cfg.EngineID,
		baseURL:  base,
		client:   cfg.httpClient(),
	}
}

func (g *GoogleProvider) Name() string {
	return "google"
}

func (g *GoogleProvider) Configured() bool {
	return g.apiKey != "" && g.engineID != ""
}

func (g *GoogleProvider) Capabilities() optimizer.Capabilities {
	return optimizer.Capabilities{
		Site:        true,
		Filetype:    true,
		InTitle:     true,
		InURL:       true,
		ExactPhrase: true,
		BooleanOR:   true,
		// Documented hard limit for the q parameter.
		MaxQueryLength: 2048,
	}
}

func (g *GoogleProvider) Search(ctx context.Context, plan optimizer.QueryPlan, opts SearchOptions) ([]RawResult, error) {
	opts = opts.normalized()
	if opts.MaxResults > 10 {
		// The API returns at most 10 items per call.
		opts.MaxResults = 10
	}

	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.engineID)
	params.Set("q", plan.Query)
	params.Set("num", strconv.Itoa(opts.MaxResults))
	if opts.Page > 1 {
		params.Set("start", strconv.Itoa((opts.Page-1)*opts.MaxResults+1))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrNetwork, err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", errors.ErrNetwork, err)
	}

	if err := mapHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	var parsed googleResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrParse, err)
	}

	results := make([]RawResult, 0, len(parsed.Items))
	for i, item := range parsed.Items {
		if item.Link == "" {
			continue
		}
		results = append(results, RawResult{
			URL:      item.Link,
			Title:    item.Title,
			Snippet:  item.Snippet,
			Engine:   g.Name(),
			Position: i + 1,
		})
	}

	log.Debugf("google returned %d results for %q", len(results), plan.Query)
	return results, nil
}

// mapHTTPStatus translates an HTTP error status into the shared taxonomy.
// Shared by the google-style GET providers.
func mapHTTPStatus(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		if strings.Contains(strings.ToLower(string(body)), "quota") {
			return fmt.Errorf("%w: status %d", errors.ErrQuota, status)
		}
		return fmt.Errorf("%w: status %d", errors.ErrAuth, status)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", errors.ErrRateLimited, status)
	case status == http.StatusPaymentRequired:
		return fmt.Errorf("%w: status %d", errors.ErrQuota, status)
	default:
		return fmt.Errorf("%w: unexpected status %d", errors.ErrNetwork, status)
	}
}
