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

const serpAPIBaseURL = "https://serpapi.com/search"

// DuckDuckGoProvider queries DuckDuckGo through the SerpAPI aggregator.
// DuckDuckGo understands site: and exact phrases but none of the other
// google operators; filetype: degrades to its partial type: equivalent.
type DuckDuckGoProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type serpAPIResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
		Position int    `json:"position"`
	} `json:"organic_results"`
}

func NewDuckDuckGoProvider(cfg Config) *DuckDuckGoProvider {
	base := cfg.BaseURL
	if base == "" {
		base = serpAPIBaseURL
	}
	return &DuckDuckGoProvider{
		apiKey:  cfg.APIKey,
		baseURL: base,
		client:  cfg.httpClient(),
	}
}

func (d *DuckDuckGoProvider) Name() string {
	return "duckduckgo"
}

func (d *DuckDuckGoProvider) Configured() bool {
	return d.apiKey != ""
}

func (d *DuckDuckGoProvider) Capabilities() optimizer.Capabilities {
	return optimizer.Capabilities{
		Site:        true,
		ExactPhrase: true,
		BooleanOR:   true,
		Substitutions: map[string]string{
			"filetype:": "type:",
		},
		MaxQueryLength: 500,
	}
}

func (d *DuckDuckGoProvider) Search(ctx context.Context, plan optimizer.QueryPlan, opts SearchOptions) ([]RawResult, error) {
	opts = opts.normalized()

	// DuckDuckGo caps per-page results at 50 via the m parameter.
	m := opts.MaxResults
	if m > 50 {
		m = 50
	}

	params := url.Values{}
	params.Set("engine", "duckduckgo")
	params.Set("q", plan.Query)
	params.Set("api_key", d.apiKey)
	params.Set("output", "json")
	params.Set("kl", "us-en")
	params.Set("m", strconv.Itoa(m))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrNetwork, err)
	}

	resp, err := d.client.Do(req)
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

	var parsed serpAPIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrParse, err)
	}

	// SerpAPI reports account-level failures inside a 200 body.
	if parsed.Error != "" {
		lower := strings.ToLower(parsed.Error)
		switch {
		case strings.Contains(lower, "run out") || strings.Contains(lower, "quota"):
			return nil, fmt.Errorf("%w: %s", errors.ErrQuota, parsed.Error)
		case strings.Contains(lower, "invalid api key") || strings.Contains(lower, "unauthorized"):
			return nil, fmt.Errorf("%w: %s", errors.ErrAuth, parsed.Error)
		default:
			return nil, fmt.Errorf("%w: %s", errors.ErrParse, parsed.Error)
		}
	}

	results := make([]RawResult, 0, len(parsed.OrganicResults))
	for i, item := range parsed.OrganicResults {
		if item.Link == "" {
			continue
		}
		position := item.Position
		if position == 0 {
			position = i + 1
		}
		results = append(results, RawResult{
			URL:      item.Link,
			Title:    item.Title,
			Snippet:  item.Snippet,
			Engine:   d.Name(),
			Position: position,
		})
	}

	log.Debugf("duckduckgo returned %d results for %q", len(results), plan.Query)
	return results, nil
}
