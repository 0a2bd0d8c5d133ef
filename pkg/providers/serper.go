package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/Roska-x/Ninjutsu/pkg/errors"
	"github.com/Roska-x/Ninjutsu/pkg/optimizer"
)

const serperBaseURL = "https://google.serper.dev/search"

// SerperProvider queries Google through the Serper aggregation API.
// Serper speaks the same operator dialect as Google itself.
type SerperProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type serperRequest struct {
	Q    string `json:"q"`
	Num  int    `json:"num"`
	Page int    `json:"page,omitempty"`
}

type serperResponse struct {
	Organic []struct {
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
		Position int    `json:"position"`
	} `json:"organic"`
}

func NewSerperProvider(cfg Config) *SerperProvider {
	base := cfg.BaseURL
	if base == "" {
		base = serperBaseURL
	}
	return &SerperProvider{
		apiKey:  cfg.APIKey,
		baseURL: base,
		client:  cfg.httpClient(),
	}
}

func (s *SerperProvider) Name() string {
	return "serper"
}

func (s *SerperProvider) Configured() bool {
	return s.apiKey != ""
}

func (s *SerperProvider) Capabilities() optimizer.Capabilities {
	return optimizer.Capabilities{
		Site:           true,
		Filetype:       true,
		InTitle:        true,
		InURL:          true,
		ExactPhrase:    true,
		BooleanOR:      true,
		MaxQueryLength: 2048,
	}
}

func (s *SerperProvider) Search(ctx context.Context, plan optimizer.QueryPlan, opts SearchOptions) ([]RawResult, error) {
	opts = opts.normalized()

	payload, err := json.Marshal(serperRequest{
		Q:    plan.Query,
		Num:  opts.MaxResults,
		Page: opts.Page,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %v", errors.ErrParse, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrNetwork, err)
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
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

	var parsed serperResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrParse, err)
	}

	results := make([]RawResult, 0, len(parsed.Organic))
	for i, item := range parsed.Organic {
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
			Engine:   s.Name(),
			Position: position,
		})
	}

	log.Debugf("serper returned %d results for %q", len(results), plan.Query)
	return results, nil
}
