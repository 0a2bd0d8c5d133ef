package engine

import (
	"time"

	"github.com/Roska-x/Ninjutsu/pkg/catalog"
)

// Source identifies one (engine, dork) pair that contributed a finding.
type Source struct {
	Engine string `json:"engine"`
	DorkID string `json:"dork_id"`
}

// AggregatedFinding is one unique resource, keyed by its normalized URL.
// Raw results with equal normalized URLs merge into one finding no matter
// which engine or query produced them.
type AggregatedFinding struct {
	URL          string       `json:"url"`
	Title        string       `json:"title"`
	Snippet      string       `json:"snippet"`
	Sources      []Source     `json:"sources"`
	QualityScore float64      `json:"quality_score"`
	RiskScore    float64      `json:"risk_score"`
	Bucket       catalog.Risk `json:"bucket"`
}

// Failure records one (engine, dork) task that exhausted its retries and
// was skipped. The batch never aborts over a task failure.
type Failure struct {
	Engine   string `json:"engine"`
	DorkID   string `json:"dork_id"`
	Kind     string `json:"kind"`
	Attempts int    `json:"attempts"`
	Message  string `json:"message"`
}

// PlanRecord documents how one canonical query was translated for one
// engine: the provenance the optimizer produced for that task.
type PlanRecord struct {
	Engine    string            `json:"engine"`
	DorkID    string            `json:"dork_id"`
	Query     string            `json:"query"`
	Dropped   []string          `json:"dropped,omitempty"`
	Rewritten map[string]string `json:"rewritten,omitempty"`
	Truncated []string          `json:"truncated,omitempty"`
}

// ExecutionReport is the output of one batch run: the deduplicated, scored
// finding set plus full failure and translation provenance.
type ExecutionReport struct {
	RunID       string              `json:"run_id"`
	GeneratedAt time.Time           `json:"generated_at"`
	Scope       string              `json:"scope,omitempty"`
	Findings    []AggregatedFinding `json:"findings"`
	Failures    []Failure           `json:"failures"`
	Plans       []PlanRecord        `json:"plans"`
}

// ByBucket returns the findings that landed in the given bucket.
func (r *ExecutionReport) ByBucket(bucket catalog.Risk) []AggregatedFinding {
	var out []AggregatedFinding
	for _, f := range r.Findings {
		if f.Bucket == bucket {
			out = append(out, f)
		}
	}
	return out
}
