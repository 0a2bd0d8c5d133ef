package engine

import (
	"context"
	stderrors "errors"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/Roska-x/Ninjutsu/pkg/errors"
)

// mergeState accumulates one finding while raw results fold in.
type mergeState struct {
	url     string
	title   string
	snippet string
	sources map[Source]bool
}

// aggregate folds task outcomes into the final report body. Outcomes are
// sorted into a canonical order first, so the fold does not depend on task
// completion order and the "first seen" tie-break stays deterministic.
func (e *DorkEngine) aggregate(outcomes []taskOutcome) *ExecutionReport {
	sort.Slice(outcomes, func(i, j int) bool {
		if outcomes[i].entry.ID != outcomes[j].entry.ID {
			return outcomes[i].entry.ID < outcomes[j].entry.ID
		}
		return outcomes[i].engine < outcomes[j].engine
	})

	report := &ExecutionReport{
		Findings: []AggregatedFinding{},
		Failures: []Failure{},
	}
	merged := make(map[string]*mergeState)
	var order []string

	for _, outcome := range outcomes {
		report.Plans = append(report.Plans, PlanRecord{
			Engine:    outcome.engine,
			DorkID:    outcome.entry.ID,
			Query:     outcome.plan.Query,
			Dropped:   outcome.plan.Dropped,
			Rewritten: outcome.plan.Rewritten,
			Truncated: outcome.plan.Truncated,
		})

		if outcome.err != nil {
			report.Failures = append(report.Failures, Failure{
				Engine:   outcome.engine,
				DorkID:   outcome.entry.ID,
				Kind:     errorKind(outcome.err),
				Attempts: outcome.attempts,
				Message:  outcome.err.Error(),
			})
			continue
		}

		for _, raw := range outcome.results {
			key, err := NormalizeURL(raw.URL)
			if err != nil || key == "" {
				log.Debugf("skipping unparseable result URL %q", raw.URL)
				continue
			}
			state, ok := merged[key]
			if !ok {
				state = &mergeState{url: key, sources: make(map[Source]bool)}
				merged[key] = state
				order = append(order, key)
			}
			fold(state, raw.Title, raw.Snippet, Source{Engine: outcome.engine, DorkID: outcome.entry.ID})
		}
	}

	for _, key := range order {
		state := merged[key]
		report.Findings = append(report.Findings, e.score(state))
	}

	// Risk-ranked output; URL breaks ties so equal scores stay stable.
	sort.Slice(report.Findings, func(i, j int) bool {
		if report.Findings[i].RiskScore != report.Findings[j].RiskScore {
			return report.Findings[i].RiskScore > report.Findings[j].RiskScore
		}
		return report.Findings[i].URL < report.Findings[j].URL
	})
	return report
}

// fold merges one raw result into a finding's state. The merge is
// commutative and associative over result sets given the canonical outcome
// order: the longer snippet/title wins and equal lengths keep the earlier
// one.
func fold(state *mergeState, title, snippet string, src Source) {
	if len(snippet) > len(state.snippet) {
		state.snippet = snippet
	}
	if len(title) > len(state.title) {
		state.title = title
	}
	state.sources[src] = true
}

func (e *DorkEngine) score(state *mergeState) AggregatedFinding {
	sources := make([]Source, 0, len(state.sources))
	for src := range state.sources {
		sources = append(sources, src)
	}
	sort.Slice(sources, func(i, j int) bool {
		if sources[i].Engine != sources[j].Engine {
			return sources[i].Engine < sources[j].Engine
		}
		return sources[i].DorkID < sources[j].DorkID
	})

	risk := e.scorer.RiskScore(state.url, state.title, state.snippet)
	return AggregatedFinding{
		URL:          state.url,
		Title:        state.title,
		Snippet:      state.snippet,
		Sources:      sources,
		QualityScore: e.scorer.QualityScore(state.url, state.title, state.snippet),
		RiskScore:    risk,
		Bucket:       e.scorer.Bucket(risk),
	}
}

// errorKind maps a task error onto its taxonomy name for the report.
func errorKind(err error) string {
	switch {
	case stderrors.Is(err, errors.ErrAuth):
		return "auth"
	case stderrors.Is(err, errors.ErrQuota):
		return "quota"
	case stderrors.Is(err, errors.ErrRateLimited):
		return "rate_limited"
	case stderrors.Is(err, errors.ErrNetwork):
		return "network"
	case stderrors.Is(err, errors.ErrParse):
		return "parse"
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "unknown"
	}
}
