// Package engine orchestrates catalog-driven dork execution: it fans the
// cross product of (dork entry × provider) out over a bounded worker pool,
// folds raw results into a deduplicated finding set and scores the outcome.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Roska-x/Ninjutsu/pkg/catalog"
	apperrors "github.com/Roska-x/Ninjutsu/pkg/errors"
	"github.com/Roska-x/Ninjutsu/pkg/logger"
	"github.com/Roska-x/Ninjutsu/pkg/optimizer"
	"github.com/Roska-x/Ninjutsu/pkg/providers"
	"github.com/Roska-x/Ninjutsu/pkg/scoring"
)

// EngineOpts holds the collaborators and knobs of a DorkEngine.
type EngineOpts struct {
	manager         *providers.Manager
	scorer          *scoring.Scorer
	concurrency     int
	resultsPerQuery int
}

type OptFunc func(*EngineOpts)

// WithConcurrency bounds the worker pool size.
func WithConcurrency(n int) OptFunc {
	return func(o *EngineOpts) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithResultsPerQuery caps how many results each (entry, engine) task
// requests from its provider.
func WithResultsPerQuery(n int) OptFunc {
	return func(o *EngineOpts) {
		if n > 0 {
			o.resultsPerQuery = n
		}
	}
}

// WithScorer replaces the default scoring tables.
func WithScorer(s *scoring.Scorer) OptFunc {
	return func(o *EngineOpts) {
		o.scorer = s
	}
}

// DorkEngine executes batches of catalogued dorks across providers.
type DorkEngine struct {
	EngineOpts
}

func NewDorkEngine(manager *providers.Manager, opts ...OptFunc) *DorkEngine {
	o := EngineOpts{
		manager:         manager,
		scorer:          scoring.NewScorer(scoring.DefaultConfig()),
		concurrency:     4,
		resultsPerQuery: 10,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &DorkEngine{EngineOpts: o}
}

// RunParams describes one batch run.
type RunParams struct {
	Entries []catalog.DorkEntry
	Mode    providers.SelectionMode

	// Scope narrows every query to a target domain before translation.
	Scope string

	// Placeholders expand {name} templates in catalog queries.
	Placeholders map[string]string
}

// task is one (entry, provider) pair with its translated plan.
type task struct {
	entry    catalog.DorkEntry
	provider providers.Provider
	plan     optimizer.QueryPlan
}

// taskOutcome is what a worker hands to the aggregator.
type taskOutcome struct {
	entry    catalog.DorkEntry
	engine   string
	plan     optimizer.QueryPlan
	results  []providers.RawResult
	attempts int
	err      error
}

// Run executes the batch and returns the aggregated report. Task-scoped
// failures are recorded in the report and never abort the run; only
// selection and configuration errors are fatal. Cancelling ctx stops new
// tasks from dispatching while keeping everything aggregated so far.
func (e *DorkEngine) Run(ctx context.Context, params RunParams) (*ExecutionReport, error) {
	selected, err := e.manager.Select(params.Mode)
	if err != nil {
		return nil, err
	}

	tasks := e.buildTasks(params, selected)
	log.WithFields(log.Fields{
		"entries":   len(params.Entries),
		"providers": len(selected),
		"tasks":     len(tasks),
	}).Info("Dispatching dork batch")

	outcomes := e.dispatch(ctx, tasks)

	report := e.aggregate(outcomes)
	report.RunID = uuid.NewString()
	report.GeneratedAt = time.Now().UTC()
	report.Scope = params.Scope

	log.WithFields(log.Fields{
		"findings": len(report.Findings),
		"failures": len(report.Failures),
	}).Info("Dork batch complete")
	return report, nil
}

// buildTasks derives one deterministic query plan per (entry, provider).
func (e *DorkEngine) buildTasks(params RunParams, selected []providers.Provider) []task {
	tasks := make([]task, 0, len(params.Entries)*len(selected))
	for _, entry := range params.Entries {
		query := catalog.Expand(entry.Query, params.Placeholders)
		query = optimizer.WithScope(query, params.Scope)
		for _, p := range selected {
			tasks = append(tasks, task{
				entry:    entry,
				provider: p,
				plan:     optimizer.Translate(p.Name(), query, p.Capabilities()),
			})
		}
	}
	return tasks
}

// dispatch runs the tasks on a bounded worker pool. Workers block on their
// provider's rate limiter inside the manager, not on shared state: the only
// cross-worker structure is the outcome channel drained here.
func (e *DorkEngine) dispatch(ctx context.Context, tasks []task) []taskOutcome {
	semaphore := make(chan struct{}, e.concurrency)
	outcomeCh := make(chan taskOutcome, len(tasks))

	var wg sync.WaitGroup
	for _, t := range tasks {
		if ctx.Err() != nil {
			// Cancelled: stop dispatching, keep what already ran.
			break
		}

		wg.Add(1)
		go func(t task) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if ctx.Err() != nil {
				return
			}

			var results []providers.RawResult
			var attempts int
			err := logger.LogTaskExecution(t.provider.Name(), t.entry.ID, func() error {
				var searchErr error
				results, attempts, searchErr = e.manager.Search(ctx, t.provider, t.plan, providers.SearchOptions{
					MaxResults: e.resultsPerQuery,
				})
				return searchErr
			})
			if err != nil {
				err = apperrors.NewTaskError(t.provider.Name(), t.entry.ID, attempts, err)
			}
			outcomeCh <- taskOutcome{
				entry:    t.entry,
				engine:   t.provider.Name(),
				plan:     t.plan,
				results:  results,
				attempts: attempts,
				err:      err,
			}
		}(t)
	}

	go func() {
		wg.Wait()
		close(outcomeCh)
	}()

	var outcomes []taskOutcome
	for outcome := range outcomeCh {
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}
