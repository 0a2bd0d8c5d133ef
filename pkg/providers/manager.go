package providers

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Roska-x/Ninjutsu/pkg/errors"
	"github.com/Roska-x/Ninjutsu/pkg/optimizer"
)

// SelectionMode decides which providers an execution run fans out to.
type SelectionMode string

const (
	// SelectAuto picks the first configured provider whose rate budget
	// currently allows a call, honoring the configured priority order.
	SelectAuto SelectionMode = "auto"

	// SelectAll fans out to every configured provider.
	SelectAll SelectionMode = "all"
)

// ManagerOpts configures a Manager.
type ManagerOpts struct {
	registry       *Registry
	priority       []string
	maxRetries     int
	backoffBase    time.Duration
	perCallTimeout time.Duration
	limiters       map[string]*rate.Limiter
}

type OptFunc func(*ManagerOpts)

// WithPriority sets the auto-select preference order. Engines not listed
// rank after listed ones, in registration order.
func WithPriority(names []string) OptFunc {
	return func(o *ManagerOpts) {
		o.priority = names
	}
}

// WithRetries bounds how often a retryable task error is re-attempted.
func WithRetries(n int) OptFunc {
	return func(o *ManagerOpts) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// WithBackoffBase sets the first retry delay; later retries double it.
func WithBackoffBase(d time.Duration) OptFunc {
	return func(o *ManagerOpts) {
		if d > 0 {
			o.backoffBase = d
		}
	}
}

// WithPerCallTimeout bounds a single provider call, retries excluded.
func WithPerCallTimeout(d time.Duration) OptFunc {
	return func(o *ManagerOpts) {
		if d > 0 {
			o.perCallTimeout = d
		}
	}
}

// WithRateInterval installs a minimum inter-call delay for one engine.
// Zero-interval limiters are what tests substitute in.
func WithRateInterval(engine string, interval time.Duration) OptFunc {
	return func(o *ManagerOpts) {
		if interval <= 0 {
			o.limiters[engine] = rate.NewLimiter(rate.Inf, 1)
			return
		}
		o.limiters[engine] = rate.NewLimiter(rate.Every(interval), 1)
	}
}

// Manager owns the configured providers, the selection policy and the
// per-provider rate limiters. Limiters block callers instead of failing so
// batch throughput self-regulates to provider quotas.
type Manager struct {
	ManagerOpts
}

func NewManager(registry *Registry, opts ...OptFunc) *Manager {
	o := ManagerOpts{
		registry:       registry,
		maxRetries:     2,
		backoffBase:    500 * time.Millisecond,
		perCallTimeout: 30 * time.Second,
		limiters:       make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Manager{ManagerOpts: o}
}

// Select resolves a provider set for the requested mode. mode is either one
// of the Select* constants or an explicit engine name.
func (m *Manager) Select(mode SelectionMode) ([]Provider, error) {
	switch mode {
	case SelectAll:
		var out []Provider
		for _, p := range m.registry.All() {
			if p.Configured() {
				out = append(out, p)
			}
		}
		if len(out) == 0 {
			return nil, errors.ErrProviderUnavailable
		}
		return out, nil

	case SelectAuto:
		for _, p := range m.prioritized() {
			if !p.Configured() {
				continue
			}
			if lim := m.limiters[p.Name()]; lim != nil && lim.Tokens() < 1 {
				log.Debugf("auto-select skipping %s: rate budget exhausted", p.Name())
				continue
			}
			return []Provider{p}, nil
		}
		return nil, errors.ErrProviderUnavailable

	default:
		p, ok := m.registry.Get(string(mode))
		if !ok {
			return nil, errors.NewConfigError("engine", string(mode), "unknown engine name")
		}
		if !p.Configured() {
			return nil, errors.NewConfigError("engine", string(mode), "missing credentials")
		}
		return []Provider{p}, nil
	}
}

// prioritized returns providers with configured priority names first, then
// the remaining ones in registration order.
func (m *Manager) prioritized() []Provider {
	all := m.registry.All()
	if len(m.priority) == 0 {
		return all
	}

	seen := make(map[string]bool, len(all))
	out := make([]Provider, 0, len(all))
	for _, name := range m.priority {
		if p, ok := m.registry.Get(name); ok && !seen[name] {
			seen[name] = true
			out = append(out, p)
		}
	}
	for _, p := range all {
		if !seen[p.Name()] {
			out = append(out, p)
		}
	}
	return out
}

// Limiter returns the rate limiter for an engine, if one is configured.
func (m *Manager) Limiter(engine string) *rate.Limiter {
	return m.limiters[engine]
}

// Search runs one provider call under the engine's rate limiter and the
// manager's retry policy. Retryable failures back off exponentially up to
// the retry bound; everything else fails immediately. The returned attempt
// count feeds failure provenance in the execution report.
func (m *Manager) Search(ctx context.Context, p Provider, plan optimizer.QueryPlan, opts SearchOptions) ([]RawResult, int, error) {
	var lastErr error
	attempts := 0

	for attempts <= m.maxRetries {
		if attempts > 0 {
			delay := m.backoffBase << (attempts - 1)
			log.WithFields(log.Fields{
				"engine":  p.Name(),
				"attempt": attempts + 1,
				"delay":   delay.String(),
			}).Debug("retrying provider call")

			select {
			case <-ctx.Done():
				return nil, attempts, ctx.Err()
			case <-time.After(delay):
			}
		}
		attempts++

		if lim := m.limiters[p.Name()]; lim != nil {
			if err := lim.Wait(ctx); err != nil {
				return nil, attempts, err
			}
		}

		results, err := m.callOnce(ctx, p, plan, opts)
		if err == nil {
			return results, attempts, nil
		}
		lastErr = err

		if !errors.Retryable(err) || ctx.Err() != nil {
			break
		}
	}

	return nil, attempts, lastErr
}

// callOnce issues a single provider call bounded by the per-call timeout.
// A timeout that elapses counts as a network error for retry purposes.
func (m *Manager) callOnce(ctx context.Context, p Provider, plan optimizer.QueryPlan, opts SearchOptions) ([]RawResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, m.perCallTimeout)
	defer cancel()

	results, err := p.Search(callCtx, plan, opts)
	if err != nil && stderrors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, fmt.Errorf("%w: per-call timeout elapsed: %v", errors.ErrNetwork, err)
	}
	return results, err
}
