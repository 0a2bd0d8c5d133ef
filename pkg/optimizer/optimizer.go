// Package optimizer rewrites canonical dork queries into engine-specific
// query plans. Translation is a pure function: the same (query, capabilities)
// input always yields the same plan.
package optimizer

import (
	"strings"
)

// Capabilities describes the query syntax a provider understands. The zero
// value supports nothing; providers expose their own capability set.
type Capabilities struct {
	Site        bool
	Filetype    bool
	InTitle     bool
	InURL       bool
	ExactPhrase bool
	BooleanOR   bool

	// Substitutions maps an unsupported operator to its closest supported
	// equivalent (e.g. "filetype:" -> "type:"). Substitution wins over
	// dropping.
	Substitutions map[string]string

	// MaxQueryLength is the provider's query length limit in bytes.
	// Zero means unlimited.
	MaxQueryLength int
}

// QueryPlan is the engine-specific query derived from one canonical query,
// together with the translation provenance the engine attaches to results.
type QueryPlan struct {
	Engine    string
	Query     string
	Dropped   []string          // operators removed because the engine lacks them
	Rewritten map[string]string // operators substituted with an equivalent
	Truncated []string          // trailing clauses cut by the length limit
}

// operators recognized in canonical queries, longest-prefix first so that
// "allintitle:" is not matched as "intitle:".
var knownOperators = []string{
	"allinanchor:", "allintitle:", "allinurl:", "allintext:",
	"inanchor:", "intitle:", "inurl:", "intext:",
	"filetype:", "site:", "link:", "related:", "cache:",
}

// WithScope narrows a canonical query to a target domain by prepending a
// site: clause. Queries that already carry a site: clause are left alone so
// catalog-pinned scopes are not overridden.
func WithScope(query, domain string) string {
	domain = strings.TrimSpace(domain)
	if domain == "" || strings.Contains(query, "site:") {
		return query
	}
	return "site:" + domain + " " + query
}

// Translate rewrites one canonical query for one engine. The leading clause
// is mandatory and survives truncation; trailing clauses are optional.
func Translate(engine, query string, caps Capabilities) QueryPlan {
	plan := QueryPlan{
		Engine:    engine,
		Rewritten: make(map[string]string),
	}

	var kept []string
	for _, clause := range splitClauses(query) {
		out, ok := translateClause(clause, caps, &plan)
		if ok && out != "" {
			kept = append(kept, out)
		}
	}

	kept = enforceLength(kept, caps.MaxQueryLength, &plan)
	plan.Query = strings.Join(kept, " ")
	return plan
}

// translateClause maps one clause through the capability table. It returns
// the rewritten clause and whether it survives.
func translateClause(clause string, caps Capabilities, plan *QueryPlan) (string, bool) {
	op := operatorPrefix(clause)

	if op == "" {
		if strings.EqualFold(clause, "OR") {
			if caps.BooleanOR {
				return "OR", true
			}
			plan.Dropped = append(plan.Dropped, "OR")
			return "", false
		}
		if isQuoted(clause) {
			if caps.ExactPhrase {
				return clause, true
			}
			// Keep the words, lose the exactness.
			inner := strings.Trim(clause, `"`)
			if inner == "" {
				return "", false
			}
			plan.Rewritten[`""`] = "unquoted"
			return inner, true
		}
		return clause, true
	}

	if supportsOperator(op, caps) {
		return clause, true
	}
	if repl, ok := caps.Substitutions[op]; ok && repl != "" {
		plan.Rewritten[op] = repl
		return repl + strings.TrimPrefix(clause, op), true
	}
	plan.Dropped = append(plan.Dropped, op)
	return "", false
}

func supportsOperator(op string, caps Capabilities) bool {
	switch op {
	case "site:":
		return caps.Site
	case "filetype:":
		return caps.Filetype
	case "intitle:", "allintitle:":
		return caps.InTitle
	case "inurl:", "allinurl:":
		return caps.InURL
	default:
		// intext:, inanchor:, link:, related:, cache: and friends are
		// google-isms nothing else implements; only a substitution saves them.
		return false
	}
}

// enforceLength drops trailing optional clauses until the joined query fits.
// The leading clause is never cut.
func enforceLength(clauses []string, limit int, plan *QueryPlan) []string {
	if limit <= 0 || len(clauses) == 0 {
		return clauses
	}
	for len(clauses) > 1 && len(strings.Join(clauses, " ")) > limit {
		last := clauses[len(clauses)-1]
		clauses = clauses[:len(clauses)-1]
		// Record in original order despite cutting from the tail.
		plan.Truncated = append([]string{last}, plan.Truncated...)
	}
	return clauses
}

func operatorPrefix(clause string) string {
	lower := strings.ToLower(clause)
	for _, op := range knownOperators {
		if strings.HasPrefix(lower, op) {
			return op
		}
	}
	return ""
}

func isQuoted(clause string) bool {
	return len(clause) >= 2 && strings.HasPrefix(clause, `"`) && strings.HasSuffix(clause, `"`)
}

// splitClauses splits a query on whitespace while keeping quoted phrases and
// operator:"quoted value" forms intact.
func splitClauses(query string) []string {
	var (
		clauses []string
		current strings.Builder
		inQuote bool
	)
	for _, r := range strings.TrimSpace(query) {
		switch {
		case r == '"':
			inQuote = !inQuote
			current.WriteRune(r)
		case r == ' ' && !inQuote:
			if current.Len() > 0 {
				clauses = append(clauses, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		clauses = append(clauses, current.String())
	}
	return clauses
}
