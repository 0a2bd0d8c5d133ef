package optimizer

import (
	"reflect"
	"strings"
	"testing"
)

func fullCaps() Capabilities {
	return Capabilities{
		Site: true, Filetype: true, InTitle: true, InURL: true,
		ExactPhrase: true, BooleanOR: true,
		MaxQueryLength: 2048,
	}
}

func TestTranslatePassthroughOnFullCapabilities(t *testing.T) {
	query := `site:example.com filetype:env "DB_PASSWORD" intitle:index`
	plan := Translate("google", query, fullCaps())

	if plan.Query != query {
		t.Errorf("expected passthrough, got %q", plan.Query)
	}
	if len(plan.Dropped) != 0 || len(plan.Rewritten) != 0 || len(plan.Truncated) != 0 {
		t.Errorf("passthrough must record no provenance: %+v", plan)
	}
}

func TestTranslateIsDeterministic(t *testing.T) {
	query := `intitle:"index of" filetype:sql site:example.com OR inurl:backup`
	caps := Capabilities{
		Site: true, ExactPhrase: true, BooleanOR: true,
		Substitutions:  map[string]string{"filetype:": "type:"},
		MaxQueryLength: 60,
	}

	first := Translate("duckduckgo", query, caps)
	for i := 0; i < 10; i++ {
		if got := Translate("duckduckgo", query, caps); !reflect.DeepEqual(first, got) {
			t.Fatalf("translation differs between runs: %+v vs %+v", first, got)
		}
	}
}

func TestTranslateDropsUnsupportedOperators(t *testing.T) {
	caps := Capabilities{ExactPhrase: true}
	plan := Translate("minimal", `site:example.com inurl:admin "login page"`, caps)

	if plan.Query != `"login page"` {
		t.Errorf("unexpected query: %q", plan.Query)
	}
	want := []string{"site:", "inurl:"}
	if !reflect.DeepEqual(plan.Dropped, want) {
		t.Errorf("Dropped = %v, want %v", plan.Dropped, want)
	}
}

func TestTranslateSubstitutionWinsOverDrop(t *testing.T) {
	caps := Capabilities{
		Site:          true,
		Substitutions: map[string]string{"filetype:": "type:"},
	}
	plan := Translate("duckduckgo", "site:example.com filetype:pdf", caps)

	if plan.Query != "site:example.com type:pdf" {
		t.Errorf("unexpected query: %q", plan.Query)
	}
	if plan.Rewritten["filetype:"] != "type:" {
		t.Errorf("substitution not recorded: %v", plan.Rewritten)
	}
	if len(plan.Dropped) != 0 {
		t.Errorf("substituted operator must not be dropped: %v", plan.Dropped)
	}
}

func TestTranslateUnquotesWithoutExactPhrase(t *testing.T) {
	plan := Translate("minimal", `"access denied"`, Capabilities{})

	if plan.Query != "access denied" {
		t.Errorf("unexpected query: %q", plan.Query)
	}
	if plan.Rewritten[`""`] != "unquoted" {
		t.Errorf("unquoting not recorded: %v", plan.Rewritten)
	}
}

func TestTranslateDropsOR(t *testing.T) {
	plan := Translate("minimal", "backup OR dump", Capabilities{})

	if plan.Query != "backup dump" {
		t.Errorf("unexpected query: %q", plan.Query)
	}
	if len(plan.Dropped) != 1 || plan.Dropped[0] != "OR" {
		t.Errorf("OR drop not recorded: %v", plan.Dropped)
	}
}

func TestEnforceLengthKeepsLeadingClause(t *testing.T) {
	caps := fullCaps()
	caps.MaxQueryLength = 30
	plan := Translate("google", "site:example.com filetype:env intitle:index inurl:backup", caps)

	if !strings.HasPrefix(plan.Query, "site:example.com") {
		t.Fatalf("leading clause must survive truncation: %q", plan.Query)
	}
	if len(plan.Query) > 30 {
		t.Errorf("query exceeds limit: %d bytes", len(plan.Query))
	}
	// Cut clauses are reported in their original query order.
	want := []string{"intitle:index", "inurl:backup"}
	if !reflect.DeepEqual(plan.Truncated, want) {
		t.Errorf("Truncated = %v, want %v", plan.Truncated, want)
	}
}

func TestEnforceLengthNeverCutsOnlyClause(t *testing.T) {
	caps := fullCaps()
	caps.MaxQueryLength = 5
	plan := Translate("google", "site:very-long-domain.example.com", caps)

	if plan.Query != "site:very-long-domain.example.com" {
		t.Errorf("single mandatory clause must never be cut: %q", plan.Query)
	}
}

func TestWithScope(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		domain string
		want   string
	}{
		{
			name:   "prepends scope",
			query:  "filetype:env",
			domain: "example.com",
			want:   "site:example.com filetype:env",
		},
		{
			name:   "existing site clause wins",
			query:  "site:pinned.org filetype:env",
			domain: "example.com",
			want:   "site:pinned.org filetype:env",
		},
		{
			name:   "empty domain is a no-op",
			query:  "filetype:env",
			domain: "  ",
			want:   "filetype:env",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WithScope(tt.query, tt.domain); got != tt.want {
				t.Errorf("WithScope(%q, %q) = %q, want %q", tt.query, tt.domain, got, tt.want)
			}
		})
	}
}

func TestSplitClausesKeepsQuotedPhrases(t *testing.T) {
	got := splitClauses(`intitle:"index of /" filetype:log  "error log"`)
	want := []string{`intitle:"index of /"`, "filetype:log", `"error log"`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitClauses = %v, want %v", got, want)
	}
}
