// Package scoring turns merged findings into deterministic quality and risk
// scores. All heuristics live in declarative tables consumed by pure
// functions, so weights and thresholds can be tuned and tested without
// touching orchestration code.
package scoring

import (
	"net/url"
	"sort"
	"strings"

	"github.com/Roska-x/Ninjutsu/pkg/catalog"
)

// QualityWeights weighs the indicator features of the quality score.
type QualityWeights struct {
	Snippet   float64 `mapstructure:"snippet"`
	Title     float64 `mapstructure:"title"`
	HTTPS     float64 `mapstructure:"https"`
	Reputable float64 `mapstructure:"reputable"`
}

// RiskWeights weighs the three factors of the risk score.
type RiskWeights struct {
	Filetype    float64 `mapstructure:"filetype"`
	Keywords    float64 `mapstructure:"keywords"`
	OffPlatform float64 `mapstructure:"off_platform"`
}

// Thresholds maps a risk score onto a bucket. Bounds are inclusive lower
// bounds; a score of zero lands in the info bucket.
type Thresholds struct {
	High   float64 `mapstructure:"high"`
	Medium float64 `mapstructure:"medium"`
}

// Config is the full scoring table set. Deployments tune the tables through
// configuration; the defaults are documented in DefaultConfig.
type Config struct {
	Quality QualityWeights `mapstructure:"quality"`
	Risk    RiskWeights    `mapstructure:"risk"`

	// SensitiveExtensions are matched as substrings of the lowercased URL,
	// so /.env, /config.yml.bak and ?file=db.sql all trigger.
	SensitiveExtensions []string `mapstructure:"sensitive_extensions"`

	// KeywordFamilies groups credential keyword variants; each family
	// counts once no matter how many variants match.
	KeywordFamilies map[string][]string `mapstructure:"keyword_families"`

	// KeywordFamilyCap is the number of distinct matched families that
	// saturates the keyword factor.
	KeywordFamilyCap int `mapstructure:"keyword_family_cap"`

	// CodeHostingDomains: hosts inside this set get no off-platform bump,
	// since exposure on a source-hosting platform is less likely live.
	CodeHostingDomains []string `mapstructure:"code_hosting_domains"`

	// ReputableDomains feed the quality score's reputation factor.
	ReputableDomains []string `mapstructure:"reputable_domains"`

	// MinTitleLength is the shortest title still considered meaningful.
	MinTitleLength int `mapstructure:"min_title_length"`

	Thresholds Thresholds `mapstructure:"thresholds"`
}

// DefaultConfig returns the built-in tables.
func DefaultConfig() Config {
	return Config{
		Quality: QualityWeights{Snippet: 1, Title: 1, HTTPS: 1, Reputable: 1},
		// The domain factor carries a deliberately small weight: hosting is a
		// hint, file type and credential keywords are the signal.
		Risk: RiskWeights{Filetype: 1, Keywords: 1, OffPlatform: 0.4},
		SensitiveExtensions: []string{
			".env", ".json", ".yml", ".yaml", ".ini", ".config", ".cfg",
			".php", ".sql", ".log", ".bak", ".pem", ".key",
		},
		KeywordFamilies: map[string][]string{
			"password":    {"password", "passwd", "pass="},
			"secret":      {"secret"},
			"token":       {"token", "auth_token", "access_token"},
			"api_key":     {"api_key", "apikey", "api key"},
			"access_key":  {"access_key", "aws_access"},
			"private_key": {"private key", "private_key", "-----begin"},
		},
		KeywordFamilyCap: 2,
		CodeHostingDomains: []string{
			"github.com", "gitlab.com", "bitbucket.org",
		},
		ReputableDomains: []string{
			"github.com", "stackoverflow.com", "wikipedia.org", "docs.",
		},
		MinTitleLength: 10,
		Thresholds:     Thresholds{High: 0.6, Medium: 0.3},
	}
}

// Scorer computes scores from one Config. Safe for concurrent use.
type Scorer struct {
	cfg Config
}

func NewScorer(cfg Config) *Scorer {
	if cfg.KeywordFamilyCap <= 0 {
		cfg.KeywordFamilyCap = 1
	}
	return &Scorer{cfg: cfg}
}

// QualityScore rates how usable a finding is: a weighted sum over snippet
// presence, meaningful title, encrypted transport and host reputation,
// normalized to [0,1].
func (s *Scorer) QualityScore(rawURL, title, snippet string) float64 {
	w := s.cfg.Quality
	total := w.Snippet + w.Title + w.HTTPS + w.Reputable
	if total <= 0 {
		return 0
	}

	var score float64
	if strings.TrimSpace(snippet) != "" {
		score += w.Snippet
	}
	if len(strings.TrimSpace(title)) > s.cfg.MinTitleLength {
		score += w.Title
	}
	if strings.HasPrefix(strings.ToLower(rawURL), "https://") {
		score += w.HTTPS
	}
	if s.matchesDomain(rawURL, s.cfg.ReputableDomains) {
		score += w.Reputable
	}
	return clamp01(score / total)
}

// RiskScore rates how likely a finding is a live leak: sensitive file type,
// credential keyword families, and off-platform hosting, normalized to [0,1].
func (s *Scorer) RiskScore(rawURL, title, snippet string) float64 {
	w := s.cfg.Risk
	total := w.Filetype + w.Keywords + w.OffPlatform
	if total <= 0 {
		return 0
	}

	var score float64

	lowered := strings.ToLower(rawURL)
	for _, ext := range s.cfg.SensitiveExtensions {
		if strings.Contains(lowered, ext) {
			score += w.Filetype
			break
		}
	}

	if families := s.matchedFamilies(title, snippet); families > 0 {
		frac := float64(families) / float64(s.cfg.KeywordFamilyCap)
		if frac > 1 {
			frac = 1
		}
		score += w.Keywords * frac
	}

	if rawURL != "" && !s.matchesDomain(rawURL, s.cfg.CodeHostingDomains) {
		score += w.OffPlatform
	}

	return clamp01(score / total)
}

// Bucket maps a risk score onto its coarse severity. Monotonic
// non-decreasing in the score by construction.
func (s *Scorer) Bucket(riskScore float64) catalog.Risk {
	t := s.cfg.Thresholds
	switch {
	case riskScore >= t.High:
		return catalog.RiskHigh
	case riskScore >= t.Medium:
		return catalog.RiskMedium
	case riskScore > 0:
		return catalog.RiskLow
	default:
		return catalog.RiskInfo
	}
}

// matchedFamilies counts distinct keyword families present in the text.
func (s *Scorer) matchedFamilies(title, snippet string) int {
	text := strings.ToLower(title + " " + snippet)
	matched := 0
	for _, family := range sortedKeys(s.cfg.KeywordFamilies) {
		for _, variant := range s.cfg.KeywordFamilies[family] {
			if strings.Contains(text, variant) {
				matched++
				break
			}
		}
	}
	return matched
}

func (s *Scorer) matchesDomain(rawURL string, domains []string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false
	}
	host := strings.ToLower(parsed.Host)
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) || strings.HasPrefix(host, d) {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
