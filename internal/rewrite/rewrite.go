// Package rewrite expands raw user queries into richer search queries and
// measures their lexical complexity.
package rewrite

import (
	"regexp"
	"strings"
)

// Complexity describes the lexical shape of a processed query.
type Complexity struct {
	TermCount         int     `json:"term_count"`
	AverageTermLength float64 `json:"average_term_length"`
	HasTechnicalTerms bool    `json:"has_technical_terms"`
	IsComplex         bool    `json:"is_complex"`
}

// ProcessedQuery is the result of rewriting a raw query.
type ProcessedQuery struct {
	Original   string
	Expanded   string
	Terms      []string // deduplicated, first-seen order
	Expansions []string
	Complexity Complexity
}

// SearchPlan is a processed query packaged for a retrieval call.
type SearchPlan struct {
	SearchQuery    string
	EffectiveTopK  int
	ExpansionTerms []string
	Complexity     Complexity
}

// maxEffectiveTopK bounds the over-fetch sent to the retrieval backend.
const maxEffectiveTopK = 20

// expansionTable maps domain trigger words to related search terms. A slice
// keeps expansion order deterministic; every trigger that appears as a
// substring of the query contributes all of its related terms.
var expansionTable = []struct {
	trigger string
	related []string
}{
	{"install", []string{"setup", "configure", "deployment", "installation"}},
	{"error", []string{"issue", "problem", "troubleshoot", "fix"}},
	{"config", []string{"configuration", "settings", "preferences", "options"}},
	{"api", []string{"endpoint", "interface", "rest", "request"}},
	{"auth", []string{"authentication", "authorization", "login", "credentials"}},
	{"performance", []string{"speed", "optimization", "latency", "throughput"}},
	{"deploy", []string{"deployment", "release", "rollout", "ship"}},
	{"upgrade", []string{"update", "migration", "version", "patch"}},
	{"monitor", []string{"monitoring", "metrics", "observability", "alerting"}},
	{"backup", []string{"restore", "snapshot", "recovery", "archive"}},
}

// stopWords are dropped from queries before expansion: articles,
// conjunctions, common prepositions, and question/auxiliary words.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {},
	"and": {}, "or": {}, "but": {}, "nor": {}, "so": {}, "yet": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "of": {}, "for": {},
	"with": {}, "by": {}, "from": {}, "as": {}, "into": {}, "about": {},
	"over": {}, "under": {}, "between": {}, "through": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"do": {}, "does": {}, "did": {}, "can": {}, "could": {}, "should": {},
	"would": {}, "will": {}, "may": {}, "might": {},
	"how": {}, "what": {}, "when": {}, "where": {}, "why": {}, "who": {},
	"which": {}, "that": {}, "this": {}, "these": {}, "those": {},
	"i": {}, "you": {}, "we": {}, "they": {}, "it": {},
	"my": {}, "your": {}, "our": {}, "their": {}, "its": {},
}

var (
	camelCasePattern = regexp.MustCompile(`[a-z][a-z0-9]*[A-Z]`)
	snakeCasePattern = regexp.MustCompile(`^[A-Z0-9]+(_[A-Z0-9]+)+$`)
	digitRunPattern  = regexp.MustCompile(`[0-9]{2,}`)
)

// fileExtensions are suffixes that mark a term as technical.
var fileExtensions = []string{
	".go", ".py", ".js", ".ts", ".java", ".rb", ".rs", ".c", ".cpp", ".h",
	".json", ".yaml", ".yml", ".toml", ".xml", ".sql", ".sh", ".md",
	".txt", ".csv", ".log", ".conf", ".env", ".pdf", ".docx",
}

// acronyms is a whitelist of short technical acronyms.
var acronyms = map[string]struct{}{
	"api": {}, "sql": {}, "css": {}, "dns": {}, "tcp": {}, "udp": {},
	"ssl": {}, "tls": {}, "jwt": {}, "ssh": {}, "cli": {}, "sdk": {},
	"cpu": {}, "gpu": {}, "ram": {}, "url": {}, "uri": {}, "xml": {},
	"json": {}, "yaml": {}, "http": {}, "https": {}, "grpc": {},
	"oauth": {}, "rest": {}, "orm": {}, "k8s": {}, "aws": {}, "gcp": {},
}

// Rewrite normalizes and expands a raw query.
//
// The working copy is trimmed and lowercased, domain trigger words append
// their related terms, stop words are dropped, and the surviving tokens are
// unioned with the expansions in first-seen order to form the final term
// list and expanded query string.
func Rewrite(query string) ProcessedQuery {
	working := strings.ToLower(strings.TrimSpace(query))

	var expansions []string
	for _, e := range expansionTable {
		if strings.Contains(working, e.trigger) {
			expansions = append(expansions, e.related...)
		}
	}

	var kept []string
	for _, token := range strings.Fields(working) {
		if _, stop := stopWords[token]; stop {
			continue
		}
		kept = append(kept, token)
	}

	seen := make(map[string]struct{}, len(kept)+len(expansions))
	terms := make([]string, 0, len(kept)+len(expansions))
	for _, t := range append(kept, expansions...) {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
	}

	return ProcessedQuery{
		Original:   query,
		Expanded:   strings.Join(terms, " "),
		Terms:      terms,
		Expansions: expansions,
		Complexity: measureComplexity(terms),
	}
}

// PrepareSearch rewrites the query and sizes the retrieval request. The
// backend is always asked for 2 more results than requested (bounded at 20)
// to give the curator slack for filtering.
func PrepareSearch(query string, topK int) SearchPlan {
	pq := Rewrite(query)

	effective := topK + 2
	if effective > maxEffectiveTopK {
		effective = maxEffectiveTopK
	}

	searchQuery := pq.Expanded
	if searchQuery == "" {
		searchQuery = strings.ToLower(strings.TrimSpace(query))
	}

	return SearchPlan{
		SearchQuery:    searchQuery,
		EffectiveTopK:  effective,
		ExpansionTerms: pq.Expansions,
		Complexity:     pq.Complexity,
	}
}

func measureComplexity(terms []string) Complexity {
	c := Complexity{TermCount: len(terms)}

	totalLen := 0
	longTerm := false
	for _, t := range terms {
		totalLen += len(t)
		if len(t) > 15 {
			longTerm = true
		}
		if !c.HasTechnicalTerms && isTechnicalTerm(t) {
			c.HasTechnicalTerms = true
		}
	}
	if len(terms) > 0 {
		c.AverageTermLength = float64(totalLen) / float64(len(terms))
	}
	c.IsComplex = c.TermCount > 3 || longTerm

	return c
}

func isTechnicalTerm(term string) bool {
	if camelCasePattern.MatchString(term) {
		return true
	}
	if snakeCasePattern.MatchString(term) {
		return true
	}
	if digitRunPattern.MatchString(term) {
		return true
	}
	for _, ext := range fileExtensions {
		if strings.HasSuffix(term, ext) {
			return true
		}
	}
	if _, ok := acronyms[term]; ok {
		return true
	}
	return false
}
