package suggest

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxExtra caps the keywords taken beyond alias matches.
const DefaultMaxExtra = 5

const minTokenLen = 3

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true, "that": true,
	"this": true, "are": true, "was": true, "were": true, "have": true, "has": true,
	"into": true, "about": true, "over": true, "under": true, "all": true, "any": true,
	"our": true, "their": true, "who": true, "what": true, "which": true, "when": true,
	"where": true, "will": true, "would": true, "should": true, "can": true, "not": true,
	"need": true, "needs": true, "want": true, "using": true, "use": true, "data": true,
	"dataset": true, "datasets": true, "access": true, "study": true, "per": true,
}

// CategorySuggestion is a ranked category match.
type CategorySuggestion struct {
	ID            string `json:"id"`
	Label         string `json:"label"`
	Score         int    `json:"score"`
	IsHighlighted bool   `json:"isHighlighted"`
}

// Result holds extracted keywords and ranked categories.
type Result struct {
	Keywords   []string             `json:"keywords"`
	Categories []CategorySuggestion `json:"categories"`
}

// Engine suggests keywords and categories from free text. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	taxonomy Taxonomy
	aliasOf  map[string][]int
	domain   map[string]bool
	maxExtra int
}

// NewEngine builds an engine over the taxonomy. maxExtra <= 0 uses the default.
func NewEngine(tax Taxonomy, maxExtra int) *Engine {
	if maxExtra <= 0 {
		maxExtra = DefaultMaxExtra
	}
	e := &Engine{
		taxonomy: tax,
		aliasOf:  make(map[string][]int),
		domain:   make(map[string]bool, len(tax.DomainTerms)),
		maxExtra: maxExtra,
	}
	for i, cat := range tax.Categories {
		for _, alias := range cat.Aliases {
			alias = strings.ToLower(alias)
			e.aliasOf[alias] = append(e.aliasOf[alias], i)
		}
	}
	for _, term := range tax.DomainTerms {
		e.domain[strings.ToLower(term)] = true
	}
	return e
}

// Suggest extracts keywords from text and ranks matching categories.
func (e *Engine) Suggest(text string) Result {
	tokens := Tokenize(text)

	type stat struct {
		count int
		first int
	}
	stats := make(map[string]*stat)
	var order []string
	for i, tok := range tokens {
		if st, ok := stats[tok]; ok {
			st.count++
			continue
		}
		stats[tok] = &stat{count: 1, first: i}
		order = append(order, tok)
	}

	keywords := []string{}
	var extra []string
	for _, tok := range order {
		if _, ok := e.aliasOf[tok]; ok {
			keywords = append(keywords, tok)
		} else {
			extra = append(extra, tok)
		}
	}

	sort.SliceStable(extra, func(i, j int) bool {
		a, b := extra[i], extra[j]
		if e.domain[a] != e.domain[b] {
			return e.domain[a]
		}
		if stats[a].count != stats[b].count {
			return stats[a].count > stats[b].count
		}
		return stats[a].first < stats[b].first
	})
	if len(extra) > e.maxExtra {
		extra = extra[:e.maxExtra]
	}
	keywords = append(keywords, extra...)

	return Result{Keywords: keywords, Categories: e.rank(keywords)}
}

// Rank scores categories against an existing keyword set.
func (e *Engine) Rank(keywords []string) []CategorySuggestion {
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		normalized = append(normalized, strings.ToLower(strings.TrimSpace(kw)))
	}
	return e.rank(normalized)
}

func (e *Engine) rank(keywords []string) []CategorySuggestion {
	scores := make([]int, len(e.taxonomy.Categories))
	seen := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		if seen[kw] {
			continue
		}
		seen[kw] = true
		for _, idx := range e.aliasOf[kw] {
			scores[idx]++
		}
	}

	out := []CategorySuggestion{}
	for i, cat := range e.taxonomy.Categories {
		if scores[i] < 1 {
			continue
		}
		out = append(out, CategorySuggestion{
			ID:            cat.ID,
			Label:         cat.Label,
			Score:         scores[i],
			IsHighlighted: scores[i] >= 2,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// Tokenize lowercases text, splits on anything that is not a letter or digit,
// and drops stopwords and short tokens.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) < minTokenLen || stopwords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
