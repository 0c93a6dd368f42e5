package query

import (
	"strings"
)

// QueryBuilder constructs platform search query strings.
// All methods are pure functions with no side effects.
// Zero value is ready to use.
type QueryBuilder struct{}

// BuildKeywordQuery returns a disjunctive query matching any keyword:
// `kw1 OR kw2 OR ...`. Keywords containing whitespace are quoted as phrases.
// Blank keywords are skipped; an empty result means nothing to search.
func (b QueryBuilder) BuildKeywordQuery(keywords []string) string {
	terms := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if term := b.buildTerm(kw); term != "" {
			terms = append(terms, term)
		}
	}
	return strings.Join(terms, " OR ")
}

func (b QueryBuilder) buildTerm(kw string) string {
	kw = strings.TrimSpace(kw)
	if kw == "" {
		return ""
	}
	if strings.ContainsAny(kw, " \t\"") {
		return `"` + strings.ReplaceAll(strings.Join(strings.Fields(kw), " "), `"`, "") + `"`
	}
	return kw
}
