package retrieve

import "strings"

// Words that carry no product information in shopper phrasing.
var stopwords = map[string]bool{
	// English
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"for": true, "of": true, "with": true, "under": true, "less": true, "than": true,
	// Italian articles and prepositions
	"il": true, "lo": true, "la": true, "le": true, "gli": true, "un": true, "una": true,
	"di": true, "da": true, "per": true, "con": true, "e": true,
	// Price phrasing
	"minori": true, "meno": true, "euro": true,
}

// ExtractSearchTerms converts shopper text to FTS5 MATCH syntax.
// Terms are joined with spaces, which FTS5 reads as AND.
func ExtractSearchTerms(query string) string {
	return strings.Join(extractTerms(query), " ")
}

func extractTerms(query string) []string {
	words := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(words))

	for _, w := range words {
		w = strings.Trim(w, ".,?!\"'`:;()[]{}*<>")
		if w == "" || stopwords[w] {
			continue
		}
		terms = append(terms, escapeFTS5(w))
	}

	return terms
}

// escapeFTS5 quotes terms that are not FTS5 barewords. Terms are lower-cased,
// so they never collide with the AND/OR/NOT keywords.
func escapeFTS5(term string) string {
	needsQuoting := false
	for _, c := range term {
		if c < 128 && c != '_' && !(c >= 'a' && c <= 'z') && !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			needsQuoting = true
			break
		}
	}

	if needsQuoting {
		return `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
	}
	return term
}
