package usecase

import (
	"regexp"
	"strings"
)

// Package-level compiled regex pattern for performance
var nonWordRegex = regexp.MustCompile(`[^\w\s]`)

// genericWords are tokens too vague to help a product query
var genericWords = map[string]bool{
	"object":  true,
	"product": true,
	"item":    true,
	"thing":   true,
}

// genericPhrases are whole cleaned phrases still too broad to search on
var genericPhrases = map[string]bool{
	"shoe":    true,
	"sneaker": true,
	"trainer": true,
	"phone":   true,
}

// CleanSearchTerm normalizes a detected label into a search-safe query
// fragment: lower-cased, punctuation stripped, generic tokens dropped,
// truncated to the first two remaining tokens. Returns "" when nothing
// specific enough survives. Callers must skip empty results.
func CleanSearchTerm(term string) string {
	term = nonWordRegex.ReplaceAllString(strings.ToLower(term), "")

	words := strings.Fields(term)

	kept := make([]string, 0, len(words))
	for _, w := range words {
		if genericWords[w] {
			continue
		}
		kept = append(kept, w)
		if len(kept) == 2 {
			break
		}
	}

	cleaned := strings.Join(kept, " ")
	if genericPhrases[cleaned] {
		return ""
	}

	return cleaned
}
