package application

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/ahrav/ragconsole/internal/domain"
)

// SuggestionThreshold is the minimum similarity for a "did you mean" hint.
const SuggestionThreshold = 0.5

// Suggest returns the catalog entry closest to name, comparing case-folded
// strings by normalized Levenshtein similarity. Sentinel entries are never
// suggested. ok is false when nothing reaches SuggestionThreshold.
func Suggest(name string, catalog []string) (best string, ok bool) {
	fold := cases.Fold()
	target := fold.String(strings.TrimSpace(name))
	bestScore := 0.0

	for _, candidate := range catalog {
		if domain.IsSentinel(candidate) {
			continue
		}
		score := similarity(target, fold.String(candidate))
		if score > bestScore {
			best, bestScore = candidate, score
		}
	}
	if bestScore < SuggestionThreshold {
		return "", false
	}
	return best, true
}

// similarity is 1 - distance/maxRuneLength, in [0,1].
func similarity(a, b string) float64 {
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1
	}
	s := 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
	if s < 0 {
		return 0
	}
	return s
}

// unknownSelection builds the validation error for a value missing from a
// catalog, with a hint when a close entry exists.
func unknownSelection(entity, value string, catalog []string) *domain.ValidationError {
	msg := entity + " " + quote(value) + " is not available"
	if hint, ok := Suggest(value, catalog); ok {
		msg += "; did you mean " + quote(hint) + "?"
	}
	return domain.Invalid(entity, domain.ErrUnknownSelection, msg)
}

func quote(s string) string { return "\"" + s + "\"" }
