package customizer

import (
	"sort"
	"strings"
)

// categoryKeywords maps normalized category names to the keyword sets used
// when generating classification logic. Lookup normalizes case and
// punctuation, so "Support - Technical" resolves through "support".
var categoryKeywords = map[string][]string{
	"new leads":         {"quote", "price", "cost", "interested", "inquiry", "information"},
	"sales":             {"quote", "price", "buy", "purchase", "order", "interested"},
	"support":           {"help", "issue", "problem", "broken", "error", "not working"},
	"technical support": {"help", "issue", "problem", "broken", "error", "bug", "crash"},
	"billing":           {"invoice", "payment", "charge", "refund", "receipt", "billing"},
	"scheduling":        {"appointment", "schedule", "booking", "reschedule", "availability"},
	"complaints":        {"complaint", "unhappy", "disappointed", "unacceptable", "refund"},
	"partnerships":      {"partnership", "collaborate", "sponsor", "affiliate", "proposal"},
	"recruiting":        {"resume", "cv", "application", "position", "candidate", "hiring"},
	"general":           {"hello", "question", "info"},
}

// sortedDictionaryKeys is computed once so containment fallback scans the
// dictionary in a stable order.
var sortedDictionaryKeys = func() []string {
	keys := make([]string, 0, len(categoryKeywords))
	for key := range categoryKeywords {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}()

// normalizeCategoryName lowercases a category name and collapses punctuation
// into single spaces.
func normalizeCategoryName(name string) string {
	var builder strings.Builder

	lastWasSpace := true

	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			builder.WriteRune(r)

			lastWasSpace = false
		default:
			if !lastWasSpace {
				builder.WriteByte(' ')
			}

			lastWasSpace = true
		}
	}

	return strings.TrimSpace(builder.String())
}

// keywordsFor derives the keyword set for a category name. Exact dictionary
// match wins; otherwise the first dictionary key contained in the normalized
// name (scanned in sorted order) is used; otherwise the normalized name plus
// its first word. The result is deterministic for a given input.
func keywordsFor(name string) []string {
	normalized := normalizeCategoryName(name)
	if normalized == "" {
		return nil
	}

	if keywords, ok := categoryKeywords[normalized]; ok {
		return append([]string(nil), keywords...)
	}

	for _, key := range sortedDictionaryKeys {
		if strings.Contains(normalized, key) {
			return append([]string(nil), categoryKeywords[key]...)
		}
	}

	keywords := []string{normalized}

	if first, _, found := strings.Cut(normalized, " "); found && first != normalized {
		keywords = append(keywords, first)
	}

	return keywords
}
