package payroll

import (
	"strings"
	"unicode"
)

const maxNameLength = 35

// CleanIBAN strips every whitespace character from an account number.
// Idempotent: cleaning a cleaned IBAN is a no-op.
func CleanIBAN(iban string) string {
	return strings.Join(strings.Fields(iban), "")
}

// CleanName prepares a beneficiary name for the bank's character-set rules.
// Arabic names are passed through untouched apart from surrounding
// whitespace, per bank requirement. Everything else is reduced to the
// allowed character set and truncated to 35 characters at a word boundary,
// never mid-word.
func CleanName(name string) string {
	name = strings.TrimSpace(name)
	if containsArabic(name) {
		return name
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '.', r == '-', r == '/':
			b.WriteRune(r)
		}
	}
	cleaned := strings.Join(strings.Fields(b.String()), " ")
	return truncateAtWord(cleaned, maxNameLength)
}

func containsArabic(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Arabic, r) {
			return true
		}
	}
	return false
}

// truncateAtWord keeps whole words while the result fits in max characters.
// A single word longer than max is hard-cut; there is no boundary to keep.
func truncateAtWord(s string, max int) string {
	if len(s) <= max {
		return s
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}
	if len(words[0]) > max {
		return words[0][:max]
	}
	out := words[0]
	for _, w := range words[1:] {
		if len(out)+1+len(w) > max {
			break
		}
		out += " " + w
	}
	return out
}
