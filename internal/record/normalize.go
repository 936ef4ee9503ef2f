package record

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// Normalize trims, lowercases, and collapses internal whitespace.
// Used for case-insensitive filtering of tags and free-text queries.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// ParseTags splits comma-separated tag text. Entries are trimmed; empty ones are dropped.
func ParseTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return NormalizeTags(strings.Split(s, ","))
}

// NormalizeTags trims tags, drops empties, and removes case-insensitive duplicates
// (first spelling wins).
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		key := Normalize(t)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// MergeTags appends add to existing without duplicates.
func MergeTags(existing, add []string) []string {
	return NormalizeTags(append(append([]string{}, existing...), add...))
}

// HasTag reports whether tags contains tag (case-insensitive).
func HasTag(tags []string, tag string) bool {
	want := Normalize(tag)
	for _, t := range tags {
		if Normalize(t) == want {
			return true
		}
	}
	return false
}

// Truncate cuts s to at most max runes. max <= 0 disables truncation.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
