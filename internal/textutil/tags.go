package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Casers carry state and must not be shared between goroutines.
func lower(value string) string {
	return cases.Lower(language.Und).String(value)
}

// NormalizeTag lowercases a tag and collapses internal whitespace. A leading
// hashtag marker is kept so social-style tags survive.
func NormalizeTag(tag string) string {
	fields := strings.Fields(tag)
	if len(fields) == 0 {
		return ""
	}
	return lower(strings.Join(fields, " "))
}

// NormalizeTags normalizes every tag, dropping empties and later duplicates
// while preserving first-seen order.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, raw := range tags {
		tag := NormalizeTag(raw)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// SplitTags parses a comma separated tag list as typed on the command line.
func SplitTags(value string) []string {
	return NormalizeTags(strings.Split(value, ","))
}

// TitleCase title-cases a display name. Names that already contain an
// uppercase letter are returned trimmed but otherwise untouched.
func TitleCase(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" || name != lower(name) {
		return name
	}
	return cases.Title(language.Und).String(name)
}
