package search

import (
	"regexp"
	"strings"
)

// Sections is the best-effort decomposition of a search answer into its
// numbered parts. Any field may be empty when the answer was not structured
// the way the system prompt requested.
type Sections struct {
	Summary string
	Detail  string
	Sources string
}

// Numbered-marker patterns for the three answer sections the search system
// prompt asks for: "1) short answer", "2) details", "3) sources".
var (
	summaryPattern = regexp.MustCompile(`(?s)(?:1\)|1\.)[^\n]*\n?(.*?)(?:2\)|2\.)`)
	detailPattern  = regexp.MustCompile(`(?s)(?:2\)|2\.)[^\n]*\n?(.*?)(?:3\)|3\.|$)`)
	sourcesPattern = regexp.MustCompile(`(?s)(?:3\)|3\.)[^\n]*\n?(.*)$`)
	urlPattern     = regexp.MustCompile(`https?://[^\s)"\\\]>]+`)
)

// SplitIntoSections segments a search answer into summary, detail, and
// sources using the numbered markers, falling back to paragraph boundaries
// when the markers are absent. It never fails: an unstructured answer lands
// entirely in Summary.
func SplitIntoSections(text string) Sections {
	if strings.Contains(text, "1)") && strings.Contains(text, "2)") ||
		strings.Contains(text, "1.") && strings.Contains(text, "2.") {
		var s Sections
		if m := summaryPattern.FindStringSubmatch(text); m != nil {
			s.Summary = strings.TrimSpace(m[1])
		}
		if m := detailPattern.FindStringSubmatch(text); m != nil {
			s.Detail = strings.TrimSpace(m[1])
		}
		if m := sourcesPattern.FindStringSubmatch(text); m != nil {
			s.Sources = strings.TrimSpace(m[1])
		}
		if s.Summary != "" || s.Detail != "" || s.Sources != "" {
			return s
		}
	}

	return paragraphSections(text)
}

func paragraphSections(text string) Sections {
	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}

	var s Sections
	switch {
	case len(paragraphs) == 0:
		s.Summary = strings.TrimSpace(text)
	case len(paragraphs) == 1:
		s.Summary = paragraphs[0]
	default:
		s.Summary = paragraphs[0]
		last := paragraphs[len(paragraphs)-1]
		if mentionsSources(last) {
			s.Sources = last
			s.Detail = strings.Join(paragraphs[1:len(paragraphs)-1], "\n\n")
		} else {
			s.Detail = strings.Join(paragraphs[1:], "\n\n")
		}
	}
	return s
}

func mentionsSources(text string) bool {
	return strings.Contains(strings.ToLower(text), "источник")
}

// ExtractURLs returns every URL-shaped substring in order of appearance.
func ExtractURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}
