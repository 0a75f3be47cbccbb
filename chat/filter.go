// Package chat cleans chat messages before they are rebroadcast.
package chat

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// DefaultWords is used when no word list is configured.
var DefaultWords = []string{"fuck", "shit", "damn", "bitch", "asshole", "bastard"}

// Filter masks whole-word, case-insensitive matches with asterisks.
type Filter struct {
	re *regexp.Regexp
}

func NewFilter(words []string) *Filter {
	clean := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w != "" {
			clean = append(clean, regexp.QuoteMeta(w))
		}
	}
	if len(clean) == 0 {
		return &Filter{}
	}
	sort.Slice(clean, func(i, j int) bool { return len(clean[i]) > len(clean[j]) })
	return &Filter{re: regexp.MustCompile(`(?i)\b(?:` + strings.Join(clean, "|") + `)\b`)}
}

func (f *Filter) Clean(text string) string {
	if f == nil || f.re == nil || text == "" {
		return text
	}
	return f.re.ReplaceAllStringFunc(text, func(m string) string {
		return strings.Repeat("*", utf8.RuneCountInString(m))
	})
}
