package explorer

import (
	"strings"
	"unicode/utf8"
)

// Highlight wraps every case-insensitive occurrence of query in name with openTag
// and closeTag. Occurrences are found left to right and never overlap.
// Original casing of name is preserved.
func Highlight(name, query, openTag, closeTag string) string {
	if query == "" || name == "" {
		return name
	}

	var b strings.Builder
	rest := name
	matched := false
	for len(rest) > 0 {
		i, n := indexFold(rest, query)
		if i < 0 {
			break
		}
		matched = true
		b.WriteString(rest[:i])
		b.WriteString(openTag)
		b.WriteString(rest[i : i+n])
		b.WriteString(closeTag)
		rest = rest[i+n:]
	}
	if !matched {
		return name
	}
	b.WriteString(rest)
	return b.String()
}

// containsFold reports whether substr occurs in s ignoring case.
func containsFold(s, substr string) bool {
	i, _ := indexFold(s, substr)
	return i >= 0
}

// indexFold returns the byte offset and byte length of the first
// case-insensitive occurrence of substr in s, or -1.
func indexFold(s, substr string) (int, int) {
	if substr == "" {
		return 0, 0
	}
	qn := utf8.RuneCountInString(substr)
	for i := 0; i < len(s); {
		// Take as many runes from s as substr has and compare them folded.
		end := i
		for r := 0; r < qn && end < len(s); r++ {
			_, size := utf8.DecodeRuneInString(s[end:])
			end += size
		}
		if strings.EqualFold(s[i:end], substr) {
			return i, end - i
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return -1, 0
}
