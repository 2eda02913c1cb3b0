package explorer

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FoldName returns the lower-cased form of a name, matching lower(name) in
// PostgreSQL. Two siblings whose folded names are equal collide.
// A Caser is stateful, so one is created per call.
func FoldName(s string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}
