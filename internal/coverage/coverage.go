// Package coverage measures how many keywords a text mentions and repairs
// titles that miss some of them.
package coverage

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// ErrNoKeywords is returned when scoring against an empty keyword set.
var ErrNoKeywords = errors.New("coverage: no keywords to score against")

// Result is the fraction of keywords found in a text and the ones that were not.
type Result struct {
	Score   float64
	Missing []string
}

// Covered reports whether every keyword was found.
func (r Result) Covered() bool {
	return len(r.Missing) == 0
}

// Score checks each keyword as a case-insensitive substring of text.
// Missing keeps the order of keywords.
func Score(text string, keywords []string) (Result, error) {
	if len(keywords) == 0 {
		return Result{}, ErrNoKeywords
	}

	haystack := fold(text)
	var missing []string
	for _, kw := range keywords {
		if !strings.Contains(haystack, fold(strings.TrimSpace(kw))) {
			missing = append(missing, kw)
		}
	}

	n := len(keywords)
	return Result{
		Score:   float64(n-len(missing)) / float64(n),
		Missing: missing,
	}, nil
}

// Repair appends the missing keywords to title as a trailing clause,
// separated by ": " or, after sentence punctuation, by a space.
// With nothing missing the title is returned unchanged.
func Repair(title string, missing []string) string {
	if len(missing) == 0 {
		return title
	}

	terms := make([]string, 0, len(missing))
	for _, kw := range missing {
		if kw = strings.TrimSpace(kw); kw != "" {
			terms = append(terms, kw)
		}
	}
	if len(terms) == 0 {
		return title
	}
	clause := strings.Join(terms, ", ")

	base := strings.TrimRightFunc(title, unicode.IsSpace)
	if strings.TrimSpace(base) == "" {
		return clause
	}
	// A final period may belong to a keyword, so it stays.
	if last, _ := utf8.DecodeLastRuneInString(base); strings.ContainsRune(".!?…", last) {
		return base + " " + clause
	}
	return base + ": " + clause
}

func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}
