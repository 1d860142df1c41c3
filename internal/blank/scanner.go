// Package blank locates, types and fills the blank fields of a legal document.
//
// A scan runs several independent matchers over the whole text, pools their matches
// and orders them by position. Overlapping matches from different matchers are all
// kept: the interview index counts every one of them.
package blank

import (
	"log/slog"
	"regexp"
	"sort"
	"unicode/utf8"

	"github.com/BTreeMap/LegalDraft/internal/models"
)

// Default context radii, in bytes.
const (
	DefaultScanRadius     = 50
	DefaultQuestionRadius = 150
)

// gap matches any bare blank marker; the prefixed matchers embed it.
const gap = `(?:_{3,}|\[blank\]|\(\s*\))`

// matcher finds one lexical kind of blank.
type matcher struct {
	name string
	re   *regexp.Regexp
}

// matchers run in this order; ties on position keep it.
var matchers = []matcher{
	{name: "underscores", re: regexp.MustCompile(`_{3,}`)},
	{name: "blank_tag", re: regexp.MustCompile(`(?i)\[blank\]`)},
	{name: "empty_parens", re: regexp.MustCompile(`\(\s*\)`)},
	{name: "petition_no", re: regexp.MustCompile(`(?i)PETITION NO\.\s*` + gap)},
	{name: "of_blank", re: regexp.MustCompile(`(?i)of\s*` + gap)},
	{name: "fathers_name", re: regexp.MustCompile(`(?i)father['’]?s?\s+name\s*:\s*` + gap)},
}

// Scanner finds the blank fields of a document.
type Scanner struct {
	radius int
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithContextRadius sets the classification context radius.
func WithContextRadius(radius int) ScannerOption {
	return func(s *Scanner) {
		if radius >= 0 {
			s.radius = radius
		}
	}
}

// NewScanner creates a Scanner using DefaultScanRadius unless overridden.
func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{radius: DefaultScanRadius}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan returns every blank field in text, ordered by position. It never fails; a text
// without blanks yields an empty slice.
func (s *Scanner) Scan(text string) []models.BlankField {
	fields := make([]models.BlankField, 0)
	for _, m := range matchers {
		// FindAllStringIndex steps past empty matches, so no matcher can loop.
		for _, loc := range m.re.FindAllStringIndex(text, -1) {
			start, end := loc[0], loc[1]
			ctxStart, ctxEnd := Window(text, start, end-start, s.radius)
			context := text[ctxStart:ctxEnd]
			fields = append(fields, models.BlankField{
				Token:        text[start:end],
				Position:     start,
				Length:       end - start,
				Context:      context,
				ContextStart: ctxStart,
				Type:         Classify(context),
			})
		}
	}
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].Position < fields[j].Position
	})
	slog.Debug("Scanner.Scan: blanks located", "count", len(fields), "text_length", len(text))
	return fields
}

// Window returns the bounds of the context around [position, position+length),
// clamped to the text and narrowed so it never splits a UTF-8 sequence.
func Window(text string, position, length, radius int) (int, int) {
	start := position - radius
	if start < 0 {
		start = 0
	}
	end := position + length + radius
	if end > len(text) {
		end = len(text)
	}
	for start < position && start < len(text) && !utf8.RuneStart(text[start]) {
		start++
	}
	for end > position+length && end < len(text) && !utf8.RuneStart(text[end]) {
		end--
	}
	return start, end
}
