package blank

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/LegalDraft/internal/models"
)

// Apply replaces the blank described by loc with answer and returns the new text.
//
// The locator resolves only at its recorded offset: the token must still sit at
// [Position, End). Callers rescan after every fill, so a locator from an older scan
// that no longer lines up is a resolution error and the text is returned as it was.
func Apply(text, answer string, loc *models.BlankField) (string, error) {
	if text == "" || answer == "" || loc == nil {
		return text, fmt.Errorf("%w: missing document text, answer or locator", models.ErrValidation)
	}
	if loc.Token == "" || loc.Length <= 0 || loc.Position < 0 || loc.Length != len(loc.Token) {
		return text, fmt.Errorf("%w: malformed locator", models.ErrValidation)
	}
	if !tokenAt(text, loc.Position, loc.Token) {
		slog.Debug("blank.Apply: locator did not resolve", "position", loc.Position, "token", loc.Token)
		return text, fmt.Errorf("%w: %q not found at position %d", models.ErrResolution, loc.Token, loc.Position)
	}

	var b strings.Builder
	b.Grow(len(text) - loc.Length + len(answer))
	b.WriteString(text[:loc.Position])
	b.WriteString(answer)
	b.WriteString(text[loc.End():])
	slog.Debug("blank.Apply: blank filled", "position", loc.Position, "length", loc.Length, "answer_length", len(answer))
	return b.String(), nil
}

func tokenAt(text string, pos int, token string) bool {
	return pos >= 0 && pos+len(token) <= len(text) && text[pos:pos+len(token)] == token
}
