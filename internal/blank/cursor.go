package blank

import "github.com/BTreeMap/LegalDraft/internal/models"

// Step is the field the interview should ask about next.
type Step struct {
	Field     models.BlankField
	Index     int
	Total     int
	Remaining int
}

// Select picks the field at index from a freshly scanned list. It reports false when
// index is past the last field, meaning the interview is complete. The cursor only
// moves linearly; it never skips a field.
func Select(fields []models.BlankField, index int) (Step, bool) {
	if index < 0 || index >= len(fields) {
		return Step{Total: len(fields)}, false
	}
	return Step{
		Field:     fields[index],
		Index:     index,
		Total:     len(fields),
		Remaining: len(fields) - index - 1,
	}, true
}
