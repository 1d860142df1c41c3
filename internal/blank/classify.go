package blank

import (
	"strings"

	"github.com/BTreeMap/LegalDraft/internal/models"
)

// rule maps context keywords to a field type.
type rule struct {
	keywords  []string
	fieldType models.FieldType
}

// rules are checked in order and the first hit wins, so earlier rules shadow later ones.
var rules = []rule{
	{keywords: []string{"petition no"}, fieldType: models.FieldTypePetitionNumber},
	{keywords: []string{"father"}, fieldType: models.FieldTypeFatherName},
	{keywords: []string{"mother"}, fieldType: models.FieldTypeMotherName},
	{keywords: []string{"vs", "versus"}, fieldType: models.FieldTypeVersus},
	{keywords: []string{"address", "residing"}, fieldType: models.FieldTypeAddress},
}

// Classify returns the semantic type of a blank from its surrounding text.
// It always returns a type; FieldTypeGeneral is the fallback.
func Classify(context string) models.FieldType {
	lower := strings.ToLower(context)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.fieldType
			}
		}
	}
	return models.FieldTypeGeneral
}
