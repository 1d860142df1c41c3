package models

// FieldType is the semantic tag of a blank field.
type FieldType string

const (
	FieldTypePetitionNumber FieldType = "petition_number"
	FieldTypeFatherName     FieldType = "father_name"
	FieldTypeMotherName     FieldType = "mother_name"
	FieldTypeVersus         FieldType = "versus"
	FieldTypeAddress        FieldType = "address"
	FieldTypeGeneral        FieldType = "general"

	// The classifier never produces these; they only have canned questions.
	FieldTypeSpouseName FieldType = "spouse_name"
	FieldTypeAge        FieldType = "age"
	FieldTypeOccupation FieldType = "occupation"
)

// BlankField is one located gap in a document. Offsets are byte offsets into the exact
// text the field was scanned from.
type BlankField struct {
	Token        string    `json:"blank"`
	Position     int       `json:"position"`
	Length       int       `json:"length"`
	Context      string    `json:"context,omitempty"`
	ContextStart int       `json:"contextStart"`
	Type         FieldType `json:"type,omitempty"`
}

// End returns the offset one past the last byte of the token.
func (f BlankField) End() int {
	return f.Position + f.Length
}

// InterviewState is the caller-held progress of one blank-driven interview.
type InterviewState struct {
	DocumentText         string `json:"documentText"`
	CurrentQuestionIndex int    `json:"currentQuestionIndex"`
}
