package interview

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/BTreeMap/LegalDraft/internal/models"
)

//go:embed prompts/question_flow.txt
var questionFlow string

const (
	questionSystemPrompt = "Generate a clear, specific question to fill in the blank in this legal document context."

	nextStepSystemPrompt = `You are a specialized legal document assistant that asks one question at a time based on the selected document type. After each answer, record it and move on to the next relevant question. Never ask more than one question at a time.

Responses received so far:
%s

Provide the next appropriate question for this document type given the responses above. If every question has been answered, produce the final document instead.`

	documentSystemPrompt = `You are a legal document generator. Using the responses below, write a complete %s. Make it formal and professionally formatted.

Responses:
%s`

	notProvided = "Not provided yet"
)

// canned holds the fixed questions for types that need no generation.
var canned = map[models.FieldType]string{
	models.FieldTypeFatherName: "What is the petitioner's father's name?",
	models.FieldTypeMotherName: "What is the petitioner's mother's name?",
	models.FieldTypeSpouseName: "What is the petitioner's spouse's name?",
	models.FieldTypeAddress:    "What is the complete address?",
	models.FieldTypeAge:        "What is the age of the person?",
	models.FieldTypeOccupation: "What is the person's occupation?",
}

func questionUserPrompt(context string) string {
	return fmt.Sprintf("Context: %s\nGenerate a question for the blank field.", context)
}

// formatResponses renders "question: answer" lines in insertion order.
func formatResponses(responses models.ResponseMap) string {
	lines := make([]string, 0, responses.Len())
	responses.Each(func(question, answer string) {
		lines = append(lines, question+": "+answer)
	})
	return strings.Join(lines, "\n")
}

func nextStepPrompts(documentType, currentAnswer string, responses models.ResponseMap) (string, string) {
	if currentAnswer == "" {
		currentAnswer = notProvided
	}
	system := fmt.Sprintf(nextStepSystemPrompt, formatResponses(responses))
	user := fmt.Sprintf("Document Type: %s\nCurrent Answer: %s\n\n%s\nReply with only the next appropriate question, with no other text or explanation. When all answers are in, generate the complete %s from the responses.\n",
		documentType, currentAnswer, questionFlow, documentType)
	return system, user
}

func documentPrompts(documentType string, responses models.ResponseMap) (string, string) {
	system := fmt.Sprintf(documentSystemPrompt, documentType, formatResponses(responses))
	user := fmt.Sprintf("Please generate a complete %s using the provided responses.", documentType)
	return system, user
}
