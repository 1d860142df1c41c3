// Package interview phrases interview questions and assembles finished documents.
//
// Composer serves the blank-driven flow: one question per scanned blank, canned when
// the blank's type has a standard question and generated otherwise. Assembler serves
// the template-driven flow, where the generation service decides which question comes
// next from the full response history.
package interview

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/LegalDraft/internal/blank"
	"github.com/BTreeMap/LegalDraft/internal/genai"
	"github.com/BTreeMap/LegalDraft/internal/models"
)

// Generation parameters per call kind.
const (
	QuestionTemperature = 0.7
	QuestionMaxTokens   = 150
	DocumentTemperature = 0.7
	DocumentMaxTokens   = 2000
)

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, req genai.Request) (string, error)
}

// generate calls gen and tags every failure as an upstream error.
func generate(ctx context.Context, gen Generator, req genai.Request) (string, error) {
	if gen == nil {
		return "", fmt.Errorf("%w: generation service not configured", models.ErrUpstream)
	}
	out, err := gen.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrUpstream, err)
	}
	return strings.TrimSpace(out), nil
}

// Composer builds the question for one blank field.
type Composer struct {
	gen    Generator
	radius int
}

// ComposerOption configures a Composer.
type ComposerOption func(*Composer)

// WithQuestionRadius sets the context radius sent to the generation service.
func WithQuestionRadius(radius int) ComposerOption {
	return func(c *Composer) {
		if radius >= 0 {
			c.radius = radius
		}
	}
}

// NewComposer creates a Composer. gen may be nil, in which case only canned questions
// can be produced.
func NewComposer(gen Generator, opts ...ComposerOption) *Composer {
	c := &Composer{gen: gen, radius: blank.DefaultQuestionRadius}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Question returns the question for field, which must have been scanned from text.
func (c *Composer) Question(ctx context.Context, text string, field models.BlankField) (string, error) {
	if q, ok := canned[field.Type]; ok {
		slog.Debug("Composer.Question: canned question", "type", field.Type, "position", field.Position)
		return q, nil
	}

	start, end := blank.Window(text, field.Position, field.Length, c.radius)
	slog.Debug("Composer.Question: generating question", "type", field.Type, "position", field.Position, "context_length", end-start)
	return generate(ctx, c.gen, genai.Request{
		SystemPrompt: questionSystemPrompt,
		UserPrompt:   questionUserPrompt(text[start:end]),
		Temperature:  QuestionTemperature,
		MaxTokens:    QuestionMaxTokens,
	})
}

// Assembler drives the template-driven flow.
type Assembler struct {
	gen Generator
}

// NewAssembler creates an Assembler backed by gen.
func NewAssembler(gen Generator) *Assembler {
	return &Assembler{gen: gen}
}

// NextStep asks the generation service for the single next question, or for the final
// document once the service judges every question answered. Which question comes next
// is decided entirely by the service from the forwarded history.
func (a *Assembler) NextStep(ctx context.Context, documentType, currentAnswer string, responses models.ResponseMap) (string, error) {
	system, user := nextStepPrompts(documentType, currentAnswer, responses)
	slog.Debug("Assembler.NextStep: requesting next step", "document_type", documentType, "responses", responses.Len(), "has_answer", currentAnswer != "")
	return generate(ctx, a.gen, genai.Request{
		SystemPrompt: system,
		UserPrompt:   user,
		Temperature:  QuestionTemperature,
		MaxTokens:    QuestionMaxTokens,
	})
}

// Generate renders the complete document from all collected responses.
func (a *Assembler) Generate(ctx context.Context, documentType string, responses models.ResponseMap) (string, error) {
	system, user := documentPrompts(documentType, responses)
	slog.Debug("Assembler.Generate: requesting document", "document_type", documentType, "responses", responses.Len())
	return generate(ctx, a.gen, genai.Request{
		SystemPrompt: system,
		UserPrompt:   user,
		Temperature:  DocumentTemperature,
		MaxTokens:    DocumentMaxTokens,
	})
}
