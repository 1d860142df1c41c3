package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// MissingUpdateFieldsMessage is returned when apply-answer lacks a required input.
const MissingUpdateFieldsMessage = "Missing required fields: userInput, questionContext, or documentText"

// NextStepRequest is the body of POST /ai-text-query.
type NextStepRequest struct {
	DocumentType      string      `json:"documentType"`
	CurrentAnswer     string      `json:"currentAnswer,omitempty"`
	PreviousResponses ResponseMap `json:"previousResponses"`
}

// Validate checks the template-driven next-step request.
func (r *NextStepRequest) Validate() error {
	return validateDocumentType(r.DocumentType)
}

// NextStepResponse carries the next question or the final document.
type NextStepResponse struct {
	APIResponse
	ResponseText string `json:"responseText"`
}

// GenerateDocumentRequest is the body of POST /generate-document.
type GenerateDocumentRequest struct {
	DocumentType string      `json:"documentType"`
	Responses    ResponseMap `json:"responses"`
	DeliverTo    string      `json:"deliverTo,omitempty"` // optional recipient for the finished document
}

// Validate checks the full-document request.
func (r *GenerateDocumentRequest) Validate() error {
	return validateDocumentType(r.DocumentType)
}

// GenerateDocumentResponse carries the rendered document.
type GenerateDocumentResponse struct {
	APIResponse
	Document   string `json:"document"`
	Delivered  bool   `json:"delivered,omitempty"`
	DeliveryID string `json:"deliveryId,omitempty"`
}

// maxExactIndex bounds the indices kept as given. Anything larger is past every
// possible field list and is clamped.
const maxExactIndex = 1 << 53

// ProcessDocumentRequest is the body of POST /process-document. The index is kept as a
// JSON number so values like 5.0 or 1e20 decode instead of failing on an int field.
type ProcessDocumentRequest struct {
	DocumentText         string      `json:"documentText"`
	CurrentQuestionIndex json.Number `json:"currentQuestionIndex,omitempty"`
}

// State returns the interview state, defaulting the index to 0. Validate must have
// succeeded first.
func (r *ProcessDocumentRequest) State() InterviewState {
	idx := 0
	if r.CurrentQuestionIndex != "" {
		// Out-of-range values come back as +Inf alongside the error.
		f, _ := r.CurrentQuestionIndex.Float64()
		if f >= maxExactIndex {
			idx = math.MaxInt
		} else if f > 0 {
			idx = int(f)
		}
	}
	return InterviewState{DocumentText: r.DocumentText, CurrentQuestionIndex: idx}
}

// Validate rejects indices that are negative or not whole numbers.
func (r *ProcessDocumentRequest) Validate() error {
	if r.CurrentQuestionIndex == "" {
		return nil
	}
	f, err := r.CurrentQuestionIndex.Float64()
	if err != nil && !math.IsInf(f, 0) {
		return fmt.Errorf("%w: currentQuestionIndex must be a number", ErrValidation)
	}
	if f != math.Trunc(f) {
		return fmt.Errorf("%w: currentQuestionIndex must be a whole number", ErrValidation)
	}
	if f < 0 {
		return fmt.Errorf("%w: currentQuestionIndex must not be negative", ErrValidation)
	}
	return nil
}

// InterviewCompleteResponse is returned once every blank has been asked about.
type InterviewCompleteResponse struct {
	APIResponse
	Complete bool `json:"complete"`
}

// InterviewQuestionResponse carries the question for the blank at CurrentIndex.
type InterviewQuestionResponse struct {
	APIResponse
	Complete        bool       `json:"complete"`
	Question        string     `json:"question"`
	CurrentIndex    int        `json:"currentIndex"`
	TotalBlanks     int        `json:"totalBlanks"`
	BlankContext    BlankField `json:"blankContext"`
	RemainingBlanks int        `json:"remainingBlanks"`
}

// UpdateSectionRequest is the body of POST /update-section.
type UpdateSectionRequest struct {
	UserInput       string      `json:"userInput"`
	QuestionContext *BlankField `json:"questionContext"`
	DocumentText    string      `json:"documentText"`
}

// Validate requires all three inputs; empty strings count as absent.
func (r *UpdateSectionRequest) Validate() error {
	if r.UserInput == "" || r.QuestionContext == nil || r.DocumentText == "" {
		return fmt.Errorf("%w: %s", ErrValidation, MissingUpdateFieldsMessage)
	}
	if len(r.UserInput) > MaxAnswerLength {
		return fmt.Errorf("%w: userInput exceeds maximum length", ErrValidation)
	}
	return nil
}

// UpdateSectionResponse carries the patched document.
type UpdateSectionResponse struct {
	APIResponse
	UpdatedContent string `json:"updatedContent"`
}

// UpdateSectionFailure echoes the unchanged document when the target cannot be resolved.
type UpdateSectionFailure struct {
	APIResponse
	DocumentText string `json:"documentText,omitempty"`
}

// DeliveriesResponse lists recorded document deliveries.
type DeliveriesResponse struct {
	APIResponse
	Deliveries []Delivery `json:"deliveries"`
}

// ReceiptsResponse lists provider receipts.
type ReceiptsResponse struct {
	APIResponse
	Receipts []Receipt `json:"receipts"`
}

func validateDocumentType(documentType string) error {
	if strings.TrimSpace(documentType) == "" {
		return fmt.Errorf("%w: documentType is required", ErrValidation)
	}
	if len(documentType) > MaxDocumentTypeLength {
		return fmt.Errorf("%w: documentType exceeds maximum length", ErrValidation)
	}
	return nil
}
