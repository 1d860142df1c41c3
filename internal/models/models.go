// Package models defines the core data structures for LegalDraft.
//
// It includes the blank-field and interview types shared by the scanning and interview
// packages, the request/response bodies of the HTTP API, and the delivery records kept
// by the store.
package models

import (
	"errors"
	"time"
)

// Error taxonomy. Lower layers wrap one of these with fmt.Errorf("%w: ...") so the API
// can map a failure to a status code with errors.Is.
var (
	// ErrValidation marks a request that is missing a required input.
	ErrValidation = errors.New("validation failed")
	// ErrResolution marks a locator that no longer matches the current document.
	ErrResolution = errors.New("could not determine target")
	// ErrUpstream marks a failure of the external generation service.
	ErrUpstream = errors.New("generation failed")
)

// Validation constants for input validation
const (
	// MaxDocumentTypeLength defines the maximum allowed length for a document-type label
	MaxDocumentTypeLength = 200
	// MaxAnswerLength defines the maximum allowed length for a single user answer
	MaxAnswerLength = 8192
)

// MessageStatus represents the delivery status of a message.
type MessageStatus string

const (
	// MessageStatusSent indicates the message was sent.
	MessageStatusSent MessageStatus = "sent"
	// MessageStatusDelivered indicates the message was delivered.
	MessageStatusDelivered MessageStatus = "delivered"
	// MessageStatusRead indicates the message was read.
	MessageStatusRead MessageStatus = "read"
	// MessageStatusFailed indicates the message failed to send.
	MessageStatusFailed MessageStatus = "failed"
)

// Receipt is a provider event about one outbound message.
type Receipt struct {
	To     string        `json:"to"`
	Status MessageStatus `json:"status"`
	Time   int64         `json:"time"`
}

// Delivery records one generated document sent to a recipient.
type Delivery struct {
	ID           string        `json:"id"`
	Recipient    string        `json:"recipient"`
	DocumentType string        `json:"documentType"`
	Chunks       int           `json:"chunks"`
	Status       MessageStatus `json:"status"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// APIResponse is the envelope shared by every JSON response.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Success creates a successful envelope with no message.
func Success() APIResponse {
	return APIResponse{Success: true}
}

// SuccessWithMessage creates a successful envelope carrying a message.
func SuccessWithMessage(message string) APIResponse {
	return APIResponse{Success: true, Message: message}
}

// Error creates a failed envelope carrying a message.
func Error(message string) APIResponse {
	return APIResponse{Success: false, Message: message}
}
