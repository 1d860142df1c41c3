package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BTreeMap/LegalDraft/internal/blank"
	"github.com/BTreeMap/LegalDraft/internal/messaging"
	"github.com/BTreeMap/LegalDraft/internal/models"
	"github.com/google/uuid"
)

// Client-facing messages.
const (
	msgTextQueryFailed   = "Error processing text query"
	msgGenerateFailed    = "Error generating document"
	msgQuestionFailed    = "Error generating question"
	msgDeliveryFailed    = "Error delivering document"
	msgDeliveryDisabled  = "Document delivery is not configured"
	msgAllBlanksFilled   = "All blanks have been filled"
	msgDocumentUpdated   = "Document updated successfully"
	msgUnresolvedSection = "Could not determine section to update"
	msgFetchReceipts     = "Failed to fetch receipts"
	msgFetchDeliveries   = "Failed to fetch deliveries"
)

// nextStepHandler serves POST /ai-text-query.
func (s *Server) nextStepHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req models.NextStepRequest
	if err := decodeRequest(r, nextStepSchema, &req); err != nil {
		s.writeValidationError(w, r, "nextStepHandler", err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeValidationError(w, r, "nextStepHandler", err)
		return
	}

	text, err := s.assembler.NextStep(r.Context(), req.DocumentType, req.CurrentAnswer, req.PreviousResponses)
	if err != nil {
		slog.Error("Server.nextStepHandler: generation failed", "error", err, "request_id", requestID(r))
		writeJSONResponse(w, http.StatusInternalServerError, models.Error(msgTextQueryFailed))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.NextStepResponse{APIResponse: models.Success(), ResponseText: text})
}

// generateDocumentHandler serves POST /generate-document, optionally delivering the
// result to a recipient.
func (s *Server) generateDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req models.GenerateDocumentRequest
	if err := decodeRequest(r, generateDocumentSchema, &req); err != nil {
		s.writeValidationError(w, r, "generateDocumentHandler", err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeValidationError(w, r, "generateDocumentHandler", err)
		return
	}
	if req.DeliverTo != "" {
		if s.msgService == nil {
			writeJSONResponse(w, http.StatusBadRequest, models.Error(msgDeliveryDisabled))
			return
		}
		if _, err := s.msgService.ValidateAndCanonicalizeRecipient(req.DeliverTo); err != nil {
			slog.Warn("Server.generateDocumentHandler: invalid recipient", "error", err, "request_id", requestID(r))
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
	}

	doc, err := s.assembler.Generate(r.Context(), req.DocumentType, req.Responses)
	if err != nil {
		slog.Error("Server.generateDocumentHandler: generation failed", "error", err, "request_id", requestID(r))
		writeJSONResponse(w, http.StatusInternalServerError, models.Error(msgGenerateFailed))
		return
	}
	resp := models.GenerateDocumentResponse{APIResponse: models.Success(), Document: doc}
	if req.DeliverTo == "" {
		writeJSONResponse(w, http.StatusOK, resp)
		return
	}

	delivery, err := s.deliver(r, req.DocumentType, req.DeliverTo, doc)
	resp.DeliveryID = delivery.ID
	if err != nil {
		resp.APIResponse = models.Error(msgDeliveryFailed)
		writeJSONResponse(w, http.StatusBadGateway, resp)
		return
	}
	resp.Delivered = true
	writeJSONResponse(w, http.StatusOK, resp)
}

// deliver sends doc and records the attempt in the delivery log.
func (s *Server) deliver(r *http.Request, documentType, recipient, doc string) (models.Delivery, error) {
	d := models.Delivery{
		ID:           uuid.NewString(),
		DocumentType: documentType,
		Status:       models.MessageStatusSent,
		CreatedAt:    time.Now().UTC(),
	}
	to, n, err := messaging.Deliver(r.Context(), s.msgService, recipient, doc)
	d.Recipient, d.Chunks = to, n
	if err != nil {
		d.Status = models.MessageStatusFailed
		slog.Error("Server.deliver: delivery failed", "error", err, "delivery_id", d.ID, "request_id", requestID(r))
	}
	if storeErr := s.st.AddDelivery(d); storeErr != nil {
		slog.Error("Server.deliver: failed to record delivery", "error", storeErr, "delivery_id", d.ID)
	}
	return d, err
}

// processDocumentHandler serves POST /process-document: scan, select, and ask.
func (s *Server) processDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req models.ProcessDocumentRequest
	if err := decodeRequest(r, processDocumentSchema, &req); err != nil {
		s.writeValidationError(w, r, "processDocumentHandler", err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeValidationError(w, r, "processDocumentHandler", err)
		return
	}

	state := req.State()
	fields := s.scanner.Scan(state.DocumentText)
	step, ok := blank.Select(fields, state.CurrentQuestionIndex)
	if !ok {
		slog.Debug("Server.processDocumentHandler: interview complete", "blanks", len(fields), "index", state.CurrentQuestionIndex)
		writeJSONResponse(w, http.StatusOK, models.InterviewCompleteResponse{
			APIResponse: models.SuccessWithMessage(msgAllBlanksFilled),
			Complete:    true,
		})
		return
	}

	question, err := s.composer.Question(r.Context(), state.DocumentText, step.Field)
	if err != nil {
		slog.Error("Server.processDocumentHandler: question failed", "error", err, "index", step.Index, "request_id", requestID(r))
		writeJSONResponse(w, http.StatusInternalServerError, models.Error(msgQuestionFailed))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.InterviewQuestionResponse{
		APIResponse:     models.Success(),
		Question:        question,
		CurrentIndex:    step.Index,
		TotalBlanks:     step.Total,
		BlankContext:    step.Field,
		RemainingBlanks: step.Remaining,
	})
}

// updateSectionHandler serves POST /update-section: patch one answer into the text.
func (s *Server) updateSectionHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req models.UpdateSectionRequest
	if err := decodeRequest(r, updateSectionSchema, &req); err != nil {
		s.writeValidationError(w, r, "updateSectionHandler", err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeValidationError(w, r, "updateSectionHandler", err)
		return
	}

	updated, err := blank.Apply(req.DocumentText, req.UserInput, req.QuestionContext)
	if err != nil {
		slog.Warn("Server.updateSectionHandler: could not apply answer", "error", err, "position", req.QuestionContext.Position, "request_id", requestID(r))
		writeJSONResponse(w, http.StatusBadRequest, models.UpdateSectionFailure{
			APIResponse:  models.Error(msgUnresolvedSection),
			DocumentText: req.DocumentText,
		})
		return
	}
	writeJSONResponse(w, http.StatusOK, models.UpdateSectionResponse{
		APIResponse:    models.SuccessWithMessage(msgDocumentUpdated),
		UpdatedContent: updated,
	})
}

func (s *Server) receiptsHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	receipts, err := s.st.GetReceipts()
	if err != nil {
		slog.Error("Server.receiptsHandler: failed to fetch receipts", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error(msgFetchReceipts))
		return
	}
	if receipts == nil {
		receipts = []models.Receipt{}
	}
	writeJSONResponse(w, http.StatusOK, models.ReceiptsResponse{APIResponse: models.Success(), Receipts: receipts})
}

func (s *Server) deliveriesHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	deliveries, err := s.st.GetDeliveries()
	if err != nil {
		slog.Error("Server.deliveriesHandler: failed to fetch deliveries", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error(msgFetchDeliveries))
		return
	}
	if deliveries == nil {
		deliveries = []models.Delivery{}
	}
	writeJSONResponse(w, http.StatusOK, models.DeliveriesResponse{APIResponse: models.Success(), Deliveries: deliveries})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("ok"))
}

// writeValidationError reports a client error. Non-validation errors are a bug in the
// caller and are reported as 500.
func (s *Server) writeValidationError(w http.ResponseWriter, r *http.Request, handler string, err error) {
	if !errors.Is(err, models.ErrValidation) {
		slog.Error("Server."+handler+": unexpected error", "error", err, "request_id", requestID(r))
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Internal server error"))
		return
	}
	status := http.StatusBadRequest
	if errors.Is(err, errBodyTooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	slog.Warn("Server."+handler+": invalid request", "error", err, "status", status, "request_id", requestID(r))
	writeJSONResponse(w, status, models.Error(validationMessage(err)))
}

// validationMessage drops the sentinel prefix from a wrapped validation error.
func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), models.ErrValidation.Error()+": ")
}
