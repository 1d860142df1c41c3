package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BTreeMap/LegalDraft/internal/models"
	"github.com/BTreeMap/LegalDraft/internal/twiliowhatsapp"
	twilioClient "github.com/twilio/twilio-go/client"
)

// TwilioSignatureHeader carries Twilio's HMAC signature of a webhook request.
const TwilioSignatureHeader = "X-Twilio-Signature"

// TwilioService implements Service over the Twilio REST API.
type TwilioService struct {
	receiptFeed
	client      twiliowhatsapp.TwilioWhatsAppSender
	validator   *twilioClient.RequestValidator
	callbackURL string
}

// TwilioServiceOption configures a TwilioService.
type TwilioServiceOption func(*TwilioService)

// WithSignatureValidation makes StatusCallbackHandler reject callbacks whose
// X-Twilio-Signature does not match authToken. callbackURL is the URL Twilio was told
// to post to; when empty it is rebuilt from the incoming request. An empty authToken
// leaves validation off.
func WithSignatureValidation(authToken, callbackURL string) TwilioServiceOption {
	return func(s *TwilioService) {
		if authToken == "" {
			return
		}
		v := twilioClient.NewRequestValidator(authToken)
		s.validator = &v
		s.callbackURL = callbackURL
	}
}

// NewTwilioService wraps client.
func NewTwilioService(client twiliowhatsapp.TwilioWhatsAppSender, opts ...TwilioServiceOption) *TwilioService {
	s := &TwilioService{
		receiptFeed: newReceiptFeed(),
		client:      client,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TwilioService) Name() string { return "twilio" }

func (s *TwilioService) MaxMessageLength() int { return TwilioMaxMessageLength }

func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone(strings.TrimPrefix(recipient, "whatsapp:"))
}

// Start is a no-op; Twilio reports status through StatusCallbackHandler.
func (s *TwilioService) Start(ctx context.Context) error {
	return nil
}

func (s *TwilioService) Stop() error {
	if s.stop() {
		slog.Info("TwilioService.Stop: stopped")
	}
	return nil
}

// SendMessage sends one message and emits a sent receipt.
func (s *TwilioService) SendMessage(ctx context.Context, to string, body string) error {
	if s.isStopped() {
		return ErrServiceStopped
	}
	if err := s.client.SendMessage(ctx, to, body); err != nil {
		return err
	}
	s.emit(models.Receipt{To: to, Status: models.MessageStatusSent, Time: time.Now().Unix()})
	return nil
}

func (s *TwilioService) Receipts() <-chan models.Receipt {
	return s.receipts
}

// twilioStatuses maps Twilio MessageStatus values onto receipt statuses. Intermediate
// states such as "queued" are not reported.
var twilioStatuses = map[string]models.MessageStatus{
	"sent":        models.MessageStatusSent,
	"delivered":   models.MessageStatusDelivered,
	"read":        models.MessageStatusRead,
	"failed":      models.MessageStatusFailed,
	"undelivered": models.MessageStatusFailed,
}

// StatusCallbackHandler receives Twilio status callbacks and emits them as receipts.
func (s *TwilioService) StatusCallbackHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.Error("TwilioService.StatusCallbackHandler: bad form", "error", err)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	if s.validator != nil && !s.validSignature(r) {
		slog.Warn("TwilioService.StatusCallbackHandler: signature mismatch", "remote_addr", r.RemoteAddr)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	to := strings.TrimPrefix(r.PostFormValue("To"), "whatsapp:")
	to = strings.TrimPrefix(to, "+")
	raw := r.PostFormValue("MessageStatus")
	if to == "" || raw == "" {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	if status, ok := twilioStatuses[raw]; ok {
		s.emit(models.Receipt{To: to, Status: status, Time: time.Now().Unix()})
		slog.Debug("TwilioService.StatusCallbackHandler: receipt", "to", to, "status", status)
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// validSignature checks X-Twilio-Signature against the posted form fields.
func (s *TwilioService) validSignature(r *http.Request) bool {
	sig := r.Header.Get(TwilioSignatureHeader)
	if sig == "" {
		return false
	}
	params := make(map[string]string, len(r.PostForm))
	for k, v := range r.PostForm {
		params[k] = v[0]
	}
	return s.validator.Validate(s.webhookURL(r), params, sig)
}

func (s *TwilioService) webhookURL(r *http.Request) string {
	if s.callbackURL != "" {
		return s.callbackURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
