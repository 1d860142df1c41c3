package messaging

import (
	"context"
	"log/slog"
	"time"

	"github.com/BTreeMap/LegalDraft/internal/models"
	"github.com/BTreeMap/LegalDraft/internal/whatsapp"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

// WhatsAppService implements Service over a Whatsmeow session.
type WhatsAppService struct {
	receiptFeed
	client    whatsapp.WhatsAppSender
	waClient  *whatsapp.Client
	handlerID uint32
}

// NewWhatsAppService wraps client. Provider receipts are only observed when client is
// a connected *whatsapp.Client.
func NewWhatsAppService(client whatsapp.WhatsAppSender) *WhatsAppService {
	s := &WhatsAppService{
		receiptFeed: newReceiptFeed(),
		client:      client,
	}
	if waClient, ok := client.(*whatsapp.Client); ok {
		s.waClient = waClient
	}
	return s
}

func (s *WhatsAppService) Name() string { return "whatsapp" }

func (s *WhatsAppService) MaxMessageLength() int { return WhatsAppMaxMessageLength }

func (s *WhatsAppService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone(recipient)
}

// Start registers the receipt handler on the live session.
func (s *WhatsAppService) Start(ctx context.Context) error {
	if s.waClient == nil || s.waClient.GetClient() == nil {
		slog.Debug("WhatsAppService.Start: no live session, receipts limited to sends")
		return nil
	}
	s.handlerID = s.waClient.GetClient().AddEventHandler(func(evt interface{}) {
		if v, ok := evt.(*events.Receipt); ok {
			s.handleReceipt(v)
		}
	})
	slog.Debug("WhatsAppService.Start: receipt handler registered")
	return nil
}

// Stop unregisters the receipt handler and closes the receipts channel.
func (s *WhatsAppService) Stop() error {
	if !s.stop() {
		return nil
	}
	if s.waClient != nil && s.waClient.GetClient() != nil {
		s.waClient.GetClient().RemoveEventHandler(s.handlerID)
		s.waClient.Disconnect()
	}
	slog.Info("WhatsAppService.Stop: stopped")
	return nil
}

// SendMessage sends one message and emits a sent receipt.
func (s *WhatsAppService) SendMessage(ctx context.Context, to string, body string) error {
	if s.isStopped() {
		return ErrServiceStopped
	}
	if err := s.client.SendMessage(ctx, to, body); err != nil {
		slog.Error("WhatsAppService.SendMessage: send failed", "error", err, "to", to)
		return err
	}
	s.emit(models.Receipt{To: to, Status: models.MessageStatusSent, Time: time.Now().Unix()})
	return nil
}

func (s *WhatsAppService) Receipts() <-chan models.Receipt {
	return s.receipts
}

// handleReceipt forwards delivered and read receipts from the recipient.
func (s *WhatsAppService) handleReceipt(evt *events.Receipt) {
	var status models.MessageStatus
	switch evt.Type {
	case types.ReceiptTypeDelivered:
		status = models.MessageStatusDelivered
	case types.ReceiptTypeRead:
		status = models.MessageStatusRead
	default:
		return
	}
	s.emit(models.Receipt{To: evt.Chat.User, Status: status, Time: evt.Timestamp.Unix()})
}
