// Package messaging delivers finished documents to recipients over a chat provider.
//
// A Service wraps one provider client, canonicalizes recipients, and reports provider
// receipts on a channel. Deliver splits a document into provider-sized messages.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/BTreeMap/LegalDraft/internal/models"
)

const (
	// DefaultChannelBufferSize is the receipts channel capacity.
	DefaultChannelBufferSize = 100
	// DefaultChannelTimeout bounds how long a receipt waits for a full channel.
	DefaultChannelTimeout = 1 * time.Second
	// MinRecipientDigits is the shortest accepted phone number.
	MinRecipientDigits = 6
)

// ErrServiceStopped is returned by sends after Stop.
var ErrServiceStopped = errors.New("messaging service stopped")

var phoneNumberRegex = regexp.MustCompile(`\D`)

// Service defines a pluggable message delivery abstraction.
type Service interface {
	// Name identifies the provider in logs and responses.
	Name() string
	// MaxMessageLength is the largest body, in characters, one message may carry.
	MaxMessageLength() int
	// ValidateAndCanonicalizeRecipient returns the recipient as bare digits.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)
	// SendMessage sends one message to a canonical recipient.
	SendMessage(ctx context.Context, to string, body string) error
	// Start begins background processing such as receipt handling.
	Start(ctx context.Context) error
	// Stop ends background processing and closes the receipts channel.
	Stop() error
	// Receipts returns provider receipt events.
	Receipts() <-chan models.Receipt
}

// canonicalizePhone strips every non-digit and requires MinRecipientDigits digits.
func canonicalizePhone(recipient string) (string, error) {
	if recipient == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}
	canonical := phoneNumberRegex.ReplaceAllString(recipient, "")
	if canonical == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in recipient %q", recipient)
	}
	if len(canonical) < MinRecipientDigits {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum %d digits required)", canonical, MinRecipientDigits)
	}
	if canonical != recipient {
		slog.Debug("messaging.canonicalizePhone: canonicalized recipient", "original", recipient, "canonical", canonical)
	}
	return canonical, nil
}

// receiptFeed owns a receipts channel that is safe to emit on after Stop.
type receiptFeed struct {
	mu       sync.RWMutex
	stopped  bool
	receipts chan models.Receipt
}

func newReceiptFeed() receiptFeed {
	return receiptFeed{receipts: make(chan models.Receipt, DefaultChannelBufferSize)}
}

func (f *receiptFeed) isStopped() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.stopped
}

// emit forwards r unless the feed is stopped or the channel stays full.
func (f *receiptFeed) emit(r models.Receipt) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.stopped {
		return
	}
	select {
	case f.receipts <- r:
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("messaging.receiptFeed.emit: receipts channel blocked, dropping receipt", "to", r.To, "status", r.Status)
	}
}

// stop closes the channel once. It reports whether this call did the closing.
func (f *receiptFeed) stop() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return false
	}
	f.stopped = true
	close(f.receipts)
	return true
}
