package messaging

import (
	"context"
	"fmt"
	"log/slog"
)

// Deliver sends body to recipient through svc, split to the provider's message limit.
// It returns the canonical recipient and how many parts were sent. Parts go out in
// order and delivery stops at the first failed part.
func Deliver(ctx context.Context, svc Service, recipient, body string) (string, int, error) {
	to, err := svc.ValidateAndCanonicalizeRecipient(recipient)
	if err != nil {
		return "", 0, err
	}
	parts := SplitMessage(body, svc.MaxMessageLength())
	if len(parts) == 0 {
		return to, 0, fmt.Errorf("nothing to deliver")
	}

	slog.Debug("messaging.Deliver: sending document", "provider", svc.Name(), "to", to, "parts", len(parts))
	for i, part := range parts {
		if err := ctx.Err(); err != nil {
			return to, i, err
		}
		if err := svc.SendMessage(ctx, to, part); err != nil {
			slog.Error("messaging.Deliver: part failed", "provider", svc.Name(), "to", to, "part", i+1, "parts", len(parts), "error", err)
			return to, i, fmt.Errorf("part %d of %d: %w", i+1, len(parts), err)
		}
	}
	slog.Info("messaging.Deliver: document delivered", "provider", svc.Name(), "to", to, "parts", len(parts))
	return to, len(parts), nil
}
