package notify

import (
	"context"
	"log"

	"messaging_go/internal/domain"
)

// LogNotifier is the default fallback bridge: it records the
// notification and drops it. Used when no delivery channel is
// configured.
type LogNotifier struct{}

var _ domain.Notifier = (*LogNotifier)(nil)

func (LogNotifier) Notify(_ context.Context, userID int64, kind string, payload map[string]any, language string) error {
	log.Printf("notify: user=%d kind=%s lang=%s payload=%v", userID, kind, language, payload)
	return nil
}
