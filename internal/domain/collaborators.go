package domain

import "context"

// UserDirectory resolves user ids to their minimal public projection.
// Backed by the account system; the messaging core only reads it.
type UserDirectory interface {
	// Resolve returns ErrNotFound for unknown or soft-deleted accounts.
	Resolve(ctx context.Context, id int64) (*UserProfile, error)
}

// ObjectStore persists opaque blobs (image message payloads) and
// returns a durable public URL.
type ObjectStore interface {
	Store(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Notifier delivers an out-of-band alert to a user who has no live
// connection in the relevant room. Fire-and-forget: callers log
// failures and never propagate them to the sender.
type Notifier interface {
	Notify(ctx context.Context, userID int64, kind string, payload map[string]any, language string) error
}
