package domain

import (
	"context"
)

// ConversationRepository defines persistence operations for conversations
// and their participant rows.
type ConversationRepository interface {
	// Create inserts the conversation and one participant row per entry
	// in a single transaction. It returns ErrConflict when another
	// conversation already holds the same two-party participant set, and
	// ErrNotFound when any participant id does not resolve.
	Create(ctx context.Context, c *Conversation, participants []Participant) error
	GetByID(ctx context.Context, id int64) (*Conversation, error)
	// FindTwoParty returns the conversation whose participant set is
	// exactly {userA, userB}, order-independent. When duplicates exist
	// it deterministically picks the lowest id. Returns nil when there
	// is no match.
	FindTwoParty(ctx context.Context, userA, userB int64) (*Conversation, error)
	ListForUser(ctx context.Context, userID int64) ([]*Conversation, error)
	// UpdateLastSeen stamps last_seen_at = now on the matching
	// participant row. Returns ErrNotFound when the (conversation, user)
	// pair does not exist.
	UpdateLastSeen(ctx context.Context, conversationID, userID int64) error
}

// ParticipantRepository defines read operations around conversation
// participants.
type ParticipantRepository interface {
	ListParticipants(ctx context.Context, conversationID int64) ([]*Participant, error)
	IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error)
}

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	// Create appends the message with is_read = false. The conversation
	// must exist (a dangling id is ErrNotFound); the service layer is
	// responsible for rejecting soft-deleted and closed conversations
	// before calling this.
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id int64) (*Message, error)
	// ListForConversation returns messages ascending by (created_at, id),
	// excluding soft-deleted messages and messages whose sender account
	// is soft-deleted. Messages with a dangling (nil) sender survive.
	ListForConversation(ctx context.Context, conversationID int64) ([]*Message, error)
	// MarkRead sets is_read = true. Marking an already-read message is a
	// no-op success; is_read never transitions back to false.
	MarkRead(ctx context.Context, messageID int64) (*Message, error)
	// LatestPerConversation yields, for each conversation id, the message
	// with the maximum (created_at, id). Conversations without messages
	// are absent from the result.
	LatestPerConversation(ctx context.Context, conversationIDs []int64) (map[int64]*Message, error)
	// UnreadCount counts messages in the conversation that were not sent
	// by the viewer and have is_read = false, restricted to messages
	// ListForConversation would return. Messages with a dangling sender
	// count; messages whose sender account is soft-deleted do not.
	UnreadCount(ctx context.Context, conversationID, viewerID int64) (int, error)
}
