package domain

import "time"

// ConversationKind is the closed set of participant-pair categories.
type ConversationKind string

const (
	KindClientOperator     ConversationKind = "CLIENT_OPERATOR"
	KindClientTechnician   ConversationKind = "CLIENT_TECHNICIAN"
	KindOperatorTechnician ConversationKind = "OPERATOR_TECHNICIAN"
)

// Valid reports whether k is one of the known conversation kinds.
func (k ConversationKind) Valid() bool {
	switch k {
	case KindClientOperator, KindClientTechnician, KindOperatorTechnician:
		return true
	}
	return false
}

// MessageType is the closed set of message payload types.
type MessageType string

const (
	MessageText  MessageType = "TEXT"
	MessageImage MessageType = "IMAGE"
	MessageFile  MessageType = "FILE"
)

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageFile:
		return true
	}
	return false
}

// Conversation represents a chat conversation between a fixed pair
// (or group) of marketplace users.
type Conversation struct {
	ID        int64            `db:"id" json:"id"`
	Kind      ConversationKind `db:"kind" json:"kind"`
	Closed    bool             `db:"closed" json:"closed"`
	IsDeleted bool             `db:"is_deleted" json:"-"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// Participant represents the membership of one user in one conversation.
// The (conversation, user) pair is unique.
type Participant struct {
	ConversationID int64      `db:"conversation_id" json:"conversation_id"`
	UserID         int64      `db:"user_id" json:"user_id"`
	IsOperator     bool       `db:"is_operator" json:"is_operator"`
	LastSeenAt     *time.Time `db:"last_seen_at" json:"last_seen_at,omitempty"`
	JoinedAt       time.Time  `db:"joined_at" json:"joined_at"`
}

// Message represents a single chat message. SenderID is a weak
// reference: it goes nil when the sending account is removed, the
// message itself survives.
type Message struct {
	ID             int64       `db:"id" json:"id"`
	ConversationID int64       `db:"conversation_id" json:"conversation_id"`
	SenderID       *int64      `db:"sender_id" json:"sender_id,omitempty"`
	Type           MessageType `db:"type" json:"type"`
	Content        string      `db:"content" json:"content"`
	IsRead         bool        `db:"is_read" json:"is_read"`
	IsDeleted      bool        `db:"is_deleted" json:"-"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
}

// UserProfile is the minimal public projection of a user account that
// the messaging core reads. Accounts themselves are owned by the
// external account system.
type UserProfile struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Language    string `json:"-"`
	IsOperator  bool   `json:"-"`
}

// ConversationSummary is the derived, per-viewer projection of a
// conversation. It is recomputed on demand and never persisted.
type ConversationSummary struct {
	ConversationID  int64            `json:"conversation_id"`
	Kind            ConversationKind `json:"kind"`
	Closed          bool             `json:"closed"`
	Peers           []UserProfile    `json:"peers"`
	LastMessage     *string          `json:"last_message"`
	LastMessageType *MessageType     `json:"last_message_type,omitempty"`
	LastMessageAt   *time.Time       `json:"last_message_at"`
	UnreadCount     int              `json:"unread_count"`
}
