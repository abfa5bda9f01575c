package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"messaging_go/internal/domain"
)

// MessagingService is the business façade over the conversation and
// message stores. It performs no I/O beyond persistence; broadcast and
// notification side effects are the gateway's responsibility.
type MessagingService struct {
	conversations domain.ConversationRepository
	participants  domain.ParticipantRepository
	messages      domain.MessageRepository
	users         domain.UserDirectory
}

func NewMessagingService(
	conversations domain.ConversationRepository,
	participants domain.ParticipantRepository,
	messages domain.MessageRepository,
	users domain.UserDirectory,
) *MessagingService {
	return &MessagingService{
		conversations: conversations,
		participants:  participants,
		messages:      messages,
		users:         users,
	}
}

// FindOrCreateConversation returns the two-party conversation for the
// unordered pair (userA, userB), creating it lazily on first contact.
// When two callers race past the existence check, the store's pair
// uniqueness constraint turns the duplicate insert into ErrConflict and
// the loser re-queries and returns the winner's conversation.
func (s *MessagingService) FindOrCreateConversation(
	ctx context.Context,
	userA, userB int64,
	kind domain.ConversationKind,
) (*domain.Conversation, error) {
	if userA == userB {
		return nil, fmt.Errorf("%w: conversation requires two distinct users", domain.ErrInvalidInput)
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown conversation kind %q", domain.ErrInvalidInput, kind)
	}

	existing, err := s.conversations.FindTwoParty(ctx, userA, userB)
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	profileA, err := s.users.Resolve(ctx, userA)
	if err != nil {
		return nil, fmt.Errorf("resolve user %d: %w", userA, err)
	}
	profileB, err := s.users.Resolve(ctx, userB)
	if err != nil {
		return nil, fmt.Errorf("resolve user %d: %w", userB, err)
	}

	conv := &domain.Conversation{Kind: kind}
	participants := []domain.Participant{
		{UserID: userA, IsOperator: profileA.IsOperator},
		{UserID: userB, IsOperator: profileB.IsOperator},
	}
	err = s.conversations.Create(ctx, conv, participants)
	if errors.Is(err, domain.ErrConflict) {
		winner, ferr := s.conversations.FindTwoParty(ctx, userA, userB)
		if ferr != nil {
			return nil, fmt.Errorf("resolve create conflict: %w", ferr)
		}
		if winner == nil {
			return nil, domain.ErrConflict
		}
		return winner, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

type SendMessageInput struct {
	ConversationID int64
	SenderID       int64
	Content        string
	Type           domain.MessageType
}

// MessageResponse is a message joined with its sender's public
// projection. Sender is nil when the sending account no longer exists.
type MessageResponse struct {
	ID             int64               `json:"id"`
	ConversationID int64               `json:"conversation_id"`
	Sender         *domain.UserProfile `json:"sender,omitempty"`
	Type           domain.MessageType  `json:"message_type"`
	Content        string              `json:"content"`
	IsRead         bool                `json:"is_read"`
	CreatedAt      string              `json:"created_at"`
}

func toResponse(m *domain.Message, sender *domain.UserProfile) *MessageResponse {
	return &MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Sender:         sender,
		Type:           m.Type,
		Content:        m.Content,
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

// SendMessage persists a message. The message is never announced to a
// room unless this call succeeded first.
func (s *MessagingService) SendMessage(ctx context.Context, in SendMessageInput) (*MessageResponse, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown message type %q", domain.ErrInvalidInput, in.Type)
	}

	conv, err := s.conversations.GetByID(ctx, in.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv.IsDeleted {
		return nil, domain.ErrNotFound
	}
	if conv.Closed {
		return nil, domain.ErrConversationClosed
	}

	sender, err := s.users.Resolve(ctx, in.SenderID)
	if err != nil {
		return nil, fmt.Errorf("resolve sender %d: %w", in.SenderID, err)
	}

	senderID := in.SenderID
	m := &domain.Message{
		ConversationID: in.ConversationID,
		SenderID:       &senderID,
		Type:           in.Type,
		Content:        in.Content,
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return toResponse(m, sender), nil
}

// ListMessages returns the conversation's messages in delivery order
// with sender projections attached.
func (s *MessagingService) ListMessages(ctx context.Context, conversationID int64) ([]*MessageResponse, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv.IsDeleted {
		return nil, domain.ErrNotFound
	}

	msgs, err := s.messages.ListForConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	profiles := make(map[int64]*domain.UserProfile)
	res := make([]*MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		var sender *domain.UserProfile
		if m.SenderID != nil {
			p, ok := profiles[*m.SenderID]
			if !ok {
				p, err = s.users.Resolve(ctx, *m.SenderID)
				if err != nil && !errors.Is(err, domain.ErrNotFound) {
					return nil, fmt.Errorf("resolve sender %d: %w", *m.SenderID, err)
				}
				profiles[*m.SenderID] = p
			}
			sender = p
		}
		res = append(res, toResponse(m, sender))
	}
	return res, nil
}

// MarkMessageRead marks the message read. Calling it on an already-read
// message is a no-op success.
func (s *MessagingService) MarkMessageRead(ctx context.Context, messageID int64) (*domain.Message, error) {
	m, err := s.messages.MarkRead(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("mark message read: %w", err)
	}
	return m, nil
}

// MarkConversationSeen stamps the viewer's participant row with the
// current time.
func (s *MessagingService) MarkConversationSeen(ctx context.Context, conversationID, userID int64) error {
	return s.conversations.UpdateLastSeen(ctx, conversationID, userID)
}

// GetUserConversationSummaries recomputes, for every conversation the
// viewer participates in, the peer projections, last message and unread
// count. Sorted by last message date descending; conversations without
// messages follow, newest first.
func (s *MessagingService) GetUserConversationSummaries(ctx context.Context, viewerID int64) ([]*domain.ConversationSummary, error) {
	convs, err := s.conversations.ListForUser(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	if len(convs) == 0 {
		return []*domain.ConversationSummary{}, nil
	}

	ids := make([]int64, len(convs))
	for i, c := range convs {
		ids[i] = c.ID
	}
	latest, err := s.messages.LatestPerConversation(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("latest per conversation: %w", err)
	}

	res := make([]*domain.ConversationSummary, 0, len(convs))
	for _, c := range convs {
		unread, err := s.messages.UnreadCount(ctx, c.ID, viewerID)
		if err != nil {
			return nil, fmt.Errorf("unread count: %w", err)
		}

		parts, err := s.participants.ListParticipants(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("list participants: %w", err)
		}
		var peers []domain.UserProfile
		for _, p := range parts {
			if p.UserID == viewerID {
				continue
			}
			profile, err := s.users.Resolve(ctx, p.UserID)
			if errors.Is(err, domain.ErrNotFound) {
				continue // peer account removed; summary survives without it
			}
			if err != nil {
				return nil, fmt.Errorf("resolve peer %d: %w", p.UserID, err)
			}
			peers = append(peers, *profile)
		}

		sum := &domain.ConversationSummary{
			ConversationID: c.ID,
			Kind:           c.Kind,
			Closed:         c.Closed,
			Peers:          peers,
			UnreadCount:    unread,
		}
		if last, ok := latest[c.ID]; ok {
			content := last.Content
			msgType := last.Type
			at := last.CreatedAt
			sum.LastMessage = &content
			sum.LastMessageType = &msgType
			sum.LastMessageAt = &at
		}
		res = append(res, sum)
	}

	sort.SliceStable(res, func(i, j int) bool {
		a, b := res[i].LastMessageAt, res[j].LastMessageAt
		switch {
		case a != nil && b != nil:
			return a.After(*b)
		case a != nil:
			return true
		case b != nil:
			return false
		default:
			// Neither has messages; ListForUser already ordered these
			// newest first.
			return false
		}
	})
	return res, nil
}
