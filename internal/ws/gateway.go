package ws

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"net/http"

	"messaging_go/internal/domain"
	"messaging_go/internal/notify"
	"messaging_go/internal/service"
)

// Gateway executes client intents against the messaging service and
// performs the broadcast and notification side effects. One instance is
// shared by all connections; per-connection state lives in Session.
type Gateway struct {
	hub      *Hub
	svc      *service.MessagingService
	objects  domain.ObjectStore
	notifier domain.Notifier
	users    domain.UserDirectory
}

func NewGateway(
	hub *Hub,
	svc *service.MessagingService,
	objects domain.ObjectStore,
	notifier domain.Notifier,
	users domain.UserDirectory,
) *Gateway {
	return &Gateway{
		hub:      hub,
		svc:      svc,
		objects:  objects,
		notifier: notifier,
		users:    users,
	}
}

// ListConversations binds the session to userID and returns the
// summaries to the caller only. Other sessions of the same user are
// refreshed on the next state-changing event, not here.
func (g *Gateway) ListConversations(ctx context.Context, sess *Session, userID int64) {
	g.hub.Bind(sess, userID)

	summaries, err := g.svc.GetUserConversationSummaries(ctx, userID)
	if err != nil {
		log.Printf("ws: list conversations for %d: %v", userID, err)
		sendError(sess, "failed to list conversations")
		return
	}
	g.sendTo(sess, map[string]any{
		"type":          EventConversationList,
		"conversations": summaries,
	})
}

// JoinConversation finds or lazily creates the two-party conversation,
// subscribes the session to its room, marks it seen, marks every unread
// peer message read (one read event each), returns the message list to
// the caller, and refreshes summaries on every session of both users.
func (g *Gateway) JoinConversation(ctx context.Context, sess *Session, userID, peerID int64, kind domain.ConversationKind) {
	g.hub.Bind(sess, userID)

	conv, err := g.svc.FindOrCreateConversation(ctx, userID, peerID, kind)
	if err != nil {
		log.Printf("ws: join conversation %d/%d: %v", userID, peerID, err)
		sendError(sess, joinErrorMessage(err))
		return
	}

	g.hub.JoinRoom(conv.ID, sess)

	if err := g.svc.MarkConversationSeen(ctx, conv.ID, userID); err != nil {
		log.Printf("ws: mark seen conv %d user %d: %v", conv.ID, userID, err)
	}

	msgs, err := g.svc.ListMessages(ctx, conv.ID)
	if err != nil {
		log.Printf("ws: list messages conv %d: %v", conv.ID, err)
		sendError(sess, "failed to load messages")
		return
	}

	// Opening a conversation reads everything the peer sent. Each
	// transition emits its own read receipt to the room.
	for _, m := range msgs {
		if m.IsRead || (m.Sender != nil && m.Sender.ID == userID) {
			continue
		}
		if _, err := g.svc.MarkMessageRead(ctx, m.ID); err != nil {
			log.Printf("ws: mark read msg %d: %v", m.ID, err)
			continue
		}
		m.IsRead = true
		g.hub.BroadcastToRoom(conv.ID, map[string]any{
			"type":            EventMessageRead,
			"message_id":      m.ID,
			"conversation_id": conv.ID,
			"user_id":         userID,
		})
	}

	g.sendTo(sess, map[string]any{
		"type":            EventMessageList,
		"conversation_id": conv.ID,
		"messages":        msgs,
	})

	g.hub.BroadcastToRoomExcept(conv.ID, sess, map[string]any{
		"type":            EventUserJoined,
		"conversation_id": conv.ID,
		"user_id":         userID,
	})

	g.pushSummaries(ctx, userID, peerID)
}

// SendMessage persists the message, broadcasts it to the room,
// refreshes both participants' summaries, and falls back to an
// out-of-band notification when the receiver has no session in the
// room. The presence decision is taken once, at send time.
func (g *Gateway) SendMessage(ctx context.Context, sess *Session, conversationID, senderID, receiverID int64, content string, msgType domain.MessageType) {
	resp, err := g.svc.SendMessage(ctx, service.SendMessageInput{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Type:           msgType,
	})
	if err != nil {
		log.Printf("ws: send message conv %d: %v", conversationID, err)
		sendError(sess, sendErrorMessage(err))
		return
	}

	g.hub.BroadcastToRoom(conversationID, map[string]any{
		"type":            EventMessage,
		"conversation_id": conversationID,
		"message":         resp,
	})

	g.pushSummaries(ctx, senderID, receiverID)

	if !g.hub.UserInRoom(conversationID, receiverID) {
		g.notifyReceiver(ctx, conversationID, receiverID, resp.Content)
	}
}

// SendImage decodes the transport encoding, stores the bytes with the
// object-storage collaborator, and sends the resulting URL as an IMAGE
// message. A malformed payload fails without persisting or
// broadcasting anything.
func (g *Gateway) SendImage(ctx context.Context, sess *Session, conversationID, senderID, receiverID int64, imageData, fileName string) {
	data, err := base64.StdEncoding.DecodeString(imageData)
	if err != nil {
		log.Printf("ws: decode image conv %d: %v", conversationID, err)
		sendError(sess, "malformed image payload")
		return
	}
	if len(data) == 0 {
		sendError(sess, "empty image payload")
		return
	}

	url, err := g.objects.Store(ctx, data, http.DetectContentType(data))
	if err != nil {
		log.Printf("ws: store image %q conv %d: %v", fileName, conversationID, err)
		sendError(sess, "failed to store image")
		return
	}

	g.SendMessage(ctx, sess, conversationID, senderID, receiverID, url, domain.MessageImage)
}

// Typing forwards a typing indicator to the rest of the room. No
// persistence, no delivery guarantee.
func (g *Gateway) Typing(sess *Session, conversationID, userID int64) {
	g.hub.BroadcastToRoomExcept(conversationID, sess, map[string]any{
		"type":            EventTyping,
		"conversation_id": conversationID,
		"user_id":         userID,
	})
}

// MarkRead marks one message read (idempotent), broadcasts the read
// event to the room, and refreshes the reader's own summaries.
func (g *Gateway) MarkRead(ctx context.Context, sess *Session, messageID, conversationID, userID int64) {
	if _, err := g.svc.MarkMessageRead(ctx, messageID); err != nil {
		log.Printf("ws: mark read msg %d: %v", messageID, err)
		sendError(sess, "failed to mark message read")
		return
	}

	g.hub.BroadcastToRoom(conversationID, map[string]any{
		"type":            EventMessageRead,
		"message_id":      messageID,
		"conversation_id": conversationID,
		"user_id":         userID,
	})

	g.pushSummaries(ctx, userID)
}

// pushSummaries recomputes and pushes fresh summaries to every live
// session of each given user.
func (g *Gateway) pushSummaries(ctx context.Context, userIDs ...int64) {
	for _, uid := range userIDs {
		summaries, err := g.svc.GetUserConversationSummaries(ctx, uid)
		if err != nil {
			log.Printf("ws: refresh summaries for %d: %v", uid, err)
			continue
		}
		g.hub.BroadcastToUsers([]int64{uid}, map[string]any{
			"type":          EventConversationList,
			"conversations": summaries,
		})
	}
}

// notifyReceiver invokes the fallback bridge with a truncated preview.
// Failures are logged, never surfaced to the sender, and the
// notification is not re-sent if the user reconnects moments later.
func (g *Gateway) notifyReceiver(ctx context.Context, conversationID, receiverID int64, content string) {
	lang := "en"
	if profile, err := g.users.Resolve(ctx, receiverID); err == nil {
		lang = profile.Language
	}
	payload := map[string]any{
		"conversation_id": conversationID,
		"preview":         notify.Preview(content),
	}
	if err := g.notifier.Notify(ctx, receiverID, NotifyKindNewMessage, payload, lang); err != nil {
		log.Printf("ws: fallback notify user %d: %v", receiverID, err)
	}
}

func (g *Gateway) sendTo(sess *Session, payload any) {
	if err := sess.send(payload); err != nil {
		sess.conn.Close()
	}
}

func sendError(sess *Session, msg string) {
	_ = sess.send(map[string]any{
		"type":    EventError,
		"message": msg,
	})
}

func joinErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "user not found"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid join request"
	default:
		return "failed to join conversation"
	}
}

func sendErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "conversation not found"
	case errors.Is(err, domain.ErrConversationClosed):
		return "conversation is closed"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid message"
	default:
		return "failed to send message"
	}
}
