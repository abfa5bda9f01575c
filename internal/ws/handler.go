package ws

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"messaging_go/internal/domain"
)

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

// MakeHandler returns the HTTP handler for the /ws endpoint.
//
// A connection starts unbound; the client's first identity-bearing
// intent (list_conversations or join_conversation) associates it with a
// user. Intents:
//   - list_conversations -> bind + summaries snapshot to the caller
//   - join_conversation  -> find-or-create, room join, mark-seen,
//     catch-up read receipts, message list, cross-device summary refresh
//   - message / send_image -> persist, room broadcast, summary refresh,
//     presence-aware notification fallback
//   - typing             -> fire-and-forget room indicator
//   - mark_read          -> idempotent read mark + room read event
func MakeHandler(gw *Gateway, allowedOrigins []string) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(allowedOrigins)
	upgrader := websocket.Upgrader{CheckOrigin: checkOrigin}

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess := NewSession(conn)
		gw.hub.Register(sess)
		defer gw.hub.Unregister(sess)

		ctx := r.Context()
		for {
			var payload map[string]any
			if err := conn.ReadJSON(&payload); err != nil {
				break
			}
			intent, _ := payload["type"].(string)
			switch intent {

			case IntentListConversations:
				userID := intID(payload, "user_id")
				if userID == 0 {
					sendError(sess, "list_conversations requires user_id")
					continue
				}
				gw.ListConversations(ctx, sess, userID)

			case IntentJoinConversation:
				userID := intID(payload, "user_id")
				peerID := intID(payload, "peer_id")
				kind, _ := payload["kind"].(string)
				if userID == 0 || peerID == 0 {
					sendError(sess, "join_conversation requires user_id and peer_id")
					continue
				}
				gw.JoinConversation(ctx, sess, userID, peerID, domain.ConversationKind(kind))

			case IntentSendMessage:
				convID := intID(payload, "conversation_id")
				senderID := intID(payload, "sender_id")
				receiverID := intID(payload, "receiver_id")
				content, _ := payload["content"].(string)
				if convID == 0 || senderID == 0 || receiverID == 0 || content == "" {
					sendError(sess, "message requires conversation_id, sender_id, receiver_id and content")
					continue
				}
				msgType := domain.MessageText
				if t, ok := payload["message_type"].(string); ok && t != "" {
					msgType = domain.MessageType(t)
				}
				gw.SendMessage(ctx, sess, convID, senderID, receiverID, content, msgType)

			case IntentSendImage:
				convID := intID(payload, "conversation_id")
				senderID := intID(payload, "sender_id")
				receiverID := intID(payload, "receiver_id")
				imageData, _ := payload["image_data"].(string)
				fileName, _ := payload["file_name"].(string)
				if convID == 0 || senderID == 0 || receiverID == 0 || imageData == "" {
					sendError(sess, "send_image requires conversation_id, sender_id, receiver_id and image_data")
					continue
				}
				gw.SendImage(ctx, sess, convID, senderID, receiverID, imageData, fileName)

			case IntentTyping:
				convID := intID(payload, "conversation_id")
				userID := intID(payload, "user_id")
				if convID == 0 || userID == 0 {
					continue
				}
				gw.Typing(sess, convID, userID)

			case IntentMarkRead:
				messageID := intID(payload, "message_id")
				convID := intID(payload, "conversation_id")
				userID := intID(payload, "user_id")
				if messageID == 0 || convID == 0 || userID == 0 {
					continue
				}
				gw.MarkRead(ctx, sess, messageID, convID, userID)

			default:
				log.Printf("ws: unknown intent %q from session %s", intent, sess.ID)
			}
		}
	}
}

// intID reads a numeric id from a decoded JSON payload. encoding/json
// decodes numbers into float64.
func intID(payload map[string]any, key string) int64 {
	f, _ := payload[key].(float64)
	return int64(f)
}
