package ws

// Client -> server intent names.
const (
	IntentListConversations = "list_conversations"
	IntentJoinConversation  = "join_conversation"
	IntentSendMessage       = "message"
	IntentSendImage         = "send_image"
	IntentTyping            = "typing"
	IntentMarkRead          = "mark_read"
)

// Server -> client event names. Events are scoped either to a room or
// to all sessions of a specific user; errors go to the originating
// session only.
const (
	EventConversationList = "conversation_list"
	EventMessageList      = "message_list"
	EventMessage          = "message"
	EventMessageRead      = "message_read"
	EventTyping           = "typing"
	EventUserJoined       = "user_joined"
	EventError            = "error"
)

// NotifyKindNewMessage is the fallback-notification kind used when a
// recipient has no live session in the conversation's room.
const NotifyKindNewMessage = "NEW_CHAT_MESSAGE"
