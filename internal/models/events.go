package models

import (
	"encoding/json"
	"fmt"
)

// Server→client event names. These are a stable wire contract shared with
// the frontend; renaming one is a breaking change.
const (
	EventRequestsUpdate         = "requests-update"
	EventNotificationUpdate     = "notification-update"
	EventReceiveMessage         = "receive_message"
	EventNewMessageNotification = "new_message_notification"

	EventUserForceLogout    = "user:force-logout"
	EventUserTaskDeleted    = "user:task-deleted"
	EventUserRequestDeleted = "user:request-deleted"

	EventAdminActionCreated          = "admin:action-created"
	EventAdminUserUpdated            = "admin:user-updated"
	EventAdminUserDeleted            = "admin:user-deleted"
	EventAdminTaskDeleted            = "admin:task-deleted"
	EventAdminRequestDeleted         = "admin:request-deleted"
	EventAdminIncomingRequestDeleted = "admin:incoming-request-deleted"
	EventAdminDisputeUpdated         = "admin:dispute-updated"
	EventAdminAnalyticsUpdated       = "admin:analytics-updated"
)

// Client→server frame types.
const (
	FrameJoinUserRoom     = "join-user-room"
	FrameJoinConversation = "join_conversation"
	FrameSendMessage      = "send_message"
)

// AdminChannel is the distinguished global broadcast channel. Every admin
// connection is a member for its whole lifetime.
const AdminChannel = "admin"

// UserChannel is the private inbox channel for one user.
func UserChannel(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

// ConversationChannel is the shared room channel for one conversation.
func ConversationChannel(conversationID int64) string {
	return fmt.Sprintf("conversation:%d", conversationID)
}

// Event is the envelope for every frame pushed to a client. Payload is one
// of the entity structs or the typed payloads below; producers never emit
// ad hoc maps.
type Event struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// InboxSnapshot carries the owner's full current pending-request list. A
// snapshot rather than a delta, so clients reconcile by replacement.
type InboxSnapshot struct {
	OwnerID  int64         `json:"owner_id"`
	Requests []HelpRequest `json:"requests"`
}

// EntityDeleted identifies an entity removed by an admin mutation.
type EntityDeleted struct {
	ID int64 `json:"id"`
}

// DisputeUpdate is the delta broadcast when an admin resolves a dispute.
type DisputeUpdate struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// NewMessagePreview is the per-participant nudge sent alongside a
// conversation-room message delivery.
type NewMessagePreview struct {
	ConversationID int64  `json:"conversation_id"`
	Message        string `json:"message"`
	FromID         int64  `json:"from_id"`
	FromName       string `json:"from_name,omitempty"`
}

// ClientFrame is an inbound websocket frame. Type selects which of the
// remaining fields are meaningful.
type ClientFrame struct {
	Type           string `json:"type"`
	UserID         int64  `json:"user_id,omitempty"`
	ConversationID int64  `json:"conversation_id,omitempty"`
	Text           string `json:"text,omitempty"`
}

// Encode marshals the event envelope to the wire form.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}
