package models

// Notification types. One notification is created per accept/decline
// transition, never more.
const (
	NotificationRequestAccepted = "request-accepted"
	NotificationRequestDeclined = "request-declined"
)

// Notification is a durable inbox entry for a single recipient.
type Notification struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	RequestID int64  `json:"request_id"`
	TaskID    int64  `json:"task_id"`
	IsRead    bool   `json:"is_read"`
	CreatedAt int64  `json:"created_at"`
}
