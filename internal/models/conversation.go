package models

// Conversation is a chat room between two or more users.
type Conversation struct {
	ID           int64   `json:"id"`
	Participants []int64 `json:"participants"`
	CreatedAt    int64   `json:"created_at"`
	UpdatedAt    int64   `json:"updated_at"`
}

// ChatMessage is a single message inside a conversation.
type ChatMessage struct {
	ID             int64  `json:"id"`
	ConversationID int64  `json:"conversation_id"`
	SenderID       int64  `json:"sender_id"`
	SenderName     string `json:"sender_name,omitempty"`
	SenderImage    string `json:"sender_image,omitempty"`
	Text           string `json:"text"`
	CreatedAt      int64  `json:"created_at"`
}
