package messageService

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/yraj/hireahelper/internal/database.go"
	"github.com/yraj/hireahelper/internal/logger"
	"github.com/yraj/hireahelper/internal/models"
)

// MessageService owns conversations and their messages. Chat messages
// arrive over the websocket (send_message frames); this service persists
// them, fans the message out to the conversation room, and nudges every
// participant's user room so clients outside the room still get notified.
type MessageService struct {
	DB  *sql.DB
	Hub *models.Hub
	Log *logger.Logger
}

// NewMessageService initializes a new message service
func NewMessageService() *MessageService {
	return &MessageService{
		DB:  database.DB,
		Hub: models.GetHub(),
		Log: logger.NewLogger("message-service"),
	}
}

type createConversationBody struct {
	Participants []int64 `json:"participants"`
}

// FindOrCreateConversation returns the conversation with exactly the given
// participant set, creating it when absent.
func (ms *MessageService) FindOrCreateConversation(ctx context.Context, participants []int64) (models.Conversation, error) {
	if len(participants) < 2 {
		return models.Conversation{}, fmt.Errorf("%w: at least two participants are required", models.ErrValidation)
	}

	// A conversation matches when it has every requested participant and no
	// one else.
	query := `
		SELECT cp.conversation_id
		FROM conversation_participants cp
		GROUP BY cp.conversation_id
		HAVING COUNT(*) = ?
		   AND SUM(cp.user_id IN (` + placeholders(len(participants)) + `)) = ?
		LIMIT 1
	`
	args := []interface{}{len(participants)}
	for _, p := range participants {
		args = append(args, p)
	}
	args = append(args, len(participants))

	var conversationID int64
	err := ms.DB.QueryRowContext(ctx, query, args...).Scan(&conversationID)
	if err == nil {
		return ms.Conversation(ctx, conversationID)
	}
	if err != sql.ErrNoRows {
		return models.Conversation{}, err
	}

	now := time.Now().UTC().Unix()
	tx, err := ms.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.Conversation{}, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `INSERT INTO conversations (created_at, updated_at) VALUES (?, ?)`, now, now)
	if err != nil {
		return models.Conversation{}, err
	}
	conversationID, err = result.LastInsertId()
	if err != nil {
		return models.Conversation{}, err
	}
	for _, p := range participants {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO conversation_participants (conversation_id, user_id) VALUES (?, ?)`, conversationID, p); err != nil {
			return models.Conversation{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return models.Conversation{}, err
	}

	ms.Log.Info("Conversation created", "conversation_id", conversationID, "participants", len(participants))
	return models.Conversation{ID: conversationID, Participants: participants, CreatedAt: now, UpdatedAt: now}, nil
}

// Conversation returns one conversation with its participant list.
func (ms *MessageService) Conversation(ctx context.Context, conversationID int64) (models.Conversation, error) {
	var c models.Conversation
	err := ms.DB.QueryRowContext(ctx,
		`SELECT id, created_at, updated_at FROM conversations WHERE id = ?`, conversationID).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Conversation{}, fmt.Errorf("%w: conversation %d", models.ErrNotFound, conversationID)
		}
		return models.Conversation{}, err
	}

	participants, err := ms.participants(ctx, conversationID)
	if err != nil {
		return models.Conversation{}, err
	}
	c.Participants = participants
	return c, nil
}

func (ms *MessageService) participants(ctx context.Context, conversationID int64) ([]int64, error) {
	rows, err := ms.DB.QueryContext(ctx,
		`SELECT user_id FROM conversation_participants WHERE conversation_id = ?`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := []int64{}
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		participants = append(participants, userID)
	}
	return participants, rows.Err()
}

// ConversationsFor lists a user's conversations, most recently active first.
func (ms *MessageService) ConversationsFor(ctx context.Context, userID int64) ([]models.Conversation, error) {
	query := `
		SELECT c.id, c.created_at, c.updated_at
		FROM conversations c
		JOIN conversation_participants cp ON cp.conversation_id = c.id
		WHERE cp.user_id = ?
		ORDER BY c.updated_at DESC
	`
	rows, err := ms.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range conversations {
		participants, err := ms.participants(ctx, conversations[i].ID)
		if err != nil {
			return nil, err
		}
		conversations[i].Participants = participants
	}
	return conversations, nil
}

// MessagesFor returns a conversation's history, oldest first, with the
// sender overlaid so clients get name and image, not just an id.
func (ms *MessageService) MessagesFor(ctx context.Context, conversationID int64) ([]models.ChatMessage, error) {
	query := `
		SELECT m.id, m.conversation_id, m.sender_id, COALESCE(u.name, ''), COALESCE(u.image, ''), m.text, m.created_at
		FROM messages m
		LEFT JOIN users u ON u.user_id = m.sender_id
		WHERE m.conversation_id = ?
		ORDER BY m.created_at ASC
	`
	rows, err := ms.DB.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.SenderName, &m.SenderImage, &m.Text, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// RelayMessage implements models.MessageRelay: persist a send_message
// frame, deliver it to the conversation room, and nudge every participant's
// user room. Called from a client's read pump; failures are logged, the
// sender is never blocked.
func (ms *MessageService) RelayMessage(senderID, conversationID int64, text string) {
	ctx := context.Background()

	now := time.Now().UTC().Unix()
	result, err := ms.DB.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, sender_id, text, created_at) VALUES (?, ?, ?, ?)`,
		conversationID, senderID, text, now)
	if err != nil {
		ms.Log.Error("Failed to persist chat message", "conversation_id", conversationID, "error", err)
		return
	}
	id, err := result.LastInsertId()
	if err != nil {
		ms.Log.Error("Failed to persist chat message", "conversation_id", conversationID, "error", err)
		return
	}
	_, _ = ms.DB.ExecContext(ctx, `UPDATE conversations SET updated_at = ? WHERE id = ?`, now, conversationID)

	message := models.ChatMessage{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           text,
		CreatedAt:      now,
	}
	_ = ms.DB.QueryRowContext(ctx, `SELECT name, COALESCE(image, '') FROM users WHERE user_id = ?`, senderID).
		Scan(&message.SenderName, &message.SenderImage)

	if ms.Hub == nil {
		return
	}
	ms.Hub.Publish(models.ConversationChannel(conversationID), models.Event{
		Event:   models.EventReceiveMessage,
		Payload: message,
	})

	// Participants not currently in the room still get a nudge on their
	// user channel.
	participants, err := ms.participants(ctx, conversationID)
	if err != nil {
		ms.Log.Warn("Skipping participant nudges", "conversation_id", conversationID, "error", err)
		return
	}
	preview := models.NewMessagePreview{
		ConversationID: conversationID,
		Message:        text,
		FromID:         senderID,
		FromName:       message.SenderName,
	}
	for _, participant := range participants {
		ms.Hub.Publish(models.UserChannel(participant), models.Event{
			Event:   models.EventNewMessageNotification,
			Payload: preview,
		})
	}
}

// ---- HTTP handlers ----

// HandleCreateConversation handles POST /messages/conversation.
func (ms *MessageService) HandleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var body createConversationBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	conversation, err := ms.FindOrCreateConversation(r.Context(), body.Participants)
	if err != nil {
		ms.respondError(w, err, "Failed to create conversation")
		return
	}
	respondWithJSON(w, http.StatusOK, conversation)
}

// HandleConversation handles GET /messages/conversations/{id}.
func (ms *MessageService) HandleConversation(w http.ResponseWriter, r *http.Request) {
	conversationID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid conversation ID")
		return
	}

	conversation, err := ms.Conversation(r.Context(), conversationID)
	if err != nil {
		ms.respondError(w, err, "Failed to fetch conversation")
		return
	}
	respondWithJSON(w, http.StatusOK, conversation)
}

// HandleConversationsForUser handles GET /messages/conversations/user/{userId}.
func (ms *MessageService) HandleConversationsForUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(mux.Vars(r)["userId"], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	conversations, err := ms.ConversationsFor(r.Context(), userID)
	if err != nil {
		ms.respondError(w, err, "Failed to fetch conversations")
		return
	}
	if conversations == nil {
		conversations = []models.Conversation{}
	}
	respondWithJSON(w, http.StatusOK, conversations)
}

// HandleMessages handles GET /messages/conversation/{conversationId}.
func (ms *MessageService) HandleMessages(w http.ResponseWriter, r *http.Request) {
	conversationID, err := strconv.ParseInt(mux.Vars(r)["conversationId"], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid conversation ID")
		return
	}

	messages, err := ms.MessagesFor(r.Context(), conversationID)
	if err != nil {
		ms.respondError(w, err, "Failed to fetch messages")
		return
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	respondWithJSON(w, http.StatusOK, messages)
}

func (ms *MessageService) respondError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrValidation):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		ms.Log.Error(fallback, "error", err)
		respondWithError(w, http.StatusInternalServerError, fallback)
	}
}

func placeholders(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			s += ","
		}
		s += "?"
	}
	return s
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
