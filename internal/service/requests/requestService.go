package requestService

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

// RequestService owns the help-request lifecycle: create, accept, decline,
// seen-set tracking and the notifications written on each transition. All
// status transitions are serialized per request by a compare-and-set on the
// pending status.
type RequestService struct {
	DB  *sql.DB
	Hub *models.Hub
	Log *logger.Logger
}

// NewRequestService initializes a new request service
func NewRequestService() *RequestService {
	return &RequestService{
		DB:  database.DB,
		Hub: models.GetHub(),
		Log: logger.NewLogger("request-service"),
	}
}

// CreateRequestBody is the request body for creating a help request.
type CreateRequestBody struct {
	RequesterID   int64  `json:"requester_id"`
	RequesterName string `json:"requester_name"`
	TaskID        int64  `json:"task_id"`
	TaskOwnerID   int64  `json:"task_owner_id"`
	Message       string `json:"message"`
}

// MarkSeenBody is the request body for marking requests as seen.
type MarkSeenBody struct {
	UserID     int64   `json:"user_id"`
	RequestIDs []int64 `json:"request_ids"`
}

// CreateRequest persists a new pending help request. The task must exist;
// the owner is resolved from the explicit task_owner_id hint when given,
// otherwise by the task's posted_by_name. The name lookup takes the first
// match, so non-unique names can mis-resolve; callers should send the id.
// Requester/owner names and the task title are snapshotted onto the row and
// never resynced.
func (rs *RequestService) CreateRequest(ctx context.Context, body CreateRequestBody) (models.HelpRequest, error) {
	if body.RequesterID == 0 || body.TaskID == 0 {
		return models.HelpRequest{}, fmt.Errorf("%w: requester_id and task_id are required", models.ErrValidation)
	}

	var task models.Task
	taskQuery := `SELECT id, posted_by_name, title FROM tasks WHERE id = ?`
	err := rs.DB.QueryRowContext(ctx, taskQuery, body.TaskID).Scan(&task.ID, &task.PostedByName, &task.Title)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.HelpRequest{}, fmt.Errorf("%w: task %d", models.ErrNotFound, body.TaskID)
		}
		return models.HelpRequest{}, err
	}

	var ownerID int64
	var ownerName string
	if body.TaskOwnerID != 0 {
		err = rs.DB.QueryRowContext(ctx, `SELECT user_id, name FROM users WHERE user_id = ?`, body.TaskOwnerID).Scan(&ownerID, &ownerName)
	} else {
		// Legacy fallback: resolve by the poster's name snapshot on the task.
		err = rs.DB.QueryRowContext(ctx, `SELECT user_id, name FROM users WHERE name = ? ORDER BY user_id LIMIT 1`, task.PostedByName).Scan(&ownerID, &ownerName)
	}
	if err != nil {
		if err == sql.ErrNoRows {
			rs.Log.Error("Task owner not found", "task_id", body.TaskID, "posted_by_name", task.PostedByName)
			return models.HelpRequest{}, fmt.Errorf("%w: task owner", models.ErrNotFound)
		}
		return models.HelpRequest{}, err
	}

	now := time.Now().UTC().Unix()
	insert := `
		INSERT INTO incoming_requests
			(requester_id, requester_name, task_id, task_title, task_owner_id, task_owner_name, message, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := rs.DB.ExecContext(ctx, insert,
		body.RequesterID, body.RequesterName, body.TaskID, task.Title, ownerID, ownerName, body.Message, models.RequestPending, now)
	if err != nil {
		return models.HelpRequest{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return models.HelpRequest{}, err
	}

	request := models.HelpRequest{
		ID:            id,
		RequesterID:   body.RequesterID,
		RequesterName: body.RequesterName,
		TaskID:        body.TaskID,
		TaskTitle:     task.Title,
		TaskOwnerID:   ownerID,
		TaskOwnerName: ownerName,
		Message:       body.Message,
		Status:        models.RequestPending,
		SeenBy:        []int64{},
		CreatedAt:     now,
	}
	rs.Log.Info("Help request created", "request_id", id, "task_id", body.TaskID, "requester_id", body.RequesterID, "owner_id", ownerID)
	return request, nil
}

// Accept transitions a pending request to accepted, creates the requester's
// notification and their assignment. Exactly one of two racing accept or
// decline calls wins the compare-and-set; the loser gets
// models.ErrInvalidTransition.
func (rs *RequestService) Accept(ctx context.Context, requestID int64) (models.HelpRequest, models.Notification, error) {
	request, err := rs.transition(ctx, requestID, models.RequestAccepted)
	if err != nil {
		return models.HelpRequest{}, models.Notification{}, err
	}

	message := fmt.Sprintf("Your request for task '%s' was accepted! Click to view.", request.TaskTitle)
	notification, err := rs.createNotification(ctx, request, models.NotificationRequestAccepted, message)
	if err != nil {
		return models.HelpRequest{}, models.Notification{}, err
	}

	// Copy the task description onto the assignment; the task may already
	// be gone, in which case the description is simply empty.
	var description string
	_ = rs.DB.QueryRowContext(ctx, `SELECT description FROM tasks WHERE id = ?`, request.TaskID).Scan(&description)

	insert := `
		INSERT INTO my_tasks (user_id, task_id, task_title, description, status, assigned_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = rs.DB.ExecContext(ctx, insert,
		request.RequesterID, request.TaskID, request.TaskTitle, description, models.MyTaskAssigned, time.Now().UTC().Unix())
	if err != nil {
		return models.HelpRequest{}, models.Notification{}, err
	}

	rs.Log.Info("Help request accepted", "request_id", requestID, "requester_id", request.RequesterID)
	return request, notification, nil
}

// Decline transitions a pending request to rejected and creates the
// requester's notification. No assignment is created.
func (rs *RequestService) Decline(ctx context.Context, requestID int64) (models.HelpRequest, models.Notification, error) {
	request, err := rs.transition(ctx, requestID, models.RequestRejected)
	if err != nil {
		return models.HelpRequest{}, models.Notification{}, err
	}

	message := fmt.Sprintf("Your request for task '%s' was declined. Click to view.", request.TaskTitle)
	notification, err := rs.createNotification(ctx, request, models.NotificationRequestDeclined, message)
	if err != nil {
		return models.HelpRequest{}, models.Notification{}, err
	}

	rs.Log.Info("Help request declined", "request_id", requestID, "requester_id", request.RequesterID)
	return request, notification, nil
}

// transition applies pending -> next with a compare-and-set so a request
// can only ever leave pending once.
func (rs *RequestService) transition(ctx context.Context, requestID int64, next string) (models.HelpRequest, error) {
	var request models.HelpRequest
	query := `
		SELECT id, requester_id, requester_name, task_id, task_title, task_owner_id, task_owner_name, message, status, created_at
		FROM incoming_requests WHERE id = ?
	`
	err := rs.DB.QueryRowContext(ctx, query, requestID).Scan(
		&request.ID, &request.RequesterID, &request.RequesterName, &request.TaskID, &request.TaskTitle,
		&request.TaskOwnerID, &request.TaskOwnerName, &request.Message, &request.Status, &request.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.HelpRequest{}, fmt.Errorf("%w: request %d", models.ErrNotFound, requestID)
		}
		return models.HelpRequest{}, err
	}

	result, err := rs.DB.ExecContext(ctx,
		`UPDATE incoming_requests SET status = ? WHERE id = ? AND status = ?`,
		next, requestID, models.RequestPending)
	if err != nil {
		return models.HelpRequest{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return models.HelpRequest{}, err
	}
	if affected == 0 {
		return models.HelpRequest{}, fmt.Errorf("%w: request %d is not pending", models.ErrInvalidTransition, requestID)
	}

	request.Status = next
	return request, nil
}

func (rs *RequestService) createNotification(ctx context.Context, request models.HelpRequest, kind, message string) (models.Notification, error) {
	now := time.Now().UTC().Unix()
	insert := `
		INSERT INTO notifications (user_id, type, message, request_id, task_id, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`
	result, err := rs.DB.ExecContext(ctx, insert, request.RequesterID, kind, message, request.ID, request.TaskID, now)
	if err != nil {
		return models.Notification{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return models.Notification{}, err
	}
	return models.Notification{
		ID:        id,
		UserID:    request.RequesterID,
		Type:      kind,
		Message:   message,
		RequestID: request.ID,
		TaskID:    request.TaskID,
		CreatedAt: now,
	}, nil
}

// MarkSeen adds the user to the seen-set of each listed request. Set-union
// semantics: repeating a call is a no-op, the seen-set only ever grows.
func (rs *RequestService) MarkSeen(ctx context.Context, userID int64, requestIDs []int64) error {
	if userID == 0 || requestIDs == nil {
		return fmt.Errorf("%w: user_id and request_ids are required", models.ErrValidation)
	}
	for _, requestID := range requestIDs {
		_, err := rs.DB.ExecContext(ctx,
			`INSERT IGNORE INTO request_seen (request_id, user_id) VALUES (?, ?)`,
			requestID, userID)
		if err != nil {
			return err
		}
	}
	return nil
}

// MarkNotificationRead flips the read flag. Idempotent; re-reading an
// already-read notification is not an error.
func (rs *RequestService) MarkNotificationRead(ctx context.Context, notificationID int64) error {
	_, err := rs.DB.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ?`, notificationID)
	return err
}

// ReceivedPending lists the owner's inbox: pending requests only, newest
// first, with live requester/task fields overlaid on the snapshots and the
// seen-set attached.
func (rs *RequestService) ReceivedPending(ctx context.Context, ownerID int64) ([]models.HelpRequest, error) {
	query := `
		SELECT r.id, r.requester_id, r.requester_name, r.task_id, r.task_title, r.task_owner_id, r.task_owner_name,
		       r.message, r.status, r.created_at,
		       COALESCE(u.name, ''), COALESCE(u.email, ''), COALESCE(u.image, ''),
		       COALESCE(t.title, ''), COALESCE(t.description, ''), COALESCE(t.location, ''), COALESCE(t.category, ''), COALESCE(t.image_url, '')
		FROM incoming_requests r
		LEFT JOIN users u ON u.user_id = r.requester_id
		LEFT JOIN tasks t ON t.id = r.task_id
		WHERE r.task_owner_id = ? AND r.status = ?
		ORDER BY r.created_at DESC
	`
	rows, err := rs.DB.QueryContext(ctx, query, ownerID, models.RequestPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []models.HelpRequest
	for rows.Next() {
		var r models.HelpRequest
		var liveName, liveTitle string
		if err := rows.Scan(
			&r.ID, &r.RequesterID, &r.RequesterName, &r.TaskID, &r.TaskTitle, &r.TaskOwnerID, &r.TaskOwnerName,
			&r.Message, &r.Status, &r.CreatedAt,
			&liveName, &r.RequesterEmail, &r.RequesterImage,
			&liveTitle, &r.TaskDescription, &r.TaskLocation, &r.TaskCategory, &r.TaskImage); err != nil {
			return nil, err
		}
		// Prefer the live rows while they exist, keep the snapshot otherwise.
		if liveName != "" {
			r.RequesterName = liveName
		}
		if liveTitle != "" {
			r.TaskTitle = liveTitle
		}
		r.SeenBy = []int64{}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range requests {
		seenBy, err := rs.seenSet(ctx, requests[i].ID)
		if err != nil {
			return nil, err
		}
		requests[i].SeenBy = seenBy
	}
	return requests, nil
}

func (rs *RequestService) seenSet(ctx context.Context, requestID int64) ([]int64, error) {
	rows, err := rs.DB.QueryContext(ctx, `SELECT user_id FROM request_seen WHERE request_id = ?`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seenBy := []int64{}
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		seenBy = append(seenBy, userID)
	}
	return seenBy, rows.Err()
}

// SentByRequester lists every request a user has made, newest first.
func (rs *RequestService) SentByRequester(ctx context.Context, requesterID int64) ([]models.HelpRequest, error) {
	return rs.listRequests(ctx, `WHERE requester_id = ?`, requesterID)
}

// AllRequests lists every request, newest first. Admin surface.
func (rs *RequestService) AllRequests(ctx context.Context) ([]models.HelpRequest, error) {
	return rs.listRequests(ctx, ``)
}

func (rs *RequestService) listRequests(ctx context.Context, where string, args ...interface{}) ([]models.HelpRequest, error) {
	query := `
		SELECT id, requester_id, requester_name, task_id, task_title, task_owner_id, task_owner_name, message, status, created_at
		FROM incoming_requests ` + where + ` ORDER BY created_at DESC`
	rows, err := rs.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []models.HelpRequest
	for rows.Next() {
		var r models.HelpRequest
		if err := rows.Scan(
			&r.ID, &r.RequesterID, &r.RequesterName, &r.TaskID, &r.TaskTitle,
			&r.TaskOwnerID, &r.TaskOwnerName, &r.Message, &r.Status, &r.CreatedAt); err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// NotificationsFor lists a recipient's notifications, newest first.
func (rs *RequestService) NotificationsFor(ctx context.Context, userID int64) ([]models.Notification, error) {
	query := `
		SELECT id, user_id, type, message, request_id, task_id, is_read, created_at
		FROM notifications WHERE user_id = ? ORDER BY created_at DESC
	`
	rows, err := rs.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.RequestID, &n.TaskID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// ---- HTTP handlers ----

// HandleCreate handles POST /incoming-requests.
func (rs *RequestService) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var body CreateRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	request, err := rs.CreateRequest(r.Context(), body)
	if err != nil {
		rs.respondError(w, err, "Failed to create request")
		return
	}

	// Fire-and-forget: the owner's inbox refresh must not delay the response.
	go rs.EmitRequestsToOwner(request.TaskOwnerID)

	respondWithJSON(w, http.StatusCreated, request)
}

// HandleAccept handles PATCH /incoming-requests/accept/{requestId}.
func (rs *RequestService) HandleAccept(w http.ResponseWriter, r *http.Request) {
	requestID, err := pathID(r, "requestId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}

	request, notification, err := rs.Accept(r.Context(), requestID)
	if err != nil {
		rs.respondError(w, err, "Failed to accept request")
		return
	}

	go rs.EmitNotificationToRequester(request.RequesterID, notification)
	go rs.EmitRequestsToOwner(request.TaskOwnerID)

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"message": "Request accepted", "request": request})
}

// HandleDecline handles PATCH /incoming-requests/decline/{requestId}.
func (rs *RequestService) HandleDecline(w http.ResponseWriter, r *http.Request) {
	requestID, err := pathID(r, "requestId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}

	request, notification, err := rs.Decline(r.Context(), requestID)
	if err != nil {
		rs.respondError(w, err, "Failed to decline request")
		return
	}

	go rs.EmitNotificationToRequester(request.RequesterID, notification)
	go rs.EmitRequestsToOwner(request.TaskOwnerID)

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"message": "Request declined", "request": request})
}

// HandleMarkSeen handles POST /incoming-requests/mark-seen.
func (rs *RequestService) HandleMarkSeen(w http.ResponseWriter, r *http.Request) {
	var body MarkSeenBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := rs.MarkSeen(r.Context(), body.UserID, body.RequestIDs); err != nil {
		rs.respondError(w, err, "Failed to mark requests as seen")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Incoming requests marked as seen"})
}

// HandleReceived handles GET /incoming-requests/received/{userId}.
func (rs *RequestService) HandleReceived(w http.ResponseWriter, r *http.Request) {
	ownerID, err := pathID(r, "userId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	requests, err := rs.ReceivedPending(r.Context(), ownerID)
	if err != nil {
		rs.respondError(w, err, "Failed to fetch requests")
		return
	}
	if requests == nil {
		requests = []models.HelpRequest{}
	}
	respondWithJSON(w, http.StatusOK, requests)
}

// HandleSent handles GET /requests/sent/{userId}.
func (rs *RequestService) HandleSent(w http.ResponseWriter, r *http.Request) {
	requesterID, err := pathID(r, "userId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	requests, err := rs.SentByRequester(r.Context(), requesterID)
	if err != nil {
		rs.respondError(w, err, "Failed to fetch requests")
		return
	}
	if requests == nil {
		requests = []models.HelpRequest{}
	}
	respondWithJSON(w, http.StatusOK, requests)
}

// HandleAll handles GET /incoming-requests (admin table view).
func (rs *RequestService) HandleAll(w http.ResponseWriter, r *http.Request) {
	requests, err := rs.AllRequests(r.Context())
	if err != nil {
		rs.respondError(w, err, "Failed to fetch requests")
		return
	}
	if requests == nil {
		requests = []models.HelpRequest{}
	}
	respondWithJSON(w, http.StatusOK, requests)
}

// HandleNotifications handles GET /incoming-requests/notifications/{userId}.
func (rs *RequestService) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	notifications, err := rs.NotificationsFor(r.Context(), userID)
	if err != nil {
		rs.respondError(w, err, "Failed to fetch notifications")
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	respondWithJSON(w, http.StatusOK, notifications)
}

// HandleNotificationRead handles PATCH /incoming-requests/notifications/read/{notificationId}.
func (rs *RequestService) HandleNotificationRead(w http.ResponseWriter, r *http.Request) {
	notificationID, err := pathID(r, "notificationId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid notification ID")
		return
	}

	if err := rs.MarkNotificationRead(r.Context(), notificationID); err != nil {
		rs.respondError(w, err, "Failed to mark notification as read")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

func (rs *RequestService) respondError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrInvalidTransition):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrValidation):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		rs.Log.Error(fallback, "error", err)
		respondWithError(w, http.StatusInternalServerError, fallback)
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
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
