package adminService

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/yraj/hireahelper/internal/database.go"
	"github.com/yraj/hireahelper/internal/logger"
	"github.com/yraj/hireahelper/internal/middleware"
	"github.com/yraj/hireahelper/internal/models"
)

// AdminService owns privileged mutations. Every successful mutation appends
// exactly one audit entry and broadcasts three events to the admin channel:
// the raw entry, an entity delta, and a recomputed analytics snapshot.
// Audit or fanout failure never rolls back the primary mutation.
type AdminService struct {
	DB  *sql.DB
	Hub *models.Hub
	Log *logger.Logger
}

// NewAdminService initializes a new admin service
func NewAdminService() *AdminService {
	return &AdminService{
		DB:  database.DB,
		Hub: models.GetHub(),
		Log: logger.NewLogger("admin-service"),
	}
}

type notesBody struct {
	Notes string `json:"notes"`
}

// Users lists every account for the admin table view.
func (as *AdminService) Users(ctx context.Context) ([]models.User, error) {
	query := `SELECT user_id, name, email, COALESCE(image, ''), is_admin, is_blocked, created_at FROM users ORDER BY created_at DESC`
	rows, err := as.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.UserID, &u.Name, &u.Email, &u.Image, &u.IsAdmin, &u.IsBlocked, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SetUserBlocked flips the block flag and returns the updated user.
func (as *AdminService) SetUserBlocked(ctx context.Context, userID int64, blocked bool) (models.User, error) {
	_, err := as.DB.ExecContext(ctx, `UPDATE users SET is_blocked = ? WHERE user_id = ?`, blocked, userID)
	if err != nil {
		return models.User{}, err
	}

	var u models.User
	query := `SELECT user_id, name, email, COALESCE(image, ''), is_admin, is_blocked, created_at FROM users WHERE user_id = ?`
	err = as.DB.QueryRowContext(ctx, query, userID).Scan(&u.UserID, &u.Name, &u.Email, &u.Image, &u.IsAdmin, &u.IsBlocked, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, fmt.Errorf("%w: user %d", models.ErrNotFound, userID)
		}
		return models.User{}, err
	}
	return u, nil
}

// DeleteUser removes an account.
func (as *AdminService) DeleteUser(ctx context.Context, userID int64) error {
	result, err := as.DB.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?`, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: user %d", models.ErrNotFound, userID)
	}
	return nil
}

// Tasks lists every task with the owner overlaid for the admin view.
func (as *AdminService) Tasks(ctx context.Context) ([]models.Task, error) {
	query := `
		SELECT t.id, COALESCE(t.user_id, 0), t.posted_by_name, t.title, t.description, t.category, t.location,
		       COALESCE(t.image_url, ''), t.start_time, COALESCE(t.end_time, 0), t.created_at,
		       COALESCE(u.name, ''), COALESCE(u.email, '')
		FROM tasks t
		LEFT JOIN users u ON u.user_id = t.user_id
		ORDER BY t.created_at DESC
	`
	rows, err := as.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.UserID, &t.PostedByName, &t.Title, &t.Description, &t.Category, &t.Location,
			&t.ImageURL, &t.StartTime, &t.EndTime, &t.CreatedAt, &t.OwnerName, &t.OwnerEmail); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// DeleteTask removes a task, returning the deleted row so the caller can
// notify its owner.
func (as *AdminService) DeleteTask(ctx context.Context, taskID int64) (models.Task, error) {
	var t models.Task
	query := `SELECT id, COALESCE(user_id, 0), title FROM tasks WHERE id = ?`
	err := as.DB.QueryRowContext(ctx, query, taskID).Scan(&t.ID, &t.UserID, &t.Title)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Task{}, fmt.Errorf("%w: task %d", models.ErrNotFound, taskID)
		}
		return models.Task{}, err
	}

	if _, err := as.DB.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, taskID); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// DeleteRequest removes a help request, returning the deleted row so the
// caller can notify the requester.
func (as *AdminService) DeleteRequest(ctx context.Context, requestID int64) (models.HelpRequest, error) {
	var r models.HelpRequest
	query := `SELECT id, requester_id, task_owner_id FROM incoming_requests WHERE id = ?`
	err := as.DB.QueryRowContext(ctx, query, requestID).Scan(&r.ID, &r.RequesterID, &r.TaskOwnerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.HelpRequest{}, fmt.Errorf("%w: request %d", models.ErrNotFound, requestID)
		}
		return models.HelpRequest{}, err
	}

	if _, err := as.DB.ExecContext(ctx, `DELETE FROM incoming_requests WHERE id = ?`, requestID); err != nil {
		return models.HelpRequest{}, err
	}
	return r, nil
}

// Analytics recomputes the aggregate counters.
func (as *AdminService) Analytics(ctx context.Context) (models.AnalyticsSnapshot, error) {
	var snapshot models.AnalyticsSnapshot
	if err := as.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&snapshot.UserCount); err != nil {
		return models.AnalyticsSnapshot{}, err
	}
	if err := as.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&snapshot.TaskCount); err != nil {
		return models.AnalyticsSnapshot{}, err
	}
	return snapshot, nil
}

// Actions lists the audit log, most recent first, capped at 200 entries.
func (as *AdminService) Actions(ctx context.Context) ([]models.AdminAction, error) {
	query := `
		SELECT id, admin_id, action_type, target_id, target_type, notes, created_at
		FROM admin_actions ORDER BY created_at DESC LIMIT 200
	`
	rows, err := as.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []models.AdminAction
	for rows.Next() {
		var a models.AdminAction
		if err := rows.Scan(&a.ID, &a.AdminID, &a.ActionType, &a.TargetID, &a.TargetType, &a.Notes, &a.CreatedAt); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// recordAction appends one audit entry.
func (as *AdminService) recordAction(ctx context.Context, adminID int64, actionType string, targetID int64, targetType, notes string) (models.AdminAction, error) {
	now := time.Now().UTC().Unix()
	insert := `
		INSERT INTO admin_actions (admin_id, action_type, target_id, target_type, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := as.DB.ExecContext(ctx, insert, adminID, actionType, targetID, targetType, notes, now)
	if err != nil {
		return models.AdminAction{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return models.AdminAction{}, err
	}
	return models.AdminAction{
		ID: id, AdminID: adminID, ActionType: actionType,
		TargetID: targetID, TargetType: targetType, Notes: notes, CreatedAt: now,
	}, nil
}

// AuditAndBroadcast records the audit entry for a successful mutation, then
// publishes the entry, the entity delta and a fresh analytics snapshot to
// the admin channel. Best-effort: every failure here is logged and
// swallowed, the primary mutation already stands.
func (as *AdminService) AuditAndBroadcast(adminID int64, actionType string, targetID int64, targetType, notes string, delta models.Event) {
	if adminID == 0 {
		as.Log.Warn("Skipping audit entry, no admin id on request", "action_type", actionType)
		return
	}

	ctx := context.Background()
	action, err := as.recordAction(ctx, adminID, actionType, targetID, targetType, notes)
	if err != nil {
		as.Log.Error("Failed to store admin action", "action_type", actionType, "error", err)
		return
	}
	as.Log.Audit("Admin action recorded", "action_type", actionType, "admin_id", adminID, "target_id", targetID)

	if as.Hub == nil {
		return
	}
	as.Hub.PublishToAdmins(models.Event{Event: models.EventAdminActionCreated, Payload: action})
	as.Hub.PublishToAdmins(delta)

	snapshot, err := as.Analytics(ctx)
	if err != nil {
		as.Log.Warn("Skipping analytics broadcast", "error", err)
		return
	}
	as.Hub.PublishToAdmins(models.Event{Event: models.EventAdminAnalyticsUpdated, Payload: snapshot})
}

func (as *AdminService) publishToUser(userID int64, event models.Event) {
	if as.Hub == nil || userID == 0 {
		return
	}
	as.Hub.Publish(models.UserChannel(userID), event)
}

// ---- HTTP handlers ----

// HandleUsers handles GET /admin/users.
func (as *AdminService) HandleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := as.Users(r.Context())
	if err != nil {
		as.Log.Error("Failed to fetch users", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}
	if users == nil {
		users = []models.User{}
	}
	respondWithJSON(w, http.StatusOK, users)
}

// HandleBlockUser handles PATCH /admin/users/{id}/block.
func (as *AdminService) HandleBlockUser(w http.ResponseWriter, r *http.Request) {
	as.setBlocked(w, r, true, models.ActionBlockUser)
}

// HandleUnblockUser handles PATCH /admin/users/{id}/unblock.
func (as *AdminService) HandleUnblockUser(w http.ResponseWriter, r *http.Request) {
	as.setBlocked(w, r, false, models.ActionUnblockUser)
}

func (as *AdminService) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool, actionType string) {
	userID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	user, err := as.SetUserBlocked(r.Context(), userID, blocked)
	if err != nil {
		as.respondError(w, err, "Failed to update user")
		return
	}

	go as.AuditAndBroadcast(actorID(r), actionType, userID, "User", notes(r),
		models.Event{Event: models.EventAdminUserUpdated, Payload: user})

	respondWithJSON(w, http.StatusOK, user)
}

// HandleDeleteUser handles DELETE /admin/users/{id}.
func (as *AdminService) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if err := as.DeleteUser(r.Context(), userID); err != nil {
		as.respondError(w, err, "Failed to delete user")
		return
	}

	admin, note := actorID(r), notes(r)
	go func() {
		as.AuditAndBroadcast(admin, models.ActionDeleteUser, userID, "User", note,
			models.Event{Event: models.EventAdminUserDeleted, Payload: models.EntityDeleted{ID: userID}})
		// Kick the deleted user's live sessions.
		as.publishToUser(userID, models.Event{Event: models.EventUserForceLogout})
	}()

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
}

// HandleTasks handles GET /admin/tasks.
func (as *AdminService) HandleTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := as.Tasks(r.Context())
	if err != nil {
		as.Log.Error("Failed to fetch tasks", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch tasks")
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	respondWithJSON(w, http.StatusOK, tasks)
}

// HandleDeleteTask handles DELETE /admin/tasks/{id}.
func (as *AdminService) HandleDeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	task, err := as.DeleteTask(r.Context(), taskID)
	if err != nil {
		as.respondError(w, err, "Failed to delete task")
		return
	}

	admin, note := actorID(r), notes(r)
	go func() {
		as.AuditAndBroadcast(admin, models.ActionDeleteTask, taskID, "Task", note,
			models.Event{Event: models.EventAdminTaskDeleted, Payload: models.EntityDeleted{ID: taskID}})
		as.publishToUser(task.UserID, models.Event{Event: models.EventUserTaskDeleted, Payload: models.EntityDeleted{ID: taskID}})
	}()

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Task deleted"})
}

// HandleDeleteRequest handles DELETE /requests/{id}.
func (as *AdminService) HandleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	as.deleteRequest(w, r, models.ActionDeleteRequest, models.EventAdminRequestDeleted, true)
}

// HandleDeleteIncomingRequest handles DELETE /incoming-requests/{id}.
func (as *AdminService) HandleDeleteIncomingRequest(w http.ResponseWriter, r *http.Request) {
	as.deleteRequest(w, r, models.ActionDeleteIncomingRequest, models.EventAdminIncomingRequestDeleted, false)
}

func (as *AdminService) deleteRequest(w http.ResponseWriter, r *http.Request, actionType, deltaEvent string, notifyRequester bool) {
	requestID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}

	request, err := as.DeleteRequest(r.Context(), requestID)
	if err != nil {
		as.respondError(w, err, "Failed to delete request")
		return
	}

	admin, note := actorID(r), notes(r)
	go func() {
		as.AuditAndBroadcast(admin, actionType, requestID, "Request", note,
			models.Event{Event: deltaEvent, Payload: models.EntityDeleted{ID: requestID}})
		if notifyRequester {
			as.publishToUser(request.RequesterID, models.Event{Event: models.EventUserRequestDeleted, Payload: models.EntityDeleted{ID: requestID}})
		}
	}()

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Request deleted"})
}

// HandleDisputes handles GET /admin/disputes. Disputes have no model yet;
// the admin UI expects an empty list.
func (as *AdminService) HandleDisputes(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, []interface{}{})
}

// HandleResolveDispute handles PATCH /admin/disputes/{id}/resolve.
func (as *AdminService) HandleResolveDispute(w http.ResponseWriter, r *http.Request) {
	disputeID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid dispute ID")
		return
	}

	go as.AuditAndBroadcast(actorID(r), models.ActionResolveDispute, disputeID, "Dispute", notes(r),
		models.Event{Event: models.EventAdminDisputeUpdated, Payload: models.DisputeUpdate{ID: disputeID, Status: "resolved"}})

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Dispute resolved"})
}

// HandleAnalytics handles GET /admin/analytics.
func (as *AdminService) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	snapshot, err := as.Analytics(r.Context())
	if err != nil {
		as.Log.Error("Failed to compute analytics", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to compute analytics")
		return
	}
	respondWithJSON(w, http.StatusOK, snapshot)
}

// HandleActions handles GET /admin/actions.
func (as *AdminService) HandleActions(w http.ResponseWriter, r *http.Request) {
	actions, err := as.Actions(r.Context())
	if err != nil {
		as.Log.Error("Failed to fetch admin actions", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch admin actions")
		return
	}
	if actions == nil {
		actions = []models.AdminAction{}
	}
	respondWithJSON(w, http.StatusOK, actions)
}

func (as *AdminService) respondError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrValidation):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		as.Log.Error(fallback, "error", err)
		respondWithError(w, http.StatusInternalServerError, fallback)
	}
}

func actorID(r *http.Request) int64 {
	claims, ok := r.Context().Value(middleware.UserContextKey).(jwt.MapClaims)
	if !ok {
		return 0
	}
	return middleware.UserID(claims)
}

func notes(r *http.Request) string {
	var body notesBody
	if r.Body == nil {
		return ""
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	return body.Notes
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
