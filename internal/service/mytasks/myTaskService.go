package myTaskService

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/yraj/hireahelper/internal/database.go"
	"github.com/yraj/hireahelper/internal/logger"
	"github.com/yraj/hireahelper/internal/models"
)

// MyTaskService serves the assignments created when a help request is
// accepted. The assignee advances an assignment strictly forward, one step
// at a time: assigned -> inProgress -> done.
type MyTaskService struct {
	DB  *sql.DB
	Log *logger.Logger
}

// NewMyTaskService initializes a new my-task service
func NewMyTaskService() *MyTaskService {
	return &MyTaskService{
		DB:  database.DB,
		Log: logger.NewLogger("mytask-service"),
	}
}

// AdvanceBody is the request body for a status advance.
type AdvanceBody struct {
	UserID int64  `json:"user_id"`
	Status string `json:"status"`
}

// ListFor returns a user's assignments, newest first.
func (ms *MyTaskService) ListFor(ctx context.Context, userID int64) ([]models.MyTask, error) {
	query := `
		SELECT id, user_id, task_id, task_title, description, status, assigned_at
		FROM my_tasks WHERE user_id = ? ORDER BY assigned_at DESC
	`
	rows, err := ms.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.MyTask
	for rows.Next() {
		var t models.MyTask
		if err := rows.Scan(&t.ID, &t.UserID, &t.TaskID, &t.TaskTitle, &t.Description, &t.Status, &t.AssignedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Advance moves an assignment to the next status. Only the assignee may
// advance, only by a single forward step; the compare-and-set on the
// current status rejects regressions, skips and concurrent double-advances.
func (ms *MyTaskService) Advance(ctx context.Context, myTaskID, userID int64, next string) (models.MyTask, error) {
	var task models.MyTask
	query := `SELECT id, user_id, task_id, task_title, description, status, assigned_at FROM my_tasks WHERE id = ?`
	err := ms.DB.QueryRowContext(ctx, query, myTaskID).Scan(
		&task.ID, &task.UserID, &task.TaskID, &task.TaskTitle, &task.Description, &task.Status, &task.AssignedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.MyTask{}, fmt.Errorf("%w: my task %d", models.ErrNotFound, myTaskID)
		}
		return models.MyTask{}, err
	}

	if task.UserID != userID {
		return models.MyTask{}, fmt.Errorf("%w: my task %d", models.ErrNotFound, myTaskID)
	}
	if models.NextMyTaskStatus(task.Status) != next {
		return models.MyTask{}, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, task.Status, next)
	}

	result, err := ms.DB.ExecContext(ctx,
		`UPDATE my_tasks SET status = ? WHERE id = ? AND status = ?`,
		next, myTaskID, task.Status)
	if err != nil {
		return models.MyTask{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return models.MyTask{}, err
	}
	if affected == 0 {
		return models.MyTask{}, fmt.Errorf("%w: my task %d moved concurrently", models.ErrInvalidTransition, myTaskID)
	}

	task.Status = next
	ms.Log.Info("Assignment advanced", "my_task_id", myTaskID, "user_id", userID, "status", next)
	return task, nil
}

// HandleList handles GET /mytasks/{userId}.
func (ms *MyTaskService) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(mux.Vars(r)["userId"], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	tasks, err := ms.ListFor(r.Context(), userID)
	if err != nil {
		ms.Log.Error("Failed to fetch my tasks", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch my tasks")
		return
	}
	if tasks == nil {
		tasks = []models.MyTask{}
	}
	respondWithJSON(w, http.StatusOK, tasks)
}

// HandleAdvance handles PATCH /mytasks/{id}/status.
func (ms *MyTaskService) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	myTaskID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid my task ID")
		return
	}

	var body AdvanceBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	task, err := ms.Advance(r.Context(), myTaskID, body.UserID, body.Status)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			respondWithError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, models.ErrInvalidTransition):
			respondWithError(w, http.StatusConflict, err.Error())
		default:
			ms.Log.Error("Failed to advance my task", "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to advance my task")
		}
		return
	}
	respondWithJSON(w, http.StatusOK, task)
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
