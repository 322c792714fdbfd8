package requestService

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/yraj/hireahelper/internal/logger"
	"github.com/yraj/hireahelper/internal/models"
)

func newTestService(t *testing.T) (*RequestService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return &RequestService{
		DB:  db,
		Hub: models.NewHub(),
		Log: logger.NewLogger("request-service-test"),
	}, mock
}

func requestRow(r models.HelpRequest) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "requester_id", "requester_name", "task_id", "task_title",
		"task_owner_id", "task_owner_name", "message", "status", "created_at",
	}).AddRow(r.ID, r.RequesterID, r.RequesterName, r.TaskID, r.TaskTitle,
		r.TaskOwnerID, r.TaskOwnerName, r.Message, r.Status, r.CreatedAt)
}

func TestCreateRequestWithOwnerHint(t *testing.T) {
	rs, mock := newTestService(t)

	mock.ExpectQuery("SELECT id, posted_by_name, title FROM tasks").WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "posted_by_name", "title"}).AddRow(5, "Olive Owner", "Fix the fence"))
	mock.ExpectQuery("FROM users WHERE user_id").WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "name"}).AddRow(9, "Olive Owner"))
	mock.ExpectExec("INSERT INTO incoming_requests").
		WithArgs(int64(3), "Rita Requester", int64(5), "Fix the fence", int64(9), "Olive Owner", "happy to help", models.RequestPending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(11, 1))

	request, err := rs.CreateRequest(context.Background(), CreateRequestBody{
		RequesterID:   3,
		RequesterName: "Rita Requester",
		TaskID:        5,
		TaskOwnerID:   9,
		Message:       "happy to help",
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if request.ID != 11 || request.Status != models.RequestPending {
		t.Fatalf("unexpected request: %+v", request)
	}
	if request.TaskTitle != "Fix the fence" || request.TaskOwnerID != 9 {
		t.Fatalf("snapshots not taken: %+v", request)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateRequestFallsBackToNameLookup(t *testing.T) {
	rs, mock := newTestService(t)

	mock.ExpectQuery("SELECT id, posted_by_name, title FROM tasks").WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "posted_by_name", "title"}).AddRow(5, "Olive Owner", "Fix the fence"))
	mock.ExpectQuery("FROM users WHERE name").WithArgs("Olive Owner").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "name"}).AddRow(9, "Olive Owner"))
	mock.ExpectExec("INSERT INTO incoming_requests").
		WillReturnResult(sqlmock.NewResult(12, 1))

	request, err := rs.CreateRequest(context.Background(), CreateRequestBody{
		RequesterID:   3,
		RequesterName: "Rita Requester",
		TaskID:        5,
		Message:       "happy to help",
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if request.TaskOwnerID != 9 {
		t.Fatalf("owner not resolved by name: %+v", request)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateRequestTaskNotFound(t *testing.T) {
	rs, mock := newTestService(t)

	mock.ExpectQuery("SELECT id, posted_by_name, title FROM tasks").WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	_, err := rs.CreateRequest(context.Background(), CreateRequestBody{RequesterID: 3, TaskID: 404})
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateRequestValidation(t *testing.T) {
	rs, _ := newTestService(t)

	_, err := rs.CreateRequest(context.Background(), CreateRequestBody{TaskID: 5})
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAcceptCreatesNotificationAndAssignment(t *testing.T) {
	rs, mock := newTestService(t)

	pending := models.HelpRequest{
		ID: 11, RequesterID: 3, RequesterName: "Rita Requester",
		TaskID: 5, TaskTitle: "Fix the fence", TaskOwnerID: 9, TaskOwnerName: "Olive Owner",
		Status: models.RequestPending, CreatedAt: 1700000000,
	}
	mock.ExpectQuery("FROM incoming_requests WHERE id").WithArgs(int64(11)).
		WillReturnRows(requestRow(pending))
	mock.ExpectExec("UPDATE incoming_requests SET status").
		WithArgs(models.RequestAccepted, int64(11), models.RequestPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(int64(3), models.NotificationRequestAccepted, "Your request for task 'Fix the fence' was accepted! Click to view.", int64(11), int64(5), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectQuery("SELECT description FROM tasks").WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"description"}).AddRow("the fence fell over"))
	mock.ExpectExec("INSERT INTO my_tasks").
		WithArgs(int64(3), int64(5), "Fix the fence", "the fence fell over", models.MyTaskAssigned, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(31, 1))

	request, notification, err := rs.Accept(context.Background(), 11)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if request.Status != models.RequestAccepted {
		t.Fatalf("unexpected status: %s", request.Status)
	}
	if notification.Type != models.NotificationRequestAccepted || notification.UserID != 3 {
		t.Fatalf("unexpected notification: %+v", notification)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAcceptAlreadyDecidedIsInvalidTransition(t *testing.T) {
	rs, mock := newTestService(t)

	decided := models.HelpRequest{ID: 11, RequesterID: 3, TaskID: 5, TaskTitle: "Fix the fence", TaskOwnerID: 9, Status: models.RequestAccepted}
	mock.ExpectQuery("FROM incoming_requests WHERE id").WithArgs(int64(11)).
		WillReturnRows(requestRow(decided))
	// The compare-and-set finds no pending row to move.
	mock.ExpectExec("UPDATE incoming_requests SET status").
		WithArgs(models.RequestAccepted, int64(11), models.RequestPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, _, err := rs.Accept(context.Background(), 11)
	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAcceptMissingRequest(t *testing.T) {
	rs, mock := newTestService(t)

	mock.ExpectQuery("FROM incoming_requests WHERE id").WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	_, _, err := rs.Accept(context.Background(), 404)
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeclineCreatesNoAssignment(t *testing.T) {
	rs, mock := newTestService(t)

	pending := models.HelpRequest{ID: 11, RequesterID: 3, TaskID: 5, TaskTitle: "Fix the fence", TaskOwnerID: 9, Status: models.RequestPending}
	mock.ExpectQuery("FROM incoming_requests WHERE id").WithArgs(int64(11)).
		WillReturnRows(requestRow(pending))
	mock.ExpectExec("UPDATE incoming_requests SET status").
		WithArgs(models.RequestRejected, int64(11), models.RequestPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(int64(3), models.NotificationRequestDeclined, "Your request for task 'Fix the fence' was declined. Click to view.", int64(11), int64(5), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(22, 1))

	request, notification, err := rs.Decline(context.Background(), 11)
	if err != nil {
		t.Fatalf("Decline: %v", err)
	}
	if request.Status != models.RequestRejected {
		t.Fatalf("unexpected status: %s", request.Status)
	}
	if notification.Type != models.NotificationRequestDeclined {
		t.Fatalf("unexpected notification: %+v", notification)
	}
	// No my_tasks insert was expected; any would fail the mock.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMarkSeenIsSetUnion(t *testing.T) {
	rs, mock := newTestService(t)

	// First call inserts both; the repeat plus one new id re-runs the same
	// INSERT IGNORE statements, so the second round has no duplicate effect.
	for _, requestID := range []int64{1, 2, 1, 2, 3} {
		mock.ExpectExec("INSERT IGNORE INTO request_seen").
			WithArgs(requestID, int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	if err := rs.MarkSeen(context.Background(), 42, []int64{1, 2}); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	if err := rs.MarkSeen(context.Background(), 42, []int64{1, 2, 3}); err != nil {
		t.Fatalf("MarkSeen repeat: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMarkSeenValidation(t *testing.T) {
	rs, _ := newTestService(t)

	if err := rs.MarkSeen(context.Background(), 0, []int64{1}); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected ErrValidation for missing user, got %v", err)
	}
	if err := rs.MarkSeen(context.Background(), 42, nil); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected ErrValidation for missing ids, got %v", err)
	}
}

func TestReceivedPendingOverlaysLiveFields(t *testing.T) {
	rs, mock := newTestService(t)

	rows := sqlmock.NewRows([]string{
		"id", "requester_id", "requester_name", "task_id", "task_title", "task_owner_id", "task_owner_name",
		"message", "status", "created_at",
		"live_name", "email", "image", "live_title", "description", "location", "category", "image_url",
	}).AddRow(
		11, 3, "Old Name", 5, "Old Title", 9, "Olive Owner",
		"happy to help", models.RequestPending, 1700000000,
		"Rita Renamed", "rita@example.com", "", "Fix the fence", "", "Berlin", "garden", "",
	)
	mock.ExpectQuery("FROM incoming_requests r").WithArgs(int64(9), models.RequestPending).WillReturnRows(rows)
	mock.ExpectQuery("SELECT user_id FROM request_seen").WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(9))

	requests, err := rs.ReceivedPending(context.Background(), 9)
	if err != nil {
		t.Fatalf("ReceivedPending: %v", err)
	}
	if len(requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(requests))
	}
	got := requests[0]
	if got.RequesterName != "Rita Renamed" || got.TaskTitle != "Fix the fence" {
		t.Fatalf("live overlay not applied: %+v", got)
	}
	if !got.SeenByUser(9) || got.SeenByUser(3) {
		t.Fatalf("unexpected seen set: %v", got.SeenBy)
	}
}

func TestEmitNotificationToRequesterReachesInbox(t *testing.T) {
	rs, _ := newTestService(t)

	client := &models.Client{Send: make(chan []byte, 8)}
	rs.Hub.Join(client, models.UserChannel(3))

	notification := models.Notification{ID: 21, UserID: 3, Type: models.NotificationRequestAccepted}
	rs.EmitNotificationToRequester(3, notification)

	select {
	case data := <-client.Send:
		var e struct {
			Event   string              `json:"event"`
			Payload models.Notification `json:"payload"`
		}
		if err := json.Unmarshal(data, &e); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if e.Event != models.EventNotificationUpdate || e.Payload.ID != 21 {
			t.Fatalf("unexpected event: %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a notification event")
	}
}

func TestEmitRequestsToOwnerSendsSnapshot(t *testing.T) {
	rs, mock := newTestService(t)

	client := &models.Client{Send: make(chan []byte, 8)}
	rs.Hub.Join(client, models.UserChannel(9))

	rows := sqlmock.NewRows([]string{
		"id", "requester_id", "requester_name", "task_id", "task_title", "task_owner_id", "task_owner_name",
		"message", "status", "created_at",
		"live_name", "email", "image", "live_title", "description", "location", "category", "image_url",
	}).AddRow(
		11, 3, "Rita Requester", 5, "Fix the fence", 9, "Olive Owner",
		"", models.RequestPending, 1700000000,
		"", "", "", "", "", "", "", "",
	)
	mock.ExpectQuery("FROM incoming_requests r").WithArgs(int64(9), models.RequestPending).WillReturnRows(rows)
	mock.ExpectQuery("SELECT user_id FROM request_seen").WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	rs.EmitRequestsToOwner(9)

	select {
	case data := <-client.Send:
		var e struct {
			Event   string               `json:"event"`
			Payload models.InboxSnapshot `json:"payload"`
		}
		if err := json.Unmarshal(data, &e); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if e.Event != models.EventRequestsUpdate {
			t.Fatalf("unexpected event name: %s", e.Event)
		}
		if e.Payload.OwnerID != 9 || len(e.Payload.Requests) != 1 || e.Payload.Requests[0].Status != models.RequestPending {
			t.Fatalf("unexpected snapshot: %+v", e.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("expected an inbox snapshot event")
	}
}

func TestMarkNotificationReadIsIdempotent(t *testing.T) {
	rs, mock := newTestService(t)

	mock.ExpectExec("UPDATE notifications SET is_read").WithArgs(int64(21)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE notifications SET is_read").WithArgs(int64(21)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := rs.MarkNotificationRead(context.Background(), 21); err != nil {
		t.Fatalf("MarkNotificationRead: %v", err)
	}
	if err := rs.MarkNotificationRead(context.Background(), 21); err != nil {
		t.Fatalf("MarkNotificationRead repeat: %v", err)
	}
}
