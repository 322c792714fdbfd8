package models

// Admin action types recorded in the audit log.
const (
	ActionBlockUser             = "block_user"
	ActionUnblockUser           = "unblock_user"
	ActionDeleteUser            = "delete_user"
	ActionDeleteTask            = "delete_task"
	ActionDeleteRequest         = "delete_request"
	ActionDeleteIncomingRequest = "delete_incoming_request"
	ActionResolveDispute        = "resolve_dispute"
)

// AdminAction is an append-only audit record of a privileged mutation.
// Rows are never updated or deleted.
type AdminAction struct {
	ID         int64  `json:"id"`
	AdminID    int64  `json:"admin_id"`
	ActionType string `json:"action_type"`
	TargetID   int64  `json:"target_id"`
	TargetType string `json:"target_type"`
	Notes      string `json:"notes"`
	CreatedAt  int64  `json:"created_at"`
}

// AnalyticsSnapshot is the aggregate counter broadcast pushed to admins after
// every privileged mutation.
type AnalyticsSnapshot struct {
	UserCount int64 `json:"userCount"`
	TaskCount int64 `json:"taskCount"`
}
