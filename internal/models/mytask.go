package models

// Assignment statuses, in order. The assignee advances strictly forward one
// step at a time; the engine rejects skips and regressions.
const (
	MyTaskAssigned   = "assigned"
	MyTaskInProgress = "inProgress"
	MyTaskDone       = "done"
)

// MyTask is the work item created for a requester once their help request is
// accepted. Title and description are copied from the source task.
type MyTask struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	TaskID      int64  `json:"task_id"`
	TaskTitle   string `json:"task_title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	AssignedAt  int64  `json:"assigned_at"`
}

// NextMyTaskStatus returns the only status that may follow current, or ""
// when current is terminal or unknown.
func NextMyTaskStatus(current string) string {
	switch current {
	case MyTaskAssigned:
		return MyTaskInProgress
	case MyTaskInProgress:
		return MyTaskDone
	}
	return ""
}
