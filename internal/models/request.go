package models

// Help request statuses. A request is terminal once it leaves pending;
// only the seen-set may still grow after that.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestRejected = "rejected"
)

// HelpRequest is a requester's offer to help with a task, awaiting the task
// owner's decision. RequesterName, TaskTitle and TaskOwnerName are snapshots
// taken at creation time and are never resynced with later edits to the
// source user/task rows.
type HelpRequest struct {
	ID            int64   `json:"id"`
	RequesterID   int64   `json:"requester_id"`
	RequesterName string  `json:"requester_name"`
	TaskID        int64   `json:"task_id"`
	TaskTitle     string  `json:"task_title"`
	TaskOwnerID   int64   `json:"task_owner_id"`
	TaskOwnerName string  `json:"task_owner_name"`
	Message       string  `json:"message"`
	Status        string  `json:"status"`
	SeenBy        []int64 `json:"seen_by"`
	CreatedAt     int64   `json:"created_at"`

	// Live overlays for the owner inbox, filled from the current task and
	// requester rows when they still exist.
	RequesterEmail  string `json:"requester_email,omitempty"`
	RequesterImage  string `json:"requester_image,omitempty"`
	TaskDescription string `json:"task_description,omitempty"`
	TaskLocation    string `json:"task_location,omitempty"`
	TaskCategory    string `json:"task_category,omitempty"`
	TaskImage       string `json:"task_image,omitempty"`
}

// SeenByUser reports whether userID is already in the request's seen-set.
func (r *HelpRequest) SeenByUser(userID int64) bool {
	for _, id := range r.SeenBy {
		if id == userID {
			return true
		}
	}
	return false
}

// UnseenCount returns how many of the given requests the user has not yet
// acknowledged. The badge count in the owner inbox is derived from this.
func UnseenCount(userID int64, requests []HelpRequest) int {
	count := 0
	for i := range requests {
		if !requests[i].SeenByUser(userID) {
			count++
		}
	}
	return count
}
