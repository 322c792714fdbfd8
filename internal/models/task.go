package models

// Task is the read model of a posted task. Task CRUD lives outside this
// core; the lifecycle engine only reads it to resolve ownership and copy
// snapshot fields at request-creation time.
type Task struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"user_id"`
	PostedByName string `json:"posted_by_name"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	Location     string `json:"location"`
	ImageURL     string `json:"image_url"`
	StartTime    int64  `json:"start_time"`
	EndTime      int64  `json:"end_time"`
	CreatedAt    int64  `json:"created_at"`

	// Owner overlay for the admin table view.
	OwnerName  string `json:"owner_name,omitempty"`
	OwnerEmail string `json:"owner_email,omitempty"`
}
