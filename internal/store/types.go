package store

// Status is the lifecycle state of a task. Only the values below are
// accepted; anything else is rejected before a mutation is applied.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// ValidStatus reports whether s is one of the recognized task statuses.
func ValidStatus(s string) bool {
	switch Status(s) {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Task is a single user-owned task. Dates are calendar dates in ISO form
// (YYYY-MM-DD). UserID is set at creation and never changes.
type Task struct {
	TaskID      string `json:"task_id"`
	UserID      string `json:"user_id"`
	Name        string `json:"task_name"`
	Description string `json:"task_description"`
	Status      Status `json:"task_status"`
	Date        string `json:"date,omitempty"`
}

// User is an account with an embedded ordered task list. Profile fields
// are opaque to the core; provisioning happens elsewhere.
type User struct {
	UserID string `json:"user_id"`
	Name   string `json:"user_name,omitempty"`
	Email  string `json:"user_email,omitempty"`
	Phone  string `json:"user_phone,omitempty"`
	Tasks  []Task `json:"tasks"`
}

// TaskUpdate carries a partial update. Nil fields are left untouched.
type TaskUpdate struct {
	Name        *string
	Description *string
	Status      *string
	Date        *string
}
