package domain

import "time"

// Project is a tracked piece of work. OwnerID is only populated once the
// schema carries an owner column.
type Project struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    *string    `json:"description"`
	Status         Status     `json:"status"`
	Priority       Priority   `json:"priority"`
	Deadline       *time.Time `json:"deadline"`
	EstimatedHours float64    `json:"estimated_hours"`
	OwnerID        *string    `json:"user_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Tasks          []Task     `json:"tasks"`
}

// Task belongs to exactly one project.
type Task struct {
	ID             string     `json:"id"`
	ProjectID      string     `json:"project_id"`
	Title          string     `json:"title"`
	Description    *string    `json:"description"`
	Status         TaskStatus `json:"status"`
	Priority       Priority   `json:"priority"`
	Assignee       string     `json:"assignee"`
	Deadline       *time.Time `json:"deadline"`
	EstimatedHours float64    `json:"estimated_hours"`
	TimeSpent      float64    `json:"time_spent"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Scope restricts a store call to a principal's rows.
type Scope struct {
	// OwnerColumn reports whether projects carry an owner reference.
	OwnerColumn bool
	// OwnerID limits rows to this owner. Empty means unrestricted.
	OwnerID string
}

// Filtered reports whether rows must be matched against OwnerID.
func (s Scope) Filtered() bool {
	return s.OwnerColumn && s.OwnerID != ""
}

// ProjectDeletion summarises a committed cascading project delete.
type ProjectDeletion struct {
	ProjectID    string
	TasksDeleted int64
}
