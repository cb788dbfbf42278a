package domain

import (
	"strings"
	"time"

	"github.com/projectdash/dashboard-backend/internal/apperr"
)

// ProjectFields is the loosely typed request shape. Empty strings mean
// "not provided" except for name, which must not be blank when sent. An
// explicit null clears description or deadline.
type ProjectFields struct {
	Name           *string `json:"name"`
	Description    Text    `json:"description"`
	Status         *string `json:"status"`
	Priority       *string `json:"priority"`
	Deadline       Text    `json:"deadline"`
	EstimatedHours Number  `json:"estimated_hours"`
}

// ProjectPatch holds validated changes; nil fields keep their stored value.
type ProjectPatch struct {
	Name             *string
	Description      *string
	ClearDescription bool
	Status           *Status
	Priority         *Priority
	Deadline         *time.Time
	ClearDeadline    bool
	EstimatedHours   *float64
}

// ProjectInput is a validated new project with defaults applied.
type ProjectInput struct {
	Name           string
	Description    *string
	Status         Status
	Priority       Priority
	Deadline       *time.Time
	EstimatedHours float64
}

func (f ProjectFields) Patch() (ProjectPatch, error) {
	var p ProjectPatch
	var err error

	if p.Name, err = required("name", f.Name); err != nil {
		return p, err
	}
	p.Description, p.ClearDescription = optionalText(f.Description)
	if s, ok := provided(f.Status); ok {
		st, err := ParseStatus(s)
		if err != nil {
			return p, err
		}
		p.Status = &st
	}
	if s, ok := provided(f.Priority); ok {
		pr, err := ParsePriority(s)
		if err != nil {
			return p, err
		}
		p.Priority = &pr
	}
	if p.Deadline, p.ClearDeadline, err = parseDeadline(f.Deadline); err != nil {
		return p, err
	}
	if p.EstimatedHours, err = nonNegative("estimated_hours", f.EstimatedHours); err != nil {
		return p, err
	}
	return p, nil
}

func (f ProjectFields) Input() (ProjectInput, error) {
	p, err := f.Patch()
	if err != nil {
		return ProjectInput{}, err
	}
	if p.Name == nil {
		return ProjectInput{}, apperr.Validation("name is required")
	}

	in := ProjectInput{
		Name:        *p.Name,
		Description: p.Description,
		Status:      StatusActive,
		Priority:    PriorityMedium,
		Deadline:    p.Deadline,
	}
	if p.Status != nil {
		in.Status = *p.Status
	}
	if p.Priority != nil {
		in.Priority = *p.Priority
	}
	if p.EstimatedHours != nil {
		in.EstimatedHours = *p.EstimatedHours
	}
	return in, nil
}

// Apply returns the project with the patch merged over it.
func (p Project) Apply(patch ProjectPatch) Project {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = patch.Description
	}
	if patch.ClearDescription {
		p.Description = nil
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.Priority != nil {
		p.Priority = *patch.Priority
	}
	if patch.Deadline != nil {
		p.Deadline = patch.Deadline
	}
	if patch.ClearDeadline {
		p.Deadline = nil
	}
	if patch.EstimatedHours != nil {
		p.EstimatedHours = *patch.EstimatedHours
	}
	return p
}

// TaskFields accepts the parent project under either projectId or project_id.
type TaskFields struct {
	ProjectID      *string `json:"project_id"`
	ProjectIDAlt   *string `json:"projectId"`
	Title          *string `json:"title"`
	Description    Text    `json:"description"`
	Status         *string `json:"status"`
	Priority       *string `json:"priority"`
	Assignee       *string `json:"assignee"`
	Deadline       Text    `json:"deadline"`
	EstimatedHours Number  `json:"estimated_hours"`
	TimeSpent      Number  `json:"time_spent"`
}

type TaskPatch struct {
	Title            *string
	Description      *string
	ClearDescription bool
	Status           *TaskStatus
	Priority         *Priority
	Assignee         *string
	Deadline         *time.Time
	ClearDeadline    bool
	EstimatedHours   *float64
	TimeSpent        *float64
}

type TaskInput struct {
	ProjectID      string
	Title          string
	Description    *string
	Status         TaskStatus
	Priority       Priority
	Assignee       string
	Deadline       *time.Time
	EstimatedHours float64
	TimeSpent      float64
}

func (f TaskFields) Patch() (TaskPatch, error) {
	var p TaskPatch
	var err error

	if p.Title, err = required("title", f.Title); err != nil {
		return p, err
	}
	p.Description, p.ClearDescription = optionalText(f.Description)
	if s, ok := provided(f.Status); ok {
		st, err := ParseTaskStatus(s)
		if err != nil {
			return p, err
		}
		p.Status = &st
	}
	if s, ok := provided(f.Priority); ok {
		pr, err := ParsePriority(s)
		if err != nil {
			return p, err
		}
		p.Priority = &pr
	}
	if f.Assignee != nil {
		a := strings.TrimSpace(*f.Assignee)
		p.Assignee = &a
	}
	if p.Deadline, p.ClearDeadline, err = parseDeadline(f.Deadline); err != nil {
		return p, err
	}
	if p.EstimatedHours, err = nonNegative("estimated_hours", f.EstimatedHours); err != nil {
		return p, err
	}
	if p.TimeSpent, err = nonNegative("time_spent", f.TimeSpent); err != nil {
		return p, err
	}
	return p, nil
}

func (f TaskFields) Input() (TaskInput, error) {
	projectID, ok := provided(f.ProjectID)
	if !ok {
		projectID, ok = provided(f.ProjectIDAlt)
	}
	if !ok {
		return TaskInput{}, apperr.Validation("projectId is required")
	}

	p, err := f.Patch()
	if err != nil {
		return TaskInput{}, err
	}
	if p.Title == nil {
		return TaskInput{}, apperr.Validation("title is required")
	}

	in := TaskInput{
		ProjectID:   projectID,
		Title:       *p.Title,
		Description: p.Description,
		Status:      TaskTodo,
		Priority:    PriorityMedium,
		Deadline:    p.Deadline,
	}
	if p.Status != nil {
		in.Status = *p.Status
	}
	if p.Priority != nil {
		in.Priority = *p.Priority
	}
	if p.Assignee != nil {
		in.Assignee = *p.Assignee
	}
	if p.EstimatedHours != nil {
		in.EstimatedHours = *p.EstimatedHours
	}
	if p.TimeSpent != nil {
		in.TimeSpent = *p.TimeSpent
	}
	return in, nil
}

// Apply returns the task with the patch merged over it.
func (t Task) Apply(patch TaskPatch) Task {
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = patch.Description
	}
	if patch.ClearDescription {
		t.Description = nil
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.Assignee != nil {
		t.Assignee = *patch.Assignee
	}
	if patch.Deadline != nil {
		t.Deadline = patch.Deadline
	}
	if patch.ClearDeadline {
		t.Deadline = nil
	}
	if patch.EstimatedHours != nil {
		t.EstimatedHours = *patch.EstimatedHours
	}
	if patch.TimeSpent != nil {
		t.TimeSpent = *patch.TimeSpent
	}
	return t
}

func provided(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	v := strings.TrimSpace(*s)
	return v, v != ""
}

// required rejects a field that was sent blank; an absent field is nil.
func required(field string, s *string) (*string, error) {
	if s == nil {
		return nil, nil
	}
	v, ok := provided(s)
	if !ok {
		return nil, apperr.Validation("%s must not be empty", field)
	}
	return &v, nil
}

// optionalText keeps a sent string (trimmed, possibly empty) and reports an
// explicit null as a clear.
func optionalText(t Text) (*string, bool) {
	if !t.Set {
		return nil, false
	}
	if t.Null {
		return nil, true
	}
	v := strings.TrimSpace(t.Value)
	return &v, false
}

const dateOnly = "2006-01-02"

// parseDeadline treats "" as not provided and null as a clear.
func parseDeadline(t Text) (*time.Time, bool, error) {
	if t.Set && t.Null {
		return nil, true, nil
	}
	raw, ok := t.provided()
	if !ok {
		return nil, false, nil
	}
	for _, layout := range []string{time.RFC3339, dateOnly} {
		if d, err := time.Parse(layout, raw); err == nil {
			d = d.UTC()
			return &d, false, nil
		}
	}
	return nil, false, apperr.Validation("invalid deadline %q: use YYYY-MM-DD or RFC3339", raw)
}

func nonNegative(field string, n Number) (*float64, error) {
	if n.Value == nil {
		return nil, nil
	}
	if *n.Value < 0 {
		return nil, apperr.Validation("%s must not be negative", field)
	}
	v := *n.Value
	return &v, nil
}
