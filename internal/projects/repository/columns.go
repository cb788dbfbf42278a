package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/projectdash/dashboard-backend/internal/projects/domain"
)

type scanner interface {
	Scan(dest ...any) error
}

// projectColumns lists the selected project columns. user_id is only
// referenced when the schema has it.
func projectColumns(alias string, ownerColumn bool) string {
	cols := []string{"id", "name", "description", "status", "priority", "deadline", "estimated_hours", "created_at", "updated_at"}
	if ownerColumn {
		cols = append(cols, "user_id")
	}
	return prefixed(alias, cols)
}

func taskColumns(alias string) string {
	return prefixed(alias, []string{
		"id", "project_id", "title", "description", "status", "priority", "assignee",
		"deadline", "estimated_hours", "time_spent", "created_at", "updated_at",
	})
}

func prefixed(alias string, cols []string) string {
	if alias == "" {
		return strings.Join(cols, ", ")
	}
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return strings.Join(out, ", ")
}

func placeholders(from, n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(ph, ", ")
}

func scanProject(row scanner, ownerColumn bool) (domain.Project, error) {
	var p domain.Project
	var description, owner sql.NullString
	var deadline sql.NullTime
	var status, priority string

	dest := []any{&p.ID, &p.Name, &description, &status, &priority, &deadline, &p.EstimatedHours, &p.CreatedAt, &p.UpdatedAt}
	if ownerColumn {
		dest = append(dest, &owner)
	}
	if err := row.Scan(dest...); err != nil {
		return p, err
	}

	p.Status = domain.Status(status)
	p.Priority = domain.Priority(priority)
	if description.Valid {
		p.Description = &description.String
	}
	if deadline.Valid {
		t := deadline.Time.UTC()
		p.Deadline = &t
	}
	if owner.Valid {
		p.OwnerID = &owner.String
	}
	p.Tasks = []domain.Task{}
	return p, nil
}

func scanTask(row scanner) (domain.Task, error) {
	var t domain.Task
	var description sql.NullString
	var deadline sql.NullTime
	var status, priority string

	if err := row.Scan(
		&t.ID, &t.ProjectID, &t.Title, &description, &status, &priority, &t.Assignee,
		&deadline, &t.EstimatedHours, &t.TimeSpent, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return t, err
	}

	t.Status = domain.TaskStatus(status)
	t.Priority = domain.Priority(priority)
	if description.Valid {
		t.Description = &description.String
	}
	if deadline.Valid {
		d := deadline.Time.UTC()
		t.Deadline = &d
	}
	return t, nil
}

func enumArg[T ~string](v *T) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
