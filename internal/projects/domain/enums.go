package domain

import (
	"strings"

	"github.com/projectdash/dashboard-backend/internal/apperr"
)

type Status string

const (
	StatusActive     Status = "active"
	StatusCompleted  Status = "completed"
	StatusSuspended  Status = "suspended"
	StatusTerminated Status = "terminated"
)

var projectStatuses = []Status{StatusActive, StatusCompleted, StatusSuspended, StatusTerminated}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskReview     TaskStatus = "review"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)

var taskStatuses = []TaskStatus{TaskTodo, TaskInProgress, TaskReview, TaskCompleted, TaskCancelled}

func ParseStatus(s string) (Status, error) {
	return parseEnum("status", s, projectStatuses)
}

func ParsePriority(s string) (Priority, error) {
	return parseEnum("priority", s, priorities)
}

func ParseTaskStatus(s string) (TaskStatus, error) {
	return parseEnum("status", s, taskStatuses)
}

func parseEnum[T ~string](field, raw string, allowed []T) (T, error) {
	v := T(strings.ToLower(strings.TrimSpace(raw)))
	for _, a := range allowed {
		if v == a {
			return v, nil
		}
	}
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}
	return "", apperr.Validation("invalid %s %q: must be one of %s", field, raw, strings.Join(names, ", "))
}
