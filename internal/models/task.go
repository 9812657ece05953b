package models

import (
	"net/url"
	"strconv"
	"time"

	"github.com/Marga-Ghale/ora-scrum-client/internal/types"
)

// ============================================
// TASK
// ============================================

type Task struct {
	ID             string     `json:"id"`
	ProjectID      string     `json:"projectId"`
	SprintID       *string    `json:"sprintId,omitempty"`
	ParentTaskID   *string    `json:"parentTaskId,omitempty"`
	Title          string     `json:"title"`
	Description    *string    `json:"description,omitempty"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	Type           string     `json:"type,omitempty"`
	AssigneeIDs    []string   `json:"assigneeIds"`
	WatcherIDs     []string   `json:"watcherIds"`
	LabelIDs       []string   `json:"labelIds"`
	EstimatedHours *float64   `json:"estimatedHours,omitempty"`
	StoryPoints    *int       `json:"storyPoints,omitempty"`
	StartDate      *time.Time `json:"startDate,omitempty"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	Blocked        bool       `json:"blocked"`
	Position       int        `json:"position"`
	CreatedBy      *string    `json:"createdBy,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Statuses, priorities and types arrive upper-cased from some endpoints.
func (t *Task) UnmarshalJSON(data []byte) error {
	type alias Task
	var a alias
	if err := decodeTolerant(data, &a); err != nil {
		return err
	}
	a.Status = types.Normalize(a.Status)
	a.Priority = types.Normalize(a.Priority)
	a.Type = types.Normalize(a.Type)
	*t = Task(a)
	return nil
}

// InBacklog reports whether the task is not planned into any sprint.
func (t Task) InBacklog() bool {
	return t.SprintID == nil || *t.SprintID == ""
}

type CreateTaskRequest struct {
	Title        string     `json:"title"`
	Description  *string    `json:"description,omitempty"`
	Status       string     `json:"status,omitempty"`
	Priority     string     `json:"priority,omitempty"`
	Type         string     `json:"type,omitempty"`
	SprintID     *string    `json:"sprintId,omitempty"`
	ParentTaskID *string    `json:"parentTaskId,omitempty"`
	AssigneeIDs  []string   `json:"assigneeIds,omitempty"`
	LabelIDs     []string   `json:"labelIds,omitempty"`
	StoryPoints  *int       `json:"storyPoints,omitempty"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
}

type UpdateTaskRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Status      *string    `json:"status,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	Type        *string    `json:"type,omitempty"`
	SprintID    *string    `json:"sprintId,omitempty"`
	AssigneeIDs []string   `json:"assigneeIds,omitempty"`
	LabelIDs    []string   `json:"labelIds,omitempty"`
	StoryPoints *int       `json:"storyPoints,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Position    *int       `json:"position,omitempty"`
}

type UpdateTaskStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// BulkTaskUpdate is one entry of a bulk update.
type BulkTaskUpdate struct {
	ID       string  `json:"id"`
	Status   *string `json:"status,omitempty"`
	Position *int    `json:"position,omitempty"`
	SprintID *string `json:"sprintId,omitempty"`
}

// TaskFilters narrows a project task list. Zero values are omitted.
type TaskFilters struct {
	Status     string
	Priority   string
	Type       string
	AssigneeID string
	LabelID    string
	SprintID   string
	Search     string
	Offset     int
	Limit      int
}

// Values renders the filters as query parameters.
func (f TaskFilters) Values() url.Values {
	v := url.Values{}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set("status", f.Status)
	set("priority", f.Priority)
	set("type", f.Type)
	set("assigneeId", f.AssigneeID)
	set("labelId", f.LabelID)
	set("sprintId", f.SprintID)
	set("search", f.Search)
	if f.Offset > 0 {
		v.Set("offset", strconv.Itoa(f.Offset))
	}
	if f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	return v
}

// Key is a canonical encoding suitable as a cache key segment.
func (f TaskFilters) Key() string {
	return f.Values().Encode()
}

// ============================================
// COMMENT
// ============================================

type Comment struct {
	ID              string    `json:"id"`
	TaskID          string    `json:"taskId"`
	UserID          string    `json:"userId"`
	ParentCommentID *string   `json:"parentCommentId,omitempty"`
	Content         string    `json:"content"`
	MentionedUsers  []string  `json:"mentionedUsers"`
	User            *User     `json:"user,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type CreateCommentRequest struct {
	Content        string   `json:"content"`
	MentionedUsers []string `json:"mentionedUsers,omitempty"`
}

type UpdateCommentRequest struct {
	Content string `json:"content"`
}

// ============================================
// LABEL
// ============================================

type Label struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreateLabelRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type UpdateLabelRequest struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}
