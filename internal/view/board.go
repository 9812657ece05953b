package view

import (
	"sort"
	"strings"

	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
	"github.com/Marga-Ghale/ora-scrum-client/internal/types"
)

// Column is one status lane of a board.
type Column struct {
	Status string        `json:"status"`
	Name   string        `json:"name"`
	Tasks  []models.Task `json:"tasks"`
}

// BoardStatuses are the lanes shown by default; cancelled tasks are hidden.
var BoardStatuses = []string{
	types.StatusBacklog, types.StatusTodo, types.StatusInProgress,
	types.StatusInReview, types.StatusDone,
}

var statusNames = map[string]string{
	types.StatusBacklog:    "Backlog",
	types.StatusTodo:       "To Do",
	types.StatusInProgress: "In Progress",
	types.StatusInReview:   "In Review",
	types.StatusDone:       "Done",
	types.StatusCancelled:  "Cancelled",
}

// StatusName is the column title for status.
func StatusName(status string) string {
	if name, ok := statusNames[status]; ok {
		return name
	}
	return status
}

// BoardFilter narrows the tasks shown. Empty fields match everything.
type BoardFilter struct {
	Search     string
	Assignees  []string
	Priorities []string
	Types      []string
	Labels     []string
}

func (f BoardFilter) match(t models.Task) bool {
	if f.Search != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(f.Search)) {
		return false
	}
	if len(f.Assignees) > 0 && !overlaps(t.AssigneeIDs, f.Assignees) {
		return false
	}
	if len(f.Priorities) > 0 && !contains(f.Priorities, t.Priority) {
		return false
	}
	if len(f.Types) > 0 && !contains(f.Types, t.Type) {
		return false
	}
	if len(f.Labels) > 0 && !overlaps(t.LabelIDs, f.Labels) {
		return false
	}
	return true
}

// Board lays tasks out in status columns, each ordered by position. With no
// statuses given the default lanes are used.
func Board(tasks []models.Task, f BoardFilter, statuses ...string) []Column {
	if len(statuses) == 0 {
		statuses = BoardStatuses
	}
	cols := make([]Column, len(statuses))
	index := make(map[string]int, len(statuses))
	for i, s := range statuses {
		cols[i] = Column{Status: s, Name: StatusName(s), Tasks: []models.Task{}}
		index[s] = i
	}
	for _, t := range tasks {
		i, ok := index[t.Status]
		if !ok || !f.match(t) {
			continue
		}
		cols[i].Tasks = append(cols[i].Tasks, t)
	}
	for i := range cols {
		sort.SliceStable(cols[i].Tasks, func(a, b int) bool {
			return cols[i].Tasks[a].Position < cols[i].Tasks[b].Position
		})
	}
	return cols
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func overlaps(a, b []string) bool {
	for _, v := range a {
		if contains(b, v) {
			return true
		}
	}
	return false
}
