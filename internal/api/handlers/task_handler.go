package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
	"github.com/Marga-Ghale/ora-scrum-client/internal/view"
)

// ============================================
// Task Handler
// ============================================

type TaskHandler struct{ base }

// BoardResponse is a project board: one column per status.
type BoardResponse struct {
	ProjectID string        `json:"projectId"`
	SprintID  string        `json:"sprintId,omitempty"`
	Columns   []view.Column `json:"columns"`
	Total     int           `json:"total"`
}

// Board lists the project's tasks in status columns. ?sprintId narrows to
// one sprint; search, assignee, priority, type and label filter locally.
func (h *TaskHandler) Board(c *gin.Context) {
	projectID := c.Param("id")
	sprintID := c.Query("sprintId")

	res, err := h.q.Tasks.List(c.Request.Context(), projectID, models.TaskFilters{SprintID: sprintID})
	if !render(c, h.q, res, err) {
		return
	}

	filter := view.BoardFilter{
		Search:     c.Query("search"),
		Assignees:  splitList(c.Query("assignee")),
		Priorities: splitList(c.Query("priority")),
		Types:      splitList(c.Query("type")),
		Labels:     splitList(c.Query("label")),
	}
	columns := view.Board(res.Data, filter, splitList(c.Query("statuses"))...)

	total := 0
	for _, col := range columns {
		total += len(col.Tasks)
	}
	c.JSON(http.StatusOK, BoardResponse{ProjectID: projectID, SprintID: sprintID, Columns: columns, Total: total})
}

func (h *TaskHandler) Get(c *gin.Context) {
	res, err := h.q.Tasks.Get(c.Request.Context(), c.Param("id"))
	respond(c, h.q, res, err)
}

func (h *TaskHandler) Mine(c *gin.Context) {
	res, err := h.q.Tasks.Mine(c.Request.Context())
	respond(c, h.q, res, err)
}

// UpdateStatus moves a task to another column.
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	var req models.UpdateTaskStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.q.Tasks.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
