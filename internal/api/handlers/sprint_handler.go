package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type SprintHandler struct{ base }

func (h *SprintHandler) List(c *gin.Context) {
	res, err := h.q.Sprints.List(c.Request.Context(), c.Param("id"))
	respond(c, h.q, res, err)
}

// Active answers 404 when the project has no active sprint.
func (h *SprintHandler) Active(c *gin.Context) {
	res, err := h.q.Sprints.Active(c.Request.Context(), c.Param("id"))
	if !render(c, h.q, res, err) {
		return
	}
	if res.Data == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active sprint"})
		return
	}
	c.JSON(http.StatusOK, res.Data)
}

func (h *SprintHandler) Start(c *gin.Context) {
	sprint, err := h.q.Sprints.Start(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sprint)
}

// Complete ends a sprint. ?moveIncomplete is backlog (default), next_sprint
// or a sprint id.
func (h *SprintHandler) Complete(c *gin.Context) {
	sprint, err := h.q.Sprints.Complete(c.Request.Context(), c.Param("id"), c.Query("moveIncomplete"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sprint)
}
