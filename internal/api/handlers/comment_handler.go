package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
)

type CommentHandler struct{ base }

func (h *CommentHandler) List(c *gin.Context) {
	res, err := h.q.Tasks.Comments(c.Request.Context(), c.Param("id"))
	respond(c, h.q, res, err)
}

func (h *CommentHandler) Create(c *gin.Context) {
	var req models.CreateCommentRequest
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	comment, err := h.q.Tasks.AddComment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}
