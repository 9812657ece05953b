package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type UserHandler struct{ base }

// Me returns the logged-in user.
func (h *UserHandler) Me(c *gin.Context) {
	res, err := h.q.Auth.CurrentUser(c.Request.Context())
	respond(c, h.q, res, err)
}

func (h *UserHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	res, err := h.q.Users.Search(c.Request.Context(), q)
	respond(c, h.q, res, err)
}
