package handlers

import (
	"github.com/gin-gonic/gin"
)

type ProjectHandler struct{ base }

// ListBySpace lists the projects of a space.
func (h *ProjectHandler) ListBySpace(c *gin.Context) {
	res, err := h.q.Projects.List(c.Request.Context(), c.Param("id"))
	respond(c, h.q, res, err)
}

func (h *ProjectHandler) Get(c *gin.Context) {
	res, err := h.q.Projects.Get(c.Request.Context(), c.Param("id"))
	respond(c, h.q, res, err)
}
