package handlers

import (
	"github.com/gin-gonic/gin"
)

type SpaceHandler struct{ base }

// ListByWorkspace lists the spaces of a workspace.
func (h *SpaceHandler) ListByWorkspace(c *gin.Context) {
	res, err := h.q.Spaces.List(c.Request.Context(), c.Param("id"))
	respond(c, h.q, res, err)
}

func (h *SpaceHandler) Get(c *gin.Context) {
	res, err := h.q.Spaces.Get(c.Request.Context(), c.Param("id"))
	respond(c, h.q, res, err)
}
