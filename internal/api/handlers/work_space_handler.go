package handlers

import (
	"github.com/gin-gonic/gin"
)

type WorkspaceHandler struct{ base }

func (h *WorkspaceHandler) List(c *gin.Context) {
	res, err := h.q.Workspaces.List(c.Request.Context())
	respond(c, h.q, res, err)
}

func (h *WorkspaceHandler) Get(c *gin.Context) {
	res, err := h.q.Workspaces.Get(c.Request.Context(), c.Param("id"))
	respond(c, h.q, res, err)
}
