package handlers

import (
	"github.com/gin-gonic/gin"
)

type LabelHandler struct{ base }

func (h *LabelHandler) ListByProject(c *gin.Context) {
	res, err := h.q.Labels.List(c.Request.Context(), c.Param("id"))
	respond(c, h.q, res, err)
}
