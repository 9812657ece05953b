package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/ora-scrum-client/internal/view"
)

type MemberHandler struct{ base }

// MembersResponse splits effective members into direct and inherited rows.
// Rows holds whatever ?filter selected.
type MembersResponse struct {
	Filter    view.MemberFilter `json:"filter"`
	Rows      []view.MemberRow  `json:"rows"`
	Direct    int               `json:"direct"`
	Inherited int               `json:"inherited"`
}

// ListEffectiveMembers lists direct + inherited members
func (h *MemberHandler) ListEffectiveMembers(c *gin.Context) {
	entityType := c.Param("entityType")
	entityID := c.Param("entityId")

	res, err := h.q.Members.Effective(c.Request.Context(), entityType, entityID)
	if !render(c, h.q, res, err) {
		return
	}

	filter := view.ParseMemberFilter(c.Query("filter"))
	direct, inherited := view.PartitionMembers(res.Data)
	rows := view.FilterMembers(res.Data, filter)
	c.JSON(http.StatusOK, MembersResponse{
		Filter:    filter,
		Rows:      rows,
		Direct:    len(direct),
		Inherited: len(inherited),
	})
}

// ListDirectMembers lists only direct members
func (h *MemberHandler) ListDirectMembers(c *gin.Context) {
	res, err := h.q.Members.Direct(c.Request.Context(), c.Param("entityType"), c.Param("entityId"))
	respond(c, h.q, res, err)
}
