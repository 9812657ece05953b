package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type InvitationHandler struct{ base }

type AcceptInvitationRequest struct {
	Token string `json:"token" binding:"required"`
}

// ListPending lists invitations addressed to the current user.
func (h *InvitationHandler) ListPending(c *gin.Context) {
	res, err := h.q.Invitations.Pending(c.Request.Context())
	respond(c, h.q, res, err)
}

func (h *InvitationHandler) Accept(c *gin.Context) {
	var req AcceptInvitationRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.q.Invitations.Accept(c.Request.Context(), req.Token); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invitation accepted"})
}

// Decline refuses a pending invitation.
func (h *InvitationHandler) Decline(c *gin.Context) {
	if err := h.q.Invitations.Decline(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invitation declined"})
}
