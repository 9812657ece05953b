package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
	"github.com/Marga-Ghale/ora-scrum-client/internal/view"
)

// ============================================
// Notification Handler
// ============================================

type NotificationHandler struct{ base }

// NotificationItem is a notification with its in-app link.
type NotificationItem struct {
	models.Notification
	Link     string `json:"link"`
	Priority int    `json:"priority"`
}

type NotificationGroup struct {
	Label string             `json:"label"`
	Items []NotificationItem `json:"items"`
}

// Grouped lists notifications by day, unread and urgent first within each.
// ?unread=true limits the list to unread ones.
func (h *NotificationHandler) Grouped(c *gin.Context) {
	ctx := c.Request.Context()
	list := h.q.Notifications.List
	if c.Query("unread") == "true" {
		list = h.q.Notifications.Unread
	}

	res, err := list(ctx)
	if !render(c, h.q, res, err) {
		return
	}

	groups := view.GroupNotifications(res.Data, h.now())
	response := make([]NotificationGroup, len(groups))
	for i, g := range groups {
		items := make([]NotificationItem, len(g.Items))
		for j, n := range g.Items {
			items[j] = NotificationItem{
				Notification: n,
				Link:         view.NotificationLink(n),
				Priority:     view.NotificationPriority(n.Type),
			}
		}
		response[i] = NotificationGroup{Label: g.Label, Items: items}
	}
	c.JSON(http.StatusOK, response)
}

func (h *NotificationHandler) Count(c *gin.Context) {
	res, err := h.q.Notifications.Count(c.Request.Context())
	respond(c, h.q, res, err)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.q.Notifications.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.q.Notifications.MarkAllRead(c.Request.Context()); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read"})
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	if err := h.q.Notifications.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
