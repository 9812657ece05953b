package fakeapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
)

func (s *Server) notificationRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.GET("", s.listNotifications)
		notifications.GET("/count", s.countNotifications)
		notifications.PUT("/read-all", s.markAllNotificationsRead)
		notifications.PUT("/:id/read", s.markNotificationRead)
		notifications.DELETE("", s.deleteAllNotifications)
		notifications.DELETE("/:id", s.deleteNotification)
	}
}

// AddNotification stores n for its user, filling in the id and timestamp.
func (s *Server) AddNotification(n models.Notification) models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now()
	}
	s.notifications.put(n.ID, n)
	return n
}

func (s *Server) Notification(id string) (models.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notifications.get(id)
}

// mine must be called with s.mu held.
func (s *Server) mine(c *gin.Context, unreadOnly bool) []models.Notification {
	userID := currentUser(c)
	return s.notifications.list(func(n models.Notification) bool {
		return n.UserID == userID && (!unreadOnly || !n.Read)
	})
}

func (s *Server) listNotifications(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.mine(c, c.Query("unread") == "true"))
}

func (s *Server) countNotifications(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, models.NotificationCount{
		Total:  len(s.mine(c, false)),
		Unread: len(s.mine(c, true)),
	})
}

func (s *Server) markNotificationRead(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications.get(c.Param("id"))
	if !ok || n.UserID != currentUser(c) {
		notFound(c, "notification")
		return
	}
	n.Read = true
	s.notifications.put(n.ID, n)
	c.JSON(http.StatusOK, gin.H{"message": "notification marked as read"})
}

func (s *Server) markAllNotificationsRead(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.mine(c, true) {
		n.Read = true
		s.notifications.put(n.ID, n)
	}
	c.JSON(http.StatusOK, gin.H{"message": "all notifications marked as read"})
}

func (s *Server) deleteNotification(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications.get(c.Param("id"))
	if !ok || n.UserID != currentUser(c) {
		notFound(c, "notification")
		return
	}
	s.notifications.del(n.ID)
	c.JSON(http.StatusOK, gin.H{"message": "notification deleted"})
}

func (s *Server) deleteAllNotifications(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.mine(c, false) {
		s.notifications.del(n.ID)
	}
	c.JSON(http.StatusOK, gin.H{"message": "all notifications deleted"})
}
