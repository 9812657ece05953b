package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Marga-Ghale/ora-scrum-client/internal/apiclient"
	"github.com/Marga-Ghale/ora-scrum-client/internal/query"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	Health       *HealthHandler
	User         *UserHandler
	Workspace    *WorkspaceHandler
	Space        *SpaceHandler
	Folder       *FolderHandler
	Project      *ProjectHandler
	Task         *TaskHandler
	Comment      *CommentHandler
	Sprint       *SprintHandler
	Label        *LabelHandler
	Notification *NotificationHandler
	Member       *MemberHandler
	Chat         *ChatHandler
	Invitation   *InvitationHandler
}

// base is shared by every handler.
type base struct {
	q   *query.Client
	log zerolog.Logger
	now func() time.Time
}

// NewHandlers creates all handlers. now may be nil.
func NewHandlers(q *query.Client, log zerolog.Logger, now func() time.Time) *Handlers {
	if now == nil {
		now = time.Now
	}
	b := base{q: q, log: log, now: now}
	return &Handlers{
		Health:       &HealthHandler{b},
		User:         &UserHandler{b},
		Workspace:    &WorkspaceHandler{b},
		Space:        &SpaceHandler{b},
		Folder:       &FolderHandler{b},
		Project:      &ProjectHandler{b},
		Task:         &TaskHandler{b},
		Comment:      &CommentHandler{b},
		Sprint:       &SprintHandler{b},
		Label:        &LabelHandler{b},
		Notification: &NotificationHandler{b},
		Member:       &MemberHandler{b},
		Chat:         &ChatHandler{b},
		Invitation:   &InvitationHandler{b},
	}
}

// ============================================
// Health
// ============================================

type HealthHandler struct{ base }

func (h *HealthHandler) Check(c *gin.Context) {
	api := h.q.API()
	resp := gin.H{
		"status":        "healthy",
		"timestamp":     h.now(),
		"authenticated": api.IsAuthenticated(),
	}
	if exp, ok := api.AccessTokenExpiry(); ok {
		resp["tokenExpiresAt"] = exp
	}
	c.JSON(http.StatusOK, resp)
}

// ============================================
// Response Helpers
// ============================================

const staleHeader = "X-Cache-Stale"

// respond writes a read result. A failed refetch that still has cached data
// answers with that data, marked stale.
func respond[T any](c *gin.Context, q *query.Client, res query.Result[T], err error) {
	if !render(c, q, res, err) {
		return
	}
	c.JSON(http.StatusOK, res.Data)
}

// render reports whether res holds data to answer with, and answers the
// error otherwise. A read left idle because nobody is logged in is a 401.
func render[T any](c *gin.Context, q *query.Client, res query.Result[T], err error) bool {
	if err == nil && res.State == query.StateIdle && !q.API().IsAuthenticated() {
		handleError(c, query.ErrNotAuthenticated)
		return false
	}
	if err != nil && !res.Stale {
		handleError(c, err)
		return false
	}
	if err != nil {
		_ = c.Error(err)
	}
	if res.Stale {
		c.Header(staleHeader, "true")
	}
	return true
}

// handleError maps client errors to gateway answers. Remote errors keep
// their status and server message.
func handleError(c *gin.Context, err error) {
	_ = c.Error(err)

	var apiErr *apiclient.Error
	switch {
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status < 400 {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": apiclient.MessageOf(err)})
	case errors.Is(err, query.ErrNotAuthenticated), errors.Is(err, apiclient.ErrNoRefreshToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not logged in"})
	case errors.Is(err, query.ErrInvalidStatus),
		errors.Is(err, query.ErrInvalidPriority),
		errors.Is(err, query.ErrInvalidRole),
		errors.Is(err, query.ErrInvalidEntity),
		errors.Is(err, query.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "Upstream request failed"})
	}
}

// bindJSON answers 400 when the body does not decode.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}
