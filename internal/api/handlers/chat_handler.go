package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
	"github.com/Marga-Ghale/ora-scrum-client/internal/query"
	"github.com/Marga-Ghale/ora-scrum-client/internal/view"
)

// ChatHandler handles chat-related HTTP requests
type ChatHandler struct{ base }

// ChannelItem is a channel with its display name and unread count.
type ChannelItem struct {
	models.ChatChannel
	DisplayName string `json:"displayName"`
	Unread      int    `json:"unread"`
}

// ============================================
// Channel Endpoints
// ============================================

// ListChannels lists all channels for the current user
func (h *ChatHandler) ListChannels(c *gin.Context) {
	ctx := c.Request.Context()
	res, err := h.q.Chat.Channels(ctx)
	if !render(c, h.q, res, err) {
		return
	}

	// Counts are best effort; a failed fetch shows zeros.
	unread, err := h.q.Chat.UnreadCounts(ctx)
	if err != nil {
		h.log.Debug().Err(err).Msg("unread counts unavailable")
	}

	response := make([]ChannelItem, len(res.Data))
	for i, ch := range res.Data {
		response[i] = ChannelItem{ChatChannel: ch, DisplayName: view.ChannelDisplayName(ch), Unread: unread.Data[ch.ID]}
	}
	c.JSON(http.StatusOK, response)
}

func (h *ChatHandler) Unread(c *gin.Context) {
	res, err := h.q.Chat.UnreadCounts(c.Request.Context())
	if !render(c, h.q, res, err) {
		return
	}
	total := 0
	for _, n := range res.Data {
		total += n
	}
	counts := res.Data
	if counts == nil {
		counts = map[string]int{}
	}
	c.JSON(http.StatusOK, gin.H{"channels": counts, "total": total})
}

func (h *ChatHandler) MarkAsRead(c *gin.Context) {
	if err := h.q.Chat.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Channel marked as read"})
}

// ============================================
// Message Endpoints
// ============================================

// GroupedMessages returns one page of messages bucketed by day, newest day
// first, with reactions merged per emoji.
func (h *ChatHandler) GroupedMessages(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(query.DefaultMessagePage)))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = query.DefaultMessagePage
	}
	if offset < 0 {
		offset = 0
	}

	res, err := h.q.Chat.Messages(c.Request.Context(), c.Param("id"), limit, offset)
	if !render(c, h.q, res, err) {
		return
	}
	groups := view.GroupMessages(res.Data, h.now())
	if groups == nil {
		groups = []view.DateGroup[view.MessageRow]{}
	}
	c.JSON(http.StatusOK, groups)
}

func (h *ChatHandler) Thread(c *gin.Context) {
	res, err := h.q.Chat.Thread(c.Request.Context(), c.Param("messageId"))
	if !render(c, h.q, res, err) {
		return
	}
	rows := make([]view.MessageRow, 0, len(res.Data))
	for _, m := range res.Data {
		rows = append(rows, view.NewMessageRow(m))
	}
	c.JSON(http.StatusOK, rows)
}

// SendMessage sends a message to a channel
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req models.SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	msg, err := h.q.Chat.SendMessage(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view.NewMessageRow(*msg))
}

func (h *ChatHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	res, err := h.q.Chat.Search(c.Request.Context(), c.Param("id"), q)
	respond(c, h.q, res, err)
}
