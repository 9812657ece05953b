package fakeapi

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
	"github.com/Marga-Ghale/ora-scrum-client/internal/types"
)

func (s *Server) chatRoutes(r *gin.RouterGroup) {
	chat := r.Group("/chat")
	{
		chat.GET("/channels", s.listChannels)
		chat.POST("/channels", s.createChannel)
		chat.GET("/channels/find", s.findChannel)
		chat.GET("/channels/:id", s.getChannel)
		chat.PUT("/channels/:id", s.updateChannel)
		chat.DELETE("/channels/:id", s.deleteChannel)
		chat.POST("/channels/:id/join", s.joinChannel)
		chat.POST("/channels/:id/leave", s.leaveChannel)
		chat.GET("/channels/:id/members", s.listChannelMembers)
		chat.POST("/channels/:id/members/add", s.addChannelMember)
		chat.POST("/channels/:id/members/remove", s.removeChannelMember)
		chat.POST("/channels/:id/read", s.markChannelRead)
		chat.GET("/channels/:id/messages", s.listMessages)
		chat.POST("/channels/:id/messages", s.sendMessage)

		chat.GET("/messages/:id/thread", s.listThread)
		chat.PUT("/messages/:id", s.editMessage)
		chat.DELETE("/messages/:id", s.deleteMessage)
		chat.POST("/messages/:id/reactions", s.addReaction)
		chat.DELETE("/messages/:id/reactions", s.removeReaction)

		chat.POST("/direct", s.createDirect)
		chat.GET("/unread", s.unreadCounts)
	}
}

// ============================================
// Seeding
// ============================================

// AddChannel creates a channel with the given members.
func (s *Server) AddChannel(workspaceID, name, channelType string, memberIDs ...string) models.ChatChannel {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := models.ChatChannel{
		ID: uuid.NewString(), Name: name, Type: channelType, WorkspaceID: workspaceID,
		CreatedAt: now(), UpdatedAt: now(),
	}
	if len(memberIDs) > 0 {
		ch.CreatedBy = memberIDs[0]
	}
	s.channels.put(ch.ID, ch)
	for _, id := range memberIDs {
		s.joinLocked(ch.ID, id)
	}
	return ch
}

// AddMessage stores a message as if userID had sent it, without touching
// unread counts.
func (s *Server) AddMessage(channelID, userID, content string) models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := models.ChatMessage{
		ID: uuid.NewString(), ChannelID: channelID, UserID: userID, Content: content,
		MessageType: "text", Reactions: []models.ChatReaction{}, Sender: s.userRef(userID),
		CreatedAt: now(), UpdatedAt: now(),
	}
	s.messages.put(m.ID, m)
	return m
}

// SetUnread overrides userID's unread count for channelID.
func (s *Server) SetUnread(userID, channelID string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unread[unreadKey(userID, channelID)] = n
}

// Message returns the stored message, for assertions.
func (s *Server) Message(id string) (models.ChatMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages.get(id)
}

func unreadKey(userID, channelID string) string {
	return userID + "/" + channelID
}

// ============================================
// Channels
// ============================================

// joinLocked must be called with s.mu held.
func (s *Server) joinLocked(channelID, userID string) {
	if s.isChannelMember(channelID, userID) {
		return
	}
	s.chatMembers[channelID] = append(s.chatMembers[channelID], models.ChatChannelMember{
		ChannelID: channelID, UserID: userID, Role: types.RoleMember, JoinedAt: now(), User: s.userRef(userID),
	})
}

func (s *Server) isChannelMember(channelID, userID string) bool {
	for _, m := range s.chatMembers[channelID] {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

func (s *Server) listChannels(c *gin.Context) {
	userID := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.channels.list(func(ch models.ChatChannel) bool {
		return s.isChannelMember(ch.ID, userID)
	}))
}

func (s *Server) listWorkspaceChannels(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.channels.list(func(ch models.ChatChannel) bool { return ch.WorkspaceID == id }))
}

func (s *Server) createChannel(c *gin.Context) {
	var req models.CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !types.IsValidChannelType(types.Normalize(req.Type)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel type"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	userID := currentUser(c)
	ch := models.ChatChannel{
		ID: uuid.NewString(), Name: req.Name, Type: types.Normalize(req.Type), TargetID: req.TargetID,
		WorkspaceID: req.WorkspaceID, CreatedBy: userID, IsPrivate: req.IsPrivate,
		CreatedAt: now(), UpdatedAt: now(),
	}
	s.channels.put(ch.ID, ch)
	s.joinLocked(ch.ID, userID)
	c.JSON(http.StatusCreated, ch)
}

// createDirect returns the existing direct channel between the two users
// when there is one.
func (s *Server) createDirect(c *gin.Context) {
	var req models.CreateDirectChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	userID := currentUser(c)
	for _, ch := range s.channels.list(nil) {
		if ch.Type == types.ChannelDirect && s.isChannelMember(ch.ID, userID) && s.isChannelMember(ch.ID, req.UserID) {
			ch.OtherUser = s.userRef(req.UserID)
			c.JSON(http.StatusOK, ch)
			return
		}
	}
	ch := models.ChatChannel{
		ID: uuid.NewString(), Type: types.ChannelDirect, WorkspaceID: req.WorkspaceID,
		CreatedBy: userID, IsPrivate: true, CreatedAt: now(), UpdatedAt: now(),
	}
	s.channels.put(ch.ID, ch)
	s.joinLocked(ch.ID, userID)
	s.joinLocked(ch.ID, req.UserID)
	ch.OtherUser = s.userRef(req.UserID)
	c.JSON(http.StatusCreated, ch)
}

func (s *Server) findChannel(c *gin.Context) {
	channelType, targetID := types.Normalize(c.Query("type")), c.Query("targetId")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.channels.list(nil) {
		if ch.Type == channelType && ch.TargetID == targetID {
			c.JSON(http.StatusOK, ch)
			return
		}
	}
	notFound(c, "channel")
}

func (s *Server) getChannel(c *gin.Context) {
	getRow(c, s, s.channels, "channel")
}

func (s *Server) updateChannel(c *gin.Context) {
	updateRow(c, s, s.channels, "channel", func(ch *models.ChatChannel) { ch.UpdatedAt = now() })
}

func (s *Server) deleteChannel(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.channels.del(id) {
		notFound(c, "channel")
		return
	}
	for _, m := range s.messages.list(func(m models.ChatMessage) bool { return m.ChannelID == id }) {
		s.messages.del(m.ID)
	}
	delete(s.chatMembers, id)
	c.JSON(http.StatusOK, gin.H{"message": "channel deleted"})
}

func (s *Server) joinChannel(c *gin.Context) {
	s.channelMembership(c, currentUser(c), true)
}

func (s *Server) leaveChannel(c *gin.Context) {
	s.channelMembership(c, currentUser(c), false)
}

func (s *Server) addChannelMember(c *gin.Context) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}
	s.channelMembership(c, req.UserID, true)
}

func (s *Server) removeChannelMember(c *gin.Context) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}
	s.channelMembership(c, req.UserID, false)
}

func (s *Server) channelMembership(c *gin.Context, userID string, join bool) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.channels.get(id); !ok {
		notFound(c, "channel")
		return
	}
	if join {
		s.joinLocked(id, userID)
		c.JSON(http.StatusOK, gin.H{"message": "joined"})
		return
	}
	kept := []models.ChatChannelMember{}
	for _, m := range s.chatMembers[id] {
		if m.UserID != userID {
			kept = append(kept, m)
		}
	}
	s.chatMembers[id] = kept
	c.JSON(http.StatusOK, gin.H{"message": "left"})
}

func (s *Server) listChannelMembers(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := s.chatMembers[c.Param("id")]
	if members == nil {
		members = []models.ChatChannelMember{}
	}
	c.JSON(http.StatusOK, members)
}

func (s *Server) markChannelRead(c *gin.Context) {
	id, userID := c.Param("id"), currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.unread, unreadKey(userID, id))
	read := now()
	for i, m := range s.chatMembers[id] {
		if m.UserID == userID {
			s.chatMembers[id][i].LastReadAt = &read
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "marked as read"})
}

func (s *Server) unreadCounts(c *gin.Context) {
	prefix := currentUser(c) + "/"
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]int{}
	for k, n := range s.unread {
		if strings.HasPrefix(k, prefix) && n > 0 {
			out[strings.TrimPrefix(k, prefix)] = n
		}
	}
	c.JSON(http.StatusOK, out)
}

// ============================================
// Messages
// ============================================

// newestFirst orders by creation time, latest first.
func newestFirst(list []models.ChatMessage) []models.ChatMessage {
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list
}

func (s *Server) listMessages(c *gin.Context) {
	id := c.Param("id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	s.mu.Lock()
	defer s.mu.Unlock()
	list := newestFirst(s.messages.list(func(m models.ChatMessage) bool {
		return m.ChannelID == id && m.ParentID == nil
	}))
	if offset > len(list) {
		offset = len(list)
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) listThread(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, newestFirst(s.messages.list(func(m models.ChatMessage) bool {
		return m.ParentID != nil && *m.ParentID == id
	})))
}

// sendMessage stores the message, bumps the other members' unread counts
// and pushes chat_message to their sockets.
func (s *Server) sendMessage(c *gin.Context) {
	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	id, userID := c.Param("id"), currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels.get(id)
	if !ok {
		notFound(c, "channel")
		return
	}
	if !s.isChannelMember(id, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a channel member"})
		return
	}
	if req.MessageType == "" {
		req.MessageType = "text"
	}
	m := models.ChatMessage{
		ID: uuid.NewString(), ChannelID: id, UserID: userID, Content: req.Content,
		MessageType: req.MessageType, ParentID: req.ParentID, Reactions: []models.ChatReaction{},
		Sender: s.userRef(userID), CreatedAt: now(), UpdatedAt: now(),
	}
	s.messages.put(m.ID, m)
	if m.ParentID != nil {
		if parent, ok := s.messages.get(*m.ParentID); ok {
			parent.ReplyCount++
			s.messages.put(parent.ID, parent)
		}
	}
	sent := m.CreatedAt
	ch.LastMessageAt = &sent
	s.channels.put(ch.ID, ch)

	for _, member := range s.chatMembers[id] {
		if member.UserID == userID {
			continue
		}
		s.unread[unreadKey(member.UserID, id)]++
		s.hub.toRoom("user:"+member.UserID, wsMessage{
			Type:      "chat_message",
			Payload:   map[string]any{"channelId": id, "messageId": m.ID},
			Timestamp: now(),
		})
	}
	c.JSON(http.StatusCreated, m)
}

// ownMessage must be called with s.mu held. It answers the error itself.
func (s *Server) ownMessage(c *gin.Context) (models.ChatMessage, bool) {
	m, ok := s.messages.get(c.Param("id"))
	if !ok || m.IsDeleted {
		notFound(c, "message")
		return m, false
	}
	if m.UserID != currentUser(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the message author"})
		return m, false
	}
	return m, true
}

func (s *Server) editMessage(c *gin.Context) {
	var req models.UpdateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.ownMessage(c)
	if !ok {
		return
	}
	m.Content, m.IsEdited, m.UpdatedAt = req.Content, true, now()
	s.messages.put(m.ID, m)
	c.JSON(http.StatusOK, m)
}

// deleteMessage soft-deletes, as the production backend does.
func (s *Server) deleteMessage(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.ownMessage(c)
	if !ok {
		return
	}
	m.IsDeleted, m.Content, m.UpdatedAt = true, "", now()
	s.messages.put(m.ID, m)
	c.JSON(http.StatusOK, gin.H{"message": "message deleted"})
}

func (s *Server) addReaction(c *gin.Context) {
	var req models.ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Emoji == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "emoji is required"})
		return
	}
	userID := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages.get(c.Param("id"))
	if !ok {
		notFound(c, "message")
		return
	}
	for _, r := range m.Reactions {
		if r.UserID == userID && r.Emoji == req.Emoji {
			c.JSON(http.StatusConflict, gin.H{"error": "already reacted"})
			return
		}
	}
	r := models.ChatReaction{ID: uuid.NewString(), MessageID: m.ID, UserID: userID, Emoji: req.Emoji, CreatedAt: now()}
	m.Reactions = append(m.Reactions, r)
	s.messages.put(m.ID, m)
	c.JSON(http.StatusCreated, r)
}

func (s *Server) removeReaction(c *gin.Context) {
	emoji, userID := c.Query("emoji"), currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages.get(c.Param("id"))
	if !ok {
		notFound(c, "message")
		return
	}
	kept := []models.ChatReaction{}
	for _, r := range m.Reactions {
		if r.UserID != userID || r.Emoji != emoji {
			kept = append(kept, r)
		}
	}
	m.Reactions = kept
	s.messages.put(m.ID, m)
	c.JSON(http.StatusOK, gin.H{"message": "reaction removed"})
}
