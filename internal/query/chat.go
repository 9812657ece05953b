package query

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Marga-Ghale/ora-scrum-client/internal/cache"
	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
	"github.com/Marga-Ghale/ora-scrum-client/internal/optimistic"
	"github.com/Marga-Ghale/ora-scrum-client/internal/types"
)

type ChatQueries struct{ c *Client }

// DefaultMessagePage is the page size of the first page of a channel, the
// page optimistic sends land on.
const DefaultMessagePage = 50

// searchWindow is how many recent messages a local search scans.
const searchWindow = 200

// ============================================
// Channels
// ============================================

func (q *ChatQueries) Channels(ctx context.Context) (Result[[]models.ChatChannel], error) {
	return read[[]models.ChatChannel](ctx, q.c, ChatChannelsKey, "/chat/channels")
}

func (q *ChatQueries) WorkspaceChannels(ctx context.Context, workspaceID string) (Result[[]models.ChatChannel], error) {
	if workspaceID == "" {
		return idle[[]models.ChatChannel]()
	}
	return read[[]models.ChatChannel](ctx, q.c, ChatWorkspaceChannelsKey(workspaceID), "/workspaces/"+workspaceID+"/chat/channels")
}

func (q *ChatQueries) Channel(ctx context.Context, id string) (Result[models.ChatChannel], error) {
	if id == "" {
		return idle[models.ChatChannel]()
	}
	return read[models.ChatChannel](ctx, q.c, ChatChannelKey(id), "/chat/channels/"+id)
}

// ChannelByTarget finds the channel attached to a project, space or team.
func (q *ChatQueries) ChannelByTarget(ctx context.Context, targetType, targetID string) (Result[models.ChatChannel], error) {
	if targetType == "" || targetID == "" {
		return idle[models.ChatChannel]()
	}
	v := url.Values{}
	v.Set("type", targetType)
	v.Set("targetId", targetID)
	return read[models.ChatChannel](ctx, q.c, ChatChannelTargetKey(targetType, targetID), "/chat/channels/find?"+v.Encode())
}

func (q *ChatQueries) CreateChannel(ctx context.Context, req models.CreateChannelRequest) (*models.ChatChannel, error) {
	req.Type = types.Normalize(req.Type)
	if !types.IsValidChannelType(req.Type) {
		return nil, ErrInvalidEntity
	}
	return q.channelWrite(ctx, post, "/chat/channels", req)
}

func (q *ChatQueries) CreateDirect(ctx context.Context, req models.CreateDirectChannelRequest) (*models.ChatChannel, error) {
	return q.channelWrite(ctx, post, "/chat/direct", req)
}

func (q *ChatQueries) UpdateChannel(ctx context.Context, id string, req models.UpdateChannelRequest) (*models.ChatChannel, error) {
	return q.channelWrite(ctx, put, "/chat/channels/"+id, req)
}

func (q *ChatQueries) channelWrite(ctx context.Context, method, path string, body any) (*models.ChatChannel, error) {
	ch, err := send[models.ChatChannel](ctx, q.c, method, path, body)
	if err != nil {
		return nil, err
	}
	q.c.set(ChatChannelKey(ch.ID), ch)
	q.c.invalidate(ChatChannelsKey)
	return &ch, nil
}

func (q *ChatQueries) DeleteChannel(ctx context.Context, id string) error {
	if err := q.c.exec(ctx, del, "/chat/channels/"+id, nil); err != nil {
		return err
	}
	q.c.remove(ChatChannelKey(id), ChatChannelMessagesKey(id), ChatMembersKey(id))
	q.c.invalidate(ChatChannelsKey, ChatUnreadKey)
	return nil
}

// ============================================
// Messages
// ============================================

// Messages reads one page, newest first.
func (q *ChatQueries) Messages(ctx context.Context, channelID string, limit, offset int) (Result[[]models.ChatMessage], error) {
	if channelID == "" {
		return idle[[]models.ChatMessage]()
	}
	if limit <= 0 {
		limit = DefaultMessagePage
	}
	return read[[]models.ChatMessage](ctx, q.c, ChatMessageListKey(channelID, limit, offset), messagesPath(channelID, limit, offset))
}

func (q *ChatQueries) Thread(ctx context.Context, parentID string) (Result[[]models.ChatMessage], error) {
	if parentID == "" {
		return idle[[]models.ChatMessage]()
	}
	return read[[]models.ChatMessage](ctx, q.c, ChatThreadKey(parentID), "/chat/messages/"+parentID+"/thread")
}

// Search filters the channel's recent messages by content, case-insensitively.
func (q *ChatQueries) Search(ctx context.Context, channelID, query string) (Result[[]models.ChatMessage], error) {
	query = strings.TrimSpace(query)
	if channelID == "" || len(query) < minSearchLength {
		return idle[[]models.ChatMessage]()
	}
	needle := strings.ToLower(query)
	return readWith[[]models.ChatMessage](ctx, q.c, ChatSearchKey(channelID, query), func(ctx context.Context) ([]byte, error) {
		var all []models.ChatMessage
		if err := q.c.api.Get(ctx, messagesPath(channelID, searchWindow, 0), &all); err != nil {
			return nil, err
		}
		hits := []models.ChatMessage{}
		for _, m := range all {
			if !m.IsDeleted && strings.Contains(strings.ToLower(m.Content), needle) {
				hits = append(hits, m)
			}
		}
		return json.Marshal(hits)
	})
}

// SendMessage shows the message at the top of the first page (or of its
// thread) at once under a temporary id, then swaps in the server's copy. A rejected send restores
// the page as it was.
func (q *ChatQueries) SendMessage(ctx context.Context, channelID string, req models.SendMessageRequest) (*models.ChatMessage, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrEmptyMessage
	}
	if req.MessageType == "" {
		req.MessageType = "text"
	}

	me := q.currentUser()
	now := time.Now().UTC()
	temp := models.ChatMessage{
		ID:          models.TempIDPrefix + uuid.NewString(),
		ChannelID:   channelID,
		Content:     req.Content,
		MessageType: req.MessageType,
		ParentID:    req.ParentID,
		Reactions:   []models.ChatReaction{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if me != nil {
		temp.UserID, temp.Sender = me.ID, me
	}

	// Replies go to the top of their thread. The channel pages are always
	// refetched on settle, since the first page may not have been cached.
	page := ChatMessageListKey(channelID, DefaultMessagePage, 0)
	settle := []cache.Key{ChatChannelMessagesKey(channelID), ChatChannelsKey, ChatUnreadKey}
	if req.ParentID != nil && *req.ParentID != "" {
		page = ChatThreadKey(*req.ParentID)
		settle = append(settle, page)
	}

	msg, err := optimistic.Run(ctx, q.c.store, optimistic.Plan[models.ChatMessage]{
		Targets: []cache.Op{prependMessage(page, temp)},
		Cancel:  []cache.Key{ChatChannelMessagesKey(channelID)},
		Call: func(ctx context.Context) (models.ChatMessage, error) {
			return send[models.ChatMessage](ctx, q.c, post, "/chat/channels/"+channelID+"/messages", req)
		},
		Confirm: func(m models.ChatMessage) []cache.Op {
			return []cache.Op{replaceTemp(page, temp.ID, m)}
		},
		Invalidate: settle,
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// EditMessage rewrites the content in every cached page of the channel.
func (q *ChatQueries) EditMessage(ctx context.Context, channelID, messageID, content string) (*models.ChatMessage, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}
	msg, err := optimistic.Run(ctx, q.c.store, optimistic.Plan[models.ChatMessage]{
		Targets: q.eachMessageList(channelID, func(m *models.ChatMessage) bool {
			if m.ID != messageID {
				return false
			}
			m.Content, m.IsEdited = content, true
			return true
		}),
		Call: func(ctx context.Context) (models.ChatMessage, error) {
			return send[models.ChatMessage](ctx, q.c, put, "/chat/messages/"+messageID, models.UpdateMessageRequest{Content: content})
		},
		Confirm: func(server models.ChatMessage) []cache.Op {
			if server.ID == "" {
				return nil
			}
			return q.eachMessageList(channelID, func(m *models.ChatMessage) bool {
				if m.ID != messageID {
					return false
				}
				*m = server
				return true
			})
		},
		Invalidate: []cache.Key{ChatChannelMessagesKey(channelID)},
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// DeleteMessage drops the message from every cached page of the channel.
func (q *ChatQueries) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	_, err := optimistic.Run(ctx, q.c.store, optimistic.Plan[struct{}]{
		Targets: []cache.Op{
			cache.UpdateEachJSON(ChatChannelMessagesKey(channelID), func(list *[]models.ChatMessage) bool {
				return removeMessage(list, messageID)
			}),
			cache.UpdateEachJSON(ChatThreadsKey, func(list *[]models.ChatMessage) bool {
				return removeMessage(list, messageID)
			}),
		},
		Call: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, q.c.exec(ctx, del, "/chat/messages/"+messageID, nil)
		},
		Invalidate: []cache.Key{ChatChannelMessagesKey(channelID), ChatThreadKey(messageID)},
	})
	return err
}

func (q *ChatQueries) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	me := q.currentUser()
	userID := ""
	if me != nil {
		userID = me.ID
	}
	reaction := models.ChatReaction{
		ID:        models.TempIDPrefix + uuid.NewString(),
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
		CreatedAt: time.Now().UTC(),
	}
	return q.react(ctx, channelID, func(m *models.ChatMessage) bool {
		if m.ID != messageID {
			return false
		}
		m.Reactions = append(m.Reactions, reaction)
		return true
	}, func(ctx context.Context) error {
		return q.c.exec(ctx, post, "/chat/messages/"+messageID+"/reactions", models.ReactionRequest{Emoji: emoji})
	})
}

// RemoveReaction withdraws the current user's reaction.
func (q *ChatQueries) RemoveReaction(ctx context.Context, channelID, messageID, emoji string) error {
	me := q.currentUser()
	return q.react(ctx, channelID, func(m *models.ChatMessage) bool {
		if m.ID != messageID {
			return false
		}
		kept := m.Reactions[:0:0]
		for _, r := range m.Reactions {
			if r.Emoji == emoji && (me == nil || r.UserID == me.ID) {
				continue
			}
			kept = append(kept, r)
		}
		changed := len(kept) != len(m.Reactions)
		m.Reactions = kept
		return changed
	}, func(ctx context.Context) error {
		return q.c.exec(ctx, del, "/chat/messages/"+messageID+"/reactions?emoji="+url.QueryEscape(emoji), nil)
	})
}

func (q *ChatQueries) react(ctx context.Context, channelID string, edit func(*models.ChatMessage) bool, call func(context.Context) error) error {
	_, err := optimistic.Run(ctx, q.c.store, optimistic.Plan[struct{}]{
		Targets: q.eachMessageList(channelID, edit),
		Call: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, call(ctx)
		},
		Invalidate: []cache.Key{ChatChannelMessagesKey(channelID)},
	})
	return err
}

// ============================================
// Membership and read state
// ============================================

func (q *ChatQueries) ChannelMembers(ctx context.Context, channelID string) (Result[[]models.ChatChannelMember], error) {
	if channelID == "" {
		return idle[[]models.ChatChannelMember]()
	}
	return read[[]models.ChatChannelMember](ctx, q.c, ChatMembersKey(channelID), "/chat/channels/"+channelID+"/members")
}

func (q *ChatQueries) Join(ctx context.Context, channelID string) error {
	return q.membership(ctx, channelID, "/join", nil)
}

func (q *ChatQueries) Leave(ctx context.Context, channelID string) error {
	return q.membership(ctx, channelID, "/leave", nil)
}

func (q *ChatQueries) AddMember(ctx context.Context, channelID, userID string) error {
	return q.membership(ctx, channelID, "/members/add", map[string]string{"userId": userID})
}

func (q *ChatQueries) RemoveMember(ctx context.Context, channelID, userID string) error {
	return q.membership(ctx, channelID, "/members/remove", map[string]string{"userId": userID})
}

func (q *ChatQueries) membership(ctx context.Context, channelID, suffix string, body any) error {
	if err := q.c.exec(ctx, post, "/chat/channels/"+channelID+suffix, body); err != nil {
		return err
	}
	q.c.invalidate(ChatMembersKey(channelID), ChatChannelsKey)
	return nil
}

// UnreadCounts maps channel id to unread message count.
func (q *ChatQueries) UnreadCounts(ctx context.Context) (Result[map[string]int], error) {
	return read[map[string]int](ctx, q.c, ChatUnreadKey, "/chat/unread")
}

func (q *ChatQueries) PollUnread(ctx context.Context) error {
	_, err := q.c.store.Refetch(ctx, ChatUnreadKey, getJSON[map[string]int](q.c, "/chat/unread"))
	return err
}

// MarkRead zeroes the channel's unread count until the server confirms.
func (q *ChatQueries) MarkRead(ctx context.Context, channelID string) error {
	_, err := optimistic.Run(ctx, q.c.store, optimistic.Plan[struct{}]{
		Targets: []cache.Op{cache.UpdateJSON(ChatUnreadKey, func(counts *map[string]int) bool {
			if (*counts)[channelID] == 0 {
				return false
			}
			(*counts)[channelID] = 0
			return true
		})},
		Call: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, q.c.exec(ctx, post, "/chat/channels/"+channelID+"/read", nil)
		},
		Invalidate: []cache.Key{ChatUnreadKey},
	})
	return err
}

// ============================================
// Helpers
// ============================================

func (q *ChatQueries) currentUser() *models.User {
	u, ok, err := cache.Get[models.User](q.c.store, AuthUserKey)
	if !ok || err != nil || u.ID == "" {
		return nil
	}
	return &u
}

// eachMessageList edits matching messages in every cached page of the
// channel and in every cached thread.
func (q *ChatQueries) eachMessageList(channelID string, edit func(*models.ChatMessage) bool) []cache.Op {
	apply := func(list *[]models.ChatMessage) bool {
		changed := false
		for i := range *list {
			if edit(&(*list)[i]) {
				changed = true
			}
		}
		return changed
	}
	return []cache.Op{
		cache.UpdateEachJSON(ChatChannelMessagesKey(channelID), apply),
		cache.UpdateEachJSON(ChatThreadsKey, apply),
	}
}

func prependMessage(page cache.Key, m models.ChatMessage) cache.Op {
	return cache.Op{Key: page, Update: func(current []byte, present bool) ([]byte, bool, error) {
		var list []models.ChatMessage
		if present {
			decoded, err := cache.Decode[[]models.ChatMessage](current)
			if err != nil {
				return nil, false, err
			}
			list = decoded
		}
		next, err := json.Marshal(append([]models.ChatMessage{m}, list...))
		return next, err == nil, err
	}}
}

// replaceTemp swaps the placeholder for the confirmed message, or drops it
// when a refetch already brought the confirmed one in.
func replaceTemp(page cache.Key, tempID string, confirmed models.ChatMessage) cache.Op {
	return cache.UpdateJSON(page, func(list *[]models.ChatMessage) bool {
		at := -1
		for i, m := range *list {
			if m.ID == confirmed.ID {
				removeMessage(list, tempID)
				return true
			}
			if m.ID == tempID {
				at = i
			}
		}
		if at < 0 {
			*list = append([]models.ChatMessage{confirmed}, *list...)
			return true
		}
		(*list)[at] = confirmed
		return true
	})
}

func removeMessage(list *[]models.ChatMessage, id string) bool {
	for i, m := range *list {
		if m.ID == id {
			*list = append((*list)[:i:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}

func messagesPath(channelID string, limit, offset int) string {
	v := url.Values{}
	v.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		v.Set("offset", strconv.Itoa(offset))
	}
	return "/chat/channels/" + channelID + "/messages?" + v.Encode()
}
