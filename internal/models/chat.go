package models

import (
	"strings"
	"time"

	"github.com/Marga-Ghale/ora-scrum-client/internal/types"
)

// ============================================
// Chat Channels
// ============================================

type ChatChannel struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Type          string     `json:"type"`
	TargetID      string     `json:"targetId"`
	WorkspaceID   string     `json:"workspaceId"`
	CreatedBy     string     `json:"createdBy"`
	IsPrivate     bool       `json:"isPrivate"`
	IsArchived    bool       `json:"isArchived"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
	OtherUser     *User      `json:"otherUser,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (c *ChatChannel) UnmarshalJSON(data []byte) error {
	type alias ChatChannel
	var a alias
	if err := decodeTolerant(data, &a); err != nil {
		return err
	}
	a.Type = types.Normalize(a.Type)
	*c = ChatChannel(a)
	return nil
}

type CreateChannelRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	TargetID    string `json:"targetId"`
	WorkspaceID string `json:"workspaceId"`
	IsPrivate   bool   `json:"isPrivate"`
}

type CreateDirectChannelRequest struct {
	UserID      string `json:"userId"`
	WorkspaceID string `json:"workspaceId"`
}

type UpdateChannelRequest struct {
	Name      *string `json:"name,omitempty"`
	IsPrivate *bool   `json:"isPrivate,omitempty"`
}

type ChatChannelMember struct {
	ChannelID  string     `json:"channelId"`
	UserID     string     `json:"userId"`
	Role       string     `json:"role,omitempty"`
	JoinedAt   time.Time  `json:"joinedAt"`
	LastReadAt *time.Time `json:"lastReadAt,omitempty"`
	User       *User      `json:"user,omitempty"`
}

func (m *ChatChannelMember) UnmarshalJSON(data []byte) error {
	type alias struct {
		ChannelID  string     `json:"channelId"`
		UserID     string     `json:"userId"`
		Role       string     `json:"role"`
		JoinedAt   time.Time  `json:"joinedAt"`
		LastReadAt *time.Time `json:"lastReadAt"`
		LastRead   *time.Time `json:"lastRead"`
		User       *User      `json:"user"`
	}
	var a alias
	if err := decodeTolerant(data, &a); err != nil {
		return err
	}
	*m = ChatChannelMember{
		ChannelID:  a.ChannelID,
		UserID:     a.UserID,
		Role:       types.Normalize(a.Role),
		JoinedAt:   a.JoinedAt,
		LastReadAt: a.LastReadAt,
		User:       a.User,
	}
	if m.LastReadAt == nil {
		m.LastReadAt = a.LastRead
	}
	if m.UserID == "" && m.User != nil {
		m.UserID = m.User.ID
	}
	return nil
}

// ============================================
// Chat Messages
// ============================================

type ChatReaction struct {
	ID        string    `json:"id"`
	MessageID string    `json:"messageId"`
	UserID    string    `json:"userId"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"createdAt"`
}

type ChatMessage struct {
	ID          string         `json:"id"`
	ChannelID   string         `json:"channelId"`
	UserID      string         `json:"userId"`
	Content     string         `json:"content"`
	MessageType string         `json:"messageType,omitempty"`
	ParentID    *string        `json:"parentId,omitempty"`
	IsEdited    bool           `json:"isEdited"`
	IsDeleted   bool           `json:"isDeleted"`
	ReplyCount  int            `json:"replyCount"`
	Reactions   []ChatReaction `json:"reactions"`
	Sender      *User          `json:"sender,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Some endpoints nest the author under "user" rather than "sender".
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	type alias ChatMessage
	var wire struct {
		alias
		User *User `json:"user"`
	}
	if err := decodeTolerant(data, &wire); err != nil {
		return err
	}
	a := wire.alias
	if a.Sender == nil {
		a.Sender = wire.User
	}
	*m = ChatMessage(a)
	return nil
}

// IsTemporary reports whether the message is an optimistic placeholder.
func (m ChatMessage) IsTemporary() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}

// TempIDPrefix marks ids minted locally before the server confirms a write.
const TempIDPrefix = "temp-"

type SendMessageRequest struct {
	Content     string  `json:"content" binding:"required,min=1,max=10000"`
	MessageType string  `json:"messageType,omitempty"`
	ParentID    *string `json:"parentId,omitempty"`
}

type UpdateMessageRequest struct {
	Content string `json:"content"`
}

type ReactionRequest struct {
	Emoji string `json:"emoji"`
}
