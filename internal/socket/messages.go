// Package socket keeps a realtime connection to the ORA Scrum hub and turns
// server events into cache invalidations.
package socket

import (
	"encoding/json"
	"strings"
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Notification messages
	MessageNotification      MessageType = "notification"
	MessageNotificationRead  MessageType = "notification_read"
	MessageNotificationCount MessageType = "notification_count"

	// Task messages
	MessageTaskCreated         MessageType = "task_created"
	MessageTaskUpdated         MessageType = "task_updated"
	MessageTaskDeleted         MessageType = "task_deleted"
	MessageTaskStatusChanged   MessageType = "task_status_changed"
	MessageTaskAssigned        MessageType = "task_assigned"
	MessageTaskPositionChanged MessageType = "task_position_changed"

	// Sprint messages
	MessageSprintStarted   MessageType = "sprint_started"
	MessageSprintCompleted MessageType = "sprint_completed"

	// Member messages
	MessageMemberAdded       MessageType = "member_added"
	MessageMemberRemoved     MessageType = "member_removed"
	MessageMemberRoleUpdated MessageType = "member_role_updated"

	// Comment messages
	MessageCommentAdded   MessageType = "comment_added"
	MessageCommentUpdated MessageType = "comment_updated"
	MessageCommentDeleted MessageType = "comment_deleted"

	// Hierarchy messages
	MessageWorkspaceCreated MessageType = "workspace_created"
	MessageWorkspaceUpdated MessageType = "workspace_updated"
	MessageWorkspaceDeleted MessageType = "workspace_deleted"
	MessageSpaceCreated     MessageType = "space_created"
	MessageSpaceUpdated     MessageType = "space_updated"
	MessageSpaceDeleted     MessageType = "space_deleted"
	MessageFolderCreated    MessageType = "folder_created"
	MessageFolderUpdated    MessageType = "folder_updated"
	MessageFolderDeleted    MessageType = "folder_deleted"
	MessageProjectCreated   MessageType = "project_created"
	MessageProjectUpdated   MessageType = "project_updated"
	MessageProjectDeleted   MessageType = "project_deleted"

	// Chat messages
	MessageChatMessage         MessageType = "chat_message"
	MessageChatMessageUpdated  MessageType = "chat_message_updated"
	MessageChatMessageDeleted  MessageType = "chat_message_deleted"
	MessageChatChannelCreated  MessageType = "chat_channel_created"
	MessageChatChannelUpdated  MessageType = "chat_channel_updated"
	MessageChatChannelDeleted  MessageType = "chat_channel_deleted"
	MessageChatMemberAdded     MessageType = "chat_member_added"
	MessageChatMemberRemoved   MessageType = "chat_member_removed"
	MessageChatReactionAdded   MessageType = "chat_reaction_added"
	MessageChatReactionRemoved MessageType = "chat_reaction_removed"

	// User presence
	MessageUserOnline  MessageType = "user_online"
	MessageUserOffline MessageType = "user_offline"
	MessageUserTyping  MessageType = "user_typing"

	// System messages
	MessagePing MessageType = "ping"
	MessagePong MessageType = "pong"
	MessageAck  MessageType = "ack"
)

// Message is a frame sent by the hub. Some servers put the body under
// "data" instead of "payload"; UnmarshalJSON folds both into Payload.
type Message struct {
	Type      MessageType    `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
	Room      string         `json:"room,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var wire struct {
		Type      MessageType    `json:"type"`
		Payload   map[string]any `json:"payload"`
		Data      map[string]any `json:"data"`
		Room      string         `json:"room"`
		Timestamp time.Time      `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*m = Message{Type: wire.Type, Payload: wire.Payload, Room: wire.Room, Timestamp: wire.Timestamp}
	if m.Payload == nil {
		m.Payload = wire.Data
	}
	return nil
}

// str returns the first non-empty string among the payload fields names.
// A dotted name reaches into nested objects, e.g. "task.id".
func (m Message) str(names ...string) string {
	for _, name := range names {
		var v any = m.Payload
		for _, part := range strings.Split(name, ".") {
			obj, ok := v.(map[string]any)
			if !ok {
				v = nil
				break
			}
			v = obj[part]
		}
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// ClientMessage is a frame sent to the hub.
type ClientMessage struct {
	Action  string         `json:"action"`
	Room    string         `json:"room,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Room names understood by the hub.
func UserRoom(id string) string      { return "user:" + id }
func WorkspaceRoom(id string) string { return "workspace:" + id }
func ProjectRoom(id string) string   { return "project:" + id }
func ChannelRoom(id string) string   { return "channel:" + id }
