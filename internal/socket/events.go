package socket

import (
	"github.com/Marga-Ghale/ora-scrum-client/internal/cache"
	"github.com/Marga-Ghale/ora-scrum-client/internal/query"
)

var taskLists = []cache.Key{query.TaskListsKey, query.TaskBacklogsKey, query.TaskSprintsKey, query.TaskMineKey}

// Invalidations returns the cache prefixes a hub event makes stale, and
// whether the event type is known at all. Task, sprint and comment events
// also touch notifications, since the server raises one alongside them.
func Invalidations(msg Message) ([]cache.Key, bool) {
	switch msg.Type {
	case MessageNotification, MessageNotificationRead, MessageNotificationCount:
		return []cache.Key{query.NotificationsKey}, true

	case MessageTaskCreated, MessageTaskDeleted:
		keys := append([]cache.Key{query.NotificationsKey}, taskLists...)
		if id := msg.str("taskId", "task.id", "id"); id != "" && msg.Type == MessageTaskDeleted {
			keys = append(keys, query.TaskDetailKey(id))
		}
		return keys, true

	case MessageTaskUpdated, MessageTaskStatusChanged, MessageTaskAssigned, MessageTaskPositionChanged:
		keys := append([]cache.Key{query.NotificationsKey}, taskLists...)
		if id := msg.str("task.id", "taskId"); id != "" {
			keys = append(keys, query.TaskDetailKey(id))
		}
		return keys, true

	case MessageCommentAdded, MessageCommentUpdated, MessageCommentDeleted:
		if id := msg.str("taskId", "comment.taskId"); id != "" {
			return []cache.Key{query.NotificationsKey, query.TaskCommentKey(id)}, true
		}
		return []cache.Key{query.NotificationsKey, query.TaskCommentsKey}, true

	case MessageSprintStarted, MessageSprintCompleted:
		return []cache.Key{query.NotificationsKey, query.SprintsKey}, true

	case MessageMemberAdded, MessageMemberRemoved, MessageMemberRoleUpdated:
		return []cache.Key{query.MembersKey, query.ProjectMembersKey, query.WorkspaceMembersKey}, true

	case MessageWorkspaceCreated, MessageWorkspaceUpdated, MessageWorkspaceDeleted:
		return []cache.Key{query.WorkspacesKey}, true
	case MessageSpaceCreated, MessageSpaceUpdated, MessageSpaceDeleted:
		return []cache.Key{query.SpacesKey}, true
	case MessageFolderCreated, MessageFolderUpdated, MessageFolderDeleted:
		return []cache.Key{query.FoldersKey, query.ProjectFolderListsKey, query.ProjectListsKey}, true
	case MessageProjectCreated, MessageProjectUpdated, MessageProjectDeleted:
		return []cache.Key{query.ProjectsKey}, true

	case MessageChatMessage:
		return append(channelMessages(msg), query.ChatUnreadKey, query.ChatChannelsKey), true
	case MessageChatMessageUpdated, MessageChatMessageDeleted, MessageChatReactionAdded, MessageChatReactionRemoved:
		return append(channelMessages(msg), query.ChatThreadsKey), true
	case MessageChatChannelCreated, MessageChatChannelUpdated, MessageChatChannelDeleted:
		keys := []cache.Key{query.ChatChannelsKey}
		if id := msg.str("channelId", "channel.id"); id != "" {
			keys = append(keys, query.ChatChannelKey(id))
		}
		return keys, true
	case MessageChatMemberAdded, MessageChatMemberRemoved:
		keys := []cache.Key{query.ChatChannelsKey}
		if id := msg.str("channelId"); id != "" {
			keys = append(keys, query.ChatMembersKey(id))
		}
		return keys, true

	case MessagePing, MessagePong, MessageAck, MessageUserOnline, MessageUserOffline, MessageUserTyping:
		return nil, true
	}
	return nil, false
}

func channelMessages(msg Message) []cache.Key {
	if id := msg.str("channelId", "message.channelId"); id != "" {
		return []cache.Key{query.ChatChannelMessagesKey(id)}
	}
	return []cache.Key{query.ChatMessagesKey}
}
