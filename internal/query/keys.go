package query

import (
	"strconv"

	"github.com/Marga-Ghale/ora-scrum-client/internal/cache"
	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
)

// ============================================
// Cache key families
// ============================================

var (
	AuthUserKey = cache.K("auth", "user")

	UsersKey = cache.K("users")

	WorkspacesKey       = cache.K("workspaces")
	WorkspaceListKey    = cache.K("workspaces", "list")
	WorkspaceMembersKey = cache.K("workspaces", "members")

	SpacesKey     = cache.K("spaces")
	SpaceListsKey = cache.K("spaces", "list")

	FoldersKey     = cache.K("folders")
	FolderListsKey = cache.K("folders", "space")
	FolderMineKey  = cache.K("folders", "my")

	ProjectsKey           = cache.K("projects")
	ProjectListsKey       = cache.K("projects", "list")
	ProjectFolderListsKey = cache.K("projects", "folder")
	ProjectMembersKey     = cache.K("projects", "members")

	SprintsKey       = cache.K("sprints")
	SprintListsKey   = cache.K("sprints", "list")
	SprintActivesKey = cache.K("sprints", "active")

	TasksKey        = cache.K("tasks")
	TaskListsKey    = cache.K("tasks", "list")
	TaskBacklogsKey = cache.K("tasks", "backlog")
	TaskSprintsKey  = cache.K("tasks", "sprint")
	TaskCommentsKey = cache.K("tasks", "comments")
	TaskMineKey     = cache.K("tasks", "my")

	LabelsKey = cache.K("labels")

	NotificationsKey      = cache.K("notifications")
	NotificationListKey   = cache.K("notifications", "list")
	NotificationUnreadKey = cache.K("notifications", "unread")
	NotificationCountKey  = cache.K("notifications", "count")

	ChatKey         = cache.K("chat")
	ChatChannelsKey = cache.K("chat", "channels")
	ChatMessagesKey = cache.K("chat", "messages")
	ChatThreadsKey  = cache.K("chat", "thread")
	ChatUnreadKey   = cache.K("chat", "unread")

	MembersKey          = cache.K("members")
	MembersEffectiveKey = cache.K("members", "effective")
	MembersDirectKey    = cache.K("members", "direct")

	InvitationsKey = cache.K("invitations")
)

func UserSearchKey(q string) cache.Key { return UsersKey.With("search", q) }

func WorkspaceDetailKey(id string) cache.Key { return WorkspacesKey.With("detail", id) }
func WorkspaceMemberKey(id string) cache.Key { return WorkspaceMembersKey.With(id) }

func SpaceListKey(workspaceID string) cache.Key { return SpaceListsKey.With(workspaceID) }
func SpaceDetailKey(id string) cache.Key        { return SpacesKey.With("detail", id) }

func FolderListKey(spaceID string) cache.Key { return FolderListsKey.With(spaceID) }
func FolderDetailKey(id string) cache.Key    { return FoldersKey.With("detail", id) }

func ProjectListKey(spaceID string) cache.Key        { return ProjectListsKey.With(spaceID) }
func ProjectFolderListKey(folderID string) cache.Key { return ProjectFolderListsKey.With(folderID) }
func ProjectDetailKey(id string) cache.Key           { return ProjectsKey.With("detail", id) }
func ProjectMemberKey(id string) cache.Key           { return ProjectMembersKey.With(id) }

func SprintListKey(projectID string) cache.Key   { return SprintListsKey.With(projectID) }
func SprintActiveKey(projectID string) cache.Key { return SprintActivesKey.With(projectID) }
func SprintDetailKey(id string) cache.Key        { return SprintsKey.With("detail", id) }

// TaskListKey separates every filter combination into its own entry.
func TaskListKey(projectID string, f models.TaskFilters) cache.Key {
	return TaskListsKey.With(projectID, f.Key())
}
func TaskBacklogKey(projectID string) cache.Key { return TaskBacklogsKey.With(projectID) }
func TaskSprintKey(sprintID string) cache.Key   { return TaskSprintsKey.With(sprintID) }
func TaskDetailKey(id string) cache.Key         { return TasksKey.With("detail", id) }
func TaskCommentKey(taskID string) cache.Key    { return TaskCommentsKey.With(taskID) }
func TaskSubtaskKey(id string) cache.Key        { return TasksKey.With("subtasks", id) }

func LabelListKey(projectID string) cache.Key { return LabelsKey.With("list", projectID) }

func ChatWorkspaceChannelsKey(workspaceID string) cache.Key {
	return ChatChannelsKey.With("workspace", workspaceID)
}
func ChatChannelKey(id string) cache.Key { return ChatKey.With("channel", id) }
func ChatChannelTargetKey(targetType, targetID string) cache.Key {
	return ChatKey.With("channel", "target", targetType, targetID)
}

// ChatMessageListKey covers one page; ChatChannelMessagesKey every page of a channel.
func ChatMessageListKey(channelID string, limit, offset int) cache.Key {
	return ChatMessagesKey.With(channelID, strconv.Itoa(limit), strconv.Itoa(offset))
}
func ChatChannelMessagesKey(channelID string) cache.Key { return ChatMessagesKey.With(channelID) }
func ChatThreadKey(parentID string) cache.Key           { return ChatThreadsKey.With(parentID) }
func ChatMembersKey(channelID string) cache.Key         { return ChatKey.With("members", channelID) }
func ChatSearchKey(channelID, q string) cache.Key       { return ChatKey.With("search", channelID, q) }

func MemberEffectiveKey(entityType, id string) cache.Key {
	return MembersEffectiveKey.With(entityType, id)
}
func MemberDirectKey(entityType, id string) cache.Key { return MembersDirectKey.With(entityType, id) }
func MemberAccessibleKey(entityType string) cache.Key {
	return MembersKey.With("accessible", entityType)
}

func InvitationWorkspaceKey(id string) cache.Key { return InvitationsKey.With("workspace", id) }
func InvitationProjectKey(id string) cache.Key   { return InvitationsKey.With("project", id) }

var InvitationPendingKey = InvitationsKey.With("pending")
