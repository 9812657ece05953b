package types

import "strings"

// Task Status values
const (
	StatusBacklog    = "backlog"
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusInReview   = "in_review"
	StatusDone       = "done"
	StatusCancelled  = "cancelled"
)

// Task Priority values
const (
	PriorityUrgent = "urgent"
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
	PriorityNone   = "none"
)

// Task Type values
const (
	TypeEpic    = "epic"
	TypeStory   = "story"
	TypeTask    = "task"
	TypeBug     = "bug"
	TypeSubtask = "subtask"
)

// Sprint Status values
const (
	SprintPlanning  = "planning"
	SprintActive    = "active"
	SprintCompleted = "completed"
	SprintCancelled = "cancelled"
)

// User Status values
const (
	UserOnline  = "online"
	UserOffline = "offline"
	UserAway    = "away"
	UserBusy    = "busy"
)

// Workspace/Project Member Roles
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleLead   = "lead"
	RoleMember = "member"
	RoleViewer = "viewer"
)

// Membership entity types, outermost first
const (
	EntityWorkspace = "workspace"
	EntitySpace     = "space"
	EntityFolder    = "folder"
	EntityProject   = "project"
)

// Chat channel types
const (
	ChannelTeam    = "team"
	ChannelProject = "project"
	ChannelSpace   = "space"
	ChannelDirect  = "direct"
)

// Notification types as sent by the backend
const (
	NotificationTaskAssigned        = "TASK_ASSIGNED"
	NotificationTaskUpdated         = "TASK_UPDATED"
	NotificationTaskCommented       = "TASK_COMMENTED"
	NotificationTaskStatusChanged   = "TASK_STATUS_CHANGED"
	NotificationTaskDueSoon         = "TASK_DUE_SOON"
	NotificationTaskOverdue         = "TASK_OVERDUE"
	NotificationTaskCreated         = "TASK_CREATED"
	NotificationTaskDeleted         = "TASK_DELETED"
	NotificationSprintStarted       = "SPRINT_STARTED"
	NotificationSprintCompleted     = "SPRINT_COMPLETED"
	NotificationSprintEnding        = "SPRINT_ENDING"
	NotificationMention             = "MENTION"
	NotificationProjectInvitation   = "PROJECT_INVITATION"
	NotificationWorkspaceInvitation = "WORKSPACE_INVITATION"
)

// Valid status values for validation
var ValidTaskStatuses = []string{
	StatusBacklog, StatusTodo, StatusInProgress,
	StatusInReview, StatusDone, StatusCancelled,
}

var ValidPriorities = []string{
	PriorityUrgent, PriorityHigh, PriorityMedium,
	PriorityLow, PriorityNone,
}

var ValidTaskTypes = []string{
	TypeEpic, TypeStory, TypeTask, TypeBug, TypeSubtask,
}

var ValidSprintStatuses = []string{
	SprintPlanning, SprintActive, SprintCompleted, SprintCancelled,
}

var ValidUserStatuses = []string{
	UserOnline, UserOffline, UserAway, UserBusy,
}

var ValidEntityTypes = []string{
	EntityWorkspace, EntitySpace, EntityFolder, EntityProject,
}

var ValidChannelTypes = []string{
	ChannelTeam, ChannelProject, ChannelSpace, ChannelDirect,
}

// roleRank orders roles from strongest to weakest.
var roleRank = map[string]int{
	RoleOwner:  5,
	RoleAdmin:  4,
	RoleLead:   3,
	RoleMember: 2,
	RoleViewer: 1,
}

// Helper functions for validation
func IsValidTaskStatus(status string) bool {
	return contains(ValidTaskStatuses, status)
}

func IsValidPriority(priority string) bool {
	return contains(ValidPriorities, priority)
}

func IsValidTaskType(taskType string) bool {
	return contains(ValidTaskTypes, taskType)
}

func IsValidSprintStatus(status string) bool {
	return contains(ValidSprintStatuses, status)
}

func IsValidEntityType(entityType string) bool {
	return contains(ValidEntityTypes, entityType)
}

func IsValidChannelType(channelType string) bool {
	return contains(ValidChannelTypes, channelType)
}

func IsValidRole(role string) bool {
	_, ok := roleRank[role]
	return ok
}

// RoleRank returns the position of role in the owner > admin > lead >
// member > viewer order. Unknown roles rank 0.
func RoleRank(role string) int {
	return roleRank[role]
}

// RoleAtLeast reports whether role grants at least the permissions of min.
func RoleAtLeast(role, min string) bool {
	return RoleRank(role) >= RoleRank(min) && RoleRank(min) > 0
}

// Normalize lowercases an enum value sent in any casing ("IN_PROGRESS",
// "In_Progress") so it can be compared against the constants above.
func Normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// NormalizeUserStatus maps unknown or empty presence values to offline.
func NormalizeUserStatus(status string) string {
	s := Normalize(status)
	if contains(ValidUserStatuses, s) {
		return s
	}
	return UserOffline
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
