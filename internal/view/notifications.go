package view

import (
	"sort"
	"time"

	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
	"github.com/Marga-Ghale/ora-scrum-client/internal/types"
)

// unknownNotificationPriority sorts unrecognised types last.
const unknownNotificationPriority = 5

var notificationPriority = map[string]int{
	types.NotificationTaskOverdue:         0,
	types.NotificationTaskAssigned:        1,
	types.NotificationTaskDueSoon:         1,
	types.NotificationSprintStarted:       1,
	types.NotificationSprintCompleted:     1,
	types.NotificationSprintEnding:        1,
	types.NotificationMention:             1,
	types.NotificationProjectInvitation:   1,
	types.NotificationWorkspaceInvitation: 1,
	types.NotificationTaskCommented:       2,
	types.NotificationTaskUpdated:         3,
	types.NotificationTaskStatusChanged:   3,
	types.NotificationTaskCreated:         4,
	types.NotificationTaskDeleted:         4,
}

// NotificationPriority ranks a notification type, lower first.
func NotificationPriority(notificationType string) int {
	if p, ok := notificationPriority[notificationType]; ok {
		return p
	}
	return unknownNotificationPriority
}

// SortNotifications returns a copy ordered unread first, then by type
// priority, then newest first.
func SortNotifications(list []models.Notification) []models.Notification {
	out := append([]models.Notification(nil), list...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Read != b.Read {
			return !a.Read
		}
		if pa, pb := NotificationPriority(a.Type), NotificationPriority(b.Type); pa != pb {
			return pa < pb
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return out
}

// GroupNotifications sorts the list and buckets it by day.
func GroupNotifications(list []models.Notification, now time.Time) []DateGroup[models.Notification] {
	return GroupByDate(SortNotifications(list), func(n models.Notification) time.Time {
		return n.CreatedAt
	}, now)
}

// NotificationLink returns the in-app route a notification points at. The
// explicit data.action wins; otherwise the most specific id present decides.
func NotificationLink(n models.Notification) string {
	d := n.Data
	taskID, projectID, sprintID, workspaceID := d["taskId"], d["projectId"], d["sprintId"], d["workspaceId"]

	switch d["action"] {
	case "view_task":
		if taskID != "" && projectID != "" {
			return taskLink(projectID, taskID)
		}
	case "view_project":
		if projectID != "" {
			return boardLink(projectID)
		}
	case "view_sprint":
		if sprintID != "" {
			return "/sprints/" + sprintID
		}
	case "view_workspace":
		if workspaceID != "" {
			return "/workspace/" + workspaceID
		}
	}

	switch {
	case taskID != "" && projectID != "":
		return taskLink(projectID, taskID)
	case projectID != "":
		return boardLink(projectID)
	case sprintID != "":
		return "/sprints/" + sprintID
	case workspaceID != "":
		return "/workspace/" + workspaceID
	}
	return "/"
}

func boardLink(projectID string) string { return "/project/" + projectID + "/board" }

func taskLink(projectID, taskID string) string { return boardLink(projectID) + "?task=" + taskID }
