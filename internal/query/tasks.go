package query

import (
	"context"
	"fmt"

	"github.com/Marga-Ghale/ora-scrum-client/internal/cache"
	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
	"github.com/Marga-Ghale/ora-scrum-client/internal/optimistic"
	"github.com/Marga-Ghale/ora-scrum-client/internal/types"
)

type TaskQueries struct{ c *Client }

// ============================================
// Reads
// ============================================

func (q *TaskQueries) List(ctx context.Context, projectID string, f models.TaskFilters) (Result[[]models.Task], error) {
	if projectID == "" {
		return idle[[]models.Task]()
	}
	path := "/projects/" + projectID + "/tasks"
	if qs := f.Values().Encode(); qs != "" {
		path += "?" + qs
	}
	return read[[]models.Task](ctx, q.c, TaskListKey(projectID, f), path)
}

// Backlog lists the project's tasks that belong to no sprint.
func (q *TaskQueries) Backlog(ctx context.Context, projectID string) (Result[[]models.Task], error) {
	if projectID == "" {
		return idle[[]models.Task]()
	}
	return read[[]models.Task](ctx, q.c, TaskBacklogKey(projectID), "/projects/"+projectID+"/tasks?sprintId=null")
}

func (q *TaskQueries) BySprint(ctx context.Context, sprintID string) (Result[[]models.Task], error) {
	if sprintID == "" {
		return idle[[]models.Task]()
	}
	return read[[]models.Task](ctx, q.c, TaskSprintKey(sprintID), "/sprints/"+sprintID+"/tasks")
}

func (q *TaskQueries) Get(ctx context.Context, id string) (Result[models.Task], error) {
	if id == "" {
		return idle[models.Task]()
	}
	return read[models.Task](ctx, q.c, TaskDetailKey(id), "/tasks/"+id)
}

func (q *TaskQueries) Subtasks(ctx context.Context, id string) (Result[[]models.Task], error) {
	if id == "" {
		return idle[[]models.Task]()
	}
	return read[[]models.Task](ctx, q.c, TaskSubtaskKey(id), "/tasks/"+id+"/subtasks")
}

// Mine lists the tasks assigned to the current user.
func (q *TaskQueries) Mine(ctx context.Context) (Result[[]models.Task], error) {
	if !q.c.api.IsAuthenticated() {
		return idle[[]models.Task]()
	}
	return read[[]models.Task](ctx, q.c, TaskMineKey, "/tasks/my")
}

func (q *TaskQueries) Comments(ctx context.Context, taskID string) (Result[[]models.Comment], error) {
	if taskID == "" {
		return idle[[]models.Comment]()
	}
	return read[[]models.Comment](ctx, q.c, TaskCommentKey(taskID), "/tasks/"+taskID+"/comments")
}

// ============================================
// Mutations
// ============================================

var taskListFamilies = []cache.Key{TaskListsKey, TaskBacklogsKey, TaskSprintsKey, TaskMineKey}

func (q *TaskQueries) Create(ctx context.Context, projectID string, req models.CreateTaskRequest) (*models.Task, error) {
	if err := normalizeTaskFields(&req.Status, &req.Priority); err != nil {
		return nil, err
	}
	t, err := send[models.Task](ctx, q.c, post, "/projects/"+projectID+"/tasks", req)
	if err != nil {
		return nil, err
	}
	q.c.set(TaskDetailKey(t.ID), t)
	q.c.invalidate(TaskListsKey.With(projectID), TaskMineKey)
	if t.SprintID != nil && *t.SprintID != "" {
		q.c.invalidate(TaskSprintKey(*t.SprintID))
	} else {
		q.c.invalidate(TaskBacklogKey(projectID))
	}
	return &t, nil
}

func (q *TaskQueries) Update(ctx context.Context, id string, req models.UpdateTaskRequest) (*models.Task, error) {
	if req.Status != nil {
		s := types.Normalize(*req.Status)
		if !types.IsValidTaskStatus(s) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *req.Status)
		}
		req.Status = &s
	}
	if req.Priority != nil {
		p := types.Normalize(*req.Priority)
		if !types.IsValidPriority(p) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPriority, *req.Priority)
		}
		req.Priority = &p
	}
	return q.patchDetail(ctx, put, id, req, taskListFamilies...)
}

// UpdateStatus moves a task between board columns. The cached detail shows
// the new status at once and reverts exactly if the server refuses.
func (q *TaskQueries) UpdateStatus(ctx context.Context, id, status string) (*models.Task, error) {
	status = types.Normalize(status)
	if !types.IsValidTaskStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	detail := TaskDetailKey(id)
	t, err := optimistic.Run(ctx, q.c.store, optimistic.Plan[models.Task]{
		Targets: []cache.Op{cache.UpdateJSON(detail, func(t *models.Task) bool {
			t.Status = status
			return true
		})},
		Cancel: []cache.Key{TasksKey},
		Call: func(ctx context.Context) (models.Task, error) {
			return send[models.Task](ctx, q.c, patch, "/tasks/"+id, models.UpdateTaskStatusRequest{Status: status})
		},
		Confirm: func(t models.Task) []cache.Op {
			return []cache.Op{cache.SetJSON(detail, t)}
		},
		Invalidate: taskListFamilies,
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (q *TaskQueries) UpdatePriority(ctx context.Context, id, priority string) (*models.Task, error) {
	priority = types.Normalize(priority)
	if !types.IsValidPriority(priority) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}
	return q.patchDetail(ctx, patch, id, map[string]any{"priority": priority}, taskListFamilies...)
}

// Assign replaces the assignees; an empty list unassigns.
func (q *TaskQueries) Assign(ctx context.Context, id string, assigneeIDs []string) (*models.Task, error) {
	if assigneeIDs == nil {
		assigneeIDs = []string{}
	}
	return q.patchDetail(ctx, patch, id, map[string]any{"assigneeIds": assigneeIDs}, taskListFamilies...)
}

// MoveToSprint plans the task into sprintID, or back to the backlog when
// sprintID is nil.
func (q *TaskQueries) MoveToSprint(ctx context.Context, id string, sprintID *string) (*models.Task, error) {
	return q.patchDetail(ctx, patch, id, map[string]any{"sprintId": sprintID}, TasksKey, SprintsKey)
}

func (q *TaskQueries) patchDetail(ctx context.Context, method, id string, body any, stale ...cache.Key) (*models.Task, error) {
	t, err := send[models.Task](ctx, q.c, method, "/tasks/"+id, body)
	if err != nil {
		return nil, err
	}
	q.c.set(TaskDetailKey(id), t)
	q.c.invalidate(stale...)
	return &t, nil
}

func (q *TaskQueries) Delete(ctx context.Context, id string) error {
	if err := q.c.exec(ctx, del, "/tasks/"+id, nil); err != nil {
		return err
	}
	q.c.remove(TaskDetailKey(id), TaskCommentKey(id), TaskSubtaskKey(id))
	q.c.invalidate(TasksKey)
	return nil
}

// BulkUpdate applies reorderings and column moves in one request.
func (q *TaskQueries) BulkUpdate(ctx context.Context, items []models.BulkTaskUpdate) error {
	for i := range items {
		if items[i].Status != nil {
			s := types.Normalize(*items[i].Status)
			if !types.IsValidTaskStatus(s) {
				return fmt.Errorf("%w: %q", ErrInvalidStatus, *items[i].Status)
			}
			items[i].Status = &s
		}
	}
	if err := q.c.exec(ctx, put, "/tasks/bulk", map[string]any{"tasks": items}); err != nil {
		return err
	}
	q.c.invalidate(TasksKey)
	return nil
}

// Duplicate creates a backlog copy of t in its project.
func (q *TaskQueries) Duplicate(ctx context.Context, t models.Task) (*models.Task, error) {
	return q.Create(ctx, t.ProjectID, models.CreateTaskRequest{
		Title:       t.Title + " (copy)",
		Description: t.Description,
		Status:      types.StatusBacklog,
		Priority:    t.Priority,
		Type:        t.Type,
		SprintID:    t.SprintID,
		StoryPoints: t.StoryPoints,
		LabelIDs:    t.LabelIDs,
	})
}

// ============================================
// Comments
// ============================================

func (q *TaskQueries) AddComment(ctx context.Context, taskID string, req models.CreateCommentRequest) (*models.Comment, error) {
	cm, err := send[models.Comment](ctx, q.c, post, "/tasks/"+taskID+"/comments", req)
	if err != nil {
		return nil, err
	}
	q.c.invalidate(TaskCommentKey(taskID))
	return &cm, nil
}

func (q *TaskQueries) UpdateComment(ctx context.Context, commentID, content string) (*models.Comment, error) {
	cm, err := send[models.Comment](ctx, q.c, put, "/comments/"+commentID, models.UpdateCommentRequest{Content: content})
	if err != nil {
		return nil, err
	}
	q.c.invalidate(TaskCommentsKey)
	return &cm, nil
}

func (q *TaskQueries) DeleteComment(ctx context.Context, commentID string) error {
	if err := q.c.exec(ctx, del, "/comments/"+commentID, nil); err != nil {
		return err
	}
	q.c.invalidate(TaskCommentsKey)
	return nil
}

// normalizeTaskFields lowercases optional status and priority values and
// rejects unknown ones.
func normalizeTaskFields(status, priority *string) error {
	if *status != "" {
		*status = types.Normalize(*status)
		if !types.IsValidTaskStatus(*status) {
			return fmt.Errorf("%w: %q", ErrInvalidStatus, *status)
		}
	}
	if *priority != "" {
		*priority = types.Normalize(*priority)
		if !types.IsValidPriority(*priority) {
			return fmt.Errorf("%w: %q", ErrInvalidPriority, *priority)
		}
	}
	return nil
}
