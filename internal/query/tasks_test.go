package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/ora-scrum-client/internal/apiclient"
	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
	"github.com/Marga-Ghale/ora-scrum-client/internal/types"
)

// seedProject creates workspace > space > project owned by the harness user.
func seedProject(h *harness) models.Project {
	ws := h.srv.AddWorkspace("Acme", h.user.ID)
	space := h.srv.AddSpace(ws.ID, "Engineering")
	return h.srv.AddProject(space.ID, "Platform", "PLAT")
}

type statusResult struct {
	task *models.Task
	err  error
}

func TestUpdateStatusShowsNewStatusBeforeServerAnswers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := seedProject(h)
	task := h.srv.AddTask(models.Task{ProjectID: p.ID, Title: "Wire login"})

	_, err := h.c.Tasks.Get(ctx, task.ID)
	require.NoError(t, err)

	release := h.srv.Hold("PATCH", "/tasks/:id")
	done := make(chan statusResult, 1)
	go func() {
		updated, err := h.c.Tasks.UpdateStatus(ctx, task.ID, "IN_PROGRESS")
		done <- statusResult{updated, err}
	}()

	waitHit(t, h.srv, "PATCH", "/tasks/:id", 1)
	assert.Equal(t, types.StatusInProgress, cached[models.Task](t, h.c, TaskDetailKey(task.ID)).Status)

	release()
	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, types.StatusInProgress, res.task.Status)

	stored, ok := h.srv.Task(task.ID)
	require.True(t, ok)
	assert.Equal(t, types.StatusInProgress, stored.Status)
	assert.Equal(t, types.StatusInProgress, cached[models.Task](t, h.c, TaskDetailKey(task.ID)).Status)
}

func TestUpdateStatusRollsBackOnConflict(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := seedProject(h)
	task := h.srv.AddTask(models.Task{ProjectID: p.ID, Title: "Wire login"})

	_, err := h.c.Tasks.Get(ctx, task.ID)
	require.NoError(t, err)
	before, ok := h.c.Store().Read(TaskDetailKey(task.ID))
	require.True(t, ok)

	h.srv.Fail("PATCH", "/tasks/:id", 409)
	release := h.srv.Hold("PATCH", "/tasks/:id")
	done := make(chan statusResult, 1)
	go func() {
		updated, err := h.c.Tasks.UpdateStatus(ctx, task.ID, types.StatusDone)
		done <- statusResult{updated, err}
	}()

	waitHit(t, h.srv, "PATCH", "/tasks/:id", 1)
	assert.Equal(t, types.StatusDone, cached[models.Task](t, h.c, TaskDetailKey(task.ID)).Status)

	release()
	res := <-done
	require.Error(t, res.err)
	assert.True(t, apiclient.IsConflict(res.err))

	after, ok := h.c.Store().Read(TaskDetailKey(task.ID))
	require.True(t, ok)
	assert.JSONEq(t, string(before.Value), string(after.Value))
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	h := newHarness(t)

	_, err := h.c.Tasks.UpdateStatus(context.Background(), "t1", "shipped")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Zero(t, h.srv.Hits("PATCH", "/tasks/:id"))
}

func TestCreateTaskInvalidatesBacklog(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := seedProject(h)

	backlog, err := h.c.Tasks.Backlog(ctx, p.ID)
	require.NoError(t, err)
	require.Empty(t, backlog.Data)

	created, err := h.c.Tasks.Create(ctx, p.ID, models.CreateTaskRequest{Title: "Draft roadmap"})
	require.NoError(t, err)

	backlog, err = h.c.Tasks.Backlog(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, backlog.Data, 1)
	assert.Equal(t, created.ID, backlog.Data[0].ID)
	assert.Equal(t, 2, h.srv.Hits("GET", "/projects/:id/tasks"))
}

func TestTaskListKeysSeparateFilters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := seedProject(h)
	h.srv.AddTask(models.Task{ProjectID: p.ID, Title: "a", Status: types.StatusTodo})
	h.srv.AddTask(models.Task{ProjectID: p.ID, Title: "b", Status: types.StatusDone})

	todo, err := h.c.Tasks.List(ctx, p.ID, models.TaskFilters{Status: types.StatusTodo})
	require.NoError(t, err)
	all, err := h.c.Tasks.List(ctx, p.ID, models.TaskFilters{})
	require.NoError(t, err)

	assert.Len(t, todo.Data, 1)
	assert.Len(t, all.Data, 2)
	assert.Len(t, h.c.Store().Keys(TaskListsKey.With(p.ID)), 2)
}

func TestMoveToSprintAndBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := seedProject(h)
	sprint := h.srv.AddSprint(p.ID, "Sprint 1", types.SprintPlanning)
	task := h.srv.AddTask(models.Task{ProjectID: p.ID, Title: "Wire login"})

	moved, err := h.c.Tasks.MoveToSprint(ctx, task.ID, &sprint.ID)
	require.NoError(t, err)
	require.NotNil(t, moved.SprintID)
	assert.Equal(t, sprint.ID, *moved.SprintID)

	back, err := h.c.Tasks.MoveToSprint(ctx, task.ID, nil)
	require.NoError(t, err)
	assert.True(t, back.InBacklog())

	stored, _ := h.srv.Task(task.ID)
	assert.True(t, stored.InBacklog())
}

func TestCommentsRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := seedProject(h)
	task := h.srv.AddTask(models.Task{ProjectID: p.ID, Title: "Wire login"})

	_, err := h.c.Tasks.Comments(ctx, task.ID)
	require.NoError(t, err)

	cm, err := h.c.Tasks.AddComment(ctx, task.ID, models.CreateCommentRequest{Content: "LGTM"})
	require.NoError(t, err)
	assert.Equal(t, h.user.ID, cm.UserID)

	list, err := h.c.Tasks.Comments(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "LGTM", list.Data[0].Content)
}

func TestStartSprintRefreshesActiveSprint(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := seedProject(h)
	sprint := h.srv.AddSprint(p.ID, "Sprint 1", types.SprintPlanning)

	active, err := h.c.Sprints.Active(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, active.Data)

	started, err := h.c.Sprints.Start(ctx, sprint.ID)
	require.NoError(t, err)
	assert.True(t, started.IsActive())

	active, err = h.c.Sprints.Active(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, active.Data)
	assert.Equal(t, sprint.ID, active.Data.ID)
	assert.False(t, active.Stale)
}

func TestCompleteSprintMovesUnfinishedTasksToBacklog(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := seedProject(h)
	sprint := h.srv.AddSprint(p.ID, "Sprint 1", types.SprintPlanning)
	open := h.srv.AddTask(models.Task{ProjectID: p.ID, SprintID: &sprint.ID, Title: "open"})
	finished := h.srv.AddTask(models.Task{ProjectID: p.ID, SprintID: &sprint.ID, Title: "finished", Status: types.StatusDone})

	_, err := h.c.Sprints.Start(ctx, sprint.ID)
	require.NoError(t, err)
	_, err = h.c.Tasks.Backlog(ctx, p.ID)
	require.NoError(t, err)

	_, err = h.c.Sprints.Complete(ctx, sprint.ID, "backlog")
	require.NoError(t, err)

	backlog, err := h.c.Tasks.Backlog(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, backlog.Data, 1)
	assert.Equal(t, open.ID, backlog.Data[0].ID)

	stored, _ := h.srv.Task(finished.ID)
	assert.False(t, stored.InBacklog())
}

func TestStartSecondSprintConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := seedProject(h)
	first := h.srv.AddSprint(p.ID, "Sprint 1", types.SprintPlanning)
	second := h.srv.AddSprint(p.ID, "Sprint 2", types.SprintPlanning)

	_, err := h.c.Sprints.Start(ctx, first.ID)
	require.NoError(t, err)
	_, err = h.c.Sprints.Start(ctx, second.ID)
	require.Error(t, err)
	assert.True(t, apiclient.IsConflict(err))
}
