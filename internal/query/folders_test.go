package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
	"github.com/Marga-Ghale/ora-scrum-client/internal/types"
)

type folderFixture struct {
	*harness
	ws    models.Workspace
	space models.Space
}

func newFolderFixture(t *testing.T) *folderFixture {
	t.Helper()
	h := newHarness(t)
	ws := h.srv.AddWorkspace("Acme", h.user.ID)
	return &folderFixture{harness: h, ws: ws, space: h.srv.AddSpace(ws.ID, "Engineering")}
}

func TestFolderReadsStayIdleWithoutID(t *testing.T) {
	f := newFolderFixture(t)
	ctx := context.Background()

	list, err := f.c.Folders.BySpace(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, StateIdle, list.State)

	folder, err := f.c.Folders.Get(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, StateIdle, folder.State)

	projects, err := f.c.Projects.ListByFolder(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, StateIdle, projects.State)
	assert.Zero(t, f.srv.Hits("GET", "/folders/:id/projects"))
}

func TestCreateFolderRefreshesSpaceList(t *testing.T) {
	f := newFolderFixture(t)
	ctx := context.Background()
	f.srv.AddFolder(f.space.ID, "Backend", f.user.ID)

	list, err := f.c.Folders.BySpace(ctx, f.space.ID)
	require.NoError(t, err)
	require.Len(t, list.Data, 1)

	created, err := f.c.Folders.Create(ctx, f.space.ID, models.CreateFolderRequest{Name: "Frontend"})
	require.NoError(t, err)
	assert.Equal(t, f.space.ID, created.SpaceID)

	detail := cached[models.Folder](t, f.c, FolderDetailKey(created.ID))
	assert.Equal(t, "Frontend", detail.Name)

	list, err = f.c.Folders.BySpace(ctx, f.space.ID)
	require.NoError(t, err)
	assert.Len(t, list.Data, 2)

	mine, err := f.c.Folders.Mine(ctx)
	require.NoError(t, err)
	assert.Len(t, mine.Data, 2)
}

func TestUpdateFolderVisibilityRefetchesDetail(t *testing.T) {
	f := newFolderFixture(t)
	ctx := context.Background()
	folder := f.srv.AddFolder(f.space.ID, "Backend", f.user.ID)

	_, err := f.c.Folders.Get(ctx, folder.ID)
	require.NoError(t, err)

	err = f.c.Folders.UpdateVisibility(ctx, folder.ID, models.UpdateFolderVisibilityRequest{
		Visibility:   "private",
		AllowedUsers: []string{f.user.ID},
	})
	require.NoError(t, err)

	got, err := f.c.Folders.Get(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, "private", got.Data.Visibility)
	assert.Equal(t, []string{f.user.ID}, got.Data.AllowedUsers)
	assert.Equal(t, 2, f.srv.Hits("GET", "/folders/:id"))
}

func TestRenameFolderWritesDetail(t *testing.T) {
	f := newFolderFixture(t)
	folder := f.srv.AddFolder(f.space.ID, "Backend", f.user.ID)

	name := "Services"
	updated, err := f.c.Folders.Update(context.Background(), folder.ID, models.UpdateFolderRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Services", updated.Name)
	assert.Equal(t, "Services", cached[models.Folder](t, f.c, FolderDetailKey(folder.ID)).Name)
}

func TestDeleteFolderDetachesProjects(t *testing.T) {
	f := newFolderFixture(t)
	ctx := context.Background()
	folder := f.srv.AddFolder(f.space.ID, "Backend", f.user.ID)
	p := f.srv.AddProject(f.space.ID, "Platform", "PLAT")
	f.srv.MoveProject(p.ID, folder.ID)

	inFolder, err := f.c.Projects.ListByFolder(ctx, folder.ID)
	require.NoError(t, err)
	require.Len(t, inFolder.Data, 1)
	_, err = f.c.Projects.List(ctx, f.space.ID)
	require.NoError(t, err)

	require.NoError(t, f.c.Folders.Delete(ctx, folder.ID))
	_, ok := f.srv.Folder(folder.ID)
	assert.False(t, ok)
	_, ok = f.c.Store().Read(ProjectFolderListKey(folder.ID))
	assert.False(t, ok)

	inSpace, err := f.c.Projects.List(ctx, f.space.ID)
	require.NoError(t, err)
	require.Len(t, inSpace.Data, 1)
	assert.Nil(t, inSpace.Data[0].FolderID)
}

func TestProjectInFolderInheritsFolderMembers(t *testing.T) {
	f := newFolderFixture(t)
	folder := f.srv.AddFolder(f.space.ID, "Backend", f.user.ID)
	p := f.srv.AddProject(f.space.ID, "Platform", "PLAT")
	f.srv.MoveProject(p.ID, folder.ID)

	bob := f.srv.AddUser("Bob", "bob@example.com", "pw")
	f.srv.AddMember(types.EntityFolder, folder.ID, bob.ID, types.RoleLead)

	res, err := f.c.Members.Effective(context.Background(), types.EntityProject, p.ID)
	require.NoError(t, err)
	rows := byUser(res.Data)
	require.Contains(t, rows, bob.ID)
	assert.True(t, rows[bob.ID].IsInherited)
	assert.Equal(t, types.EntityFolder, rows[bob.ID].InheritedFrom)
	assert.Equal(t, types.RoleLead, rows[bob.ID].Role)
}
