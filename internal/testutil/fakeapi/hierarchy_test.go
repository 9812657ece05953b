package fakeapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/ora-scrum-client/internal/types"
)

func TestResolveRole(t *testing.T) {
	admin := types.RoleAdmin
	ancestors := []heldRole{
		{EntityType: types.EntitySpace, Role: types.RoleMember},
		{EntityType: types.EntityWorkspace, Role: types.RoleOwner},
	}

	role, from, ok := resolveRole(&admin, ancestors)
	require.True(t, ok)
	assert.Equal(t, types.RoleAdmin, role)
	assert.Empty(t, from)

	role, from, ok = resolveRole(nil, ancestors)
	require.True(t, ok)
	assert.Equal(t, types.RoleMember, role, "the nearest ancestor wins")
	assert.Equal(t, types.EntitySpace, from)

	_, _, ok = resolveRole(nil, nil)
	assert.False(t, ok)
}

func TestFolderSitsBetweenProjectAndSpace(t *testing.T) {
	s := New(t)
	owner := s.AddUser("Ada", "ada@example.com", "pw")
	ws := s.AddWorkspace("Acme", owner.ID)
	space := s.AddSpace(ws.ID, "Engineering")
	folder := s.AddFolder(space.ID, "Backend", owner.ID)
	p := s.AddProject(space.ID, "Platform", "PLAT")

	s.mu.Lock()
	loose := s.ancestors(types.EntityProject, p.ID)
	s.mu.Unlock()
	assert.Equal(t, []ref{{types.EntitySpace, space.ID}, {types.EntityWorkspace, ws.ID}}, loose)

	s.MoveProject(p.ID, folder.ID)
	s.mu.Lock()
	filed := s.ancestors(types.EntityProject, p.ID)
	s.mu.Unlock()
	assert.Equal(t, []ref{
		{types.EntityFolder, folder.ID},
		{types.EntitySpace, space.ID},
		{types.EntityWorkspace, ws.ID},
	}, filed)
}
