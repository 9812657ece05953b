package query

import (
	"context"

	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
	"github.com/Marga-Ghale/ora-scrum-client/internal/types"
)

type WorkspaceQueries struct{ c *Client }

func (q *WorkspaceQueries) List(ctx context.Context) (Result[[]models.Workspace], error) {
	return read[[]models.Workspace](ctx, q.c, WorkspaceListKey, "/workspaces")
}

func (q *WorkspaceQueries) Get(ctx context.Context, id string) (Result[models.Workspace], error) {
	if id == "" {
		return idle[models.Workspace]()
	}
	return read[models.Workspace](ctx, q.c, WorkspaceDetailKey(id), "/workspaces/"+id)
}

func (q *WorkspaceQueries) Members(ctx context.Context, id string) (Result[[]models.Member], error) {
	if id == "" {
		return idle[[]models.Member]()
	}
	return read[[]models.Member](ctx, q.c, WorkspaceMemberKey(id), "/workspaces/"+id+"/members")
}

func (q *WorkspaceQueries) Create(ctx context.Context, req models.CreateWorkspaceRequest) (*models.Workspace, error) {
	ws, err := send[models.Workspace](ctx, q.c, post, "/workspaces", req)
	if err != nil {
		return nil, err
	}
	q.c.set(WorkspaceDetailKey(ws.ID), ws)
	q.c.invalidate(WorkspaceListKey, MemberAccessibleKey("workspaces"))
	return &ws, nil
}

func (q *WorkspaceQueries) Update(ctx context.Context, id string, req models.UpdateWorkspaceRequest) (*models.Workspace, error) {
	ws, err := send[models.Workspace](ctx, q.c, put, "/workspaces/"+id, req)
	if err != nil {
		return nil, err
	}
	q.c.set(WorkspaceDetailKey(id), ws)
	q.c.invalidate(WorkspaceListKey)
	return &ws, nil
}

func (q *WorkspaceQueries) Delete(ctx context.Context, id string) error {
	if err := q.c.exec(ctx, del, "/workspaces/"+id, nil); err != nil {
		return err
	}
	q.c.remove(WorkspaceDetailKey(id), WorkspaceMemberKey(id), SpaceListKey(id))
	q.c.invalidate(WorkspaceListKey, MemberAccessibleKey("workspaces"))
	return nil
}

func (q *WorkspaceQueries) AddMember(ctx context.Context, id string, req models.AddMemberRequest) (*models.Member, error) {
	if !types.IsValidRole(req.Role) {
		return nil, ErrInvalidRole
	}
	m, err := send[models.Member](ctx, q.c, post, "/workspaces/"+id+"/members", req)
	if err != nil {
		return nil, err
	}
	q.membersChanged(id)
	return &m, nil
}

func (q *WorkspaceQueries) UpdateMemberRole(ctx context.Context, id, userID, role string) error {
	if !types.IsValidRole(role) {
		return ErrInvalidRole
	}
	err := q.c.exec(ctx, put, "/workspaces/"+id+"/members/"+userID, models.UpdateMemberRoleRequest{Role: role})
	if err != nil {
		return err
	}
	q.membersChanged(id)
	return nil
}

func (q *WorkspaceQueries) RemoveMember(ctx context.Context, id, userID string) error {
	if err := q.c.exec(ctx, del, "/workspaces/"+id+"/members/"+userID, nil); err != nil {
		return err
	}
	q.membersChanged(id)
	return nil
}

// Workspace grants flow down to every space and project, so all effective
// member lists are refetched.
func (q *WorkspaceQueries) membersChanged(id string) {
	q.c.invalidate(WorkspaceMemberKey(id), WorkspaceDetailKey(id), MembersKey, ProjectMembersKey)
}
