package query

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
	"github.com/Marga-Ghale/ora-scrum-client/internal/types"
)

type InvitationQueries struct{ c *Client }

func (q *InvitationQueries) ForWorkspace(ctx context.Context, workspaceID string) (Result[[]models.Invitation], error) {
	if workspaceID == "" {
		return idle[[]models.Invitation]()
	}
	return read[[]models.Invitation](ctx, q.c, InvitationWorkspaceKey(workspaceID), "/workspaces/"+workspaceID+"/invitations")
}

func (q *InvitationQueries) ForProject(ctx context.Context, projectID string) (Result[[]models.Invitation], error) {
	if projectID == "" {
		return idle[[]models.Invitation]()
	}
	return read[[]models.Invitation](ctx, q.c, InvitationProjectKey(projectID), "/projects/"+projectID+"/invitations")
}

// Pending lists invitations addressed to the current user.
func (q *InvitationQueries) Pending(ctx context.Context) (Result[[]models.Invitation], error) {
	if !q.c.api.IsAuthenticated() {
		return idle[[]models.Invitation]()
	}
	return read[[]models.Invitation](ctx, q.c, InvitationPendingKey, "/invitations/pending")
}

func (q *InvitationQueries) InviteToWorkspace(ctx context.Context, workspaceID string, req models.InviteMemberRequest) (*models.Invitation, error) {
	return q.invite(ctx, "/workspaces/"+workspaceID+"/invitations", req)
}

func (q *InvitationQueries) InviteToProject(ctx context.Context, projectID string, req models.InviteMemberRequest) (*models.Invitation, error) {
	return q.invite(ctx, "/projects/"+projectID+"/invitations", req)
}

func (q *InvitationQueries) invite(ctx context.Context, path string, req models.InviteMemberRequest) (*models.Invitation, error) {
	if req.Role == "" {
		req.Role = types.RoleMember
	}
	req.Role = types.Normalize(req.Role)
	if !types.IsValidRole(req.Role) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, req.Role)
	}
	inv, err := send[models.Invitation](ctx, q.c, post, path, req)
	if err != nil {
		return nil, err
	}
	q.c.invalidate(InvitationsKey)
	return &inv, nil
}

// Accept joins the invited entity, which changes what the user can see.
func (q *InvitationQueries) Accept(ctx context.Context, token string) error {
	if err := q.c.exec(ctx, post, "/invitations/accept/"+url.PathEscape(token), nil); err != nil {
		return err
	}
	q.c.invalidate(InvitationsKey, WorkspacesKey, ProjectsKey, MembersKey)
	return nil
}

func (q *InvitationQueries) Cancel(ctx context.Context, id string) error {
	if err := q.c.exec(ctx, del, "/invitations/"+id, nil); err != nil {
		return err
	}
	q.c.invalidate(InvitationsKey)
	return nil
}

// Decline refuses an invitation addressed to the current user. The backend
// shares the cancel endpoint.
func (q *InvitationQueries) Decline(ctx context.Context, id string) error {
	if err := q.c.exec(ctx, del, "/invitations/"+id, nil); err != nil {
		return err
	}
	q.c.invalidate(InvitationPendingKey)
	return nil
}

func (q *InvitationQueries) Resend(ctx context.Context, id string) error {
	if err := q.c.exec(ctx, post, "/invitations/resend/"+id, nil); err != nil {
		return err
	}
	q.c.invalidate(InvitationsKey)
	return nil
}
