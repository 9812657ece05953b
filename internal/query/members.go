package query

import (
	"context"
	"fmt"

	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
	"github.com/Marga-Ghale/ora-scrum-client/internal/types"
)

// MemberQueries covers the generic membership endpoints, where a member of
// an outer entity is inherited by everything nested inside it.
type MemberQueries struct{ c *Client }

// Effective lists direct and inherited members of the entity.
func (q *MemberQueries) Effective(ctx context.Context, entityType, id string) (Result[[]models.Member], error) {
	entityType = types.Normalize(entityType)
	if !types.IsValidEntityType(entityType) {
		return Result[[]models.Member]{State: StateError}, fmt.Errorf("%w: %q", ErrInvalidEntity, entityType)
	}
	if id == "" {
		return idle[[]models.Member]()
	}
	return read[[]models.Member](ctx, q.c, MemberEffectiveKey(entityType, id), memberPath(entityType, id)+"/effective")
}

// Direct lists only memberships granted on the entity itself.
func (q *MemberQueries) Direct(ctx context.Context, entityType, id string) (Result[[]models.Member], error) {
	entityType = types.Normalize(entityType)
	if !types.IsValidEntityType(entityType) {
		return Result[[]models.Member]{State: StateError}, fmt.Errorf("%w: %q", ErrInvalidEntity, entityType)
	}
	if id == "" {
		return idle[[]models.Member]()
	}
	return read[[]models.Member](ctx, q.c, MemberDirectKey(entityType, id), memberPath(entityType, id))
}

func (q *MemberQueries) AccessibleWorkspaces(ctx context.Context) (Result[[]models.AccessibleEntity], error) {
	return q.Accessible(ctx, types.EntityWorkspace)
}

func (q *MemberQueries) AccessibleProjects(ctx context.Context) (Result[[]models.AccessibleEntity], error) {
	return q.Accessible(ctx, types.EntityProject)
}

// Accessible lists the entities of one type the current user can reach.
func (q *MemberQueries) Accessible(ctx context.Context, entityType string) (Result[[]models.AccessibleEntity], error) {
	entityType = types.Normalize(entityType)
	if !types.IsValidEntityType(entityType) {
		return Result[[]models.AccessibleEntity]{State: StateError}, fmt.Errorf("%w: %q", ErrInvalidEntity, entityType)
	}
	if !q.c.api.IsAuthenticated() {
		return idle[[]models.AccessibleEntity]()
	}
	kind := entityType + "s"
	return read[[]models.AccessibleEntity](ctx, q.c, MemberAccessibleKey(kind), "/members/my/accessible/"+kind)
}

func (q *MemberQueries) Add(ctx context.Context, entityType, id string, req models.AddMemberRequest) (*models.Member, error) {
	entityType, err := q.validate(entityType, &req.Role)
	if err != nil {
		return nil, err
	}
	m, err := send[models.Member](ctx, q.c, post, memberPath(entityType, id), req)
	if err != nil {
		return nil, err
	}
	q.changed()
	return &m, nil
}

func (q *MemberQueries) UpdateRole(ctx context.Context, entityType, id, userID, role string) error {
	entityType, err := q.validate(entityType, &role)
	if err != nil {
		return err
	}
	if err := q.c.exec(ctx, put, memberPath(entityType, id)+"/"+userID, models.UpdateMemberRoleRequest{Role: role}); err != nil {
		return err
	}
	q.changed()
	return nil
}

func (q *MemberQueries) Remove(ctx context.Context, entityType, id, userID string) error {
	entityType, err := q.validate(entityType, nil)
	if err != nil {
		return err
	}
	if err := q.c.exec(ctx, del, memberPath(entityType, id)+"/"+userID, nil); err != nil {
		return err
	}
	q.changed()
	return nil
}

// validate normalizes the entity type and, when given, the role.
func (q *MemberQueries) validate(entityType string, role *string) (string, error) {
	entityType = types.Normalize(entityType)
	if !types.IsValidEntityType(entityType) {
		return "", fmt.Errorf("%w: %q", ErrInvalidEntity, entityType)
	}
	if role != nil {
		*role = types.Normalize(*role)
		if !types.IsValidRole(*role) {
			return "", fmt.Errorf("%w: %q", ErrInvalidRole, *role)
		}
	}
	return entityType, nil
}

// changed invalidates every membership view; a change on an outer entity
// alters the effective members of all nested ones.
func (q *MemberQueries) changed() {
	q.c.invalidate(MembersEffectiveKey, MembersDirectKey, WorkspaceMembersKey, ProjectMembersKey)
}

func memberPath(entityType, id string) string {
	return "/members/" + entityType + "/" + id
}
