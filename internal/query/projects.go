package query

import (
	"context"

	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
	"github.com/Marga-Ghale/ora-scrum-client/internal/types"
)

type ProjectQueries struct{ c *Client }

func (q *ProjectQueries) List(ctx context.Context, spaceID string) (Result[[]models.Project], error) {
	if spaceID == "" {
		return idle[[]models.Project]()
	}
	return read[[]models.Project](ctx, q.c, ProjectListKey(spaceID), "/spaces/"+spaceID+"/projects")
}

func (q *ProjectQueries) ListByFolder(ctx context.Context, folderID string) (Result[[]models.Project], error) {
	if folderID == "" {
		return idle[[]models.Project]()
	}
	return read[[]models.Project](ctx, q.c, ProjectFolderListKey(folderID), "/folders/"+folderID+"/projects")
}

func (q *ProjectQueries) Get(ctx context.Context, id string) (Result[models.Project], error) {
	if id == "" {
		return idle[models.Project]()
	}
	return read[models.Project](ctx, q.c, ProjectDetailKey(id), "/projects/"+id)
}

func (q *ProjectQueries) Members(ctx context.Context, id string) (Result[[]models.Member], error) {
	if id == "" {
		return idle[[]models.Member]()
	}
	return read[[]models.Member](ctx, q.c, ProjectMemberKey(id), "/projects/"+id+"/members")
}

func (q *ProjectQueries) Create(ctx context.Context, spaceID string, req models.CreateProjectRequest) (*models.Project, error) {
	p, err := send[models.Project](ctx, q.c, post, "/spaces/"+spaceID+"/projects", req)
	if err != nil {
		return nil, err
	}
	q.c.set(ProjectDetailKey(p.ID), p)
	q.c.invalidate(ProjectListKey(spaceID), MemberAccessibleKey("projects"))
	if req.FolderID != nil && *req.FolderID != "" {
		q.c.invalidate(ProjectFolderListKey(*req.FolderID))
	}
	return &p, nil
}

func (q *ProjectQueries) Update(ctx context.Context, id string, req models.UpdateProjectRequest) (*models.Project, error) {
	p, err := send[models.Project](ctx, q.c, put, "/projects/"+id, req)
	if err != nil {
		return nil, err
	}
	q.c.set(ProjectDetailKey(id), p)
	q.c.invalidate(ProjectListsKey, ProjectFolderListsKey)
	return &p, nil
}

// Delete also drops everything scoped to the project.
func (q *ProjectQueries) Delete(ctx context.Context, id string) error {
	if err := q.c.exec(ctx, del, "/projects/"+id, nil); err != nil {
		return err
	}
	q.c.remove(ProjectDetailKey(id), ProjectMemberKey(id), LabelListKey(id))
	q.c.invalidate(ProjectListsKey, ProjectFolderListsKey, TasksKey, SprintsKey, MemberAccessibleKey("projects"))
	return nil
}

func (q *ProjectQueries) AddMember(ctx context.Context, id string, req models.AddMemberRequest) (*models.Member, error) {
	if !types.IsValidRole(req.Role) {
		return nil, ErrInvalidRole
	}
	m, err := send[models.Member](ctx, q.c, post, "/projects/"+id+"/members", req)
	if err != nil {
		return nil, err
	}
	q.membersChanged(id)
	return &m, nil
}

func (q *ProjectQueries) UpdateMemberRole(ctx context.Context, id, userID, role string) error {
	if !types.IsValidRole(role) {
		return ErrInvalidRole
	}
	err := q.c.exec(ctx, put, "/projects/"+id+"/members/"+userID, models.UpdateMemberRoleRequest{Role: role})
	if err != nil {
		return err
	}
	q.membersChanged(id)
	return nil
}

func (q *ProjectQueries) RemoveMember(ctx context.Context, id, userID string) error {
	if err := q.c.exec(ctx, del, "/projects/"+id+"/members/"+userID, nil); err != nil {
		return err
	}
	q.membersChanged(id)
	return nil
}

func (q *ProjectQueries) membersChanged(id string) {
	q.c.invalidate(ProjectMemberKey(id), ProjectDetailKey(id), MembersKey)
}
