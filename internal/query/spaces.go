package query

import (
	"context"

	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
)

type SpaceQueries struct{ c *Client }

func (q *SpaceQueries) List(ctx context.Context, workspaceID string) (Result[[]models.Space], error) {
	if workspaceID == "" {
		return idle[[]models.Space]()
	}
	return read[[]models.Space](ctx, q.c, SpaceListKey(workspaceID), "/workspaces/"+workspaceID+"/spaces")
}

func (q *SpaceQueries) Get(ctx context.Context, id string) (Result[models.Space], error) {
	if id == "" {
		return idle[models.Space]()
	}
	return read[models.Space](ctx, q.c, SpaceDetailKey(id), "/spaces/"+id)
}

func (q *SpaceQueries) Create(ctx context.Context, workspaceID string, req models.CreateSpaceRequest) (*models.Space, error) {
	space, err := send[models.Space](ctx, q.c, post, "/workspaces/"+workspaceID+"/spaces", req)
	if err != nil {
		return nil, err
	}
	q.c.set(SpaceDetailKey(space.ID), space)
	q.c.invalidate(SpaceListKey(workspaceID))
	return &space, nil
}

func (q *SpaceQueries) Update(ctx context.Context, id string, req models.UpdateSpaceRequest) (*models.Space, error) {
	space, err := send[models.Space](ctx, q.c, put, "/spaces/"+id, req)
	if err != nil {
		return nil, err
	}
	q.c.set(SpaceDetailKey(id), space)
	q.c.invalidate(SpaceListsKey)
	return &space, nil
}

func (q *SpaceQueries) Delete(ctx context.Context, id string) error {
	if err := q.c.exec(ctx, del, "/spaces/"+id, nil); err != nil {
		return err
	}
	q.c.remove(SpaceDetailKey(id), ProjectListKey(id))
	q.c.invalidate(SpaceListsKey)
	return nil
}
