package query

import (
	"context"

	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
)

type FolderQueries struct{ c *Client }

func (q *FolderQueries) BySpace(ctx context.Context, spaceID string) (Result[[]models.Folder], error) {
	if spaceID == "" {
		return idle[[]models.Folder]()
	}
	return read[[]models.Folder](ctx, q.c, FolderListKey(spaceID), "/spaces/"+spaceID+"/folders")
}

// Mine lists the folders the current user can see across all spaces.
func (q *FolderQueries) Mine(ctx context.Context) (Result[[]models.Folder], error) {
	if !q.c.api.IsAuthenticated() {
		return idle[[]models.Folder]()
	}
	return read[[]models.Folder](ctx, q.c, FolderMineKey, "/folders/my")
}

func (q *FolderQueries) Get(ctx context.Context, id string) (Result[models.Folder], error) {
	if id == "" {
		return idle[models.Folder]()
	}
	return read[models.Folder](ctx, q.c, FolderDetailKey(id), "/folders/"+id)
}

func (q *FolderQueries) Create(ctx context.Context, spaceID string, req models.CreateFolderRequest) (*models.Folder, error) {
	f, err := send[models.Folder](ctx, q.c, post, "/spaces/"+spaceID+"/folders", req)
	if err != nil {
		return nil, err
	}
	q.c.set(FolderDetailKey(f.ID), f)
	q.c.invalidate(FolderListKey(spaceID), FolderMineKey, MemberAccessibleKey("folders"))
	return &f, nil
}

func (q *FolderQueries) Update(ctx context.Context, id string, req models.UpdateFolderRequest) (*models.Folder, error) {
	f, err := send[models.Folder](ctx, q.c, put, "/folders/"+id, req)
	if err != nil {
		return nil, err
	}
	q.c.set(FolderDetailKey(id), f)
	q.c.invalidate(FolderListsKey, FolderMineKey)
	return &f, nil
}

// UpdateVisibility answers only a message, so the detail is refetched.
func (q *FolderQueries) UpdateVisibility(ctx context.Context, id string, req models.UpdateFolderVisibilityRequest) error {
	if err := q.c.exec(ctx, patch, "/folders/"+id+"/visibility", req); err != nil {
		return err
	}
	q.c.invalidate(FolderDetailKey(id), FolderListsKey, FolderMineKey)
	return nil
}

// Delete leaves the folder's projects in their space without a folder.
func (q *FolderQueries) Delete(ctx context.Context, id string) error {
	if err := q.c.exec(ctx, del, "/folders/"+id, nil); err != nil {
		return err
	}
	q.c.remove(FolderDetailKey(id), ProjectFolderListKey(id))
	q.c.invalidate(FolderListsKey, FolderMineKey, ProjectListsKey, MemberAccessibleKey("folders"))
	return nil
}
