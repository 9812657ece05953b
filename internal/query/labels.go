package query

import (
	"context"

	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
)

type LabelQueries struct{ c *Client }

func (q *LabelQueries) List(ctx context.Context, projectID string) (Result[[]models.Label], error) {
	if projectID == "" {
		return idle[[]models.Label]()
	}
	return read[[]models.Label](ctx, q.c, LabelListKey(projectID), "/projects/"+projectID+"/labels")
}

func (q *LabelQueries) Create(ctx context.Context, projectID string, req models.CreateLabelRequest) (*models.Label, error) {
	l, err := send[models.Label](ctx, q.c, post, "/projects/"+projectID+"/labels", req)
	if err != nil {
		return nil, err
	}
	q.c.invalidate(LabelListKey(projectID))
	return &l, nil
}

func (q *LabelQueries) Update(ctx context.Context, id string, req models.UpdateLabelRequest) (*models.Label, error) {
	l, err := send[models.Label](ctx, q.c, put, "/labels/"+id, req)
	if err != nil {
		return nil, err
	}
	q.c.invalidate(LabelsKey)
	return &l, nil
}

// Delete also refetches tasks, which may still reference the label.
func (q *LabelQueries) Delete(ctx context.Context, id string) error {
	if err := q.c.exec(ctx, del, "/labels/"+id, nil); err != nil {
		return err
	}
	q.c.invalidate(LabelsKey, TasksKey)
	return nil
}
