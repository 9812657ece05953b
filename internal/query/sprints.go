package query

import (
	"context"
	"encoding/json"

	"github.com/Marga-Ghale/ora-scrum-client/internal/cache"
	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
)

type SprintQueries struct{ c *Client }

func (q *SprintQueries) List(ctx context.Context, projectID string) (Result[[]models.Sprint], error) {
	if projectID == "" {
		return idle[[]models.Sprint]()
	}
	return read[[]models.Sprint](ctx, q.c, SprintListKey(projectID), sprintsPath(projectID))
}

// Active is the first active sprint of the project, or nil. It is cached
// under its own key but loaded from the list endpoint.
func (q *SprintQueries) Active(ctx context.Context, projectID string) (Result[*models.Sprint], error) {
	if projectID == "" {
		return idle[*models.Sprint]()
	}
	return readWith[*models.Sprint](ctx, q.c, SprintActiveKey(projectID), func(ctx context.Context) ([]byte, error) {
		var sprints []models.Sprint
		if err := q.c.api.Get(ctx, sprintsPath(projectID), &sprints); err != nil {
			return nil, err
		}
		var active *models.Sprint
		for i := range sprints {
			if sprints[i].IsActive() {
				active = &sprints[i]
				break
			}
		}
		return json.Marshal(active)
	})
}

func (q *SprintQueries) Get(ctx context.Context, id string) (Result[models.Sprint], error) {
	if id == "" {
		return idle[models.Sprint]()
	}
	return read[models.Sprint](ctx, q.c, SprintDetailKey(id), "/sprints/"+id)
}

func (q *SprintQueries) Create(ctx context.Context, projectID string, req models.CreateSprintRequest) (*models.Sprint, error) {
	s, err := send[models.Sprint](ctx, q.c, post, sprintsPath(projectID), req)
	if err != nil {
		return nil, err
	}
	q.c.set(SprintDetailKey(s.ID), s)
	q.c.invalidate(SprintListKey(projectID), SprintActiveKey(projectID))
	return &s, nil
}

func (q *SprintQueries) Update(ctx context.Context, id string, req models.UpdateSprintRequest) (*models.Sprint, error) {
	s, err := send[models.Sprint](ctx, q.c, put, "/sprints/"+id, req)
	if err != nil {
		return nil, err
	}
	q.c.set(SprintDetailKey(id), s)
	q.c.invalidate(SprintListsKey, q.activeKeyFor(s))
	return &s, nil
}

// Start activates a sprint. The active-sprint entry is refetched along with
// the lists so Active never reports the previous sprint.
func (q *SprintQueries) Start(ctx context.Context, id string) (*models.Sprint, error) {
	s, err := send[models.Sprint](ctx, q.c, post, "/sprints/"+id+"/start", nil)
	if err != nil {
		return nil, err
	}
	q.c.set(SprintDetailKey(id), s)
	q.c.invalidate(SprintListsKey, q.activeKeyFor(s))
	return &s, nil
}

// Complete closes a sprint; moveIncomplete is "backlog", "next_sprint" or a
// sprint id and decides where unfinished tasks go.
func (q *SprintQueries) Complete(ctx context.Context, id, moveIncomplete string) (*models.Sprint, error) {
	s, err := send[models.Sprint](ctx, q.c, post, "/sprints/"+id+"/complete",
		models.CompleteSprintRequest{MoveIncomplete: moveIncomplete})
	if err != nil {
		return nil, err
	}
	q.c.set(SprintDetailKey(id), s)
	q.c.invalidate(SprintsKey, TasksKey)
	return &s, nil
}

func (q *SprintQueries) Delete(ctx context.Context, id string) error {
	if err := q.c.exec(ctx, del, "/sprints/"+id, nil); err != nil {
		return err
	}
	q.c.remove(SprintDetailKey(id), TaskSprintKey(id))
	q.c.invalidate(SprintsKey, TasksKey)
	return nil
}

// activeKeyFor falls back to every project's active entry when the server
// answer omits the project.
func (q *SprintQueries) activeKeyFor(s models.Sprint) cache.Key {
	if s.ProjectID == "" {
		return SprintActivesKey
	}
	return SprintActiveKey(s.ProjectID)
}

func sprintsPath(projectID string) string {
	return "/projects/" + projectID + "/sprints"
}
