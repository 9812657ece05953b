package models

import (
	"time"

	"github.com/Marga-Ghale/ora-scrum-client/internal/types"
)

// ============================================
// Sprint DTOs (Under Project)
// ============================================

type Sprint struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"projectId"`
	Name      string     `json:"name"`
	Goal      *string    `json:"goal,omitempty"`
	Status    string     `json:"status"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (s *Sprint) UnmarshalJSON(data []byte) error {
	type alias Sprint
	var a alias
	if err := decodeTolerant(data, &a); err != nil {
		return err
	}
	a.Status = types.Normalize(a.Status)
	*s = Sprint(a)
	return nil
}

func (s Sprint) IsActive() bool {
	return s.Status == types.SprintActive
}

type CreateSprintRequest struct {
	Name      string     `json:"name"`
	Goal      *string    `json:"goal,omitempty"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

type UpdateSprintRequest struct {
	Name      *string    `json:"name,omitempty"`
	Goal      *string    `json:"goal,omitempty"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

// MoveIncomplete is "backlog", "next_sprint" or a sprint id.
type CompleteSprintRequest struct {
	MoveIncomplete string `json:"moveIncomplete,omitempty"`
}
