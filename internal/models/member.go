package models

import (
	"time"

	"github.com/Marga-Ghale/ora-scrum-client/internal/types"
)

// ============================================
// Member Management Models
// ============================================

// Member is one effective membership row. Inherited rows name the ancestor
// entity type that granted them in InheritedFrom.
type Member struct {
	ID            string    `json:"id"`
	EntityType    string    `json:"entityType"`
	EntityID      string    `json:"entityId"`
	UserID        string    `json:"userId"`
	Role          string    `json:"role"`
	JoinedAt      time.Time `json:"joinedAt"`
	IsInherited   bool      `json:"isInherited"`
	InheritedFrom string    `json:"inheritedFrom,omitempty"`
	User          *User     `json:"user,omitempty"`
}

// Member payloads differ per endpoint: the user is either nested under
// "user" or flattened as userName/userEmail/userAvatar, and workspace or
// project member rows carry workspaceId/projectId instead of entityId.
func (m *Member) UnmarshalJSON(data []byte) error {
	type alias struct {
		ID            string    `json:"id"`
		EntityType    string    `json:"entityType"`
		EntityID      string    `json:"entityId"`
		WorkspaceID   string    `json:"workspaceId"`
		SpaceID       string    `json:"spaceId"`
		FolderID      string    `json:"folderId"`
		ProjectID     string    `json:"projectId"`
		UserID        string    `json:"userId"`
		Role          string    `json:"role"`
		JoinedAt      time.Time `json:"joinedAt"`
		IsInherited   bool      `json:"isInherited"`
		InheritedFrom string    `json:"inheritedFrom"`
		User          *User     `json:"user"`
		UserName      string    `json:"userName"`
		UserEmail     string    `json:"userEmail"`
		UserAvatar    *string   `json:"userAvatar"`
	}
	var a alias
	if err := decodeTolerant(data, &a); err != nil {
		return err
	}

	*m = Member{
		ID:            a.ID,
		EntityType:    types.Normalize(a.EntityType),
		EntityID:      a.EntityID,
		UserID:        a.UserID,
		Role:          types.Normalize(a.Role),
		JoinedAt:      a.JoinedAt,
		IsInherited:   a.IsInherited,
		InheritedFrom: types.Normalize(a.InheritedFrom),
		User:          a.User,
	}

	if m.EntityID == "" {
		switch {
		case a.ProjectID != "":
			m.EntityID, m.EntityType = a.ProjectID, firstNonEmpty(m.EntityType, types.EntityProject)
		case a.FolderID != "":
			m.EntityID, m.EntityType = a.FolderID, firstNonEmpty(m.EntityType, types.EntityFolder)
		case a.SpaceID != "":
			m.EntityID, m.EntityType = a.SpaceID, firstNonEmpty(m.EntityType, types.EntitySpace)
		case a.WorkspaceID != "":
			m.EntityID, m.EntityType = a.WorkspaceID, firstNonEmpty(m.EntityType, types.EntityWorkspace)
		}
	}
	if m.InheritedFrom != "" {
		m.IsInherited = true
	}

	if m.User == nil && (a.UserName != "" || a.UserEmail != "") {
		m.User = &User{
			ID:     a.UserID,
			Name:   a.UserName,
			Email:  a.UserEmail,
			Avatar: a.UserAvatar,
			Status: types.UserOffline,
		}
	}
	if m.UserID == "" && m.User != nil {
		m.UserID = m.User.ID
	}
	return nil
}

// Direct reports whether the membership was granted on this entity.
func (m Member) Direct() bool {
	return !m.IsInherited && m.InheritedFrom == ""
}

type AddMemberRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type InviteMemberRequest struct {
	Email   string `json:"email"`
	Role    string `json:"role,omitempty"`
	Message string `json:"message,omitempty"`
}

type UpdateMemberRoleRequest struct {
	Role string `json:"role"`
}

// AccessibleEntity is a workspace, space, folder or project the current user
// can reach, as listed by /members/my/accessible/{type}.
type AccessibleEntity struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Key         string    `json:"key,omitempty"`
	Color       string    `json:"color,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	WorkspaceID string    `json:"workspaceId,omitempty"`
	SpaceID     string    `json:"spaceId,omitempty"`
	FolderID    string    `json:"folderId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (e *AccessibleEntity) UnmarshalJSON(data []byte) error {
	type alias AccessibleEntity
	var a alias
	if err := decodeTolerant(data, &a); err != nil {
		return err
	}
	*e = AccessibleEntity(a)
	return nil
}

// ============================================
// Invitations
// ============================================

type Invitation struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	EntityType  string    `json:"entityType,omitempty"`
	EntityID    string    `json:"entityId,omitempty"`
	WorkspaceID string    `json:"workspaceId,omitempty"`
	ProjectID   string    `json:"projectId,omitempty"`
	Role        string    `json:"role"`
	Status      string    `json:"status"`
	Token       string    `json:"token,omitempty"`
	InvitedByID string    `json:"invitedById,omitempty"`
	InvitedBy   *User     `json:"invitedBy,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (i *Invitation) UnmarshalJSON(data []byte) error {
	type alias Invitation
	var a alias
	if err := decodeTolerant(data, &a); err != nil {
		return err
	}
	a.Status = types.Normalize(a.Status)
	a.Role = types.Normalize(a.Role)
	a.EntityType = types.Normalize(a.EntityType)
	*i = Invitation(a)
	return nil
}
