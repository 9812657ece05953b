package models

import "time"

// ============================================
// Workspace
// ============================================

type Workspace struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	Color       string    `json:"color,omitempty"`
	OwnerID     string    `json:"ownerId"`
	Visibility  string    `json:"visibility,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// The backend answers workspaces in snake_case and the accessible-entities
// endpoint in Capitalized keys.
func (w *Workspace) UnmarshalJSON(data []byte) error {
	type alias Workspace
	var a alias
	if err := decodeTolerant(data, &a); err != nil {
		return err
	}
	*w = Workspace(a)
	return nil
}

type CreateWorkspaceRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	Color       *string `json:"color,omitempty"`
	Visibility  *string `json:"visibility,omitempty"`
}

type UpdateWorkspaceRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	Color       *string `json:"color,omitempty"`
	Visibility  *string `json:"visibility,omitempty"`
}

// ============================================
// Space
// ============================================

type Space struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	Color       string    `json:"color,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (s *Space) UnmarshalJSON(data []byte) error {
	type alias Space
	var a alias
	if err := decodeTolerant(data, &a); err != nil {
		return err
	}
	*s = Space(a)
	return nil
}

type CreateSpaceRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	Color       *string `json:"color,omitempty"`
}

type UpdateSpaceRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	Color       *string `json:"color,omitempty"`
}

// ============================================
// Folder
// ============================================

// Folder groups projects inside a space. The backend answers folders in
// snake_case.
type Folder struct {
	ID           string    `json:"id"`
	SpaceID      string    `json:"spaceId"`
	OwnerID      string    `json:"ownerId"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Icon         string    `json:"icon,omitempty"`
	Color        string    `json:"color,omitempty"`
	Visibility   string    `json:"visibility,omitempty"`
	AllowedUsers []string  `json:"allowedUsers"`
	AllowedTeams []string  `json:"allowedTeams"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (f *Folder) UnmarshalJSON(data []byte) error {
	type alias Folder
	var a alias
	if err := decodeTolerant(data, &a); err != nil {
		return err
	}
	*f = Folder(a)
	return nil
}

type CreateFolderRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	Color       *string `json:"color,omitempty"`
}

type UpdateFolderRequest struct {
	Name         *string  `json:"name,omitempty"`
	Description  *string  `json:"description,omitempty"`
	Icon         *string  `json:"icon,omitempty"`
	Color        *string  `json:"color,omitempty"`
	Visibility   *string  `json:"visibility,omitempty"`
	AllowedUsers []string `json:"allowed_users,omitempty"`
	AllowedTeams []string `json:"allowed_teams,omitempty"`
}

type UpdateFolderVisibilityRequest struct {
	Visibility   string   `json:"visibility"`
	AllowedUsers []string `json:"allowedUsers,omitempty"`
	AllowedTeams []string `json:"allowedTeams,omitempty"`
}

// ============================================
// Project
// ============================================

type Project struct {
	ID          string    `json:"id"`
	SpaceID     string    `json:"spaceId"`
	FolderID    *string   `json:"folderId,omitempty"`
	Name        string    `json:"name"`
	Key         string    `json:"key"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	Color       string    `json:"color,omitempty"`
	LeadID      *string   `json:"leadId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (p *Project) UnmarshalJSON(data []byte) error {
	type alias Project
	var a alias
	if err := decodeTolerant(data, &a); err != nil {
		return err
	}
	*p = Project(a)
	return nil
}

// The backend binds project writes in snake_case.
type CreateProjectRequest struct {
	Name        string  `json:"name"`
	Key         string  `json:"key"`
	FolderID    *string `json:"folder_id,omitempty"`
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	Color       *string `json:"color,omitempty"`
	LeadID      *string `json:"lead_id,omitempty"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name,omitempty"`
	Key         *string `json:"key,omitempty"`
	FolderID    *string `json:"folder_id,omitempty"`
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	Color       *string `json:"color,omitempty"`
	LeadID      *string `json:"lead_id,omitempty"`
}
