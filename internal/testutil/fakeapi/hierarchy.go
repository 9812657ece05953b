package fakeapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
	"github.com/Marga-Ghale/ora-scrum-client/internal/types"
)

func (s *Server) hierarchyRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	{
		users.GET("/me", s.getMe)
		users.PUT("/me", s.updateMe)
		users.GET("/search", s.searchUsers)
	}

	workspaces := r.Group("/workspaces")
	{
		workspaces.GET("", s.listWorkspaces)
		workspaces.POST("", s.createWorkspace)
		workspaces.GET("/:id", s.getWorkspace)
		workspaces.PUT("/:id", s.updateWorkspace)
		workspaces.DELETE("/:id", s.deleteWorkspace)
		workspaces.GET("/:id/members", s.listDirect(types.EntityWorkspace))
		workspaces.POST("/:id/members", s.addMember(types.EntityWorkspace))
		workspaces.PUT("/:id/members/:userId", s.updateMember(types.EntityWorkspace))
		workspaces.DELETE("/:id/members/:userId", s.removeMember(types.EntityWorkspace))
		workspaces.GET("/:id/spaces", s.listSpaces)
		workspaces.POST("/:id/spaces", s.createSpace)
		workspaces.GET("/:id/invitations", s.listInvitations(types.EntityWorkspace))
		workspaces.POST("/:id/invitations", s.createInvitation(types.EntityWorkspace))
		workspaces.GET("/:id/chat/channels", s.listWorkspaceChannels)
	}

	spaces := r.Group("/spaces")
	{
		spaces.GET("/:id", s.getSpace)
		spaces.PUT("/:id", s.updateSpace)
		spaces.DELETE("/:id", s.deleteSpace)
		spaces.GET("/:id/projects", s.listProjects)
		spaces.POST("/:id/projects", s.createProject)
		spaces.GET("/:id/folders", s.listFolders)
		spaces.POST("/:id/folders", s.createFolder)
	}

	folders := r.Group("/folders")
	{
		folders.GET("/my", s.myFolders)
		folders.GET("/:id", s.getFolder)
		folders.PUT("/:id", s.updateFolder)
		folders.DELETE("/:id", s.deleteFolder)
		folders.PATCH("/:id/visibility", s.updateFolderVisibility)
		folders.GET("/:id/projects", s.listFolderProjects)
	}

	projects := r.Group("/projects")
	{
		projects.GET("/:id", s.getProject)
		projects.PUT("/:id", s.updateProject)
		projects.DELETE("/:id", s.deleteProject)
		projects.GET("/:id/members", s.listDirect(types.EntityProject))
		projects.POST("/:id/members", s.addMember(types.EntityProject))
		projects.PUT("/:id/members/:userId", s.updateMember(types.EntityProject))
		projects.DELETE("/:id/members/:userId", s.removeMember(types.EntityProject))
		projects.GET("/:id/invitations", s.listInvitations(types.EntityProject))
		projects.POST("/:id/invitations", s.createInvitation(types.EntityProject))
	}

	members := r.Group("/members")
	{
		members.GET("/my/accessible/:kind", s.listAccessible)
		members.GET("/:type/:id", s.listDirect(""))
		members.GET("/:type/:id/effective", s.listEffective)
		members.POST("/:type/:id", s.addMember(""))
		members.PUT("/:type/:id/:userId", s.updateMember(""))
		members.DELETE("/:type/:id/:userId", s.removeMember(""))
	}

	invitations := r.Group("/invitations")
	{
		invitations.GET("/pending", s.pendingInvitations)
		invitations.POST("/accept/:token", s.acceptInvitation)
		invitations.POST("/resend/:id", s.resendInvitation)
		invitations.DELETE("/:id", s.cancelInvitation)
	}
}

// ============================================
// Seeding
// ============================================

// AddWorkspace creates a workspace owned by ownerID.
func (s *Server) AddWorkspace(name, ownerID string) models.Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws := models.Workspace{ID: uuid.NewString(), Name: name, OwnerID: ownerID, CreatedAt: now(), UpdatedAt: now()}
	s.workspaces.put(ws.ID, ws)
	s.grant(types.EntityWorkspace, ws.ID, ownerID, types.RoleOwner)
	return ws
}

func (s *Server) AddSpace(workspaceID, name string) models.Space {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp := models.Space{ID: uuid.NewString(), WorkspaceID: workspaceID, Name: name, CreatedAt: now(), UpdatedAt: now()}
	s.spaces.put(sp.ID, sp)
	return sp
}

func (s *Server) AddFolder(spaceID, name, ownerID string) models.Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := models.Folder{
		ID: uuid.NewString(), SpaceID: spaceID, OwnerID: ownerID, Name: name,
		AllowedUsers: []string{}, AllowedTeams: []string{}, CreatedAt: now(), UpdatedAt: now(),
	}
	s.folders.put(f.ID, f)
	return f
}

// MoveProject files a project under folderID, or takes it out with "".
func (s *Server) MoveProject(projectID, folderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects.get(projectID)
	if !ok {
		return
	}
	p.FolderID = nil
	if folderID != "" {
		p.FolderID = &folderID
	}
	s.projects.put(p.ID, p)
}

// Folder returns the stored folder, for assertions.
func (s *Server) Folder(id string) (models.Folder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.folders.get(id)
}

func (s *Server) AddProject(spaceID, name, key string) models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := models.Project{ID: uuid.NewString(), SpaceID: spaceID, Name: name, Key: key, CreatedAt: now(), UpdatedAt: now()}
	s.projects.put(p.ID, p)
	return p
}

// AddMember grants role on an entity directly.
func (s *Server) AddMember(entityType, entityID, userID, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grant(entityType, entityID, userID, role)
}

// AddInvitation stores a pending invitation and returns it with its token.
func (s *Server) AddInvitation(entityType, entityID, email, role string) models.Invitation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invite(entityType, entityID, email, role, "")
}

// grant must be called with s.mu held.
func (s *Server) grant(entityType, entityID, userID, role string) membership {
	for i, m := range s.memberships {
		if m.EntityType == entityType && m.EntityID == entityID && m.UserID == userID {
			s.memberships[i].Role = role
			return s.memberships[i]
		}
	}
	m := membership{ID: uuid.NewString(), EntityType: entityType, EntityID: entityID, UserID: userID, Role: role, JoinedAt: now()}
	s.memberships = append(s.memberships, m)
	return m
}

// ============================================
// Workspaces, spaces, projects
// ============================================

func (s *Server) listWorkspaces(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID := currentUser(c)
	c.JSON(http.StatusOK, s.workspaces.list(func(ws models.Workspace) bool {
		_, ok := s.effectiveRole(types.EntityWorkspace, ws.ID, userID)
		return ok
	}))
}

func (s *Server) createWorkspace(c *gin.Context) {
	var req models.CreateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ws := models.Workspace{ID: uuid.NewString(), Name: req.Name, OwnerID: currentUser(c), CreatedAt: now(), UpdatedAt: now()}
	if req.Description != nil {
		ws.Description = *req.Description
	}
	s.workspaces.put(ws.ID, ws)
	s.grant(types.EntityWorkspace, ws.ID, ws.OwnerID, types.RoleOwner)
	c.JSON(http.StatusCreated, ws)
}

func (s *Server) getWorkspace(c *gin.Context) {
	getRow(c, s, s.workspaces, "workspace")
}

func (s *Server) updateWorkspace(c *gin.Context) {
	updateRow(c, s, s.workspaces, "workspace", func(ws *models.Workspace) { ws.UpdatedAt = now() })
}

func (s *Server) deleteWorkspace(c *gin.Context) {
	deleteRow(c, s, s.workspaces, "workspace")
}

func (s *Server) listSpaces(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.spaces.list(func(sp models.Space) bool { return sp.WorkspaceID == id }))
}

func (s *Server) createSpace(c *gin.Context) {
	var req models.CreateSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sp := models.Space{ID: uuid.NewString(), WorkspaceID: c.Param("id"), Name: req.Name, CreatedAt: now(), UpdatedAt: now()}
	s.spaces.put(sp.ID, sp)
	c.JSON(http.StatusCreated, sp)
}

func (s *Server) getSpace(c *gin.Context) {
	getRow(c, s, s.spaces, "space")
}

func (s *Server) updateSpace(c *gin.Context) {
	updateRow(c, s, s.spaces, "space", func(sp *models.Space) { sp.UpdatedAt = now() })
}

func (s *Server) deleteSpace(c *gin.Context) {
	deleteRow(c, s, s.spaces, "space")
}

func (s *Server) listProjects(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.projects.list(func(p models.Project) bool { return p.SpaceID == id }))
}

// createProject binds snake_case, as the real backend does.
func (s *Server) createProject(c *gin.Context) {
	var req models.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := models.Project{
		ID: uuid.NewString(), SpaceID: c.Param("id"), FolderID: req.FolderID,
		Name: req.Name, Key: req.Key, LeadID: req.LeadID, CreatedAt: now(), UpdatedAt: now(),
	}
	s.projects.put(p.ID, p)
	c.JSON(http.StatusCreated, p)
}

func (s *Server) listFolders(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.folders.list(func(f models.Folder) bool { return f.SpaceID == id }))
}

// myFolders answers the folders of every space the caller can reach.
func (s *Server) myFolders(c *gin.Context) {
	userID := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.folders.list(func(f models.Folder) bool {
		_, ok := s.effectiveRole(types.EntityFolder, f.ID, userID)
		return ok
	}))
}

func (s *Server) createFolder(c *gin.Context) {
	var req models.CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.spaces.get(c.Param("id")); !ok {
		notFound(c, "space")
		return
	}
	f := models.Folder{
		ID: uuid.NewString(), SpaceID: c.Param("id"), OwnerID: currentUser(c), Name: req.Name,
		AllowedUsers: []string{}, AllowedTeams: []string{}, CreatedAt: now(), UpdatedAt: now(),
	}
	if req.Description != nil {
		f.Description = *req.Description
	}
	s.folders.put(f.ID, f)
	c.JSON(http.StatusCreated, f)
}

func (s *Server) getFolder(c *gin.Context) {
	getRow(c, s, s.folders, "folder")
}

func (s *Server) updateFolder(c *gin.Context) {
	updateRow(c, s, s.folders, "folder", func(f *models.Folder) { f.UpdatedAt = now() })
}

func (s *Server) updateFolderVisibility(c *gin.Context) {
	var req models.UpdateFolderVisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Visibility == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "visibility is required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.folders.get(c.Param("id"))
	if !ok {
		notFound(c, "folder")
		return
	}
	f.Visibility, f.UpdatedAt = req.Visibility, now()
	if req.AllowedUsers != nil {
		f.AllowedUsers = req.AllowedUsers
	}
	if req.AllowedTeams != nil {
		f.AllowedTeams = req.AllowedTeams
	}
	s.folders.put(f.ID, f)
	c.JSON(http.StatusOK, gin.H{"message": "Visibility updated successfully"})
}

// deleteFolder keeps the folder's projects, detached from it.
func (s *Server) deleteFolder(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.folders.del(id) {
		notFound(c, "folder")
		return
	}
	for _, p := range s.projects.list(func(p models.Project) bool { return p.FolderID != nil && *p.FolderID == id }) {
		p.FolderID = nil
		s.projects.put(p.ID, p)
	}
	c.JSON(http.StatusOK, gin.H{"message": "folder deleted"})
}

func (s *Server) listFolderProjects(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.projects.list(func(p models.Project) bool { return p.FolderID != nil && *p.FolderID == id }))
}

func (s *Server) getProject(c *gin.Context) {
	getRow(c, s, s.projects, "project")
}

func (s *Server) updateProject(c *gin.Context) {
	updateRow(c, s, s.projects, "project", func(p *models.Project) { p.UpdatedAt = now() })
}

func (s *Server) deleteProject(c *gin.Context) {
	deleteRow(c, s, s.projects, "project")
}

// ============================================
// Members
// ============================================

// ancestors lists the containing entities of one, innermost first. Must be
// called with s.mu held.
func (s *Server) ancestors(entityType, id string) []ref {
	switch entityType {
	case types.EntityProject:
		p, ok := s.projects.get(id)
		if !ok {
			return nil
		}
		if p.FolderID != nil && *p.FolderID != "" {
			if _, ok := s.folders.get(*p.FolderID); ok {
				return append([]ref{{types.EntityFolder, *p.FolderID}}, s.ancestors(types.EntityFolder, *p.FolderID)...)
			}
		}
		return append([]ref{{types.EntitySpace, p.SpaceID}}, s.ancestors(types.EntitySpace, p.SpaceID)...)
	case types.EntityFolder:
		f, ok := s.folders.get(id)
		if !ok {
			return nil
		}
		return append([]ref{{types.EntitySpace, f.SpaceID}}, s.ancestors(types.EntitySpace, f.SpaceID)...)
	case types.EntitySpace:
		sp, ok := s.spaces.get(id)
		if !ok {
			return nil
		}
		return []ref{{types.EntityWorkspace, sp.WorkspaceID}}
	}
	return nil
}

type ref struct {
	entityType string
	id         string
}

// heldRole is a role held on one entity of the containment chain.
type heldRole struct {
	EntityType string
	Role       string
}

// resolveRole picks a user's role on an entity the way the backend does: a
// direct grant always wins, otherwise the nearest ancestor's, not the
// highest-ranked one. ancestors are given innermost first. inheritedFrom is
// empty for a direct role.
func resolveRole(direct *string, ancestors []heldRole) (role, inheritedFrom string, ok bool) {
	if direct != nil && types.IsValidRole(*direct) {
		return *direct, "", true
	}
	for _, g := range ancestors {
		if types.IsValidRole(g.Role) {
			return g.Role, g.EntityType, true
		}
	}
	return "", "", false
}

// direct must be called with s.mu held.
func (s *Server) direct(entityType, id string) []membership {
	var out []membership
	for _, m := range s.memberships {
		if m.EntityType == entityType && m.EntityID == id {
			out = append(out, m)
		}
	}
	return out
}

// effectiveRole must be called with s.mu held.
func (s *Server) effectiveRole(entityType, id, userID string) (string, bool) {
	var direct *string
	for _, m := range s.direct(entityType, id) {
		if m.UserID == userID {
			role := m.Role
			direct = &role
		}
	}
	var grants []heldRole
	for _, a := range s.ancestors(entityType, id) {
		for _, m := range s.direct(a.entityType, a.id) {
			if m.UserID == userID {
				grants = append(grants, heldRole{EntityType: a.entityType, Role: m.Role})
			}
		}
	}
	role, _, ok := resolveRole(direct, grants)
	return role, ok
}

// effective resolves direct and inherited members the way the backend
// does: a direct grant shadows inherited ones, otherwise the nearest
// ancestor wins. Must be called with s.mu held.
func (s *Server) effective(entityType, id string) []models.Member {
	users := []string{}
	seen := map[string]bool{}
	collect := func(ms []membership) {
		for _, m := range ms {
			if !seen[m.UserID] {
				seen[m.UserID] = true
				users = append(users, m.UserID)
			}
		}
	}
	collect(s.direct(entityType, id))
	chain := s.ancestors(entityType, id)
	for _, a := range chain {
		collect(s.direct(a.entityType, a.id))
	}

	out := []models.Member{}
	for _, userID := range users {
		var direct *string
		var at membership
		for _, m := range s.direct(entityType, id) {
			if m.UserID == userID {
				role := m.Role
				direct, at = &role, m
			}
		}
		var grants []heldRole
		var origins []membership
		for _, a := range chain {
			for _, m := range s.direct(a.entityType, a.id) {
				if m.UserID == userID {
					grants = append(grants, heldRole{EntityType: a.entityType, Role: m.Role})
					origins = append(origins, m)
				}
			}
		}
		role, from, ok := resolveRole(direct, grants)
		if !ok {
			continue
		}
		if from != "" {
			for _, o := range origins {
				if o.EntityType == from {
					at = o
					break
				}
			}
		}
		out = append(out, models.Member{
			ID:            at.ID,
			EntityType:    entityType,
			EntityID:      id,
			UserID:        userID,
			Role:          role,
			JoinedAt:      at.JoinedAt,
			IsInherited:   from != "",
			InheritedFrom: from,
			User:          s.userRef(userID),
		})
	}
	return out
}

// memberRow must be called with s.mu held.
func (s *Server) memberRow(m membership) models.Member {
	return models.Member{
		ID: m.ID, EntityType: m.EntityType, EntityID: m.EntityID, UserID: m.UserID,
		Role: m.Role, JoinedAt: m.JoinedAt, User: s.userRef(m.UserID),
	}
}

// entityOf reads the entity from the route: fixed for nested member routes,
// from :type on the generic ones.
func entityOf(c *gin.Context, fixed string) (string, bool) {
	entityType := fixed
	if entityType == "" {
		entityType = types.Normalize(c.Param("type"))
	}
	if !types.IsValidEntityType(entityType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entity type"})
		return "", false
	}
	return entityType, true
}

func (s *Server) listDirect(fixed string) gin.HandlerFunc {
	return func(c *gin.Context) {
		entityType, ok := entityOf(c, fixed)
		if !ok {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		out := []models.Member{}
		for _, m := range s.direct(entityType, c.Param("id")) {
			out = append(out, s.memberRow(m))
		}
		c.JSON(http.StatusOK, out)
	}
}

func (s *Server) listEffective(c *gin.Context) {
	entityType, ok := entityOf(c, "")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.effective(entityType, c.Param("id")))
}

func (s *Server) addMember(fixed string) gin.HandlerFunc {
	return func(c *gin.Context) {
		entityType, ok := entityOf(c, fixed)
		if !ok {
			return
		}
		var req models.AddMemberRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		if !types.IsValidRole(req.Role) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, exists := s.users[req.UserID]; !exists {
			notFound(c, "user")
			return
		}
		m := s.grant(entityType, c.Param("id"), req.UserID, req.Role)
		c.JSON(http.StatusCreated, s.memberRow(m))
	}
}

func (s *Server) updateMember(fixed string) gin.HandlerFunc {
	return func(c *gin.Context) {
		entityType, ok := entityOf(c, fixed)
		if !ok {
			return
		}
		var req models.UpdateMemberRoleRequest
		if err := c.ShouldBindJSON(&req); err != nil || !types.IsValidRole(req.Role) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, m := range s.memberships {
			if m.EntityType == entityType && m.EntityID == c.Param("id") && m.UserID == c.Param("userId") {
				s.memberships[i].Role = req.Role
				c.JSON(http.StatusOK, gin.H{"message": "role updated"})
				return
			}
		}
		notFound(c, "member")
	}
}

func (s *Server) removeMember(fixed string) gin.HandlerFunc {
	return func(c *gin.Context) {
		entityType, ok := entityOf(c, fixed)
		if !ok {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, m := range s.memberships {
			if m.EntityType == entityType && m.EntityID == c.Param("id") && m.UserID == c.Param("userId") {
				s.memberships = append(s.memberships[:i:i], s.memberships[i+1:]...)
				c.JSON(http.StatusOK, gin.H{"message": "member removed"})
				return
			}
		}
		notFound(c, "member")
	}
}

func (s *Server) listAccessible(c *gin.Context) {
	userID := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.AccessibleEntity{}
	reachable := func(entityType, id string) bool {
		_, ok := s.effectiveRole(entityType, id, userID)
		return ok
	}
	switch c.Param("kind") {
	case "workspaces":
		for _, ws := range s.workspaces.list(nil) {
			if reachable(types.EntityWorkspace, ws.ID) {
				out = append(out, models.AccessibleEntity{ID: ws.ID, Name: ws.Name, Description: ws.Description, CreatedAt: ws.CreatedAt})
			}
		}
	case "spaces":
		for _, sp := range s.spaces.list(nil) {
			if reachable(types.EntitySpace, sp.ID) {
				out = append(out, models.AccessibleEntity{ID: sp.ID, Name: sp.Name, WorkspaceID: sp.WorkspaceID, CreatedAt: sp.CreatedAt})
			}
		}
	case "projects":
		for _, p := range s.projects.list(nil) {
			if reachable(types.EntityProject, p.ID) {
				out = append(out, models.AccessibleEntity{ID: p.ID, Name: p.Name, Key: p.Key, SpaceID: p.SpaceID, CreatedAt: p.CreatedAt})
			}
		}
	case "folders":
		for _, f := range s.folders.list(nil) {
			if reachable(types.EntityFolder, f.ID) {
				out = append(out, models.AccessibleEntity{ID: f.ID, Name: f.Name, Description: f.Description, SpaceID: f.SpaceID, CreatedAt: f.CreatedAt})
			}
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entity type"})
		return
	}
	c.JSON(http.StatusOK, out)
}

// ============================================
// Invitations
// ============================================

// invite must be called with s.mu held.
func (s *Server) invite(entityType, entityID, email, role, invitedBy string) models.Invitation {
	if role == "" {
		role = types.RoleMember
	}
	inv := models.Invitation{
		ID: uuid.NewString(), Email: email, EntityType: entityType, EntityID: entityID,
		Role: role, Status: "pending", Token: uuid.NewString(), InvitedByID: invitedBy,
		ExpiresAt: now().Add(7 * 24 * time.Hour), CreatedAt: now(),
	}
	switch entityType {
	case types.EntityWorkspace:
		inv.WorkspaceID = entityID
	case types.EntityProject:
		inv.ProjectID = entityID
	}
	s.invitations.put(inv.ID, inv)
	return inv
}

func (s *Server) listInvitations(entityType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		s.mu.Lock()
		defer s.mu.Unlock()
		c.JSON(http.StatusOK, s.invitations.list(func(inv models.Invitation) bool {
			return inv.EntityType == entityType && inv.EntityID == id && inv.Status == "pending"
		}))
	}
}

func (s *Server) createInvitation(entityType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.InviteMemberRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		c.JSON(http.StatusCreated, s.invite(entityType, c.Param("id"), req.Email, req.Role, currentUser(c)))
	}
}

func (s *Server) pendingInvitations(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.users[currentUser(c)]
	if !ok {
		notFound(c, "user")
		return
	}
	c.JSON(http.StatusOK, s.invitations.list(func(inv models.Invitation) bool {
		return inv.Status == "pending" && inv.Email == acc.user.Email
	}))
}

func (s *Server) acceptInvitation(c *gin.Context) {
	token := c.Param("token")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invitations.list(nil) {
		if inv.Token != token {
			continue
		}
		if inv.Status != "pending" {
			c.JSON(http.StatusConflict, gin.H{"error": "invitation is no longer pending"})
			return
		}
		inv.Status = "accepted"
		s.invitations.put(inv.ID, inv)
		s.grant(inv.EntityType, inv.EntityID, currentUser(c), inv.Role)
		c.JSON(http.StatusOK, gin.H{"message": "invitation accepted"})
		return
	}
	notFound(c, "invitation")
}

func (s *Server) resendInvitation(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations.get(c.Param("id"))
	if !ok {
		notFound(c, "invitation")
		return
	}
	inv.ExpiresAt = now().Add(7 * 24 * time.Hour)
	s.invitations.put(inv.ID, inv)
	c.JSON(http.StatusOK, gin.H{"message": "invitation resent"})
}

func (s *Server) cancelInvitation(c *gin.Context) {
	deleteRow(c, s, s.invitations, "invitation")
}

// ============================================
// Generic row handlers
// ============================================

func getRow[T any](c *gin.Context, s *Server, t *table[T], what string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := t.get(c.Param("id"))
	if !ok {
		notFound(c, what)
		return
	}
	c.JSON(http.StatusOK, v)
}

// updateRow overlays the body on the stored row; touch runs after the merge.
func updateRow[T any](c *gin.Context, s *Server, t *table[T], what string, touch func(*T)) {
	body, err := c.GetRawData()
	if err != nil {
		badRequest(c, err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Param("id")
	cur, ok := t.get(id)
	if !ok {
		notFound(c, what)
		return
	}
	next, err := merge(cur, body)
	if err != nil {
		badRequest(c, err)
		return
	}
	if touch != nil {
		touch(&next)
	}
	t.put(id, next)
	c.JSON(http.StatusOK, next)
}

func deleteRow[T any](c *gin.Context, s *Server, t *table[T], what string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !t.del(c.Param("id")) {
		notFound(c, what)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": what + " deleted"})
}
