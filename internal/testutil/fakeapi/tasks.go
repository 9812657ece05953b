package fakeapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
	"github.com/Marga-Ghale/ora-scrum-client/internal/types"
)

func (s *Server) taskRoutes(r *gin.RouterGroup) {
	projects := r.Group("/projects")
	{
		projects.GET("/:id/sprints", s.listSprints)
		projects.POST("/:id/sprints", s.createSprint)
		projects.GET("/:id/tasks", s.listProjectTasks)
		projects.POST("/:id/tasks", s.createTask)
		projects.GET("/:id/labels", s.listLabels)
		projects.POST("/:id/labels", s.createLabel)
	}

	sprints := r.Group("/sprints")
	{
		sprints.GET("/:id", s.getSprint)
		sprints.PUT("/:id", s.updateSprint)
		sprints.DELETE("/:id", s.deleteSprint)
		sprints.POST("/:id/start", s.startSprint)
		sprints.POST("/:id/complete", s.completeSprint)
		sprints.GET("/:id/tasks", s.listSprintTasks)
	}

	tasks := r.Group("/tasks")
	{
		tasks.GET("/my", s.listMyTasks)
		tasks.PUT("/bulk", s.bulkUpdateTasks)
		tasks.GET("/:id", s.getTask)
		tasks.PUT("/:id", s.updateTask)
		tasks.PATCH("/:id", s.updateTask)
		tasks.DELETE("/:id", s.deleteTask)
		tasks.GET("/:id/subtasks", s.listSubtasks)
		tasks.GET("/:id/comments", s.listComments)
		tasks.POST("/:id/comments", s.addComment)
	}

	comments := r.Group("/comments")
	{
		comments.PUT("/:id", s.updateComment)
		comments.DELETE("/:id", s.deleteComment)
	}

	labels := r.Group("/labels")
	{
		labels.PUT("/:id", s.updateLabel)
		labels.DELETE("/:id", s.deleteLabel)
	}
}

// ============================================
// Seeding
// ============================================

func (s *Server) AddSprint(projectID, name, status string) models.Sprint {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp := models.Sprint{ID: uuid.NewString(), ProjectID: projectID, Name: name, Status: status, CreatedAt: now(), UpdatedAt: now()}
	s.sprints.put(sp.ID, sp)
	return sp
}

// AddTask stores t, filling in the id, defaults and timestamps.
func (s *Server) AddTask(t models.Task) models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertTask(t)
}

// Task returns the stored task, for assertions.
func (s *Server) Task(id string) (models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks.get(id)
}

func (s *Server) Sprint(id string) (models.Sprint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sprints.get(id)
}

// insertTask must be called with s.mu held.
func (s *Server) insertTask(t models.Task) models.Task {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = types.StatusTodo
	}
	if t.Priority == "" {
		t.Priority = types.PriorityMedium
	}
	if t.Type == "" {
		t.Type = types.TypeTask
	}
	if t.AssigneeIDs == nil {
		t.AssigneeIDs = []string{}
	}
	if t.WatcherIDs == nil {
		t.WatcherIDs = []string{}
	}
	if t.LabelIDs == nil {
		t.LabelIDs = []string{}
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now()
	}
	t.UpdatedAt = now()
	s.tasks.put(t.ID, t)
	return t
}

// ============================================
// Sprints
// ============================================

func (s *Server) listSprints(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.sprints.list(func(sp models.Sprint) bool { return sp.ProjectID == id }))
}

func (s *Server) createSprint(c *gin.Context) {
	var req models.CreateSprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sp := models.Sprint{
		ID: uuid.NewString(), ProjectID: c.Param("id"), Name: req.Name, Goal: req.Goal,
		Status: types.SprintPlanning, StartDate: req.StartDate, EndDate: req.EndDate,
		CreatedAt: now(), UpdatedAt: now(),
	}
	s.sprints.put(sp.ID, sp)
	c.JSON(http.StatusCreated, sp)
}

func (s *Server) getSprint(c *gin.Context) {
	getRow(c, s, s.sprints, "sprint")
}

func (s *Server) updateSprint(c *gin.Context) {
	updateRow(c, s, s.sprints, "sprint", func(sp *models.Sprint) { sp.UpdatedAt = now() })
}

func (s *Server) deleteSprint(c *gin.Context) {
	deleteRow(c, s, s.sprints, "sprint")
}

// startSprint allows one active sprint per project.
func (s *Server) startSprint(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.sprints.get(c.Param("id"))
	if !ok {
		notFound(c, "sprint")
		return
	}
	if sp.Status != types.SprintPlanning {
		c.JSON(http.StatusConflict, gin.H{"error": "sprint is not in planning"})
		return
	}
	for _, other := range s.sprints.list(nil) {
		if other.ProjectID == sp.ProjectID && other.IsActive() {
			c.JSON(http.StatusConflict, gin.H{"error": "project already has an active sprint"})
			return
		}
	}
	started := now()
	sp.Status, sp.UpdatedAt = types.SprintActive, started
	if sp.StartDate == nil {
		sp.StartDate = &started
	}
	s.sprints.put(sp.ID, sp)
	c.JSON(http.StatusOK, sp)
}

// completeSprint moves unfinished tasks to the backlog, the next planned
// sprint, or the sprint named by moveIncomplete.
func (s *Server) completeSprint(c *gin.Context) {
	var req models.CompleteSprintRequest
	_ = c.ShouldBindJSON(&req)

	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.sprints.get(c.Param("id"))
	if !ok {
		notFound(c, "sprint")
		return
	}
	if !sp.IsActive() {
		c.JSON(http.StatusConflict, gin.H{"error": "sprint is not active"})
		return
	}

	var target *string
	switch req.MoveIncomplete {
	case "", "backlog":
	case "next_sprint":
		for _, next := range s.sprints.list(nil) {
			if next.ProjectID == sp.ProjectID && next.Status == types.SprintPlanning {
				id := next.ID
				target = &id
				break
			}
		}
	default:
		id := req.MoveIncomplete
		target = &id
	}

	for _, t := range s.tasks.list(nil) {
		if t.SprintID != nil && *t.SprintID == sp.ID && t.Status != types.StatusDone && t.Status != types.StatusCancelled {
			t.SprintID = target
			t.UpdatedAt = now()
			s.tasks.put(t.ID, t)
		}
	}
	ended := now()
	sp.Status, sp.UpdatedAt = types.SprintCompleted, ended
	if sp.EndDate == nil {
		sp.EndDate = &ended
	}
	s.sprints.put(sp.ID, sp)
	c.JSON(http.StatusOK, sp)
}

// ============================================
// Tasks
// ============================================

func byPosition(list []models.Task) []models.Task {
	sort.SliceStable(list, func(i, j int) bool { return list[i].Position < list[j].Position })
	return list
}

func (s *Server) listProjectTasks(c *gin.Context) {
	projectID := c.Param("id")
	q := c.Request.URL.Query()

	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, byPosition(s.tasks.list(func(t models.Task) bool {
		if t.ProjectID != projectID {
			return false
		}
		if q.Has("sprintId") {
			switch sprintID := q.Get("sprintId"); sprintID {
			case "null", "":
				if !t.InBacklog() {
					return false
				}
			default:
				if t.InBacklog() || *t.SprintID != sprintID {
					return false
				}
			}
		}
		if v := q.Get("status"); v != "" && t.Status != types.Normalize(v) {
			return false
		}
		if v := q.Get("priority"); v != "" && t.Priority != types.Normalize(v) {
			return false
		}
		if v := q.Get("type"); v != "" && t.Type != types.Normalize(v) {
			return false
		}
		if v := q.Get("assigneeId"); v != "" && !hasString(t.AssigneeIDs, v) {
			return false
		}
		if v := q.Get("labelId"); v != "" && !hasString(t.LabelIDs, v) {
			return false
		}
		if v := q.Get("search"); v != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(v)) {
			return false
		}
		return true
	})))
}

func (s *Server) listSprintTasks(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, byPosition(s.tasks.list(func(t models.Task) bool {
		return t.SprintID != nil && *t.SprintID == id
	})))
}

func (s *Server) listMyTasks(c *gin.Context) {
	userID := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.tasks.list(func(t models.Task) bool { return hasString(t.AssigneeIDs, userID) }))
}

func (s *Server) listSubtasks(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.tasks.list(func(t models.Task) bool {
		return t.ParentTaskID != nil && *t.ParentTaskID == id
	}))
}

func (s *Server) createTask(c *gin.Context) {
	var req models.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}
	if req.Status != "" && !types.IsValidTaskStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.insertTask(models.Task{
		ProjectID: c.Param("id"), SprintID: req.SprintID, ParentTaskID: req.ParentTaskID,
		Title: req.Title, Description: req.Description, Status: req.Status, Priority: req.Priority,
		Type: req.Type, AssigneeIDs: req.AssigneeIDs, LabelIDs: req.LabelIDs,
		StoryPoints: req.StoryPoints, DueDate: req.DueDate, CreatedBy: ptr(currentUser(c)),
		Position: len(s.tasks.rows),
	})
	c.JSON(http.StatusCreated, t)
}

func (s *Server) getTask(c *gin.Context) {
	getRow(c, s, s.tasks, "task")
}

// updateTask serves both PUT and PATCH: fields present in the body replace
// stored ones, a null sprintId moves the task to the backlog.
func (s *Server) updateTask(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		badRequest(c, err)
		return
	}
	var probe struct {
		Status *string `json:"status"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		badRequest(c, err)
		return
	}
	if probe.Status != nil && !types.IsValidTaskStatus(*probe.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Param("id")
	cur, ok := s.tasks.get(id)
	if !ok {
		notFound(c, "task")
		return
	}
	next, err := merge(cur, body)
	if err != nil {
		badRequest(c, err)
		return
	}
	next.ID, next.ProjectID, next.UpdatedAt = cur.ID, cur.ProjectID, now()
	if next.Status == types.StatusDone && cur.Status != types.StatusDone {
		done := now()
		next.CompletedAt = &done
	}
	s.tasks.put(id, next)
	c.JSON(http.StatusOK, next)
}

func (s *Server) deleteTask(c *gin.Context) {
	deleteRow(c, s, s.tasks, "task")
}

func (s *Server) bulkUpdateTasks(c *gin.Context) {
	var req struct {
		Tasks []models.BulkTaskUpdate `json:"tasks"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range req.Tasks {
		if _, ok := s.tasks.get(u.ID); !ok {
			notFound(c, "task "+u.ID)
			return
		}
		if u.Status != nil && !types.IsValidTaskStatus(*u.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
	}
	for _, u := range req.Tasks {
		t, _ := s.tasks.get(u.ID)
		if u.Status != nil {
			t.Status = *u.Status
		}
		if u.Position != nil {
			t.Position = *u.Position
		}
		if u.SprintID != nil {
			t.SprintID = u.SprintID
		}
		t.UpdatedAt = now()
		s.tasks.put(t.ID, t)
	}
	c.JSON(http.StatusOK, gin.H{"updated": len(req.Tasks)})
}

// ============================================
// Comments and labels
// ============================================

func (s *Server) listComments(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.comments.list(func(cm models.Comment) bool { return cm.TaskID == id }))
}

func (s *Server) addComment(c *gin.Context) {
	var req models.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks.get(c.Param("id")); !ok {
		notFound(c, "task")
		return
	}
	mentioned := req.MentionedUsers
	if mentioned == nil {
		mentioned = []string{}
	}
	userID := currentUser(c)
	cm := models.Comment{
		ID: uuid.NewString(), TaskID: c.Param("id"), UserID: userID, Content: req.Content,
		MentionedUsers: mentioned, User: s.userRef(userID), CreatedAt: now(), UpdatedAt: now(),
	}
	s.comments.put(cm.ID, cm)
	c.JSON(http.StatusCreated, cm)
}

func (s *Server) updateComment(c *gin.Context) {
	updateRow(c, s, s.comments, "comment", func(cm *models.Comment) { cm.UpdatedAt = now() })
}

func (s *Server) deleteComment(c *gin.Context) {
	deleteRow(c, s, s.comments, "comment")
}

func (s *Server) listLabels(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.labels.list(func(l models.Label) bool { return l.ProjectID == id }))
}

func (s *Server) createLabel(c *gin.Context) {
	var req models.CreateLabelRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l := models.Label{ID: uuid.NewString(), ProjectID: c.Param("id"), Name: req.Name, Color: req.Color, CreatedAt: now()}
	s.labels.put(l.ID, l)
	c.JSON(http.StatusCreated, l)
}

func (s *Server) updateLabel(c *gin.Context) {
	updateRow(c, s, s.labels, "label", nil)
}

// deleteLabel also detaches the label from tasks.
func (s *Server) deleteLabel(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.labels.del(id) {
		notFound(c, "label")
		return
	}
	for _, t := range s.tasks.list(func(t models.Task) bool { return hasString(t.LabelIDs, id) }) {
		kept := []string{}
		for _, l := range t.LabelIDs {
			if l != id {
				kept = append(kept, l)
			}
		}
		t.LabelIDs = kept
		s.tasks.put(t.ID, t)
	}
	c.JSON(http.StatusOK, gin.H{"message": "label deleted"})
}

func hasString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func ptr[T any](v T) *T { return &v }
