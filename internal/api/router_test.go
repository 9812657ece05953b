package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/ora-scrum-client/internal/api/handlers"
	"github.com/Marga-Ghale/ora-scrum-client/internal/apiclient"
	"github.com/Marga-Ghale/ora-scrum-client/internal/cache"
	"github.com/Marga-Ghale/ora-scrum-client/internal/db"
	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
	"github.com/Marga-Ghale/ora-scrum-client/internal/query"
	"github.com/Marga-Ghale/ora-scrum-client/internal/testutil/fakeapi"
	"github.com/Marga-Ghale/ora-scrum-client/internal/types"
	"github.com/Marga-Ghale/ora-scrum-client/internal/view"
)

const gatewayToken = "local-secret"

type gateway struct {
	srv    *fakeapi.Server
	user   models.User
	q      *query.Client
	router *gin.Engine
}

func newGateway(t *testing.T, opts Options) *gateway {
	t.Helper()
	srv := fakeapi.New(t)
	user := srv.AddUser("Ada Lovelace", "ada@example.com", "secret123")

	client := apiclient.New(srv.URL(), apiclient.WithStorage(db.NewMemoryDB()), apiclient.WithTimeout(5*time.Second))
	access, refresh := srv.IssueTokens(user.ID)
	require.NoError(t, client.SetTokens(context.Background(), apiclient.Tokens{AccessToken: access, RefreshToken: refresh}))

	store := cache.New(cache.Options{DefaultStaleTime: time.Minute})
	t.Cleanup(store.Close)
	q := query.New(client, store, zerolog.Nop())

	opts.Logger = zerolog.Nop()
	opts.Now = func() time.Time { return time.Now().UTC() }
	return &gateway{srv: srv, user: user, q: q, router: NewRouter(q, opts)}
}

func (g *gateway) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+gatewayToken)
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (g *gateway) seedProject() models.Project {
	ws := g.srv.AddWorkspace("Acme", g.user.ID)
	space := g.srv.AddSpace(ws.ID, "Engineering")
	return g.srv.AddProject(space.ID, "Platform", "PLAT")
}

func TestHealthIsOpenOtherRoutesNeedToken(t *testing.T) {
	g := newGateway(t, Options{Token: gatewayToken})

	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[map[string]any](t, w)
	assert.Equal(t, true, health["authenticated"])
	assert.NotEmpty(t, health["tokenExpiresAt"])

	w = httptest.NewRecorder()
	g.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = g.do(t, http.MethodGet, "/me", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, g.user.ID, decode[models.User](t, w).ID)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestLoggedOutReadsAnswerUnauthorized(t *testing.T) {
	g := newGateway(t, Options{})

	// A disabled read while logged in is not an auth failure.
	w := g.do(t, http.MethodGet, "/users/search?q=a", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, g.srv.Hits(http.MethodGet, "/users/search"))

	require.NoError(t, g.q.API().ClearTokens(context.Background()))
	for _, path := range []string{"/me", "/tasks/my", "/invitations/pending", "/folders/my"} {
		w := g.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, "Not logged in", decode[map[string]string](t, w)["error"], path)
	}
}

func TestFolderRoutes(t *testing.T) {
	g := newGateway(t, Options{})
	ws := g.srv.AddWorkspace("Acme", g.user.ID)
	space := g.srv.AddSpace(ws.ID, "Engineering")
	folder := g.srv.AddFolder(space.ID, "Backend", g.user.ID)
	p := g.srv.AddProject(space.ID, "Platform", "PLAT")
	g.srv.MoveProject(p.ID, folder.ID)
	g.srv.AddProject(space.ID, "Loose", "LOOSE")

	w := g.do(t, http.MethodGet, "/spaces/"+space.ID+"/folders", "")
	require.Equal(t, http.StatusOK, w.Code)
	folders := decode[[]models.Folder](t, w)
	require.Len(t, folders, 1)
	assert.Equal(t, "Backend", folders[0].Name)

	w = g.do(t, http.MethodGet, "/folders/"+folder.ID+"/projects", "")
	require.Equal(t, http.StatusOK, w.Code)
	projects := decode[[]models.Project](t, w)
	require.Len(t, projects, 1)
	assert.Equal(t, p.ID, projects[0].ID)

	w = g.do(t, http.MethodGet, "/folders/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBoardGroupsTasksByStatus(t *testing.T) {
	g := newGateway(t, Options{})
	p := g.seedProject()
	g.srv.AddTask(models.Task{ProjectID: p.ID, Title: "second", Status: types.StatusTodo, Position: 2})
	g.srv.AddTask(models.Task{ProjectID: p.ID, Title: "first", Status: types.StatusTodo, Position: 1})
	g.srv.AddTask(models.Task{ProjectID: p.ID, Title: "shipped", Status: types.StatusDone})
	g.srv.AddTask(models.Task{ProjectID: p.ID, Title: "dropped", Status: types.StatusCancelled})

	w := g.do(t, http.MethodGet, "/projects/"+p.ID+"/board", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	board := decode[handlers.BoardResponse](t, w)

	require.Len(t, board.Columns, len(view.BoardStatuses))
	assert.Equal(t, 3, board.Total)
	byStatus := map[string]view.Column{}
	for _, col := range board.Columns {
		byStatus[col.Status] = col
	}
	todo := byStatus[types.StatusTodo]
	assert.Equal(t, "To Do", todo.Name)
	require.Len(t, todo.Tasks, 2)
	assert.Equal(t, "first", todo.Tasks[0].Title)
	assert.Equal(t, "second", todo.Tasks[1].Title)
	assert.Len(t, byStatus[types.StatusDone].Tasks, 1)

	w = g.do(t, http.MethodGet, "/projects/"+p.ID+"/board?search=ship", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[handlers.BoardResponse](t, w).Total)
}

func TestUpdateStatusPassesRemoteErrors(t *testing.T) {
	g := newGateway(t, Options{})
	p := g.seedProject()
	task := g.srv.AddTask(models.Task{ProjectID: p.ID, Title: "Wire login"})

	w := g.do(t, http.MethodPatch, "/tasks/"+task.ID+"/status", `{"status":"in_progress"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, types.StatusInProgress, decode[models.Task](t, w).Status)

	w = g.do(t, http.MethodPatch, "/tasks/"+task.ID+"/status", `{"status":"sideways"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = g.do(t, http.MethodPatch, "/tasks/"+task.ID+"/status", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	g.srv.Fail("PATCH", "/tasks/:id", http.StatusConflict)
	w = g.do(t, http.MethodPatch, "/tasks/"+task.ID+"/status", `{"status":"done"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "injected 409", decode[map[string]string](t, w)["error"])
}

func TestActiveSprint(t *testing.T) {
	g := newGateway(t, Options{})
	p := g.seedProject()

	w := g.do(t, http.MethodGet, "/projects/"+p.ID+"/sprints/active", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	sprint := g.srv.AddSprint(p.ID, "Sprint 1", types.SprintActive)
	g.q.Store().Invalidate(query.SprintsKey)
	w = g.do(t, http.MethodGet, "/projects/"+p.ID+"/sprints/active", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, sprint.ID, decode[models.Sprint](t, w).ID)
}

func TestNotificationsGroupedAndMarkedRead(t *testing.T) {
	g := newGateway(t, Options{})
	n := g.srv.AddNotification(models.Notification{
		UserID: g.user.ID,
		Type:   types.NotificationTaskAssigned,
		Title:  "Assigned",
		Data:   map[string]string{"taskId": "t1", "projectId": "p1"},
	})
	g.srv.AddNotification(models.Notification{UserID: g.user.ID, Type: types.NotificationTaskCreated, Title: "Created"})

	w := g.do(t, http.MethodGet, "/notifications/grouped", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	groups := decode[[]handlers.NotificationGroup](t, w)
	require.Len(t, groups, 1)
	assert.Equal(t, "Today", groups[0].Label)
	require.Len(t, groups[0].Items, 2)
	assert.Equal(t, n.ID, groups[0].Items[0].ID, "assignments outrank creations")
	assert.Equal(t, view.NotificationLink(n), groups[0].Items[0].Link)

	w = g.do(t, http.MethodGet, "/notifications/count", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.NotificationCount{Total: 2, Unread: 2}, decode[models.NotificationCount](t, w))

	w = g.do(t, http.MethodPut, "/notifications/"+n.ID+"/read", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = g.do(t, http.MethodGet, "/notifications/count", "")
	assert.Equal(t, 1, decode[models.NotificationCount](t, w).Unread)
}

func TestMembersFilter(t *testing.T) {
	g := newGateway(t, Options{})
	p := g.seedProject()
	carol := g.srv.AddUser("Carol", "carol@example.com", "pw")
	g.srv.AddMember(types.EntityProject, p.ID, carol.ID, types.RoleLead)

	w := g.do(t, http.MethodGet, "/members/project/"+p.ID+"?filter=direct", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[handlers.MembersResponse](t, w)
	assert.Equal(t, view.FilterDirect, resp.Filter)
	assert.Equal(t, 1, resp.Direct)
	assert.Equal(t, 1, resp.Inherited)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, carol.ID, resp.Rows[0].UserID)
	assert.True(t, resp.Rows[0].Editable)

	w = g.do(t, http.MethodGet, "/members/project/"+p.ID, "")
	assert.Len(t, decode[handlers.MembersResponse](t, w).Rows, 2)

	w = g.do(t, http.MethodGet, "/members/galaxy/"+p.ID, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatSendAndGroupedMessages(t *testing.T) {
	g := newGateway(t, Options{})
	ws := g.srv.AddWorkspace("Acme", g.user.ID)
	bob := g.srv.AddUser("Bob", "bob@example.com", "pw")
	ch := g.srv.AddChannel(ws.ID, "general", types.ChannelTeam, g.user.ID, bob.ID)
	g.srv.AddMessage(ch.ID, bob.ID, "morning")

	w := g.do(t, http.MethodPost, "/chat/channels/"+ch.ID+"/messages", `{"content":"hello"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sent := decode[view.MessageRow](t, w)
	assert.Equal(t, "hello", sent.Content)
	assert.False(t, sent.Pending)

	w = g.do(t, http.MethodPost, "/chat/channels/"+ch.ID+"/messages", `{"content":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = g.do(t, http.MethodGet, "/chat/channels/"+ch.ID+"/messages/grouped", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	groups := decode[[]view.DateGroup[view.MessageRow]](t, w)
	require.Len(t, groups, 1)
	assert.Equal(t, "Today", groups[0].Label)
	require.Len(t, groups[0].Items, 2)
	assert.Equal(t, "hello", groups[0].Items[0].Content)

	g.srv.SetUnread(g.user.ID, ch.ID, 3)
	w = g.do(t, http.MethodGet, "/chat/unread", "")
	require.Equal(t, http.StatusOK, w.Code)
	unread := decode[struct {
		Channels map[string]int `json:"channels"`
		Total    int            `json:"total"`
	}](t, w)
	assert.Equal(t, 3, unread.Total)
	assert.Equal(t, 3, unread.Channels[ch.ID])
}

func TestRateLimit(t *testing.T) {
	g := newGateway(t, Options{RateLimit: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		g.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestStaleDataServedWhenRefetchFails(t *testing.T) {
	g := newGateway(t, Options{})
	g.srv.AddWorkspace("Acme", g.user.ID)

	w := g.do(t, http.MethodGet, "/workspaces", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-Cache-Stale"))

	g.q.Store().Invalidate(query.WorkspacesKey)
	g.srv.Fail("GET", "/workspaces", http.StatusInternalServerError)

	w = g.do(t, http.MethodGet, "/workspaces", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Header().Get("X-Cache-Stale"))
	assert.Len(t, decode[[]models.Workspace](t, w), 1)
}
