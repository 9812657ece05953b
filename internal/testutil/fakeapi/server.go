// Package fakeapi is an in-memory ORA Scrum backend for tests. It serves the
// REST surface the client uses under /api, issues real HS256 tokens, and
// lets tests inject failures, hold requests and count hits per route.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
)

const accessTTL = time.Hour

// Server is safe for concurrent use by the client under test and the test
// itself.
type Server struct {
	srv    *httptest.Server
	secret []byte

	mu            sync.Mutex
	users         map[string]*account
	refreshTokens map[string]string
	revoked       map[string]bool
	issued        []string

	workspaces    *table[models.Workspace]
	spaces        *table[models.Space]
	folders       *table[models.Folder]
	projects      *table[models.Project]
	sprints       *table[models.Sprint]
	tasks         *table[models.Task]
	comments      *table[models.Comment]
	labels        *table[models.Label]
	notifications *table[models.Notification]
	channels      *table[models.ChatChannel]
	messages      *table[models.ChatMessage]
	invitations   *table[models.Invitation]
	memberships   []membership
	chatMembers   map[string][]models.ChatChannelMember
	unread        map[string]int

	faults map[string]*fault
	gates  map[string]chan struct{}
	hits   map[string]int

	hub *hub
}

type account struct {
	user     models.User
	password []byte
}

type membership struct {
	ID         string
	EntityType string
	EntityID   string
	UserID     string
	Role       string
	JoinedAt   time.Time
}

type fault struct {
	status    int
	remaining int // <= 0 means until Heal
}

// New starts a server and stops it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		secret:        []byte("fakeapi-" + uuid.NewString()),
		users:         make(map[string]*account),
		refreshTokens: make(map[string]string),
		revoked:       make(map[string]bool),
		workspaces:    newTable[models.Workspace](),
		spaces:        newTable[models.Space](),
		folders:       newTable[models.Folder](),
		projects:      newTable[models.Project](),
		sprints:       newTable[models.Sprint](),
		tasks:         newTable[models.Task](),
		comments:      newTable[models.Comment](),
		labels:        newTable[models.Label](),
		notifications: newTable[models.Notification](),
		channels:      newTable[models.ChatChannel](),
		messages:      newTable[models.ChatMessage](),
		invitations:   newTable[models.Invitation](),
		chatMembers:   make(map[string][]models.ChatChannelMember),
		unread:        make(map[string]int),
		faults:        make(map[string]*fault),
		gates:         make(map[string]chan struct{}),
		hits:          make(map[string]int),
		hub:           newHub(),
	}
	s.srv = httptest.NewServer(s.router())
	t.Cleanup(func() {
		s.hub.closeAll()
		s.srv.Close()
	})
	return s
}

// URL is the API base, ending in /api.
func (s *Server) URL() string { return s.srv.URL + "/api" }

// WSURL is the websocket endpoint.
func (s *Server) WSURL() string { return "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/api/ws" }

// ============================================
// Router
// ============================================

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.intercept())

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", s.register)
			auth.POST("/login", s.login)
			auth.POST("/refresh", s.refresh)
			auth.POST("/logout", s.logout)
		}

		api.GET("/ws", s.serveWS)

		protected := api.Group("")
		protected.Use(s.authenticate())
		s.hierarchyRoutes(protected)
		s.taskRoutes(protected)
		s.notificationRoutes(protected)
		s.chatRoutes(protected)
	}
	return r
}

func routeKey(method, route string) string {
	return method + " " + route
}

// intercept counts the hit, waits on a gate and answers injected faults.
func (s *Server) intercept() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := routeKey(c.Request.Method, strings.TrimPrefix(c.FullPath(), "/api"))

		s.mu.Lock()
		s.hits[key]++
		gate := s.gates[key]
		s.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-c.Request.Context().Done():
				c.Abort()
				return
			}
		}

		s.mu.Lock()
		f := s.faults[key]
		status := 0
		if f != nil {
			status = f.status
			if f.remaining > 0 {
				f.remaining--
				if f.remaining == 0 {
					delete(s.faults, key)
				}
			}
		}
		s.mu.Unlock()

		if status != 0 {
			c.AbortWithStatusJSON(status, gin.H{"error": fmt.Sprintf("injected %d", status)})
			return
		}
		c.Next()
	}
}

// ============================================
// Test controls
// ============================================

// Fail answers every request to route with status until Heal. route is the
// gin pattern without the /api prefix, e.g. "/tasks/:id".
func (s *Server) Fail(method, route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[routeKey(method, route)] = &fault{status: status}
}

// FailTimes answers the next n requests to route with status.
func (s *Server) FailTimes(method, route string, status, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[routeKey(method, route)] = &fault{status: status, remaining: n}
}

func (s *Server) Heal(method, route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.faults, routeKey(method, route))
}

// Hold makes requests to route wait until the returned release is called.
func (s *Server) Hold(method, route string) (release func()) {
	key := routeKey(method, route)
	gate := make(chan struct{})
	s.mu.Lock()
	s.gates[key] = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.gates[key] == gate {
				delete(s.gates, key)
			}
			s.mu.Unlock()
			close(gate)
		})
	}
}

// Hits counts requests that reached route, held or failed ones included.
func (s *Server) Hits(method, route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[routeKey(method, route)]
}

// ============================================
// Tokens
// ============================================

// AddUser registers an account that can log in with password.
func (s *Server) AddUser(name, email, password string) models.User {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("failed to hash password: %v", err))
	}
	u := models.User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		Status:    "online",
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.users[u.ID] = &account{user: u, password: hashed}
	s.mu.Unlock()
	return u
}

// IssueTokens logs userID in without a password.
func (s *Server) IssueTokens(userID string) (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	access, refresh, err := s.generateTokens(userID)
	if err != nil {
		panic(fmt.Sprintf("failed to generate tokens: %v", err))
	}
	return access, refresh
}

// ExpireAccessTokens rejects every access token issued so far.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tok := range s.issued {
		s.revoked[tok] = true
	}
}

// RevokeRefreshTokens makes the next refresh fail.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens = make(map[string]string)
}

// generateTokens must be called with s.mu held.
func (s *Server) generateTokens(userID string) (string, string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": now.Add(accessTTL).Unix(),
		"iat": now.Unix(),
		"jti": uuid.NewString(),
	})
	access, err := token.SignedString(s.secret)
	if err != nil {
		return "", "", err
	}
	refresh := uuid.NewString()
	s.refreshTokens[refresh] = userID
	s.issued = append(s.issued, access)
	return access, refresh, nil
}

func (s *Server) userFromToken(tokenString string) (string, bool) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}
	userID, ok := claims["sub"].(string)
	if !ok {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revoked[tokenString] {
		return "", false
	}
	if _, exists := s.users[userID]; !exists {
		return "", false
	}
	return userID, true
}

func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		parts := strings.Split(c.GetHeader("Authorization"), " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}
		userID, ok := s.userFromToken(parts[1])
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set("userID", userID)
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString("userID")
}

// ============================================
// Helpers
// ============================================

// table keeps rows in insertion order.
type table[T any] struct {
	order []string
	rows  map[string]T
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]T)}
}

func (t *table[T]) put(id string, v T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = v
}

func (t *table[T]) get(id string) (T, bool) {
	v, ok := t.rows[id]
	return v, ok
}

func (t *table[T]) del(id string) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	for i, v := range t.order {
		if v == id {
			t.order = append(t.order[:i:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

func (t *table[T]) list(keep func(T) bool) []T {
	out := []T{}
	for _, id := range t.order {
		if v := t.rows[id]; keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// merge overlays a JSON patch on v. Patch keys may be snake_case.
func merge[T any](v T, patch []byte) (T, error) {
	var out T
	base, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(base, &fields); err != nil {
		return out, err
	}
	changes := map[string]any{}
	if len(patch) > 0 {
		if err := json.Unmarshal(patch, &changes); err != nil {
			return out, err
		}
	}
	for k, val := range changes {
		fields[camel(k)] = val
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(merged, &out)
	return out, err
}

func camel(key string) string {
	parts := strings.Split(key, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

func now() time.Time { return time.Now().UTC() }

func notFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
