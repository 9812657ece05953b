package fakeapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
)

func (s *Server) register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findByEmail(req.Email) != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
		return
	}
	u := models.User{ID: uuid.NewString(), Email: req.Email, Name: req.Name, Status: "online", CreatedAt: now()}
	s.users[u.ID] = &account{user: u, password: hashed}
	s.answerTokens(c, http.StatusCreated, u)
}

func (s *Server) login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.findByEmail(req.Email)
	if acc == nil || bcrypt.CompareHashAndPassword(acc.password, []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	s.answerTokens(c, http.StatusOK, acc.user)
}

// answerTokens must be called with s.mu held.
func (s *Server) answerTokens(c *gin.Context, status int, u models.User) {
	access, refresh, err := s.generateTokens(u.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate tokens"})
		return
	}
	c.JSON(status, models.AuthResponse{User: u, AccessToken: access, RefreshToken: refresh})
}

// refresh rotates the refresh token, as the real backend does.
func (s *Server) refresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.refreshTokens[req.RefreshToken]
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	delete(s.refreshTokens, req.RefreshToken)
	access, refresh, err := s.generateTokens(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate tokens"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": access, "refreshToken": refresh})
}

func (s *Server) logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = c.ShouldBindJSON(&req)

	s.mu.Lock()
	delete(s.refreshTokens, req.RefreshToken)
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (s *Server) getMe(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.users[currentUser(c)]
	if !ok {
		notFound(c, "user")
		return
	}
	c.JSON(http.StatusOK, acc.user)
}

func (s *Server) updateMe(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		badRequest(c, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.users[currentUser(c)]
	if !ok {
		notFound(c, "user")
		return
	}
	u, err := merge(acc.user, body)
	if err != nil {
		badRequest(c, err)
		return
	}
	u.ID, u.Email = acc.user.ID, acc.user.Email
	acc.user = u
	c.JSON(http.StatusOK, u)
}

func (s *Server) searchUsers(c *gin.Context) {
	q := strings.ToLower(c.Query("q"))

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.User{}
	for _, acc := range s.users {
		if strings.Contains(strings.ToLower(acc.user.Name), q) || strings.Contains(strings.ToLower(acc.user.Email), q) {
			out = append(out, acc.user)
		}
	}
	c.JSON(http.StatusOK, out)
}

// findByEmail must be called with s.mu held.
func (s *Server) findByEmail(email string) *account {
	for _, acc := range s.users {
		if strings.EqualFold(acc.user.Email, email) {
			return acc
		}
	}
	return nil
}

// userRef must be called with s.mu held.
func (s *Server) userRef(id string) *models.User {
	acc, ok := s.users[id]
	if !ok {
		return nil
	}
	u := acc.user
	return &u
}
