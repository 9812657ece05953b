package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStorage struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemStorage() *memStorage { return &memStorage{values: map[string]string{}} }

func (m *memStorage) Get(_ context.Context, name string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[name]
	return v, ok, nil
}

func (m *memStorage) Set(_ context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

func (m *memStorage) Delete(_ context.Context, names ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range names {
		delete(m.values, n)
	}
	return nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newServer(t *testing.T, setup func(r *gin.Engine)) *httptest.Server {
	t.Helper()
	r := gin.New()
	setup(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestAttachesBearerToken(t *testing.T) {
	srv := newServer(t, func(r *gin.Engine) {
		r.GET("/users/me", func(c *gin.Context) {
			if c.GetHeader("Authorization") != "Bearer tok-1" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
				return
			}
			assert.NotEmpty(t, c.GetHeader("X-Request-ID"))
			c.JSON(http.StatusOK, gin.H{"id": "u1", "name": "Ada"})
		})
	})

	c := New(srv.URL)
	require.NoError(t, c.SetTokens(context.Background(), Tokens{AccessToken: "tok-1"}))

	var out struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, c.Get(context.Background(), "/users/me", &out))
	assert.Equal(t, "u1", out.ID)
}

func TestRefreshesOnceAndRetries(t *testing.T) {
	var refreshes, calls int32
	srv := newServer(t, func(r *gin.Engine) {
		r.POST("/auth/refresh", func(c *gin.Context) {
			atomic.AddInt32(&refreshes, 1)
			var req struct {
				RefreshToken string `json:"refreshToken"`
			}
			assert.NoError(t, c.ShouldBindJSON(&req))
			assert.Equal(t, "refresh-1", req.RefreshToken)
			c.JSON(http.StatusOK, gin.H{"accessToken": "fresh", "refreshToken": "refresh-2"})
		})
		r.GET("/tasks/t1", func(c *gin.Context) {
			atomic.AddInt32(&calls, 1)
			if c.GetHeader("Authorization") != "Bearer fresh" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "expired"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"id": "t1"})
		})
	})

	store := newMemStorage()
	c := New(srv.URL, WithStorage(store))
	require.NoError(t, c.SetTokens(context.Background(), Tokens{AccessToken: "stale", RefreshToken: "refresh-1"}))

	var out map[string]string
	require.NoError(t, c.Get(context.Background(), "/tasks/t1", &out))
	assert.Equal(t, "t1", out["id"])
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	access, _, _ := store.Get(context.Background(), AccessTokenKey)
	refresh, _, _ := store.Get(context.Background(), RefreshTokenKey)
	assert.Equal(t, "fresh", access)
	assert.Equal(t, "refresh-2", refresh)
}

func TestRepeated401IsBounded(t *testing.T) {
	var refreshes, calls int32
	srv := newServer(t, func(r *gin.Engine) {
		r.POST("/auth/refresh", func(c *gin.Context) {
			atomic.AddInt32(&refreshes, 1)
			c.JSON(http.StatusOK, gin.H{"accessToken": "still-bad", "refreshToken": "r"})
		})
		r.GET("/projects/p1", func(c *gin.Context) {
			atomic.AddInt32(&calls, 1)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "nope"})
		})
	})

	c := New(srv.URL)
	require.NoError(t, c.SetTokens(context.Background(), Tokens{AccessToken: "a", RefreshToken: "r"}))

	err := c.Get(context.Background(), "/projects/p1", nil)
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRejectedRefreshClearsTokens(t *testing.T) {
	var calls int32
	srv := newServer(t, func(r *gin.Engine) {
		r.POST("/auth/refresh", func(c *gin.Context) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh expired"})
		})
		r.GET("/workspaces", func(c *gin.Context) {
			atomic.AddInt32(&calls, 1)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token expired"})
		})
	})

	store := newMemStorage()
	c := New(srv.URL, WithStorage(store))
	require.NoError(t, c.SetTokens(context.Background(), Tokens{AccessToken: "a", RefreshToken: "r"}))

	err := c.Get(context.Background(), "/workspaces", nil)
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, "token expired", MessageOf(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.False(t, c.IsAuthenticated())
	_, ok, _ := store.Get(context.Background(), RefreshTokenKey)
	assert.False(t, ok)
}

func TestNoRefreshTokenPropagates401(t *testing.T) {
	var refreshes int32
	srv := newServer(t, func(r *gin.Engine) {
		r.POST("/auth/refresh", func(c *gin.Context) {
			atomic.AddInt32(&refreshes, 1)
			c.Status(http.StatusOK)
		})
		r.GET("/users/me", func(c *gin.Context) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		})
	})

	c := New(srv.URL)
	require.NoError(t, c.SetTokens(context.Background(), Tokens{AccessToken: "expired"}))
	require.True(t, c.IsAuthenticated())

	err := c.Get(context.Background(), "/users/me", nil)
	assert.True(t, IsUnauthorized(err))
	assert.Zero(t, atomic.LoadInt32(&refreshes))
	assert.Empty(t, c.AccessToken())
	assert.False(t, c.IsAuthenticated())
}

func TestConcurrent401sShareOneRefresh(t *testing.T) {
	var refreshes int32
	srv := newServer(t, func(r *gin.Engine) {
		r.POST("/auth/refresh", func(c *gin.Context) {
			atomic.AddInt32(&refreshes, 1)
			time.Sleep(50 * time.Millisecond)
			c.JSON(http.StatusOK, gin.H{"accessToken": "fresh", "refreshToken": "r2"})
		})
		r.GET("/notifications/count", func(c *gin.Context) {
			if c.GetHeader("Authorization") != "Bearer fresh" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "expired"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"total": 1, "unread": 1})
		})
	})

	c := New(srv.URL)
	require.NoError(t, c.SetTokens(context.Background(), Tokens{AccessToken: "stale", RefreshToken: "r1"}))

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.Get(context.Background(), "/notifications/count", nil)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))
}

func TestErrorMessageFromBody(t *testing.T) {
	srv := newServer(t, func(r *gin.Engine) {
		r.POST("/chat/channels", func(c *gin.Context) {
			c.JSON(http.StatusConflict, gin.H{"error": "channel name already exists"})
		})
		r.PUT("/labels/l1", func(c *gin.Context) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "color must be hex", "error": "validation"})
		})
		r.DELETE("/tasks/t1", func(c *gin.Context) {
			c.String(http.StatusInternalServerError, "database down\n")
		})
		r.GET("/sprints/s1", func(c *gin.Context) {
			c.Status(http.StatusNotFound)
		})
	})
	c := New(srv.URL)
	ctx := context.Background()

	err := c.Post(ctx, "/chat/channels", map[string]string{"name": "general"}, nil)
	assert.True(t, IsConflict(err))
	assert.True(t, IsValidation(err))
	assert.Equal(t, "channel name already exists", MessageOf(err))

	err = c.Put(ctx, "/labels/l1", map[string]string{"color": "red"}, nil)
	assert.Equal(t, "color must be hex", MessageOf(err))

	err = c.Delete(ctx, "/tasks/t1", nil)
	assert.True(t, IsServer(err))
	assert.True(t, IsRetryable(err))
	assert.Equal(t, "database down", MessageOf(err))

	err = c.Get(ctx, "/sprints/s1", nil)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsRetryable(err))
	assert.Equal(t, "Not Found", MessageOf(err))
}

func TestEmptyBodyResolvesToZeroValue(t *testing.T) {
	srv := newServer(t, func(r *gin.Engine) {
		r.PUT("/notifications/read-all", func(c *gin.Context) { c.Status(http.StatusOK) })
		r.DELETE("/notifications/n1", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	})
	c := New(srv.URL)

	var out map[string]any
	require.NoError(t, c.Put(context.Background(), "/notifications/read-all", nil, &out))
	assert.Nil(t, out)
	require.NoError(t, c.Delete(context.Background(), "/notifications/n1", &out))
}

func TestDecodeError(t *testing.T) {
	srv := newServer(t, func(r *gin.Engine) {
		r.GET("/workspaces", func(c *gin.Context) { c.String(http.StatusOK, "{not json") })
	})
	c := New(srv.URL)
	var out []map[string]any
	err := c.Get(context.Background(), "/workspaces", &out)
	assert.ErrorIs(t, err, ErrDecode)
	assert.False(t, IsRetryable(err))
}

func TestTransportErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, WithTimeout(time.Second))
	err := c.Get(context.Background(), "/workspaces", nil)
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.True(t, IsRetryable(err))
	assert.Zero(t, StatusOf(err))
}

func TestCanceledIsNotRetryable(t *testing.T) {
	assert.False(t, IsRetryable(context.Canceled))
	assert.False(t, IsRetryable(errors.Join(errors.New("x"), context.DeadlineExceeded)))
}

func TestAccessTokenExpiry(t *testing.T) {
	exp := time.Now().Add(-time.Minute).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	}).SignedString([]byte("whatever"))
	require.NoError(t, err)

	c := New("http://unused")
	_, ok := c.AccessTokenExpiry()
	assert.False(t, ok)

	require.NoError(t, c.SetTokens(context.Background(), Tokens{AccessToken: token}))
	got, ok := c.AccessTokenExpiry()
	require.True(t, ok)
	assert.True(t, got.Equal(exp))
	assert.True(t, c.AccessTokenExpired(time.Now()))

	require.NoError(t, c.SetTokens(context.Background(), Tokens{AccessToken: "opaque"}))
	assert.False(t, c.AccessTokenExpired(time.Now()))
}

func TestLoadTokens(t *testing.T) {
	store := newMemStorage()
	require.NoError(t, store.Set(context.Background(), map[string]string{AccessTokenKey: "a", RefreshTokenKey: "r"}))

	c := New("http://unused", WithStorage(store))
	assert.False(t, c.IsAuthenticated())

	tokens, err := c.LoadTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Tokens{AccessToken: "a", RefreshToken: "r"}, tokens)
	assert.True(t, c.IsAuthenticated())

	require.NoError(t, c.ClearTokens(context.Background()))
	assert.Empty(t, c.RefreshToken())
	_, ok, _ := store.Get(context.Background(), AccessTokenKey)
	assert.False(t, ok)
}
