// Package query holds the entity query modules: one file per entity with its
// cache keys, reads and mutations, and the cache effects of each mutation.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Marga-Ghale/ora-scrum-client/internal/apiclient"
	"github.com/Marga-Ghale/ora-scrum-client/internal/cache"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrInvalidStatus    = errors.New("invalid task status")
	ErrInvalidPriority  = errors.New("invalid task priority")
	ErrInvalidRole      = errors.New("invalid role")
	ErrInvalidEntity    = errors.New("invalid entity type")
	ErrEmptyMessage     = errors.New("message content is empty")
)

// State is the lifecycle of a read.
type State string

const (
	StateIdle    State = "idle"
	StateSuccess State = "success"
	StateError   State = "error"
)

// Result is the outcome of a read. On error Data holds the last cached
// value, if there was one, with Stale set.
type Result[T any] struct {
	Data      T
	State     State
	Stale     bool
	UpdatedAt time.Time
}

// Client bundles the entity modules over one api client and cache store.
type Client struct {
	api   *apiclient.Client
	store *cache.Store
	log   zerolog.Logger

	Auth          *AuthQueries
	Users         *UserQueries
	Workspaces    *WorkspaceQueries
	Spaces        *SpaceQueries
	Folders       *FolderQueries
	Projects      *ProjectQueries
	Sprints       *SprintQueries
	Tasks         *TaskQueries
	Labels        *LabelQueries
	Notifications *NotificationQueries
	Chat          *ChatQueries
	Members       *MemberQueries
	Invitations   *InvitationQueries
}

func New(api *apiclient.Client, store *cache.Store, log zerolog.Logger) *Client {
	c := &Client{api: api, store: store, log: log}
	c.Auth = &AuthQueries{c}
	c.Users = &UserQueries{c}
	c.Workspaces = &WorkspaceQueries{c}
	c.Spaces = &SpaceQueries{c}
	c.Folders = &FolderQueries{c}
	c.Projects = &ProjectQueries{c}
	c.Sprints = &SprintQueries{c}
	c.Tasks = &TaskQueries{c}
	c.Labels = &LabelQueries{c}
	c.Notifications = &NotificationQueries{c}
	c.Chat = &ChatQueries{c}
	c.Members = &MemberQueries{c}
	c.Invitations = &InvitationQueries{c}
	return c
}

func (c *Client) API() *apiclient.Client { return c.api }

func (c *Client) Store() *cache.Store { return c.store }

// getJSON returns a fetcher that GETs path and stores the decoded value in
// its canonical encoding.
func getJSON[T any](c *Client, path string) cache.Fetcher {
	return func(ctx context.Context) ([]byte, error) {
		var v T
		if err := c.api.Get(ctx, path, &v); err != nil {
			return nil, err
		}
		return json.Marshal(v)
	}
}

func idle[T any]() (Result[T], error) {
	return Result[T]{State: StateIdle}, nil
}

func read[T any](ctx context.Context, c *Client, key cache.Key, path string) (Result[T], error) {
	return readWith[T](ctx, c, key, getJSON[T](c, path))
}

func readWith[T any](ctx context.Context, c *Client, key cache.Key, fetch cache.Fetcher) (Result[T], error) {
	e, fetchErr := c.store.Fetch(ctx, key, fetch)
	if fetchErr != nil && e.Value == nil {
		return Result[T]{State: StateError}, fetchErr
	}

	v, err := cache.Decode[T](e.Value)
	if err != nil {
		return Result[T]{State: StateError}, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	if fetchErr != nil {
		return Result[T]{Data: v, State: StateError, Stale: true, UpdatedAt: e.UpdatedAt}, fetchErr
	}
	return Result[T]{Data: v, State: StateSuccess, Stale: e.Stale, UpdatedAt: e.UpdatedAt}, nil
}

// send runs a mutation request and decodes the answer into T.
func send[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var out T
	err := c.api.Do(ctx, method, path, body, &out)
	return out, err
}

// exec runs a mutation request whose answer is ignored.
func (c *Client) exec(ctx context.Context, method, path string, body any) error {
	return c.api.Do(ctx, method, path, body, nil)
}

func (c *Client) invalidate(keys ...cache.Key) {
	for _, k := range keys {
		c.store.Invalidate(k)
	}
}

func (c *Client) remove(keys ...cache.Key) {
	for _, k := range keys {
		c.store.Remove(k)
	}
}

// set writes v at key; encoding only fails for unsupported types.
func (c *Client) set(key cache.Key, v any) {
	if err := c.store.Commit(cache.SetJSON(key, v)); err != nil {
		c.log.Warn().Err(err).Str("key", key.String()).Msg("Failed to write cache entry")
		c.store.Invalidate(key)
	}
}

// Methods, for brevity at call sites.
const (
	get   = http.MethodGet
	post  = http.MethodPost
	put   = http.MethodPut
	patch = http.MethodPatch
	del   = http.MethodDelete
)
