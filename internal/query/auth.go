package query

import (
	"context"
	"fmt"

	"github.com/Marga-Ghale/ora-scrum-client/internal/apiclient"
	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
)

type AuthQueries struct{ c *Client }

// CurrentUser is enabled only while an access token is held.
func (q *AuthQueries) CurrentUser(ctx context.Context) (Result[models.User], error) {
	if !q.c.api.IsAuthenticated() {
		return idle[models.User]()
	}
	return read[models.User](ctx, q.c, AuthUserKey, "/users/me")
}

func (q *AuthQueries) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	return q.authenticate(ctx, "/auth/login", req)
}

func (q *AuthQueries) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	return q.authenticate(ctx, "/auth/register", req)
}

func (q *AuthQueries) authenticate(ctx context.Context, path string, body any) (*models.AuthResponse, error) {
	resp, err := send[models.AuthResponse](ctx, q.c, post, path, body)
	if err != nil {
		return nil, err
	}
	if err := q.c.api.SetTokens(ctx, apiclient.Tokens{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}); err != nil {
		return nil, fmt.Errorf("failed to persist tokens: %w", err)
	}
	q.c.set(AuthUserKey, resp.User)
	return &resp, nil
}

// Logout tells the server best-effort, then always drops the tokens and
// every cached entry.
func (q *AuthQueries) Logout(ctx context.Context) error {
	var body any
	if rt := q.c.api.RefreshToken(); rt != "" {
		body = models.RefreshRequest{RefreshToken: rt}
	}
	if err := q.c.exec(ctx, post, "/auth/logout", body); err != nil {
		q.c.log.Warn().Err(err).Msg("Logout request failed, clearing local session anyway")
	}

	q.c.store.Clear()
	if err := q.c.api.ClearTokens(ctx); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	return nil
}

func (q *AuthQueries) UpdateProfile(ctx context.Context, req models.UpdateUserRequest) (*models.User, error) {
	user, err := send[models.User](ctx, q.c, put, "/users/me", req)
	if err != nil {
		return nil, err
	}
	q.c.set(AuthUserKey, user)
	return &user, nil
}
