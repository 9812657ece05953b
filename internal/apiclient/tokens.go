package apiclient

import (
	"context"
	"fmt"
	"sync"
)

// Fixed storage names for the persisted tokens.
const (
	AccessTokenKey  = "accessToken"
	RefreshTokenKey = "refreshToken"
)

// Storage is the durable key-value store that holds the tokens.
type Storage interface {
	Get(ctx context.Context, name string) (string, bool, error)
	// Set writes all values together.
	Set(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, names ...string) error
}

// Tokens is the pair issued by login, register and refresh.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// tokenState keeps the in-memory copy of the tokens in front of Storage.
type tokenState struct {
	mu      sync.RWMutex
	tokens  Tokens
	storage Storage
}

func (s *tokenState) get() Tokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

func (s *tokenState) load(ctx context.Context) (Tokens, error) {
	if s.storage == nil {
		return s.get(), nil
	}
	access, _, err := s.storage.Get(ctx, AccessTokenKey)
	if err != nil {
		return Tokens{}, fmt.Errorf("failed to load access token: %w", err)
	}
	refresh, _, err := s.storage.Get(ctx, RefreshTokenKey)
	if err != nil {
		return Tokens{}, fmt.Errorf("failed to load refresh token: %w", err)
	}

	s.mu.Lock()
	s.tokens = Tokens{AccessToken: access, RefreshToken: refresh}
	s.mu.Unlock()
	return Tokens{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *tokenState) set(ctx context.Context, t Tokens) error {
	s.mu.Lock()
	s.tokens = t
	s.mu.Unlock()

	if s.storage == nil {
		return nil
	}
	if err := s.storage.Set(ctx, map[string]string{
		AccessTokenKey:  t.AccessToken,
		RefreshTokenKey: t.RefreshToken,
	}); err != nil {
		return fmt.Errorf("failed to persist tokens: %w", err)
	}
	return nil
}

func (s *tokenState) clear(ctx context.Context) error {
	s.mu.Lock()
	s.tokens = Tokens{}
	s.mu.Unlock()

	if s.storage == nil {
		return nil
	}
	if err := s.storage.Delete(ctx, AccessTokenKey, RefreshTokenKey); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	return nil
}
