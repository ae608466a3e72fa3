package ciris

import (
	"context"
	"time"
)

// AuthService manages API sessions under the four-role model (OBSERVER,
// ADMIN, AUTHORITY, ROOT).
type AuthService struct {
	client *Client
}

// LoginResponse carries the session token granted after authentication.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
}

// UserInfo describes the authenticated user and their permissions.
type UserInfo struct {
	UserID      string     `json:"user_id"`
	Username    string     `json:"username"`
	Role        string     `json:"role"`
	Permissions []string   `json:"permissions"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
}

// Login authenticates with username and password. On success the session
// token becomes the client's credential and, when an auth store is
// attached, is persisted for future sessions.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	body := map[string]string{"username": username, "password": password}
	var resp LoginResponse
	if err := s.client.post(ctx, "/v1/auth/login", body, &resp); err != nil {
		return nil, err
	}

	s.client.config.apiKey = resp.AccessToken
	if store := s.client.config.store; store != nil {
		expires := time.Duration(resp.ExpiresIn) * time.Second
		if err := store.StoreToken(s.client.config.baseURL, resp.AccessToken, resp.TokenType, expires, ""); err != nil {
			s.client.config.logger.Error("persist session token failed", "error", err)
		}
	}
	return &resp, nil
}

// Logout ends the current session and clears stored credentials.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.client.post(ctx, "/v1/auth/logout", nil, nil); err != nil {
		return err
	}
	s.client.config.apiKey = ""
	if store := s.client.config.store; store != nil {
		if err := store.Clear(s.client.config.baseURL); err != nil {
			s.client.config.logger.Error("clear stored auth failed", "error", err)
		}
	}
	return nil
}

// Me returns the current user with permissions.
func (s *AuthService) Me(ctx context.Context) (*UserInfo, error) {
	var resp UserInfo
	if err := s.client.get(ctx, "/v1/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh exchanges a refresh token for a new session token. The new token
// becomes the client's credential.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResponse, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var resp LoginResponse
	if err := s.client.post(ctx, "/v1/auth/refresh", body, &resp); err != nil {
		return nil, err
	}
	s.client.config.apiKey = resp.AccessToken
	if store := s.client.config.store; store != nil {
		expires := time.Duration(resp.ExpiresIn) * time.Second
		if err := store.StoreToken(s.client.config.baseURL, resp.AccessToken, resp.TokenType, expires, refreshToken); err != nil {
			s.client.config.logger.Error("persist session token failed", "error", err)
		}
	}
	return &resp, nil
}
