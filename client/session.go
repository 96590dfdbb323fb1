package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Session is an authenticated connection to a taskify server. It owns a
// refreshing token source, so gateways built from it stay authenticated
// past the access token's lifetime.
type Session struct {
	baseURL string
	source  oauth2.TokenSource
	refresh *refreshSource
}

type authResponse struct {
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Login authenticates with email and password and returns a Session.
func Login(ctx context.Context, baseURL, email, password string) (*Session, error) {
	baseURL = strings.TrimRight(baseURL, "/")

	payload, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	auth, err := postAuth(ctx, baseURL+"/api/auth/login", payload)
	if err != nil {
		return nil, err
	}
	return newSession(baseURL, auth), nil
}

// Register creates an account and returns a logged-in Session.
func Register(ctx context.Context, baseURL, email, password string) (*Session, error) {
	baseURL = strings.TrimRight(baseURL, "/")

	payload, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	auth, err := postAuth(ctx, baseURL+"/api/auth/register", payload)
	if err != nil {
		return nil, err
	}
	return newSession(baseURL, auth), nil
}

// NewSession resumes a session from previously saved tokens, for example
// tokens cached on disk by a CLI. The access token may already be
// expired; the refresh token keeps the session alive.
func NewSession(baseURL, accessToken, refreshToken string, expiry time.Time) *Session {
	baseURL = strings.TrimRight(baseURL, "/")
	auth := &authResponse{
		Token:        accessToken,
		RefreshToken: refreshToken,
	}
	s := newSession(baseURL, auth)
	s.refresh.mu.Lock()
	s.refresh.current.Expiry = expiry
	s.refresh.mu.Unlock()
	return s
}

func newSession(baseURL string, auth *authResponse) *Session {
	rs := &refreshSource{
		refreshURL: baseURL + "/api/auth/refresh",
		current: oauth2.Token{
			AccessToken: auth.Token,
			TokenType:   "Bearer",
			Expiry:      time.Now().Add(time.Duration(auth.ExpiresIn) * time.Second),
		},
		refreshToken: auth.RefreshToken,
	}
	return &Session{
		baseURL: baseURL,
		source:  oauth2.ReuseTokenSource(nil, rs),
		refresh: rs,
	}
}

// Gateway returns a Gateway bound to this session.
func (s *Session) Gateway() Gateway {
	return NewGateway(s.baseURL, s.source)
}

// TokenSource exposes the session's refreshing token source.
func (s *Session) TokenSource() oauth2.TokenSource {
	return s.source
}

// Tokens returns the current access and refresh tokens with the access
// token's expiry, for callers that persist sessions across runs.
func (s *Session) Tokens() (access, refresh string, expiry time.Time) {
	s.refresh.mu.Lock()
	defer s.refresh.mu.Unlock()
	return s.refresh.current.AccessToken, s.refresh.refreshToken, s.refresh.current.Expiry
}

// Logout revokes the session's refresh token on the server. The access
// token stays valid until it expires, but the session can no longer
// refresh.
func (s *Session) Logout(ctx context.Context) error {
	s.refresh.mu.Lock()
	refreshToken := s.refresh.refreshToken
	s.refresh.mu.Unlock()

	payload, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/auth/logout", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: APITimeout}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorFromResponse(resp)
	}
	return nil
}

// refreshSource exchanges the refresh token for a fresh pair when the
// access token expires. The server rotates refresh tokens on every
// exchange, so the stored refresh token is replaced each time.
type refreshSource struct {
	refreshURL string

	mu           sync.Mutex
	current      oauth2.Token
	refreshToken string
}

// Token implements oauth2.TokenSource. ReuseTokenSource only calls it
// when the cached token has expired.
func (rs *refreshSource) Token() (*oauth2.Token, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.current.Valid() {
		tok := rs.current
		return &tok, nil
	}

	if rs.refreshToken == "" {
		return nil, fmt.Errorf("session expired: no refresh token")
	}

	payload, err := json.Marshal(map[string]string{"refresh_token": rs.refreshToken})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), APITimeout)
	defer cancel()

	auth, err := postAuth(ctx, rs.refreshURL, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}

	rs.current = oauth2.Token{
		AccessToken: auth.Token,
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Duration(auth.ExpiresIn) * time.Second),
	}
	rs.refreshToken = auth.RefreshToken

	tok := rs.current
	return &tok, nil
}

func postAuth(ctx context.Context, url string, payload []byte) (*authResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: APITimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errorFromResponse(resp)
	}

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return nil, fmt.Errorf("failed to decode auth response: %w", err)
	}
	return &auth, nil
}
