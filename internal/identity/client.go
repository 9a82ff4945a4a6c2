package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/zxweb/zx/internal/roster"
	"go.uber.org/zap"
)

var phoneRegexp = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// Client talks HTTP JSON to an identity endpoint. An empty base URL puts it
// in simulated mode: every flow succeeds locally without network access.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a provider for the given endpoint. baseURL may be empty
// for simulated mode.
func NewClient(baseURL, apiKey string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// Simulated reports whether the client runs without a remote endpoint.
func (c *Client) Simulated() bool {
	return c.baseURL == ""
}

// SignInWithToken exchanges an OAuth id token for a session profile.
func (c *Client) SignInWithToken(ctx context.Context, idToken string) (roster.User, error) {
	if idToken == "" {
		return roster.User{}, &AuthError{Op: "oauth", Message: "empty id token"}
	}
	if c.Simulated() {
		c.logger.Info("simulated oauth sign-in")
		return simulatedUser(), nil
	}

	var resp sessionResponse
	if err := c.post(ctx, "/v1/sessions/oauth", map[string]string{"id_token": idToken}, &resp); err != nil {
		return roster.User{}, err
	}
	return userFromToken(resp.IDToken)
}

// RequestCode asks the endpoint to send a one-time code to the phone number.
func (c *Client) RequestCode(ctx context.Context, phone string) error {
	if !phoneRegexp.MatchString(phone) {
		return &AuthError{Op: "otp-request", Message: fmt.Sprintf("malformed phone number %q", phone)}
	}
	if c.Simulated() {
		c.logger.Info("simulated otp request", zap.String("phone", phone))
		return nil
	}
	return c.post(ctx, "/v1/otp/request", map[string]string{"phone": phone}, nil)
}

// VerifyCode exchanges the phone number and received code for a profile.
func (c *Client) VerifyCode(ctx context.Context, phone, code string) (roster.User, error) {
	if len(code) != 6 {
		return roster.User{}, &AuthError{Op: "otp-verify", Message: "code must be six digits"}
	}
	if c.Simulated() {
		u := simulatedUser()
		u.Phone = phone
		return u, nil
	}

	var resp sessionResponse
	if err := c.post(ctx, "/v1/otp/verify", map[string]string{"phone": phone, "code": code}, &resp); err != nil {
		return roster.User{}, err
	}
	return userFromToken(resp.IDToken)
}

type sessionResponse struct {
	IDToken string `json:"id_token"`
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &AuthError{Op: path, Message: err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &AuthError{Op: path, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &AuthError{Op: path, Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &AuthError{Op: path, Status: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &AuthError{Op: path, Message: "malformed response: " + err.Error()}
	}
	return nil
}

// userFromToken maps the session token's claims onto a profile. The token
// was just issued to us over the authenticated channel, so the signature is
// the server's concern, not ours.
func userFromToken(token string) (roster.User, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return roster.User{}, &AuthError{Op: "session", Message: "malformed id token: " + err.Error()}
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return roster.User{}, &AuthError{Op: "session", Message: "id token missing sub claim"}
	}
	name, _ := claims["name"].(string)
	if name == "" {
		name = sub
	}
	picture, _ := claims["picture"].(string)
	email, _ := claims["email"].(string)
	phone, _ := claims["phone_number"].(string)

	return roster.User{
		ID:       sub,
		Name:     name,
		Avatar:   picture,
		Presence: roster.Online,
		About:    "Available on ZX",
		Email:    email,
		Phone:    phone,
	}, nil
}

func simulatedUser() roster.User {
	return roster.User{
		ID:       "zx-user",
		Name:     "ZX User",
		Avatar:   "https://picsum.photos/seed/zx-user/200",
		Presence: roster.Online,
		About:    "Available on ZX",
		Email:    "user@zx.dev",
	}
}
