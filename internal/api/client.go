package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is where a local backend listens.
	DefaultBaseURL = "http://localhost:8080"

	basePath = "/v1"
)

// Doer executes HTTP requests. *http.Client satisfies it; tests substitute a
// bridge into an in-process application.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenSource supplies the bearer token attached to authenticated calls. An
// empty token means no active session.
type TokenSource interface {
	Token() string
}

// Client is a thin wrapper over the backend auth contract. All methods are
// plain request/response calls; session state lives elsewhere.
type Client struct {
	baseURL        string
	http           Doer
	tokens         TokenSource
	onUnauthorized func()
}

// NewClient builds a Client against baseURL. A nil doer falls back to a
// default http.Client; tokens may be nil for a client that only performs
// unauthenticated calls.
func NewClient(baseURL string, doer Doer, tokens TokenSource) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if doer == nil {
		doer = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, http: doer, tokens: tokens}
}

// OnUnauthorized registers a hook invoked when an authenticated call comes
// back 401, i.e. the bearer token is no longer accepted. Callers typically
// wire this to session teardown.
func (c *Client) OnUnauthorized(fn func()) {
	c.onUnauthorized = fn
}

// GuestLogin creates a session for an anonymous device. The resulting user
// has is_guest set and no identifier or PIN.
func (c *Client) GuestLogin(ctx context.Context, deviceID string) (AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"device_id": deviceID}
	if err := c.do(ctx, http.MethodPost, "/auth/guest", body, &out, false); err != nil {
		return AuthResponse{}, err
	}
	return out, nil
}

// Identify asks whether an identifier already belongs to an account. A
// non-existent identifier is not an error; only transport and server failures
// return one.
func (c *Client) Identify(ctx context.Context, identifier string) (IdentifyResult, error) {
	var out IdentifyResult
	body := map[string]string{"identifier": identifier}
	if err := c.do(ctx, http.MethodPost, "/auth/identify", body, &out, false); err != nil {
		return IdentifyResult{}, err
	}
	return out, nil
}

// SendOTP requests delivery of a one-time code to the identifier. Safe to
// call repeatedly; rate limiting is the backend's concern.
func (c *Client) SendOTP(ctx context.Context, identifier string) error {
	body := map[string]string{"identifier": identifier}
	return c.do(ctx, http.MethodPost, "/auth/otp/send", body, nil, false)
}

// VerifyOTP exchanges a delivered code for a single-use claim token. A
// rejected code returns ErrInvalidCode.
func (c *Client) VerifyOTP(ctx context.Context, identifier, otp string) (string, error) {
	var out struct {
		ClaimToken string `json:"claim_token"`
	}
	body := map[string]string{"identifier": identifier, "otp": otp}
	if err := c.do(ctx, http.MethodPost, "/auth/otp/verify", body, &out, false); err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
			return "", fmt.Errorf("%w: %s", ErrInvalidCode, apiErr.Message)
		}
		return "", err
	}
	return out.ClaimToken, nil
}

// Register consumes a claim token and creates a PIN-protected account. A
// missing, expired, or already consumed claim token returns ErrClaimRejected.
func (c *Client) Register(ctx context.Context, in RegisterInput) (AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", in, &out, false); err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
			return AuthResponse{}, fmt.Errorf("%w: %s", ErrClaimRejected, apiErr.Message)
		}
		return AuthResponse{}, err
	}
	return out, nil
}

// Login authenticates an existing account. A credentials mismatch returns
// ErrAuthFailed without saying which part was wrong.
func (c *Client) Login(ctx context.Context, in LoginInput) (AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", in, &out, false); err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return AuthResponse{}, ErrAuthFailed
		}
		return AuthResponse{}, err
	}
	return out, nil
}

// UpdateProfile applies a partial update to the authenticated user's profile.
func (c *Client) UpdateProfile(ctx context.Context, in ProfileUpdate) (User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPut, "/user", in, &out, true); err != nil {
		return User{}, err
	}
	return out.User, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+basePath+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authed && c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		if resp.StatusCode == http.StatusUnauthorized && authed && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return &Error{Status: resp.StatusCode, Message: decodeErrorBody(resp.Body)}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
