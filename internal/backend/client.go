package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/driftwatch/console-core/internal/auth"
	"github.com/driftwatch/console-core/internal/infrastructure/logging"
)

// maxErrorBodySize bounds how much of an error response body is read.
const maxErrorBodySize = 64 << 10

// defaultRetryAttempts bounds retries of idempotent GET requests.
const defaultRetryAttempts = 3

// APIError is the typed error for any non-2xx backend response.
type APIError struct {
	// Status is the HTTP status code. Callers branch on this.
	Status int

	// Code is the backend's machine-readable error code, if present.
	Code string

	// Detail is the human-readable message extracted from the body.
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend: %d %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("backend: %d", e.Status)
}

// IsUnauthorized reports whether err is an APIError with status 401.
// A 401 anywhere in the session lifecycle is fatal to the session.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// errorEnvelope is the backend's error response body shape.
type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// SessionBundle is the full response of login and register.
type SessionBundle struct {
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
	TokenType    string            `json:"token_type"`
	User         auth.User         `json:"user"`
	Org          auth.Organization `json:"org"`
	Role         auth.Role         `json:"role"`
}

// RefreshResult is the response of refresh and switch-organization.
type RefreshResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Identity is the response of the bearer-authenticated identity query.
type Identity struct {
	UserID string    `json:"user_id"`
	OrgID  string    `json:"org_id"`
	Role   auth.Role `json:"role"`
	Teams  []string  `json:"teams"`
}

// OrgMembership is one entry of the organization listing.
type OrgMembership struct {
	Org  auth.Organization `json:"org"`
	Role auth.Role         `json:"role"`
}

// Config contains client connection settings.
type Config struct {
	// BaseURL is the backend API root, without a trailing slash.
	BaseURL string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// RetryAttempts bounds retries of idempotent GETs. Zero selects the
	// default. Mutating requests are never retried.
	RetryAttempts int
}

// Client issues session-lifecycle requests against the auth backend.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	logger        *logging.Logger
	retryAttempts uint
}

// NewClient creates a backend client.
func NewClient(cfg Config, logger *logging.Logger) *Client {
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		logger:        logger,
		retryAttempts: uint(attempts),
	}
}

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	OrganizationID string `json:"organization_id,omitempty"`
}

// Login authenticates with credentials and returns the full session bundle.
// The optional orgID pins the session to one of the user's organizations.
func (c *Client) Login(ctx context.Context, email, password, orgID string) (*SessionBundle, error) {
	var bundle SessionBundle
	err := c.postJSON(ctx, "/auth/login", loginRequest{
		Email:          email,
		Password:       password,
		OrganizationID: orgID,
	}, &bundle)
	if err != nil {
		return nil, err
	}
	return &bundle, nil
}

// registerRequest is the request body for POST /auth/register.
type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	OrgName  string `json:"org_name"`
}

// Register creates an account plus its first organization and returns
// the same bundle shape as Login.
func (c *Client) Register(ctx context.Context, email, password, name, orgName string) (*SessionBundle, error) {
	var bundle SessionBundle
	err := c.postJSON(ctx, "/auth/register", registerRequest{
		Email:    email,
		Password: password,
		Name:     name,
		OrgName:  orgName,
	}, &bundle)
	if err != nil {
		return nil, err
	}
	return &bundle, nil
}

// refreshRequest is the request body for POST /auth/refresh.
type refreshRequest struct {
	RefreshToken   string `json:"refresh_token"`
	OrganizationID string `json:"organization_id,omitempty"`
}

// Refresh exchanges a refresh token for a new access token in the same
// organization scope.
func (c *Client) Refresh(ctx context.Context, refreshToken, orgID string) (*RefreshResult, error) {
	var result RefreshResult
	err := c.postJSON(ctx, "/auth/refresh", refreshRequest{
		RefreshToken:   refreshToken,
		OrganizationID: orgID,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SwitchOrganization re-scopes the session to another organization the
// user belongs to. Implemented via the refresh endpoint parameterised by
// the target organization; the new access token carries the new org and
// role claims.
func (c *Client) SwitchOrganization(ctx context.Context, refreshToken, orgID string) (*RefreshResult, error) {
	return c.Refresh(ctx, refreshToken, orgID)
}

// CurrentUser queries the backend for the identity behind an access token.
func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*Identity, error) {
	var identity Identity
	if err := c.getJSON(ctx, "/auth/me", accessToken, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// Organizations lists the organizations the user belongs to, with the
// user's role in each. Feeds the organization switcher.
func (c *Client) Organizations(ctx context.Context, accessToken string) ([]OrgMembership, error) {
	var memberships []OrgMembership
	if err := c.getJSON(ctx, "/auth/orgs", accessToken, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

// postJSON issues a POST and decodes the 2xx response into out.
// Mutating requests are issued exactly once — no retry.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

// getJSON issues a bearer-authenticated GET and decodes the 2xx response
// into out. Transient transport failures and 5xx responses are retried a
// bounded number of times; 4xx responses are returned immediately.
func (c *Client) getJSON(ctx context.Context, path, accessToken string, out any) error {
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("building request: %w", err))
			}
			req.Header.Set("Authorization", "Bearer "+accessToken)

			if err := c.do(req, out); err != nil {
				var apiErr *APIError
				if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
					return retry.Unrecoverable(err)
				}
				return err
			}
			return nil
		},
		retry.Attempts(c.retryAttempts),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("retrying backend request", "path", path, "attempt", n+1, "error", err)
		}),
	)
}

// do executes the request and maps non-2xx responses to *APIError.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best-effort close

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// decodeError builds an *APIError from a non-2xx response body.
// The body is best-effort: a non-JSON body becomes the raw detail text.
func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil {
		apiErr.Code = envelope.Code
		apiErr.Detail = envelope.Message
		if apiErr.Detail == "" {
			apiErr.Detail = envelope.Detail
		}
	}
	if apiErr.Detail == "" {
		apiErr.Detail = strings.TrimSpace(string(body))
	}

	return apiErr
}
