// Package client is a Go SDK for the SheShield API. It mirrors the
// front end's session handling: one process-wide session, rehydrated
// at construction from a stored token and cleared on logout. Logout is
// purely client-side; the server keeps no revocation list, so a signed
// token stays valid until its natural expiry.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sheshield/apiserver/types"
)

const defaultTimeout = 15 * time.Second

// ErrUnauthenticated is returned when a call requires a session and
// none is active, or the server rejected the token.
var ErrUnauthenticated = errors.New("not logged in")

// APIError carries a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
	Fields     []FieldError
}

// FieldError is one entry of a validation failure response.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
		}
		return fmt.Sprintf("api status %d: %s", e.StatusCode, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("api status %d: %s", e.StatusCode, e.Message)
}

// Client talks to a SheShield server and holds the current session.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore

	mu    sync.Mutex
	token string
	user  *types.User
}

// New constructs a Client and rehydrates any stored session: the
// persisted token is exchanged for the current identity via /auth/me,
// and discarded if that exchange fails.
func New(ctx context.Context, baseURL string, tokens TokenStore) (*Client, error) {
	if tokens == nil {
		tokens = NopTokenStore{}
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		tokens:  tokens,
	}

	token, err := tokens.Load()
	if err != nil || token == "" {
		return c, nil
	}

	c.token = token
	user, err := c.Me(ctx)
	if err != nil {
		c.clearSession()
		return c, nil
	}
	c.user = &user
	return c, nil
}

// Register creates an account and opens a session.
func (c *Client) Register(ctx context.Context, name, email, password string) (types.User, error) {
	return c.authenticate(ctx, "/api/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
}

// Login opens a session with existing credentials.
func (c *Client) Login(ctx context.Context, email, password string) (types.User, error) {
	return c.authenticate(ctx, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

// Logout clears the persisted token and the in-memory session.
func (c *Client) Logout() error {
	c.clearSession()
	return c.tokens.Clear()
}

// CurrentUser returns the session identity, if any.
func (c *Client) CurrentUser() (types.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return types.User{}, false
	}
	return *c.user, true
}

// IsAdmin reports whether the current session belongs to an admin.
func (c *Client) IsAdmin() bool {
	user, ok := c.CurrentUser()
	return ok && user.Role == types.RoleAdmin
}

// Me fetches the server's view of the current identity.
func (c *Client) Me(ctx context.Context) (types.User, error) {
	var user types.User
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &user)
	return user, err
}

// UpdateProfile changes the session user's display name.
func (c *Client) UpdateProfile(ctx context.Context, name string) (types.User, error) {
	var user types.User
	err := c.do(ctx, http.MethodPut, "/api/auth/profile", map[string]string{"name": name}, &user)
	if err != nil {
		return types.User{}, err
	}
	c.mu.Lock()
	c.user = &user
	c.mu.Unlock()
	return user, nil
}

// ListContacts returns the session user's emergency contacts.
func (c *Client) ListContacts(ctx context.Context) ([]types.EmergencyContact, error) {
	var contacts []types.EmergencyContact
	err := c.do(ctx, http.MethodGet, "/api/contacts", nil, &contacts)
	return contacts, err
}

// CreateContact adds an emergency contact.
func (c *Client) CreateContact(ctx context.Context, name, phone string) (types.EmergencyContact, error) {
	var contact types.EmergencyContact
	err := c.do(ctx, http.MethodPost, "/api/contacts", contactPayload(name, phone), &contact)
	return contact, err
}

// UpdateContact edits an emergency contact.
func (c *Client) UpdateContact(ctx context.Context, id int, name, phone string) (types.EmergencyContact, error) {
	var contact types.EmergencyContact
	path := fmt.Sprintf("/api/contacts/%d", id)
	err := c.do(ctx, http.MethodPut, path, contactPayload(name, phone), &contact)
	return contact, err
}

// DeleteContact removes an emergency contact.
func (c *Client) DeleteContact(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/contacts/%d", id), nil, nil)
}

// ListReports returns the session user's incident reports.
func (c *Client) ListReports(ctx context.Context) ([]types.IncidentReport, error) {
	var reports []types.IncidentReport
	err := c.do(ctx, http.MethodGet, "/api/reports", nil, &reports)
	return reports, err
}

// GetReport fetches one of the session user's reports.
func (c *Client) GetReport(ctx context.Context, id int) (types.IncidentReport, error) {
	var report types.IncidentReport
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/reports/%d", id), nil, &report)
	return report, err
}

// CreateReport files an incident report. location may be empty; date
// is an ISO-8601 date string.
func (c *Client) CreateReport(ctx context.Context, description, location, date string) (types.IncidentReport, error) {
	payload := map[string]string{
		"description": description,
		"location":    location,
		"date":        date,
	}
	var report types.IncidentReport
	err := c.do(ctx, http.MethodPost, "/api/reports", payload, &report)
	return report, err
}

// SendAlert triggers the panic button. location may be empty.
func (c *Client) SendAlert(ctx context.Context, location string) (types.EmergencyAlert, error) {
	payload := map[string]string{}
	if location != "" {
		payload["location"] = location
	}
	var resp struct {
		Alert types.EmergencyAlert `json:"alert"`
	}
	err := c.do(ctx, http.MethodPost, "/api/emergency", payload, &resp)
	return resp.Alert, err
}

// ListAlerts returns the session user's past alerts.
func (c *Client) ListAlerts(ctx context.Context) ([]types.EmergencyAlert, error) {
	var alerts []types.EmergencyAlert
	err := c.do(ctx, http.MethodGet, "/api/emergency", nil, &alerts)
	return alerts, err
}

// AdminStats fetches dashboard counters. Admin role required.
func (c *Client) AdminStats(ctx context.Context) (types.Stats, error) {
	var stats types.Stats
	err := c.do(ctx, http.MethodGet, "/api/admin/stats", nil, &stats)
	return stats, err
}

func contactPayload(name, phone string) map[string]string {
	return map[string]string{
		"contact_name":  name,
		"contact_phone": phone,
	}
}

func (c *Client) authenticate(ctx context.Context, path string, payload map[string]string) (types.User, error) {
	var resp struct {
		Token string     `json:"token"`
		User  types.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, path, payload, &resp); err != nil {
		return types.User{}, err
	}

	c.mu.Lock()
	c.token = resp.Token
	c.user = &resp.User
	c.mu.Unlock()

	if err := c.tokens.Save(resp.Token); err != nil {
		return resp.User, err
	}
	return resp.User, nil
}

func (c *Client) clearSession() {
	c.mu.Lock()
	c.token = ""
	c.user = nil
	c.mu.Unlock()
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var parsed struct {
		Message string       `json:"message"`
		Errors  []FieldError `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err == nil {
		apiErr.Message = parsed.Message
		apiErr.Fields = parsed.Errors
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", ErrUnauthenticated, apiErr.Message)
	}
	return apiErr
}
