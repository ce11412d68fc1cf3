package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sheshield/apiserver/internal/services"
	"github.com/sheshield/apiserver/internal/store"
	"github.com/sheshield/apiserver/types"
)

const testSecret = "handler-test-secret"

// fakeUserRepo is an in-memory services.UserRepository.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int]types.User{}}
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrDuplicate
		}
	}
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) UpdateName(ctx context.Context, id int, name string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	user.Name = name
	f.users[id] = user
	return user, nil
}

func (f *fakeUserRepo) List(ctx context.Context) ([]types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := make([]types.User, 0, len(f.users))
	for _, user := range f.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID > users[j].ID })
	return users, nil
}

func (f *fakeUserRepo) Count(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users), nil
}

func (f *fakeUserRepo) promote(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := f.users[id]
	user.Role = types.RoleAdmin
	f.users[id] = user
}

// fakeContactRepo is an in-memory services.ContactRepository.
type fakeContactRepo struct {
	mu       sync.Mutex
	nextID   int
	contacts map[int]types.EmergencyContact
}

func newFakeContactRepo() *fakeContactRepo {
	return &fakeContactRepo{contacts: map[int]types.EmergencyContact{}}
}

func (f *fakeContactRepo) ListByOwner(ctx context.Context, userID int) ([]types.EmergencyContact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	contacts := []types.EmergencyContact{}
	for _, contact := range f.contacts {
		if contact.UserID == userID {
			contacts = append(contacts, contact)
		}
	}
	sort.Slice(contacts, func(i, j int) bool { return contacts[i].ID > contacts[j].ID })
	return contacts, nil
}

func (f *fakeContactRepo) Create(ctx context.Context, contact types.EmergencyContact) (types.EmergencyContact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	contact.ID = f.nextID
	contact.CreatedAt = time.Now()
	f.contacts[contact.ID] = contact
	return contact, nil
}

func (f *fakeContactRepo) Update(ctx context.Context, contact types.EmergencyContact) (types.EmergencyContact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.contacts[contact.ID]
	if !ok || existing.UserID != contact.UserID {
		return types.EmergencyContact{}, store.ErrNotFound
	}
	existing.ContactName = contact.ContactName
	existing.ContactPhone = contact.ContactPhone
	f.contacts[contact.ID] = existing
	return existing, nil
}

func (f *fakeContactRepo) Delete(ctx context.Context, id, userID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.contacts[id]
	if !ok || existing.UserID != userID {
		return store.ErrNotFound
	}
	delete(f.contacts, id)
	return nil
}

// fakeReportRepo is an in-memory services.ReportRepository.
type fakeReportRepo struct {
	mu      sync.Mutex
	nextID  int
	reports map[int]types.IncidentReport
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{reports: map[int]types.IncidentReport{}}
}

func (f *fakeReportRepo) ListByOwner(ctx context.Context, userID int) ([]types.IncidentReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reports := []types.IncidentReport{}
	for _, report := range f.reports {
		if report.UserID == userID {
			reports = append(reports, report)
		}
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].ID > reports[j].ID })
	return reports, nil
}

func (f *fakeReportRepo) GetByOwner(ctx context.Context, id, userID int) (types.IncidentReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	report, ok := f.reports[id]
	if !ok || report.UserID != userID {
		return types.IncidentReport{}, store.ErrNotFound
	}
	return report, nil
}

func (f *fakeReportRepo) Get(ctx context.Context, id int) (types.IncidentReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	report, ok := f.reports[id]
	if !ok {
		return types.IncidentReport{}, store.ErrNotFound
	}
	return report, nil
}

func (f *fakeReportRepo) Create(ctx context.Context, report types.IncidentReport) (types.IncidentReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	report.ID = f.nextID
	report.CreatedAt = time.Now()
	f.reports[report.ID] = report
	return report, nil
}

func (f *fakeReportRepo) UpdateStatus(ctx context.Context, id int, status string) (types.IncidentReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	report, ok := f.reports[id]
	if !ok {
		return types.IncidentReport{}, store.ErrNotFound
	}
	report.Status = status
	f.reports[id] = report
	return report, nil
}

func (f *fakeReportRepo) SetEvidence(ctx context.Context, id, userID int, key, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	report, ok := f.reports[id]
	if !ok || report.UserID != userID {
		return store.ErrNotFound
	}
	report.EvidenceKey = &key
	report.EvidenceType = &contentType
	f.reports[id] = report
	return nil
}

func (f *fakeReportRepo) ListAll(ctx context.Context) ([]types.AdminReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reports := []types.AdminReport{}
	for _, report := range f.reports {
		reports = append(reports, types.AdminReport{IncidentReport: report})
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].ID > reports[j].ID })
	return reports, nil
}

func (f *fakeReportRepo) Count(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reports), nil
}

// fakeAlertRepo is an in-memory services.AlertRepository.
type fakeAlertRepo struct {
	mu     sync.Mutex
	nextID int
	alerts map[int]types.EmergencyAlert
}

func newFakeAlertRepo() *fakeAlertRepo {
	return &fakeAlertRepo{alerts: map[int]types.EmergencyAlert{}}
}

func (f *fakeAlertRepo) Create(ctx context.Context, alert types.EmergencyAlert) (types.EmergencyAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	alert.ID = f.nextID
	alert.Timestamp = time.Now()
	f.alerts[alert.ID] = alert
	return alert, nil
}

func (f *fakeAlertRepo) ListByOwner(ctx context.Context, userID int) ([]types.EmergencyAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	alerts := []types.EmergencyAlert{}
	for _, alert := range f.alerts {
		if alert.UserID == userID {
			alerts = append(alerts, alert)
		}
	}
	sort.Slice(alerts, func(i, j int) bool { return alerts[i].ID > alerts[j].ID })
	return alerts, nil
}

func (f *fakeAlertRepo) ListAll(ctx context.Context) ([]types.AdminAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	alerts := []types.AdminAlert{}
	for _, alert := range f.alerts {
		alerts = append(alerts, types.AdminAlert{EmergencyAlert: alert})
	}
	sort.Slice(alerts, func(i, j int) bool { return alerts[i].ID > alerts[j].ID })
	return alerts, nil
}

func (f *fakeAlertRepo) Count(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts), nil
}

// testEnv wires the full /api router over in-memory repositories.
type testEnv struct {
	server   *httptest.Server
	users    *fakeUserRepo
	contacts *fakeContactRepo
	reports  *fakeReportRepo
	alerts   *fakeAlertRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := newFakeUserRepo()
	contacts := newFakeContactRepo()
	reports := newFakeReportRepo()
	alerts := newFakeAlertRepo()

	userService := services.NewUserService(users)
	contactService := services.NewContactService(contacts)
	reportService := services.NewReportService(reports, nil)
	alertService := services.NewAlertService(alerts, users, contacts, nil, "")

	authHandler := NewAuthHandler(userService, testSecret, 0)
	contactHandler := NewContactHandler(contactService)
	reportHandler := NewReportHandler(reportService)
	alertHandler := NewAlertHandler(alertService)
	adminHandler := NewAdminHandler(userService, reportService, alertService)

	requireAuth := RequireAuth(testSecret)
	requireAdmin := RequireRole(types.RoleAdmin)

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		r.Get("/health", Health)
		r.Route("/auth", func(r chi.Router) {
			AuthRouter(r, authHandler)
		})
		r.Route("/contacts", func(r chi.Router) {
			r.Use(requireAuth)
			ContactRouter(r, contactHandler)
		})
		r.Route("/reports", func(r chi.Router) {
			r.Use(requireAuth)
			ReportRouter(r, reportHandler)
		})
		r.Route("/emergency", func(r chi.Router) {
			r.Use(requireAuth)
			AlertRouter(r, alertHandler)
		})
		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAuth, requireAdmin)
			AdminRouter(r, adminHandler)
		})
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testEnv{
		server:   srv,
		users:    users,
		contacts: contacts,
		reports:  reports,
		alerts:   alerts,
	}
}

// request performs a JSON request and decodes the body into a map.
func (env *testEnv) request(t *testing.T, method, path, token string, payload any) (int, map[string]json.RawMessage) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, env.server.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	fields := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(raw)) > 0 && strings.HasPrefix(strings.TrimSpace(string(raw)), "{") {
		if err := json.Unmarshal(raw, &fields); err != nil {
			t.Fatalf("decode body %q: %v", raw, err)
		}
	}
	return resp.StatusCode, fields
}

// requestList performs a JSON request expecting an array response.
func (env *testEnv) requestList(t *testing.T, method, path, token string) (int, []json.RawMessage) {
	t.Helper()

	req, err := http.NewRequest(method, env.server.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var items []json.RawMessage
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
			t.Fatalf("decode list: %v", err)
		}
	}
	return resp.StatusCode, items
}

// register creates an account and returns its token and user.
func (env *testEnv) register(t *testing.T, name, email, password string) (string, types.User) {
	t.Helper()

	status, body := env.request(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
	if status != http.StatusCreated {
		t.Fatalf("register status = %d, body %v", status, body)
	}

	var token string
	if err := json.Unmarshal(body["token"], &token); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	var user types.User
	if err := json.Unmarshal(body["user"], &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	return token, user
}
