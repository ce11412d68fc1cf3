package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sheshield/apiserver/internal/storage"
	"github.com/sheshield/apiserver/internal/store"
	"github.com/sheshield/apiserver/types"
)

type stubReportRepo struct {
	nextID  int
	reports map[int]types.IncidentReport
}

func newStubReportRepo() *stubReportRepo {
	return &stubReportRepo{reports: map[int]types.IncidentReport{}}
}

func (s *stubReportRepo) ListByOwner(ctx context.Context, userID int) ([]types.IncidentReport, error) {
	return nil, nil
}

func (s *stubReportRepo) GetByOwner(ctx context.Context, id, userID int) (types.IncidentReport, error) {
	report, ok := s.reports[id]
	if !ok || report.UserID != userID {
		return types.IncidentReport{}, store.ErrNotFound
	}
	return report, nil
}

func (s *stubReportRepo) Get(ctx context.Context, id int) (types.IncidentReport, error) {
	report, ok := s.reports[id]
	if !ok {
		return types.IncidentReport{}, store.ErrNotFound
	}
	return report, nil
}

func (s *stubReportRepo) Create(ctx context.Context, report types.IncidentReport) (types.IncidentReport, error) {
	s.nextID++
	report.ID = s.nextID
	s.reports[report.ID] = report
	return report, nil
}

func (s *stubReportRepo) UpdateStatus(ctx context.Context, id int, status string) (types.IncidentReport, error) {
	report, ok := s.reports[id]
	if !ok {
		return types.IncidentReport{}, store.ErrNotFound
	}
	report.Status = status
	s.reports[id] = report
	return report, nil
}

func (s *stubReportRepo) SetEvidence(ctx context.Context, id, userID int, key, contentType string) error {
	report, ok := s.reports[id]
	if !ok || report.UserID != userID {
		return store.ErrNotFound
	}
	report.EvidenceKey = &key
	report.EvidenceType = &contentType
	s.reports[id] = report
	return nil
}

func (s *stubReportRepo) ListAll(ctx context.Context) ([]types.AdminReport, error) {
	return nil, nil
}

func (s *stubReportRepo) Count(ctx context.Context) (int, error) {
	return len(s.reports), nil
}

// memObjectStore is an in-memory storage.ObjectStorage.
type memObjectStore struct {
	objects map[string][]byte
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{objects: map[string][]byte{}}
}

func (m *memObjectStore) EnsureBucket(ctx context.Context) error { return nil }

func (m *memObjectStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memObjectStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such object")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memObjectStore) Delete(ctx context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memObjectStore) Bucket() string { return "test-bucket" }

func TestUpdateStatusEnforcesVocabulary(t *testing.T) {
	repo := newStubReportRepo()
	svc := NewReportService(repo, nil)

	report, err := svc.Create(context.Background(), types.IncidentReport{UserID: 1, Description: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.UpdateStatus(context.Background(), report.ID, "Closed"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("err = %v, want ErrInvalidStatus", err)
	}
	if repo.reports[report.ID].Status != types.ReportStatusPending {
		t.Fatalf("store mutated by invalid status")
	}
}

func TestUpdateStatusNeverReopens(t *testing.T) {
	repo := newStubReportRepo()
	svc := NewReportService(repo, nil)

	report, err := svc.Create(context.Background(), types.IncidentReport{UserID: 1, Description: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.UpdateStatus(context.Background(), report.ID, types.ReportStatusResolved); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), report.ID, types.ReportStatusPending); !errors.Is(err, ErrStatusLocked) {
		t.Fatalf("err = %v, want ErrStatusLocked", err)
	}

	// Same status again is a no-op that succeeds.
	updated, err := svc.UpdateStatus(context.Background(), report.ID, types.ReportStatusResolved)
	if err != nil {
		t.Fatalf("idempotent resolve: %v", err)
	}
	if updated.Status != types.ReportStatusResolved {
		t.Fatalf("status = %q", updated.Status)
	}
}

func TestCreateForcesPendingStatus(t *testing.T) {
	repo := newStubReportRepo()
	svc := NewReportService(repo, nil)

	report, err := svc.Create(context.Background(), types.IncidentReport{
		UserID:      1,
		Description: "x",
		Status:      types.ReportStatusResolved,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if report.Status != types.ReportStatusPending {
		t.Fatalf("status = %q, want Pending", report.Status)
	}
}

func TestEvidenceRoundTrip(t *testing.T) {
	repo := newStubReportRepo()
	objects := newMemObjectStore()
	svc := NewReportService(repo, storage.NewStorage(objects))

	report, err := svc.Create(context.Background(), types.IncidentReport{UserID: 1, Description: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	payload := []byte("jpeg bytes")
	attached, err := svc.AttachEvidence(context.Background(), report.ID, 1, payload, "image/jpeg")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if attached.EvidenceKey == nil || *attached.EvidenceKey == "" {
		t.Fatalf("evidence key not recorded")
	}

	reader, contentType, err := svc.OpenEvidence(context.Background(), report.ID, 1)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("evidence bytes differ")
	}
	if contentType != "image/jpeg" {
		t.Fatalf("content type = %q", contentType)
	}
}

func TestEvidenceIsOwnerScoped(t *testing.T) {
	repo := newStubReportRepo()
	svc := NewReportService(repo, storage.NewStorage(newMemObjectStore()))

	report, err := svc.Create(context.Background(), types.IncidentReport{UserID: 1, Description: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.AttachEvidence(context.Background(), report.ID, 2, []byte("x"), "text/plain"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("cross-user attach err = %v, want ErrNotFound", err)
	}
	if _, _, err := svc.OpenEvidence(context.Background(), report.ID, 2); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("cross-user open err = %v, want ErrNotFound", err)
	}
}

func TestEvidenceWithoutStorageConfigured(t *testing.T) {
	repo := newStubReportRepo()
	svc := NewReportService(repo, nil)

	report, err := svc.Create(context.Background(), types.IncidentReport{UserID: 1, Description: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.AttachEvidence(context.Background(), report.ID, 1, []byte("x"), "text/plain"); !errors.Is(err, ErrNoStorage) {
		t.Fatalf("err = %v, want ErrNoStorage", err)
	}
}

func TestOpenEvidenceWithoutAttachment(t *testing.T) {
	repo := newStubReportRepo()
	svc := NewReportService(repo, storage.NewStorage(newMemObjectStore()))

	report, err := svc.Create(context.Background(), types.IncidentReport{UserID: 1, Description: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, _, err := svc.OpenEvidence(context.Background(), report.ID, 1); !errors.Is(err, ErrEvidenceNotFound) {
		t.Fatalf("err = %v, want ErrEvidenceNotFound", err)
	}
}
