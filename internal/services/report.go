package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sheshield/apiserver/internal/storage"
	"github.com/sheshield/apiserver/types"
)

// ErrInvalidStatus is returned when a status value is outside the
// {Pending, Resolved} vocabulary.
var ErrInvalidStatus = errors.New("invalid status")

// ErrStatusLocked is returned on an attempt to move a resolved report
// back to pending.
var ErrStatusLocked = errors.New("report already resolved")

// ErrNoStorage is returned from evidence operations when no object
// storage backend is configured.
var ErrNoStorage = errors.New("object storage is not configured")

// ReportRepository defines persistence operations for incident reports.
type ReportRepository interface {
	ListByOwner(ctx context.Context, userID int) ([]types.IncidentReport, error)
	GetByOwner(ctx context.Context, id, userID int) (types.IncidentReport, error)
	Get(ctx context.Context, id int) (types.IncidentReport, error)
	Create(ctx context.Context, report types.IncidentReport) (types.IncidentReport, error)
	UpdateStatus(ctx context.Context, id int, status string) (types.IncidentReport, error)
	SetEvidence(ctx context.Context, id, userID int, key, contentType string) error
	ListAll(ctx context.Context) ([]types.AdminReport, error)
	Count(ctx context.Context) (int, error)
}

// ReportService encapsulates incident report use-cases, including the
// evidence attachments backed by object storage.
type ReportService struct {
	repo    ReportRepository
	storage *storage.Storage
}

func NewReportService(repo ReportRepository, storage *storage.Storage) *ReportService {
	return &ReportService{repo: repo, storage: storage}
}

func (s *ReportService) List(ctx context.Context, userID int) ([]types.IncidentReport, error) {
	return s.repo.ListByOwner(ctx, userID)
}

func (s *ReportService) Get(ctx context.Context, id, userID int) (types.IncidentReport, error) {
	return s.repo.GetByOwner(ctx, id, userID)
}

// Create files a new report. Status always starts Pending regardless of
// client input.
func (s *ReportService) Create(ctx context.Context, report types.IncidentReport) (types.IncidentReport, error) {
	report.Status = types.ReportStatusPending
	return s.repo.Create(ctx, report)
}

// UpdateStatus moves a report between statuses. Only values in the
// {Pending, Resolved} set are accepted, and a resolved report never
// goes back to pending. Setting the current status again is a no-op
// that succeeds.
func (s *ReportService) UpdateStatus(ctx context.Context, id int, status string) (types.IncidentReport, error) {
	if !types.ValidReportStatus(status) {
		return types.IncidentReport{}, ErrInvalidStatus
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.IncidentReport{}, err
	}
	if current.Status == status {
		return current, nil
	}
	if current.Status == types.ReportStatusResolved && status == types.ReportStatusPending {
		return types.IncidentReport{}, ErrStatusLocked
	}

	return s.repo.UpdateStatus(ctx, id, status)
}

func (s *ReportService) ListAll(ctx context.Context) ([]types.AdminReport, error) {
	return s.repo.ListAll(ctx)
}

func (s *ReportService) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// AttachEvidence uploads an attachment for the caller's own report and
// records its storage location. The report must exist and belong to
// userID.
func (s *ReportService) AttachEvidence(ctx context.Context, id, userID int, data []byte, contentType string) (types.IncidentReport, error) {
	if s.storage == nil {
		return types.IncidentReport{}, ErrNoStorage
	}

	report, err := s.repo.GetByOwner(ctx, id, userID)
	if err != nil {
		return types.IncidentReport{}, err
	}

	key := evidenceKey(report.ID)
	if err := s.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return types.IncidentReport{}, err
	}
	if err := s.repo.SetEvidence(ctx, report.ID, userID, key, contentType); err != nil {
		return types.IncidentReport{}, err
	}

	report.EvidenceKey = &key
	report.EvidenceType = &contentType
	return report, nil
}

// OpenEvidence streams a previously uploaded attachment, owner-scoped.
// A report without evidence behaves like a missing resource.
func (s *ReportService) OpenEvidence(ctx context.Context, id, userID int) (io.ReadCloser, string, error) {
	if s.storage == nil {
		return nil, "", ErrNoStorage
	}

	report, err := s.repo.GetByOwner(ctx, id, userID)
	if err != nil {
		return nil, "", err
	}
	if report.EvidenceKey == nil {
		return nil, "", ErrEvidenceNotFound
	}

	reader, err := s.storage.Get(ctx, *report.EvidenceKey)
	if err != nil {
		return nil, "", err
	}

	contentType := ""
	if report.EvidenceType != nil {
		contentType = *report.EvidenceType
	}
	return reader, contentType, nil
}

// ErrEvidenceNotFound is returned when a report has no attachment.
var ErrEvidenceNotFound = errors.New("evidence not found")

func evidenceKey(reportID int) string {
	return fmt.Sprintf("reports/%d/evidence", reportID)
}
