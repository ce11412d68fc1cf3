package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sheshield/apiserver/internal/services"
	"github.com/sheshield/apiserver/internal/store"
	"github.com/sheshield/apiserver/internal/validate"
	"github.com/sheshield/apiserver/types"
)

const (
	maxEvidenceBytes   = 16 << 20
	maxMultipartMemory = 8 << 20
	formFieldEvidence  = "evidence"
)

// ReportHandler provides HTTP handlers for incident reports, all
// owner-scoped.
type ReportHandler struct {
	reportService *services.ReportService
}

func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// ReportRouter registers report routes on the given router. The auth
// middleware must already be mounted.
func ReportRouter(r chi.Router, handler *ReportHandler) {
	r.Get("/", handler.ListReports)
	r.Post("/", handler.CreateReport)
	r.Route("/{reportID}", func(r chi.Router) {
		r.Get("/", handler.GetReport)
		r.Post("/evidence", handler.UploadEvidence)
		r.Get("/evidence", handler.DownloadEvidence)
	})
}

func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	reports, err := h.reportService.List(r.Context(), identity.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}

	writeJSON(w, http.StatusOK, reports)
}

func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "reportID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid report id")
		return
	}

	report, err := h.reportService.Get(r.Context(), id, identity.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch report")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (h *ReportHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	errs := validate.Apply([]validate.Rule{
		{Field: "description", Value: &req.Description, Checks: []validate.Check{
			validate.Required("description is required"),
		}},
		{Field: "location", Value: &req.Location, Optional: true},
		{Field: "date", Value: &req.Date, Checks: []validate.Check{
			validate.Required("date is required"),
			validate.ISODate("valid date required"),
		}},
	})
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	date, err := validate.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "valid date required")
		return
	}

	report := types.IncidentReport{
		UserID:      identity.ID,
		Description: req.Description,
		Date:        date,
	}
	if req.Location != "" {
		report.Location = &req.Location
	}

	created, err := h.reportService.Create(r.Context(), report)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create report")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// UploadEvidence attaches a single file to the caller's own report.
func (h *ReportHandler) UploadEvidence(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "reportID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid report id")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile(formFieldEvidence)
	if err != nil {
		writeError(w, http.StatusBadRequest, "evidence file is required")
		return
	}
	data, err := readFileLimited(file, maxEvidenceBytes)
	_ = file.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	report, err := h.reportService.AttachEvidence(r.Context(), id, identity.ID, data, contentType)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to store evidence")
		return
	}

	writeJSON(w, http.StatusCreated, report)
}

// DownloadEvidence streams the attachment of the caller's own report.
func (h *ReportHandler) DownloadEvidence(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "reportID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid report id")
		return
	}

	reader, contentType, err := h.reportService.OpenEvidence(r.Context(), id, identity.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, services.ErrEvidenceNotFound) {
			writeError(w, http.StatusNotFound, "evidence not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch evidence")
		return
	}
	defer reader.Close()

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}

type ReportRequest struct {
	Description string `json:"description"`
	Location    string `json:"location"`
	Date        string `json:"date"`
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}
