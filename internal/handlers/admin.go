package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sheshield/apiserver/internal/services"
	"github.com/sheshield/apiserver/internal/store"
	"github.com/sheshield/apiserver/types"
)

// AdminHandler provides the aggregate monitoring endpoints. Routes are
// mounted behind RequireAuth + RequireRole(admin); the per-owner
// scoping used everywhere else is deliberately bypassed here.
type AdminHandler struct {
	userService   *services.UserService
	reportService *services.ReportService
	alertService  *services.AlertService
}

func NewAdminHandler(userService *services.UserService, reportService *services.ReportService, alertService *services.AlertService) *AdminHandler {
	return &AdminHandler{
		userService:   userService,
		reportService: reportService,
		alertService:  alertService,
	}
}

// AdminRouter registers admin routes on the given router. Auth and
// role middleware must already be mounted.
func AdminRouter(r chi.Router, handler *AdminHandler) {
	r.Get("/users", handler.ListUsers)
	r.Get("/reports", handler.ListReports)
	r.Put("/reports/{reportID}/status", handler.UpdateReportStatus)
	r.Get("/alerts", handler.ListAlerts)
	r.Get("/stats", handler.Stats)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reportService.ListAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// UpdateReportStatus moves a report between Pending and Resolved. The
// status vocabulary is checked before any store mutation, and a
// resolved report cannot be reopened.
func (h *AdminHandler) UpdateReportStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "reportID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid report id")
		return
	}

	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	report, err := h.reportService.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidStatus):
			writeError(w, http.StatusBadRequest, "invalid status")
		case errors.Is(err, services.ErrStatusLocked):
			writeError(w, http.StatusBadRequest, "report already resolved")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "report not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update report")
		}
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (h *AdminHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.alertService.ListAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

// Stats returns the dashboard counters.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	reports, err := h.reportService.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	alerts, err := h.alertService.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	writeJSON(w, http.StatusOK, types.Stats{
		Users:   users,
		Reports: reports,
		Alerts:  alerts,
	})
}

type StatusRequest struct {
	Status string `json:"status"`
}
