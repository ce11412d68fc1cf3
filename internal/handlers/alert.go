package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sheshield/apiserver/internal/services"
	"github.com/sheshield/apiserver/internal/validate"
	"github.com/sheshield/apiserver/types"
)

// AlertHandler provides the panic-button endpoints. Alerts are
// append-only; there is no update or delete route.
type AlertHandler struct {
	alertService *services.AlertService
}

func NewAlertHandler(alertService *services.AlertService) *AlertHandler {
	return &AlertHandler{alertService: alertService}
}

// AlertRouter registers emergency alert routes on the given router.
// The auth middleware must already be mounted.
func AlertRouter(r chi.Router, handler *AlertHandler) {
	r.Get("/", handler.ListAlerts)
	r.Post("/", handler.SendAlert)
}

// SendAlert stores a one-tap emergency alert and triggers the
// notification fan-out.
func (h *AlertHandler) SendAlert(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AlertRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request")
			return
		}
	}

	errs := validate.Apply([]validate.Rule{
		{Field: "location", Value: &req.Location, Optional: true},
	})
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	alert := types.EmergencyAlert{UserID: identity.ID}
	if req.Location != "" {
		alert.Location = &req.Location
	}

	created, err := h.alertService.Create(r.Context(), alert)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to send alert")
		return
	}

	writeJSON(w, http.StatusCreated, AlertResponse{
		Message: "emergency alert sent",
		Alert:   created,
	})
}

// ListAlerts returns the caller's own past alerts.
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	alerts, err := h.alertService.List(r.Context(), identity.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}

	writeJSON(w, http.StatusOK, alerts)
}

type AlertRequest struct {
	Location string `json:"location"`
}

type AlertResponse struct {
	Message string               `json:"message"`
	Alert   types.EmergencyAlert `json:"alert"`
}
