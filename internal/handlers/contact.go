package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sheshield/apiserver/internal/services"
	"github.com/sheshield/apiserver/internal/store"
	"github.com/sheshield/apiserver/internal/validate"
	"github.com/sheshield/apiserver/types"
)

// ContactHandler provides HTTP handlers for emergency contacts. All
// routes are owner-scoped: the owning user id always comes from the
// authenticated identity, never from the payload.
type ContactHandler struct {
	contactService *services.ContactService
}

func NewContactHandler(contactService *services.ContactService) *ContactHandler {
	return &ContactHandler{contactService: contactService}
}

// ContactRouter registers contact routes on the given router. The auth
// middleware must already be mounted.
func ContactRouter(r chi.Router, handler *ContactHandler) {
	r.Get("/", handler.ListContacts)
	r.Post("/", handler.CreateContact)
	r.Route("/{contactID}", func(r chi.Router) {
		r.Put("/", handler.UpdateContact)
		r.Delete("/", handler.DeleteContact)
	})
}

func (h *ContactHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	contacts, err := h.contactService.List(r.Context(), identity.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list contacts")
		return
	}

	writeJSON(w, http.StatusOK, contacts)
}

func (h *ContactHandler) CreateContact(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	req, errs := parseContactPayload(r)
	if errs != nil {
		writeFieldErrors(w, errs)
		return
	}

	contact, err := h.contactService.Create(r.Context(), types.EmergencyContact{
		UserID:       identity.ID,
		ContactName:  req.ContactName,
		ContactPhone: req.ContactPhone,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create contact")
		return
	}

	writeJSON(w, http.StatusCreated, contact)
}

func (h *ContactHandler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "contactID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid contact id")
		return
	}

	req, errs := parseContactPayload(r)
	if errs != nil {
		writeFieldErrors(w, errs)
		return
	}

	contact, err := h.contactService.Update(r.Context(), types.EmergencyContact{
		ID:           id,
		UserID:       identity.ID,
		ContactName:  req.ContactName,
		ContactPhone: req.ContactPhone,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "contact not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update contact")
		return
	}

	writeJSON(w, http.StatusOK, contact)
}

func (h *ContactHandler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "contactID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid contact id")
		return
	}

	if err := h.contactService.Delete(r.Context(), id, identity.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "contact not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete contact")
		return
	}

	writeJSON(w, http.StatusOK, ErrorResponse{Message: "contact deleted"})
}

type ContactRequest struct {
	ContactName  string `json:"contact_name"`
	ContactPhone string `json:"contact_phone"`
}

func parseContactPayload(r *http.Request) (ContactRequest, []validate.FieldError) {
	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return ContactRequest{}, []validate.FieldError{{Field: "body", Message: "invalid request"}}
	}

	errs := validate.Apply([]validate.Rule{
		{Field: "contact_name", Value: &req.ContactName, Checks: []validate.Check{
			validate.Required("contact name is required"),
		}},
		{Field: "contact_phone", Value: &req.ContactPhone, Checks: []validate.Check{
			validate.Required("phone is required"),
		}},
	})
	if len(errs) > 0 {
		return ContactRequest{}, errs
	}
	return req, nil
}
