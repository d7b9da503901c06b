package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/brettulin/okdentalai/internal/office"
	"github.com/brettulin/okdentalai/internal/pms"
	"github.com/brettulin/okdentalai/internal/pms/factory"
	"github.com/brettulin/okdentalai/internal/tenancy"
	"github.com/brettulin/okdentalai/pkg/logging"
)

// PMSHandler exposes the uniform PMS capability surface per office. Adapters
// are cached keyed by office, PMS type, and the office's last update time so
// their result caches survive across requests; switching an office's vendor
// or rotating its credentials changes the key, and the superseded entry is
// dropped on the next lookup for that office.
type PMSHandler struct {
	offices office.Repository
	opts    factory.Options
	logger  *logging.Logger

	mu       sync.RWMutex
	adapters map[string]*pms.Adapter
}

// NewPMSHandler creates a new PMS handler.
func NewPMSHandler(offices office.Repository, opts factory.Options, logger *logging.Logger) *PMSHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if opts.Logger == nil {
		opts.Logger = logger
	}
	return &PMSHandler{
		offices:  offices,
		opts:     opts,
		logger:   logger,
		adapters: make(map[string]*pms.Adapter),
	}
}

// Routes returns the capability routes, mounted under
// /api/offices/{officeID}/pms.
func (h *PMSHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/patients/by-phone", h.SearchPatientsByPhone)
	r.Post("/patients/search", h.SearchPatients)
	r.Post("/patients", h.CreatePatient)
	r.Get("/patients/{patientID}", h.GetPatient)

	r.Get("/providers", h.ListProviders)
	r.Get("/locations", h.ListLocations)
	r.Get("/locations/{locationID}/operatories", h.ListOperatories)
	r.Get("/slots", h.GetAvailableSlots)

	r.Post("/appointments", h.BookAppointment)
	r.Get("/appointments/{appointmentID}", h.GetAppointment)
	r.Post("/appointments/{appointmentID}/cancel", h.CancelAppointment)
	r.Post("/appointments/{appointmentID}/checkout", h.CheckoutAppointment)
	r.Put("/appointments/{appointmentID}/status", h.ModifyAppointmentStatus)
	r.Get("/appointment-statuses", h.GetAppointmentStatuses)

	r.Get("/sync/patients", h.SyncPatients)
	r.Get("/sync/appointments", h.SyncAppointments)
	r.Get("/sync/procedures", h.SyncTreatmentProcedures)

	r.Get("/credentials/validate", h.ValidateCredentials)

	return r
}

type errorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// adapterFor resolves the office from the URL, enforces the X-PMS-Type
// guard, and returns a cached or freshly built adapter. A mismatched
// X-PMS-Type is rejected with 409 before any adapter work happens, so a
// caller holding a stale vendor assumption never reaches the wrong PMS.
func (h *PMSHandler) adapterFor(w http.ResponseWriter, r *http.Request) (*pms.Adapter, *office.Office, bool) {
	officeID := chi.URLParam(r, "officeID")
	o, err := h.offices.GetByID(r.Context(), officeID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "office not found"})
		return nil, nil, false
	}

	if want := r.Header.Get("X-PMS-Type"); want != "" && !strings.EqualFold(want, o.PMSType) {
		writeJSON(w, http.StatusConflict, errorResponse{
			Error: "office is configured for " + o.PMSType + ", not " + strings.ToLower(want),
			Hint:  "refresh the office's PMS settings",
		})
		return nil, nil, false
	}

	key := adapterKey(o)
	h.mu.RLock()
	adapter, ok := h.adapters[key]
	h.mu.RUnlock()
	if ok {
		return adapter, o, true
	}

	opts := h.opts
	opts.Secrets = o.Secrets
	adapter, err = factory.NewAdapter(o.PMSType, opts)
	if err != nil {
		h.writeError(w, err)
		return nil, nil, false
	}

	h.mu.Lock()
	// Drop superseded entries for this office so rotated credentials or a
	// vendor switch cannot keep serving a stale adapter.
	prefix := o.ID + "|"
	for k := range h.adapters {
		if strings.HasPrefix(k, prefix) {
			delete(h.adapters, k)
		}
	}
	h.adapters[key] = adapter
	h.mu.Unlock()
	return adapter, o, true
}

// adapterKey changes whenever the office's vendor or stored credentials
// change, since SetPMSType bumps UpdatedAt.
func adapterKey(o *office.Office) string {
	return o.ID + "|" + o.PMSType + "|" + o.UpdatedAt.UTC().Format(time.RFC3339Nano)
}

// tenantContext stamps the office and acting user onto the request context
// for the audit trail.
func tenantContext(r *http.Request, o *office.Office) *http.Request {
	ctx := tenancy.WithOfficeID(r.Context(), o.ID)
	if actor := r.Header.Get("X-Actor"); actor != "" {
		ctx = tenancy.WithActor(ctx, actor)
	}
	return r.WithContext(ctx)
}

// writeError maps the typed PMS error taxonomy onto HTTP statuses with a
// remediation hint where one exists.
func (h *PMSHandler) writeError(w http.ResponseWriter, err error) {
	var cfgErr *pms.ConfigurationError
	var vErrs validator.ValidationErrors

	switch {
	case pms.IsAuthentication(err):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error(), Hint: "check the office's PMS credentials"})
	case pms.IsRateLimit(err):
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: err.Error(), Hint: "try again shortly"})
	case pms.IsTimeout(err):
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{Error: err.Error(), Hint: "check the connection to the PMS"})
	case pms.IsNetwork(err):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error(), Hint: "check the connection to the PMS"})
	case errors.As(err, &cfgErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.As(err, &vErrs):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		h.logger.Error("pms request failed", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	}
}

// SearchPatientsByPhone finds patients by phone number.
// GET /api/offices/{officeID}/pms/patients/by-phone?phone=555-0123
func (h *PMSHandler) SearchPatientsByPhone(w http.ResponseWriter, r *http.Request) {
	adapter, o, ok := h.adapterFor(w, r)
	if !ok {
		return
	}
	r = tenantContext(r, o)

	phone := r.URL.Query().Get("phone")
	if phone == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "phone query parameter is required"})
		return
	}

	patients, err := adapter.SearchPatientsByPhone(r.Context(), phone)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"patients": patients})
}

// SearchPatients runs a paginated patient search.
// POST /api/offices/{officeID}/pms/patients/search
func (h *PMSHandler) SearchPatients(w http.ResponseWriter, r *http.Request) {
	adapter, o, ok := h.adapterFor(w, r)
	if !ok {
		return
	}
	r = tenantContext(r, o)

	var req struct {
		Criteria pms.SearchCriteria `json:"criteria"`
		Page     int                `json:"page"`
		PageSize int                `json:"page_size"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	page, err := adapter.SearchPatients(r.Context(), req.Criteria, pms.PageRequest{Page: req.Page, PageSize: req.PageSize})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// CreatePatient registers a new patient with the PMS.
// POST /api/offices/{officeID}/pms/patients
func (h *PMSHandler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	adapter, o, ok := h.adapterFor(w, r)
	if !ok {
		return
	}
	r = tenantContext(r, o)

	var req pms.NewPatient
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	patient, err := adapter.CreatePatient(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, patient)
}

// GetPatient fetches a single patient.
// GET /api/offices/{officeID}/pms/patients/{patientID}
func (h *PMSHandler) GetPatient(w http.ResponseWriter, r *http.Request) {
	adapter, o, ok := h.adapterFor(w, r)
	if !ok {
		return
	}
	r = tenantContext(r, o)

	patient, err := adapter.GetPatient(r.Context(), chi.URLParam(r, "patientID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if patient == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "patient not found"})
		return
	}
	writeJSON(w, http.StatusOK, patient)
}

// ListProviders returns the office's providers.
// GET /api/offices/{officeID}/pms/providers
func (h *PMSHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	adapter, o, ok := h.adapterFor(w, r)
	if !ok {
		return
	}
	r = tenantContext(r, o)

	providers, err := adapter.ListProviders(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": providers})
}

// ListLocations returns the office's locations.
// GET /api/offices/{officeID}/pms/locations
func (h *PMSHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	adapter, o, ok := h.adapterFor(w, r)
	if !ok {
		return
	}
	r = tenantContext(r, o)

	locations, err := adapter.ListLocations(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"locations": locations})
}

// ListOperatories returns the operatories for one location.
// GET /api/offices/{officeID}/pms/locations/{locationID}/operatories
func (h *PMSHandler) ListOperatories(w http.ResponseWriter, r *http.Request) {
	adapter, o, ok := h.adapterFor(w, r)
	if !ok {
		return
	}
	r = tenantContext(r, o)

	operatories, err := adapter.ListOperatories(r.Context(), chi.URLParam(r, "locationID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"operatories": operatories})
}

// GetAvailableSlots returns open slots for a provider in a window.
// GET /api/offices/{officeID}/pms/slots?provider_id=1&from=...&to=...
func (h *PMSHandler) GetAvailableSlots(w http.ResponseWriter, r *http.Request) {
	adapter, o, ok := h.adapterFor(w, r)
	if !ok {
		return
	}
	r = tenantContext(r, o)

	q := r.URL.Query()
	providerID := q.Get("provider_id")
	if providerID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "provider_id query parameter is required"})
		return
	}
	from, err := time.Parse(time.RFC3339, q.Get("from"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "from must be RFC3339"})
		return
	}
	to, err := time.Parse(time.RFC3339, q.Get("to"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "to must be RFC3339"})
		return
	}

	slots, err := adapter.GetAvailableSlots(r.Context(), providerID, from, to)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

// BookAppointment books a new appointment.
// POST /api/offices/{officeID}/pms/appointments
func (h *PMSHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	adapter, o, ok := h.adapterFor(w, r)
	if !ok {
		return
	}
	r = tenantContext(r, o)

	var req pms.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	appt, err := adapter.BookAppointment(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

// GetAppointment fetches a single appointment.
// GET /api/offices/{officeID}/pms/appointments/{appointmentID}
func (h *PMSHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	adapter, o, ok := h.adapterFor(w, r)
	if !ok {
		return
	}
	r = tenantContext(r, o)

	appt, err := adapter.GetAppointment(r.Context(), chi.URLParam(r, "appointmentID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if appt == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "appointment not found"})
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// CancelAppointment cancels an appointment.
// POST /api/offices/{officeID}/pms/appointments/{appointmentID}/cancel
func (h *PMSHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	adapter, o, ok := h.adapterFor(w, r)
	if !ok {
		return
	}
	r = tenantContext(r, o)

	var req struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	cancelled, err := adapter.CancelAppointment(r.Context(), chi.URLParam(r, "appointmentID"), req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !cancelled {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "appointment not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cancelled": true})
}

// CheckoutAppointment completes an appointment.
// POST /api/offices/{officeID}/pms/appointments/{appointmentID}/checkout
func (h *PMSHandler) CheckoutAppointment(w http.ResponseWriter, r *http.Request) {
	adapter, o, ok := h.adapterFor(w, r)
	if !ok {
		return
	}
	r = tenantContext(r, o)

	done, err := adapter.CheckoutAppointment(r.Context(), chi.URLParam(r, "appointmentID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !done {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "appointment not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"checked_out": true})
}

// ModifyAppointmentStatus sets an appointment's canonical status.
// PUT /api/offices/{officeID}/pms/appointments/{appointmentID}/status
func (h *PMSHandler) ModifyAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	adapter, o, ok := h.adapterFor(w, r)
	if !ok {
		return
	}
	r = tenantContext(r, o)

	var change pms.StatusChange
	if err := json.NewDecoder(r.Body).Decode(&change); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	updated, err := adapter.ModifyAppointmentStatus(r.Context(), chi.URLParam(r, "appointmentID"), change)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !updated {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "appointment not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": change.Status})
}

// GetAppointmentStatuses lists the canonical status catalog.
// GET /api/offices/{officeID}/pms/appointment-statuses
func (h *PMSHandler) GetAppointmentStatuses(w http.ResponseWriter, r *http.Request) {
	adapter, o, ok := h.adapterFor(w, r)
	if !ok {
		return
	}
	r = tenantContext(r, o)

	statuses, err := adapter.GetAppointmentStatuses(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"statuses": statuses})
}

// SyncPatients returns one page of the patient change feed.
// GET /api/offices/{officeID}/pms/sync/patients?modified_since=...&continue_token=...
func (h *PMSHandler) SyncPatients(w http.ResponseWriter, r *http.Request) {
	adapter, o, ok := h.adapterFor(w, r)
	if !ok {
		return
	}
	r = tenantContext(r, o)

	since, token, ok := syncQuery(w, r)
	if !ok {
		return
	}
	page, err := adapter.SyncPatients(r.Context(), since, token)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// SyncAppointments returns one page of the appointment change feed.
// GET /api/offices/{officeID}/pms/sync/appointments
func (h *PMSHandler) SyncAppointments(w http.ResponseWriter, r *http.Request) {
	adapter, o, ok := h.adapterFor(w, r)
	if !ok {
		return
	}
	r = tenantContext(r, o)

	since, token, ok := syncQuery(w, r)
	if !ok {
		return
	}
	page, err := adapter.SyncAppointments(r.Context(), since, token)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// SyncTreatmentProcedures returns one page of the procedure change feed.
// GET /api/offices/{officeID}/pms/sync/procedures
func (h *PMSHandler) SyncTreatmentProcedures(w http.ResponseWriter, r *http.Request) {
	adapter, o, ok := h.adapterFor(w, r)
	if !ok {
		return
	}
	r = tenantContext(r, o)

	since, token, ok := syncQuery(w, r)
	if !ok {
		return
	}
	page, err := adapter.SyncTreatmentProcedures(r.Context(), since, token)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// ValidateCredentials probes the PMS and reports whether the office's
// credentials work, with suggestions when they don't.
// GET /api/offices/{officeID}/pms/credentials/validate
func (h *PMSHandler) ValidateCredentials(w http.ResponseWriter, r *http.Request) {
	adapter, o, ok := h.adapterFor(w, r)
	if !ok {
		return
	}
	r = tenantContext(r, o)

	check, err := adapter.ValidateCredentials(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func syncQuery(w http.ResponseWriter, r *http.Request) (time.Time, string, bool) {
	q := r.URL.Query()
	var since time.Time
	if raw := q.Get("modified_since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "modified_since must be RFC3339"})
			return time.Time{}, "", false
		}
		since = parsed
	}
	return since, q.Get("continue_token"), true
}
