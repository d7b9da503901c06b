package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brettulin/okdentalai/internal/office"
	"github.com/brettulin/okdentalai/internal/pms"
	"github.com/brettulin/okdentalai/pkg/logging"
)

// OfficesHandler manages the office registry: which tenant runs which PMS
// with which credentials.
type OfficesHandler struct {
	repo   office.Repository
	logger *logging.Logger
}

// NewOfficesHandler creates a new offices handler.
func NewOfficesHandler(repo office.Repository, logger *logging.Logger) *OfficesHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &OfficesHandler{repo: repo, logger: logger}
}

// Create registers a new office.
// POST /api/offices
func (h *OfficesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req office.CreateOfficeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	o, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		if errors.Is(err, office.ErrInvalidOffice) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		h.logger.Error("create office failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to create office"})
		return
	}

	h.logger.Info("office created", "office_id", o.ID, "pms_type", o.PMSType)
	writeJSON(w, http.StatusCreated, o)
}

// List returns all offices.
// GET /api/offices
func (h *OfficesHandler) List(w http.ResponseWriter, r *http.Request) {
	offices, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("list offices failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list offices"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"offices": offices})
}

// Get returns one office.
// GET /api/offices/{officeID}
func (h *OfficesHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "officeID"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "office not found"})
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// SetPMSType switches an office to a different PMS vendor.
// PUT /api/offices/{officeID}/pms-type
func (h *OfficesHandler) SetPMSType(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PMSType string      `json:"pms_type"`
		Secrets pms.Secrets `json:"secrets"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.PMSType == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "pms_type is required"})
		return
	}

	o, err := h.repo.SetPMSType(r.Context(), chi.URLParam(r, "officeID"), req.PMSType, req.Secrets)
	if err != nil {
		if errors.Is(err, office.ErrOfficeNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "office not found"})
			return
		}
		h.logger.Error("set pms type failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to update office"})
		return
	}

	h.logger.Info("office pms type updated", "office_id", o.ID, "pms_type", o.PMSType)
	writeJSON(w, http.StatusOK, o)
}
