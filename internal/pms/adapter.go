package pms

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/brettulin/okdentalai/internal/audit"
	"github.com/brettulin/okdentalai/internal/observability/metrics"
	"github.com/brettulin/okdentalai/internal/tenancy"
	"github.com/brettulin/okdentalai/pkg/logging"
)

var validate = validator.New()

const (
	defaultPage     = 1
	defaultPageSize = 20
)

// Adapter composes a vendor Backend with reference-data caching, audit
// emission, metrics, and payload validation. One Adapter exists per
// (tenant office, PMS vendor); construct it through the factory. Every
// capability call is stateless request/response — the only mutable state is
// the per-capability cache, which never leaves this instance.
type Adapter struct {
	backend Backend
	cfg     Config
	logger  *logging.Logger
	metrics *metrics.PMSMetrics
	sink    audit.Sink

	locations   *Cache[[]Location]
	providers   *Cache[[]Provider]
	operatories *Cache[[]Operatory]
	cacheTTL    time.Duration
}

// AdapterOptions carry optional collaborators for an Adapter.
type AdapterOptions struct {
	Logger   *logging.Logger
	Metrics  *metrics.PMSMetrics
	Audit    audit.Sink
	CacheTTL time.Duration
	Now      func() time.Time
}

// NewAdapterFor wraps a vendor backend into the uniform capability surface.
func NewAdapterFor(backend Backend, cfg Config, opts AdapterOptions) *Adapter {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Adapter{
		backend:     backend,
		cfg:         cfg,
		logger:      logger.With("vendor", backend.Name()),
		metrics:     opts.Metrics,
		sink:        opts.Audit,
		locations:   NewCache[[]Location](opts.Now),
		providers:   NewCache[[]Provider](opts.Now),
		operatories: NewCache[[]Operatory](opts.Now),
		cacheTTL:    ttl,
	}
}

// Name returns the vendor identifier for this adapter.
func (a *Adapter) Name() string { return a.backend.Name() }

// Config returns the resolved connection config (read-only by convention).
func (a *Adapter) Config() Config { return a.cfg }

// SearchPatientsByPhone finds patients whose phone contains the same digit
// sequence as phone, regardless of formatting.
func (a *Adapter) SearchPatientsByPhone(ctx context.Context, phone string) ([]Patient, error) {
	start := time.Now()
	digits := DigitsOnly(phone)
	if digits == "" {
		return nil, &ConfigurationError{Reason: "phone must contain at least one digit"}
	}
	patients, err := a.backend.SearchPatientsByPhone(ctx, digits)
	a.observe("search_patient_by_phone", start, err)
	if err != nil {
		return nil, err
	}
	a.record(ctx, "pms.search_patient_by_phone", "patient", "", map[string]any{"phone_digits": digits, "matches": len(patients)})
	return patients, nil
}

// CreatePatient creates a patient record with the vendor.
func (a *Adapter) CreatePatient(ctx context.Context, patient NewPatient) (*Patient, error) {
	start := time.Now()
	if err := validate.Struct(patient); err != nil {
		return nil, &ConfigurationError{Reason: "invalid patient payload: " + err.Error()}
	}
	created, err := a.backend.CreatePatient(ctx, patient)
	a.observe("create_patient", start, err)
	if err != nil {
		return nil, err
	}
	a.record(ctx, "pms.create_patient", "patient", created.ID, nil)
	return created, nil
}

// GetPatient returns the patient or (nil, nil) when the vendor has no such
// record.
func (a *Adapter) GetPatient(ctx context.Context, id string) (*Patient, error) {
	start := time.Now()
	patient, err := a.backend.GetPatient(ctx, id)
	if IsNotFound(err) {
		patient, err = nil, nil
	}
	a.observe("get_patient", start, err)
	return patient, err
}

// SearchPatients runs a paged criteria search. Page and PageSize default to
// 1 and 20.
func (a *Adapter) SearchPatients(ctx context.Context, criteria SearchCriteria, page PageRequest) (*PatientPage, error) {
	start := time.Now()
	if page.Page <= 0 {
		page.Page = defaultPage
	}
	if page.PageSize <= 0 {
		page.PageSize = defaultPageSize
	}
	criteria.Phone = DigitsOnly(criteria.Phone)

	items, total, err := a.backend.SearchPatients(ctx, criteria, page)
	a.observe("search_patients", start, err)
	if err != nil {
		return nil, err
	}
	a.record(ctx, "pms.search_patients", "patient", "", map[string]any{"total": total, "page": page.Page})
	return &PatientPage{
		Items:      items,
		Total:      total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: (total + page.PageSize - 1) / page.PageSize,
	}, nil
}

// ListProviders returns the tenant's providers, cached for the configured
// TTL.
func (a *Adapter) ListProviders(ctx context.Context) ([]Provider, error) {
	const key = "providers:all"
	if cached, ok := a.providers.Get(key); ok {
		a.metrics.ObserveCache("providers", true)
		return cached, nil
	}
	a.metrics.ObserveCache("providers", false)

	start := time.Now()
	providers, err := a.backend.ListProviders(ctx)
	a.observe("list_providers", start, err)
	if err != nil {
		return nil, err
	}
	a.providers.Set(key, providers, a.cacheTTL)
	return providers, nil
}

// ListLocations returns the tenant's locations, cached for the configured
// TTL.
func (a *Adapter) ListLocations(ctx context.Context) ([]Location, error) {
	const key = "locations:all"
	if cached, ok := a.locations.Get(key); ok {
		a.metrics.ObserveCache("locations", true)
		return cached, nil
	}
	a.metrics.ObserveCache("locations", false)

	start := time.Now()
	locations, err := a.backend.ListLocations(ctx)
	a.observe("list_locations", start, err)
	if err != nil {
		return nil, err
	}
	a.locations.Set(key, locations, a.cacheTTL)
	return locations, nil
}

// ListOperatories returns the operatories for one location, cached per
// location id.
func (a *Adapter) ListOperatories(ctx context.Context, locationID string) ([]Operatory, error) {
	key := "operatories:" + locationID
	if cached, ok := a.operatories.Get(key); ok {
		a.metrics.ObserveCache("operatories", true)
		return cached, nil
	}
	a.metrics.ObserveCache("operatories", false)

	start := time.Now()
	operatories, err := a.backend.ListOperatories(ctx, locationID)
	a.observe("list_operatories", start, err)
	if err != nil {
		return nil, err
	}
	a.operatories.Set(key, operatories, a.cacheTTL)
	return operatories, nil
}

// GetAvailableSlots returns open slots for a provider within a date range.
func (a *Adapter) GetAvailableSlots(ctx context.Context, providerID string, from, to time.Time) ([]Slot, error) {
	start := time.Now()
	slots, err := a.backend.GetAvailableSlots(ctx, providerID, from, to)
	a.observe("get_available_slots", start, err)
	return slots, err
}

// BookAppointment books an appointment with the vendor.
func (a *Adapter) BookAppointment(ctx context.Context, req BookingRequest) (*Appointment, error) {
	start := time.Now()
	if err := validate.Struct(req); err != nil {
		return nil, &ConfigurationError{Reason: "invalid booking payload: " + err.Error()}
	}
	appt, err := a.backend.BookAppointment(ctx, req)
	a.observe("book_appointment", start, err)
	if err != nil {
		return nil, err
	}
	a.record(ctx, "pms.book_appointment", "appointment", appt.ID, map[string]any{
		"patient_id":  req.PatientID,
		"provider_id": req.ProviderID,
		"start_time":  req.StartTime,
	})
	return appt, nil
}

// GetAppointment returns the appointment or (nil, nil) when the vendor has
// no such record.
func (a *Adapter) GetAppointment(ctx context.Context, id string) (*Appointment, error) {
	start := time.Now()
	appt, err := a.backend.GetAppointment(ctx, id)
	if IsNotFound(err) {
		appt, err = nil, nil
	}
	a.observe("get_appointment", start, err)
	return appt, err
}

// CancelAppointment cancels an appointment. It returns false without error
// when the vendor no longer knows the appointment.
func (a *Adapter) CancelAppointment(ctx context.Context, id, reason string) (bool, error) {
	start := time.Now()
	err := a.backend.CancelAppointment(ctx, id, reason)
	if IsNotFound(err) {
		a.observe("cancel_appointment", start, nil)
		return false, nil
	}
	a.observe("cancel_appointment", start, err)
	if err != nil {
		return false, err
	}
	a.record(ctx, "pms.cancel_appointment", "appointment", id, map[string]any{"reason": reason})
	return true, nil
}

// CheckoutAppointment completes an appointment.
func (a *Adapter) CheckoutAppointment(ctx context.Context, id string) (bool, error) {
	start := time.Now()
	err := a.backend.CheckoutAppointment(ctx, id)
	if IsNotFound(err) {
		a.observe("checkout_appointment", start, nil)
		return false, nil
	}
	a.observe("checkout_appointment", start, err)
	if err != nil {
		return false, err
	}
	a.record(ctx, "pms.checkout_appointment", "appointment", id, nil)
	return true, nil
}

// ModifyAppointmentStatus sets an appointment's status.
func (a *Adapter) ModifyAppointmentStatus(ctx context.Context, id string, change StatusChange) (bool, error) {
	start := time.Now()
	if err := validate.Struct(change); err != nil {
		return false, &ConfigurationError{Reason: "invalid status payload: " + err.Error()}
	}
	err := a.backend.SetAppointmentStatus(ctx, id, change)
	if IsNotFound(err) {
		a.observe("modify_appointment_status", start, nil)
		return false, nil
	}
	a.observe("modify_appointment_status", start, err)
	if err != nil {
		return false, err
	}
	a.record(ctx, "pms.modify_appointment_status", "appointment", id, map[string]any{"status": change.Status})
	return true, nil
}

// GetAppointmentStatuses returns the vendor's appointment status catalog.
func (a *Adapter) GetAppointmentStatuses(ctx context.Context) ([]StatusInfo, error) {
	start := time.Now()
	statuses, err := a.backend.ListAppointmentStatuses(ctx)
	a.observe("get_appointment_statuses", start, err)
	return statuses, err
}

// SyncPatients returns one page of patients modified since the given time.
// Follow ContinueToken until HasMore is false.
func (a *Adapter) SyncPatients(ctx context.Context, modifiedSince time.Time, continueToken string) (*SyncPage[Patient], error) {
	start := time.Now()
	page, err := a.backend.SyncPatients(ctx, modifiedSince, continueToken)
	a.observe("sync_patients", start, err)
	return page, err
}

// SyncAppointments returns one page of appointments modified since the given
// time.
func (a *Adapter) SyncAppointments(ctx context.Context, modifiedSince time.Time, continueToken string) (*SyncPage[Appointment], error) {
	start := time.Now()
	page, err := a.backend.SyncAppointments(ctx, modifiedSince, continueToken)
	a.observe("sync_appointments", start, err)
	return page, err
}

// SyncTreatmentProcedures returns one page of treatment procedures modified
// since the given time.
func (a *Adapter) SyncTreatmentProcedures(ctx context.Context, modifiedSince time.Time, continueToken string) (*SyncPage[TreatmentProcedure], error) {
	start := time.Now()
	page, err := a.backend.SyncTreatmentProcedures(ctx, modifiedSince, continueToken)
	a.observe("sync_treatment_procedures", start, err)
	return page, err
}

// ValidateCredentials probes the vendor with the tenant's credentials and
// classifies the outcome. In mock mode no network call is made.
func (a *Adapter) ValidateCredentials(ctx context.Context) (*CredentialCheck, error) {
	if a.cfg.UseMock {
		return ClassifyCredentialCheck(a.cfg, nil), nil
	}
	start := time.Now()
	err := a.backend.Ping(ctx)
	a.observe("validate_credentials", start, err)
	return ClassifyCredentialCheck(a.cfg, err), nil
}

func (a *Adapter) observe(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		a.logger.Error("pms capability call failed", "op", op, "error", err)
	}
	a.metrics.ObserveRequest(a.backend.Name(), op, outcome, time.Since(start))
}

// record emits one audit event. Audit failures are logged, never propagated:
// the capability result must not depend on the audit sink.
func (a *Adapter) record(ctx context.Context, action, entity, entityID string, details map[string]any) {
	if a.sink == nil {
		return
	}
	var raw json.RawMessage
	if details != nil {
		if data, err := json.Marshal(details); err == nil {
			raw = data
		}
	}
	officeID, _ := tenancy.OfficeIDFromContext(ctx)
	event := audit.Event{
		OfficeID: officeID,
		Actor:    tenancy.ActorFromContext(ctx),
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Details:  raw,
	}
	if err := a.sink.Record(ctx, event); err != nil {
		a.logger.Warn("audit record failed", "action", action, "error", fmt.Sprint(err))
	}
}
