package pms

import (
	"context"
	"time"
)

// Backend is the raw per-vendor capability set. One implementation exists
// per PMS vendor; the orchestrating Adapter composes a Backend with caching,
// auditing, metrics, and input validation. Backends perform no caching and
// no retries, and they surface transport errors unchanged except that
// single-entity lookups map a vendor 404 to (nil, nil).
type Backend interface {
	// Name returns the vendor identifier ("carestack", "dentrix", ...).
	Name() string

	SearchPatientsByPhone(ctx context.Context, phoneDigits string) ([]Patient, error)
	CreatePatient(ctx context.Context, patient NewPatient) (*Patient, error)
	GetPatient(ctx context.Context, id string) (*Patient, error)
	// SearchPatients returns one page of matches plus the unpaged total.
	SearchPatients(ctx context.Context, criteria SearchCriteria, page PageRequest) ([]Patient, int, error)

	ListProviders(ctx context.Context) ([]Provider, error)
	ListLocations(ctx context.Context) ([]Location, error)
	ListOperatories(ctx context.Context, locationID string) ([]Operatory, error)

	GetAvailableSlots(ctx context.Context, providerID string, from, to time.Time) ([]Slot, error)
	BookAppointment(ctx context.Context, req BookingRequest) (*Appointment, error)
	GetAppointment(ctx context.Context, id string) (*Appointment, error)
	CancelAppointment(ctx context.Context, id, reason string) error
	CheckoutAppointment(ctx context.Context, id string) error
	SetAppointmentStatus(ctx context.Context, id string, change StatusChange) error
	ListAppointmentStatuses(ctx context.Context) ([]StatusInfo, error)

	SyncPatients(ctx context.Context, modifiedSince time.Time, continueToken string) (*SyncPage[Patient], error)
	SyncAppointments(ctx context.Context, modifiedSince time.Time, continueToken string) (*SyncPage[Appointment], error)
	SyncTreatmentProcedures(ctx context.Context, modifiedSince time.Time, continueToken string) (*SyncPage[TreatmentProcedure], error)

	// Ping issues a known-cheap authenticated GET, used for credential
	// validation.
	Ping(ctx context.Context) error
}

// NewPatient is the payload for patient creation.
type NewPatient struct {
	FirstName   string   `json:"firstName" validate:"required"`
	LastName    string   `json:"lastName" validate:"required"`
	Phone       string   `json:"phone" validate:"required"`
	Email       string   `json:"email,omitempty" validate:"omitempty,email"`
	DateOfBirth string   `json:"dateOfBirth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Address     *Address `json:"address,omitempty"`
}

// SearchCriteria filters a paged patient search. Empty fields match
// everything.
type SearchCriteria struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// PageRequest selects one page of an offset-paginated search.
type PageRequest struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// BookingRequest is the payload for booking an appointment.
type BookingRequest struct {
	PatientID   string    `json:"patientId" validate:"required"`
	ProviderID  string    `json:"providerId" validate:"required"`
	LocationID  string    `json:"locationId" validate:"required"`
	OperatoryID string    `json:"operatoryId,omitempty"`
	StartTime   time.Time `json:"startTime" validate:"required"`
	EndTime     time.Time `json:"endTime" validate:"required,gtfield=StartTime"`
	Notes       string    `json:"notes,omitempty"`
}

// StatusChange is the payload for modifying an appointment's status.
type StatusChange struct {
	Status AppointmentStatus `json:"status" validate:"required,oneof=scheduled confirmed arrived in_progress completed cancelled no_show"`
	Reason string            `json:"reason,omitempty"`
}
