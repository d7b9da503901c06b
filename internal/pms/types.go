// Package pms defines the vendor-neutral practice-management-system domain
// model, the uniform capability interface every vendor adapter implements,
// and the shared plumbing (config resolution, auth strategies, result cache)
// adapters are composed from.
package pms

import (
	"strings"
	"time"
)

// AppointmentStatus is the canonical appointment lifecycle state.
type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "scheduled"
	StatusConfirmed  AppointmentStatus = "confirmed"
	StatusArrived    AppointmentStatus = "arrived"
	StatusInProgress AppointmentStatus = "in_progress"
	StatusCompleted  AppointmentStatus = "completed"
	StatusCancelled  AppointmentStatus = "cancelled"
	StatusNoShow     AppointmentStatus = "no_show"
)

// CanonicalStatuses lists every appointment status a vendor response may be
// normalized into, in lifecycle order.
func CanonicalStatuses() []StatusInfo {
	return []StatusInfo{
		{Code: StatusScheduled, Display: "Scheduled", IsActive: true},
		{Code: StatusConfirmed, Display: "Confirmed", IsActive: true},
		{Code: StatusArrived, Display: "Arrived", IsActive: true},
		{Code: StatusInProgress, Display: "In Progress", IsActive: true},
		{Code: StatusCompleted, Display: "Completed", IsActive: true},
		{Code: StatusCancelled, Display: "Cancelled", IsActive: true},
		{Code: StatusNoShow, Display: "No Show", IsActive: true},
	}
}

// StatusInfo describes one appointment status as exposed by the
// appointment-statuses capability.
type StatusInfo struct {
	Code     AppointmentStatus `json:"code"`
	Display  string            `json:"display"`
	IsActive bool              `json:"isActive"`
}

// Address is a structural sub-object shared by patients and locations.
type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
}

// Patient is the internal patient record. ID is always a string, even when
// the underlying vendor uses numeric identifiers.
type Patient struct {
	ID          string   `json:"id"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Phone       string   `json:"phone"`
	Email       string   `json:"email,omitempty"`
	DateOfBirth string   `json:"dateOfBirth,omitempty"` // YYYY-MM-DD
	Address     *Address `json:"address,omitempty"`
}

// Provider is a clinician who can be booked.
type Provider struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Specialty   string   `json:"specialty,omitempty"`
	LocationIDs []string `json:"locationIds"`
}

// Location is a physical office the tenant operates.
type Location struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Address Address `json:"address"`
	Phone   string  `json:"phone,omitempty"`
}

// Operatory is a bookable chair/room within a location.
type Operatory struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	LocationID string `json:"locationId"`
}

// Slot is an open appointment window.
type Slot struct {
	ID         string    `json:"id"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
	ProviderID string    `json:"providerId"`
	LocationID string    `json:"locationId"`
	Available  bool      `json:"available"`
}

// Appointment is a booked (or historical) visit.
type Appointment struct {
	ID         string            `json:"id"`
	PatientID  string            `json:"patientId"`
	ProviderID string            `json:"providerId"`
	LocationID string            `json:"locationId"`
	StartTime  time.Time         `json:"startTime"`
	EndTime    time.Time         `json:"endTime"`
	Status     AppointmentStatus `json:"status"`
	Notes      string            `json:"notes,omitempty"`
}

// TreatmentProcedure is a completed or planned procedure row from the
// vendor's clinical ledger, surfaced through the sync feed.
type TreatmentProcedure struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patientId"`
	Code        string    `json:"code"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status,omitempty"`
	Date        time.Time `json:"date"`
}

// PatientPage is the result of a criteria search with offset pagination.
type PatientPage struct {
	Items      []Patient `json:"items"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	TotalPages int       `json:"totalPages"`
}

// SyncPage is one page of a cursor-paginated sync feed. An empty
// ContinueToken means the feed is exhausted; consumers loop until HasMore is
// false.
type SyncPage[T any] struct {
	Items         []T    `json:"items"`
	ContinueToken string `json:"continueToken,omitempty"`
	HasMore       bool   `json:"hasMore"`
}

// DigitsOnly strips every non-digit rune from a phone string. Phone matching
// across the adapter layer compares digit-only forms so "555-0123" and
// "(555) 0123" behave identically.
func DigitsOnly(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
