// Package dentrix implements the PMS backend for Dentrix Ascend. Dentrix
// speaks a flat camelCase dialect (givenName/familyName, one shared status
// endpoint for appointment lifecycle changes) behind OAuth2 bearer auth.
package dentrix

import (
	"strings"
	"time"

	"github.com/brettulin/okdentalai/internal/pms"
)

type wirePatient struct {
	PatientID    string       `json:"patientId"`
	GivenName    string       `json:"givenName"`
	FamilyName   string       `json:"familyName"`
	PhoneNumber  string       `json:"phoneNumber,omitempty"`
	EmailAddress string       `json:"emailAddress,omitempty"`
	BirthDate    string       `json:"birthDate,omitempty"`
	Address      *wireAddress `json:"address,omitempty"`
}

type wireAddress struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
}

type wireProvider struct {
	ProviderID  string   `json:"providerId"`
	DisplayName string   `json:"displayName"`
	Specialty   string   `json:"specialty,omitempty"`
	LocationIDs []string `json:"locationIds"`
}

type wireLocation struct {
	LocationID string       `json:"locationId"`
	Name       string       `json:"name"`
	Address    *wireAddress `json:"address,omitempty"`
	Phone      string       `json:"phone,omitempty"`
}

type wireOperatory struct {
	OperatoryID string `json:"operatoryId"`
	Name        string `json:"name"`
	LocationID  string `json:"locationId"`
}

type wireOpening struct {
	OpeningID  string    `json:"openingId"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	ProviderID string    `json:"providerId"`
	LocationID string    `json:"locationId"`
	Open       bool      `json:"open"`
}

type wireAppointment struct {
	AppointmentID string    `json:"appointmentId"`
	PatientID     string    `json:"patientId"`
	ProviderID    string    `json:"providerId"`
	LocationID    string    `json:"locationId"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Status        string    `json:"status"` // SCREAMING_CASE, e.g. "IN_PROGRESS"
	Note          string    `json:"note,omitempty"`
}

type wireProcedure struct {
	ProcedureID string    `json:"procedureId"`
	PatientID   string    `json:"patientId"`
	AdaCode     string    `json:"adaCode"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status,omitempty"`
	ServiceDate time.Time `json:"serviceDate"`
}

type patientList struct {
	Patients   []wirePatient `json:"patients"`
	TotalCount int           `json:"totalCount"`
}

type statusUpdate struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

type statusCatalog struct {
	Statuses []string `json:"statuses"`
}

type changesPage[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
}

func patientFromWire(w wirePatient) pms.Patient {
	return pms.Patient{
		ID:          w.PatientID,
		FirstName:   w.GivenName,
		LastName:    w.FamilyName,
		Phone:       w.PhoneNumber,
		Email:       w.EmailAddress,
		DateOfBirth: w.BirthDate,
		Address:     addressFromWire(w.Address),
	}
}

func patientToWire(p pms.NewPatient) wirePatient {
	return wirePatient{
		GivenName:    p.FirstName,
		FamilyName:   p.LastName,
		PhoneNumber:  p.Phone,
		EmailAddress: p.Email,
		BirthDate:    p.DateOfBirth,
		Address:      addressToWire(p.Address),
	}
}

func addressFromWire(w *wireAddress) *pms.Address {
	if w == nil {
		return nil
	}
	return &pms.Address{Street: w.Street, City: w.City, State: w.State, ZipCode: w.ZipCode}
}

func addressToWire(a *pms.Address) *wireAddress {
	if a == nil {
		return nil
	}
	return &wireAddress{Street: a.Street, City: a.City, State: a.State, ZipCode: a.ZipCode}
}

func providerFromWire(w wireProvider) pms.Provider {
	return pms.Provider{
		ID:          w.ProviderID,
		Name:        w.DisplayName,
		Specialty:   w.Specialty,
		LocationIDs: w.LocationIDs,
	}
}

func locationFromWire(w wireLocation) pms.Location {
	loc := pms.Location{ID: w.LocationID, Name: w.Name, Phone: w.Phone}
	if w.Address != nil {
		loc.Address = pms.Address{Street: w.Address.Street, City: w.Address.City, State: w.Address.State, ZipCode: w.Address.ZipCode}
	}
	return loc
}

func slotFromWire(w wireOpening) pms.Slot {
	return pms.Slot{
		ID:         w.OpeningID,
		StartTime:  w.Start,
		EndTime:    w.End,
		ProviderID: w.ProviderID,
		LocationID: w.LocationID,
		Available:  w.Open,
	}
}

func appointmentFromWire(w wireAppointment) pms.Appointment {
	return pms.Appointment{
		ID:         w.AppointmentID,
		PatientID:  w.PatientID,
		ProviderID: w.ProviderID,
		LocationID: w.LocationID,
		StartTime:  w.Start,
		EndTime:    w.End,
		Status:     statusFromVendor(w.Status),
		Notes:      w.Note,
	}
}

func procedureFromWire(w wireProcedure) pms.TreatmentProcedure {
	return pms.TreatmentProcedure{
		ID:          w.ProcedureID,
		PatientID:   w.PatientID,
		Code:        w.AdaCode,
		Description: w.Description,
		Status:      strings.ToLower(w.Status),
		Date:        w.ServiceDate,
	}
}

// statusFromVendor maps Dentrix's SCREAMING_CASE status onto the canonical
// enum.
func statusFromVendor(s string) pms.AppointmentStatus {
	normalized := pms.AppointmentStatus(strings.ToLower(strings.TrimSpace(s)))
	switch normalized {
	case pms.StatusScheduled, pms.StatusConfirmed, pms.StatusArrived,
		pms.StatusInProgress, pms.StatusCompleted, pms.StatusCancelled, pms.StatusNoShow:
		return normalized
	default:
		return pms.StatusScheduled
	}
}

func statusToVendor(status pms.AppointmentStatus) string {
	return strings.ToUpper(string(status))
}
