// Package eaglesoft implements the PMS backend for Patterson Eaglesoft.
// Eaglesoft's cloud API speaks snake_case, calls locations "offices", and
// authenticates with a static API key.
package eaglesoft

import (
	"strings"
	"time"

	"github.com/brettulin/okdentalai/internal/pms"
)

type wirePatient struct {
	PatientID   string       `json:"patient_id"`
	FirstName   string       `json:"first_name"`
	LastName    string       `json:"last_name"`
	Phone       string       `json:"phone,omitempty"`
	Email       string       `json:"email,omitempty"`
	DateOfBirth string       `json:"date_of_birth,omitempty"`
	Address     *wireAddress `json:"address,omitempty"`
}

type wireAddress struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zip_code,omitempty"`
}

type wireProvider struct {
	ProviderID string   `json:"provider_id"`
	Name       string   `json:"name"`
	Specialty  string   `json:"specialty,omitempty"`
	OfficeIDs  []string `json:"office_ids"`
}

type wireOffice struct {
	OfficeID string       `json:"office_id"`
	Name     string       `json:"name"`
	Address  *wireAddress `json:"address,omitempty"`
	Phone    string       `json:"phone,omitempty"`
}

type wireOperatory struct {
	OperatoryID string `json:"operatory_id"`
	Name        string `json:"name"`
	OfficeID    string `json:"office_id"`
}

type wireSlot struct {
	SlotID     string    `json:"slot_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	ProviderID string    `json:"provider_id"`
	OfficeID   string    `json:"office_id"`
	Available  bool      `json:"available"`
}

type wireAppointment struct {
	AppointmentID string    `json:"appointment_id"`
	PatientID     string    `json:"patient_id"`
	ProviderID    string    `json:"provider_id"`
	OfficeID      string    `json:"office_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"` // lowercase with spaces, e.g. "no show"
	Notes         string    `json:"notes,omitempty"`
}

type wireStatus struct {
	Code   string `json:"code"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
}

type wireProcedure struct {
	ProcedureID   string    `json:"procedure_id"`
	PatientID     string    `json:"patient_id"`
	AdaCode       string    `json:"ada_code"`
	Description   string    `json:"description,omitempty"`
	Status        string    `json:"status,omitempty"`
	DateOfService time.Time `json:"date_of_service"`
}

type searchRequest struct {
	Criteria searchCriteria `json:"criteria"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

type searchCriteria struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type searchResponse struct {
	Results []wirePatient `json:"results"`
	Total   int           `json:"total"`
}

type cancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

type statusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type syncResponse[T any] struct {
	Items         []T    `json:"items"`
	ContinueToken string `json:"continue_token,omitempty"`
}

func patientFromWire(w wirePatient) pms.Patient {
	return pms.Patient{
		ID:          w.PatientID,
		FirstName:   w.FirstName,
		LastName:    w.LastName,
		Phone:       w.Phone,
		Email:       w.Email,
		DateOfBirth: w.DateOfBirth,
		Address:     addressFromWire(w.Address),
	}
}

func patientToWire(p pms.NewPatient) wirePatient {
	return wirePatient{
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Phone:       p.Phone,
		Email:       p.Email,
		DateOfBirth: p.DateOfBirth,
		Address:     addressToWire(p.Address),
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
		Name:        w.Name,
		Specialty:   w.Specialty,
		LocationIDs: w.OfficeIDs,
	}
}

func locationFromWire(w wireOffice) pms.Location {
	loc := pms.Location{ID: w.OfficeID, Name: w.Name, Phone: w.Phone}
	if w.Address != nil {
		loc.Address = pms.Address{Street: w.Address.Street, City: w.Address.City, State: w.Address.State, ZipCode: w.Address.ZipCode}
	}
	return loc
}

func operatoryFromWire(w wireOperatory) pms.Operatory {
	return pms.Operatory{ID: w.OperatoryID, Name: w.Name, LocationID: w.OfficeID}
}

func slotFromWire(w wireSlot) pms.Slot {
	return pms.Slot{
		ID:         w.SlotID,
		StartTime:  w.StartTime,
		EndTime:    w.EndTime,
		ProviderID: w.ProviderID,
		LocationID: w.OfficeID,
		Available:  w.Available,
	}
}

func appointmentFromWire(w wireAppointment) pms.Appointment {
	return pms.Appointment{
		ID:         w.AppointmentID,
		PatientID:  w.PatientID,
		ProviderID: w.ProviderID,
		LocationID: w.OfficeID,
		StartTime:  w.StartTime,
		EndTime:    w.EndTime,
		Status:     statusFromVendor(w.Status),
		Notes:      w.Notes,
	}
}

func appointmentToWire(req pms.BookingRequest) wireAppointment {
	return wireAppointment{
		PatientID:  req.PatientID,
		ProviderID: req.ProviderID,
		OfficeID:   req.LocationID,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Notes:      req.Notes,
	}
}

func statusInfoFromWire(w wireStatus) pms.StatusInfo {
	return pms.StatusInfo{
		Code:     statusFromVendor(w.Code),
		Display:  w.Label,
		IsActive: w.Active,
	}
}

func procedureFromWire(w wireProcedure) pms.TreatmentProcedure {
	return pms.TreatmentProcedure{
		ID:          w.ProcedureID,
		PatientID:   w.PatientID,
		Code:        w.AdaCode,
		Description: w.Description,
		Status:      strings.ToLower(w.Status),
		Date:        w.DateOfService,
	}
}

// statusFromVendor maps Eaglesoft's spaced lowercase statuses ("no show",
// "in progress") onto the canonical enum.
func statusFromVendor(s string) pms.AppointmentStatus {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
	status := pms.AppointmentStatus(normalized)
	switch status {
	case pms.StatusScheduled, pms.StatusConfirmed, pms.StatusArrived,
		pms.StatusInProgress, pms.StatusCompleted, pms.StatusCancelled, pms.StatusNoShow:
		return status
	default:
		return pms.StatusScheduled
	}
}

func statusToVendor(status pms.AppointmentStatus) string {
	return strings.ReplaceAll(string(status), "_", " ")
}
