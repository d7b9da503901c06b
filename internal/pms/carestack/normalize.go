package carestack

import (
	"strings"

	"github.com/brettulin/okdentalai/internal/pms"
)

// Mapping functions between CareStack wire shapes and the domain model.
// They are pure, tolerate missing optional vendor fields, and apply the
// string-id rule on every crossing.

func patientFromWire(w wirePatient) pms.Patient {
	return pms.Patient{
		ID:          string(w.ID),
		FirstName:   w.FirstName,
		LastName:    w.LastName,
		Phone:       w.MobileNumber,
		Email:       w.Email,
		DateOfBirth: w.DateOfBirth,
		Address:     addressFromWire(w.Address),
	}
}

func patientToWire(p pms.NewPatient) wirePatient {
	return wirePatient{
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		MobileNumber: p.Phone,
		Email:        p.Email,
		DateOfBirth:  p.DateOfBirth,
		Address:      addressToWire(p.Address),
	}
}

func addressFromWire(w *wireAddress) *pms.Address {
	if w == nil {
		return nil
	}
	return &pms.Address{
		Street:  w.Street,
		City:    w.City,
		State:   w.State,
		ZipCode: w.ZipCode,
	}
}

func addressToWire(a *pms.Address) *wireAddress {
	if a == nil {
		return nil
	}
	return &wireAddress{
		Street:  a.Street,
		City:    a.City,
		State:   a.State,
		ZipCode: a.ZipCode,
	}
}

func providerFromWire(w wireProvider) pms.Provider {
	locationIDs := make([]string, 0, len(w.LocationIDs))
	for _, id := range w.LocationIDs {
		locationIDs = append(locationIDs, string(id))
	}
	return pms.Provider{
		ID:          string(w.ID),
		Name:        w.Name,
		Specialty:   w.Specialty,
		LocationIDs: locationIDs,
	}
}

func locationFromWire(w wireLocation) pms.Location {
	return pms.Location{
		ID:   string(w.ID),
		Name: w.Name,
		Address: pms.Address{
			Street:  w.Address.Street,
			City:    w.Address.City,
			State:   w.Address.State,
			ZipCode: w.Address.ZipCode,
		},
		Phone: w.PhoneNumber,
	}
}

func operatoryFromWire(w wireOperatory) pms.Operatory {
	return pms.Operatory{
		ID:         string(w.ID),
		Name:       w.Name,
		LocationID: string(w.LocationID),
	}
}

func slotFromWire(w wireSlot) pms.Slot {
	return pms.Slot{
		ID:         w.SlotID,
		StartTime:  w.StartTime,
		EndTime:    w.EndTime,
		ProviderID: string(w.ProviderID),
		LocationID: string(w.LocationID),
		Available:  w.IsAvailable,
	}
}

func appointmentFromWire(w wireAppointment) pms.Appointment {
	return pms.Appointment{
		ID:         string(w.ID),
		PatientID:  string(w.PatientID),
		ProviderID: string(w.ProviderID),
		LocationID: string(w.LocationID),
		StartTime:  w.StartTime,
		EndTime:    w.EndTime,
		Status:     statusFromVendor(w.Status),
		Notes:      w.Notes,
	}
}

func appointmentToWire(req pms.BookingRequest) wireAppointment {
	return wireAppointment{
		PatientID:  wireID(req.PatientID),
		ProviderID: wireID(req.ProviderID),
		LocationID: wireID(req.LocationID),
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Status:     statusToVendor(pms.StatusScheduled),
		Notes:      req.Notes,
	}
}

func statusInfoFromWire(w wireStatus) pms.StatusInfo {
	return pms.StatusInfo{
		Code:     statusFromVendor(w.Name),
		Display:  w.Name,
		IsActive: w.IsActive,
	}
}

func procedureFromWire(w wireProcedure) pms.TreatmentProcedure {
	return pms.TreatmentProcedure{
		ID:          string(w.ID),
		PatientID:   string(w.PatientID),
		Code:        w.ProcedureCode,
		Description: w.Description,
		Status:      w.Status,
		Date:        w.Date,
	}
}

// statusFromVendor maps CareStack's display-cased status ("In Progress",
// "No Show") onto the canonical enum.
func statusFromVendor(s string) pms.AppointmentStatus {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
	switch pms.AppointmentStatus(normalized) {
	case pms.StatusScheduled, pms.StatusConfirmed, pms.StatusArrived,
		pms.StatusInProgress, pms.StatusCompleted, pms.StatusCancelled, pms.StatusNoShow:
		return pms.AppointmentStatus(normalized)
	default:
		return pms.StatusScheduled
	}
}

func statusToVendor(status pms.AppointmentStatus) string {
	for _, info := range pms.CanonicalStatuses() {
		if info.Code == status {
			return info.Display
		}
	}
	return "Scheduled"
}
