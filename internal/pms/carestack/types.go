// Package carestack implements the PMS backend for CareStack. CareStack
// identifies entities with numeric ids and wraps list endpoints under
// /api/v1.0; the normalizer converts to and from the vendor-neutral domain
// model at every boundary crossing.
package carestack

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// wireID tolerates CareStack's inconsistent id encoding: numeric in most
// responses, quoted strings in a few legacy ones. It marshals back to a bare
// number whenever the value is numeric, matching what the vendor accepts on
// writes.
type wireID string

func (v wireID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(v), 10, 64); err == nil {
		return []byte(v), nil
	}
	return []byte(strconv.Quote(string(v))), nil
}

func (v *wireID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*v = ""
		return nil
	}
	if data[0] == '"' {
		unquoted, err := strconv.Unquote(string(data))
		if err != nil {
			return fmt.Errorf("carestack: invalid id %s: %w", data, err)
		}
		*v = wireID(unquoted)
		return nil
	}
	*v = wireID(data)
	return nil
}

type wireAddress struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
}

type wirePatient struct {
	ID           wireID       `json:"id"`
	FirstName    string       `json:"firstName"`
	LastName     string       `json:"lastName"`
	MobileNumber string       `json:"mobileNumber,omitempty"`
	Email        string       `json:"email,omitempty"`
	DateOfBirth  string       `json:"dateOfBirth,omitempty"`
	Address      *wireAddress `json:"address,omitempty"`
}

type wireProvider struct {
	ID          wireID   `json:"id"`
	Name        string   `json:"name"`
	Specialty   string   `json:"specialty,omitempty"`
	LocationIDs []wireID `json:"locationIds"`
}

type wireLocation struct {
	ID          wireID      `json:"id"`
	Name        string      `json:"name"`
	Address     wireAddress `json:"address"`
	PhoneNumber string      `json:"phoneNumber,omitempty"`
}

type wireOperatory struct {
	ID         wireID `json:"id"`
	Name       string `json:"name"`
	LocationID wireID `json:"locationId"`
}

type wireSlot struct {
	SlotID      string    `json:"slotId"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	ProviderID  wireID    `json:"providerId"`
	LocationID  wireID    `json:"locationId"`
	IsAvailable bool      `json:"isAvailable"`
}

type wireAppointment struct {
	ID         wireID    `json:"id"`
	PatientID  wireID    `json:"patientId"`
	ProviderID wireID    `json:"providerId"`
	LocationID wireID    `json:"locationId"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
	Status     string    `json:"status"`
	Notes      string    `json:"notes,omitempty"`
}

type wireStatus struct {
	ID       wireID `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
}

type wireProcedure struct {
	ID            wireID    `json:"id"`
	PatientID     wireID    `json:"patientId"`
	ProcedureCode string    `json:"procedureCode"`
	Description   string    `json:"description,omitempty"`
	Status        string    `json:"status,omitempty"`
	Date          time.Time `json:"date"`
}

type searchRequest struct {
	SearchCriteria searchCriteria `json:"searchCriteria"`
	PageNumber     int            `json:"pageNumber"`
	PageSize       int            `json:"pageSize"`
}

type searchCriteria struct {
	Name        string `json:"name,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Email       string `json:"email,omitempty"`
}

type searchResponse struct {
	Patients   []wirePatient `json:"patients"`
	TotalCount int           `json:"totalCount"`
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
	ContinueToken string `json:"continueToken,omitempty"`
}
