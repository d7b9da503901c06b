package eaglesoft

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brettulin/okdentalai/internal/pms"
	"github.com/brettulin/okdentalai/internal/pms/transport"
)

const (
	apiBase          = "/api"
	phoneSearchLimit = 50
	vendorName       = "eaglesoft"
)

// Backend implements pms.Backend against the Eaglesoft cloud API.
type Backend struct {
	tc  transport.Client
	cfg pms.Config
}

// New creates an Eaglesoft backend over the given transport.
func New(cfg pms.Config, tc transport.Client) *Backend {
	return &Backend{tc: tc, cfg: cfg}
}

func (b *Backend) Name() string { return vendorName }

func (b *Backend) SearchPatientsByPhone(ctx context.Context, phoneDigits string) ([]pms.Patient, error) {
	req := searchRequest{
		Criteria: searchCriteria{Phone: phoneDigits},
		Page:     1,
		PageSize: phoneSearchLimit,
	}
	var resp searchResponse
	if err := b.tc.Do(ctx, http.MethodPost, apiBase+"/patients/search", req, &resp); err != nil {
		return nil, fmt.Errorf("eaglesoft: patient phone search: %w", err)
	}

	patients := make([]pms.Patient, 0, len(resp.Results))
	for _, w := range resp.Results {
		p := patientFromWire(w)
		if strings.Contains(pms.DigitsOnly(p.Phone), phoneDigits) {
			patients = append(patients, p)
		}
	}
	return patients, nil
}

func (b *Backend) CreatePatient(ctx context.Context, patient pms.NewPatient) (*pms.Patient, error) {
	var created wirePatient
	if err := b.tc.Do(ctx, http.MethodPost, apiBase+"/patients", patientToWire(patient), &created); err != nil {
		return nil, fmt.Errorf("eaglesoft: create patient: %w", err)
	}
	out := patientFromWire(created)
	return &out, nil
}

func (b *Backend) GetPatient(ctx context.Context, id string) (*pms.Patient, error) {
	var w wirePatient
	if err := b.tc.Do(ctx, http.MethodGet, apiBase+"/patients/"+url.PathEscape(id), nil, &w); err != nil {
		return nil, err
	}
	out := patientFromWire(w)
	return &out, nil
}

func (b *Backend) SearchPatients(ctx context.Context, criteria pms.SearchCriteria, page pms.PageRequest) ([]pms.Patient, int, error) {
	req := searchRequest{
		Criteria: searchCriteria{
			Name:  criteria.Name,
			Phone: criteria.Phone,
			Email: criteria.Email,
		},
		Page:     page.Page,
		PageSize: page.PageSize,
	}
	var resp searchResponse
	if err := b.tc.Do(ctx, http.MethodPost, apiBase+"/patients/search", req, &resp); err != nil {
		return nil, 0, fmt.Errorf("eaglesoft: patient search: %w", err)
	}

	patients := make([]pms.Patient, 0, len(resp.Results))
	for _, w := range resp.Results {
		patients = append(patients, patientFromWire(w))
	}
	return patients, resp.Total, nil
}

func (b *Backend) ListProviders(ctx context.Context) ([]pms.Provider, error) {
	var wires []wireProvider
	if err := b.tc.Do(ctx, http.MethodGet, apiBase+"/providers", nil, &wires); err != nil {
		return nil, fmt.Errorf("eaglesoft: list providers: %w", err)
	}
	providers := make([]pms.Provider, 0, len(wires))
	for _, w := range wires {
		providers = append(providers, providerFromWire(w))
	}
	return providers, nil
}

func (b *Backend) ListLocations(ctx context.Context) ([]pms.Location, error) {
	var wires []wireOffice
	if err := b.tc.Do(ctx, http.MethodGet, apiBase+"/offices", nil, &wires); err != nil {
		return nil, fmt.Errorf("eaglesoft: list offices: %w", err)
	}
	locations := make([]pms.Location, 0, len(wires))
	for _, w := range wires {
		locations = append(locations, locationFromWire(w))
	}
	return locations, nil
}

func (b *Backend) ListOperatories(ctx context.Context, locationID string) ([]pms.Operatory, error) {
	path := apiBase + "/offices/" + url.PathEscape(locationID) + "/operatories"
	var wires []wireOperatory
	if err := b.tc.Do(ctx, http.MethodGet, path, nil, &wires); err != nil {
		return nil, fmt.Errorf("eaglesoft: list operatories: %w", err)
	}
	operatories := make([]pms.Operatory, 0, len(wires))
	for _, w := range wires {
		operatories = append(operatories, operatoryFromWire(w))
	}
	return operatories, nil
}

func (b *Backend) GetAvailableSlots(ctx context.Context, providerID string, from, to time.Time) ([]pms.Slot, error) {
	q := url.Values{}
	q.Set("provider_id", providerID)
	q.Set("from", from.Format(time.RFC3339))
	q.Set("to", to.Format(time.RFC3339))

	var wires []wireSlot
	if err := b.tc.Do(ctx, http.MethodGet, apiBase+"/schedule/slots?"+q.Encode(), nil, &wires); err != nil {
		return nil, fmt.Errorf("eaglesoft: get slots: %w", err)
	}
	slots := make([]pms.Slot, 0, len(wires))
	for _, w := range wires {
		slots = append(slots, slotFromWire(w))
	}
	return slots, nil
}

func (b *Backend) BookAppointment(ctx context.Context, req pms.BookingRequest) (*pms.Appointment, error) {
	var created wireAppointment
	if err := b.tc.Do(ctx, http.MethodPost, apiBase+"/appointments", appointmentToWire(req), &created); err != nil {
		return nil, fmt.Errorf("eaglesoft: book appointment: %w", err)
	}
	out := appointmentFromWire(created)
	return &out, nil
}

func (b *Backend) GetAppointment(ctx context.Context, id string) (*pms.Appointment, error) {
	var w wireAppointment
	if err := b.tc.Do(ctx, http.MethodGet, apiBase+"/appointments/"+url.PathEscape(id), nil, &w); err != nil {
		return nil, err
	}
	out := appointmentFromWire(w)
	return &out, nil
}

func (b *Backend) CancelAppointment(ctx context.Context, id, reason string) error {
	path := apiBase + "/appointments/" + url.PathEscape(id) + "/cancel"
	return b.tc.Do(ctx, http.MethodPut, path, cancelRequest{Reason: reason}, nil)
}

func (b *Backend) CheckoutAppointment(ctx context.Context, id string) error {
	path := apiBase + "/appointments/" + url.PathEscape(id) + "/checkout"
	return b.tc.Do(ctx, http.MethodPut, path, nil, nil)
}

func (b *Backend) SetAppointmentStatus(ctx context.Context, id string, change pms.StatusChange) error {
	path := apiBase + "/appointments/" + url.PathEscape(id) + "/status"
	req := statusRequest{Status: statusToVendor(change.Status), Reason: change.Reason}
	return b.tc.Do(ctx, http.MethodPut, path, req, nil)
}

func (b *Backend) ListAppointmentStatuses(ctx context.Context) ([]pms.StatusInfo, error) {
	var wires []wireStatus
	if err := b.tc.Do(ctx, http.MethodGet, apiBase+"/appointment_statuses", nil, &wires); err != nil {
		return nil, fmt.Errorf("eaglesoft: list statuses: %w", err)
	}
	statuses := make([]pms.StatusInfo, 0, len(wires))
	for _, w := range wires {
		statuses = append(statuses, statusInfoFromWire(w))
	}
	return statuses, nil
}

func (b *Backend) SyncPatients(ctx context.Context, modifiedSince time.Time, continueToken string) (*pms.SyncPage[pms.Patient], error) {
	var resp syncResponse[wirePatient]
	if err := b.tc.Do(ctx, http.MethodGet, syncPath("patients", modifiedSince, continueToken), nil, &resp); err != nil {
		return nil, fmt.Errorf("eaglesoft: sync patients: %w", err)
	}
	items := make([]pms.Patient, 0, len(resp.Items))
	for _, w := range resp.Items {
		items = append(items, patientFromWire(w))
	}
	return &pms.SyncPage[pms.Patient]{
		Items:         items,
		ContinueToken: resp.ContinueToken,
		HasMore:       resp.ContinueToken != "",
	}, nil
}

func (b *Backend) SyncAppointments(ctx context.Context, modifiedSince time.Time, continueToken string) (*pms.SyncPage[pms.Appointment], error) {
	var resp syncResponse[wireAppointment]
	if err := b.tc.Do(ctx, http.MethodGet, syncPath("appointments", modifiedSince, continueToken), nil, &resp); err != nil {
		return nil, fmt.Errorf("eaglesoft: sync appointments: %w", err)
	}
	items := make([]pms.Appointment, 0, len(resp.Items))
	for _, w := range resp.Items {
		items = append(items, appointmentFromWire(w))
	}
	return &pms.SyncPage[pms.Appointment]{
		Items:         items,
		ContinueToken: resp.ContinueToken,
		HasMore:       resp.ContinueToken != "",
	}, nil
}

func (b *Backend) SyncTreatmentProcedures(ctx context.Context, modifiedSince time.Time, continueToken string) (*pms.SyncPage[pms.TreatmentProcedure], error) {
	var resp syncResponse[wireProcedure]
	if err := b.tc.Do(ctx, http.MethodGet, syncPath("procedures", modifiedSince, continueToken), nil, &resp); err != nil {
		return nil, fmt.Errorf("eaglesoft: sync procedures: %w", err)
	}
	items := make([]pms.TreatmentProcedure, 0, len(resp.Items))
	for _, w := range resp.Items {
		items = append(items, procedureFromWire(w))
	}
	return &pms.SyncPage[pms.TreatmentProcedure]{
		Items:         items,
		ContinueToken: resp.ContinueToken,
		HasMore:       resp.ContinueToken != "",
	}, nil
}

// Ping hits the office list, the cheapest authenticated Eaglesoft read.
func (b *Backend) Ping(ctx context.Context) error {
	return b.tc.Do(ctx, http.MethodGet, apiBase+"/offices", nil, nil)
}

func syncPath(feed string, modifiedSince time.Time, continueToken string) string {
	q := url.Values{}
	if !modifiedSince.IsZero() {
		q.Set("modified_since", modifiedSince.UTC().Format(time.RFC3339))
	}
	if continueToken != "" {
		q.Set("continue_token", continueToken)
	}
	path := apiBase + "/sync/" + feed
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}
	return path
}
