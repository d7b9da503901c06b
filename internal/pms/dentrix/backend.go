package dentrix

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/brettulin/okdentalai/internal/pms"
	"github.com/brettulin/okdentalai/internal/pms/transport"
)

const (
	apiBase    = "/v1"
	vendorName = "dentrix"
)

// Backend implements pms.Backend against the Dentrix Ascend REST API.
type Backend struct {
	tc  transport.Client
	cfg pms.Config
}

// New creates a Dentrix backend over the given transport.
func New(cfg pms.Config, tc transport.Client) *Backend {
	return &Backend{tc: tc, cfg: cfg}
}

func (b *Backend) Name() string { return vendorName }

func (b *Backend) SearchPatientsByPhone(ctx context.Context, phoneDigits string) ([]pms.Patient, error) {
	q := url.Values{}
	q.Set("phoneNumber", phoneDigits)

	var resp patientList
	if err := b.tc.Do(ctx, http.MethodGet, apiBase+"/patients?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("dentrix: patient phone search: %w", err)
	}

	patients := make([]pms.Patient, 0, len(resp.Patients))
	for _, w := range resp.Patients {
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
		return nil, fmt.Errorf("dentrix: create patient: %w", err)
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
	q := url.Values{}
	if criteria.Name != "" {
		q.Set("name", criteria.Name)
	}
	if criteria.Phone != "" {
		q.Set("phoneNumber", criteria.Phone)
	}
	if criteria.Email != "" {
		q.Set("emailAddress", criteria.Email)
	}
	q.Set("page", strconv.Itoa(page.Page))
	q.Set("pageSize", strconv.Itoa(page.PageSize))

	var resp patientList
	if err := b.tc.Do(ctx, http.MethodGet, apiBase+"/patients?"+q.Encode(), nil, &resp); err != nil {
		return nil, 0, fmt.Errorf("dentrix: patient search: %w", err)
	}

	patients := make([]pms.Patient, 0, len(resp.Patients))
	for _, w := range resp.Patients {
		patients = append(patients, patientFromWire(w))
	}
	return patients, resp.TotalCount, nil
}

func (b *Backend) ListProviders(ctx context.Context) ([]pms.Provider, error) {
	var wires []wireProvider
	if err := b.tc.Do(ctx, http.MethodGet, apiBase+"/providers", nil, &wires); err != nil {
		return nil, fmt.Errorf("dentrix: list providers: %w", err)
	}
	providers := make([]pms.Provider, 0, len(wires))
	for _, w := range wires {
		providers = append(providers, providerFromWire(w))
	}
	return providers, nil
}

func (b *Backend) ListLocations(ctx context.Context) ([]pms.Location, error) {
	var wires []wireLocation
	if err := b.tc.Do(ctx, http.MethodGet, apiBase+"/locations", nil, &wires); err != nil {
		return nil, fmt.Errorf("dentrix: list locations: %w", err)
	}
	locations := make([]pms.Location, 0, len(wires))
	for _, w := range wires {
		locations = append(locations, locationFromWire(w))
	}
	return locations, nil
}

func (b *Backend) ListOperatories(ctx context.Context, locationID string) ([]pms.Operatory, error) {
	path := apiBase + "/locations/" + url.PathEscape(locationID) + "/operatories"
	var wires []wireOperatory
	if err := b.tc.Do(ctx, http.MethodGet, path, nil, &wires); err != nil {
		return nil, fmt.Errorf("dentrix: list operatories: %w", err)
	}
	operatories := make([]pms.Operatory, 0, len(wires))
	for _, w := range wires {
		operatories = append(operatories, pms.Operatory{ID: w.OperatoryID, Name: w.Name, LocationID: w.LocationID})
	}
	return operatories, nil
}

func (b *Backend) GetAvailableSlots(ctx context.Context, providerID string, from, to time.Time) ([]pms.Slot, error) {
	q := url.Values{}
	q.Set("providerId", providerID)
	q.Set("start", from.Format(time.RFC3339))
	q.Set("end", to.Format(time.RFC3339))

	var wires []wireOpening
	if err := b.tc.Do(ctx, http.MethodGet, apiBase+"/schedule/openings?"+q.Encode(), nil, &wires); err != nil {
		return nil, fmt.Errorf("dentrix: get openings: %w", err)
	}
	slots := make([]pms.Slot, 0, len(wires))
	for _, w := range wires {
		slots = append(slots, slotFromWire(w))
	}
	return slots, nil
}

func (b *Backend) BookAppointment(ctx context.Context, req pms.BookingRequest) (*pms.Appointment, error) {
	payload := wireAppointment{
		PatientID:  req.PatientID,
		ProviderID: req.ProviderID,
		LocationID: req.LocationID,
		Start:      req.StartTime,
		End:        req.EndTime,
		Status:     statusToVendor(pms.StatusScheduled),
		Note:       req.Notes,
	}
	var created wireAppointment
	if err := b.tc.Do(ctx, http.MethodPost, apiBase+"/appointments", payload, &created); err != nil {
		return nil, fmt.Errorf("dentrix: book appointment: %w", err)
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

// Dentrix has a single lifecycle endpoint: cancel, checkout, and status
// changes are all PUT /appointments/{id}/status.
func (b *Backend) CancelAppointment(ctx context.Context, id, reason string) error {
	return b.putStatus(ctx, id, statusUpdate{Status: statusToVendor(pms.StatusCancelled), Note: reason})
}

func (b *Backend) CheckoutAppointment(ctx context.Context, id string) error {
	return b.putStatus(ctx, id, statusUpdate{Status: statusToVendor(pms.StatusCompleted)})
}

func (b *Backend) SetAppointmentStatus(ctx context.Context, id string, change pms.StatusChange) error {
	return b.putStatus(ctx, id, statusUpdate{Status: statusToVendor(change.Status), Note: change.Reason})
}

func (b *Backend) putStatus(ctx context.Context, id string, update statusUpdate) error {
	path := apiBase + "/appointments/" + url.PathEscape(id) + "/status"
	return b.tc.Do(ctx, http.MethodPut, path, update, nil)
}

func (b *Backend) ListAppointmentStatuses(ctx context.Context) ([]pms.StatusInfo, error) {
	var catalog statusCatalog
	if err := b.tc.Do(ctx, http.MethodGet, apiBase+"/appointments/statuses", nil, &catalog); err != nil {
		return nil, fmt.Errorf("dentrix: list statuses: %w", err)
	}
	statuses := make([]pms.StatusInfo, 0, len(catalog.Statuses))
	for _, name := range catalog.Statuses {
		code := statusFromVendor(name)
		statuses = append(statuses, pms.StatusInfo{Code: code, Display: displayName(code), IsActive: true})
	}
	return statuses, nil
}

func (b *Backend) SyncPatients(ctx context.Context, modifiedSince time.Time, continueToken string) (*pms.SyncPage[pms.Patient], error) {
	var resp changesPage[wirePatient]
	if err := b.tc.Do(ctx, http.MethodGet, changesPath("patients", modifiedSince, continueToken), nil, &resp); err != nil {
		return nil, fmt.Errorf("dentrix: sync patients: %w", err)
	}
	items := make([]pms.Patient, 0, len(resp.Items))
	for _, w := range resp.Items {
		items = append(items, patientFromWire(w))
	}
	return &pms.SyncPage[pms.Patient]{Items: items, ContinueToken: resp.NextCursor, HasMore: resp.NextCursor != ""}, nil
}

func (b *Backend) SyncAppointments(ctx context.Context, modifiedSince time.Time, continueToken string) (*pms.SyncPage[pms.Appointment], error) {
	var resp changesPage[wireAppointment]
	if err := b.tc.Do(ctx, http.MethodGet, changesPath("appointments", modifiedSince, continueToken), nil, &resp); err != nil {
		return nil, fmt.Errorf("dentrix: sync appointments: %w", err)
	}
	items := make([]pms.Appointment, 0, len(resp.Items))
	for _, w := range resp.Items {
		items = append(items, appointmentFromWire(w))
	}
	return &pms.SyncPage[pms.Appointment]{Items: items, ContinueToken: resp.NextCursor, HasMore: resp.NextCursor != ""}, nil
}

func (b *Backend) SyncTreatmentProcedures(ctx context.Context, modifiedSince time.Time, continueToken string) (*pms.SyncPage[pms.TreatmentProcedure], error) {
	var resp changesPage[wireProcedure]
	if err := b.tc.Do(ctx, http.MethodGet, changesPath("procedures", modifiedSince, continueToken), nil, &resp); err != nil {
		return nil, fmt.Errorf("dentrix: sync procedures: %w", err)
	}
	items := make([]pms.TreatmentProcedure, 0, len(resp.Items))
	for _, w := range resp.Items {
		items = append(items, procedureFromWire(w))
	}
	return &pms.SyncPage[pms.TreatmentProcedure]{Items: items, ContinueToken: resp.NextCursor, HasMore: resp.NextCursor != ""}, nil
}

func (b *Backend) Ping(ctx context.Context) error {
	return b.tc.Do(ctx, http.MethodGet, apiBase+"/locations", nil, nil)
}

func changesPath(feed string, modifiedSince time.Time, cursor string) string {
	q := url.Values{}
	if !modifiedSince.IsZero() {
		q.Set("since", modifiedSince.UTC().Format(time.RFC3339))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	path := apiBase + "/changes/" + feed
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}
	return path
}

func displayName(status pms.AppointmentStatus) string {
	for _, info := range pms.CanonicalStatuses() {
		if info.Code == status {
			return info.Display
		}
	}
	return "Scheduled"
}
