package pms

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/brettulin/okdentalai/internal/audit"
	"github.com/brettulin/okdentalai/internal/tenancy"
)

// fakeBackend counts calls and returns canned data; err, when set, is
// returned from every capability.
type fakeBackend struct {
	err   error
	calls map[string]int

	patient     *Patient
	patients    []Patient
	total       int
	providers   []Provider
	locations   []Location
	operatories []Operatory
	appointment *Appointment
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{calls: map[string]int{}}
}

func (f *fakeBackend) bump(op string) { f.calls[op]++ }

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) SearchPatientsByPhone(_ context.Context, phoneDigits string) ([]Patient, error) {
	f.bump("phone:" + phoneDigits)
	return f.patients, f.err
}

func (f *fakeBackend) CreatePatient(context.Context, NewPatient) (*Patient, error) {
	f.bump("create_patient")
	if f.err != nil {
		return nil, f.err
	}
	return f.patient, nil
}

func (f *fakeBackend) GetPatient(context.Context, string) (*Patient, error) {
	f.bump("get_patient")
	if f.err != nil {
		return nil, f.err
	}
	return f.patient, nil
}

func (f *fakeBackend) SearchPatients(context.Context, SearchCriteria, PageRequest) ([]Patient, int, error) {
	f.bump("search_patients")
	return f.patients, f.total, f.err
}

func (f *fakeBackend) ListProviders(context.Context) ([]Provider, error) {
	f.bump("list_providers")
	return f.providers, f.err
}

func (f *fakeBackend) ListLocations(context.Context) ([]Location, error) {
	f.bump("list_locations")
	return f.locations, f.err
}

func (f *fakeBackend) ListOperatories(_ context.Context, locationID string) ([]Operatory, error) {
	f.bump("list_operatories:" + locationID)
	return f.operatories, f.err
}

func (f *fakeBackend) GetAvailableSlots(context.Context, string, time.Time, time.Time) ([]Slot, error) {
	f.bump("slots")
	return nil, f.err
}

func (f *fakeBackend) BookAppointment(context.Context, BookingRequest) (*Appointment, error) {
	f.bump("book")
	if f.err != nil {
		return nil, f.err
	}
	return f.appointment, nil
}

func (f *fakeBackend) GetAppointment(context.Context, string) (*Appointment, error) {
	f.bump("get_appointment")
	if f.err != nil {
		return nil, f.err
	}
	return f.appointment, nil
}

func (f *fakeBackend) CancelAppointment(context.Context, string, string) error {
	f.bump("cancel")
	return f.err
}

func (f *fakeBackend) CheckoutAppointment(context.Context, string) error {
	f.bump("checkout")
	return f.err
}

func (f *fakeBackend) SetAppointmentStatus(context.Context, string, StatusChange) error {
	f.bump("set_status")
	return f.err
}

func (f *fakeBackend) ListAppointmentStatuses(context.Context) ([]StatusInfo, error) {
	f.bump("statuses")
	return CanonicalStatuses(), f.err
}

func (f *fakeBackend) SyncPatients(context.Context, time.Time, string) (*SyncPage[Patient], error) {
	f.bump("sync_patients")
	if f.err != nil {
		return nil, f.err
	}
	return &SyncPage[Patient]{Items: f.patients}, nil
}

func (f *fakeBackend) SyncAppointments(context.Context, time.Time, string) (*SyncPage[Appointment], error) {
	f.bump("sync_appointments")
	if f.err != nil {
		return nil, f.err
	}
	return &SyncPage[Appointment]{}, nil
}

func (f *fakeBackend) SyncTreatmentProcedures(context.Context, time.Time, string) (*SyncPage[TreatmentProcedure], error) {
	f.bump("sync_procedures")
	if f.err != nil {
		return nil, f.err
	}
	return &SyncPage[TreatmentProcedure]{}, nil
}

func (f *fakeBackend) Ping(context.Context) error {
	f.bump("ping")
	return f.err
}

// captureSink records audit events in memory.
type captureSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *captureSink) Record(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func newTestAdapter(backend Backend, opts AdapterOptions) *Adapter {
	return NewAdapterFor(backend, Config{Vendor: "fake"}, opts)
}

func TestAdapter_SearchPatientsByPhone_NormalizesDigits(t *testing.T) {
	backend := newFakeBackend()
	backend.patients = []Patient{{ID: "p1"}}
	a := newTestAdapter(backend, AdapterOptions{})

	got, err := a.SearchPatientsByPhone(context.Background(), "(555) 867-5309")
	if err != nil {
		t.Fatalf("SearchPatientsByPhone() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d patients, want 1", len(got))
	}
	if backend.calls["phone:5558675309"] != 1 {
		t.Fatalf("backend did not receive normalized digits: %v", backend.calls)
	}
}

func TestAdapter_SearchPatientsByPhone_RejectsNoDigits(t *testing.T) {
	a := newTestAdapter(newFakeBackend(), AdapterOptions{})

	_, err := a.SearchPatientsByPhone(context.Background(), "n/a")
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want ConfigurationError", err)
	}
}

func TestAdapter_CreatePatient_ValidatesPayload(t *testing.T) {
	backend := newFakeBackend()
	a := newTestAdapter(backend, AdapterOptions{})

	_, err := a.CreatePatient(context.Background(), NewPatient{FirstName: "Ada"})
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want ConfigurationError", err)
	}
	if backend.calls["create_patient"] != 0 {
		t.Fatalf("backend called despite invalid payload")
	}

	_, err = a.CreatePatient(context.Background(), NewPatient{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Phone:       "555-0100",
		DateOfBirth: "1990-13-40",
	})
	if !errors.As(err, &cfgErr) {
		t.Fatalf("bad date of birth: error = %v, want ConfigurationError", err)
	}
}

func TestAdapter_GetPatient_NotFoundIsNil(t *testing.T) {
	backend := newFakeBackend()
	backend.err = &NotFoundError{Vendor: "fake", Path: "/patients/99"}
	a := newTestAdapter(backend, AdapterOptions{})

	patient, err := a.GetPatient(context.Background(), "99")
	if err != nil {
		t.Fatalf("GetPatient() error = %v, want nil", err)
	}
	if patient != nil {
		t.Fatalf("GetPatient() = %+v, want nil", patient)
	}
}

func TestAdapter_SearchPatients_DefaultsAndTotalPages(t *testing.T) {
	backend := newFakeBackend()
	backend.patients = []Patient{{ID: "p1"}, {ID: "p2"}}
	backend.total = 41
	a := newTestAdapter(backend, AdapterOptions{})

	page, err := a.SearchPatients(context.Background(), SearchCriteria{}, PageRequest{})
	if err != nil {
		t.Fatalf("SearchPatients() error = %v", err)
	}
	if page.Page != 1 || page.PageSize != 20 {
		t.Fatalf("page = %d/%d, want defaults 1/20", page.Page, page.PageSize)
	}
	if page.Total != 41 {
		t.Fatalf("Total = %d, want 41", page.Total)
	}
	if page.TotalPages != 3 {
		t.Fatalf("TotalPages = %d, want 3", page.TotalPages)
	}
}

func TestAdapter_ListProviders_Cached(t *testing.T) {
	backend := newFakeBackend()
	backend.providers = []Provider{{ID: "1"}}
	a := newTestAdapter(backend, AdapterOptions{})

	for i := 0; i < 3; i++ {
		if _, err := a.ListProviders(context.Background()); err != nil {
			t.Fatalf("ListProviders() error = %v", err)
		}
	}
	if backend.calls["list_providers"] != 1 {
		t.Fatalf("backend called %d times, want 1", backend.calls["list_providers"])
	}
}

func TestAdapter_ListProviders_CacheExpires(t *testing.T) {
	backend := newFakeBackend()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	a := newTestAdapter(backend, AdapterOptions{
		CacheTTL: time.Minute,
		Now:      func() time.Time { return now },
	})

	if _, err := a.ListProviders(context.Background()); err != nil {
		t.Fatalf("ListProviders() error = %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := a.ListProviders(context.Background()); err != nil {
		t.Fatalf("ListProviders() error = %v", err)
	}
	if backend.calls["list_providers"] != 2 {
		t.Fatalf("backend called %d times, want 2 after expiry", backend.calls["list_providers"])
	}
}

func TestAdapter_ListOperatories_CachedPerLocation(t *testing.T) {
	backend := newFakeBackend()
	a := newTestAdapter(backend, AdapterOptions{})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := a.ListOperatories(ctx, "loc-1"); err != nil {
			t.Fatalf("ListOperatories(loc-1) error = %v", err)
		}
		if _, err := a.ListOperatories(ctx, "loc-2"); err != nil {
			t.Fatalf("ListOperatories(loc-2) error = %v", err)
		}
	}
	if backend.calls["list_operatories:loc-1"] != 1 || backend.calls["list_operatories:loc-2"] != 1 {
		t.Fatalf("per-location cache miscounted: %v", backend.calls)
	}
}

func TestAdapter_ListProviders_ErrorNotCached(t *testing.T) {
	backend := newFakeBackend()
	backend.err = &ServerError{Vendor: "fake", Status: 500}
	a := newTestAdapter(backend, AdapterOptions{})

	if _, err := a.ListProviders(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	backend.err = nil
	if _, err := a.ListProviders(context.Background()); err != nil {
		t.Fatalf("ListProviders() after recovery error = %v", err)
	}
	if backend.calls["list_providers"] != 2 {
		t.Fatalf("backend called %d times, want 2", backend.calls["list_providers"])
	}
}

func TestAdapter_BookAppointment_ValidatesWindow(t *testing.T) {
	backend := newFakeBackend()
	a := newTestAdapter(backend, AdapterOptions{})

	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	_, err := a.BookAppointment(context.Background(), BookingRequest{
		PatientID:  "p1",
		ProviderID: "d1",
		LocationID: "l1",
		StartTime:  start,
		EndTime:    start.Add(-time.Hour),
	})
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want ConfigurationError for end before start", err)
	}
	if backend.calls["book"] != 0 {
		t.Fatalf("backend called despite invalid window")
	}
}

func TestAdapter_BookAppointment_Audited(t *testing.T) {
	backend := newFakeBackend()
	backend.appointment = &Appointment{ID: "apt-1", Status: StatusScheduled}
	sink := &captureSink{}
	a := newTestAdapter(backend, AdapterOptions{Audit: sink})

	ctx := tenancy.WithOfficeID(context.Background(), "office-7")
	ctx = tenancy.WithActor(ctx, "voice-ai")

	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	appt, err := a.BookAppointment(ctx, BookingRequest{
		PatientID:  "p1",
		ProviderID: "d1",
		LocationID: "l1",
		StartTime:  start,
		EndTime:    start.Add(30 * time.Minute),
	})
	if err != nil {
		t.Fatalf("BookAppointment() error = %v", err)
	}
	if appt.ID != "apt-1" {
		t.Fatalf("appointment ID = %s", appt.ID)
	}

	if len(sink.events) != 1 {
		t.Fatalf("recorded %d audit events, want 1", len(sink.events))
	}
	event := sink.events[0]
	if event.Action != "pms.book_appointment" {
		t.Fatalf("Action = %s", event.Action)
	}
	if event.OfficeID != "office-7" || event.Actor != "voice-ai" {
		t.Fatalf("tenancy fields = %s/%s", event.OfficeID, event.Actor)
	}
	if event.EntityID != "apt-1" {
		t.Fatalf("EntityID = %s", event.EntityID)
	}
}

func TestAdapter_CancelAppointment_NotFoundIsFalse(t *testing.T) {
	backend := newFakeBackend()
	backend.err = &NotFoundError{Vendor: "fake", Path: "/appointments/99"}
	a := newTestAdapter(backend, AdapterOptions{})

	ok, err := a.CancelAppointment(context.Background(), "99", "patient request")
	if err != nil {
		t.Fatalf("CancelAppointment() error = %v, want nil", err)
	}
	if ok {
		t.Fatalf("CancelAppointment() = true, want false")
	}
}

func TestAdapter_AuthErrorPropagatesFromEveryCapability(t *testing.T) {
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	calls := []struct {
		name string
		call func(context.Context, *Adapter) error
	}{
		{"SearchPatientsByPhone", func(ctx context.Context, a *Adapter) error {
			_, err := a.SearchPatientsByPhone(ctx, "555-0100")
			return err
		}},
		{"CreatePatient", func(ctx context.Context, a *Adapter) error {
			_, err := a.CreatePatient(ctx, NewPatient{FirstName: "Ada", LastName: "Lovelace", Phone: "555-0100"})
			return err
		}},
		{"GetPatient", func(ctx context.Context, a *Adapter) error {
			_, err := a.GetPatient(ctx, "1")
			return err
		}},
		{"SearchPatients", func(ctx context.Context, a *Adapter) error {
			_, err := a.SearchPatients(ctx, SearchCriteria{}, PageRequest{})
			return err
		}},
		{"ListProviders", func(ctx context.Context, a *Adapter) error {
			_, err := a.ListProviders(ctx)
			return err
		}},
		{"ListLocations", func(ctx context.Context, a *Adapter) error {
			_, err := a.ListLocations(ctx)
			return err
		}},
		{"ListOperatories", func(ctx context.Context, a *Adapter) error {
			_, err := a.ListOperatories(ctx, "loc-1")
			return err
		}},
		{"GetAvailableSlots", func(ctx context.Context, a *Adapter) error {
			_, err := a.GetAvailableSlots(ctx, "d1", start, start.Add(8*time.Hour))
			return err
		}},
		{"BookAppointment", func(ctx context.Context, a *Adapter) error {
			_, err := a.BookAppointment(ctx, BookingRequest{
				PatientID:  "p1",
				ProviderID: "d1",
				LocationID: "l1",
				StartTime:  start,
				EndTime:    start.Add(30 * time.Minute),
			})
			return err
		}},
		{"GetAppointment", func(ctx context.Context, a *Adapter) error {
			_, err := a.GetAppointment(ctx, "1")
			return err
		}},
		{"CancelAppointment", func(ctx context.Context, a *Adapter) error {
			_, err := a.CancelAppointment(ctx, "1", "")
			return err
		}},
		{"CheckoutAppointment", func(ctx context.Context, a *Adapter) error {
			_, err := a.CheckoutAppointment(ctx, "1")
			return err
		}},
		{"ModifyAppointmentStatus", func(ctx context.Context, a *Adapter) error {
			_, err := a.ModifyAppointmentStatus(ctx, "1", StatusChange{Status: StatusConfirmed})
			return err
		}},
		{"GetAppointmentStatuses", func(ctx context.Context, a *Adapter) error {
			_, err := a.GetAppointmentStatuses(ctx)
			return err
		}},
		{"SyncPatients", func(ctx context.Context, a *Adapter) error {
			_, err := a.SyncPatients(ctx, time.Time{}, "")
			return err
		}},
		{"SyncAppointments", func(ctx context.Context, a *Adapter) error {
			_, err := a.SyncAppointments(ctx, time.Time{}, "")
			return err
		}},
		{"SyncTreatmentProcedures", func(ctx context.Context, a *Adapter) error {
			_, err := a.SyncTreatmentProcedures(ctx, time.Time{}, "")
			return err
		}},
	}

	for _, tc := range calls {
		t.Run(tc.name, func(t *testing.T) {
			backend := newFakeBackend()
			backend.err = &AuthenticationError{Vendor: "fake", Status: 401}
			a := newTestAdapter(backend, AdapterOptions{})

			err := tc.call(context.Background(), a)
			if !IsAuthentication(err) {
				t.Fatalf("error = %v, want authentication error", err)
			}
		})
	}
}

func TestAdapter_ModifyAppointmentStatus_RejectsUnknownStatus(t *testing.T) {
	backend := newFakeBackend()
	a := newTestAdapter(backend, AdapterOptions{})

	_, err := a.ModifyAppointmentStatus(context.Background(), "1", StatusChange{Status: "vanished"})
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want ConfigurationError", err)
	}
	if backend.calls["set_status"] != 0 {
		t.Fatalf("backend called despite invalid status")
	}
}

func TestAdapter_ValidateCredentials_MockSkipsPing(t *testing.T) {
	backend := newFakeBackend()
	a := NewAdapterFor(backend, Config{Vendor: "fake", UseMock: true}, AdapterOptions{})

	check, err := a.ValidateCredentials(context.Background())
	if err != nil {
		t.Fatalf("ValidateCredentials() error = %v", err)
	}
	if !check.IsValid {
		t.Fatalf("IsValid = false, want true in mock mode")
	}
	if backend.calls["ping"] != 0 {
		t.Fatalf("Ping called in mock mode")
	}
}

func TestAdapter_ValidateCredentials_ProbeFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.err = &AuthenticationError{Vendor: "fake", Status: 401}
	a := newTestAdapter(backend, AdapterOptions{})

	check, err := a.ValidateCredentials(context.Background())
	if err != nil {
		t.Fatalf("ValidateCredentials() error = %v", err)
	}
	if check.IsValid {
		t.Fatalf("IsValid = true, want false for rejected credentials")
	}
	if len(check.Suggestions) == 0 {
		t.Fatalf("expected remediation suggestions")
	}
}
