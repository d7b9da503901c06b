// Package demo holds the in-memory dataset served by mock-mode transports.
// A Store is constructed fresh per adapter or test harness and injected —
// never a process-wide singleton — so mock state cannot leak across tenants
// or tests.
package demo

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brettulin/okdentalai/internal/pms"
)

const defaultSyncPageSize = 2

type patientRecord struct {
	patient   pms.Patient
	updatedAt time.Time
}

type appointmentRecord struct {
	appointment pms.Appointment
	updatedAt   time.Time
}

type procedureRecord struct {
	procedure pms.TreatmentProcedure
	updatedAt time.Time
}

// Store is the canned dataset behind mock mode.
type Store struct {
	mu sync.RWMutex

	patients     map[string]patientRecord
	patientOrder []string

	appointments map[string]appointmentRecord
	apptOrder    []string

	procedures []procedureRecord

	providers   []pms.Provider
	locations   []pms.Location
	operatories []pms.Operatory

	syncPageSize int
	now          func() time.Time
}

// Options configure a demo store.
type Options struct {
	// Now overrides the clock, for tests.
	Now func() time.Time
	// SyncPageSize bounds sync feed pages; small on purpose so pagination
	// paths are exercised. Defaults to 2.
	SyncPageSize int
	// Empty skips the seed dataset.
	Empty bool
}

// NewStore creates a store seeded with a small realistic dataset.
func NewStore(opts Options) *Store {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	pageSize := opts.SyncPageSize
	if pageSize <= 0 {
		pageSize = defaultSyncPageSize
	}
	s := &Store{
		patients:     make(map[string]patientRecord),
		appointments: make(map[string]appointmentRecord),
		syncPageSize: pageSize,
		now:          now,
	}
	if !opts.Empty {
		s.seed()
	}
	return s
}

func (s *Store) seed() {
	seededAt := s.now().UTC()

	s.locations = []pms.Location{
		{ID: "1", Name: "Main Street Dental", Address: pms.Address{Street: "123 Main St", City: "Oklahoma City", State: "OK", ZipCode: "73102"}, Phone: "405-555-0100"},
		{ID: "2", Name: "Northside Dental", Address: pms.Address{Street: "456 North Ave", City: "Edmond", State: "OK", ZipCode: "73013"}, Phone: "405-555-0200"},
	}
	s.operatories = []pms.Operatory{
		{ID: "11", Name: "Op 1", LocationID: "1"},
		{ID: "12", Name: "Op 2", LocationID: "1"},
		{ID: "21", Name: "Op 1", LocationID: "2"},
	}
	s.providers = []pms.Provider{
		{ID: "1", Name: "Dr. Sarah Chen", Specialty: "General Dentistry", LocationIDs: []string{"1", "2"}},
		{ID: "2", Name: "Dr. Miguel Torres", Specialty: "Orthodontics", LocationIDs: []string{"1"}},
		{ID: "3", Name: "Dr. Amy Patel", Specialty: "Pediatric Dentistry", LocationIDs: []string{"2"}},
	}

	seedPatients := []pms.Patient{
		{ID: "1", FirstName: "John", LastName: "Smith", Phone: "555-0123", Email: "john.smith@example.com", DateOfBirth: "1985-03-12"},
		{ID: "2", FirstName: "Maria", LastName: "Garcia", Phone: "(555) 867-5309", Email: "maria.g@example.com", DateOfBirth: "1990-07-04"},
		{ID: "3", FirstName: "Robert", LastName: "Lee", Phone: "555-246-8100", DateOfBirth: "1978-11-30",
			Address: &pms.Address{Street: "12 Oak Ln", City: "Norman", State: "OK", ZipCode: "73019"}},
		{ID: "4", FirstName: "Linda", LastName: "Nguyen", Phone: "555-3344", Email: "linda.n@example.com"},
		{ID: "5", FirstName: "David", LastName: "Brown", Phone: "555-9988"},
	}
	for _, p := range seedPatients {
		s.patients[p.ID] = patientRecord{patient: p, updatedAt: seededAt}
		s.patientOrder = append(s.patientOrder, p.ID)
	}

	tomorrow := seededAt.Add(24 * time.Hour).Truncate(time.Hour)
	seedAppts := []pms.Appointment{
		{ID: "1001", PatientID: "1", ProviderID: "1", LocationID: "1",
			StartTime: tomorrow, EndTime: tomorrow.Add(time.Hour), Status: pms.StatusScheduled, Notes: "Cleaning"},
		{ID: "1002", PatientID: "2", ProviderID: "2", LocationID: "1",
			StartTime: tomorrow.Add(2 * time.Hour), EndTime: tomorrow.Add(3 * time.Hour), Status: pms.StatusConfirmed},
		{ID: "1003", PatientID: "3", ProviderID: "3", LocationID: "2",
			StartTime: tomorrow.Add(26 * time.Hour), EndTime: tomorrow.Add(27 * time.Hour), Status: pms.StatusScheduled},
	}
	for _, a := range seedAppts {
		s.appointments[a.ID] = appointmentRecord{appointment: a, updatedAt: seededAt}
		s.apptOrder = append(s.apptOrder, a.ID)
	}

	s.procedures = []procedureRecord{
		{procedure: pms.TreatmentProcedure{ID: "9001", PatientID: "1", Code: "D1110", Description: "Prophylaxis - adult", Status: "completed", Date: seededAt.Add(-30 * 24 * time.Hour)}, updatedAt: seededAt},
		{procedure: pms.TreatmentProcedure{ID: "9002", PatientID: "2", Code: "D0120", Description: "Periodic oral evaluation", Status: "completed", Date: seededAt.Add(-14 * 24 * time.Hour)}, updatedAt: seededAt},
		{procedure: pms.TreatmentProcedure{ID: "9003", PatientID: "3", Code: "D2740", Description: "Crown - porcelain/ceramic", Status: "planned", Date: seededAt.Add(7 * 24 * time.Hour)}, updatedAt: seededAt},
	}
}

// SearchPatientsByPhone matches patients whose digit-only phone contains the
// digit-only query.
func (s *Store) SearchPatientsByPhone(phoneDigits string) []pms.Patient {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []pms.Patient
	for _, id := range s.patientOrder {
		rec := s.patients[id]
		if strings.Contains(pms.DigitsOnly(rec.patient.Phone), phoneDigits) {
			out = append(out, rec.patient)
		}
	}
	return out
}

// CreatePatient stores a new patient and returns it with a generated id.
func (s *Store) CreatePatient(req pms.NewPatient) pms.Patient {
	patient := pms.Patient{
		ID:          "pat_" + uuid.NewString(),
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Phone:       req.Phone,
		Email:       req.Email,
		DateOfBirth: req.DateOfBirth,
		Address:     req.Address,
	}

	s.mu.Lock()
	s.patients[patient.ID] = patientRecord{patient: patient, updatedAt: s.now().UTC()}
	s.patientOrder = append(s.patientOrder, patient.ID)
	s.mu.Unlock()

	return patient
}

// GetPatient returns the patient and whether it exists.
func (s *Store) GetPatient(id string) (pms.Patient, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.patients[id]
	return rec.patient, ok
}

// SearchPatients applies criteria and returns the requested page plus the
// unpaged total.
func (s *Store) SearchPatients(criteria pms.SearchCriteria, page pms.PageRequest) ([]pms.Patient, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name := strings.ToLower(strings.TrimSpace(criteria.Name))
	email := strings.ToLower(strings.TrimSpace(criteria.Email))
	phone := pms.DigitsOnly(criteria.Phone)

	var matches []pms.Patient
	for _, id := range s.patientOrder {
		p := s.patients[id].patient
		if name != "" && !strings.Contains(strings.ToLower(p.FirstName+" "+p.LastName), name) {
			continue
		}
		if email != "" && !strings.Contains(strings.ToLower(p.Email), email) {
			continue
		}
		if phone != "" && !strings.Contains(pms.DigitsOnly(p.Phone), phone) {
			continue
		}
		matches = append(matches, p)
	}

	total := len(matches)
	start := (page.Page - 1) * page.PageSize
	if start >= total {
		return nil, total
	}
	end := start + page.PageSize
	if end > total {
		end = total
	}
	return matches[start:end], total
}

// Providers returns the seeded provider roster.
func (s *Store) Providers() []pms.Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]pms.Provider, len(s.providers))
	copy(out, s.providers)
	return out
}

// Locations returns the seeded locations.
func (s *Store) Locations() []pms.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]pms.Location, len(s.locations))
	copy(out, s.locations)
	return out
}

// Operatories returns the operatories for one location.
func (s *Store) Operatories(locationID string) []pms.Operatory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []pms.Operatory
	for _, op := range s.operatories {
		if op.LocationID == locationID {
			out = append(out, op)
		}
	}
	return out
}

// AvailableSlots generates hourly slots between 09:00 and 17:00 UTC for each
// day in the range, marking slots that collide with an active appointment as
// taken.
func (s *Store) AvailableSlots(providerID string, from, to time.Time) []pms.Slot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	locationID := "1"
	for _, p := range s.providers {
		if p.ID == providerID && len(p.LocationIDs) > 0 {
			locationID = p.LocationIDs[0]
		}
	}

	var slots []pms.Slot
	day := from.UTC().Truncate(24 * time.Hour)
	for !day.After(to) {
		for hour := 9; hour < 17; hour++ {
			start := day.Add(time.Duration(hour) * time.Hour)
			if start.Before(from) || !start.Before(to) {
				continue
			}
			end := start.Add(time.Hour)
			slots = append(slots, pms.Slot{
				ID:         fmt.Sprintf("slot-%s-%s", providerID, start.Format("20060102T1504")),
				StartTime:  start,
				EndTime:    end,
				ProviderID: providerID,
				LocationID: locationID,
				Available:  !s.bookedLocked(providerID, start, end),
			})
		}
		day = day.Add(24 * time.Hour)
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].StartTime.Before(slots[j].StartTime) })
	return slots
}

func (s *Store) bookedLocked(providerID string, start, end time.Time) bool {
	for _, id := range s.apptOrder {
		appt := s.appointments[id].appointment
		if appt.ProviderID != providerID {
			continue
		}
		if appt.Status == pms.StatusCancelled || appt.Status == pms.StatusNoShow {
			continue
		}
		if appt.StartTime.Before(end) && start.Before(appt.EndTime) {
			return true
		}
	}
	return false
}

// BookAppointment stores a new scheduled appointment with a generated id.
func (s *Store) BookAppointment(req pms.BookingRequest) pms.Appointment {
	appt := pms.Appointment{
		ID:         "apt_" + uuid.NewString(),
		PatientID:  req.PatientID,
		ProviderID: req.ProviderID,
		LocationID: req.LocationID,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Status:     pms.StatusScheduled,
		Notes:      req.Notes,
	}

	s.mu.Lock()
	s.appointments[appt.ID] = appointmentRecord{appointment: appt, updatedAt: s.now().UTC()}
	s.apptOrder = append(s.apptOrder, appt.ID)
	s.mu.Unlock()

	return appt
}

// GetAppointment returns the appointment and whether it exists.
func (s *Store) GetAppointment(id string) (pms.Appointment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.appointments[id]
	return rec.appointment, ok
}

// SetAppointmentStatus updates the status, returning false when the
// appointment does not exist.
func (s *Store) SetAppointmentStatus(id string, status pms.AppointmentStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.appointments[id]
	if !ok {
		return false
	}
	rec.appointment.Status = status
	rec.updatedAt = s.now().UTC()
	s.appointments[id] = rec
	return true
}

// SyncPatients returns one page of patients modified after since. The
// continuation token is opaque to callers; an empty next token means the
// feed is exhausted.
func (s *Store) SyncPatients(since time.Time, token string) ([]pms.Patient, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []pms.Patient
	for _, id := range s.patientOrder {
		rec := s.patients[id]
		if since.IsZero() || rec.updatedAt.After(since) {
			all = append(all, rec.patient)
		}
	}
	return pageOf(all, token, s.syncPageSize)
}

// SyncAppointments returns one page of appointments modified after since.
func (s *Store) SyncAppointments(since time.Time, token string) ([]pms.Appointment, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []pms.Appointment
	for _, id := range s.apptOrder {
		rec := s.appointments[id]
		if since.IsZero() || rec.updatedAt.After(since) {
			all = append(all, rec.appointment)
		}
	}
	return pageOf(all, token, s.syncPageSize)
}

// SyncTreatmentProcedures returns one page of procedures modified after
// since.
func (s *Store) SyncTreatmentProcedures(since time.Time, token string) ([]pms.TreatmentProcedure, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []pms.TreatmentProcedure
	for _, rec := range s.procedures {
		if since.IsZero() || rec.updatedAt.After(since) {
			all = append(all, rec.procedure)
		}
	}
	return pageOf(all, token, s.syncPageSize)
}

func pageOf[T any](all []T, token string, pageSize int) ([]T, string, error) {
	offset := 0
	if token != "" {
		parsed, err := strconv.Atoi(token)
		if err != nil || parsed < 0 {
			return nil, "", fmt.Errorf("demo: invalid continue token %q", token)
		}
		offset = parsed
	}
	if offset >= len(all) {
		return nil, "", nil
	}
	end := offset + pageSize
	next := ""
	if end < len(all) {
		next = strconv.Itoa(end)
	} else {
		end = len(all)
	}
	return all[offset:end], next, nil
}
