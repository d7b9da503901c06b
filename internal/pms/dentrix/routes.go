package dentrix

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/brettulin/okdentalai/internal/pms"
	"github.com/brettulin/okdentalai/internal/pms/demo"
	"github.com/brettulin/okdentalai/internal/pms/transport"
)

// Routes builds the Dentrix-shaped mock route table over a demo store.
// Substring matching means more specific fragments go first.
func Routes(store *demo.Store) []transport.Route {
	return []transport.Route{
		{Method: http.MethodGet, PathContains: "/patients/", Handle: func(_ context.Context, path string, _ json.RawMessage) (any, error) {
			id := lastSegment(path)
			patient, ok := store.GetPatient(id)
			if !ok {
				return nil, &pms.NotFoundError{Vendor: vendorName, Path: path}
			}
			return wirePatientFrom(patient), nil
		}},

		{Method: http.MethodGet, PathContains: "/patients", Handle: func(_ context.Context, path string, _ json.RawMessage) (any, error) {
			q, err := queryOf(path)
			if err != nil {
				return nil, err
			}
			page, _ := strconv.Atoi(q.Get("page"))
			pageSize, _ := strconv.Atoi(q.Get("pageSize"))
			if page <= 0 {
				page = 1
			}
			if pageSize <= 0 {
				pageSize = 20
			}
			items, total := store.SearchPatients(pms.SearchCriteria{
				Name:  q.Get("name"),
				Phone: q.Get("phoneNumber"),
				Email: q.Get("emailAddress"),
			}, pms.PageRequest{Page: page, PageSize: pageSize})

			resp := patientList{TotalCount: total, Patients: make([]wirePatient, 0, len(items))}
			for _, p := range items {
				resp.Patients = append(resp.Patients, wirePatientFrom(p))
			}
			return resp, nil
		}},

		{Method: http.MethodPost, PathContains: "/patients", Handle: func(_ context.Context, _ string, body json.RawMessage) (any, error) {
			var w wirePatient
			if err := json.Unmarshal(body, &w); err != nil {
				return nil, fmt.Errorf("dentrix: bad patient payload: %w", err)
			}
			created := store.CreatePatient(pms.NewPatient{
				FirstName:   w.GivenName,
				LastName:    w.FamilyName,
				Phone:       w.PhoneNumber,
				Email:       w.EmailAddress,
				DateOfBirth: w.BirthDate,
				Address:     addressFromWire(w.Address),
			})
			return wirePatientFrom(created), nil
		}},

		{Method: http.MethodGet, PathContains: "/schedule/openings", Handle: func(_ context.Context, path string, _ json.RawMessage) (any, error) {
			q, err := queryOf(path)
			if err != nil {
				return nil, err
			}
			from, _ := time.Parse(time.RFC3339, q.Get("start"))
			to, _ := time.Parse(time.RFC3339, q.Get("end"))
			slots := store.AvailableSlots(q.Get("providerId"), from, to)
			wires := make([]wireOpening, 0, len(slots))
			for _, s := range slots {
				wires = append(wires, wireOpening{
					OpeningID:  s.ID,
					Start:      s.StartTime,
					End:        s.EndTime,
					ProviderID: s.ProviderID,
					LocationID: s.LocationID,
					Open:       s.Available,
				})
			}
			return wires, nil
		}},

		{Method: http.MethodGet, PathContains: "/appointments/statuses", Handle: func(_ context.Context, _ string, _ json.RawMessage) (any, error) {
			catalog := statusCatalog{}
			for _, info := range pms.CanonicalStatuses() {
				catalog.Statuses = append(catalog.Statuses, statusToVendor(info.Code))
			}
			return catalog, nil
		}},

		{Method: http.MethodPut, PathContains: "/status", Handle: func(_ context.Context, path string, body json.RawMessage) (any, error) {
			var update statusUpdate
			if err := json.Unmarshal(body, &update); err != nil {
				return nil, fmt.Errorf("dentrix: bad status payload: %w", err)
			}
			id := segmentBefore(path, "/status")
			if !store.SetAppointmentStatus(id, statusFromVendor(update.Status)) {
				return nil, &pms.NotFoundError{Vendor: vendorName, Path: path}
			}
			return nil, nil
		}},

		{Method: http.MethodPost, PathContains: "/appointments", Handle: func(_ context.Context, _ string, body json.RawMessage) (any, error) {
			var w wireAppointment
			if err := json.Unmarshal(body, &w); err != nil {
				return nil, fmt.Errorf("dentrix: bad appointment payload: %w", err)
			}
			created := store.BookAppointment(pms.BookingRequest{
				PatientID:  w.PatientID,
				ProviderID: w.ProviderID,
				LocationID: w.LocationID,
				StartTime:  w.Start,
				EndTime:    w.End,
				Notes:      w.Note,
			})
			return wireAppointmentFrom(created), nil
		}},

		{Method: http.MethodGet, PathContains: "/changes/patients", Handle: func(_ context.Context, path string, _ json.RawMessage) (any, error) {
			since, cursor, err := changeParams(path)
			if err != nil {
				return nil, err
			}
			items, next, err := store.SyncPatients(since, cursor)
			if err != nil {
				return nil, err
			}
			resp := changesPage[wirePatient]{NextCursor: next, Items: make([]wirePatient, 0, len(items))}
			for _, p := range items {
				resp.Items = append(resp.Items, wirePatientFrom(p))
			}
			return resp, nil
		}},

		{Method: http.MethodGet, PathContains: "/changes/appointments", Handle: func(_ context.Context, path string, _ json.RawMessage) (any, error) {
			since, cursor, err := changeParams(path)
			if err != nil {
				return nil, err
			}
			items, next, err := store.SyncAppointments(since, cursor)
			if err != nil {
				return nil, err
			}
			resp := changesPage[wireAppointment]{NextCursor: next, Items: make([]wireAppointment, 0, len(items))}
			for _, a := range items {
				resp.Items = append(resp.Items, wireAppointmentFrom(a))
			}
			return resp, nil
		}},

		{Method: http.MethodGet, PathContains: "/changes/procedures", Handle: func(_ context.Context, path string, _ json.RawMessage) (any, error) {
			since, cursor, err := changeParams(path)
			if err != nil {
				return nil, err
			}
			items, next, err := store.SyncTreatmentProcedures(since, cursor)
			if err != nil {
				return nil, err
			}
			resp := changesPage[wireProcedure]{NextCursor: next, Items: make([]wireProcedure, 0, len(items))}
			for _, p := range items {
				resp.Items = append(resp.Items, wireProcedure{
					ProcedureID: p.ID,
					PatientID:   p.PatientID,
					AdaCode:     p.Code,
					Description: p.Description,
					Status:      strings.ToUpper(p.Status),
					ServiceDate: p.Date,
				})
			}
			return resp, nil
		}},

		{Method: http.MethodGet, PathContains: "/appointments/", Handle: func(_ context.Context, path string, _ json.RawMessage) (any, error) {
			id := lastSegment(path)
			appt, ok := store.GetAppointment(id)
			if !ok {
				return nil, &pms.NotFoundError{Vendor: vendorName, Path: path}
			}
			return wireAppointmentFrom(appt), nil
		}},

		{Method: http.MethodGet, PathContains: "/operatories", Handle: func(_ context.Context, path string, _ json.RawMessage) (any, error) {
			locationID := segmentBefore(path, "/operatories")
			ops := store.Operatories(locationID)
			wires := make([]wireOperatory, 0, len(ops))
			for _, op := range ops {
				wires = append(wires, wireOperatory{OperatoryID: op.ID, Name: op.Name, LocationID: op.LocationID})
			}
			return wires, nil
		}},

		{Method: http.MethodGet, PathContains: "/providers", Handle: func(_ context.Context, _ string, _ json.RawMessage) (any, error) {
			providers := store.Providers()
			wires := make([]wireProvider, 0, len(providers))
			for _, p := range providers {
				wires = append(wires, wireProvider{ProviderID: p.ID, DisplayName: p.Name, Specialty: p.Specialty, LocationIDs: p.LocationIDs})
			}
			return wires, nil
		}},

		{Method: http.MethodGet, PathContains: "/locations", Handle: func(_ context.Context, _ string, _ json.RawMessage) (any, error) {
			locations := store.Locations()
			wires := make([]wireLocation, 0, len(locations))
			for _, l := range locations {
				wires = append(wires, wireLocation{
					LocationID: l.ID,
					Name:       l.Name,
					Address:    &wireAddress{Street: l.Address.Street, City: l.Address.City, State: l.Address.State, ZipCode: l.Address.ZipCode},
					Phone:      l.Phone,
				})
			}
			return wires, nil
		}},
	}
}

func wirePatientFrom(p pms.Patient) wirePatient {
	return wirePatient{
		PatientID:    p.ID,
		GivenName:    p.FirstName,
		FamilyName:   p.LastName,
		PhoneNumber:  p.Phone,
		EmailAddress: p.Email,
		BirthDate:    p.DateOfBirth,
		Address:      addressToWire(p.Address),
	}
}

func wireAppointmentFrom(a pms.Appointment) wireAppointment {
	return wireAppointment{
		AppointmentID: a.ID,
		PatientID:     a.PatientID,
		ProviderID:    a.ProviderID,
		LocationID:    a.LocationID,
		Start:         a.StartTime,
		End:           a.EndTime,
		Status:        statusToVendor(a.Status),
		Note:          a.Notes,
	}
}

func lastSegment(path string) string {
	trimmed := strings.TrimSuffix(pathOnly(path), "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return trimmed
	}
	return trimmed[idx+1:]
}

func segmentBefore(path, suffix string) string {
	return lastSegment(strings.TrimSuffix(pathOnly(path), suffix))
}

func pathOnly(path string) string {
	if idx := strings.Index(path, "?"); idx >= 0 {
		return path[:idx]
	}
	return path
}

func queryOf(path string) (url.Values, error) {
	u, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("dentrix: bad mock path %q: %w", path, err)
	}
	return u.Query(), nil
}

func changeParams(path string) (time.Time, string, error) {
	q, err := queryOf(path)
	if err != nil {
		return time.Time{}, "", err
	}
	var since time.Time
	if raw := q.Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, "", fmt.Errorf("dentrix: bad since %q: %w", raw, err)
		}
		since = parsed
	}
	return since, q.Get("cursor"), nil
}
