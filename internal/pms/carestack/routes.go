package carestack

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brettulin/okdentalai/internal/pms"
	"github.com/brettulin/okdentalai/internal/pms/demo"
	"github.com/brettulin/okdentalai/internal/pms/transport"
)

// Routes builds the mock-mode route table: CareStack-shaped endpoints served
// from an injected demo store. Handlers return vendor wire shapes so the
// normalizer runs identically in live and mock mode. Order matters — more
// specific path fragments come first because matching is by substring.
func Routes(store *demo.Store) []transport.Route {
	return []transport.Route{
		{Method: http.MethodPost, PathContains: "/patients/search", Handle: func(_ context.Context, _ string, body json.RawMessage) (any, error) {
			var req searchRequest
			if err := json.Unmarshal(body, &req); err != nil {
				return nil, fmt.Errorf("carestack: bad search payload: %w", err)
			}
			if req.PageNumber <= 0 {
				req.PageNumber = 1
			}
			if req.PageSize <= 0 {
				req.PageSize = 20
			}
			items, total := store.SearchPatients(pms.SearchCriteria{
				Name:  req.SearchCriteria.Name,
				Phone: req.SearchCriteria.PhoneNumber,
				Email: req.SearchCriteria.Email,
			}, pms.PageRequest{Page: req.PageNumber, PageSize: req.PageSize})

			resp := searchResponse{TotalCount: total, Patients: make([]wirePatient, 0, len(items))}
			for _, p := range items {
				resp.Patients = append(resp.Patients, wirePatientFrom(p))
			}
			return resp, nil
		}},

		{Method: http.MethodPost, PathContains: "/patients", Handle: func(_ context.Context, _ string, body json.RawMessage) (any, error) {
			var w wirePatient
			if err := json.Unmarshal(body, &w); err != nil {
				return nil, fmt.Errorf("carestack: bad patient payload: %w", err)
			}
			created := store.CreatePatient(pms.NewPatient{
				FirstName:   w.FirstName,
				LastName:    w.LastName,
				Phone:       w.MobileNumber,
				Email:       w.Email,
				DateOfBirth: w.DateOfBirth,
				Address:     addressFromWire(w.Address),
			})
			return wirePatientFrom(created), nil
		}},

		{Method: http.MethodGet, PathContains: "/patients/", Handle: func(_ context.Context, path string, _ json.RawMessage) (any, error) {
			id := lastSegment(path)
			patient, ok := store.GetPatient(id)
			if !ok {
				return nil, &pms.NotFoundError{Vendor: vendorName, Path: path}
			}
			return wirePatientFrom(patient), nil
		}},

		{Method: http.MethodGet, PathContains: "/appointments/statuses", Handle: func(_ context.Context, _ string, _ json.RawMessage) (any, error) {
			statuses := pms.CanonicalStatuses()
			wires := make([]wireStatus, 0, len(statuses))
			for i, info := range statuses {
				wires = append(wires, wireStatus{
					ID:       wireID(fmt.Sprint(i + 1)),
					Name:     info.Display,
					IsActive: info.IsActive,
				})
			}
			return wires, nil
		}},

		{Method: http.MethodGet, PathContains: "/appointments/slots", Handle: func(_ context.Context, path string, _ json.RawMessage) (any, error) {
			q, err := queryOf(path)
			if err != nil {
				return nil, err
			}
			from, _ := time.Parse(syncTimeFormat, q.Get("startDate"))
			to, _ := time.Parse(syncTimeFormat, q.Get("endDate"))
			slots := store.AvailableSlots(q.Get("providerId"), from, to)
			wires := make([]wireSlot, 0, len(slots))
			for _, s := range slots {
				wires = append(wires, wireSlot{
					SlotID:      s.ID,
					StartTime:   s.StartTime,
					EndTime:     s.EndTime,
					ProviderID:  wireID(s.ProviderID),
					LocationID:  wireID(s.LocationID),
					IsAvailable: s.Available,
				})
			}
			return wires, nil
		}},

		{Method: http.MethodPut, PathContains: "/cancel", Handle: func(_ context.Context, path string, _ json.RawMessage) (any, error) {
			id := segmentBefore(path, "/cancel")
			if !store.SetAppointmentStatus(id, pms.StatusCancelled) {
				return nil, &pms.NotFoundError{Vendor: vendorName, Path: path}
			}
			return nil, nil
		}},

		{Method: http.MethodPut, PathContains: "/checkout", Handle: func(_ context.Context, path string, _ json.RawMessage) (any, error) {
			id := segmentBefore(path, "/checkout")
			if !store.SetAppointmentStatus(id, pms.StatusCompleted) {
				return nil, &pms.NotFoundError{Vendor: vendorName, Path: path}
			}
			return nil, nil
		}},

		{Method: http.MethodPut, PathContains: "/status", Handle: func(_ context.Context, path string, body json.RawMessage) (any, error) {
			var req statusRequest
			if err := json.Unmarshal(body, &req); err != nil {
				return nil, fmt.Errorf("carestack: bad status payload: %w", err)
			}
			id := segmentBefore(path, "/status")
			if !store.SetAppointmentStatus(id, statusFromVendor(req.Status)) {
				return nil, &pms.NotFoundError{Vendor: vendorName, Path: path}
			}
			return nil, nil
		}},

		{Method: http.MethodPost, PathContains: "/appointments", Handle: func(_ context.Context, _ string, body json.RawMessage) (any, error) {
			var w wireAppointment
			if err := json.Unmarshal(body, &w); err != nil {
				return nil, fmt.Errorf("carestack: bad appointment payload: %w", err)
			}
			created := store.BookAppointment(pms.BookingRequest{
				PatientID:  string(w.PatientID),
				ProviderID: string(w.ProviderID),
				LocationID: string(w.LocationID),
				StartTime:  w.StartTime,
				EndTime:    w.EndTime,
				Notes:      w.Notes,
			})
			return wireAppointmentFrom(created), nil
		}},

		{Method: http.MethodGet, PathContains: "/sync/patients", Handle: func(_ context.Context, path string, _ json.RawMessage) (any, error) {
			since, token, err := syncParams(path)
			if err != nil {
				return nil, err
			}
			items, next, err := store.SyncPatients(since, token)
			if err != nil {
				return nil, err
			}
			resp := syncResponse[wirePatient]{ContinueToken: next, Items: make([]wirePatient, 0, len(items))}
			for _, p := range items {
				resp.Items = append(resp.Items, wirePatientFrom(p))
			}
			return resp, nil
		}},

		{Method: http.MethodGet, PathContains: "/sync/appointments", Handle: func(_ context.Context, path string, _ json.RawMessage) (any, error) {
			since, token, err := syncParams(path)
			if err != nil {
				return nil, err
			}
			items, next, err := store.SyncAppointments(since, token)
			if err != nil {
				return nil, err
			}
			resp := syncResponse[wireAppointment]{ContinueToken: next, Items: make([]wireAppointment, 0, len(items))}
			for _, a := range items {
				resp.Items = append(resp.Items, wireAppointmentFrom(a))
			}
			return resp, nil
		}},

		{Method: http.MethodGet, PathContains: "/sync/treatment-procedures", Handle: func(_ context.Context, path string, _ json.RawMessage) (any, error) {
			since, token, err := syncParams(path)
			if err != nil {
				return nil, err
			}
			items, next, err := store.SyncTreatmentProcedures(since, token)
			if err != nil {
				return nil, err
			}
			resp := syncResponse[wireProcedure]{ContinueToken: next, Items: make([]wireProcedure, 0, len(items))}
			for _, p := range items {
				resp.Items = append(resp.Items, wireProcedure{
					ID:            wireID(p.ID),
					PatientID:     wireID(p.PatientID),
					ProcedureCode: p.Code,
					Description:   p.Description,
					Status:        p.Status,
					Date:          p.Date,
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
				wires = append(wires, wireOperatory{ID: wireID(op.ID), Name: op.Name, LocationID: wireID(op.LocationID)})
			}
			return wires, nil
		}},

		{Method: http.MethodGet, PathContains: "/providers", Handle: func(_ context.Context, _ string, _ json.RawMessage) (any, error) {
			providers := store.Providers()
			wires := make([]wireProvider, 0, len(providers))
			for _, p := range providers {
				locationIDs := make([]wireID, 0, len(p.LocationIDs))
				for _, id := range p.LocationIDs {
					locationIDs = append(locationIDs, wireID(id))
				}
				wires = append(wires, wireProvider{ID: wireID(p.ID), Name: p.Name, Specialty: p.Specialty, LocationIDs: locationIDs})
			}
			return wires, nil
		}},

		{Method: http.MethodGet, PathContains: "/locations", Handle: func(_ context.Context, _ string, _ json.RawMessage) (any, error) {
			locations := store.Locations()
			wires := make([]wireLocation, 0, len(locations))
			for _, l := range locations {
				wires = append(wires, wireLocation{
					ID:   wireID(l.ID),
					Name: l.Name,
					Address: wireAddress{
						Street:  l.Address.Street,
						City:    l.Address.City,
						State:   l.Address.State,
						ZipCode: l.Address.ZipCode,
					},
					PhoneNumber: l.Phone,
				})
			}
			return wires, nil
		}},
	}
}

func wirePatientFrom(p pms.Patient) wirePatient {
	return wirePatient{
		ID:           wireID(p.ID),
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		MobileNumber: p.Phone,
		Email:        p.Email,
		DateOfBirth:  p.DateOfBirth,
		Address:      addressToWire(p.Address),
	}
}

func wireAppointmentFrom(a pms.Appointment) wireAppointment {
	return wireAppointment{
		ID:         wireID(a.ID),
		PatientID:  wireID(a.PatientID),
		ProviderID: wireID(a.ProviderID),
		LocationID: wireID(a.LocationID),
		StartTime:  a.StartTime,
		EndTime:    a.EndTime,
		Status:     statusToVendor(a.Status),
		Notes:      a.Notes,
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
	trimmed := strings.TrimSuffix(pathOnly(path), suffix)
	return lastSegment(trimmed)
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
		return nil, fmt.Errorf("carestack: bad mock path %q: %w", path, err)
	}
	return u.Query(), nil
}

func syncParams(path string) (time.Time, string, error) {
	q, err := queryOf(path)
	if err != nil {
		return time.Time{}, "", err
	}
	var since time.Time
	if raw := q.Get("modifiedSince"); raw != "" {
		parsed, err := time.Parse(syncTimeFormat, raw)
		if err != nil {
			return time.Time{}, "", fmt.Errorf("carestack: bad modifiedSince %q: %w", raw, err)
		}
		since = parsed
	}
	return since, q.Get("continueToken"), nil
}
