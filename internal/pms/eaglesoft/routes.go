package eaglesoft

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

// Routes builds the Eaglesoft-shaped mock route table over a demo store.
// Substring matching means more specific fragments go first.
func Routes(store *demo.Store) []transport.Route {
	return []transport.Route{
		{Method: http.MethodPost, PathContains: "/patients/search", Handle: func(_ context.Context, _ string, body json.RawMessage) (any, error) {
			var req searchRequest
			if err := json.Unmarshal(body, &req); err != nil {
				return nil, fmt.Errorf("eaglesoft: bad search payload: %w", err)
			}
			if req.Page <= 0 {
				req.Page = 1
			}
			if req.PageSize <= 0 {
				req.PageSize = 20
			}
			items, total := store.SearchPatients(pms.SearchCriteria{
				Name:  req.Criteria.Name,
				Phone: req.Criteria.Phone,
				Email: req.Criteria.Email,
			}, pms.PageRequest{Page: req.Page, PageSize: req.PageSize})

			resp := searchResponse{Total: total, Results: make([]wirePatient, 0, len(items))}
			for _, p := range items {
				resp.Results = append(resp.Results, wirePatientFrom(p))
			}
			return resp, nil
		}},

		{Method: http.MethodGet, PathContains: "/patients/", Handle: func(_ context.Context, path string, _ json.RawMessage) (any, error) {
			id := lastSegment(path)
			patient, ok := store.GetPatient(id)
			if !ok {
				return nil, &pms.NotFoundError{Vendor: vendorName, Path: path}
			}
			return wirePatientFrom(patient), nil
		}},

		{Method: http.MethodPost, PathContains: "/patients", Handle: func(_ context.Context, _ string, body json.RawMessage) (any, error) {
			var w wirePatient
			if err := json.Unmarshal(body, &w); err != nil {
				return nil, fmt.Errorf("eaglesoft: bad patient payload: %w", err)
			}
			created := store.CreatePatient(pms.NewPatient{
				FirstName:   w.FirstName,
				LastName:    w.LastName,
				Phone:       w.Phone,
				Email:       w.Email,
				DateOfBirth: w.DateOfBirth,
				Address:     addressFromWire(w.Address),
			})
			return wirePatientFrom(created), nil
		}},

		{Method: http.MethodGet, PathContains: "/schedule/slots", Handle: func(_ context.Context, path string, _ json.RawMessage) (any, error) {
			q, err := queryOf(path)
			if err != nil {
				return nil, err
			}
			from, _ := time.Parse(time.RFC3339, q.Get("from"))
			to, _ := time.Parse(time.RFC3339, q.Get("to"))
			slots := store.AvailableSlots(q.Get("provider_id"), from, to)
			wires := make([]wireSlot, 0, len(slots))
			for _, s := range slots {
				wires = append(wires, wireSlot{
					SlotID:     s.ID,
					StartTime:  s.StartTime,
					EndTime:    s.EndTime,
					ProviderID: s.ProviderID,
					OfficeID:   s.LocationID,
					Available:  s.Available,
				})
			}
			return wires, nil
		}},

		{Method: http.MethodGet, PathContains: "/appointment_statuses", Handle: func(_ context.Context, _ string, _ json.RawMessage) (any, error) {
			infos := pms.CanonicalStatuses()
			wires := make([]wireStatus, 0, len(infos))
			for _, info := range infos {
				wires = append(wires, wireStatus{Code: statusToVendor(info.Code), Label: info.Display, Active: info.IsActive})
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
				return nil, fmt.Errorf("eaglesoft: bad status payload: %w", err)
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
				return nil, fmt.Errorf("eaglesoft: bad appointment payload: %w", err)
			}
			created := store.BookAppointment(pms.BookingRequest{
				PatientID:  w.PatientID,
				ProviderID: w.ProviderID,
				LocationID: w.OfficeID,
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

		{Method: http.MethodGet, PathContains: "/sync/procedures", Handle: func(_ context.Context, path string, _ json.RawMessage) (any, error) {
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
					ProcedureID:   p.ID,
					PatientID:     p.PatientID,
					AdaCode:       p.Code,
					Description:   p.Description,
					Status:        p.Status,
					DateOfService: p.Date,
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
			officeID := segmentBefore(path, "/operatories")
			ops := store.Operatories(officeID)
			wires := make([]wireOperatory, 0, len(ops))
			for _, op := range ops {
				wires = append(wires, wireOperatory{OperatoryID: op.ID, Name: op.Name, OfficeID: op.LocationID})
			}
			return wires, nil
		}},

		{Method: http.MethodGet, PathContains: "/providers", Handle: func(_ context.Context, _ string, _ json.RawMessage) (any, error) {
			providers := store.Providers()
			wires := make([]wireProvider, 0, len(providers))
			for _, p := range providers {
				wires = append(wires, wireProvider{ProviderID: p.ID, Name: p.Name, Specialty: p.Specialty, OfficeIDs: p.LocationIDs})
			}
			return wires, nil
		}},

		{Method: http.MethodGet, PathContains: "/offices", Handle: func(_ context.Context, _ string, _ json.RawMessage) (any, error) {
			locations := store.Locations()
			wires := make([]wireOffice, 0, len(locations))
			for _, l := range locations {
				wires = append(wires, wireOffice{
					OfficeID: l.ID,
					Name:     l.Name,
					Address:  &wireAddress{Street: l.Address.Street, City: l.Address.City, State: l.Address.State, ZipCode: l.Address.ZipCode},
					Phone:    l.Phone,
				})
			}
			return wires, nil
		}},
	}
}

func wirePatientFrom(p pms.Patient) wirePatient {
	return wirePatient{
		PatientID:   p.ID,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Phone:       p.Phone,
		Email:       p.Email,
		DateOfBirth: p.DateOfBirth,
		Address:     addressToWire(p.Address),
	}
}

func wireAppointmentFrom(a pms.Appointment) wireAppointment {
	return wireAppointment{
		AppointmentID: a.ID,
		PatientID:     a.PatientID,
		ProviderID:    a.ProviderID,
		OfficeID:      a.LocationID,
		StartTime:     a.StartTime,
		EndTime:       a.EndTime,
		Status:        statusToVendor(a.Status),
		Notes:         a.Notes,
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
		return nil, fmt.Errorf("eaglesoft: bad mock path %q: %w", path, err)
	}
	return u.Query(), nil
}

func syncParams(path string) (time.Time, string, error) {
	q, err := queryOf(path)
	if err != nil {
		return time.Time{}, "", err
	}
	var since time.Time
	if raw := q.Get("modified_since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, "", fmt.Errorf("eaglesoft: bad modified_since %q: %w", raw, err)
		}
		since = parsed
	}
	return since, q.Get("continue_token"), nil
}
