package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brettulin/okdentalai/internal/office"
	"github.com/brettulin/okdentalai/internal/pms"
	"github.com/brettulin/okdentalai/internal/pms/factory"
	"github.com/brettulin/okdentalai/internal/pms/transport"
)

// testServer wires the office registry and PMS handler the way the router
// does, with simulator latency and failures disabled.
func testServer(t *testing.T) (*httptest.Server, *office.Office) {
	t.Helper()

	repo := office.NewInMemoryRepository()
	o, err := repo.Create(context.Background(), &office.CreateOfficeRequest{
		Name:    "Main Street Dental",
		PMSType: "demo",
	})
	if err != nil {
		t.Fatalf("create office: %v", err)
	}

	opts := factory.Options{
		Simulator: transport.NewSimulator(transport.SimulatorOptions{NoLatency: true, FailureRate: -1, Seed: 1}),
	}
	pmsHandler := NewPMSHandler(repo, opts, nil)
	officesHandler := NewOfficesHandler(repo, nil)

	r := chi.NewRouter()
	r.Route("/api/offices", func(offices chi.Router) {
		offices.Post("/", officesHandler.Create)
		offices.Get("/", officesHandler.List)
		offices.Route("/{officeID}", func(one chi.Router) {
			one.Get("/", officesHandler.Get)
			one.Put("/pms-type", officesHandler.SetPMSType)
			one.Mount("/pms", pmsHandler.Routes())
		})
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, o
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, buf.Bytes()
}

func TestPMSHandler_UnknownOffice(t *testing.T) {
	server, _ := testServer(t)

	resp, _ := doJSON(t, http.MethodGet, server.URL+"/api/offices/nope/pms/providers", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestPMSHandler_PMSTypeMismatch(t *testing.T) {
	server, o := testServer(t)

	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/offices/"+o.ID+"/pms/providers", nil,
		map[string]string{"X-PMS-Type": "dentrix"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	if !strings.Contains(string(body), "configured for demo") {
		t.Fatalf("body = %s", body)
	}

	// A matching header passes.
	resp, _ = doJSON(t, http.MethodGet, server.URL+"/api/offices/"+o.ID+"/pms/providers", nil,
		map[string]string{"X-PMS-Type": "DEMO"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 with matching header", resp.StatusCode)
	}
}

func TestPMSHandler_ListProviders(t *testing.T) {
	server, o := testServer(t)

	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/offices/"+o.ID+"/pms/providers", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}

	var out struct {
		Providers []pms.Provider `json:"providers"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out.Providers) != 3 {
		t.Fatalf("providers = %d, want 3", len(out.Providers))
	}
}

func TestPMSHandler_SearchPatientsByPhone(t *testing.T) {
	server, o := testServer(t)
	base := server.URL + "/api/offices/" + o.ID + "/pms"

	resp, _ := doJSON(t, http.MethodGet, base+"/patients/by-phone", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing phone: status = %d, want 400", resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodGet, base+"/patients/by-phone?phone=%28555%29+867-5309", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	var out struct {
		Patients []pms.Patient `json:"patients"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out.Patients) != 1 || out.Patients[0].FirstName != "Maria" {
		t.Fatalf("patients = %+v", out.Patients)
	}
}

func TestPMSHandler_BookAndCancelAppointment(t *testing.T) {
	server, o := testServer(t)
	base := server.URL + "/api/offices/" + o.ID + "/pms"

	start := time.Now().UTC().Add(120 * time.Hour).Truncate(time.Hour)
	resp, body := doJSON(t, http.MethodPost, base+"/appointments", pms.BookingRequest{
		PatientID:  "1",
		ProviderID: "1",
		LocationID: "1",
		StartTime:  start,
		EndTime:    start.Add(time.Hour),
	}, map[string]string{"X-Actor": "front-desk"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("book: status = %d, body = %s", resp.StatusCode, body)
	}

	var appt pms.Appointment
	if err := json.Unmarshal(body, &appt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if appt.Status != pms.StatusScheduled {
		t.Fatalf("Status = %s, want scheduled", appt.Status)
	}

	resp, body = doJSON(t, http.MethodPost, base+"/appointments/"+appt.ID+"/cancel",
		map[string]string{"reason": "patient request"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel: status = %d, body = %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodGet, base+"/appointments/"+appt.ID, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: status = %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &appt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if appt.Status != pms.StatusCancelled {
		t.Fatalf("Status = %s, want cancelled", appt.Status)
	}

	// Cancelling an unknown appointment is a 404, not an error.
	resp, _ = doJSON(t, http.MethodPost, base+"/appointments/ghost/cancel", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("cancel unknown: status = %d, want 404", resp.StatusCode)
	}
}

func TestPMSHandler_CredentialRotationRebuildsAdapter(t *testing.T) {
	server, o := testServer(t)
	base := server.URL + "/api/offices/" + o.ID + "/pms"

	start := time.Now().UTC().Add(120 * time.Hour).Truncate(time.Hour)
	resp, body := doJSON(t, http.MethodPost, base+"/appointments", pms.BookingRequest{
		PatientID:  "1",
		ProviderID: "1",
		LocationID: "1",
		StartTime:  start,
		EndTime:    start.Add(time.Hour),
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("book: status = %d, body = %s", resp.StatusCode, body)
	}
	var appt pms.Appointment
	if err := json.Unmarshal(body, &appt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	// Rotate the office's credentials without changing the vendor.
	resp, body = doJSON(t, http.MethodPut, server.URL+"/api/offices/"+o.ID+"/pms-type",
		map[string]any{"pms_type": "demo", "secrets": pms.Secrets{VendorKey: "rotated"}}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rotate: status = %d, body = %s", resp.StatusCode, body)
	}

	// The handler must build a fresh adapter for the updated office instead
	// of serving the one cached before the rotation. In demo mode a fresh
	// adapter means a fresh store, so the earlier booking is gone.
	resp, _ = doJSON(t, http.MethodGet, base+"/appointments/"+appt.ID, nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after rotation: status = %d, want 404 from a rebuilt adapter", resp.StatusCode)
	}
}

func TestPMSHandler_BookValidationError(t *testing.T) {
	server, o := testServer(t)

	start := time.Now().UTC().Add(120 * time.Hour)
	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/offices/"+o.ID+"/pms/appointments", pms.BookingRequest{
		PatientID: "1",
		StartTime: start,
		EndTime:   start.Add(-time.Hour),
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
}

func TestPMSHandler_SyncPatients(t *testing.T) {
	server, o := testServer(t)
	base := server.URL + "/api/offices/" + o.ID + "/pms"

	var synced int
	token := ""
	for {
		url := base + "/sync/patients"
		if token != "" {
			url += "?continue_token=" + token
		}
		resp, body := doJSON(t, http.MethodGet, url, nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
		}
		var page pms.SyncPage[pms.Patient]
		if err := json.Unmarshal(body, &page); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		synced += len(page.Items)
		if !page.HasMore {
			break
		}
		token = page.ContinueToken
	}
	if synced != 5 {
		t.Fatalf("synced %d patients, want 5", synced)
	}

	resp, _ := doJSON(t, http.MethodGet, base+"/sync/patients?modified_since=yesterday", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad timestamp: status = %d, want 400", resp.StatusCode)
	}
}

func TestPMSHandler_ValidateCredentials(t *testing.T) {
	server, o := testServer(t)

	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/offices/"+o.ID+"/pms/credentials/validate", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	var check pms.CredentialCheck
	if err := json.Unmarshal(body, &check); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !check.IsValid {
		t.Fatalf("IsValid = false, want true in demo mode")
	}
	if !strings.Contains(check.Details, "mock mode") {
		t.Fatalf("Details = %q", check.Details)
	}
}

func TestOfficesHandler_Lifecycle(t *testing.T) {
	server, _ := testServer(t)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/offices", office.CreateOfficeRequest{
		Name:    "Northside Dental",
		PMSType: "eaglesoft",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status = %d, body = %s", resp.StatusCode, body)
	}
	var created office.Office
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	resp, body = doJSON(t, http.MethodGet, server.URL+"/api/offices", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), created.ID) {
		t.Fatalf("list does not contain new office: %s", body)
	}

	resp, body = doJSON(t, http.MethodPut, fmt.Sprintf("%s/api/offices/%s/pms-type", server.URL, created.ID),
		map[string]any{"pms_type": "dentrix"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set pms type: status = %d, body = %s", resp.StatusCode, body)
	}
	var updated office.Office
	if err := json.Unmarshal(body, &updated); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if updated.PMSType != "dentrix" {
		t.Fatalf("PMSType = %s, want dentrix", updated.PMSType)
	}

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/offices", map[string]string{"name": ""}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid create: status = %d, want 400", resp.StatusCode)
	}
}
