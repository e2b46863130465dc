package journey

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/futurxteam/MedTour-backend/internal/platform/auth"
)

func newTestContext(t *testing.T, method, body string, userID uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	ctx := context.WithValue(req.Context(), auth.UserIDKey, userID.String())
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		t.Fatal("expected an HTTP error")
	}
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T: %v", err, err)
	}
	return he.Code
}

func TestHandler_StartService(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	enqID := f.enquiries.add(f.pa, "contacted")

	c, rec := newTestContext(t, http.MethodPost, "", f.pa)
	c.SetParamNames("enquiryId")
	c.SetParamValues(enqID.String())

	if err := h.StartService(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var res StartServiceResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.Journey == nil || res.Journey.Status != StatusActive {
		t.Error("expected an active journey in the response")
	}
	if res.LoginCredentials == nil {
		t.Error("expected login credentials for the provisioned account")
	}
}

func TestHandler_StartService_WrongStatus(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	enqID := f.enquiries.add(f.pa, "new")

	c, _ := newTestContext(t, http.MethodPost, "", f.pa)
	c.SetParamNames("enquiryId")
	c.SetParamValues(enqID.String())

	if code := httpStatus(t, h.StartService(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_StartService_Foreign(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	enqID := f.enquiries.add(uuid.New(), "contacted")

	c, _ := newTestContext(t, http.MethodPost, "", f.pa)
	c.SetParamNames("enquiryId")
	c.SetParamValues(enqID.String())

	if code := httpStatus(t, h.StartService(c)); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestHandler_StartService_Duplicate(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	j := f.startJourney(t)

	c, _ := newTestContext(t, http.MethodPost, "", f.pa)
	c.SetParamNames("enquiryId")
	c.SetParamValues(j.EnquiryID.String())

	if code := httpStatus(t, h.StartService(c)); code != http.StatusConflict {
		t.Errorf("expected 409, got %d", code)
	}
}

func TestHandler_StartService_BadID(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)

	c, _ := newTestContext(t, http.MethodPost, "", f.pa)
	c.SetParamNames("enquiryId")
	c.SetParamValues("not-a-uuid")

	if code := httpStatus(t, h.StartService(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_AddStage_Validation(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	j := f.startJourney(t)

	c, _ := newTestContext(t, http.MethodPost, `{"description":"no title"}`, f.pa)
	c.SetParamNames("journeyId")
	c.SetParamValues(j.ID.String())

	if code := httpStatus(t, h.AddStage(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing title, got %d", code)
	}
}

func TestHandler_AddStage(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	j := f.startJourney(t)

	c, rec := newTestContext(t, http.MethodPost, `{"title":"Surgery","startDate":"2024-01-01"}`, f.pa)
	c.SetParamNames("journeyId")
	c.SetParamValues(j.ID.String())

	if err := h.AddStage(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var out Journey
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out.Stages) != 1 || out.Stages[0].Title != "Surgery" {
		t.Error("expected the new stage in the returned journey")
	}
}

func TestHandler_UpdateStage_NotFound(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	j := f.startJourney(t)

	c, _ := newTestContext(t, http.MethodPut, `{"notes":"x"}`, f.pa)
	c.SetParamNames("journeyId", "stageId")
	c.SetParamValues(j.ID.String(), "ghost")

	if code := httpStatus(t, h.UpdateStage(c)); code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown stage, got %d", code)
	}
}

func TestHandler_Reorder_BadPermutation(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	j := f.startJourney(t)
	j, err := f.svc.AddStage(context.Background(), j.ID, f.pa, StageInput{Title: strp("A")})
	if err != nil {
		t.Fatalf("AddStage: %v", err)
	}

	c, _ := newTestContext(t, http.MethodPatch, `{"stageOrder":["ghost"]}`, f.pa)
	c.SetParamNames("journeyId")
	c.SetParamValues(j.ID.String())

	if code := httpStatus(t, h.ReorderStages(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_GetMyJourney(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	f.startJourney(t)

	c, rec := newTestContext(t, http.MethodGet, "", f.prov.userID)
	if err := h.GetMyJourney(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var pj PatientJourney
	if err := json.Unmarshal(rec.Body.Bytes(), &pj); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if pj.PatientName == "" {
		t.Error("expected patientName in the patient view")
	}
}

func TestHandler_ListJourneys(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	f.startJourney(t)

	c, rec := newTestContext(t, http.MethodGet, "", f.pa)
	if err := h.ListJourneys(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var out struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Total != 1 {
		t.Errorf("expected total 1, got %d", out.Total)
	}
}
