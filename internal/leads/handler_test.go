package leads

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/praxisdigital/dental-intake/pkg/logging"
)

func newTestRouter(repo Repository) http.Handler {
	h := NewHandler(repo, logging.New("error"))
	r := chi.NewRouter()
	r.Get("/api/leads", h.ListLeads)
	r.Post("/api/leads", h.CreateLead)
	r.Get("/api/leads/{id}", h.GetLead)
	r.Patch("/api/leads/{id}/status", h.UpdateStatus)
	return r
}

func TestCreateAndGetLead(t *testing.T) {
	router := newTestRouter(NewInMemoryRepository())

	body := `{"name":"Anna Schmidt","phone":"0176 1234567","concern":"Zahnschmerzen","preferred_slot":{"text":"morgen 10 Uhr"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/leads", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var created Lead
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Status != StatusNew {
		t.Errorf("status = %q, want new", created.Status)
	}
	if created.Urgency != "normal" {
		t.Errorf("urgency = %q, want normal", created.Urgency)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/leads/"+created.ID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", rec.Code)
	}
}

func TestCreateLeadRejectsIncomplete(t *testing.T) {
	router := newTestRouter(NewInMemoryRepository())

	req := httptest.NewRequest(http.MethodPost, "/api/leads", strings.NewReader(`{"name":"Anna"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestListLeadsFiltersByStatus(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	first, _ := repo.Create(ctx, &CreateLeadRequest{Name: "Anna Schmidt", Phone: "0176 1", Concern: "Schmerzen"})
	repo.Create(ctx, &CreateLeadRequest{Name: "Max Meier", Phone: "030 2", Concern: "Kontrolle"})
	repo.UpdateStatus(ctx, first.ID, StatusScheduled)

	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/leads?status=scheduled", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp ListLeadsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 1 || resp.Leads[0].ID != first.ID {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestListLeadsRejectsUnknownStatus(t *testing.T) {
	router := newTestRouter(NewInMemoryRepository())

	req := httptest.NewRequest(http.MethodGet, "/api/leads?status=wontfix", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUpdateStatus(t *testing.T) {
	repo := NewInMemoryRepository()
	lead, _ := repo.Create(context.Background(), &CreateLeadRequest{Name: "Anna Schmidt", Phone: "0176 1", Concern: "Schmerzen"})

	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodPatch, "/api/leads/"+lead.ID+"/status", strings.NewReader(`{"status":"in_review"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var updated Lead
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if updated.Status != StatusInReview {
		t.Errorf("status = %q, want in_review", updated.Status)
	}

	req = httptest.NewRequest(http.MethodPatch, "/api/leads/"+lead.ID+"/status", strings.NewReader(`{"status":"nope"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
