package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dim_dashboard_backend/internal/analytics/kpi"
	"dim_dashboard_backend/internal/analytics/repository"
	"dim_dashboard_backend/internal/analytics/service"
	"dim_dashboard_backend/internal/analytics/timerange"
	"dim_dashboard_backend/platform/httpkit"
	"dim_dashboard_backend/platform/logger"
	"dim_dashboard_backend/platform/validator"
)

type emptyRepo struct{}

func (emptyRepo) ClinicZones(context.Context, []uuid.UUID) ([]timerange.ClinicZone, error) {
	return []timerange.ClinicZone{}, nil
}

func (emptyRepo) ClinicStages(context.Context, []uuid.UUID) ([]repository.ClinicStages, error) {
	return []repository.ClinicStages{}, nil
}

func (emptyRepo) SelectedClinicIDs(context.Context) ([]uuid.UUID, error) {
	return []uuid.UUID{}, nil
}

func (emptyRepo) ListOpportunities(context.Context, []timerange.Range) ([]repository.Opportunity, error) {
	return []repository.Opportunity{}, nil
}

func (emptyRepo) ListMessages(context.Context, []timerange.Range) ([]repository.Message, error) {
	return []repository.Message{}, nil
}

type noAssignments struct{}

func (noAssignments) AssignedClinicIDs(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return []uuid.UUID{}, nil
}

func newRouter(authenticated bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.New(emptyRepo{}, noAssignments{}, "UTC", logger.New("test"))
	h := New(svc, validator.New())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if authenticated {
			c.Set(httpkit.ContextUserIDKey, uuid.New())
			c.Set(httpkit.ContextRolesKey, []string{httpkit.RoleAdmin})
		}
		c.Next()
	})
	r.GET("/reports/kpi", h.Report)
	r.GET("/opportunities", h.ListOpportunities)
	return r
}

func get(r *gin.Engine, path string, query url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path+"?"+query.Encode(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestReportReturnsShapedReport(t *testing.T) {
	rec := get(newRouter(true), "/reports/kpi", url.Values{"from": {"2024-06-01"}, "to": {"2024-06-30"}, "clinicIds": {"[]"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var report kpi.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Summary.InboundCallRate != "0.00" || len(report.MonthlyChart) != 12 || len(report.Last30Days) != 30 {
		t.Fatalf("unexpected report %+v", report.Summary)
	}
}

func TestReportRejectsBadQuery(t *testing.T) {
	r := newRouter(true)

	cases := map[string]url.Values{
		"missing to":      {"from": {"2024-06-01"}},
		"bad date":        {"from": {"2024-13-01"}, "to": {"2024-06-30"}},
		"bad clinic ids":  {"from": {"2024-06-01"}, "to": {"2024-06-30"}, "clinicIds": {"not-json"}},
		"reversed range":  {"from": {"2024-06-30"}, "to": {"2024-06-01"}},
		"non-uuid member": {"from": {"2024-06-01"}, "to": {"2024-06-30"}, "clinicIds": {`["x"]`}},
	}
	for name, query := range cases {
		if rec := get(r, "/reports/kpi", query); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, rec.Code)
		}
	}
}

func TestListingRequiresIdentity(t *testing.T) {
	rec := get(newRouter(false), "/opportunities", url.Values{"from": {"2024-06-01"}, "to": {"2024-06-30"}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestListingEmptySet(t *testing.T) {
	rec := get(newRouter(true), "/opportunities", url.Values{"from": {"2024-06-01"}, "to": {"2024-06-30"}, "clinicIds": {"[]"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Items []json.RawMessage `json:"items"`
		Total int               `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Items == nil || body.Total != 0 {
		t.Fatalf("expected an empty items array, got %s", rec.Body.String())
	}
}
