package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dim_dashboard_backend/internal/crmsync/repository"
	"dim_dashboard_backend/internal/crmsync/service"
	"dim_dashboard_backend/internal/crmsync/transport"
	"dim_dashboard_backend/platform/apperr"
	"dim_dashboard_backend/platform/logger"
)

type noClinics struct{}

func (noClinics) ListSyncable(context.Context, bool) ([]service.Clinic, error) { return nil, nil }

func (noClinics) GetForSync(context.Context, uuid.UUID) (service.Clinic, error) {
	return service.Clinic{}, apperr.NotFound("clinic not found")
}

type idleSyncer struct{}

func (idleSyncer) SyncClinic(_ context.Context, clinic service.Clinic) (service.SyncOutcome, error) {
	return service.SyncOutcome{ClinicID: clinic.ID}, nil
}

type fixedCounts struct{}

func (fixedCounts) CountRecords(context.Context, uuid.UUID) (repository.RecordCounts, error) {
	return repository.RecordCounts{Opportunities: 4, Messages: 9}, nil
}

type recordingEnqueuer struct {
	sweeps  int
	clinics []uuid.UUID
}

func (r *recordingEnqueuer) EnqueueSweep(context.Context) error {
	r.sweeps++
	return nil
}

func (r *recordingEnqueuer) EnqueueClinicSync(_ context.Context, clinicID uuid.UUID) error {
	r.clinics = append(r.clinics, clinicID)
	return nil
}

func newRouter(enqueuer Enqueuer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.New("test")
	sweeper := service.NewSweeper(noClinics{}, idleSyncer{}, nil, service.SweepConfig{}, log)
	h := New(context.Background(), sweeper, fixedCounts{}, enqueuer, log)

	r := gin.New()
	r.POST("/sync/run", h.RunSweep)
	r.POST("/clinics/:id/sync", h.SyncClinic)
	r.GET("/clinics/:id/records", h.ClinicRecords)
	return r
}

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestRunSweepQueuesWhenWorkerAvailable(t *testing.T) {
	enqueuer := &recordingEnqueuer{}
	rec := serve(newRouter(enqueuer), http.MethodPost, "/sync/run")

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	var resp transport.RunSweepResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Status != "queued" || enqueuer.sweeps != 1 {
		t.Fatalf("expected queued sweep, got %q after %d enqueues", resp.Status, enqueuer.sweeps)
	}
}

func TestRunSweepInProcessWithoutWorker(t *testing.T) {
	rec := serve(newRouter(nil), http.MethodPost, "/sync/run")

	var resp transport.RunSweepResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if rec.Code != http.StatusAccepted || resp.Status != "started" {
		t.Fatalf("expected 202 started, got %d %q", rec.Code, resp.Status)
	}
}

// blockingSyncer holds each clinic until its context ends.
type blockingSyncer struct {
	started chan struct{}
}

func (s blockingSyncer) SyncClinic(ctx context.Context, clinic service.Clinic) (service.SyncOutcome, error) {
	close(s.started)
	<-ctx.Done()
	return service.SyncOutcome{ClinicID: clinic.ID}, ctx.Err()
}

type oneClinic struct{ id uuid.UUID }

func (o oneClinic) ListSyncable(context.Context, bool) ([]service.Clinic, error) {
	return []service.Clinic{{ID: o.id, Name: "north"}}, nil
}

func (o oneClinic) GetForSync(context.Context, uuid.UUID) (service.Clinic, error) {
	return service.Clinic{ID: o.id, Name: "north"}, nil
}

func TestInProcessSweepStopsWithLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logger.New("test")
	syncer := blockingSyncer{started: make(chan struct{})}
	sweeper := service.NewSweeper(oneClinic{id: uuid.New()}, syncer, nil, service.SweepConfig{}, log)

	lifecycle, shutdown := context.WithCancel(context.Background())
	defer shutdown()
	r := gin.New()
	r.POST("/sync/run", New(lifecycle, sweeper, fixedCounts{}, nil, log).RunSweep)

	if rec := serve(r, http.MethodPost, "/sync/run"); rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	select {
	case <-syncer.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("sweep never started")
	}

	shutdown()
	deadline := time.Now().Add(2 * time.Second)
	for sweeper.Status().Running {
		if time.Now().After(deadline) {
			t.Fatalf("sweep still running after shutdown")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if last := sweeper.Status().Last; last == nil || last.Failed != 1 {
		t.Fatalf("expected the cancelled clinic to be recorded as failed, got %+v", last)
	}
}

func TestSyncClinicAsyncAndUnknown(t *testing.T) {
	enqueuer := &recordingEnqueuer{}
	r := newRouter(enqueuer)
	clinicID := uuid.New()

	if rec := serve(r, http.MethodPost, "/clinics/"+clinicID.String()+"/sync?async=true"); rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 for async sync, got %d", rec.Code)
	}
	if len(enqueuer.clinics) != 1 || enqueuer.clinics[0] != clinicID {
		t.Fatalf("expected clinic %s queued, got %v", clinicID, enqueuer.clinics)
	}

	if rec := serve(r, http.MethodPost, "/clinics/"+uuid.NewString()+"/sync"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown clinic, got %d", rec.Code)
	}
	if rec := serve(r, http.MethodPost, "/clinics/not-a-uuid/sync"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", rec.Code)
	}
}

func TestClinicRecords(t *testing.T) {
	rec := serve(newRouter(nil), http.MethodGet, "/clinics/"+uuid.NewString()+"/records")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp transport.RecordCountsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Opportunities != 4 || resp.Messages != 9 {
		t.Fatalf("unexpected counts %+v", resp)
	}
}
