package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"dim_dashboard_backend/platform/logger"
	"dim_dashboard_backend/platform/validator"
)

const (
	testToken        = "pit-test-token"
	fmtRequests      = "expected %d requests, got %d"
	fmtRecords       = "expected %d records, got %d"
	fmtUnexpectedErr = "unexpected error: %v"
)

func newTestClient(baseURL string, opts Options) *Client {
	opts.BaseURL = baseURL
	if opts.RetryBackoff == 0 {
		opts.RetryBackoff = time.Millisecond
	}
	return New(opts, validator.New(), logger.New("test"))
}

func opportunityPage(start, count int) opportunitiesResponse {
	resp := opportunitiesResponse{Opportunities: make([]apiOpportunity, 0, count)}
	for i := 0; i < count; i++ {
		resp.Opportunities = append(resp.Opportunities, apiOpportunity{
			ID:              fmt.Sprintf("opp-%d", start+i),
			ContactID:       "c-1",
			PipelineStageID: "stage-a",
			CreatedAt:       "2024-05-01T10:00:00.000Z",
		})
	}
	return resp
}

func TestFetchOpportunitiesStopsOnShortPage(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		if r.URL.Path != "/opportunities/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer "+testToken {
			t.Errorf("unexpected authorization header %q", got)
		}
		if got := r.Header.Get("Version"); got != APIVersion {
			t.Errorf("unexpected version header %q", got)
		}
		if got := r.URL.Query().Get("location_id"); got != "loc-1" {
			t.Errorf("unexpected location_id %q", got)
		}

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		remaining := 250 - (page-1)*PageSize
		count := min(PageSize, max(0, remaining))
		_ = json.NewEncoder(w).Encode(opportunityPage((page-1)*PageSize, count))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, Options{})
	result, err := c.FetchOpportunities(context.Background(), Credentials{APIToken: testToken, LocationID: "loc-1", PipelineID: "pipe-1"})
	if err != nil {
		t.Fatalf(fmtUnexpectedErr, err)
	}
	if got := atomic.LoadInt32(&requests); got != 3 {
		t.Fatalf(fmtRequests, 3, got)
	}
	if result.Requests != 3 {
		t.Fatalf(fmtRequests, 3, result.Requests)
	}
	if len(result.Records) != 250 {
		t.Fatalf(fmtRecords, 250, len(result.Records))
	}
	if result.Records[249].ID != "opp-249" {
		t.Fatalf("expected last record opp-249, got %s", result.Records[249].ID)
	}
}

func TestFetchOpportunitiesExactMultipleRequestsEmptyPage(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		count := 0
		if page <= 2 {
			count = PageSize
		}
		_ = json.NewEncoder(w).Encode(opportunityPage((page-1)*PageSize, count))
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL, Options{}).FetchOpportunities(context.Background(), Credentials{APIToken: testToken})
	if err != nil {
		t.Fatalf(fmtUnexpectedErr, err)
	}
	if got := atomic.LoadInt32(&requests); got != 3 {
		t.Fatalf(fmtRequests, 3, got)
	}
	if len(result.Records) != 200 {
		t.Fatalf(fmtRecords, 200, len(result.Records))
	}
}

func TestFetchOpportunitiesMaxPagesGuard(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		_ = json.NewEncoder(w).Encode(opportunityPage(0, PageSize))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, Options{MaxPages: 4}).FetchOpportunities(context.Background(), Credentials{APIToken: testToken})
	if !errors.Is(err, ErrPaginationExhausted) {
		t.Fatalf("expected ErrPaginationExhausted, got %v", err)
	}
	if got := atomic.LoadInt32(&requests); got != 4 {
		t.Fatalf(fmtRequests, 4, got)
	}
}

func TestFetchOpportunitiesSkipsInvalidRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(opportunitiesResponse{Opportunities: []apiOpportunity{
			{ID: "ok", CreatedAt: "2024-05-01T10:00:00Z"},
			{ID: "", CreatedAt: "2024-05-01T10:00:00Z"},
			{ID: "bad-date", CreatedAt: "yesterday"},
			{ID: "missing-date"},
		}})
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL, Options{}).FetchOpportunities(context.Background(), Credentials{APIToken: testToken})
	if err != nil {
		t.Fatalf(fmtUnexpectedErr, err)
	}
	if len(result.Records) != 1 || result.Skipped != 3 {
		t.Fatalf("expected 1 record and 3 skipped, got %d and %d", len(result.Records), result.Skipped)
	}
}

func TestFetchMessagesFollowsCursorChain(t *testing.T) {
	var requests int32
	chain := map[string]string{"": "c1", "c1": "c2", "c2": ""}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		if r.URL.Path != "/conversations/messages/export" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		cursor := r.URL.Query().Get("cursor")
		next, ok := chain[cursor]
		if !ok {
			t.Errorf("unexpected cursor %q", cursor)
		}

		resp := map[string]any{
			"messages": []map[string]string{
				{"id": "m-" + cursor + "-1", "direction": "inbound", "messageType": "TYPE_CALL", "status": "completed", "dateAdded": "2024-05-01T10:00:00Z"},
				{"id": "m-" + cursor + "-2", "direction": "outbound", "messageType": "TYPE_SMS", "status": "delivered", "dateAdded": "2024-05-01T11:00:00Z"},
			},
		}
		if next != "" {
			resp["nextCursor"] = next
		} else {
			resp["nextCursor"] = nil
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL, Options{}).FetchMessages(context.Background(), Credentials{APIToken: testToken, LocationID: "loc-1"})
	if err != nil {
		t.Fatalf(fmtUnexpectedErr, err)
	}
	if got := atomic.LoadInt32(&requests); got != 3 {
		t.Fatalf(fmtRequests, 3, got)
	}
	if len(result.Records) != 6 {
		t.Fatalf(fmtRecords, 6, len(result.Records))
	}
	if result.Records[0].ID != "m--1" || result.Records[5].ID != "m-c2-2" {
		t.Fatalf("records not concatenated in page order: first=%s last=%s", result.Records[0].ID, result.Records[5].ID)
	}
}

func TestFetchMessagesNormalizesDirectionCase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"messages": []map[string]string{
				{"id": "m-1", "direction": "Inbound", "messageType": "TYPE_CALL", "dateAdded": "2024-05-01T10:00:00Z"},
				{"id": "m-2", "direction": " OUTBOUND ", "messageType": "TYPE_SMS", "dateAdded": "2024-05-01T11:00:00Z"},
				{"id": "m-3", "direction": "sideways", "messageType": "TYPE_SMS", "dateAdded": "2024-05-01T12:00:00Z"},
			},
			"nextCursor": nil,
		})
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL, Options{}).FetchMessages(context.Background(), Credentials{APIToken: testToken, LocationID: "loc-1"})
	if err != nil {
		t.Fatalf(fmtUnexpectedErr, err)
	}
	if len(result.Records) != 2 || result.Skipped != 1 {
		t.Fatalf("expected 2 records and 1 skipped, got %d and %d", len(result.Records), result.Skipped)
	}
	if result.Records[0].Direction != "inbound" || result.Records[1].Direction != "outbound" {
		t.Fatalf("directions not normalized: %q %q", result.Records[0].Direction, result.Records[1].Direction)
	}
}

func TestFetchMessagesRepeatedCursorGuard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"messages":[],"nextCursor":"loop"}`))
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL, Options{}).FetchMessages(context.Background(), Credentials{APIToken: testToken})
	if !errors.Is(err, ErrPaginationExhausted) {
		t.Fatalf("expected ErrPaginationExhausted, got %v", err)
	}
	if result.Requests != 2 {
		t.Fatalf(fmtRequests, 2, result.Requests)
	}
}

func TestRetriesTransientFailuresOnly(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"opportunities":[]}`))
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL, Options{Retries: 2}).FetchOpportunities(context.Background(), Credentials{APIToken: testToken}); err != nil {
		t.Fatalf(fmtUnexpectedErr, err)
	}
	if got := atomic.LoadInt32(&requests); got != 2 {
		t.Fatalf(fmtRequests, 2, got)
	}
}

func TestUnauthorizedIsNotRetried(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, Options{Retries: 3}).FetchMessages(context.Background(), Credentials{APIToken: "expired"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 StatusError, got %v", err)
	}
	if got := atomic.LoadInt32(&requests); got != 1 {
		t.Fatalf(fmtRequests, 1, got)
	}
}
