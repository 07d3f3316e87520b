package transport

// RunSweepResponse acknowledges a sweep request.
type RunSweepResponse struct {
	Status string `json:"status"`
}

// SyncClinicRequest controls a manual clinic sync.
type SyncClinicRequest struct {
	Async bool `form:"async"`
}

// ClinicSyncQueuedResponse is returned when a clinic sync was handed to the worker.
type ClinicSyncQueuedResponse struct {
	Status   string `json:"status"`
	ClinicID string `json:"clinicId"`
}

// RecordCountsResponse reports stored record totals for a clinic.
type RecordCountsResponse struct {
	ClinicID      string `json:"clinicId"`
	Opportunities int    `json:"opportunities"`
	Messages      int    `json:"messages"`
}
