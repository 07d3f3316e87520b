package transport

import (
	"time"

	"github.com/google/uuid"
)

// RangeQuery is the query string shared by the report and listing endpoints.
// ClinicIDs is a JSON-encoded array of clinic ids; omitted means every clinic
// in the caller's scope.
type RangeQuery struct {
	From      string `form:"from" validate:"required,ymd"`
	To        string `form:"to" validate:"required,ymd"`
	ClinicIDs string `form:"clinicIds"`
}

type OpportunityResponse struct {
	ID                uuid.UUID  `json:"id"`
	RemoteID          string     `json:"remoteId"`
	ClinicID          uuid.UUID  `json:"clinicId"`
	ContactID         string     `json:"contactId"`
	PipelineID        string     `json:"pipelineId"`
	PipelineStageID   string     `json:"pipelineStageId"`
	Name              string     `json:"name"`
	CreatedAt         time.Time  `json:"createdAt"`
	LastStageChangeAt *time.Time `json:"lastStageChangeAt,omitempty"`
	Timezone          string     `json:"timezone"`
}

type OpportunityListResponse struct {
	Items []OpportunityResponse `json:"items"`
	Total int                   `json:"total"`
}

type MessageResponse struct {
	ID          uuid.UUID `json:"id"`
	RemoteID    string    `json:"remoteId"`
	ClinicID    uuid.UUID `json:"clinicId"`
	ContactID   string    `json:"contactId"`
	Direction   string    `json:"direction"`
	MessageType string    `json:"messageType"`
	Status      string    `json:"status"`
	DateAdded   time.Time `json:"dateAdded"`
	DateLocal   string    `json:"dateLocal"`
	UserID      string    `json:"userId"`
	Timezone    string    `json:"timezone"`
}

type MessageListResponse struct {
	Items []MessageResponse `json:"items"`
	Total int               `json:"total"`
}
