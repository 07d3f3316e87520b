package client

import (
	"strings"
	"time"
)

// Credentials identifies one clinic's account in the CRM.
type Credentials struct {
	APIToken   string
	LocationID string
	PipelineID string
}

// RawOpportunity is an upstream opportunity that passed schema validation.
type RawOpportunity struct {
	ID                string
	ContactID         string
	PipelineID        string
	PipelineStageID   string
	Name              string
	CreatedAt         time.Time
	LastStageChangeAt *time.Time
}

// RawMessage is an upstream message that passed schema validation.
type RawMessage struct {
	ID          string
	ContactID   string
	Direction   string
	MessageType string
	Status      string
	DateAdded   time.Time
	UserID      string
}

// Result holds the records of one drained pagination chain.
type Result[T any] struct {
	Records  []T
	Skipped  int
	Requests int
}

type opportunitiesResponse struct {
	Opportunities []apiOpportunity `json:"opportunities"`
}

type apiOpportunity struct {
	ID                string `json:"id" validate:"required"`
	ContactID         string `json:"contactId"`
	PipelineID        string `json:"pipelineId"`
	PipelineStageID   string `json:"pipelineStageId"`
	Name              string `json:"name"`
	CreatedAt         string `json:"createdAt" validate:"required"`
	LastStageChangeAt string `json:"lastStageChangeAt"`
}

func (a apiOpportunity) toRaw() (RawOpportunity, bool) {
	createdAt, ok := parseInstant(a.CreatedAt)
	if !ok {
		return RawOpportunity{}, false
	}
	raw := RawOpportunity{
		ID:              a.ID,
		ContactID:       a.ContactID,
		PipelineID:      a.PipelineID,
		PipelineStageID: a.PipelineStageID,
		Name:            a.Name,
		CreatedAt:       createdAt,
	}
	if changed, ok := parseInstant(a.LastStageChangeAt); ok {
		raw.LastStageChangeAt = &changed
	}
	return raw, true
}

type messagesResponse struct {
	Messages   []apiMessage `json:"messages"`
	NextCursor *string      `json:"nextCursor"`
}

type apiMessage struct {
	ID          string `json:"id" validate:"required"`
	ContactID   string `json:"contactId"`
	Direction   string `json:"direction" validate:"omitempty,oneof=inbound outbound"`
	MessageType string `json:"messageType"`
	Status      string `json:"status"`
	DateAdded   string `json:"dateAdded" validate:"required"`
	UserID      string `json:"userId"`
}

// normalized folds the direction to lower case; the CRM is not consistent
// about its casing.
func (a apiMessage) normalized() apiMessage {
	a.Direction = strings.ToLower(strings.TrimSpace(a.Direction))
	return a
}

func (a apiMessage) toRaw() (RawMessage, bool) {
	dateAdded, ok := parseInstant(a.DateAdded)
	if !ok {
		return RawMessage{}, false
	}
	return RawMessage{
		ID:          a.ID,
		ContactID:   a.ContactID,
		Direction:   a.Direction,
		MessageType: a.MessageType,
		Status:      a.Status,
		DateAdded:   dateAdded,
		UserID:      a.UserID,
	}, true
}

func parseInstant(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
