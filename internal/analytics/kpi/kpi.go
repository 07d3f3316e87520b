// Package kpi aggregates synced opportunities and messages into the funnel
// summary, the 12-month chart and the 30-day breakdown.
package kpi

import (
	"fmt"
	"strings"
	"time"

	"dim_dashboard_backend/internal/analytics/timerange"
)

const (
	// CallMarker identifies call-type messages inside messageType.
	CallMarker = "CALL"

	directionInbound = "inbound"
	statusCompleted  = "completed"

	monthsInChart = 12
	daysInChart   = 30
)

// Opportunity is the aggregation view of an opportunity record.
type Opportunity struct {
	PipelineStageID string
	CreatedAt       time.Time
}

// Message is the aggregation view of a message record.
type Message struct {
	Direction   string
	MessageType string
	Status      string
	DateAdded   time.Time
}

// StageConfig is one clinic's funnel stage mapping. Nil lists count as empty.
type StageConfig struct {
	Conversion []string
	Booking    []string
	Showing    []string
	Close      []string
}

// Input is everything Generate needs. Records are already filtered to the range.
type Input struct {
	To            timerange.Date
	Clinics       []StageConfig
	Opportunities []Opportunity
	Messages      []Message
	// Location drives the month and day bucketing. Nil means UTC.
	Location *time.Location
}

// Summary is the headline block of a report.
type Summary struct {
	NewLeads        int    `json:"newLeads"`
	InboundCallRate string `json:"inboundCallRate"`
	Conversation    int    `json:"conversation"`
	Booking         int    `json:"booking"`
	Showing         int    `json:"showing"`
	Close           int    `json:"close"`
}

// MonthBucket is one month of the 12-month chart.
type MonthBucket struct {
	Year         int    `json:"year"`
	Month        int    `json:"month"`
	Label        string `json:"label"`
	TotalLead    int    `json:"totalLead"`
	Conversation int    `json:"conversation"`
	Booking      int    `json:"booking"`
	Showing      int    `json:"showing"`
	Close        int    `json:"close"`
}

// DayBucket is one day of the 30-day breakdown.
type DayBucket struct {
	Date            string `json:"date"`
	TotalLead       int    `json:"totalLead"`
	InboundCallRate string `json:"inboundCallRate"`
	Conversation    int    `json:"conversation"`
	Booking         int    `json:"booking"`
	Showing         int    `json:"showing"`
	Close           int    `json:"close"`
}

// Report is the full KPI report.
type Report struct {
	Summary      Summary       `json:"summary"`
	MonthlyChart []MonthBucket `json:"monthlyChart"`
	Last30Days   []DayBucket   `json:"last30Days"`
}

// StageSets holds the union of every clinic's stage ids per funnel bucket.
type StageSets struct {
	Conversion map[string]struct{}
	Booking    map[string]struct{}
	Showing    map[string]struct{}
	Close      map[string]struct{}
}

// UnionStages merges stage lists across clinics.
func UnionStages(clinics []StageConfig) StageSets {
	sets := StageSets{
		Conversion: map[string]struct{}{},
		Booking:    map[string]struct{}{},
		Showing:    map[string]struct{}{},
		Close:      map[string]struct{}{},
	}
	for _, c := range clinics {
		addAll(sets.Conversion, c.Conversion)
		addAll(sets.Booking, c.Booking)
		addAll(sets.Showing, c.Showing)
		addAll(sets.Close, c.Close)
	}
	return sets
}

func addAll(set map[string]struct{}, ids []string) {
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
}

// funnel counts stage membership. A stage listed in several buckets counts in each.
type funnel struct {
	conversation, booking, showing, close int
}

func (f *funnel) add(sets StageSets, stageID string) {
	if _, ok := sets.Conversion[stageID]; ok {
		f.conversation++
	}
	if _, ok := sets.Booking[stageID]; ok {
		f.booking++
	}
	if _, ok := sets.Showing[stageID]; ok {
		f.showing++
	}
	if _, ok := sets.Close[stageID]; ok {
		f.close++
	}
}

// IsInboundCall reports whether m is an inbound call.
func IsInboundCall(m Message) bool {
	return strings.Contains(strings.ToUpper(m.MessageType), CallMarker) &&
		strings.EqualFold(m.Direction, directionInbound)
}

// InboundCallRate is answered inbound calls over inbound calls, as a percentage
// with two decimals. No inbound calls yields "0.00".
func InboundCallRate(messages []Message) string {
	inbound, answered := 0, 0
	for _, m := range messages {
		if !IsInboundCall(m) {
			continue
		}
		inbound++
		if strings.EqualFold(m.Status, statusCompleted) {
			answered++
		}
	}
	return formatRate(answered, inbound)
}

func formatRate(numerator, denominator int) string {
	if denominator == 0 {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", float64(numerator)/float64(denominator)*100)
}

// Generate builds the report.
func Generate(in Input) Report {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	sets := UnionStages(in.Clinics)

	return Report{
		Summary:      summarize(sets, in.Opportunities, in.Messages),
		MonthlyChart: monthlyChart(sets, in.To, in.Opportunities, loc),
		Last30Days:   last30Days(sets, in.To, in.Opportunities, in.Messages, loc),
	}
}

func summarize(sets StageSets, opportunities []Opportunity, messages []Message) Summary {
	var f funnel
	for _, o := range opportunities {
		f.add(sets, o.PipelineStageID)
	}
	return Summary{
		NewLeads:        len(opportunities),
		InboundCallRate: InboundCallRate(messages),
		Conversation:    f.conversation,
		Booking:         f.booking,
		Showing:         f.showing,
		Close:           f.close,
	}
}

type monthKey struct {
	year  int
	month time.Month
}

// monthlyChart returns the 12 months ending at to's month, oldest first.
func monthlyChart(sets StageSets, to timerange.Date, opportunities []Opportunity, loc *time.Location) []MonthBucket {
	buckets := make([]MonthBucket, monthsInChart)
	funnels := make([]funnel, monthsInChart)
	index := make(map[monthKey]int, monthsInChart)

	for i := 0; i < monthsInChart; i++ {
		first := time.Date(to.Year, to.Month-time.Month(monthsInChart-1-i), 1, 0, 0, 0, 0, time.UTC)
		buckets[i] = MonthBucket{
			Year:  first.Year(),
			Month: int(first.Month()),
			Label: first.Format("2006-01"),
		}
		index[monthKey{first.Year(), first.Month()}] = i
	}

	for _, o := range opportunities {
		local := o.CreatedAt.In(loc)
		i, ok := index[monthKey{local.Year(), local.Month()}]
		if !ok {
			continue
		}
		buckets[i].TotalLead++
		funnels[i].add(sets, o.PipelineStageID)
	}

	for i := range buckets {
		buckets[i].Conversation = funnels[i].conversation
		buckets[i].Booking = funnels[i].booking
		buckets[i].Showing = funnels[i].showing
		buckets[i].Close = funnels[i].close
	}
	return buckets
}

// last30Days returns the 30 calendar days ending at to, oldest first, each
// recomputed from the records whose instant falls inside that day in loc.
func last30Days(sets StageSets, to timerange.Date, opportunities []Opportunity, messages []Message, loc *time.Location) []DayBucket {
	days := make([]DayBucket, 0, daysInChart)

	for i := daysInChart - 1; i >= 0; i-- {
		day := to.AddDays(-i)
		start, end := day.StartIn(loc), day.EndIn(loc)

		var f funnel
		leads := 0
		for _, o := range opportunities {
			if within(o.CreatedAt, start, end) {
				leads++
				f.add(sets, o.PipelineStageID)
			}
		}

		dayMessages := make([]Message, 0)
		for _, m := range messages {
			if within(m.DateAdded, start, end) {
				dayMessages = append(dayMessages, m)
			}
		}

		days = append(days, DayBucket{
			Date:            day.String(),
			TotalLead:       leads,
			InboundCallRate: InboundCallRate(dayMessages),
			Conversation:    f.conversation,
			Booking:         f.booking,
			Showing:         f.showing,
			Close:           f.close,
		})
	}
	return days
}

func within(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
