package domain

import (
	"time"
)

// Column names the trip loader requires.
const (
	ColumnStartStation = "start_station"
	ColumnEndStation   = "end_station"
	ColumnDuration     = "duration"
	ColumnStartDayName = "start_day_name"
)

// Trip is a single bike trip as recorded in the trips file.
type Trip struct {
	StartStation string            `json:"start_station"`
	EndStation   string            `json:"end_station"`
	Duration     string            `json:"duration"` // seconds, unparsed
	StartDayName string            `json:"start_day_name"`
	Fields       map[string]string `json:"-"`

	// Set by enrichment; nil when either station is unknown.
	Dist *float64 `json:"dist"`
	MPH  *float64 `json:"mph"`
}

// Resolved reports whether enrichment computed distance and speed for the trip.
func (t *Trip) Resolved() bool {
	return t.Dist != nil && t.MPH != nil
}

// StationIndex maps a station id to its raw coordinate.
type StationIndex map[string]Coordinate

// Lookup returns the coordinate for id.
func (s StationIndex) Lookup(id string) (Coordinate, bool) {
	c, ok := s[id]
	return c, ok
}

// Station is a single index entry, used when the index is listed or served.
type Station struct {
	ID       string     `json:"id"`
	Location Coordinate `json:"location"`
}

// EnrichStats summarises one enrichment pass.
type EnrichStats struct {
	Total      int `json:"total"`
	Resolved   int `json:"resolved"`
	Unresolved int `json:"unresolved"`
	// Resolved trips whose speed is not finite (zero duration).
	NonFinite int `json:"non_finite"`
}

// Distributions holds the per-trip distances and speeds of resolved trips,
// in trip order.
type Distributions struct {
	Distances []float64 `json:"distances"`
	Speeds    []float64 `json:"speeds"`
}

// WeekdayCount is one line of the weekday report.
type WeekdayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// WeekdayReport counts trips ending at Station by the weekday they started.
type WeekdayReport struct {
	Station string         `json:"station"`
	Counts  []WeekdayCount `json:"counts"`
}

// Total sums the weekday counts.
func (r WeekdayReport) Total() int {
	n := 0
	for _, c := range r.Counts {
		n += c.Count
	}
	return n
}

// Bin is one histogram bucket covering [Low, High).
type Bin struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// Histogram is a fixed-width bucketing of a distribution.
type Histogram struct {
	Metric  string  `json:"metric"`
	Bins    []Bin   `json:"bins"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Count   int     `json:"count"`
	Skipped int     `json:"skipped"` // non-finite values left out
}

// Analysis is the finished result of one pipeline run.
type Analysis struct {
	RunID         string        `json:"run_id"`
	CompletedAt   time.Time     `json:"completed_at"`
	Trips         []Trip        `json:"-"`
	Stations      StationIndex  `json:"-"`
	Stats         EnrichStats   `json:"stats"`
	Distributions Distributions `json:"-"`
	Weekdays      WeekdayReport `json:"weekdays"`
}

// AnalysisCompleted is the event published after a successful run.
type AnalysisCompleted struct {
	RunID         string         `json:"run_id"`
	CompletedAt   time.Time      `json:"completed_at"`
	Stats         EnrichStats    `json:"stats"`
	TargetStation string         `json:"target_station"`
	Weekdays      []WeekdayCount `json:"weekdays"`
}
