package usecases_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/samirrijal/bluebikes/internal/core/domain"
	"github.com/samirrijal/bluebikes/internal/core/usecases"
)

// oneMileNorth is the latitude delta of one mile along a meridian.
const oneMileNorth = 0.014472285807800534

func testIndex() domain.StationIndex {
	return domain.StationIndex{
		"A": {Lat: "0", Lon: "0"},
		"B": {Lat: "0.014472285807800534", Lon: "0"},
		"C": {Lat: "42.339202", Lon: "-71.090511"},
	}
}

func TestEnricher_TwoTrips(t *testing.T) {
	trips := []domain.Trip{
		{StartStation: "A", EndStation: "B", Duration: "3600", StartDayName: "Monday"},
		{StartStation: "A", EndStation: "Z", Duration: "3600", StartDayName: "Monday"},
	}

	stats, err := usecases.NewEnricher(0).Enrich(context.Background(), trips, testIndex())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !trips[0].Resolved() {
		t.Fatal("expected first trip to be resolved")
	}
	if math.Abs(*trips[0].Dist-1) > 1e-6 {
		t.Errorf("expected dist ~1, got %f", *trips[0].Dist)
	}
	if math.Abs(*trips[0].MPH-1) > 1e-6 {
		t.Errorf("expected mph ~1, got %f", *trips[0].MPH)
	}
	if trips[1].Dist != nil || trips[1].MPH != nil {
		t.Error("expected unresolved trip to have no dist and mph")
	}
	if stats.Total != 2 || stats.Resolved != 1 || stats.Unresolved != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	d := usecases.ExtractDistributions(trips)
	if len(d.Distances) != 1 || len(d.Speeds) != 1 {
		t.Errorf("expected one distance and one speed, got %d and %d", len(d.Distances), len(d.Speeds))
	}
}

func TestEnricher_UnknownStationSkipsDuration(t *testing.T) {
	trips := []domain.Trip{
		{StartStation: "nowhere", EndStation: "A", Duration: "not-a-number"},
		{StartStation: "A", EndStation: "nowhere", Duration: ""},
	}

	stats, err := usecases.NewEnricher(0).Enrich(context.Background(), trips, testIndex())
	if err != nil {
		t.Fatalf("unresolved trips must not parse duration, got %v", err)
	}
	if stats.Unresolved != 2 {
		t.Errorf("expected 2 unresolved, got %d", stats.Unresolved)
	}
	for i, trip := range trips {
		if trip.Dist != nil || trip.MPH != nil {
			t.Errorf("trip %d: expected both fields absent", i)
		}
	}
}

func TestEnricher_BadDuration(t *testing.T) {
	trips := []domain.Trip{
		{StartStation: "A", EndStation: "B", Duration: "3600"},
		{StartStation: "A", EndStation: "B", Duration: "ten minutes"},
	}

	_, err := usecases.NewEnricher(0).Enrich(context.Background(), trips, testIndex())
	if !errors.Is(err, domain.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	var pe *domain.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *domain.ParseError, got %T", err)
	}
	if pe.Field != domain.ColumnDuration || pe.Value != "ten minutes" {
		t.Errorf("unexpected parse error: %+v", pe)
	}
}

func TestEnricher_BadCoordinate(t *testing.T) {
	index := testIndex()
	index["X"] = domain.Coordinate{Lat: "north", Lon: "0"}
	trips := []domain.Trip{{StartStation: "X", EndStation: "A", Duration: "60"}}

	_, err := usecases.NewEnricher(0).Enrich(context.Background(), trips, index)
	if !errors.Is(err, domain.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestEnricher_ZeroDuration(t *testing.T) {
	trips := []domain.Trip{{StartStation: "A", EndStation: "B", Duration: "0"}}

	stats, err := usecases.NewEnricher(0).Enrich(context.Background(), trips, testIndex())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !trips[0].Resolved() {
		t.Fatal("expected zero-duration trip to keep both fields")
	}
	if !math.IsInf(*trips[0].MPH, 1) {
		t.Errorf("expected +Inf speed, got %f", *trips[0].MPH)
	}
	if stats.NonFinite != 1 {
		t.Errorf("expected 1 non-finite speed, got %d", stats.NonFinite)
	}
}

func TestEnricher_SameStation(t *testing.T) {
	trips := []domain.Trip{{StartStation: "C", EndStation: "C", Duration: "300"}}

	if _, err := usecases.NewEnricher(0).Enrich(context.Background(), trips, testIndex()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *trips[0].Dist != 0 || *trips[0].MPH != 0 {
		t.Errorf("expected round trip to be 0 miles at 0 mph, got %f / %f", *trips[0].Dist, *trips[0].MPH)
	}
}

func TestEnricher_SameStationZeroDuration(t *testing.T) {
	trips := []domain.Trip{{StartStation: "C", EndStation: "C", Duration: "0"}}

	stats, err := usecases.NewEnricher(0).Enrich(context.Background(), trips, testIndex())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *trips[0].Dist != 0 {
		t.Errorf("expected 0 miles, got %f", *trips[0].Dist)
	}
	if !math.IsInf(*trips[0].MPH, 1) {
		t.Errorf("expected +Inf speed for 0 miles in 0 seconds, got %f", *trips[0].MPH)
	}
	if stats.NonFinite != 1 {
		t.Errorf("expected 1 non-finite speed, got %d", stats.NonFinite)
	}
}

func TestEnricher_Radius(t *testing.T) {
	trips := []domain.Trip{{StartStation: "A", EndStation: "B", Duration: "3600"}}

	if _, err := usecases.NewEnricher(6371).Enrich(context.Background(), trips, testIndex()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 6371.0 / 3959.0
	if math.Abs(*trips[0].Dist-want) > 1e-6 {
		t.Errorf("expected %f, got %f", want, *trips[0].Dist)
	}
}

func TestEnricher_IndexUntouched(t *testing.T) {
	index := testIndex()
	trips := []domain.Trip{
		{StartStation: "A", EndStation: "B", Duration: "60"},
		{StartStation: "A", EndStation: "Q", Duration: "60"},
	}

	if _, err := usecases.NewEnricher(0).Enrich(context.Background(), trips, index); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(index) != 3 {
		t.Errorf("expected index to keep 3 stations, got %d", len(index))
	}
	if index["B"].Lat != "0.014472285807800534" {
		t.Errorf("index entry changed: %+v", index["B"])
	}
}

func TestEnricher_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	trips := []domain.Trip{{StartStation: "A", EndStation: "B", Duration: "60"}}
	if _, err := usecases.NewEnricher(0).Enrich(ctx, trips, testIndex()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEnricher_LatitudeDelta(t *testing.T) {
	// Sanity check of the constant used by the fixtures above.
	if math.Abs(oneMileNorth*math.Pi/180*3959-1) > 1e-9 {
		t.Fatal("oneMileNorth is not one mile")
	}
}
