package telemetry

// Span names for the analysis pipeline.
const (
	SpanAnalysisRun   = "analysis.run"
	SpanLoadTrips     = "analysis.load_trips"
	SpanLoadStations  = "analysis.load_stations"
	SpanEnrich        = "analysis.enrich"
	SpanAggregate     = "analysis.aggregate"
	SpanRender        = "analysis.render"
	SpanReport        = "analysis.report"
	SpanExport        = "analysis.export"
	SpanPublishResult = "analysis.publish"
)

// Span attribute keys.
const (
	AttrRunID          = "bluebikes.run_id"
	AttrTripsTotal     = "bluebikes.trips.total"
	AttrTripsResolved  = "bluebikes.trips.resolved"
	AttrStationsLoaded = "bluebikes.stations.loaded"
	AttrTargetStation  = "bluebikes.target_station"
)
