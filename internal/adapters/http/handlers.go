package http

import (
	"math"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/bluebikes/internal/core/domain"
	"github.com/samirrijal/bluebikes/internal/core/usecases"
)

// Query limits.
const (
	defaultTripsLimit = 100
	maxStationLength  = 200
)

// SummaryHandler returns the statistics of the current analysis run.
func SummaryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		summary, err := deps.Reports.Summary()
		if err != nil {
			return errFromService(c, err)
		}
		return c.JSON(summary)
	}
}

// WeekdaysHandler counts trips ending at a station by start weekday.
// Without ?station= the configured target station is used.
func WeekdaysHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		station := c.Query("station")
		if len(station) > maxStationLength {
			return errBadRequest(c, "station too long (max 200 characters)")
		}

		report, err := deps.Reports.Weekdays(c.UserContext(), station)
		if err != nil {
			return errFromService(c, err)
		}
		return c.JSON(report)
	}
}

// DistributionHandler buckets the distance or speed distribution.
func DistributionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		metric := c.Params("metric")
		if metric != usecases.MetricDistance && metric != usecases.MetricSpeed {
			return errBadRequest(c, "metric must be distance or speed")
		}
		bins := c.QueryInt("bins", usecases.DefaultHistogramBins)
		if bins <= 0 {
			return errBadRequest(c, "bins must be between 1 and 1000")
		}

		h, err := deps.Reports.Histogram(c.UserContext(), metric, bins)
		if err != nil {
			return errFromService(c, err)
		}
		return c.JSON(h)
	}
}

// tripView is the JSON shape of a trip. JSON has no infinity, so a
// zero-duration trip is served with a null mph and resolved=true.
type tripView struct {
	StartStation string   `json:"start_station"`
	EndStation   string   `json:"end_station"`
	Duration     string   `json:"duration"`
	StartDayName string   `json:"start_day_name"`
	Dist         *float64 `json:"dist"`
	MPH          *float64 `json:"mph"`
	Resolved     bool     `json:"resolved"`
}

func newTripView(t *domain.Trip) tripView {
	return tripView{
		StartStation: t.StartStation,
		EndStation:   t.EndStation,
		Duration:     t.Duration,
		StartDayName: t.StartDayName,
		Dist:         finite(t.Dist),
		MPH:          finite(t.MPH),
		Resolved:     t.Resolved(),
	}
}

func finite(v *float64) *float64 {
	if v == nil || math.IsInf(*v, 0) || math.IsNaN(*v) {
		return nil
	}
	return v
}

// TripsHandler returns enriched trips, paginated, optionally filtered by
// whether both stations were resolved.
func TripsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", defaultTripsLimit)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > usecases.MaxTripsPage {
			limit = defaultTripsLimit
		}

		filter := usecases.TripFilter{Offset: offset, Limit: limit}
		if raw := c.Query("resolved"); raw != "" {
			resolved, err := strconv.ParseBool(raw)
			if err != nil {
				return errBadRequest(c, "resolved must be true or false")
			}
			filter.Resolved = &resolved
		}

		page, err := deps.Reports.Trips(filter)
		if err != nil {
			return errFromService(c, err)
		}

		views := make([]tripView, len(page.Trips))
		for i := range page.Trips {
			views[i] = newTripView(&page.Trips[i])
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: page.Total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: views, Pagination: pg})
	}
}

// ListStationsHandler returns the station index sorted by id.
func ListStationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stations, err := deps.Reports.Stations()
		if err != nil {
			return errFromService(c, err)
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", defaultTripsLimit)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > usecases.MaxTripsPage {
			limit = defaultTripsLimit
		}

		total := len(stations)
		if offset >= total {
			stations = stations[:0]
		} else {
			stations = stations[offset:min(offset+limit, total)]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: stations, Pagination: pg})
	}
}

// GetStationHandler returns a single station. Ids are station names, so the
// path segment is URL-decoded.
func GetStationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := url.PathUnescape(c.Params("id"))
		if err != nil || id == "" {
			return errBadRequest(c, "invalid station id")
		}

		station, err := deps.Reports.Station(id)
		if err != nil {
			return errFromService(c, err)
		}
		return c.JSON(station)
	}
}

// ReloadHandler reruns the analysis from the configured inputs.
func ReloadHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		log := LoggerFromCtx(c.UserContext())

		a, err := deps.Reports.Reload(c.UserContext())
		if err != nil {
			log.Warn("reload failed", "error", err)
			return errFromService(c, err)
		}
		log.Info("analysis reloaded", "run_id", a.RunID, "trips", a.Stats.Total)

		summary, err := deps.Reports.Summary()
		if err != nil {
			return errFromService(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(summary)
	}
}
