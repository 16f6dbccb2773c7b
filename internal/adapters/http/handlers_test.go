package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/bluebikes/internal/adapters/http"
	"github.com/samirrijal/bluebikes/internal/core/domain"
	"github.com/samirrijal/bluebikes/internal/core/usecases"
)

// ---- Fixtures ----

func f64(v float64) *float64 { return &v }

func sampleAnalysis() *domain.Analysis {
	trips := []domain.Trip{
		{StartStation: "A", EndStation: "Forsyth St at Huntington Ave", Duration: "600", StartDayName: "Monday", Dist: f64(1.5), MPH: f64(9)},
		{StartStation: "Forsyth St at Huntington Ave", EndStation: "A", Duration: "300", StartDayName: "Friday", Dist: f64(1.5), MPH: f64(18)},
		{StartStation: "A", EndStation: "Gone", Duration: "60", StartDayName: "Friday"},
		{StartStation: "A", EndStation: "A", Duration: "0", StartDayName: "Sunday", Dist: f64(0), MPH: f64(math.Inf(1))},
	}
	return &domain.Analysis{
		RunID:       "run-42",
		CompletedAt: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
		Trips:       trips,
		Stations: domain.StationIndex{
			"A":                            {Lat: "42.35", Lon: "-71.06"},
			"Forsyth St at Huntington Ave": {Lat: "42.339202", Lon: "-71.090511"},
			"MIT at Mass Ave / Amherst St": {Lat: "42.3581", Lon: "-71.093198"},
		},
		Stats:         domain.EnrichStats{Total: 4, Resolved: 3, Unresolved: 1, NonFinite: 1},
		Distributions: usecases.ExtractDistributions(trips),
		Weekdays:      usecases.CountWeekdays(trips, "Forsyth St at Huntington Ave"),
	}
}

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps, handler.RouteOptions{RateLimit: -1})
	return app
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	reports := usecases.NewReportService("", nil, nil)
	reports.Replace(sampleAnalysis())
	d := &handler.Dependencies{Reports: reports}
	for _, o := range opts {
		o(d)
	}
	return d
}

func get(t *testing.T, app *fiber.App, path string) (int, []byte, map[string]string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	headers := map[string]string{}
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}
	return resp.StatusCode, body, headers
}

// ---- Report handler tests ----

func TestSummary_Success(t *testing.T) {
	app := setupApp(makeDeps())

	status, body, _ := get(t, app, "/v1/summary")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var s usecases.Summary
	if err := json.Unmarshal(body, &s); err != nil {
		t.Fatal(err)
	}
	if s.RunID != "run-42" || s.Stations != 3 || s.Stats.NonFinite != 1 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if s.CompletedAt != "2026-10-19T12:00:00Z" {
		t.Errorf("unexpected completed_at %q", s.CompletedAt)
	}
}

func TestSummary_NotReady(t *testing.T) {
	app := setupApp(makeDeps(func(d *handler.Dependencies) {
		d.Reports = usecases.NewReportService("", nil, nil)
	}))

	status, body, _ := get(t, app, "/v1/summary")
	if status != 503 {
		t.Fatalf("expected 503, got %d", status)
	}
	var apiErr handler.APIError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		t.Fatal(err)
	}
	if apiErr.Code != "not_ready" || apiErr.RequestID == "" {
		t.Errorf("unexpected error body: %+v", apiErr)
	}
}

func TestWeekdays_Default(t *testing.T) {
	app := setupApp(makeDeps())

	status, body, _ := get(t, app, "/v1/report/weekdays")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var r domain.WeekdayReport
	if err := json.Unmarshal(body, &r); err != nil {
		t.Fatal(err)
	}
	if r.Station != "Forsyth St at Huntington Ave" {
		t.Errorf("expected target station, got %q", r.Station)
	}
	if len(r.Counts) != 7 || r.Counts[1].Count != 1 || r.Total() != 1 {
		t.Errorf("unexpected counts: %+v", r.Counts)
	}
}

func TestWeekdays_OtherStation(t *testing.T) {
	app := setupApp(makeDeps())

	status, body, _ := get(t, app, "/v1/report/weekdays?station=A")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var r domain.WeekdayReport
	json.Unmarshal(body, &r)
	if r.Station != "A" || r.Counts[0].Count != 1 || r.Counts[5].Count != 1 {
		t.Errorf("unexpected report: %+v", r)
	}
}

func TestWeekdays_StationTooLong(t *testing.T) {
	app := setupApp(makeDeps())
	status, _, _ := get(t, app, "/v1/report/weekdays?station="+strings.Repeat("x", 201))
	if status != 400 {
		t.Errorf("expected 400, got %d", status)
	}
}

func TestDistribution_Success(t *testing.T) {
	app := setupApp(makeDeps())

	status, body, _ := get(t, app, "/v1/distributions/speed?bins=3")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var h domain.Histogram
	if err := json.Unmarshal(body, &h); err != nil {
		t.Fatal(err)
	}
	if len(h.Bins) != 3 || h.Count != 2 || h.Skipped != 1 {
		t.Errorf("unexpected histogram: %+v", h)
	}
}

func TestDistribution_BadRequests(t *testing.T) {
	app := setupApp(makeDeps())

	for _, path := range []string{
		"/v1/distributions/altitude",
		"/v1/distributions/distance?bins=0",
		"/v1/distributions/distance?bins=5000",
	} {
		if status, _, _ := get(t, app, path); status != 400 {
			t.Errorf("%s: expected 400, got %d", path, status)
		}
	}
}

func TestTrips_Pagination(t *testing.T) {
	app := setupApp(makeDeps())

	status, body, headers := get(t, app, "/v1/trips?offset=1&limit=2")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}

	var result struct {
		Data       []map[string]interface{} `json:"data"`
		Pagination handler.Pagination        `json:"pagination"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	if result.Pagination.Total != 4 || len(result.Data) != 2 {
		t.Errorf("unexpected page: %+v", result.Pagination)
	}
	if result.Data[1]["dist"] != nil || result.Data[1]["resolved"] != false {
		t.Errorf("expected unresolved trip with null dist, got %v", result.Data[1])
	}

	link := headers["Link"]
	for _, rel := range []string{`rel="first"`, `rel="prev"`, `rel="next"`, `rel="last"`} {
		if !strings.Contains(link, rel) {
			t.Errorf("expected %s in Link header, got %s", rel, link)
		}
	}
}

func TestTrips_ZeroDurationSerializes(t *testing.T) {
	app := setupApp(makeDeps())

	status, body, _ := get(t, app, "/v1/trips?offset=3")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var result struct {
		Data []map[string]interface{} `json:"data"`
	}
	json.Unmarshal(body, &result)
	if len(result.Data) != 1 || result.Data[0]["mph"] != nil || result.Data[0]["resolved"] != true {
		t.Errorf("expected resolved trip with null mph, got %v", result.Data)
	}
}

func TestTrips_ResolvedFilter(t *testing.T) {
	app := setupApp(makeDeps())

	status, body, _ := get(t, app, "/v1/trips?resolved=false")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var result struct {
		Pagination handler.Pagination `json:"pagination"`
	}
	json.Unmarshal(body, &result)
	if result.Pagination.Total != 1 {
		t.Errorf("expected 1 unresolved trip, got %d", result.Pagination.Total)
	}

	if status, _, _ := get(t, app, "/v1/trips?resolved=maybe"); status != 400 {
		t.Errorf("expected 400 for bad filter, got %d", status)
	}
}

func TestStation_Success(t *testing.T) {
	app := setupApp(makeDeps())

	status, body, _ := get(t, app, "/v1/stations/MIT%20at%20Mass%20Ave%20%2F%20Amherst%20St")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var st domain.Station
	json.Unmarshal(body, &st)
	if st.ID != "MIT at Mass Ave / Amherst St" || st.Location.Lat != "42.3581" {
		t.Errorf("unexpected station: %+v", st)
	}
}

func TestStation_NotFound(t *testing.T) {
	app := setupApp(makeDeps())
	if status, _, _ := get(t, app, "/v1/stations/Nowhere"); status != 404 {
		t.Errorf("expected 404, got %d", status)
	}
}

func TestListStations(t *testing.T) {
	app := setupApp(makeDeps())

	status, body, _ := get(t, app, "/v1/stations?limit=2")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var result struct {
		Data       []domain.Station   `json:"data"`
		Pagination handler.Pagination `json:"pagination"`
	}
	json.Unmarshal(body, &result)
	if result.Pagination.Total != 3 || len(result.Data) != 2 || result.Data[0].ID != "A" {
		t.Errorf("unexpected stations: %+v", result)
	}
}

func TestReload(t *testing.T) {
	calls := 0
	app := setupApp(makeDeps(func(d *handler.Dependencies) {
		d.Reports = usecases.NewReportService("", nil, func(ctx context.Context) (*domain.Analysis, error) {
			calls++
			if calls > 1 {
				return nil, errors.New("trips.csv: permission denied")
			}
			a := sampleAnalysis()
			a.RunID = "run-43"
			return a, nil
		})
	}))

	resp, err := app.Test(httptest.NewRequest("POST", "/v1/reload", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 202 {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var s usecases.Summary
	json.NewDecoder(resp.Body).Decode(&s)
	if s.RunID != "run-43" {
		t.Errorf("expected new run id, got %q", s.RunID)
	}

	resp, _ = app.Test(httptest.NewRequest("POST", "/v1/reload", nil), -1)
	if resp.StatusCode != 500 {
		t.Errorf("expected 500 on failed reload, got %d", resp.StatusCode)
	}
}

// ---- GraphQL ----

func TestGraphQL_WeekdayCounts(t *testing.T) {
	app := setupApp(makeDeps())

	q := `{"query":"{ weekdayCounts { station total counts { day count } } summary { run_id stats { resolved } } }"}`
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(q))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			WeekdayCounts struct {
				Station string `json:"station"`
				Total   int    `json:"total"`
				Counts  []domain.WeekdayCount
			} `json:"weekdayCounts"`
			Summary struct {
				RunID string `json:"run_id"`
				Stats struct {
					Resolved int `json:"resolved"`
				} `json:"stats"`
			} `json:"summary"`
		} `json:"data"`
		Errors []interface{} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if result.Data.WeekdayCounts.Total != 1 || len(result.Data.WeekdayCounts.Counts) != 7 {
		t.Errorf("unexpected weekday counts: %+v", result.Data.WeekdayCounts)
	}
	if result.Data.Summary.RunID != "run-42" || result.Data.Summary.Stats.Resolved != 3 {
		t.Errorf("unexpected summary: %+v", result.Data.Summary)
	}
}

func TestGraphQL_Trips(t *testing.T) {
	app := setupApp(makeDeps())

	q := `{"query":"{ trips(resolved: true) { end_station dist mph } histogram(metric: \"distance\", bins: 2) { count } }"}`
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(q))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)

	var result struct {
		Data struct {
			Trips []struct {
				EndStation string   `json:"end_station"`
				MPH        *float64 `json:"mph"`
			} `json:"trips"`
			Histogram struct {
				Count int `json:"count"`
			} `json:"histogram"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result.Data.Trips) != 3 {
		t.Fatalf("expected 3 resolved trips, got %d", len(result.Data.Trips))
	}
	if result.Data.Trips[2].MPH != nil {
		t.Error("expected null mph for zero-duration trip")
	}
	if result.Data.Histogram.Count != 3 {
		t.Errorf("expected 3 distances, got %d", result.Data.Histogram.Count)
	}
}

func TestGraphQL_HistogramBinLimit(t *testing.T) {
	app := setupApp(makeDeps())

	q := `{"query":"{ histogram(metric: \"distance\", bins: 200000) { count bins { count } } }"}`
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(q))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}

	var result struct {
		Data struct {
			Histogram *struct {
				Bins []domain.Bin `json:"bins"`
			} `json:"histogram"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0].Message, "invalid bin count") {
		t.Fatalf("expected a bin count error, got %+v", result.Errors)
	}
	if result.Data.Histogram != nil {
		t.Errorf("expected null histogram, got %d bins", len(result.Data.Histogram.Bins))
	}
}

func TestGraphQL_EmptyBody(t *testing.T) {
	app := setupApp(makeDeps())
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- Health & middleware ----

func TestHealth_Returns200(t *testing.T) {
	app := setupApp(makeDeps(func(d *handler.Dependencies) { d.Version = "1.2.3" }))

	status, body, _ := get(t, app, "/v1/health")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(string(body), `"version":"1.2.3"`) {
		t.Errorf("expected version in body, got %s", body)
	}
}

func TestReady(t *testing.T) {
	if status, _, _ := get(t, setupApp(makeDeps()), "/v1/ready"); status != 200 {
		t.Errorf("expected 200 with analysis loaded, got %d", status)
	}

	empty := setupApp(makeDeps(func(d *handler.Dependencies) {
		d.Reports = usecases.NewReportService("", nil, nil)
	}))
	if status, _, _ := get(t, empty, "/v1/ready"); status != 503 {
		t.Errorf("expected 503 without analysis, got %d", status)
	}
}

func TestCacheControlAndVersionHeaders(t *testing.T) {
	app := setupApp(makeDeps())

	_, _, headers := get(t, app, "/v1/report/weekdays")
	if headers["Cache-Control"] != "public, max-age=60" {
		t.Errorf("unexpected Cache-Control %q", headers["Cache-Control"])
	}
	if headers["X-Api-Version"] != "1.0.0" {
		t.Errorf("unexpected X-API-Version %q", headers["X-Api-Version"])
	}
	if headers["Etag"] == "" {
		t.Error("expected ETag header")
	}
}

func TestETag_NotModified(t *testing.T) {
	app := setupApp(makeDeps())

	_, _, headers := get(t, app, "/v1/summary")
	req := httptest.NewRequest("GET", "/v1/summary", nil)
	req.Header.Set("If-None-Match", headers["Etag"])
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 304 {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	app := setupApp(makeDeps())
	if status, _, _ := get(t, app, "/ws"); status != fiber.StatusUpgradeRequired {
		t.Errorf("expected 426, got %d", status)
	}
}

func TestRequestIDInContext(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("requestid", "req-7")
		return c.Next()
	})
	app.Use(handler.RequestIDLogMiddleware())
	app.Get("/rid", func(c *fiber.Ctx) error {
		return c.SendString(handler.RequestIDFromCtx(c.UserContext()))
	})

	_, body, _ := get(t, app, "/rid")
	if string(body) != "req-7" {
		t.Errorf("expected request id in context, got %q", body)
	}
}

func TestAccessLogMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(handler.AccessLogMiddleware())
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	})

	status, body, _ := get(t, app, "/test")
	if status != fiber.StatusOK {
		t.Errorf("expected 200, got %d", status)
	}
	if !strings.Contains(string(body), "ok") {
		t.Errorf("expected response body to contain 'ok', got %s", body)
	}
}
