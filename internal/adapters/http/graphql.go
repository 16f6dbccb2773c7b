package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/bluebikes/internal/core/domain"
	"github.com/samirrijal/bluebikes/internal/core/usecases"
)

// buildSchema creates the GraphQL schema over the report service.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	statsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "EnrichStats",
		Fields: graphql.Fields{
			"total":      &graphql.Field{Type: graphql.Int},
			"resolved":   &graphql.Field{Type: graphql.Int},
			"unresolved": &graphql.Field{Type: graphql.Int},
			"non_finite": &graphql.Field{Type: graphql.Int},
		},
	})

	weekdayReportType := graphql.NewObject(graphql.ObjectConfig{
		Name: "WeekdayReport",
		Fields: graphql.Fields{
			"station": &graphql.Field{Type: graphql.String},
			"counts": &graphql.Field{Type: graphql.NewList(graphql.NewObject(graphql.ObjectConfig{
				Name: "WeekdayCount",
				Fields: graphql.Fields{
					"day":   &graphql.Field{Type: graphql.String},
					"count": &graphql.Field{Type: graphql.Int},
				},
			}))},
			"total": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					r, _ := p.Source.(domain.WeekdayReport)
					return r.Total(), nil
				},
			},
		},
	})

	summaryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Summary",
		Fields: graphql.Fields{
			"run_id":         &graphql.Field{Type: graphql.String},
			"completed_at":   &graphql.Field{Type: graphql.String},
			"stats":          &graphql.Field{Type: statsType},
			"stations":       &graphql.Field{Type: graphql.Int},
			"target_station": &graphql.Field{Type: graphql.String},
			"weekdays":       &graphql.Field{Type: weekdayReportType},
		},
	})

	histogramType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Histogram",
		Fields: graphql.Fields{
			"metric": &graphql.Field{Type: graphql.String},
			"bins": &graphql.Field{Type: graphql.NewList(graphql.NewObject(graphql.ObjectConfig{
				Name: "Bin",
				Fields: graphql.Fields{
					"low":   &graphql.Field{Type: graphql.Float},
					"high":  &graphql.Field{Type: graphql.Float},
					"count": &graphql.Field{Type: graphql.Int},
				},
			}))},
			"min":     &graphql.Field{Type: graphql.Float},
			"max":     &graphql.Field{Type: graphql.Float},
			"count":   &graphql.Field{Type: graphql.Int},
			"skipped": &graphql.Field{Type: graphql.Int},
		},
	})

	tripType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Trip",
		Fields: graphql.Fields{
			"start_station":  &graphql.Field{Type: graphql.String},
			"end_station":    &graphql.Field{Type: graphql.String},
			"duration":       &graphql.Field{Type: graphql.String},
			"start_day_name": &graphql.Field{Type: graphql.String},
			"dist": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return optionalFloat(p.Source.(domain.Trip).Dist), nil
				},
			},
			"mph": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return optionalFloat(p.Source.(domain.Trip).MPH), nil
				},
			},
		},
	})

	stationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Station",
		Fields: graphql.Fields{
			"id": &graphql.Field{Type: graphql.String},
			"lat": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*domain.Station).Location.Lat, nil
				},
			},
			"lon": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*domain.Station).Location.Lon, nil
				},
			},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"summary": &graphql.Field{
				Type:        summaryType,
				Description: "Statistics of the current analysis run",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Reports.Summary()
				},
			},
			"weekdayCounts": &graphql.Field{
				Type:        weekdayReportType,
				Description: "Trips ending at a station by start weekday; defaults to the target station",
				Args: graphql.FieldConfigArgument{
					"station": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					station, _ := p.Args["station"].(string)
					return deps.Reports.Weekdays(p.Context, station)
				},
			},
			"histogram": &graphql.Field{
				Type:        histogramType,
				Description: "Equal-width histogram of trip distances or speeds",
				Args: graphql.FieldConfigArgument{
					"metric": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"bins":   &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: usecases.DefaultHistogramBins},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					metric := p.Args["metric"].(string)
					bins := p.Args["bins"].(int)
					return deps.Reports.Histogram(p.Context, metric, bins)
				},
			},
			"trips": &graphql.Field{
				Type:        graphql.NewList(tripType),
				Description: "Enriched trips in input order",
				Args: graphql.FieldConfigArgument{
					"offset":   &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":    &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: defaultTripsLimit},
					"resolved": &graphql.ArgumentConfig{Type: graphql.Boolean},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					filter := usecases.TripFilter{
						Offset: p.Args["offset"].(int),
						Limit:  p.Args["limit"].(int),
					}
					if r, ok := p.Args["resolved"].(bool); ok {
						filter.Resolved = &r
					}
					page, err := deps.Reports.Trips(filter)
					if err != nil {
						return nil, err
					}
					return page.Trips, nil
				},
			},
			"station": &graphql.Field{
				Type:        stationType,
				Description: "Get a station by id",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Reports.Station(p.Args["id"].(string))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// optionalFloat maps absent and non-finite values to null.
func optionalFloat(v *float64) interface{} {
	if f := finite(v); f != nil {
		return *f
	}
	return nil
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil || req.Query == "" {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
