package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/motolog/internal/core/domain"
	"github.com/samirrijal/motolog/internal/core/usecases"
)

// buildSchema creates the read-only GraphQL schema over the journey and
// report services. Struct fields resolve through their json tags.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	statsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "JourneyStats",
		Fields: graphql.Fields{
			"distance_m":           &graphql.Field{Type: graphql.Float},
			"moving_sec":           &graphql.Field{Type: graphql.Float},
			"stopped_sec":          &graphql.Field{Type: graphql.Float},
			"avg_moving_speed_mps": &graphql.Field{Type: graphql.Float},
			"max_speed_mps":        &graphql.Field{Type: graphql.Float},
			"points_count":         &graphql.Field{Type: graphql.Int},
		},
	})

	pointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TrackPoint",
		Fields: graphql.Fields{
			"lat":         &graphql.Field{Type: graphql.Float},
			"lon":         &graphql.Field{Type: graphql.Float},
			"accuracy_m":  &graphql.Field{Type: graphql.Float},
			"speed_mps":   &graphql.Field{Type: graphql.Float},
			"heading_deg": &graphql.Field{Type: graphql.Float},
			"ts":          &graphql.Field{Type: graphql.Float, Description: "Unix milliseconds"},
		},
	})

	journeyType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Journey",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"name":       &graphql.Field{Type: graphql.String},
			"notes":      &graphql.Field{Type: graphql.String},
			"started_at": &graphql.Field{Type: graphql.DateTime},
			"ended_at":   &graphql.Field{Type: graphql.DateTime},
			"stats":      &graphql.Field{Type: statsType},
			"points": &graphql.Field{
				Type:        graphql.NewList(pointType),
				Description: "Accepted points in time order",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					j, ok := p.Source.(domain.Journey)
					if !ok {
						jp, _ := p.Source.(*domain.Journey)
						if jp == nil {
							return nil, nil
						}
						j = *jp
					}
					return deps.Journeys.Points(p.Context, j.ID)
				},
			},
		},
	})

	liveType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LiveStats",
		Fields: graphql.Fields{
			"journey_id":   &graphql.Field{Type: graphql.String},
			"started_at":   &graphql.Field{Type: graphql.DateTime},
			"distance_m":   &graphql.Field{Type: graphql.Float},
			"elapsed_sec":  &graphql.Field{Type: graphql.Float},
			"points_count": &graphql.Field{Type: graphql.Int},
			"last_point":   &graphql.Field{Type: pointType},
			"tracking":     &graphql.Field{Type: graphql.Boolean},
		},
	})

	kpiType := graphql.NewObject(graphql.ObjectConfig{
		Name: "KPIs",
		Fields: graphql.Fields{
			"km":              &graphql.Field{Type: graphql.Float},
			"moving_hours":    &graphql.Field{Type: graphql.Float},
			"total_hours":     &graphql.Field{Type: graphql.Float},
			"rev_per_km":      &graphql.Field{Type: graphql.Float},
			"cost_per_km":     &graphql.Field{Type: graphql.Float},
			"profit_per_km":   &graphql.Field{Type: graphql.Float},
			"rev_per_hour":    &graphql.Field{Type: graphql.Float},
			"profit_per_hour": &graphql.Field{Type: graphql.Float},
			"cost_per_hour":   &graphql.Field{Type: graphql.Float},
			"margin":          &graphql.Field{Type: graphql.Float},
		},
	})

	summaryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Summary",
		Fields: graphql.Fields{
			"period":        &graphql.Field{Type: graphql.String},
			"income_cents":  &graphql.Field{Type: graphql.Float},
			"expense_cents": &graphql.Field{Type: graphql.Float},
			"profit_cents":  &graphql.Field{Type: graphql.Float},
			"journeys":      &graphql.Field{Type: graphql.Int},
			"distance_m":    &graphql.Field{Type: graphql.Float},
			"moving_sec":    &graphql.Field{Type: graphql.Float},
			"stopped_sec":   &graphql.Field{Type: graphql.Float},
			"kpis":          &graphql.Field{Type: kpiType},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"journeys": &graphql.Field{
				Type:        graphql.NewList(journeyType),
				Description: "Journeys started in a period, newest first",
				Args: graphql.FieldConfigArgument{
					"period": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: string(domain.PeriodToday)},
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					period, err := usecases.ParsePeriod(p.Args["period"].(string))
					if err != nil {
						return nil, err
					}
					list, _, err := deps.Journeys.List(p.Context, period, p.Args["offset"].(int), p.Args["limit"].(int))
					return list, err
				},
			},
			"journey": &graphql.Field{
				Type:        journeyType,
				Description: "Get a journey by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Journeys.Get(p.Context, p.Args["id"].(string))
				},
			},
			"live": &graphql.Field{
				Type:        liveType,
				Description: "Running stats of the active journey, null when idle",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					live, err := deps.Journeys.Live(time.Now())
					if err != nil {
						return nil, nil
					}
					return live, nil
				},
			},
			"summary": &graphql.Field{
				Type:        summaryType,
				Description: "Income, effort and KPIs of a period",
				Args: graphql.FieldConfigArgument{
					"period": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: string(domain.PeriodToday)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					period, err := usecases.ParsePeriod(p.Args["period"].(string))
					if err != nil {
						return nil, err
					}
					return deps.Reports.Summary(p.Context, period)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
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
