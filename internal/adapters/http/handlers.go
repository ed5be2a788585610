package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	natsadapter "github.com/samirrijal/motolog/internal/adapters/nats"
	"github.com/samirrijal/motolog/internal/adapters/push"
	"github.com/samirrijal/motolog/internal/core/domain"
	"github.com/samirrijal/motolog/internal/core/usecases"
)

// maxSamplesPerPush bounds one POST /v1/samples body.
const maxSamplesPerPush = 500

type startJourneyRequest struct {
	Name string `json:"name"`
}

type updateJourneyRequest struct {
	Name  string `json:"name"`
	Notes string `json:"notes"`
}

// periodParam reads ?period=, defaulting to today.
func periodParam(c *fiber.Ctx) (domain.Period, error) {
	return usecases.ParsePeriod(c.Query("period"))
}

// ListJourneysHandler returns the journeys started in a period, newest first.
func ListJourneysHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		period, err := periodParam(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		pg := pageParams(c)
		journeys, total, err := deps.Journeys.List(c.UserContext(), period, pg.Offset, pg.Limit)
		if err != nil {
			return errFromDomain(c, err)
		}

		pg.Total = total
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: journeys, Pagination: pg})
	}
}

// StartJourneyHandler begins recording a new journey.
func StartJourneyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req startJourneyRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return errBadRequest(c, "invalid request body")
			}
		}

		j, err := deps.Journeys.Start(c.UserContext(), req.Name)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(j)
	}
}

// StopJourneyHandler ends the active journey and returns it with its stats.
func StopJourneyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		j, err := deps.Journeys.Stop(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(j)
	}
}

// LiveJourneyHandler returns the running stats of the active journey.
func LiveJourneyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		live, err := deps.Journeys.Live(time.Now())
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(live)
	}
}

// GetJourneyHandler returns a single journey by ID.
func GetJourneyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		j, err := deps.Journeys.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(j)
	}
}

// UpdateJourneyHandler edits a journey's name and notes.
func UpdateJourneyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req updateJourneyRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if len(req.Name) > 200 || len(req.Notes) > 2000 {
			return errBadRequest(c, "name or notes too long")
		}

		j, err := deps.Journeys.Update(c.UserContext(), c.Params("id"), req.Name, req.Notes)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(j)
	}
}

// DeleteJourneyHandler removes a journey and its points.
func DeleteJourneyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Journeys.Delete(c.UserContext(), c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// JourneyPointsHandler returns a journey's accepted points in time order.
func JourneyPointsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pts, err := deps.Journeys.Points(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		if pts == nil {
			pts = []domain.TrackPoint{}
		}
		return c.JSON(pts)
	}
}

// JourneyBoundsHandler returns the rectangle that frames a journey.
func JourneyBoundsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		b, err := deps.Journeys.Bounds(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(b)
	}
}

// RecomputeJourneyHandler re-aggregates an ended journey synchronously.
func RecomputeJourneyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := deps.Journeys.Recompute(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(stats)
	}
}

// PushSamplesHandler feeds device readings to the tracker. The body is one
// reading or an array of them; each is a bare sample or a
// {"sample":...} / {"failure":...} envelope.
func PushSamplesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Samples == nil {
			return errNotFound(c, "samples are not accepted over HTTP")
		}

		readings, err := decodeReadings(c.Body())
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if len(readings) > maxSamplesPerPush {
			return errBadRequest(c, "too many readings in one request")
		}

		err = deps.Samples.Push(c.UserContext(), readings...)
		switch {
		case errors.Is(err, push.ErrNotListening):
			return errConflict(c, "tracker is not running")
		case err != nil:
			return errUnavailable(c, err.Error())
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"accepted": len(readings)})
	}
}

func decodeReadings(body []byte) ([]domain.Reading, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("empty body")
	}
	if body[0] != '[' {
		r, err := natsadapter.DecodeReading(body)
		if err != nil {
			return nil, errors.New("invalid reading")
		}
		return []domain.Reading{r}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.New("invalid reading array")
	}
	out := make([]domain.Reading, 0, len(raw))
	for _, m := range raw {
		r, err := natsadapter.DecodeReading(m)
		if err != nil {
			return nil, errors.New("invalid reading")
		}
		out = append(out, r)
	}
	return out, nil
}
