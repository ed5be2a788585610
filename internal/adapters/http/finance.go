package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/motolog/internal/core/domain"
	"github.com/samirrijal/motolog/internal/core/usecases"
)

// GetFilterSettingsHandler returns the current tracking thresholds.
func GetFilterSettingsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cfg, err := deps.Settings.FilterConfig(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set("Cache-Control", "no-cache")
		return c.JSON(usecases.ToSettings(cfg))
	}
}

// UpdateFilterSettingsHandler validates and stores new thresholds. The
// running tracker picks them up with the next sample.
func UpdateFilterSettingsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req usecases.FilterSettings
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		cfg, err := deps.Settings.UpdateFilterConfig(c.UserContext(), req)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(usecases.ToSettings(cfg))
	}
}

// ListTransactionsHandler returns the transactions of a period, newest first.
func ListTransactionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		period, err := periodParam(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		txs, err := deps.Transactions.List(c.UserContext(), period)
		if err != nil {
			return errFromDomain(c, err)
		}
		if txs == nil {
			txs = []domain.Transaction{}
		}
		return c.JSON(txs)
	}
}

// CreateTransactionHandler records an income or expense.
func CreateTransactionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var t domain.Transaction
		if err := c.BodyParser(&t); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if t.JourneyID != "" {
			if _, err := deps.Journeys.Get(c.UserContext(), t.JourneyID); err != nil {
				return errFromDomain(c, err)
			}
		}

		if err := deps.Transactions.Create(c.UserContext(), &t); err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(t)
	}
}

// GetTransactionHandler returns a single transaction.
func GetTransactionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		t, err := deps.Transactions.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(t)
	}
}

// DeleteTransactionHandler removes a transaction.
func DeleteTransactionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Transactions.Delete(c.UserContext(), c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// SummaryHandler returns the income, effort and KPIs of a period.
func SummaryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		period, err := periodParam(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		sum, err := deps.Reports.Summary(c.UserContext(), period)
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set("Cache-Control", "private, max-age=60")
		return c.JSON(sum)
	}
}
