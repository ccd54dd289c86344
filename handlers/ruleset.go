package handlers

import (
	"github.com/andesco/unlockr/pkg/ruleset"

	"github.com/gofiber/fiber/v2"
)

// Ruleset serves the loaded ruleset as YAML, or 403 when expose is false.
func Ruleset(rs ruleset.RuleSet, expose bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !expose {
			return c.Status(fiber.StatusForbidden).SendString("Ruleset Disabled")
		}

		body, err := rs.Yaml()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
		}

		c.Set("Content-Type", "application/x-yaml")
		return c.SendString(body)
	}
}
