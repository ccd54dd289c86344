package handlers

import (
	_ "embed"

	"github.com/gofiber/fiber/v2"
)

//go:embed form.html
var formHTML string

func Form(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	return c.SendString(formHTML)
}
