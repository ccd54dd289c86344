package handlers

import (
	"html"
	"log"
	"strings"

	"github.com/andesco/unlockr/pkg/unlocker"

	"github.com/gofiber/fiber/v2"
)

// View is a Fiber handler serving the cleaned version of the page named by
// the url query parameter.
func View(u *unlocker.Unlocker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		targetURL := strings.TrimSpace(c.Query("url"))
		if targetURL == "" {
			return sendHTML(c, fiber.StatusBadRequest, "<h1>Error loading page: missing url parameter</h1>")
		}

		unlock, err := unlocker.ParseUnlock(c.Query("unlock"))
		if err != nil {
			return sendHTML(c, fiber.StatusBadRequest, "<h1>Error loading page: "+html.EscapeString(err.Error())+"</h1>")
		}

		body, err := u.CleanPage(c.UserContext(), targetURL, unlock)
		if err != nil {
			log.Printf("ERROR: Failed to clean %s: %v", targetURL, err)
			return sendHTML(c, fiber.StatusInternalServerError, "<h1>Error loading page: "+html.EscapeString(err.Error())+"</h1>")
		}

		return sendHTML(c, fiber.StatusOK, body)
	}
}

func sendHTML(c *fiber.Ctx, status int, body string) error {
	c.Type("html", "utf-8")
	return c.Status(status).SendString(body)
}
