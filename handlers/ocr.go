package handlers

import (
	"html"
	"log"
	"strings"

	"github.com/andesco/unlockr/pkg/ocr"

	"github.com/gofiber/fiber/v2"
)

// OCR is a Fiber handler rendering the text recognized in the image named
// by the url query parameter. Unsupported images and provider failures are
// rendered as a notice with status 200.
func OCR(client *ocr.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		imageURL := strings.TrimSpace(c.Query("url"))
		if imageURL == "" {
			return sendHTML(c, fiber.StatusBadRequest, "<h1>OCR Error: missing url parameter</h1>")
		}

		fragment, err := client.ExtractText(c.UserContext(), imageURL)
		if err != nil {
			log.Printf("ERROR: OCR failed for %s: %v", imageURL, err)
			return sendHTML(c, fiber.StatusInternalServerError, "<h1>OCR Error: "+html.EscapeString(err.Error())+"</h1>")
		}

		return sendHTML(c, fiber.StatusOK, fragment)
	}
}
