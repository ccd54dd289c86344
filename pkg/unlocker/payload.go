package unlocker

import (
	_ "embed"
	"strings"
)

var (
	//go:embed assets/banner.html
	bannerHTML string

	//go:embed assets/overlay.html
	overlayScript string
)

// Payload returns the banner and the select-to-cite overlay script.
func Payload() string {
	return bannerHTML + overlayScript
}

// Inject inserts payload right before the first </body>, matched without
// regard to case. Documents without one get the payload appended.
func Inject(html, payload string) string {
	loc := bodyClose.FindStringIndex(html)
	if loc == nil {
		return html + payload
	}

	var b strings.Builder
	b.Grow(len(html) + len(payload))
	b.WriteString(html[:loc[0]])
	b.WriteString(payload)
	b.WriteString(html[loc[0]:])
	return b.String()
}
