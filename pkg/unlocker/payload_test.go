package unlocker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPayload(t *testing.T) {
	p := Payload()
	assert.True(t, strings.HasPrefix(p, "\n<div style=\"background:#111;color:#fff;padding:10px;text-align:center;font-size:14px\">"))
	assert.Contains(t, p, "This page has been unlocked. You can now copy and cite content.")
	assert.Contains(t, p, "Copy + Cite")
	assert.Contains(t, p, `window.addEventListener("selectstart", e => e.stopPropagation(), true);`)
	assert.True(t, strings.HasSuffix(p, "</script>\n\n"))
}

func TestInjectBeforeFirstBodyClose(t *testing.T) {
	in := "<html><body><p>x</p></BODY><!-- </body> --></html>"
	out := Inject(in, "[P]")
	assert.Equal(t, "<html><body><p>x</p>[P]</BODY><!-- </body> --></html>", out)
	assert.Equal(t, 1, strings.Count(out, "[P]"))
}

func TestInjectAppendsWithoutBody(t *testing.T) {
	assert.Equal(t, "<p>partial[P]", Inject("<p>partial", "[P]"))
	assert.Equal(t, "[P]", Inject("", "[P]"))
}

func TestInjectTwiceDuplicatesPayload(t *testing.T) {
	out := Inject(Inject("<body></body>", "[P]"), "[P]")
	assert.Equal(t, "<body>[P][P]</body>", out)
}
