package handlers

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/andesco/unlockr/pkg/config"
	"github.com/andesco/unlockr/pkg/ocr"
	"github.com/andesco/unlockr/pkg/ruleset"
	"github.com/andesco/unlockr/pkg/unlocker"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T, ocrEndpoint string) *fiber.App {
	t.Helper()
	cfg := config.Config{
		UserAgent:   config.DefaultUserAgent,
		Timeout:     5,
		OCREndpoint: ocrEndpoint,
		OCRAPIKey:   "k",
		OCRLanguage: "eng",
	}
	u, err := unlocker.NewUnlocker(cfg)
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/", Form)
	app.Get("/view", View(u))
	app.Get("/ocr", OCR(ocr.NewClient(cfg)))
	return app
}

func get(t *testing.T, app *fiber.App, target string) (int, string, string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, resp.Header.Get("Content-Type"), string(body)
}

func upstream(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestForm(t *testing.T) {
	status, contentType, body := get(t, newApp(t, ""), "/")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, contentType, "text/html")
	assert.Contains(t, body, `action="/view"`)
	assert.Contains(t, body, `action="/ocr"`)
}

func TestView(t *testing.T) {
	page := upstream(t, `<html><body oncopy="return false"><script>track()</script><p>hi</p></body></html>`)
	app := newApp(t, "")

	status, contentType, body := get(t, app, "/view?url="+url.QueryEscape(page.URL))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, contentType, "text/html")
	assert.NotContains(t, body, "track()")
	assert.Contains(t, body, `<body ><p>hi</p>`+unlocker.Payload()+`</body>`)

	_, _, body = get(t, app, "/view?unlock=false&url="+url.QueryEscape(page.URL))
	assert.Contains(t, body, "<script>track()</script>")

	_, _, body = get(t, app, "/view?unlock=off&unlock=on&url="+url.QueryEscape(page.URL))
	assert.Contains(t, body, "<script>track()</script>")

	_, _, body = get(t, app, "/view?unlock=FALSE&url="+url.QueryEscape(page.URL))
	assert.Contains(t, body, "<script>track()</script>")
}

func TestViewErrors(t *testing.T) {
	app := newApp(t, "")

	status, _, body := get(t, app, "/view")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, "missing url parameter")

	status, _, body = get(t, app, "/view?unlock=maybe&url=https://example.com")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, "invalid unlock value")

	dead := httptest.NewServer(http.NotFoundHandler())
	target := dead.URL
	dead.Close()

	status, _, body = get(t, app, "/view?url="+url.QueryEscape(target))
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.True(t, strings.HasPrefix(body, "<h1>Error loading page: error fetching "+target))
	assert.True(t, strings.HasSuffix(body, "</h1>"))
}

func TestOCR(t *testing.T) {
	provider := upstream(t, `{"ParsedResults":[{"ParsedText":"line1\nline2"}],"IsErroredOnProcessing":false}`)
	app := newApp(t, provider.URL)

	status, _, body := get(t, app, "/ocr?url="+url.QueryEscape("https://example.com/scan.png"))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, "line1<br>line2")

	status, _, body = get(t, app, "/ocr?url="+url.QueryEscape("https://example.com/doc.pdf"))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, "not point to a supported image format")
}

func TestOCRProviderError(t *testing.T) {
	provider := upstream(t, `{"IsErroredOnProcessing": true, "ErrorMessage": "bad image"}`)
	status, _, body := get(t, newApp(t, provider.URL), "/ocr?url=https://example.com/a.jpg")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, "bad image")
}

func TestOCRErrors(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	endpoint := dead.URL
	dead.Close()
	app := newApp(t, endpoint)

	status, _, body := get(t, app, "/ocr")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, "missing url parameter")

	status, _, body = get(t, app, "/ocr?url=https://example.com/a.png")
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.True(t, strings.HasPrefix(body, "<h1>OCR Error: "))
}

func TestRuleset(t *testing.T) {
	rs, err := ruleset.Parse([]byte("- domain: example.com\n  removeSelectors: [.overlay]\n"))
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/ruleset", Ruleset(rs, true))
	app.Get("/hidden", Ruleset(rs, false))

	status, contentType, body := get(t, app, "/ruleset")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "application/x-yaml", contentType)
	assert.Contains(t, body, "domain: example.com")
	assert.Contains(t, body, ".overlay")

	status, _, body = get(t, app, "/hidden")
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "Ruleset Disabled", body)
}
