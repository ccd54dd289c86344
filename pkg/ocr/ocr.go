package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/andesco/unlockr/pkg/config"
	"github.com/microcosm-cc/bluemonday"
)

// AcceptedExtensions are the image suffixes forwarded to the provider.
var AcceptedExtensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".tiff", ".gif"}

// ValidationError is returned for URLs that do not name a supported image.
type ValidationError struct {
	URL string
}

func (e *ValidationError) Error() string {
	return "The URL does not point to a supported image format."
}

// ProviderError is a failure reported by, or a response not understood
// from, the OCR provider.
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string {
	return e.Message
}

// Result is the outcome of one recognition. Err holds a *ValidationError or
// *ProviderError when Success is false.
type Result struct {
	Success      bool
	Text         string
	ErrorMessage string
	Err          error
}

func failed(err error) Result {
	return Result{ErrorMessage: err.Error(), Err: err}
}

// providerResponse is the subset of the OCR.space parse/image reply we read.
type providerResponse struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool `json:"IsErroredOnProcessing"`
	// ErrorMessage is either a string or a list of strings.
	ErrorMessage json.RawMessage `json:"ErrorMessage"`
}

// Client talks to an OCR.space compatible parse/image endpoint. It is safe
// for concurrent use.
type Client struct {
	Endpoint string
	APIKey   string
	Language string

	client *http.Client
	policy *bluemonday.Policy
}

// NewClient returns a Client for cfg's OCR endpoint, key and language. Calls
// to the provider time out after cfg.Timeout seconds.
func NewClient(cfg config.Config) *Client {
	return &Client{
		Endpoint: cfg.OCREndpoint,
		APIKey:   cfg.OCRAPIKey,
		Language: cfg.OCRLanguage,
		client: &http.Client{
			Timeout: time.Second * time.Duration(cfg.Timeout),
		},
		policy: bluemonday.StrictPolicy(),
	}
}

// IsSupportedImage reports whether imageURL ends in one of AcceptedExtensions,
// ignoring case.
func IsSupportedImage(imageURL string) bool {
	lower := strings.ToLower(imageURL)
	for _, ext := range AcceptedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Recognize sends imageURL to the provider. Validation and provider
// failures are reported in the Result; only transport failures return an
// error.
func (c *Client) Recognize(ctx context.Context, imageURL string) (Result, error) {
	if !IsSupportedImage(imageURL) {
		return failed(&ValidationError{URL: imageURL}), nil
	}

	form := url.Values{}
	form.Set("url", imageURL)
	form.Set("isOverlayRequired", strconv.FormatBool(false))
	form.Set("apikey", c.APIKey)
	form.Set("language", c.Language)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("error building OCR request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("error calling OCR provider: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("error reading OCR response: %w", err)
	}

	var parsed providerResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		log.Printf("WARN: malformed OCR response (status %d): %v", resp.StatusCode, err)
		return failed(&ProviderError{Message: "Malformed response from OCR provider"}), nil
	}

	if parsed.IsErroredOnProcessing {
		msg := c.sanitize(errorText(parsed.ErrorMessage))
		if msg == "" {
			msg = "Unknown error"
		}
		return failed(&ProviderError{Message: msg}), nil
	}

	var text string
	if len(parsed.ParsedResults) > 0 {
		text = parsed.ParsedResults[0].ParsedText
	}
	return Result{Success: true, Text: text}, nil
}

// ExtractText is Recognize rendered as an HTML fragment.
func (c *Client) ExtractText(ctx context.Context, imageURL string) (string, error) {
	res, err := c.Recognize(ctx, imageURL)
	if err != nil {
		return "", err
	}
	return res.HTML(), nil
}

func (c *Client) httpClient() *http.Client {
	if c.client == nil {
		return http.DefaultClient
	}
	return c.client
}

func (c *Client) sanitize(s string) string {
	if c.policy == nil {
		return html.EscapeString(s)
	}
	return strings.TrimSpace(c.policy.Sanitize(s))
}

func errorText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, " ")
	}
	return ""
}
