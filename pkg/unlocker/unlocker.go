package unlocker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/andesco/unlockr/pkg/config"
	"github.com/andesco/unlockr/pkg/ruleset"

	"golang.org/x/net/html/charset"
)

// FetchError reports that the target page could not be retrieved.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("error fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Unlocker fetches pages and rewrites them so their text can be selected,
// copied and cited. It holds no per-request state and is safe for
// concurrent use once built.
type Unlocker struct {
	UserAgent      string
	Rules          ruleset.RuleSet
	AllowedDomains []string
	LogURLs        bool

	client *http.Client
}

// NewUnlocker creates an Unlocker from cfg, loading cfg.RulesetPath.
func NewUnlocker(cfg config.Config) (*Unlocker, error) {
	rules, err := ruleset.NewRuleset(cfg.RulesetPath)
	if err != nil {
		return nil, err
	}

	allowedDomains := append([]string(nil), cfg.AllowedDomains...)
	if cfg.AllowedDomainsRuleset {
		allowedDomains = append(allowedDomains, rules.Domains()...)
	}

	u := &Unlocker{
		UserAgent:      cfg.UserAgent,
		Rules:          rules,
		AllowedDomains: allowedDomains,
		LogURLs:        cfg.LogURLs,
	}
	u.client = &http.Client{
		Timeout:       time.Second * time.Duration(cfg.Timeout),
		CheckRedirect: u.checkRedirect,
	}
	return u, nil
}

// ParseUnlock reads the unlock flag of a view request. Empty means true;
// on/off and yes/no are accepted next to the strconv.ParseBool forms.
func ParseUnlock(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("invalid unlock value %q", v)
	}
	return b, nil
}

// CleanPage fetches targetURL and returns it with anti-copy handlers removed
// and the citation overlay injected. With unlock set, every script element
// is removed as well. The upstream status code is not checked.
func (u *Unlocker) CleanPage(ctx context.Context, targetURL string, unlock bool) (string, error) {
	target, err := url.Parse(targetURL)
	if err != nil {
		return "", fmt.Errorf("error parsing target URL: %w", err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return "", fmt.Errorf("unsupported URL scheme %q", target.Scheme)
	}
	if err := u.checkDomain(target); err != nil {
		return "", err
	}

	if u.LogURLs {
		log.Println(target.String())
	}

	rule, _ := u.Rules.Lookup(target.Hostname(), target.Path)

	body, err := u.fetch(ctx, target, rule)
	if err != nil {
		return "", err
	}

	if unlock {
		body = StripScripts(body)
	}
	body = StripAntiCopy(body)
	body = rule.Apply(body)

	return Inject(body, Payload()), nil
}

func (u *Unlocker) fetch(ctx context.Context, target *url.URL, rule ruleset.Rule) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return "", &FetchError{URL: target.String(), Err: err}
	}

	if rule.Headers.UserAgent != "" {
		req.Header.Set("User-Agent", rule.Headers.UserAgent)
	} else {
		req.Header.Set("User-Agent", u.UserAgent)
	}
	if rule.Headers.Referer != "" {
		req.Header.Set("Referer", rule.Headers.Referer)
	}
	if rule.Headers.Cookie != "" {
		req.Header.Set("Cookie", rule.Headers.Cookie)
	}

	resp, err := u.httpClient().Do(req)
	if err != nil {
		return "", &FetchError{URL: target.String(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("WARN: %s returned %d, cleaning body anyway", target, resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &FetchError{URL: target.String(), Err: fmt.Errorf("error reading response body: %w", err)}
	}

	text, err := decodeText(bodyBytes, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", &FetchError{URL: target.String(), Err: fmt.Errorf("error decoding response body: %w", err)}
	}
	return text, nil
}

// decodeText converts body to UTF-8 using the charset from contentType or a
// <meta> declaration. Undeclared bodies that are already valid UTF-8 are
// kept as they are, since charset sniffing only looks at the first 1024 bytes.
func decodeText(body []byte, contentType string) (string, error) {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" || (!certain && utf8.Valid(body)) {
		return string(body), nil
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func (u *Unlocker) checkDomain(target *url.URL) error {
	if len(u.AllowedDomains) == 0 {
		return nil
	}
	host := target.Hostname()
	for _, domain := range u.AllowedDomains {
		if ruleset.MatchDomain(host, domain) {
			return nil
		}
	}
	return fmt.Errorf("domain not allowed: %s", host)
}

// checkRedirect keeps redirects inside AllowedDomains.
func (u *Unlocker) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return errors.New("stopped after 10 redirects")
	}
	return u.checkDomain(req.URL)
}

func (u *Unlocker) httpClient() *http.Client {
	if u.client == nil {
		return http.DefaultClient
	}
	return u.client
}
