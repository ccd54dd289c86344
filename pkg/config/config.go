package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

const (
	// DefaultUserAgent is a desktop Chrome UA; many sites serve a stripped page to bots.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/114.0.0.0 Safari/537.36"

	DefaultOCREndpoint = "https://api.ocr.space/parse/image"
	DefaultOCRLanguage = "eng"
	DefaultTimeout     = 15
	DefaultPort        = "8080"
)

// Config holds every environment driven setting of the service.
type Config struct {
	Port    string
	Prefork bool

	UserAgent      string
	Timeout        int // seconds
	AllowedDomains []string
	// AllowedDomainsRuleset adds every ruleset domain to AllowedDomains.
	AllowedDomainsRuleset bool
	RulesetPath           string
	LogURLs               bool

	NoLogs        bool
	UserPass      string
	ExposeRuleset bool

	OCRAPIKey   string
	OCREndpoint string
	OCRLanguage string
}

// Load reads the configuration from the environment.
func Load() Config {
	timeout := DefaultTimeout
	if timeoutStr := os.Getenv("HTTP_TIMEOUT"); timeoutStr != "" {
		t, err := strconv.Atoi(timeoutStr)
		if err != nil || t <= 0 {
			log.Printf("WARN: invalid HTTP_TIMEOUT %q, using %ds", timeoutStr, DefaultTimeout)
		} else {
			timeout = t
		}
	}

	return Config{
		Port:                  getenv("PORT", DefaultPort),
		Prefork:               os.Getenv("PREFORK") == "true",
		UserAgent:             getenv("USER_AGENT", DefaultUserAgent),
		Timeout:               timeout,
		AllowedDomains:        SplitList(os.Getenv("ALLOWED_DOMAINS")),
		AllowedDomainsRuleset: os.Getenv("ALLOWED_DOMAINS_RULESET") == "true",
		RulesetPath:           os.Getenv("RULESET"),
		LogURLs:               os.Getenv("LOG_URLS") == "true",
		NoLogs:                os.Getenv("NOLOGS") == "true",
		UserPass:              os.Getenv("USERPASS"),
		ExposeRuleset:         getenv("EXPOSE_RULESET", "true") != "false",
		OCRAPIKey:             os.Getenv("OCR_API_KEY"),
		OCREndpoint:           getenv("OCR_ENDPOINT", DefaultOCREndpoint),
		OCRLanguage:           getenv("OCR_LANGUAGE", DefaultOCRLanguage),
	}
}

// SplitList splits a comma separated list, dropping blank entries.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getenv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
