package main

import (
	"context"
	"fmt"
	"html"
	"log"
	"strconv"
	"syscall/js"

	"github.com/andesco/unlockr/pkg/config"
	"github.com/andesco/unlockr/pkg/ocr"
	"github.com/andesco/unlockr/pkg/unlocker"
)

var (
	unlockerInstance *unlocker.Unlocker
	ocrInstance      *ocr.Client
)

// loadConfig mirrors config.Load but reads Worker bindings instead of the
// process environment.
func loadConfig(env js.Value) config.Config {
	timeout, err := strconv.Atoi(getEnvVar(env, "HTTP_TIMEOUT", strconv.Itoa(config.DefaultTimeout)))
	if err != nil || timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	return config.Config{
		UserAgent:             getEnvVar(env, "USER_AGENT", config.DefaultUserAgent),
		Timeout:               timeout,
		AllowedDomains:        config.SplitList(getEnvVar(env, "ALLOWED_DOMAINS", "")),
		AllowedDomainsRuleset: getEnvVar(env, "ALLOWED_DOMAINS_RULESET", "") == "true",
		RulesetPath:           getEnvVar(env, "RULESET", ""),
		LogURLs:               getEnvVar(env, "LOG_URLS", "") == "true",
		ExposeRuleset:         getEnvVar(env, "EXPOSE_RULESET", "true") != "false",
		OCRAPIKey:             getEnvVar(env, "OCR_API_KEY", ""),
		OCREndpoint:           getEnvVar(env, "OCR_ENDPOINT", config.DefaultOCREndpoint),
		OCRLanguage:           getEnvVar(env, "OCR_LANGUAGE", config.DefaultOCRLanguage),
	}
}

func initUnlocker(env js.Value) (*unlocker.Unlocker, error) {
	if unlockerInstance != nil {
		return unlockerInstance, nil
	}
	u, err := unlocker.NewUnlocker(loadConfig(env))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize unlocker: %w", err)
	}
	unlockerInstance = u
	return unlockerInstance, nil
}

func viewHandler(ctx context.Context, query, env js.Value) (js.Value, error) {
	u, err := initUnlocker(env)
	if err != nil {
		log.Printf("ERROR: %v", err)
		return createResponse(500, "text/html", "<h1>Error loading page: "+html.EscapeString(err.Error())+"</h1>"), nil
	}

	targetURL := param(query, "url")
	if targetURL == "" {
		return createResponse(400, "text/html", "<h1>Error loading page: missing url parameter</h1>"), nil
	}

	unlock, err := unlocker.ParseUnlock(param(query, "unlock"))
	if err != nil {
		return createResponse(400, "text/html", "<h1>Error loading page: "+html.EscapeString(err.Error())+"</h1>"), nil
	}

	body, err := u.CleanPage(ctx, targetURL, unlock)
	if err != nil {
		log.Printf("ERROR: Failed to clean %s: %v", targetURL, err)
		return createResponse(500, "text/html", "<h1>Error loading page: "+html.EscapeString(err.Error())+"</h1>"), nil
	}
	return createResponse(200, "text/html", body), nil
}

func ocrHandler(ctx context.Context, query, env js.Value) (js.Value, error) {
	if ocrInstance == nil {
		ocrInstance = ocr.NewClient(loadConfig(env))
	}

	imageURL := param(query, "url")
	if imageURL == "" {
		return createResponse(400, "text/html", "<h1>OCR Error: missing url parameter</h1>"), nil
	}

	fragment, err := ocrInstance.ExtractText(ctx, imageURL)
	if err != nil {
		log.Printf("ERROR: OCR failed for %s: %v", imageURL, err)
		return createResponse(500, "text/html", "<h1>OCR Error: "+html.EscapeString(err.Error())+"</h1>"), nil
	}
	return createResponse(200, "text/html", fragment), nil
}

func rulesetHandler(env js.Value) (js.Value, error) {
	if getEnvVar(env, "EXPOSE_RULESET", "true") == "false" {
		return createResponse(403, "text/plain", "Ruleset Disabled"), nil
	}

	u, err := initUnlocker(env)
	if err != nil {
		return createResponse(500, "text/plain", err.Error()), nil
	}

	body, err := u.Rules.Yaml()
	if err != nil {
		return createResponse(500, "text/plain", err.Error()), nil
	}
	return createResponse(200, "application/x-yaml", body), nil
}

func param(query js.Value, key string) string {
	v := query.Call("get", key)
	if v.IsNull() || v.IsUndefined() {
		return ""
	}
	return v.String()
}

func createResponse(status int, contentType, body string) js.Value {
	headers := js.Global().Get("Object").New()
	headers.Set("Content-Type", contentType)

	responseInit := js.Global().Get("Object").New()
	responseInit.Set("status", status)
	responseInit.Set("headers", headers)

	return js.Global().Get("Response").New(body, responseInit)
}

func getEnvVar(env js.Value, key, fallback string) string {
	if !env.IsUndefined() && !env.Get(key).IsUndefined() {
		return env.Get(key).String()
	}
	return fallback
}
