package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/andesco/unlockr/handlers"
	"github.com/andesco/unlockr/handlers/cli"
	"github.com/andesco/unlockr/pkg/config"
	"github.com/andesco/unlockr/pkg/ocr"
	"github.com/andesco/unlockr/pkg/unlocker"

	"github.com/akamensky/argparse"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
)

var version = "dev"

func main() {
	cfg := config.Load()

	parser := argparse.NewParser("unlockr", "Copy-unlocking citation proxy "+version)

	port := parser.String("p", "port", &argparse.Options{
		Required: false,
		Default:  cfg.Port,
		Help:     "Port the webserver will listen on",
	})
	prefork := parser.Flag("P", "prefork", &argparse.Options{
		Required: false,
		Default:  cfg.Prefork,
		Help:     "This will spawn multiple processes listening",
	})
	rulesetPath := parser.String("r", "ruleset", &argparse.Options{
		Required: false,
		Default:  cfg.RulesetPath,
		Help:     "File, directory or semicolon separated list of rulesets",
	})
	mergeRulesets := parser.Flag("", "merge-rulesets", &argparse.Options{
		Required: false,
		Help:     "Merge all rulesets into one YAML document and exit",
	})
	mergeRulesetsGzip := parser.Flag("", "merge-rulesets-gzip", &argparse.Options{
		Required: false,
		Help:     "Gzip the merged ruleset",
	})
	mergeRulesetsOutput := parser.String("", "merge-rulesets-output", &argparse.Options{
		Required: false,
		Help:     "Write the merged ruleset to this file instead of stdout",
	})

	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	if *mergeRulesets || *mergeRulesetsGzip {
		if err := cli.HandleRulesetMerge(*rulesetPath, *mergeRulesetsGzip, *mergeRulesetsOutput); err != nil {
			log.Fatalf("ERROR: %v", err)
		}
		return
	}

	cfg.RulesetPath = *rulesetPath
	u, err := unlocker.NewUnlocker(cfg)
	if err != nil {
		log.Fatalf("ERROR: Failed to initialize unlocker: %v", err)
	}

	if cfg.OCRAPIKey == "" {
		log.Printf("WARN: OCR_API_KEY is not set, /ocr requests will be rejected by the provider")
	}

	app := fiber.New(fiber.Config{
		Prefork: *prefork,
		GETOnly: true,
	})

	if cfg.UserPass != "" {
		user, pass, _ := strings.Cut(cfg.UserPass, ":")
		app.Use(basicauth.New(basicauth.Config{
			Users: map[string]string{user: pass},
		}))
	}

	if !cfg.NoLogs {
		app.Use(func(c *fiber.Ctx) error {
			log.Println(c.Method(), c.Path())
			return c.Next()
		})
	}

	app.Get("/", handlers.Form)
	app.Get("/ruleset", handlers.Ruleset(u.Rules, cfg.ExposeRuleset))
	app.Get("/view", handlers.View(u))
	app.Get("/ocr", handlers.OCR(ocr.NewClient(cfg)))

	log.Fatal(app.Listen(":" + *port))
}
