package cli

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/andesco/unlockr/pkg/ruleset"

	"golang.org/x/term"
)

var isTerminal = term.IsTerminal

// HandleRulesetMerge loads every ruleset under rulesetPath and writes them
// as one YAML document to output, or to stdout when output is empty.
func HandleRulesetMerge(rulesetPath string, gzipped bool, output string) error {
	if rulesetPath == "" {
		rulesetPath = os.Getenv("RULESET")
	}
	if rulesetPath == "" {
		return errors.New("no ruleset provided; use --ruleset or the RULESET environment variable")
	}

	rs, err := ruleset.NewRuleset(rulesetPath)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", output, err)
		}
		defer f.Close()
		w = f
	} else if gzipped && isTerminal(int(os.Stdout.Fd())) {
		return errors.New("refusing to write gzip data to a terminal; redirect stdout or use --merge-rulesets-output")
	}

	return writeRuleset(w, rs, gzipped)
}

func writeRuleset(w io.Writer, rs ruleset.RuleSet, gzipped bool) error {
	body, err := rs.Yaml()
	if err != nil {
		return err
	}

	if !gzipped {
		_, err = io.WriteString(w, body)
		return err
	}

	gz := gzip.NewWriter(w)
	if _, err := io.WriteString(gz, body); err != nil {
		return err
	}
	return gz.Close()
}
