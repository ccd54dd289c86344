package ruleset

import (
	"compress/gzip"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"gopkg.in/yaml.v3"
)

type Regex struct {
	Match   string `yaml:"match"`
	Replace string `yaml:"replace"`

	re *regexp.Regexp
}

type Injection struct {
	Position string `yaml:"position,omitempty"`
	Append   string `yaml:"append,omitempty"`
	Prepend  string `yaml:"prepend,omitempty"`
	Replace  string `yaml:"replace,omitempty"`
}

type Headers struct {
	UserAgent string `yaml:"user-agent,omitempty"`
	Referer   string `yaml:"referer,omitempty"`
	Cookie    string `yaml:"cookie,omitempty"`
}

// Rule customizes cleaning for the pages of one or more domains.
type Rule struct {
	Domain  string   `yaml:"domain,omitempty"`
	Domains []string `yaml:"domains,omitempty"`
	Paths   []string `yaml:"paths,omitempty"`
	Headers Headers  `yaml:"headers,omitempty"`

	RegexRules []Regex `yaml:"regexRules,omitempty"`
	// RemoveSelectors lists CSS selectors of elements deleted from the page,
	// typically copy-protection overlays.
	RemoveSelectors []string    `yaml:"removeSelectors,omitempty"`
	Injections      []Injection `yaml:"injections,omitempty"`
}

type RuleSet []Rule

// NewRuleset loads every .yml, .yaml and .yaml.gz file found under the
// semicolon separated list of files or directories in rulePaths.
func NewRuleset(rulePaths string) (RuleSet, error) {
	if strings.TrimSpace(rulePaths) == "" {
		log.Printf("WARN: No ruleset specified. Set the `RULESET` environment variable to load one.")
		return RuleSet{}, nil
	}

	var ruleSet RuleSet
	var errs []error

	for _, rulePath := range strings.Split(rulePaths, ";") {
		trimmedPath := strings.TrimSpace(rulePath)
		if trimmedPath == "" {
			continue
		}

		var rules RuleSet
		err := filepath.Walk(trimmedPath, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || !isRulesetFile(path) {
				return nil
			}
			r, err := loadFile(path)
			if err != nil {
				return err
			}
			rules = append(rules, r...)
			return nil
		})

		if err != nil {
			errs = append(errs, fmt.Errorf("failed to load rules from '%s': %w", trimmedPath, err))
		} else {
			ruleSet = append(ruleSet, rules...)
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("errors while loading rulesets: %v", errs)
	}

	log.Printf("INFO: Loaded %d rules for %d domains", ruleSet.Count(), ruleSet.DomainCount())
	return ruleSet, nil
}

// Parse decodes a YAML ruleset and compiles its regex rules.
func Parse(data []byte) (RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, err
	}
	if err := rs.compile(); err != nil {
		return nil, err
	}
	return rs, nil
}

func isRulesetFile(path string) bool {
	return strings.HasSuffix(path, ".yml") ||
		strings.HasSuffix(path, ".yaml") ||
		strings.HasSuffix(path, ".yaml.gz")
}

func loadFile(path string) (RuleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file '%s': %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress rules file '%s': %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file '%s': %w", path, err)
	}

	rs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("syntax error in rules file '%s': %w", path, err)
	}
	return rs, nil
}

func (rs RuleSet) compile() error {
	for i := range rs {
		for j := range rs[i].RegexRules {
			rr := &rs[i].RegexRules[j]
			re, err := regexp.Compile(rr.Match)
			if err != nil {
				return fmt.Errorf("invalid regexRule %q: %w", rr.Match, err)
			}
			rr.re = re
		}
	}
	return nil
}

// Lookup returns the first rule matching host and path.
func (rs RuleSet) Lookup(host, path string) (Rule, bool) {
	for _, rule := range rs {
		for _, ruleDomain := range rule.AllDomains() {
			if !MatchDomain(host, ruleDomain) {
				continue
			}
			if len(rule.Paths) > 0 && !hasPrefixIn(path, rule.Paths) {
				continue
			}
			return rule, true
		}
	}
	return Rule{}, false
}

// MatchDomain reports whether host is domain or one of its subdomains.
func MatchDomain(host, domain string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	domain = strings.TrimSuffix(strings.ToLower(domain), ".")
	if host == "" || domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// AllDomains returns Domain and Domains combined.
func (r Rule) AllDomains() []string {
	domains := make([]string, 0, len(r.Domains)+1)
	if r.Domain != "" {
		domains = append(domains, r.Domain)
	}
	return append(domains, r.Domains...)
}

// Apply runs the rule's regex rules, then its selector removals and
// injections. The document is only re-rendered through goquery when the
// rule has selectors or injections.
func (r Rule) Apply(body string) string {
	for _, regexRule := range r.RegexRules {
		re := regexRule.re
		if re == nil {
			re = regexp.MustCompile(regexRule.Match)
		}
		body = re.ReplaceAllString(body, regexRule.Replace)
	}

	if len(r.RemoveSelectors) == 0 && len(r.Injections) == 0 {
		return body
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		log.Printf("WARN: Could not parse HTML for rule %s: %v", r.Domain, err)
		return body
	}

	for _, selector := range r.RemoveSelectors {
		doc.Find(selector).Remove()
	}

	for _, injection := range r.Injections {
		sel := doc.Find(injection.Position)
		if injection.Replace != "" {
			sel.ReplaceWithHtml(injection.Replace)
		}
		if injection.Append != "" {
			sel.AppendHtml(injection.Append)
		}
		if injection.Prepend != "" {
			sel.PrependHtml(injection.Prepend)
		}
	}

	html, err := doc.Html()
	if err != nil {
		log.Printf("WARN: Could not render HTML for rule %s: %v", r.Domain, err)
		return body
	}
	return html
}

func (rs RuleSet) Domains() []string {
	var domains []string
	for _, rule := range rs {
		domains = append(domains, rule.AllDomains()...)
	}
	return domains
}

func (rs RuleSet) DomainCount() int {
	return len(rs.Domains())
}

func (rs RuleSet) Count() int {
	return len(rs)
}

// Yaml renders the ruleset as a single YAML document.
func (rs RuleSet) Yaml() (string, error) {
	out, err := yaml.Marshal(rs)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func hasPrefixIn(s string, list []string) bool {
	for _, x := range list {
		if strings.HasPrefix(s, x) {
			return true
		}
	}
	return false
}
