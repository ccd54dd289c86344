package unlocker

import "regexp"

// scriptBlock matches a whole script element, attributes and body included.
var scriptBlock = regexp.MustCompile(`(?is)<script.*?</script>`)

// bodyClose locates the closing body tag the payload is inserted before.
var bodyClose = regexp.MustCompile(`(?i)</body>`)

// AntiCopyPatterns are the known right-click, copy and selection blockers.
// They are applied in order and each one sees the output of the previous.
var AntiCopyPatterns = compile(
	`oncontextmenu\s*=\s*["']?return\s+false["']?`,
	`oncopy\s*=\s*["']?return\s+false["']?`,
	`onselectstart\s*=\s*["']?return\s+false["']?`,
	`on(contextmenu|copy|selectstart)\s*=\s*["']?return\s+false["']?`,
	`document\.on(?:copy|contextmenu|selectstart)\s*=\s*.*?;`,
	`document\.addEventListener\(["'](contextmenu|copy|selectstart)["'],.*?\);`,
	`event\.preventDefault\(\);?`,
	`return\s+false;?`,
)

func compile(patterns ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		res[i] = regexp.MustCompile(`(?i)` + p)
	}
	return res
}

// StripScripts removes every <script>...</script> element.
func StripScripts(html string) string {
	return scriptBlock.ReplaceAllString(html, "")
}

// StripAntiCopy deletes every AntiCopyPatterns match.
func StripAntiCopy(html string) string {
	for _, re := range AntiCopyPatterns {
		html = re.ReplaceAllString(html, "")
	}
	return html
}
