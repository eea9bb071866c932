package parseplugin

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/bundlecore/bundlecore/internal/modulegraph"
)

// CSSImportScanner is a toy reference ParserPlugin for CSS: it recognizes
// `@import "..."`/`@import url(...)` at-rules and `url(...)` references,
// producing DepCSSImport/DepCSSURL dependencies. Real CSS grammar (nesting,
// comments, escapes) is out of scope; this exists to exercise CSS order
// reconciliation in internal/codegen with realistic-shaped input.
type CSSImportScanner struct{}

func (CSSImportScanner) CanParse(sourceType modulegraph.SourceType) bool {
	return sourceType == modulegraph.SourceTypeCSS
}

func (CSSImportScanner) Parse(_ string, source []byte) (ParseResult, error) {
	var result ParseResult

	scanner := bufio.NewScanner(bytes.NewReader(source))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "@import") {
			if req, ok := extractImportTarget(line); ok {
				result.Dependencies = append(result.Dependencies, modulegraph.Dependency{
					Type:    modulegraph.DepCSSImport,
					Request: req,
				})
				result.ExportsSpecs = append(result.ExportsSpecs, modulegraph.ExportsSpec{Kind: modulegraph.ExportsSpecNoExports})
			}
			continue
		}

		if idx := strings.Index(line, "url("); idx >= 0 {
			if req, ok := extractQuoted(line[idx:], "url("); ok {
				result.Dependencies = append(result.Dependencies, modulegraph.Dependency{
					Type:           modulegraph.DepCSSURL,
					Request:        req,
					SideEffectFree: true,
				})
				result.ExportsSpecs = append(result.ExportsSpecs, modulegraph.ExportsSpec{Kind: modulegraph.ExportsSpecNoExports})
			}
		}
	}

	return result, scanner.Err()
}

// extractImportTarget handles both `@import "foo.css"` and
// `@import url(foo.css)` forms.
func extractImportTarget(line string) (string, bool) {
	if req, ok := extractQuoted(line, "@import"); ok {
		return req, true
	}
	if idx := strings.Index(line, "url("); idx >= 0 {
		if req, ok := extractQuoted(line[idx:], "url("); ok {
			return req, true
		}
		rest := line[idx+len("url("):]
		if end := strings.IndexByte(rest, ')'); end >= 0 {
			return strings.Trim(strings.TrimSpace(rest[:end]), `"'`), true
		}
	}
	return "", false
}
