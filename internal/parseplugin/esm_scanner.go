package parseplugin

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/bundlecore/bundlecore/internal/modulegraph"
)

// ESMScanner is a toy reference ParserPlugin: it line-scans for
// `import ... from "..."`, `import("...")`, `export * from "..."` and
// `require("...")` forms. It does not understand comments, template literals, or anything
// requiring a real lexer — just enough surface to drive
// internal/factorize and internal/exportsinfo with realistic data.
type ESMScanner struct{}

func (ESMScanner) CanParse(sourceType modulegraph.SourceType) bool {
	return sourceType == modulegraph.SourceTypeJavaScript
}

func (ESMScanner) Parse(_ string, source []byte) (ParseResult, error) {
	var result ParseResult

	scanner := bufio.NewScanner(bytes.NewReader(source))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case strings.HasPrefix(line, "import(") || strings.Contains(line, "import("):
			if req, ok := extractQuoted(line, "import("); ok {
				result.Dependencies = append(result.Dependencies, modulegraph.Dependency{
					Type:    modulegraph.DepDynamicImport,
					Request: req,
				})
				result.ExportsSpecs = append(result.ExportsSpecs, modulegraph.ExportsSpec{Kind: modulegraph.ExportsSpecUnknown})
			}

		case strings.HasPrefix(line, "export * from"):
			if req, ok := extractQuoted(line, "from"); ok {
				result.Dependencies = append(result.Dependencies, modulegraph.Dependency{
					Type:    modulegraph.DepESMReexport,
					Request: req,
				})
				result.ExportsSpecs = append(result.ExportsSpecs, modulegraph.ExportsSpec{Kind: modulegraph.ExportsSpecUnknown})
			}

		case strings.HasPrefix(line, "import "):
			if req, ok := extractQuoted(line, "from"); ok {
				result.Dependencies = append(result.Dependencies, modulegraph.Dependency{
					Type:    modulegraph.DepESMImport,
					Request: req,
				})
				result.ExportsSpecs = append(result.ExportsSpecs, modulegraph.ExportsSpec{Kind: modulegraph.ExportsSpecNone})
			}

		case strings.Contains(line, "require("):
			if req, ok := extractQuoted(line, "require("); ok {
				result.Dependencies = append(result.Dependencies, modulegraph.Dependency{
					Type:    modulegraph.DepCommonJSRequire,
					Request: req,
				})
				result.ExportsSpecs = append(result.ExportsSpecs, modulegraph.ExportsSpec{Kind: modulegraph.ExportsSpecUnknown})
			}
		}
	}

	return result, scanner.Err()
}

// extractQuoted pulls the first quoted string literal that appears after
// marker on the line — a deliberately crude stand-in for real string
// literal parsing.
func extractQuoted(line, marker string) (string, bool) {
	idx := strings.Index(line, marker)
	if idx < 0 {
		return "", false
	}
	rest := line[idx+len(marker):]
	for _, q := range []byte{'"', '\''} {
		start := strings.IndexByte(rest, q)
		if start < 0 {
			continue
		}
		end := strings.IndexByte(rest[start+1:], q)
		if end < 0 {
			continue
		}
		return rest[start+1 : start+1+end], true
	}
	return "", false
}
