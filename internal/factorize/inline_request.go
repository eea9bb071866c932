package factorize

import "strings"

// InlineRequest is a parsed "!"-delimited request (spec.md §4.1 step 2:
// "parse inline loader syntax: `!` separates an explicit loader stack from
// the resource, `!!` disables the configured rules' loaders entirely, `-!`
// disables only pitching loaders, and a leading `resource!=!` form names
// the resource query explicitly").
// The `resource!=!` prefix is not recognised: ParseInlineRequest splits its
// `!` characters like any other separator, and there is no match-resource
// field.
type InlineRequest struct {
	// Loaders are the explicit "a!b!c" loader requests before the resource,
	// in application order (closest-to-resource last, same as webpack).
	Loaders []string
	// Resource is everything after the last "!".
	Resource string
	// DisableConfiguredLoaders is true for a leading "!!" (no rule-matched
	// loaders run, only the explicit stack).
	DisableConfiguredLoaders bool
	// DisablePitching is true for a leading "-!" (pitching phase skipped).
	DisablePitching bool
}

// ParseInlineRequest splits a raw dependency request into its inline loader
// stack and bare resource, per spec.md §4.1 step 2.
func ParseInlineRequest(request string) InlineRequest {
	out := InlineRequest{}

	switch {
	case strings.HasPrefix(request, "!!"):
		out.DisableConfiguredLoaders = true
		request = request[2:]
	case strings.HasPrefix(request, "-!"):
		out.DisablePitching = true
		request = request[2:]
	case strings.HasPrefix(request, "!"):
		request = request[1:]
	}

	parts := splitUnescaped(request, '!')
	if len(parts) == 0 {
		return out
	}

	out.Resource = parts[len(parts)-1]
	out.Loaders = parts[:len(parts)-1]
	return out
}

// splitUnescaped splits s on sep, treating "\\<sep>" as a literal
// character rather than a separator (webpack's request syntax allows
// escaping "!" inside a query string).
func splitUnescaped(s string, sep byte) []string {
	var parts []string
	var cur strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && s[i+1] == sep {
			cur.WriteByte(sep)
			i++
			continue
		}
		if s[i] == sep {
			parts = append(parts, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteByte(s[i])
	}
	parts = append(parts, cur.String())
	return parts
}
