package config

import "strings"

// PathPlaceholder enumerates the filename template tokens from spec §6:
// [name] [id] [hash:N] [fullhash:N] [chunkhash:N] [contenthash:N] [ext]
// [query] [file] [path] [base]. This is a direct generalization of the
// teacher's config.PathPlaceholder / config.PathTemplate (same substitution
// shape, renamed tokens).
type PathPlaceholder uint8

const (
	NoPlaceholder PathPlaceholder = iota
	NamePlaceholder
	IdPlaceholder
	HashPlaceholder
	FullHashPlaceholder
	ChunkHashPlaceholder
	ContentHashPlaceholder
	ExtPlaceholder
	QueryPlaceholder
	FilePlaceholder
	PathPlaceholderTok
	BasePlaceholder
)

// PathTemplate is one literal-or-placeholder segment of a parsed filename
// template, with an optional ":N" hash-truncation length.
type PathTemplate struct {
	Data        string
	Placeholder PathPlaceholder
	HashLen     int // 0 means "use the compiler's default length"
}

// PathData supplies the substitution values (spec §6: "Values are
// substituted from PathData{name, id, hash, content_hash, chunk, runtime,
// filename, url}").
type PathData struct {
	Name        string
	Id          string
	Hash        string
	FullHash    string
	ChunkHash   string
	ContentHash string
	Ext         string
	Query       string
	File        string
	Path        string
	Base        string
}

var placeholderNames = map[string]PathPlaceholder{
	"name":        NamePlaceholder,
	"id":          IdPlaceholder,
	"hash":        HashPlaceholder,
	"fullhash":    FullHashPlaceholder,
	"chunkhash":   ChunkHashPlaceholder,
	"contenthash": ContentHashPlaceholder,
	"ext":         ExtPlaceholder,
	"query":       QueryPlaceholder,
	"file":        FilePlaceholder,
	"path":        PathPlaceholderTok,
	"base":        BasePlaceholder,
}

// ParseFilenameTemplate tokenizes a template string like
// "[name]-[contenthash:8].js" into a []PathTemplate, splitting "[tok:N]"
// into placeholder + truncation length.
func ParseFilenameTemplate(template string) []PathTemplate {
	var out []PathTemplate
	i := 0
	for i < len(template) {
		open := strings.IndexByte(template[i:], '[')
		if open == -1 {
			out = append(out, PathTemplate{Data: template[i:]})
			break
		}
		open += i
		if open > i {
			out = append(out, PathTemplate{Data: template[i:open]})
		}
		close := strings.IndexByte(template[open:], ']')
		if close == -1 {
			out = append(out, PathTemplate{Data: template[open:]})
			break
		}
		close += open
		token := template[open+1 : close]
		name, lenStr, hasLen := strings.Cut(token, ":")
		if ph, ok := placeholderNames[name]; ok {
			hashLen := 0
			if hasLen {
				for _, c := range lenStr {
					if c < '0' || c > '9' {
						hashLen = 0
						break
					}
					hashLen = hashLen*10 + int(c-'0')
				}
			}
			out = append(out, PathTemplate{Placeholder: ph, HashLen: hashLen})
		} else {
			out = append(out, PathTemplate{Data: template[open : close+1]})
		}
		i = close + 1
	}
	return out
}

func truncate(s string, n int) string {
	if n <= 0 || n >= len(s) {
		return s
	}
	return s[:n]
}

// SubstituteTemplate renders a parsed template against PathData, using
// defaultHashLen whenever a placeholder didn't specify its own ":N".
func SubstituteTemplate(template []PathTemplate, data PathData, defaultHashLen int) string {
	var sb strings.Builder
	for _, piece := range template {
		hashLen := piece.HashLen
		if hashLen == 0 {
			hashLen = defaultHashLen
		}
		switch piece.Placeholder {
		case NoPlaceholder:
			sb.WriteString(piece.Data)
		case NamePlaceholder:
			sb.WriteString(data.Name)
		case IdPlaceholder:
			sb.WriteString(data.Id)
		case HashPlaceholder:
			sb.WriteString(truncate(data.Hash, hashLen))
		case FullHashPlaceholder:
			sb.WriteString(truncate(data.FullHash, hashLen))
		case ChunkHashPlaceholder:
			sb.WriteString(truncate(data.ChunkHash, hashLen))
		case ContentHashPlaceholder:
			sb.WriteString(truncate(data.ContentHash, hashLen))
		case ExtPlaceholder:
			sb.WriteString(data.Ext)
		case QueryPlaceholder:
			sb.WriteString(data.Query)
		case FilePlaceholder:
			sb.WriteString(data.File)
		case PathPlaceholderTok:
			sb.WriteString(data.Path)
		case BasePlaceholder:
			sb.WriteString(data.Base)
		}
	}
	return sb.String()
}

func HasPlaceholder(template []PathTemplate, placeholder PathPlaceholder) bool {
	for _, piece := range template {
		if piece.Placeholder == placeholder {
			return true
		}
	}
	return false
}
