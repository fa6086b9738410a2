package ignore

import (
	"regexp"
	"strings"
)

// parsePatternLine turns one gitignore-style line into an anchored regular
// expression over slash-separated file paths. It returns a nil regexp for blank
// lines and comments.
func parsePatternLine(line string) (*regexp.Regexp, bool, error) {
	trimmedLine := strings.TrimSpace(line)

	if trimmedLine == "" || strings.HasPrefix(trimmedLine, "#") {
		return nil, false, nil
	}

	negate := false
	if strings.HasPrefix(trimmedLine, "!") {
		negate = true
		trimmedLine = strings.TrimPrefix(trimmedLine, "!")
	}

	// Escaped leading `#` and `!` are literal.
	if strings.HasPrefix(trimmedLine, `\#`) || strings.HasPrefix(trimmedLine, `\!`) {
		trimmedLine = trimmedLine[1:]
	}

	dirOnly := strings.HasSuffix(trimmedLine, "/")
	body := strings.TrimSuffix(trimmedLine, "/")
	if body == "" {
		return nil, false, nil
	}

	// A slash anywhere but the end ties the pattern to the root.
	rooted := strings.Contains(body, "/")
	body = strings.TrimPrefix(body, "/")

	var expr strings.Builder
	if rooted {
		expr.WriteString("^")
	} else {
		expr.WriteString("^(?:.*/)?")
	}
	expr.WriteString(globToRegex(body))
	if dirOnly {
		expr.WriteString("/.*$")
	} else {
		expr.WriteString("(?:/.*)?$")
	}

	re, err := regexp.Compile(expr.String())
	if err != nil {
		return nil, false, err
	}
	return re, negate, nil
}

// globToRegex converts wildcard syntax (`**`, `*`, `?`, `[...]`) into regex
// syntax. Everything else is quoted.
func globToRegex(glob string) string {
	var out strings.Builder
	for i := 0; i < len(glob); i++ {
		c := glob[i]
		switch {
		case strings.HasPrefix(glob[i:], "**/"):
			out.WriteString("(?:.*/)?")
			i += 2
		case strings.HasPrefix(glob[i:], "/**") && i+3 == len(glob):
			out.WriteString("/.*")
			i += 2
		case strings.HasPrefix(glob[i:], "**"):
			out.WriteString(".*")
			i++
		case c == '*':
			out.WriteString("[^/]*")
		case c == '?':
			out.WriteString("[^/]")
		case c == '[':
			end := strings.IndexByte(glob[i+1:], ']')
			if end < 0 {
				out.WriteString(`\[`)
				continue
			}
			class := glob[i+1 : i+1+end]
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			out.WriteString("[" + strings.ReplaceAll(class, `\`, `\\`) + "]")
			i += end + 1
		default:
			out.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	return out.String()
}
