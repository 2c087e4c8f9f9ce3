package grammar

import (
	"strings"

	"mediafrag/models"
)

// ParseFragmentSubpath extracts the fragment from a link subpath such as
// "#t=10,20" or "t=1:20&foo=bar".
//
// Only the first "t=" parameter is used. Its value is split on the first
// unescaped comma:
//   - "t=10"    -> start 10, end unset (single timestamp)
//   - "t=,30"   -> start 0, end 30
//   - "t=10,20" -> start 10, end 20
//
// Ordering is not checked, so malformed ranges already present in a document
// survive parsing. Returns nil when there is no "t=" parameter or when a
// present part does not parse.
func ParseFragmentSubpath(subpath string) *models.Fragment {
	value, ok := timeParam(subpath)
	if !ok {
		return nil
	}

	startPart, endPart, hasComma := splitUnescaped(value)
	startPart = strings.TrimSpace(startPart)
	endPart = strings.TrimSpace(endPart)

	if !hasComma || endPart == "" {
		if startPart == "" {
			return nil
		}
		start, ok := ParseTimeExpression(startPart)
		if !ok {
			return nil
		}
		return &models.Fragment{Start: start, StartRaw: startPart}
	}

	end, ok := ParseTimeExpression(endPart)
	if !ok {
		return nil
	}
	if startPart == "" {
		return &models.Fragment{Start: models.Seconds(0), End: end, EndRaw: endPart}
	}

	start, ok := ParseTimeExpression(startPart)
	if !ok {
		return nil
	}
	return &models.Fragment{Start: start, End: end, StartRaw: startPart, EndRaw: endPart}
}

// ReplaceTimeParam returns subpath (without '#') with its "t=" parameter
// replaced by t. Other parameters keep their order. An empty t removes the
// parameter; duplicate "t=" parameters are dropped.
func ReplaceTimeParam(subpath, t string) string {
	params := splitParams(subpath)
	out := make([]string, 0, len(params)+1)
	replaced := false
	for _, p := range params {
		if !isTimeParam(p) {
			out = append(out, p)
			continue
		}
		if !replaced && t != "" {
			out = append(out, t)
		}
		replaced = true
	}
	if !replaced && t != "" {
		out = append([]string{t}, out...)
	}
	return strings.Join(out, "&")
}

// HasTimeParam reports whether subpath carries a "t=" parameter, parsable
// or not.
func HasTimeParam(subpath string) bool {
	_, ok := timeParam(subpath)
	return ok
}

func timeParam(subpath string) (string, bool) {
	for _, p := range splitParams(subpath) {
		if isTimeParam(p) {
			_, value, _ := strings.Cut(p, "=")
			return value, true
		}
	}
	return "", false
}

func splitParams(subpath string) []string {
	s := strings.TrimPrefix(strings.TrimSpace(subpath), "#")
	if s == "" {
		return nil
	}
	var params []string
	for _, p := range strings.Split(s, "&") {
		if p != "" {
			params = append(params, p)
		}
	}
	return params
}

func isTimeParam(p string) bool {
	key, _, found := strings.Cut(p, "=")
	return found && strings.EqualFold(strings.TrimSpace(key), "t")
}

// splitUnescaped splits s at the first comma not preceded by a backslash.
func splitUnescaped(s string) (before, after string, found bool) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case ',':
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}
