package analyze

import (
	"encoding/json"
	"strings"
)

// ParseAnalysis recovers an Analysis from raw model output, trying strict
// JSON first, then a JSON object embedded in surrounding prose, then plain
// text keyword anchors. It returns the recovered analysis and the name of
// the tier that produced each result: "json", "brace", "anchor" or
// "sentinel". Fields no tier could fill hold sentinel values.
func ParseAnalysis(raw string) (Analysis, string) {
	raw = strings.TrimSpace(raw)

	if a, ok := parseJSON(raw); ok {
		return fillSentinels(a), "json"
	}
	if block, ok := braceBlock(raw); ok {
		if a, ok := parseJSON(block); ok {
			return fillSentinels(a), "brace"
		}
	}
	if a, ok := parseAnchors(raw); ok {
		return fillSentinels(a), "anchor"
	}
	return sentinelAnalysis(), "sentinel"
}

// jsonKeyAliases maps normalized JSON keys to Analysis fields. Models drift
// between snake_case, camelCase and spelled-out keys; normalization strips
// case and separators before lookup.
var jsonKeyAliases = map[string]int{
	"whattheysell":     0,
	"productsservices": 0,
	"offering":         0,
	"whotheytarget":    1,
	"targetaudience":   1,
	"targetcustomers":  1,
	"summary":          2,
	"condensedsummary": 2,
	"companysummary":   2,
}

func parseJSON(raw string) (Analysis, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return Analysis{}, false
	}

	var fields [3]string
	for key, val := range obj {
		idx, known := jsonKeyAliases[normalizeKey(key)]
		if !known {
			continue
		}
		text, isString := val.(string)
		if !isString {
			continue
		}
		if fields[idx] == "" {
			fields[idx] = strings.TrimSpace(text)
		}
	}

	a := Analysis{WhatTheySell: fields[0], WhoTheyTarget: fields[1], Summary: fields[2]}
	if a.WhatTheySell == "" && a.WhoTheyTarget == "" && a.Summary == "" {
		return Analysis{}, false
	}
	return a, true
}

// braceBlock returns the substring from the first '{' to its matching '}',
// skipping braces inside JSON string literals. Fenced or prose-wrapped JSON
// responses land here.
func braceBlock(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}

// anchor phrases matched at line starts, lowercased, punctuation tolerated.
var anchors = []struct {
	phrase string
	idx    int
}{
	{"what they sell", 0},
	{"products and services", 0},
	{"who they target", 1},
	{"target audience", 1},
	{"target customers", 1},
	{"condensed summary", 2},
	{"company summary", 2},
	{"summary", 2},
}

// parseAnchors scans plain text line by line for labeled sections. Text after
// an anchor's colon and any continuation lines up to the next anchor belong
// to that field.
func parseAnchors(raw string) (Analysis, bool) {
	var fields [3]string
	current := -1

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(strings.TrimLeft(line, "-*#> \t"))
		if trimmed == "" {
			continue
		}

		if idx, rest, ok := matchAnchor(trimmed); ok {
			current = idx
			if rest != "" && fields[idx] == "" {
				fields[idx] = rest
			}
			continue
		}

		if current >= 0 {
			if fields[current] == "" {
				fields[current] = trimmed
			} else {
				fields[current] += " " + trimmed
			}
		}
	}

	if fields[0] == "" && fields[1] == "" && fields[2] == "" {
		return Analysis{}, false
	}
	return Analysis{WhatTheySell: fields[0], WhoTheyTarget: fields[1], Summary: fields[2]}, true
}

func matchAnchor(line string) (int, string, bool) {
	lower := strings.ToLower(line)
	for _, a := range anchors {
		if !strings.HasPrefix(lower, a.phrase) {
			continue
		}
		rest := strings.TrimSpace(line[len(a.phrase):])
		rest = strings.TrimSpace(strings.TrimLeft(rest, ":-–"))
		// Reject accidental prefix matches mid-word ("summary" vs "summaries").
		if rest != "" && rest == strings.TrimSpace(line[len(a.phrase):]) && isWordByte(line[len(a.phrase)]) {
			continue
		}
		return a.idx, rest, true
	}
	return 0, "", false
}

func isWordByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func normalizeKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func fillSentinels(a Analysis) Analysis {
	if strings.TrimSpace(a.WhatTheySell) == "" {
		a.WhatTheySell = SentinelWhatTheySell
	}
	if strings.TrimSpace(a.WhoTheyTarget) == "" {
		a.WhoTheyTarget = SentinelWhoTheyTarget
	}
	if strings.TrimSpace(a.Summary) == "" {
		a.Summary = SentinelSummary
	}
	return a
}
