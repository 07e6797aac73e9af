package extractor

import "strings"

// balancedObject returns the JSON object starting at the '{' at index open,
// scanning left to right with a brace-depth counter that is aware of string
// literals and backslash escapes. Braces inside string values must not move
// the depth counter, so a naive bracket count is not enough here.
func balancedObject(doc string, open int) (string, bool) {
	if open < 0 || open >= len(doc) || doc[open] != '{' {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(doc); i++ {
		c := doc[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return doc[open : i+1], true
				}
			}
		}
	}
	return "", false
}

// findMarkedObject locates marker followed by '=' (or ':') and an opening
// brace, and returns the balanced object that starts there. All marker
// occurrences are tried so a mention inside an unrelated string does not end
// the search.
func findMarkedObject(doc, marker string) (string, bool) {
	searchFrom := 0
	for {
		idx := strings.Index(doc[searchFrom:], marker)
		if idx < 0 {
			return "", false
		}
		idx += searchFrom
		searchFrom = idx + len(marker)

		i := idx + len(marker)
		// The marker may appear quoted, as an object key.
		if i < len(doc) && (doc[i] == '"' || doc[i] == '\'') {
			i++
		}
		for i < len(doc) && (doc[i] == ' ' || doc[i] == '\t') {
			i++
		}
		if i >= len(doc) || (doc[i] != '=' && doc[i] != ':') {
			continue
		}
		i++
		for i < len(doc) && (doc[i] == ' ' || doc[i] == '\t' || doc[i] == '\n' || doc[i] == '\r') {
			i++
		}
		if i >= len(doc) || doc[i] != '{' {
			continue
		}
		if obj, ok := balancedObject(doc, i); ok {
			return obj, true
		}
	}
}

// scriptContents returns the body of each <script> element in document order,
// the secondary search space when the top-level marker scan fails.
func scriptContents(doc string) []string {
	var out []string
	rest := doc
	for {
		openIdx := strings.Index(rest, "<script")
		if openIdx < 0 {
			return out
		}
		rest = rest[openIdx:]
		tagEnd := strings.Index(rest, ">")
		if tagEnd < 0 {
			return out
		}
		rest = rest[tagEnd+1:]
		closeIdx := strings.Index(rest, "</script>")
		if closeIdx < 0 {
			return out
		}
		out = append(out, rest[:closeIdx])
		rest = rest[closeIdx+len("</script>"):]
	}
}
