package agent

import (
	"strings"
	"unicode"
)

// Tool tag and marker literals. These are the wire contract between the turn
// loop and the model: the system instruction teaches exactly this vocabulary
// and the parser matches it byte for byte.
const (
	finalAnswerMarker = "Final Answer:"

	searchOpenTag  = "<search>"
	searchCloseTag = "</search>"

	readOpenTag  = "<read_doc>"
	readCloseTag = "</read_doc>"

	createOpenTag  = "<create_doc>"
	createCloseTag = "</create_doc>"

	editOpenTag  = "<edit_doc>"
	editCloseTag = "</edit_doc>"

	deleteOpenTag  = "<delete_doc>"
	deleteCloseTag = "</delete_doc>"

	listDocsTag = "<list_docs/>"
)

// textAfter returns the text after the first occurrence of marker, or the
// whole string when the marker is absent.
func textAfter(s, marker string) string {
	if i := strings.Index(s, marker); i >= 0 {
		return s[i+len(marker):]
	}
	return s
}

// textAfterLast returns the text after the last occurrence of marker, or the
// whole string when the marker is absent.
func textAfterLast(s, marker string) string {
	if i := strings.LastIndex(s, marker); i >= 0 {
		return s[i+len(marker):]
	}
	return s
}

// textBefore returns the text before the first occurrence of marker, or the
// whole string when the marker is absent.
func textBefore(s, marker string) string {
	if i := strings.Index(s, marker); i >= 0 {
		return s[:i]
	}
	return s
}

// tagBody extracts the text between open and close. The second return is
// false when either marker is missing or they are out of order, which the
// loop treats as a malformed (truncated) tag, not an action.
func tagBody(s, open, close string) (string, bool) {
	start := strings.Index(s, open)
	if start < 0 {
		return "", false
	}
	end := strings.Index(s, close)
	if end < 0 || end < start+len(open) {
		return "", false
	}
	return s[start+len(open) : end], true
}

// tagComplete reports whether s carries a fully closed open/close pair.
func tagComplete(s, open, close string) bool {
	_, ok := tagBody(s, open, close)
	return ok
}

// childTag extracts the trimmed body of a <name>...</name> element inside an
// already-isolated tag body. A missing close marker yields the trimmed
// remainder, matching the lenient parsing the model is prompted against.
func childTag(s, name string) string {
	body := textBefore(textAfter(s, "<"+name+">"), "</"+name+">")
	return strings.TrimSpace(body)
}

// trimLeadingSpace strips leading whitespace from a final answer.
func trimLeadingSpace(s string) string {
	return strings.TrimLeftFunc(s, unicode.IsSpace)
}
