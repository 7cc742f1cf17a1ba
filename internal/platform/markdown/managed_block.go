package markdown

import "strings"

// ManagedBlock is a generated region delimited by marker lines. Everything
// outside the markers belongs to the user.
type ManagedBlock struct {
	Start string
	End   string
}

// Replace swaps the block's content, appending a new block when none exists.
// A start marker without its end marker claims the rest of the body.
func (m ManagedBlock) Replace(body, generated string) string {
	block := m.Start + "\n" + strings.TrimRight(generated, "\n") + "\n" + m.End

	start := strings.Index(body, m.Start)
	if start >= 0 {
		tail := ""
		if end := strings.Index(body[start:], m.End); end >= 0 {
			tail = body[start+end+len(m.End):]
		} else {
			tail = "\n"
		}
		return body[:start] + block + tail
	}

	switch {
	case strings.TrimSpace(body) == "":
		return block + "\n"
	case strings.HasSuffix(body, "\n"):
		return body + "\n" + block + "\n"
	default:
		return body + "\n\n" + block + "\n"
	}
}

// Extract returns the current block content without the markers.
func (m ManagedBlock) Extract(body string) (string, bool) {
	start := strings.Index(body, m.Start)
	if start < 0 {
		return "", false
	}
	inner := body[start+len(m.Start):]
	end := strings.Index(inner, m.End)
	if end < 0 {
		return "", false
	}
	return strings.Trim(inner[:end], "\n"), true
}
