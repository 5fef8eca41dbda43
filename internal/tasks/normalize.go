package tasks

import (
	"regexp"
	"strings"
)

var numberedPrefix = regexp.MustCompile(`^[0-9]+[.、][\s\p{Zs}]*`)

// Normalize turns a task-splitting reply into sub-tasks, one per non-blank
// line, in reply order. Each line loses at most one numeric marker ("1.",
// "2、") and then at most one "- " or "• " bullet. Deeper nesting is left as is.
func Normalize(reply string) []string {
	var out []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = numberedPrefix.ReplaceAllString(line, "")
		if strings.HasPrefix(line, "- ") {
			line = strings.TrimPrefix(line, "- ")
		} else if strings.HasPrefix(line, "• ") {
			line = strings.TrimPrefix(line, "• ")
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
