package llmservice

import (
	"regexp"
	"strings"

	"data-cleaner/internal/models"
)

var (
	thinkRe = regexp.MustCompile(models.ThinkTag)
	fenceRe = regexp.MustCompile(models.CodeFence)
)

// Sanitize strips the parts of a model reply that are not table data:
// reasoning blocks emitted by thinking models and markdown code fences the
// model may wrap the CSV in.
func Sanitize(reply string) string {
	reply = thinkRe.ReplaceAllString(reply, "")
	reply = fenceRe.ReplaceAllString(reply, "")
	return strings.TrimSpace(reply)
}
