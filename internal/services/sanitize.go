package services

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<script\b.*?>.*?</script\s*>`),
	regexp.MustCompile(`(?is)<iframe\b.*?>.*?</iframe\s*>`),
	regexp.MustCompile(`(?is)<(object|embed)\b.*?>(.*?</(object|embed)\s*>)?`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)\bon[a-z]+\s*=`),
}

// Sanitize strips script-like fragments, escapes HTML and truncates to max runes
func Sanitize(text string, max int) string {
	for _, p := range dangerousPatterns {
		text = p.ReplaceAllString(text, "")
	}
	text = html.EscapeString(strings.TrimSpace(text))
	if max > 0 && utf8.RuneCountInString(text) > max {
		text = string([]rune(text)[:max])
	}
	return text
}
