package services

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	controlCharsRegex    = regexp.MustCompile(`[\x00-\x08\x0B-\x0C\x0E-\x1F\x7F]`)
	zeroWidthRegex       = regexp.MustCompile(`[\x{200B}-\x{200F}\x{FEFF}\x{00A0}]`)
	lineSeparatorRegex   = regexp.MustCompile(`[\x{2028}\x{2029}\x{0085}]|\r\n?`)
	htmlTagRegex         = regexp.MustCompile(`<[^>]*>`)
	excessiveSpacesRegex = regexp.MustCompile(`[ \t]{2,}`)
	excessiveLinesRegex  = regexp.MustCompile(`\n{3,}`)
	anyWhitespaceRegex   = regexp.MustCompile(`\s+`)
)

var htmlEntities = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", "\"",
	"&apos;", "'",
	"&#39;", "'",
	"&nbsp;", " ",
)

// TextSanitizer cleans model-produced text before it reaches the UI.
type TextSanitizer struct {
	maxFieldLen int
}

func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{maxFieldLen: 200}
}

// SanitizeText removes control and zero-width characters and squeezes runs
// of blank space while keeping line structure.
func (ts *TextSanitizer) SanitizeText(text string) string {
	if text == "" {
		return ""
	}

	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}

	sanitized := lineSeparatorRegex.ReplaceAllString(text, "\n")
	sanitized = controlCharsRegex.ReplaceAllString(sanitized, "")
	sanitized = zeroWidthRegex.ReplaceAllString(sanitized, " ")
	sanitized = excessiveSpacesRegex.ReplaceAllString(sanitized, " ")
	sanitized = excessiveLinesRegex.ReplaceAllString(sanitized, "\n\n")

	return strings.TrimSpace(sanitized)
}

// Sanitize strips HTML tags and decodes the common entities.
func (ts *TextSanitizer) Sanitize(text string) string {
	sanitized := htmlTagRegex.ReplaceAllString(text, "")
	sanitized = htmlEntities.Replace(sanitized)
	return strings.TrimSpace(sanitized)
}

// Field cleans a single-line descriptive field such as a title or a color.
func (ts *TextSanitizer) Field(text string) string {
	field := ts.SanitizeText(ts.Sanitize(text))
	field = anyWhitespaceRegex.ReplaceAllString(field, " ")

	if utf8.RuneCountInString(field) > ts.maxFieldLen {
		runes := []rune(field)
		field = strings.TrimSpace(string(runes[:ts.maxFieldLen]))
	}
	return field
}
