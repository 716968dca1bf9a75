package language

import (
	"fmt"
	"strings"

	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// English names users commonly type instead of a code.
var names = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"finnish":    "fi",
}

// Normalize maps a language given as an ISO 639-1/639-2 code, a BCP 47 tag
// or an English name to its two-letter code. Empty input means autodetect
// and returns "".
func Normalize(value string) (string, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", nil
	}
	if code, ok := names[value]; ok {
		return code, nil
	}
	tag, err := xlang.Parse(value)
	if err != nil {
		return "", fmt.Errorf("unrecognized language %q", value)
	}
	base, confidence := tag.Base()
	if confidence == xlang.No {
		return "", fmt.Errorf("unrecognized language %q", value)
	}
	code := base.String()
	if len(code) != 2 {
		return "", fmt.Errorf("language %q has no two-letter code", value)
	}
	return code, nil
}

// DisplayName returns the English name for code, or "auto" when code is
// empty.
func DisplayName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "auto"
	}
	tag, err := xlang.Parse(code)
	if err != nil {
		return strings.ToUpper(code)
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return strings.ToUpper(code)
}
