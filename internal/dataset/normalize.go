package dataset

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var tagSeparators = strings.NewReplacer(" ", "_", "/", "_", "-", "_")

// NormalizeTag converts a category label to its tag form, e.g.
// "Børn/unge - kreativ" becomes "BØRN_UNGE___KREATIV".
func NormalizeTag(raw string) string {
	tag := strings.TrimSpace(raw)
	if tag == "" {
		return ""
	}

	tag = norm.NFC.String(tag)
	tag = tagSeparators.Replace(tag)

	return cases.Upper(language.Danish).String(tag)
}
