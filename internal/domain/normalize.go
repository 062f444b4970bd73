package domain

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeHumanName trims leading/trailing whitespace and collapses internal whitespace runs.
// It is used for trip names, nicknames and expense categories.
func NormalizeHumanName(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}
