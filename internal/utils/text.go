package utils

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DisplayNameFromAddress turns a bare address into a readable name:
// "dana.levi@corp.example" becomes "Dana Levi". Plus-addressing tags
// and numeric runs in the local part are dropped. Anything that is
// not an address passes through unchanged, so calendar display names
// survive the trip.
func DisplayNameFromAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	at := strings.Index(addr, "@")
	if at <= 0 {
		return addr
	}

	local := addr[:at]
	if plus := strings.Index(local, "+"); plus > 0 {
		local = local[:plus]
	}

	words := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})

	caser := cases.Title(language.English)
	var parts []string
	for _, w := range words {
		if w == "" || allDigits(w) {
			continue
		}
		// Two letters or fewer read as initials.
		if len(w) <= 2 {
			parts = append(parts, strings.ToUpper(w))
			continue
		}
		parts = append(parts, caser.String(w))
	}
	if len(parts) == 0 {
		return addr
	}
	return strings.Join(parts, " ")
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
