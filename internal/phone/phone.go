// Package phone converts national-format phone numbers into international
// format using a compiled-in country dialing-code table.
package phone

import "strings"

// Normalize prefixes the country's dialing code to a national-format phone
// number. Numbers that already start with "+" pass through unchanged, as does
// any number whose country is not in the table. Normalize is deliberately
// lenient: it never fails, and leaves digit validation to the SMS gateway.
func Normalize(number, country string) string {
	if strings.HasPrefix(number, "+") {
		return number
	}

	code, ok := dialingCodes[strings.ToUpper(country)]
	if !ok {
		return number
	}

	return "+" + code + number
}

// DialingCode returns the dialing code for an ISO-3166 alpha-2 country code,
// case-insensitively.
func DialingCode(country string) (string, bool) {
	code, ok := dialingCodes[strings.ToUpper(country)]
	return code, ok
}
