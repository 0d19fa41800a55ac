// Package template renders order-notification message templates. Templates
// are admin-editable, so rendered output is sanitized to a safe HTML subset.
package template

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Default is the built-in message used when no template is configured.
const Default = "Your order#{order_number} is {order_status}. Thank you for shopping with us."

// Placeholder tokens recognised in templates. Any other {...} token is left
// verbatim in the rendered output.
const (
	PlaceholderOrderNumber = "{order_number}"
	PlaceholderOrderStatus = "{order_status}"
	PlaceholderTotalAmount = "{total_amount}"
	PlaceholderOrderDate   = "{order_date}"
)

var policy = bluemonday.UGCPolicy()

// Render substitutes every placeholder key in tmpl with its value. Keys are
// disjoint literals, so replacement order does not matter.
func Render(tmpl string, replacements map[string]string) string {
	if len(replacements) == 0 {
		return tmpl
	}

	pairs := make([]string, 0, len(replacements)*2)
	for key, value := range replacements {
		pairs = append(pairs, key, value)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// Sanitize strips disallowed HTML tags and attributes from a rendered
// message.
func Sanitize(message string) string {
	return policy.Sanitize(message)
}
