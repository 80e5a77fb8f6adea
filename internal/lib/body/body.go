// Package body renders outbound message texts. The templates only ever
// use two placeholders, so this is a straight replacement rather than a
// template engine: {{name}} becomes the contact's first name and {{ms}} a
// time-of-day greeting.
package body

import (
	"strings"
	"time"

	"zapdesk/entity"
)

// Invisible marker prepended to business-originated automatic texts, so
// the inbound pipeline can tell its own echoes from agent-typed messages.
const Marker = "‎"

// Format fills the contact placeholders of a configured message text.
func Format(template string, contact *entity.Contact) string {
	return FormatAt(template, contact, time.Now())
}

// FormatAt is Format with an explicit clock, for tests.
func FormatAt(template string, contact *entity.Contact, now time.Time) string {
	name := ""
	if contact != nil {
		name = strings.SplitN(strings.TrimSpace(contact.Name), " ", 2)[0]
	}
	out := strings.ReplaceAll(template, "{{name}}", name)
	out = strings.ReplaceAll(out, "{{ms}}", dayPeriod(now))
	return out
}

// IsAutomatic reports whether a body carries the business marker.
func IsAutomatic(text string) bool {
	return strings.Contains(text, Marker)
}

func dayPeriod(now time.Time) string {
	switch h := now.Hour(); {
	case h < 6:
		return "Boa madrugada"
	case h < 12:
		return "Bom dia"
	case h < 18:
		return "Boa tarde"
	default:
		return "Boa noite"
	}
}
