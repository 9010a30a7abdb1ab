// Package lead extracts contact identifiers from free text, scores lead
// quality, and upserts leads idempotently per bot.
package lead

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	// Loose North-American-style phone shape: at least ten digits with
	// optional separators and country prefix. Syntactic shape only; a
	// false positive costs less than a missed lead.
	phonePattern = regexp.MustCompile(`\+?1?[\s.\-]?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}`)
)

// Contacts holds the identifiers found in one piece of text.
type Contacts struct {
	Email string
	Phone string
}

// HasAny reports whether at least one identifier was found.
func (c Contacts) HasAny() bool {
	return c.Email != "" || c.Phone != ""
}

// ExtractContacts applies the email and phone patterns to raw text.
// First match wins per field; no validation beyond shape.
func ExtractContacts(text string) Contacts {
	c := Contacts{
		Email: emailPattern.FindString(text),
		Phone: strings.TrimSpace(phonePattern.FindString(text)),
	}
	if digitCount(c.Phone) < 10 {
		c.Phone = ""
	}
	return c
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
