// Package validate applies declarative per-field rule sets to request
// payloads. Every failing field is reported, not just the first, so a
// client can surface all errors at once.
package validate

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// FieldError describes a single failing field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Check inspects a field value. It may return a normalized replacement
// value; a non-empty message means the check failed.
type Check func(value string) (normalized string, message string)

// Rule binds an ordered list of checks to one named field. Value is a
// pointer so normalizations (trimming, email lowercasing) write back
// into the decoded request.
type Rule struct {
	Field  string
	Value  *string
	Checks []Check

	// Optional skips all checks when the trimmed value is empty.
	Optional bool

	// Raw disables the leading whitespace trim (passwords).
	Raw bool
}

// Apply evaluates every rule and returns the accumulated failures. An
// empty slice means the payload is acceptable. Checks after the first
// failure of a field are skipped so one field yields one message.
func Apply(rules []Rule) []FieldError {
	errs := []FieldError{}
	for _, rule := range rules {
		value := *rule.Value
		if !rule.Raw {
			value = strings.TrimSpace(value)
		}
		if rule.Optional && value == "" {
			*rule.Value = value
			continue
		}
		failed := false
		for _, check := range rule.Checks {
			normalized, message := check(value)
			if message != "" {
				errs = append(errs, FieldError{Field: rule.Field, Message: message})
				failed = true
				break
			}
			value = normalized
		}
		if !failed {
			*rule.Value = value
		}
	}
	return errs
}

// Required fails on an empty value.
func Required(message string) Check {
	return func(value string) (string, string) {
		if value == "" {
			return "", message
		}
		return value, ""
	}
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Email checks the local@domain.tld shape and normalizes to lowercase.
func Email(message string) Check {
	return func(value string) (string, string) {
		if !emailPattern.MatchString(value) {
			return "", message
		}
		return strings.ToLower(value), ""
	}
}

// MinLen fails when the value holds fewer than n characters.
func MinLen(n int, message string) Check {
	return func(value string) (string, string) {
		if utf8.RuneCountInString(value) < n {
			return "", message
		}
		return value, ""
	}
}

// ISODate accepts an ISO-8601 date, with or without a time component.
func ISODate(message string) Check {
	return func(value string) (string, string) {
		if _, err := ParseDate(value); err != nil {
			return "", message
		}
		return value, ""
	}
}

var dateLayouts = []string{"2006-01-02", time.RFC3339}

// ParseDate parses an ISO-8601 date string accepted by ISODate.
func ParseDate(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
