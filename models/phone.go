// phone.go
// Contact phone validation and normalization.

package models

import (
	"regexp"
	"strings"
)

// Indian mobile numbers: 10 digits starting 6-9, optionally 91-prefixed.
var phonePattern = regexp.MustCompile(`^(91)?[6-9][0-9]{9}$`)

// NormalizePhone validates a phone number against the Indian mobile pattern
// and normalizes it to the +91XXXXXXXXXX form stored on contacts. Spaces,
// dashes and a leading + are tolerated on input; any other digit count is a
// ValidationError.
func NormalizePhone(raw string) (string, error) {
	cleaned := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(raw))
	cleaned = strings.TrimPrefix(cleaned, "+")

	if !phonePattern.MatchString(cleaned) {
		return "", &ValidationError{Field: "phone", Reason: "must be a 10-digit Indian mobile number, optionally 91-prefixed"}
	}

	if len(cleaned) == 10 {
		return "+91" + cleaned, nil
	}
	return "+" + cleaned, nil
}
