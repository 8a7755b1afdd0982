package utils

import (
	"regexp"
	"strings"
)

// RegionZipDigit is the leading digit reserved for the serviced region.
// Any other leading digit is rejected before submission, independent of
// whether the ZIP numerically exists.
const RegionZipDigit = '2'

// ZipRejectedMessage is the fixed message shown for out-of-region ZIP codes.
const ZipRejectedMessage = "Please enter a valid ZIP code within our service area"

var (
	zipPattern   = regexp.MustCompile(`^[0-9]{5}$`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// ValidZip reports whether zip is a 5-digit code starting with the region digit.
func ValidZip(zip string) bool {
	zip = strings.TrimSpace(zip)
	if !zipPattern.MatchString(zip) {
		return false
	}
	return zip[0] == RegionZipDigit
}

// ValidPhone accepts exactly 7, 10, or 11-digit (leading 1) numeric sequences
// after stripping all non-digit, non-parenthesis characters.
func ValidPhone(phone string) bool {
	var digits strings.Builder
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '(' || r == ')':
			// parentheses are tolerated formatting, everything else is stripped
		}
	}
	d := digits.String()
	switch len(d) {
	case 7, 10:
		return true
	case 11:
		return d[0] == '1'
	}
	return false
}

// ValidEmail reports basic well-formedness of an email address.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}
