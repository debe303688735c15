// Package card validates card numbers, security codes and expiry dates.
// All functions are pure: no I/O, no persisted state.
package card

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Result reports the outcome of a single validation check.
type Result struct {
	Valid  bool
	Reason string
}

// Known card brands.
const (
	BrandVisa       = "visa"
	BrandMastercard = "mastercard"
	BrandAmex       = "amex"
	BrandDiscover   = "discover"
	BrandUnknown    = "unknown"
)

var (
	visaPattern       = regexp.MustCompile(`^4[0-9]{12}(?:[0-9]{3})?$`)
	mastercardPattern = regexp.MustCompile(`^5[1-5][0-9]{14}$`)
	amexPattern       = regexp.MustCompile(`^3[47][0-9]{13}$`)
	discoverPattern   = regexp.MustCompile(`^6(?:011|5[0-9]{2})[0-9]{12}$`)

	digitsOnly = regexp.MustCompile(`^[0-9]+$`)
)

// Normalize strips whitespace from a raw card number.
func Normalize(number string) string {
	return strings.Join(strings.Fields(number), "")
}

// ValidateNumber checks a card number with the Luhn checksum: summing digits
// right to left, doubling every second digit and subtracting 9 when the
// doubled value exceeds 9. Valid iff the total is a multiple of ten.
func ValidateNumber(number string) Result {
	if len(number) < 13 || !digitsOnly.MatchString(number) {
		return Result{Valid: false, Reason: "invalid card number"}
	}

	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		digit := int(number[i] - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}

	if sum%10 != 0 {
		return Result{Valid: false, Reason: "invalid card number"}
	}
	return Result{Valid: true, Reason: "card number valid"}
}

// Brand derives the card brand from the number's prefix and length.
// Unmatched numbers report unknown.
func Brand(number string) string {
	switch {
	case visaPattern.MatchString(number):
		return BrandVisa
	case mastercardPattern.MatchString(number):
		return BrandMastercard
	case amexPattern.MatchString(number):
		return BrandAmex
	case discoverPattern.MatchString(number):
		return BrandDiscover
	}
	return BrandUnknown
}

// ValidateCVV checks the security code length for the given brand: four
// digits for amex, three for everything else. Non-numeric input is rejected.
func ValidateCVV(cvv, brand string) Result {
	expected := 3
	if brand == BrandAmex {
		expected = 4
	}
	if len(cvv) != expected || !digitsOnly.MatchString(cvv) {
		return Result{Valid: false, Reason: fmt.Sprintf("CVV must be %d digits", expected)}
	}
	return Result{Valid: true, Reason: "CVV valid"}
}

// ValidateExpiry checks an MM/YY expiry against the current month.
func ValidateExpiry(expiry string) Result {
	return validateExpiryAt(expiry, time.Now())
}

func validateExpiryAt(expiry string, now time.Time) Result {
	parts := strings.Split(expiry, "/")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return Result{Valid: false, Reason: "expiry must be MM/YY"}
	}
	if !digitsOnly.MatchString(parts[0]) || !digitsOnly.MatchString(parts[1]) {
		return Result{Valid: false, Reason: "expiry must be MM/YY"}
	}

	month := int(parts[0][0]-'0')*10 + int(parts[0][1]-'0')
	year := int(parts[1][0]-'0')*10 + int(parts[1][1]-'0')

	if month < 1 || month > 12 {
		return Result{Valid: false, Reason: "expiry month must be between 01 and 12"}
	}

	curYear := now.Year() % 100
	curMonth := int(now.Month())
	if year < curYear || (year == curYear && month < curMonth) {
		return Result{Valid: false, Reason: "card expired"}
	}
	return Result{Valid: true, Reason: "expiry valid"}
}
