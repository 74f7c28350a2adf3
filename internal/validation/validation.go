// Package validation provides input validation for bountyd.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// AmountScale is the number of decimal places carried by fixed-point amounts.
// Amounts travel as int64 counts of the smallest unit (10^-6 of a token).
const AmountScale = 6

var amountFactor = int64(1_000_000)

// Bounty identifier: lowercase alphanumeric with hyphens, 2-64 chars
var bountyIDRegex = regexp.MustCompile(`^[a-z][a-z0-9-]{0,62}[a-z0-9]$`)

var mimeTypeRegex = regexp.MustCompile(`^[a-z]+/[a-z0-9][a-z0-9!#$&^_.+-]{0,126}$`)

// ValidateBountyID validates a bounty pool identifier
func ValidateBountyID(id string) error {
	if len(id) < 2 {
		return errors.New("bounty id too short (min 2 chars)")
	}
	if len(id) > 64 {
		return errors.New("bounty id too long (max 64 chars)")
	}
	if !bountyIDRegex.MatchString(id) {
		return errors.New("invalid bounty id: must be lowercase alphanumeric with hyphens, starting with a letter")
	}
	if strings.Contains(id, "--") {
		return errors.New("invalid characters in bounty id")
	}
	return nil
}

// ValidateAddress validates a participant address
func ValidateAddress(addr string) error {
	if len(addr) != 42 {
		return errors.New("invalid address length: must be 42 characters (0x + 40 hex)")
	}
	if !strings.HasPrefix(addr, "0x") {
		return errors.New("invalid address: must start with 0x")
	}
	// Check hex characters
	for _, c := range addr[2:] {
		isDigit := c >= '0' && c <= '9'
		isLowerHex := c >= 'a' && c <= 'f'
		isUpperHex := c >= 'A' && c <= 'F'
		if !isDigit && !isLowerHex && !isUpperHex {
			return errors.New("invalid address: contains non-hex characters")
		}
	}
	return nil
}

// ValidateContentHash validates a 32-byte hex content digest
func ValidateContentHash(h string) error {
	if len(h) != 66 {
		return errors.New("invalid content hash length: must be 66 characters (0x + 64 hex)")
	}
	if !strings.HasPrefix(h, "0x") {
		return errors.New("invalid content hash: must start with 0x")
	}
	for _, c := range h[2:] {
		isDigit := c >= '0' && c <= '9'
		isLowerHex := c >= 'a' && c <= 'f'
		isUpperHex := c >= 'A' && c <= 'F'
		if !isDigit && !isLowerHex && !isUpperHex {
			return errors.New("invalid content hash: contains non-hex characters")
		}
	}
	return nil
}

// ValidateURI validates a content URI. Accepts http(s), ipfs and ar schemes.
func ValidateURI(uri string) error {
	if uri == "" {
		return errors.New("uri cannot be empty")
	}
	if len(uri) > 2048 {
		return errors.New("uri too long (max 2048 chars)")
	}
	u, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("invalid uri: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "ipfs", "ar":
	default:
		return errors.New("invalid uri scheme: must be http, https, ipfs or ar")
	}
	if u.Host == "" && u.Opaque == "" && u.Path == "" {
		return errors.New("uri has no location")
	}
	return nil
}

// ValidateMIMEType validates a media type string like "image/png"
func ValidateMIMEType(mt string) error {
	if mt == "" {
		return errors.New("mime type cannot be empty")
	}
	if !mimeTypeRegex.MatchString(mt) {
		return errors.New("invalid mime type: must be type/subtype in lowercase")
	}
	return nil
}

// ParseAmount parses a decimal amount string like "12.50" into smallest
// units. Pure integer arithmetic, at most AmountScale fractional digits,
// negative and zero amounts rejected.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("amount cannot be empty")
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, errors.New("amount must be a plain positive decimal")
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > AmountScale {
		return 0, fmt.Errorf("amount has more than %d decimal places", AmountScale)
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, errors.New("invalid amount")
	}

	var f int64
	if frac != "" {
		f, err = strconv.ParseInt(frac, 10, 64)
		if err != nil || f < 0 {
			return 0, errors.New("invalid amount")
		}
		for i := len(frac); i < AmountScale; i++ {
			f *= 10
		}
	}

	if w > (1<<63-1-f)/amountFactor {
		return 0, errors.New("amount too large")
	}
	units := w*amountFactor + f
	if units <= 0 {
		return 0, errors.New("amount must be positive")
	}
	return units, nil
}

// FormatAmount renders smallest units as a decimal string with AmountScale places
func FormatAmount(units int64) string {
	neg := ""
	if units < 0 {
		neg = "-"
		units = -units
	}
	return fmt.Sprintf("%s%d.%06d", neg, units/amountFactor, units%amountFactor)
}

// ValidateAmount checks an already-parsed amount in smallest units
func ValidateAmount(units int64) error {
	if units <= 0 {
		return errors.New("amount must be positive")
	}
	return nil
}
