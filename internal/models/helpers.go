package models

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

var (
	ErrPleaEmpty       = errors.New("Your plea cannot be empty")
	ErrPleaTooLong     = errors.New("Your plea is too long (max 500 characters)")
	ErrAddressRequired = errors.New("Please enter the deployed contract address.")
	ErrAddressPrefix   = errors.New("Contract address should start with 0x.")
	ErrAddressShort    = errors.New("The address seems too short. Please check and try again.")
)

// IsValidationError reports whether err is a form error that is rejected
// before any chain call.
func IsValidationError(err error) bool {
	for _, target := range []error{ErrPleaEmpty, ErrPleaTooLong, ErrAddressRequired, ErrAddressPrefix, ErrAddressShort} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func GenerateHistoryID() string {
	return uuid.New().String()
}

func GenerateSessionID() string {
	return uuid.New().String()
}

// NowMillis is the timestamp unit used by history and console entries.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// Normalized returns the trimmed plea.
func (p *PleaRequest) Normalized() string {
	return strings.TrimSpace(p.Plea)
}

func (p *PleaRequest) Validate() error {
	plea := p.Normalized()
	if plea == "" {
		return ErrPleaEmpty
	}
	if utf8.RuneCountInString(plea) > MaxPleaLength {
		return ErrPleaTooLong
	}
	return nil
}

// ValidateContractAddress trims the address and checks it looks like a
// deployed contract address. It returns the trimmed address.
func ValidateContractAddress(address string) (string, error) {
	trimmed := strings.TrimSpace(address)
	switch {
	case trimmed == "":
		return "", ErrAddressRequired
	case !strings.HasPrefix(trimmed, "0x"):
		return "", ErrAddressPrefix
	case len(trimmed) < MinAddressLength:
		return "", ErrAddressShort
	}
	return trimmed, nil
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// ShortHex abbreviates hashes and addresses for log details.
func ShortHex(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
