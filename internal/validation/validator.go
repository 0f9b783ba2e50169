// Package validation holds the per-kind structural checks a raw record must
// pass before it is ingested.
package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/V4T54L/cellguard/internal/domain"
)

const (
	minPhoneDigits = 10
	reasonValid    = "valid"
)

var requiredFields = map[domain.EventKind][]string{
	domain.KindCDR:     {"phone_number", "call_time", "duration"},
	domain.KindNetwork: {"source_ip", "dest_ip", "bytes"},
	domain.KindAuth:    {"phone_number"},
	domain.KindSMS:     {"sender"},
}

// Validate checks record against the rules for kind. Unknown kinds pass
// through unchecked. The reason is never empty when ok is false.
func Validate(record domain.RawRecord, kind domain.EventKind) (bool, string) {
	for _, field := range requiredFields[kind] {
		if !record.Has(field) {
			return false, "missing required field: " + field
		}
	}

	if field := domain.TimeField(kind); requiredFields[kind] != nil && record.Has(field) {
		if _, ok := record.Time(field); !ok {
			return false, "unparseable " + field
		}
	}

	switch kind {
	case domain.KindCDR:
		if !IsValidPhone(record.String("phone_number")) {
			return false, "invalid phone number format"
		}
		duration, ok := record.Float("duration")
		if !ok {
			return false, "call duration is not a number"
		}
		if duration < 0 {
			return false, fmt.Sprintf("invalid call duration %v", duration)
		}
	case domain.KindNetwork:
		if !IsValidIPv4(record.String("source_ip")) {
			return false, "invalid source IP"
		}
		if !IsValidIPv4(record.String("dest_ip")) {
			return false, "invalid destination IP"
		}
		if _, ok := record.Float("bytes"); !ok {
			return false, "byte count is not a number"
		}
	case domain.KindAuth:
		if !IsValidPhone(record.String("phone_number")) {
			return false, "invalid phone number format"
		}
	case domain.KindSMS:
		if !IsValidPhone(record.String("sender")) {
			return false, "invalid sender number format"
		}
	}

	return true, reasonValid
}

// IsValidPhone accepts digits with optional '+' and '-' separators, and needs
// at least ten digits once the separators are stripped.
func IsValidPhone(phone string) bool {
	digits := strings.NewReplacer("+", "", "-", "").Replace(phone)
	if len(digits) < minPhoneDigits {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsValidIPv4 accepts four dot-separated decimal octets, each in [0,255].
func IsValidIPv4(ip string) bool {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if p == "" || len(p) > 3 {
			return false
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 || strings.ContainsAny(p, "+-") {
			return false
		}
	}
	return true
}
