package pii

import (
	"log/slog"
	"strings"

	"github.com/V4T54L/cellguard/internal/domain"
)

const (
	RedactedPlaceholder = "[REDACTED]"
	visibleSuffix       = 4
)

// Redactor masks subscriber identifiers in raw records before they are logged.
type Redactor struct {
	fieldsToRedact map[string]struct{} // Use a map for O(1) lookups
}

// NewRedactor creates a new Redactor instance with a given set of fields to redact.
func NewRedactor(fields []string, logger *slog.Logger) *Redactor {
	fieldSet := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		if field = strings.TrimSpace(field); field != "" {
			fieldSet[field] = struct{}{}
		}
	}
	logger.Debug("pii redactor configured", "fields", len(fieldSet))
	return &Redactor{fieldsToRedact: fieldSet}
}

// Redact returns a copy of rec with every configured field masked. The
// input record is never modified. A nil Redactor returns nil so callers can
// drop the record from their output entirely.
func (r *Redactor) Redact(rec domain.RawRecord) domain.RawRecord {
	if r == nil {
		return nil
	}
	out := make(domain.RawRecord, len(rec))
	for field, value := range rec {
		if _, ok := r.fieldsToRedact[field]; ok && value != nil {
			s, isString := value.(string)
			if !isString {
				out[field] = RedactedPlaceholder
				continue
			}
			out[field] = Mask(s)
			continue
		}
		out[field] = value
	}
	return out
}

// Mask keeps the last four characters of value and stars out the rest, so
// "+994501234567" becomes "*********4567". Values too short to keep a
// suffix are replaced entirely.
func Mask(value string) string {
	runes := []rune(value)
	if len(runes) <= visibleSuffix {
		return RedactedPlaceholder
	}
	return strings.Repeat("*", len(runes)-visibleSuffix) + string(runes[len(runes)-visibleSuffix:])
}
