package pii

import (
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/V4T54L/cellguard/internal/domain"
)

func TestRedactor(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	redactor := NewRedactor([]string{"phone_number", " sender", "ip_address", ""}, logger)

	tests := []struct {
		name     string
		input    domain.RawRecord
		expected domain.RawRecord
	}{
		{
			name:     "Mask single field",
			input:    domain.RawRecord{"phone_number": "+994501234567", "cell_id": "CELL001"},
			expected: domain.RawRecord{"phone_number": "*********4567", "cell_id": "CELL001"},
		},
		{
			name:     "Mask multiple fields",
			input:    domain.RawRecord{"sender": "+994551112233", "ip_address": "203.0.113.9", "message_type": "sms"},
			expected: domain.RawRecord{"sender": "*********2233", "ip_address": "*******13.9", "message_type": "sms"},
		},
		{
			name:     "No fields to redact",
			input:    domain.RawRecord{"source_ip": "10.0.0.1", "bytes": 1024.0},
			expected: domain.RawRecord{"source_ip": "10.0.0.1", "bytes": 1024.0},
		},
		{
			name:     "Non-string value is replaced",
			input:    domain.RawRecord{"phone_number": 994501234567.0},
			expected: domain.RawRecord{"phone_number": RedactedPlaceholder},
		},
		{
			name:     "Short value is replaced",
			input:    domain.RawRecord{"phone_number": "123"},
			expected: domain.RawRecord{"phone_number": RedactedPlaceholder},
		},
		{
			name:     "Nil value is kept",
			input:    domain.RawRecord{"phone_number": nil},
			expected: domain.RawRecord{"phone_number": nil},
		},
		{
			name:     "Empty record",
			input:    domain.RawRecord{},
			expected: domain.RawRecord{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := redactor.Redact(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Redact() got = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRedactor_DoesNotModifyInput(t *testing.T) {
	redactor := NewRedactor([]string{"phone_number"}, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	rec := domain.RawRecord{"phone_number": "+994501234567"}

	redactor.Redact(rec)

	if rec["phone_number"] != "+994501234567" {
		t.Errorf("input record was modified: %v", rec)
	}
}

func TestRedactor_Nil(t *testing.T) {
	var redactor *Redactor
	if got := redactor.Redact(domain.RawRecord{"phone_number": "+994501234567"}); got != nil {
		t.Errorf("nil redactor should return nil, got %v", got)
	}
}
