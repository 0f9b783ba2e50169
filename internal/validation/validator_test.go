package validation

import (
	"testing"
	"time"

	"github.com/V4T54L/cellguard/internal/domain"
)

func TestValidate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		kind   domain.EventKind
		record domain.RawRecord
		wantOK bool
	}{
		{
			name:   "valid cdr",
			kind:   domain.KindCDR,
			record: domain.RawRecord{"phone_number": "+994501234567", "call_time": now, "duration": 28},
			wantOK: true,
		},
		{
			name:   "cdr with dashes",
			kind:   domain.KindCDR,
			record: domain.RawRecord{"phone_number": "+994-50-123-4567", "call_time": now, "duration": 0},
			wantOK: true,
		},
		{
			name:   "cdr letters in phone",
			kind:   domain.KindCDR,
			record: domain.RawRecord{"phone_number": "abc", "call_time": now, "duration": 10},
		},
		{
			name:   "cdr short phone",
			kind:   domain.KindCDR,
			record: domain.RawRecord{"phone_number": "+12-345-678", "call_time": now, "duration": 10},
		},
		{
			name:   "cdr negative duration",
			kind:   domain.KindCDR,
			record: domain.RawRecord{"phone_number": "+994501234567", "call_time": now, "duration": -1},
		},
		{
			name:   "cdr missing call_time",
			kind:   domain.KindCDR,
			record: domain.RawRecord{"phone_number": "+994501234567", "duration": 5},
		},
		{
			name:   "cdr nil duration",
			kind:   domain.KindCDR,
			record: domain.RawRecord{"phone_number": "+994501234567", "call_time": now, "duration": nil},
		},
		{
			name:   "valid network",
			kind:   domain.KindNetwork,
			record: domain.RawRecord{"source_ip": "192.168.1.10", "dest_ip": "10.0.0.100", "bytes": 4096.0},
			wantOK: true,
		},
		{
			name:   "network octet out of range",
			kind:   domain.KindNetwork,
			record: domain.RawRecord{"source_ip": "192.168.1.256", "dest_ip": "10.0.0.100", "bytes": 1},
		},
		{
			name:   "network three octets",
			kind:   domain.KindNetwork,
			record: domain.RawRecord{"source_ip": "192.168.1.1", "dest_ip": "10.0.0", "bytes": 1},
		},
		{
			name:   "network missing bytes",
			kind:   domain.KindNetwork,
			record: domain.RawRecord{"source_ip": "192.168.1.1", "dest_ip": "10.0.0.1"},
		},
		{
			name:   "auth bad phone",
			kind:   domain.KindAuth,
			record: domain.RawRecord{"phone_number": "12345"},
		},
		{
			name:   "sms valid",
			kind:   domain.KindSMS,
			record: domain.RawRecord{"sender": "+994501234567"},
			wantOK: true,
		},
		{
			name:   "cdr naive iso call_time",
			kind:   domain.KindCDR,
			record: domain.RawRecord{"phone_number": "+994501234567", "call_time": "2026-10-17T03:00:00", "duration": 5},
			wantOK: true,
		},
		{
			name:   "cdr space separated call_time",
			kind:   domain.KindCDR,
			record: domain.RawRecord{"phone_number": "+994501234567", "call_time": "2026-10-17 03:00:00", "duration": 5},
			wantOK: true,
		},
		{
			name:   "cdr garbage call_time",
			kind:   domain.KindCDR,
			record: domain.RawRecord{"phone_number": "+994501234567", "call_time": "yesterday", "duration": 5},
		},
		{
			name:   "cdr numeric call_time",
			kind:   domain.KindCDR,
			record: domain.RawRecord{"phone_number": "+994501234567", "call_time": 1760670000.0, "duration": 5},
		},
		{
			name:   "auth garbage timestamp",
			kind:   domain.KindAuth,
			record: domain.RawRecord{"phone_number": "+994501234567", "timestamp": "17/10/2026"},
		},
		{
			name:   "sms rfc3339 timestamp",
			kind:   domain.KindSMS,
			record: domain.RawRecord{"sender": "+994501234567", "timestamp": "2026-10-17T03:00:00+04:00"},
			wantOK: true,
		},
		{
			name:   "unknown kind passes",
			kind:   domain.EventKind("fax"),
			record: domain.RawRecord{},
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := Validate(tt.record, tt.kind)
			if ok != tt.wantOK {
				t.Fatalf("Validate() ok = %v, want %v (reason %q)", ok, tt.wantOK, reason)
			}
			if reason == "" {
				t.Error("expected a non-empty reason")
			}
		})
	}
}

func TestIsValidIPv4(t *testing.T) {
	cases := map[string]bool{
		"0.0.0.0":         true,
		"255.255.255.255": true,
		"1.2.3":           false,
		"1.2.3.4.5":       false,
		"a.b.c.d":         false,
		"1..3.4":          false,
		"-1.2.3.4":        false,
		"1.2.3.1000":      false,
	}
	for ip, want := range cases {
		if got := IsValidIPv4(ip); got != want {
			t.Errorf("IsValidIPv4(%q) = %v, want %v", ip, got, want)
		}
	}
}
