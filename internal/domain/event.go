package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind identifies the family of a telecom event record.
type EventKind string

const (
	KindCDR     EventKind = "cdr"
	KindNetwork EventKind = "network"
	KindAuth    EventKind = "auth"
	KindSMS     EventKind = "sms"
)

// AllKinds lists every kind the pipeline understands, in generation order.
var AllKinds = []EventKind{KindCDR, KindNetwork, KindAuth, KindSMS}

// ParseKind converts a string into a known EventKind.
func ParseKind(s string) (EventKind, error) {
	for _, k := range AllKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown event kind %q", s)
}

// TelecomEvent is the normalized, append-only representation of a single record
// in the event store.
type TelecomEvent struct {
	Time         time.Time `json:"time"`
	Kind         EventKind `json:"event_type"`
	Subtype      string    `json:"event_subtype,omitempty"`
	SourceIP     string    `json:"source_ip,omitempty"`
	DestIP       string    `json:"dest_ip,omitempty"`
	PhoneNumber  string    `json:"phone_number,omitempty"`
	CellID       string    `json:"cell_id,omitempty"`
	CallDuration *int      `json:"call_duration,omitempty"`
	DataVolume   *float64  `json:"data_volume,omitempty"` // MB
	Payload      Payload   `json:"data"`
}

// Payload is the kind-specific part of a TelecomEvent. Exactly one concrete
// type exists per EventKind.
type Payload interface {
	Kind() EventKind
}

// CDRPayload carries call detail fields.
type CDRPayload struct {
	Destination     string  `json:"destination,omitempty"`
	CallType        string  `json:"call_type"`
	IsInternational bool    `json:"is_international"`
	Cost            float64 `json:"cost"`
	Pattern         string  `json:"pattern,omitempty"`
}

func (CDRPayload) Kind() EventKind { return KindCDR }

// NetworkPayload carries traffic flow fields.
type NetworkPayload struct {
	Protocol     string `json:"protocol,omitempty"`
	Port         int    `json:"port,omitempty"`
	Packets      int    `json:"packets,omitempty"`
	IsEncrypted  bool   `json:"is_encrypted"`
	AttackVector string `json:"attack_vector,omitempty"`
	Pattern      string `json:"pattern,omitempty"`
}

func (NetworkPayload) Kind() EventKind { return KindNetwork }

// AuthPayload carries subscriber authentication fields.
type AuthPayload struct {
	AuthType  string `json:"auth_type"`
	Success   bool   `json:"success"`
	Location  string `json:"location,omitempty"`
	DeviceID  string `json:"device_id,omitempty"`
	NewDevice bool   `json:"new_device"`
	Pattern   string `json:"pattern,omitempty"`
}

func (AuthPayload) Kind() EventKind { return KindAuth }

// SMSPayload carries messaging fields. The sender is stored as the event's
// PhoneNumber.
type SMSPayload struct {
	Recipient     string `json:"recipient,omitempty"`
	MessageLength int    `json:"message_length"`
	MessageType   string `json:"message_type"`
	ContainsURL   bool   `json:"contains_url"`
	URL           string `json:"url,omitempty"`
	IsBulk        bool   `json:"is_bulk"`
	Pattern       string `json:"pattern,omitempty"`
}

func (SMSPayload) Kind() EventKind { return KindSMS }

// MarshalPayload encodes a payload for the JSONB data column.
func MarshalPayload(p Payload) ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

// UnmarshalPayload decodes the data column into the variant matching kind.
func UnmarshalPayload(kind EventKind, data []byte) (Payload, error) {
	if len(data) == 0 {
		data = []byte("{}")
	}
	var (
		p   Payload
		err error
	)
	switch kind {
	case KindCDR:
		var v CDRPayload
		err = json.Unmarshal(data, &v)
		p = v
	case KindNetwork:
		var v NetworkPayload
		err = json.Unmarshal(data, &v)
		p = v
	case KindAuth:
		var v AuthPayload
		err = json.Unmarshal(data, &v)
		p = v
	case KindSMS:
		var v SMSPayload
		err = json.Unmarshal(data, &v)
		p = v
	default:
		return nil, fmt.Errorf("no payload variant for kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", kind, err)
	}
	return p, nil
}

// TimeRange is a half-open (From, To] interval over event time.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	return t.After(r.From) && !t.After(r.To)
}
