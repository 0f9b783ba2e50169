package domain

import "time"

// AggregateHeader holds the fields every per-entity aggregate row shares.
// Rows are transient: they are recomputed on every detection run.
type AggregateHeader struct {
	EntityKey   string    `json:"entity_key"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	Count       int       `json:"count"`
	Suspicious  bool      `json:"suspicious"`
}

// Aggregate is implemented by every aggregate row type.
type Aggregate interface {
	Header() AggregateHeader
}

// CDRAggregate summarizes calls per (phone number, cell). Count is the call count.
type CDRAggregate struct {
	AggregateHeader
	PhoneNumber        string    `json:"phone_number"`
	CellID             string    `json:"cell_id"`
	AvgCost            float64   `json:"avg_cost"`
	InternationalCalls int       `json:"international_calls"`
	InternationalRatio float64   `json:"international_ratio"` // percent
	LastCallTime       time.Time `json:"last_call_time"`
}

func (a CDRAggregate) Header() AggregateHeader { return a.AggregateHeader }

// AuthAggregate summarizes authentication attempts per phone number.
type AuthAggregate struct {
	AggregateHeader
	PhoneNumber    string `json:"phone_number"`
	FailedAttempts int    `json:"failed_attempts"`
	NewDeviceLogin bool   `json:"new_device_login"`
	LastLocation   string `json:"last_location,omitempty"`
}

func (a AuthAggregate) Header() AggregateHeader { return a.AggregateHeader }

// NetworkAggregate summarizes traffic per source IP.
type NetworkAggregate struct {
	AggregateHeader
	SourceIP        string  `json:"source_ip"`
	TotalVolumeMB   float64 `json:"total_volume_mb"`
	EncryptedRatio  float64 `json:"encrypted_ratio"` // percent
	DistinctTargets int     `json:"distinct_targets"`
	LastTarget      string  `json:"last_target,omitempty"`
}

func (a NetworkAggregate) Header() AggregateHeader { return a.AggregateHeader }

// SMSAggregate summarizes messages per sender. Count is the message count.
type SMSAggregate struct {
	AggregateHeader
	Sender      string  `json:"sender"`
	URLMessages int     `json:"url_messages"`
	URLRatio    float64 `json:"url_ratio"` // percent
	BulkCount   int     `json:"bulk_count"`
}

func (a SMSAggregate) Header() AggregateHeader { return a.AggregateHeader }
