package domain

// PayloadDefaults enumerates, once per kind, the value a payload field takes
// when the raw record omits it.
type PayloadDefaults struct {
	CDR     CDRPayload
	Network NetworkPayload
	Auth    AuthPayload
	SMS     SMSPayload
}

// DefaultPayloads returns the defaults applied during ingestion.
func DefaultPayloads() PayloadDefaults {
	return PayloadDefaults{
		CDR: CDRPayload{
			CallType:        "voice",
			IsInternational: false,
			Cost:            0.0,
		},
		Network: NetworkPayload{
			IsEncrypted: false,
		},
		Auth: AuthPayload{
			AuthType:  "login",
			Success:   true,
			NewDevice: false,
		},
		SMS: SMSPayload{
			MessageType: "P2P",
			ContainsURL: false,
			IsBulk:      false,
		},
	}
}

// TimeField returns the raw record field holding the event time for a kind.
func TimeField(kind EventKind) string {
	if kind == KindCDR {
		return "call_time"
	}
	return "timestamp"
}
