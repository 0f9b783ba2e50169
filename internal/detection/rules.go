package detection

import "github.com/V4T54L/cellguard/internal/domain"

// Thresholds configures the static rules. All rules are pure functions of an
// aggregate row and these values.
type Thresholds struct {
	SIMBoxCalls              int     `env:"SIMBOX_CALL_THRESHOLD" envDefault:"100"`
	SIMBoxInternationalRatio float64 `env:"SIMBOX_INTERNATIONAL_RATIO" envDefault:"80"`
	SIMSwapAuthFailures      int     `env:"SIMSWAP_AUTH_FAILURE_THRESHOLD" envDefault:"5"`
	DDoSVolumeMB             float64 `env:"DDOS_VOLUME_THRESHOLD_MB" envDefault:"500"`
	SmishingMessages         int     `env:"SMISHING_MESSAGE_THRESHOLD" envDefault:"100"`
	SmishingURLRatio         float64 `env:"SMISHING_URL_RATIO" envDefault:"50"`
}

// DefaultThresholds mirrors the envDefault tags above.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SIMBoxCalls:              100,
		SIMBoxInternationalRatio: 80,
		SIMSwapAuthFailures:      5,
		DDoSVolumeMB:             500,
		SmishingMessages:         100,
		SmishingURLRatio:         50,
	}
}

// IsSIMBox flags high-volume, mostly international calling from one SIM on one cell.
func IsSIMBox(a domain.CDRAggregate, th Thresholds) bool {
	return a.Count > th.SIMBoxCalls && a.InternationalRatio > th.SIMBoxInternationalRatio
}

// IsSIMSwap flags repeated authentication failures or any new-device login.
func IsSIMSwap(a domain.AuthAggregate, th Thresholds) bool {
	return a.FailedAttempts >= th.SIMSwapAuthFailures || a.NewDeviceLogin
}

// IsDDoS flags a source pushing more than the volume threshold inside the window.
func IsDDoS(a domain.NetworkAggregate, th Thresholds) bool {
	return a.TotalVolumeMB > th.DDoSVolumeMB
}

// IsSmishing flags bulk senders whose messages mostly carry links.
func IsSmishing(a domain.SMSAggregate, th Thresholds) bool {
	return a.Count > th.SmishingMessages && a.URLRatio > th.SmishingURLRatio
}

// LabelCDR sets the suspicious flag on every row in place.
func LabelCDR(rows []domain.CDRAggregate, th Thresholds) {
	for i := range rows {
		rows[i].Suspicious = IsSIMBox(rows[i], th)
	}
}

// LabelAuth sets the suspicious flag on every row in place.
func LabelAuth(rows []domain.AuthAggregate, th Thresholds) {
	for i := range rows {
		rows[i].Suspicious = IsSIMSwap(rows[i], th)
	}
}

// LabelNetwork sets the suspicious flag on every row in place.
func LabelNetwork(rows []domain.NetworkAggregate, th Thresholds) {
	for i := range rows {
		rows[i].Suspicious = IsDDoS(rows[i], th)
	}
}

// LabelSMS sets the suspicious flag on every row in place.
func LabelSMS(rows []domain.SMSAggregate, th Thresholds) {
	for i := range rows {
		rows[i].Suspicious = IsSmishing(rows[i], th)
	}
}
