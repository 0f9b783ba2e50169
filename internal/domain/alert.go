package domain

import "time"

// Severity ranks an alert. The order of the constants is significant.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns a comparable ordinal for the severity, 0 for unknown values.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// AlertType names the fraud pattern an alert reports.
type AlertType string

const (
	AlertSIMBox   AlertType = "SIM-Box Operation"
	AlertSIMSwap  AlertType = "SIM-Swap Attempts"
	AlertDDoS     AlertType = "DDoS Attack"
	AlertSmishing AlertType = "Smishing Campaign"
)

// AlertStatusActive is the status every materialized alert starts in.
const AlertStatusActive = "active"

// FraudAlert is a detection result persisted to the relational store. It is
// never mutated after creation; status transitions happen in the store.
type FraudAlert struct {
	ID              string         `json:"id"`
	Number          string         `json:"alertNumber"`
	Type            AlertType      `json:"type"`
	Severity        Severity       `json:"severity"`
	Status          string         `json:"status"`
	ConfidenceScore int            `json:"confidence"`
	AffectedEntity  string         `json:"affectedEntity"`
	Location        string         `json:"location"`
	DetectionTime   time.Time      `json:"detectionTime"`
	Explanation     []string       `json:"aiAnalysis"`
	Correlation     map[string]any `json:"correlation,omitempty"`
	RevenueAtRisk   float64        `json:"revenueAtRisk"`
}

// DashboardCounts are the aggregate figures read back from the alert store.
type DashboardCounts struct {
	ActiveCount   int64
	AtRiskRevenue float64
}
