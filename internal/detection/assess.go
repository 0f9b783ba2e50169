package detection

import (
	"fmt"

	"github.com/V4T54L/cellguard/internal/domain"
)

// Per-rule confidence scores. These are fixed, not modelled.
const (
	confidenceSIMBox   = 95
	confidenceSIMSwap  = 89
	confidenceDDoS     = 87
	confidenceSmishing = 80
)

// Assessment is everything an alert needs beyond its identity and timestamp.
type Assessment struct {
	Type           domain.AlertType
	Severity       domain.Severity
	Confidence     int
	AffectedEntity string
	Location       string
	Explanation    []string
	Correlation    map[string]any
	RevenueAtRisk  float64
}

// Assess describes a suspicious row. It returns false for rows that are not
// flagged or whose type has no rule.
//
// Severity grows with the measured magnitude relative to the threshold:
// SIM-box and DDoS escalate from high to critical at twice the threshold,
// SIM-swap is medium for a new-device login alone, high at the failure
// threshold and critical at twice it, smishing is medium and becomes high
// at twice the message threshold.
func Assess(row domain.Aggregate, th Thresholds) (Assessment, bool) {
	if !row.Header().Suspicious {
		return Assessment{}, false
	}
	switch r := row.(type) {
	case domain.CDRAggregate:
		return assessSIMBox(r, th), true
	case domain.AuthAggregate:
		return assessSIMSwap(r, th), true
	case domain.NetworkAggregate:
		return assessDDoS(r, th), true
	case domain.SMSAggregate:
		return assessSmishing(r, th), true
	default:
		return Assessment{}, false
	}
}

func assessSIMBox(r domain.CDRAggregate, th Thresholds) Assessment {
	sev := domain.SeverityHigh
	if r.Count >= 2*th.SIMBoxCalls {
		sev = domain.SeverityCritical
	}
	return Assessment{
		Type:           domain.AlertSIMBox,
		Severity:       sev,
		Confidence:     confidenceSIMBox,
		AffectedEntity: r.PhoneNumber,
		Location:       r.CellID,
		Explanation: []string{
			fmt.Sprintf("%d calls in window exceed SIM-box threshold of %d", r.Count, th.SIMBoxCalls),
			fmt.Sprintf("international ratio %.1f%% exceeds %.1f%%", r.InternationalRatio, th.SIMBoxInternationalRatio),
		},
		Correlation: map[string]any{
			"calls_per_window":    r.Count,
			"international_calls": r.InternationalCalls,
			"international_ratio": r.InternationalRatio,
			"avg_cost":            r.AvgCost,
			"last_call_time":      r.LastCallTime,
			"window_start":        r.WindowStart,
			"window_end":          r.WindowEnd,
			"detection_method":    "threshold rule: simbox",
		},
		RevenueAtRisk: float64(r.InternationalCalls) * r.AvgCost,
	}
}

func assessSIMSwap(r domain.AuthAggregate, th Thresholds) Assessment {
	var (
		sev     = domain.SeverityMedium
		reasons []string
	)
	if r.FailedAttempts >= th.SIMSwapAuthFailures {
		sev = domain.SeverityHigh
		if r.FailedAttempts >= 2*th.SIMSwapAuthFailures {
			sev = domain.SeverityCritical
		}
		reasons = append(reasons, fmt.Sprintf("%d failed authentication attempts reach SIM-swap threshold of %d", r.FailedAttempts, th.SIMSwapAuthFailures))
	}
	if r.NewDeviceLogin {
		reasons = append(reasons, "authentication from a previously unseen device")
	}
	location := r.LastLocation
	if location == "" {
		location = "Unknown"
	}
	return Assessment{
		Type:           domain.AlertSIMSwap,
		Severity:       sev,
		Confidence:     confidenceSIMSwap,
		AffectedEntity: r.PhoneNumber,
		Location:       location,
		Explanation:    reasons,
		Correlation: map[string]any{
			"attempts":         r.Count,
			"failed_attempts":  r.FailedAttempts,
			"new_device":       r.NewDeviceLogin,
			"window_start":     r.WindowStart,
			"window_end":       r.WindowEnd,
			"detection_method": "threshold rule: simswap",
		},
	}
}

func assessDDoS(r domain.NetworkAggregate, th Thresholds) Assessment {
	sev := domain.SeverityHigh
	if r.TotalVolumeMB >= 2*th.DDoSVolumeMB {
		sev = domain.SeverityCritical
	}
	return Assessment{
		Type:           domain.AlertDDoS,
		Severity:       sev,
		Confidence:     confidenceDDoS,
		AffectedEntity: r.SourceIP,
		Location:       r.LastTarget,
		Explanation: []string{
			fmt.Sprintf("%.1f MB sent in window exceeds DDoS threshold of %.1f MB", r.TotalVolumeMB, th.DDoSVolumeMB),
		},
		Correlation: map[string]any{
			"flows":            r.Count,
			"volume_mb":        r.TotalVolumeMB,
			"encrypted_ratio":  r.EncryptedRatio,
			"distinct_targets": r.DistinctTargets,
			"window_start":     r.WindowStart,
			"window_end":       r.WindowEnd,
			"detection_method": "threshold rule: ddos",
		},
	}
}

func assessSmishing(r domain.SMSAggregate, th Thresholds) Assessment {
	sev := domain.SeverityMedium
	if r.Count >= 2*th.SmishingMessages {
		sev = domain.SeverityHigh
	}
	return Assessment{
		Type:           domain.AlertSmishing,
		Severity:       sev,
		Confidence:     confidenceSmishing,
		AffectedEntity: r.Sender,
		Location:       "Multiple",
		Explanation: []string{
			fmt.Sprintf("%d messages in window exceed smishing threshold of %d", r.Count, th.SmishingMessages),
			fmt.Sprintf("%.1f%% of messages carry a URL, above %.1f%%", r.URLRatio, th.SmishingURLRatio),
		},
		Correlation: map[string]any{
			"messages":         r.Count,
			"url_messages":     r.URLMessages,
			"bulk_messages":    r.BulkCount,
			"window_start":     r.WindowStart,
			"window_end":       r.WindowEnd,
			"detection_method": "threshold rule: smishing",
		},
	}
}
