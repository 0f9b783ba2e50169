// Package generator fabricates synthetic telecom records, both normal
// traffic and the fraud patterns the detection rules look for.
package generator

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/V4T54L/cellguard/internal/domain"
)

var (
	districts = []string{
		"Baku District 4", "Nasimi", "Yasamal", "Sabail", "Narimanov",
		"Binagadi", "Surakhani", "Khazar", "Sabunchu", "Nizami",
	}
	internationalCodes = []string{"+1", "+7", "+90", "+971", "+44", "+49", "+33", "+86", "+91"}
	mobilePrefixes     = []string{"50", "51", "55", "70", "77", "99"}
	phishingURLs       = []string{"bit.ly/xyz123", "tinyurl.com/abc789", "goo.gl/def456"}
	authTypes          = []string{"login", "password_reset", "otp_verify"}
	protocols          = []string{"TCP", "UDP", "HTTP", "HTTPS"}
	ports              = []int{80, 443, 8080, 3000, 5432}
)

// Pattern sizes reproduced from the fraud demo scenario.
const (
	SIMBoxCards        = 47
	SIMBoxCallsPerHour = 2347
	SIMBoxCell         = "CELL001"
	SIMBoxCallCost     = 0.15
	SIMSwapTargets     = 3
	DDoSTarget         = "10.0.0.100"
	DDoSSources        = 249
	DDoSRecordsPerMin  = 1000
	SmishingSender     = "+994501234567"
	SmishingMessages   = 500
)

// Generator produces records from a seeded source, so equal seeds and
// clocks yield equal records.
type Generator struct {
	src     *rand.ChaCha8
	rng     *rand.Rand
	now     func() time.Time
	phones  []string
	devices []string
}

// New creates a Generator. A nil clock means time.Now.
func New(seed uint64, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	src := rand.NewChaCha8(key)

	g := &Generator{src: src, rng: rand.New(src), now: now}
	g.phones = g.uniquePhones(500, mobilePrefixes)
	for i := 0; i < 100; i++ {
		g.devices = append(g.devices, g.deviceID())
	}
	return g
}

// Records returns count normal records of kind, followed by the kind's fraud
// patterns when patterns is set.
func (g *Generator) Records(kind domain.EventKind, count int, patterns bool) ([]domain.RawRecord, error) {
	var out []domain.RawRecord
	switch kind {
	case domain.KindCDR:
		out = g.NormalCDRs(count)
		if patterns {
			out = append(out, g.SIMBoxCDRs(SIMBoxCards)...)
			out = append(out, g.SIMSwapCDRs(SIMSwapTargets)...)
		}
	case domain.KindNetwork:
		out = g.NormalTraffic(count)
		if patterns {
			out = append(out, g.DDoSTraffic(5)...)
		}
	case domain.KindAuth:
		out = g.NormalAuth(count)
		if patterns {
			out = append(out, g.SIMSwapAuth(SIMSwapTargets)...)
		}
	case domain.KindSMS:
		out = g.NormalSMS(count)
		if patterns {
			out = append(out, g.SmishingCampaign(SmishingMessages)...)
		}
	default:
		return nil, fmt.Errorf("no generator for kind %q", kind)
	}
	return out, nil
}

// NormalCDRs spreads calls over the last day; one in five is international.
func (g *Generator) NormalCDRs(count int) []domain.RawRecord {
	now := g.now()
	out := make([]domain.RawRecord, 0, count)
	for i := 0; i < count; i++ {
		destination := g.pick(g.phones)
		if g.rng.Float64() < 0.2 {
			destination = g.internationalNumber()
		}
		out = append(out, domain.RawRecord{
			"phone_number":     g.pick(g.phones),
			"call_time":        now.Add(-time.Duration(g.rng.IntN(1440)) * time.Minute),
			"duration":         10 + g.rng.IntN(591),
			"destination":      destination,
			"cell_id":          g.cell(50),
			"call_type":        g.pick([]string{"voice", "video"}),
			"is_international": g.rng.Float64() < 0.2,
			"cost":             round2(0.05 + g.rng.Float64()*1.95),
		})
	}
	return out
}

// SIMBoxCDRs emits short, cheap international calls from sims distinct
// numbers on one cell during the last hour.
func (g *Generator) SIMBoxCDRs(sims int) []domain.RawRecord {
	if sims <= 0 {
		return nil
	}
	now := g.now()
	phones := g.uniquePhones(sims, []string{"50", "51"})
	perSIM := SIMBoxCallsPerHour / sims

	out := make([]domain.RawRecord, 0, perSIM*sims)
	for _, phone := range phones {
		for i := 0; i < perSIM; i++ {
			out = append(out, domain.RawRecord{
				"phone_number":     phone,
				"call_time":        now.Add(-time.Duration(g.rng.IntN(3600)) * time.Second),
				"duration":         20 + g.rng.IntN(16),
				"destination":      g.internationalNumber(),
				"cell_id":          SIMBoxCell,
				"call_type":        "voice",
				"is_international": true,
				"cost":             SIMBoxCallCost,
				"pattern":          "simbox",
			})
		}
	}
	return out
}

// SIMSwapCDRs emits a burst of expensive international calls from targets
// existing subscribers over the last fifteen minutes.
func (g *Generator) SIMSwapCDRs(targets int) []domain.RawRecord {
	base := g.now().Add(-15 * time.Minute)
	var out []domain.RawRecord
	for _, phone := range g.sample(g.phones, targets) {
		calls := 5 + g.rng.IntN(11)
		for i := 0; i < calls; i++ {
			out = append(out, domain.RawRecord{
				"phone_number":     phone,
				"call_time":        base.Add(time.Duration(i) * time.Minute),
				"duration":         30 + g.rng.IntN(91),
				"destination":      fmt.Sprintf("+1%d", 2000000000+g.rng.Int64N(8000000000)),
				"cell_id":          g.cell(10),
				"call_type":        "voice",
				"is_international": true,
				"cost":             round2(1.5 + g.rng.Float64()*1.5),
				"pattern":          "simswap",
			})
		}
	}
	return out
}

// NormalTraffic emits one small flow per second, most of it encrypted.
func (g *Generator) NormalTraffic(count int) []domain.RawRecord {
	base := g.now().Add(-time.Duration(count) * time.Second)
	out := make([]domain.RawRecord, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, domain.RawRecord{
			"timestamp":    base.Add(time.Duration(i+1) * time.Second),
			"source_ip":    fmt.Sprintf("192.168.%d.%d", 1+g.rng.IntN(254), 1+g.rng.IntN(254)),
			"dest_ip":      fmt.Sprintf("10.%d.%d.%d", g.rng.IntN(256), g.rng.IntN(256), 1+g.rng.IntN(254)),
			"bytes":        500 + g.rng.IntN(49501),
			"packets":      5 + g.rng.IntN(96),
			"protocol":     g.pick(protocols),
			"port":         ports[g.rng.IntN(len(ports))],
			"is_encrypted": g.rng.Float64() < 0.7,
		})
	}
	return out
}

// DDoSTraffic emits a UDP flood from a botnet against one target for the
// given number of minutes, ending now.
func (g *Generator) DDoSTraffic(minutes int) []domain.RawRecord {
	total := minutes * DDoSRecordsPerMin
	base := g.now().Add(-time.Duration(minutes) * time.Minute)
	step := time.Minute / DDoSRecordsPerMin

	out := make([]domain.RawRecord, 0, total)
	for i := 0; i < total; i++ {
		out = append(out, domain.RawRecord{
			"timestamp":     base.Add(time.Duration(i+1) * step),
			"source_ip":     fmt.Sprintf("192.168.1.%d", 1+g.rng.IntN(DDoSSources)),
			"dest_ip":       DDoSTarget,
			"bytes":         100000 + g.rng.IntN(400001),
			"packets":       100 + g.rng.IntN(901),
			"protocol":      "UDP",
			"port":          ports[g.rng.IntN(2)],
			"is_encrypted":  false,
			"attack_vector": "UDP Flood",
			"pattern":       "ddos",
		})
	}
	return out
}

// NormalAuth emits mostly successful logins from known devices.
func (g *Generator) NormalAuth(count int) []domain.RawRecord {
	now := g.now()
	out := make([]domain.RawRecord, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, domain.RawRecord{
			"timestamp":    now.Add(-time.Duration(g.rng.IntN(720)) * time.Minute),
			"phone_number": g.phone([]string{"50", "51", "55"}),
			"auth_type":    g.pick(authTypes),
			"success":      g.rng.Float64() < 0.95,
			"ip_address":   fmt.Sprintf("192.168.%d.%d", 1+g.rng.IntN(254), 1+g.rng.IntN(254)),
			"location":     g.pick(districts),
			"device_id":    g.pick(g.devices),
			"new_device":   g.rng.Float64() < 0.05,
		})
	}
	return out
}

// SIMSwapAuth emits, per target, five to ten failed logins from fresh
// devices followed by a successful login from yet another new device.
func (g *Generator) SIMSwapAuth(targets int) []domain.RawRecord {
	base := g.now().Add(-15 * time.Minute)
	var out []domain.RawRecord
	for _, phone := range g.uniquePhones(targets, []string{"50", "51"}) {
		failures := 5 + g.rng.IntN(6)
		for i := 0; i < failures; i++ {
			out = append(out, domain.RawRecord{
				"timestamp":    base.Add(time.Duration(i) * time.Minute),
				"phone_number": phone,
				"auth_type":    "login",
				"success":      false,
				"ip_address":   g.foreignIP(),
				"location":     g.pick([]string{"Unknown", "Foreign"}),
				"device_id":    g.deviceID(),
				"new_device":   true,
				"pattern":      "simswap_attempt",
			})
		}
		out = append(out, domain.RawRecord{
			"timestamp":    base.Add(12 * time.Minute),
			"phone_number": phone,
			"auth_type":    "login",
			"success":      true,
			"ip_address":   g.foreignIP(),
			"location":     "Foreign",
			"device_id":    g.deviceID(),
			"new_device":   true,
			"pattern":      "simswap_success",
		})
	}
	return out
}

// NormalSMS emits person-to-person messages, a tenth of them with a link.
func (g *Generator) NormalSMS(count int) []domain.RawRecord {
	now := g.now()
	out := make([]domain.RawRecord, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, domain.RawRecord{
			"timestamp":      now.Add(-time.Duration(g.rng.IntN(360)) * time.Minute),
			"sender":         g.phone([]string{"50", "51", "55"}),
			"recipient":      g.phone([]string{"50", "51", "55"}),
			"message_length": 10 + g.rng.IntN(151),
			"message_type":   "P2P",
			"contains_url":   g.rng.Float64() < 0.1,
			"is_bulk":        false,
		})
	}
	return out
}

// SmishingCampaign emits count bulk messages carrying phishing links from a
// single sender, two seconds apart.
func (g *Generator) SmishingCampaign(count int) []domain.RawRecord {
	base := g.now().Add(-time.Duration(2*count) * time.Second)
	out := make([]domain.RawRecord, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, domain.RawRecord{
			"timestamp":      base.Add(time.Duration(2*(i+1)) * time.Second),
			"sender":         SmishingSender,
			"recipient":      g.phone([]string{"50", "51", "55"}),
			"message_length": 100 + g.rng.IntN(61),
			"message_type":   "bulk",
			"contains_url":   true,
			"url":            g.pick(phishingURLs),
			"is_bulk":        true,
			"pattern":        "smishing",
		})
	}
	return out
}

func (g *Generator) phone(prefixes []string) string {
	return fmt.Sprintf("+994%s%d", g.pick(prefixes), 1000000+g.rng.IntN(9000000))
}

func (g *Generator) uniquePhones(n int, prefixes []string) []string {
	seen := make(map[string]struct{}, n)
	out := make([]string, 0, n)
	for len(out) < n {
		p := g.phone(prefixes)
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func (g *Generator) internationalNumber() string {
	return fmt.Sprintf("%s%d", g.pick(internationalCodes), 1000000000+g.rng.Int64N(9000000000))
}

func (g *Generator) foreignIP() string {
	return fmt.Sprintf("203.%d.%d.%d", 1+g.rng.IntN(254), 1+g.rng.IntN(254), 1+g.rng.IntN(254))
}

func (g *Generator) cell(n int) string {
	return fmt.Sprintf("CELL%03d", 1+g.rng.IntN(n))
}

func (g *Generator) deviceID() string {
	return uuid.Must(uuid.NewRandomFromReader(g.src)).String()
}

func (g *Generator) pick(values []string) string {
	return values[g.rng.IntN(len(values))]
}

func (g *Generator) sample(values []string, n int) []string {
	if n > len(values) {
		n = len(values)
	}
	idx := g.rng.Perm(len(values))[:n]
	out := make([]string, n)
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
