package detection

import "github.com/V4T54L/cellguard/internal/domain"

// orderedGroups keeps one accumulator per entity key, in the order each key
// was first seen.
type orderedGroups[A any] struct {
	index map[string]int
	accs  []A
}

func newOrderedGroups[A any]() *orderedGroups[A] {
	return &orderedGroups[A]{index: make(map[string]int)}
}

func (g *orderedGroups[A]) get(key string, init func() A) *A {
	i, ok := g.index[key]
	if !ok {
		i = len(g.accs)
		g.index[key] = i
		g.accs = append(g.accs, init())
	}
	return &g.accs[i]
}

func header(key string, window domain.TimeRange) domain.AggregateHeader {
	return domain.AggregateHeader{EntityKey: key, WindowStart: window.From, WindowEnd: window.To}
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

type cdrAcc struct {
	row       domain.CDRAggregate
	totalCost float64
}

// GroupCDR aggregates call records per (phone number, cell).
func GroupCDR(events []domain.TelecomEvent, window domain.TimeRange) []domain.CDRAggregate {
	groups := newOrderedGroups[cdrAcc]()
	for _, ev := range events {
		key := ev.PhoneNumber + "|" + ev.CellID
		acc := groups.get(key, func() cdrAcc {
			return cdrAcc{row: domain.CDRAggregate{
				AggregateHeader: header(key, window),
				PhoneNumber:     ev.PhoneNumber,
				CellID:          ev.CellID,
			}}
		})
		p, _ := ev.Payload.(domain.CDRPayload)
		acc.row.Count++
		acc.totalCost += p.Cost
		if p.IsInternational {
			acc.row.InternationalCalls++
		}
		if ev.Time.After(acc.row.LastCallTime) {
			acc.row.LastCallTime = ev.Time
		}
	}

	rows := make([]domain.CDRAggregate, len(groups.accs))
	for i, acc := range groups.accs {
		row := acc.row
		row.AvgCost = acc.totalCost / float64(row.Count)
		row.InternationalRatio = percent(row.InternationalCalls, row.Count)
		rows[i] = row
	}
	return rows
}

type authAcc struct {
	row      domain.AuthAggregate
	lastSeen domain.TelecomEvent
}

// GroupAuth aggregates authentication attempts per phone number.
func GroupAuth(events []domain.TelecomEvent, window domain.TimeRange) []domain.AuthAggregate {
	groups := newOrderedGroups[authAcc]()
	for _, ev := range events {
		acc := groups.get(ev.PhoneNumber, func() authAcc {
			return authAcc{row: domain.AuthAggregate{
				AggregateHeader: header(ev.PhoneNumber, window),
				PhoneNumber:     ev.PhoneNumber,
			}}
		})
		p, _ := ev.Payload.(domain.AuthPayload)
		acc.row.Count++
		if !p.Success {
			acc.row.FailedAttempts++
		}
		if p.NewDevice {
			acc.row.NewDeviceLogin = true
		}
		if !ev.Time.Before(acc.lastSeen.Time) && p.Location != "" {
			acc.lastSeen = ev
			acc.row.LastLocation = p.Location
		}
	}

	rows := make([]domain.AuthAggregate, len(groups.accs))
	for i, acc := range groups.accs {
		rows[i] = acc.row
	}
	return rows
}

type networkAcc struct {
	row       domain.NetworkAggregate
	encrypted int
	targets   map[string]struct{}
}

// GroupNetwork aggregates traffic per source IP.
func GroupNetwork(events []domain.TelecomEvent, window domain.TimeRange) []domain.NetworkAggregate {
	groups := newOrderedGroups[networkAcc]()
	for _, ev := range events {
		acc := groups.get(ev.SourceIP, func() networkAcc {
			return networkAcc{
				row: domain.NetworkAggregate{
					AggregateHeader: header(ev.SourceIP, window),
					SourceIP:        ev.SourceIP,
				},
				targets: make(map[string]struct{}),
			}
		})
		p, _ := ev.Payload.(domain.NetworkPayload)
		acc.row.Count++
		if ev.DataVolume != nil {
			acc.row.TotalVolumeMB += *ev.DataVolume
		}
		if p.IsEncrypted {
			acc.encrypted++
		}
		if ev.DestIP != "" {
			acc.targets[ev.DestIP] = struct{}{}
			acc.row.LastTarget = ev.DestIP
		}
	}

	rows := make([]domain.NetworkAggregate, len(groups.accs))
	for i, acc := range groups.accs {
		row := acc.row
		row.EncryptedRatio = percent(acc.encrypted, row.Count)
		row.DistinctTargets = len(acc.targets)
		rows[i] = row
	}
	return rows
}

// GroupSMS aggregates messages per sender.
func GroupSMS(events []domain.TelecomEvent, window domain.TimeRange) []domain.SMSAggregate {
	groups := newOrderedGroups[domain.SMSAggregate]()
	for _, ev := range events {
		row := groups.get(ev.PhoneNumber, func() domain.SMSAggregate {
			return domain.SMSAggregate{
				AggregateHeader: header(ev.PhoneNumber, window),
				Sender:          ev.PhoneNumber,
			}
		})
		p, _ := ev.Payload.(domain.SMSPayload)
		row.Count++
		if p.ContainsURL {
			row.URLMessages++
		}
		if p.IsBulk {
			row.BulkCount++
		}
	}

	rows := groups.accs
	if rows == nil {
		return []domain.SMSAggregate{}
	}
	for i := range rows {
		rows[i].URLRatio = percent(rows[i].URLMessages, rows[i].Count)
	}
	return rows
}
