package transaction

import "github.com/shopspring/decimal"

// Statistics are aggregate values derived from the full in memory
// transaction sequence. They are recomputed on every state change,
// there is no incremental maintenance.
type Statistics struct {
	TotalReceived  decimal.Decimal `json:"total_received"`
	TotalSent      decimal.Decimal `json:"total_sent"`
	PendingCount   int             `json:"pending_count"`
	CompletedCount int             `json:"completed_count"`
}

// Summarize computes aggregate statistics over the given transactions.
// Totals count completed transactions only, split by direction.
func Summarize(trxs []Transaction) Statistics {
	s := Statistics{TotalReceived: decimal.Zero, TotalSent: decimal.Zero}
	for _, trx := range trxs {
		switch trx.Status {
		case StatusPending:
			s.PendingCount++
		case StatusCompleted:
			s.CompletedCount++
			switch trx.Direction {
			case DirectionReceived:
				s.TotalReceived = s.TotalReceived.Add(trx.Amount)
			case DirectionSent:
				s.TotalSent = s.TotalSent.Add(trx.Amount)
			}
		}
	}
	return s
}
