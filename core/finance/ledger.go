package finance

import (
	"github.com/shopspring/decimal"

	"github.com/officialmikal/elimusmart/core/student"
)

// ledger entry kinds
const (
	KindCharge     = "charge"
	KindPayment    = "payment"
	KindAdjustment = "adjustment"
)

var hundred = decimal.NewFromInt(100)

type Stats struct {
	TotalOwed      decimal.Decimal `json:"total_owed"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	Efficiency     float64         `json:"efficiency"` // percent, one decimal
}

// ApplyPayment reduces balance by amount, floored at 0.
func ApplyPayment(balance, amount decimal.Decimal) decimal.Decimal {
	return floor(balance.Sub(amount))
}

// Balance folds chronologically ordered entries into the current balance.
// Charges add up; payments & adjustments can never take the balance below 0.
func Balance(entries []Entry) decimal.Decimal {
	b := decimal.Zero
	for _, e := range entries {
		switch e.Kind {
		case KindCharge:
			b = b.Add(e.Amount)
		case KindPayment:
			b = ApplyPayment(b, e.Amount)
		case KindAdjustment:
			b = floor(b.Add(e.Amount))
		}
	}
	return b
}

// ComputeStats sums the students' current balances & the payments collected.
// Efficiency is collected / (owed + collected) as a percentage, 0 when both are 0.
func ComputeStats(students []student.Student, payments []Payment) Stats {
	stats := Stats{TotalOwed: decimal.Zero, TotalCollected: decimal.Zero}
	for _, s := range students {
		stats.TotalOwed = stats.TotalOwed.Add(s.FeeBalance)
	}
	for _, p := range payments {
		stats.TotalCollected = stats.TotalCollected.Add(p.Amount)
	}
	total := stats.TotalOwed.Add(stats.TotalCollected)
	if total.IsZero() {
		return stats
	}
	stats.Efficiency, _ = stats.TotalCollected.Mul(hundred).Div(total).Round(1).Float64()
	return stats
}

func floor(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
