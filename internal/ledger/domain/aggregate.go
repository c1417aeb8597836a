package domain

import "github.com/shopspring/decimal"

// Totals are the derived income/outcome/net figures of a commission.
type Totals struct {
	Income  decimal.Decimal `json:"income"`
	Outcome decimal.Decimal `json:"outcome"`
	Net     decimal.Decimal `json:"net"`
}

// Aggregate sums a voice collection by type. The result depends only on
// the multiset of voices, never on their order, and re-applying it to
// the same input yields the same totals.
func Aggregate(voices []Voice) Totals {
	income := decimal.Zero
	outcome := decimal.Zero

	for _, v := range voices {
		switch v.Type {
		case VoiceTypeIncome:
			income = income.Add(v.Amount)
		case VoiceTypeOutcome:
			outcome = outcome.Add(v.Amount)
		}
	}

	return Totals{
		Income:  income,
		Outcome: outcome,
		Net:     income.Sub(outcome),
	}
}

// Equal compares totals by numeric value.
func (t Totals) Equal(u Totals) bool {
	return t.Income.Equal(u.Income) &&
		t.Outcome.Equal(u.Outcome) &&
		t.Net.Equal(u.Net)
}
