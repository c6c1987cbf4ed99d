package engine

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/underwrite-cli/internal/model"
)

// ErrInvalidTerm is returned by Schedule when the term is not positive.
var ErrInvalidTerm = eris.New("engine: term_months must be positive")

// Schedule produces an exact month-by-month amortizing schedule for a level
// payment loan. annualRate is a decimal (0.055 for 5.5%). A zero rate
// degenerates to pure principal amortization. The final row absorbs rounding
// drift so the ending balance is exactly 0.00; schedules must terminate at
// zero, not at a residual cent.
func Schedule(principal, annualRate float64, termMonths int) ([]model.AmortizationRow, error) {
	if termMonths <= 0 {
		return nil, eris.Wrapf(ErrInvalidTerm, "got %d", termMonths)
	}

	monthlyRate := annualRate / 12
	var payment float64
	if monthlyRate == 0 {
		payment = principal / float64(termMonths)
	} else {
		payment = principal * monthlyRate / (1 - math.Pow(1+monthlyRate, -float64(termMonths)))
	}

	rows := make([]model.AmortizationRow, 0, termMonths)
	balance := principal
	for month := 1; month <= termMonths; month++ {
		interest := balance * monthlyRate
		principalComponent := payment - interest
		rowPayment := payment

		if month == termMonths {
			principalComponent = balance
			rowPayment = interest + principalComponent
			balance = 0
		} else {
			balance = math.Max(balance-principalComponent, 0)
		}

		rows = append(rows, model.AmortizationRow{
			Month:     month,
			Payment:   round2(rowPayment),
			Interest:  round2(interest),
			Principal: round2(principalComponent),
			Balance:   round2(balance),
		})
	}

	return rows, nil
}

// ScheduleTotalInterest sums the per-row interest of a schedule.
func ScheduleTotalInterest(rows []model.AmortizationRow) float64 {
	var total float64
	for _, r := range rows {
		total += r.Interest
	}
	return round2(total)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func roundN(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
