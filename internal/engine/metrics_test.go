package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/underwrite-cli/internal/model"
)

func levelPaymentWant(principal, annualRate float64, term int) float64 {
	r := annualRate / 12
	return principal * r / (1 - math.Pow(1+r, -float64(term)))
}

func TestComputeResidentialMortgage(t *testing.T) {
	e := New(DefaultConfig())

	lm, audit := e.Compute(model.RawRecord{
		"borrower":             "Jane Example",
		"income":               85000,
		"loan_amount":          240000,
		"property_value":       330000,
		"interest_rate_annual": 5.5,
		"term_months":          300,
	})

	require.NotNil(t, lm.LTV)
	assert.Equal(t, 0.7273, *lm.LTV)
	assert.Nil(t, lm.LTC)

	require.NotNil(t, lm.MonthlyAmortisingPayment)
	assert.InDelta(t, levelPaymentWant(240000, 0.055, 300), *lm.MonthlyAmortisingPayment, 0.01)

	require.NotNil(t, lm.MonthlyInterestOnlyPayment)
	assert.Equal(t, 1100.0, *lm.MonthlyInterestOnlyPayment)

	// No rent, no explicit NOI, so the income proxy applies.
	require.NotNil(t, lm.NOI)
	assert.Equal(t, 25500.0, *lm.NOI)
	assert.False(t, lm.NOIEstimatedFromRent)
	assert.True(t, lm.NOIEstimatedFromIncomeProxy)

	require.NotNil(t, lm.DSCRAmortising)
	assert.Greater(t, *lm.DSCRAmortising, 1.25)

	// LTV above the 0.7 policy line derives a flag, which lifts the score
	// from 0.25 to exactly the Medium boundary.
	assert.Equal(t, []string{"High LTV"}, lm.PolicyFlags)
	assert.Equal(t, 0.4, lm.RiskScoreComputed)
	assert.Equal(t, model.RiskMedium, lm.RiskCategory)
	assert.Equal(t, []string{"Policy / bank flags present"}, lm.RiskReasons)

	assert.NotContains(t, audit, "Missing or invalid loan_amount")
	assert.Len(t, lm.AmortizationPreviewRows, 12)
}

func TestComputeBridgingLoan(t *testing.T) {
	e := New(DefaultConfig())

	lm, _ := e.Compute(model.RawRecord{
		"loan_amount":          200000,
		"property_value":       300000,
		"project_cost":         260000,
		"interest_rate_annual": 9.5,
		"annual_rent":          24000,
		"operating_costs":      3600,
	})

	require.NotNil(t, lm.LTV)
	assert.Equal(t, 0.6667, *lm.LTV)
	require.NotNil(t, lm.LTC)
	assert.Equal(t, 0.7692, *lm.LTC)

	// No term: no amortizing payment, interest-only still computes.
	assert.Nil(t, lm.MonthlyAmortisingPayment)
	require.NotNil(t, lm.MonthlyInterestOnlyPayment)
	assert.Equal(t, 1583.33, *lm.MonthlyInterestOnlyPayment)

	require.NotNil(t, lm.NOI)
	assert.Equal(t, 20400.0, *lm.NOI)
	assert.True(t, lm.NOIEstimatedFromRent)
	assert.False(t, lm.NOIEstimatedFromIncomeProxy)

	assert.Nil(t, lm.DSCRAmortising)
	require.NotNil(t, lm.DSCRInterestOnly)
	assert.Equal(t, 1.074, *lm.DSCRInterestOnly)

	// LTV 0.5 weight x 0.5 band + DSCR 0.35 weight x 0.5 band, no flags.
	assert.Empty(t, lm.PolicyFlags)
	assert.Equal(t, 0.425, lm.RiskScoreComputed)
	assert.Equal(t, model.RiskMedium, lm.RiskCategory)
	assert.Equal(t, []string{"No automated flags detected"}, lm.RiskReasons)
}

func TestComputeImplausibleLoan(t *testing.T) {
	e := New(DefaultConfig())

	raw := model.RawRecord{
		"loan_amount":    50,
		"property_value": 250000,
	}
	rec, _ := Canonicalize(raw)
	assert.True(t, ImplausibleLoan(&rec))

	_, audit := e.Compute(raw)
	assert.Contains(t, audit, "Property value is orders of magnitude larger than loan - please verify fields were not swapped")
}

func TestComputeRateNormalization(t *testing.T) {
	e := New(DefaultConfig())

	base := model.RawRecord{
		"loan_amount":    240000,
		"property_value": 330000,
		"term_months":    300,
	}
	pct := model.RawRecord{"interest_rate_annual": 5.5}
	dec := model.RawRecord{"interest_rate_annual": 0.055}
	for k, v := range base {
		pct[k] = v
		dec[k] = v
	}

	lmPct, _ := e.Compute(pct)
	lmDec, _ := e.Compute(dec)

	require.NotNil(t, lmPct.MonthlyAmortisingPayment)
	require.NotNil(t, lmDec.MonthlyAmortisingPayment)
	assert.Equal(t, *lmPct.MonthlyAmortisingPayment, *lmDec.MonthlyAmortisingPayment)
	assert.Equal(t, *lmPct.MonthlyInterestOnlyPayment, *lmDec.MonthlyInterestOnlyPayment)
}

func TestComputeEmptyRecord(t *testing.T) {
	e := New(DefaultConfig())

	lm, audit := e.Compute(model.RawRecord{})

	assert.Nil(t, lm.LTV)
	assert.Nil(t, lm.LTC)
	assert.Nil(t, lm.MonthlyAmortisingPayment)
	assert.Nil(t, lm.MonthlyInterestOnlyPayment)
	assert.Nil(t, lm.NOI)
	assert.Nil(t, lm.DSCRAmortising)

	// No inputs means no LTV penalty but maximal DSCR risk.
	assert.Equal(t, 0.35, lm.RiskScoreComputed)
	assert.Equal(t, model.RiskLow, lm.RiskCategory)
	assert.Equal(t, []string{"No automated flags detected"}, lm.RiskReasons)

	assert.Contains(t, audit, "Missing or invalid loan_amount")
	assert.Contains(t, audit, "Missing or invalid property_value")
	assert.Contains(t, audit, "Interest rate not provided or invalid")
}

func TestComputeNilRecord(t *testing.T) {
	e := New(DefaultConfig())
	lm, _ := e.Compute(nil)
	require.NotNil(t, lm)
	assert.Nil(t, lm.LTV)
}

func TestComputeNOIPrecedence(t *testing.T) {
	e := New(DefaultConfig())

	tests := []struct {
		name      string
		raw       model.RawRecord
		want      float64
		fromRent  bool
		fromProxy bool
	}{
		{
			"explicit noi wins",
			model.RawRecord{"noi": 30000, "annual_rent": 24000, "income": 85000},
			30000, false, false,
		},
		{
			"rent minus expenses",
			model.RawRecord{"annual_rent": 24000, "operating_costs": 3600, "income": 85000},
			20400, true, false,
		},
		{
			"rent with no expenses",
			model.RawRecord{"annual_rent": 24000},
			24000, true, false,
		},
		{
			"income proxy",
			model.RawRecord{"income": 85000},
			25500, false, true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lm, _ := e.Compute(tt.raw)
			require.NotNil(t, lm.NOI)
			assert.Equal(t, tt.want, *lm.NOI)
			assert.Equal(t, tt.fromRent, lm.NOIEstimatedFromRent)
			assert.Equal(t, tt.fromProxy, lm.NOIEstimatedFromIncomeProxy)
		})
	}

	lm, _ := e.Compute(model.RawRecord{"loan_amount": 240000})
	assert.Nil(t, lm.NOI)
}

func TestComputeSuppliedFlagsSuppressDerivation(t *testing.T) {
	e := New(DefaultConfig())

	// Caller-supplied policy flags are passed through untouched even when
	// the derived rules would add more.
	lm, _ := e.Compute(model.RawRecord{
		"loan_amount":    240000,
		"property_value": 330000,
		"policy_flags":   []any{"Manual review"},
	})

	assert.Equal(t, []string{"Manual review"}, lm.PolicyFlags)
}

func TestComputeFlagDerivationDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DerivePolicyFlags = false
	e := New(cfg)

	lm, _ := e.Compute(model.RawRecord{
		"loan_amount":    240000,
		"property_value": 330000,
	})

	assert.Empty(t, lm.PolicyFlags)
	// Without the derived flag the flags component contributes nothing.
	assert.Equal(t, 0.6, lm.RiskScoreComputed)
}

func TestComputeRiskScoreBounds(t *testing.T) {
	e := New(DefaultConfig())

	// Worst case: extreme LTV, no DSCR inputs, red flags present.
	lm, _ := e.Compute(model.RawRecord{
		"loan_amount":    300000,
		"property_value": 310000,
		"bank_red_flags": []any{"missed payments"},
	})
	assert.Equal(t, 1.0, lm.RiskScoreComputed)
	assert.Equal(t, model.RiskHigh, lm.RiskCategory)

	score := lm.RiskScoreComputed
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}

func TestComputeHeuristicScore(t *testing.T) {
	e := New(DefaultConfig())

	lm, _ := e.Compute(model.RawRecord{
		"loan_amount":     240000,
		"property_value":  330000,
		"income":          85000,
		"overdrafts":      2,
		"valuation_score": 0.8,
	})

	want := HeuristicRiskScore(85000, 240000.0/330000.0, 2, 0.8)
	assert.InDelta(t, want, lm.RiskScoreHeuristic, 0.002)
}

func TestHeuristicRiskScoreClamped(t *testing.T) {
	assert.Equal(t, 0.0, HeuristicRiskScore(1000000, 0, 0, 1))
	assert.Equal(t, 1.0, HeuristicRiskScore(0, 1.5, 10, 0))
	assert.InDelta(t, 0.39, HeuristicRiskScore(50000, 0.5, 0, 0.1), 1e-9)
}

func TestComputeRecoversEmbeddedFields(t *testing.T) {
	e := New(DefaultConfig())

	lm, audit := e.Compute(model.RawRecord{
		"loan_amount":    250000,
		"property_value": 400000,
		"notes":          `"interest_rate_annual": 9.5, loan_term_months: 12`,
	})

	require.NotNil(t, lm.MonthlyAmortisingPayment)
	assert.InDelta(t, levelPaymentWant(250000, 0.095, 12), *lm.MonthlyAmortisingPayment, 0.01)
	assert.Contains(t, audit, "Recovered fields from embedded text: interest_rate_annual, loan_term_months")
}

func TestComputePreviewRowCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PreviewRows = 6
	e := New(cfg)

	lm, _ := e.Compute(model.RawRecord{
		"loan_amount":          240000,
		"interest_rate_annual": 5.5,
		"term_months":          3,
	})

	// Preview never exceeds the schedule itself.
	assert.Len(t, lm.AmortizationPreviewRows, 3)
}
