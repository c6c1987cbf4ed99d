// Package model defines the value objects exchanged between the underwriting
// engine, its persistence layer, and external callers.
package model

// RawRecord is the open-ended field mapping supplied by callers. Labels carry
// arbitrary casing, spacing, and punctuation; values may be numbers,
// currency-formatted strings, or free text with embedded key:value fragments.
// Unknown labels are ignored, never an error.
type RawRecord map[string]any

// CanonicalRecord is a RawRecord resolved onto the fixed field vocabulary.
// Numeric fields are nil when absent or unparsable so downstream logic can
// uniformly check presence.
type CanonicalRecord struct {
	LoanAmount          *float64 `json:"loan_amount"`
	PropertyValue       *float64 `json:"property_value"`
	ProjectCost         *float64 `json:"project_cost"`
	TotalCost           *float64 `json:"total_cost"`
	InterestRateAnnual  *float64 `json:"interest_rate_annual"`
	TermMonths          *float64 `json:"term_months"`
	Income              *float64 `json:"income"`
	NOI                 *float64 `json:"noi"`
	AnnualRent          *float64 `json:"annual_rent"`
	OperatingExpenses   *float64 `json:"operating_expenses"`
	MonthlyRent         *float64 `json:"monthly_rent"`
	DSCR                *float64 `json:"dscr"`
	ARV                 *float64 `json:"arv"`
	PurchasePrice       *float64 `json:"purchase_price"`
	RefurbishmentBudget *float64 `json:"refurbishment_budget"`

	Borrower     any      `json:"borrower"`
	PolicyFlags  []string `json:"policy_flags"`
	BankRedFlags []string `json:"bank_red_flags"`

	// Raw keeps the original parsed record for transparency.
	Raw RawRecord `json:"-"`
}

// ReferenceCost returns project cost, falling back to total cost. Used for
// LTC and for the loan plausibility predicate.
func (c *CanonicalRecord) ReferenceCost() *float64 {
	if c.ProjectCost != nil {
		return c.ProjectCost
	}
	return c.TotalCost
}

// AmortizationRow is one month of an amortizing schedule. Monetary values are
// rounded to 2 decimal places; Payment == Interest + Principal on every row.
type AmortizationRow struct {
	Month     int     `json:"month"`
	Payment   float64 `json:"payment"`
	Interest  float64 `json:"interest"`
	Principal float64 `json:"principal"`
	Balance   float64 `json:"balance"`
}

// RiskCategory buckets a computed risk score.
type RiskCategory string

const (
	RiskLow    RiskCategory = "Low"
	RiskMedium RiskCategory = "Medium"
	RiskHigh   RiskCategory = "High"
)

// LendingMetrics is the engine output. Ratios are decimals (0.75 means 75%);
// the engine performs no display formatting. Nil means the metric could not
// be computed from the available inputs.
type LendingMetrics struct {
	LTV *float64 `json:"ltv"`
	LTC *float64 `json:"ltc"`

	MonthlyAmortisingPayment    *float64 `json:"monthly_amortising_payment"`
	MonthlyInterestOnlyPayment  *float64 `json:"monthly_interest_only_payment"`
	TotalInterest               *float64 `json:"total_interest"`
	AnnualDebtServiceAmortising *float64 `json:"annual_debt_service_amortising"`
	AnnualDebtServiceIO         *float64 `json:"annual_debt_service_io"`

	NOI                         *float64 `json:"noi"`
	NOIEstimatedFromRent        bool     `json:"noi_estimated_from_rent,omitempty"`
	NOIEstimatedFromIncomeProxy bool     `json:"noi_estimated_from_income_proxy,omitempty"`

	DSCRAmortising   *float64 `json:"dscr_amortising"`
	DSCRInterestOnly *float64 `json:"dscr_interest_only"`

	PolicyFlags  []string `json:"policy_flags"`
	BankRedFlags []string `json:"bank_red_flags"`

	RiskScoreComputed float64      `json:"risk_score_computed"`
	RiskCategory      RiskCategory `json:"risk_category"`
	RiskReasons       []string     `json:"risk_reasons"`

	// RiskScoreHeuristic is the legacy linear fallback score, surfaced as a
	// secondary signal and never blended into RiskScoreComputed.
	RiskScoreHeuristic float64 `json:"risk_score_heuristic"`

	AmortizationPreviewRows   []AmortizationRow `json:"amortization_preview_rows"`
	AmortizationTotalInterest *float64          `json:"amortization_total_interest"`

	// InputAuditNotes mirrors the audit log accumulated while the input was
	// normalized and checked, so a serialized metrics object is
	// self-describing.
	InputAuditNotes []string `json:"input_audit_notes"`
}

// Float returns a pointer to v. Convenience for building nullable metrics.
func Float(v float64) *float64 { return &v }
