package engine

import "github.com/sells-group/underwrite-cli/internal/model"

// EvaluatePolicyRules derives deterministic policy flags from a canonical
// record and its computed loan-to-value ratio. Bank red flags are folded
// into the result so a single list captures everything rule-driven.
func EvaluatePolicyRules(rec *model.CanonicalRecord, ltv *float64) []string {
	var flags []string

	if ltv != nil && *ltv > 0.7 {
		flags = append(flags, "High LTV")
	}
	if rec.Income != nil && *rec.Income < 20000 {
		flags = append(flags, "Weak affordability")
	}
	if rec.LoanAmount != nil && rec.PropertyValue != nil && *rec.LoanAmount > *rec.PropertyValue {
		flags = append(flags, "Loan > Property value")
	}
	flags = append(flags, rec.BankRedFlags...)

	return flags
}

// HeuristicRiskScore is the clamped linear score used as a secondary signal
// beside the weighted component model: a base of 0.2, pushed up by LTV and
// overdraft incidents, pulled down by income and valuation confidence.
func HeuristicRiskScore(income, ltv, overdrafts, valuationScore float64) float64 {
	score := 0.2 + 0.6*ltv - 0.000002*income + 0.05*overdrafts - 0.1*valuationScore
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}
