package engine

import (
	"fmt"

	"github.com/sells-group/underwrite-cli/internal/model"
)

// AuditAndCorrect checks a canonical record for missing core fields and
// structurally implausible values. The only mutation it performs is the
// explicit, logged property-value rescale; everything else is warn-only.
// Returns the audit notes in a fixed order so repeated runs are comparable.
func (e *Engine) AuditAndCorrect(rec *model.CanonicalRecord) []string {
	var audit []string

	if rec.LoanAmount == nil {
		audit = append(audit, "Missing or invalid loan_amount")
	}
	if rec.PropertyValue == nil {
		audit = append(audit, "Missing or invalid property_value")
	}
	if rec.ProjectCost == nil && rec.TotalCost == nil {
		audit = append(audit, "project_cost / total_cost not provided")
	}
	if rec.InterestRateAnnual == nil {
		audit = append(audit, "Interest rate not provided or invalid")
	}
	if rec.TermMonths == nil {
		audit = append(audit, "Loan term (months) not provided or invalid")
	}

	if rec.LoanAmount != nil && rec.PropertyValue != nil {
		loan, prop := *rec.LoanAmount, *rec.PropertyValue

		if prop > 0 && loan/prop > 10 {
			if scaled, msg := e.attemptPropertyRescale(loan, prop); msg != "" {
				audit = append(audit, msg)
				rec.PropertyValue = model.Float(scaled)
			} else {
				audit = append(audit, fmt.Sprintf("Implausible LTV (%.2f) from loan_amount and property_value; no safe rescale found", loan/prop))
			}
		}

		// Inverse check: a property value orders of magnitude above the loan
		// suggests swapped fields. Intent is ambiguous, so warn without
		// correcting.
		if loan > 0 && prop/loan > 1000 {
			audit = append(audit, "Property value is orders of magnitude larger than loan - please verify fields were not swapped")
		}
	}

	return audit
}

// attemptPropertyRescale proposes a corrected property value when the raw
// LTV is implausibly high, trying x1000 (value entered in thousands) then
// x100 (missing trailing zeros). A proposal is accepted only when the
// corrected LTV lands inside the configured acceptance band.
func (e *Engine) attemptPropertyRescale(loan, prop float64) (float64, string) {
	for _, mult := range []float64{1000, 100} {
		scaled := prop * mult
		if scaled <= 0 {
			continue
		}
		ltv := loan / scaled
		if ltv >= e.cfg.RescaleLTVMin && ltv <= e.cfg.RescaleLTVMax {
			return scaled, fmt.Sprintf("Scaled property_value by x%.0f (was %g, now %g) because original value produced implausible LTV", mult, prop, scaled)
		}
	}
	return prop, ""
}

// ImplausibleLoan reports whether the loan amount is implausible overall:
// below an absolute floor of 100, or under 1% of the reference cost
// (property value, falling back to project or total cost). Callers use this
// to gate a confirm-or-fix prompt before computing metrics.
func ImplausibleLoan(rec *model.CanonicalRecord) bool {
	if rec.LoanAmount == nil || *rec.LoanAmount <= 0 {
		return false
	}
	loan := *rec.LoanAmount
	if loan < 100 {
		return true
	}

	// A non-positive property value cannot serve as a reference, so fall
	// through to project or total cost.
	ref := rec.PropertyValue
	if ref == nil || *ref <= 0 {
		ref = rec.ReferenceCost()
	}
	if ref != nil && *ref > 0 && loan / *ref < 0.01 {
		return true
	}
	return false
}

// ValidateStructured reports whether the record carries the minimum fields a
// structured application needs: borrower, income, loan amount, and property
// value.
func ValidateStructured(rec *model.CanonicalRecord) bool {
	return rec.Borrower != nil &&
		rec.Income != nil &&
		rec.LoanAmount != nil &&
		rec.PropertyValue != nil
}
