package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/underwrite-cli/internal/model"
)

// Canonical field names recognized by the engine.
const (
	FieldLoanAmount          = "loan_amount"
	FieldPropertyValue       = "property_value"
	FieldProjectCost         = "project_cost"
	FieldTotalCost           = "total_cost"
	FieldInterestRateAnnual  = "interest_rate_annual"
	FieldTermMonths          = "term_months"
	FieldIncome              = "income"
	FieldNOI                 = "noi"
	FieldAnnualRent          = "annual_rent"
	FieldOperatingExpenses   = "operating_expenses"
	FieldMonthlyRent         = "monthly_rent"
	FieldDSCR                = "dscr"
	FieldARV                 = "arv"
	FieldPurchasePrice       = "purchase_price"
	FieldRefurbishmentBudget = "refurbishment_budget"
	FieldBorrower            = "borrower"
	FieldPolicyFlags         = "policy_flags"
	FieldBankRedFlags        = "bank_red_flags"
)

// fieldSpec describes one canonical field and the upstream label variants
// that map onto it.
type fieldSpec struct {
	name    string
	numeric bool
	aliases []string
}

// aliasTable is immutable static configuration built once at process start.
// Order matters: fields are resolved in this order, and more specific labels
// (loan_term_months) must be claimed before shorter substrings (loan) can
// shadow them during the substring fallback.
var aliasTable = []fieldSpec{
	{FieldLoanAmount, true, []string{"loan_amount", "loan", "requested_loan", "amount_requested"}},
	{FieldPropertyValue, true, []string{"property_value", "property_value_estimate", "property", "value_of_property"}},
	{FieldProjectCost, true, []string{"project_cost", "project cost", "total_project_cost", "total_project", "total_cost"}},
	{FieldTotalCost, true, []string{"total_cost", "total project cost", "totalprojectcost"}},
	{FieldInterestRateAnnual, true, []string{"interest_rate_annual", "interest rate (annual)", "interest_rate", "rate", "annual_rate"}},
	{FieldTermMonths, true, []string{"loan_term_months", "loan term months", "term_months", "term", "loan_term", "term_month"}},
	{FieldIncome, true, []string{"income", "annual_income", "applicant_income"}},
	{FieldNOI, true, []string{"noi", "net_operating_income"}},
	{FieldAnnualRent, true, []string{"annual_rent", "rental_income_annual", "annual_rental_income"}},
	{FieldOperatingExpenses, true, []string{"operating_costs", "operating_expenses", "annual_expenses"}},
	{FieldPolicyFlags, false, []string{"policy_flags", "flags"}},
	{FieldBankRedFlags, false, []string{"bank_red_flags", "bank_flags", "red_flags"}},
	{FieldBorrower, false, []string{"borrower", "applicant", "name"}},
	{FieldARV, true, []string{"arv", "after_repair_value"}},
	{FieldPurchasePrice, true, []string{"purchase_price"}},
	{FieldRefurbishmentBudget, true, []string{"refurbishment_budget", "refurb_budget"}},
	{FieldMonthlyRent, true, []string{"monthly_rent", "rent_monthly"}},
	{FieldDSCR, true, []string{"dscr"}},
}

// normKey lowercases a label and drops everything outside [a-z0-9_] so that
// "Interest Rate (Annual)" and "interest_rate_annual" compare equal.
func normKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// recordIndex pre-normalizes a raw record's labels for alias resolution.
type recordIndex struct {
	byNorm map[string]string // normalized label -> original label
	sorted []string          // original labels, sorted for determinism
}

func indexRecord(raw model.RawRecord) recordIndex {
	idx := recordIndex{byNorm: make(map[string]string, len(raw))}
	for k := range raw {
		idx.byNorm[normKey(k)] = k
		idx.sorted = append(idx.sorted, k)
	}
	sort.Strings(idx.sorted)
	return idx
}

// find resolves a field's aliases against the record: exact normalized match
// first, then a substring fallback where the alias must be contained in the
// label. The reverse direction is deliberately not matched: a bare "income"
// label must not satisfy noi via its "net_operating_income" alias.
func (idx recordIndex) find(raw model.RawRecord, aliases []string) (any, bool) {
	for _, a := range aliases {
		if orig, ok := idx.byNorm[normKey(a)]; ok {
			return raw[orig], true
		}
	}
	for _, k := range idx.sorted {
		nk := normKey(k)
		for _, a := range aliases {
			if strings.Contains(nk, normKey(a)) {
				return raw[k], true
			}
		}
	}
	return nil, false
}

// Canonicalize resolves a raw record onto the canonical field vocabulary.
// Numeric fields are coerced; a value that is present but unparsable leaves
// the field nil and appends an audit note. Fields with no alias match stay
// nil here; their absence is reported later by the plausibility audit.
func Canonicalize(raw model.RawRecord) (model.CanonicalRecord, []string) {
	var rec model.CanonicalRecord
	var audit []string
	rec.Raw = raw

	if len(raw) == 0 {
		return rec, audit
	}

	idx := indexRecord(raw)

	for _, spec := range aliasTable {
		val, found := idx.find(raw, spec.aliases)
		if !found {
			continue
		}

		if spec.numeric {
			cv := Coerce(val)
			if cv.Kind == KindText {
				audit = append(audit, fmt.Sprintf("Field '%s' found but could not parse numeric value: '%v'", spec.name, val))
				continue
			}
			if cv.IsNumber() {
				setNumericField(&rec, spec.name, cv.Num)
			}
			continue
		}

		setPassthroughField(&rec, spec.name, val)
	}

	return rec, audit
}

func setNumericField(rec *model.CanonicalRecord, name string, v float64) {
	p := model.Float(v)
	switch name {
	case FieldLoanAmount:
		rec.LoanAmount = p
	case FieldPropertyValue:
		rec.PropertyValue = p
	case FieldProjectCost:
		rec.ProjectCost = p
	case FieldTotalCost:
		rec.TotalCost = p
	case FieldInterestRateAnnual:
		rec.InterestRateAnnual = p
	case FieldTermMonths:
		rec.TermMonths = p
	case FieldIncome:
		rec.Income = p
	case FieldNOI:
		rec.NOI = p
	case FieldAnnualRent:
		rec.AnnualRent = p
	case FieldOperatingExpenses:
		rec.OperatingExpenses = p
	case FieldMonthlyRent:
		rec.MonthlyRent = p
	case FieldDSCR:
		rec.DSCR = p
	case FieldARV:
		rec.ARV = p
	case FieldPurchasePrice:
		rec.PurchasePrice = p
	case FieldRefurbishmentBudget:
		rec.RefurbishmentBudget = p
	}
}

func setPassthroughField(rec *model.CanonicalRecord, name string, val any) {
	switch name {
	case FieldBorrower:
		rec.Borrower = val
	case FieldPolicyFlags:
		rec.PolicyFlags = toStringList(val)
	case FieldBankRedFlags:
		rec.BankRedFlags = toStringList(val)
	}
}

// toStringList normalizes flag values: a single string becomes a one-element
// list, JSON arrays are stringified element-wise.
func toStringList(val any) []string {
	switch v := val.(type) {
	case nil:
		return nil
	case []string:
		return v
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return []string{v}
	case []any:
		var out []string
		for _, e := range v {
			s := strings.TrimSpace(fmt.Sprint(e))
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{fmt.Sprint(v)}
	}
}
