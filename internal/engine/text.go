package engine

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/underwrite-cli/internal/model"
)

var (
	// The name capture uses [ \t] rather than \s so it stops at end of line
	// and does not swallow the first word of the next one.
	borrowerRx = regexp.MustCompile(`Borrower[: \t]+([A-Z][a-z]+(?:[ \t][A-Z][a-z]+)*)`)
	amountRx   = regexp.MustCompile(`£?\s?([\d,]+(?:\.\d{1,2})?)`)
	poundRx    = regexp.MustCompile(`£\s?([\d,]+(?:\.\d{1,2})?)`)
)

// ParseFieldsFromText heuristically extracts borrower and the labeled money
// amounts from a plain-text document (typically OCR output of an application
// form). Produces a raw record suitable for the normal pipeline; fields that
// could not be located are present with nil values so the audit pass reports
// them.
func ParseFieldsFromText(text string) model.RawRecord {
	rec := model.RawRecord{}

	if m := borrowerRx.FindStringSubmatch(text); m != nil {
		rec[FieldBorrower] = strings.TrimSpace(m[1])
	} else if line := firstNonBlankLine(text); line != "" {
		if len(line) > 80 {
			line = line[:80]
		}
		rec[FieldBorrower] = line
	} else {
		rec[FieldBorrower] = "Unknown"
	}

	rec[FieldIncome] = findMoney(text, "income", "annual income", "salary")
	rec[FieldLoanAmount] = findMoney(text, "loan amount", "requested loan", "loan")
	rec[FieldPropertyValue] = findMoney(text, "property value", "valuation", "value")

	if loan, ok := rec[FieldLoanAmount].(float64); ok {
		if prop, ok := rec[FieldPropertyValue].(float64); ok && prop > 0 {
			rec["ltv"] = loan / prop
		}
	}

	rec[FieldBankRedFlags] = []string{}
	return rec
}

// findMoney looks for an amount near any of the given labels, scanning a
// bounded window after the label so unrelated figures further down the
// document are not picked up. Falls back to the first currency-marked amount
// anywhere in the text. Returns nil when nothing matches.
func findMoney(text string, labels ...string) any {
	low := strings.ToLower(text)
	for _, label := range labels {
		idx := strings.Index(low, strings.ToLower(label))
		if idx < 0 {
			continue
		}
		end := idx + 250
		if end > len(text) {
			end = len(text)
		}
		snippet := text[idx:end]
		if m := amountRx.FindStringSubmatch(snippet); m != nil {
			if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
				return v
			}
		}
	}
	if m := poundRx.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			return v
		}
	}
	return nil
}

func firstNonBlankLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}
