package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/underwrite-cli/internal/model"
)

// moneyPrinter renders amounts with locale-aware digit grouping.
var moneyPrinter = message.NewPrinter(language.BritishEnglish)

func money(v *float64) string {
	if v == nil {
		return "-"
	}
	return moneyPrinter.Sprintf("£%.2f", *v)
}

func ratio(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *v)
}

// readRecord reads a single JSON record from the given path, or stdin when
// path is "-" or empty.
func readRecord(path string) (model.RawRecord, error) {
	var data []byte
	var err error
	if path == "" || path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, eris.Wrap(err, "read record")
	}

	var rec model.RawRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, eris.Wrap(err, "parse record JSON")
	}
	return rec, nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatMetrics writes a human-readable metrics summary to out.
func formatMetrics(out io.Writer, lm *model.LendingMetrics, audit []string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "LTV\t%s\n", ratio(lm.LTV))
	fmt.Fprintf(w, "LTC\t%s\n", ratio(lm.LTC))
	fmt.Fprintf(w, "Monthly payment (amortising)\t%s\n", money(lm.MonthlyAmortisingPayment))
	fmt.Fprintf(w, "Monthly payment (interest only)\t%s\n", money(lm.MonthlyInterestOnlyPayment))
	fmt.Fprintf(w, "Total interest\t%s\n", money(lm.TotalInterest))
	fmt.Fprintf(w, "Annual debt service (amortising)\t%s\n", money(lm.AnnualDebtServiceAmortising))
	fmt.Fprintf(w, "Annual debt service (interest only)\t%s\n", money(lm.AnnualDebtServiceIO))

	noi := money(lm.NOI)
	switch {
	case lm.NOIEstimatedFromRent:
		noi += " (estimated from rent)"
	case lm.NOIEstimatedFromIncomeProxy:
		noi += " (estimated from income proxy)"
	}
	fmt.Fprintf(w, "NOI\t%s\n", noi)

	fmt.Fprintf(w, "DSCR (amortising)\t%s\n", ratio(lm.DSCRAmortising))
	fmt.Fprintf(w, "DSCR (interest only)\t%s\n", ratio(lm.DSCRInterestOnly))

	if len(lm.PolicyFlags) > 0 {
		fmt.Fprintf(w, "Policy flags\t%s\n", strings.Join(lm.PolicyFlags, "; "))
	}
	if len(lm.BankRedFlags) > 0 {
		fmt.Fprintf(w, "Bank red flags\t%s\n", strings.Join(lm.BankRedFlags, "; "))
	}

	fmt.Fprintf(w, "Risk score\t%.3f (%s)\n", lm.RiskScoreComputed, lm.RiskCategory)
	fmt.Fprintf(w, "Risk reasons\t%s\n", strings.Join(lm.RiskReasons, "; "))
	fmt.Fprintf(w, "Heuristic score\t%.3f\n", lm.RiskScoreHeuristic)
	w.Flush()

	if len(audit) > 0 {
		fmt.Fprintln(out, "\nAudit notes:")
		for _, note := range audit {
			fmt.Fprintf(out, "  - %s\n", note)
		}
	}
}
