package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/underwrite-cli/internal/engine"
	"github.com/sells-group/underwrite-cli/internal/model"
)

var (
	schedulePrincipal float64
	scheduleRate      float64
	scheduleTerm      int
	scheduleFormat    string
	scheduleOut       string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Build a full amortization schedule",
	Long:  "Computes the month-by-month amortizing schedule for a principal, annual rate, and term, and prints or exports it (table, csv, xlsx).",
	RunE: func(_ *cobra.Command, _ []string) error {
		rate := scheduleRate
		if rate > 1 {
			rate /= 100
		}

		rows, err := engine.Schedule(schedulePrincipal, rate, scheduleTerm)
		if err != nil {
			return err
		}

		switch scheduleFormat {
		case "table":
			formatSchedule(os.Stdout, rows)
			fmt.Fprintf(os.Stdout, "\nTotal interest: %s\n", money(model.Float(engine.ScheduleTotalInterest(rows))))
			return nil
		case "csv":
			out, closeFn, err := scheduleWriter(scheduleOut)
			if err != nil {
				return err
			}
			defer closeFn()
			return writeScheduleCSV(out, rows)
		case "xlsx":
			if scheduleOut == "" {
				return eris.New("xlsx output requires --out")
			}
			return writeScheduleXLSX(scheduleOut, rows)
		default:
			return eris.Errorf("unknown format: %s (want table, csv, or xlsx)", scheduleFormat)
		}
	},
}

func init() {
	scheduleCmd.Flags().Float64Var(&schedulePrincipal, "principal", 0, "loan principal")
	scheduleCmd.Flags().Float64Var(&scheduleRate, "rate", 0, "annual interest rate (5.5 or 0.055)")
	scheduleCmd.Flags().IntVar(&scheduleTerm, "term", 0, "term in months")
	scheduleCmd.Flags().StringVar(&scheduleFormat, "format", "table", "output format: table, csv, xlsx")
	scheduleCmd.Flags().StringVar(&scheduleOut, "out", "", "output file (default stdout for csv)")
	_ = scheduleCmd.MarkFlagRequired("principal")
	_ = scheduleCmd.MarkFlagRequired("term")
	rootCmd.AddCommand(scheduleCmd)
}

func scheduleWriter(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "create output file")
	}
	return f, func() { _ = f.Close() }, nil
}

func formatSchedule(out io.Writer, rows []model.AmortizationRow) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "MONTH\tPAYMENT\tINTEREST\tPRINCIPAL\tBALANCE\t")
	for _, r := range rows {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t\n",
			r.Month,
			money(model.Float(r.Payment)),
			money(model.Float(r.Interest)),
			money(model.Float(r.Principal)),
			money(model.Float(r.Balance)),
		)
	}
	w.Flush()
}

func writeScheduleCSV(out io.Writer, rows []model.AmortizationRow) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"month", "payment", "interest", "principal", "balance"}); err != nil {
		return eris.Wrap(err, "write csv header")
	}
	for _, r := range rows {
		record := []string{
			strconv.Itoa(r.Month),
			strconv.FormatFloat(r.Payment, 'f', 2, 64),
			strconv.FormatFloat(r.Interest, 'f', 2, 64),
			strconv.FormatFloat(r.Principal, 'f', 2, 64),
			strconv.FormatFloat(r.Balance, 'f', 2, 64),
		}
		if err := w.Write(record); err != nil {
			return eris.Wrap(err, "write csv row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "flush csv")
}

func writeScheduleXLSX(path string, rows []model.AmortizationRow) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Schedule")
	if err != nil {
		return eris.Wrap(err, "add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Month", "Payment", "Interest", "Principal", "Balance"} {
		header.AddCell().SetString(h)
	}
	for _, r := range rows {
		row := sheet.AddRow()
		row.AddCell().SetInt(r.Month)
		row.AddCell().SetFloatWithFormat(r.Payment, "0.00")
		row.AddCell().SetFloatWithFormat(r.Interest, "0.00")
		row.AddCell().SetFloatWithFormat(r.Principal, "0.00")
		row.AddCell().SetFloatWithFormat(r.Balance, "0.00")
	}

	return eris.Wrap(f.Save(path), "save xlsx")
}
