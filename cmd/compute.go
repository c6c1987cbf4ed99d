package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/underwrite-cli/internal/config"
	"github.com/sells-group/underwrite-cli/internal/engine"
)

var (
	computeFile      string
	computeJSON      bool
	computeSave      bool
	computeRiskModel string
)

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute lending metrics for a single record",
	Long:  "Reads one JSON record (from --file or stdin), normalizes and audits it, and prints the computed lending metrics and risk score.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		rec, err := readRecord(computeFile)
		if err != nil {
			return err
		}

		engCfg := cfg.Engine
		if computeRiskModel != "" {
			engCfg, err = config.ApplyRiskModelFile(engCfg, computeRiskModel)
			if err != nil {
				return err
			}
		}

		eng := engine.New(engCfg)
		metrics, audit := eng.Compute(rec)

		if computeSave {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if err := st.Migrate(ctx); err != nil {
				return eris.Wrap(err, "migrate store")
			}

			run, err := st.CreateRun(ctx, rec)
			if err != nil {
				return err
			}
			if err := st.CompleteRun(ctx, run.ID, metrics, audit); err != nil {
				return err
			}
			zap.L().Info("run saved", zap.String("run_id", run.ID))
			fmt.Fprintf(os.Stderr, "Saved run %s\n", run.ID)
		}

		if computeJSON {
			return printJSON(os.Stdout, map[string]any{
				"metrics": metrics,
				"audit":   audit,
			})
		}
		formatMetrics(os.Stdout, metrics, audit)
		return nil
	},
}

func init() {
	computeCmd.Flags().StringVarP(&computeFile, "file", "f", "", "JSON record file (default stdin)")
	computeCmd.Flags().BoolVar(&computeJSON, "json", false, "emit JSON instead of a table")
	computeCmd.Flags().BoolVar(&computeSave, "save", false, "persist the run to the store")
	computeCmd.Flags().StringVar(&computeRiskModel, "risk-model", "", "YAML file overriding risk model parameters")
	rootCmd.AddCommand(computeCmd)
}
