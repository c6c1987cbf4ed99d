package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/underwrite-cli/internal/engine"
	"github.com/sells-group/underwrite-cli/internal/model"
	"github.com/sells-group/underwrite-cli/internal/store"
)

var (
	batchFile  string
	batchLimit int
	batchSave  bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Compute metrics for a batch of records",
	Long:  "Reads newline-delimited JSON records and scores them concurrently. A record that fails to parse is reported and skipped; it never aborts the batch.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		records, parseFailures, err := readBatch(batchFile, batchLimit)
		if err != nil {
			return err
		}

		var st store.Store
		if batchSave {
			st, err = initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if err := st.Migrate(ctx); err != nil {
				return eris.Wrap(err, "migrate store")
			}
		}

		eng := engine.New(cfg.Engine)
		summary, err := processBatch(ctx, eng, st, records, cfg.Batch.MaxConcurrentRecords)
		if err != nil {
			return err
		}
		summary.ParseFailures = parseFailures

		fmt.Fprintf(os.Stdout, "Processed %d records: %d High, %d Medium, %d Low",
			summary.Processed, summary.High, summary.Medium, summary.Low)
		if summary.ParseFailures > 0 {
			fmt.Fprintf(os.Stdout, " (%d lines skipped: invalid JSON)", summary.ParseFailures)
		}
		fmt.Fprintln(os.Stdout)
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVarP(&batchFile, "file", "f", "", "NDJSON records file (default stdin)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of records to process (0 = all)")
	batchCmd.Flags().BoolVar(&batchSave, "save", false, "persist each run to the store")
	rootCmd.AddCommand(batchCmd)
}

// batchSummary aggregates the outcome of one batch invocation.
type batchSummary struct {
	Processed     int
	High          int
	Medium        int
	Low           int
	ParseFailures int
}

// readBatch parses newline-delimited JSON records, skipping unparsable lines.
func readBatch(path string, limit int) ([]model.RawRecord, int, error) {
	in := os.Stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, 0, eris.Wrap(err, "open batch file")
		}
		defer f.Close() //nolint:errcheck
		in = f
	}

	var records []model.RawRecord
	failures := 0

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 1024*1024), 8*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec model.RawRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			failures++
			zap.L().Warn("skipping unparsable batch line",
				zap.Int("line", lineNo),
				zap.Error(err),
			)
			continue
		}
		records = append(records, rec)
		if limit > 0 && len(records) >= limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, failures, eris.Wrap(err, "read batch input")
	}
	return records, failures, nil
}

// processBatch scores records concurrently. Individual failures are logged
// and counted, never propagated, so one bad record cannot abort the batch.
func processBatch(ctx context.Context, eng *engine.Engine, st store.Store, records []model.RawRecord, concurrency int) (*batchSummary, error) {
	if concurrency <= 0 {
		concurrency = 5
	}

	zap.L().Info("processing batch",
		zap.Int("records", len(records)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var high, medium, low atomic.Int64

	for i, rec := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			metrics, audit := eng.Compute(rec)
			switch metrics.RiskCategory {
			case model.RiskHigh:
				high.Add(1)
			case model.RiskMedium:
				medium.Add(1)
			default:
				low.Add(1)
			}

			if st != nil {
				run, err := st.CreateRun(gctx, rec)
				if err != nil {
					zap.L().Error("batch: create run failed", zap.Int("record", i), zap.Error(err))
					return nil
				}
				if err := st.CompleteRun(gctx, run.ID, metrics, audit); err != nil {
					zap.L().Error("batch: complete run failed", zap.String("run_id", run.ID), zap.Error(err))
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "batch interrupted")
	}

	return &batchSummary{
		Processed: len(records),
		High:      int(high.Load()),
		Medium:    int(medium.Load()),
		Low:       int(low.Load()),
	}, nil
}
