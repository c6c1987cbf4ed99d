package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/underwrite-cli/internal/engine"
)

var (
	extractFile string
	extractText bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Recover structured fields from messy input",
	Long:  "Runs only the extraction stage: embedded key:value recovery on a JSON record, or (with --text) heuristic field parsing of a plain-text document.",
	RunE: func(_ *cobra.Command, _ []string) error {
		if extractText {
			data, err := readInput(extractFile)
			if err != nil {
				return err
			}
			rec := engine.ParseFieldsFromText(string(data))
			return printJSON(os.Stdout, map[string]any{"record": rec})
		}

		rec, err := readRecord(extractFile)
		if err != nil {
			return err
		}
		rec, extracted := engine.ExtractEmbeddedKV(rec)
		return printJSON(os.Stdout, map[string]any{
			"record":         rec,
			"extracted_keys": extracted,
		})
	},
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return data, eris.Wrap(err, "read stdin")
	}
	data, err := os.ReadFile(path)
	return data, eris.Wrap(err, "read input file")
}

func init() {
	extractCmd.Flags().StringVarP(&extractFile, "file", "f", "", "input file (default stdin)")
	extractCmd.Flags().BoolVar(&extractText, "text", false, "treat input as a plain-text document instead of a JSON record")
	rootCmd.AddCommand(extractCmd)
}
