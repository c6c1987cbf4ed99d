package main

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/underwrite-cli/internal/engine"
)

func TestWriteScheduleCSV(t *testing.T) {
	rows, err := engine.Schedule(12000, 0, 12)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeScheduleCSV(&buf, rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 13) // header + 12 months

	assert.Equal(t, []string{"month", "payment", "interest", "principal", "balance"}, records[0])
	assert.Equal(t, []string{"1", "1000.00", "0.00", "1000.00", "11000.00"}, records[1])
	assert.Equal(t, "0.00", records[12][4])
}

func TestWriteScheduleXLSX(t *testing.T) {
	rows, err := engine.Schedule(240000, 0.055, 24)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "schedule.xlsx")
	require.NoError(t, writeScheduleXLSX(path, rows))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	sheet := f.Sheets[0]
	assert.Equal(t, "Schedule", sheet.Name)
	require.Len(t, sheet.Rows, 25) // header + 24 months
	assert.Equal(t, "Month", sheet.Rows[0].Cells[0].String())
}

func TestFormatSchedule(t *testing.T) {
	rows, err := engine.Schedule(12000, 0, 3)
	require.NoError(t, err)

	var buf bytes.Buffer
	formatSchedule(&buf, rows)

	out := buf.String()
	assert.Contains(t, out, "MONTH")
	assert.Contains(t, out, "£4,000.00")
}
