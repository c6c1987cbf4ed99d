package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/underwrite-cli/internal/engine"
	"github.com/sells-group/underwrite-cli/internal/model"
)

func TestMoneyFormatting(t *testing.T) {
	assert.Equal(t, "-", money(nil))
	assert.Equal(t, "£240,000.00", money(model.Float(240000)))
	assert.Equal(t, "£1,473.84", money(model.Float(1473.84)))
	assert.Equal(t, "£0.00", money(model.Float(0)))
}

func TestRatioFormatting(t *testing.T) {
	assert.Equal(t, "-", ratio(nil))
	assert.Equal(t, "0.7273", ratio(model.Float(0.7273)))
}

func TestReadRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "record.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"loan_amount": 240000}`), 0o644))

	rec, err := readRecord(path)
	require.NoError(t, err)
	assert.Equal(t, 240000.0, rec["loan_amount"])

	_, err = readRecord(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestFormatMetrics(t *testing.T) {
	eng := engine.New(engine.DefaultConfig())
	metrics, audit := eng.Compute(model.RawRecord{
		"loan_amount":          240000,
		"property_value":       330000,
		"interest_rate_annual": 5.5,
		"term_months":          300,
		"income":               85000,
	})

	var buf bytes.Buffer
	formatMetrics(&buf, metrics, audit)

	out := buf.String()
	assert.Contains(t, out, "LTV")
	assert.Contains(t, out, "0.7273")
	assert.Contains(t, out, "Medium")
	assert.Contains(t, out, "estimated from income proxy")
	assert.Contains(t, out, "Audit notes:")
}
