package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFieldsFromText(t *testing.T) {
	text := `Loan Application Form

Borrower: Jane Example
Annual income: £42,000
Requested loan: £240,000
Property value: £330,000
`

	rec := ParseFieldsFromText(text)

	assert.Equal(t, "Jane Example", rec["borrower"])
	assert.Equal(t, 42000.0, rec["income"])
	assert.Equal(t, 240000.0, rec["loan_amount"])
	assert.Equal(t, 330000.0, rec["property_value"])

	ltv, ok := rec["ltv"].(float64)
	require.True(t, ok)
	assert.InDelta(t, 240000.0/330000.0, ltv, 1e-9)

	assert.Equal(t, []string{}, rec["bank_red_flags"])
}

func TestParseFieldsFromTextBorrowerStopsAtLineEnd(t *testing.T) {
	// The line after the name starts with a capitalized word; the name must
	// not absorb it across the newline.
	rec := ParseFieldsFromText("Borrower: Jane Example\nAnnual review pending")
	assert.Equal(t, "Jane Example", rec["borrower"])
}

func TestParseFieldsFromTextBorrowerFallback(t *testing.T) {
	rec := ParseFieldsFromText("\n\nMs J Example application\nloan: £100,000\n")
	assert.Equal(t, "Ms J Example application", rec["borrower"])

	long := strings.Repeat("x", 120) + "\nloan: £100,000\n"
	rec = ParseFieldsFromText(long)
	assert.Equal(t, strings.Repeat("x", 80), rec["borrower"])

	rec = ParseFieldsFromText("")
	assert.Equal(t, "Unknown", rec["borrower"])
}

func TestParseFieldsFromTextMissingAmounts(t *testing.T) {
	rec := ParseFieldsFromText("Borrower: Jane Example\nno figures supplied here")

	assert.Equal(t, "Jane Example", rec["borrower"])
	assert.Nil(t, rec["income"])
	assert.Nil(t, rec["loan_amount"])
	assert.Nil(t, rec["property_value"])
	assert.NotContains(t, rec, "ltv")
}

func TestParseFieldsFromTextPoundFallback(t *testing.T) {
	// No recognizable labels, but a single currency-marked figure exists.
	rec := ParseFieldsFromText("Borrower: Jane Example\nTotal required: £55,500.50")

	assert.Equal(t, 55500.5, rec["income"])
	assert.Equal(t, 55500.5, rec["loan_amount"])
}

func TestParseFieldsFromTextWindowBound(t *testing.T) {
	// The figure sits more than 250 characters after the label, so the
	// labeled search misses and the currency fallback applies instead.
	text := "Borrower: Jane Example\nloan amount " + strings.Repeat(".", 300) + " £75,000"
	rec := ParseFieldsFromText(text)
	assert.Equal(t, 75000.0, rec["loan_amount"])
}
