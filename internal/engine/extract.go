package engine

import (
	"regexp"
	"strings"

	"github.com/sells-group/underwrite-cli/internal/model"
)

// Upstream PDF/OCR extraction frequently dumps structured data as inline
// text ("loan_amount": 250000, rate = 9.5). These patterns recover it
// without requiring a rigid upstream contract. Applied in precedence order:
// JSON-style pairs, then quoted-or-bare key:value pairs, then bare numeric
// tokens.
var (
	jsonKVRx = regexp.MustCompile(`"([^"]+)"\s*:\s*("[^"]*"|[0-9.\-]+)`)
	pairKVRx = regexp.MustCompile(`['"]?\b([A-Za-z0-9_ ()\-]+?)['"]?\s*[:=]\s*['"]?([^'"` + "\n\r" + `,{}]+)`)
	numKVRx  = regexp.MustCompile(`\b([A-Za-z0-9_]+)\s*:\s*(-?\d[\d,]*(?:\.\d+)?)`)

	machineLabelRx = regexp.MustCompile(`^[a-z0-9_]+$`)
	nonWordRx      = regexp.MustCompile(`[^A-Za-z0-9_]`)
)

// aliasByNorm maps every normalized alias to its canonical field name.
var aliasByNorm = func() map[string]string {
	m := make(map[string]string)
	for _, spec := range aliasTable {
		for _, a := range spec.aliases {
			m[normKey(a)] = spec.name
		}
	}
	return m
}()

// aliasesByField maps canonical field name to its alias list.
var aliasesByField = func() map[string][]string {
	m := make(map[string][]string, len(aliasTable))
	for _, spec := range aliasTable {
		m[spec.name] = spec.aliases
	}
	return m
}()

// ExtractEmbeddedKV scans every string-typed value of the record for inline
// key:value fragments and merges newly discovered fields into the record.
// Extraction is additive, not authoritative: a discovered value is written
// only when the field is currently absent or empty, so repeated application
// is idempotent. Returns the record and the deduplicated, insertion-ordered
// list of field names that were newly populated.
func ExtractEmbeddedKV(raw model.RawRecord) (model.RawRecord, []string) {
	if raw == nil {
		return raw, nil
	}

	var extracted []string
	seen := make(map[string]bool)

	// Snapshot the text fields first: newly merged values must not be
	// re-scanned, and iteration order must not depend on map layout.
	type textField struct{ key, text string }
	var texts []textField
	for _, k := range sortedKeys(raw) {
		if s, ok := raw[k].(string); ok && s != "" {
			texts = append(texts, textField{k, s})
		}
	}

	merge := func(label, rawValue string) {
		key := storedKey(label)
		if key == "" || fieldPresent(raw, key) {
			return
		}
		raw[key] = convertExtracted(rawValue)
		if !seen[key] {
			seen[key] = true
			extracted = append(extracted, key)
		}
	}

	for _, tf := range texts {
		// Spans consumed by a higher-precedence pattern are off limits to
		// the patterns after it, so "Exit Fee: 2500" yields exit_fee once
		// rather than exit_fee plus a spurious fee.
		var claimed [][2]int
		overlaps := func(start, end int) bool {
			for _, c := range claimed {
				if start < c[1] && end > c[0] {
					return true
				}
			}
			return false
		}

		for _, rx := range []*regexp.Regexp{jsonKVRx, pairKVRx, numKVRx} {
			for _, loc := range rx.FindAllStringSubmatchIndex(tf.text, -1) {
				if overlaps(loc[0], loc[1]) {
					continue
				}
				claimed = append(claimed, [2]int{loc[0], loc[1]})
				merge(tf.text[loc[2]:loc[3]], tf.text[loc[4]:loc[5]])
			}
		}
	}

	return raw, extracted
}

// storedKey normalizes a matched key label. Labels already in machine form
// (lower snake case) are kept verbatim; otherwise known alias variants map
// to their canonical field, and unknown labels fall back to
// punctuation-to-underscore normalization.
func storedKey(label string) string {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return ""
	}
	lower := strings.ToLower(trimmed)
	if machineLabelRx.MatchString(lower) {
		return lower
	}
	if canon, ok := aliasByNorm[normKey(trimmed)]; ok {
		return canon
	}
	return strings.ToLower(nonWordRx.ReplaceAllString(trimmed, "_"))
}

// fieldPresent reports whether the record already holds a non-empty value
// for the field the key resolves to, considering alias variants so that an
// extracted "interest_rate_annual" never shadows a caller-supplied "rate".
func fieldPresent(raw model.RawRecord, key string) bool {
	if v, ok := raw[key]; ok && !emptyValue(v) {
		return true
	}
	canon, known := aliasByNorm[normKey(key)]
	if !known {
		return false
	}
	idx := indexRecord(raw)
	if v, found := idx.find(raw, aliasesByField[canon]); found && !emptyValue(v) {
		return true
	}
	return false
}

func emptyValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// convertExtracted coerces a matched value fragment: quotes stripped, then
// numeric coercion, keeping the trimmed text when no number is present.
func convertExtracted(s string) any {
	t := strings.TrimSpace(s)
	if len(t) >= 2 {
		if (t[0] == '"' && t[len(t)-1] == '"') || (t[0] == '\'' && t[len(t)-1] == '\'') {
			t = strings.TrimSpace(t[1 : len(t)-1])
		}
	}
	cv := Coerce(t)
	if cv.IsNumber() {
		return cv.Num
	}
	return t
}

func sortedKeys(raw model.RawRecord) []string {
	idx := indexRecord(raw)
	return idx.sorted
}
