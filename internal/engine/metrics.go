package engine

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/underwrite-cli/internal/config"
	"github.com/sells-group/underwrite-cli/internal/model"
)

// Engine computes lending metrics from raw records. It is stateless between
// calls; a single instance is safe for concurrent use.
type Engine struct {
	cfg config.EngineConfig
}

// New creates an Engine with the given configuration.
func New(cfg config.EngineConfig) *Engine {
	return &Engine{cfg: cfg}
}

// DefaultConfig returns the production risk model parameters.
func DefaultConfig() config.EngineConfig {
	return config.EngineConfig{
		LTVWeight:           0.50,
		DSCRWeight:          0.35,
		FlagsWeight:         0.15,
		HighThreshold:       0.70,
		MediumThreshold:     0.40,
		NOIIncomeProxyRatio: 0.30,
		PreviewRows:         12,
		RescaleLTVMin:       0.05,
		RescaleLTVMax:       10.0,
		DerivePolicyFlags:   true,
	}
}

// Compute runs the full pipeline on a raw record: embedded key/value
// recovery, canonicalization, plausibility audit, then every derivable
// lending metric. It never fails: fields that cannot be computed stay nil
// and the reason lands in the returned audit log.
func (e *Engine) Compute(raw model.RawRecord) (*model.LendingMetrics, []string) {
	if raw == nil {
		raw = model.RawRecord{}
	}

	raw, extracted := ExtractEmbeddedKV(raw)

	rec, audit := Canonicalize(raw)
	if len(extracted) > 0 {
		audit = append(audit, fmt.Sprintf("Recovered fields from embedded text: %s", strings.Join(extracted, ", ")))
	}

	audit = append(audit, e.AuditAndCorrect(&rec)...)

	lm := e.computeFromCanonical(&rec, &audit)
	lm.InputAuditNotes = append([]string(nil), audit...)

	zap.L().Debug("engine: metrics computed",
		zap.Float64p("ltv", lm.LTV),
		zap.Float64p("dscr_amortising", lm.DSCRAmortising),
		zap.Float64("risk_score", lm.RiskScoreComputed),
		zap.String("risk_category", string(lm.RiskCategory)),
		zap.Int("audit_notes", len(audit)),
	)

	return lm, audit
}

// computeFromCanonical derives the metrics from an already canonicalized and
// audited record. Divisions are guarded individually so one missing input
// never takes down an independent metric.
func (e *Engine) computeFromCanonical(rec *model.CanonicalRecord, audit *[]string) *model.LendingMetrics {
	lm := &model.LendingMetrics{}

	loan := rec.LoanAmount
	prop := rec.PropertyValue
	cost := rec.ReferenceCost()
	rate := rec.InterestRateAnnual
	term := rec.TermMonths

	if loan != nil && prop != nil && *prop > 0 {
		lm.LTV = model.Float(roundN(*loan / *prop, 4))
	}
	if loan != nil && cost != nil && *cost > 0 {
		lm.LTC = model.Float(roundN(*loan / *cost, 4))
	}

	// Amortizing payment via the full schedule when all inputs are present.
	if loan != nil && rate != nil && term != nil && *term != 0 {
		r := normalizeRate(*rate)
		n := int(*term)
		rows, err := Schedule(*loan, r, n)
		if err != nil {
			*audit = append(*audit, fmt.Sprintf("Failed to build amortization schedule: %v", err))
		} else {
			lm.MonthlyAmortisingPayment = model.Float(rows[0].Payment)
			total := ScheduleTotalInterest(rows)
			lm.TotalInterest = model.Float(total)
			lm.AmortizationTotalInterest = model.Float(total)

			preview := e.cfg.PreviewRows
			if preview <= 0 {
				preview = 12
			}
			if preview > len(rows) {
				preview = len(rows)
			}
			lm.AmortizationPreviewRows = rows[:preview]
		}
	}

	// Closed-form fallback when the schedule could not be built.
	if lm.MonthlyAmortisingPayment == nil && loan != nil && rate != nil && term != nil && *term != 0 {
		if payment, ok := levelPayment(*loan, normalizeRate(*rate), int(*term)); ok {
			lm.MonthlyAmortisingPayment = model.Float(round2(payment))
			lm.TotalInterest = model.Float(round2(payment*(*term) - *loan))
		} else {
			*audit = append(*audit, "Fallback amortising calc failed: invalid term")
		}
	}

	// Interest-only (bridging) payment needs no term.
	if loan != nil && rate != nil {
		lm.MonthlyInterestOnlyPayment = model.Float(round2(*loan * normalizeRate(*rate) / 12))
	}

	if p := lm.MonthlyAmortisingPayment; p != nil && *p != 0 {
		lm.AnnualDebtServiceAmortising = model.Float(round2(*p * 12))
	}
	if p := lm.MonthlyInterestOnlyPayment; p != nil && *p != 0 {
		lm.AnnualDebtServiceIO = model.Float(round2(*p * 12))
	}

	lm.NOI, lm.NOIEstimatedFromRent, lm.NOIEstimatedFromIncomeProxy = e.resolveNOI(rec)

	if lm.NOI != nil {
		if ads := lm.AnnualDebtServiceAmortising; ads != nil && *ads > 0 {
			lm.DSCRAmortising = model.Float(roundN(*lm.NOI / *ads, 3))
		}
		if ads := lm.AnnualDebtServiceIO; ads != nil && *ads > 0 {
			lm.DSCRInterestOnly = model.Float(roundN(*lm.NOI / *ads, 3))
		}
	}

	lm.PolicyFlags = rec.PolicyFlags
	lm.BankRedFlags = rec.BankRedFlags
	if len(lm.PolicyFlags) == 0 && e.cfg.DerivePolicyFlags {
		lm.PolicyFlags = EvaluatePolicyRules(rec, lm.LTV)
	}

	e.scoreRisk(rec, lm)

	return lm
}

// resolveNOI resolves net operating income in fixed precedence: explicit
// value, then annual rent minus operating expenses, then a conservative
// share of borrower income, then nothing.
func (e *Engine) resolveNOI(rec *model.CanonicalRecord) (*float64, bool, bool) {
	if rec.NOI != nil {
		return model.Float(round2(*rec.NOI)), false, false
	}
	if rec.AnnualRent != nil {
		expenses := 0.0
		if rec.OperatingExpenses != nil {
			expenses = *rec.OperatingExpenses
		}
		return model.Float(round2(*rec.AnnualRent - expenses)), true, false
	}
	if rec.Income != nil {
		return model.Float(round2(*rec.Income * e.cfg.NOIIncomeProxyRatio)), false, true
	}
	return nil, false, false
}

// scoreRisk fills the weighted risk score, category, reasons, and the
// heuristic secondary score.
func (e *Engine) scoreRisk(rec *model.CanonicalRecord, lm *model.LendingMetrics) {
	// LTV component: absence is not penalized.
	var ltvRisk float64
	if lm.LTV != nil {
		switch v := *lm.LTV; {
		case v < 0.60:
			ltvRisk = 0.0
		case v < 0.80:
			ltvRisk = 0.5
		default:
			ltvRisk = 1.0
		}
	}

	// DSCR component: amortizing preferred, interest-only fallback. No DSCR
	// at all is maximal risk.
	dscr := lm.DSCRAmortising
	if dscr == nil {
		dscr = lm.DSCRInterestOnly
	}
	dscrRisk := 1.0
	if dscr != nil {
		switch d := *dscr; {
		case d >= 1.25:
			dscrRisk = 0.0
		case d >= 1.0:
			dscrRisk = 0.5
		default:
			dscrRisk = 1.0
		}
	}

	flagsRisk := 0.0
	if len(lm.PolicyFlags) > 0 || len(lm.BankRedFlags) > 0 {
		flagsRisk = 1.0
	}

	score := e.cfg.LTVWeight*ltvRisk + e.cfg.DSCRWeight*dscrRisk + e.cfg.FlagsWeight*flagsRisk
	score = math.Min(math.Max(score, 0), 1)
	lm.RiskScoreComputed = roundN(score, 3)

	switch {
	case lm.RiskScoreComputed >= e.cfg.HighThreshold:
		lm.RiskCategory = model.RiskHigh
	case lm.RiskScoreComputed >= e.cfg.MediumThreshold:
		lm.RiskCategory = model.RiskMedium
	default:
		lm.RiskCategory = model.RiskLow
	}

	// Reasons are assembled in a fixed order so explanations are stable
	// across runs.
	var reasons []string
	if lm.LTV != nil {
		if *lm.LTV >= 0.85 {
			reasons = append(reasons, fmt.Sprintf("High LTV (%.2f)", *lm.LTV))
		} else if *lm.LTV >= 0.75 {
			reasons = append(reasons, fmt.Sprintf("Elevated LTV (%.2f)", *lm.LTV))
		}
	}
	if lm.DSCRAmortising != nil && *lm.DSCRAmortising < 1.0 {
		reasons = append(reasons, fmt.Sprintf("Amortising DSCR below 1.0 (%.2f)", *lm.DSCRAmortising))
	}
	if lm.DSCRInterestOnly != nil && *lm.DSCRInterestOnly < 1.0 {
		reasons = append(reasons, fmt.Sprintf("Interest-only DSCR below 1.0 (%.2f)", *lm.DSCRInterestOnly))
	}
	if flagsRisk > 0 {
		reasons = append(reasons, "Policy / bank flags present")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "No automated flags detected")
	}
	lm.RiskReasons = reasons

	lm.RiskScoreHeuristic = roundN(e.heuristicScore(rec, lm), 3)
}

func (e *Engine) heuristicScore(rec *model.CanonicalRecord, lm *model.LendingMetrics) float64 {
	income := 0.0
	if rec.Income != nil {
		income = *rec.Income
	}
	ltv := 0.5
	if lm.LTV != nil {
		ltv = *lm.LTV
	}
	overdrafts := 0.0
	if rec.Raw != nil {
		if v, ok := CoerceNumber(rec.Raw["overdrafts"]); ok {
			overdrafts = v
		}
	}
	valuationScore := 0.6
	if rec.Raw != nil {
		if v, ok := CoerceNumber(rec.Raw["valuation_score"]); ok {
			valuationScore = v
		}
	}
	return HeuristicRiskScore(income, ltv, overdrafts, valuationScore)
}

// levelPayment computes the standard level monthly payment without building
// a schedule. Returns false when the term is unusable.
func levelPayment(principal, annualRate float64, termMonths int) (float64, bool) {
	if termMonths <= 0 {
		return 0, false
	}
	r := annualRate / 12
	if r == 0 {
		return principal / float64(termMonths), true
	}
	return principal * r / (1 - math.Pow(1+r, -float64(termMonths))), true
}

// normalizeRate accepts both percentage (5.5) and decimal (0.055) rate
// inputs. Applied independently at every consumption site so a value is
// never converted twice.
func normalizeRate(r float64) float64 {
	if r > 1 {
		return r / 100
	}
	return r
}
