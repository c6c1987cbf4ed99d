package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// riskFile is the on-disk shape of a risk model override file. Pointer
// fields distinguish "not set" from zero.
type riskFile struct {
	RiskModel struct {
		LTVWeight           *float64 `yaml:"ltv_weight"`
		DSCRWeight          *float64 `yaml:"dscr_weight"`
		FlagsWeight         *float64 `yaml:"flags_weight"`
		HighThreshold       *float64 `yaml:"high_threshold"`
		MediumThreshold     *float64 `yaml:"medium_threshold"`
		NOIIncomeProxyRatio *float64 `yaml:"noi_income_proxy_ratio"`
		PreviewRows         *int     `yaml:"preview_rows"`
	} `yaml:"risk_model"`
}

// ApplyRiskModelFile overlays risk model parameters from a YAML file onto an
// engine configuration. Fields absent from the file keep their current
// values.
func ApplyRiskModelFile(cfg EngineConfig, path string) (EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, eris.Wrapf(err, "config: read risk model %s", path)
	}

	var rf riskFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return cfg, eris.Wrapf(err, "config: parse risk model %s", path)
	}

	m := rf.RiskModel
	if m.LTVWeight != nil {
		cfg.LTVWeight = *m.LTVWeight
	}
	if m.DSCRWeight != nil {
		cfg.DSCRWeight = *m.DSCRWeight
	}
	if m.FlagsWeight != nil {
		cfg.FlagsWeight = *m.FlagsWeight
	}
	if m.HighThreshold != nil {
		cfg.HighThreshold = *m.HighThreshold
	}
	if m.MediumThreshold != nil {
		cfg.MediumThreshold = *m.MediumThreshold
	}
	if m.NOIIncomeProxyRatio != nil {
		cfg.NOIIncomeProxyRatio = *m.NOIIncomeProxyRatio
	}
	if m.PreviewRows != nil {
		cfg.PreviewRows = *m.PreviewRows
	}

	return cfg, nil
}
