package seispick

import (
	"errors"
	"testing"
)

func TestDefaultConfig_Valid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidate_MissingPhaseEntry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Phases = append(cfg.Phases, "Pn")

	err := cfg.Validate()
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *ConfigError", err)
	}
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sampling rate", func(c *Config) { c.SamplingRate = 0 }},
		{"unknown position", func(c *Config) { c.Position = "sideways" }},
		{"no phases", func(c *Config) { c.Phases = nil }},
		{"STA >= LTA", func(c *Config) { c.Onset.STALTAWindows["P"] = [2]float64{1.0, 0.2} }},
		{"inverted band", func(c *Config) { c.Onset.BandpassFilters["P"] = FilterSpec{16, 2, 2} }},
		{"zero corners", func(c *Config) { c.Onset.BandpassFilters["P"] = FilterSpec{2, 16, 0} }},
		{"zero channel count", func(c *Config) { c.Onset.ChannelCounts["S"] = 0 }},
		{"zero MAD scalar", func(c *Config) { c.Picker.NoiseMADScalar = 0 }},
		{"unbounded fit", func(c *Config) { c.Picker.MaxFitIterations = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if cfg.Validate() == nil {
				t.Error("invalid config passed validation")
			}
		})
	}
}

func TestValidate_OddCornersAccepted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Onset.BandpassFilters["P"] = FilterSpec{LowCut: 2, HighCut: 16, Corners: 3}
	if err := cfg.Validate(); err != nil {
		t.Errorf("odd corner count rejected: %v", err)
	}
}

func TestPhaseSpec(t *testing.T) {
	cfg := DefaultConfig()
	spec, err := cfg.PhaseSpec("S")
	if err != nil {
		t.Fatalf("PhaseSpec: %v", err)
	}
	if spec.ChannelPattern != "*[NE12]" || spec.ChannelCount != 2 {
		t.Errorf("spec = %+v", spec)
	}
	if spec.STAWindow != 0.2 || spec.LTAWindow != 1.0 {
		t.Errorf("windows = %v/%v", spec.STAWindow, spec.LTAWindow)
	}

	if _, err := cfg.PhaseSpec("Lg"); err == nil {
		t.Error("unknown phase accepted")
	}
}

func TestMigrateLegacyOptions(t *testing.T) {
	cfg := DefaultConfig()
	err := MigrateLegacyOptions(cfg, map[string]any{
		"onset_centred": true,
		"p_bp_filter":   []float64{1, 10, 4},
		"s_onset_win":   []float64{0.3, 1.5},
		"fraction_tt":   0.08,
	})
	if err != nil {
		t.Fatalf("MigrateLegacyOptions: %v", err)
	}
	if cfg.Position != AlignCentred {
		t.Errorf("position = %q, want centred", cfg.Position)
	}
	if got := cfg.Onset.BandpassFilters["P"]; got != (FilterSpec{LowCut: 1, HighCut: 10, Corners: 4}) {
		t.Errorf("P filter = %+v", got)
	}
	if got := cfg.Onset.STALTAWindows["S"]; got != [2]float64{0.3, 1.5} {
		t.Errorf("S windows = %v", got)
	}
	if cfg.Picker.FractionTT != 0.08 {
		t.Errorf("fractionTT = %v", cfg.Picker.FractionTT)
	}
}

func TestMigrateLegacyOptions_Errors(t *testing.T) {
	if err := MigrateLegacyOptions(DefaultConfig(), map[string]any{"pick_threshold": 1.0}); err == nil {
		t.Error("removed option accepted")
	}
	if err := MigrateLegacyOptions(DefaultConfig(), map[string]any{"swing_detector": true}); err == nil {
		t.Error("unknown option accepted")
	}
	if err := MigrateLegacyOptions(DefaultConfig(), map[string]any{"onset_centred": "yes"}); err == nil {
		t.Error("mistyped option accepted")
	}
	if err := MigrateLegacyOptions(DefaultConfig(), map[string]any{"p_bp_filter": []float64{2, 16}}); err == nil {
		t.Error("short filter triple accepted")
	}
}
