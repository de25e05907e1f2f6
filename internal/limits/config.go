package limits

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/stimguard/stimguard/internal/fixedpt"
	"github.com/stimguard/stimguard/internal/model"
)

// Config is the on-disk form of the limit table.
type Config struct {
	Classes map[model.DeviceClass]model.BiophysicalLimits `yaml:"classes"`
}

// DefaultConfig returns the built-in envelope table. Values are
// conservative published ceilings per class; integrators override them per
// deployment via YAML.
func DefaultConfig() *Config {
	return &Config{
		Classes: map[model.DeviceClass]model.BiophysicalLimits{
			model.ClassECoG: {
				SarMax:           1.6,
				ChargeDensityMax: 30,
				Cem43Max:         1.0,
				ImpedanceMin:     1,
				ImpedanceMax:     50,
			},
			model.ClassDBS: {
				SarMax:           1.6,
				ChargeDensityMax: 30,
				Cem43Max:         2.0,
				ImpedanceMin:     0.5,
				ImpedanceMax:     2.0,
			},
			model.ClassRetinal: {
				SarMax:           1.0,
				ChargeDensityMax: 0.5,
				Cem43Max:         0.5,
				ImpedanceMin:     0.5,
				ImpedanceMax:     2.0,
			},
			// Ultrasound delivery: charge density and electrode impedance
			// do not apply (zero bounds), thermal dose is the binding limit.
			model.ClassRFUSHelmet: {
				SarMax:   3.0,
				Cem43Max: 0.5,
			},
			// Surface wearable: thermal budget is generous, electrode
			// criteria do not apply.
			model.ClassExoskeleton: {
				SarMax:   4.0,
				Cem43Max: 10,
			},
		},
	}
}

// LoadConfig loads the limit table from a YAML file. Empty path falls back
// to ~/.stimguard/limits.yaml. Missing file returns defaults. Invalid YAML
// returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg, _, err := LoadConfigWithHash(path)
	return cfg, err
}

// LoadConfigWithHash loads the limit table and returns the SHA-256 hex
// digest of the raw YAML bytes on disk. When no file exists (defaults used),
// the hash is the digest of empty input, so an audit export still binds the
// log to a definite configuration version.
func LoadConfigWithHash(path string) (*Config, string, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DefaultConfig(), hashBytes(nil), nil
		}
		path = filepath.Join(home, ".stimguard", "limits.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), hashBytes(nil), nil
		}
		return nil, "", fmt.Errorf("failed to read limits config: %w", err)
	}

	// Start with defaults, YAML overwrites only the classes it names.
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse limits config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, "", err
	}

	return cfg, hashBytes(data), nil
}

// Registry builds the immutable registry from a loaded config.
func (c *Config) Registry(hash string) *Registry {
	return NewRegistry(c.Classes, hash)
}

// validate rejects envelopes no deployment should run with.
func validate(cfg *Config) error {
	for class, l := range cfg.Classes {
		for _, v := range []float64{l.SarMax, l.ChargeDensityMax, l.Cem43Max, l.ImpedanceMin, l.ImpedanceMax} {
			if !fixedpt.IsFinite(v) {
				return fmt.Errorf("limits config: class %q has a non-finite ceiling", class)
			}
		}
		if l.SarMax < 0 || l.ChargeDensityMax < 0 || l.Cem43Max < 0 ||
			l.ImpedanceMin < 0 || l.ImpedanceMax < 0 {
			return fmt.Errorf("limits config: class %q has a negative ceiling", class)
		}
		if l.ImpedanceMax != 0 && l.ImpedanceMin > l.ImpedanceMax {
			return fmt.Errorf("limits config: class %q impedance_min exceeds impedance_max", class)
		}
	}
	return nil
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// DefaultConfigYAML returns a commented YAML string for init-limits.
func DefaultConfigYAML() string {
	return `# stimguard biophysical limits configuration
# Generated by: stimguard init-limits
#
# One envelope per device class. Classes omitted here keep their built-in
# defaults. Comparisons are non-strict: a metric exactly at its ceiling
# passes.
#
# Semantics of zero:
#   charge_density_max: 0          -> charge density criterion does not apply
#   impedance_min + impedance_max: 0 -> impedance criterion does not apply
classes:
  ecog:
    sar_max: 1.6
    charge_density_max: 30
    cem43_max: 1.0
    impedance_min: 1
    impedance_max: 50
  dbs:
    sar_max: 1.6
    charge_density_max: 30
    cem43_max: 2.0
    impedance_min: 0.5
    impedance_max: 2.0
  retinal:
    sar_max: 1.0
    charge_density_max: 0.5
    cem43_max: 0.5
    impedance_min: 0.5
    impedance_max: 2.0
  rfus_helmet:
    sar_max: 3.0
    charge_density_max: 0
    cem43_max: 0.5
    impedance_min: 0
    impedance_max: 0
  exoskeleton:
    sar_max: 4.0
    charge_density_max: 0
    cem43_max: 10
    impedance_min: 0
    impedance_max: 0
`
}
