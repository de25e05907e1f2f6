// Package safety evaluates actuation requests against the biophysical
// envelope. It never raises for well-typed input: every outcome, including
// rejection, is a structured result so it can reach the decision log.
package safety

import (
	"fmt"
	"strings"

	"github.com/stimguard/stimguard/internal/fixedpt"
	"github.com/stimguard/stimguard/internal/limits"
	"github.com/stimguard/stimguard/internal/model"
)

// Evaluator checks actuation requests against one immutable limit registry.
type Evaluator struct {
	registry *limits.Registry
}

// New creates an evaluator bound to a registry.
func New(registry *limits.Registry) *Evaluator {
	return &Evaluator{registry: registry}
}

// Evaluate evaluates a single actuation request.
//
// Evaluation order (must not be changed):
//  1. Input validation: non-finite fields fail closed as INVALID_INPUT
//  2. Class lookup: absent class is UNKNOWN_DEVICE_CLASS, never defaulted
//  3. Four independent criteria, compared on fixed-point integers
//  4. ok = AND of evaluated criteria; equality at a ceiling passes
func (e *Evaluator) Evaluate(req model.ActuationRequest) model.SafetyCheckResult {
	// Step 1: Input validation. A NaN, Inf, or value beyond fixed-point
	// range would silently corrupt every comparison; it must surface as
	// malformed input, not as an ordinary limit violation.
	if field := firstUnrepresentable(req); field != "" {
		return model.SafetyCheckResult{
			OK:     false,
			Status: model.StatusInvalidInput,
			Detail: fmt.Sprintf("field %s is not representable in fixed point", field),
		}
	}

	// Step 2: Class lookup (fail closed, no missing-default fallback).
	lim, ok := e.registry.Lookup(req.DeviceClass)
	if !ok {
		return model.SafetyCheckResult{
			OK:     false,
			Status: model.StatusUnknownDevice,
			Detail: fmt.Sprintf("device class %q not in limit registry", req.DeviceClass),
		}
	}

	// Step 3: Criteria. The SAR proxy estimates energy delivered to tissue
	// per unit time as intensity x repetition rate x duty cycle.
	fSar := req.Intensity * req.RepetitionRate * req.DutyCycle
	if _, ok := fixedpt.ToFixed(fSar); !ok {
		return model.SafetyCheckResult{
			OK:     false,
			Status: model.StatusInvalidInput,
			Detail: "sar proxy is not representable in fixed point",
		}
	}

	var m model.Metrics
	m.Sar = compareCeiling(fSar, lim.SarMax, true)
	m.ChargeDensity = compareCeiling(req.ChargePerArea, lim.ChargeDensityMax, chargeApplies(lim))
	m.ThermalDose = compareCeiling(req.Cem43Dose, lim.Cem43Max, true)
	m.Impedance = compareRange(req.Impedance, lim.ImpedanceMin, lim.ImpedanceMax)

	// Step 4: Aggregate.
	allOK := m.Sar.OK && m.ChargeDensity.OK && m.ThermalDose.OK && m.Impedance.OK
	if allOK {
		return model.SafetyCheckResult{
			OK:      true,
			Status:  model.StatusSafe,
			Detail:  "all criteria within envelope",
			Metrics: m,
		}
	}

	return model.SafetyCheckResult{
		OK:      false,
		Status:  model.StatusLimitViolation,
		Detail:  fmt.Sprintf("limit violation: %s", strings.Join(failedCriteria(m), ", ")),
		Metrics: m,
	}
}

// compareCeiling evaluates value <= ceiling on scaled integers.
// Inapplicable criteria pass and are marked as such in the metrics.
func compareCeiling(value, ceiling float64, applies bool) model.CriterionMetric {
	scaled, _ := fixedpt.ToFixed(value)
	limitScaled, _ := fixedpt.ToFixed(ceiling)
	cm := model.CriterionMetric{
		Raw:         value,
		Scaled:      scaled,
		Limit:       ceiling,
		LimitScaled: limitScaled,
		Applies:     applies,
		OK:          true,
	}
	if applies {
		cm.OK = scaled <= limitScaled
	}
	return cm
}

// compareRange evaluates min <= value <= max on scaled integers. The range
// is inapplicable when both bounds scale to zero.
func compareRange(value, min, max float64) model.ImpedanceMetric {
	scaled, _ := fixedpt.ToFixed(value)
	minScaled, _ := fixedpt.ToFixed(min)
	maxScaled, _ := fixedpt.ToFixed(max)
	im := model.ImpedanceMetric{
		Raw:       value,
		Scaled:    scaled,
		Min:       min,
		MinScaled: minScaled,
		Max:       max,
		MaxScaled: maxScaled,
		Applies:   minScaled != 0 || maxScaled != 0,
		OK:        true,
	}
	if im.Applies {
		im.OK = minScaled <= scaled && scaled <= maxScaled
	}
	return im
}

// chargeApplies reports whether the class defines a charge density ceiling.
// The zero test happens in fixed point so a sub-resolution ceiling behaves
// identically everywhere.
func chargeApplies(lim model.BiophysicalLimits) bool {
	scaled, _ := fixedpt.ToFixed(lim.ChargeDensityMax)
	return scaled != 0
}

func firstUnrepresentable(req model.ActuationRequest) string {
	fields := []struct {
		name  string
		value float64
	}{
		{"intensity", req.Intensity},
		{"repetition_rate", req.RepetitionRate},
		{"duty_cycle", req.DutyCycle},
		{"charge_per_area", req.ChargePerArea},
		{"cem43_dose", req.Cem43Dose},
		{"impedance", req.Impedance},
	}
	for _, f := range fields {
		if _, ok := fixedpt.ToFixed(f.value); !ok {
			return f.name
		}
	}
	return ""
}

func failedCriteria(m model.Metrics) []string {
	var failed []string
	if !m.Sar.OK {
		failed = append(failed, "sar")
	}
	if !m.ChargeDensity.OK {
		failed = append(failed, "charge_density")
	}
	if !m.ThermalDose.OK {
		failed = append(failed, "thermal_dose")
	}
	if !m.Impedance.OK {
		failed = append(failed, "impedance")
	}
	return failed
}
