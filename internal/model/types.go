package model

// DeviceClass identifies a category of actuation hardware, each with its own
// safety envelope. The set is closed: adding a class is a limits-registry
// update, never an evaluator change.
type DeviceClass string

const (
	ClassECoG        DeviceClass = "ecog"
	ClassDBS         DeviceClass = "dbs"
	ClassRetinal     DeviceClass = "retinal"
	ClassRFUSHelmet  DeviceClass = "rfus_helmet"
	ClassExoskeleton DeviceClass = "exoskeleton"
)

// KnownClasses lists every device class the evaluator recognizes, in a stable
// order for display and export.
var KnownClasses = []DeviceClass{
	ClassECoG,
	ClassDBS,
	ClassRetinal,
	ClassRFUSHelmet,
	ClassExoskeleton,
}

// BiophysicalLimits is the per-class safety envelope. All values are
// non-negative. A zero ChargeDensityMax, or zero impedance bounds (both
// zero), mean the criterion does not apply to the class, not that
// everything is forbidden.
type BiophysicalLimits struct {
	SarMax           float64 `json:"sar_max" yaml:"sar_max"`
	ChargeDensityMax float64 `json:"charge_density_max" yaml:"charge_density_max"`
	Cem43Max         float64 `json:"cem43_max" yaml:"cem43_max"`
	ImpedanceMin     float64 `json:"impedance_min" yaml:"impedance_min"`
	ImpedanceMax     float64 `json:"impedance_max" yaml:"impedance_max"`
}

// ActuationRequest is one proposed stimulation cycle, constructed by the
// upstream controller. The kernel consumes it by value and never mutates it.
type ActuationRequest struct {
	DeviceClass    DeviceClass `json:"device_class"`
	Intensity      float64     `json:"intensity"`
	RepetitionRate float64     `json:"repetition_rate"`
	DutyCycle      float64     `json:"duty_cycle"`
	ChargePerArea  float64     `json:"charge_per_area"`
	Cem43Dose      float64     `json:"cem43_dose"`
	Impedance      float64     `json:"impedance"`
}

// Status classifies the outcome of a safety evaluation.
type Status string

const (
	StatusSafe           Status = "SAFE"
	StatusLimitViolation Status = "LIMIT_VIOLATION"
	StatusUnknownDevice  Status = "UNKNOWN_DEVICE_CLASS"
	StatusInvalidInput   Status = "INVALID_INPUT"
)

// Decision is the actuation gate outcome derived from a result.
// ALLOW if and only if the result's OK flag is set.
type Decision string

const (
	Allow  Decision = "ALLOW"
	Reject Decision = "REJECT"
)

// DecisionFor maps an evaluation result to the actuation gate decision.
func DecisionFor(result SafetyCheckResult) Decision {
	if result.OK {
		return Allow
	}
	return Reject
}

// CriterionMetric records how one safety criterion was evaluated: the raw
// value, its fixed-point scaling, the ceiling it was compared against, and
// whether it passed. Applies is false when the class does not define the
// criterion; an inapplicable criterion always passes.
type CriterionMetric struct {
	Raw         float64 `json:"raw"`
	Scaled      int64   `json:"scaled"`
	Limit       float64 `json:"limit"`
	LimitScaled int64   `json:"limit_scaled"`
	Applies     bool    `json:"applies"`
	OK          bool    `json:"ok"`
}

// ImpedanceMetric is the two-sided variant of CriterionMetric used for the
// electrode impedance range check.
type ImpedanceMetric struct {
	Raw       float64 `json:"raw"`
	Scaled    int64   `json:"scaled"`
	Min       float64 `json:"min"`
	MinScaled int64   `json:"min_scaled"`
	Max       float64 `json:"max"`
	MaxScaled int64   `json:"max_scaled"`
	Applies   bool    `json:"applies"`
	OK        bool    `json:"ok"`
}

// Metrics is the full per-criterion breakdown of one evaluation. Every
// criterion appears regardless of pass/fail so auditors can reconstruct the
// decision without re-running the evaluator.
type Metrics struct {
	Sar           CriterionMetric `json:"sar"`
	ChargeDensity CriterionMetric `json:"charge_density"`
	ThermalDose   CriterionMetric `json:"thermal_dose"`
	Impedance     ImpedanceMetric `json:"impedance"`
}

// SafetyCheckResult is the structured outcome of evaluating one request.
// Rejection is an expected, auditable event, not an error: every well-typed
// request produces a result. Immutable once produced.
type SafetyCheckResult struct {
	OK      bool    `json:"ok"`
	Status  Status  `json:"status"`
	Detail  string  `json:"detail"`
	Metrics Metrics `json:"metrics"`
}

// ParseDeviceClass validates a caller-supplied class string. Fail-closed:
// anything outside the closed enumeration is rejected, never defaulted.
func ParseDeviceClass(s string) (DeviceClass, bool) {
	dc := DeviceClass(s)
	for _, known := range KnownClasses {
		if dc == known {
			return dc, true
		}
	}
	return dc, false
}
