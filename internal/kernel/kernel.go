// Package kernel assembles the safety-envelope decision kernel: one
// immutable limit registry, one evaluator, and one append-only decision
// log per instance. Distinct devices/patients get distinct kernels: the
// log is never shared across them, and there is no process-wide singleton.
package kernel

import (
	"github.com/google/uuid"

	"github.com/stimguard/stimguard/internal/audit"
	"github.com/stimguard/stimguard/internal/limits"
	"github.com/stimguard/stimguard/internal/model"
	"github.com/stimguard/stimguard/internal/safety"
)

// Kernel owns one ordered decision log and one limit registry. The upstream
// controller gates hardware actuation on the Decision it returns: anything
// other than ALLOW is a hard stop.
type Kernel struct {
	id        string
	registry  *limits.Registry
	evaluator *safety.Evaluator
	log       *audit.Log
}

// Outcome is what the caller gets back from an evaluate-and-log cycle.
type Outcome struct {
	Decision model.Decision          `json:"decision"`
	Result   model.SafetyCheckResult `json:"result"`
	Record   audit.LogRecord         `json:"record"`
}

// New constructs a kernel over the given registry with a fresh identity.
func New(registry *limits.Registry) *Kernel {
	id := uuid.NewString()
	return &Kernel{
		id:        id,
		registry:  registry,
		evaluator: safety.New(registry),
		log:       audit.NewLog(id, registry.Hash()),
	}
}

// ID returns the kernel instance identity stamped into every log record.
func (k *Kernel) ID() string {
	return k.id
}

// Evaluate runs the safety evaluation without touching the log. It never
// mutates kernel state.
func (k *Kernel) Evaluate(req model.ActuationRequest) model.SafetyCheckResult {
	return k.evaluator.Evaluate(req)
}

// Process evaluates a request and appends the outcome to the decision log.
// The decision is ALLOW if and only if the result's OK flag is set. The
// append fails only when the kernel is sealed.
func (k *Kernel) Process(req model.ActuationRequest) (Outcome, error) {
	result := k.evaluator.Evaluate(req)
	decision := model.DecisionFor(result)

	rec, err := k.log.Append(req, result, decision)
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Decision: decision,
		Result:   result,
		Record:   rec,
	}, nil
}

// VerifyLog recomputes the hash chain over a snapshot of the log.
// A corrupt historical log is a reportable fact, not an error: reliance on
// history should halt, but whether new evaluations continue is the
// integrator's policy choice.
func (k *Kernel) VerifyLog() audit.VerifyResult {
	return k.log.Verify()
}

// ExportForAudit bundles registry, full log, and the hash of the supplied
// specification document for external auditors. Read-only.
func (k *Kernel) ExportForAudit(specDoc []byte) audit.Bundle {
	return audit.Export(k.log, k.registry, specDoc)
}

// Records returns a point-in-time copy of the decision log.
func (k *Kernel) Records() []audit.LogRecord {
	return k.log.Records()
}

// LogLen returns the current chain length.
func (k *Kernel) LogLen() int {
	return k.log.Len()
}

// Seal closes the append path while an audit snapshot is taken; evaluation,
// verification, and export remain available.
func (k *Kernel) Seal() {
	k.log.Seal()
}

// Unseal re-opens the append path.
func (k *Kernel) Unseal() {
	k.log.Unseal()
}

// Sealed reports whether the append path is closed.
func (k *Kernel) Sealed() bool {
	return k.log.Sealed()
}
