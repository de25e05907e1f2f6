package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/stimguard/stimguard/internal/limits"
	"github.com/stimguard/stimguard/internal/model"
)

// Bundle is the audit export: the full unredacted log, the limit table the
// decisions were made under, and a hash binding the bundle to a declared
// policy/specification version. Consumable by an external report generator
// or regulator.
type Bundle struct {
	SpecHash   string                                        `json:"spec_hash"`
	KernelID   string                                        `json:"kernel_id"`
	LimitsHash string                                        `json:"limits_hash"`
	ExportedAt string                                        `json:"exported_at"`
	Limits     map[model.DeviceClass]model.BiophysicalLimits `json:"limits"`
	Log        []LogRecord                                   `json:"log"`
}

// Export bundles the registry and a point-in-time log snapshot for external
// auditors. Pure read: it never mutates kernel state, never filters or
// redacts the log. specDoc is the caller-supplied policy/specification
// document the export is bound to.
func Export(l *Log, registry *limits.Registry, specDoc []byte) Bundle {
	return Bundle{
		SpecHash:   HashDocument(specDoc),
		KernelID:   l.kernelID,
		LimitsHash: l.limitsHash,
		ExportedAt: time.Now().UTC().Format(TimestampFormat),
		Limits:     registry.Snapshot(),
		Log:        l.Records(),
	}
}

// WriteJSON writes the bundle as indented JSON.
func (b Bundle) WriteJSON(w io.Writer) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("audit: marshal export bundle: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("audit: write export bundle: %w", err)
	}
	return nil
}
