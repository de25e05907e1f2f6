package audit

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stimguard/stimguard/internal/limits"
	"github.com/stimguard/stimguard/internal/model"
)

func TestExportBundlesLogAndLimits(t *testing.T) {
	l := NewLog("kernel-export", "limits-abc")
	appendN(t, l, 3)
	registry := limits.DefaultConfig().Registry("limits-abc")

	specDoc := []byte("ruleset v1")
	bundle := Export(l, registry, specDoc)

	if bundle.SpecHash != HashDocument(specDoc) {
		t.Fatal("spec hash must bind the export to the supplied document")
	}
	if bundle.KernelID != "kernel-export" || bundle.LimitsHash != "limits-abc" {
		t.Fatalf("bundle identity wrong: %s / %s", bundle.KernelID, bundle.LimitsHash)
	}
	if len(bundle.Log) != 3 {
		t.Fatalf("export must carry the full log, got %d records", len(bundle.Log))
	}
	if len(bundle.Limits) != registry.Len() {
		t.Fatalf("export must carry the full limit table, got %d classes", len(bundle.Limits))
	}

	// Pure read: exporting must not mutate the log.
	if l.Len() != 3 {
		t.Fatal("export mutated the log")
	}
	if v := l.Verify(); !v.OK {
		t.Fatal("export corrupted the chain")
	}
}

func TestExportNeverFiltersRejections(t *testing.T) {
	l := NewLog("kernel-export", "limits-abc")
	appendN(t, l, 1)
	rejected := model.SafetyCheckResult{OK: false, Status: model.StatusLimitViolation, Detail: "limit violation: sar"}
	if _, err := l.Append(safeRequest(), rejected, model.Reject); err != nil {
		t.Fatal(err)
	}

	bundle := Export(l, limits.DefaultConfig().Registry("limits-abc"), []byte("doc"))
	if len(bundle.Log) != 2 {
		t.Fatalf("rejections must not be filtered, got %d records", len(bundle.Log))
	}
	if bundle.Log[1].Decision != model.Reject {
		t.Fatal("reject record missing from export")
	}
}

func TestExportWriteJSONRoundTrips(t *testing.T) {
	l := NewLog("kernel-export", "limits-abc")
	appendN(t, l, 2)

	bundle := Export(l, limits.DefaultConfig().Registry("limits-abc"), []byte("doc"))

	var buf bytes.Buffer
	if err := bundle.WriteJSON(&buf); err != nil {
		t.Fatal(err)
	}

	var back Bundle
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatalf("unmarshal exported bundle: %v", err)
	}
	if len(back.Log) != 2 || back.SpecHash != bundle.SpecHash {
		t.Fatal("bundle did not survive the JSON round trip")
	}

	// The re-read chain still verifies: the export is auditable offline.
	if v := VerifyChain(back.Log); !v.OK {
		t.Fatalf("re-read chain invalid: %s at %d", v.Reason, v.Index)
	}
}
