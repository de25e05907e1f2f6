package daemon

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/stimguard/stimguard/internal/archive"
	"github.com/stimguard/stimguard/internal/kernel"
	"github.com/stimguard/stimguard/internal/limits"
	"github.com/stimguard/stimguard/internal/model"
)

func newTestGateway(t *testing.T, archivePath string) (*Gateway, *kernel.Kernel, GatewayConfig) {
	t.Helper()
	dir := t.TempDir()
	cfg := GatewayConfig{
		Inbox:   filepath.Join(dir, "inbox"),
		Outbox:  filepath.Join(dir, "outbox"),
		Archive: archivePath,
	}
	k := kernel.New(limits.DefaultConfig().Registry("limits-test"))
	g, err := NewGateway(cfg, k, zap.NewNop())
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	return g, k, cfg
}

func dropRequest(t *testing.T, inbox, name string, req model.ActuationRequest) string {
	t.Helper()
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(inbox, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func readDecision(t *testing.T, outbox, id string) decisionFile {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(outbox, id+".decision.json"))
	if err != nil {
		t.Fatalf("decision file missing: %v", err)
	}
	var d decisionFile
	if err := json.Unmarshal(data, &d); err != nil {
		t.Fatalf("decision file invalid: %v", err)
	}
	return d
}

func safeRequest() model.ActuationRequest {
	return model.ActuationRequest{
		DeviceClass:    model.ClassRetinal,
		Intensity:      0.01,
		RepetitionRate: 10,
		DutyCycle:      0.5,
		ChargePerArea:  0.1,
		Cem43Dose:      0.1,
		Impedance:      1.0,
	}
}

func TestProcessWritesAllowDecision(t *testing.T) {
	g, k, cfg := newTestGateway(t, "")

	path := dropRequest(t, cfg.Inbox, "req-001.json", safeRequest())
	g.Process(path)

	d := readDecision(t, cfg.Outbox, "req-001")
	if d.Decision != model.Allow || d.Result.Status != model.StatusSafe {
		t.Fatalf("decision=%s status=%s", d.Decision, d.Result.Status)
	}
	if d.Hash == "" {
		t.Fatal("decision must reference its log record hash")
	}
	if k.LogLen() != 1 {
		t.Fatalf("expected 1 logged decision, got %d", k.LogLen())
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("processed request file should be removed from the inbox")
	}
}

func TestProcessWritesRejectDecision(t *testing.T) {
	g, _, cfg := newTestGateway(t, "")

	req := safeRequest()
	req.Intensity = 1.0
	req.RepetitionRate = 50 // fSar = 25
	g.Process(dropRequest(t, cfg.Inbox, "req-002.json", req))

	d := readDecision(t, cfg.Outbox, "req-002")
	if d.Decision != model.Reject || d.Result.Status != model.StatusLimitViolation {
		t.Fatalf("decision=%s status=%s", d.Decision, d.Result.Status)
	}
}

func TestProcessMalformedJSONNeverAllows(t *testing.T) {
	g, k, cfg := newTestGateway(t, "")

	path := filepath.Join(cfg.Inbox, "req-003.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	g.Process(path)

	d := readDecision(t, cfg.Outbox, "req-003")
	if d.Decision != model.Reject {
		t.Fatalf("malformed input produced %s", d.Decision)
	}
	if d.Error == "" {
		t.Fatal("decision should carry the parse error")
	}
	if k.LogLen() != 0 {
		t.Fatal("unparseable input cannot be logged as a request")
	}
}

func TestProcessRejectsSymlink(t *testing.T) {
	g, k, cfg := newTestGateway(t, "")

	target := filepath.Join(t.TempDir(), "outside.json")
	data, _ := json.Marshal(safeRequest())
	os.WriteFile(target, data, 0600)

	link := filepath.Join(cfg.Inbox, "req-004.json")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	g.Process(link)

	d := readDecision(t, cfg.Outbox, "req-004")
	if d.Decision != model.Reject {
		t.Fatal("symlinked request must be rejected")
	}
	if k.LogLen() != 0 {
		t.Fatal("symlinked request must not reach the kernel")
	}
}

func TestProcessMirrorsToArchive(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "decisions.db")
	g, k, cfg := newTestGateway(t, archivePath)

	g.Process(dropRequest(t, cfg.Inbox, "req-005.json", safeRequest()))

	arc, err := archive.Open(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	defer arc.Close()

	v, err := arc.Verify(k.ID())
	if err != nil {
		t.Fatal(err)
	}
	if !v.OK {
		t.Fatalf("archived chain invalid: %s at %d", v.Reason, v.Index)
	}
	chain, err := arc.Chain(k.ID())
	if err != nil {
		t.Fatal(err)
	}
	if len(chain) != 1 {
		t.Fatalf("expected 1 archived record, got %d", len(chain))
	}
}

func TestIsRequestFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/spool/in/req.json", true},
		{"/spool/in/.req.json.swp", false},
		{"/spool/in/req.json.tmp", false},
		{"/spool/in/req.txt", false},
	}
	for _, tt := range tests {
		if got := isRequestFile(tt.path); got != tt.want {
			t.Errorf("isRequestFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
