package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stimguard/stimguard/internal/archive"
	"github.com/stimguard/stimguard/internal/kernel"
	"github.com/stimguard/stimguard/internal/model"
)

// GatewayConfig holds runtime configuration for the request gateway.
type GatewayConfig struct {
	Inbox   string
	Outbox  string
	Archive string // empty disables archiving
}

// Gateway processes dropped actuation-request files through one kernel.
type Gateway struct {
	cfg GatewayConfig
	k   *kernel.Kernel
	arc *archive.Archive
	log *zap.Logger
}

// decisionFile is the outbox document written per processed request.
type decisionFile struct {
	ID       string                  `json:"id"`
	Decision model.Decision          `json:"decision"`
	Result   model.SafetyCheckResult `json:"result"`
	Hash     string                  `json:"record_hash"`
	Error    string                  `json:"error,omitempty"`
}

// NewGateway creates a gateway over an existing kernel. When cfg.Archive is
// set, every processed decision is mirrored to the SQLite archive.
func NewGateway(cfg GatewayConfig, k *kernel.Kernel, logger *zap.Logger) (*Gateway, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gateway{cfg: cfg, k: k, log: logger}

	for _, dir := range []string{cfg.Inbox, cfg.Outbox} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("daemon: create directory %s: %w", dir, err)
		}
	}

	if cfg.Archive != "" {
		arc, err := archive.Open(cfg.Archive)
		if err != nil {
			return nil, err
		}
		g.arc = arc
	}
	return g, nil
}

// Run drains any requests already in the inbox, then watches for new ones
// until ctx is cancelled.
func (g *Gateway) Run(ctx context.Context) error {
	entries, err := os.ReadDir(g.cfg.Inbox)
	if err != nil {
		return fmt.Errorf("daemon: read inbox: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() && isRequestFile(e.Name()) {
			g.Process(filepath.Join(g.cfg.Inbox, e.Name()))
		}
	}

	w := NewInboxWatcher(g.cfg.Inbox, g.Process)
	err = w.Run(ctx)

	if g.arc != nil {
		if cerr := g.arc.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Process handles a single request file: read, evaluate-and-log, write the
// decision to the outbox, remove the inbox file. Malformed input still
// produces an outbox document so the controller always gets an answer,
// and that answer is never ALLOW.
func (g *Gateway) Process(reqPath string) {
	id := requestID(reqPath)

	// Structural symlink defense: reject symlinks before reading so a
	// dropped link cannot pull arbitrary filesystem content into the
	// decision log.
	fi, err := os.Lstat(reqPath)
	if err != nil {
		g.log.Warn("stat request file", zap.String("path", reqPath), zap.Error(err))
		return
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		g.log.Warn("rejected symlink in inbox", zap.String("path", reqPath))
		g.writeDecision(decisionFile{ID: id, Decision: model.Reject, Error: "rejected symlink"})
		_ = os.Remove(reqPath)
		return
	}

	data, err := os.ReadFile(reqPath)
	if err != nil {
		g.log.Warn("read request file", zap.String("path", reqPath), zap.Error(err))
		return
	}

	var req model.ActuationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		g.log.Warn("invalid request JSON", zap.String("id", id), zap.Error(err))
		g.writeDecision(decisionFile{ID: id, Decision: model.Reject, Error: fmt.Sprintf("invalid JSON: %v", err)})
		_ = os.Remove(reqPath)
		return
	}

	outcome, err := g.k.Process(req)
	if err != nil {
		// Sealed kernel: the request was not logged, so it must not actuate.
		g.log.Warn("kernel append failed", zap.String("id", id), zap.Error(err))
		g.writeDecision(decisionFile{ID: id, Decision: model.Reject, Error: err.Error()})
		_ = os.Remove(reqPath)
		return
	}

	g.log.Info("decision",
		zap.String("id", id),
		zap.String("device_class", string(req.DeviceClass)),
		zap.String("decision", string(outcome.Decision)),
		zap.String("status", string(outcome.Result.Status)),
		zap.String("hash", outcome.Record.Hash),
	)

	g.writeDecision(decisionFile{
		ID:       id,
		Decision: outcome.Decision,
		Result:   outcome.Result,
		Hash:     outcome.Record.Hash,
	})

	if g.arc != nil {
		if err := g.arc.Mirror(g.k.Records()); err != nil {
			g.log.Error("archive mirror failed", zap.Error(err))
		}
	}

	_ = os.Remove(reqPath)
}

// writeDecision writes the outbox document atomically: temp file first,
// then rename, so consumers never observe a partial decision.
func (g *Gateway) writeDecision(d decisionFile) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		g.log.Error("marshal decision", zap.String("id", d.ID), zap.Error(err))
		return
	}

	final := filepath.Join(g.cfg.Outbox, d.ID+".decision.json")
	tmp := final + fmt.Sprintf(".%d.tmp", time.Now().UnixNano())
	if err := os.WriteFile(tmp, append(data, '\n'), 0600); err != nil {
		g.log.Error("write decision", zap.String("id", d.ID), zap.Error(err))
		return
	}
	if err := os.Rename(tmp, final); err != nil {
		g.log.Error("rename decision", zap.String("id", d.ID), zap.Error(err))
		_ = os.Remove(tmp)
	}
}

func requestID(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".json")
}
