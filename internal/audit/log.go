// Package audit implements the tamper-evident decision log: an in-memory,
// append-only sequence of SHA-256 hash-chained records, plus chain
// verification and the audit export bundle. Durable persistence is an
// external collaborator's concern (see internal/archive).
package audit

import (
	"errors"
	"sync"
	"time"

	"github.com/stimguard/stimguard/internal/model"
)

// ErrSealed is returned when appending to a sealed log.
var ErrSealed = errors.New("audit: log is sealed")

// Log is the append-only, hash-chained decision log of one kernel instance.
// Append is the only mutator and is strictly additive. The mutex serializes
// the read-tail/compute-hash/append sequence: without it two concurrent
// appends could read the same tail hash and fork the chain.
type Log struct {
	mu         sync.Mutex
	kernelID   string
	limitsHash string
	records    []LogRecord
	sealed     bool
	now        func() time.Time
}

// NewLog creates an empty log stamped with the owning kernel's identity and
// the hash of the limit configuration its decisions were made under.
func NewLog(kernelID, limitsHash string) *Log {
	return &Log{
		kernelID:   kernelID,
		limitsHash: limitsHash,
		now:        time.Now,
	}
}

// Append records one evaluation outcome as the new chain tail and returns
// the completed record. It fails only when the log is sealed or the record
// cannot be serialized; rejection decisions append like any other.
func (l *Log) Append(req model.ActuationRequest, result model.SafetyCheckResult, decision model.Decision) (LogRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sealed {
		return LogRecord{}, ErrSealed
	}

	prevHash := ""
	if n := len(l.records); n > 0 {
		prevHash = l.records[n-1].Hash
	}

	rec := LogRecord{
		Timestamp:  l.now().UTC().Format(TimestampFormat),
		KernelID:   l.kernelID,
		LimitsHash: l.limitsHash,
		Request:    req,
		Result:     result,
		Decision:   decision,
		PrevHash:   prevHash,
	}

	hash, err := HashRecord(rec)
	if err != nil {
		return LogRecord{}, err
	}
	rec.Hash = hash

	l.records = append(l.records, rec)
	return rec, nil
}

// Records returns a point-in-time copy of the log. Read-only consumers
// (verify, export, archive) operate on the snapshot, never on live state.
func (l *Log) Records() []LogRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := make([]LogRecord, len(l.records))
	copy(cp, l.records)
	return cp
}

// Len returns the current chain length.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Seal stops further appends. Evaluation, verification, and export stay
// available; only the append path is closed.
func (l *Log) Seal() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sealed = true
}

// Unseal re-opens the append path.
func (l *Log) Unseal() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sealed = false
}

// Sealed reports whether the append path is closed.
func (l *Log) Sealed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sealed
}
