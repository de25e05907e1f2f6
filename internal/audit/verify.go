package audit

// Reason classifies the first chain violation a verification walk found.
type Reason string

const (
	ReasonHashMismatch   Reason = "HASH_MISMATCH"
	ReasonBadGenesisPrev Reason = "BAD_GENESIS_PREV_HASH"
	ReasonBrokenChain    Reason = "BROKEN_CHAIN"
	ReasonUnserializable Reason = "UNSERIALIZABLE_RECORD"
)

// VerifyResult is the structured outcome of a chain verification.
// Index and Reason are meaningful only when OK is false and localize the
// earliest tampered record: the forensic contract is "where", not just
// "something is wrong".
type VerifyResult struct {
	OK     bool   `json:"ok"`
	Index  int    `json:"index"`
	Reason Reason `json:"reason,omitempty"`
}

// Verify validates the log's hash chain against a point-in-time snapshot.
// An empty log is valid.
func (l *Log) Verify() VerifyResult {
	return VerifyChain(l.Records())
}

// VerifyChain walks records in order and fails fast at the first violation:
// every stored hash must be independently recomputable from the record's
// other fields, the genesis record must have an empty prev hash, and every
// later record must link to its predecessor's stored hash.
func VerifyChain(records []LogRecord) VerifyResult {
	for i, rec := range records {
		expected, err := HashRecord(rec)
		if err != nil {
			return VerifyResult{Index: i, Reason: ReasonUnserializable}
		}
		if rec.Hash != expected {
			return VerifyResult{Index: i, Reason: ReasonHashMismatch}
		}

		if i == 0 {
			if rec.PrevHash != "" {
				return VerifyResult{Index: 0, Reason: ReasonBadGenesisPrev}
			}
			continue
		}
		if rec.PrevHash != records[i-1].Hash {
			return VerifyResult{Index: i, Reason: ReasonBrokenChain}
		}
	}
	return VerifyResult{OK: true}
}
