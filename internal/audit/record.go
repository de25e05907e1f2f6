package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/stimguard/stimguard/internal/model"
)

// TimestampFormat is the layout used in log record timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// LogRecord is one entry in the hash-chained decision log.
// All fields are structs (no map[string]any) to guarantee deterministic
// json.Marshal field order for reproducible hashing. Hash is the SHA-256
// hex digest of the record's canonical serialization excluding the hash
// field itself; PrevHash is the previous record's Hash, empty for the
// genesis record.
type LogRecord struct {
	Timestamp  string                  `json:"ts"`
	KernelID   string                  `json:"kernel_id"`
	LimitsHash string                  `json:"limits_hash"`
	Request    model.ActuationRequest  `json:"request"`
	Result     model.SafetyCheckResult `json:"result"`
	Decision   model.Decision          `json:"decision"`
	PrevHash   string                  `json:"prev_hash"`
	Hash       string                  `json:"hash"`
}

// recordBody mirrors LogRecord without the hash field. Hashing marshals
// this shadow struct so the digest covers a fixed, explicit field order
// independent of any container's default enumeration.
type recordBody struct {
	Timestamp  string                  `json:"ts"`
	KernelID   string                  `json:"kernel_id"`
	LimitsHash string                  `json:"limits_hash"`
	Request    model.ActuationRequest  `json:"request"`
	Result     model.SafetyCheckResult `json:"result"`
	Decision   model.Decision          `json:"decision"`
	PrevHash   string                  `json:"prev_hash"`
}

// CanonicalBytes returns the canonical serialization a record's hash is
// computed over.
func CanonicalBytes(r LogRecord) ([]byte, error) {
	body := recordBody{
		Timestamp:  r.Timestamp,
		KernelID:   r.KernelID,
		LimitsHash: r.LimitsHash,
		Request:    r.Request,
		Result:     r.Result,
		Decision:   r.Decision,
		PrevHash:   r.PrevHash,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("audit: marshal record: %w", err)
	}
	return data, nil
}

// HashRecord recomputes a record's hash from its other fields:
// lowercase hex SHA-256 of the canonical serialization.
func HashRecord(r LogRecord) (string, error) {
	data, err := CanonicalBytes(r)
	if err != nil {
		return "", err
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:]), nil
}

// HashDocument returns the lowercase hex SHA-256 digest of an arbitrary
// document, used to bind audit exports to a policy/specification version.
func HashDocument(doc []byte) string {
	h := sha256.Sum256(doc)
	return hex.EncodeToString(h[:])
}
