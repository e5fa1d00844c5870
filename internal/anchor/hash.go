package anchor

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashBytes returns the hex SHA-256 digest of raw bytes, used to fingerprint
// attached documents.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashString returns the hex SHA-256 digest of a UTF-8 string.
func HashString(s string) string {
	return HashBytes([]byte(s))
}

// RecordFields is the claim material folded into the anchored record hash.
type RecordFields struct {
	HolderID string `json:"holderId"`
	Kind     string `json:"kind"`
	Value    string `json:"value"`
	FileHash string `json:"fileHash,omitempty"`
}

// SecureRecordHash builds the salted composite hash submitted to the ledger.
// The salt keeps the digest from being a dictionary-attackable function of
// the (low-entropy) claim fields alone.
func SecureRecordHash(fields RecordFields, salt string) (string, error) {
	encoded, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode record fields: %w", err)
	}
	return HashString(string(encoded) + "|" + salt), nil
}
