// Package token builds and parses the portable share token: a point-in-time,
// holder-approved snapshot of claims with an expiry, transportable as a QR
// payload or link parameter.
//
// The signature field is a deterministic placeholder that gives the payload a
// recognizable shape for the demo verifier. It provides no cryptographic
// guarantee; anyone can forge it.
package token

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"credvault/internal/claim/models"
	dErrors "credvault/pkg/domain-errors"
)

// SignaturePrefix marks demo-shaped tokens. The verifier's shape check keys
// on it.
const SignaturePrefix = "DEMO_SIG_"

// SharedClaim is one claim as embedded in a token snapshot.
type SharedClaim struct {
	Kind     string `json:"kind"`
	Value    string `json:"value"`
	Issuer   string `json:"issuer"`
	IssuedOn string `json:"issuedOn"`
}

// Token is the share bundle. Expiry and IssuedAt are unix milliseconds.
type Token struct {
	HolderID   string            `json:"holderId"`
	HolderName string            `json:"holderName"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Expiry     int64             `json:"expiry"`
	IssuedAt   int64             `json:"issuedAt"`
	Claims     []SharedClaim     `json:"claims"`
	Signature  string            `json:"signature"`
}

// ExpiresAt returns the expiry as a time.
func (t Token) ExpiresAt() time.Time {
	return time.UnixMilli(t.Expiry)
}

// SignatureFor derives the placeholder signature for a holder and expiry.
func SignatureFor(holderID string, expiry int64) string {
	return SignaturePrefix + holderID + "_" + strconv.FormatInt(expiry, 10)
}

// Encode filters claims down to the shareable set (visible and active) and
// wraps them in a token valid for ttl from now. An empty shareable set is an
// error: vacuous tokens must never be generated.
func Encode(holder models.Holder, claims []models.Claim, ttl time.Duration, now time.Time) (Token, error) {
	var shared []SharedClaim
	for _, c := range claims {
		if !c.Visible || c.Status != models.StatusActive {
			continue
		}
		shared = append(shared, SharedClaim{
			Kind:     string(c.Kind),
			Value:    c.Value,
			Issuer:   c.Issuer,
			IssuedOn: c.IssuedOn.Format("2006-01-02"),
		})
	}
	if len(shared) == 0 {
		return Token{}, dErrors.New(dErrors.CodeNothingToShare, "holder has no visible active claims to share")
	}

	expiry := now.Add(ttl).UnixMilli()
	return Token{
		HolderID:   holder.ID,
		HolderName: holder.Name,
		Attributes: holder.Attributes(),
		Expiry:     expiry,
		IssuedAt:   now.UnixMilli(),
		Claims:     shared,
		Signature:  SignatureFor(holder.ID, expiry),
	}, nil
}

// Serialize renders a token to its transport form, base64 of UTF-8 JSON,
// safe to embed in a URL query parameter or a QR payload.
func Serialize(t Token) (string, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("marshal token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Deserialize is the inverse of Serialize. Any decode failure surfaces as a
// malformed-token error; structural checks beyond JSON shape belong to the
// verifier.
func Deserialize(s string) (Token, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Token{}, dErrors.New(dErrors.CodeMalformedToken, "empty token")
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Token{}, dErrors.Wrap(dErrors.CodeMalformedToken, "token is not valid base64", err)
	}
	var t Token
	if err := json.Unmarshal(raw, &t); err != nil {
		return Token{}, dErrors.Wrap(dErrors.CodeMalformedToken, "token payload is not valid JSON", err)
	}
	return t, nil
}
