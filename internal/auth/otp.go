package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"credvault/pkg/platform/sentinel"
)

// otpEntry is a pending one-time code for an email address.
type otpEntry struct {
	code      string
	expiresAt time.Time
}

// OTPStore keeps pending login codes in memory. Codes are single-use: a
// successful consume removes the entry.
type OTPStore struct {
	mu      sync.Mutex
	pending map[string]otpEntry
}

func NewOTPStore() *OTPStore {
	return &OTPStore{pending: make(map[string]otpEntry)}
}

// Put stores a code for an email, replacing any previous one.
func (s *OTPStore) Put(email, code string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[email] = otpEntry{code: code, expiresAt: expiresAt}
}

// Consume validates and burns a code.
func (s *OTPStore) Consume(email, code string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pending[email]
	if !ok || entry.code != code {
		return sentinel.ErrNotFound
	}
	if now.After(entry.expiresAt) {
		delete(s.pending, email)
		return sentinel.ErrExpired
	}
	delete(s.pending, email)
	return nil
}

// generateOTP returns a 6-digit numeric code.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
