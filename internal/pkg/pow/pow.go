/*
Package pow implements the proof-of-work gate in front of account creation.

A client fetches a nonce, searches for a counter such that sha256(nonce+counter)
in hex starts with Difficulty zeros, and trades the solution for a short-lived,
single-use proof token that it presents when signing up.
*/
package pow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// ProofTokenDuration is how long an issued proof token stays valid.
	ProofTokenDuration = 2 * time.Minute

	// NonceExpiryDuration is how long a challenge nonce stays valid.
	NonceExpiryDuration = 5 * time.Minute
)

var (
	ErrNonceInvalid = errors.New("nonce expired or invalid")
	ErrProofInvalid = errors.New("proof does not meet difficulty requirement")
)

// Manager tracks outstanding nonces and issued proof tokens.
// A Manager with difficulty 0 is disabled and accepts any token.
type Manager struct {
	difficulty int

	mu     sync.Mutex
	nonces map[string]time.Time
	tokens map[string]time.Time

	now func() time.Time
}

// NewManager creates a Manager. The expiry sweep runs until ctx is done.
func NewManager(ctx context.Context, difficulty int) *Manager {
	m := &Manager{
		difficulty: difficulty,
		nonces:     make(map[string]time.Time),
		tokens:     make(map[string]time.Time),
		now:        time.Now,
	}

	if m.Enabled() {
		go m.sweep(ctx)
	}

	return m
}

func (m *Manager) Enabled() bool { return m != nil && m.difficulty > 0 }

func (m *Manager) Difficulty() int { return m.difficulty }

// GenerateNonce issues a new challenge nonce.
func (m *Manager) GenerateNonce() string {
	nonce := uuid.NewString()

	m.mu.Lock()
	m.nonces[nonce] = m.now().Add(NonceExpiryDuration)
	m.mu.Unlock()

	return nonce
}

// Solves reports whether counter solves nonce at the given difficulty.
func Solves(nonce, counter string, difficulty int) bool {
	hash := sha256.Sum256([]byte(nonce + counter))
	return strings.HasPrefix(hex.EncodeToString(hash[:]), strings.Repeat("0", difficulty))
}

// ValidateProof consumes nonce and returns a proof token when counter solves it.
func (m *Manager) ValidateProof(nonce, counter string) (string, error) {
	if !Solves(nonce, counter, m.difficulty) {
		return "", ErrProofInvalid
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, ok := m.nonces[nonce]
	if !ok || m.now().After(expiry) {
		return "", ErrNonceInvalid
	}
	delete(m.nonces, nonce)

	token := uuid.NewString()
	m.tokens[token] = m.now().Add(ProofTokenDuration)
	return token, nil
}

// ConsumeToken reports whether token is valid and removes it. Always true when disabled.
func (m *Manager) ConsumeToken(token string) bool {
	if !m.Enabled() {
		return true
	}
	if token == "" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, ok := m.tokens[token]
	if !ok {
		return false
	}
	delete(m.tokens, token)

	return !m.now().After(expiry)
}

func (m *Manager) sweep(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			now := m.now()
			for nonce, expiry := range m.nonces {
				if now.After(expiry) {
					delete(m.nonces, nonce)
				}
			}
			for token, expiry := range m.tokens {
				if now.After(expiry) {
					delete(m.tokens, token)
				}
			}
			m.mu.Unlock()
		}
	}
}
