/*
Package randx generates identifiers: UUIDs for persisted records and short
Base62 tokens for live connections.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	// Base62Chars is the alphabet used for short tokens (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// ConnectionIDLength is the length of the random part of a connection id.
	ConnectionIDLength = 12

	connectionIDPrefix = "conn_"
)

var base62Len = big.NewInt(int64(len(Base62Chars)))

// Base62 returns n cryptographically random Base62 characters.
func Base62(n int) (string, error) {
	result := make([]byte, n)

	for i := 0; i < n; i++ {
		num, err := rand.Int(rand.Reader, base62Len)
		if err != nil {
			return "", fmt.Errorf("failed to generate random base62 character: %w", err)
		}
		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// ConnectionID returns a new identifier for a live websocket connection.
// It falls back to a UUID if the random source fails.
func ConnectionID() string {
	raw, err := Base62(ConnectionIDLength)
	if err != nil {
		return connectionIDPrefix + uuid.NewString()
	}
	return connectionIDPrefix + raw
}

// ID returns a new UUID v4 string for users, messages and uploads.
func ID() string {
	return uuid.NewString()
}
