package flashcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const keyPrefix = "sha256:"

// KeySize is the length of a Key in characters.
const KeySize = sha256.Size * 2

// Key identifies a cached result: the hex sha256 of the document's
// normalized text.
type Key string

// HashText returns the key for text. Identical text always yields the
// same key.
func HashText(text string) Key {
	h := sha256.Sum256([]byte(text))
	return Key(hex.EncodeToString(h[:]))
}

// ParseKey validates a hex key. A "sha256:" prefix and upper case hex are
// accepted.
func ParseKey(s string) (Key, error) {
	hash := strings.ToLower(strings.TrimPrefix(s, keyPrefix))
	if len(hash) != KeySize {
		return "", fmt.Errorf("%w: %q: want %d hex characters", ErrInvalidKey, s, KeySize)
	}
	if _, err := hex.DecodeString(hash); err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidKey, s, err)
	}
	return Key(hash), nil
}

func (k Key) String() string { return string(k) }

// Short returns the first 12 characters, for display.
func (k Key) Short() string {
	if len(k) <= 12 {
		return string(k)
	}
	return string(k[:12])
}
