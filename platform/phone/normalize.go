// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"encoding/hex"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/crypto/blake2b"
)

// DefaultRegion is used when the caller does not supply one.
const DefaultRegion = "US"

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func NormalizeE164(input, region string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}
	if region == "" {
		region = DefaultRegion
	}

	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil {
		return trimmed
	}
	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}

// LookupHash derives a keyed, hex-encoded BLAKE2b-256 digest of a normalized
// number so leads can be matched by phone without indexing the raw value.
// An empty number yields an empty hash.
func LookupHash(key []byte, normalized string) (string, error) {
	if normalized == "" {
		return "", nil
	}
	if len(key) > blake2b.Size {
		key = key[:blake2b.Size]
	}
	h, err := blake2b.New256(key)
	if err != nil {
		return "", err
	}
	_, _ = h.Write([]byte(normalized))
	return hex.EncodeToString(h.Sum(nil)), nil
}
