package license

import (
	"encoding/hex"
	"net"
	"strings"
)

const hardwareKeyOctets = 6

// HardwareKey is a normalized EUI-48 style hardware identifier, typically the
// MAC address of a network adapter.
type HardwareKey struct {
	octets [hardwareKeyOctets]byte
}

// ParseHardwareKey parses six hex octets separated by '-' or ':'. Letter case
// and separator style do not affect the result.
func ParseHardwareKey(text string) (HardwareKey, error) {
	parts := strings.Split(strings.ReplaceAll(strings.TrimSpace(text), ":", "-"), "-")
	if len(parts) != hardwareKeyOctets {
		return HardwareKey{}, newError("parse hardware key", ErrInvalidFormat, text, nil)
	}
	var key HardwareKey
	for i, part := range parts {
		if len(part) != 2 {
			return HardwareKey{}, newError("parse hardware key", ErrInvalidFormat, text, nil)
		}
		b, err := hex.DecodeString(part)
		if err != nil {
			return HardwareKey{}, newError("parse hardware key", ErrInvalidFormat, text, err)
		}
		key.octets[i] = b[0]
	}
	return key, nil
}

// MustHardwareKey is ParseHardwareKey for constants and tests.
func MustHardwareKey(text string) HardwareKey {
	key, err := ParseHardwareKey(text)
	if err != nil {
		panic(err)
	}
	return key
}

// HardwareKeyFromAddr converts a 6-byte network hardware address.
func HardwareKeyFromAddr(addr net.HardwareAddr) (HardwareKey, error) {
	if len(addr) != hardwareKeyOctets {
		return HardwareKey{}, newError("hardware key from addr", ErrInvalidFormat, addr.String(), nil)
	}
	var key HardwareKey
	copy(key.octets[:], addr)
	return key, nil
}

// IsZero reports whether every octet is zero.
func (k HardwareKey) IsZero() bool {
	return k == HardwareKey{}
}

// Matches reports whether k equals at least one of the device candidates.
func (k HardwareKey) Matches(candidates []HardwareKey) bool {
	for _, c := range candidates {
		if c == k {
			return true
		}
	}
	return false
}

// String returns the canonical upper-case, dash-separated form.
func (k HardwareKey) String() string {
	var sb strings.Builder
	for i, b := range k.octets {
		if i > 0 {
			sb.WriteByte('-')
		}
		sb.WriteString(strings.ToUpper(hex.EncodeToString([]byte{b})))
	}
	return sb.String()
}

func (k HardwareKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *HardwareKey) UnmarshalText(text []byte) error {
	parsed, err := ParseHardwareKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
