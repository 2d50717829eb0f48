package wire

import (
	"strings"

	"github.com/google/uuid"
)

const upperHexDigits = "0123456789ABCDEF"

// NonceLength is the length of the nonce carried by every tracking line.
const NonceLength = 16

// NewNonce returns a fresh 16-character uppercase-hex nonce. The collector
// uses nonces to deduplicate redelivered tracking lines.
func NewNonce() string {
	id := uuid.New()
	var sb strings.Builder
	sb.Grow(NonceLength)
	for _, b := range id[:NonceLength/2] {
		sb.WriteByte(upperHexDigits[b>>4])
		sb.WriteByte(upperHexDigits[b&0x0f])
	}
	return sb.String()
}

// EncodeURIComponent percent-encodes s the way the JavaScript function of the
// same name does: ASCII letters, digits and - _ . ! ~ * ' ( ) pass through,
// everything else (UTF-8 byte-wise) is %XX-escaped. The collector expects this
// exact alphabet, which differs from net/url's form encoding (e.g. space is
// "%20", never "+").
func EncodeURIComponent(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if shouldEscape(c) {
			sb.WriteByte('%')
			sb.WriteByte(upperHexDigits[c>>4])
			sb.WriteByte(upperHexDigits[c&0x0f])
		} else {
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func shouldEscape(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return false
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return false
	}
	return true
}
