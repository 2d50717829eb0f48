// Package hashing provides the deterministic visitor bucketing hash.
//
// The hash must produce bit-identical results across SDK implementations:
// the same (visitor, container) pair is always assigned the same point in
// [0, 1), which is what makes variation assignment sticky without any
// server-side storage.
package hashing

import (
	"crypto/sha256"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	// VisitorCodeMaxLength is the longest visitor code accepted by any
	// public entry point.
	VisitorCodeMaxLength = 255
	// VisitorCodeLength is the length of generated visitor codes.
	VisitorCodeLength = 16
)

var two256 = new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 256))

// ObtainHashDouble computes the legacy bucketing hash keyed by a string
// container id and an optional respool-time map whose values are appended in
// key order.
func ObtainHashDouble(visitorCode string, respoolTimes map[string]int, containerID string) float64 {
	var sb strings.Builder
	sb.WriteString(visitorCode)
	sb.WriteString(containerID)
	if len(respoolTimes) > 0 {
		keys := make([]string, 0, len(respoolTimes))
		for k := range respoolTimes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(strconv.Itoa(respoolTimes[k]))
		}
	}
	return hashDouble(sb.String())
}

// ObtainHashDoubleRule computes the rule-oriented bucketing hash keyed by an
// integer container id (rule or experiment id) with the respool time, when
// present, appended as a suffix.
func ObtainHashDoubleRule(visitorCode string, containerID int, respoolTime *int) float64 {
	suffix := ""
	if respoolTime != nil && *respoolTime != 0 {
		suffix = strconv.Itoa(*respoolTime)
	}
	return hashDouble(visitorCode + strconv.Itoa(containerID) + suffix)
}

// hashDouble maps an identifier to [0, 1) by interpreting its SHA-256 digest
// as an unsigned 256-bit integer divided by 2^256.
func hashDouble(identifier string) float64 {
	digest := sha256.Sum256([]byte(identifier))
	n := new(big.Int).SetBytes(digest[:])
	q := new(big.Float).Quo(new(big.Float).SetInt(n), two256)
	f, _ := q.Float64()
	// Guard the half-open interval against rounding at the top end.
	if f >= 1 {
		f = math.Nextafter(1, 0)
	}
	return f
}

// GenerateVisitorCode returns a random 16-character lowercase-hex visitor
// code.
func GenerateVisitorCode() string {
	id := uuid.New()
	const hexDigits = "0123456789abcdef"
	var sb strings.Builder
	sb.Grow(VisitorCodeLength)
	for _, b := range id[:VisitorCodeLength/2] {
		sb.WriteByte(hexDigits[b>>4])
		sb.WriteByte(hexDigits[b&0x0f])
	}
	return sb.String()
}
