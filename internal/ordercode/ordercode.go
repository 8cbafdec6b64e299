// Package ordercode produces human-typeable identifiers for parcel orders.
package ordercode

import (
	"math/rand/v2"
	"regexp"
	"strings"
)

const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
const digits = "0123456789"

// Pattern matches a well-formed order code: a 3-letter block, a
// 2-digit+1-letter block and a 1-letter+1-digit block.
var Pattern = regexp.MustCompile(`^[A-Z]{3} [0-9]{2}[A-Z] [A-Z][0-9]$`)

// Generate returns a fresh order code such as "JKH 65T P3". Each symbol is
// drawn uniformly from its class. Codes are not checked for uniqueness here:
// the store's unique constraint rejects collisions and the caller retries.
func Generate() string {
	var b strings.Builder
	b.Grow(10)
	b.WriteByte(randLetter())
	b.WriteByte(randLetter())
	b.WriteByte(randLetter())
	b.WriteByte(' ')
	b.WriteByte(randDigit())
	b.WriteByte(randDigit())
	b.WriteByte(randLetter())
	b.WriteByte(' ')
	b.WriteByte(randLetter())
	b.WriteByte(randDigit())
	return b.String()
}

// Normalize canonicalizes user-supplied codes for lookup: trimmed and
// uppercased. Codes are always uppercase on the wire.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func randLetter() byte {
	return letters[rand.IntN(len(letters))]
}

func randDigit() byte {
	return digits[rand.IntN(len(digits))]
}
