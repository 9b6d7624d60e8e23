// Package backupcode generates, formats and hashes two-factor backup codes.
// A code is Length uppercase alphanumerics, displayed as two groups of four.
package backupcode

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// Length is the number of significant characters in a code.
const Length = 8

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Generate returns n fresh codes in normalized form.
func Generate(n int) ([]string, error) {
	codes := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	for len(codes) < n {
		b := make([]byte, Length)
		for i := range b {
			idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
			if err != nil {
				return nil, fmt.Errorf("generate backup code: %w", err)
			}
			b[i] = alphabet[idx.Int64()]
		}
		c := string(b)
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		codes = append(codes, c)
	}
	return codes, nil
}

// Normalize strips everything but ASCII letters and digits, uppercases and
// truncates to Length.
func Normalize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		default:
			continue
		}
		if b.Len() == Length {
			break
		}
	}
	return b.String()
}

// Format renders user input for display: "ab12cd34" becomes "AB12 CD34".
func Format(s string) string {
	n := Normalize(s)
	if len(n) <= 4 {
		return n
	}
	return n[:4] + " " + n[4:]
}

// Valid reports whether s normalizes to a full-length code.
func Valid(s string) bool {
	return len(Normalize(s)) == Length
}

// Hash is the at-rest form of a code.
func Hash(code string) string {
	sum := sha256.Sum256([]byte(Normalize(code)))
	return hex.EncodeToString(sum[:])
}

// HashAll hashes every code. Codes that normalize to the same value yield a
// single hash.
func HashAll(codes []string) []string {
	out := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		h := Hash(c)
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}
