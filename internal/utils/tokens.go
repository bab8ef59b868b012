package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
)

const defaultTokenBytes = 32

// NewRefreshToken returns an opaque hex token built from nBytes random bytes.
func NewRefreshToken(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = defaultTokenBytes
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NewNumericCode draws a uniform integer in [lo, hi] and renders it
// zero-padded to the width of hi.
func NewNumericCode(lo, hi int64) (string, error) {
	if lo < 0 || hi < lo {
		return "", fmt.Errorf("numeric code: bad range [%d, %d]", lo, hi)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(hi-lo+1))
	if err != nil {
		return "", fmt.Errorf("numeric code: %w", err)
	}
	width := len(strconv.FormatInt(hi, 10))
	return fmt.Sprintf("%0*d", width, n.Int64()+lo), nil
}
