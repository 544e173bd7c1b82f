package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// codeCharset skips look-alike characters (0/O, 1/I/L) since residents type codes by hand.
var codeCharset = []rune("ABCDEFGHJKMNPQRSTUVWXYZ23456789")

// DefaultCodeLength is used when callers pass a non-positive length.
const DefaultCodeLength = 10

// GenerateCode produces a random invite code of the given length.
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}

	result := make([]rune, length)
	for i := 0; i < length; i++ {
		idx, err := randInt(len(codeCharset))
		if err != nil {
			return "", err
		}
		result[i] = codeCharset[idx]
	}
	return string(result), nil
}

func randInt(max int) (int, error) {
	if max <= 0 {
		return 0, fmt.Errorf("invalid max %d", max)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, fmt.Errorf("read random: %w", err)
	}
	return int(n.Int64()), nil
}
