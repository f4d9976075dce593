package util

import (
	"crypto/rand"
	"crypto/subtle"
)

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CryptoRandomBytes generates cryptographically secure random bytes
func CryptoRandomBytes(length int64) ([]byte, error) {
	buf := make([]byte, length)
	_, err := rand.Read(buf)
	return buf, err
}

// CryptoRandomString generates a random string of [a-zA-Z0-9] characters.
// Bytes at or above the largest multiple of the alphabet size are discarded
// so every character is equally likely.
func CryptoRandomString(length int) (string, error) {
	const limit = 256 - 256%len(alphanumeric)

	out := make([]byte, 0, length)
	for len(out) < length {
		buf, err := CryptoRandomBytes(int64(length - len(out) + 8))
		if err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphanumeric[int(b)%len(alphanumeric)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}

// ConstantTimeEqual reports whether a and b are equal without leaking
// the position of the first mismatch through timing.
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
