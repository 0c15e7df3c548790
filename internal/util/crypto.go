package util

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const tokenBytes = 32

// secretAlphabet omits 0/O and 1/I.
const secretAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func GenerateToken() (string, error) {
	bytes := make([]byte, tokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// GenerateSecret returns groups of groupLen random characters joined by '-',
// e.g. "K7QF-M2XA-9PZD" for (3, 4).
func GenerateSecret(groups, groupLen int) (string, error) {
	limit := big.NewInt(int64(len(secretAlphabet)))
	parts := make([]string, groups)
	for g := 0; g < groups; g++ {
		buf := make([]byte, groupLen)
		for i := range buf {
			n, err := rand.Int(rand.Reader, limit)
			if err != nil {
				return "", err
			}
			buf[i] = secretAlphabet[n.Int64()]
		}
		parts[g] = string(buf)
	}
	return strings.Join(parts, "-"), nil
}

func HmacSHA256(secret, data string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func MaskCode(code string) string {
	if len(code) <= 4 {
		return "****"
	}
	return code[:4] + "-****"
}
