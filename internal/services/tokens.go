package services

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"math/big"
)

const codeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// urlToken returns an unguessable URL-safe token built from n random bytes
func urlToken(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// hexToken returns n random bytes hex encoded
func hexToken(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

// inviteCode generates a short human-friendly code
func inviteCode(length int) string {
	code := make([]byte, length)
	for i := range code {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(codeChars))))
		code[i] = codeChars[n.Int64()]
	}
	return string(code)
}
