package crypto

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a password with bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPasswordHash is a function to compare provided password with the hashed password
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// MD5Signature returns the uppercase hex MD5 of parts joined with ":"
func MD5Signature(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, ":")))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// SecureCompare compares two signatures in constant time, ignoring case
func SecureCompare(expected, actual string) bool {
	return subtle.ConstantTimeCompare(
		[]byte(strings.ToUpper(expected)),
		[]byte(strings.ToUpper(actual)),
	) == 1
}
