// Package auth implements the console's single-operator password gate and
// the session store behind it.
package auth

import "golang.org/x/crypto/bcrypt"

// VerifyPassword checks a login attempt against the configured bcrypt
// hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// HashPassword produces a bcrypt hash suitable for the admin password
// secret file.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
