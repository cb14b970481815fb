package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHashCost is the bcrypt cost used by HashPassword
var PasswordHashCost = 12

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), PasswordHashCost)
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if password == "" || hash == "" {
		return ErrMismatchedHashAndPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// PasswordMatches is ComparePasswordAndHash as a boolean.
func PasswordMatches(password, hash string) bool {
	return ComparePasswordAndHash(password, hash) == nil
}
