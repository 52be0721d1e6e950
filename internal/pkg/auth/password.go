package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor for operator password hashes
const BcryptCost = bcrypt.DefaultCost

// MinPasswordLength is the shortest password accepted for an operator
const MinPasswordLength = 6

// HashPassword hashes a password for storage
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckPassword reports whether password matches the stored hash
func CheckPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}
