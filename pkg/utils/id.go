package utils

import "github.com/google/uuid"

// GenerateID returns a random UUID v4 string, used for rides, users and payments.
func GenerateID() string {
	return uuid.NewString()
}
