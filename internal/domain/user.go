package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	Name         string
	CPF          string
	PasswordHash string
	PhoneNumber  string
	DateOfBirth  time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
