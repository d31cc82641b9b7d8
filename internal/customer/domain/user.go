package domain

import (
	"errors"
	"fmt"
	"time"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

type User struct {
	ID           string
	Name         string
	Email        string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
}

type ValidationError struct {
	Msg string
}

func (e ValidationError) Error() string { return e.Msg }

type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string { return fmt.Sprintf("user not found: %s", e.ID) }

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNoSession          = errors.New("no valid session")
)
