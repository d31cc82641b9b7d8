package domain

import "fmt"

type ValidationError struct {
	Msg string
}

func (e ValidationError) Error() string { return e.Msg }

type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string { return fmt.Sprintf("product not found: %s", e.ID) }
