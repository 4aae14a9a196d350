package domain

import (
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

// User is the owner of watches and queue entries. The id is the JWT subject.
type User struct {
	ID        string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
