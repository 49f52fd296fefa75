package user

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("user: not found")

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID        string
	Email     string
	Username  string
	Role      Role
	CreatedAt time.Time
}

// Directory is the read side of the user store this service depends on.
type Directory interface {
	Save(ctx context.Context, u *User) error
	Get(ctx context.Context, id string) (*User, error)
	ListIDsByRole(ctx context.Context, role Role) ([]string, error)
}
