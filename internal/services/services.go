package services

import (
	"errors"
	"time"
)

var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrRoleNotFound         = errors.New("role not found")
	ErrUserNotFound         = errors.New("user not found")
)

func utcNow() time.Time {
	return time.Now().UTC()
}
