package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrPageLocked         = errors.New("page is locked by another editor")
	ErrInvalidReference   = errors.New("referenced record does not exist")
)

// LockError reports who currently holds a page lock.
type LockError struct {
	PageID     string
	HolderID   string
	HolderName string
	LockedAt   time.Time
}

func (e *LockError) Error() string {
	return fmt.Sprintf("page %s is locked by %s since %s", e.PageID, e.HolderName, e.LockedAt.Format(time.RFC3339))
}

func (e *LockError) Unwrap() error { return ErrPageLocked }
