// Package session keeps the per-browser client state (auth token, current
// view, selected entity ids) behind an explicit store interface.
package session

import (
	"context"
	"errors"
)

// Well-known keys.
const (
	KeyToken             = "token"
	KeyRole              = "role"
	KeyUserID            = "userId"
	KeyUserName          = "userName"
	KeyView              = "view"
	KeySelectedHomework  = "selectedHomeworkId"
	KeySelectedGroup     = "selectedGroupId"
	KeySelectedTeacher   = "selectedTeacherId"
	KeySelectedDate      = "selectedDate"
	KeySelectedStudent   = "selectedStudentId"
	previewKeyPrefix     = "preview:"
	sessionCreatedMarker = "_created"
)

var (
	ErrUnknownSession = errors.New("unknown session")
	ErrInvalidID      = errors.New("invalid session id")
)

// Store is a key-value store scoped to one client session.
type Store interface {
	// Get returns the value and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// Clear removes every key of the session.
	Clear(ctx context.Context) error
}

// Backend creates and opens session stores.
type Backend interface {
	Create(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
	// Touch restarts the idle timer of a session and reports whether it exists.
	Touch(ctx context.Context, id string) (bool, error)
	Open(id string) Store
	Destroy(ctx context.Context, id string) error
}

// GetString returns the value of key or "" when absent.
func GetString(ctx context.Context, s Store, key string) (string, error) {
	v, _, err := s.Get(ctx, key)
	return v, err
}
