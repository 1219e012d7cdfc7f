// Package repository declares the storage contracts the service layer
// depends on. Implementations live in the mongo and sqlite subpackages.
package repository

import (
	"context"

	"github.com/sakif/event-board/internal/model"
)

// EventRepository stores events and their embedded attendee lists.
//
// Implementations report a missing event as apperror.ErrNotFound and a title
// that collides with another event as apperror.DuplicateTitle.
type EventRepository interface {
	ListEvents(ctx context.Context, filter model.EventFilter) ([]model.Event, error)
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	TitleExists(ctx context.Context, title string) (bool, error)
	CreateEvent(ctx context.Context, event *model.Event) error
	UpdateEvent(ctx context.Context, id string, patch model.EventPatch) error
	DeleteEvent(ctx context.Context, id string) error

	// AddAttendee appends a, or refreshes JoinedAt when a.UserSub is
	// already listed. It never creates a second entry for the same sub.
	AddAttendee(ctx context.Context, eventID string, a model.Attendee) error
	// RemoveAttendee drops the entry for userSub. Removing a non-member
	// succeeds.
	RemoveAttendee(ctx context.Context, eventID, userSub string) error
}

// UserRepository stores accounts.
type UserRepository interface {
	// UpsertLogin records a successful provider login keyed by email:
	// sub, name, picture, and LastLoginAt are overwritten, CreatedAt is
	// only set on insert. Admin flag and password hash are left untouched.
	UpsertLogin(ctx context.Context, user *model.User) error
	// SaveAdmin creates or updates the account for user.Email with the
	// admin flag and password hash from user.
	SaveAdmin(ctx context.Context, user *model.User) error
	GetUserBySub(ctx context.Context, sub string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// Store is a complete backend as opened by the server.
type Store interface {
	EventRepository
	UserRepository
	Ping(ctx context.Context) error
	Close() error
}
