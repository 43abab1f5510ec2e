// Package repository defines the durable user store contract and its
// implementations. Uniqueness of email and username is enforced at this
// layer; violations surface as ErrUserAlreadyExists so that handlers can
// translate them into HTTP 400 responses.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/auth-service/internal/model"
)

// ErrUserAlreadyExists is returned by Save when the email or username is
// already taken by another non-deleted user.
var ErrUserAlreadyExists = errors.New("user already exists")

// ErrUserNotFound is returned by Update and the delete operations when the
// target id is unknown.
var ErrUserNotFound = errors.New("user not found")

// UserRepository is the durable store of user records. Every operation takes
// a context carrying the request deadline. Implementations must be safe for
// concurrent use; Save must decide uniqueness atomically so that two
// concurrent registrations of the same identifier yield exactly one success.
type UserRepository interface {
	Save(ctx context.Context, u model.User) (model.User, error)
	Update(ctx context.Context, u model.User) (model.User, error)

	FindByID(ctx context.Context, id string) (model.User, bool, error)
	FindByEmail(ctx context.Context, email string) (model.User, bool, error)
	FindByUsername(ctx context.Context, username string) (model.User, bool, error)

	FindByRole(ctx context.Context, role string) ([]model.User, error)
	FindByRoles(ctx context.Context, roles []string) ([]model.User, error)
	FindAllEnabled(ctx context.Context) ([]model.User, error)
	FindAllDisabled(ctx context.Context) ([]model.User, error)
	FindAllLocked(ctx context.Context) ([]model.User, error)
	FindUsersCreatedAfter(ctx context.Context, t time.Time) ([]model.User, error)
	FindByAttribute(ctx context.Context, key, value string) ([]model.User, error)
	FindByAttributes(ctx context.Context, key string, values []string) ([]model.User, error)

	Count(ctx context.Context) (int64, error)
	CountByRole(ctx context.Context, role string) (int64, error)
	CountEnabled(ctx context.Context) (int64, error)
	CountDisabled(ctx context.Context) (int64, error)

	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByID(ctx context.Context, id string) (bool, error)

	DeleteByID(ctx context.Context, id string) error
	Delete(ctx context.Context, u model.User) error

	FindAll(ctx context.Context, page, size int) ([]model.User, error)
	FindByUsernameContaining(ctx context.Context, pattern string, page, size int) ([]model.User, error)
}
