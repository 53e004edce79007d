package repository

import (
	"context"
	"errors"

	"github.com/arjunpat/user-portal/internal/domain/entity"
)

// ErrNotFound indicates no record matched the given identifier.
var ErrNotFound = errors.New("repository: not found")

// ErrDuplicateEmail indicates the unique index on email rejected a write.
var ErrDuplicateEmail = errors.New("repository: duplicate email")

// BulkResult reports the outcome of a best-effort batch insert. The insert
// is not transactional across rows; rows that succeeded before a failure
// stay inserted.
type BulkResult struct {
	Inserted []*entity.User
	Failed   int
}

// UserRepository is the record store for user entities. The store assigns
// identifiers on insert.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetAll(ctx context.Context) ([]*entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, u *entity.User) error
	Delete(ctx context.Context, id string) error
	BulkInsert(ctx context.Context, users []*entity.User) (BulkResult, error)
}
