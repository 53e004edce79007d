package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arjunpat/user-portal/internal/domain/entity"
	"github.com/arjunpat/user-portal/internal/domain/repository"
)

const uniqueViolation = "23505"

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, name, email, password_hash, role, dob, gender, website, created_at, updated_at`

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Role, &u.Dob,
		&u.Gender, &u.Website, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, mapPgError(err)
	}
	return u, nil
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return repository.ErrDuplicateEmail
	}
	return err
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, role, dob, gender, website)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, u.Name, u.Email, u.Password, u.Role, u.Dob, u.Gender, u.Website)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return mapPgError(err)
	}
	return nil
}

func (r *UserRepository) GetAll(ctx context.Context) ([]*entity.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*entity.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1
	`, email))
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET name = $1, email = $2, password_hash = $3, dob = $4, gender = $5,
		    website = $6, updated_at = now()
		WHERE id = $7
		RETURNING created_at, updated_at
	`, u.Name, u.Email, u.Password, u.Dob, u.Gender, u.Website, u.ID)

	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		return mapPgError(err)
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// BulkInsert writes each row independently and keeps going past failures.
// There is no surrounding transaction: rows inserted before a failing row
// stay inserted, mirroring a document store's insert-many semantics.
func (r *UserRepository) BulkInsert(ctx context.Context, users []*entity.User) (repository.BulkResult, error) {
	res := repository.BulkResult{Inserted: make([]*entity.User, 0, len(users))}
	var lastErr error
	for _, u := range users {
		if err := r.Create(ctx, u); err != nil {
			res.Failed++
			lastErr = err
			continue
		}
		res.Inserted = append(res.Inserted, u)
	}
	if len(res.Inserted) == 0 && lastErr != nil {
		return res, lastErr
	}
	return res, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
