package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/OkanBey11/ToDoApiWithGemini/types"
)

const userColumns = `id, username, email, first_name, last_name, role, hashed_password, is_active, phone_number, created_at, updated_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (username, email, first_name, last_name, role, hashed_password, is_active, phone_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Role,
		user.PasswordHash,
		user.IsActive,
		user.PhoneNumber,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, mapWriteError(err)
	}
	return user, nil
}

// SetActive toggles whether the user may authenticate.
func (r *UserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	const query = `UPDATE users SET is_active = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, active, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (types.User, error) {
	var user types.User
	var phone sql.NullString
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.PasswordHash,
		&user.IsActive,
		&phone,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	if phone.Valid {
		user.PhoneNumber = &phone.String
	}
	return user, nil
}
