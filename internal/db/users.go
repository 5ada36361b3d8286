package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"promoloft.app/studio/pkg/utils/passwords"
)

// NewUserParams contains the parameters for creating a new user
type NewUserParams struct {
	Username string
	Email    string
	Password string // plaintext password
	Role     string
}

// NewUser creates a new user with a hashed password
func (q *Queries) NewUser(ctx context.Context, params NewUserParams) (*User, error) {
	hashedPassword, err := passwords.NewPassword(passwords.PasswordInput{
		Password: params.Password,
	})
	if err != nil {
		return nil, err
	}

	pgUUID := pgtype.UUID{Bytes: uuid.New(), Valid: true}

	role := UserRole(params.Role)
	if params.Role == "" {
		role = UserRoleUser
	}

	row := q.db.QueryRow(ctx, `
		INSERT INTO users (id, email, user_name, password, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, email, user_name, password, role, enabled, created_at`,
		pgUUID, params.Email, params.Username, hashedPassword, role)

	u := &User{}
	if err := row.Scan(&u.ID, &u.Email, &u.UserName, &u.Password, &u.Role, &u.Enabled, &u.CreatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByEmail looks up a user for login. Returns pgx.ErrNoRows when the
// email is unknown.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, email, user_name, password, role, enabled, created_at
		FROM users WHERE email = $1`, email)

	u := &User{}
	if err := row.Scan(&u.ID, &u.Email, &u.UserName, &u.Password, &u.Role, &u.Enabled, &u.CreatedAt); err != nil {
		return nil, err
	}
	return u, nil
}
