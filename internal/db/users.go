package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, name, email, password_hash, role, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// CreateUserParams carries a new account. Accounts start inactive until the
// activation token is redeemed.
type CreateUserParams struct {
	Name         string
	Email        string
	PasswordHash string
	Role         string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO users (name, email, password_hash, role, is_active)
VALUES ($1, lower($2), $3, $4, false)
RETURNING `+userColumns,
		arg.Name, arg.Email, arg.PasswordHash, arg.Role)
	return scanUser(row)
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = lower($1)`, email)
	return scanUser(row)
}

func (q *Queries) GetUserByID(ctx context.Context, id pgtype.UUID) (User, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// ActivateUser flips the account active after token redemption.
func (q *Queries) ActivateUser(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx,
		`UPDATE users SET is_active = true, updated_at = now() WHERE id = $1`, id)
	return err
}

// CreateActivationTokenParams stores the hash of a mailed activation token.
type CreateActivationTokenParams struct {
	UserID    pgtype.UUID
	TokenHash string
	ExpiresAt pgtype.Timestamptz
}

func (q *Queries) CreateActivationToken(ctx context.Context, arg CreateActivationTokenParams) error {
	_, err := q.db.Exec(ctx, `
INSERT INTO activation_tokens (user_id, token_hash, expires_at)
VALUES ($1, $2, $3)`,
		arg.UserID, arg.TokenHash, arg.ExpiresAt)
	return err
}

// ConsumeActivationToken marks an unexpired, unused token as used and returns
// its owner. Zero rows means the token is unknown, expired, or already spent.
func (q *Queries) ConsumeActivationToken(ctx context.Context, tokenHash string) (pgtype.UUID, error) {
	var userID pgtype.UUID
	err := q.db.QueryRow(ctx, `
UPDATE activation_tokens
SET used_at = now()
WHERE token_hash = $1 AND used_at IS NULL AND expires_at > now()
RETURNING user_id`, tokenHash).Scan(&userID)
	return userID, err
}

const refreshSessionColumns = `id, user_id, token_hash, user_agent, ip, expires_at, revoked_at, created_at`

func scanRefreshSession(row interface{ Scan(dest ...any) error }) (RefreshSession, error) {
	var s RefreshSession
	err := row.Scan(&s.ID, &s.UserID, &s.TokenHash, &s.UserAgent, &s.IP,
		&s.ExpiresAt, &s.RevokedAt, &s.CreatedAt)
	return s, err
}

// CreateRefreshSessionParams records a freshly issued refresh token.
type CreateRefreshSessionParams struct {
	UserID    pgtype.UUID
	TokenHash string
	UserAgent pgtype.Text
	IP        pgtype.Text
	ExpiresAt pgtype.Timestamptz
}

func (q *Queries) CreateRefreshSession(ctx context.Context, arg CreateRefreshSessionParams) (RefreshSession, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO refresh_sessions (user_id, token_hash, user_agent, ip, expires_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+refreshSessionColumns,
		arg.UserID, arg.TokenHash, arg.UserAgent, arg.IP, arg.ExpiresAt)
	return scanRefreshSession(row)
}

// GetRefreshSessionByHash returns a live (unrevoked, unexpired) session.
func (q *Queries) GetRefreshSessionByHash(ctx context.Context, tokenHash string) (RefreshSession, error) {
	row := q.db.QueryRow(ctx, `
SELECT `+refreshSessionColumns+` FROM refresh_sessions
WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > now()`, tokenHash)
	return scanRefreshSession(row)
}

// RevokeRefreshSession invalidates a single session on logout or rotation.
func (q *Queries) RevokeRefreshSession(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx,
		`UPDATE refresh_sessions SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`, id)
	return err
}

// RevokeUserRefreshSessions invalidates every live session for a user.
func (q *Queries) RevokeUserRefreshSessions(ctx context.Context, userID pgtype.UUID) error {
	_, err := q.db.Exec(ctx,
		`UPDATE refresh_sessions SET revoked_at = now() WHERE user_id = $1 AND revoked_at IS NULL`, userID)
	return err
}
