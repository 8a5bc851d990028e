package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/whitematrix/eballot/pkg/models"
)

const userColumns = `id, name, email, password_hash, provider, provider_id,
	avatar_url, linkedin_url, has_voted, voted_at, voted_for,
	reset_token_hash, reset_token_expires, created_at, updated_at`

// UserStore persists user records
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new user store
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// scanUser scans one user row
func scanUser(row interface {
	Scan(dest ...interface{}) error
}) (*models.User, error) {
	u := &models.User{}
	var (
		passwordHash   sql.NullString
		providerID     sql.NullString
		votedAt        sql.NullTime
		votedFor       sql.NullString
		resetTokenHash sql.NullString
		resetExpires   sql.NullTime
	)

	err := row.Scan(&u.ID, &u.Name, &u.Email, &passwordHash, &u.Provider,
		&providerID, &u.AvatarURL, &u.LinkedInURL, &u.HasVoted, &votedAt,
		&votedFor, &resetTokenHash, &resetExpires, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}

	u.PasswordHash = passwordHash.String
	u.ProviderID = providerID.String
	u.ResetTokenHash = resetTokenHash.String
	if votedAt.Valid {
		t := votedAt.Time
		u.VotedAt = &t
	}
	if votedFor.Valid {
		s := votedFor.String
		u.VotedFor = &s
	}
	if resetExpires.Valid {
		t := resetExpires.Time
		u.ResetTokenExpires = &t
	}

	return u, nil
}

// isUniqueViolation reports whether err is a postgres unique constraint error
func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}

// isInvalidUUID reports whether err is a postgres invalid text representation
// error (22P02). Id columns are UUID, so a malformed id from a path parameter
// fails the cast instead of matching no rows; lookups treat both the same.
func isInvalidUUID(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "22P02"
	}
	return false
}

// nullable converts an empty string to NULL for storage
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// NormalizeEmail lowercases and trims an email for storage and lookup
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts a new user record. Email uniqueness violations are reported
// as ErrDuplicateEmail.
func (s *UserStore) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = NormalizeEmail(u.Email)

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, provider, provider_id, avatar_url, linkedin_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+userColumns,
		u.ID, u.Name, u.Email, nullable(u.PasswordHash), u.Provider,
		nullable(u.ProviderID), u.AvatarURL, u.LinkedInURL)

	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return created, nil
}

// Get fetches a user by id. A malformed id is an unknown user, not an error.
func (s *UserStore) Get(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	u, err := scanUser(row)
	if err == sql.ErrNoRows || isInvalidUUID(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return u, nil
}

// GetByEmail fetches a user by email (case-insensitive)
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, NormalizeEmail(email))

	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user by email: %w", err)
	}
	return u, nil
}

// GetByProviderIdentity fetches a user by provider + external id
func (s *UserStore) GetByProviderIdentity(ctx context.Context, provider models.Provider, providerID string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE provider = $1 AND provider_id = $2`,
		provider, providerID)

	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user by provider identity: %w", err)
	}
	return u, nil
}

// LinkProvider re-points an existing account at an OAuth identity: provider,
// provider id and avatar are overwritten; the professional profile URL is
// filled in only when previously empty.
func (s *UserStore) LinkProvider(ctx context.Context, userID string, provider models.Provider, providerID, avatarURL, linkedInURL string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE users
		SET provider = $1,
		    provider_id = $2,
		    avatar_url = CASE WHEN $3 <> '' THEN $3 ELSE avatar_url END,
		    linkedin_url = CASE WHEN linkedin_url = '' THEN $4 ELSE linkedin_url END,
		    updated_at = NOW()
		WHERE id = $5
		RETURNING `+userColumns,
		provider, providerID, avatarURL, linkedInURL, userID)

	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to link provider: %w", err)
	}
	return u, nil
}

// UpdateLinkedIn sets the user's professional profile URL
func (s *UserStore) UpdateLinkedIn(ctx context.Context, userID, url string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET linkedin_url = $1, updated_at = NOW() WHERE id = $2
	`, url, userID)
	if err != nil {
		return fmt.Errorf("failed to update profile URL: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SetResetToken stores the hash of a single-use password reset token
func (s *UserStore) SetResetToken(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET reset_token_hash = $1, reset_token_expires = $2, updated_at = NOW()
		WHERE id = $3
	`, tokenHash, expires, userID)
	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByResetToken fetches a user by a non-expired reset token hash
func (s *UserStore) GetByResetToken(ctx context.Context, tokenHash string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE reset_token_hash = $1 AND reset_token_expires > NOW()
	`, tokenHash)

	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user by reset token: %w", err)
	}
	return u, nil
}

// ResetPassword replaces the password hash and clears the reset token in one
// conditional update, so of two concurrent requests presenting the same token
// only one can succeed. Zero rows means the token was already consumed (or
// never set) and is reported as ErrNotFound.
func (s *UserStore) ResetPassword(ctx context.Context, userID, passwordHash, tokenHash string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = $1, reset_token_hash = NULL, reset_token_expires = NULL, updated_at = NOW()
		WHERE id = $2 AND reset_token_hash = $3
	`, passwordHash, userID, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearExpiredResetTokens removes reset tokens past their expiry. Run
// periodically; the read path already ignores expired tokens.
func (s *UserStore) ClearExpiredResetTokens(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET reset_token_hash = NULL, reset_token_expires = NULL
		WHERE reset_token_expires IS NOT NULL AND reset_token_expires < NOW()
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired reset tokens: %w", err)
	}
	return result.RowsAffected()
}

// CastVote marks the ballot cast with a single conditional update so that two
// concurrent calls for the same user can never both succeed. A zero-row
// result means the flag was already set and is reported as ErrAlreadyVoted,
// never as success.
func (s *UserStore) CastVote(ctx context.Context, userID, candidateID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET has_voted = TRUE, voted_at = NOW(), voted_for = $1, updated_at = NOW()
		WHERE id = $2 AND has_voted = FALSE
	`, candidateID, userID)
	if err != nil {
		return fmt.Errorf("failed to cast vote: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read vote result: %w", err)
	}
	if rows == 0 {
		return ErrAlreadyVoted
	}
	return nil
}

// ListVoters returns the public roster of users who voted, most recent first
func (s *UserStore) ListVoters(ctx context.Context) ([]models.Voter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, avatar_url, voted_at, linkedin_url
		FROM users
		WHERE has_voted = TRUE
		ORDER BY voted_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list voters: %w", err)
	}
	defer rows.Close()

	voters := make([]models.Voter, 0)
	for rows.Next() {
		var v models.Voter
		var votedAt sql.NullTime
		if err := rows.Scan(&v.ID, &v.Name, &v.AvatarURL, &votedAt, &v.LinkedInURL); err != nil {
			return nil, fmt.Errorf("failed to scan voter: %w", err)
		}
		if votedAt.Valid {
			t := votedAt.Time
			v.VotedAt = &t
		}
		voters = append(voters, v)
	}

	return voters, rows.Err()
}
