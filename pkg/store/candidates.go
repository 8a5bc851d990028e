package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/whitematrix/eballot/pkg/models"
)

// CandidateStore persists candidate records
type CandidateStore struct {
	db *sql.DB
}

// NewCandidateStore creates a new candidate store
func NewCandidateStore(db *sql.DB) *CandidateStore {
	return &CandidateStore{db: db}
}

// Get fetches a candidate by id. A malformed id is an unknown candidate, not
// an error.
func (s *CandidateStore) Get(ctx context.Context, id string) (*models.Candidate, error) {
	c := &models.Candidate{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, linkedin_url, party, team, image_url, vote_count, created_at
		FROM candidates WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.LinkedInURL, &c.Party, &c.Team, &c.ImageURL,
		&c.VoteCount, &c.CreatedAt)
	if err == sql.ErrNoRows || isInvalidUUID(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidate: %w", err)
	}
	return c, nil
}

// ListWithTallies returns all candidates with their vote tallies recomputed
// from user records. The stored vote_count column is never used for display.
func (s *CandidateStore) ListWithTallies(ctx context.Context) ([]models.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.linkedin_url, c.party, c.team, c.image_url, c.created_at,
		       COUNT(u.id) AS votes
		FROM candidates c
		LEFT JOIN users u ON u.voted_for = c.id
		GROUP BY c.id, c.name, c.linkedin_url, c.party, c.team, c.image_url, c.created_at
		ORDER BY c.created_at, c.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	candidates := make([]models.Candidate, 0)
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.ID, &c.Name, &c.LinkedInURL, &c.Party, &c.Team,
			&c.ImageURL, &c.CreatedAt, &c.Votes); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}

// IncrementVoteCount bumps the denormalized counter. Best effort: callers
// log failures but do not fail the vote, since tallies are recomputed on read.
func (s *CandidateStore) IncrementVoteCount(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE candidates SET vote_count = vote_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment vote counter: %w", err)
	}
	return nil
}

// ReconcileVoteCounts rewrites the denormalized counters from the
// authoritative per-user attribution. Operator maintenance only; read paths
// never depend on the counter.
func (s *CandidateStore) ReconcileVoteCounts(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE candidates c
		SET vote_count = sub.votes
		FROM (
			SELECT c2.id, COUNT(u.id) AS votes
			FROM candidates c2
			LEFT JOIN users u ON u.voted_for = c2.id
			GROUP BY c2.id
		) sub
		WHERE c.id = sub.id AND c.vote_count <> sub.votes
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to reconcile vote counters: %w", err)
	}
	return result.RowsAffected()
}

// Insert creates a candidate record (seeding)
func (s *CandidateStore) Insert(ctx context.Context, c *models.Candidate) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO candidates (id, name, linkedin_url, party, team, image_url)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.Name, c.LinkedInURL, c.Party, c.Team, c.ImageURL)
	if err != nil {
		return fmt.Errorf("failed to insert candidate: %w", err)
	}
	return nil
}

// ExistsByName reports whether a candidate with the given name exists
// (seeding upsert mode).
func (s *CandidateStore) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM candidates WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check candidate existence: %w", err)
	}
	return exists, nil
}

// DeleteAll removes every candidate (seeding wipe). Fails if any vote
// references a candidate, which is the safe default for a re-seed.
func (s *CandidateStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM candidates`); err != nil {
		return fmt.Errorf("failed to delete candidates: %w", err)
	}
	return nil
}
