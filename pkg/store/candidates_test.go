package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whitematrix/eballot/pkg/models"
)

// Tallies must come from counting user attribution rows, never from the
// stored vote_count column, so a drifted counter cannot affect results.
func TestCandidateStoreListWithTallies(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewCandidateStore(db)
	created := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM candidates c").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "linkedin_url", "party", "team", "image_url",
			"created_at", "votes",
		}).
			AddRow("c1", "Alice", "", "Independent", "White Matrix Team", "", created, 3).
			AddRow("c2", "Bob", "", "Independent", "White Matrix Team", "", created, 0))

	candidates, err := store.ListWithTallies(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, 3, candidates[0].Votes)
	assert.Equal(t, 0, candidates[1].Votes)
}

func TestCandidateStoreGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewCandidateStore(db)

	mock.ExpectQuery("SELECT (.+) FROM candidates").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "linkedin_url", "party", "team", "image_url",
			"vote_count", "created_at",
		}))

	_, err = store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

// A malformed candidate id fails the UUID cast rather than matching no rows;
// it must still read as an unknown candidate.
func TestCandidateStoreGetMalformedID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewCandidateStore(db)

	mock.ExpectQuery("SELECT (.+) FROM candidates").
		WithArgs("not-a-uuid").
		WillReturnError(&pq.Error{Code: "22P02"})

	_, err = store.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCandidateStoreReconcileVoteCounts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewCandidateStore(db)

	mock.ExpectExec("UPDATE candidates").
		WillReturnResult(sqlmock.NewResult(0, 2))

	fixed, err := store.ReconcileVoteCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), fixed)
}

func TestCandidateStoreInsertAssignsID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewCandidateStore(db)

	mock.ExpectExec("INSERT INTO candidates").
		WillReturnResult(sqlmock.NewResult(0, 1))

	c := &models.Candidate{Name: "Alice"}
	require.NoError(t, store.Insert(context.Background(), c))
	assert.NotEmpty(t, c.ID)
}
