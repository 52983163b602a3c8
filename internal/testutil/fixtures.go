package testutil

import (
	"context"
	"database/sql"
	"testing"
	"vote_zone/internal/domain/model"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/stretchr/testify/require"
)

// CreateUser inserts a user with the given role and returns it as a Caller.
func CreateUser(t *testing.T, db *sql.DB, username, role string) *model.Caller {
	t.Helper()
	id := uuid.NewString()
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO users (id, username, email, hashed_password, role) VALUES ($1, $2, $3, 'x', $4)`,
		id, username, username+"@example.com", role)
	require.NoError(t, err)
	return &model.Caller{UserID: id, Role: role}
}

// CreateGroup inserts an open group owned by createdBy.
func CreateGroup(t *testing.T, db *sql.DB, title string, createdBy *model.Caller) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO submission_groups (id, title, slug, description, created_by) VALUES ($1, $2, $3, '', $4)`,
		id, title, slug.Make(title), createdBy.UserID)
	require.NoError(t, err)
	return id
}

// CreateSubmission inserts a zero-vote submission, optionally inside a group.
func CreateSubmission(t *testing.T, db *sql.DB, owner *model.Caller, title string, groupID *string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO submissions (id, title, description, user_id, submission_group_id) VALUES ($1, $2, '', $3, $4)`,
		id, title, owner.UserID, groupID)
	require.NoError(t, err)
	return id
}

// VoteCount returns the stored counter and the number of vote rows for a submission.
func VoteCount(t *testing.T, db *sql.DB, submissionID string) (counter, rows int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, db.QueryRowContext(ctx, `SELECT votes FROM submissions WHERE id = $1`, submissionID).Scan(&counter))
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM votes WHERE submission_id = $1`, submissionID).Scan(&rows))
	return counter, rows
}
