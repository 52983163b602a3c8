package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"vote_zone/internal/common"
	"vote_zone/internal/domain/model"
)

type VoteRepository interface {
	// CreateVote fails with common.ErrConflict when (user, submission) already has a vote.
	CreateVote(ctx context.Context, tx *sql.Tx, vote *model.Vote) error
	// DeleteVote removes the caller's vote and returns it, or common.ErrNotFound.
	DeleteVote(ctx context.Context, tx *sql.Tx, userID, submissionID string) (*model.Vote, error)
	ListVotesBySubmission(ctx context.Context, submissionID string) ([]model.Vote, error)
}

type pgVoteRepository struct {
	db *sql.DB
}

func NewPgVoteRepository(db *sql.DB) VoteRepository {
	return &pgVoteRepository{db: db}
}

func (r *pgVoteRepository) CreateVote(ctx context.Context, tx *sql.Tx, v *model.Vote) error {
	query := `INSERT INTO votes (id, user_id, submission_id, is_upvote, is_downvote)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING created_at`
	err := pick(r.db, tx).QueryRowContext(ctx, query, v.ID, v.UserID, v.SubmissionID, v.IsUpvote, v.IsDownvote).
		Scan(&v.CreatedAt)
	if err != nil {
		if common.IsPgError(err, common.PgUniqueViolation) {
			return fmt.Errorf("you have already voted for this submission: %w", common.ErrConflict)
		}
		if common.IsPgError(err, common.PgForeignKeyViolation) {
			return fmt.Errorf("submission %s: %w", v.SubmissionID, common.ErrNotFound)
		}
		return fmt.Errorf("pgVoteRepository.CreateVote: %w", err)
	}
	return nil
}

func (r *pgVoteRepository) DeleteVote(ctx context.Context, tx *sql.Tx, userID, submissionID string) (*model.Vote, error) {
	query := `DELETE FROM votes WHERE user_id = $1 AND submission_id = $2
	          RETURNING id, user_id, submission_id, is_upvote, is_downvote, created_at`
	v := &model.Vote{}
	err := pick(r.db, tx).QueryRowContext(ctx, query, userID, submissionID).
		Scan(&v.ID, &v.UserID, &v.SubmissionID, &v.IsUpvote, &v.IsDownvote, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("vote not found: %w", common.ErrNotFound)
		}
		return nil, fmt.Errorf("pgVoteRepository.DeleteVote: %w", err)
	}
	return v, nil
}

func (r *pgVoteRepository) ListVotesBySubmission(ctx context.Context, submissionID string) ([]model.Vote, error) {
	query := `SELECT v.id, v.user_id, v.submission_id, v.is_upvote, v.is_downvote, v.created_at, u.username
	          FROM votes v JOIN users u ON u.id = v.user_id
	          WHERE v.submission_id = $1
	          ORDER BY v.created_at DESC, v.id DESC`
	rows, err := r.db.QueryContext(ctx, query, submissionID)
	if err != nil {
		return nil, fmt.Errorf("pgVoteRepository.ListVotesBySubmission: %w", err)
	}
	defer rows.Close()

	votes := []model.Vote{}
	for rows.Next() {
		var (
			v        model.Vote
			username string
		)
		if err := rows.Scan(&v.ID, &v.UserID, &v.SubmissionID, &v.IsUpvote, &v.IsDownvote, &v.CreatedAt, &username); err != nil {
			return nil, fmt.Errorf("pgVoteRepository.ListVotesBySubmission scan: %w", err)
		}
		v.UserUsername = &username
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgVoteRepository.ListVotesBySubmission rows: %w", err)
	}
	return votes, nil
}
