package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"vote_zone/internal/common"
	"vote_zone/internal/domain/model"
	"vote_zone/internal/domain/repository"

	"github.com/google/uuid"
)

// VoteService keeps votes and the submissions.votes counter in step. Every mutation is one
// transaction; concurrent duplicate casts are settled by the UNIQUE(user_id, submission_id)
// constraint.
type VoteService struct {
	voteRepo       repository.VoteRepository
	submissionRepo repository.SubmissionRepository
	db             *sql.DB
}

func NewVoteService(voteRepo repository.VoteRepository, subRepo repository.SubmissionRepository, db *sql.DB) *VoteService {
	return &VoteService{voteRepo: voteRepo, submissionRepo: subRepo, db: db}
}

// CastVote records an upvote by caller and returns the submission with its new count.
func (s *VoteService) CastVote(ctx context.Context, caller *model.Caller, submissionID string) (*model.Submission, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.submissionRepo.GetSubmissionByID(ctx, tx, submissionID); err != nil {
		return nil, err
	}

	vote := &model.Vote{
		ID:           uuid.NewString(),
		UserID:       caller.UserID,
		SubmissionID: submissionID,
		IsUpvote:     true,
	}
	if err := s.voteRepo.CreateVote(ctx, tx, vote); err != nil {
		if errors.Is(err, common.ErrConflict) {
			voteConflicts.Inc()
		}
		return nil, err
	}

	sub, err := s.submissionRepo.AdjustVotes(ctx, tx, submissionID, 1)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit vote: %w", err)
	}
	votesCast.Inc()
	slog.Debug("vote cast", "user_id", caller.UserID, "submission_id", submissionID, "votes", sub.Votes)
	return sub, nil
}

// RetractVote removes caller's vote and returns the submission with its new count.
func (s *VoteService) RetractVote(ctx context.Context, caller *model.Caller, submissionID string) (*model.Submission, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.voteRepo.DeleteVote(ctx, tx, caller.UserID, submissionID); err != nil {
		return nil, err
	}

	sub, err := s.submissionRepo.AdjustVotes(ctx, tx, submissionID, -1)
	if err != nil {
		if errors.Is(err, repository.ErrNegativeVotes) {
			slog.Error("vote counter out of sync with vote rows",
				"submission_id", submissionID, "user_id", caller.UserID, "error", err)
			return nil, fmt.Errorf("vote count inconsistency on submission %s: %w", submissionID, common.ErrInternalServer)
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit vote removal: %w", err)
	}
	votesRetracted.Inc()
	slog.Debug("vote retracted", "user_id", caller.UserID, "submission_id", submissionID, "votes", sub.Votes)
	return sub, nil
}

// ListVotes returns a submission's votes with voter usernames, newest first.
func (s *VoteService) ListVotes(ctx context.Context, caller *model.Caller, submissionID string) ([]model.Vote, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if _, err := s.submissionRepo.GetSubmissionByID(ctx, nil, submissionID); err != nil {
		return nil, err
	}
	return s.voteRepo.ListVotesBySubmission(ctx, submissionID)
}
