package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"vote_zone/internal/common"
	"vote_zone/internal/domain/model"
	"vote_zone/internal/domain/period"
	"vote_zone/internal/domain/repository"

	"github.com/google/uuid"
)

type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
	groupRepo      repository.SubmissionGroupRepository
	files          *FileService
	cleanup        CleanupEnqueuer // may be nil
	db             *sql.DB         // For transactions
}

func NewSubmissionService(
	subRepo repository.SubmissionRepository,
	groupRepo repository.SubmissionGroupRepository,
	files *FileService,
	cleanup CleanupEnqueuer,
	db *sql.DB,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo: subRepo,
		groupRepo:      groupRepo,
		files:          files,
		cleanup:        cleanup,
		db:             db,
	}
}

type CreateSubmissionRequest struct {
	Title             string                `json:"title"`
	Description       string                `json:"description"`
	FileReferences    []model.FileReference `json:"file_references"`
	SubmissionGroupID *string               `json:"submission_group_id,omitempty"`
}

func (s *SubmissionService) CreateSubmission(ctx context.Context, caller *model.Caller, req CreateSubmissionRequest) (*model.Submission, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", common.ErrValidation)
	}
	if err := s.files.ValidateFileReferences(caller, req.FileReferences); err != nil {
		return nil, err
	}

	submission := &model.Submission{
		ID:             uuid.NewString(),
		Title:          title,
		Description:    req.Description,
		FileReferences: req.FileReferences,
		UserID:         caller.UserID,
	}
	if req.SubmissionGroupID != nil && *req.SubmissionGroupID != "" {
		submission.SubmissionGroupID = req.SubmissionGroupID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// A missing group aborts the whole create; no orphan submission is left behind.
	if submission.SubmissionGroupID != nil {
		if _, err := s.groupRepo.GetGroupByID(ctx, tx, *submission.SubmissionGroupID); err != nil {
			return nil, err
		}
	}

	if err := s.submissionRepo.CreateSubmission(ctx, tx, submission); err != nil {
		return nil, err
	}
	created, err := s.submissionRepo.GetSubmissionByID(ctx, tx, submission.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit submission: %w", err)
	}
	slog.Info("submission created", "submission_id", created.ID, "user_id", caller.UserID)
	return created, nil
}

// UpdateSubmission applies the non-nil fields of patch. Only the owner may update.
func (s *SubmissionService) UpdateSubmission(ctx context.Context, caller *model.Caller, id string, patch model.SubmissionPatch) (*model.Submission, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if patch.Title != nil {
		t := strings.TrimSpace(*patch.Title)
		if t == "" {
			return nil, fmt.Errorf("title cannot be empty: %w", common.ErrValidation)
		}
		patch.Title = &t
	}
	if patch.FileReferences != nil {
		if err := s.files.ValidateFileReferences(caller, *patch.FileReferences); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sub, err := s.submissionRepo.GetSubmissionForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !caller.Owns(sub.UserID) {
		return nil, fmt.Errorf("only the owner can update this submission: %w", common.ErrForbidden)
	}

	var dropped []string
	if patch.Title != nil {
		sub.Title = *patch.Title
	}
	if patch.Description != nil {
		sub.Description = *patch.Description
	}
	if patch.FileReferences != nil {
		dropped = droppedKeys(sub.FileKeys(), *patch.FileReferences)
		sub.FileReferences = *patch.FileReferences
	}

	if err := s.submissionRepo.UpdateSubmission(ctx, tx, sub); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit submission update: %w", err)
	}

	s.enqueueCleanup(ctx, sub.ID, dropped)
	return sub, nil
}

// LinkToGroup attaches a group-less submission to a group. Re-linking to the same group is a no-op.
func (s *SubmissionService) LinkToGroup(ctx context.Context, caller *model.Caller, id, groupID string) (*model.Submission, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if strings.TrimSpace(groupID) == "" {
		return nil, fmt.Errorf("submission_group_id is required: %w", common.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sub, err := s.submissionRepo.GetSubmissionForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !caller.Owns(sub.UserID) {
		return nil, fmt.Errorf("only the owner can move this submission: %w", common.ErrForbidden)
	}
	if _, err := s.groupRepo.GetGroupByID(ctx, tx, groupID); err != nil {
		return nil, err
	}

	if sub.SubmissionGroupID != nil {
		if *sub.SubmissionGroupID == groupID {
			return sub, nil
		}
		return nil, fmt.Errorf("submission already belongs to group %s: %w", *sub.SubmissionGroupID, common.ErrConflict)
	}

	if err := s.submissionRepo.SetSubmissionGroup(ctx, tx, id, groupID); err != nil {
		return nil, err
	}
	linked, err := s.submissionRepo.GetSubmissionByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit group link: %w", err)
	}
	return linked, nil
}

// DeleteSubmission removes a submission and its votes. Owner or admin only.
func (s *SubmissionService) DeleteSubmission(ctx context.Context, caller *model.Caller, id string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sub, err := s.submissionRepo.GetSubmissionForUpdate(ctx, tx, id)
	if err != nil {
		return err
	}
	if !caller.Owns(sub.UserID) && !caller.IsAdmin() {
		return fmt.Errorf("only the owner or an admin can delete this submission: %w", common.ErrForbidden)
	}
	if err := s.submissionRepo.DeleteSubmission(ctx, tx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit submission delete: %w", err)
	}

	slog.Info("submission deleted", "submission_id", id, "deleted_by", caller.UserID)
	s.enqueueCleanup(ctx, id, sub.FileKeys())
	return nil
}

func (s *SubmissionService) GetSubmission(ctx context.Context, caller *model.Caller, id string) (*model.Submission, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	return s.submissionRepo.GetSubmissionByID(ctx, nil, id)
}

func (s *SubmissionService) ListMySubmissions(ctx context.Context, caller *model.Caller) ([]model.Submission, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	return s.submissionRepo.ListSubmissions(ctx, repository.SubmissionFilter{UserID: caller.UserID})
}

func (s *SubmissionService) ListSubmissions(ctx context.Context, caller *model.Caller) ([]model.Submission, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	return s.submissionRepo.ListSubmissions(ctx, repository.SubmissionFilter{})
}

// ListSubmissionsByPeriod lists submissions created inside the resolved week, month or year.
func (s *SubmissionService) ListSubmissionsByPeriod(ctx context.Context, caller *model.Caller, kind period.Kind, week, month, year int) ([]model.Submission, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	r, err := period.Resolve(kind, week, month, year)
	if err != nil {
		return nil, err
	}
	next := r.Next()
	return s.submissionRepo.ListSubmissions(ctx, repository.SubmissionFilter{From: &r.Start, Before: &next})
}

// enqueueCleanup runs after commit; a failure only leaves an orphaned object behind.
func (s *SubmissionService) enqueueCleanup(ctx context.Context, submissionID string, keys []string) {
	if s.cleanup == nil || len(keys) == 0 {
		return
	}
	if err := s.cleanup.Enqueue(ctx, keys...); err != nil {
		fileCleanupEnqueueFailures.Add(float64(len(keys)))
		slog.Error("failed to enqueue file cleanup", "submission_id", submissionID, "keys", keys, "error", err)
	}
}

// droppedKeys returns the keys in old that no entry of next still references.
func droppedKeys(old []string, next []model.FileReference) []string {
	kept := make(map[string]struct{}, len(next))
	for _, f := range next {
		if f.Downloadable() {
			kept[f.Key] = struct{}{}
		}
	}
	var dropped []string
	for _, k := range old {
		if _, ok := kept[k]; !ok {
			dropped = append(dropped, k)
		}
	}
	return dropped
}
