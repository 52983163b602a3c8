package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"vote_zone/internal/common"
	"vote_zone/internal/domain/model"
	"vote_zone/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type SubmissionGroupService struct {
	groupRepo      repository.SubmissionGroupRepository
	submissionRepo repository.SubmissionRepository
	db             *sql.DB
}

func NewSubmissionGroupService(groupRepo repository.SubmissionGroupRepository, subRepo repository.SubmissionRepository, db *sql.DB) *SubmissionGroupService {
	return &SubmissionGroupService{groupRepo: groupRepo, submissionRepo: subRepo, db: db}
}

type CreateSubmissionGroupRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (s *SubmissionGroupService) CreateGroup(ctx context.Context, caller *model.Caller, req CreateSubmissionGroupRequest) (*model.SubmissionGroup, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	title, err := normalizeTitle(req.Title)
	if err != nil {
		return nil, err
	}

	createdBy := caller.UserID
	group := &model.SubmissionGroup{
		ID:          uuid.NewString(),
		Title:       title,
		Description: req.Description,
		CreatedBy:   &createdBy,
		Submissions: []model.Submission{},
	}
	for _, candidate := range slugCandidates(title, group.ID) {
		group.Slug = candidate
		err = s.groupRepo.CreateGroup(ctx, nil, group)
		if !errors.Is(err, repository.ErrSlugTaken) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	slog.Info("submission group created", "group_id", group.ID, "slug", group.Slug, "created_by", createdBy)
	return group, nil
}

func (s *SubmissionGroupService) GetGroup(ctx context.Context, caller *model.Caller, id string) (*model.SubmissionGroup, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	g, err := s.groupRepo.GetGroupByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	return g, s.loadMembers(ctx, g)
}

func (s *SubmissionGroupService) GetGroupByName(ctx context.Context, caller *model.Caller, title string) (*model.SubmissionGroup, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	g, err := s.groupRepo.GetGroupByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	return g, s.loadMembers(ctx, g)
}

func (s *SubmissionGroupService) GetGroupBySlug(ctx context.Context, caller *model.Caller, groupSlug string) (*model.SubmissionGroup, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	g, err := s.groupRepo.GetGroupBySlug(ctx, groupSlug)
	if err != nil {
		return nil, err
	}
	return g, s.loadMembers(ctx, g)
}

// CountSubmissions reports the number of member submissions. An unknown group counts as 0.
func (s *SubmissionGroupService) CountSubmissions(ctx context.Context, caller *model.Caller, id string) (int, error) {
	if err := requireCaller(caller); err != nil {
		return 0, err
	}
	return s.groupRepo.CountSubmissions(ctx, id)
}

func (s *SubmissionGroupService) ListGroups(ctx context.Context, caller *model.Caller, filter model.SubmissionGroupFilter) ([]model.SubmissionGroup, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	groups, err := s.groupRepo.ListGroups(ctx, filter)
	if err != nil {
		return nil, err
	}
	ptrs := make([]*model.SubmissionGroup, len(groups))
	for i := range groups {
		ptrs[i] = &groups[i]
	}
	if err := s.loadMembers(ctx, ptrs...); err != nil {
		return nil, err
	}
	return groups, nil
}

// UpdateGroup applies patch. Only the group's creator or an admin may update it.
// Naming a winner requires the submission to be a member and marks the group judged;
// once a winner is recorded it cannot be swapped for another submission.
func (s *SubmissionGroupService) UpdateGroup(ctx context.Context, caller *model.Caller, id string, patch model.SubmissionGroupPatch) (*model.SubmissionGroup, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	g, err := s.groupRepo.GetGroupForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeGroupChange(caller, g); err != nil {
		return nil, err
	}

	if patch.Title != nil {
		title, err := normalizeTitle(*patch.Title)
		if err != nil {
			return nil, err
		}
		if title != g.Title {
			groupSlug, err := s.freeSlug(ctx, title, g.ID)
			if err != nil {
				return nil, err
			}
			g.Title, g.Slug = title, groupSlug
		}
	}
	if patch.Description != nil {
		g.Description = *patch.Description
	}
	if patch.IsCompleted != nil {
		g.IsCompleted = *patch.IsCompleted
	}
	if patch.IsJudged != nil {
		g.IsJudged = *patch.IsJudged
	}
	if patch.WinningSubmissionID != nil {
		if err := s.setWinner(ctx, tx, g, strings.TrimSpace(*patch.WinningSubmissionID)); err != nil {
			return nil, err
		}
	}
	if g.WinningSubmissionID != nil && !g.IsJudged {
		return nil, fmt.Errorf("a group with a winning submission must stay judged: %w", common.ErrValidation)
	}

	if err := s.groupRepo.UpdateGroup(ctx, tx, g); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit group update: %w", err)
	}
	return g, s.loadMembers(ctx, g)
}

func (s *SubmissionGroupService) setWinner(ctx context.Context, tx *sql.Tx, g *model.SubmissionGroup, winnerID string) error {
	if winnerID == "" {
		return fmt.Errorf("winning_submission_id cannot be empty: %w", common.ErrValidation)
	}
	if g.WinningSubmissionID != nil {
		if *g.WinningSubmissionID == winnerID {
			return nil
		}
		return fmt.Errorf("group already has winning submission %s: %w", *g.WinningSubmissionID, common.ErrConflict)
	}

	sub, err := s.submissionRepo.GetSubmissionByID(ctx, tx, winnerID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("winning submission %s does not exist: %w", winnerID, common.ErrValidation)
		}
		return err
	}
	if sub.SubmissionGroupID == nil || *sub.SubmissionGroupID != g.ID {
		return fmt.Errorf("submission %s is not part of group %s: %w", winnerID, g.ID, common.ErrValidation)
	}

	g.WinningSubmissionID = &winnerID
	g.IsJudged = true
	return nil
}

// DeleteGroup removes the group; member submissions survive, unlinked.
func (s *SubmissionGroupService) DeleteGroup(ctx context.Context, caller *model.Caller, id string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	g, err := s.groupRepo.GetGroupForUpdate(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := authorizeGroupChange(caller, g); err != nil {
		return err
	}
	if err := s.groupRepo.DeleteGroup(ctx, tx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit group delete: %w", err)
	}
	slog.Info("submission group deleted", "group_id", id, "deleted_by", caller.UserID)
	return nil
}

// loadMembers fills Submissions on each group with one query.
func (s *SubmissionGroupService) loadMembers(ctx context.Context, groups ...*model.SubmissionGroup) error {
	if len(groups) == 0 {
		return nil
	}
	ids := make([]string, len(groups))
	byID := make(map[string]*model.SubmissionGroup, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
		byID[g.ID] = g
		g.Submissions = []model.Submission{}
	}

	subs, err := s.submissionRepo.ListSubmissions(ctx, repository.SubmissionFilter{GroupIDs: ids})
	if err != nil {
		return err
	}
	for _, sub := range subs {
		if sub.SubmissionGroupID == nil {
			continue
		}
		if g, ok := byID[*sub.SubmissionGroupID]; ok {
			g.Submissions = append(g.Submissions, sub)
		}
	}
	return nil
}

func authorizeGroupChange(caller *model.Caller, g *model.SubmissionGroup) error {
	if caller.IsAdmin() {
		return nil
	}
	if g.CreatedBy != nil && caller.Owns(*g.CreatedBy) {
		return nil
	}
	return fmt.Errorf("only the group creator or an admin can modify this group: %w", common.ErrForbidden)
}

func normalizeTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", fmt.Errorf("title is required: %w", common.ErrValidation)
	}
	return title, nil
}

// slugCandidates lists the slugs to try for a group, in order. Titles such as "C" and "C++"
// slug alike, so later candidates carry part or all of the group id.
func slugCandidates(title, groupID string) []string {
	base := slug.Make(title)
	if base == "" {
		base = "group"
	}
	short := groupID
	if len(short) > 8 {
		short = short[:8]
	}
	return []string{base, base + "-" + short, base + "-" + groupID}
}

// freeSlug picks the first candidate not used by a group other than groupID.
func (s *SubmissionGroupService) freeSlug(ctx context.Context, title, groupID string) (string, error) {
	candidates := slugCandidates(title, groupID)
	for _, candidate := range candidates {
		other, err := s.groupRepo.GetGroupBySlug(ctx, candidate)
		if errors.Is(err, common.ErrNotFound) || (err == nil && other.ID == groupID) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no free slug for title %q: %w", title, repository.ErrSlugTaken)
}
