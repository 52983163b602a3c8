package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"vote_zone/internal/common"
	"vote_zone/internal/domain/model"
)

type SubmissionGroupRepository interface {
	CreateGroup(ctx context.Context, tx *sql.Tx, g *model.SubmissionGroup) error
	GetGroupByID(ctx context.Context, tx *sql.Tx, id string) (*model.SubmissionGroup, error)
	// GetGroupForUpdate row-locks the group until tx ends.
	GetGroupForUpdate(ctx context.Context, tx *sql.Tx, id string) (*model.SubmissionGroup, error)
	GetGroupByTitle(ctx context.Context, title string) (*model.SubmissionGroup, error)
	GetGroupBySlug(ctx context.Context, slug string) (*model.SubmissionGroup, error)
	UpdateGroup(ctx context.Context, tx *sql.Tx, g *model.SubmissionGroup) error
	DeleteGroup(ctx context.Context, tx *sql.Tx, id string) error
	ListGroups(ctx context.Context, filter model.SubmissionGroupFilter) ([]model.SubmissionGroup, error)
	CountSubmissions(ctx context.Context, groupID string) (int, error)
}

// ErrSlugTaken is returned by CreateGroup and UpdateGroup when another group already uses the slug.
var ErrSlugTaken = fmt.Errorf("submission group slug already in use: %w", common.ErrConflict)

// groupSlugConstraint is the default name Postgres gives the UNIQUE constraint on slug.
const groupSlugConstraint = "submission_groups_slug_key"

func groupUniqueError(err error) error {
	if common.PgConstraint(err) == groupSlugConstraint {
		return ErrSlugTaken
	}
	return fmt.Errorf("submission group with this title already exists: %w", common.ErrConflict)
}

type pgSubmissionGroupRepository struct {
	db *sql.DB
}

func NewPgSubmissionGroupRepository(db *sql.DB) SubmissionGroupRepository {
	return &pgSubmissionGroupRepository{db: db}
}

const groupColumns = `id, title, slug, description, created_by, is_completed, is_judged,
	winning_submission_id, created_at, updated_at`

func scanGroup(row rowScanner) (*model.SubmissionGroup, error) {
	g := &model.SubmissionGroup{}
	var createdBy, winner sql.NullString
	err := row.Scan(&g.ID, &g.Title, &g.Slug, &g.Description, &createdBy, &g.IsCompleted, &g.IsJudged,
		&winner, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if createdBy.Valid {
		g.CreatedBy = &createdBy.String
	}
	if winner.Valid {
		g.WinningSubmissionID = &winner.String
	}
	g.Submissions = []model.Submission{}
	return g, nil
}

func (r *pgSubmissionGroupRepository) CreateGroup(ctx context.Context, tx *sql.Tx, g *model.SubmissionGroup) error {
	query := `INSERT INTO submission_groups (id, title, slug, description, created_by, is_completed, is_judged)
	          VALUES ($1, $2, $3, $4, $5, FALSE, FALSE)
	          RETURNING is_completed, is_judged, created_at, updated_at`
	err := pick(r.db, tx).QueryRowContext(ctx, query, g.ID, g.Title, g.Slug, g.Description, g.CreatedBy).
		Scan(&g.IsCompleted, &g.IsJudged, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if common.IsPgError(err, common.PgUniqueViolation) {
			return groupUniqueError(err)
		}
		return fmt.Errorf("pgSubmissionGroupRepository.CreateGroup: %w", err)
	}
	return nil
}

func (r *pgSubmissionGroupRepository) getOne(ctx context.Context, q querier, op, where string, arg interface{}) (*model.SubmissionGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM submission_groups WHERE ` + where
	g, err := scanGroup(q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("submission group not found: %w", common.ErrNotFound)
		}
		return nil, fmt.Errorf("pgSubmissionGroupRepository.%s: %w", op, err)
	}
	return g, nil
}

func (r *pgSubmissionGroupRepository) GetGroupByID(ctx context.Context, tx *sql.Tx, id string) (*model.SubmissionGroup, error) {
	return r.getOne(ctx, pick(r.db, tx), "GetGroupByID", "id = $1", id)
}

func (r *pgSubmissionGroupRepository) GetGroupForUpdate(ctx context.Context, tx *sql.Tx, id string) (*model.SubmissionGroup, error) {
	if tx == nil {
		return nil, errors.New("pgSubmissionGroupRepository.GetGroupForUpdate: transaction required")
	}
	return r.getOne(ctx, tx, "GetGroupForUpdate", "id = $1 FOR UPDATE", id)
}

func (r *pgSubmissionGroupRepository) GetGroupByTitle(ctx context.Context, title string) (*model.SubmissionGroup, error) {
	return r.getOne(ctx, r.db, "GetGroupByTitle", "title = $1", title)
}

func (r *pgSubmissionGroupRepository) GetGroupBySlug(ctx context.Context, slug string) (*model.SubmissionGroup, error) {
	return r.getOne(ctx, r.db, "GetGroupBySlug", "slug = $1", slug)
}

func (r *pgSubmissionGroupRepository) UpdateGroup(ctx context.Context, tx *sql.Tx, g *model.SubmissionGroup) error {
	query := `UPDATE submission_groups SET
                title = $1, slug = $2, description = $3, is_completed = $4, is_judged = $5,
                winning_submission_id = $6, updated_at = NOW()
              WHERE id = $7
              RETURNING updated_at`
	err := pick(r.db, tx).QueryRowContext(ctx, query,
		g.Title, g.Slug, g.Description, g.IsCompleted, g.IsJudged, g.WinningSubmissionID, g.ID,
	).Scan(&g.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("submission group not found: %w", common.ErrNotFound)
		}
		if common.IsPgError(err, common.PgUniqueViolation) {
			return groupUniqueError(err)
		}
		if common.IsPgError(err, common.PgForeignKeyViolation) {
			return fmt.Errorf("winning submission does not exist: %w", common.ErrBadRequest)
		}
		return fmt.Errorf("pgSubmissionGroupRepository.UpdateGroup: %w", err)
	}
	return nil
}

func (r *pgSubmissionGroupRepository) DeleteGroup(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := pick(r.db, tx).ExecContext(ctx, `DELETE FROM submission_groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgSubmissionGroupRepository.DeleteGroup: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("submission group not found: %w", common.ErrNotFound)
	}
	return nil
}

func (r *pgSubmissionGroupRepository) ListGroups(ctx context.Context, filter model.SubmissionGroupFilter) ([]model.SubmissionGroup, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.Completed != nil {
		args = append(args, *filter.Completed)
		conditions = append(conditions, fmt.Sprintf("is_completed = $%d", len(args)))
	}
	if filter.Judged != nil {
		args = append(args, *filter.Judged)
		conditions = append(conditions, fmt.Sprintf("is_judged = $%d", len(args)))
	}

	query := `SELECT ` + groupColumns + ` FROM submission_groups`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionGroupRepository.ListGroups: %w", err)
	}
	defer rows.Close()

	groups := []model.SubmissionGroup{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("pgSubmissionGroupRepository.ListGroups scan: %w", err)
		}
		groups = append(groups, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubmissionGroupRepository.ListGroups rows: %w", err)
	}
	return groups, nil
}

func (r *pgSubmissionGroupRepository) CountSubmissions(ctx context.Context, groupID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions WHERE submission_group_id = $1`, groupID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("pgSubmissionGroupRepository.CountSubmissions: %w", err)
	}
	return n, nil
}
