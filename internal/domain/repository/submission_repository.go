package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"vote_zone/internal/common"
	"vote_zone/internal/domain/model"
)

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error
	GetSubmissionByID(ctx context.Context, tx *sql.Tx, id string) (*model.Submission, error)
	// GetSubmissionForUpdate row-locks the submission until tx ends.
	GetSubmissionForUpdate(ctx context.Context, tx *sql.Tx, id string) (*model.Submission, error)
	UpdateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error
	SetSubmissionGroup(ctx context.Context, tx *sql.Tx, submissionID, groupID string) error
	DeleteSubmission(ctx context.Context, tx *sql.Tx, id string) error
	ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]model.Submission, error)

	// AdjustVotes adds delta to the denormalized counter and returns the updated row.
	AdjustVotes(ctx context.Context, tx *sql.Tx, submissionID string, delta int) (*model.Submission, error)

	// FileKeyReferenced reports whether any submission carries a file reference with key.
	FileKeyReferenced(ctx context.Context, key string) (bool, error)
}

// SubmissionFilter narrows ListSubmissions. Zero values mean "no constraint".
// From is inclusive and Before exclusive. Results are always ordered newest first.
type SubmissionFilter struct {
	UserID   string
	GroupIDs []string
	From     *time.Time
	Before   *time.Time
}

// ErrNegativeVotes is returned by AdjustVotes when the counter would drop below zero.
var ErrNegativeVotes = errors.New("submission vote counter would become negative")

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

const submissionColumns = `s.id, s.title, s.description, s.votes, s.file_references, s.user_id,
	s.submission_group_id, s.created_at, s.updated_at, u.username`

const submissionFrom = ` FROM submissions s JOIN users u ON u.id = s.user_id`

func scanSubmission(row rowScanner) (*model.Submission, error) {
	sub := &model.Submission{}
	var (
		files    []byte
		groupID  sql.NullString
		username sql.NullString
	)
	err := row.Scan(&sub.ID, &sub.Title, &sub.Description, &sub.Votes, &files, &sub.UserID,
		&groupID, &sub.CreatedAt, &sub.UpdatedAt, &username)
	if err != nil {
		return nil, err
	}
	if groupID.Valid {
		sub.SubmissionGroupID = &groupID.String
	}
	if username.Valid {
		sub.UserUsername = &username.String
	}
	sub.FileReferences = []model.FileReference{}
	if len(files) > 0 {
		if err := json.Unmarshal(files, &sub.FileReferences); err != nil {
			return nil, fmt.Errorf("malformed file_references for submission %s: %w", sub.ID, err)
		}
	}
	return sub, nil
}

func encodeFileReferences(refs []model.FileReference) (string, error) {
	if refs == nil {
		refs = []model.FileReference{}
	}
	b, err := json.Marshal(refs)
	if err != nil {
		return "", fmt.Errorf("failed to encode file references: %w", err)
	}
	return string(b), nil
}

func (r *pgSubmissionRepository) CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	files, err := encodeFileReferences(sub.FileReferences)
	if err != nil {
		return err
	}

	query := `INSERT INTO submissions (id, title, description, votes, file_references, user_id, submission_group_id)
	          VALUES ($1, $2, $3, 0, $4::jsonb, $5, $6)
	          RETURNING votes, created_at, updated_at`
	err = pick(r.db, tx).QueryRowContext(ctx, query,
		sub.ID, sub.Title, sub.Description, files, sub.UserID, sub.SubmissionGroupID,
	).Scan(&sub.Votes, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if common.IsPgError(err, common.PgForeignKeyViolation) {
			return fmt.Errorf("referenced user or submission group does not exist: %w", common.ErrNotFound)
		}
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) GetSubmissionByID(ctx context.Context, tx *sql.Tx, id string) (*model.Submission, error) {
	query := `SELECT ` + submissionColumns + submissionFrom + ` WHERE s.id = $1`
	sub, err := scanSubmission(pick(r.db, tx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("submission %s: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionByID: %w", err)
	}
	return sub, nil
}

func (r *pgSubmissionRepository) GetSubmissionForUpdate(ctx context.Context, tx *sql.Tx, id string) (*model.Submission, error) {
	if tx == nil {
		return nil, errors.New("pgSubmissionRepository.GetSubmissionForUpdate: transaction required")
	}
	query := `SELECT ` + submissionColumns + submissionFrom + ` WHERE s.id = $1 FOR UPDATE OF s`
	sub, err := scanSubmission(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("submission %s: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionForUpdate: %w", err)
	}
	return sub, nil
}

func (r *pgSubmissionRepository) UpdateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	files, err := encodeFileReferences(sub.FileReferences)
	if err != nil {
		return err
	}

	// user_id and votes are never written here; the counter only moves through AdjustVotes.
	query := `UPDATE submissions
	          SET title = $1, description = $2, file_references = $3::jsonb, updated_at = NOW()
	          WHERE id = $4
	          RETURNING updated_at`
	err = pick(r.db, tx).QueryRowContext(ctx, query, sub.Title, sub.Description, files, sub.ID).Scan(&sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("submission %s: %w", sub.ID, common.ErrNotFound)
		}
		return fmt.Errorf("pgSubmissionRepository.UpdateSubmission: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) SetSubmissionGroup(ctx context.Context, tx *sql.Tx, submissionID, groupID string) error {
	query := `UPDATE submissions SET submission_group_id = $1, updated_at = NOW() WHERE id = $2`
	res, err := pick(r.db, tx).ExecContext(ctx, query, groupID, submissionID)
	if err != nil {
		if common.IsPgError(err, common.PgForeignKeyViolation) {
			return fmt.Errorf("submission group %s: %w", groupID, common.ErrNotFound)
		}
		return fmt.Errorf("pgSubmissionRepository.SetSubmissionGroup: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("submission %s: %w", submissionID, common.ErrNotFound)
	}
	return nil
}

func (r *pgSubmissionRepository) DeleteSubmission(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := pick(r.db, tx).ExecContext(ctx, `DELETE FROM submissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.DeleteSubmission: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("submission %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *pgSubmissionRepository) ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]model.Submission, error) {
	var (
		conditions []string
		args       []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.UserID != "" {
		add("s.user_id = $%d", filter.UserID)
	}
	if filter.GroupIDs != nil {
		if len(filter.GroupIDs) == 0 {
			return []model.Submission{}, nil
		}
		add("s.submission_group_id = ANY($%d)", filter.GroupIDs)
	}
	if filter.From != nil {
		add("s.created_at >= $%d", *filter.From)
	}
	if filter.Before != nil {
		add("s.created_at < $%d", *filter.Before)
	}

	query := `SELECT ` + submissionColumns + submissionFrom
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY s.created_at DESC, s.id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListSubmissions: %w", err)
	}
	defer rows.Close()

	submissions := []model.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.ListSubmissions scan: %w", err)
		}
		submissions = append(submissions, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListSubmissions rows: %w", err)
	}
	return submissions, nil
}

func (r *pgSubmissionRepository) AdjustVotes(ctx context.Context, tx *sql.Tx, submissionID string, delta int) (*model.Submission, error) {
	query := `WITH s AS (
	              UPDATE submissions SET votes = votes + $2 WHERE id = $1
	              RETURNING *
	          )
	          SELECT ` + submissionColumns + ` FROM s JOIN users u ON u.id = s.user_id`
	sub, err := scanSubmission(pick(r.db, tx).QueryRowContext(ctx, query, submissionID, delta))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("submission %s: %w", submissionID, common.ErrNotFound)
		}
		if common.IsPgError(err, common.PgCheckViolation) {
			return nil, fmt.Errorf("submission %s: %w", submissionID, ErrNegativeVotes)
		}
		return nil, fmt.Errorf("pgSubmissionRepository.AdjustVotes: %w", err)
	}
	if sub.Votes < 0 {
		return nil, fmt.Errorf("submission %s at %d: %w", submissionID, sub.Votes, ErrNegativeVotes)
	}
	return sub, nil
}

func (r *pgSubmissionRepository) FileKeyReferenced(ctx context.Context, key string) (bool, error) {
	probe, err := json.Marshal([]map[string]string{{"key": key}})
	if err != nil {
		return false, fmt.Errorf("failed to encode key probe: %w", err)
	}

	var exists bool
	err = r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM submissions WHERE file_references @> $1::jsonb)`, string(probe),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.FileKeyReferenced: %w", err)
	}
	return exists, nil
}
