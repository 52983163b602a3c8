package service

import (
	"context"
	"testing"
	"time"
	"vote_zone/internal/common"
	"vote_zone/internal/domain/model"
	"vote_zone/internal/domain/period"
	"vote_zone/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func uploadKey(c *model.Caller, name string) string {
	return "uploads/" + c.UserID + "/" + name
}

func countRows(t *testing.T, f *fixture, table string) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

func TestSubmissionService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice", model.RoleUser)

	sub, err := f.submissions.CreateSubmission(ctx, alice, CreateSubmissionRequest{
		Title:       "  Sunset  ",
		Description: "golden hour",
		FileReferences: []model.FileReference{
			{Name: "sunset.jpg", Type: "image/jpeg", Size: 1024, Key: uploadKey(alice, "1-sunset.jpg")},
			{Name: "notes.txt", Type: "text/plain", Size: 10},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Sunset", sub.Title)
	assert.Equal(t, 0, sub.Votes)
	assert.Equal(t, alice.UserID, sub.UserID)
	assert.Nil(t, sub.SubmissionGroupID)
	require.NotNil(t, sub.UserUsername)
	assert.Equal(t, "alice", *sub.UserUsername)
	assert.Len(t, sub.FileReferences, 2)
	assert.Equal(t, []string{uploadKey(alice, "1-sunset.jpg")}, sub.FileKeys())
}

func TestSubmissionService_CreateRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice", model.RoleUser)
	bob := testutil.CreateUser(t, f.db, "bob", model.RoleUser)

	tests := []struct {
		name    string
		caller  *model.Caller
		req     CreateSubmissionRequest
		wantErr error
	}{
		{"anonymous", nil, CreateSubmissionRequest{Title: "x"}, common.ErrUnauthorized},
		{"blank title", alice, CreateSubmissionRequest{Title: "   "}, common.ErrValidation},
		{"file without name", alice, CreateSubmissionRequest{
			Title:          "x",
			FileReferences: []model.FileReference{{Type: "image/png", Size: 1}},
		}, common.ErrValidation},
		{"file too large", alice, CreateSubmissionRequest{
			Title:          "x",
			FileReferences: []model.FileReference{{Name: "a", Type: "b", Size: 2 << 20}},
		}, common.ErrValidation},
		{"traversal key", alice, CreateSubmissionRequest{
			Title:          "x",
			FileReferences: []model.FileReference{{Name: "a", Type: "b", Size: 1, Key: "uploads/../secrets"}},
		}, common.ErrValidation},
		{"key outside uploads", alice, CreateSubmissionRequest{
			Title:          "x",
			FileReferences: []model.FileReference{{Name: "a", Type: "b", Size: 1, Key: "secrets/prod.env"}},
		}, common.ErrValidation},
		{"key of another user", alice, CreateSubmissionRequest{
			Title:          "x",
			FileReferences: []model.FileReference{{Name: "a", Type: "b", Size: 1, Key: uploadKey(bob, "x.png")}},
		}, common.ErrValidation},
		{"missing group", alice, CreateSubmissionRequest{Title: "x", SubmissionGroupID: strPtr(uuid.NewString())}, common.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.submissions.CreateSubmission(ctx, tt.caller, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Equal(t, 0, countRows(t, f, "submissions"), "rejected creates must not leave rows")
}

func TestSubmissionService_CreateInGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice", model.RoleUser)
	groupID := testutil.CreateGroup(t, f.db, "Week 1", alice)

	sub, err := f.submissions.CreateSubmission(ctx, alice, CreateSubmissionRequest{Title: "Entry", SubmissionGroupID: &groupID})
	require.NoError(t, err)
	require.NotNil(t, sub.SubmissionGroupID)
	assert.Equal(t, groupID, *sub.SubmissionGroupID)

	n, err := f.groups.CountSubmissions(ctx, alice, groupID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSubmissionService_Update(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice", model.RoleUser)
	bob := testutil.CreateUser(t, f.db, "bob", model.RoleUser)
	admin := testutil.CreateUser(t, f.db, "root", model.RoleAdmin)

	created, err := f.submissions.CreateSubmission(ctx, alice, CreateSubmissionRequest{
		Title:       "Draft",
		Description: "first",
		FileReferences: []model.FileReference{
			{Name: "a.png", Type: "image/png", Size: 1, Key: uploadKey(alice, "keep.png")},
			{Name: "b.png", Type: "image/png", Size: 1, Key: uploadKey(alice, "drop.png")},
		},
	})
	require.NoError(t, err)

	_, err = f.submissions.UpdateSubmission(ctx, bob, created.ID, model.SubmissionPatch{Title: strPtr("Hijack")})
	assert.ErrorIs(t, err, common.ErrForbidden)
	_, err = f.submissions.UpdateSubmission(ctx, admin, created.ID, model.SubmissionPatch{Title: strPtr("Admin edit")})
	assert.ErrorIs(t, err, common.ErrForbidden, "admins may delete but not edit")
	_, err = f.submissions.UpdateSubmission(ctx, alice, created.ID, model.SubmissionPatch{Title: strPtr("  ")})
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = f.submissions.UpdateSubmission(ctx, alice, uuid.NewString(), model.SubmissionPatch{})
	assert.ErrorIs(t, err, common.ErrNotFound)
	foreign := []model.FileReference{{Name: "b.png", Type: "image/png", Size: 1, Key: uploadKey(bob, "b.png")}}
	_, err = f.submissions.UpdateSubmission(ctx, alice, created.ID, model.SubmissionPatch{FileReferences: &foreign})
	assert.ErrorIs(t, err, common.ErrValidation)

	files := []model.FileReference{{Name: "a.png", Type: "image/png", Size: 1, Key: uploadKey(alice, "keep.png")}}
	updated, err := f.submissions.UpdateSubmission(ctx, alice, created.ID, model.SubmissionPatch{
		Title:          strPtr("Final"),
		FileReferences: &files,
	})
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Title)
	assert.Equal(t, "first", updated.Description, "absent fields stay unchanged")
	assert.Equal(t, alice.UserID, updated.UserID)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt) || updated.UpdatedAt.Equal(created.UpdatedAt))
	assert.Equal(t, []string{uploadKey(alice, "drop.png")}, f.cleanup.Keys())

	got, err := f.submissions.GetSubmission(ctx, bob, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final", got.Title)
	assert.Len(t, got.FileReferences, 1)
}

func TestSubmissionService_UpdateKeepsVotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice", model.RoleUser)
	bob := testutil.CreateUser(t, f.db, "bob", model.RoleUser)
	subID := testutil.CreateSubmission(t, f.db, alice, "Sunset", nil)

	_, err := f.votes.CastVote(ctx, bob, subID)
	require.NoError(t, err)

	updated, err := f.submissions.UpdateSubmission(ctx, alice, subID, model.SubmissionPatch{Description: strPtr("edited")})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Votes)
}

func TestSubmissionService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice", model.RoleUser)
	bob := testutil.CreateUser(t, f.db, "bob", model.RoleUser)
	admin := testutil.CreateUser(t, f.db, "root", model.RoleAdmin)

	sub, err := f.submissions.CreateSubmission(ctx, alice, CreateSubmissionRequest{
		Title:          "Doomed",
		FileReferences: []model.FileReference{{Name: "a.png", Type: "image/png", Size: 1, Key: uploadKey(alice, "x.png")}},
	})
	require.NoError(t, err)
	_, err = f.votes.CastVote(ctx, bob, sub.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.submissions.DeleteSubmission(ctx, bob, sub.ID), common.ErrForbidden)
	assert.ErrorIs(t, f.submissions.DeleteSubmission(ctx, nil, sub.ID), common.ErrUnauthorized)

	require.NoError(t, f.submissions.DeleteSubmission(ctx, alice, sub.ID))
	assert.Equal(t, 0, countRows(t, f, "votes"), "votes cascade with their submission")
	assert.Equal(t, []string{uploadKey(alice, "x.png")}, f.cleanup.Keys())

	_, err = f.submissions.GetSubmission(ctx, alice, sub.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, f.submissions.DeleteSubmission(ctx, alice, sub.ID), common.ErrNotFound)

	other := testutil.CreateSubmission(t, f.db, bob, "Moderated", nil)
	require.NoError(t, f.submissions.DeleteSubmission(ctx, admin, other))
}

func TestSubmissionService_LinkToGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice", model.RoleUser)
	bob := testutil.CreateUser(t, f.db, "bob", model.RoleUser)
	g1 := testutil.CreateGroup(t, f.db, "Week 1", alice)
	g2 := testutil.CreateGroup(t, f.db, "Week 2", alice)
	subID := testutil.CreateSubmission(t, f.db, alice, "Loose", nil)

	_, err := f.submissions.LinkToGroup(ctx, bob, subID, g1)
	assert.ErrorIs(t, err, common.ErrForbidden)
	_, err = f.submissions.LinkToGroup(ctx, alice, subID, uuid.NewString())
	assert.ErrorIs(t, err, common.ErrNotFound)

	sub, err := f.submissions.LinkToGroup(ctx, alice, subID, g1)
	require.NoError(t, err)
	require.NotNil(t, sub.SubmissionGroupID)
	assert.Equal(t, g1, *sub.SubmissionGroupID)

	_, err = f.submissions.LinkToGroup(ctx, alice, subID, g1)
	assert.NoError(t, err, "linking to the same group again is a no-op")

	_, err = f.submissions.LinkToGroup(ctx, alice, subID, g2)
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestSubmissionService_Listing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice", model.RoleUser)
	bob := testutil.CreateUser(t, f.db, "bob", model.RoleUser)

	a1 := testutil.CreateSubmission(t, f.db, alice, "a1", nil)
	b1 := testutil.CreateSubmission(t, f.db, bob, "b1", nil)
	a2 := testutil.CreateSubmission(t, f.db, alice, "a2", nil)

	// Pin creation times so ordering and period filtering are deterministic.
	setCreated := func(id string, at time.Time) {
		_, err := f.db.ExecContext(ctx, `UPDATE submissions SET created_at = $1 WHERE id = $2`, at, id)
		require.NoError(t, err)
	}
	setCreated(a1, time.Date(2024, time.January, 10, 12, 0, 0, 0, time.UTC))
	setCreated(b1, time.Date(2024, time.March, 5, 8, 0, 0, 0, time.UTC))
	setCreated(a2, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC))
	lastOf2024 := testutil.CreateSubmission(t, f.db, bob, "late", nil)
	setCreated(lastOf2024, time.Date(2024, time.December, 31, 23, 59, 59, 999500000, time.UTC))

	all, err := f.submissions.ListSubmissions(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{a2, lastOf2024, b1, a1}, submissionIDs(all))

	mine, err := f.submissions.ListMySubmissions(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{a2, a1}, submissionIDs(mine))

	tests := []struct {
		name              string
		kind              period.Kind
		week, month, year int
		want              []string
	}{
		{"year 2024", period.Year, 0, 0, 2024, []string{lastOf2024, b1, a1}},
		{"year 2025", period.Year, 0, 0, 2025, []string{a2}},
		{"january 2024", period.Month, 0, 1, 2024, []string{a1}},
		{"march 2024", period.Month, 0, 3, 2024, []string{b1}},
		{"iso week 2 of 2024", period.Week, 2, 0, 2024, []string{a1}},
		{"iso week 1 of 2025", period.Week, 1, 0, 2025, []string{a2, lastOf2024}},
		{"december 2024", period.Month, 0, 12, 2024, []string{lastOf2024}},
		{"empty month", period.Month, 0, 7, 2024, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.submissions.ListSubmissionsByPeriod(ctx, bob, tt.kind, tt.week, tt.month, tt.year)
			require.NoError(t, err)
			assert.Equal(t, tt.want, submissionIDs(got))
		})
	}

	_, err = f.submissions.ListSubmissionsByPeriod(ctx, bob, period.Month, 0, 13, 2024)
	assert.ErrorIs(t, err, common.ErrBadRequest)
	_, err = f.submissions.ListSubmissions(ctx, nil)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func submissionIDs(subs []model.Submission) []string {
	ids := make([]string, 0, len(subs))
	for _, s := range subs {
		ids = append(ids, s.ID)
	}
	return ids
}
