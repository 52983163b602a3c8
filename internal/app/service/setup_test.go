package service

import (
	"database/sql"
	"testing"
	"vote_zone/internal/domain/repository"
	"vote_zone/internal/testutil"
)

type fixture struct {
	db          *sql.DB
	votes       *VoteService
	submissions *SubmissionService
	groups      *SubmissionGroupService
	files       *FileService
	cleanup     *recordingQueue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.PostgresDB(t)

	subRepo := repository.NewPgSubmissionRepository(db)
	groupRepo := repository.NewPgSubmissionGroupRepository(db)
	voteRepo := repository.NewPgVoteRepository(db)

	cleanup := &recordingQueue{}
	files := NewFileService(newFakeStore(), subRepo, 1<<20)
	return &fixture{
		db:          db,
		votes:       NewVoteService(voteRepo, subRepo, db),
		submissions: NewSubmissionService(subRepo, groupRepo, files, cleanup, db),
		groups:      NewSubmissionGroupService(groupRepo, subRepo, db),
		files:       files,
		cleanup:     cleanup,
	}
}
