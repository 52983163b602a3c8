package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"
	"vote_zone/internal/app/service"
	"vote_zone/internal/common/security"
	"vote_zone/internal/domain/model"
	"vote_zone/internal/domain/repository"
	"vote_zone/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiClient struct {
	t      *testing.T
	server *httptest.Server
}

func (c *apiClient) do(method, path, token string, body interface{}) (int, []byte) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.server.URL+path, &buf)
	require.NoError(c.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.server.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, out.Bytes()
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()
	security.InitJWT([]byte("router-secret"), time.Hour)
	db := testutil.PostgresDB(t)

	userRepo := repository.NewPgUserRepository(db)
	subRepo := repository.NewPgSubmissionRepository(db)
	groupRepo := repository.NewPgSubmissionGroupRepository(db)
	voteRepo := repository.NewPgVoteRepository(db)

	files := service.NewFileService(nil, subRepo, 1<<20)
	router := NewRouter(
		service.NewAuthService(userRepo),
		service.NewSubmissionService(subRepo, groupRepo, files, nil, db),
		service.NewVoteService(voteRepo, subRepo, db),
		service.NewSubmissionGroupService(groupRepo, subRepo, db),
		files,
	)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &apiClient{t: t, server: srv}
}

func signup(t *testing.T, c *apiClient, username string) string {
	t.Helper()
	status, body := c.do(http.MethodPost, "/api/v1/auth/signup", "", service.SignupRequest{
		Username: username, Email: username + "@example.com", Password: "password123",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var resp service.AuthResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp.Token
}

func TestRouter_VotingFlow(t *testing.T) {
	c := newTestAPI(t)
	alice := signup(t, c, "alice")
	bob := signup(t, c, "bob")

	status, body := c.do(http.MethodPost, "/api/v1/submissions", alice, service.CreateSubmissionRequest{Title: "Sunset"})
	require.Equal(t, http.StatusCreated, status, string(body))
	var sub model.Submission
	require.NoError(t, json.Unmarshal(body, &sub))

	votesPath := "/api/v1/submissions/" + sub.ID + "/votes"

	status, body = c.do(http.MethodPost, votesPath, bob, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	require.NoError(t, json.Unmarshal(body, &sub))
	assert.Equal(t, 1, sub.Votes)

	status, body = c.do(http.MethodPost, votesPath, bob, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, string(body), "already voted")

	status, body = c.do(http.MethodGet, votesPath, alice, nil)
	require.Equal(t, http.StatusOK, status)
	var votes []model.Vote
	require.NoError(t, json.Unmarshal(body, &votes))
	require.Len(t, votes, 1)
	assert.Equal(t, "bob", *votes[0].UserUsername)

	status, _ = c.do(http.MethodDelete, votesPath, bob, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = c.do(http.MethodDelete, votesPath, bob, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = c.do(http.MethodDelete, "/api/v1/submissions/"+sub.ID, bob, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = c.do(http.MethodDelete, "/api/v1/submissions/"+sub.ID, alice, nil)
	assert.Equal(t, http.StatusNoContent, status)
}

func TestRouter_GroupsAndQueries(t *testing.T) {
	c := newTestAPI(t)
	alice := signup(t, c, "alice")

	status, body := c.do(http.MethodPost, "/api/v1/submission-groups", alice, service.CreateSubmissionGroupRequest{Title: "Week 1"})
	require.Equal(t, http.StatusCreated, status, string(body))
	var group model.SubmissionGroup
	require.NoError(t, json.Unmarshal(body, &group))

	status, _ = c.do(http.MethodPost, "/api/v1/submissions", alice, service.CreateSubmissionRequest{
		Title: "Entry", SubmissionGroupID: &group.ID,
	})
	require.Equal(t, http.StatusCreated, status)

	status, body = c.do(http.MethodGet, "/api/v1/submission-groups/"+group.ID+"/count", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"count":1}`, string(body))

	status, body = c.do(http.MethodGet, "/api/v1/submission-groups/by-slug/week-1", alice, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &group))
	assert.Len(t, group.Submissions, 1)

	status, body = c.do(http.MethodGet, "/api/v1/submission-groups?completed=false", alice, nil)
	require.Equal(t, http.StatusOK, status)
	var groups []model.SubmissionGroup
	require.NoError(t, json.Unmarshal(body, &groups))
	assert.Len(t, groups, 1)

	for _, title := range []string{"Art / Design", "100% Done"} {
		status, body = c.do(http.MethodPost, "/api/v1/submission-groups", alice, service.CreateSubmissionGroupRequest{Title: title})
		require.Equal(t, http.StatusCreated, status, string(body))

		status, body = c.do(http.MethodGet, "/api/v1/submission-groups/by-name/"+url.PathEscape(title), alice, nil)
		require.Equal(t, http.StatusOK, status, title)
		var named model.SubmissionGroup
		require.NoError(t, json.Unmarshal(body, &named))
		assert.Equal(t, title, named.Title)
	}

	status, _ = c.do(http.MethodGet, "/api/v1/submission-groups?completed=maybe", alice, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	year := time.Now().UTC().Year()
	status, body = c.do(http.MethodGet, "/api/v1/submissions/period/year?year="+strconv.Itoa(year), alice, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var subs []model.Submission
	require.NoError(t, json.Unmarshal(body, &subs))
	assert.Len(t, subs, 1)

	status, _ = c.do(http.MethodGet, "/api/v1/submissions/period/month?year=2024", alice, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = c.do(http.MethodGet, "/api/v1/submissions/period/fortnight?year=2024", alice, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRouter_Unauthenticated(t *testing.T) {
	c := newTestAPI(t)

	for _, path := range []string{"/api/v1/submissions", "/api/v1/submissions/me", "/api/v1/submission-groups"} {
		status, _ := c.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
	}

	status, body := c.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", string(body))

	status, body = c.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, strings.Contains(string(body), "vote_zone_votes_cast_total"))
}

func TestRouter_FilesWithoutStorage(t *testing.T) {
	c := newTestAPI(t)
	alice := signup(t, c, "alice")

	status, _ := c.do(http.MethodPost, "/api/v1/files/upload-url", alice, service.UploadURLRequest{
		FileName: "a.png", FileType: "image/png", Size: 1,
	})
	assert.Equal(t, http.StatusServiceUnavailable, status)
}
