package handler

import (
	"net/http"
	"vote_zone/internal/api/middleware"
	"vote_zone/internal/app/service"
	"vote_zone/internal/common"

	"github.com/go-chi/chi/v5"
)

type VoteHandler struct {
	voteService *service.VoteService
}

func NewVoteHandler(vs *service.VoteService) *VoteHandler {
	return &VoteHandler{voteService: vs}
}

// RegisterRoutes expects to be mounted under a path carrying {submissionID}.
func (h *VoteHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.castVote)
	r.Delete("/", h.retractVote)
	r.Get("/", h.listVotes)
}

func (h *VoteHandler) castVote(w http.ResponseWriter, r *http.Request) {
	sub, err := h.voteService.CastVote(r.Context(), middleware.CallerFromContext(r.Context()), chi.URLParam(r, "submissionID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, sub)
}

func (h *VoteHandler) retractVote(w http.ResponseWriter, r *http.Request) {
	sub, err := h.voteService.RetractVote(r.Context(), middleware.CallerFromContext(r.Context()), chi.URLParam(r, "submissionID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, sub)
}

func (h *VoteHandler) listVotes(w http.ResponseWriter, r *http.Request) {
	votes, err := h.voteService.ListVotes(r.Context(), middleware.CallerFromContext(r.Context()), chi.URLParam(r, "submissionID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, votes)
}
