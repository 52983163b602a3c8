package handler

import (
	"net/http"
	"vote_zone/internal/api/middleware"
	"vote_zone/internal/app/service"
	"vote_zone/internal/common"
	"vote_zone/internal/domain/model"
	"vote_zone/internal/domain/period"

	"github.com/go-chi/chi/v5"
)

type SubmissionHandler struct {
	submissionService *service.SubmissionService
}

func NewSubmissionHandler(ss *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: ss}
}

// RegisterRoutes mounts submission routes. Callers must already be authenticated.
func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.createSubmission)
	r.Get("/", h.listSubmissions)
	r.Get("/me", h.listMySubmissions)
	r.Get("/period/{period}", h.listSubmissionsByPeriod) // week | month | year
	r.Get("/{submissionID}", h.getSubmission)
	r.Patch("/{submissionID}", h.updateSubmission)
	r.Put("/{submissionID}/group", h.linkToGroup)
	r.Delete("/{submissionID}", h.deleteSubmission)
}

func (h *SubmissionHandler) createSubmission(w http.ResponseWriter, r *http.Request) {
	var req service.CreateSubmissionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sub, err := h.submissionService.CreateSubmission(r.Context(), middleware.CallerFromContext(r.Context()), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, sub)
}

func (h *SubmissionHandler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.submissionService.ListSubmissions(r.Context(), middleware.CallerFromContext(r.Context()))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, subs)
}

func (h *SubmissionHandler) listMySubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.submissionService.ListMySubmissions(r.Context(), middleware.CallerFromContext(r.Context()))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, subs)
}

func (h *SubmissionHandler) listSubmissionsByPeriod(w http.ResponseWriter, r *http.Request) {
	week, okW := queryInt(r, "week")
	month, okM := queryInt(r, "month")
	year, okY := queryInt(r, "year")
	if !okW || !okM || !okY {
		common.RespondWithError(w, http.StatusBadRequest, "week, month and year must be integers")
		return
	}

	kind := period.Kind(chi.URLParam(r, "period"))
	subs, err := h.submissionService.ListSubmissionsByPeriod(r.Context(), middleware.CallerFromContext(r.Context()), kind, week, month, year)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, subs)
}

func (h *SubmissionHandler) getSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := h.submissionService.GetSubmission(r.Context(), middleware.CallerFromContext(r.Context()), chi.URLParam(r, "submissionID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, sub)
}

func (h *SubmissionHandler) updateSubmission(w http.ResponseWriter, r *http.Request) {
	var patch model.SubmissionPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	sub, err := h.submissionService.UpdateSubmission(r.Context(), middleware.CallerFromContext(r.Context()), chi.URLParam(r, "submissionID"), patch)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, sub)
}

type linkGroupRequest struct {
	SubmissionGroupID string `json:"submission_group_id"`
}

func (h *SubmissionHandler) linkToGroup(w http.ResponseWriter, r *http.Request) {
	var req linkGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sub, err := h.submissionService.LinkToGroup(r.Context(), middleware.CallerFromContext(r.Context()), chi.URLParam(r, "submissionID"), req.SubmissionGroupID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, sub)
}

func (h *SubmissionHandler) deleteSubmission(w http.ResponseWriter, r *http.Request) {
	if err := h.submissionService.DeleteSubmission(r.Context(), middleware.CallerFromContext(r.Context()), chi.URLParam(r, "submissionID")); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
