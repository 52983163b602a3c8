package handler

import (
	"net/http"
	"vote_zone/internal/api/middleware"
	"vote_zone/internal/app/service"
	"vote_zone/internal/common"
	"vote_zone/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type SubmissionGroupHandler struct {
	groupService *service.SubmissionGroupService
}

func NewSubmissionGroupHandler(gs *service.SubmissionGroupService) *SubmissionGroupHandler {
	return &SubmissionGroupHandler{groupService: gs}
}

func (h *SubmissionGroupHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.createGroup)
	r.Get("/", h.listGroups) // ?completed=&judged=
	r.Get("/by-name/{name}", h.getGroupByName)
	r.Get("/by-slug/{slug}", h.getGroupBySlug)
	r.Get("/{groupID}", h.getGroup)
	r.Get("/{groupID}/count", h.countSubmissions)
	r.Patch("/{groupID}", h.updateGroup)
	r.Delete("/{groupID}", h.deleteGroup)
}

func (h *SubmissionGroupHandler) createGroup(w http.ResponseWriter, r *http.Request) {
	var req service.CreateSubmissionGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	g, err := h.groupService.CreateGroup(r.Context(), middleware.CallerFromContext(r.Context()), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, g)
}

func (h *SubmissionGroupHandler) listGroups(w http.ResponseWriter, r *http.Request) {
	completed, okC := queryBool(r, "completed")
	judged, okJ := queryBool(r, "judged")
	if !okC || !okJ {
		common.RespondWithError(w, http.StatusBadRequest, "completed and judged must be booleans")
		return
	}

	filter := model.SubmissionGroupFilter{Completed: completed, Judged: judged}
	groups, err := h.groupService.ListGroups(r.Context(), middleware.CallerFromContext(r.Context()), filter)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, groups)
}

func (h *SubmissionGroupHandler) getGroup(w http.ResponseWriter, r *http.Request) {
	g, err := h.groupService.GetGroup(r.Context(), middleware.CallerFromContext(r.Context()), chi.URLParam(r, "groupID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, g)
}

func (h *SubmissionGroupHandler) getGroupByName(w http.ResponseWriter, r *http.Request) {
	name, ok := pathParam(r, "name")
	if !ok {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid name in path")
		return
	}
	g, err := h.groupService.GetGroupByName(r.Context(), middleware.CallerFromContext(r.Context()), name)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, g)
}

func (h *SubmissionGroupHandler) getGroupBySlug(w http.ResponseWriter, r *http.Request) {
	slug, ok := pathParam(r, "slug")
	if !ok {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid slug in path")
		return
	}
	g, err := h.groupService.GetGroupBySlug(r.Context(), middleware.CallerFromContext(r.Context()), slug)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, g)
}

func (h *SubmissionGroupHandler) countSubmissions(w http.ResponseWriter, r *http.Request) {
	n, err := h.groupService.CountSubmissions(r.Context(), middleware.CallerFromContext(r.Context()), chi.URLParam(r, "groupID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (h *SubmissionGroupHandler) updateGroup(w http.ResponseWriter, r *http.Request) {
	var patch model.SubmissionGroupPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	g, err := h.groupService.UpdateGroup(r.Context(), middleware.CallerFromContext(r.Context()), chi.URLParam(r, "groupID"), patch)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, g)
}

func (h *SubmissionGroupHandler) deleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := h.groupService.DeleteGroup(r.Context(), middleware.CallerFromContext(r.Context()), chi.URLParam(r, "groupID")); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
