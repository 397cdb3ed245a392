package rest

import (
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/webtoz/internal/common"
	"github.com/dmitrijs2005/webtoz/internal/logging"
	"github.com/dmitrijs2005/webtoz/internal/server/models"
	"github.com/dmitrijs2005/webtoz/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type usersHandler struct {
	users    *services.UserService
	validate *requestValidator
	logger   logging.Logger
}

// list handles GET /api/users?page=&limit=&search=&role=&isActive=
func (h *usersHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := services.ListQuery{Search: q.Get("search")}
	query.Page, _ = strconv.Atoi(q.Get("page"))
	query.Limit, _ = strconv.Atoi(q.Get("limit"))

	if v := q.Get("role"); v != "" {
		role, err := models.ParseRole(v)
		if err != nil {
			writeError(r.Context(), w, h.logger, common.WithMessage(common.ErrValidation, messages["role.oneof"]))
			return
		}
		query.Role = &role
	}
	if v := q.Get("isActive"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			writeError(r.Context(), w, h.logger, common.WithMessage(common.ErrValidation, messages["isActive.bool"]))
			return
		}
		query.IsActive = &active
	}

	page, err := h.users.List(r.Context(), query)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	ok(w, http.StatusOK, userListData{
		Users: toUserViews(page.Users),
		Pagination: pagination{
			Page:  page.Page,
			Limit: page.Limit,
			Total: page.Total,
			Pages: page.Pages,
		},
	}, "")
}

func (h *usersHandler) get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), UserFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	ok(w, http.StatusOK, userData{User: toUserView(user)}, "")
}

type updateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=50"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Role     *string `json:"role" validate:"omitempty,oneof=user admin"`
	IsActive *bool   `json:"isActive"`
	Avatar   *string `json:"avatar" validate:"omitempty,avatar"`
}

func (h *usersHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := bindJSON(w, r, h.validate, &req); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	patch := services.UserPatch{
		Name:     req.Name,
		Email:    req.Email,
		IsActive: req.IsActive,
		Avatar:   req.Avatar,
	}
	if req.Role != nil {
		role, err := models.ParseRole(*req.Role)
		if err != nil {
			writeError(r.Context(), w, h.logger, common.WithMessage(common.ErrValidation, messages["role.oneof"]))
			return
		}
		patch.Role = &role
	}

	user, err := h.users.Update(r.Context(), UserFromContext(r.Context()), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	ok(w, http.StatusOK, userData{User: toUserView(user)}, "User updated successfully")
}

func (h *usersHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), UserFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	ok(w, http.StatusOK, nil, "User deleted successfully")
}

func (h *usersHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.users.Stats(r.Context())
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	ok(w, http.StatusOK, stats, "")
}
