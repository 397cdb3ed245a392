package rest

import (
	"net/http"
	"strings"

	"github.com/dmitrijs2005/webtoz/internal/logging"
	"github.com/dmitrijs2005/webtoz/internal/server/services"
	"github.com/go-chi/chi/v5"
)

const msgResetRequested = "If an account with that email exists, a password reset link has been sent"

type authHandler struct {
	auth     *services.AuthService
	avatars  *services.AvatarService
	validate *requestValidator
	logger   logging.Logger
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,strongpassword"`
}

func (h *authHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.bind(w, r, &req); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	sess, err := h.auth.Register(r.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	ok(w, http.StatusCreated, sessionData{User: toUserView(sess.User), Token: sess.Token}, "User registered successfully")
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.bind(w, r, &req); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	sess, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	ok(w, http.StatusOK, sessionData{User: toUserView(sess.User), Token: sess.Token}, "Login successful")
}

func (h *authHandler) logout(w http.ResponseWriter, r *http.Request) {
	h.auth.Logout(r.Context(), UserFromContext(r.Context()))
	ok(w, http.StatusOK, nil, "Logout successful")
}

func (h *authHandler) me(w http.ResponseWriter, r *http.Request) {
	ok(w, http.StatusOK, userData{User: toUserView(UserFromContext(r.Context()))}, "")
}

type profileRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=2,max=50"`
	Avatar *string `json:"avatar" validate:"omitempty,avatar"`
}

func (h *authHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := h.bind(w, r, &req); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	user, err := h.auth.UpdateProfile(r.Context(), UserFromContext(r.Context()), services.ProfileInput{
		Name:   req.Name,
		Avatar: req.Avatar,
	})
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	ok(w, http.StatusOK, userData{User: toUserView(user)}, "Profile updated successfully")
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,strongpassword"`
}

func (h *authHandler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := h.bind(w, r, &req); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	if err := h.auth.ChangePassword(r.Context(), UserFromContext(r.Context()), req.CurrentPassword, req.NewPassword); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	ok(w, http.StatusOK, nil, "Password changed successfully")
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *authHandler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := h.bind(w, r, &req); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	if err := h.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	ok(w, http.StatusOK, nil, msgResetRequested)
}

type resetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=6,strongpassword"`
}

func (h *authHandler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := h.bind(w, r, &req); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	sess, err := h.auth.ResetPassword(r.Context(), chi.URLParam(r, "token"), req.Password)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	ok(w, http.StatusOK, sessionData{User: toUserView(sess.User), Token: sess.Token}, "Password reset successful")
}

type avatarRequest struct {
	ContentType string `json:"contentType" validate:"required"`
}

func (h *authHandler) avatarUpload(w http.ResponseWriter, r *http.Request) {
	var req avatarRequest
	if err := h.bind(w, r, &req); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	up, err := h.avatars.PresignUpload(r.Context(), UserFromContext(r.Context()).ID, req.ContentType)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	ok(w, http.StatusOK, up, "")
}

// bind decodes and validates a request body. Free-text fields are trimmed
// before validation.
func (h *authHandler) bind(w http.ResponseWriter, r *http.Request, dst any) error {
	return bindJSON(w, r, h.validate, dst)
}

func bindJSON(w http.ResponseWriter, r *http.Request, v *requestValidator, dst any) error {
	if err := decodeJSON(w, r, dst); err != nil {
		return err
	}
	trimFields(dst)
	return v.Validate(dst)
}

func trimFields(dst any) {
	switch req := dst.(type) {
	case *registerRequest:
		req.Name = strings.TrimSpace(req.Name)
		req.Email = strings.TrimSpace(req.Email)
	case *loginRequest:
		req.Email = strings.TrimSpace(req.Email)
	case *forgotPasswordRequest:
		req.Email = strings.TrimSpace(req.Email)
	case *profileRequest:
		trimPtr(req.Name)
	case *updateUserRequest:
		trimPtr(req.Name)
		trimPtr(req.Email)
	}
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
