package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
	"github.com/museum-staffing/shift-manager/backend/internal/repository"
	"github.com/museum-staffing/shift-manager/backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

const (
	generatedPasswordLength = 12
	minPasswordLength       = 8
)

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r.Context())
	includeInactive := me.IsAdmin() && r.URL.Query().Get("show_inactive") == "true"

	users, err := h.store.GetAllUsers(includeInactive)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if !me.IsAdmin() {
		own := make([]*domain.User, 0, 1)
		for _, u := range users {
			if u.ID == me.ID {
				own = append(own, u)
			}
		}
		users = own
	}

	h.successResponse(w, r, "users retrieved", users)
}

// CreateUser generates a password when none is given and mails it to the new user.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username  string      `json:"username" validate:"required,max=150"`
		Password  string      `json:"password" validate:"omitempty,min=8"`
		Email     string      `json:"email" validate:"omitempty,email"`
		FirstName string      `json:"first_name" validate:"max=150"`
		LastName  string      `json:"last_name" validate:"max=150"`
		Role      domain.Role `json:"role" validate:"omitempty,oneof=admin guard"`
	}
	if err := h.readAndValidate(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	password := req.Password
	generated := password == ""
	if generated {
		password = utils.GenerateRandomPassword(generatedPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	user := &domain.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         req.Role,
		IsActive:     true,
	}
	if err := h.store.CreateUser(user); err != nil {
		if constraintViolation(err) == "users_username_key" {
			h.errorResponse(w, r, http.StatusBadRequest, "a user with that username already exists")
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	if generated {
		h.sendMail(r.Context(), domain.MailMessage{
			Type: domain.MailNewAccount,
			To:   user.Email,
			Data: domain.NewAccountMailData{
				FullName: user.FullName(),
				Username: user.Username,
				Password: password,
			},
		})
	}

	h.createdResponse(w, r, "user created", user)
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "current user retrieved", currentUser(r.Context()))
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(UserInfoCtx).(*domain.User)
	h.successResponse(w, r, "user retrieved", user)
}

type userUpdate struct {
	Username  *string      `json:"username" validate:"omitempty,max=150"`
	Email     *string      `json:"email" validate:"omitempty,email"`
	FirstName *string      `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string      `json:"last_name" validate:"omitempty,max=150"`
	Role      *domain.Role `json:"role" validate:"omitempty,oneof=admin guard"`
	IsActive  *bool        `json:"is_active"`

	// guard-owned fields, only inspected for presence
	Availability          json.RawMessage `json:"availability"`
	PriorityNumber        json.RawMessage `json:"priority_number"`
	WorkPeriods           json.RawMessage `json:"work_periods"`
	ExhibitionPreferences json.RawMessage `json:"exhibition_preferences"`
	DayPreferences        json.RawMessage `json:"day_preferences"`
}

func (u *userUpdate) touchesGuardFields() bool {
	for _, raw := range []json.RawMessage{u.Availability, u.PriorityNumber, u.WorkPeriods, u.ExhibitionPreferences, u.DayPreferences} {
		if len(raw) > 0 {
			return true
		}
	}
	return false
}

// readOnlyForGuards names the account fields a guard sent that only admins may change.
func (u *userUpdate) readOnlyForGuards() []string {
	var fields []string
	if u.Username != nil {
		fields = append(fields, "username")
	}
	if u.Role != nil {
		fields = append(fields, "role")
	}
	if u.IsActive != nil {
		fields = append(fields, "is_active")
	}
	return fields
}

func (u *userUpdate) apply(target *domain.User) {
	if u.Username != nil {
		target.Username = *u.Username
	}
	if u.Email != nil {
		target.Email = *u.Email
	}
	if u.FirstName != nil {
		target.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		target.LastName = *u.LastName
	}
	if u.Role != nil {
		target.Role = *u.Role
	}
	if u.IsActive != nil {
		target.IsActive = *u.IsActive
	}
}

func (h *Handler) saveUser(w http.ResponseWriter, r *http.Request, target *domain.User) {
	var req userUpdate
	if err := h.readAndValidate(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	byAdmin := currentUser(r.Context()).IsAdmin()
	if req.touchesGuardFields() {
		if byAdmin {
			h.forbidden(w, r, h.message(msgAdminGuardFields))
			return
		}
		h.errorResponse(w, r, http.StatusBadRequest, "use the guard actions to change availability, work periods or preferences")
		return
	}

	if fields := req.readOnlyForGuards(); !byAdmin && len(fields) > 0 {
		h.errorResponse(w, r, http.StatusBadRequest, fmt.Sprintf("guards cannot change %s", strings.Join(fields, ", ")))
		return
	}

	req.apply(target)

	if err := h.store.UpdateUser(target); err != nil {
		switch {
		case errors.Is(err, repository.ErrVersionConflict):
			h.errorResponse(w, r, http.StatusConflict, "user was modified by another request, please retry")
		case constraintViolation(err) == "users_username_key":
			h.errorResponse(w, r, http.StatusBadRequest, "a user with that username already exists")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "user updated", target)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(UserInfoCtx).(*domain.User)
	h.saveUser(w, r, user)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	me := *currentUser(r.Context())
	h.saveUser(w, r, &me)
}

// DeactivateUser is a soft delete.
func (h *Handler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(UserInfoCtx).(*domain.User)

	if err := h.store.DeactivateUser(user.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "user deactivated", nil)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldPassword        string `json:"old_password" validate:"required"`
		NewPassword        string `json:"new_password" validate:"required"`
		NewPasswordConfirm string `json:"new_password_confirm" validate:"required"`
	}
	if err := h.readAndValidate(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	me := *currentUser(r.Context())
	if err := bcrypt.CompareHashAndPassword([]byte(me.PasswordHash), []byte(req.OldPassword)); err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, "old password is incorrect")
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		h.errorResponse(w, r, http.StatusBadRequest, "new password must be at least 8 characters long")
		return
	}
	if req.NewPassword != req.NewPasswordConfirm {
		h.errorResponse(w, r, http.StatusBadRequest, "new passwords do not match")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	me.PasswordHash = string(hash)

	if err := h.store.UpdateUser(&me); err != nil {
		switch {
		case errors.Is(err, repository.ErrVersionConflict):
			h.errorResponse(w, r, http.StatusConflict, "user was modified by another request, please retry")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "password changed", nil)
}
