package auth

import (
	"context"
	"net/http"
	"time"

	"trendaryo/models"
	"trendaryo/utils"

	"github.com/julienschmidt/httprouter"
)

type Handlers struct {
	Service *Service
}

func NewHandlers(s *Service) *Handlers {
	return &Handlers{Service: s}
}

// userView adds the derived fields to a user response.
type userView struct {
	*models.User
	Initials string `json:"initials"`
}

func view(u *models.User) userView {
	return userView{User: u, Initials: u.Initials()}
}

func respondSession(w http.ResponseWriter, code int, s *Session) {
	utils.RespondWithJSON(w, code, utils.M{
		"success":      true,
		"token":        s.Token,
		"refreshToken": s.RefreshToken,
		"expiresIn":    s.ExpiresIn,
		"data":         view(s.User),
	})
}

// POST /api/v1/auth/register
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req RegisterRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	s, err := h.Service.Register(ctx, req)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	respondSession(w, http.StatusCreated, s)
}

// POST /api/v1/auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	s, err := h.Service.Login(ctx, body.Email, body.Password)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	respondSession(w, http.StatusOK, s)
}

// GET /api/v1/auth/me
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := h.Service.Me(ctx, utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, view(u))
}

// PUT /api/v1/auth/updatedetails
func (h *Handlers) UpdateDetails(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req DetailsRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	u, err := h.Service.UpdateDetails(ctx, utils.GetUserIDFromRequest(r), req)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, view(u))
}

// PUT /api/v1/auth/updatepassword
func (h *Handlers) UpdatePassword(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var body struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	s, err := h.Service.UpdatePassword(ctx, utils.GetUserIDFromRequest(r), body.CurrentPassword, body.NewPassword)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	respondSession(w, http.StatusOK, s)
}

// POST /api/v1/auth/logout
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Service.Logout(ctx, utils.GetUserIDFromRequest(r)); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, utils.M{"message": "logged out"})
}

// POST /api/v1/auth/token/refresh
func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	s, err := h.Service.Refresh(ctx, body.RefreshToken)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	respondSession(w, http.StatusOK, s)
}
