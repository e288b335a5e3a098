package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/platerecon/internal/common"
	"github.com/dmitrijs2005/platerecon/internal/server/models"
	"github.com/dmitrijs2005/platerecon/internal/server/services"
)

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	IsActive  bool      `json:"is_active"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		IsActive:  u.IsActive,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		h.writeDetail(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.users.Register(ctx, services.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	h.writeJSON(ctx, w, http.StatusCreated, toUserResponse(user))
}

// login takes an OAuth2 password-grant style form: "username" holds either
// the email or the username.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		h.writeDetail(ctx, w, http.StatusBadRequest, "Invalid form body")
		return
	}

	login, password := r.PostForm.Get("username"), r.PostForm.Get("password")
	if login == "" || password == "" {
		h.writeDetail(ctx, w, http.StatusBadRequest, "username and password are required")
		return
	}

	res, err := h.users.Authenticate(ctx, login, password)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	h.writeJSON(ctx, w, http.StatusOK, tokenResponse{AccessToken: res.AccessToken, TokenType: common.BearerScheme})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	h.writeJSON(r.Context(), w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) protected(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	h.writeJSON(r.Context(), w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Hello %s! This is a protected route.", user.Username),
		"user_id": user.ID,
		"email":   user.Email,
	})
}
