package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cliprelay/relay-server-go/internal/middleware"
	"github.com/cliprelay/relay-server-go/internal/model"
	"github.com/cliprelay/relay-server-go/internal/service"
)

type AuthHandler struct {
	accounts AccountAPI
}

func NewAuthHandler(accounts AccountAPI) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	return r
}

type registerRequest struct {
	Email       string            `json:"email"`
	Password    string            `json:"password"`
	DisplayName string            `json:"displayName"`
	Role        model.AccountRole `json:"role"`
}

// Register creates an account. Owners see their pairing secret once here;
// afterwards it is available from GET /api/pairing/secret.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	account, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Role:        req.Role,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]any{"account": account}
	if account.PairingSecret != nil {
		resp["pairingSecret"] = *account.PairingSecret
	}
	writeJSON(w, http.StatusCreated, resp)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	token, account, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":   token,
		"account": account,
	})
}

// Me returns the caller's account and paired counterpart.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	view, err := h.accounts.Me(r.Context(), *identity)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}
