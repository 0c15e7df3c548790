package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/cliprelay/relay-server-go/internal/errors"
	"github.com/cliprelay/relay-server-go/internal/middleware"
	"github.com/cliprelay/relay-server-go/internal/model"
)

type PairingHandler struct {
	pairing PairingAPI
	limiter PairingLimiter
}

func NewPairingHandler(pairing PairingAPI, limiter PairingLimiter) *PairingHandler {
	return &PairingHandler{pairing: pairing, limiter: limiter}
}

func (h *PairingHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(model.AccountRoleOwner))
		r.Post("/secret", h.IssueSecret)
		r.Get("/secret", h.FetchSecret)
	})

	r.With(middleware.RequireRole(model.AccountRoleCollaborator)).Post("/validate", h.Validate)

	return r
}

func (h *PairingHandler) IssueSecret(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	secret, err := h.pairing.IssuePairingSecret(r.Context(), identity.AccountID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"secret": secret})
}

func (h *PairingHandler) FetchSecret(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	secret, err := h.pairing.FetchPairingSecret(r.Context(), identity.AccountID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"secret": secret})
}

type validatePairingRequest struct {
	OwnerEmail string `json:"ownerEmail"`
	Secret     string `json:"secret"`
}

func (h *PairingHandler) Validate(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	if h.limiter != nil {
		if d := h.limiter.CheckPairingLimit(r.Context(), identity.AccountID); !d.Allowed {
			log.Warn().Str("accountId", identity.AccountID).Msg("pairing attempts throttled")
			w.Header().Set("Retry-After", strconv.Itoa(middleware.RetryAfterSeconds(d.ResetAt)))
			writeError(w, apperrors.RateLimitExceeded())
			return
		}
	}

	var req validatePairingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	owner, err := h.pairing.ValidatePairing(r.Context(), identity.AccountID, req.OwnerEmail, req.Secret)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"ownerDisplayName": owner.DisplayName,
		"ownerEmail":       owner.Email,
	})
}
