package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/autoreply/internal/api/response"
	"github.com/kiranshivaraju/autoreply/internal/store"
	"github.com/kiranshivaraju/autoreply/pkg/models"
)

// NewCreateAccountHandler returns an http.HandlerFunc for POST /api/v1/accounts.
// The access token is stored but never echoed back.
func NewCreateAccountHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Handle      string `json:"handle"`
			AccessToken string `json:"access_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		handle := strings.TrimPrefix(strings.TrimSpace(req.Handle), "@")
		if handle == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "handle is required", nil)
			return
		}
		if strings.TrimSpace(req.AccessToken) == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "access_token is required", nil)
			return
		}

		now := time.Now().UTC()
		account := &models.Account{
			ID:          uuid.New(),
			Handle:      handle,
			Credentials: models.Credentials{AccessToken: strings.TrimSpace(req.AccessToken)},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := st.CreateAccount(r.Context(), account); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				response.Error(w, http.StatusConflict, "ACCOUNT_EXISTS",
					"An account with this handle is already connected", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to create account", nil)
			return
		}

		response.Created(w, account)
	}
}
