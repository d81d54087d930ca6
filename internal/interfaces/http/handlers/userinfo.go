package handlers

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/vculp/identity-server/internal/domain"
	httperrors "github.com/vculp/identity-server/internal/interfaces/http/errors"
	"go.uber.org/zap"
)

// UserInfoHandler serves the userinfo endpoint. It runs behind the bearer
// token middleware, which puts the subject and scopes in the context.
type UserInfoHandler struct {
	users  UserReader
	logger *zap.Logger
}

func NewUserInfoHandler(users UserReader, logger *zap.Logger) *UserInfoHandler {
	return &UserInfoHandler{users: users, logger: logger}
}

func (h *UserInfoHandler) UserInfo(w http.ResponseWriter, r *http.Request) {
	userID, ok := domain.GetSubject(r.Context())
	if !ok {
		httperrors.RespondWithError(w, httperrors.ErrCodeAuthentication, "Unauthorized", nil, http.StatusUnauthorized)
		return
	}

	scopes := domain.GetScopes(r.Context())
	if !slices.Contains(scopes, "openid") {
		w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="openid"`)
		httperrors.RespondWithError(w, httperrors.ErrCodeAuthorization, "Token was not issued for the openid scope", nil, http.StatusForbidden)
		return
	}

	user, err := h.users.FindByID(r.Context(), userID)
	if err != nil {
		h.logger.Info("userinfo lookup failed", zap.String("sub", userID.String()), zap.Error(err))
		httperrors.RespondWithDomainError(w, err)
		return
	}

	claims, err := h.users.ListClaims(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list user claims", zap.String("sub", userID.String()), zap.Error(err))
		httperrors.RespondWithDomainError(w, err)
		return
	}

	info := map[string]any{"sub": userID.String()}
	profile := slices.Contains(scopes, "profile")
	if profile {
		info["preferred_username"] = user.UserName
		info["email"] = user.Email
		info["updated_at"] = user.UpdatedAt.Unix()
	}
	for _, c := range claims {
		switch {
		case c.Type == domain.ClaimName && profile:
			info[domain.ClaimName] = c.Value
		case c.Type == domain.ClaimAdminID:
			info[domain.ClaimAdminID] = c.Value
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(info); err != nil {
		h.logger.Error("Failed to encode user info response", zap.Error(err))
	}
}
