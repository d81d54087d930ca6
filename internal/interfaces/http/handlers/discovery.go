package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// DiscoveryHandler serves the provider metadata and key set
type DiscoveryHandler struct {
	provider IdentityProvider
	logger   *zap.Logger
}

func NewDiscoveryHandler(provider IdentityProvider, logger *zap.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{provider: provider, logger: logger}
}

func (h *DiscoveryHandler) ConfigurationHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.provider.Discovery())
}

func (h *DiscoveryHandler) JWKSHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.provider.JWKS())
}

func (h *DiscoveryHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode discovery response", zap.Error(err))
	}
}
