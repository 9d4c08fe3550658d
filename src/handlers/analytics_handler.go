package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/JavierChicano/inversiones-app/src/logger"
	"github.com/JavierChicano/inversiones-app/src/services"
	"github.com/JavierChicano/inversiones-app/src/utils"
)

type AnalyticsHandler struct {
	portfolioService services.PortfolioService
}

func NewAnalyticsHandler(portfolioService services.PortfolioService) *AnalyticsHandler {
	return &AnalyticsHandler{portfolioService: portfolioService}
}

// HandleGetClosedPositions serves the realized-performance report with
// ETag support so unchanged reports cost the client nothing.
func (h *AnalyticsHandler) HandleGetClosedPositions(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	report, err := h.portfolioService.GetClosedPositions(userID)
	if err != nil {
		logger.L.Error("failed to compute closed positions", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to compute closed positions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-cache, private")
	if etag, err := utils.GenerateETag(report); err == nil && etag != "" {
		quotedETag := fmt.Sprintf("%q", etag)
		w.Header().Set("ETag", quotedETag)
		for _, clientETag := range strings.Split(r.Header.Get("If-None-Match"), ",") {
			if strings.TrimSpace(clientETag) == quotedETag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		logger.L.Error("failed to encode closed positions response", "userID", userID, "error", err)
	}
}
