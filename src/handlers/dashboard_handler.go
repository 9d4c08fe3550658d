package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/JavierChicano/inversiones-app/src/logger"
	"github.com/JavierChicano/inversiones-app/src/services"
	"github.com/JavierChicano/inversiones-app/src/utils"
)

type DashboardHandler struct {
	portfolioService services.PortfolioService
}

func NewDashboardHandler(portfolioService services.PortfolioService) *DashboardHandler {
	return &DashboardHandler{portfolioService: portfolioService}
}

func (h *DashboardHandler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	stats, err := h.portfolioService.GetDashboardStats(userID)
	if err != nil {
		logger.L.Error("failed to compute dashboard stats", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to compute dashboard stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		logger.L.Error("failed to encode dashboard response", "userID", userID, "error", err)
	}
}
