package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/JavierChicano/inversiones-app/src/logger"
	"github.com/JavierChicano/inversiones-app/src/security/validation"
	"github.com/JavierChicano/inversiones-app/src/services"
	"github.com/JavierChicano/inversiones-app/src/utils"
)

type AssetHandler struct {
	marketDataService services.MarketDataService
	portfolioService  services.PortfolioService
}

func NewAssetHandler(marketDataService services.MarketDataService, portfolioService services.PortfolioService) *AssetHandler {
	return &AssetHandler{
		marketDataService: marketDataService,
		portfolioService:  portfolioService,
	}
}

func (h *AssetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	assets, err := services.ListAssets()
	if err != nil {
		logger.L.Error("failed to list assets", "error", err)
		utils.SendJSONError(w, "Failed to list assets", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(assets)
}

func (h *AssetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ticker := validation.NormalizeTicker(r.PathValue("ticker"))
	if ticker == "" {
		utils.SendJSONError(w, "Invalid ticker", http.StatusBadRequest)
		return
	}

	asset, err := services.GetAsset(ticker)
	if err != nil {
		utils.SendJSONError(w, "Asset not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(asset)
}

// HandleRefresh re-quotes the tickers the authenticated user holds or
// watches and invalidates their cached reports.
func (h *AssetHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	tickers, err := services.ListUserTickers(userID)
	if err != nil {
		logger.L.Error("failed to list user tickers for refresh", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to refresh assets", http.StatusInternalServerError)
		return
	}

	result := h.marketDataService.RefreshTickers(r.Context(), tickers)
	h.portfolioService.InvalidateUserCache(userID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
