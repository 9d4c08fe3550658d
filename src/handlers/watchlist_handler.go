package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/JavierChicano/inversiones-app/src/logger"
	"github.com/JavierChicano/inversiones-app/src/security/validation"
	"github.com/JavierChicano/inversiones-app/src/services"
	"github.com/JavierChicano/inversiones-app/src/utils"
)

type WatchlistHandler struct {
	watchlistService *services.WatchlistService
}

func NewWatchlistHandler(watchlistService *services.WatchlistService) *WatchlistHandler {
	return &WatchlistHandler{watchlistService: watchlistService}
}

func (h *WatchlistHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	entries, err := h.watchlistService.List(userID)
	if err != nil {
		logger.L.Error("failed to list watchlist", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to list watchlist", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

func (h *WatchlistHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	var payload struct {
		Ticker    string `json:"ticker"`
		AssetType string `json:"assetType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ticker := validation.NormalizeTicker(payload.Ticker)
	if ticker == "" {
		utils.SendJSONError(w, "Invalid ticker", http.StatusBadRequest)
		return
	}

	item, err := h.watchlistService.Add(userID, ticker, payload.AssetType)
	if err != nil {
		logger.L.Warn("failed to add watchlist item", "userID", userID, "ticker", ticker, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(item)
}

func (h *WatchlistHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid watchlist item id", http.StatusBadRequest)
		return
	}

	if err := h.watchlistService.Remove(userID, id); err != nil {
		if errors.Is(err, services.ErrWatchlistItemNotFound) {
			utils.SendJSONError(w, "Watchlist item not found", http.StatusNotFound)
			return
		}
		logger.L.Error("failed to remove watchlist item", "userID", userID, "id", id, "error", err)
		utils.SendJSONError(w, "Failed to remove watchlist item", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
