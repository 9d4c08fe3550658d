package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/JavierChicano/inversiones-app/src/logger"
	"github.com/JavierChicano/inversiones-app/src/models"
	"github.com/JavierChicano/inversiones-app/src/services"
	"github.com/JavierChicano/inversiones-app/src/utils"
)

type CurrencyHandler struct {
	currencyService *services.CurrencyService
}

func NewCurrencyHandler(currencyService *services.CurrencyService) *CurrencyHandler {
	return &CurrencyHandler{currencyService: currencyService}
}

// HandleList returns the user's conversions enriched with profit figures
// at the current EUR/USD rate, plus an aggregate summary.
func (h *CurrencyHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	exchanges, err := services.ListExchanges(userID)
	if err != nil {
		logger.L.Error("failed to list currency exchanges", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to list currency exchanges", http.StatusInternalServerError)
		return
	}

	rate, err := services.CurrentEurUsdRate()
	if err != nil {
		logger.L.Error("failed to read current EUR/USD rate", "error", err)
		utils.SendJSONError(w, "Failed to read exchange rate", http.StatusInternalServerError)
		return
	}

	enriched := make([]services.EnrichedExchange, 0, len(exchanges))
	for _, ex := range exchanges {
		enriched = append(enriched, h.currencyService.Enrich(ex, rate))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"exchanges":    enriched,
		"summary":      h.currencyService.Summarize(exchanges, rate),
		"exchangeRate": map[string]float64{"eurUsd": rate},
	})
}

func (h *CurrencyHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	var payload struct {
		FromCurrency string  `json:"fromCurrency"`
		ToCurrency   string  `json:"toCurrency"`
		Amount       float64 `json:"amount"`
		ExchangeRate float64 `json:"exchangeRate"`
		Date         string  `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	validPair := (payload.FromCurrency == "EUR" && payload.ToCurrency == "USD") ||
		(payload.FromCurrency == "USD" && payload.ToCurrency == "EUR")
	if !validPair {
		utils.SendJSONError(w, "Only EUR/USD conversions are supported", http.StatusBadRequest)
		return
	}
	if payload.Amount <= 0 || payload.ExchangeRate <= 0 {
		utils.SendJSONError(w, "Amount and exchange rate must be positive", http.StatusBadRequest)
		return
	}

	date, err := time.Parse("2006-01-02", payload.Date)
	if err != nil {
		if date, err = time.Parse(time.RFC3339, payload.Date); err != nil {
			utils.SendJSONError(w, "Date must be RFC3339 or YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	exchange := &models.CurrencyExchange{
		UserID:       userID,
		FromCurrency: payload.FromCurrency,
		ToCurrency:   payload.ToCurrency,
		Amount:       payload.Amount,
		ExchangeRate: payload.ExchangeRate,
		Date:         date,
	}
	if err := services.CreateExchange(exchange); err != nil {
		logger.L.Error("failed to create currency exchange", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to create currency exchange", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(exchange)
}

func (h *CurrencyHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid exchange id", http.StatusBadRequest)
		return
	}

	if err := services.DeleteExchange(userID, id); err != nil {
		if errors.Is(err, services.ErrExchangeNotFound) {
			utils.SendJSONError(w, "Currency exchange not found", http.StatusNotFound)
			return
		}
		logger.L.Error("failed to delete currency exchange", "userID", userID, "id", id, "error", err)
		utils.SendJSONError(w, "Failed to delete currency exchange", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
