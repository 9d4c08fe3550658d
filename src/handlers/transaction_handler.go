package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/JavierChicano/inversiones-app/src/logger"
	"github.com/JavierChicano/inversiones-app/src/models"
	"github.com/JavierChicano/inversiones-app/src/security/validation"
	"github.com/JavierChicano/inversiones-app/src/services"
	"github.com/JavierChicano/inversiones-app/src/utils"
)

type TransactionHandler struct {
	transactionService *services.TransactionService
}

func NewTransactionHandler(transactionService *services.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// transactionPayload is the request body for creates and updates.
type transactionPayload struct {
	Ticker       string  `json:"ticker"`
	Side         string  `json:"side"`
	AssetType    string  `json:"assetType"`
	Quantity     float64 `json:"quantity"`
	PricePerUnit float64 `json:"pricePerUnit"`
	Fees         float64 `json:"fees"`
	Date         string  `json:"date"`
	Notes        string  `json:"notes"`
}

func (p transactionPayload) toTransaction(userID string) (*models.Transaction, error) {
	date, err := time.Parse(time.RFC3339, p.Date)
	if err != nil {
		// Date-only input is accepted too.
		date, err = time.Parse("2006-01-02", p.Date)
		if err != nil {
			return nil, errors.New("date must be RFC3339 or YYYY-MM-DD")
		}
	}
	ticker := validation.NormalizeTicker(p.Ticker)
	tx, err := models.NewTransaction(userID, ticker, p.Side, p.AssetType, p.Quantity, p.PricePerUnit, p.Fees, date, validation.StripUnprintable(p.Notes))
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (h *TransactionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	query := r.URL.Query()
	filter := services.TransactionFilter{
		Ticker: validation.NormalizeTicker(query.Get("ticker")),
		Side:   query.Get("side"),
	}
	if v := query.Get("startDate"); v != "" {
		if parsed, err := time.Parse("2006-01-02", v); err == nil {
			filter.StartDate = parsed
		}
	}
	if v := query.Get("endDate"); v != "" {
		if parsed, err := time.Parse("2006-01-02", v); err == nil {
			// Inclusive through the end of the day.
			filter.EndDate = parsed.Add(24*time.Hour - time.Nanosecond)
		}
	}
	if v := query.Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			filter.Limit = parsed
		}
	}
	if v := query.Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			filter.Offset = parsed
		}
	}

	transactions, err := h.transactionService.List(userID, filter)
	if err != nil {
		logger.L.Error("failed to list transactions", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(transactions)
}

func (h *TransactionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	var payload transactionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tx, err := payload.toTransaction(userID)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.transactionService.Create(tx); err != nil {
		logger.L.Error("failed to create transaction", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to create transaction", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(tx)
}

func (h *TransactionHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid transaction id", http.StatusBadRequest)
		return
	}

	var payload transactionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tx, err := payload.toTransaction(userID)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	tx.ID = id

	if err := h.transactionService.Update(userID, tx); err != nil {
		if errors.Is(err, services.ErrTransactionNotFound) {
			utils.SendJSONError(w, "Transaction not found", http.StatusNotFound)
			return
		}
		logger.L.Error("failed to update transaction", "userID", userID, "id", id, "error", err)
		utils.SendJSONError(w, "Failed to update transaction", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tx)
}

func (h *TransactionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid transaction id", http.StatusBadRequest)
		return
	}

	if err := h.transactionService.Delete(userID, id); err != nil {
		if errors.Is(err, services.ErrTransactionNotFound) {
			utils.SendJSONError(w, "Transaction not found", http.StatusNotFound)
			return
		}
		logger.L.Error("failed to delete transaction", "userID", userID, "id", id, "error", err)
		utils.SendJSONError(w, "Failed to delete transaction", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
