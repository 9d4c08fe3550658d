package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JavierChicano/inversiones-app/src/database"
	"github.com/JavierChicano/inversiones-app/src/logger"
	"github.com/JavierChicano/inversiones-app/src/models"
)

var ErrTransactionNotFound = errors.New("transaction not found")

// TransactionFilter narrows a ledger listing. Zero values mean "no filter".
type TransactionFilter struct {
	Ticker    string
	Side      string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
	Offset    int
}

// TransactionService owns ledger mutations. Every write registers the
// traded asset and invalidates the user's cached reports.
type TransactionService struct {
	portfolio PortfolioService
}

func NewTransactionService(portfolio PortfolioService) *TransactionService {
	return &TransactionService{portfolio: portfolio}
}

// List returns a user's transactions, newest first, honoring the filter.
func (s *TransactionService) List(userID string, filter TransactionFilter) ([]models.Transaction, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, user_id, asset_ticker, type, quantity, price_per_unit, fees, date, COALESCE(notes, ''), created_at
		FROM transactions
		WHERE user_id = ?`)
	args := []interface{}{userID}

	if filter.Ticker != "" {
		sb.WriteString(" AND asset_ticker = ?")
		args = append(args, filter.Ticker)
	}
	if filter.Side != "" {
		sb.WriteString(" AND type = ?")
		args = append(args, filter.Side)
	}
	if !filter.StartDate.IsZero() {
		sb.WriteString(" AND date >= ?")
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		sb.WriteString(" AND date <= ?")
		args = append(args, filter.EndDate)
	}
	sb.WriteString(" ORDER BY date DESC, id DESC")
	if filter.Limit > 0 {
		sb.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := database.DB.Query(sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying transactions for user %s: %w", userID, err)
	}
	defer rows.Close()

	transactions := make([]models.Transaction, 0)
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Ticker, &tx.Side, &tx.Quantity, &tx.PricePerUnit, &tx.Fees, &tx.Date, &tx.Notes, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

// Create validates and stores a new transaction, registering the asset on
// first sight.
func (s *TransactionService) Create(tx *models.Transaction) error {
	if err := upsertAsset(tx.Ticker, tx.AssetType, ""); err != nil {
		return fmt.Errorf("registering asset %s: %w", tx.Ticker, err)
	}

	result, err := database.DB.Exec(`
		INSERT INTO transactions (user_id, asset_ticker, type, quantity, price_per_unit, fees, date, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.UserID, tx.Ticker, tx.Side, tx.Quantity, tx.PricePerUnit, tx.Fees, tx.Date, tx.Notes)
	if err != nil {
		return fmt.Errorf("inserting transaction: %w", err)
	}
	tx.ID, _ = result.LastInsertId()

	s.portfolio.InvalidateUserCache(tx.UserID)
	logger.L.Info("transaction created", "userID", tx.UserID, "ticker", tx.Ticker, "side", tx.Side, "id", tx.ID)
	return nil
}

// Update rewrites a transaction the user owns.
func (s *TransactionService) Update(userID string, tx *models.Transaction) error {
	result, err := database.DB.Exec(`
		UPDATE transactions
		SET asset_ticker = ?, type = ?, quantity = ?, price_per_unit = ?, fees = ?, date = ?, notes = ?
		WHERE id = ? AND user_id = ?`,
		tx.Ticker, tx.Side, tx.Quantity, tx.PricePerUnit, tx.Fees, tx.Date, tx.Notes, tx.ID, userID)
	if err != nil {
		return fmt.Errorf("updating transaction %d: %w", tx.ID, err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrTransactionNotFound
	}

	if err := upsertAsset(tx.Ticker, tx.AssetType, ""); err != nil {
		logger.L.Warn("failed to register asset after update", "ticker", tx.Ticker, "error", err)
	}
	s.portfolio.InvalidateUserCache(userID)
	return nil
}

// Delete removes a transaction the user owns.
func (s *TransactionService) Delete(userID string, id int64) error {
	result, err := database.DB.Exec(`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting transaction %d: %w", id, err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrTransactionNotFound
	}
	s.portfolio.InvalidateUserCache(userID)
	logger.L.Info("transaction deleted", "userID", userID, "id", id)
	return nil
}

// GetByID fetches one transaction the user owns.
func (s *TransactionService) GetByID(userID string, id int64) (*models.Transaction, error) {
	var tx models.Transaction
	err := database.DB.QueryRow(`
		SELECT id, user_id, asset_ticker, type, quantity, price_per_unit, fees, date, COALESCE(notes, ''), created_at
		FROM transactions
		WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&tx.ID, &tx.UserID, &tx.Ticker, &tx.Side, &tx.Quantity, &tx.PricePerUnit, &tx.Fees, &tx.Date, &tx.Notes, &tx.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching transaction %d: %w", id, err)
	}
	return &tx, nil
}
