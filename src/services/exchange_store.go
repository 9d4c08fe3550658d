package services

import (
	"errors"
	"fmt"

	"github.com/JavierChicano/inversiones-app/src/database"
	"github.com/JavierChicano/inversiones-app/src/models"
)

var ErrExchangeNotFound = errors.New("currency exchange not found")

// ListExchanges returns a user's stored EUR/USD conversions, newest first.
func ListExchanges(userID string) ([]models.CurrencyExchange, error) {
	rows, err := database.DB.Query(`
		SELECT id, user_id, from_currency, to_currency, amount, exchange_rate, date, created_at
		FROM currency_exchanges
		WHERE user_id = ?
		ORDER BY date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying currency exchanges for user %s: %w", userID, err)
	}
	defer rows.Close()

	exchanges := make([]models.CurrencyExchange, 0)
	for rows.Next() {
		var ex models.CurrencyExchange
		if err := rows.Scan(&ex.ID, &ex.UserID, &ex.FromCurrency, &ex.ToCurrency, &ex.Amount, &ex.ExchangeRate, &ex.Date, &ex.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning currency exchange: %w", err)
		}
		exchanges = append(exchanges, ex)
	}
	return exchanges, rows.Err()
}

// CreateExchange stores a new conversion record.
func CreateExchange(ex *models.CurrencyExchange) error {
	result, err := database.DB.Exec(`
		INSERT INTO currency_exchanges (user_id, from_currency, to_currency, amount, exchange_rate, date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ex.UserID, ex.FromCurrency, ex.ToCurrency, ex.Amount, ex.ExchangeRate, ex.Date)
	if err != nil {
		return fmt.Errorf("inserting currency exchange: %w", err)
	}
	ex.ID, _ = result.LastInsertId()
	return nil
}

// DeleteExchange removes a conversion the user owns.
func DeleteExchange(userID string, id int64) error {
	result, err := database.DB.Exec(`
		DELETE FROM currency_exchanges WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting currency exchange %d: %w", id, err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrExchangeNotFound
	}
	return nil
}
