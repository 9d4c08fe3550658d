package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/JavierChicano/inversiones-app/src/database"
	"github.com/JavierChicano/inversiones-app/src/models"
)

var ErrWatchlistItemNotFound = errors.New("watchlist item not found")

// WatchlistService manages the tickers a user follows. Added tickers are
// registered in the asset table so the price refresher quotes them.
type WatchlistService struct{}

func NewWatchlistService() *WatchlistService {
	return &WatchlistService{}
}

// WatchlistEntry is a watchlist row joined with its asset's latest quote.
type WatchlistEntry struct {
	models.WatchlistItem
	Name         string  `json:"name"`
	AssetType    string  `json:"assetType"`
	CurrentPrice float64 `json:"currentPrice"`
}

func (s *WatchlistService) List(userID string) ([]WatchlistEntry, error) {
	rows, err := database.DB.Query(`
		SELECT w.id, w.user_id, w.asset_ticker, w.created_at,
		       COALESCE(a.name, ''), COALESCE(a.type, ''), COALESCE(a.current_price, 0)
		FROM watchlist_items w
		LEFT JOIN assets a ON a.ticker = w.asset_ticker
		WHERE w.user_id = ?
		ORDER BY w.created_at ASC, w.id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying watchlist for user %s: %w", userID, err)
	}
	defer rows.Close()

	entries := make([]WatchlistEntry, 0)
	for rows.Next() {
		var entry WatchlistEntry
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Ticker, &entry.CreatedAt,
			&entry.Name, &entry.AssetType, &entry.CurrentPrice); err != nil {
			return nil, fmt.Errorf("scanning watchlist entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *WatchlistService) Add(userID, ticker, assetType string) (*models.WatchlistItem, error) {
	if err := upsertAsset(ticker, assetType, ""); err != nil {
		return nil, fmt.Errorf("registering asset %s: %w", ticker, err)
	}

	var existingID int64
	err := database.DB.QueryRow(`
		SELECT id FROM watchlist_items WHERE user_id = ? AND asset_ticker = ?`,
		userID, ticker).Scan(&existingID)
	if err == nil {
		return nil, fmt.Errorf("ticker %s already on watchlist", ticker)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("checking watchlist for %s: %w", ticker, err)
	}

	result, err := database.DB.Exec(`
		INSERT INTO watchlist_items (user_id, asset_ticker) VALUES (?, ?)`,
		userID, ticker)
	if err != nil {
		return nil, fmt.Errorf("inserting watchlist item: %w", err)
	}

	item := &models.WatchlistItem{UserID: userID, Ticker: ticker}
	item.ID, _ = result.LastInsertId()
	return item, nil
}

func (s *WatchlistService) Remove(userID string, id int64) error {
	result, err := database.DB.Exec(`
		DELETE FROM watchlist_items WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting watchlist item %d: %w", id, err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrWatchlistItemNotFound
	}
	return nil
}
