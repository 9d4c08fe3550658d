package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/JavierChicano/inversiones-app/src/config"
	"github.com/JavierChicano/inversiones-app/src/database"
	"github.com/JavierChicano/inversiones-app/src/models"
)

// fetchUserTransactions loads a user's full transaction ledger, oldest first.
func fetchUserTransactions(userID string) ([]models.Transaction, error) {
	rows, err := database.DB.Query(`
		SELECT id, user_id, asset_ticker, type, quantity, price_per_unit, fees, date, COALESCE(notes, ''), created_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY date ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying transactions for user %s: %w", userID, err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Ticker, &tx.Side, &tx.Quantity, &tx.PricePerUnit, &tx.Fees, &tx.Date, &tx.Notes, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning transaction for user %s: %w", userID, err)
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

// fetchAssets loads the whole asset master table.
func fetchAssets() ([]models.Asset, error) {
	rows, err := database.DB.Query(`
		SELECT ticker, type, COALESCE(name, ''), COALESCE(current_price, 0), last_updated
		FROM assets`)
	if err != nil {
		return nil, fmt.Errorf("querying assets: %w", err)
	}
	defer rows.Close()

	var assets []models.Asset
	for rows.Next() {
		var asset models.Asset
		var lastUpdated sql.NullTime
		if err := rows.Scan(&asset.Ticker, &asset.Type, &asset.Name, &asset.CurrentPrice, &lastUpdated); err != nil {
			return nil, fmt.Errorf("scanning asset: %w", err)
		}
		if lastUpdated.Valid {
			asset.LastUpdated = lastUpdated.Time
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

// priceMapFromAssets builds the ticker -> current USD price map the engine
// consumes. Tickers without a stored price simply stay absent (valued at 0).
func priceMapFromAssets(assets []models.Asset) map[string]float64 {
	prices := make(map[string]float64, len(assets))
	for _, asset := range assets {
		if asset.CurrentPrice > 0 {
			prices[asset.Ticker] = asset.CurrentPrice
		}
	}
	return prices
}

// eurUsdRateFromAssets picks the EUR/USD rate off the EURUSD asset row,
// falling back to the configured default when the row is absent or stale-zero.
func eurUsdRateFromAssets(assets []models.Asset, fallback float64) float64 {
	for _, asset := range assets {
		if asset.Ticker == models.EurUsdTicker && asset.CurrentPrice > 0 {
			return asset.CurrentPrice
		}
	}
	return fallback
}

// upsertAsset creates the asset row on first sight of a ticker; an existing
// row keeps its price but may learn a name or type.
func upsertAsset(ticker, assetType, name string) error {
	_, err := database.DB.Exec(`
		INSERT INTO assets (ticker, type, name, current_price)
		VALUES (?, ?, ?, 0)
		ON CONFLICT(ticker) DO UPDATE SET
			type = excluded.type,
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE assets.name END`,
		ticker, assetType, name)
	return err
}

// updateAssetPrice stores a fresh quote.
func updateAssetPrice(ticker, name string, price float64) error {
	_, err := database.DB.Exec(`
		UPDATE assets
		SET current_price = ?, last_updated = ?, name = CASE WHEN ? != '' THEN ? ELSE name END
		WHERE ticker = ?`,
		price, time.Now(), name, name, ticker)
	return err
}

// listAllUserIDs returns every registered user id, for the snapshot cron.
func listAllUserIDs() ([]string, error) {
	rows, err := database.DB.Query(`SELECT id FROM users`)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// deleteOrphanAssets removes asset rows no transaction or watchlist entry
// references. The EURUSD row is always kept for display conversion.
func deleteOrphanAssets() ([]string, error) {
	rows, err := database.DB.Query(`
		SELECT ticker FROM assets
		WHERE ticker != ?
		  AND ticker NOT IN (SELECT DISTINCT asset_ticker FROM transactions)
		  AND ticker NOT IN (SELECT DISTINCT asset_ticker FROM watchlist_items)`,
		models.EurUsdTicker)
	if err != nil {
		return nil, fmt.Errorf("querying orphan assets: %w", err)
	}
	defer rows.Close()

	var orphans []string
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			return nil, err
		}
		orphans = append(orphans, ticker)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, ticker := range orphans {
		if _, err := database.DB.Exec(`DELETE FROM assets WHERE ticker = ?`, ticker); err != nil {
			return orphans, fmt.Errorf("deleting orphan asset %s: %w", ticker, err)
		}
	}
	return orphans, nil
}

// insertSnapshot stores one portfolio snapshot row.
func insertSnapshot(snapshot models.PortfolioSnapshot) error {
	_, err := database.DB.Exec(`
		INSERT INTO portfolio_snapshots (user_id, date, total_invested, total_value)
		VALUES (?, ?, ?, ?)`,
		snapshot.UserID, snapshot.Date, snapshot.TotalInvested, snapshot.TotalValue)
	return err
}

// fetchSnapshots returns a user's snapshots in chronological order.
func fetchSnapshots(userID string, limit int) ([]models.PortfolioSnapshot, error) {
	rows, err := database.DB.Query(`
		SELECT id, user_id, date, total_invested, total_value
		FROM portfolio_snapshots
		WHERE user_id = ?
		ORDER BY date ASC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots for user %s: %w", userID, err)
	}
	defer rows.Close()

	var snapshots []models.PortfolioSnapshot
	for rows.Next() {
		var snap models.PortfolioSnapshot
		if err := rows.Scan(&snap.ID, &snap.UserID, &snap.Date, &snap.TotalInvested, &snap.TotalValue); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// assetTypeByTicker looks a single asset row up; sql.ErrNoRows passes through.
func assetTypeByTicker(ticker string) (string, error) {
	var assetType string
	err := database.DB.QueryRow(`SELECT type FROM assets WHERE ticker = ?`, ticker).Scan(&assetType)
	if err == sql.ErrNoRows {
		return "", err
	}
	return assetType, err
}

// ListAssets exposes the asset master table to handlers.
func ListAssets() ([]models.Asset, error) {
	return fetchAssets()
}

// GetAsset fetches one asset row by ticker.
func GetAsset(ticker string) (*models.Asset, error) {
	assets, err := fetchAssets()
	if err != nil {
		return nil, err
	}
	for i := range assets {
		if assets[i].Ticker == ticker {
			return &assets[i], nil
		}
	}
	return nil, fmt.Errorf("asset %s not found", ticker)
}

// CurrentEurUsdRate returns the stored EUR/USD quote, or the configured
// fallback when none is stored yet.
func CurrentEurUsdRate() (float64, error) {
	assets, err := fetchAssets()
	if err != nil {
		return 0, err
	}
	return eurUsdRateFromAssets(assets, config.Cfg.FallbackEurUsdRate), nil
}

// ListUserTickers collects the tickers a user holds or watches, always
// including the EUR/USD pair so rate-dependent figures stay fresh.
func ListUserTickers(userID string) ([]string, error) {
	rows, err := database.DB.Query(`
		SELECT asset_ticker FROM transactions WHERE user_id = ?
		UNION
		SELECT asset_ticker FROM watchlist_items WHERE user_id = ?`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying tickers for user %s: %w", userID, err)
	}
	defer rows.Close()

	tickers := []string{}
	seenEurUsd := false
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			return nil, fmt.Errorf("scanning ticker: %w", err)
		}
		if ticker == models.EurUsdTicker {
			seenEurUsd = true
		}
		tickers = append(tickers, ticker)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !seenEurUsd {
		tickers = append(tickers, models.EurUsdTicker)
	}
	return tickers, nil
}
