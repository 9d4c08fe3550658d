package models

import (
	"errors"
	"fmt"
	"time"
)

// Transaction sides.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Asset types tracked by the price refresher.
const (
	AssetTypeStock  = "STOCK"
	AssetTypeCrypto = "CRYPTO"
	AssetTypeFiat   = "FIAT" // currency pairs such as EURUSD
)

// EurUsdTicker is the asset row used for USD->EUR display conversion.
// It is never deleted by the cron sanitizer.
const EurUsdTicker = "EURUSD"

var (
	ErrInvalidSide    = errors.New("transaction side must be BUY or SELL")
	ErrMissingTicker  = errors.New("transaction ticker is required")
	ErrNonPositiveQty = errors.New("transaction quantity must be positive")
	ErrNonPositivePx  = errors.New("transaction price per unit must be positive")
	ErrNegativeFees   = errors.New("transaction fees must not be negative")
	ErrZeroTimestamp  = errors.New("transaction date is required")
)

// Transaction is one BUY or SELL recorded by a user. Instances built through
// NewTransaction are guaranteed well formed; the performance engine relies on
// that and does not re-validate.
type Transaction struct {
	ID           int64     `json:"id,omitempty"`
	UserID       string    `json:"userId,omitempty"`
	Ticker       string    `json:"ticker"`
	Side         string    `json:"type"` // BUY or SELL
	AssetType    string    `json:"assetType,omitempty"`
	Quantity     float64   `json:"quantity"`
	PricePerUnit float64   `json:"pricePerUnit"`
	Fees         float64   `json:"fees"`
	Date         time.Time `json:"date"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
}

// NewTransaction validates the invariants every stored transaction must hold:
// known side, non-empty ticker, strictly positive quantity and price,
// non-negative fees, non-zero date.
func NewTransaction(userID, ticker, side, assetType string, quantity, pricePerUnit, fees float64, date time.Time, notes string) (Transaction, error) {
	if ticker == "" {
		return Transaction{}, ErrMissingTicker
	}
	if side != SideBuy && side != SideSell {
		return Transaction{}, fmt.Errorf("%w: got %q", ErrInvalidSide, side)
	}
	if quantity <= 0 {
		return Transaction{}, ErrNonPositiveQty
	}
	if pricePerUnit <= 0 {
		return Transaction{}, ErrNonPositivePx
	}
	if fees < 0 {
		return Transaction{}, ErrNegativeFees
	}
	if date.IsZero() {
		return Transaction{}, ErrZeroTimestamp
	}
	if assetType == "" {
		assetType = AssetTypeStock
	}
	return Transaction{
		UserID:       userID,
		Ticker:       ticker,
		Side:         side,
		AssetType:    assetType,
		Quantity:     quantity,
		PricePerUnit: pricePerUnit,
		Fees:         fees,
		Date:         date,
		Notes:        notes,
	}, nil
}

// Asset is the master price row maintained by the cron refresher.
type Asset struct {
	Ticker       string    `json:"ticker"`
	Type         string    `json:"type"`
	Name         string    `json:"name,omitempty"`
	CurrentPrice float64   `json:"currentPrice"`
	LastUpdated  time.Time `json:"lastUpdated,omitempty"`
}

// PortfolioSnapshot is one point of the dashboard progression chart,
// written daily by the cron job.
type PortfolioSnapshot struct {
	ID            int64     `json:"id,omitempty"`
	UserID        string    `json:"userId,omitempty"`
	Date          time.Time `json:"date"`
	TotalInvested float64   `json:"totalInvested"`
	TotalValue    float64   `json:"totalValue"`
}

// WatchlistItem is a ticker a user follows without necessarily holding it.
type WatchlistItem struct {
	ID        int64     `json:"id,omitempty"`
	UserID    string    `json:"userId,omitempty"`
	Ticker    string    `json:"ticker"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// CurrencyExchange records a one-off EUR<->USD conversion the user made.
type CurrencyExchange struct {
	ID           int64     `json:"id,omitempty"`
	UserID       string    `json:"userId,omitempty"`
	FromCurrency string    `json:"fromCurrency"`
	ToCurrency   string    `json:"toCurrency"`
	Amount       float64   `json:"amount"`
	ExchangeRate float64   `json:"exchangeRate"`
	Date         time.Time `json:"date"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
}
