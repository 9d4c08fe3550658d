package services

import (
	"context"
	"time"

	"github.com/JavierChicano/inversiones-app/src/processors"
)

// CurrencyPair carries one USD figure together with its EUR display value.
type CurrencyPair struct {
	USD float64 `json:"usd"`
	EUR float64 `json:"eur"`
}

// ExchangeRateInfo echoes the EUR/USD rate a report was computed with.
type ExchangeRateInfo struct {
	EurUsd float64 `json:"eurUsd"`
}

// ClosedPositionsReport is the payload of the closed-positions analytics
// endpoint: per-instrument rows, the cumulative-gain series and global
// realized metrics.
type ClosedPositionsReport struct {
	ClosedPositions []processors.InstrumentSummary `json:"closedPositions"`
	Progression     []processors.ProgressionPoint  `json:"progression"`
	Metrics         ClosedPositionsMetrics         `json:"metrics"`
	ExchangeRate    ExchangeRateInfo               `json:"exchangeRate"`
}

type ClosedPositionsMetrics struct {
	TotalTrades        int     `json:"totalTrades"`
	TotalGainLoss      float64 `json:"totalGainLoss"`
	TotalInvested      float64 `json:"totalInvested"`
	GlobalROI          float64 `json:"globalROI"`
	AvgGainPerTrade    float64 `json:"avgGainPerTrade"`
	WinRate            float64 `json:"winRate"`
	WinningTrades      int     `json:"winningTrades"`
	LosingTrades       int     `json:"losingTrades"`
	TotalTickers       int     `json:"totalTickers"`
	TotalGainLossEur   float64 `json:"totalGainLossEur"`
	AvgGainPerTradeEur float64 `json:"avgGainPerTradeEur"`
}

// DashboardStats is the payload of the dashboard endpoint.
type DashboardStats struct {
	Stats             DashboardNumbers          `json:"stats"`
	StockDistribution []processors.OpenPosition `json:"stockDistribution"`
	Progression       []SnapshotPoint           `json:"progression"`
	ExchangeRate      ExchangeRateInfo          `json:"exchangeRate"`
}

type DashboardNumbers struct {
	NetTotal        CurrencyPair `json:"netTotal"`
	Invested        CurrencyPair `json:"invested"`
	PortfolioTotal  CurrencyPair `json:"portfolioTotal"`
	ROI             float64      `json:"roi"`
	WinRate         float64      `json:"winRate"`
	ClosedPositions int          `json:"closedPositions"`
}

// SnapshotPoint is one step of the dashboard progression chart.
type SnapshotPoint struct {
	Date     time.Time `json:"date"`
	Value    float64   `json:"value"`
	Invested float64   `json:"invested"`
	NetGain  float64   `json:"netGain"`
}

// PortfolioService exposes the performance reports the API serves. All
// figures ultimately come from one engine pass per call.
type PortfolioService interface {
	GetClosedPositions(userID string) (*ClosedPositionsReport, error)
	GetDashboardStats(userID string) (*DashboardStats, error)
	InvalidateUserCache(userID string)
}

// Quote is one fresh price observation from an external provider.
type Quote struct {
	Name  string
	Price float64
}

// MarketDataService fetches current quotes for the asset refresher.
type MarketDataService interface {
	FetchQuote(ctx context.Context, ticker, assetType string) (Quote, error)
	RefreshTickers(ctx context.Context, tickers []string) RefreshResult
}

// RefreshResult summarizes one refresh pass.
type RefreshResult struct {
	Updated int      `json:"updated"`
	Failed  []string `json:"failed,omitempty"`
}
