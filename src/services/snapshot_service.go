package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/JavierChicano/inversiones-app/src/config"
	"github.com/JavierChicano/inversiones-app/src/logger"
	"github.com/JavierChicano/inversiones-app/src/models"
	"github.com/JavierChicano/inversiones-app/src/processors"
)

// SnapshotService runs the scheduled maintenance passes: refreshing stored
// quotes, sanitizing orphan assets and recording one portfolio snapshot
// per user per run.
type SnapshotService struct {
	marketData MarketDataService
	portfolio  PortfolioService
	processor  *processors.PerformanceProcessor
}

func NewSnapshotService(marketData MarketDataService, portfolio PortfolioService) *SnapshotService {
	return &SnapshotService{
		marketData: marketData,
		portfolio:  portfolio,
		processor:  processors.NewPerformanceProcessor(),
	}
}

// SnapshotRunReport summarizes one cron pass.
type SnapshotRunReport struct {
	PricesUpdated  int      `json:"pricesUpdated"`
	PricesFailed   []string `json:"pricesFailed,omitempty"`
	AssetsRemoved  []string `json:"assetsRemoved,omitempty"`
	SnapshotsSaved int      `json:"snapshotsSaved"`
	UsersFailed    []string `json:"usersFailed,omitempty"`
}

// RefreshAllPrices re-quotes every stored asset, stalest quote first, so a
// run cut short by provider limits still freshens the oldest data.
func (s *SnapshotService) RefreshAllPrices(ctx context.Context) (RefreshResult, error) {
	assets, err := fetchAssets()
	if err != nil {
		return RefreshResult{}, fmt.Errorf("loading assets for refresh: %w", err)
	}
	sort.SliceStable(assets, func(i, j int) bool {
		return assets[i].LastUpdated.Before(assets[j].LastUpdated)
	})
	tickers := make([]string, 0, len(assets))
	for _, asset := range assets {
		tickers = append(tickers, asset.Ticker)
	}
	return s.marketData.RefreshTickers(ctx, tickers), nil
}

// Run executes the full daily pass: sanitize, refresh, snapshot.
func (s *SnapshotService) Run(ctx context.Context) (*SnapshotRunReport, error) {
	report := &SnapshotRunReport{}

	removed, err := deleteOrphanAssets()
	if err != nil {
		logger.L.Error("orphan asset sanitization failed", "error", err)
	} else {
		report.AssetsRemoved = removed
	}

	refresh, err := s.RefreshAllPrices(ctx)
	if err != nil {
		return nil, err
	}
	report.PricesUpdated = refresh.Updated
	report.PricesFailed = refresh.Failed

	assets, err := fetchAssets()
	if err != nil {
		return nil, fmt.Errorf("loading assets for snapshots: %w", err)
	}
	prices := priceMapFromAssets(assets)
	rate := eurUsdRateFromAssets(assets, config.Cfg.FallbackEurUsdRate)

	userIDs, err := listAllUserIDs()
	if err != nil {
		return nil, fmt.Errorf("listing users for snapshots: %w", err)
	}

	now := time.Now().UTC()
	for _, userID := range userIDs {
		saved, err := s.snapshotUser(userID, prices, rate, now)
		if err != nil {
			logger.L.Error("snapshot failed", "userID", userID, "error", err)
			report.UsersFailed = append(report.UsersFailed, userID)
			continue
		}
		if saved {
			s.portfolio.InvalidateUserCache(userID)
			report.SnapshotsSaved++
		}
	}

	logger.L.Info("snapshot run finished",
		"pricesUpdated", report.PricesUpdated,
		"assetsRemoved", len(report.AssetsRemoved),
		"snapshotsSaved", report.SnapshotsSaved,
		"usersFailed", len(report.UsersFailed))
	return report, nil
}

// snapshotUser records the engine's open-lot valuation for one user. Users
// with an empty ledger are skipped.
func (s *SnapshotService) snapshotUser(userID string, prices map[string]float64, rate float64, asOf time.Time) (bool, error) {
	transactions, err := fetchUserTransactions(userID)
	if err != nil {
		return false, err
	}
	if len(transactions) == 0 {
		return false, nil
	}

	summary := s.processor.ComputeAt(transactions, prices, rate, asOf)
	err = insertSnapshot(models.PortfolioSnapshot{
		UserID:        userID,
		Date:          asOf,
		TotalInvested: summary.CurrentInvested,
		TotalValue:    summary.PortfolioValue,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
