package services

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/JavierChicano/inversiones-app/src/config"
	"github.com/JavierChicano/inversiones-app/src/logger"
	"github.com/JavierChicano/inversiones-app/src/processors"
	"github.com/JavierChicano/inversiones-app/src/utils"
)

const (
	closedPositionsCacheDuration = 15 * time.Minute
	dashboardCacheDuration       = 15 * time.Minute
	snapshotHistoryLimit         = 365
)

type portfolioService struct {
	processor *processors.PerformanceProcessor
	cache     *cache.Cache
}

// NewPortfolioService builds the report service backing the analytics and
// dashboard endpoints.
func NewPortfolioService(c *cache.Cache) PortfolioService {
	return &portfolioService{
		processor: processors.NewPerformanceProcessor(),
		cache:     c,
	}
}

func closedPositionsCacheKey(userID string) string {
	return fmt.Sprintf("ckClosedPositions_%s", userID)
}

func dashboardCacheKey(userID string) string {
	return fmt.Sprintf("ckDashboard_%s", userID)
}

func (s *portfolioService) InvalidateUserCache(userID string) {
	s.cache.Delete(closedPositionsCacheKey(userID))
	s.cache.Delete(dashboardCacheKey(userID))
	logger.L.Debug("portfolio cache invalidated", "userID", userID)
}

// computeSummary runs one engine pass over the user's full ledger priced
// with the latest stored quotes.
func (s *portfolioService) computeSummary(userID string) (*processors.PortfolioSummary, error) {
	transactions, err := fetchUserTransactions(userID)
	if err != nil {
		return nil, fmt.Errorf("fetching transactions for user %s: %w", userID, err)
	}
	assets, err := fetchAssets()
	if err != nil {
		return nil, fmt.Errorf("fetching assets: %w", err)
	}
	prices := priceMapFromAssets(assets)
	rate := eurUsdRateFromAssets(assets, config.Cfg.FallbackEurUsdRate)
	summary := s.processor.Compute(transactions, prices, rate)
	return &summary, nil
}

func (s *portfolioService) GetClosedPositions(userID string) (*ClosedPositionsReport, error) {
	key := closedPositionsCacheKey(userID)
	if cached, found := s.cache.Get(key); found {
		if report, ok := cached.(*ClosedPositionsReport); ok {
			return report, nil
		}
	}

	summary, err := s.computeSummary(userID)
	if err != nil {
		return nil, err
	}

	report := &ClosedPositionsReport{
		ClosedPositions: summary.Instruments,
		Progression:     summary.Progression,
		Metrics: ClosedPositionsMetrics{
			TotalTrades:        summary.TotalTrades,
			TotalGainLoss:      utils.RoundFloat(summary.TotalGainLoss, 2),
			TotalInvested:      utils.RoundFloat(summary.TotalInvested, 2),
			GlobalROI:          utils.RoundFloat(summary.ROI, 2),
			AvgGainPerTrade:    utils.RoundFloat(summary.AvgGainPerTrade, 2),
			WinRate:            utils.RoundFloat(summary.WinRate, 2),
			WinningTrades:      summary.WinningTrades,
			LosingTrades:       summary.LosingTrades,
			TotalTickers:       len(summary.Instruments),
			TotalGainLossEur:   utils.RoundFloat(UsdToEur(summary.TotalGainLoss, summary.EurUsdRate), 2),
			AvgGainPerTradeEur: utils.RoundFloat(UsdToEur(summary.AvgGainPerTrade, summary.EurUsdRate), 2),
		},
		ExchangeRate: ExchangeRateInfo{EurUsd: summary.EurUsdRate},
	}

	s.cache.Set(key, report, closedPositionsCacheDuration)
	return report, nil
}

func (s *portfolioService) GetDashboardStats(userID string) (*DashboardStats, error) {
	key := dashboardCacheKey(userID)
	if cached, found := s.cache.Get(key); found {
		if stats, ok := cached.(*DashboardStats); ok {
			return stats, nil
		}
	}

	summary, err := s.computeSummary(userID)
	if err != nil {
		return nil, err
	}

	snapshots, err := fetchSnapshots(userID, snapshotHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("fetching snapshots for user %s: %w", userID, err)
	}
	progression := make([]SnapshotPoint, 0, len(snapshots))
	for _, snap := range snapshots {
		progression = append(progression, SnapshotPoint{
			Date:     snap.Date,
			Value:    snap.TotalValue,
			Invested: snap.TotalInvested,
			NetGain:  utils.RoundFloat(snap.TotalValue-snap.TotalInvested, 2),
		})
	}
	if len(progression) == 0 {
		// No snapshots yet, chart starts from today's live valuation.
		progression = append(progression, SnapshotPoint{
			Date:     time.Now().UTC(),
			Value:    summary.PortfolioValue,
			Invested: summary.CurrentInvested,
			NetGain:  utils.RoundFloat(summary.PortfolioValue-summary.CurrentInvested, 2),
		})
	}

	rate := summary.EurUsdRate
	netTotal := summary.PortfolioValue - summary.CurrentInvested + summary.TotalGainLoss
	stats := &DashboardStats{
		Stats: DashboardNumbers{
			NetTotal:        currencyPair(netTotal, rate),
			Invested:        currencyPair(summary.CurrentInvested, rate),
			PortfolioTotal:  currencyPair(summary.PortfolioValue, rate),
			ROI:             utils.RoundFloat(summary.ROI, 2),
			WinRate:         utils.RoundFloat(summary.WinRate, 2),
			ClosedPositions: summary.TotalTrades,
		},
		StockDistribution: summary.OpenPositions,
		Progression:       progression,
		ExchangeRate:      ExchangeRateInfo{EurUsd: rate},
	}

	s.cache.Set(key, stats, dashboardCacheDuration)
	return stats, nil
}

func currencyPair(usd, eurUsdRate float64) CurrencyPair {
	return CurrencyPair{
		USD: utils.RoundFloat(usd, 2),
		EUR: utils.RoundFloat(UsdToEur(usd, eurUsdRate), 2),
	}
}

// UsdToEur converts a USD amount using the EUR/USD quote. A non-positive
// rate yields 0 rather than a division blowup.
func UsdToEur(usd, eurUsdRate float64) float64 {
	if eurUsdRate <= 0 {
		return 0
	}
	return usd / eurUsdRate
}
