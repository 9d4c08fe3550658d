package processors

import (
	"math"
	"sort"
	"time"
)

// aggregate rolls the per-instrument replays up into the portfolio summary:
// closed-position rows, the chronological cumulative-gain series, and the
// valuation of lots still open.
func aggregate(tickers []string, replays map[string]instrumentReplay, currentPrices map[string]float64, eurUsdRate float64, asOf time.Time) PortfolioSummary {
	summary := PortfolioSummary{
		Instruments:   []InstrumentSummary{},
		Progression:   []ProgressionPoint{},
		OpenPositions: []OpenPosition{},
		EurUsdRate:    eurUsdRate,
	}

	var allSales []MatchedSale

	for _, ticker := range tickers {
		replay := replays[ticker]
		allSales = append(allSales, replay.Sales...)

		if len(replay.Sales) > 0 {
			summary.Instruments = append(summary.Instruments, summarizeInstrument(ticker, replay))
		}

		if position, ok := valueOpenLots(ticker, replay, currentPrices, asOf); ok {
			summary.OpenPositions = append(summary.OpenPositions, position)
			summary.CurrentInvested += position.CostBasis
			summary.PortfolioValue += position.CurrentValue
		}
	}

	// Tickers were walked in sorted order, so the stable sort keeps ties
	// deterministic.
	sort.SliceStable(allSales, func(i, j int) bool {
		return allSales[i].Timestamp.Before(allSales[j].Timestamp)
	})
	cumulative := 0.0
	for _, sale := range allSales {
		cumulative += sale.GainLoss
		summary.Progression = append(summary.Progression, ProgressionPoint{
			Date:           sale.Timestamp,
			Ticker:         sale.Ticker,
			GainLoss:       sale.GainLoss,
			CumulativeGain: cumulative,
		})
	}

	for _, instrument := range summary.Instruments {
		summary.TotalGainLoss += instrument.TotalGainLoss
		summary.TotalTrades += instrument.TotalTrades
		summary.WinningTrades += instrument.WinningTrades
		summary.LosingTrades += instrument.LosingTrades
		summary.TotalInvested += instrument.TotalInvested
	}
	summary.WinRate = safeRatio(float64(summary.WinningTrades), float64(summary.TotalTrades)) * 100
	summary.AvgGainPerTrade = safeRatio(summary.TotalGainLoss, float64(summary.TotalTrades))
	summary.ROI = safeRatio(summary.TotalGainLoss, summary.TotalInvested) * 100

	sort.SliceStable(summary.Instruments, func(i, j int) bool {
		return summary.Instruments[i].TotalGainLoss > summary.Instruments[j].TotalGainLoss
	})

	for i := range summary.OpenPositions {
		summary.OpenPositions[i].Percentage = safeRatio(summary.OpenPositions[i].CurrentValue, summary.PortfolioValue) * 100
	}
	sort.SliceStable(summary.OpenPositions, func(i, j int) bool {
		return summary.OpenPositions[i].Percentage > summary.OpenPositions[j].Percentage
	})

	return summary
}

// summarizeInstrument folds one instrument's matched sales into its
// closed-position row. Zero-gain sales count as neither winning nor losing,
// and the average holding period is weighted by quantity sold.
func summarizeInstrument(ticker string, replay instrumentReplay) InstrumentSummary {
	instrument := InstrumentSummary{
		Ticker:        ticker,
		AssetType:     replay.AssetType,
		TotalTrades:   len(replay.Sales),
		BuyCount:      replay.BuyCount,
		TotalInvested: replay.TotalInvested,
	}

	var weightedDays, quantitySold float64
	for _, sale := range replay.Sales {
		instrument.TotalGainLoss += sale.GainLoss
		instrument.TotalProceeds += sale.Proceeds
		instrument.OversellQuantity += sale.OversellQuantity
		weightedDays += sale.WeightedHoldingDays
		quantitySold += sale.QuantitySold
		if sale.GainLoss > 0 {
			instrument.WinningTrades++
		} else if sale.GainLoss < 0 {
			instrument.LosingTrades++
		}
	}

	instrument.WinRate = safeRatio(float64(instrument.WinningTrades), float64(instrument.TotalTrades)) * 100
	instrument.AvgGainPerTrade = safeRatio(instrument.TotalGainLoss, float64(instrument.TotalTrades))
	instrument.ROI = safeRatio(instrument.TotalGainLoss, instrument.TotalInvested) * 100
	instrument.AvgHoldingDays = int64(math.Floor(safeRatio(weightedDays, quantitySold)))

	return instrument
}

// valueOpenLots marks the instrument's remaining lots to market. A ticker
// missing from the price map is valued at 0 rather than failing; the caller
// decides whether that deserves a warning.
func valueOpenLots(ticker string, replay instrumentReplay, currentPrices map[string]float64, asOf time.Time) (OpenPosition, bool) {
	var quantity, costBasis float64
	var firstBuy time.Time
	for _, lot := range replay.OpenLots {
		if lot.RemainingQuantity <= 0 {
			continue
		}
		if firstBuy.IsZero() || lot.Timestamp.Before(firstBuy) {
			firstBuy = lot.Timestamp
		}
		quantity += lot.RemainingQuantity
		costBasis += lot.costBasis()
	}
	if quantity <= 0 {
		return OpenPosition{}, false
	}

	currentPrice := currentPrices[ticker]
	currentValue := quantity * currentPrice

	return OpenPosition{
		Ticker:          ticker,
		AssetType:       replay.AssetType,
		Quantity:        quantity,
		CostBasis:       costBasis,
		AvgBuyPrice:     safeRatio(costBasis, quantity),
		CurrentPrice:    currentPrice,
		CurrentValue:    currentValue,
		GainLoss:        currentValue - costBasis,
		GainLossPercent: safeRatio(currentValue-costBasis, costBasis) * 100,
		FirstBuyDate:    firstBuy,
		HoldingDays:     holdingDays(firstBuy, asOf),
	}, true
}
