package processors

import (
	"fmt"
	"sort"
	"time"

	"github.com/JavierChicano/inversiones-app/src/models"
)

// millisPerDay is the divisor for holding-period day counts. Elapsed
// milliseconds are floor-divided, so a sale 29.9 days after the buy counts
// as 29 days.
const millisPerDay = 86_400_000

// Lot is a discrete quantity acquired by one BUY and not yet fully sold.
// The lot's fee is amortized proportionally as slices of it are consumed.
type Lot struct {
	RemainingQuantity float64   `json:"remainingQuantity"`
	UnitCost          float64   `json:"unitCost"`
	OriginalQuantity  float64   `json:"originalQuantity"`
	FeesTotal         float64   `json:"feesTotal"`
	Timestamp         time.Time `json:"timestamp"`
}

// costBasis is the remaining cost of the lot: the unsold quantity at its
// unit cost plus the still-unamortized share of the purchase fee.
func (l Lot) costBasis() float64 {
	if l.OriginalQuantity == 0 {
		return 0
	}
	return l.RemainingQuantity*l.UnitCost + l.FeesTotal*(l.RemainingQuantity/l.OriginalQuantity)
}

// MatchedSale is the realized result of one SELL transaction, matched
// FIFO against the open lots available at that point in the ledger.
// OversellQuantity > 0 flags a sale that exceeded the open quantity; the
// figures then cover only the matched fraction.
type MatchedSale struct {
	Ticker              string    `json:"ticker"`
	Timestamp           time.Time `json:"date"`
	QuantitySold        float64   `json:"quantitySold"`
	MatchedQuantity     float64   `json:"matchedQuantity"`
	Proceeds            float64   `json:"proceeds"`
	CostBasis           float64   `json:"costBasis"`
	GainLoss            float64   `json:"gainLoss"`
	WeightedHoldingDays float64   `json:"weightedHoldingDays"`
	OversellQuantity    float64   `json:"oversellQuantity,omitempty"`
}

// InstrumentSummary aggregates the matched sales of one instrument.
type InstrumentSummary struct {
	Ticker           string  `json:"ticker"`
	AssetType        string  `json:"type"`
	TotalGainLoss    float64 `json:"totalGainLoss"`
	TotalTrades      int     `json:"totalTrades"`
	BuyCount         int     `json:"buyCount"`
	WinningTrades    int     `json:"winningTrades"`
	LosingTrades     int     `json:"losingTrades"`
	WinRate          float64 `json:"winRate"`
	AvgGainPerTrade  float64 `json:"avgGainPerTrade"`
	ROI              float64 `json:"roi"`
	TotalInvested    float64 `json:"totalInvested"`
	TotalProceeds    float64 `json:"totalRevenue"`
	AvgHoldingDays   int64   `json:"avgHoldingDays"`
	OversellQuantity float64 `json:"oversellQuantity,omitempty"`
}

// ProgressionPoint is one step of the chronological cumulative-gain series,
// emitted once per SELL across all instruments.
type ProgressionPoint struct {
	Date           time.Time `json:"date"`
	Ticker         string    `json:"ticker"`
	GainLoss       float64   `json:"gainLoss"`
	CumulativeGain float64   `json:"cumulativeGain"`
}

// OpenPosition values the lots still open after the full replay.
type OpenPosition struct {
	Ticker          string    `json:"ticker"`
	AssetType       string    `json:"type"`
	Quantity        float64   `json:"quantity"`
	CostBasis       float64   `json:"costBasis"`
	AvgBuyPrice     float64   `json:"avgBuyPrice"`
	CurrentPrice    float64   `json:"currentPrice"`
	CurrentValue    float64   `json:"currentValue"`
	GainLoss        float64   `json:"gainLoss"`
	GainLossPercent float64   `json:"gainLossPercent"`
	Percentage      float64   `json:"percentage"`
	FirstBuyDate    time.Time `json:"firstBuyDate"`
	HoldingDays     int64     `json:"holdingDays"`
}

// PortfolioSummary is the full result of one computation. All currency
// figures are USD; display conversion to EUR is the caller's concern, using
// the EurUsdRate echoed here.
type PortfolioSummary struct {
	Instruments     []InstrumentSummary `json:"closedPositions"`
	Progression     []ProgressionPoint  `json:"progression"`
	OpenPositions   []OpenPosition      `json:"openPositions"`
	TotalGainLoss   float64             `json:"totalGainLoss"`
	TotalTrades     int                 `json:"totalTrades"`
	WinningTrades   int                 `json:"winningTrades"`
	LosingTrades    int                 `json:"losingTrades"`
	WinRate         float64             `json:"winRate"`
	AvgGainPerTrade float64             `json:"avgGainPerTrade"`
	ROI             float64             `json:"globalROI"`
	TotalInvested   float64             `json:"totalInvested"`
	CurrentInvested float64             `json:"currentInvested"`
	PortfolioValue  float64             `json:"portfolioValue"`
	EurUsdRate      float64             `json:"eurUsdRate"`
}

// PerformanceProcessor replays a user's transaction ledger and derives
// realized and unrealized performance. It holds no state: every call
// recomputes from the full transaction list, so concurrent calls for
// different users need no coordination.
type PerformanceProcessor struct{}

func NewPerformanceProcessor() *PerformanceProcessor {
	return &PerformanceProcessor{}
}

// Compute runs the full pipeline against the current wall clock.
func (p *PerformanceProcessor) Compute(transactions []models.Transaction, currentPrices map[string]float64, eurUsdRate float64) PortfolioSummary {
	return p.ComputeAt(transactions, currentPrices, eurUsdRate, time.Now().UTC())
}

// ComputeAt is Compute with an explicit valuation instant for open-position
// holding periods. Same inputs always produce the same summary.
func (p *PerformanceProcessor) ComputeAt(transactions []models.Transaction, currentPrices map[string]float64, eurUsdRate float64, asOf time.Time) PortfolioSummary {
	ledger := normalizeLedger(transactions)

	tickers := make([]string, 0, len(ledger))
	for ticker := range ledger {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	replays := make(map[string]instrumentReplay, len(ledger))
	for _, ticker := range tickers {
		replays[ticker] = replayInstrument(ticker, ledger[ticker])
	}

	return aggregate(tickers, replays, currentPrices, eurUsdRate, asOf)
}

// normalizeLedger sorts the raw transaction list chronologically (stable, so
// same-timestamp entries keep insertion order) and groups it by ticker.
// Empty input yields an empty map.
func normalizeLedger(transactions []models.Transaction) map[string][]models.Transaction {
	sorted := make([]models.Transaction, len(transactions))
	copy(sorted, transactions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	grouped := make(map[string][]models.Transaction)
	for _, tx := range sorted {
		mustWellFormed(tx)
		grouped[tx.Ticker] = append(grouped[tx.Ticker], tx)
	}
	return grouped
}

// mustWellFormed panics on transactions that bypassed models.NewTransaction.
// Such a record is a programming error upstream, not a data condition the
// engine degrades on.
func mustWellFormed(tx models.Transaction) {
	if tx.Ticker == "" {
		panic("processors: transaction with empty ticker reached the engine")
	}
	if tx.Side != models.SideBuy && tx.Side != models.SideSell {
		panic(fmt.Sprintf("processors: transaction with unknown side %q reached the engine", tx.Side))
	}
	if tx.Quantity <= 0 || tx.PricePerUnit <= 0 {
		panic(fmt.Sprintf("processors: non-positive quantity or price for ticker %s reached the engine", tx.Ticker))
	}
}

// instrumentReplay holds everything one instrument's pass produced.
type instrumentReplay struct {
	AssetType     string
	Sales         []MatchedSale
	OpenLots      []Lot
	BuyCount      int
	TotalInvested float64
}

// replayInstrument walks one instrument's chronological transactions,
// maintaining the FIFO lot queue: BUYs append at the tail, SELLs consume
// from the head. Each SELL emits exactly one MatchedSale.
func replayInstrument(ticker string, transactions []models.Transaction) instrumentReplay {
	replay := instrumentReplay{}

	for _, tx := range transactions {
		if replay.AssetType == "" && tx.AssetType != "" {
			replay.AssetType = tx.AssetType
		}

		if tx.Side == models.SideBuy {
			replay.OpenLots = append(replay.OpenLots, Lot{
				RemainingQuantity: tx.Quantity,
				UnitCost:          tx.PricePerUnit,
				OriginalQuantity:  tx.Quantity,
				FeesTotal:         tx.Fees,
				Timestamp:         tx.Date,
			})
			replay.BuyCount++
			replay.TotalInvested += tx.Quantity*tx.PricePerUnit + tx.Fees
			continue
		}

		sellRevenue := tx.Quantity*tx.PricePerUnit - tx.Fees
		remaining := tx.Quantity
		costAccumulated := 0.0
		weightedHoldingDays := 0.0

		for remaining > 0 && len(replay.OpenLots) > 0 {
			lot := &replay.OpenLots[0]
			use := remaining
			if lot.RemainingQuantity < use {
				use = lot.RemainingQuantity
			}

			portionCost := use*lot.UnitCost + lot.FeesTotal*(use/lot.OriginalQuantity)
			days := holdingDays(lot.Timestamp, tx.Date)

			costAccumulated += portionCost
			weightedHoldingDays += float64(days) * use

			lot.RemainingQuantity -= use
			if lot.RemainingQuantity <= 0 {
				replay.OpenLots = replay.OpenLots[1:]
			}
			remaining -= use
		}

		matched := tx.Quantity - remaining
		proceeds := sellRevenue
		if remaining > 0 {
			// Oversell: only the matched fraction of the revenue is
			// realized; the remainder is flagged, never booked as
			// zero-cost profit.
			proceeds = sellRevenue * (matched / tx.Quantity)
		}

		replay.Sales = append(replay.Sales, MatchedSale{
			Ticker:              ticker,
			Timestamp:           tx.Date,
			QuantitySold:        tx.Quantity,
			MatchedQuantity:     matched,
			Proceeds:            proceeds,
			CostBasis:           costAccumulated,
			GainLoss:            proceeds - costAccumulated,
			WeightedHoldingDays: weightedHoldingDays,
			OversellQuantity:    remaining,
		})
	}

	return replay
}

// holdingDays is the whole number of days between acquisition and sale,
// via integer floor division of elapsed milliseconds.
func holdingDays(buy, sell time.Time) int64 {
	return sell.Sub(buy).Milliseconds() / millisPerDay
}

// safeRatio guards every derived ratio: a zero denominator resolves to 0,
// never NaN or infinity.
func safeRatio(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}
