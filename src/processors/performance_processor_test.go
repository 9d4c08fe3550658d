package processors

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/JavierChicano/inversiones-app/src/models"
)

var testBase = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func onDay(n int) time.Time {
	return testBase.AddDate(0, 0, n)
}

func tx(ticker, side string, quantity, price, fees float64, day int) models.Transaction {
	return models.Transaction{
		Ticker:       ticker,
		Side:         side,
		AssetType:    models.AssetTypeStock,
		Quantity:     quantity,
		PricePerUnit: price,
		Fees:         fees,
		Date:         onDay(day),
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func compute(txs []models.Transaction, prices map[string]float64) PortfolioSummary {
	p := NewPerformanceProcessor()
	return p.ComputeAt(txs, prices, 1.10, onDay(60))
}

func TestComputeEmptyLedger(t *testing.T) {
	summary := compute(nil, nil)
	if len(summary.Instruments) != 0 || len(summary.Progression) != 0 || len(summary.OpenPositions) != 0 {
		t.Fatalf("empty ledger should produce empty summary, got %+v", summary)
	}
	if summary.ROI != 0 || summary.WinRate != 0 {
		t.Fatalf("empty ledger ratios should be 0, got roi=%v winRate=%v", summary.ROI, summary.WinRate)
	}
}

func TestSingleRoundTrip(t *testing.T) {
	// BUY 10 @ $100 (fee $5) on day 0; SELL 10 @ $150 (fee $5) on day 30.
	summary := compute([]models.Transaction{
		tx("AAPL", models.SideBuy, 10, 100, 5, 0),
		tx("AAPL", models.SideSell, 10, 150, 5, 30),
	}, nil)

	if len(summary.Instruments) != 1 {
		t.Fatalf("expected 1 closed position, got %d", len(summary.Instruments))
	}
	pos := summary.Instruments[0]
	if !almostEqual(pos.TotalGainLoss, 490) {
		t.Errorf("gainLoss = %v, want 490", pos.TotalGainLoss)
	}
	if !almostEqual(pos.TotalInvested, 1005) {
		t.Errorf("totalInvested = %v, want 1005", pos.TotalInvested)
	}
	if !almostEqual(pos.TotalProceeds, 1495) {
		t.Errorf("proceeds = %v, want 1495", pos.TotalProceeds)
	}
	if pos.AvgHoldingDays != 30 {
		t.Errorf("avgHoldingDays = %d, want 30", pos.AvgHoldingDays)
	}
	if pos.WinningTrades != 1 || pos.LosingTrades != 0 {
		t.Errorf("win/loss = %d/%d, want 1/0", pos.WinningTrades, pos.LosingTrades)
	}
	if !almostEqual(pos.WinRate, 100) {
		t.Errorf("winRate = %v, want 100", pos.WinRate)
	}
}

func TestPartialFIFOConsumption(t *testing.T) {
	// BUY 5 @ $10 day 0, BUY 5 @ $20 day 1, SELL 7 @ $30 day 2 (no fees).
	// FIFO consumes all of lot 1 (cost 50) plus 2 of lot 2 (cost 40).
	summary := compute([]models.Transaction{
		tx("BTC", models.SideBuy, 5, 10, 0, 0),
		tx("BTC", models.SideBuy, 5, 20, 0, 1),
		tx("BTC", models.SideSell, 7, 30, 0, 2),
	}, nil)

	pos := summary.Instruments[0]
	if !almostEqual(pos.TotalGainLoss, 120) {
		t.Errorf("gainLoss = %v, want 120", pos.TotalGainLoss)
	}
	if !almostEqual(pos.TotalProceeds, 210) {
		t.Errorf("proceeds = %v, want 210", pos.TotalProceeds)
	}
	// Weighted holding days: 5*2 + 2*1 = 12; floor(12/7) = 1.
	if pos.AvgHoldingDays != 1 {
		t.Errorf("avgHoldingDays = %d, want 1", pos.AvgHoldingDays)
	}

	// The remaining 3 units of lot 2 stay open at cost 60.
	if len(summary.OpenPositions) != 1 {
		t.Fatalf("expected 1 open position, got %d", len(summary.OpenPositions))
	}
	open := summary.OpenPositions[0]
	if !almostEqual(open.Quantity, 3) {
		t.Errorf("open quantity = %v, want 3", open.Quantity)
	}
	if !almostEqual(open.CostBasis, 60) {
		t.Errorf("open costBasis = %v, want 60", open.CostBasis)
	}
}

func TestFIFOConsumesOldestLotsFirst(t *testing.T) {
	// Buys at increasing prices; a sell must be costed against the
	// earliest (cheapest) lots, never the most recent.
	summary := compute([]models.Transaction{
		tx("ETH", models.SideBuy, 1, 100, 0, 0),
		tx("ETH", models.SideBuy, 1, 200, 0, 1),
		tx("ETH", models.SideBuy, 1, 300, 0, 2),
		tx("ETH", models.SideSell, 2, 400, 0, 3),
	}, nil)

	pos := summary.Instruments[0]
	// Cost basis = 100 + 200, not 200 + 300.
	want := 800.0 - 300.0
	if !almostEqual(pos.TotalGainLoss, want) {
		t.Errorf("gainLoss = %v, want %v (oldest lots first)", pos.TotalGainLoss, want)
	}
}

func TestConservationOnFullyClosedPosition(t *testing.T) {
	buys := []models.Transaction{
		tx("TTWO", models.SideBuy, 3, 41.5, 1.25, 0),
		tx("TTWO", models.SideBuy, 7, 55.75, 2.5, 5),
		tx("TTWO", models.SideBuy, 2, 60, 0.75, 9),
	}
	sells := []models.Transaction{
		tx("TTWO", models.SideSell, 4, 70, 1, 20),
		tx("TTWO", models.SideSell, 8, 72, 1, 25),
	}
	summary := compute(append(buys, sells...), nil)

	var wantCost float64
	for _, b := range buys {
		wantCost += b.Quantity*b.PricePerUnit + b.Fees
	}
	pos := summary.Instruments[0]
	gotCost := pos.TotalProceeds - pos.TotalGainLoss
	if math.Abs(gotCost-wantCost) > 1e-9 {
		t.Errorf("matched cost basis = %v, want %v (conservation)", gotCost, wantCost)
	}
	if len(summary.OpenPositions) != 0 {
		t.Errorf("fully closed position should leave no open lots, got %+v", summary.OpenPositions)
	}
}

func TestOversellWithoutLots(t *testing.T) {
	// SELL with no prior BUYs: nothing matches, nothing is invented.
	summary := compute([]models.Transaction{
		tx("GME", models.SideSell, 5, 10, 0, 0),
	}, nil)

	pos := summary.Instruments[0]
	if !almostEqual(pos.OversellQuantity, 5) {
		t.Errorf("oversellQuantity = %v, want 5", pos.OversellQuantity)
	}
	if !almostEqual(pos.TotalGainLoss, 0) {
		t.Errorf("gainLoss = %v, want 0 for fully unmatched sale", pos.TotalGainLoss)
	}
	if pos.ROI != 0 {
		t.Errorf("roi = %v, want 0 with zero invested (never NaN)", pos.ROI)
	}
	if math.IsNaN(summary.ROI) || math.IsInf(summary.ROI, 0) {
		t.Errorf("global roi = %v, want finite 0", summary.ROI)
	}
}

func TestOversellPartialMatchScalesProceeds(t *testing.T) {
	// BUY 3, SELL 5: 3 units match, revenue is scaled to 3/5 of the sale.
	summary := compute([]models.Transaction{
		tx("SOL", models.SideBuy, 3, 10, 0, 0),
		tx("SOL", models.SideSell, 5, 20, 0, 10),
	}, nil)

	pos := summary.Instruments[0]
	if !almostEqual(pos.OversellQuantity, 2) {
		t.Errorf("oversellQuantity = %v, want 2", pos.OversellQuantity)
	}
	// Matched proceeds: (5*20) * 3/5 = 60; cost: 30.
	if !almostEqual(pos.TotalProceeds, 60) {
		t.Errorf("proceeds = %v, want 60", pos.TotalProceeds)
	}
	if !almostEqual(pos.TotalGainLoss, 30) {
		t.Errorf("gainLoss = %v, want 30", pos.TotalGainLoss)
	}
}

func TestMultiInstrumentProgression(t *testing.T) {
	summary := compute([]models.Transaction{
		tx("AAPL", models.SideBuy, 1, 100, 0, 0),
		tx("BTC", models.SideBuy, 1, 50, 0, 1),
		tx("AAPL", models.SideSell, 1, 150, 0, 10),
		tx("BTC", models.SideSell, 1, 90, 0, 20),
	}, nil)

	if len(summary.Progression) != 2 {
		t.Fatalf("expected 2 progression points, got %d", len(summary.Progression))
	}
	first, second := summary.Progression[0], summary.Progression[1]
	if !first.Date.Before(second.Date) {
		t.Errorf("progression not in timestamp order: %v then %v", first.Date, second.Date)
	}
	if first.Ticker != "AAPL" || second.Ticker != "BTC" {
		t.Errorf("progression tickers = %s, %s; want AAPL, BTC", first.Ticker, second.Ticker)
	}
	if !almostEqual(first.CumulativeGain, 50) {
		t.Errorf("first cumulativeGain = %v, want 50", first.CumulativeGain)
	}
	if !almostEqual(second.CumulativeGain, 90) {
		t.Errorf("second cumulativeGain = %v, want 90", second.CumulativeGain)
	}
	if second.CumulativeGain <= first.CumulativeGain {
		t.Errorf("running sum should strictly increase for two profitable sales")
	}
}

func TestUnsortedInputIsNormalized(t *testing.T) {
	// Same ledger as TestPartialFIFOConsumption, delivered out of order.
	summary := compute([]models.Transaction{
		tx("BTC", models.SideSell, 7, 30, 0, 2),
		tx("BTC", models.SideBuy, 5, 20, 0, 1),
		tx("BTC", models.SideBuy, 5, 10, 0, 0),
	}, nil)

	pos := summary.Instruments[0]
	if !almostEqual(pos.TotalGainLoss, 120) {
		t.Errorf("gainLoss = %v, want 120 after normalization", pos.TotalGainLoss)
	}
	if !almostEqual(pos.OversellQuantity, 0) {
		t.Errorf("oversellQuantity = %v, want 0; sells must replay after earlier buys", pos.OversellQuantity)
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	txs := []models.Transaction{
		tx("AAPL", models.SideBuy, 10, 100, 5, 0),
		tx("AAPL", models.SideSell, 4, 120, 1, 10),
		tx("BTC", models.SideBuy, 2, 40000, 10, 3),
		tx("BTC", models.SideSell, 1, 45000, 10, 30),
	}
	prices := map[string]float64{"AAPL": 130, "BTC": 47000}

	first := compute(txs, prices)
	second := compute(txs, prices)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same inputs must yield identical summaries\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestMalformedTransactionPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for transaction with empty ticker")
		}
	}()
	bad := models.Transaction{Side: models.SideBuy, Quantity: 1, PricePerUnit: 1, Date: onDay(0)}
	compute([]models.Transaction{bad}, nil)
}
