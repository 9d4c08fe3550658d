package services

import (
	"math"
	"testing"
	"time"

	"github.com/JavierChicano/inversiones-app/src/models"
)

func exchange(from, to string, amount, rate float64) models.CurrencyExchange {
	return models.CurrencyExchange{
		FromCurrency: from,
		ToCurrency:   to,
		Amount:       amount,
		ExchangeRate: rate,
		Date:         time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestConvertedAmountBothDirections(t *testing.T) {
	svc := NewCurrencyService()

	eurToUsd := exchange("EUR", "USD", 1000, 1.10)
	if got := svc.ConvertedAmount(eurToUsd); !near(got, 1100) {
		t.Errorf("EUR to USD converted = %v, want 1100", got)
	}

	usdToEur := exchange("USD", "EUR", 1100, 1.10)
	if got := svc.ConvertedAmount(usdToEur); !near(got, 1000) {
		t.Errorf("USD to EUR converted = %v, want 1000", got)
	}
}

func TestProfitLossOnRateMove(t *testing.T) {
	svc := NewCurrencyService()

	// Exchanged 1000 EUR at 1.10 (holding 1100 USD). Dollar strengthens
	// to 1.00: the 1100 USD now buys back 1100 EUR, a 100 EUR gain.
	ex := exchange("EUR", "USD", 1000, 1.10)
	gain, pct := svc.CalculateProfitLoss(ex, 1.00)
	if !near(gain, 100) {
		t.Errorf("gain = %v, want 100", gain)
	}
	if !near(pct, 10) {
		t.Errorf("pct = %v, want 10", pct)
	}

	// Same exchange, rate unchanged: flat.
	gain, pct = svc.CalculateProfitLoss(ex, 1.10)
	if !near(gain, 0) || !near(pct, 0) {
		t.Errorf("flat rate should be zero gain, got %v (%v%%)", gain, pct)
	}
}

func TestTargetRates(t *testing.T) {
	svc := NewCurrencyService()
	ex := exchange("EUR", "USD", 1000, 1.10)

	breakEven := svc.CalculateTargetRate(ex, 0)
	if !near(breakEven, 1.10) {
		t.Errorf("break-even rate = %v, want 1.10", breakEven)
	}

	fivePct := svc.CalculateTargetRate(ex, 0.05)
	gain, _ := svc.CalculateProfitLoss(ex, fivePct)
	if !near(gain, 50) {
		t.Errorf("gain at 5%% target rate = %v, want 50", gain)
	}

	tenPct := svc.CalculateTargetRate(ex, 0.10)
	gain, _ = svc.CalculateProfitLoss(ex, tenPct)
	if !near(gain, 100) {
		t.Errorf("gain at 10%% target rate = %v, want 100", gain)
	}
}

func TestZeroRateIsHarmless(t *testing.T) {
	svc := NewCurrencyService()
	ex := exchange("EUR", "USD", 1000, 0)

	if got := svc.ConvertedAmount(ex); got != 0 {
		t.Errorf("converted = %v, want 0", got)
	}
	gain, pct := svc.CalculateProfitLoss(ex, 1.10)
	if gain != 0 || pct != 0 {
		t.Errorf("profit on zero-rate exchange = %v (%v%%), want 0", gain, pct)
	}
	if got := svc.CalculateTargetRate(ex, 0.05); got != 0 {
		t.Errorf("target rate = %v, want 0", got)
	}
}

func TestSummarize(t *testing.T) {
	svc := NewCurrencyService()
	exchanges := []models.CurrencyExchange{
		exchange("EUR", "USD", 1000, 1.10),
		exchange("EUR", "USD", 500, 1.05),
	}

	summary := svc.Summarize(exchanges, 1.00)
	if summary.ExchangeCount != 2 {
		t.Fatalf("count = %d, want 2", summary.ExchangeCount)
	}
	if !near(summary.TotalExchanged, 1500) {
		t.Errorf("total exchanged = %v, want 1500", summary.TotalExchanged)
	}
	if !near(summary.TotalConverted, 1625) {
		t.Errorf("total converted = %v, want 1625", summary.TotalConverted)
	}
	// 100 gain on the first, 25 on the second at rate 1.00.
	if !near(summary.TotalProfitLoss, 125) {
		t.Errorf("total profit = %v, want 125", summary.TotalProfitLoss)
	}
	if !near(summary.AvgExchangeRate, 1.075) {
		t.Errorf("avg rate = %v, want 1.075", summary.AvgExchangeRate)
	}
}

func TestUsdToEurConversionHelper(t *testing.T) {
	if got := UsdToEur(110, 1.10); !near(got, 100) {
		t.Errorf("UsdToEur(110, 1.10) = %v, want 100", got)
	}
	if got := UsdToEur(110, 0); got != 0 {
		t.Errorf("UsdToEur with zero rate = %v, want 0", got)
	}
}
