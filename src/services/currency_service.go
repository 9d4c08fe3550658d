package services

import (
	"github.com/JavierChicano/inversiones-app/src/models"
	"github.com/JavierChicano/inversiones-app/src/utils"
)

// EnrichedExchange is a stored EUR/USD conversion annotated with what it
// would be worth at the current rate.
type EnrichedExchange struct {
	models.CurrencyExchange
	ConvertedAmount float64 `json:"convertedAmount"`
	CurrentValue    float64 `json:"currentValue"`
	ProfitLoss      float64 `json:"profitLoss"`
	ProfitLossPct   float64 `json:"profitLossPct"`
	BreakEvenRate   float64 `json:"breakEvenRate"`
	TargetRate5Pct  float64 `json:"targetRate5Pct"`
	TargetRate10Pct float64 `json:"targetRate10Pct"`
}

// ExchangeSummary aggregates a user's EUR/USD conversions.
type ExchangeSummary struct {
	TotalExchanged  float64 `json:"totalExchanged"`
	TotalConverted  float64 `json:"totalConverted"`
	TotalProfitLoss float64 `json:"totalProfitLoss"`
	AvgExchangeRate float64 `json:"avgExchangeRate"`
	ExchangeCount   int     `json:"exchangeCount"`
}

// CurrencyService computes profit and loss on currency conversions. The
// arithmetic is pure so it is trivially testable.
type CurrencyService struct{}

func NewCurrencyService() *CurrencyService {
	return &CurrencyService{}
}

// ConvertedAmount returns how much of the target currency an exchange
// produced. An EUR to USD exchange of E at rate R yields E*R dollars; the
// reverse yields U/R euros.
func (s *CurrencyService) ConvertedAmount(ex models.CurrencyExchange) float64 {
	if ex.ExchangeRate <= 0 {
		return 0
	}
	if ex.FromCurrency == "EUR" {
		return ex.Amount * ex.ExchangeRate
	}
	return ex.Amount / ex.ExchangeRate
}

// CalculateProfitLoss values the converted amount at the current EUR/USD
// rate in the source currency and returns the gain over the original
// amount, plus its percentage.
func (s *CurrencyService) CalculateProfitLoss(ex models.CurrencyExchange, currentRate float64) (gain, pct float64) {
	if ex.ExchangeRate <= 0 || currentRate <= 0 {
		return 0, 0
	}
	converted := s.ConvertedAmount(ex)
	var currentValue float64
	if ex.FromCurrency == "EUR" {
		currentValue = converted / currentRate
	} else {
		currentValue = converted * currentRate
	}
	gain = currentValue - ex.Amount
	if ex.Amount > 0 {
		pct = gain / ex.Amount * 100
	}
	return gain, pct
}

// CalculateTargetRate returns the EUR/USD rate at which an exchange would
// show the given fractional gain. gainFraction 0 is the break-even rate.
func (s *CurrencyService) CalculateTargetRate(ex models.CurrencyExchange, gainFraction float64) float64 {
	if ex.ExchangeRate <= 0 {
		return 0
	}
	target := 1 + gainFraction
	if target <= 0 {
		return 0
	}
	if ex.FromCurrency == "EUR" {
		// currentValue = amount*rate/current, so gain hits the target
		// when current = rate/target.
		return ex.ExchangeRate / target
	}
	return ex.ExchangeRate * target
}

// Enrich annotates an exchange with derived figures at the current rate.
func (s *CurrencyService) Enrich(ex models.CurrencyExchange, currentRate float64) EnrichedExchange {
	gain, pct := s.CalculateProfitLoss(ex, currentRate)
	return EnrichedExchange{
		CurrencyExchange: ex,
		ConvertedAmount:  utils.RoundFloat(s.ConvertedAmount(ex), 2),
		CurrentValue:     utils.RoundFloat(ex.Amount+gain, 2),
		ProfitLoss:       utils.RoundFloat(gain, 2),
		ProfitLossPct:    utils.RoundFloat(pct, 2),
		BreakEvenRate:    utils.RoundFloat(s.CalculateTargetRate(ex, 0), 4),
		TargetRate5Pct:   utils.RoundFloat(s.CalculateTargetRate(ex, 0.05), 4),
		TargetRate10Pct:  utils.RoundFloat(s.CalculateTargetRate(ex, 0.10), 4),
	}
}

// Summarize aggregates totals across a user's exchanges.
func (s *CurrencyService) Summarize(exchanges []models.CurrencyExchange, currentRate float64) ExchangeSummary {
	var summary ExchangeSummary
	var rateSum float64
	for _, ex := range exchanges {
		gain, _ := s.CalculateProfitLoss(ex, currentRate)
		summary.TotalExchanged += ex.Amount
		summary.TotalConverted += s.ConvertedAmount(ex)
		summary.TotalProfitLoss += gain
		rateSum += ex.ExchangeRate
		summary.ExchangeCount++
	}
	if summary.ExchangeCount > 0 {
		summary.AvgExchangeRate = rateSum / float64(summary.ExchangeCount)
	}
	summary.TotalExchanged = utils.RoundFloat(summary.TotalExchanged, 2)
	summary.TotalConverted = utils.RoundFloat(summary.TotalConverted, 2)
	summary.TotalProfitLoss = utils.RoundFloat(summary.TotalProfitLoss, 2)
	summary.AvgExchangeRate = utils.RoundFloat(summary.AvgExchangeRate, 4)
	return summary
}
