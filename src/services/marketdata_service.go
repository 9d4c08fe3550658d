package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/JavierChicano/inversiones-app/src/config"
	"github.com/JavierChicano/inversiones-app/src/logger"
	"github.com/JavierChicano/inversiones-app/src/models"
)

const twelveDataBaseURL = "https://api.twelvedata.com"

// cryptoIDMap translates exchange tickers to CoinGecko coin ids.
var cryptoIDMap = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SOL":   "solana",
	"ADA":   "cardano",
	"DOT":   "polkadot",
	"DOGE":  "dogecoin",
	"XRP":   "ripple",
	"LTC":   "litecoin",
	"LINK":  "chainlink",
	"MATIC": "matic-network",
	"AVAX":  "avalanche-2",
}

type marketDataService struct {
	client *http.Client
}

// NewMarketDataService builds the quote fetcher used by the asset
// refresher and the snapshot cron.
func NewMarketDataService() MarketDataService {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("failed to create cookie jar for market data client", "error", err)
	}
	return &marketDataService{
		client: &http.Client{
			Jar:     jar,
			Timeout: 20 * time.Second,
		},
	}
}

type twelveDataPriceResponse struct {
	Price   string `json:"price"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// fetchStockQuote asks TwelveData for the latest price. FIAT pairs use the
// slash symbol format, EURUSD becomes EUR/USD.
func (s *marketDataService) fetchStockQuote(ctx context.Context, ticker, assetType string) (Quote, error) {
	symbol := ticker
	if assetType == models.AssetTypeFiat && len(ticker) == 6 {
		symbol = ticker[:3] + "/" + ticker[3:]
	}

	endpoint := fmt.Sprintf("%s/price?symbol=%s&apikey=%s",
		twelveDataBaseURL, url.QueryEscape(symbol), url.QueryEscape(config.Cfg.TwelveDataAPIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("building TwelveData request for %s: %w", ticker, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("fetching TwelveData quote for %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("TwelveData returned status %d for %s", resp.StatusCode, ticker)
	}

	var parsed twelveDataPriceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Quote{}, fmt.Errorf("decoding TwelveData response for %s: %w", ticker, err)
	}
	if parsed.Status == "error" || parsed.Price == "" {
		return Quote{}, fmt.Errorf("TwelveData error for %s: %s", ticker, parsed.Message)
	}

	price, err := strconv.ParseFloat(parsed.Price, 64)
	if err != nil {
		return Quote{}, fmt.Errorf("parsing TwelveData price %q for %s: %w", parsed.Price, ticker, err)
	}
	if price <= 0 {
		return Quote{}, fmt.Errorf("TwelveData returned non-positive price %v for %s", price, ticker)
	}
	return Quote{Price: price}, nil
}

// fetchCryptoQuote asks CoinGecko for the USD price of a coin.
func (s *marketDataService) fetchCryptoQuote(ctx context.Context, ticker string) (Quote, error) {
	coinID, ok := cryptoIDMap[strings.ToUpper(ticker)]
	if !ok {
		coinID = strings.ToLower(ticker)
	}

	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd",
		strings.TrimRight(config.Cfg.CoinGeckoBaseURL, "/"), url.QueryEscape(coinID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("building CoinGecko request for %s: %w", ticker, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("fetching CoinGecko quote for %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("CoinGecko returned status %d for %s", resp.StatusCode, ticker)
	}

	var parsed map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Quote{}, fmt.Errorf("decoding CoinGecko response for %s: %w", ticker, err)
	}
	price := parsed[coinID]["usd"]
	if price <= 0 {
		return Quote{}, fmt.Errorf("CoinGecko returned no USD price for %s (%s)", ticker, coinID)
	}
	return Quote{Price: price}, nil
}

func (s *marketDataService) FetchQuote(ctx context.Context, ticker, assetType string) (Quote, error) {
	switch assetType {
	case models.AssetTypeCrypto:
		return s.fetchCryptoQuote(ctx, ticker)
	default:
		return s.fetchStockQuote(ctx, ticker, assetType)
	}
}

// RefreshTickers fetches fresh quotes for the given tickers and stores
// them. Providers are rate limited, so failures are collected rather than
// aborting the pass.
func (s *marketDataService) RefreshTickers(ctx context.Context, tickers []string) RefreshResult {
	var result RefreshResult
	for _, ticker := range tickers {
		assetType, err := assetTypeByTicker(ticker)
		if err != nil {
			logger.L.Warn("skipping refresh for unknown asset", "ticker", ticker, "error", err)
			result.Failed = append(result.Failed, ticker)
			continue
		}

		quote, err := s.FetchQuote(ctx, ticker, assetType)
		if err != nil {
			logger.L.Warn("quote fetch failed", "ticker", ticker, "error", err)
			result.Failed = append(result.Failed, ticker)
			continue
		}

		if err := updateAssetPrice(ticker, quote.Name, quote.Price); err != nil {
			logger.L.Error("failed to store refreshed price", "ticker", ticker, "error", err)
			result.Failed = append(result.Failed, ticker)
			continue
		}
		logger.L.Debug("price refreshed", "ticker", ticker, "price", quote.Price)
		result.Updated++
	}
	return result
}
