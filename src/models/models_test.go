package models

import (
	"errors"
	"testing"
	"time"
)

func TestNewTransactionValid(t *testing.T) {
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	tx, err := NewTransaction("user-1", "AAPL", SideBuy, "", 10, 99.5, 1.5, date, "first buy")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.AssetType != AssetTypeStock {
		t.Errorf("empty asset type should default to STOCK, got %s", tx.AssetType)
	}
	if !tx.Date.Equal(date) {
		t.Errorf("date = %v, want %v", tx.Date, date)
	}
}

func TestNewTransactionRejectsMalformedInput(t *testing.T) {
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name     string
		ticker   string
		side     string
		quantity float64
		price    float64
		fees     float64
		date     time.Time
		wantErr  error
	}{
		{"empty ticker", "", SideBuy, 1, 1, 0, date, ErrMissingTicker},
		{"unknown side", "AAPL", "HOLD", 1, 1, 0, date, ErrInvalidSide},
		{"zero quantity", "AAPL", SideBuy, 0, 1, 0, date, ErrNonPositiveQty},
		{"negative quantity", "AAPL", SideSell, -2, 1, 0, date, ErrNonPositiveQty},
		{"zero price", "AAPL", SideBuy, 1, 0, 0, date, ErrNonPositivePx},
		{"negative fees", "AAPL", SideBuy, 1, 1, -0.5, date, ErrNegativeFees},
		{"zero date", "AAPL", SideBuy, 1, 1, 0, time.Time{}, ErrZeroTimestamp},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTransaction("user-1", tc.ticker, tc.side, "", tc.quantity, tc.price, tc.fees, tc.date, "")
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}
