package validation

import "testing"

func TestNormalizeTicker(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"aapl", "AAPL"},
		{" btc ", "BTC"},
		{"BRK.B", "BRK.B"},
		{"eur/usd", "EURUSD"},
		{"<script>", "SCRIPT"},
		{"", ""},
		{"THISISWAYTOOLONGFORATICKER", ""},
	}
	for _, tc := range cases {
		if got := NormalizeTicker(tc.in); got != tc.want {
			t.Errorf("NormalizeTicker(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStripUnprintable(t *testing.T) {
	if got := StripUnprintable("abc\x00def\n"); got != "abcdef\n" {
		t.Errorf("StripUnprintable = %q, want %q", got, "abcdef\n")
	}
}
