package quote

import (
	"testing"
	"time"
)

func TestSpreadRatioFromLiveQuote(t *testing.T) {
	b := NewBook()
	b.OnQuote("AAPL", 9.98, 10.02, 100, 100, time.Now())

	s := b.SpreadRatio("AAPL", 10.00)
	if !s.Known {
		t.Fatalf("expected known spread")
	}
	want := (10.02 - 9.98) / ((9.98 + 10.02) / 2)
	if diff := s.Ratio - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("got %v want %v", s.Ratio, want)
	}
}

func TestSpreadRatioTieredFallback(t *testing.T) {
	b := NewBook()
	cases := []struct {
		price float64
		want  float64
	}{
		{10.0, 0.001},
		{5.0, 0.001},
		{4.99, 0.005},
		{1.0, 0.005},
		{0.99, 0.01},
		{0.01, 0.01},
	}
	for _, c := range cases {
		s := b.SpreadRatio("NOQUOTE", c.price)
		if !s.Known || s.Ratio != c.want {
			t.Fatalf("price %v: got %+v want %v", c.price, s, c.want)
		}
	}
}

func TestSpreadRatioUnknownWhenNoQuoteOrPrice(t *testing.T) {
	b := NewBook()
	s := b.SpreadRatio("NOQUOTE", 0)
	if s.Known {
		t.Fatalf("expected unknown spread with no quote and no fallback price")
	}
}

func TestSpreadRatioIgnoresStaleZeroQuote(t *testing.T) {
	b := NewBook()
	b.OnQuote("AAPL", 0, 0, 0, 0, time.Now())
	s := b.SpreadRatio("AAPL", 2.0)
	if !s.Known || s.Ratio != 0.005 {
		t.Fatalf("expected tiered fallback when bid/ask are zero, got %+v", s)
	}
}
