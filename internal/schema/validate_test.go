package schema

import (
	"errors"
	"testing"

	"TradeDesk/internal/domain/models"

	"github.com/shopspring/decimal"
)

func validZeroday() *models.ZerodayTicker {
	return &models.ZerodayTicker{
		TickerBase: models.TickerBase{
			Symbol:         "SPX",
			TradeEnabled:   true,
			Timeframe:      "5Min",
			SchwabQuantity: decimal.NewFromInt(1),
		},
		Crossover:   models.Crossover{TrendLine1: "EMA", Period1: 9, TrendLine2: "SMA", Period2: 21},
		CallEnabled: true,
	}
}

func fieldsOf(err error) map[string]bool {
	out := map[string]bool{}
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		for _, e := range verrs {
			out[e.Field] = true
		}
	}
	return out
}

func TestValidateZerodayAccepts(t *testing.T) {
	if err := Validate(validZeroday()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateZerodayRules(t *testing.T) {
	cases := []struct {
		name  string
		mut   func(z *models.ZerodayTicker)
		field string
	}{
		{"call and put disabled", func(z *models.ZerodayTicker) { z.CallEnabled, z.PutEnabled = false, false }, "call_enabled"},
		{"period_1 equals period_2", func(z *models.ZerodayTicker) { z.Period1, z.Period2 = 21, 21 }, "period_2"},
		{"period_1 above period_2", func(z *models.ZerodayTicker) { z.Period1, z.Period2 = 30, 21 }, "period_2"},
		{"no broker quantity", func(z *models.ZerodayTicker) { z.SchwabQuantity = decimal.Zero }, "schwab_quantity"},
		{"symbol not SPX", func(z *models.ZerodayTicker) { z.Symbol = "AAPL" }, "symbol"},
		{"timeframe outside zeroday list", func(z *models.ZerodayTicker) { z.Timeframe = "1Day" }, "timeframe"},
		{"negative quantity", func(z *models.ZerodayTicker) { z.TastytradeQuantity = decimal.NewFromInt(-1) }, "tastytrade_quantity"},
	}
	for _, tc := range cases {
		z := validZeroday()
		tc.mut(z)
		err := Validate(z)
		if err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
		if !fieldsOf(err)[tc.field] {
			t.Fatalf("%s: expected error on %s, got %v", tc.name, tc.field, err)
		}
	}
}

func TestValidateEMA(t *testing.T) {
	ema := &models.EMATicker{
		TickerBase: models.TickerBase{Symbol: "NVDA", Timeframe: "516t"},
		Crossover:  models.Crossover{TrendLine1: "EMA", Period1: 9, TrendLine2: "WilderSmoother", Period2: 21},
	}
	if err := Validate(ema); err != nil {
		t.Fatalf("free text symbol should be accepted: %v", err)
	}

	ema.Period1 = 0
	ema.TrendLine2 = "HMA"
	ema.Symbol = ""
	fields := fieldsOf(Validate(ema))
	for _, f := range []string{"period_1", "trend_line_2", "symbol"} {
		if !fields[f] {
			t.Fatalf("expected error on %s, got %v", f, fields)
		}
	}
}

func TestValidateSupertrend(t *testing.T) {
	st := &models.SupertrendTicker{
		TickerBase:            models.TickerBase{Symbol: "SPY", Timeframe: "15Min"},
		ShortMALength:         9,
		ShortMAType:           "EMA",
		MidMALength:           21,
		MidMAType:             "SMA",
		LongMALength:          50,
		LongMAType:            "SMA",
		ZigzagPercentReversal: decimal.RequireFromString("0.5"),
		ATRLength:             14,
		ZigzagATRMultiple:     decimal.NewFromInt(2),
	}
	if err := Validate(st); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st.ATRLength = -3
	if !fieldsOf(Validate(st))["atr_length"] {
		t.Fatalf("expected atr_length error")
	}
}
