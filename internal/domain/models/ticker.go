package models

import (
	"github.com/shopspring/decimal"
)

func init() {
	// Quantities travel as JSON numbers both to the backend and to API clients.
	decimal.MarshalJSONWithoutQuotes = true
}

// Ticker is a per-symbol parameter record of any strategy kind.
type Ticker interface {
	Kind() StrategyKind
	Base() *TickerBase
}

// TickerBase holds the fields shared by every strategy kind.
type TickerBase struct {
	Symbol             string          `json:"symbol"`
	TradeEnabled       bool            `json:"trade_enabled"`
	Timeframe          string          `json:"timeframe"`
	SchwabQuantity     decimal.Decimal `json:"schwab_quantity"`
	TastytradeQuantity decimal.Decimal `json:"tastytrade_quantity"`
}

func (b *TickerBase) Base() *TickerBase { return b }

// Crossover is the pair of moving averages used by the crossover strategies.
type Crossover struct {
	TrendLine1 string `json:"trend_line_1"`
	Period1    int    `json:"period_1"`
	TrendLine2 string `json:"trend_line_2"`
	Period2    int    `json:"period_2"`
}

type EMATicker struct {
	TickerBase
	Crossover
}

func (*EMATicker) Kind() StrategyKind { return StrategyEMA }

type SupertrendTicker struct {
	TickerBase
	ShortMALength         int             `json:"short_ma_length"`
	ShortMAType           string          `json:"short_ma_type"`
	MidMALength           int             `json:"mid_ma_length"`
	MidMAType             string          `json:"mid_ma_type"`
	LongMALength          int             `json:"long_ma_length"`
	LongMAType            string          `json:"long_ma_type"`
	ZigzagPercentReversal decimal.Decimal `json:"zigzag_percent_reversal"`
	ATRLength             int             `json:"atr_length"`
	ZigzagATRMultiple     decimal.Decimal `json:"zigzag_atr_multiple"`
	FibonacciEnabled      bool            `json:"fibonacci_enabled"`
	SupportDemandEnabled  bool            `json:"support_demand_enabled"`
}

func (*SupertrendTicker) Kind() StrategyKind { return StrategySupertrend }

// ZerodayTicker configures the same-day SPX options strategy.
type ZerodayTicker struct {
	TickerBase
	Crossover
	CallEnabled bool `json:"call_enabled"`
	PutEnabled  bool `json:"put_enabled"`
}

func (*ZerodayTicker) Kind() StrategyKind { return StrategyZeroday }

// NewTicker returns an empty record for kind, or nil for an unknown kind.
func NewTicker(kind StrategyKind) Ticker {
	switch kind {
	case StrategyEMA:
		return &EMATicker{}
	case StrategySupertrend:
		return &SupertrendTicker{}
	case StrategyZeroday:
		return &ZerodayTicker{}
	}
	return nil
}

// CloneTicker returns an independent copy of t.
func CloneTicker(t Ticker) Ticker {
	switch v := t.(type) {
	case *EMATicker:
		c := *v
		return &c
	case *SupertrendTicker:
		c := *v
		return &c
	case *ZerodayTicker:
		c := *v
		return &c
	}
	return nil
}
