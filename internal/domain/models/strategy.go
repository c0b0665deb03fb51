package models

import (
	"fmt"
	"strings"
)

// StrategyKind identifies one of the configurable trading strategies.
type StrategyKind string

const (
	StrategyEMA        StrategyKind = "ema"
	StrategySupertrend StrategyKind = "supertrend"
	StrategyZeroday    StrategyKind = "zeroday"
)

// StrategyKinds lists every kind in display order.
var StrategyKinds = []StrategyKind{StrategyEMA, StrategySupertrend, StrategyZeroday}

// ParseStrategyKind accepts the kind name case-insensitively.
func ParseStrategyKind(s string) (StrategyKind, error) {
	k := StrategyKind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case StrategyEMA, StrategySupertrend, StrategyZeroday:
		return k, nil
	}
	return "", fmt.Errorf("unknown strategy kind %q", s)
}

func (k StrategyKind) String() string { return string(k) }

// Title is the toolbar heading shown for the strategy.
func (k StrategyKind) Title() string {
	switch k {
	case StrategyEMA:
		return "EMA Crossover Strategy"
	case StrategySupertrend:
		return "Supertrend Strategy"
	case StrategyZeroday:
		return "SPX 0DTE Strategy"
	default:
		return string(k)
	}
}

// Trendline types accepted by the moving-average fields.
const (
	TrendlineEMA            = "EMA"
	TrendlineSMA            = "SMA"
	TrendlineWilderSmoother = "WilderSmoother"
)

var Trendlines = []string{TrendlineEMA, TrendlineSMA, TrendlineWilderSmoother}
