package schema

import (
	"errors"
	"fmt"

	"TradeDesk/internal/domain/models"
)

// Version is the wire layout version this codec understands. Backends that
// report a different schema_version are rejected instead of being decoded
// against the wrong positions.
const Version = 1

var (
	ErrFieldCount    = errors.New("schema: field count mismatch")
	ErrSchemaVersion = errors.New("schema: unsupported schema version")
	ErrUnknownKind   = errors.New("schema: unknown strategy kind")
)

type FieldType string

const (
	TypeString    FieldType = "string"
	TypeEnum      FieldType = "enum"
	TypeTimeframe FieldType = "timeframe"
	TypeInt       FieldType = "int"
	TypeDecimal   FieldType = "decimal"
	TypeBool      FieldType = "bool"
)

// Field describes one positional attribute of a ticker record.
type Field struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Position int       `json:"position"`
	Options  []string  `json:"options,omitempty"`
	// Rule is a go-playground/validator tag applied to the decoded value.
	Rule string `json:"rule,omitempty"`
}

// Schema is the full descriptor of one strategy kind.
type Schema struct {
	Kind       models.StrategyKind `json:"strategy"`
	Title      string              `json:"title"`
	Version    int                 `json:"version"`
	Symbols    []string            `json:"symbols"`
	FreeSymbol bool                `json:"free_symbol"`
	Timeframes []string            `json:"timeframes"`
	Fields     []Field             `json:"fields"`
}

// Width is the expected length of a wire row.
func (s *Schema) Width() int { return len(s.Fields) }

// Field looks a descriptor up by name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

var (
	standardTimeframes = []string{"1Min", "2Min", "5Min", "15Min", "30Min", "1Hour", "4Hour", "1Day", "516t", "1160t", "1600t"}
	zerodayTimeframes  = []string{"1Min", "2Min", "3Min", "4Min", "5Min", "15Min", "30Min"}
)

func commonFields() []Field {
	return []Field{
		{Name: "timeframe", Label: "Timeframe", Type: TypeTimeframe, Position: 0, Rule: "required"},
		{Name: "schwab_quantity", Label: "Schwab Quantity", Type: TypeDecimal, Position: 1, Rule: "gte=0"},
		{Name: "trade_enabled", Label: "Trade Enabled", Type: TypeBool, Position: 2},
		{Name: "tastytrade_quantity", Label: "Tastytrade Quantity", Type: TypeDecimal, Position: 3, Rule: "gte=0"},
	}
}

func crossoverFields() []Field {
	return []Field{
		{Name: "trend_line_1", Label: "Trend Line 1", Type: TypeEnum, Position: 4, Options: models.Trendlines, Rule: "required"},
		{Name: "period_1", Label: "Period 1", Type: TypeInt, Position: 5, Rule: "gt=0"},
		{Name: "trend_line_2", Label: "Trend Line 2", Type: TypeEnum, Position: 6, Options: models.Trendlines, Rule: "required"},
		{Name: "period_2", Label: "Period 2", Type: TypeInt, Position: 7, Rule: "gt=0"},
	}
}

var registry = map[models.StrategyKind]*Schema{
	models.StrategyEMA: {
		Kind:       models.StrategyEMA,
		Title:      models.StrategyEMA.Title(),
		Version:    Version,
		Symbols:    []string{"AAPL", "TSLA", "SPY"},
		FreeSymbol: true,
		Timeframes: standardTimeframes,
		Fields:     append(commonFields(), crossoverFields()...),
	},
	models.StrategySupertrend: {
		Kind:       models.StrategySupertrend,
		Title:      models.StrategySupertrend.Title(),
		Version:    Version,
		Symbols:    []string{"AAPL", "TSLA", "SPY"},
		FreeSymbol: true,
		Timeframes: standardTimeframes,
		Fields: append(commonFields(),
			Field{Name: "short_ma_length", Label: "Short MA Length", Type: TypeInt, Position: 4, Rule: "gt=0"},
			Field{Name: "short_ma_type", Label: "Short MA Type", Type: TypeEnum, Position: 5, Options: models.Trendlines, Rule: "required"},
			Field{Name: "mid_ma_length", Label: "Mid MA Length", Type: TypeInt, Position: 6, Rule: "gt=0"},
			Field{Name: "mid_ma_type", Label: "Mid MA Type", Type: TypeEnum, Position: 7, Options: models.Trendlines, Rule: "required"},
			Field{Name: "long_ma_length", Label: "Long MA Length", Type: TypeInt, Position: 8, Rule: "gt=0"},
			Field{Name: "long_ma_type", Label: "Long MA Type", Type: TypeEnum, Position: 9, Options: models.Trendlines, Rule: "required"},
			Field{Name: "zigzag_percent_reversal", Label: "ZigZag % Reversal", Type: TypeDecimal, Position: 10, Rule: "gte=0"},
			Field{Name: "atr_length", Label: "ATR Length", Type: TypeInt, Position: 11, Rule: "gt=0"},
			Field{Name: "zigzag_atr_multiple", Label: "ZigZag ATR Multiple", Type: TypeDecimal, Position: 12, Rule: "gte=0"},
			Field{Name: "fibonacci_enabled", Label: "Fibonacci", Type: TypeBool, Position: 13},
			Field{Name: "support_demand_enabled", Label: "Support/Demand", Type: TypeBool, Position: 14},
		),
	},
	models.StrategyZeroday: {
		Kind:       models.StrategyZeroday,
		Title:      models.StrategyZeroday.Title(),
		Version:    Version,
		Symbols:    []string{"SPX"},
		Timeframes: zerodayTimeframes,
		Fields: append(append(commonFields(), crossoverFields()...),
			Field{Name: "call_enabled", Label: "Call", Type: TypeBool, Position: 8},
			Field{Name: "put_enabled", Label: "Put", Type: TypeBool, Position: 9},
		),
	},
}

func init() {
	for kind, s := range registry {
		for i, f := range s.Fields {
			if f.Position != i {
				panic(fmt.Sprintf("schema %s: field %s declared at %d, listed at %d", kind, f.Name, f.Position, i))
			}
			if f.Type == TypeTimeframe {
				s.Fields[i].Options = s.Timeframes
			}
		}
	}
}

// For returns the schema of kind.
func For(kind models.StrategyKind) (*Schema, error) {
	s, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return s, nil
}

// All returns every schema in display order.
func All() []*Schema {
	out := make([]*Schema, 0, len(models.StrategyKinds))
	for _, k := range models.StrategyKinds {
		out = append(out, registry[k])
	}
	return out
}
