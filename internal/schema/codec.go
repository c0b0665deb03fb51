package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"TradeDesk/internal/domain/models"

	"github.com/shopspring/decimal"
)

// Collection is the backend wire shape: symbol -> positional string fields.
type Collection map[string][]string

// Decode turns one positional wire row into a typed record.
func Decode(kind models.StrategyKind, symbol string, row []string) (models.Ticker, error) {
	s, err := For(kind)
	if err != nil {
		return nil, err
	}
	if len(row) != s.Width() {
		return nil, fmt.Errorf("%w: %s %s has %d fields, want %d", ErrFieldCount, kind, symbol, len(row), s.Width())
	}

	named := make(map[string]any, len(row)+1)
	named["symbol"] = symbol
	for _, f := range s.Fields {
		v, err := parseField(f, row[f.Position])
		if err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", kind, symbol, err)
		}
		named[f.Name] = v
	}

	return fromNamed(kind, named)
}

// Encode renders a record in the positional wire layout of its kind.
func Encode(t models.Ticker) ([]string, error) {
	s, err := For(t.Kind())
	if err != nil {
		return nil, err
	}
	named, err := Named(t)
	if err != nil {
		return nil, err
	}

	row := make([]string, s.Width())
	for _, f := range s.Fields {
		row[f.Position] = formatField(f, named[f.Name])
	}
	return row, nil
}

// DecodeCollection decodes a whole backend collection, ordered by symbol.
// version is the schema_version reported by the backend; zero means unreported.
func DecodeCollection(kind models.StrategyKind, data Collection, version int) ([]models.Ticker, error) {
	if version != 0 && version != Version {
		return nil, fmt.Errorf("%w: backend reports %d, codec understands %d", ErrSchemaVersion, version, Version)
	}

	symbols := make([]string, 0, len(data))
	for sym := range data {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	out := make([]models.Ticker, 0, len(symbols))
	for _, sym := range symbols {
		t, err := Decode(kind, sym, data[sym])
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// EncodeCollection is the inverse of DecodeCollection.
func EncodeCollection(tickers []models.Ticker) (Collection, error) {
	out := make(Collection, len(tickers))
	for _, t := range tickers {
		row, err := Encode(t)
		if err != nil {
			return nil, err
		}
		out[t.Base().Symbol] = row
	}
	return out, nil
}

// Named flattens a record into field name -> JSON value. Numbers come back as
// json.Number so decimals keep their exact text.
func Named(t models.Ticker) (map[string]any, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal %s ticker: %w", t.Kind(), err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var named map[string]any
	if err := dec.Decode(&named); err != nil {
		return nil, fmt.Errorf("flatten %s ticker: %w", t.Kind(), err)
	}
	return named, nil
}

// Equal reports whether two records carry the same wire values.
func Equal(a, b models.Ticker) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() || a.Base().Symbol != b.Base().Symbol {
		return false
	}
	ra, err := Encode(a)
	if err != nil {
		return false
	}
	rb, err := Encode(b)
	if err != nil {
		return false
	}
	for i := range ra {
		if ra[i] != rb[i] {
			return false
		}
	}
	return true
}

// ChangedFields lists the descriptor names whose wire values differ.
func ChangedFields(a, b models.Ticker) []string {
	s, err := For(b.Kind())
	if err != nil || a == nil {
		return nil
	}
	ra, errA := Encode(a)
	rb, errB := Encode(b)
	if errA != nil || errB != nil {
		return nil
	}
	var out []string
	for _, f := range s.Fields {
		if ra[f.Position] != rb[f.Position] {
			out = append(out, f.Name)
		}
	}
	return out
}

func fromNamed(kind models.StrategyKind, named map[string]any) (models.Ticker, error) {
	b, err := json.Marshal(named)
	if err != nil {
		return nil, err
	}
	t := models.NewTicker(kind)
	if t == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err := json.Unmarshal(b, t); err != nil {
		return nil, fmt.Errorf("build %s ticker: %w", kind, err)
	}
	return t, nil
}

func parseField(f Field, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch f.Type {
	case TypeBool:
		return strings.EqualFold(raw, "TRUE"), nil
	case TypeTimeframe:
		return NormalizeTimeframe(raw), nil
	case TypeInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("field %s: invalid integer %q", f.Name, raw)
		}
		return n, nil
	case TypeDecimal:
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("field %s: invalid number %q", f.Name, raw)
		}
		return d, nil
	default:
		return raw, nil
	}
}

func formatField(f Field, v any) string {
	switch x := v.(type) {
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case json.Number:
		if f.Type == TypeDecimal {
			if d, err := decimal.NewFromString(x.String()); err == nil {
				return d.String()
			}
		}
		return x.String()
	case string:
		return x
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
