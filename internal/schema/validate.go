package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"TradeDesk/internal/domain/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// ValidationError names the field a record failed on.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every failing field of one record.
type ValidationErrors []*ValidationError

func (es ValidationErrors) Error() string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// Validate checks a record against its kind's descriptors plus the
// cross-field rules. A nil return means the record may be sent to the backend.
func Validate(t models.Ticker) error {
	s, err := For(t.Kind())
	if err != nil {
		return err
	}
	named, err := Named(t)
	if err != nil {
		return err
	}

	var errs ValidationErrors
	errs = append(errs, checkSymbol(s, t.Base().Symbol)...)
	for _, f := range s.Fields {
		if e := checkField(f, named[f.Name]); e != nil {
			errs = append(errs, e)
		}
	}
	if z, ok := t.(*models.ZerodayTicker); ok {
		errs = append(errs, checkZeroday(z)...)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func checkSymbol(s *Schema, symbol string) ValidationErrors {
	rule := "required,max=16,excludesall= "
	if !s.FreeSymbol {
		rule = "required,oneof=" + strings.Join(s.Symbols, " ")
	}
	if err := validate.Var(symbol, rule); err != nil {
		return ValidationErrors{{Field: "symbol", Message: ruleMessage(err, s.Symbols)}}
	}
	return nil
}

func checkField(f Field, v any) *ValidationError {
	var value any = v
	switch f.Type {
	case TypeInt:
		n, ok := v.(json.Number)
		if !ok {
			return &ValidationError{Field: f.Name, Message: "must be a whole number"}
		}
		i, err := n.Int64()
		if err != nil {
			return &ValidationError{Field: f.Name, Message: "must be a whole number"}
		}
		value = i
	case TypeDecimal:
		n, ok := v.(json.Number)
		if !ok {
			return &ValidationError{Field: f.Name, Message: "must be a number"}
		}
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return &ValidationError{Field: f.Name, Message: "must be a number"}
		}
		value = d.InexactFloat64()
	case TypeEnum, TypeTimeframe:
		str, _ := v.(string)
		if str == "" {
			return &ValidationError{Field: f.Name, Message: "is required"}
		}
		if !contains(f.Options, str) {
			return &ValidationError{Field: f.Name, Message: "must be one of: " + strings.Join(f.Options, ", ")}
		}
		return nil
	}

	if f.Rule == "" {
		return nil
	}
	if err := validate.Var(value, f.Rule); err != nil {
		return &ValidationError{Field: f.Name, Message: ruleMessage(err, f.Options)}
	}
	return nil
}

func checkZeroday(z *models.ZerodayTicker) ValidationErrors {
	var errs ValidationErrors
	if z.Period1 >= z.Period2 {
		errs = append(errs, &ValidationError{Field: "period_2", Message: "must be greater than period_1"})
	}
	if !z.CallEnabled && !z.PutEnabled {
		errs = append(errs, &ValidationError{Field: "call_enabled", Message: "at least one of call or put must be enabled"})
	}
	if z.SchwabQuantity.IsZero() && z.TastytradeQuantity.IsZero() {
		errs = append(errs, &ValidationError{Field: "schwab_quantity", Message: "at least one broker quantity must be non-zero"})
	}
	return errs
}

func ruleMessage(err error, options []string) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + strings.Join(options, ", ")
	case "excludesall":
		return "must not contain spaces"
	default:
		return "failed " + fe.Tag()
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
