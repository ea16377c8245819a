package queryir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/recon/internal/ir"
)

// ParseEquals parses a "field=value" filter expression.
//
// The value is typed by its literal form: integers become ir.Int, other
// numbers ir.Decimal, true/false ir.Bool. Anything else, or a value wrapped
// in single or double quotes, is an ir.String:
//
//	ParseEquals("version=2")     // Equals{Field: "version", Value: ir.Int(2)}
//	ParseEquals("book='2'")      // Equals{Field: "book", Value: ir.String("2")}
func ParseEquals(expr string) (Equals, error) {
	field, raw, ok := strings.Cut(expr, "=")
	if !ok {
		return Equals{}, fmt.Errorf("filter %q: want field=value", expr)
	}
	field = strings.TrimSpace(field)
	if !IsIdentifier(field) {
		return Equals{}, fmt.Errorf("filter %q: field %q is not a plain identifier", expr, field)
	}
	return Equals{Field: field, Value: parseLiteral(strings.TrimSpace(raw))}, nil
}

// ParseFilter parses each expression with ParseEquals and returns their
// conjunction, or nil when exprs is empty.
func ParseFilter(exprs []string) (Predicate, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	preds := make([]Predicate, 0, len(exprs))
	for _, e := range exprs {
		eq, err := ParseEquals(e)
		if err != nil {
			return nil, err
		}
		preds = append(preds, eq)
	}
	if len(preds) == 1 {
		return preds[0], nil
	}
	return And{Predicates: preds}, nil
}

func parseLiteral(raw string) ir.Value {
	if len(raw) >= 2 {
		if q := raw[0]; (q == '\'' || q == '"') && raw[len(raw)-1] == q {
			return ir.String(raw[1 : len(raw)-1])
		}
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ir.Int(n)
	}
	if d, err := decimal.NewFromString(raw); err == nil {
		return ir.NewDecimal(d)
	}
	switch raw {
	case "true":
		return ir.Bool(true)
	case "false":
		return ir.Bool(false)
	}
	return ir.String(raw)
}
