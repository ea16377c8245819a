package ir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ValueFromYAML converts a YAML scalar node into a Value.
//
// Numbers are taken from the literal text, never through float64:
//
//	quantity: 100      -> Int(100)
//	quantity: 100.10   -> Decimal(100.10)
//	quantity: "100"    -> String("100")   (quoted text stays text)
//	quantity: ~        -> Null
//
// Sequences, mappings and non-finite floats (.inf, .nan) are rejected.
func ValueFromYAML(node *yaml.Node) (Value, error) {
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		return ValueFromYAML(node.Alias)
	}
	if node.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("line %d: cell must be a scalar, got %s", node.Line, kindName(node.Kind))
	}

	switch node.ShortTag() {
	case "!!null":
		return Null{}, nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return Bool(b), nil
	case "!!int":
		var n int64
		if err := node.Decode(&n); err == nil {
			return Int(n), nil
		}
		// Out of int64 range: keep it exact as a decimal.
		d, err := decimal.NewFromString(strings.ReplaceAll(node.Value, "_", ""))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid integer %q", node.Line, node.Value)
		}
		return Decimal{Decimal: d}, nil
	case "!!float":
		lit := strings.ReplaceAll(node.Value, "_", "")
		d, err := decimal.NewFromString(lit)
		if err != nil {
			return nil, fmt.Errorf("line %d: number %q has no exact decimal form", node.Line, node.Value)
		}
		return Decimal{Decimal: d}, nil
	case "!!str":
		return String(node.Value), nil
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML tag %s", node.Line, node.ShortTag())
	}
}

// UnmarshalYAML decodes a mapping of column name to scalar cell.
func (r *Row) UnmarshalYAML(node *yaml.Node) error {
	row, _, err := rowFromYAML(node)
	if err != nil {
		return err
	}
	*r = row
	return nil
}

// rowFromYAML decodes a mapping node, also returning the keys in document order.
func rowFromYAML(node *yaml.Node) (Row, []string, error) {
	if node.Kind != yaml.MappingNode {
		return nil, nil, fmt.Errorf("line %d: row must be a mapping, got %s", node.Line, kindName(node.Kind))
	}

	row := make(Row, len(node.Content)/2)
	order := make([]string, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		col := keyNode.Value
		if _, dup := row[col]; dup {
			return nil, nil, fmt.Errorf("line %d: duplicate column %q in row", keyNode.Line, col)
		}
		v, err := ValueFromYAML(valNode)
		if err != nil {
			return nil, nil, fmt.Errorf("column %q: %w", col, err)
		}
		row[col] = v
		order = append(order, col)
	}
	return row, order, nil
}

// UnmarshalYAML decodes a table of the form
//
//	columns: [trade_id, version, quantity]   # optional
//	rows:
//	  - {trade_id: T1, version: 1, quantity: 100}
//
// When columns is omitted, the order is the first-seen order of keys
// across rows, so the document order of the first row wins.
func (t *Table) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: table must be a mapping, got %s", node.Line, kindName(node.Kind))
	}

	out := &Table{Rows: []Row{}}
	var rowsNode *yaml.Node
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "name":
			out.Name = val.Value
		case "columns":
			if err := val.Decode(&out.Columns); err != nil {
				return fmt.Errorf("line %d: columns: %w", val.Line, err)
			}
		case "rows":
			rowsNode = val
		default:
			return fmt.Errorf("line %d: field %s not found in table", key.Line, key.Value)
		}
	}

	seen := make(map[string]bool, len(out.Columns))
	for _, c := range out.Columns {
		if seen[c] {
			return fmt.Errorf("duplicate column %q", c)
		}
		seen[c] = true
	}
	declared := len(out.Columns) > 0

	if rowsNode != nil && rowsNode.ShortTag() != "!!null" {
		if rowsNode.Kind != yaml.SequenceNode {
			return fmt.Errorf("line %d: rows must be a sequence", rowsNode.Line)
		}
		for i, rn := range rowsNode.Content {
			row, order, err := rowFromYAML(rn)
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			for _, c := range order {
				if seen[c] {
					continue
				}
				if declared {
					return fmt.Errorf("row %d: column %q not in declared columns", i, c)
				}
				seen[c] = true
				out.Columns = append(out.Columns, c)
			}
			out.Rows = append(out.Rows, row)
		}
	}

	*t = *out
	return nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return strconv.Itoa(int(k))
	}
}
