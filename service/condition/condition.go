// Package condition evaluates conditional-node expressions against a
// workflow context. Expressions use Go syntax: dotted paths into the
// context, literals, comparison, arithmetic, && || ! and len().
// Unknown identifiers evaluate to nil.
package condition

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"reflect"
	"strconv"
	"strings"
)

// Evaluate returns the truth value of expr.
func Evaluate(expr string, variables map[string]interface{}) (bool, error) {
	value, err := Value(expr, variables)
	if err != nil {
		return false, err
	}
	return truthy(value), nil
}

// Value evaluates expr and returns its value.
func Value(expr string, variables map[string]interface{}) (interface{}, error) {
	expr = strings.TrimSpace(expr)
	if strings.HasPrefix(expr, "${") && strings.HasSuffix(expr, "}") {
		expr = strings.TrimSpace(expr[2 : len(expr)-1])
	}
	if expr == "" {
		return nil, fmt.Errorf("empty expression")
	}
	node, err := parser.ParseExpr(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", expr, err)
	}
	return eval(node, variables)
}

func eval(node ast.Expr, variables map[string]interface{}) (interface{}, error) {
	switch actual := node.(type) {
	case *ast.ParenExpr:
		return eval(actual.X, variables)
	case *ast.BasicLit:
		return literal(actual)
	case *ast.Ident:
		switch actual.Name {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "nil":
			return nil, nil
		}
		return variables[actual.Name], nil
	case *ast.SelectorExpr:
		parent, err := eval(actual.X, variables)
		if err != nil {
			return nil, err
		}
		return member(parent, actual.Sel.Name), nil
	case *ast.IndexExpr:
		parent, err := eval(actual.X, variables)
		if err != nil {
			return nil, err
		}
		key, err := eval(actual.Index, variables)
		if err != nil {
			return nil, err
		}
		return index(parent, key), nil
	case *ast.CallExpr:
		return call(actual, variables)
	case *ast.UnaryExpr:
		value, err := eval(actual.X, variables)
		if err != nil {
			return nil, err
		}
		switch actual.Op {
		case token.NOT:
			return !truthy(value), nil
		case token.SUB:
			number, ok := toFloat(value)
			if !ok {
				return nil, fmt.Errorf("cannot negate %v", value)
			}
			return -number, nil
		}
		return nil, fmt.Errorf("unsupported operator %v", actual.Op)
	case *ast.BinaryExpr:
		return binary(actual, variables)
	}
	return nil, fmt.Errorf("unsupported expression %T", node)
}

func literal(lit *ast.BasicLit) (interface{}, error) {
	switch lit.Kind {
	case token.INT, token.FLOAT:
		return strconv.ParseFloat(lit.Value, 64)
	case token.STRING, token.CHAR:
		return strconv.Unquote(lit.Value)
	}
	return nil, fmt.Errorf("unsupported literal %v", lit.Value)
}

func call(expr *ast.CallExpr, variables map[string]interface{}) (interface{}, error) {
	ident, ok := expr.Fun.(*ast.Ident)
	if !ok || ident.Name != "len" || len(expr.Args) != 1 {
		return nil, fmt.Errorf("unsupported call")
	}
	value, err := eval(expr.Args[0], variables)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return 0.0, nil
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return float64(v.Len()), nil
	}
	return nil, fmt.Errorf("len of %T", value)
}

func binary(expr *ast.BinaryExpr, variables map[string]interface{}) (interface{}, error) {
	left, err := eval(expr.X, variables)
	if err != nil {
		return nil, err
	}
	switch expr.Op {
	case token.LAND:
		if !truthy(left) {
			return false, nil
		}
		right, err := eval(expr.Y, variables)
		return err == nil && truthy(right), err
	case token.LOR:
		if truthy(left) {
			return true, nil
		}
		right, err := eval(expr.Y, variables)
		return err == nil && truthy(right), err
	}
	right, err := eval(expr.Y, variables)
	if err != nil {
		return nil, err
	}
	switch expr.Op {
	case token.EQL:
		return equal(left, right), nil
	case token.NEQ:
		return !equal(left, right), nil
	case token.LSS, token.LEQ, token.GTR, token.GEQ:
		cmp, err := compare(left, right)
		if err != nil {
			return nil, err
		}
		switch expr.Op {
		case token.LSS:
			return cmp < 0, nil
		case token.LEQ:
			return cmp <= 0, nil
		case token.GTR:
			return cmp > 0, nil
		}
		return cmp >= 0, nil
	case token.ADD:
		if l, ok := left.(string); ok {
			return l + fmt.Sprint(right), nil
		}
	}
	l, lok := toFloat(left)
	r, rok := toFloat(right)
	if !lok || !rok {
		return nil, fmt.Errorf("operator %v needs numbers, got %v and %v", expr.Op, left, right)
	}
	switch expr.Op {
	case token.ADD:
		return l + r, nil
	case token.SUB:
		return l - r, nil
	case token.MUL:
		return l * r, nil
	case token.QUO:
		if r == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return l / r, nil
	case token.REM:
		if int64(r) == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return float64(int64(l) % int64(r)), nil
	}
	return nil, fmt.Errorf("unsupported operator %v", expr.Op)
}

func member(parent interface{}, name string) interface{} {
	switch actual := parent.(type) {
	case map[string]interface{}:
		return actual[name]
	case map[string]string:
		return actual[name]
	}
	return nil
}

func index(parent, key interface{}) interface{} {
	if name, ok := key.(string); ok {
		return member(parent, name)
	}
	position, ok := toFloat(key)
	if !ok || parent == nil {
		return nil
	}
	v := reflect.ValueOf(parent)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		i := int(position)
		if i < 0 || i >= v.Len() {
			return nil
		}
		return v.Index(i).Interface()
	}
	return nil
}

func equal(left, right interface{}) bool {
	if l, ok := toFloat(left); ok {
		if r, ok := toFloat(right); ok {
			return l == r
		}
	}
	return reflect.DeepEqual(left, right)
}

func compare(left, right interface{}) (int, error) {
	if l, ok := toFloat(left); ok {
		if r, ok := toFloat(right); ok {
			switch {
			case l < r:
				return -1, nil
			case l > r:
				return 1, nil
			}
			return 0, nil
		}
	}
	l, lok := left.(string)
	r, rok := right.(string)
	if lok && rok {
		return strings.Compare(l, r), nil
	}
	return 0, fmt.Errorf("cannot compare %v and %v", left, right)
}

func toFloat(value interface{}) (float64, bool) {
	switch actual := value.(type) {
	case float64:
		return actual, true
	case float32:
		return float64(actual), true
	case int:
		return float64(actual), true
	case int32:
		return float64(actual), true
	case int64:
		return float64(actual), true
	case uint:
		return float64(actual), true
	case uint64:
		return float64(actual), true
	}
	return 0, false
}

func truthy(value interface{}) bool {
	switch actual := value.(type) {
	case nil:
		return false
	case bool:
		return actual
	case string:
		return actual != ""
	}
	if number, ok := toFloat(value); ok {
		return number != 0
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() > 0
	}
	return true
}
