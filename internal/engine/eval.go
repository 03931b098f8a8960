package engine

import (
	"math"

	"github.com/SimonWaldherr/tinycol/internal/sqlerr"
	"github.com/SimonWaldherr/tinycol/internal/storage"
)

// rowEnv binds column references to one row of a table. A nil table is the
// empty scope used for constant expressions.
type rowEnv struct {
	table *storage.Table
	row   int
}

// Three-valued logic is carried in Values: BOOL for true/false, NULL for
// unknown.
var (
	vTrue    = storage.BoolValue(true)
	vFalse   = storage.BoolValue(false)
	vUnknown = storage.NullValue()
)

type tri int

const (
	triFalse tri = iota
	triTrue
	triUnknown
)

func toTri(v storage.Value) tri {
	b, ok := v.AsBool()
	switch {
	case !ok:
		return triUnknown
	case b:
		return triTrue
	default:
		return triFalse
	}
}

func fromTri(t tri) storage.Value {
	switch t {
	case triTrue:
		return vTrue
	case triFalse:
		return vFalse
	}
	return vUnknown
}

func triNot(t tri) tri {
	switch t {
	case triTrue:
		return triFalse
	case triFalse:
		return triTrue
	}
	return triUnknown
}

func triAnd(a, b tri) tri {
	if a == triFalse || b == triFalse {
		return triFalse
	}
	if a == triTrue && b == triTrue {
		return triTrue
	}
	return triUnknown
}

func triOr(a, b tri) tri {
	if a == triTrue || b == triTrue {
		return triTrue
	}
	if a == triFalse && b == triFalse {
		return triFalse
	}
	return triUnknown
}

// matches evaluates an optional predicate; only a true result keeps the row.
func matches(env rowEnv, where Expr) (bool, error) {
	if where == nil {
		return true, nil
	}
	v, err := eval(env, where)
	if err != nil {
		return false, err
	}
	return toTri(v) == triTrue, nil
}

func eval(env rowEnv, e Expr) (storage.Value, error) {
	switch ex := e.(type) {
	case *Literal:
		return ex.Val, nil
	case *ColumnRef:
		if env.table == nil {
			return storage.Value{}, sqlerr.Execf("column reference %q is not allowed here", ex.Name)
		}
		i, err := env.table.ColIndex(ex.Name)
		if err != nil {
			return storage.Value{}, err
		}
		return env.table.Value(env.row, i), nil
	case *IsNull:
		v, err := eval(env, ex.X)
		if err != nil {
			return storage.Value{}, err
		}
		return storage.BoolValue(v.IsNull() != ex.Negate), nil
	case *Unary:
		return evalUnary(env, ex)
	case *Binary:
		return evalBinary(env, ex)
	}
	return storage.Value{}, sqlerr.Execf("unsupported expression %T", e)
}

func evalUnary(env rowEnv, ex *Unary) (storage.Value, error) {
	v, err := eval(env, ex.X)
	if err != nil {
		return storage.Value{}, err
	}
	if ex.Op == "NOT" {
		return fromTri(triNot(toTri(v))), nil
	}
	switch v.Kind() {
	case storage.KindNull:
		return v, nil
	case storage.KindInt:
		i, _ := v.AsInt()
		if i == math.MinInt64 {
			return storage.Value{}, sqlerr.Execf("integer overflow in %s", ex)
		}
		return storage.IntValue(-i), nil
	case storage.KindFloat:
		f, _ := v.AsFloat()
		return storage.FloatValue(-f), nil
	}
	return storage.Value{}, sqlerr.Execf("unary minus expects a number, got %s", v.Kind())
}

func evalBinary(env rowEnv, ex *Binary) (storage.Value, error) {
	if ex.Op == "AND" || ex.Op == "OR" {
		return evalLogical(env, ex)
	}
	lv, err := eval(env, ex.Left)
	if err != nil {
		return storage.Value{}, err
	}
	rv, err := eval(env, ex.Right)
	if err != nil {
		return storage.Value{}, err
	}
	switch ex.Op {
	case "+", "-", "*", "/":
		return evalArithmetic(ex, lv, rv)
	}
	return evalComparison(ex, lv, rv)
}

// evalLogical short-circuits: FALSE AND x and TRUE OR x skip x.
func evalLogical(env rowEnv, ex *Binary) (storage.Value, error) {
	lv, err := eval(env, ex.Left)
	if err != nil {
		return storage.Value{}, err
	}
	lt := toTri(lv)
	if ex.Op == "AND" && lt == triFalse {
		return vFalse, nil
	}
	if ex.Op == "OR" && lt == triTrue {
		return vTrue, nil
	}
	rv, err := eval(env, ex.Right)
	if err != nil {
		return storage.Value{}, err
	}
	if ex.Op == "AND" {
		return fromTri(triAnd(lt, toTri(rv))), nil
	}
	return fromTri(triOr(lt, toTri(rv))), nil
}

func evalComparison(ex *Binary, lv, rv storage.Value) (storage.Value, error) {
	if lv.IsNull() || rv.IsNull() {
		return vUnknown, nil
	}
	c, ok := storage.Compare(lv, rv)
	if !ok {
		return storage.Value{}, sqlerr.Execf("cannot compare %s with %s in %s", lv.Kind(), rv.Kind(), ex)
	}
	var r bool
	switch ex.Op {
	case "=":
		r = c == 0
	case "!=":
		r = c != 0
	case "<":
		r = c < 0
	case "<=":
		r = c <= 0
	case ">":
		r = c > 0
	case ">=":
		r = c >= 0
	default:
		return storage.Value{}, sqlerr.Execf("unknown comparison operator %s", ex.Op)
	}
	return storage.BoolValue(r), nil
}

func evalArithmetic(ex *Binary, lv, rv storage.Value) (storage.Value, error) {
	if lv.IsNull() || rv.IsNull() {
		return vUnknown, nil
	}
	if a, ok := lv.AsInt(); ok {
		if b, ok := rv.AsInt(); ok {
			n, err := intArith(ex.Op, a, b)
			if err != nil {
				return storage.Value{}, sqlerr.Execf("%v in %s", err, ex)
			}
			return storage.IntValue(n), nil
		}
	}
	a, aok := lv.AsFloat()
	b, bok := rv.AsFloat()
	if !aok || !bok {
		return storage.Value{}, sqlerr.Execf("cannot mix %s and %s in %s", lv.Kind(), rv.Kind(), ex)
	}
	var f float64
	switch ex.Op {
	case "+":
		f = a + b
	case "-":
		f = a - b
	case "*":
		f = a * b
	default:
		if b == 0 {
			return storage.Value{}, sqlerr.Execf("division by zero in %s", ex)
		}
		f = a / b
	}
	// Inf - Inf and 0 * Inf are rejected like division by zero.
	if math.IsNaN(f) {
		return storage.Value{}, sqlerr.Execf("result is not a number in %s", ex)
	}
	return storage.FloatValue(f), nil
}

type arithError string

func (e arithError) Error() string { return string(e) }

const (
	errOverflow  = arithError("integer overflow")
	errDivByZero = arithError("division by zero")
)

// intArith performs checked 64-bit arithmetic. Division truncates toward
// zero.
func intArith(op string, a, b int64) (int64, error) {
	switch op {
	case "+":
		if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
			return 0, errOverflow
		}
		return a + b, nil
	case "-":
		if (b < 0 && a > math.MaxInt64+b) || (b > 0 && a < math.MinInt64+b) {
			return 0, errOverflow
		}
		return a - b, nil
	case "*":
		if a == 0 || b == 0 {
			return 0, nil
		}
		r := a * b
		if r/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
			return 0, errOverflow
		}
		return r, nil
	case "/":
		if b == 0 {
			return 0, errDivByZero
		}
		if a == math.MinInt64 && b == -1 {
			return 0, errOverflow
		}
		return a / b, nil
	}
	return 0, arithError("unknown operator " + op)
}
