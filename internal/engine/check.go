package engine

import (
	"github.com/SimonWaldherr/tinycol/internal/sqlerr"
	"github.com/SimonWaldherr/tinycol/internal/storage"
)

// checkExpr infers the static kind of e against table t. A nil table means
// no columns are in scope (INSERT ... VALUES). KindNull is returned for
// expressions that are always NULL, which are compatible with every type.
//
// Every type error is reported here, before any row is read or written, so
// statements fail the same way on empty and populated tables.
func checkExpr(t *storage.Table, e Expr) (storage.Kind, error) {
	switch ex := e.(type) {
	case *Literal:
		return ex.Val.Kind(), nil
	case *ColumnRef:
		if t == nil {
			return 0, sqlerr.Execf("column reference %q is not allowed here", ex.Name)
		}
		i, err := t.ColIndex(ex.Name)
		if err != nil {
			return 0, err
		}
		return t.Schema().Column(i).Type.Kind(), nil
	case *IsNull:
		if _, err := checkExpr(t, ex.X); err != nil {
			return 0, err
		}
		return storage.KindBool, nil
	case *Unary:
		return checkUnary(t, ex)
	case *Binary:
		return checkBinary(t, ex)
	}
	return 0, sqlerr.Execf("unsupported expression %T", e)
}

func checkUnary(t *storage.Table, ex *Unary) (storage.Kind, error) {
	k, err := checkExpr(t, ex.X)
	if err != nil {
		return 0, err
	}
	switch ex.Op {
	case "NOT":
		if k != storage.KindBool && k != storage.KindNull {
			return 0, sqlerr.Execf("NOT expects BOOL, got %s in %s", k, ex)
		}
		return storage.KindBool, nil
	case "-":
		if !k.Numeric() && k != storage.KindNull {
			return 0, sqlerr.Execf("unary minus expects a number, got %s in %s", k, ex)
		}
		return k, nil
	}
	return 0, sqlerr.Execf("unknown unary operator %s", ex.Op)
}

func checkBinary(t *storage.Table, ex *Binary) (storage.Kind, error) {
	l, err := checkExpr(t, ex.Left)
	if err != nil {
		return 0, err
	}
	r, err := checkExpr(t, ex.Right)
	if err != nil {
		return 0, err
	}
	switch ex.Op {
	case "AND", "OR":
		for _, k := range []storage.Kind{l, r} {
			if k != storage.KindBool && k != storage.KindNull {
				return 0, sqlerr.Execf("%s expects BOOL operands, got %s in %s", ex.Op, k, ex)
			}
		}
		return storage.KindBool, nil
	case "=", "!=", "<", "<=", ">", ">=":
		if !comparable(l, r) {
			return 0, sqlerr.Execf("cannot compare %s with %s in %s", l, r, ex)
		}
		return storage.KindBool, nil
	case "+", "-", "*", "/":
		return checkArithmetic(l, r, ex)
	}
	return 0, sqlerr.Execf("unknown operator %s", ex.Op)
}

// comparable allows numeric comparison across INT and FLOAT; all other
// kinds compare only with themselves. NULL compares with anything.
func comparable(l, r storage.Kind) bool {
	if l == storage.KindNull || r == storage.KindNull {
		return true
	}
	if l.Numeric() && r.Numeric() {
		return true
	}
	return l == r
}

// checkArithmetic is strict: INT op INT is INT, FLOAT op FLOAT is FLOAT,
// and mixing the two is rejected.
func checkArithmetic(l, r storage.Kind, ex *Binary) (storage.Kind, error) {
	for _, k := range []storage.Kind{l, r} {
		if !k.Numeric() && k != storage.KindNull {
			return 0, sqlerr.Execf("%s expects numbers, got %s in %s", ex.Op, k, ex)
		}
	}
	switch {
	case l == storage.KindNull:
		return r, nil
	case r == storage.KindNull:
		return l, nil
	case l != r:
		return 0, sqlerr.Execf("cannot mix %s and %s in %s", l, r, ex)
	}
	return l, nil
}

// checkPredicate validates a WHERE clause; it must be boolean (or NULL).
func checkPredicate(t *storage.Table, e Expr) error {
	if e == nil {
		return nil
	}
	k, err := checkExpr(t, e)
	if err != nil {
		return err
	}
	if k != storage.KindBool && k != storage.KindNull {
		return sqlerr.Execf("WHERE clause must be boolean, got %s in %s", k, e)
	}
	return nil
}

// checkAssignable verifies an expression of static kind k can be stored in
// column def. NULL-kind expressions are checked against nullability later,
// per value.
func checkAssignable(def storage.ColumnDef, k storage.Kind, e Expr) error {
	if k == storage.KindNull {
		if _, isLit := e.(*Literal); isLit && !def.Nullable {
			return sqlerr.Execf("column %q does not accept NULL", def.Name)
		}
		return nil
	}
	if k != def.Type.Kind() {
		return sqlerr.Execf("column %q is %s, cannot assign %s value %s", def.Name, def.Type, k, e)
	}
	return nil
}
