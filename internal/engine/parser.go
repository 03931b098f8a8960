package engine

import (
	"github.com/SimonWaldherr/tinycol/internal/sqlerr"
	"github.com/SimonWaldherr/tinycol/internal/storage"
)

// Parse tokenizes and parses exactly one SQL statement. A trailing ';' is
// allowed; anything after it is a parse error.
func Parse(sql string) (Statement, error) {
	toks, err := Tokenize(sql)
	if err != nil {
		return nil, err
	}
	return ParseTokens(toks)
}

// ParseTokens parses a token slice produced by Tokenize. The slice is not
// modified, so the same tokens may be parsed concurrently.
func ParseTokens(toks []Token) (Statement, error) {
	if len(toks) == 0 || toks[len(toks)-1].Type != TokEOF {
		toks = append(append([]Token(nil), toks...), Token{Type: TokEOF})
	}
	stmt, c, err := parseStatement(cursor{toks: toks})
	if err != nil {
		return nil, err
	}
	if c.isPunct(";") {
		c = c.advance()
	}
	if !c.atEOF() {
		return nil, c.expected("end of statement")
	}
	return stmt, nil
}

// cursor is an immutable position in a token slice. Every grammar rule takes
// a cursor and returns the advanced one, so no parse state is shared.
type cursor struct {
	toks []Token
	i    int
}

func (c cursor) tok() Token  { return c.toks[c.i] }
func (c cursor) atEOF() bool { return c.tok().Type == TokEOF }

func (c cursor) advance() cursor {
	if !c.atEOF() {
		c.i++
	}
	return c
}

func (c cursor) isKeyword(kw string) bool {
	t := c.tok()
	return t.Type == TokKeyword && t.Val == kw
}

func (c cursor) isPunct(p string) bool {
	t := c.tok()
	return t.Type == TokPunct && t.Val == p
}

func (c cursor) isOp(op string) bool {
	t := c.tok()
	return t.Type == TokOperator && t.Val == op
}

func (c cursor) expected(what string) error {
	t := c.tok()
	return sqlerr.Parsef(t.Pos, "expected %s, found %s", what, t.describe())
}

func expectKeyword(c cursor, kw string) (cursor, error) {
	if !c.isKeyword(kw) {
		return c, c.expected(kw)
	}
	return c.advance(), nil
}

func expectPunct(c cursor, p string) (cursor, error) {
	if !c.isPunct(p) {
		return c, c.expected("'" + p + "'")
	}
	return c.advance(), nil
}

func parseIdent(c cursor, what string) (string, cursor, error) {
	if c.tok().Type != TokIdent {
		return "", c, c.expected(what)
	}
	return c.tok().Val, c.advance(), nil
}

// ------------------------------ statements ------------------------------

func parseStatement(c cursor) (Statement, cursor, error) {
	switch {
	case c.isKeyword("CREATE"):
		return parseCreateTable(c)
	case c.isKeyword("INSERT"):
		return parseInsert(c)
	case c.isKeyword("UPDATE"):
		return parseUpdate(c)
	case c.isKeyword("DELETE"):
		return parseDelete(c)
	case c.isKeyword("SELECT"):
		return parseSelect(c)
	}
	return nil, c, c.expected("CREATE, INSERT, UPDATE, DELETE or SELECT")
}

// CREATE TABLE name (col type [NULL | NOT NULL], ...)
func parseCreateTable(c cursor) (Statement, cursor, error) {
	c, err := expectKeyword(c.advance(), "TABLE")
	if err != nil {
		return nil, c, err
	}
	name, c, err := parseIdent(c, "table name")
	if err != nil {
		return nil, c, err
	}
	if c, err = expectPunct(c, "("); err != nil {
		return nil, c, err
	}
	var cols []ColumnDef
	for {
		var def ColumnDef
		def, c, err = parseColumnDef(c)
		if err != nil {
			return nil, c, err
		}
		cols = append(cols, def)
		if c.isPunct(",") {
			c = c.advance()
			continue
		}
		if c, err = expectPunct(c, ")"); err != nil {
			return nil, c, err
		}
		return &CreateTable{Name: name, Cols: cols}, c, nil
	}
}

func parseColumnDef(c cursor) (ColumnDef, cursor, error) {
	name, c, err := parseIdent(c, "column name")
	if err != nil {
		return ColumnDef{}, c, err
	}
	typ, c, err := parseIdent(c, "column type")
	if err != nil {
		return ColumnDef{}, c, err
	}
	def := ColumnDef{Name: name, TypeName: typ}
	switch {
	case c.isKeyword("NULL"):
		c = c.advance()
	case c.isKeyword("NOT"):
		if c, err = expectKeyword(c.advance(), "NULL"); err != nil {
			return ColumnDef{}, c, err
		}
		def.NotNull = true
	}
	return def, c, nil
}

// INSERT INTO name [(col, ...)] VALUES (expr, ...)
func parseInsert(c cursor) (Statement, cursor, error) {
	c, err := expectKeyword(c.advance(), "INTO")
	if err != nil {
		return nil, c, err
	}
	table, c, err := parseIdent(c, "table name")
	if err != nil {
		return nil, c, err
	}
	var cols []string
	if c.isPunct("(") {
		if cols, c, err = parseIdentList(c.advance(), "column name"); err != nil {
			return nil, c, err
		}
		if c, err = expectPunct(c, ")"); err != nil {
			return nil, c, err
		}
	}
	if c, err = expectKeyword(c, "VALUES"); err != nil {
		return nil, c, err
	}
	if c, err = expectPunct(c, "("); err != nil {
		return nil, c, err
	}
	var vals []Expr
	for {
		var e Expr
		if e, c, err = parseExpr(c); err != nil {
			return nil, c, err
		}
		vals = append(vals, e)
		if c.isPunct(",") {
			c = c.advance()
			continue
		}
		break
	}
	if c, err = expectPunct(c, ")"); err != nil {
		return nil, c, err
	}
	return &Insert{Table: table, Cols: cols, Vals: vals}, c, nil
}

func parseIdentList(c cursor, what string) ([]string, cursor, error) {
	var out []string
	for {
		id, next, err := parseIdent(c, what)
		if err != nil {
			return nil, next, err
		}
		out = append(out, id)
		c = next
		if !c.isPunct(",") {
			return out, c, nil
		}
		c = c.advance()
	}
}

// UPDATE name SET col = expr [, ...] [WHERE predicate]
func parseUpdate(c cursor) (Statement, cursor, error) {
	table, c, err := parseIdent(c.advance(), "table name")
	if err != nil {
		return nil, c, err
	}
	if c, err = expectKeyword(c, "SET"); err != nil {
		return nil, c, err
	}
	var sets []Assignment
	for {
		var col string
		if col, c, err = parseIdent(c, "column name"); err != nil {
			return nil, c, err
		}
		if !c.isOp("=") {
			return nil, c, c.expected("'='")
		}
		var e Expr
		if e, c, err = parseExpr(c.advance()); err != nil {
			return nil, c, err
		}
		sets = append(sets, Assignment{Col: col, Expr: e})
		if !c.isPunct(",") {
			break
		}
		c = c.advance()
	}
	where, c, err := parseOptionalWhere(c)
	if err != nil {
		return nil, c, err
	}
	return &Update{Table: table, Sets: sets, Where: where}, c, nil
}

// DELETE FROM name [WHERE predicate]
func parseDelete(c cursor) (Statement, cursor, error) {
	c, err := expectKeyword(c.advance(), "FROM")
	if err != nil {
		return nil, c, err
	}
	table, c, err := parseIdent(c, "table name")
	if err != nil {
		return nil, c, err
	}
	where, c, err := parseOptionalWhere(c)
	if err != nil {
		return nil, c, err
	}
	return &Delete{Table: table, Where: where}, c, nil
}

// SELECT col_list | * FROM name [WHERE p] [ORDER BY col [ASC|DESC], ...] [LIMIT n]
func parseSelect(c cursor) (Statement, cursor, error) {
	c = c.advance()
	sel := &Select{}
	var err error
	if c.isOp("*") {
		sel.Star = true
		c = c.advance()
	} else if sel.Cols, c, err = parseIdentList(c, "column name or '*'"); err != nil {
		return nil, c, err
	}
	if c, err = expectKeyword(c, "FROM"); err != nil {
		return nil, c, err
	}
	if sel.Table, c, err = parseIdent(c, "table name"); err != nil {
		return nil, c, err
	}
	if sel.Where, c, err = parseOptionalWhere(c); err != nil {
		return nil, c, err
	}
	if sel.OrderBy, c, err = parseOrderBy(c); err != nil {
		return nil, c, err
	}
	if sel.Limit, c, err = parseLimit(c); err != nil {
		return nil, c, err
	}
	return sel, c, nil
}

func parseOptionalWhere(c cursor) (Expr, cursor, error) {
	if !c.isKeyword("WHERE") {
		return nil, c, nil
	}
	return parseExpr(c.advance())
}

func parseOrderBy(c cursor) ([]OrderItem, cursor, error) {
	if !c.isKeyword("ORDER") {
		return nil, c, nil
	}
	c, err := expectKeyword(c.advance(), "BY")
	if err != nil {
		return nil, c, err
	}
	var items []OrderItem
	for {
		var col string
		if col, c, err = parseIdent(c, "ORDER BY column"); err != nil {
			return nil, c, err
		}
		item := OrderItem{Col: col}
		switch {
		case c.isKeyword("ASC"):
			c = c.advance()
		case c.isKeyword("DESC"):
			item.Desc = true
			c = c.advance()
		}
		items = append(items, item)
		if !c.isPunct(",") {
			return items, c, nil
		}
		c = c.advance()
	}
}

func parseLimit(c cursor) (*int64, cursor, error) {
	if !c.isKeyword("LIMIT") {
		return nil, c, nil
	}
	c = c.advance()
	if c.tok().Type != TokInt {
		return nil, c, c.expected("non-negative integer after LIMIT")
	}
	n := c.tok().Int
	return &n, c.advance(), nil
}

// ------------------------------ expressions ------------------------------
//
// Precedence, lowest first: OR, AND, NOT, comparison and IS [NOT] NULL,
// + and -, * and /, unary minus.

func parseExpr(c cursor) (Expr, cursor, error) { return parseOr(c) }

func parseOr(c cursor) (Expr, cursor, error) {
	left, c, err := parseAnd(c)
	if err != nil {
		return nil, c, err
	}
	for c.isKeyword("OR") {
		var right Expr
		if right, c, err = parseAnd(c.advance()); err != nil {
			return nil, c, err
		}
		left = &Binary{Op: "OR", Left: left, Right: right}
	}
	return left, c, nil
}

func parseAnd(c cursor) (Expr, cursor, error) {
	left, c, err := parseNot(c)
	if err != nil {
		return nil, c, err
	}
	for c.isKeyword("AND") {
		var right Expr
		if right, c, err = parseNot(c.advance()); err != nil {
			return nil, c, err
		}
		left = &Binary{Op: "AND", Left: left, Right: right}
	}
	return left, c, nil
}

func parseNot(c cursor) (Expr, cursor, error) {
	if !c.isKeyword("NOT") {
		return parseComparison(c)
	}
	x, c, err := parseNot(c.advance())
	if err != nil {
		return nil, c, err
	}
	return &Unary{Op: "NOT", X: x}, c, nil
}

var comparisonOps = map[string]bool{"=": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true}

// parseComparison accepts at most one comparison; a = b = c is rejected.
func parseComparison(c cursor) (Expr, cursor, error) {
	left, c, err := parseAdditive(c)
	if err != nil {
		return nil, c, err
	}
	if c.isKeyword("IS") {
		c = c.advance()
		negate := false
		if c.isKeyword("NOT") {
			negate = true
			c = c.advance()
		}
		if c, err = expectKeyword(c, "NULL"); err != nil {
			return nil, c, err
		}
		return &IsNull{X: left, Negate: negate}, c, nil
	}
	t := c.tok()
	if t.Type != TokOperator || !comparisonOps[t.Val] {
		return left, c, nil
	}
	right, c, err := parseAdditive(c.advance())
	if err != nil {
		return nil, c, err
	}
	return &Binary{Op: t.Val, Left: left, Right: right}, c, nil
}

func parseAdditive(c cursor) (Expr, cursor, error) {
	left, c, err := parseMultiplicative(c)
	if err != nil {
		return nil, c, err
	}
	for c.isOp("+") || c.isOp("-") {
		op := c.tok().Val
		var right Expr
		if right, c, err = parseMultiplicative(c.advance()); err != nil {
			return nil, c, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
	return left, c, nil
}

func parseMultiplicative(c cursor) (Expr, cursor, error) {
	left, c, err := parseUnary(c)
	if err != nil {
		return nil, c, err
	}
	for c.isOp("*") || c.isOp("/") {
		op := c.tok().Val
		var right Expr
		if right, c, err = parseUnary(c.advance()); err != nil {
			return nil, c, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
	return left, c, nil
}

func parseUnary(c cursor) (Expr, cursor, error) {
	if c.isOp("-") {
		x, next, err := parseUnary(c.advance())
		if err != nil {
			return nil, next, err
		}
		return &Unary{Op: "-", X: x}, next, nil
	}
	if c.isOp("+") {
		return parseUnary(c.advance())
	}
	return parsePrimary(c)
}

func parsePrimary(c cursor) (Expr, cursor, error) {
	t := c.tok()
	switch t.Type {
	case TokInt:
		return &Literal{Val: storage.IntValue(t.Int)}, c.advance(), nil
	case TokFloat:
		return &Literal{Val: storage.FloatValue(t.Float)}, c.advance(), nil
	case TokString:
		return &Literal{Val: storage.StringValue(t.Val)}, c.advance(), nil
	case TokIdent:
		return &ColumnRef{Name: t.Val}, c.advance(), nil
	case TokKeyword:
		switch t.Val {
		case "NULL":
			return &Literal{Val: storage.NullValue()}, c.advance(), nil
		case "TRUE":
			return &Literal{Val: storage.BoolValue(true)}, c.advance(), nil
		case "FALSE":
			return &Literal{Val: storage.BoolValue(false)}, c.advance(), nil
		}
	case TokPunct:
		if t.Val == "(" {
			e, next, err := parseExpr(c.advance())
			if err != nil {
				return nil, next, err
			}
			next, err = expectPunct(next, ")")
			if err != nil {
				return nil, next, err
			}
			return e, next, nil
		}
	}
	return nil, c, c.expected("expression")
}
