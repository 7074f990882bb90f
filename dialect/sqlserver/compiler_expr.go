package sqlserver

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/syssam/sqlsrv"
	"github.com/syssam/sqlsrv/sqldom"
)

// Operator precedence, loosest first.
const (
	precOr = iota + 1
	precAnd
	precNot
	precCompare
	precAdd
	precMul
	precUnary
	precAtom
)

func precedence(e sqldom.Expression) int {
	switch e := e.(type) {
	case *sqldom.Binary:
		switch e.Op {
		case sqldom.OpOr:
			return precOr
		case sqldom.OpAnd:
			return precAnd
		case sqldom.OpEQ, sqldom.OpNEQ, sqldom.OpLT, sqldom.OpLTE, sqldom.OpGT, sqldom.OpGTE:
			return precCompare
		case sqldom.OpMultiply, sqldom.OpDivide, sqldom.OpModulo:
			return precMul
		}
		return precAdd
	case *sqldom.Unary:
		switch e.Op {
		case sqldom.OpNot:
			return precNot
		case sqldom.OpIsNull, sqldom.OpIsNotNull:
			return precCompare
		}
		return precUnary
	case *sqldom.Like, *sqldom.Between, *sqldom.In:
		return precCompare
	case *sqldom.Exists:
		if e.Not {
			return precNot
		}
	}
	return precAtom
}

func (c *Compiler) compileExpr(ctx *Context, e sqldom.Expression) error {
	switch e := e.(type) {
	case nil:
		return sqlsrv.NewValidationError("expression", "missing operand")
	case *sqldom.Literal:
		return c.compileLiteral(ctx, e.Value, e.Ansi)
	case *sqldom.Null:
		ctx.WriteString("NULL")
	case *sqldom.Parameter:
		return c.compileParameter(ctx, e)
	case *sqldom.ColumnRef:
		if e.Qualifier != "" {
			ctx.WriteString(c.translator.Quote(e.Qualifier)).WriteString(".")
		}
		if e.Name == "*" {
			ctx.WriteString("*")
		} else {
			ctx.WriteString(c.translator.Quote(e.Name))
		}
	case *sqldom.Native:
		ctx.WriteString(e.Text)
	case *sqldom.Binary:
		return c.compileBinary(ctx, e)
	case *sqldom.Unary:
		return c.compileUnary(ctx, e)
	case *sqldom.Function:
		return c.compileFunction(ctx, e)
	case *sqldom.UserFunction:
		if e.Schema != "" {
			ctx.WriteString(c.translator.QuoteName(e.Schema, e.Name))
		} else {
			ctx.WriteString(e.Name)
		}
		ctx.WriteString("(")
		if err := c.compileList(ctx, e.Args); err != nil {
			return err
		}
		ctx.WriteString(")")
	case *sqldom.Cast:
		ctx.WriteString("CAST(")
		if err := c.compileExpr(ctx, e.Operand); err != nil {
			return err
		}
		ctx.WriteString(" AS ").WriteString(c.translator.TypeName(e.Type)).WriteString(")")
	case *sqldom.Case:
		return c.compileCase(ctx, e)
	case *sqldom.Aggregate:
		return c.compileAggregate(ctx, e)
	case *sqldom.Like:
		return c.compileLike(ctx, e)
	case *sqldom.Between:
		if err := c.compileOperand(ctx, e.Operand, precAdd, false); err != nil {
			return err
		}
		ctx.WriteString(not(e.Not) + " BETWEEN ")
		if err := c.compileOperand(ctx, e.Low, precAdd, false); err != nil {
			return err
		}
		ctx.WriteString(" AND ")
		return c.compileOperand(ctx, e.High, precAdd, false)
	case *sqldom.In:
		return c.compileIn(ctx, e)
	case *sqldom.Exists:
		if e.Not {
			ctx.WriteString("NOT ")
		}
		ctx.WriteString("EXISTS (")
		if err := c.compileQuery(ctx, e.Query); err != nil {
			return err
		}
		ctx.WriteString(")")
	case *sqldom.SubQuery:
		if err := c.require(FeatureScalarSubqueries, "scalar subquery"); err != nil {
			return err
		}
		ctx.WriteString("(")
		if err := c.compileQuery(ctx, e.Query); err != nil {
			return err
		}
		ctx.WriteString(")")
	case *sqldom.Trim:
		return c.compileTrim(ctx, e)
	case *sqldom.Extract:
		return c.compileExtract(ctx, e)
	case *sqldom.Round:
		return c.compileRound(ctx, e)
	case *sqldom.RowNumber:
		if err := c.require(FeatureRowNumber, "ROW_NUMBER"); err != nil {
			return err
		}
		ctx.WriteString("ROW_NUMBER() OVER (ORDER BY ")
		if len(e.OrderBy) == 0 {
			ctx.WriteString("(SELECT 0)")
		}
		if err := c.compileOrder(ctx, e.OrderBy); err != nil {
			return err
		}
		ctx.WriteString(")")
	default:
		return c.unsupported(fmt.Sprintf("expression %T", e))
	}
	return nil
}

func not(b bool) string {
	if b {
		return " NOT"
	}
	return ""
}

// compileOperand compiles e, parenthesized when it binds looser than min
// (or equally loose with strict).
func (c *Compiler) compileOperand(ctx *Context, e sqldom.Expression, min int, strict bool) error {
	p := precedence(e)
	if p < min || strict && p == min {
		ctx.WriteString("(")
		defer ctx.WriteString(")")
	}
	return c.compileExpr(ctx, e)
}

// operand returns the text of e as an operand of the given precedence.
func (c *Compiler) operand(ctx *Context, e sqldom.Expression, min int) (string, error) {
	return ctx.capture(func() error {
		return c.compileOperand(ctx, e, min, false)
	})
}

func (c *Compiler) compileLiteral(ctx *Context, v any, ansi bool) error {
	s, err := c.translator.Literal(v, ansi)
	if err != nil {
		return err
	}
	if strings.HasPrefix(s, "-") {
		s = "(" + s + ")"
	}
	ctx.WriteString(s)
	return nil
}

func (c *Compiler) compileParameter(ctx *Context, p *sqldom.Parameter) error {
	if ctx.inline {
		return c.compileLiteral(ctx, p.Value, p.Ansi)
	}
	typ := c.types.ParameterType(p.Value, p.Type)
	name, ok := ctx.names[p]
	if !ok {
		v, err := c.types.Bind(p.Value, typ.Kind, p.Ansi)
		if err != nil {
			return err
		}
		prefix := c.manifest.ParameterPrefix()
		if p.Name != "" {
			name = prefix + strings.TrimLeft(p.Name, prefix)
			if ctx.bound(name) {
				return sqlsrv.NewValidationError("parameter", "name is bound to another value", name)
			}
		} else {
			for n := len(ctx.params) + 1; name == "" || ctx.bound(name); n++ {
				name = prefix + "p" + strconv.Itoa(n)
			}
		}
		ctx.params = append(ctx.params, Parameter{Name: name, Value: v, Type: typ, Declared: c.types.DeclaredName(typ, p.Ansi)})
		ctx.names[p] = name
	}
	if c.types.RequiresCast(typ.Kind) {
		ctx.WriteString("CAST(").WriteString(name).WriteString(" AS ").WriteString(c.translator.TypeName(typ)).WriteString(")")
		return nil
	}
	ctx.WriteString(name)
	return nil
}

func (c *Compiler) compileBinary(ctx *Context, e *sqldom.Binary) error {
	p := precedence(e)
	if err := c.compileOperand(ctx, e.Left, p, p == precCompare); err != nil {
		return err
	}
	ctx.WriteString(" ").WriteString(c.translator.BinaryOp(e.Op)).WriteString(" ")
	strict := p == precCompare
	switch e.Op {
	case sqldom.OpSubtract, sqldom.OpDivide, sqldom.OpModulo:
		strict = true
	}
	return c.compileOperand(ctx, e.Right, p, strict)
}

func (c *Compiler) compileUnary(ctx *Context, e *sqldom.Unary) error {
	switch e.Op {
	case sqldom.OpNot:
		ctx.WriteString("NOT ")
		return c.compileOperand(ctx, e.Operand, precNot, false)
	case sqldom.OpIsNull, sqldom.OpIsNotNull:
		if err := c.compileOperand(ctx, e.Operand, precAdd, false); err != nil {
			return err
		}
		if e.Op == sqldom.OpIsNull {
			ctx.WriteString(" IS NULL")
		} else {
			ctx.WriteString(" IS NOT NULL")
		}
		return nil
	case sqldom.OpNegate:
		ctx.WriteString("-")
	case sqldom.OpBitNot:
		ctx.WriteString("~")
	default:
		return c.unsupported(fmt.Sprintf("unary operator %d", e.Op))
	}
	switch e.Operand.(type) {
	case *sqldom.ColumnRef, *sqldom.Parameter:
		return c.compileExpr(ctx, e.Operand)
	}
	ctx.WriteString("(")
	defer ctx.WriteString(")")
	return c.compileExpr(ctx, e.Operand)
}

func (c *Compiler) compileCase(ctx *Context, e *sqldom.Case) error {
	if len(e.Whens) == 0 {
		return sqlsrv.NewValidationError("case", "no WHEN branches")
	}
	ctx.WriteString("CASE")
	if e.Operand != nil {
		ctx.WriteString(" ")
		if err := c.compileExpr(ctx, e.Operand); err != nil {
			return err
		}
	}
	for _, w := range e.Whens {
		ctx.WriteString(" WHEN ")
		if err := c.compileExpr(ctx, w.Cond); err != nil {
			return err
		}
		ctx.WriteString(" THEN ")
		if err := c.compileExpr(ctx, w.Result); err != nil {
			return err
		}
	}
	if e.Else != nil {
		ctx.WriteString(" ELSE ")
		if err := c.compileExpr(ctx, e.Else); err != nil {
			return err
		}
	}
	ctx.WriteString(" END")
	return nil
}

func (c *Compiler) compileAggregate(ctx *Context, e *sqldom.Aggregate) error {
	ctx.WriteString(c.translator.Aggregate(e.Kind)).WriteString("(")
	if e.Distinct {
		ctx.WriteString("DISTINCT ")
	}
	switch {
	case e.Arg != nil:
		if err := c.compileExpr(ctx, e.Arg); err != nil {
			return err
		}
	case e.Kind == sqldom.Count || e.Kind == sqldom.CountBig:
		ctx.WriteString("*")
	default:
		return sqlsrv.NewValidationError("aggregate", "missing argument", c.translator.Aggregate(e.Kind))
	}
	ctx.WriteString(")")
	return nil
}

func (c *Compiler) compileLike(ctx *Context, e *sqldom.Like) error {
	if err := c.compileOperand(ctx, e.Operand, precAdd, false); err != nil {
		return err
	}
	ctx.WriteString(not(e.Not) + " LIKE ")
	if err := c.compileOperand(ctx, e.Pattern, precAdd, false); err != nil {
		return err
	}
	if e.Escape != 0 {
		ctx.WriteString(" ESCAPE ").WriteString(StringLiteral(string(e.Escape), false))
	}
	return nil
}

func (c *Compiler) compileIn(ctx *Context, e *sqldom.In) error {
	if e.Query == nil && len(e.Values) == 0 {
		if e.Not {
			ctx.WriteString("1 = 1")
		} else {
			ctx.WriteString("1 = 0")
		}
		return nil
	}
	if err := c.compileOperand(ctx, e.Operand, precAdd, false); err != nil {
		return err
	}
	ctx.WriteString(not(e.Not) + " IN (")
	var err error
	if e.Query != nil {
		err = c.compileQuery(ctx, e.Query)
	} else {
		err = c.compileList(ctx, e.Values)
	}
	ctx.WriteString(")")
	return err
}

func (c *Compiler) compileTrim(ctx *Context, e *sqldom.Trim) error {
	if strings.Trim(e.Chars, " ") != "" {
		return sqlsrv.NewValidationError("trim", fmt.Sprintf("cannot trim %q, only the space character is supported", e.Chars))
	}
	x, err := c.operand(ctx, e.Operand, 0)
	if err != nil {
		return err
	}
	switch {
	case e.Kind == sqldom.TrimLeading:
		ctx.WriteString("LTRIM(" + x + ")")
	case e.Kind == sqldom.TrimTrailing:
		ctx.WriteString("RTRIM(" + x + ")")
	case c.manifest.Supports(FeatureTrimFunction):
		ctx.WriteString("TRIM(" + x + ")")
	default:
		ctx.WriteString("LTRIM(RTRIM(" + x + "))")
	}
	return nil
}

// functionArity holds the minimum and maximum argument counts of neutral
// functions; -1 is unbounded. Functions not listed take one argument.
var functionArity = map[sqldom.FunctionType][2]int{
	sqldom.FnPower:                    {2, 2},
	sqldom.FnLog:                      {1, 2},
	sqldom.FnCoalesce:                 {1, -1},
	sqldom.FnConcat:                   {1, -1},
	sqldom.FnSubstring:                {2, 3},
	sqldom.FnReplace:                  {3, 3},
	sqldom.FnPosition:                 {2, 2},
	sqldom.FnPadLeft:                  {2, 3},
	sqldom.FnPadRight:                 {2, 3},
	sqldom.FnCurrentDate:              {0, 0},
	sqldom.FnCurrentTime:              {0, 0},
	sqldom.FnCurrentDateTime:          {0, 0},
	sqldom.FnNewGuid:                  {0, 0},
	sqldom.FnLastAutoGeneratedID:      {0, 0},
	sqldom.FnDateTimeAddYears:         {2, 2},
	sqldom.FnDateTimeAddMonths:        {2, 2},
	sqldom.FnDateTimeAddInterval:      {2, 2},
	sqldom.FnDateTimeSubtractInterval: {2, 2},
	sqldom.FnDateTimeSubtractDateTime: {2, 2},
	sqldom.FnDateTimeConstruct:        {3, 7},
	sqldom.FnDateConstruct:            {3, 3},
	sqldom.FnTimeConstruct:            {3, 4},
}

func checkArity(e *sqldom.Function) error {
	arity, ok := functionArity[e.Type]
	if !ok {
		arity = [2]int{1, 1}
	}
	if n := len(e.Args); n < arity[0] || arity[1] >= 0 && n > arity[1] {
		return sqlsrv.NewValidationError("function", fmt.Sprintf("%d arguments given", n), e.Type.String())
	}
	return nil
}

func (c *Compiler) compileFunction(ctx *Context, e *sqldom.Function) error {
	if err := checkArity(e); err != nil {
		return err
	}
	switch e.Type {
	case sqldom.FnCharLength:
		return c.compileCharLength(ctx, e.Args[0])
	case sqldom.FnPadLeft, sqldom.FnPadRight:
		return c.compilePad(ctx, e)
	case sqldom.FnTruncate:
		x, err := c.operand(ctx, e.Args[0], 0)
		if err != nil {
			return err
		}
		ctx.WriteString(c.truncate(x))
		return nil
	case sqldom.FnConcat:
		if name, ok := c.translator.Function(e.Type); ok && c.manifest.Supports(FeatureConcatFunction) && len(e.Args) > 1 {
			return c.compileCall(ctx, name, e.Args)
		}
		return c.compileJoined(ctx, e.Args, " + ")
	case sqldom.FnSubstring:
		if len(e.Args) == 2 {
			length := sqldom.Call(sqldom.FnBinaryLength, e.Args[0])
			return c.compileCall(ctx, "SUBSTRING", []sqldom.Expression{e.Args[0], e.Args[1], length})
		}
	case sqldom.FnIntervalConstruct:
		return c.compileExpr(ctx, &sqldom.Cast{Operand: e.Args[0], Type: intervalType})
	case sqldom.FnIntervalNegate:
		return c.compileExpr(ctx, &sqldom.Unary{Op: sqldom.OpNegate, Operand: e.Args[0]})
	case sqldom.FnIntervalToNanoseconds:
		return c.compileExpr(ctx, e.Args[0])
	case sqldom.FnIntervalToMilliseconds:
		return c.compileExpr(ctx, &sqldom.Binary{Op: sqldom.OpDivide, Left: e.Args[0], Right: sqldom.Lit(nsPerMillisecond)})
	case sqldom.FnDateTimeAddYears, sqldom.FnDateTimeAddMonths, sqldom.FnDateTimeAddInterval,
		sqldom.FnDateTimeSubtractInterval, sqldom.FnDateTimeSubtractDateTime, sqldom.FnDateTimeConstruct,
		sqldom.FnDateConstruct, sqldom.FnTimeConstruct, sqldom.FnDateTimeTruncate:
		return c.compileDateFunction(ctx, e)
	}
	name, ok := c.translator.Function(e.Type)
	if !ok {
		return c.unsupported(e.Type.String())
	}
	if strings.Contains(name, "(") {
		ctx.WriteString(name)
		return nil
	}
	return c.compileCall(ctx, name, e.Args)
}

// compileCall writes name(args...).
func (c *Compiler) compileCall(ctx *Context, name string, args []sqldom.Expression) error {
	ctx.WriteString(name).WriteString("(")
	if err := c.compileList(ctx, args); err != nil {
		return err
	}
	ctx.WriteString(")")
	return nil
}

func (c *Compiler) compileJoined(ctx *Context, args []sqldom.Expression, sep string) error {
	if len(args) > 1 {
		ctx.WriteString("(")
		defer ctx.WriteString(")")
	}
	for i, a := range args {
		if i > 0 {
			ctx.WriteString(sep)
		}
		if err := c.compileOperand(ctx, a, precAdd, i > 0); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileCharLength(ctx *Context, arg sqldom.Expression) error {
	x, err := c.operand(ctx, arg, 0)
	if err != nil {
		return err
	}
	if c.manifest.Supports(FeatureCharLength) {
		ctx.WriteString("CHAR_LENGTH(" + x + ")")
		return nil
	}
	length, _ := c.translator.Function(sqldom.FnBinaryLength)
	ctx.WriteString("(" + length + "(" + x + ") / 2)")
	return nil
}

func (c *Compiler) compilePad(ctx *Context, e *sqldom.Function) error {
	x, err := c.operand(ctx, e.Args[0], precAdd)
	if err != nil {
		return err
	}
	n, err := c.operand(ctx, e.Args[1], precAdd)
	if err != nil {
		return err
	}
	fill := StringLiteral(" ", false)
	if len(e.Args) == 3 {
		if fill, err = c.operand(ctx, e.Args[2], 0); err != nil {
			return err
		}
	}
	padding := fmt.Sprintf("REPLICATE(%s, %s - LEN(%s))", fill, n, x)
	padded := padding + " + " + x
	if e.Type == sqldom.FnPadRight {
		padded = x + " + " + padding
	}
	ctx.WriteString(fmt.Sprintf("CASE WHEN LEN(%s) < %s THEN %s ELSE %s END", x, n, padded, x))
	return nil
}

// truncate returns x rounded toward zero.
func (c *Compiler) truncate(x string) string {
	if c.manifest.Supports(FeatureRoundTruncate) {
		return "ROUND(" + x + ", 0, 1)"
	}
	return fmt.Sprintf("CASE WHEN %s >= 0 THEN FLOOR(%s) ELSE CEILING(%s) END", x, x, x)
}

func (c *Compiler) compileRound(ctx *Context, e *sqldom.Round) error {
	digits := int64(0)
	literalDigits := true
	if e.Digits != nil {
		digits, literalDigits = intLiteral(e.Digits)
	}
	if v, ok := numericLiteral(e.Operand); ok && literalDigits {
		if digits < math.MinInt32 || digits > math.MaxInt32 {
			return sqlsrv.NewValidationError("round", "digits out of range")
		}
		if e.Mode == sqldom.BankersRound {
			return c.compileLiteral(ctx, v.RoundBank(int32(digits)), false)
		}
		return c.compileLiteral(ctx, v.Round(int32(digits)), false)
	}
	x, err := c.operand(ctx, e.Operand, precMul)
	if err != nil {
		return err
	}
	d := "0"
	if e.Digits != nil {
		if d, err = c.operand(ctx, e.Digits, 0); err != nil {
			return err
		}
	}
	if e.Mode == sqldom.AwayFromZero || c.manifest.Supports(FeatureBankersRound) {
		ctx.WriteString("ROUND(" + x + ", " + d + ")")
		return nil
	}
	// Half-to-even: an exact half rounds y/2 to an integer and doubles it.
	y, scale := x, ""
	switch {
	case !literalDigits:
		scale = "POWER(CAST(10 AS decimal(38,10)), " + d + ")"
	case digits != 0:
		scale = decimal.New(1, int32(digits)).String()
	}
	if scale != "" {
		y = "(" + x + " * " + scale + ")"
	}
	expr := fmt.Sprintf("CASE WHEN ABS(%s - %s) = 0.5 THEN ROUND(%s / 2, 0) * 2 ELSE ROUND(%s, 0) END", y, c.truncate(y), y, y)
	if scale != "" {
		expr = "(" + expr + " / " + scale + ")"
	}
	ctx.WriteString(expr)
	return nil
}

// intLiteral returns the value of an integer literal.
func intLiteral(e sqldom.Expression) (int64, bool) {
	l, ok := e.(*sqldom.Literal)
	if !ok {
		return 0, false
	}
	switch v := l.Value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), v <= math.MaxInt64
	}
	return 0, false
}

// numericLiteral returns the value of a numeric literal as a decimal.
func numericLiteral(e sqldom.Expression) (decimal.Decimal, bool) {
	if n, ok := intLiteral(e); ok {
		return decimal.NewFromInt(n), true
	}
	l, ok := e.(*sqldom.Literal)
	if !ok {
		return decimal.Decimal{}, false
	}
	switch v := l.Value.(type) {
	case decimal.Decimal:
		return v, true
	case float64:
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return decimal.NewFromFloat(v), true
		}
	case float32:
		return decimal.NewFromFloat32(v), true
	}
	return decimal.Decimal{}, false
}
