package sqlserver

import (
	"database/sql"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/syssam/sqlsrv"
	"github.com/syssam/sqlsrv/sqldom"
	"github.com/syssam/sqlsrv/sqltype"
)

// Parameter is a bound command parameter.
type Parameter struct {
	// Name includes the parameter prefix, e.g. "@p1".
	Name string
	// Value is the driver value produced by the type mapper.
	Value any
	Type  sqltype.Type
	// Declared is the native type the parameter is declared with,
	// e.g. "nvarchar(16)". Empty when the type has no native form.
	Declared string
}

// Command is the compiled text of a statement and its parameters.
type Command struct {
	Text       string
	Parameters []Parameter
}

// Args returns the parameters as named arguments for database/sql.
func (c *Command) Args() []any {
	args := make([]any, len(c.Parameters))
	for i, p := range c.Parameters {
		args[i] = sql.Named(strings.TrimLeft(p.Name, "@"), p.Value)
	}
	return args
}

// Statement returns the text and arguments to send to the server. When
// the command binds strings, the text runs through sp_executesql with
// every parameter declared at its sized type, so the server sees the
// capacity class of a string rather than the length of its value.
func (c *Command) Statement() (string, []any) {
	args := c.Args()
	sized := false
	decls := make([]string, len(c.Parameters))
	binds := make([]string, len(c.Parameters))
	for i, p := range c.Parameters {
		if p.Declared == "" {
			return c.Text, args
		}
		if p.Type.Kind == sqltype.VarChar || p.Type.Kind == sqltype.Char {
			sized = true
		}
		decls[i] = p.Name + " " + p.Declared
		binds[i] = p.Name + " = " + p.Name
	}
	if !sized {
		return c.Text, args
	}
	var b strings.Builder
	b.WriteString("EXEC sp_executesql N'")
	b.WriteString(strings.ReplaceAll(c.Text, "'", "''"))
	b.WriteString("', N'")
	b.WriteString(strings.Join(decls, ", "))
	b.WriteString("', ")
	b.WriteString(strings.Join(binds, ", "))
	return b.String(), args
}

// Compiler lowers statement trees into SQL Server text. A Compiler is
// immutable and safe for concurrent use; each call gets its own Context.
type Compiler struct {
	manifest   *Manifest
	translator *Translator
	types      *TypeMapper
	firstDay   time.Weekday
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithFirstDayOfWeek sets the day that weekday extraction maps to 0.
// The default is Sunday. The result does not depend on the server's
// DATEFIRST setting.
func WithFirstDayOfWeek(d time.Weekday) CompilerOption {
	return func(c *Compiler) {
		c.firstDay = d
	}
}

// NewCompiler returns a compiler for the manifest's version.
func NewCompiler(m *Manifest, opts ...CompilerOption) *Compiler {
	t := NewTranslator(m)
	c := &Compiler{manifest: m, translator: t, types: t.types}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Translator returns the translator used by the compiler.
func (c *Compiler) Translator() *Translator { return c.translator }

// CompileOption configures one compilation.
type CompileOption func(*Context)

// InlineParameters renders parameter values as literals.
func InlineParameters() CompileOption {
	return func(ctx *Context) {
		ctx.inline = true
	}
}

// Compile lowers node into a command. On error no text is returned.
func (c *Compiler) Compile(node sqldom.Node, opts ...CompileOption) (*Command, error) {
	ctx := newContext()
	for _, opt := range opts {
		opt(ctx)
	}
	if err := c.compile(ctx, node); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n := len(ctx.params); n > c.manifest.MaxParameterCount() {
		return nil, sqlsrv.NewValidationError("command", fmt.Sprintf("%d parameters exceed the limit of %d", n, c.manifest.MaxParameterCount()))
	}
	return &Command{Text: ctx.String(), Parameters: ctx.params}, nil
}

func (c *Compiler) compile(ctx *Context, node sqldom.Node) error {
	switch n := node.(type) {
	case sqldom.Query:
		return c.compileQuery(ctx, n)
	case *sqldom.Insert:
		return c.compileInsert(ctx, n)
	case *sqldom.Update:
		return c.compileUpdate(ctx, n)
	case *sqldom.Delete:
		return c.compileDelete(ctx, n)
	case *sqldom.Batch:
		return c.compileBatch(ctx, n)
	case sqldom.Statement:
		return c.compileDDL(ctx, n)
	case sqldom.Expression:
		return c.compileExpr(ctx, n)
	case sqldom.TableSource:
		return c.compileSource(ctx, n)
	}
	return sqlsrv.NewUnsupportedFeatureError(fmt.Sprintf("node %T", node), c.manifest.Name())
}

func (c *Compiler) unsupported(feature string) error {
	return sqlsrv.NewUnsupportedFeatureError(feature, c.manifest.Name())
}

func (c *Compiler) require(f Feature, construct string) error {
	if !c.manifest.Supports(f) {
		return c.unsupported(construct)
	}
	return nil
}

// ident quotes a name of an object being created and checks its length.
func (c *Compiler) ident(ctx *Context, name string) string {
	if n := len(utf16.Encode([]rune(name))); n > c.manifest.MaxIdentifierLength() {
		ctx.AddError(sqlsrv.NewValidationError("identifier", fmt.Sprintf("%d characters exceed the limit of %d", n, c.manifest.MaxIdentifierLength()), name))
	}
	return c.translator.Quote(name)
}

func (c *Compiler) compileBatch(ctx *Context, b *sqldom.Batch) error {
	if len(b.Statements) > 1 {
		if err := c.require(FeatureBatches, "statement batches"); err != nil {
			return err
		}
	}
	for i, s := range b.Statements {
		if i > 0 {
			ctx.WriteString(";\n")
		}
		if err := c.compile(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileQuery(ctx *Context, q sqldom.Query) error {
	switch q := q.(type) {
	case *sqldom.Select:
		return c.compileSelect(ctx, q)
	case *sqldom.SetOperation:
		return c.compileSetOperation(ctx, q)
	}
	return c.unsupported(fmt.Sprintf("query %T", q))
}

func (c *Compiler) checkSelect(s *sqldom.Select) error {
	if s.Offset != nil && s.Limit == nil {
		return sqlsrv.NewValidationError("select", "OFFSET requested without LIMIT")
	}
	if s.Limit != nil {
		if err := c.require(FeatureLimit, "row limit"); err != nil {
			return err
		}
	}
	if s.Offset != nil && !c.manifest.Supports(FeatureOffset) && !c.manifest.Supports(FeatureRowNumber) {
		return c.unsupported("OFFSET")
	}
	if s.Lock != sqldom.LockNone {
		if err := c.require(FeatureLockHints, "row locks"); err != nil {
			return err
		}
		if s.Wait == sqldom.LockSkipLocked {
			return c.require(FeatureReadPast, "skip locked")
		}
	}
	return nil
}

func (c *Compiler) compileSelect(ctx *Context, s *sqldom.Select) error {
	if err := c.checkSelect(s); err != nil {
		return err
	}
	if s.Offset != nil && !c.manifest.Supports(FeatureOffset) {
		return c.compileRowNumberPaging(ctx, s)
	}
	restore := ctx.enterStatement(s)
	defer restore()
	top := s.Offset == nil
	for _, sec := range selectSections {
		f := c.translator.Select(s, sec, top)
		if f.IsEmpty() && (sec != SectionOrderBy || s.Offset == nil) {
			continue
		}
		ctx.push(sec)
		ctx.WriteString(f.Open)
		err := c.selectSection(ctx, s, sec)
		ctx.WriteString(f.Close)
		ctx.pop()
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) selectSection(ctx *Context, s *sqldom.Select, sec Section) error {
	switch sec {
	case SectionLimit:
		return c.compileExpr(ctx, s.Limit)
	case SectionColumns:
		return c.compileColumns(ctx, s.Columns)
	case SectionFrom:
		return c.compileSource(ctx, s.From)
	case SectionWhere:
		return c.compileExpr(ctx, s.Where)
	case SectionGroupBy:
		return c.compileList(ctx, s.GroupBy)
	case SectionHaving:
		return c.compileExpr(ctx, s.Having)
	case SectionOrderBy:
		if len(s.OrderBy) == 0 && s.Offset != nil && c.manifest.Supports(FeaturePagingRequiresOrderBy) {
			ctx.WriteString("(SELECT 0)")
		}
		if err := c.compileOrder(ctx, s.OrderBy); err != nil {
			return err
		}
		if s.Offset != nil {
			offset, fetch, end := c.translator.Offset()
			ctx.WriteString(offset)
			if err := c.compileExpr(ctx, s.Offset); err != nil {
				return err
			}
			ctx.WriteString(fetch)
			if err := c.compileExpr(ctx, s.Limit); err != nil {
				return err
			}
			ctx.WriteString(end)
		}
	}
	return nil
}

func (c *Compiler) compileColumns(ctx *Context, cols []sqldom.SelectColumn) error {
	if len(cols) == 0 {
		ctx.WriteString("*")
		return nil
	}
	for i, col := range cols {
		if i > 0 {
			ctx.WriteString(", ")
		}
		if err := c.compileExpr(ctx, col.Expr); err != nil {
			return err
		}
		if col.Alias != "" {
			ctx.WriteString(" AS ").WriteString(c.translator.Quote(col.Alias))
		}
	}
	return nil
}

func (c *Compiler) compileList(ctx *Context, list []sqldom.Expression) error {
	for i, e := range list {
		if i > 0 {
			ctx.WriteString(", ")
		}
		if err := c.compileExpr(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileOrder(ctx *Context, order []sqldom.Order) error {
	for i, o := range order {
		if i > 0 {
			ctx.WriteString(", ")
		}
		if err := c.compileExpr(ctx, o.Expr); err != nil {
			return err
		}
		if o.Desc {
			ctx.WriteString(" DESC")
		}
	}
	return nil
}

// rowNumberColumn is the paging column of the ROW_NUMBER rewrite.
const rowNumberColumn = "__rn"

// compileRowNumberPaging renders OFFSET paging for servers without
// OFFSET/FETCH by numbering the rows of the query in a derived table.
func (c *Compiler) compileRowNumberPaging(ctx *Context, s *sqldom.Select) error {
	if s.Distinct {
		d, err := c.distinctSource(ctx, s)
		if err != nil {
			return err
		}
		return c.compileRowNumberPaging(ctx, d)
	}
	alias := ctx.NextAlias()
	inner := *s
	inner.Limit, inner.Offset, inner.OrderBy, inner.Hints = nil, nil, nil, nil
	inner.Columns = make([]sqldom.SelectColumn, 0, len(s.Columns)+1)
	var outer []string
	if isStar(s.Columns) {
		inner.Columns = append(inner.Columns, s.Columns...)
		if len(s.Columns) == 0 {
			inner.Columns = append(inner.Columns, sqldom.SelectColumn{Expr: &sqldom.ColumnRef{Name: "*"}})
		}
		outer = []string{c.translator.Quote(alias) + ".*"}
	} else {
		cols, err := derivedColumns(s.Columns)
		if err != nil {
			return err
		}
		for _, col := range cols {
			inner.Columns = append(inner.Columns, col)
			outer = append(outer, c.translator.QuoteName(alias, col.Alias))
		}
	}
	inner.Columns = append(inner.Columns, sqldom.SelectColumn{
		Expr:  &sqldom.RowNumber{OrderBy: s.OrderBy},
		Alias: rowNumberColumn,
	})
	rn := c.translator.QuoteName(alias, rowNumberColumn)
	ctx.WriteString("SELECT ").WriteString(strings.Join(outer, ", ")).WriteString(" FROM (")
	if err := c.compileSelect(ctx, &inner); err != nil {
		return err
	}
	ctx.WriteString(") AS ").WriteString(c.translator.Quote(alias))
	ctx.WriteString(" WHERE ").WriteString(rn).WriteString(" > ")
	if err := c.compileExpr(ctx, s.Offset); err != nil {
		return err
	}
	ctx.WriteString(" AND ").WriteString(rn).WriteString(" <= ")
	if err := c.compileSum(ctx, s.Offset, s.Limit); err != nil {
		return err
	}
	ctx.WriteString(" ORDER BY ").WriteString(rn)
	if f := c.translator.Select(s, SectionExit, false); !f.IsEmpty() {
		ctx.WriteString(f.Open)
	}
	return nil
}

// distinctSource moves a DISTINCT query into a derived table so that rows
// are numbered after duplicates are removed. The order must be over the
// selected columns.
func (c *Compiler) distinctSource(ctx *Context, s *sqldom.Select) (*sqldom.Select, error) {
	alias := ctx.NextAlias()
	inner := *s
	inner.Limit, inner.Offset, inner.OrderBy, inner.Hints = nil, nil, nil, nil
	out := &sqldom.Select{
		From:   &sqldom.QueryRef{Query: &inner, Alias: alias},
		Limit:  s.Limit,
		Offset: s.Offset,
		Hints:  s.Hints,
	}
	star := isStar(s.Columns)
	if star {
		out.Columns = []sqldom.SelectColumn{{Expr: &sqldom.ColumnRef{Qualifier: alias, Name: "*"}}}
	} else {
		cols, err := derivedColumns(s.Columns)
		if err != nil {
			return nil, err
		}
		inner.Columns = cols
		for _, col := range cols {
			out.Columns = append(out.Columns, sqldom.SelectColumn{Expr: &sqldom.ColumnRef{Qualifier: alias, Name: col.Alias}})
		}
	}
	for _, o := range s.OrderBy {
		name, ok := orderColumn(inner.Columns, o.Expr, star)
		if !ok {
			return nil, sqlsrv.NewValidationError("select", "ORDER BY items must appear in the select list of a DISTINCT query")
		}
		out.OrderBy = append(out.OrderBy, sqldom.Order{Expr: &sqldom.ColumnRef{Qualifier: alias, Name: name}, Desc: o.Desc})
	}
	return out, nil
}

// orderColumn returns the derived column name that e orders by.
func orderColumn(cols []sqldom.SelectColumn, e sqldom.Expression, star bool) (string, bool) {
	for _, col := range cols {
		if reflect.DeepEqual(col.Expr, e) {
			return col.Alias, true
		}
	}
	ref, ok := e.(*sqldom.ColumnRef)
	if !ok {
		return "", false
	}
	if star {
		return ref.Name, true
	}
	for _, col := range cols {
		if ref.Qualifier == "" && strings.EqualFold(col.Alias, ref.Name) {
			return col.Alias, true
		}
	}
	return "", false
}

func isStar(cols []sqldom.SelectColumn) bool {
	if len(cols) == 0 {
		return true
	}
	for _, col := range cols {
		if ref, ok := col.Expr.(*sqldom.ColumnRef); ok && ref.Name == "*" {
			return true
		}
	}
	return false
}

// derivedColumns returns cols with a unique alias on every column, as
// required for the columns of a derived table. Names compare without case.
func derivedColumns(cols []sqldom.SelectColumn) ([]sqldom.SelectColumn, error) {
	used := make(map[string]bool, len(cols))
	for _, col := range cols {
		if col.Alias == "" {
			continue
		}
		k := strings.ToLower(col.Alias)
		if used[k] || k == rowNumberColumn {
			return nil, sqlsrv.NewValidationError("select", fmt.Sprintf("column alias %q is not unique", col.Alias), col.Alias)
		}
		used[k] = true
	}
	used[rowNumberColumn] = true
	out := make([]sqldom.SelectColumn, len(cols))
	for i, col := range cols {
		if col.Alias == "" {
			var name string
			if ref, ok := col.Expr.(*sqldom.ColumnRef); ok {
				name = ref.Name
			}
			col.Alias = uniqueAlias(used, name, i)
		}
		out[i] = col
	}
	return out, nil
}

// uniqueAlias picks name, or c<i> when name is empty or taken, and
// suffixes c<i> until it is free.
func uniqueAlias(used map[string]bool, name string, i int) string {
	candidates := []string{name, "c" + strconv.Itoa(i)}
	for n := 1; ; n++ {
		for _, a := range candidates {
			if k := strings.ToLower(a); a != "" && !used[k] {
				used[k] = true
				return a
			}
		}
		candidates = []string{"c" + strconv.Itoa(i) + "_" + strconv.Itoa(n)}
	}
}

// compileSum renders a + b, folding integer literals.
func (c *Compiler) compileSum(ctx *Context, a, b sqldom.Expression) error {
	x, ok1 := intLiteral(a)
	y, ok2 := intLiteral(b)
	if ok1 && ok2 {
		ctx.WriteString(strconv.FormatInt(x+y, 10))
		return nil
	}
	return c.compileExpr(ctx, &sqldom.Binary{Op: sqldom.OpAdd, Left: a, Right: b})
}

func (c *Compiler) compileSetOperation(ctx *Context, s *sqldom.SetOperation) error {
	var feature Feature
	switch {
	case s.Op == sqldom.Union && s.All:
		feature = FeatureUnionAll
	case s.Op == sqldom.Intersect && s.All:
		feature = FeatureIntersectAll
	case s.Op == sqldom.Except && s.All:
		feature = FeatureExceptAll
	case s.Op == sqldom.Intersect:
		feature = FeatureIntersect
	case s.Op == sqldom.Except:
		feature = FeatureExcept
	}
	if feature != "" {
		if err := c.require(feature, c.translator.SetOperator(s.Op, s.All)); err != nil {
			return err
		}
	}
	restore := ctx.enterStatement(nil)
	defer restore()
	if err := c.compileSetOperand(ctx, s.Left); err != nil {
		return err
	}
	ctx.WriteString(" ").WriteString(c.translator.SetOperator(s.Op, s.All)).WriteString(" ")
	if err := c.compileSetOperand(ctx, s.Right); err != nil {
		return err
	}
	if len(s.OrderBy) > 0 {
		ctx.WriteString(" ORDER BY ")
		return c.compileOrder(ctx, s.OrderBy)
	}
	return nil
}

func (c *Compiler) compileSetOperand(ctx *Context, q sqldom.Query) error {
	if _, ok := q.(*sqldom.SetOperation); ok {
		ctx.WriteString("(")
		defer ctx.WriteString(")")
	}
	return c.compileQuery(ctx, q)
}

func (c *Compiler) compileSource(ctx *Context, src sqldom.TableSource) error {
	switch src := src.(type) {
	case *sqldom.Table:
		ctx.WriteString(c.translator.QuoteName(src.Schema, src.Name))
		if src.Alias != "" {
			ctx.WriteString(" AS ").WriteString(c.translator.Quote(src.Alias))
		}
		if s := ctx.LockingStatement(); s != nil {
			ctx.WriteString(" ").WriteString(c.translator.LockHint(s.Lock, s.Wait))
		}
	case *sqldom.Join:
		if src.Kind == sqldom.CrossApply || src.Kind == sqldom.OuterApply {
			if err := c.require(FeatureCrossApply, c.translator.Join(src.Kind)); err != nil {
				return err
			}
		}
		if err := c.compileSource(ctx, src.Left); err != nil {
			return err
		}
		ctx.WriteString(" ").WriteString(c.translator.Join(src.Kind)).WriteString(" ")
		if err := c.compileSource(ctx, src.Right); err != nil {
			return err
		}
		if src.On != nil {
			ctx.WriteString(" ON ")
			return c.compileExpr(ctx, src.On)
		}
	case *sqldom.QueryRef:
		alias := src.Alias
		if alias == "" {
			alias = ctx.NextAlias()
		}
		ctx.WriteString("(")
		if err := c.compileQuery(ctx, src.Query); err != nil {
			return err
		}
		ctx.WriteString(") AS ").WriteString(c.translator.Quote(alias))
	default:
		return c.unsupported(fmt.Sprintf("table source %T", src))
	}
	return nil
}

func (c *Compiler) compileInsert(ctx *Context, i *sqldom.Insert) error {
	if i.Into == nil {
		return sqlsrv.NewValidationError("insert", "missing target table")
	}
	if len(i.Output) > 0 {
		if err := c.require(FeatureOutputClause, "OUTPUT clause"); err != nil {
			return err
		}
	}
	for _, row := range i.Values {
		if len(i.Columns) > 0 && len(row) != len(i.Columns) {
			return sqlsrv.NewValidationError("insert", fmt.Sprintf("row has %d values for %d columns", len(row), len(i.Columns)), i.Into.Name)
		}
	}
	restore := ctx.enterStatement(nil)
	defer restore()
	for _, sec := range insertSections {
		f := c.translator.Insert(i, sec)
		if f.IsEmpty() {
			continue
		}
		ctx.push(sec)
		ctx.WriteString(f.Open)
		err := c.insertSection(ctx, i, sec)
		ctx.WriteString(f.Close)
		ctx.pop()
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) insertSection(ctx *Context, i *sqldom.Insert, sec Section) error {
	switch sec {
	case SectionTable:
		ctx.WriteString(c.translator.QuoteName(i.Into.Schema, i.Into.Name))
	case SectionColumns:
		for j, col := range i.Columns {
			if j > 0 {
				ctx.WriteString(", ")
			}
			ctx.WriteString(c.translator.Quote(col))
		}
	case SectionValues:
		switch {
		case i.DefaultValues:
		case i.Query != nil:
			return c.compileQuery(ctx, i.Query)
		case c.translator.RowConstructors(len(i.Values)):
			for j, row := range i.Values {
				if j > 0 {
					ctx.WriteString(", ")
				}
				ctx.WriteString("(")
				if err := c.compileList(ctx, row); err != nil {
					return err
				}
				ctx.WriteString(")")
			}
		default:
			for j, row := range i.Values {
				if j > 0 {
					ctx.WriteString(" UNION ALL ")
				}
				ctx.WriteString("SELECT ")
				if err := c.compileList(ctx, row); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (c *Compiler) compileUpdate(ctx *Context, u *sqldom.Update) error {
	switch {
	case u.Table == nil:
		return sqlsrv.NewValidationError("update", "missing target table")
	case len(u.Set) == 0:
		return sqlsrv.NewValidationError("update", "no assignments", u.Table.Name)
	}
	if u.Limit != nil {
		if err := c.require(FeatureUpdateLimit, "UPDATE with row limit"); err != nil {
			return err
		}
	}
	if u.From != nil {
		if err := c.require(FeatureUpdateFrom, "UPDATE with FROM"); err != nil {
			return err
		}
	}
	restore := ctx.enterStatement(nil)
	defer restore()
	for _, sec := range updateSections {
		f := c.translator.Update(u, sec)
		if f.IsEmpty() {
			continue
		}
		ctx.push(sec)
		ctx.WriteString(f.Open)
		err := c.updateSection(ctx, u, sec)
		ctx.WriteString(f.Close)
		ctx.pop()
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) updateSection(ctx *Context, u *sqldom.Update, sec Section) error {
	switch sec {
	case SectionLimit:
		return c.compileExpr(ctx, u.Limit)
	case SectionTable:
		c.writeTarget(ctx, u.Table, u.From != nil)
	case SectionSet:
		for i, a := range u.Set {
			if i > 0 {
				ctx.WriteString(", ")
			}
			ctx.WriteString(c.translator.Quote(a.Column)).WriteString(" = ")
			if err := c.compileExpr(ctx, a.Value); err != nil {
				return err
			}
		}
	case SectionFrom:
		return c.compileSource(ctx, u.From)
	case SectionWhere:
		return c.compileExpr(ctx, u.Where)
	}
	return nil
}

// writeTarget writes the modified table. With a FROM clause the target is
// referenced by its alias.
func (c *Compiler) writeTarget(ctx *Context, t *sqldom.Table, from bool) {
	if from && t.Alias != "" {
		ctx.WriteString(c.translator.Quote(t.Alias))
		return
	}
	ctx.WriteString(c.translator.QuoteName(t.Schema, t.Name))
}

func (c *Compiler) compileDelete(ctx *Context, d *sqldom.Delete) error {
	if d.Table == nil {
		return sqlsrv.NewValidationError("delete", "missing target table")
	}
	if d.Limit != nil {
		if err := c.require(FeatureDeleteLimit, "DELETE with row limit"); err != nil {
			return err
		}
	}
	if d.From != nil {
		if err := c.require(FeatureDeleteFrom, "DELETE with FROM"); err != nil {
			return err
		}
	}
	restore := ctx.enterStatement(nil)
	defer restore()
	for _, sec := range deleteSections {
		f := c.translator.Delete(d, sec)
		if f.IsEmpty() {
			continue
		}
		ctx.push(sec)
		ctx.WriteString(f.Open)
		err := c.deleteSection(ctx, d, sec)
		ctx.WriteString(f.Close)
		ctx.pop()
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) deleteSection(ctx *Context, d *sqldom.Delete, sec Section) error {
	switch sec {
	case SectionLimit:
		return c.compileExpr(ctx, d.Limit)
	case SectionTable:
		c.writeTarget(ctx, d.Table, d.From != nil)
	case SectionFrom:
		return c.compileSource(ctx, d.From)
	case SectionWhere:
		return c.compileExpr(ctx, d.Where)
	}
	return nil
}
