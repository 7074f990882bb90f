package sqlserver

import (
	"fmt"
	"strings"

	"github.com/syssam/sqlsrv"
	"github.com/syssam/sqlsrv/dialect"
	"github.com/syssam/sqlsrv/sqldom"
	"github.com/syssam/sqlsrv/sqltype"
)

// Translator renders dialect fragments. It decides what text a section or
// node produces; the Compiler decides when. A Translator of a newer
// version holds the translator of its predecessor in base and only
// overrides what changed.
type Translator struct {
	version  dialect.Version
	manifest *Manifest
	types    *TypeMapper
	base     *Translator

	functions map[sqldom.FunctionType]string
	formats   map[sqltype.Kind]*literalFormat
}

// translatorLevels lists the versions that change rendering tables, oldest
// first. Versions in between inherit from the nearest older level.
var translatorLevels = []struct {
	version dialect.Version
	setup   func(*Translator)
}{
	{dialect.V09, setup2005},
	{dialect.V10, setup2008},
	{dialect.V11, setup2012},
}

// NewTranslator returns the translator chain for the manifest's version.
func NewTranslator(m *Manifest) *Translator {
	types := NewTypeMapper(m)
	var t *Translator
	for _, l := range translatorLevels {
		if !m.Version().AtLeast(l.version) {
			break
		}
		t = &Translator{
			version:   l.version,
			manifest:  m,
			types:     types,
			base:      t,
			functions: make(map[sqldom.FunctionType]string),
			formats:   make(map[sqltype.Kind]*literalFormat),
		}
		l.setup(t)
	}
	return t
}

func setup2005(t *Translator) {
	for fn, name := range map[sqldom.FunctionType]string{
		sqldom.FnAbs:                 "ABS",
		sqldom.FnCeiling:             "CEILING",
		sqldom.FnFloor:               "FLOOR",
		sqldom.FnPower:               "POWER",
		sqldom.FnSqrt:                "SQRT",
		sqldom.FnExp:                 "EXP",
		sqldom.FnLog:                 "LOG",
		sqldom.FnLog10:               "LOG10",
		sqldom.FnSign:                "SIGN",
		sqldom.FnCoalesce:            "COALESCE",
		sqldom.FnLower:               "LOWER",
		sqldom.FnUpper:               "UPPER",
		sqldom.FnSubstring:           "SUBSTRING",
		sqldom.FnReplace:             "REPLACE",
		sqldom.FnPosition:            "CHARINDEX",
		sqldom.FnBinaryLength:        "DATALENGTH",
		sqldom.FnNewGuid:             "NEWID()",
		sqldom.FnCurrentDateTime:     "GETDATE()",
		sqldom.FnCurrentDate:         "DATEADD(day, DATEDIFF(day, 0, GETDATE()), 0)",
		sqldom.FnCurrentTime:         "DATEADD(day, -DATEDIFF(day, 0, GETDATE()), GETDATE())",
		sqldom.FnLastAutoGeneratedID: "SCOPE_IDENTITY()",
	} {
		t.functions[fn] = name
	}
	datetime := &literalFormat{Layout: "2006-01-02T15:04:05.000", Cast: "datetime"}
	t.formats[sqltype.DateTime] = datetime
	t.formats[sqltype.Date] = datetime
	t.formats[sqltype.Time] = datetime
}

func setup2008(t *Translator) {
	t.functions[sqldom.FnCurrentDateTime] = "SYSDATETIME()"
	t.functions[sqldom.FnCurrentDate] = "CAST(SYSDATETIME() AS date)"
	t.functions[sqldom.FnCurrentTime] = "CAST(SYSDATETIME() AS time)"
	t.formats[sqltype.DateTime] = &literalFormat{Layout: "2006-01-02T15:04:05.0000000", Cast: "datetime2"}
	t.formats[sqltype.Date] = &literalFormat{Layout: "2006-01-02", Cast: "date"}
	t.formats[sqltype.Time] = &literalFormat{Layout: "15:04:05.0000000", Cast: "time"}
	t.formats[sqltype.DateTimeOffset] = &literalFormat{Layout: "2006-01-02T15:04:05.0000000-07:00", Cast: "datetimeoffset"}
}

func setup2012(t *Translator) {
	t.functions[sqldom.FnConcat] = "CONCAT"
	t.functions[sqldom.FnDateConstruct] = "DATEFROMPARTS"
	t.functions[sqldom.FnDateTimeConstruct] = "DATETIME2FROMPARTS"
}

// Version returns the version of the translator.
func (t *Translator) Version() dialect.Version { return t.version }

// Base returns the translator of the preceding version, or nil.
func (t *Translator) Base() *Translator { return t.base }

// Function returns the native name (or niladic text) of a neutral function.
func (t *Translator) Function(fn sqldom.FunctionType) (string, bool) {
	for tr := t; tr != nil; tr = tr.base {
		if name, ok := tr.functions[fn]; ok {
			return name, true
		}
	}
	return "", false
}

func (t *Translator) format(k sqltype.Kind) *literalFormat {
	for tr := t; tr != nil; tr = tr.base {
		if f, ok := tr.formats[k]; ok {
			return f
		}
	}
	return nil
}

// TimeFractionDigits returns the fractional second digits of time literals.
func (t *Translator) TimeFractionDigits() int {
	f := t.format(sqltype.Time)
	if i := strings.LastIndexByte(f.Layout, '.'); i >= 0 {
		return len(f.Layout) - i - 1
	}
	return 0
}

// TypeName returns the native name of a neutral type.
func (t *Translator) TypeName(typ sqltype.Type) string {
	return t.types.NativeName(typ)
}

// Quote quotes an identifier, e.g. [order] or [a]]b].
func (t *Translator) Quote(ident string) string {
	return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
}

// QuoteName quotes and dot-joins the non-empty parts of a qualified name.
func (t *Translator) QuoteName(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(t.Quote(p))
	}
	return b.String()
}

// Select returns the fragment of a SELECT section. top reports whether the
// row limit renders as TOP.
func (t *Translator) Select(s *sqldom.Select, sec Section, top bool) Fragment {
	switch sec {
	case SectionEntry:
		if s.Distinct {
			return Fragment{Open: "SELECT DISTINCT"}
		}
		return Fragment{Open: "SELECT"}
	case SectionLimit:
		if top && s.Limit != nil {
			return Fragment{Open: " TOP (", Close: ")"}
		}
	case SectionColumns:
		return Fragment{Open: " "}
	case SectionFrom:
		if s.From != nil {
			return Fragment{Open: " FROM "}
		}
	case SectionWhere:
		if s.Where != nil {
			return Fragment{Open: " WHERE "}
		}
	case SectionGroupBy:
		if len(s.GroupBy) > 0 {
			return Fragment{Open: " GROUP BY "}
		}
	case SectionHaving:
		if s.Having != nil {
			return Fragment{Open: " HAVING "}
		}
	case SectionOrderBy:
		if len(s.OrderBy) > 0 || s.Offset != nil && t.manifest.Supports(FeaturePagingRequiresOrderBy) {
			return Fragment{Open: " ORDER BY "}
		}
	case SectionExit:
		if len(s.Hints) > 0 {
			return Fragment{Open: " OPTION (" + strings.Join(s.Hints, ", ") + ")"}
		}
	}
	// Hints and Lock are rendered as table hints on the table references.
	return Fragment{}
}

// Update returns the fragment of an UPDATE section.
func (t *Translator) Update(u *sqldom.Update, sec Section) Fragment {
	switch sec {
	case SectionEntry:
		return Fragment{Open: "UPDATE"}
	case SectionLimit:
		if u.Limit != nil {
			return Fragment{Open: " TOP (", Close: ")"}
		}
	case SectionTable:
		return Fragment{Open: " "}
	case SectionSet:
		return Fragment{Open: " SET "}
	case SectionFrom:
		if u.From != nil {
			return Fragment{Open: " FROM "}
		}
	case SectionWhere:
		if u.Where != nil {
			return Fragment{Open: " WHERE "}
		}
	}
	return Fragment{}
}

// Delete returns the fragment of a DELETE section.
func (t *Translator) Delete(d *sqldom.Delete, sec Section) Fragment {
	switch sec {
	case SectionEntry:
		return Fragment{Open: "DELETE"}
	case SectionLimit:
		if d.Limit != nil {
			return Fragment{Open: " TOP (", Close: ")"}
		}
	case SectionTable:
		if d.From != nil {
			return Fragment{Open: " "}
		}
		return Fragment{Open: " FROM "}
	case SectionFrom:
		if d.From != nil {
			return Fragment{Open: " FROM "}
		}
	case SectionWhere:
		if d.Where != nil {
			return Fragment{Open: " WHERE "}
		}
	}
	return Fragment{}
}

// Insert returns the fragment of an INSERT section.
func (t *Translator) Insert(i *sqldom.Insert, sec Section) Fragment {
	switch sec {
	case SectionEntry:
		return Fragment{Open: "INSERT INTO"}
	case SectionTable:
		return Fragment{Open: " "}
	case SectionColumns:
		if len(i.Columns) > 0 {
			return Fragment{Open: " (", Close: ")"}
		}
	case SectionValues:
		var output string
		if len(i.Output) > 0 {
			cols := make([]string, len(i.Output))
			for j, c := range i.Output {
				cols[j] = "INSERTED." + t.Quote(c)
			}
			output = " OUTPUT " + strings.Join(cols, ", ")
		}
		switch {
		case i.DefaultValues:
			return Fragment{Open: output + " DEFAULT VALUES"}
		case i.Query != nil, !t.RowConstructors(len(i.Values)):
			return Fragment{Open: output + " "}
		}
		return Fragment{Open: output + " VALUES "}
	}
	return Fragment{}
}

// RowConstructors reports whether n rows can be inserted with one VALUES
// clause. Otherwise rows are combined with UNION ALL.
func (t *Translator) RowConstructors(n int) bool {
	return n <= 1 || t.manifest.Supports(FeatureMultiRowValues)
}

// Offset returns the text around the OFFSET and FETCH expressions.
func (t *Translator) Offset() (offset, fetch, end string) {
	return " OFFSET ", " ROWS FETCH NEXT ", " ROWS ONLY"
}

// Join returns the join keyword.
func (t *Translator) Join(k sqldom.JoinKind) string {
	switch k {
	case sqldom.LeftJoin:
		return "LEFT OUTER JOIN"
	case sqldom.RightJoin:
		return "RIGHT OUTER JOIN"
	case sqldom.FullJoin:
		return "FULL OUTER JOIN"
	case sqldom.CrossJoin:
		return "CROSS JOIN"
	case sqldom.CrossApply:
		return "CROSS APPLY"
	case sqldom.OuterApply:
		return "OUTER APPLY"
	}
	return "INNER JOIN"
}

// SetOperator returns the keyword of a set operation.
func (t *Translator) SetOperator(op sqldom.SetOperator, all bool) string {
	kw := [...]string{sqldom.Union: "UNION", sqldom.Intersect: "INTERSECT", sqldom.Except: "EXCEPT"}[op]
	if all {
		kw += " ALL"
	}
	return kw
}

// BinaryOp returns the operator text.
func (t *Translator) BinaryOp(op sqldom.BinaryOp) string {
	return [...]string{
		sqldom.OpAdd:      "+",
		sqldom.OpSubtract: "-",
		sqldom.OpMultiply: "*",
		sqldom.OpDivide:   "/",
		sqldom.OpModulo:   "%",
		sqldom.OpConcat:   "+",
		sqldom.OpEQ:       "=",
		sqldom.OpNEQ:      "<>",
		sqldom.OpLT:       "<",
		sqldom.OpLTE:      "<=",
		sqldom.OpGT:       ">",
		sqldom.OpGTE:      ">=",
		sqldom.OpAnd:      "AND",
		sqldom.OpOr:       "OR",
		sqldom.OpBitAnd:   "&",
		sqldom.OpBitOr:    "|",
		sqldom.OpBitXor:   "^",
	}[op]
}

// Aggregate returns the aggregate function name.
func (t *Translator) Aggregate(k sqldom.AggregateKind) string {
	return [...]string{
		sqldom.Count:    "COUNT",
		sqldom.Sum:      "SUM",
		sqldom.Avg:      "AVG",
		sqldom.Min:      "MIN",
		sqldom.Max:      "MAX",
		sqldom.CountBig: "COUNT_BIG",
	}[k]
}

// LockHint combines a lock mode and a wait policy into a table hint, e.g.
// "WITH (ROWLOCK, UPDLOCK, READPAST)". It returns "" for LockNone.
func (t *Translator) LockHint(mode sqldom.LockMode, wait sqldom.LockBehavior) string {
	var hints []string
	switch mode {
	case sqldom.LockNone:
		return ""
	case sqldom.LockShared:
		hints = append(hints, "ROWLOCK", "HOLDLOCK")
	case sqldom.LockUpdate:
		hints = append(hints, "ROWLOCK", "UPDLOCK")
	case sqldom.LockExclusive:
		hints = append(hints, "ROWLOCK", "XLOCK")
	}
	switch wait {
	case sqldom.LockNoWait:
		hints = append(hints, "NOWAIT")
	case sqldom.LockSkipLocked:
		hints = append(hints, "READPAST")
	}
	return "WITH (" + strings.Join(hints, ", ") + ")"
}

// Rename renders a rename as a call to sp_rename.
func (t *Translator) Rename(r *sqldom.Rename) (string, error) {
	var object, kind string
	switch r.Kind {
	case sqldom.RenameTable, sqldom.RenameView:
		object = t.QuoteName(r.Schema, r.Table)
	case sqldom.RenameColumn:
		object, kind = t.QuoteName(r.Schema, r.Table, r.Name), "COLUMN"
	case sqldom.RenameIndex:
		object, kind = t.QuoteName(r.Schema, r.Table, r.Name), "INDEX"
	default:
		return "", sqlsrv.NewUnsupportedFeatureError("schema rename", t.manifest.Name())
	}
	s := fmt.Sprintf("EXEC sp_rename %s, %s", StringLiteral(object, false), StringLiteral(r.NewName, false))
	if kind != "" {
		s += ", " + StringLiteral(kind, false)
	}
	return s, nil
}

// DropStaleDefault renders the removal of a column default whose
// constraint name is unknown. The name is looked up at execution time into
// the local variable v and the DROP is executed dynamically.
func (t *Translator) DropStaleDefault(v, schema, table, column string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "DECLARE %s sysname;\n", v)
	fmt.Fprintf(&b, "SELECT %s = [d].[name] FROM [sys].[default_constraints] AS [d]", v)
	b.WriteString(" INNER JOIN [sys].[columns] AS [c] ON [c].[object_id] = [d].[parent_object_id] AND [c].[column_id] = [d].[parent_column_id]")
	b.WriteString(" INNER JOIN [sys].[tables] AS [t] ON [t].[object_id] = [d].[parent_object_id]")
	b.WriteString(" INNER JOIN [sys].[schemas] AS [s] ON [s].[schema_id] = [t].[schema_id]")
	fmt.Fprintf(&b, " WHERE [s].[name] = %s AND [t].[name] = %s AND [c].[name] = %s;\n",
		StringLiteral(schema, false), StringLiteral(table, false), StringLiteral(column, false))
	alter := "ALTER TABLE " + t.QuoteName(schema, table) + " DROP CONSTRAINT ["
	fmt.Fprintf(&b, "EXEC(%s + %s + N']')", StringLiteral(alter, false), v)
	return b.String()
}
