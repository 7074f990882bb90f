package sqlserver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/sqlsrv"
	"github.com/syssam/sqlsrv/catalog"
	"github.com/syssam/sqlsrv/sqldom"
	"github.com/syssam/sqlsrv/sqltype"
)

// compileDDL renders schema-changing statements. Values inside DDL bodies
// are always inlined.
func (c *Compiler) compileDDL(ctx *Context, stmt sqldom.Statement) error {
	inline := ctx.inline
	ctx.inline = true
	defer func() { ctx.inline = inline }()
	switch s := stmt.(type) {
	case *sqldom.CreateSchema:
		if err := c.requireDDL(DDLSchema, DDLCreate); err != nil {
			return err
		}
		ctx.WriteString("CREATE SCHEMA ").WriteString(c.ident(ctx, s.Schema.Name))
		if s.Schema.Owner != "" {
			ctx.WriteString(" AUTHORIZATION ").WriteString(c.translator.Quote(s.Schema.Owner))
		}
	case *sqldom.DropSchema:
		return c.compileDrop(ctx, DDLSchema, "SCHEMA", c.translator.Quote(s.Schema.Name))
	case *sqldom.CreateTable:
		return c.compileCreateTable(ctx, s.Table)
	case *sqldom.DropTable:
		return c.compileDrop(ctx, DDLTable, "TABLE", c.tableName(&s.Table.Relation))
	case *sqldom.AlterTable:
		return c.compileAlterTable(ctx, s)
	case *sqldom.CreateIndex:
		return c.compileCreateIndex(ctx, s.Index)
	case *sqldom.DropIndex:
		if err := c.requireDDL(DDLIndex, DDLDrop); err != nil {
			return err
		}
		ctx.WriteString("DROP INDEX ").WriteString(c.translator.Quote(s.Index.Name)).
			WriteString(" ON ").WriteString(c.tableName(s.Index.Owner))
	case *sqldom.CreateView:
		return c.compileCreateView(ctx, s)
	case *sqldom.DropView:
		return c.compileDrop(ctx, DDLView, "VIEW", c.tableName(&s.View.Relation))
	case *sqldom.CreateDomain:
		if err := c.requireDDL(DDLDomain, DDLCreate); err != nil {
			return err
		}
		d := s.Domain
		ctx.WriteString("CREATE TYPE ").WriteString(c.qualified(ctx, d.Schema, d.Name)).
			WriteString(" FROM ").WriteString(c.translator.TypeName(d.Type))
		if !d.Nullable {
			ctx.WriteString(" NOT NULL")
		}
	case *sqldom.DropDomain:
		return c.compileDrop(ctx, DDLDomain, "TYPE", c.translator.QuoteName(schemaName(s.Domain.Schema), s.Domain.Name))
	case *sqldom.CreateSequence:
		return c.compileCreateSequence(ctx, s.Sequence)
	case *sqldom.DropSequence:
		return c.compileDrop(ctx, DDLSequence, "SEQUENCE", c.translator.QuoteName(schemaName(s.Sequence.Schema), s.Sequence.Name))
	case *sqldom.CreateFullTextIndex:
		return c.compileCreateFullText(ctx, s.Index)
	case *sqldom.DropFullTextIndex:
		if err := c.requireDDL(DDLFullText, DDLDrop); err != nil {
			return err
		}
		ctx.WriteString("DROP FULLTEXT INDEX ON ").WriteString(c.tableName(&s.Table.Relation))
	case *sqldom.Rename:
		return c.compileRename(ctx, s)
	default:
		return c.unsupported(fmt.Sprintf("statement %T", stmt))
	}
	return nil
}

func (c *Compiler) requireDDL(kind, op string) error {
	if !c.manifest.SupportsDDL(kind, op) {
		return c.unsupported(op + " " + kind)
	}
	return nil
}

func (c *Compiler) compileDrop(ctx *Context, kind, keyword, name string) error {
	if err := c.requireDDL(kind, DDLDrop); err != nil {
		return err
	}
	ctx.WriteString("DROP " + keyword + " " + name)
	return nil
}

func schemaName(s *catalog.Schema) string {
	if s == nil {
		return ""
	}
	return s.Name
}

func (c *Compiler) tableName(r *catalog.Relation) string {
	return c.translator.QuoteName(r.SchemaName(), r.Name)
}

// qualified quotes the name of a created object and checks its length.
func (c *Compiler) qualified(ctx *Context, s *catalog.Schema, name string) string {
	q := c.ident(ctx, name)
	if s == nil || s.Name == "" {
		return q
	}
	return c.translator.Quote(s.Name) + "." + q
}

func (c *Compiler) columnList(cols []*catalog.Column) string {
	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = c.translator.Quote(col.Name)
	}
	return strings.Join(names, ", ")
}

// parenthesized wraps stored expression text unless it already is.
func parenthesized(expr string) string {
	if strings.HasPrefix(expr, "(") && strings.HasSuffix(expr, ")") {
		return expr
	}
	return "(" + expr + ")"
}

func (c *Compiler) compileColumnDef(ctx *Context, col *catalog.Column) {
	ctx.WriteString(c.ident(ctx, col.Name))
	if col.Computed != nil {
		ctx.WriteString(" AS ").WriteString(parenthesized(col.Computed.Expression))
		if col.Computed.Persisted {
			ctx.WriteString(" PERSISTED")
		}
		return
	}
	if col.Domain != nil {
		ctx.WriteString(" ").WriteString(c.translator.QuoteName(schemaName(col.Domain.Schema), col.Domain.Name))
	} else {
		ctx.WriteString(" ").WriteString(c.translator.TypeName(col.Type))
	}
	if col.Collation != nil {
		ctx.WriteString(" COLLATE ").WriteString(col.Collation.Name)
	}
	if seq := col.Sequence; seq != nil {
		inc := seq.Increment
		if inc == 0 {
			inc = 1
		}
		ctx.WriteString(fmt.Sprintf(" IDENTITY(%d, %d)", seq.Start, inc))
	}
	if col.Nullable {
		ctx.WriteString(" NULL")
	} else {
		ctx.WriteString(" NOT NULL")
	}
	if d := col.Default; d != nil {
		if d.Name != "" {
			ctx.WriteString(" CONSTRAINT ").WriteString(c.ident(ctx, d.Name))
		}
		ctx.WriteString(" DEFAULT ").WriteString(parenthesized(d.Expression))
	}
}

func (c *Compiler) compileCreateTable(ctx *Context, t *catalog.Table) error {
	if err := c.requireDDL(DDLTable, DDLCreate); err != nil {
		return err
	}
	if len(t.Columns) == 0 {
		return sqlsrv.NewValidationError("table", "no columns", t.SchemaName(), t.Name)
	}
	ctx.WriteString("CREATE TABLE ").WriteString(c.qualified(ctx, t.Schema, t.Name)).WriteString(" (")
	for i, col := range t.Columns {
		if i > 0 {
			ctx.WriteString(", ")
		}
		c.compileColumnDef(ctx, col)
	}
	if pk := t.PrimaryKey; pk != nil {
		ctx.WriteString(", ")
		c.compileKey(ctx, pk.Name, "PRIMARY KEY", pk.Clustered, pk.Columns)
	}
	for _, u := range t.UniqueConstraints {
		ctx.WriteString(", ")
		c.compileKey(ctx, u.Name, "UNIQUE", u.Clustered, u.Columns)
	}
	ctx.WriteString(")")
	return nil
}

func (c *Compiler) compileKey(ctx *Context, name, kind string, clustered bool, cols []*catalog.Column) {
	if name != "" {
		ctx.WriteString("CONSTRAINT ").WriteString(c.ident(ctx, name)).WriteString(" ")
	}
	ctx.WriteString(kind)
	if clustered {
		ctx.WriteString(" CLUSTERED")
	} else {
		ctx.WriteString(" NONCLUSTERED")
	}
	ctx.WriteString(" (").WriteString(c.columnList(cols)).WriteString(")")
}

func (c *Compiler) compileAlterTable(ctx *Context, s *sqldom.AlterTable) error {
	table := c.tableName(&s.Table.Relation)
	kind, op := alterCapability(s.Action)
	if err := c.requireDDL(kind, op); err != nil {
		return err
	}
	if err := c.requireDDL(DDLTable, DDLAlter); err != nil {
		return err
	}
	if d, ok := s.Action.(*sqldom.DropDefault); ok && (d.Stale || d.Column.Default == nil || d.Column.Default.Name == "") {
		ctx.WriteString(c.translator.DropStaleDefault(ctx.NextVar("default"), s.Table.SchemaName(), s.Table.Name, d.Column.Name))
		return nil
	}
	ctx.WriteString("ALTER TABLE ").WriteString(table).WriteString(" ")
	switch a := s.Action.(type) {
	case *sqldom.AddColumn:
		ctx.WriteString("ADD ")
		c.compileColumnDef(ctx, a.Column)
	case *sqldom.DropColumn:
		ctx.WriteString("DROP COLUMN ").WriteString(c.translator.Quote(a.Column.Name))
	case *sqldom.AlterColumn:
		ctx.WriteString("ALTER COLUMN ").WriteString(c.translator.Quote(a.Column.Name)).
			WriteString(" ").WriteString(c.translator.TypeName(a.Type))
		if a.Nullable {
			ctx.WriteString(" NULL")
		} else {
			ctx.WriteString(" NOT NULL")
		}
	case *sqldom.AddPrimaryKey:
		ctx.WriteString("ADD ")
		c.compileKey(ctx, a.Key.Name, "PRIMARY KEY", a.Key.Clustered, a.Key.Columns)
	case *sqldom.AddUnique:
		ctx.WriteString("ADD ")
		c.compileKey(ctx, a.Constraint.Name, "UNIQUE", a.Constraint.Clustered, a.Constraint.Columns)
	case *sqldom.AddForeignKey:
		return c.compileForeignKey(ctx, a.ForeignKey)
	case *sqldom.AddCheck:
		ctx.WriteString("ADD ")
		if a.Name != "" {
			ctx.WriteString("CONSTRAINT ").WriteString(c.ident(ctx, a.Name)).WriteString(" ")
		}
		ctx.WriteString("CHECK (")
		if err := c.compileExpr(ctx, a.Condition); err != nil {
			return err
		}
		ctx.WriteString(")")
	case *sqldom.DropConstraint:
		ctx.WriteString("DROP CONSTRAINT ").WriteString(c.translator.Quote(a.Name))
	case *sqldom.SetDefault:
		ctx.WriteString("ADD CONSTRAINT ").WriteString(c.ident(ctx, a.Name)).WriteString(" DEFAULT (")
		if err := c.compileExpr(ctx, a.Value); err != nil {
			return err
		}
		ctx.WriteString(") FOR ").WriteString(c.translator.Quote(a.Column.Name))
	case *sqldom.DropDefault:
		ctx.WriteString("DROP CONSTRAINT ").WriteString(c.translator.Quote(a.Column.Default.Name))
	default:
		return c.unsupported(fmt.Sprintf("alter action %T", a))
	}
	return nil
}

// alterCapability returns the manifest DDL entry guarding an action.
func alterCapability(a sqldom.AlterAction) (kind, op string) {
	switch a.(type) {
	case *sqldom.AddColumn:
		return DDLColumn, DDLCreate
	case *sqldom.DropColumn:
		return DDLColumn, DDLDrop
	case *sqldom.AlterColumn:
		return DDLColumn, DDLAlter
	case *sqldom.AddPrimaryKey:
		return DDLPrimaryKey, DDLCreate
	case *sqldom.AddUnique:
		return DDLUnique, DDLCreate
	case *sqldom.AddForeignKey:
		return DDLForeignKey, DDLCreate
	case *sqldom.AddCheck:
		return DDLCheck, DDLCreate
	case *sqldom.SetDefault:
		return DDLDefault, DDLCreate
	case *sqldom.DropDefault:
		return DDLDefault, DDLDrop
	}
	return DDLTable, DDLAlter
}

func (c *Compiler) compileForeignKey(ctx *Context, fk *catalog.ForeignKey) error {
	if len(fk.Columns) == 0 || len(fk.Columns) != len(fk.ReferencedColumns) {
		return sqlsrv.NewValidationError("foreign key", "column pairs do not match", fk.Name)
	}
	ctx.WriteString("ADD CONSTRAINT ").WriteString(c.ident(ctx, fk.Name)).
		WriteString(" FOREIGN KEY (").WriteString(c.columnList(fk.Columns)).WriteString(")").
		WriteString(" REFERENCES ").WriteString(c.tableName(&fk.ReferencedTable.Relation)).
		WriteString(" (").WriteString(c.columnList(fk.ReferencedColumns)).WriteString(")")
	if fk.OnDelete != catalog.NoAction {
		ctx.WriteString(" ON DELETE ").WriteString(fk.OnDelete.String())
	}
	if fk.OnUpdate != catalog.NoAction {
		ctx.WriteString(" ON UPDATE ").WriteString(fk.OnUpdate.String())
	}
	return nil
}

func (c *Compiler) compileCreateIndex(ctx *Context, idx *catalog.Index) error {
	if err := c.requireDDL(DDLIndex, DDLCreate); err != nil {
		return err
	}
	if len(idx.Columns) == 0 {
		return sqlsrv.NewValidationError("index", "no key columns", idx.Name)
	}
	if idx.Spatial {
		if err := c.require(FeatureSpatialIndex, "spatial index"); err != nil {
			return err
		}
		ctx.WriteString("CREATE SPATIAL INDEX ").WriteString(c.ident(ctx, idx.Name)).
			WriteString(" ON ").WriteString(c.tableName(idx.Owner)).
			WriteString(" (").WriteString(c.translator.Quote(idx.Columns[0].Column.Name)).WriteString(")")
		return nil
	}
	if len(idx.NonKeyColumns) > 0 {
		if err := c.require(FeatureIncludeColumns, "included index columns"); err != nil {
			return err
		}
	}
	if idx.Filter != "" {
		if err := c.require(FeatureFilteredIndex, "filtered index"); err != nil {
			return err
		}
	}
	ctx.WriteString("CREATE ")
	if idx.Unique {
		ctx.WriteString("UNIQUE ")
	}
	if idx.Clustered {
		ctx.WriteString("CLUSTERED ")
	} else {
		ctx.WriteString("NONCLUSTERED ")
	}
	ctx.WriteString("INDEX ").WriteString(c.ident(ctx, idx.Name)).
		WriteString(" ON ").WriteString(c.tableName(idx.Owner)).WriteString(" (")
	for i, col := range idx.Columns {
		if i > 0 {
			ctx.WriteString(", ")
		}
		ctx.WriteString(c.translator.Quote(col.Column.Name))
		if col.Descending {
			ctx.WriteString(" DESC")
		}
	}
	ctx.WriteString(")")
	if len(idx.NonKeyColumns) > 0 {
		ctx.WriteString(" INCLUDE (").WriteString(c.columnList(idx.NonKeyColumns)).WriteString(")")
	}
	if idx.Filter != "" {
		ctx.WriteString(" WHERE ").WriteString(idx.Filter)
	}
	if idx.FillFactor > 0 {
		ctx.WriteString(" WITH (FILLFACTOR = ").WriteString(strconv.Itoa(idx.FillFactor)).WriteString(")")
	}
	return nil
}

func (c *Compiler) compileCreateView(ctx *Context, s *sqldom.CreateView) error {
	if err := c.requireDDL(DDLView, DDLCreate); err != nil {
		return err
	}
	if s.Query == nil {
		if s.View.Definition == "" {
			return sqlsrv.NewValidationError("view", "no query or definition", s.View.SchemaName(), s.View.Name)
		}
		ctx.WriteString(s.View.Definition)
		return nil
	}
	ctx.WriteString("CREATE VIEW ").WriteString(c.qualified(ctx, s.View.Schema, s.View.Name)).WriteString(" AS ")
	return c.compileQuery(ctx, s.Query)
}

func (c *Compiler) compileCreateSequence(ctx *Context, q *catalog.Sequence) error {
	if err := c.requireDDL(DDLSequence, DDLCreate); err != nil {
		return err
	}
	if err := c.require(FeatureSequences, "sequence"); err != nil {
		return err
	}
	inc := q.Increment
	if inc == 0 {
		inc = 1
	}
	typ := q.Type
	if typ.Kind == sqltype.Unknown {
		typ = sqltype.New(sqltype.Int64)
	}
	ctx.WriteString("CREATE SEQUENCE ").WriteString(c.qualified(ctx, q.Schema, q.Name)).
		WriteString(" AS ").WriteString(c.translator.TypeName(typ)).
		WriteString(fmt.Sprintf(" START WITH %d INCREMENT BY %d", q.Start, inc))
	if q.MinValue != nil {
		ctx.WriteString(fmt.Sprintf(" MINVALUE %d", *q.MinValue))
	}
	if q.MaxValue != nil {
		ctx.WriteString(fmt.Sprintf(" MAXVALUE %d", *q.MaxValue))
	}
	if q.Cycle {
		ctx.WriteString(" CYCLE")
	}
	return nil
}

func (c *Compiler) compileCreateFullText(ctx *Context, ft *catalog.FullTextIndex) error {
	if err := c.requireDDL(DDLFullText, DDLCreate); err != nil {
		return err
	}
	if len(ft.Columns) == 0 {
		return sqlsrv.NewValidationError("full-text index", "no columns", ft.Table.SchemaName(), ft.Table.Name)
	}
	for _, fc := range ft.Columns {
		if len(fc.Languages) > 1 {
			return sqlsrv.NewValidationError("full-text index",
				fmt.Sprintf("column %q of index %q has %d languages", fc.Column.Name, ft.UnderlyingUniqueIndex, len(fc.Languages)),
				ft.Table.SchemaName(), ft.Table.Name, fc.Column.Name)
		}
	}
	ctx.WriteString("CREATE FULLTEXT INDEX ON ").WriteString(c.tableName(&ft.Table.Relation)).WriteString(" (")
	for i, fc := range ft.Columns {
		if i > 0 {
			ctx.WriteString(", ")
		}
		ctx.WriteString(c.translator.Quote(fc.Column.Name))
		if fc.TypeColumn != nil {
			ctx.WriteString(" TYPE COLUMN ").WriteString(c.translator.Quote(fc.TypeColumn.Name))
		}
		if len(fc.Languages) == 1 {
			ctx.WriteString(" LANGUAGE ").WriteString(strconv.Itoa(fc.Languages[0].LCID))
		}
	}
	ctx.WriteString(") KEY INDEX ").WriteString(c.translator.Quote(ft.UnderlyingUniqueIndex))
	if ft.FullTextCatalog != "" {
		ctx.WriteString(" ON ").WriteString(c.translator.Quote(ft.FullTextCatalog))
	}
	if mode := ft.ChangeTracking.String(); mode != "" {
		ctx.WriteString(" WITH CHANGE_TRACKING ").WriteString(mode)
	}
	return nil
}

var renameKinds = map[sqldom.RenameKind]string{
	sqldom.RenameTable:  DDLTable,
	sqldom.RenameView:   DDLView,
	sqldom.RenameColumn: DDLColumn,
	sqldom.RenameIndex:  DDLIndex,
	sqldom.RenameSchema: DDLSchema,
}

func (c *Compiler) compileRename(ctx *Context, r *sqldom.Rename) error {
	if err := c.requireDDL(renameKinds[r.Kind], DDLRename); err != nil {
		return err
	}
	c.ident(ctx, r.NewName)
	text, err := c.translator.Rename(r)
	if err != nil {
		return err
	}
	ctx.WriteString(text)
	return nil
}
