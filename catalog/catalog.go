// Package catalog holds the reconstructed in-memory schema model.
//
// A Catalog is produced as a finished snapshot by one extraction call and
// can also be built by hand to drive DDL compilation:
//
//	c := catalog.New("shop")
//	dbo := c.AddSchema("dbo")
//	users := dbo.AddTable("users")
//	id := users.AddColumn("id", sqltype.New(sqltype.Int32))
//	users.SetPrimaryKey("pk_users", id)
//
// Objects hold back-references to their owners (column → relation,
// relation → schema, schema → catalog), so the graph is cyclic; use
// Describe for a printable, acyclic view.
package catalog

import (
	"strings"

	"github.com/syssam/sqlsrv/sqltype"
)

// Catalog is the root of the model: one database.
type Catalog struct {
	Name          string
	DefaultSchema *Schema
	Schemas       []*Schema
}

// New returns an empty catalog.
func New(name string) *Catalog {
	return &Catalog{Name: name}
}

// AddSchema creates a schema and appends it to the catalog.
func (c *Catalog) AddSchema(name string) *Schema {
	s := &Schema{Catalog: c, Name: name}
	c.Schemas = append(c.Schemas, s)
	return s
}

// Schema returns the schema with the given name, or nil.
func (c *Catalog) Schema(name string) *Schema {
	for _, s := range c.Schemas {
		if strings.EqualFold(s.Name, name) {
			return s
		}
	}
	return nil
}

// Schema is a namespace within a catalog.
type Schema struct {
	Catalog    *Catalog
	Name       string
	Owner      string
	Tables     []*Table
	Views      []*View
	Domains    []*Domain
	Sequences  []*Sequence
	Collations []*Collation
}

// AddTable creates a table in the schema.
func (s *Schema) AddTable(name string) *Table {
	t := &Table{}
	t.Relation = Relation{Schema: s, Name: name, table: t}
	s.Tables = append(s.Tables, t)
	return t
}

// AddView creates a view in the schema.
func (s *Schema) AddView(name, definition string) *View {
	v := &View{Definition: definition}
	v.Relation = Relation{Schema: s, Name: name, view: v}
	s.Views = append(s.Views, v)
	return v
}

// AddDomain creates a user-defined alias type in the schema.
func (s *Schema) AddDomain(name string, typ sqltype.Type, nullable bool) *Domain {
	d := &Domain{Schema: s, Name: name, Type: typ, Nullable: nullable}
	s.Domains = append(s.Domains, d)
	return d
}

// AddSequence creates a standalone sequence in the schema.
func (s *Schema) AddSequence(name string, typ sqltype.Type, start, increment int64) *Sequence {
	q := &Sequence{Schema: s, Name: name, Type: typ}
	q.Start, q.Increment = start, increment
	s.Sequences = append(s.Sequences, q)
	return q
}

// Collation returns the named collation, registering it on first use.
func (s *Schema) Collation(name string) *Collation {
	for _, c := range s.Collations {
		if c.Name == name {
			return c
		}
	}
	c := &Collation{Schema: s, Name: name}
	s.Collations = append(s.Collations, c)
	return c
}

// Table returns the table with the given name, or nil.
func (s *Schema) Table(name string) *Table {
	for _, t := range s.Tables {
		if strings.EqualFold(t.Name, name) {
			return t
		}
	}
	return nil
}

// View returns the view with the given name, or nil.
func (s *Schema) View(name string) *View {
	for _, v := range s.Views {
		if strings.EqualFold(v.Name, name) {
			return v
		}
	}
	return nil
}

// Domain returns the domain with the given name, or nil.
func (s *Schema) Domain(name string) *Domain {
	for _, d := range s.Domains {
		if strings.EqualFold(d.Name, name) {
			return d
		}
	}
	return nil
}

// Sequence returns the sequence with the given name, or nil.
func (s *Schema) Sequence(name string) *Sequence {
	for _, q := range s.Sequences {
		if strings.EqualFold(q.Name, name) {
			return q
		}
	}
	return nil
}

// Relation is the part shared by tables and views: a named, column-bearing
// object that can carry indexes.
type Relation struct {
	Schema  *Schema
	Name    string
	Columns []*Column
	Indexes []*Index

	table *Table
	view  *View
}

// AddColumn appends a column; its position is the current column count.
func (r *Relation) AddColumn(name string, typ sqltype.Type) *Column {
	c := &Column{Owner: r, Name: name, Position: len(r.Columns), Type: typ, Nullable: true}
	r.Columns = append(r.Columns, c)
	return c
}

// AddIndex appends an index over the given key columns (ascending).
func (r *Relation) AddIndex(name string, columns ...*Column) *Index {
	idx := &Index{Owner: r, Name: name}
	for _, c := range columns {
		idx.Columns = append(idx.Columns, IndexColumn{Column: c})
	}
	r.Indexes = append(r.Indexes, idx)
	return idx
}

// Column returns the column with the given name, or nil.
func (r *Relation) Column(name string) *Column {
	for _, c := range r.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// Index returns the index with the given name, or nil.
func (r *Relation) Index(name string) *Index {
	for _, i := range r.Indexes {
		if strings.EqualFold(i.Name, name) {
			return i
		}
	}
	return nil
}

// Table returns the owning table, or nil when the relation is a view.
func (r *Relation) Table() *Table { return r.table }

// View returns the owning view, or nil when the relation is a table.
func (r *Relation) View() *View { return r.view }

// SchemaName returns the owning schema name, or "" when detached.
func (r *Relation) SchemaName() string {
	if r.Schema == nil {
		return ""
	}
	return r.Schema.Name
}

// Table is a base table.
type Table struct {
	Relation
	PrimaryKey        *PrimaryKey
	UniqueConstraints []*UniqueConstraint
	ForeignKeys       []*ForeignKey
	FullTextIndex     *FullTextIndex
}

// SetPrimaryKey sets the primary key of the table.
func (t *Table) SetPrimaryKey(name string, columns ...*Column) *PrimaryKey {
	t.PrimaryKey = &PrimaryKey{Table: t, Name: name, Columns: columns, Clustered: true}
	return t.PrimaryKey
}

// AddUniqueConstraint appends a unique constraint.
func (t *Table) AddUniqueConstraint(name string, columns ...*Column) *UniqueConstraint {
	u := &UniqueConstraint{Table: t, Name: name, Columns: columns}
	t.UniqueConstraints = append(t.UniqueConstraints, u)
	return u
}

// AddForeignKey appends a foreign key.
func (t *Table) AddForeignKey(name string, ref *Table) *ForeignKey {
	fk := &ForeignKey{Table: t, Name: name, ReferencedTable: ref}
	t.ForeignKeys = append(t.ForeignKeys, fk)
	return fk
}

// View is a stored query.
type View struct {
	Relation
	// Definition is the module text as stored by the server.
	Definition string
}

// Column belongs to a table or a view.
type Column struct {
	Owner     *Relation
	Name      string
	Position  int
	Type      sqltype.Type
	Nullable  bool
	Domain    *Domain
	Default   *DefaultConstraint
	Computed  *ComputedColumn
	Sequence  *SequenceDescriptor
	Collation *Collation
}

// DefaultConstraint is a named column default.
type DefaultConstraint struct {
	Name       string
	Expression string
}

// ComputedColumn describes a computed column expression.
type ComputedColumn struct {
	Expression string
	Persisted  bool
}

// SequenceDescriptor describes identity generation for a column or
// a standalone sequence.
type SequenceDescriptor struct {
	Start     int64
	Increment int64
	LastValue *int64
}

// Sequence is a standalone sequence object.
type Sequence struct {
	SequenceDescriptor
	Schema   *Schema
	Name     string
	Type     sqltype.Type
	MinValue *int64
	MaxValue *int64
	Cycle    bool
}

// Domain is a user-defined alias type.
type Domain struct {
	Schema   *Schema
	Name     string
	Type     sqltype.Type
	Nullable bool
}

// Collation is a named collation referenced by columns.
type Collation struct {
	Schema *Schema
	Name   string
}

// IndexColumn is a key column of an index.
type IndexColumn struct {
	Column     *Column
	Descending bool
}

// Index is a relational or spatial index.
type Index struct {
	Owner         *Relation
	Name          string
	Columns       []IndexColumn
	NonKeyColumns []*Column
	Unique        bool
	Clustered     bool
	Spatial       bool
	FillFactor    int
	// Filter is the filter predicate text of a filtered index.
	Filter string
}

// PrimaryKey is the primary key constraint of a table.
type PrimaryKey struct {
	Table     *Table
	Name      string
	Columns   []*Column
	Clustered bool
}

// UniqueConstraint is a unique key constraint.
type UniqueConstraint struct {
	Table     *Table
	Name      string
	Columns   []*Column
	Clustered bool
}

// ReferentialAction is the action taken on referencing rows.
type ReferentialAction int

// Referential actions.
const (
	NoAction ReferentialAction = iota
	Cascade
	SetNull
	SetDefault
)

// String returns the SQL keyword form.
func (a ReferentialAction) String() string {
	switch a {
	case Cascade:
		return "CASCADE"
	case SetNull:
		return "SET NULL"
	case SetDefault:
		return "SET DEFAULT"
	default:
		return "NO ACTION"
	}
}

// ForeignKey pairs referencing and referenced columns by position.
type ForeignKey struct {
	Table             *Table
	Name              string
	Columns           []*Column
	ReferencedTable   *Table
	ReferencedColumns []*Column
	OnDelete          ReferentialAction
	OnUpdate          ReferentialAction
}

// AddColumnPair appends a referencing/referenced column pair.
func (fk *ForeignKey) AddColumnPair(column, referenced *Column) {
	fk.Columns = append(fk.Columns, column)
	fk.ReferencedColumns = append(fk.ReferencedColumns, referenced)
}
