package sqldom

import (
	"github.com/syssam/sqlsrv/catalog"
	"github.com/syssam/sqlsrv/sqltype"
)

// DDL statements reference catalog model objects; names are taken from the
// objects and their owners.
type (
	// CreateSchema creates a schema.
	CreateSchema struct {
		Schema *catalog.Schema
	}

	// DropSchema drops a schema.
	DropSchema struct {
		Schema *catalog.Schema
	}

	// CreateTable creates a table with its columns, primary key, unique
	// constraints and defaults. Foreign keys are added separately.
	CreateTable struct {
		Table *catalog.Table
	}

	// DropTable drops a table.
	DropTable struct {
		Table *catalog.Table
	}

	// AlterTable applies one action to a table.
	AlterTable struct {
		Table  *catalog.Table
		Action AlterAction
	}

	// CreateIndex creates an index.
	CreateIndex struct {
		Index *catalog.Index
	}

	// DropIndex drops an index.
	DropIndex struct {
		Index *catalog.Index
	}

	// CreateView creates a view from a query.
	CreateView struct {
		View  *catalog.View
		Query Query
	}

	// DropView drops a view.
	DropView struct {
		View *catalog.View
	}

	// CreateDomain creates a user-defined alias type.
	CreateDomain struct {
		Domain *catalog.Domain
	}

	// DropDomain drops a user-defined alias type.
	DropDomain struct {
		Domain *catalog.Domain
	}

	// CreateSequence creates a standalone sequence.
	CreateSequence struct {
		Sequence *catalog.Sequence
	}

	// DropSequence drops a standalone sequence.
	DropSequence struct {
		Sequence *catalog.Sequence
	}

	// CreateFullTextIndex creates the full-text index of a table.
	CreateFullTextIndex struct {
		Index *catalog.FullTextIndex
	}

	// DropFullTextIndex drops the full-text index of a table.
	DropFullTextIndex struct {
		Table *catalog.Table
	}

	// Rename renames an object. Schema and Table locate it; Name is the
	// column or index name for those kinds.
	Rename struct {
		Kind    RenameKind
		Schema  string
		Table   string
		Name    string
		NewName string
	}
)

// RenameKind is the kind of renamed object.
type RenameKind int

// Renamable object kinds.
const (
	RenameTable RenameKind = iota
	RenameView
	RenameColumn
	RenameIndex
	RenameSchema
)

// AlterAction is one ALTER TABLE action.
type AlterAction interface {
	Node
	alter()
}

type (
	// AddColumn adds a column.
	AddColumn struct {
		Column *catalog.Column
	}

	// DropColumn drops a column.
	DropColumn struct {
		Column *catalog.Column
	}

	// AlterColumn changes the type or nullability of a column.
	AlterColumn struct {
		Column   *catalog.Column
		Type     sqltype.Type
		Nullable bool
	}

	// AddPrimaryKey adds the table's primary key constraint.
	AddPrimaryKey struct {
		Key *catalog.PrimaryKey
	}

	// AddUnique adds a unique constraint.
	AddUnique struct {
		Constraint *catalog.UniqueConstraint
	}

	// AddForeignKey adds a foreign key.
	AddForeignKey struct {
		ForeignKey *catalog.ForeignKey
	}

	// AddCheck adds a check constraint.
	AddCheck struct {
		Name      string
		Condition Expression
	}

	// DropConstraint drops a named constraint.
	DropConstraint struct {
		Name string
	}

	// SetDefault adds a named default constraint to a column.
	SetDefault struct {
		Column *catalog.Column
		Name   string
		Value  Expression
	}

	// DropDefault drops the default constraint of a column. With Stale set
	// the constraint name is looked up at execution time instead of using
	// Column.Default.Name.
	DropDefault struct {
		Column *catalog.Column
		Stale  bool
	}
)

func (*AddColumn) node()      {}
func (*DropColumn) node()     {}
func (*AlterColumn) node()    {}
func (*AddPrimaryKey) node()  {}
func (*AddUnique) node()      {}
func (*AddForeignKey) node()  {}
func (*AddCheck) node()       {}
func (*DropConstraint) node() {}
func (*SetDefault) node()     {}
func (*DropDefault) node()    {}

func (*AddColumn) alter()      {}
func (*DropColumn) alter()     {}
func (*AlterColumn) alter()    {}
func (*AddPrimaryKey) alter()  {}
func (*AddUnique) alter()      {}
func (*AddForeignKey) alter()  {}
func (*AddCheck) alter()       {}
func (*DropConstraint) alter() {}
func (*SetDefault) alter()     {}
func (*DropDefault) alter()    {}

func (*CreateSchema) node()        {}
func (*DropSchema) node()          {}
func (*CreateTable) node()         {}
func (*DropTable) node()           {}
func (*AlterTable) node()          {}
func (*CreateIndex) node()         {}
func (*DropIndex) node()           {}
func (*CreateView) node()          {}
func (*DropView) node()            {}
func (*CreateDomain) node()        {}
func (*DropDomain) node()          {}
func (*CreateSequence) node()      {}
func (*DropSequence) node()        {}
func (*CreateFullTextIndex) node() {}
func (*DropFullTextIndex) node()   {}
func (*Rename) node()              {}

func (*CreateSchema) stmt()        {}
func (*DropSchema) stmt()          {}
func (*CreateTable) stmt()         {}
func (*DropTable) stmt()           {}
func (*AlterTable) stmt()          {}
func (*CreateIndex) stmt()         {}
func (*DropIndex) stmt()           {}
func (*CreateView) stmt()          {}
func (*DropView) stmt()            {}
func (*CreateDomain) stmt()        {}
func (*DropDomain) stmt()          {}
func (*CreateSequence) stmt()      {}
func (*DropSequence) stmt()        {}
func (*CreateFullTextIndex) stmt() {}
func (*DropFullTextIndex) stmt()   {}
func (*Rename) stmt()              {}
