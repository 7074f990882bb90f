package sqldom

// Statement is a top-level compilable command.
type Statement interface {
	Node
	stmt()
}

// Query is a statement yielding rows: a Select or a SetOperation.
type Query interface {
	Statement
	query()
}

// TableSource is an item of a FROM clause.
type TableSource interface {
	Node
	source()
}

type (
	// Table references a base table or view.
	Table struct {
		Schema string
		Name   string
		Alias  string
	}

	// Join combines two table sources.
	Join struct {
		Kind        JoinKind
		Left, Right TableSource
		On          Expression
	}

	// QueryRef is a derived table.
	QueryRef struct {
		Query Query
		Alias string
	}
)

func (*Table) node()    {}
func (*Join) node()     {}
func (*QueryRef) node() {}

func (*Table) source()    {}
func (*Join) source()     {}
func (*QueryRef) source() {}

// JoinKind is the type of a join.
type JoinKind int

// Join kinds.
const (
	InnerJoin JoinKind = iota
	LeftJoin
	RightJoin
	FullJoin
	CrossJoin
	CrossApply
	OuterApply
)

// TableAs returns a table reference with an alias.
func TableAs(schema, name, alias string) *Table {
	return &Table{Schema: schema, Name: name, Alias: alias}
}

// LockMode is the row lock requested by a query.
type LockMode int

// Lock modes.
const (
	LockNone LockMode = iota
	LockShared
	LockUpdate
	LockExclusive
)

// LockBehavior is the wait policy of a lock request.
type LockBehavior int

// Lock behaviors.
const (
	LockWait LockBehavior = iota
	LockNoWait
	LockSkipLocked
)

// SelectColumn is a projected expression with an optional alias.
type SelectColumn struct {
	Expr  Expression
	Alias string
}

// Order is an ORDER BY item.
type Order struct {
	Expr Expression
	Desc bool
}

// Select is a SELECT statement.
type Select struct {
	Distinct bool
	Columns  []SelectColumn
	From     TableSource
	Where    Expression
	GroupBy  []Expression
	Having   Expression
	OrderBy  []Order
	// Limit and Offset restrict the result window. Offset requires Limit.
	Limit  Expression
	Offset Expression
	Lock   LockMode
	Wait   LockBehavior
	// Hints are native query hints rendered in an OPTION clause.
	Hints []string
}

// SetOperator combines two queries.
type SetOperator int

// Set operators.
const (
	Union SetOperator = iota
	Intersect
	Except
)

// SetOperation is UNION, INTERSECT or EXCEPT over two queries.
type SetOperation struct {
	Op          SetOperator
	All         bool
	Left, Right Query
	OrderBy     []Order
}

// Assignment is a SET item of an UPDATE.
type Assignment struct {
	Column string
	Value  Expression
}

// Insert is an INSERT statement. Exactly one of Values, Query and
// DefaultValues provides the rows.
type Insert struct {
	Into          *Table
	Columns       []string
	Values        [][]Expression
	Query         Query
	DefaultValues bool
	// Output lists inserted columns returned by an OUTPUT clause.
	Output []string
}

// Update is an UPDATE statement.
type Update struct {
	Table *Table
	Set   []Assignment
	From  TableSource
	Where Expression
	Limit Expression
}

// Delete is a DELETE statement.
type Delete struct {
	Table *Table
	From  TableSource
	Where Expression
	Limit Expression
}

// Batch is a sequence of statements compiled into one command.
type Batch struct {
	Statements []Statement
}

func (*Select) node()       {}
func (*SetOperation) node() {}
func (*Insert) node()       {}
func (*Update) node()       {}
func (*Delete) node()       {}
func (*Batch) node()        {}

func (*Select) stmt()       {}
func (*SetOperation) stmt() {}
func (*Insert) stmt()       {}
func (*Update) stmt()       {}
func (*Delete) stmt()       {}
func (*Batch) stmt()        {}

func (*Select) query()       {}
func (*SetOperation) query() {}
