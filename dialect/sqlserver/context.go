package sqlserver

import (
	"errors"
	"strconv"
	"strings"

	"github.com/syssam/sqlsrv/sqldom"
)

// Section is a named slot in the emission order of a statement.
type Section int

// Statement sections. Select, Update, Delete and Insert each use a fixed
// ordered subset; see selectSections and friends.
const (
	SectionEntry Section = iota
	SectionLimit
	SectionHints
	SectionColumns
	SectionTable
	SectionSet
	SectionValues
	SectionFrom
	SectionWhere
	SectionGroupBy
	SectionHaving
	SectionOrderBy
	SectionLock
	SectionExit
)

var sectionNames = [...]string{
	SectionEntry:   "entry",
	SectionLimit:   "limit",
	SectionHints:   "hints",
	SectionColumns: "columns",
	SectionTable:   "table",
	SectionSet:     "set",
	SectionValues:  "values",
	SectionFrom:    "from",
	SectionWhere:   "where",
	SectionGroupBy: "groupby",
	SectionHaving:  "having",
	SectionOrderBy: "orderby",
	SectionLock:    "lock",
	SectionExit:    "exit",
}

func (s Section) String() string {
	if s >= 0 && int(s) < len(sectionNames) {
		return sectionNames[s]
	}
	return "section(" + strconv.Itoa(int(s)) + ")"
}

var (
	selectSections = []Section{SectionEntry, SectionLimit, SectionHints, SectionColumns, SectionFrom, SectionWhere, SectionGroupBy, SectionHaving, SectionOrderBy, SectionLock, SectionExit}
	updateSections = []Section{SectionEntry, SectionLimit, SectionTable, SectionSet, SectionFrom, SectionWhere, SectionExit}
	deleteSections = []Section{SectionEntry, SectionLimit, SectionTable, SectionFrom, SectionWhere, SectionExit}
	insertSections = []Section{SectionEntry, SectionTable, SectionColumns, SectionValues, SectionExit}
)

// Fragment is the text a translator emits around the children of a section.
// An empty fragment means the section is absent.
type Fragment struct {
	Open  string
	Close string
}

// IsEmpty reports whether the section is absent.
func (f Fragment) IsEmpty() bool { return f.Open == "" && f.Close == "" }

// Context is the per-call state of one compilation. It is never shared
// between calls.
type Context struct {
	out      *strings.Builder
	sections []Section
	// lockingStatement is the statement whose table references receive lock
	// hints. It is set on entry to a locking SELECT and restored on exit.
	lockingStatement *sqldom.Select
	params           []Parameter
	names            map[*sqldom.Parameter]string
	// inline renders parameters as literals (DDL bodies).
	inline  bool
	aliases int
	vars    int
	errs    []error
}

func newContext() *Context {
	return &Context{out: new(strings.Builder), names: make(map[*sqldom.Parameter]string)}
}

// WriteString appends s to the output.
func (c *Context) WriteString(s string) *Context {
	c.out.WriteString(s)
	return c
}

// String returns the text written so far.
func (c *Context) String() string {
	return c.out.String()
}

// Len returns the length of the text written so far.
func (c *Context) Len() int {
	return c.out.Len()
}

// capture runs f against a fresh buffer and returns what it wrote.
// Parameters registered by f stay registered.
func (c *Context) capture(f func() error) (string, error) {
	prev := c.out
	c.out = new(strings.Builder)
	defer func() { c.out = prev }()
	err := f()
	return c.out.String(), err
}

// Section returns the innermost section being compiled.
func (c *Context) Section() (Section, bool) {
	if len(c.sections) == 0 {
		return 0, false
	}
	return c.sections[len(c.sections)-1], true
}

func (c *Context) push(s Section) { c.sections = append(c.sections, s) }
func (c *Context) pop()           { c.sections = c.sections[:len(c.sections)-1] }

// LockingStatement returns the statement that requested row locks for the
// table references being compiled, or nil.
func (c *Context) LockingStatement() *sqldom.Select {
	return c.lockingStatement
}

// enterStatement makes s the current locking statement when it requests a
// lock, and clears it otherwise. The returned func restores the previous
// value.
func (c *Context) enterStatement(s *sqldom.Select) func() {
	prev := c.lockingStatement
	if s != nil && s.Lock != sqldom.LockNone {
		c.lockingStatement = s
	} else {
		c.lockingStatement = nil
	}
	return func() { c.lockingStatement = prev }
}

// bound reports whether a parameter named name is already bound.
// Names compare without case.
func (c *Context) bound(name string) bool {
	for _, p := range c.params {
		if strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

// NextAlias returns a fresh table alias.
func (c *Context) NextAlias() string {
	a := "t" + strconv.Itoa(c.aliases)
	c.aliases++
	return a
}

// NextVar returns a fresh local variable name with the given stem.
func (c *Context) NextVar(stem string) string {
	c.vars++
	return "@" + stem + strconv.Itoa(c.vars)
}

// AddError records an error reported at the end of the compilation.
func (c *Context) AddError(err error) {
	if err != nil {
		c.errs = append(c.errs, err)
	}
}

// Err returns the recorded errors, joined.
func (c *Context) Err() error {
	return errors.Join(c.errs...)
}
