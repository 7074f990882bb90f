package catalog

import "strconv"

// Description is an acyclic, serializable view of a Catalog. Cross
// references are replaced by names.
type Description struct {
	Name          string              `json:"name" yaml:"name"`
	DefaultSchema string              `json:"default_schema,omitempty" yaml:"default_schema,omitempty"`
	Schemas       []SchemaDescription `json:"schemas" yaml:"schemas"`
}

// SchemaDescription describes one schema.
type SchemaDescription struct {
	Name       string                `json:"name" yaml:"name"`
	Owner      string                `json:"owner,omitempty" yaml:"owner,omitempty"`
	Domains    []DomainDescription   `json:"domains,omitempty" yaml:"domains,omitempty"`
	Sequences  []SequenceDescription `json:"sequences,omitempty" yaml:"sequences,omitempty"`
	Tables     []TableDescription    `json:"tables,omitempty" yaml:"tables,omitempty"`
	Views      []TableDescription    `json:"views,omitempty" yaml:"views,omitempty"`
	Collations []string              `json:"collations,omitempty" yaml:"collations,omitempty"`
}

// DomainDescription describes a user-defined type.
type DomainDescription struct {
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type" yaml:"type"`
	Nullable bool   `json:"nullable" yaml:"nullable"`
}

// SequenceDescription describes a standalone sequence.
type SequenceDescription struct {
	Name      string `json:"name" yaml:"name"`
	Type      string `json:"type" yaml:"type"`
	Start     int64  `json:"start" yaml:"start"`
	Increment int64  `json:"increment" yaml:"increment"`
	Cycle     bool   `json:"cycle,omitempty" yaml:"cycle,omitempty"`
}

// TableDescription describes a table or a view.
type TableDescription struct {
	Name        string                  `json:"name" yaml:"name"`
	Definition  string                  `json:"definition,omitempty" yaml:"definition,omitempty"`
	Columns     []ColumnDescription     `json:"columns" yaml:"columns"`
	PrimaryKey  *KeyDescription         `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	Uniques     []KeyDescription        `json:"unique_constraints,omitempty" yaml:"unique_constraints,omitempty"`
	Indexes     []IndexDescription      `json:"indexes,omitempty" yaml:"indexes,omitempty"`
	ForeignKeys []ForeignKeyDescription `json:"foreign_keys,omitempty" yaml:"foreign_keys,omitempty"`
	FullText    *FullTextDescription    `json:"fulltext_index,omitempty" yaml:"fulltext_index,omitempty"`
}

// ColumnDescription describes a column.
type ColumnDescription struct {
	Name      string `json:"name" yaml:"name"`
	Position  int    `json:"position" yaml:"position"`
	Type      string `json:"type" yaml:"type"`
	Nullable  bool   `json:"nullable" yaml:"nullable"`
	Domain    string `json:"domain,omitempty" yaml:"domain,omitempty"`
	Default   string `json:"default,omitempty" yaml:"default,omitempty"`
	Computed  string `json:"computed,omitempty" yaml:"computed,omitempty"`
	Identity  string `json:"identity,omitempty" yaml:"identity,omitempty"`
	Collation string `json:"collation,omitempty" yaml:"collation,omitempty"`
}

// KeyDescription describes a primary key or unique constraint.
type KeyDescription struct {
	Name    string   `json:"name" yaml:"name"`
	Columns []string `json:"columns" yaml:"columns"`
}

// IndexDescription describes an index.
type IndexDescription struct {
	Name      string   `json:"name" yaml:"name"`
	Columns   []string `json:"columns" yaml:"columns"`
	Include   []string `json:"include,omitempty" yaml:"include,omitempty"`
	Unique    bool     `json:"unique,omitempty" yaml:"unique,omitempty"`
	Clustered bool     `json:"clustered,omitempty" yaml:"clustered,omitempty"`
	Spatial   bool     `json:"spatial,omitempty" yaml:"spatial,omitempty"`
	Filter    string   `json:"filter,omitempty" yaml:"filter,omitempty"`
}

// ForeignKeyDescription describes a foreign key.
type ForeignKeyDescription struct {
	Name       string   `json:"name" yaml:"name"`
	Columns    []string `json:"columns" yaml:"columns"`
	References string   `json:"references" yaml:"references"`
	RefColumns []string `json:"ref_columns" yaml:"ref_columns"`
	OnDelete   string   `json:"on_delete" yaml:"on_delete"`
	OnUpdate   string   `json:"on_update" yaml:"on_update"`
}

// FullTextDescription describes a full-text index.
type FullTextDescription struct {
	KeyIndex       string   `json:"key_index" yaml:"key_index"`
	Catalog        string   `json:"catalog,omitempty" yaml:"catalog,omitempty"`
	ChangeTracking string   `json:"change_tracking,omitempty" yaml:"change_tracking,omitempty"`
	Columns        []string `json:"columns" yaml:"columns"`
}

// Describe returns the acyclic view of c.
func Describe(c *Catalog) *Description {
	d := &Description{Name: c.Name}
	if c.DefaultSchema != nil {
		d.DefaultSchema = c.DefaultSchema.Name
	}
	for _, s := range c.Schemas {
		sd := SchemaDescription{Name: s.Name, Owner: s.Owner}
		for _, dom := range s.Domains {
			sd.Domains = append(sd.Domains, DomainDescription{Name: dom.Name, Type: dom.Type.String(), Nullable: dom.Nullable})
		}
		for _, q := range s.Sequences {
			sd.Sequences = append(sd.Sequences, SequenceDescription{
				Name: q.Name, Type: q.Type.String(), Start: q.Start, Increment: q.Increment, Cycle: q.Cycle,
			})
		}
		for _, t := range s.Tables {
			td := describeRelation(&t.Relation)
			if pk := t.PrimaryKey; pk != nil {
				td.PrimaryKey = &KeyDescription{Name: pk.Name, Columns: columnNames(pk.Columns)}
			}
			for _, u := range t.UniqueConstraints {
				td.Uniques = append(td.Uniques, KeyDescription{Name: u.Name, Columns: columnNames(u.Columns)})
			}
			for _, fk := range t.ForeignKeys {
				td.ForeignKeys = append(td.ForeignKeys, ForeignKeyDescription{
					Name:       fk.Name,
					Columns:    columnNames(fk.Columns),
					References: qualifiedName(&fk.ReferencedTable.Relation),
					RefColumns: columnNames(fk.ReferencedColumns),
					OnDelete:   fk.OnDelete.String(),
					OnUpdate:   fk.OnUpdate.String(),
				})
			}
			if ft := t.FullTextIndex; ft != nil {
				fd := &FullTextDescription{KeyIndex: ft.UnderlyingUniqueIndex, Catalog: ft.FullTextCatalog, ChangeTracking: ft.ChangeTracking.String()}
				for _, fc := range ft.Columns {
					name := fc.Column.Name
					for _, l := range fc.Languages {
						name += " " + l.String()
					}
					fd.Columns = append(fd.Columns, name)
				}
				td.FullText = fd
			}
			sd.Tables = append(sd.Tables, td)
		}
		for _, v := range s.Views {
			vd := describeRelation(&v.Relation)
			vd.Definition = v.Definition
			sd.Views = append(sd.Views, vd)
		}
		for _, col := range s.Collations {
			sd.Collations = append(sd.Collations, col.Name)
		}
		d.Schemas = append(d.Schemas, sd)
	}
	return d
}

func describeRelation(r *Relation) TableDescription {
	td := TableDescription{Name: r.Name}
	for _, c := range r.Columns {
		cd := ColumnDescription{Name: c.Name, Position: c.Position, Type: c.Type.String(), Nullable: c.Nullable}
		if c.Domain != nil {
			cd.Domain = c.Domain.Name
		}
		if c.Default != nil {
			cd.Default = c.Default.Expression
		}
		if c.Computed != nil {
			cd.Computed = c.Computed.Expression
		}
		if c.Sequence != nil {
			cd.Identity = formatIdentity(c.Sequence)
		}
		if c.Collation != nil {
			cd.Collation = c.Collation.Name
		}
		td.Columns = append(td.Columns, cd)
	}
	for _, idx := range r.Indexes {
		id := IndexDescription{Name: idx.Name, Unique: idx.Unique, Clustered: idx.Clustered, Spatial: idx.Spatial, Filter: idx.Filter}
		for _, ic := range idx.Columns {
			name := ic.Column.Name
			if ic.Descending {
				name += " DESC"
			}
			id.Columns = append(id.Columns, name)
		}
		id.Include = columnNames(idx.NonKeyColumns)
		td.Indexes = append(td.Indexes, id)
	}
	return td
}

func formatIdentity(s *SequenceDescriptor) string {
	return "(" + strconv.FormatInt(s.Start, 10) + "," + strconv.FormatInt(s.Increment, 10) + ")"
}

func columnNames(cs []*Column) []string {
	if len(cs) == 0 {
		return nil
	}
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.Name
	}
	return names
}

func qualifiedName(r *Relation) string {
	if s := r.SchemaName(); s != "" {
		return s + "." + r.Name
	}
	return r.Name
}
