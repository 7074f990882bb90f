package catalog

import (
	"ariga.io/atlas/sql/schema"

	"github.com/syssam/sqlsrv/sqltype"
)

// NativeNamer renders a neutral type as a native type name, e.g.
// "nvarchar(50)". The SQL Server type mapper provides one.
type NativeNamer func(sqltype.Type) string

// ToAtlas converts the catalog into an Atlas realm so that it can be
// inspected, diffed or printed with the Atlas tooling.
func ToAtlas(c *Catalog, native NativeNamer) *schema.Realm {
	realm := &schema.Realm{}
	tables := make(map[*Table]*schema.Table)
	columns := make(map[*Column]*schema.Column)
	for _, s := range c.Schemas {
		as := &schema.Schema{Name: s.Name, Realm: realm}
		realm.Schemas = append(realm.Schemas, as)
		for _, t := range s.Tables {
			at := &schema.Table{Name: t.Name, Schema: as}
			for _, col := range t.Columns {
				ac := atlasColumn(col, native)
				at.Columns = append(at.Columns, ac)
				columns[col] = ac
			}
			for _, idx := range t.Indexes {
				at.Indexes = append(at.Indexes, atlasIndex(idx, at, columns))
			}
			if pk := t.PrimaryKey; pk != nil {
				at.PrimaryKey = &schema.Index{Name: pk.Name, Unique: true, Table: at}
				for i, col := range pk.Columns {
					at.PrimaryKey.Parts = append(at.PrimaryKey.Parts, &schema.IndexPart{SeqNo: i, C: columns[col]})
				}
			}
			for _, u := range t.UniqueConstraints {
				ai := &schema.Index{Name: u.Name, Unique: true, Table: at}
				for i, col := range u.Columns {
					ai.Parts = append(ai.Parts, &schema.IndexPart{SeqNo: i, C: columns[col]})
				}
				at.Indexes = append(at.Indexes, ai)
			}
			as.Tables = append(as.Tables, at)
			tables[t] = at
		}
		for _, v := range s.Views {
			av := &schema.View{Name: v.Name, Def: v.Definition, Schema: as}
			for _, col := range v.Columns {
				av.Columns = append(av.Columns, atlasColumn(col, native))
			}
			as.Views = append(as.Views, av)
		}
	}
	// Foreign keys may reference tables of later schemas.
	for _, s := range c.Schemas {
		for _, t := range s.Tables {
			at := tables[t]
			for _, fk := range t.ForeignKeys {
				ref, ok := tables[fk.ReferencedTable]
				if !ok {
					continue
				}
				af := &schema.ForeignKey{
					Symbol:   fk.Name,
					Table:    at,
					RefTable: ref,
					OnDelete: referenceOption(fk.OnDelete),
					OnUpdate: referenceOption(fk.OnUpdate),
				}
				for i, col := range fk.Columns {
					af.Columns = append(af.Columns, columns[col])
					af.RefColumns = append(af.RefColumns, columns[fk.ReferencedColumns[i]])
				}
				at.ForeignKeys = append(at.ForeignKeys, af)
			}
		}
	}
	return realm
}

func atlasColumn(col *Column, native NativeNamer) *schema.Column {
	ac := &schema.Column{
		Name: col.Name,
		Type: &schema.ColumnType{Type: atlasType(col.Type, native(col.Type)), Raw: native(col.Type), Null: col.Nullable},
	}
	if col.Default != nil {
		ac.Default = &schema.RawExpr{X: col.Default.Expression}
	}
	if col.Computed != nil {
		g := &schema.GeneratedExpr{Expr: col.Computed.Expression, Type: "VIRTUAL"}
		if col.Computed.Persisted {
			g.Type = "PERSISTED"
		}
		ac.Attrs = append(ac.Attrs, g)
	}
	if col.Collation != nil {
		ac.Attrs = append(ac.Attrs, &schema.Collation{V: col.Collation.Name})
	}
	return ac
}

func atlasIndex(idx *Index, at *schema.Table, columns map[*Column]*schema.Column) *schema.Index {
	ai := &schema.Index{Name: idx.Name, Unique: idx.Unique, Table: at}
	for i, ic := range idx.Columns {
		ai.Parts = append(ai.Parts, &schema.IndexPart{SeqNo: i, Desc: ic.Descending, C: columns[ic.Column]})
	}
	return ai
}

func atlasType(t sqltype.Type, name string) schema.Type {
	switch k := t.Kind; {
	case k == sqltype.Boolean:
		return &schema.BoolType{T: name}
	case k.IsInteger():
		if k == sqltype.UInt64 {
			return &schema.DecimalType{T: name, Precision: 20}
		}
		return &schema.IntegerType{T: name}
	case k == sqltype.Interval:
		return &schema.IntegerType{T: name}
	case k == sqltype.Decimal || k == sqltype.Money:
		p, s := t.PrecisionOr(18, 0)
		return &schema.DecimalType{T: name, Precision: p, Scale: s}
	case k == sqltype.Float || k == sqltype.Double:
		return &schema.FloatType{T: name}
	case k.IsTemporal():
		return &schema.TimeType{T: name, Precision: t.Precision}
	case k == sqltype.Char || k == sqltype.VarChar || k == sqltype.VarCharMax:
		return &schema.StringType{T: name, Size: t.LengthOr(0)}
	case k == sqltype.Binary || k == sqltype.VarBinary || k == sqltype.VarBinaryMax:
		return &schema.BinaryType{T: name, Size: t.Length}
	case k == sqltype.Guid:
		return &schema.UUIDType{T: name}
	}
	return &schema.UnsupportedType{T: name}
}

func referenceOption(a ReferentialAction) schema.ReferenceOption {
	switch a {
	case Cascade:
		return schema.Cascade
	case SetNull:
		return schema.SetNull
	case SetDefault:
		return schema.SetDefault
	default:
		return schema.NoAction
	}
}
