package catalog

import (
	"testing"

	"ariga.io/atlas/sql/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/syssam/sqlsrv"
	"github.com/syssam/sqlsrv/sqltype"
)

func shop() *Catalog {
	c := New("shop")
	dbo := c.AddSchema("dbo")
	c.DefaultSchema = dbo

	users := dbo.AddTable("users")
	uid := users.AddColumn("id", sqltype.New(sqltype.Int32))
	uid.Nullable = false
	uid.Sequence = &SequenceDescriptor{Start: 1, Increment: 1}
	name := users.AddColumn("name", sqltype.WithLength(sqltype.VarChar, 100))
	name.Collation = dbo.Collation("Latin1_General_CI_AS")
	users.SetPrimaryKey("pk_users", uid)
	users.AddUniqueConstraint("uq_users_name", name)

	orders := dbo.AddTable("orders")
	oid := orders.AddColumn("id", sqltype.New(sqltype.Int64))
	oid.Nullable = false
	ouser := orders.AddColumn("user_id", sqltype.New(sqltype.Int32))
	total := orders.AddColumn("total", sqltype.WithPrecision(sqltype.Decimal, 18, 2))
	total.Default = &DefaultConstraint{Name: "df_orders_total", Expression: "((0))"}
	orders.SetPrimaryKey("pk_orders", oid)
	idx := orders.AddIndex("ix_orders_user", ouser)
	idx.NonKeyColumns = []*Column{total}
	fk := orders.AddForeignKey("fk_orders_users", users)
	fk.AddColumnPair(ouser, uid)
	fk.OnDelete = Cascade

	dbo.AddView("v_totals", "CREATE VIEW v_totals AS SELECT user_id, SUM(total) AS total FROM orders GROUP BY user_id")
	return c
}

func TestLookups(t *testing.T) {
	c := shop()
	dbo := c.Schema("DBO")
	require.NotNil(t, dbo)
	assert.Nil(t, c.Schema("sales"))

	users := dbo.Table("Users")
	require.NotNil(t, users)
	assert.Equal(t, users, users.Relation.Table())
	assert.Nil(t, users.Relation.View())
	assert.Equal(t, 1, users.Column("NAME").Position)
	assert.Nil(t, users.Column("missing"))
	assert.Equal(t, "dbo", users.SchemaName())

	v := dbo.View("v_totals")
	require.NotNil(t, v)
	assert.Equal(t, v, v.Relation.View())

	assert.Same(t, dbo.Collation("Latin1_General_CI_AS"), dbo.Collation("Latin1_General_CI_AS"))
	assert.Len(t, dbo.Collations, 1)
	assert.NotNil(t, dbo.Table("orders").Index("IX_ORDERS_USER"))
}

func TestValidate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		res := Validate(shop())
		assert.False(t, res.HasErrors(), res.String())
		assert.False(t, res.HasWarnings(), res.String())
		assert.NoError(t, res.Err())
		assert.Equal(t, "No issues found", res.String())
	})

	t.Run("Positions", func(t *testing.T) {
		c := shop()
		c.Schema("dbo").Table("users").Columns[1].Position = 5
		res := Validate(c)
		require.True(t, res.HasErrors())
		assert.Contains(t, res.Errors[0].Error(), "dbo.users.name: column position 5, want 1")
		assert.True(t, sqlsrv.IsValidationError(res.Err()))
	})

	t.Run("AllErrors", func(t *testing.T) {
		c := shop()
		c.Schema("dbo").Table("users").Columns[1].Position = 5
		c.Schema("dbo").Table("orders").ForeignKeys[0].ReferencedColumns = nil
		res := Validate(c)
		require.Len(t, res.Errors, 2)
		err := res.Err()
		var agg *sqlsrv.AggregateError
		require.ErrorAs(t, err, &agg)
		require.Len(t, agg.Errors, 2)
		assert.True(t, sqlsrv.IsValidationError(err))
		assert.Contains(t, err.Error(), "sqlsrv: invalid catalog dbo.users.name: column position 5, want 1")
		assert.Contains(t, err.Error(), "pairs 1 columns with 0 referenced columns")
	})

	t.Run("ForeignKeyPairs", func(t *testing.T) {
		c := shop()
		fk := c.Schema("dbo").Table("orders").ForeignKeys[0]
		fk.ReferencedColumns = nil
		res := Validate(c)
		require.True(t, res.HasErrors())
		assert.Contains(t, res.String(), "pairs 1 columns with 0 referenced columns")
	})

	t.Run("Languages", func(t *testing.T) {
		c := shop()
		users := c.Schema("dbo").Table("users")
		ft := users.SetFullTextIndex("uq_users_name", "ftc")
		fc := ft.AddColumn(users.Column("name"))
		fc.Languages = []Language{LanguageFromLCID(1033), LanguageFromLCID(1031)}
		res := Validate(c)
		require.True(t, res.HasErrors())
		assert.Contains(t, res.Errors[0].Error(), "dbo.users.name")
		assert.Contains(t, res.Errors[0].Error(), `"uq_users_name" has 2 languages`)
	})

	t.Run("PrimaryKey", func(t *testing.T) {
		c := shop()
		c.Schema("dbo").AddTable("heap").AddColumn("x", sqltype.New(sqltype.Int32))
		res := Validate(c)
		assert.False(t, res.HasErrors())
		require.True(t, res.HasWarnings())
		res = Validate(c, RequirePrimaryKey())
		require.True(t, res.HasErrors())
		assert.Equal(t, "dbo.heap: table has no primary key", res.Errors[0].Error())
	})

	t.Run("Duplicates", func(t *testing.T) {
		c := shop()
		dbo := c.Schema("dbo")
		dbo.AddView("USERS", "")
		res := Validate(c)
		require.True(t, res.HasErrors())
		assert.Contains(t, res.String(), "duplicate object name")
		assert.False(t, Validate(c, SkipViews()).HasErrors())
	})
}

func TestLanguageFromLCID(t *testing.T) {
	assert.Equal(t, language.AmericanEnglish, LanguageFromLCID(1033).Tag)
	assert.Equal(t, "en-US", LanguageFromLCID(1033).String())
	assert.Equal(t, language.Und, LanguageFromLCID(99999).Tag)
	assert.Equal(t, "99999", LanguageFromLCID(99999).String())
}

func TestDescribe(t *testing.T) {
	d := Describe(shop())
	assert.Equal(t, "shop", d.Name)
	assert.Equal(t, "dbo", d.DefaultSchema)
	require.Len(t, d.Schemas, 1)
	s := d.Schemas[0]
	require.Len(t, s.Tables, 2)
	assert.Equal(t, []string{"Latin1_General_CI_AS"}, s.Collations)

	users := s.Tables[0]
	assert.Equal(t, "(1,1)", users.Columns[0].Identity)
	assert.Equal(t, "VarChar(100)", users.Columns[1].Type)
	assert.Equal(t, &KeyDescription{Name: "pk_users", Columns: []string{"id"}}, users.PrimaryKey)

	orders := s.Tables[1]
	require.Len(t, orders.ForeignKeys, 1)
	assert.Equal(t, ForeignKeyDescription{
		Name:       "fk_orders_users",
		Columns:    []string{"user_id"},
		References: "dbo.users",
		RefColumns: []string{"id"},
		OnDelete:   "CASCADE",
		OnUpdate:   "NO ACTION",
	}, orders.ForeignKeys[0])
	assert.Equal(t, []string{"total"}, orders.Indexes[0].Include)
	require.Len(t, s.Views, 1)
	assert.Contains(t, s.Views[0].Definition, "CREATE VIEW")
}

func TestToAtlas(t *testing.T) {
	realm := ToAtlas(shop(), func(t sqltype.Type) string { return t.String() })
	require.Len(t, realm.Schemas, 1)
	s := realm.Schemas[0]
	assert.Same(t, realm, s.Realm)
	require.Len(t, s.Tables, 2)

	users, orders := s.Tables[0], s.Tables[1]
	assert.Equal(t, "users", users.Name)
	require.NotNil(t, users.PrimaryKey)
	assert.Same(t, users.Columns[0], users.PrimaryKey.Parts[0].C)
	assert.IsType(t, &schema.IntegerType{}, users.Columns[0].Type.Type)
	assert.IsType(t, &schema.StringType{}, users.Columns[1].Type.Type)
	assert.Equal(t, 100, users.Columns[1].Type.Type.(*schema.StringType).Size)

	require.Len(t, orders.ForeignKeys, 1)
	fk := orders.ForeignKeys[0]
	assert.Same(t, users, fk.RefTable)
	assert.Same(t, users.Columns[0], fk.RefColumns[0])
	assert.Equal(t, schema.Cascade, fk.OnDelete)
	assert.Equal(t, &schema.RawExpr{X: "((0))"}, orders.Columns[2].Default)
	dec := orders.Columns[2].Type.Type.(*schema.DecimalType)
	assert.Equal(t, 18, dec.Precision)
	assert.Equal(t, 2, dec.Scale)

	require.Len(t, s.Views, 1)
	assert.Equal(t, "v_totals", s.Views[0].Name)
}
