package sqlserver

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/sqlsrv"
	"github.com/syssam/sqlsrv/catalog"
	"github.com/syssam/sqlsrv/sqltype"
)

// Querier runs a read-only query and returns a forward-only cursor. It is
// satisfied by *sql.DB, *sql.Conn, *sql.Tx and the dialect/sql wrappers.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ExtractOptions selects what an extraction reads.
type ExtractOptions struct {
	// Catalog is the database to read. Empty means the current database
	// of the connection.
	Catalog string
	// Schemas restricts extraction to the named schemas. Empty means all
	// user schemas. Naming a schema that does not exist is an error.
	Schemas []string
}

// StageStats reports one catalog query of an extraction.
type StageStats struct {
	Stage    string
	Rows     int
	Duration time.Duration
}

// String returns a human-readable summary of the stage.
func (s StageStats) String() string {
	return fmt.Sprintf("%s: rows=%d duration=%s", s.Stage, s.Rows, s.Duration)
}

// Extraction is the finished result of one extraction call.
type Extraction struct {
	Catalog *catalog.Catalog
	Stats   []StageStats
}

// ExtractResult is delivered by ExtractAsync. Exactly one of Extraction
// and Err is set.
type ExtractResult struct {
	*Extraction
	Err error
}

// Extractor reconstructs a Catalog from the system catalog views of one
// connection. It only issues read-only queries. An Extractor holds no
// per-call state and may run several extractions, one at a time per
// connection.
type Extractor struct {
	q          Querier
	manifest   *Manifest
	translator *Translator
	logger     *slog.Logger
	onStage    func(StageStats)
}

// NewExtractor returns an extractor reading through q. The manifest
// selects the catalog query variants of the server version.
func NewExtractor(q Querier, m *Manifest, opts ...Option) *Extractor {
	cfg := newConfig(opts)
	return &Extractor{q: q, manifest: m, translator: NewTranslator(m), logger: cfg.logger, onStage: cfg.onStage}
}

// Extract runs the extraction pipeline and blocks until it finishes. The
// context is checked before every row read; on cancellation or any other
// failure no catalog is returned.
func (e *Extractor) Extract(ctx context.Context, opts ExtractOptions) (*Extraction, error) {
	x := &extraction{
		Extractor: e,
		opts:      opts,
		schemas:   make(map[int]*catalog.Schema),
		schemaIDs: make(map[*catalog.Schema]int),
		types:     make(map[int]typeRef),
		objects:   make(map[int]*resolver),
	}
	start := time.Now()
	if err := x.run(ctx); err != nil {
		e.logger.DebugContext(ctx, "catalog extraction failed", "error", err)
		return nil, err
	}
	e.logger.InfoContext(ctx, "catalog extracted",
		"catalog", x.catalog.Name,
		"schemas", len(x.catalog.Schemas),
		"objects", len(x.objects),
		"duration", time.Since(start),
	)
	return &Extraction{Catalog: x.catalog, Stats: x.stats}, nil
}

// ExtractAsync runs the same pipeline as Extract in a new goroutine. The
// returned channel receives one result and is then closed. Cancelling ctx
// stops the extraction at the next row read.
func (e *Extractor) ExtractAsync(ctx context.Context, opts ExtractOptions) <-chan ExtractResult {
	ch := make(chan ExtractResult, 1)
	go func() {
		defer close(ch)
		res, err := e.Extract(ctx, opts)
		ch <- ExtractResult{Extraction: res, Err: err}
	}()
	return ch
}

// ExtractCatalogs extracts several databases concurrently. sources maps a
// database name to an extractor with a connection of its own. The first
// failure cancels the remaining extractions.
func ExtractCatalogs(ctx context.Context, sources map[string]*Extractor, schemas ...string) (map[string]*Extraction, error) {
	g, ctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	out := make(map[string]*Extraction, len(sources))
	for name, e := range sources {
		g.Go(func() error {
			res, err := e.Extract(ctx, ExtractOptions{Catalog: name, Schemas: schemas})
			if err != nil {
				return fmt.Errorf("sqlserver: extract catalog %s: %w", name, err)
			}
			mu.Lock()
			out[name] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// extraction is the scratch state of one Extract call. It is never shared.
type extraction struct {
	*Extractor
	opts      ExtractOptions
	catalog   *catalog.Catalog
	schemas   map[int]*catalog.Schema
	schemaIDs map[*catalog.Schema]int
	types     map[int]typeRef
	objects   map[int]*resolver
	replacer  *strings.Replacer
	stats     []StageStats
}

// typeRef is a resolvable entry of sys.types: a known system type or a
// domain over one.
type typeRef struct {
	name   string
	domain *catalog.Domain
}

// resolver maps the column ids of one table or view to its columns.
// column_id has gaps, so positions come from first-seen order instead.
type resolver struct {
	rel     *catalog.Relation
	columns map[int]*catalog.Column
}

func (r *resolver) column(objectID, columnID int) (*catalog.Column, error) {
	c, ok := r.columns[columnID]
	if !ok {
		return nil, sqlsrv.NewNotFoundError("column", fmt.Sprintf("%d:%d", objectID, columnID))
	}
	return c, nil
}

func (x *extraction) run(ctx context.Context) error {
	stages := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"schemas", x.extractSchemas},
		{"placeholders", x.registerPlaceholders},
		{"types", x.extractTypes},
		{"objects", x.extractObjects},
		{"columns", x.extractColumns},
		{"identity", x.extractIdentity},
		{"indexes", x.extractIndexes},
		{"foreign keys", x.extractForeignKeys},
		{"full-text indexes", x.extractFullText},
	}
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := st.fn(ctx); err != nil {
			return &sqlsrv.StageError{Stage: st.name, Err: err}
		}
	}
	return nil
}

// query runs one templated catalog query and calls scan for every row.
// The cursor is closed on every return path.
func (x *extraction) query(ctx context.Context, stage, query string, scan func(*sql.Rows) error) (rerr error) {
	start := time.Now()
	if x.replacer != nil {
		query = x.replacer.Replace(query)
	}
	rows, err := x.q.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer func() { rerr = errors.Join(rerr, rows.Close()) }()
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !rows.Next() {
			break
		}
		if err := scan(rows); err != nil {
			return err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	st := StageStats{Stage: stage, Rows: n, Duration: time.Since(start)}
	x.stats = append(x.stats, st)
	x.logger.DebugContext(ctx, "catalog query", "stage", st.Stage, "rows", st.Rows, "duration", st.Duration)
	if x.onStage != nil {
		x.onStage(st)
	}
	return nil
}

func (x *extraction) extractSchemas(ctx context.Context) error {
	var database, defaultSchema sql.NullString
	err := x.query(ctx, "database", databaseQuery, func(rows *sql.Rows) error {
		return rows.Scan(&database, &defaultSchema)
	})
	if err != nil {
		return err
	}
	x.catalog = catalog.New(cmp.Or(x.opts.Catalog, database.String))
	x.replacer = strings.NewReplacer(placeholderCatalog, x.translator.Quote(x.catalog.Name))
	return x.query(ctx, "schemas", schemasQuery, func(rows *sql.Rows) error {
		var (
			id    int
			name  string
			owner sql.NullString
		)
		if err := rows.Scan(&id, &name, &owner); err != nil {
			return err
		}
		s := x.catalog.AddSchema(name)
		s.Owner = owner.String
		x.schemas[id] = s
		x.schemaIDs[s] = id
		if strings.EqualFold(name, defaultSchema.String) {
			x.catalog.DefaultSchema = s
		}
		return nil
	})
}

// registerPlaceholders resolves the schema filter to schema ids and fixes
// the substitutions used by every later query. Schemas outside the filter
// are dropped from the catalog.
func (x *extraction) registerPlaceholders(context.Context) error {
	filter := unrestrictedSchemaFilter
	if len(x.opts.Schemas) > 0 {
		var ids []int
		for _, name := range x.opts.Schemas {
			s := x.catalog.Schema(name)
			if s == nil {
				return sqlsrv.NewValidationError("schema filter", "schema does not exist in catalog "+x.catalog.Name, name)
			}
			ids = append(ids, x.schemaIDs[s])
		}
		slices.Sort(ids)
		ids = slices.Compact(ids)
		x.catalog.Schemas = slices.DeleteFunc(x.catalog.Schemas, func(s *catalog.Schema) bool {
			if _, ok := slices.BinarySearch(ids, x.schemaIDs[s]); ok {
				return false
			}
			delete(x.schemas, x.schemaIDs[s])
			return true
		})
		if d := x.catalog.DefaultSchema; d != nil && !slices.Contains(x.catalog.Schemas, d) {
			x.catalog.DefaultSchema = nil
		}
		list := make([]string, len(ids))
		for i, id := range ids {
			list[i] = strconv.Itoa(id)
		}
		filter = "IN (" + strings.Join(list, ", ") + ")"
	}
	indexFilter := noIndexFilterColumns
	if x.manifest.Supports(FeatureFilteredIndex) {
		indexFilter = indexFilterColumns
	}
	x.replacer = strings.NewReplacer(
		placeholderCatalog, x.translator.Quote(x.catalog.Name),
		placeholderSchemaFilter, filter,
		placeholderObjectFilter, "o.is_ms_shipped = 0 AND o.schema_id "+filter,
		placeholderIndexFilter, indexFilter,
	)
	return nil
}

func (x *extraction) extractTypes(ctx context.Context) error {
	return x.query(ctx, "types", typesQuery, func(rows *sql.Rows) error {
		var (
			userTypeID, systemTypeID, schemaID int
			name                               string
			maxLength, precision, scale        int
			nullable, userDefined              bool
		)
		if err := rows.Scan(&userTypeID, &systemTypeID, &schemaID, &name, &maxLength, &precision, &scale, &nullable, &userDefined); err != nil {
			return err
		}
		if !userDefined {
			// A system type this mapper does not know is only a problem
			// if a column uses it.
			if _, ok := x.translator.types.ResolveNative(name, maxLength, precision, scale); !ok {
				x.logger.DebugContext(ctx, "skipping unknown system type", "name", name, "id", userTypeID)
				return nil
			}
			x.types[userTypeID] = typeRef{name: name}
			return nil
		}
		s, ok := x.schemas[schemaID]
		if !ok {
			return sqlsrv.NewNotFoundError("schema", schemaID)
		}
		base, ok := x.types[systemTypeID]
		if !ok {
			return sqlsrv.NewNotFoundError("type", systemTypeID)
		}
		typ, _ := x.translator.types.ResolveNative(base.name, maxLength, precision, scale)
		x.types[userTypeID] = typeRef{name: base.name, domain: s.AddDomain(name, typ, nullable)}
		return nil
	})
}

func (x *extraction) extractObjects(ctx context.Context) error {
	return x.query(ctx, "objects", objectsQuery, func(rows *sql.Rows) error {
		var (
			objectID, schemaID int
			name, kind         string
			definition         sql.NullString
		)
		if err := rows.Scan(&objectID, &schemaID, &name, &kind, &definition); err != nil {
			return err
		}
		s, ok := x.schemas[schemaID]
		if !ok {
			return sqlsrv.NewNotFoundError("schema", schemaID)
		}
		var rel *catalog.Relation
		switch strings.TrimSpace(kind) {
		case "U":
			rel = &s.AddTable(name).Relation
		case "V":
			rel = &s.AddView(name, definition.String).Relation
		default:
			return nil
		}
		x.objects[objectID] = &resolver{rel: rel, columns: make(map[int]*catalog.Column)}
		return nil
	})
}

func (x *extraction) extractColumns(ctx context.Context) error {
	return x.query(ctx, "columns", columnsQuery, func(rows *sql.Rows) error {
		var (
			objectID, columnID, userTypeID                    int
			name                                              string
			maxLength, precision, scale                       int
			nullable                                          bool
			collation, defaultName, defaultExpr, computedExpr sql.NullString
			persisted                                         sql.NullBool
		)
		if err := rows.Scan(&objectID, &columnID, &name, &userTypeID, &maxLength, &precision, &scale, &nullable,
			&collation, &defaultName, &defaultExpr, &computedExpr, &persisted); err != nil {
			return err
		}
		r, ok := x.objects[objectID]
		if !ok {
			return sqlsrv.NewNotFoundError("object", objectID)
		}
		ref, ok := x.types[userTypeID]
		if !ok {
			return sqlsrv.NewNotFoundError("type", userTypeID)
		}
		var typ sqltype.Type
		if ref.domain != nil {
			typ = ref.domain.Type
		} else {
			typ, _ = x.translator.types.ResolveNative(ref.name, maxLength, precision, scale)
		}
		c := r.rel.AddColumn(name, typ)
		c.Nullable = nullable
		c.Domain = ref.domain
		if collation.Valid {
			c.Collation = r.rel.Schema.Collation(collation.String)
		}
		if defaultName.Valid {
			c.Default = &catalog.DefaultConstraint{Name: defaultName.String, Expression: defaultExpr.String}
		}
		if computedExpr.Valid {
			c.Computed = &catalog.ComputedColumn{Expression: computedExpr.String, Persisted: persisted.Bool}
		}
		r.columns[columnID] = c
		return nil
	})
}

// extractIdentity attaches identity descriptors to known columns and, on
// versions with sequences, reads the standalone sequences.
func (x *extraction) extractIdentity(ctx context.Context) error {
	err := x.query(ctx, "identity", identityQuery, func(rows *sql.Rows) error {
		var (
			objectID, columnID int
			seed, increment    int64
			last               sql.NullInt64
		)
		if err := rows.Scan(&objectID, &columnID, &seed, &increment, &last); err != nil {
			return err
		}
		r, ok := x.objects[objectID]
		if !ok {
			return nil
		}
		c, ok := r.columns[columnID]
		if !ok {
			return nil
		}
		c.Sequence = &catalog.SequenceDescriptor{Start: seed, Increment: increment, LastValue: nullInt64(last)}
		return nil
	})
	if err != nil || !x.manifest.Supports(FeatureSequences) {
		return err
	}
	return x.query(ctx, "sequences", sequencesQuery, func(rows *sql.Rows) error {
		var (
			schemaID, userTypeID, precision, scale int
			name                                   string
			start, increment                       int64
			minValue, maxValue, current            sql.NullInt64
			cycle                                  bool
		)
		if err := rows.Scan(&schemaID, &name, &userTypeID, &precision, &scale, &start, &increment,
			&minValue, &maxValue, &cycle, &current); err != nil {
			return err
		}
		s, ok := x.schemas[schemaID]
		if !ok {
			return sqlsrv.NewNotFoundError("schema", schemaID)
		}
		ref, ok := x.types[userTypeID]
		if !ok {
			return sqlsrv.NewNotFoundError("type", userTypeID)
		}
		var typ sqltype.Type
		if ref.domain != nil {
			typ = ref.domain.Type
		} else {
			typ, _ = x.translator.types.ResolveNative(ref.name, 0, precision, scale)
		}
		q := s.AddSequence(name, typ, start, increment)
		q.MinValue, q.MaxValue = nullInt64(minValue), nullInt64(maxValue)
		q.LastValue = nullInt64(current)
		q.Cycle = cycle
		return nil
	})
}

// sys.indexes.type values.
const (
	indexClustered            = 1
	indexSpatial              = 4
	indexClusteredColumnstore = 5
)

// indexGroup collects the rows of one index.
type indexGroup struct {
	owner            *resolver
	objectID         int
	indexID          int
	name             string
	kind             int
	unique           bool
	primaryKey       bool
	uniqueConstraint bool
	fillFactor       int
	filter           string
	keys             []catalog.IndexColumn
	included         []*catalog.Column
}

func (x *extraction) extractIndexes(ctx context.Context) error {
	var g *indexGroup
	err := x.query(ctx, "indexes", indexesQuery, func(rows *sql.Rows) error {
		var (
			objectID, indexID, kind, fillFactor  int
			name, filter                         sql.NullString
			unique, primaryKey, uniqueConstraint bool
			hasFilter, descending, included      bool
			columnID                             int
		)
		if err := rows.Scan(&objectID, &indexID, &name, &kind, &unique, &primaryKey, &uniqueConstraint, &fillFactor,
			&hasFilter, &filter, &columnID, &descending, &included); err != nil {
			return err
		}
		// The first row of each (object, index) pair starts a new index.
		if g == nil || g.objectID != objectID || g.indexID != indexID {
			addIndex(g)
			r, ok := x.objects[objectID]
			if !ok {
				return sqlsrv.NewNotFoundError("object", objectID)
			}
			g = &indexGroup{
				owner:            r,
				objectID:         objectID,
				indexID:          indexID,
				name:             name.String,
				kind:             kind,
				unique:           unique,
				primaryKey:       primaryKey,
				uniqueConstraint: uniqueConstraint,
				fillFactor:       fillFactor,
			}
			if hasFilter {
				g.filter = filter.String
			}
		}
		c, err := g.owner.column(objectID, columnID)
		if err != nil {
			return err
		}
		if included {
			g.included = append(g.included, c)
		} else {
			g.keys = append(g.keys, catalog.IndexColumn{Column: c, Descending: descending})
		}
		return nil
	})
	if err != nil {
		return err
	}
	addIndex(g)
	return nil
}

// addIndex classifies a finished group as a primary key, a unique
// constraint or an index.
func addIndex(g *indexGroup) {
	if g == nil {
		return
	}
	rel, t := g.owner.rel, g.owner.rel.Table()
	clustered := g.kind == indexClustered || g.kind == indexClusteredColumnstore
	columns := make([]*catalog.Column, len(g.keys))
	for i, k := range g.keys {
		columns[i] = k.Column
	}
	switch {
	case g.primaryKey && t != nil:
		t.SetPrimaryKey(g.name, columns...).Clustered = clustered
	case g.uniqueConstraint && t != nil:
		t.AddUniqueConstraint(g.name, columns...).Clustered = clustered
	default:
		idx := rel.AddIndex(g.name)
		idx.Columns = g.keys
		idx.NonKeyColumns = g.included
		idx.Unique = g.unique
		idx.Clustered = clustered
		idx.Spatial = g.kind == indexSpatial
		idx.FillFactor = g.fillFactor
		idx.Filter = g.filter
	}
}

func (x *extraction) extractForeignKeys(ctx context.Context) error {
	var (
		fk                 *catalog.ForeignKey
		parent, referenced *resolver
		parentID, refID    int
	)
	return x.query(ctx, "foreign keys", foreignKeysQuery, func(rows *sql.Rows) error {
		var (
			fkID, onDelete, onUpdate   int
			name                       string
			ordinal, parentCol, refCol int
		)
		if err := rows.Scan(&fkID, &name, &parentID, &refID, &onDelete, &onUpdate, &ordinal, &parentCol, &refCol); err != nil {
			return err
		}
		// Constraint column 1 starts a new foreign key.
		if ordinal == 1 {
			var err error
			if parent, err = x.table(parentID); err != nil {
				return err
			}
			if referenced, err = x.table(refID); err != nil {
				return err
			}
			fk = parent.rel.Table().AddForeignKey(name, referenced.rel.Table())
			fk.OnDelete = catalog.ReferentialAction(onDelete)
			fk.OnUpdate = catalog.ReferentialAction(onUpdate)
		}
		if fk == nil {
			return sqlsrv.NewNotFoundError("foreign key", fkID)
		}
		c, err := parent.column(parentID, parentCol)
		if err != nil {
			return err
		}
		rc, err := referenced.column(refID, refCol)
		if err != nil {
			return err
		}
		fk.AddColumnPair(c, rc)
		return nil
	})
}

// table returns the resolver of a base table.
func (x *extraction) table(objectID int) (*resolver, error) {
	r, ok := x.objects[objectID]
	if !ok || r.rel.Table() == nil {
		return nil, sqlsrv.NewNotFoundError("table", objectID)
	}
	return r, nil
}

var changeTracking = map[string]catalog.ChangeTrackingMode{
	"A": catalog.ChangeTrackingAuto,
	"M": catalog.ChangeTrackingManual,
	"O": catalog.ChangeTrackingOff,
}

func (x *extraction) extractFullText(ctx context.Context) error {
	var (
		ft    *catalog.FullTextIndex
		owner *resolver
		last  = -1
	)
	return x.query(ctx, "full-text indexes", fullTextQuery, func(rows *sql.Rows) error {
		var (
			objectID, columnID, lcid int
			keyIndex, ftCatalog      string
			state                    sql.NullString
			typeColumnID             sql.NullInt64
		)
		if err := rows.Scan(&objectID, &keyIndex, &ftCatalog, &state, &columnID, &typeColumnID, &lcid); err != nil {
			return err
		}
		// Rows are grouped by owning table.
		if objectID != last {
			r, err := x.table(objectID)
			if err != nil {
				return err
			}
			owner, last = r, objectID
			ft = r.rel.Table().SetFullTextIndex(keyIndex, ftCatalog)
			ft.ChangeTracking = changeTracking[strings.TrimSpace(state.String)]
		}
		c, err := owner.column(objectID, columnID)
		if err != nil {
			return err
		}
		fc := ft.Column(c)
		if fc == nil {
			fc = ft.AddColumn(c)
		}
		if typeColumnID.Valid {
			if fc.TypeColumn, err = owner.column(objectID, int(typeColumnID.Int64)); err != nil {
				return err
			}
		}
		lang := catalog.LanguageFromLCID(lcid)
		if !slices.ContainsFunc(fc.Languages, func(l catalog.Language) bool { return l.LCID == lcid }) {
			fc.Languages = append(fc.Languages, lang)
		}
		if len(fc.Languages) > 1 {
			return sqlsrv.NewValidationError("full-text index",
				fmt.Sprintf("column has more than one language (%s, %s) in the index keyed by %s", fc.Languages[0], fc.Languages[1], keyIndex),
				owner.rel.SchemaName(), owner.rel.Name, c.Name)
		}
		return nil
	})
}

func nullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}
