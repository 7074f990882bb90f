package sqlserver

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/syssam/sqlsrv/dialect"
	"github.com/syssam/sqlsrv/sqltype"
)

//go:embed manifest.yaml
var manifestYAML []byte

// Feature is a query capability named in the manifest.
type Feature string

// Query features.
const (
	FeatureNamedParameters       Feature = "named_parameters"
	FeatureBatches               Feature = "batches"
	FeatureLimit                 Feature = "limit"
	FeatureOffset                Feature = "offset"
	FeaturePagingRequiresOrderBy Feature = "paging_requires_order_by"
	FeatureMultiSchema           Feature = "multischema"
	FeatureMultiDatabase         Feature = "multidatabase"
	FeatureScalarSubqueries      Feature = "scalar_subqueries"
	FeatureUpdateLimit           Feature = "update_limit"
	FeatureDeleteLimit           Feature = "delete_limit"
	FeatureUpdateFrom            Feature = "update_from"
	FeatureDeleteFrom            Feature = "delete_from"
	FeatureCrossApply            Feature = "cross_apply"
	FeatureUnionAll              Feature = "union_all"
	FeatureIntersect             Feature = "intersect"
	FeatureExcept                Feature = "except"
	FeatureIntersectAll          Feature = "intersect_all"
	FeatureExceptAll             Feature = "except_all"
	FeatureRoundTruncate         Feature = "round_truncate"
	FeatureBankersRound          Feature = "bankers_round"
	FeatureCharLength            Feature = "char_length"
	FeatureTrimFunction          Feature = "trim_function"
	FeatureDateFromParts         Feature = "date_from_parts"
	FeatureDateType              Feature = "date_type"
	FeatureTimeType              Feature = "time_type"
	FeatureDateTime2             Feature = "datetime2"
	FeatureRowNumber             Feature = "row_number"
	FeatureOutputClause          Feature = "output_clause"
	FeatureIncludeColumns        Feature = "include_columns"
	FeatureFilteredIndex         Feature = "filtered_index"
	FeatureSpatialIndex          Feature = "spatial_index"
	FeatureLockHints             Feature = "lock_hints"
	FeatureReadPast              Feature = "readpast"
	FeatureConcatFunction        Feature = "concat_function"
	FeatureSequences             Feature = "sequences"
	FeatureDropIfExists          Feature = "drop_if_exists"
	FeatureMultiRowValues        Feature = "multirow_values"
)

// DDL object kinds.
const (
	DDLSchema     = "schema"
	DDLTable      = "table"
	DDLColumn     = "column"
	DDLIndex      = "index"
	DDLPrimaryKey = "primary_key"
	DDLUnique     = "unique"
	DDLForeignKey = "foreign_key"
	DDLCheck      = "check"
	DDLDefault    = "default"
	DDLDomain     = "domain"
	DDLView       = "view"
	DDLSequence   = "sequence"
	DDLFullText   = "fulltext"
)

// DDL operations.
const (
	DDLCreate = "create"
	DDLAlter  = "alter"
	DDLDrop   = "drop"
	DDLRename = "rename"
)

// TypeInfo describes how a neutral kind is stored natively.
type TypeInfo struct {
	Kind         sqltype.Kind `yaml:"kind"`
	Native       string       `yaml:"native"`
	Min          string       `yaml:"min,omitempty"`
	Max          string       `yaml:"max,omitempty"`
	MaxLength    int          `yaml:"max_length,omitempty"`
	MaxPrecision int          `yaml:"max_precision,omitempty"`
	// Cast marks kinds whose parameters need an explicit CAST.
	Cast bool `yaml:"cast,omitempty"`
}

// Manifest is the read-only capability description of one server version.
// It is the only place capability checks are answered.
type Manifest struct {
	version             dialect.Version
	name                string
	maxIdentifierLength int
	maxParameterCount   int
	maxStringLength     int
	maxBinaryLength     int
	maxDecimalPrecision int
	parameterPrefix     string
	ddl                 map[string][]string
	features            []Feature
	isolationLevels     []string
	types               map[sqltype.Kind]TypeInfo
}

// Version returns the server version.
func (m *Manifest) Version() dialect.Version { return m.version }

// Name returns the product name, e.g. "SQL Server 2012".
func (m *Manifest) Name() string { return m.name }

// MaxIdentifierLength returns the maximum identifier length in characters.
func (m *Manifest) MaxIdentifierLength() int { return m.maxIdentifierLength }

// MaxParameterCount returns the maximum number of parameters per command.
func (m *Manifest) MaxParameterCount() int { return m.maxParameterCount }

// MaxStringLength returns the maximum fixed length of a unicode string.
func (m *Manifest) MaxStringLength() int { return m.maxStringLength }

// MaxBinaryLength returns the maximum fixed length of a binary value.
func (m *Manifest) MaxBinaryLength() int { return m.maxBinaryLength }

// MaxDecimalPrecision returns the maximum decimal precision.
func (m *Manifest) MaxDecimalPrecision() int { return m.maxDecimalPrecision }

// ParameterPrefix returns the parameter name prefix.
func (m *Manifest) ParameterPrefix() string { return m.parameterPrefix }

// Supports reports whether the query feature is available.
func (m *Manifest) Supports(f Feature) bool {
	return slices.Contains(m.features, f)
}

// SupportsDDL reports whether the operation is available for the object kind.
func (m *Manifest) SupportsDDL(kind, op string) bool {
	return slices.Contains(m.ddl[kind], op)
}

// SupportsIsolation reports whether the isolation level is available.
func (m *Manifest) SupportsIsolation(level string) bool {
	return slices.Contains(m.isolationLevels, level)
}

// Features returns the supported query features, sorted.
func (m *Manifest) Features() []Feature {
	fs := slices.Clone(m.features)
	slices.Sort(fs)
	return fs
}

// IsolationLevels returns the supported isolation levels.
func (m *Manifest) IsolationLevels() []string {
	return slices.Clone(m.isolationLevels)
}

// Type returns the native storage description of a kind.
func (m *Manifest) Type(k sqltype.Kind) (TypeInfo, bool) {
	t, ok := m.types[k]
	return t, ok
}

// Types returns all native type descriptions ordered by kind.
func (m *Manifest) Types() []TypeInfo {
	ts := make([]TypeInfo, 0, len(m.types))
	for _, t := range m.types {
		ts = append(ts, t)
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i].Kind < ts[j].Kind })
	return ts
}

// MarshalYAML renders the resolved manifest (with inherited entries merged).
func (m *Manifest) MarshalYAML() (any, error) {
	return rawVersion{
		Name:                m.name,
		MaxIdentifierLength: &m.maxIdentifierLength,
		MaxParameterCount:   &m.maxParameterCount,
		MaxStringLength:     &m.maxStringLength,
		MaxBinaryLength:     &m.maxBinaryLength,
		MaxDecimalPrecision: &m.maxDecimalPrecision,
		ParameterPrefix:     &m.parameterPrefix,
		DDL:                 m.ddl,
		Features:            m.Features(),
		IsolationLevels:     m.isolationLevels,
		Types:               m.Types(),
	}, nil
}

type (
	rawManifest struct {
		Versions map[string]rawVersion `yaml:"versions"`
	}
	rawVersion struct {
		Extends             string              `yaml:"extends,omitempty"`
		Name                string              `yaml:"name,omitempty"`
		MaxIdentifierLength *int                `yaml:"max_identifier_length,omitempty"`
		MaxParameterCount   *int                `yaml:"max_parameter_count,omitempty"`
		MaxStringLength     *int                `yaml:"max_string_length,omitempty"`
		MaxBinaryLength     *int                `yaml:"max_binary_length,omitempty"`
		MaxDecimalPrecision *int                `yaml:"max_decimal_precision,omitempty"`
		ParameterPrefix     *string             `yaml:"parameter_prefix,omitempty"`
		DDL                 map[string][]string `yaml:"ddl,omitempty"`
		Features            []Feature           `yaml:"features,omitempty"`
		IsolationLevels     []string            `yaml:"isolation_levels,omitempty"`
		Types               []TypeInfo          `yaml:"types,omitempty"`
	}
)

var (
	builtinOnce      sync.Once
	builtinManifests map[dialect.Version]*Manifest
	builtinErr       error
)

// ManifestFor returns the built-in manifest of a version.
func ManifestFor(v dialect.Version) (*Manifest, error) {
	builtinOnce.Do(func() {
		builtinManifests, builtinErr = ParseManifest(manifestYAML)
	})
	if builtinErr != nil {
		return nil, builtinErr
	}
	m, ok := builtinManifests[v]
	if !ok {
		return nil, fmt.Errorf("sqlserver: no manifest for version %s", v)
	}
	return m, nil
}

// LoadManifest reads a manifest file with the same layout as the built-in one.
func LoadManifest(path string) (map[dialect.Version]*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sqlserver: open manifest: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("sqlserver: read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest parses manifest YAML and resolves the extends chains.
func ParseManifest(data []byte) (map[dialect.Version]*Manifest, error) {
	var raw rawManifest
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("sqlserver: parse manifest: %w", err)
	}
	resolved := make(map[string]*Manifest, len(raw.Versions))
	var resolve func(key string, seen []string) (*Manifest, error)
	resolve = func(key string, seen []string) (*Manifest, error) {
		if m, ok := resolved[key]; ok {
			return m, nil
		}
		if slices.Contains(seen, key) {
			return nil, fmt.Errorf("sqlserver: manifest extends cycle at %q", key)
		}
		rv, ok := raw.Versions[key]
		if !ok {
			return nil, fmt.Errorf("sqlserver: manifest version %q not found", key)
		}
		v, err := dialect.ParseVersion(key)
		if err != nil {
			return nil, err
		}
		m := &Manifest{
			ddl:   make(map[string][]string),
			types: make(map[sqltype.Kind]TypeInfo),
		}
		if rv.Extends != "" {
			base, err := resolve(rv.Extends, append(seen, key))
			if err != nil {
				return nil, err
			}
			m.inherit(base)
		}
		m.version = v
		m.apply(rv)
		resolved[key] = m
		return m, nil
	}
	out := make(map[dialect.Version]*Manifest, len(raw.Versions))
	for key := range raw.Versions {
		m, err := resolve(key, nil)
		if err != nil {
			return nil, err
		}
		out[m.version] = m
	}
	return out, nil
}

// inherit copies the base manifest so that later merges do not alias it.
func (m *Manifest) inherit(base *Manifest) {
	m.name = base.name
	m.maxIdentifierLength = base.maxIdentifierLength
	m.maxParameterCount = base.maxParameterCount
	m.maxStringLength = base.maxStringLength
	m.maxBinaryLength = base.maxBinaryLength
	m.maxDecimalPrecision = base.maxDecimalPrecision
	m.parameterPrefix = base.parameterPrefix
	for k, ops := range base.ddl {
		m.ddl[k] = slices.Clone(ops)
	}
	m.features = slices.Clone(base.features)
	m.isolationLevels = slices.Clone(base.isolationLevels)
	for k, t := range base.types {
		m.types[k] = t
	}
}

func (m *Manifest) apply(rv rawVersion) {
	if rv.Name != "" {
		m.name = rv.Name
	}
	setInt(&m.maxIdentifierLength, rv.MaxIdentifierLength)
	setInt(&m.maxParameterCount, rv.MaxParameterCount)
	setInt(&m.maxStringLength, rv.MaxStringLength)
	setInt(&m.maxBinaryLength, rv.MaxBinaryLength)
	setInt(&m.maxDecimalPrecision, rv.MaxDecimalPrecision)
	if rv.ParameterPrefix != nil {
		m.parameterPrefix = *rv.ParameterPrefix
	}
	for k, ops := range rv.DDL {
		m.ddl[k] = union(m.ddl[k], ops)
	}
	m.features = union(m.features, rv.Features)
	m.isolationLevels = union(m.isolationLevels, rv.IsolationLevels)
	for _, t := range rv.Types {
		m.types[t.Kind] = t
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func union[T comparable](a, b []T) []T {
	for _, x := range b {
		if !slices.Contains(a, x) {
			a = append(a, x)
		}
	}
	return a
}
