package sqlserver

// Placeholders substituted into every catalog query once the schemas are
// known. {SCHEMA_FILTER} is a predicate suffix for a schema_id column and
// {OBJECT_FILTER} a full predicate over sys.objects aliased as o.
const (
	placeholderCatalog       = "{CATALOG}"
	placeholderSchemaFilter  = "{SCHEMA_FILTER}"
	placeholderObjectFilter  = "{OBJECT_FILTER}"
	placeholderIndexFilter   = "{INDEX_FILTER_COLUMNS}"
	unrestrictedSchemaFilter = "IS NOT NULL"
)

const databaseQuery = `SELECT DB_NAME(), SCHEMA_NAME()`

const schemasQuery = `SELECT s.schema_id, s.name, p.name
FROM {CATALOG}.sys.schemas AS s
LEFT JOIN {CATALOG}.sys.database_principals AS p ON p.principal_id = s.principal_id
WHERE s.schema_id < 16384 AND s.name NOT IN ('sys', 'INFORMATION_SCHEMA')
ORDER BY s.schema_id`

const typesQuery = `SELECT t.user_type_id, t.system_type_id, t.schema_id, t.name, t.max_length, t.precision, t.scale, t.is_nullable, t.is_user_defined
FROM {CATALOG}.sys.types AS t
WHERE t.is_user_defined = 0 OR (t.schema_id {SCHEMA_FILTER} AND t.is_assembly_type = 0 AND t.system_type_id <> 243)
ORDER BY t.is_user_defined, t.user_type_id`

const objectsQuery = `SELECT o.object_id, o.schema_id, o.name, o.type, m.definition
FROM {CATALOG}.sys.objects AS o
LEFT JOIN {CATALOG}.sys.sql_modules AS m ON m.object_id = o.object_id
WHERE o.type IN ('U', 'V') AND {OBJECT_FILTER}
ORDER BY o.schema_id, o.object_id`

const columnsQuery = `SELECT c.object_id, c.column_id, c.name, c.user_type_id, c.max_length, c.precision, c.scale, c.is_nullable, c.collation_name, d.name, d.definition, cc.definition, cc.is_persisted
FROM {CATALOG}.sys.columns AS c
INNER JOIN {CATALOG}.sys.objects AS o ON o.object_id = c.object_id
LEFT JOIN {CATALOG}.sys.default_constraints AS d ON d.object_id = c.default_object_id
LEFT JOIN {CATALOG}.sys.computed_columns AS cc ON cc.object_id = c.object_id AND cc.column_id = c.column_id
WHERE o.type IN ('U', 'V') AND {OBJECT_FILTER}
ORDER BY c.object_id, c.column_id`

const identityQuery = `SELECT ic.object_id, ic.column_id, CAST(ic.seed_value AS bigint), CAST(ic.increment_value AS bigint), CAST(ic.last_value AS bigint)
FROM {CATALOG}.sys.identity_columns AS ic
INNER JOIN {CATALOG}.sys.objects AS o ON o.object_id = ic.object_id
WHERE {OBJECT_FILTER}
ORDER BY ic.object_id, ic.column_id`

const sequencesQuery = `SELECT q.schema_id, q.name, q.user_type_id, q.precision, q.scale, CAST(q.start_value AS bigint), CAST(q.increment AS bigint), CAST(q.minimum_value AS bigint), CAST(q.maximum_value AS bigint), q.is_cycling, CAST(q.current_value AS bigint)
FROM {CATALOG}.sys.sequences AS q
WHERE q.schema_id {SCHEMA_FILTER}
ORDER BY q.schema_id, q.name`

// Key columns come first in key order, included columns after them.
const indexesQuery = `SELECT i.object_id, i.index_id, i.name, i.type, i.is_unique, i.is_primary_key, i.is_unique_constraint, i.fill_factor, {INDEX_FILTER_COLUMNS}, ic.column_id, ic.is_descending_key, ic.is_included_column
FROM {CATALOG}.sys.indexes AS i
INNER JOIN {CATALOG}.sys.objects AS o ON o.object_id = i.object_id
INNER JOIN {CATALOG}.sys.index_columns AS ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
WHERE i.type > 0 AND o.type IN ('U', 'V') AND {OBJECT_FILTER}
ORDER BY i.object_id, i.index_id, ic.is_included_column, ic.key_ordinal, ic.index_column_id`

const (
	indexFilterColumns   = "i.has_filter, i.filter_definition"
	noIndexFilterColumns = "CAST(0 AS bit), CAST(NULL AS nvarchar(max))"
)

const foreignKeysQuery = `SELECT fk.object_id, fk.name, fk.parent_object_id, fk.referenced_object_id, fk.delete_referential_action, fk.update_referential_action, fkc.constraint_column_id, fkc.parent_column_id, fkc.referenced_column_id
FROM {CATALOG}.sys.foreign_keys AS fk
INNER JOIN {CATALOG}.sys.objects AS o ON o.object_id = fk.parent_object_id
INNER JOIN {CATALOG}.sys.foreign_key_columns AS fkc ON fkc.constraint_object_id = fk.object_id
WHERE {OBJECT_FILTER}
ORDER BY fk.parent_object_id, fk.object_id, fkc.constraint_column_id`

const fullTextQuery = `SELECT fi.object_id, ki.name, fc.name, fi.change_tracking_state, fic.column_id, fic.type_column_id, fic.language_id
FROM {CATALOG}.sys.fulltext_indexes AS fi
INNER JOIN {CATALOG}.sys.objects AS o ON o.object_id = fi.object_id
INNER JOIN {CATALOG}.sys.indexes AS ki ON ki.object_id = fi.object_id AND ki.index_id = fi.unique_index_id
INNER JOIN {CATALOG}.sys.fulltext_catalogs AS fc ON fc.fulltext_catalog_id = fi.fulltext_catalog_id
INNER JOIN {CATALOG}.sys.fulltext_index_columns AS fic ON fic.object_id = fi.object_id
WHERE {OBJECT_FILTER}
ORDER BY fi.object_id, fic.column_id, fic.language_id`
