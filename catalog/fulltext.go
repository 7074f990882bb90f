package catalog

import (
	"fmt"

	"golang.org/x/text/language"
)

// ChangeTrackingMode is the population mode of a full-text index.
type ChangeTrackingMode int

// Change tracking modes.
const (
	ChangeTrackingDefault ChangeTrackingMode = iota
	ChangeTrackingAuto
	ChangeTrackingManual
	ChangeTrackingOff
	ChangeTrackingOffNoPopulation
)

// String returns the T-SQL form used in CHANGE_TRACKING clauses.
func (m ChangeTrackingMode) String() string {
	switch m {
	case ChangeTrackingAuto:
		return "AUTO"
	case ChangeTrackingManual:
		return "MANUAL"
	case ChangeTrackingOff:
		return "OFF"
	case ChangeTrackingOffNoPopulation:
		return "OFF, NO POPULATION"
	default:
		return ""
	}
}

// FullTextIndex is the single full-text index a table may carry.
type FullTextIndex struct {
	Table                 *Table
	UnderlyingUniqueIndex string
	FullTextCatalog       string
	ChangeTracking        ChangeTrackingMode
	Columns               []*FullTextColumn
}

// SetFullTextIndex attaches a full-text index keyed by the given unique index.
func (t *Table) SetFullTextIndex(keyIndex, fullTextCatalog string) *FullTextIndex {
	t.FullTextIndex = &FullTextIndex{Table: t, UnderlyingUniqueIndex: keyIndex, FullTextCatalog: fullTextCatalog}
	return t.FullTextIndex
}

// AddColumn appends an indexed column.
func (f *FullTextIndex) AddColumn(c *Column) *FullTextColumn {
	fc := &FullTextColumn{Column: c}
	f.Columns = append(f.Columns, fc)
	return fc
}

// Column returns the full-text column over c, or nil.
func (f *FullTextIndex) Column(c *Column) *FullTextColumn {
	for _, fc := range f.Columns {
		if fc.Column == c {
			return fc
		}
	}
	return nil
}

// FullTextColumn is one column of a full-text index.
type FullTextColumn struct {
	Column *Column
	// TypeColumn names the document type column for varbinary columns.
	TypeColumn *Column
	Languages  []Language
}

// Language is a full-text word-breaker language.
type Language struct {
	LCID int
	Tag  language.Tag
}

// String returns the BCP 47 tag, or the LCID when the tag is undetermined.
func (l Language) String() string {
	if l.Tag == language.Und {
		return fmt.Sprint(l.LCID)
	}
	return l.Tag.String()
}

// lcids maps the word-breaker locale ids shipped with SQL Server.
var lcids = map[int]language.Tag{
	0:     language.Und,
	1025:  language.Arabic,
	1026:  language.Bulgarian,
	1027:  language.Catalan,
	1028:  language.TraditionalChinese,
	1029:  language.Czech,
	1030:  language.Danish,
	1031:  language.German,
	1032:  language.Greek,
	1033:  language.AmericanEnglish,
	1035:  language.Finnish,
	1036:  language.French,
	1037:  language.Hebrew,
	1038:  language.Hungarian,
	1039:  language.Icelandic,
	1040:  language.Italian,
	1041:  language.Japanese,
	1042:  language.Korean,
	1043:  language.Dutch,
	1044:  language.Norwegian,
	1045:  language.Polish,
	1046:  language.BrazilianPortuguese,
	1048:  language.Romanian,
	1049:  language.Russian,
	1050:  language.Croatian,
	1051:  language.Slovak,
	1053:  language.Swedish,
	1054:  language.Thai,
	1055:  language.Turkish,
	1056:  language.Urdu,
	1057:  language.Indonesian,
	1058:  language.Ukrainian,
	1060:  language.Slovenian,
	1062:  language.Latvian,
	1063:  language.Lithuanian,
	1066:  language.Vietnamese,
	1081:  language.Hindi,
	1086:  language.Malay,
	2052:  language.SimplifiedChinese,
	2057:  language.BritishEnglish,
	2070:  language.EuropeanPortuguese,
	2074:  language.Serbian,
	3082:  language.EuropeanSpanish,
	3098:  language.Serbian,
	4100:  language.SimplifiedChinese,
	5124:  language.TraditionalChinese,
	31748: language.TraditionalChinese,
}

// LanguageFromLCID returns the language for a locale id. Unknown ids keep
// the LCID with an undetermined tag.
func LanguageFromLCID(lcid int) Language {
	if tag, ok := lcids[lcid]; ok {
		return Language{LCID: lcid, Tag: tag}
	}
	return Language{LCID: lcid, Tag: language.Und}
}
