package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"ariga.io/atlas/sql/schema"
	"gopkg.in/yaml.v3"
)

// Output formats of the extract command.
const (
	formatYAML = "yaml"
	formatJSON = "json"
	formatText = "text"
)

var formats = []string{formatYAML, formatJSON, formatText}

// writeDocument encodes v as YAML or JSON.
func writeDocument(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("invalid format %q", format)
}

// writeRealm prints an outline of the realm, one line per schema object.
func writeRealm(w io.Writer, name string, realm *schema.Realm) error {
	p := &printer{w: w}
	p.line(0, "catalog %s", name)
	for _, s := range realm.Schemas {
		p.line(0, "schema %s", s.Name)
		for _, t := range s.Tables {
			p.line(1, "table %s", t.Name)
			for _, c := range t.Columns {
				p.line(2, "%s", columnLine(c))
			}
			if pk := t.PrimaryKey; pk != nil {
				p.line(2, "PRIMARY KEY %s (%s)", pk.Name, partList(pk.Parts))
			}
			for _, idx := range t.Indexes {
				kind := "INDEX"
				if idx.Unique {
					kind = "UNIQUE INDEX"
				}
				p.line(2, "%s %s (%s)", kind, idx.Name, partList(idx.Parts))
			}
			for _, fk := range t.ForeignKeys {
				p.line(2, "FOREIGN KEY %s (%s) REFERENCES %s.%s (%s) ON DELETE %s ON UPDATE %s",
					fk.Symbol, columnList(fk.Columns), fk.RefTable.Schema.Name, fk.RefTable.Name,
					columnList(fk.RefColumns), fk.OnDelete, fk.OnUpdate)
			}
		}
		for _, v := range s.Views {
			p.line(1, "view %s", v.Name)
			for _, c := range v.Columns {
				p.line(2, "%s", columnLine(c))
			}
		}
	}
	return p.err
}

// printer remembers the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(depth int, format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, strings.Repeat("  ", depth)+format+"\n", args...)
}

func columnLine(c *schema.Column) string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte(' ')
	b.WriteString(c.Type.Raw)
	if !c.Type.Null {
		b.WriteString(" NOT NULL")
	}
	if d, ok := c.Default.(*schema.RawExpr); ok {
		b.WriteString(" DEFAULT ")
		b.WriteString(d.X)
	}
	for _, a := range c.Attrs {
		switch a := a.(type) {
		case *schema.GeneratedExpr:
			fmt.Fprintf(&b, " AS %s %s", a.Expr, a.Type)
		case *schema.Collation:
			b.WriteString(" COLLATE ")
			b.WriteString(a.V)
		}
	}
	return b.String()
}

func partList(parts []*schema.IndexPart) string {
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.C == nil {
			continue
		}
		n := p.C.Name
		if p.Desc {
			n += " DESC"
		}
		names = append(names, n)
	}
	return strings.Join(names, ", ")
}

func columnList(cs []*schema.Column) string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}
