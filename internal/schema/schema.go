// Package schema turns a form's field list into a validation schema and
// checks untyped payloads against it.
package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/totegamma/eform-core/internal/domain"
)

// SelectDelimiter separates the allowed values of a select field.
const SelectDelimiter = ","

// FieldSpec is the validation view of one live field.
type FieldSpec struct {
	Slug          string           `json:"slug"`
	Label         string           `json:"label"`
	Kind          domain.FieldKind `json:"kind"`
	Required      bool             `json:"required"`
	AllowedValues []string         `json:"allowedValues,omitempty"`
}

// Schema is the ordered list of fields a payload is checked against.
type Schema struct {
	Fields []FieldSpec `json:"fields"`
}

// SplitSelectValues splits a select field's raw option string.
func SplitSelectValues(raw string) []string {
	parts := strings.Split(raw, SelectDelimiter)
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		values = append(values, p)
	}
	return values
}

// Compile builds the schema of the live fields, ordered by rank.
// Fields without a rank keep their relative order after the ranked ones.
func Compile(fields []domain.Field) Schema {
	live := make([]domain.Field, 0, len(fields))
	for _, f := range fields {
		if f.IsDeleted {
			continue
		}
		live = append(live, f)
	}

	sort.SliceStable(live, func(i, j int) bool {
		ri, rj := live[i].Rank, live[j].Rank
		if ri == 0 || rj == 0 {
			return ri != 0 && rj == 0
		}
		return ri < rj
	})

	specs := make([]FieldSpec, 0, len(live))
	for _, f := range live {
		spec := FieldSpec{
			Slug:     f.Slug,
			Label:    f.Label,
			Kind:     f.FieldType.Value,
			Required: !f.Optional,
		}
		if f.FieldType.Value == domain.KindSelect {
			spec.AllowedValues = SplitSelectValues(f.SelectValues)
		}
		specs = append(specs, spec)
	}

	return Schema{Fields: specs}
}

// TypeOf maps each slug to its kind.
func (s Schema) TypeOf() map[string]domain.FieldKind {
	m := make(map[string]domain.FieldKind, len(s.Fields))
	for _, f := range s.Fields {
		m[f.Slug] = f.Kind
	}
	return m
}

// AllFields lists the slugs of every live field in rank order.
func (s Schema) AllFields() []string {
	slugs := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		slugs = append(slugs, f.Slug)
	}
	return slugs
}

// RequiredFields lists, in rank order, the slugs a payload must carry.
func (s Schema) RequiredFields() []string {
	slugs := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Required {
			slugs = append(slugs, f.Slug)
		}
	}
	return slugs
}

// AllowedValues maps the slug of every select field to its options.
func (s Schema) AllowedValues() map[string][]string {
	m := make(map[string][]string)
	for _, f := range s.Fields {
		if f.Kind == domain.KindSelect {
			m[f.Slug] = f.AllowedValues
		}
	}
	return m
}

// Fingerprint identifies the validation-relevant content of the schema.
func (s Schema) Fingerprint() string {
	var b strings.Builder
	for _, f := range s.Fields {
		b.WriteString(f.Slug)
		b.WriteByte(0x1f)
		b.WriteString(string(f.Kind))
		b.WriteByte(0x1f)
		b.WriteString(strconv.FormatBool(f.Required))
		b.WriteByte(0x1f)
		b.WriteString(strings.Join(f.AllowedValues, SelectDelimiter))
		b.WriteByte(0x1e)
	}
	return fmt.Sprintf("%016x", xxh3.HashString(b.String()))
}
