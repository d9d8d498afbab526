package mapper

import (
	"exercise-sync/core/record"
	"exercise-sync/core/utils"
)

// Transform converts a single value. Returning nil means "absent": the field is
// omitted from the output.
type Transform func(any) any

// FieldMapping maps one local field to one remote field.
type FieldMapping struct {
	// Local is the local column name.
	Local string
	// Remote is the provider's JSON key.
	Remote string
	// ToRemote optionally converts the local value before it is sent.
	ToRemote Transform
	// ToLocal optionally converts the remote value before it is stored.
	ToLocal Transform
}

// TagSource expands one local field into remote tags of a given type.
type TagSource struct {
	Local   string
	TagType string
}

// DefaultTagSources expands categories, equipment, muscle groups and difficulty.
var DefaultTagSources = []TagSource{
	{Local: record.FieldCategory, TagType: "category"},
	{Local: record.FieldEquipment, TagType: "equipment"},
	{Local: record.FieldMuscleGroups, TagType: "muscle"},
	{Local: record.FieldDifficulty, TagType: "difficulty"},
}

// Mapper applies a mapping table in both directions.
type Mapper struct {
	table      []FieldMapping
	tagSources []TagSource
	remoteKeys map[string]struct{}
}

// New creates a mapper over table, using DefaultTagSources for BuildTags.
func New(table []FieldMapping) *Mapper {
	return NewWithTags(table, DefaultTagSources)
}

// NewWithTags creates a mapper with custom tag sources.
func NewWithTags(table []FieldMapping, tags []TagSource) *Mapper {
	t := make([]FieldMapping, len(table))
	copy(t, table)

	keys := make(map[string]struct{}, len(t))
	for _, m := range t {
		keys[m.Remote] = struct{}{}
	}

	return &Mapper{table: t, tagSources: tags, remoteKeys: keys}
}

// Table returns a copy of the mapping table.
func (m *Mapper) Table() []FieldMapping {
	out := make([]FieldMapping, len(m.table))
	copy(out, m.table)
	return out
}

// LocalFields returns the local field names covered by the table, in table order.
func (m *Mapper) LocalFields() []string {
	out := make([]string, 0, len(m.table))
	for _, fm := range m.table {
		out = append(out, fm.Local)
	}
	return out
}

// ToRemote builds the remote payload for a local record. A field is included only
// when the local value is present and its transform does not produce an absent value.
func (m *Mapper) ToRemote(local record.Fields) record.Fields {
	out := make(record.Fields, len(m.table))
	for _, fm := range m.table {
		v, ok := local[fm.Local]
		if !ok || v == nil {
			continue
		}
		if fm.ToRemote != nil {
			if v = fm.ToRemote(v); v == nil {
				continue
			}
		}
		out[fm.Remote] = v
	}
	return out
}

// ToLocal applies the table in reverse. Remote keys the table does not know about
// are returned in Extra.
func (m *Mapper) ToLocal(remote record.Fields) record.MappedRecord {
	mapped := record.MappedRecord{Fields: make(record.Fields, len(m.table))}

	for _, fm := range m.table {
		v, ok := remote[fm.Remote]
		if !ok || v == nil {
			continue
		}
		if fm.ToLocal != nil {
			if v = fm.ToLocal(v); v == nil {
				continue
			}
		}
		mapped.Fields[fm.Local] = v
	}

	for k, v := range remote {
		if _, known := m.remoteKeys[k]; known {
			continue
		}
		if mapped.Extra == nil {
			mapped.Extra = record.Fields{}
		}
		mapped.Extra[k] = v
	}

	return mapped
}

// BuildTags expands the configured local fields into the remote flat tag list.
// Absent or blank source values produce no tag.
func (m *Mapper) BuildTags(local record.Fields) []record.Tag {
	var tags []record.Tag
	for _, src := range m.tagSources {
		for _, name := range utils.ToStringSlice(local[src.Local]) {
			tags = append(tags, record.Tag{Type: src.TagType, Name: name})
		}
	}
	return tags
}
