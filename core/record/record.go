package record

import (
	"strings"
	"time"
)

// SyncStatus is the sync state of a local record.
type SyncStatus string

const (
	// StatusPending means the record was never pushed or pulled successfully.
	StatusPending SyncStatus = "pending"
	// StatusSynced means the record matches its remote counterpart as of SyncedAt.
	StatusSynced SyncStatus = "synced"
	// StatusError means the last sync attempt for the record failed.
	StatusError SyncStatus = "error"
	// StatusDeleted marks a soft-deleted record. Records are never hard-deleted by sync.
	StatusDeleted SyncStatus = "deleted"
)

// Local field names shared by the mapper, the engine and the repository.
const (
	FieldName         = "name"
	FieldDescription  = "description"
	FieldCategory     = "category"
	FieldMuscleGroups = "muscle_groups"
	FieldEquipment    = "equipment"
	FieldDifficulty   = "difficulty"
	FieldInstructions = "instructions"
	FieldVideoURL     = "video_url"
	FieldImageURL     = "image_url"
	FieldCreatedAt    = "created_at"
	FieldUpdatedAt    = "updated_at"
	// FieldExtra carries provider fields without a column of their own.
	FieldExtra = "extra"
)

// Fields is an attribute bag keyed by field name.
type Fields map[string]any

// Has reports whether key is present with a non-nil value.
func (f Fields) Has(key string) bool {
	v, ok := f[key]
	return ok && v != nil
}

// Clone returns a copy of f. Nested lists and maps are copied too.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = cloneValue(item)
		}
		return out
	case Fields:
		return t.Clone()
	default:
		return v
	}
}

// Tag is one entry of the remote system's flat tag list.
type Tag struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// RemoteRecord is an exercise owned by the remote platform.
type RemoteRecord struct {
	ExternalID string `json:"externalId"`
	Name       string `json:"name"`
	Fields     Fields `json:"fields"`
	Tags       []Tag  `json:"tags,omitempty"`
}

// LocalRecord is an exercise owned by the local datastore.
type LocalRecord struct {
	ID         uint       `json:"id"`
	ExternalID *string    `json:"externalId,omitempty"`
	Name       string     `json:"name"`
	Fields     Fields     `json:"fields"`
	SyncStatus SyncStatus `json:"syncStatus"`
	SyncedAt   *time.Time `json:"syncedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// HasExternalID reports whether the record was ever linked to a remote record.
func (r LocalRecord) HasExternalID() bool {
	return r.ExternalID != nil && *r.ExternalID != ""
}

// NameKey returns the case-insensitive key used for name matching.
func (r LocalRecord) NameKey() string {
	return NameKey(r.Name)
}

// MappedRecord is a remote record translated into local field names.
type MappedRecord struct {
	Fields Fields `json:"fields"`
	// Extra holds provider fields the mapping table does not know about.
	Extra Fields `json:"extra,omitempty"`
}

// NameKey normalizes a display name for case-insensitive lookups.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
