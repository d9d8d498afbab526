package models

import (
	"time"

	"exercise-sync/core/record"
	"exercise-sync/core/utils"

	"gorm.io/datatypes"
)

// Exercise is the 'exercises' table.
type Exercise struct {
	ID           uint                        `gorm:"primaryKey" json:"id"`
	ExternalID   *string                     `gorm:"column:external_id;type:varchar(64);uniqueIndex" json:"externalId,omitempty"`
	Name         string                      `gorm:"type:varchar(255);not null;index" json:"name"`
	Description  string                      `gorm:"type:text" json:"description,omitempty"`
	Category     string                      `gorm:"type:varchar(64)" json:"category,omitempty"`
	MuscleGroups datatypes.JSONSlice[string] `gorm:"column:muscle_groups" json:"muscleGroups,omitempty"`
	Equipment    datatypes.JSONSlice[string] `json:"equipment,omitempty"`
	Difficulty   string                      `gorm:"type:varchar(32)" json:"difficulty,omitempty"`
	Instructions datatypes.JSONSlice[string] `json:"instructions,omitempty"`
	VideoURL     string                      `gorm:"column:video_url;type:varchar(512)" json:"videoUrl,omitempty"`
	ImageURL     string                      `gorm:"column:image_url;type:varchar(512)" json:"imageUrl,omitempty"`
	// Extra keeps provider fields without a column.
	Extra      datatypes.JSONMap `json:"extra,omitempty"`
	SyncStatus string            `gorm:"type:varchar(16);index;default:pending" json:"syncStatus"`
	SyncedAt   *time.Time        `json:"syncedAt,omitempty"`
	SyncError  string            `gorm:"type:text" json:"syncError,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// TableName overrides the table name.
func (Exercise) TableName() string {
	return "exercises"
}

// Columns that can be filtered and ordered on.
var Columns = map[string]struct{}{
	"id":          {},
	"external_id": {},
	"name":        {},
	"description": {},
	"category":    {},
	"difficulty":  {},
	"video_url":   {},
	"image_url":   {},
	"sync_status": {},
	"synced_at":   {},
	"created_at":  {},
	"updated_at":  {},
}

// ToRecord converts the row into the shared record model.
func (e Exercise) ToRecord() record.LocalRecord {
	fields := record.Fields{
		record.FieldDescription:  e.Description,
		record.FieldCategory:     e.Category,
		record.FieldMuscleGroups: []string(e.MuscleGroups),
		record.FieldEquipment:    []string(e.Equipment),
		record.FieldDifficulty:   e.Difficulty,
		record.FieldInstructions: []string(e.Instructions),
		record.FieldVideoURL:     e.VideoURL,
		record.FieldImageURL:     e.ImageURL,
	}
	if len(e.Extra) > 0 {
		fields[record.FieldExtra] = record.Fields(e.Extra)
	}

	status := record.SyncStatus(e.SyncStatus)
	if status == "" {
		status = record.StatusPending
	}

	return record.LocalRecord{
		ID:         e.ID,
		ExternalID: e.ExternalID,
		Name:       e.Name,
		Fields:     fields,
		SyncStatus: status,
		SyncedAt:   e.SyncedAt,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

// Apply copies the known fields onto the row. Absent keys leave columns untouched.
func (e *Exercise) Apply(fields record.Fields) {
	for key, v := range fields {
		switch key {
		case record.FieldName:
			e.Name = utils.ToString(v)
		case record.FieldDescription:
			e.Description = utils.ToString(v)
		case record.FieldCategory:
			e.Category = utils.ToString(v)
		case record.FieldDifficulty:
			e.Difficulty = utils.ToString(v)
		case record.FieldVideoURL:
			e.VideoURL = utils.ToString(v)
		case record.FieldImageURL:
			e.ImageURL = utils.ToString(v)
		case record.FieldMuscleGroups:
			e.MuscleGroups = utils.ToStringSlice(v)
		case record.FieldEquipment:
			e.Equipment = utils.ToStringSlice(v)
		case record.FieldInstructions:
			e.Instructions = utils.ToStringSlice(v)
		case record.FieldExtra:
			if m := toMap(v); len(m) > 0 {
				e.Extra = m
			}
		case record.FieldCreatedAt:
			if t, ok := v.(time.Time); ok && !t.IsZero() {
				e.CreatedAt = t
			}
		case record.FieldUpdatedAt:
			if t, ok := v.(time.Time); ok && !t.IsZero() {
				e.UpdatedAt = t
			}
		}
	}
}

// FromRecord builds a new row from a record.
func FromRecord(rec record.LocalRecord) Exercise {
	e := Exercise{
		ID:         rec.ID,
		ExternalID: rec.ExternalID,
		Name:       rec.Name,
		SyncStatus: string(rec.SyncStatus),
		SyncedAt:   rec.SyncedAt,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
	e.Apply(rec.Fields)
	if e.SyncStatus == "" {
		e.SyncStatus = string(record.StatusPending)
	}
	return e
}

func toMap(v any) map[string]any {
	switch m := v.(type) {
	case record.Fields:
		return map[string]any(m)
	case map[string]any:
		return m
	case datatypes.JSONMap:
		return map[string]any(m)
	}
	return nil
}
