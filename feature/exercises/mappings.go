package exercises

import (
	"exercise-sync/core/mapper"
	"exercise-sync/core/record"
)

// DefaultMappings is the field table between the exercises table and the remote
// exercise shape.
func DefaultMappings() []mapper.FieldMapping {
	return []mapper.FieldMapping{
		{Local: record.FieldName, Remote: "name", ToRemote: mapper.AsString, ToLocal: mapper.AsString},
		{Local: record.FieldDescription, Remote: "description", ToRemote: mapper.AsString, ToLocal: mapper.AsString},
		{Local: record.FieldCategory, Remote: "category", ToRemote: mapper.AsString, ToLocal: mapper.Lower},
		{Local: record.FieldMuscleGroups, Remote: "muscles", ToRemote: mapper.AsList, ToLocal: mapper.AsList},
		{Local: record.FieldEquipment, Remote: "equipment", ToRemote: mapper.AsList, ToLocal: mapper.AsList},
		{Local: record.FieldDifficulty, Remote: "difficulty", ToRemote: mapper.AsString, ToLocal: mapper.Lower},
		{Local: record.FieldInstructions, Remote: "instructions", ToRemote: mapper.AsList, ToLocal: mapper.AsList},
		{Local: record.FieldVideoURL, Remote: "videoUrl", ToRemote: mapper.AsString, ToLocal: mapper.AsString},
		{Local: record.FieldImageURL, Remote: "imageUrl", ToRemote: mapper.AsString, ToLocal: mapper.AsString},
	}
}
