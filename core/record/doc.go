// Package record defines the shapes exchanged between the sync engines.
//
// Three explicit variants exist instead of one loosely typed record:
//   - RemoteRecord: an exercise as the fitness platform returns it.
//   - LocalRecord: an exercise as the local datastore holds it, including sync metadata.
//   - MappedRecord: a remote record translated into local field names, plus an Extra
//     side-map for provider fields the mapper does not recognize.
//
// Attribute bags use Fields, keyed by field name. Local field names are the datastore
// column names (e.g. "muscle_groups"); remote field names are the provider's JSON keys.
package record
