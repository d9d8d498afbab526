// Package mapper translates exercise attributes between the local datastore shape
// and the remote platform shape using a declarative FieldMapping table.
//
// The mapper is pure and stateless: the table is fixed at construction and read-only
// afterwards. Unmapped local fields are dropped on the way out (intentional data loss
// at the boundary); unknown remote fields are kept aside in MappedRecord.Extra on the
// way in.
//
// Negotiate narrows a table once at startup to the columns the local table actually
// has, so the per-request path never inspects the schema.
package mapper
