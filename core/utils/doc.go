// Package utils provides loose type conversions for values decoded from the remote
// API and from untyped database rows, where the same attribute may arrive as a
// number, a string, a byte slice or a list depending on the endpoint.
package utils
