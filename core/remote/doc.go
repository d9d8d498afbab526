// Package remote implements the fitness platform's exercise endpoints on top of the
// rate-limited gateway.
//
// The provider is inconsistent about response shapes: list endpoints may answer with
// a bare array or with the items nested under "items", "exercises", "data" or
// "results"; identifiers may be numbers or strings; names may arrive as "name" or
// "title". This package normalizes all of that into record.RemoteRecord so the
// engines never see provider quirks.
package remote
