// Package library persists boards, images, tags, and board memberships in
// SQLite.
//
// Store implements the storage ports the core packages declare:
// boards.Merger, boards.Deleter, suggest.BoardWriter, and
// similarity.CandidateSource. The schema is embedded and versioned; a
// database written by another schema version is rejected with
// ErrSchemaMismatch rather than migrated. Writes retry briefly when SQLite
// reports the database as busy.
package library
