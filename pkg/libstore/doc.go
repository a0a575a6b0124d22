// Package libstore provides a content store for reusable authoring libraries
// and the blocks they contain, with pluggable repository and blob storage
// backends.
//
// It exposes a single Service interface that orchestrates library and block
// creation, the library blocks view, and destructive deletion of a library
// together with every block it owns. Repository implementations (memory,
// Postgres, SQLite) and blob stores (memory, filesystem, S3) live under
// subpackages.
//
// Keys
//
// Learning contexts are addressed by opaque key strings. ParseContextKey
// returns a closed tagged value whose Kind is either KindCourse or
// KindLibrary; only library keys are accepted by library operations, and the
// kind is checked before any store access.
//
// Deletion
//
// Deleting a library enumerates all of its blocks first, deletes each block
// (payload, then record) and finally the library itself. Deletes are soft and
// idempotent: deleting an already-deleted library or block is a no-op.
package libstore
