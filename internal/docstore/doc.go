// Package docstore provides the revisioned document stores that back the
// database registry.
//
// Every store holds JSON documents keyed by ID. Each write produces a new
// revision ("<generation>-<digest>"), and a write must quote the current
// revision of the document it replaces, so concurrent participants writing
// the same document get ErrConflict instead of silently overwriting each
// other.
//
// Stores are created through named adapters. The "memory" and "redis"
// adapters are registered by this package; others can be added with
// Register.
package docstore
