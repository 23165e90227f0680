// Package compregistry tracks the computations a simulator knows about and
// where they live on disk.
//
// The registry keeps an in-memory list of entries (name, version tags and
// source URL) and persists full computation definitions into the
// "computations" database of a dbregistry.Registry. Locating a computation
// on disk goes through a PathResolver chosen at construction time; the
// default resolves "<root>/<name>@<version>".
package compregistry
