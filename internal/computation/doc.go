// Package computation defines the computation manifest, the named and
// versioned description of a unit of analysis logic, and the loaders that
// read manifests from disk.
//
// A manifest can be written in HCL, JSON or YAML. The ExtensionLoader picks
// the format from the file extension, so callers only deal with the Loader
// interface and never with a specific format.
package computation
