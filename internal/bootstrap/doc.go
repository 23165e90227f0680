// Package bootstrap wires a single computation into a fresh pair of
// registries, ready to hand to a pipeline runner pool.
//
// Build constructs the database registry first and the computation
// registry bound to it second, then loads the computation manifest,
// appends its summary entry and persists the full definition. The
// computation registry it returns resolves every computation to the
// directory of the manifest, which is what a single-computation
// simulation needs.
package bootstrap
