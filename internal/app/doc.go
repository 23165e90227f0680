// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the simulation lifecycle: load the process
// configuration, bootstrap the registries, run the computation through a
// pipeline runner pool and report the result. It is decoupled from any
// specific entrypoint like a CLI.
package app
