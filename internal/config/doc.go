// Package config defines the simulator's process configuration and loads
// it from an HCL file. Every setting has a default, so a missing
// configuration file is not an error.
package config
