// Package testutil holds helpers shared by package tests: in-memory registry
// fixtures and a sleeping step handler for concurrency checks.
package testutil
