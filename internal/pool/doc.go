// Package pool runs a registered computation as a pipeline across simulated
// participants.
//
// A run has any number of local sites and at most one remote. Each
// iteration runs every local site's step concurrently, then hands their
// outputs to the remote step, whose output becomes the next iteration's
// input for all sites. Every step result is written as a run document to
// the consortium databases of the database registry, so a run can be
// inspected after the fact.
//
// Steps run through a Runner chosen by the step type: command steps spawn
// a process that exchanges JSON over stdin and stdout, function steps call
// an in-process handler.
package pool
