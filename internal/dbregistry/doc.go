// Package dbregistry manages the document stores a simulator process uses,
// in either local or remote mode.
//
// In local mode databases live under a storage root on this machine. In
// remote mode they live on a database service addressed by hostname, port
// and protocol. Each mode names its own store adapter explicitly.
//
// Database names that follow the consortium convention ("local-*" and
// "remote-*") get a direction prefix ("up/" or "down/") unless the
// configuration sets NoURLPrefix.
package dbregistry
