package docstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

var (
	// ErrNotFound is returned when a document ID does not exist in the store.
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned when a write quotes a stale or missing revision.
	ErrConflict = errors.New("document update conflict")
	// ErrUnknownAdapter is returned by Open for an adapter nobody registered.
	ErrUnknownAdapter = errors.New("unknown document store adapter")
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("document store is closed")
)

// Document is a single JSON document with its revision.
type Document struct {
	ID   string          `json:"_id"`
	Rev  string          `json:"_rev,omitempty"`
	Body json.RawMessage `json:"body"`
}

// NewDocument marshals v into the body of a new document.
func NewDocument(id string, v any) (Document, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Document{}, fmt.Errorf("failed to encode document %q: %w", id, err)
	}
	return Document{ID: id, Body: body}, nil
}

// Decode unmarshals the document body into v.
func (d Document) Decode(v any) error {
	if err := json.Unmarshal(d.Body, v); err != nil {
		return fmt.Errorf("failed to decode document %q: %w", d.ID, err)
	}
	return nil
}

// Store is a named collection of revisioned documents.
type Store interface {
	// Name returns the database name the store was opened with.
	Name() string
	// Put creates or replaces a document and returns its new revision.
	Put(ctx context.Context, doc Document) (string, error)
	// Get returns the current version of a document.
	Get(ctx context.Context, id string) (Document, error)
	// All returns every document ordered by ID.
	All(ctx context.Context) ([]Document, error)
	// Delete removes a document, quoting its current revision.
	Delete(ctx context.Context, id, rev string) error
	// Close releases the store's resources.
	Close() error
}

// Options are passed to an adapter when a store is opened.
type Options struct {
	// Name is the database name, already prefixed by the caller if needed.
	Name string
	// URL is the adapter-specific connection string. Adapters that need no
	// connection ignore it.
	URL string
	// Path is the local storage root.
	Path string
	// Endpoint addresses the remote database service in remote mode.
	// Adapters build their own connection string from it when URL is empty.
	Endpoint *Endpoint
}

// Endpoint is the address of a remote database service.
type Endpoint struct {
	Hostname string
	Port     int
	Protocol string
}

// Factory opens a store for an adapter.
type Factory func(ctx context.Context, opts Options) (Store, error)

var (
	adaptersMu sync.RWMutex
	adapters   = make(map[string]Factory)
)

// Register makes an adapter available by name. Registering the same name
// twice panics.
func Register(name string, factory Factory) {
	adaptersMu.Lock()
	defer adaptersMu.Unlock()
	if _, exists := adapters[name]; exists {
		panic(fmt.Sprintf("document store adapter '%s' already registered", name))
	}
	adapters[name] = factory
}

// Adapters lists the registered adapter names in sorted order.
func Adapters() []string {
	adaptersMu.RLock()
	defer adaptersMu.RUnlock()
	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Known reports whether an adapter is registered.
func Known(name string) bool {
	adaptersMu.RLock()
	defer adaptersMu.RUnlock()
	_, ok := adapters[name]
	return ok
}

// Open creates a store using the named adapter.
func Open(ctx context.Context, adapter string, opts Options) (Store, error) {
	adaptersMu.RLock()
	factory, ok := adapters[adapter]
	adaptersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAdapter, adapter)
	}
	return factory(ctx, opts)
}

// nextRevision validates doc.Rev against the current revision and returns
// the revision the write will produce. An empty current means the document
// does not exist yet.
func nextRevision(current string, doc Document) (string, error) {
	if doc.Rev != current {
		if current == "" {
			return "", fmt.Errorf("%w: document %q does not exist", ErrConflict, doc.ID)
		}
		return "", fmt.Errorf("%w: document %q is at revision %s", ErrConflict, doc.ID, current)
	}
	generation := 0
	if current != "" {
		var err error
		generation, err = revisionGeneration(current)
		if err != nil {
			return "", err
		}
	}
	sum := sha256.Sum256(doc.Body)
	return strconv.Itoa(generation+1) + "-" + hex.EncodeToString(sum[:8]), nil
}

func revisionGeneration(rev string) (int, error) {
	head, _, ok := strings.Cut(rev, "-")
	if !ok {
		return 0, fmt.Errorf("malformed revision %q", rev)
	}
	n, err := strconv.Atoi(head)
	if err != nil {
		return 0, fmt.Errorf("malformed revision %q: %w", rev, err)
	}
	return n, nil
}
