package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/specialistvlad/computesim/internal/metrics"
)

// MemoryAdapter is the adapter name of the in-memory store.
const MemoryAdapter = "memory"

func init() {
	Register(MemoryAdapter, func(_ context.Context, opts Options) (Store, error) {
		return NewMemory(opts.Name), nil
	})
}

// Memory is an ephemeral, thread-safe store. It is created fresh for each
// opened database and loses its contents on Close.
type Memory struct {
	name   string
	mu     sync.RWMutex
	docs   map[string]Document
	closed bool
}

// NewMemory creates an empty in-memory store.
func NewMemory(name string) *Memory {
	return &Memory{name: name, docs: make(map[string]Document)}
}

// Name implements Store.
func (m *Memory) Name() string {
	return m.name
}

// Put implements Store.
func (m *Memory) Put(_ context.Context, doc Document) (string, error) {
	rev, err := m.put(doc)
	metrics.ObserveDocumentWrite(MemoryAdapter, err)
	return rev, err
}

func (m *Memory) put(doc Document) (string, error) {
	if doc.ID == "" {
		return "", fmt.Errorf("document id must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", ErrClosed
	}

	rev, err := nextRevision(m.docs[doc.ID].Rev, doc)
	if err != nil {
		return "", err
	}
	m.docs[doc.ID] = doc.clone(rev)
	return rev, nil
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Document{}, ErrClosed
	}
	doc, ok := m.docs[id]
	if !ok {
		return Document{}, fmt.Errorf("%w: %q in %s", ErrNotFound, id, m.name)
	}
	return doc.clone(doc.Rev), nil
}

// All implements Store.
func (m *Memory) All(_ context.Context) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	docs := make([]Document, 0, len(m.docs))
	for _, doc := range m.docs {
		docs = append(docs, doc.clone(doc.Rev))
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, id, rev string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	doc, ok := m.docs[id]
	if !ok {
		return fmt.Errorf("%w: %q in %s", ErrNotFound, id, m.name)
	}
	if doc.Rev != rev {
		return fmt.Errorf("%w: document %q is at revision %s", ErrConflict, id, doc.Rev)
	}
	delete(m.docs, id)
	return nil
}

// Close implements Store.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.docs = nil
	return nil
}

// clone copies doc with the given revision so callers never share the
// stored body.
func (doc Document) clone(rev string) Document {
	body := make([]byte, len(doc.Body))
	copy(body, doc.Body)
	return Document{ID: doc.ID, Rev: rev, Body: body}
}
