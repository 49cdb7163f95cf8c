package migration

import (
	"context"
	"slices"
	"sync"

	"github.com/eringen/featuredfix/blocks"
)

var (
	_ DocumentStore = (*memStore)(nil)
	_ FlagStore     = (*memStore)(nil)
)

// memStore is an in-memory DocumentStore and FlagStore for tests.
type memStore struct {
	mu        sync.Mutex
	docs      []Document
	state     State
	writes    int
	fetches   int
	writeErrs map[int64]error
	fetchErr  error
	saveErr   error
}

func newMemStore(docs ...Document) *memStore {
	return &memStore{docs: docs, writeErrs: map[int64]error{}}
}

func (m *memStore) matches(f Filter, d Document) bool {
	if f.Status != "" && d.Status != f.Status {
		return false
	}
	if f.HasFeaturedImage && d.FeaturedImageID == 0 {
		return false
	}
	if len(f.Types) > 0 && !slices.Contains(f.Types, d.Type) {
		return false
	}
	return true
}

func (m *memStore) CountDocuments(_ context.Context, f Filter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return 0, m.fetchErr
	}
	n := 0
	for _, d := range m.docs {
		if m.matches(f, d) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) FetchDocuments(_ context.Context, f Filter, offset, limit int) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	var out []Document
	seen := 0
	for _, d := range m.docs {
		if !m.matches(f, d) {
			continue
		}
		if seen >= offset && len(out) < limit {
			out = append(out, d)
		}
		seen++
	}
	return out, nil
}

func (m *memStore) GetDocument(_ context.Context, id int64) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.ID == id {
			return d, nil
		}
	}
	return Document{}, ErrNotFound
}

func (m *memStore) WriteBody(_ context.Context, id int64, body blocks.Tree) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeErrs[id]; err != nil {
		return err
	}
	for i := range m.docs {
		if m.docs[i].ID == id {
			m.docs[i].Body = body
			m.docs[i].Structured = true
			m.writes++
			return nil
		}
	}
	return ErrNotFound
}

func (m *memStore) LoadState(context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

func (m *memStore) SaveState(_ context.Context, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.state = s
	return nil
}

func (m *memStore) body(id int64) blocks.Tree {
	d, _ := m.GetDocument(context.Background(), id)
	return d.Body
}
