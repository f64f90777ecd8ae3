package docstore

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// memoryStore keeps every collection in process. It is used by tests and by the "memory" driver
// for local runs; the mutex is the single serialization point, like the document database it stands
// in for.
type memoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
	order       map[string][]string
}

func NewMemory() Store {
	return &memoryStore{
		collections: make(map[string]map[string]Document),
		order:       make(map[string][]string),
	}
}

func (m *memoryStore) FindOne(ctx context.Context, collection string, filter Filter) (Document, error) {
	docs, err := m.Find(ctx, collection, filter)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}

	return docs[0], nil
}

func (m *memoryStore) Find(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var docs []Document
	for _, id := range m.order[collection] {
		doc := m.collections[collection][id]
		if matches(doc, filter) {
			docs = append(docs, copyDocument(doc))
		}
	}

	return docs, nil
}

func (m *memoryStore) Insert(ctx context.Context, collection string, doc Document) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}

	stored := copyDocument(doc)
	stored[IDField] = id.String()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.collections[collection]; !ok {
		m.collections[collection] = make(map[string]Document)
	}
	m.collections[collection][id.String()] = stored
	m.order[collection] = append(m.order[collection], id.String())

	return id.String(), nil
}

func (m *memoryStore) UpdateWhere(ctx context.Context, collection string, filter Filter, fields Document) (UpdateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res UpdateResult
	for _, id := range m.order[collection] {
		doc := m.collections[collection][id]
		if !matches(doc, filter) {
			continue
		}
		res.MatchedCount++
		if applySet(doc, fields) {
			res.ModifiedCount++
		}
	}

	return res, nil
}

func (m *memoryStore) IncrementWhere(ctx context.Context, collection string, filter Filter, field string, delta int64) (UpdateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Increments are computed on copies and applied only once every match succeeded.
	updated := make(map[string]Document)
	for _, id := range m.order[collection] {
		doc := m.collections[collection][id]
		if !matches(doc, filter) {
			continue
		}
		next := copyDocument(doc)
		if err := increment(next, field, delta); err != nil {
			return UpdateResult{}, err
		}
		updated[id] = next
	}

	for id, doc := range updated {
		m.collections[collection][id] = doc
	}

	n := int64(len(updated))
	return UpdateResult{MatchedCount: n, ModifiedCount: n}, nil
}

func (m *memoryStore) Count(ctx context.Context, collection string, filter Filter) (int64, error) {
	docs, err := m.Find(ctx, collection, filter)
	if err != nil {
		return 0, err
	}

	return int64(len(docs)), nil
}

func (m *memoryStore) Close() error {
	return nil
}
