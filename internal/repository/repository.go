// Package repository holds the role registry and the multi-step workflows. Every operation works
// against a docstore.Store handle that is opened once at process start and injected here.
package repository

import (
	"context"
	"time"

	"classmaster/internal/docstore"

	"github.com/pkg/errors"
)

// inBatchSize bounds the number of values in a single "in" filter. Firestore rejects larger lists.
const inBatchSize = 10

type Repository struct {
	store docstore.Store
	now   func() time.Time
}

func New(store docstore.Store) *Repository {
	return &Repository{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// findOne loads the first document matching filter into out, translating a miss into notFound.
func (r *Repository) findOne(ctx context.Context, collection string, filter docstore.Filter, notFound error, out interface{}) error {
	doc, err := r.store.FindOne(ctx, collection, filter)
	if errors.Is(err, docstore.ErrNotFound) {
		return notFound
	}
	if err != nil {
		return errors.Wrapf(err, "querying %s", collection)
	}

	if err := docstore.Decode(doc, out); err != nil {
		return errors.Wrapf(err, "decoding %s document", collection)
	}

	return nil
}

// ids returns the identifiers of docs in order.
func ids(docs []docstore.Document) []string {
	out := make([]string, 0, len(docs))
	for _, doc := range docs {
		if id, ok := doc[docstore.IDField].(string); ok {
			out = append(out, id)
		}
	}
	return out
}

func batches(values []string, size int) [][]string {
	var out [][]string
	for size < len(values) {
		values, out = values[size:], append(out, values[:size:size])
	}
	if len(values) > 0 {
		out = append(out, values)
	}
	return out
}

func distinct(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
