package docstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

// boltStore is an embedded backend: one bucket per collection, documents JSON-encoded under their
// id. Ids are time-ordered so iteration follows insertion order.
type boltStore struct {
	db *bbolt.DB
}

func OpenBolt(path string, timeout time.Duration) (Store, error) {
	if path == "" {
		return nil, errors.New("bolt driver requires a file path")
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: timeout})
	if err != nil {
		return nil, errors.Wrapf(err, "opening bolt file %s", path)
	}

	return &boltStore{db: db}, nil
}

func (s *boltStore) FindOne(ctx context.Context, collection string, filter Filter) (Document, error) {
	if id, ok := idOnly(filter); ok {
		var doc Document
		err := s.db.View(func(tx *bbolt.Tx) error {
			b := tx.Bucket([]byte(collection))
			if b == nil {
				return ErrNotFound
			}
			v := b.Get([]byte(id))
			if v == nil {
				return ErrNotFound
			}
			return json.Unmarshal(v, &doc)
		})
		if err != nil {
			return nil, err
		}
		return doc, nil
	}

	docs, err := s.Find(ctx, collection, filter)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}

	return docs[0], nil
}

func (s *boltStore) Find(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	var docs []Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var doc Document
			if err := json.Unmarshal(v, &doc); err != nil {
				return err
			}
			if matches(doc, filter) {
				docs = append(docs, doc)
			}
			return nil
		})
	})

	return docs, err
}

func (s *boltStore) Insert(ctx context.Context, collection string, doc Document) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}

	stored := copyDocument(doc)
	stored[IDField] = id.String()

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return err
		}
		data, err := json.Marshal(stored)
		if err != nil {
			return err
		}
		return b.Put([]byte(id.String()), data)
	})
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

func (s *boltStore) UpdateWhere(ctx context.Context, collection string, filter Filter, fields Document) (UpdateResult, error) {
	var res UpdateResult
	err := s.rewrite(collection, filter, func(doc Document) (bool, error) {
		res.MatchedCount++
		changed := applySet(doc, fields)
		if changed {
			res.ModifiedCount++
		}
		return changed, nil
	})
	if err != nil {
		return UpdateResult{}, err
	}

	return res, nil
}

func (s *boltStore) IncrementWhere(ctx context.Context, collection string, filter Filter, field string, delta int64) (UpdateResult, error) {
	var res UpdateResult
	err := s.rewrite(collection, filter, func(doc Document) (bool, error) {
		if err := increment(doc, field, delta); err != nil {
			return false, err
		}
		res.MatchedCount++
		res.ModifiedCount++
		return true, nil
	})
	if err != nil {
		// The transaction was rolled back.
		return UpdateResult{}, err
	}

	return res, nil
}

func (s *boltStore) Count(ctx context.Context, collection string, filter Filter) (int64, error) {
	docs, err := s.Find(ctx, collection, filter)
	if err != nil {
		return 0, err
	}

	return int64(len(docs)), nil
}

func (s *boltStore) Close() error {
	return s.db.Close()
}

// rewrite applies fn to every matching document inside a single read-write transaction and
// persists the documents fn reports as changed.
func (s *boltStore) rewrite(collection string, filter Filter, fn func(doc Document) (bool, error)) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}

		updated := make(map[string][]byte)
		err := b.ForEach(func(k, v []byte) error {
			var doc Document
			if err := json.Unmarshal(v, &doc); err != nil {
				return err
			}
			if !matches(doc, filter) {
				return nil
			}
			changed, err := fn(doc)
			if err != nil || !changed {
				return err
			}
			data, err := json.Marshal(doc)
			if err != nil {
				return err
			}
			updated[string(k)] = data
			return nil
		})
		if err != nil {
			return err
		}

		// Buckets must not be modified while iterating with ForEach.
		for k, data := range updated {
			if err := b.Put([]byte(k), data); err != nil {
				return err
			}
		}
		return nil
	})
}
