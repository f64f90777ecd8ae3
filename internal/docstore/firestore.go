package docstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// firestoreStore persists documents in Cloud Firestore. Firestore has no update-by-filter, so
// UpdateWhere and IncrementWhere query first and then update each matching document; every
// per-document write (including firestore.Increment) is atomic on its own.
type firestoreStore struct {
	client  *firestore.Client
	timeout time.Duration
}

func NewFirestore(client *firestore.Client, timeout time.Duration) Store {
	return &firestoreStore{client: client, timeout: timeout}
}

func (s *firestoreStore) FindOne(ctx context.Context, collection string, filter Filter) (Document, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if id, ok := idOnly(filter); ok {
		snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		return snapshotToDocument(snap), nil
	}

	iter := s.query(collection, filter).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return snapshotToDocument(snap), nil
}

func (s *firestoreStore) Find(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	snaps, err := s.query(collection, filter).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, snapshotToDocument(snap))
	}

	return docs, nil
}

func (s *firestoreStore) Insert(ctx context.Context, collection string, doc Document) (string, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	data := copyDocument(doc)
	delete(data, IDField)

	ref, _, err := s.client.Collection(collection).Add(ctx, map[string]interface{}(data))
	if err != nil {
		return "", fmt.Errorf("error inserting into %s: %v", collection, err)
	}

	return ref.ID, nil
}

func (s *firestoreStore) UpdateWhere(ctx context.Context, collection string, filter Filter, fields Document) (UpdateResult, error) {
	paths := make([]string, 0, len(fields))
	for path := range fields {
		if path != IDField {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	updates := make([]firestore.Update, 0, len(paths))
	for _, path := range paths {
		updates = append(updates, firestore.Update{Path: path, Value: fields[path]})
	}

	return s.updateEach(ctx, collection, filter, updates)
}

func (s *firestoreStore) IncrementWhere(ctx context.Context, collection string, filter Filter, field string, delta int64) (UpdateResult, error) {
	return s.updateEach(ctx, collection, filter, []firestore.Update{
		{Path: field, Value: firestore.Increment(delta)},
	})
}

func (s *firestoreStore) Count(ctx context.Context, collection string, filter Filter) (int64, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var n int64
	iter := s.query(collection, filter).Select().Documents(ctx)
	defer iter.Stop()
	for {
		_, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, err
		}
		n++
	}

	return n, nil
}

func (s *firestoreStore) Close() error {
	return s.client.Close()
}

func (s *firestoreStore) updateEach(ctx context.Context, collection string, filter Filter, updates []firestore.Update) (UpdateResult, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var res UpdateResult
	if len(updates) == 0 {
		return res, nil
	}

	var refs []*firestore.DocumentRef
	if id, ok := idOnly(filter); ok {
		refs = append(refs, s.client.Collection(collection).Doc(id))
	} else {
		snaps, err := s.query(collection, filter).Select().Documents(ctx).GetAll()
		if err != nil {
			return UpdateResult{}, err
		}
		for _, snap := range snaps {
			refs = append(refs, snap.Ref)
		}
	}

	for _, ref := range refs {
		_, err := ref.Update(ctx, updates)
		if status.Code(err) == codes.NotFound {
			continue
		}
		if err != nil {
			return UpdateResult{}, err
		}
		res.MatchedCount++
		res.ModifiedCount++
	}

	return res, nil
}

func (s *firestoreStore) query(collection string, filter Filter) firestore.Query {
	coll := s.client.Collection(collection)
	q := coll.Query
	for _, cond := range filter {
		path := cond.Field
		value := cond.Value
		if cond.Field == IDField {
			path = firestore.DocumentID
			value = s.idRefs(coll, cond)
		}
		q = q.Where(path, string(cond.Op), value)
	}

	return q
}

// idRefs converts id predicates into document references, which is what Firestore compares
// __name__ against.
func (s *firestoreStore) idRefs(coll *firestore.CollectionRef, cond Condition) interface{} {
	if cond.Op == OpIn {
		ids, _ := cond.Value.([]string)
		refs := make([]*firestore.DocumentRef, 0, len(ids))
		for _, id := range ids {
			refs = append(refs, coll.Doc(id))
		}
		return refs
	}

	id, _ := cond.Value.(string)
	return coll.Doc(id)
}

func snapshotToDocument(snap *firestore.DocumentSnapshot) Document {
	doc := Document(snap.Data())
	doc[IDField] = snap.Ref.ID
	return doc
}
