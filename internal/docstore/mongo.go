package docstore

import (
	"context"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/sethvargo/go-retry"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const mongoConnectAttempts = 5

// mongoStore persists documents in MongoDB. Identifiers are ObjectIDs exposed as hex strings.
type mongoStore struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
}

// OpenMongo connects to uri and pings the deployment, retrying with exponential backoff while the
// server is unreachable.
func OpenMongo(ctx context.Context, uri, database string, timeout time.Duration) (Store, error) {
	if uri == "" {
		return nil, errors.New("mongo driver requires a connection uri")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongo")
	}

	backoff := retry.WithMaxRetries(mongoConnectAttempts, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		pingCtx, cancel := withTimeout(ctx, timeout)
		defer cancel()
		if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
			glog.Warningf("mongo ping failed, retrying: %v\n", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "pinging mongo")
	}
	glog.Infof("Pinged your deployment. Connected to database %s", database)

	return &mongoStore{client: client, db: client.Database(database), timeout: timeout}, nil
}

func (s *mongoStore) FindOne(ctx context.Context, collection string, filter Filter) (Document, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	f, ok := toBSON(filter)
	if !ok {
		return nil, ErrNotFound
	}

	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, f).Decode(&raw)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return fromBSON(raw), nil
}

func (s *mongoStore) Find(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	f, ok := toBSON(filter)
	if !ok {
		return nil, nil
	}

	cur, err := s.db.Collection(collection).Find(ctx, f)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []Document
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, err
		}
		docs = append(docs, fromBSON(raw))
	}

	return docs, cur.Err()
}

func (s *mongoStore) Insert(ctx context.Context, collection string, doc Document) (string, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	data := bson.M{}
	for k, v := range doc {
		if k != IDField {
			data[k] = v
		}
	}

	res, err := s.db.Collection(collection).InsertOne(ctx, data)
	if err != nil {
		return "", err
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", errors.Errorf("unexpected inserted id type %T", res.InsertedID)
	}

	return oid.Hex(), nil
}

func (s *mongoStore) UpdateWhere(ctx context.Context, collection string, filter Filter, fields Document) (UpdateResult, error) {
	set := bson.M{}
	for k, v := range fields {
		if k != IDField {
			set[k] = v
		}
	}

	return s.updateMany(ctx, collection, filter, bson.M{"$set": set})
}

func (s *mongoStore) IncrementWhere(ctx context.Context, collection string, filter Filter, field string, delta int64) (UpdateResult, error) {
	return s.updateMany(ctx, collection, filter, bson.M{"$inc": bson.M{field: delta}})
}

func (s *mongoStore) Count(ctx context.Context, collection string, filter Filter) (int64, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	f, ok := toBSON(filter)
	if !ok {
		return 0, nil
	}

	return s.db.Collection(collection).CountDocuments(ctx, f)
}

func (s *mongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *mongoStore) updateMany(ctx context.Context, collection string, filter Filter, update bson.M) (UpdateResult, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	f, ok := toBSON(filter)
	if !ok {
		return UpdateResult{}, nil
	}

	res, err := s.db.Collection(collection).UpdateMany(ctx, f, update)
	if err != nil {
		return UpdateResult{}, err
	}

	return UpdateResult{MatchedCount: res.MatchedCount, ModifiedCount: res.ModifiedCount}, nil
}

// toBSON translates a Filter. ok is false when an id predicate cannot match any ObjectID, in which
// case the caller short-circuits to an empty result.
func toBSON(filter Filter) (bson.D, bool) {
	out := bson.D{}
	for _, cond := range filter {
		field := cond.Field
		value := cond.Value

		if cond.Field == IDField {
			field = "_id"
			oids, ok := objectIDs(cond)
			if !ok {
				return nil, false
			}
			value = oids
			if cond.Op == OpEqual {
				value = oids[0]
			}
		}

		if cond.Op == OpIn {
			out = append(out, bson.E{Key: field, Value: bson.M{"$in": value}})
		} else {
			out = append(out, bson.E{Key: field, Value: value})
		}
	}

	return out, true
}

func objectIDs(cond Condition) ([]primitive.ObjectID, bool) {
	var ids []string
	if cond.Op == OpIn {
		ids, _ = cond.Value.([]string)
	} else if id, ok := cond.Value.(string); ok {
		ids = []string{id}
	}

	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		oids = append(oids, oid)
	}

	return oids, len(oids) > 0
}

// fromBSON converts driver types into the plain Go values the rest of the code decodes.
func fromBSON(raw bson.M) Document {
	doc := make(Document, len(raw))
	for k, v := range raw {
		if k == "_id" {
			if oid, ok := v.(primitive.ObjectID); ok {
				doc[IDField] = oid.Hex()
			}
			continue
		}
		doc[k] = normalizeBSON(v)
	}

	return doc
}

func normalizeBSON(v interface{}) interface{} {
	switch val := v.(type) {
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.ObjectID:
		return val.Hex()
	case int32:
		return int64(val)
	case primitive.A:
		out := make([]interface{}, 0, len(val))
		for _, item := range val {
			out = append(out, normalizeBSON(item))
		}
		return out
	case bson.M:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = normalizeBSON(item)
		}
		return out
	case bson.D:
		out := make(map[string]interface{}, len(val))
		for _, e := range val {
			out[e.Key] = normalizeBSON(e.Value)
		}
		return out
	default:
		return v
	}
}
