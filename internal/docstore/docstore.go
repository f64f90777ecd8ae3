// Package docstore is the storage collaborator shared by every workflow. It exposes a document
// store keyed by an opaque identifier that supports find-by-filter, insert, update-by-filter,
// per-document atomic increment and count-by-filter. Nothing else is assumed of the backend: there
// are no multi-document transactions.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/mitchellh/mapstructure"
)

// IDField is the document field holding the store-assigned identifier.
const IDField = "id"

const (
	DriverFirestore = "firestore"
	DriverMongo     = "mongo"
	DriverBolt      = "bolt"
	DriverMemory    = "memory"
)

var ErrNotFound = errors.New("document not found")

// Document is a single stored record. Reads always include IDField.
type Document map[string]interface{}

type Op string

const (
	OpEqual Op = "=="
	OpIn    Op = "in"
)

// Condition is a single field predicate. For OpIn, Value is a []string.
type Condition struct {
	Field string
	Op    Op
	Value interface{}
}

// Filter is a conjunction of conditions. An empty filter matches every document.
type Filter []Condition

func Where(field string, value interface{}) Filter {
	return Filter{{Field: field, Op: OpEqual, Value: value}}
}

func In(field string, values []string) Filter {
	return Filter{{Field: field, Op: OpIn, Value: values}}
}

func ByID(id string) Filter {
	return Where(IDField, id)
}

func (f Filter) And(field string, value interface{}) Filter {
	return append(f[:len(f):len(f)], Condition{Field: field, Op: OpEqual, Value: value})
}

// UpdateResult mirrors the matched/modified counters reported by document databases.
type UpdateResult struct {
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

// Store is the storage contract the core depends on. Every call is independently durable.
//
// UpdateWhere and IncrementWhere return a zero UpdateResult with any error. The memory and bolt
// backends leave every document unchanged on error; firestore and mongo may have updated some
// matches before failing.
type Store interface {
	// FindOne returns the first document matching filter, or ErrNotFound.
	FindOne(ctx context.Context, collection string, filter Filter) (Document, error)
	// Find returns every document matching filter.
	Find(ctx context.Context, collection string, filter Filter) ([]Document, error)
	// Insert stores doc and returns the identifier assigned to it.
	Insert(ctx context.Context, collection string, doc Document) (string, error)
	// UpdateWhere sets fields on every document matching filter.
	UpdateWhere(ctx context.Context, collection string, filter Filter, fields Document) (UpdateResult, error)
	// IncrementWhere atomically adds delta to field on every document matching filter.
	IncrementWhere(ctx context.Context, collection string, filter Filter, field string, delta int64) (UpdateResult, error)
	// Count returns the number of documents matching filter.
	Count(ctx context.Context, collection string, filter Filter) (int64, error)
	// Close releases the underlying connection.
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Driver string
	// Timeout bounds every individual store call. Zero disables the deadline.
	Timeout time.Duration

	// Firestore is required for DriverFirestore.
	Firestore *firestore.Client

	MongoURI      string
	MongoDatabase string

	BoltPath string
}

// Open builds the Store selected by opts.Driver. It is called once at process start.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverFirestore:
		if opts.Firestore == nil {
			return nil, errors.New("firestore driver requires a client")
		}
		return NewFirestore(opts.Firestore, opts.Timeout), nil
	case DriverMongo:
		return OpenMongo(ctx, opts.MongoURI, opts.MongoDatabase, opts.Timeout)
	case DriverBolt:
		return OpenBolt(opts.BoltPath, opts.Timeout)
	case DriverMemory, "":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

// Decode copies a Document into the struct pointed to by out using its mapstructure tags.
func Decode(doc Document, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		Result:           out,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(map[string]interface{}(doc))
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// Helpers shared by the backends.

// idOnly reports whether filter addresses a single document by id, which backends serve with a
// direct key lookup.
func idOnly(filter Filter) (string, bool) {
	if len(filter) != 1 || filter[0].Field != IDField || filter[0].Op != OpEqual {
		return "", false
	}
	id, ok := filter[0].Value.(string)
	return id, ok
}

func matches(doc Document, filter Filter) bool {
	for _, cond := range filter {
		value := doc[cond.Field]
		switch cond.Op {
		case OpIn:
			values, _ := cond.Value.([]string)
			found := false
			for _, v := range values {
				if valuesEqual(value, v) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			if !valuesEqual(value, cond.Value) {
				return false
			}
		}
	}

	return true
}

func valuesEqual(a, b interface{}) bool {
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum && bNum {
		return fa == fb
	}

	return reflect.DeepEqual(a, b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}

	return 0, false
}

// increment adds delta to doc[field], treating a missing field as zero.
func increment(doc Document, field string, delta int64) error {
	current, ok := doc[field]
	if !ok || current == nil {
		doc[field] = delta
		return nil
	}

	f, ok := toFloat(current)
	if !ok {
		return fmt.Errorf("field %q is not numeric", field)
	}
	doc[field] = int64(f) + delta
	return nil
}

func copyDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// applySet writes fields into doc and reports whether any value changed.
func applySet(doc Document, fields Document) bool {
	changed := false
	for k, v := range fields {
		if k == IDField {
			continue
		}
		if old, ok := doc[k]; !ok || !valuesEqual(old, v) {
			changed = true
		}
		doc[k] = v
	}
	return changed
}
