// Package docstore is the transactional document store every roster and
// board operation goes through.
//
// Documents are JSON values addressed by slash separated keys
// ("polls/{id}", "board/courts/1"). Shared mutable lists are only ever
// changed with Transact, which re-runs the caller's mutation against the
// latest committed value whenever a concurrent write wins first. Append
// only collections ("templates") hold records addressed by generated,
// time ordered ids.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by Read when the document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrConflict means every transaction attempt lost to a concurrent writer.
	ErrConflict = errors.New("too many conflicting writes")
	// ErrUnchanged may be returned by a mutate function to commit nothing.
	// Transact then returns the current value and a nil error.
	ErrUnchanged = errors.New("document unchanged")
	// ErrInvalidKey rejects empty keys and keys with empty segments.
	ErrInvalidKey = errors.New("invalid document key")
)

// DefaultMaxRetries bounds how often a conflicting transaction is re-run.
const DefaultMaxRetries = 25

// MutateFunc computes the next value of a document from its current value.
// current is nil when the document is absent. Returning nil with a nil error
// deletes the document. Any error other than ErrUnchanged aborts the
// transaction and is returned to the caller as is.
type MutateFunc func(current []byte) ([]byte, error)

// Change is delivered to subscribers after every committed write.
type Change struct {
	Key     string
	Value   []byte
	Deleted bool
}

// Record is one entry of an append-only collection.
type Record struct {
	ID    string
	Value []byte
}

// Store is implemented by the Redis and in-memory backends.
type Store interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Transact(ctx context.Context, key string, mutate MutateFunc) ([]byte, error)
	// Replace blindly overwrites a document. Only for single-owner data.
	Replace(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Subscribe calls onChange for every committed change of a key starting
	// with prefix until the returned function is called or ctx ends.
	Subscribe(ctx context.Context, prefix string, onChange func(Change)) (func(), error)
	Append(ctx context.Context, collection string, value []byte) (string, error)
	Query(ctx context.Context, collection string, match func([]byte) bool) ([]Record, error)
	DeleteRecord(ctx context.Context, collection, id string) error
}

// ValidateKey checks the key grammar shared by all backends.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.HasSuffix(key, "/") || strings.Contains(key, "//") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// Decode unmarshals a raw document value.
func Decode(raw []byte, v any) error { return json.Unmarshal(raw, v) }

// Get reads and decodes a JSON document.
func Get[T any](ctx context.Context, s Store, key string) (T, error) {
	var out T
	raw, err := s.Read(ctx, key)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, nil
}

// Update runs fn inside a transaction on the decoded document. exists is
// false when the document is absent, in which case doc is the zero value.
// The committed value is returned decoded.
func Update[T any](ctx context.Context, s Store, key string, fn func(doc *T, exists bool) error) (T, error) {
	var out T
	raw, err := s.Transact(ctx, key, func(current []byte) ([]byte, error) {
		var doc T
		exists := current != nil
		if exists {
			if err := json.Unmarshal(current, &doc); err != nil {
				return nil, fmt.Errorf("decode %s: %w", key, err)
			}
		}
		if err := fn(&doc, exists); err != nil {
			return nil, err
		}
		return json.Marshal(doc)
	})
	if err != nil {
		return out, err
	}
	if raw == nil {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, nil
}

// Put encodes v and replaces the document.
func Put(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Replace(ctx, key, raw)
}

// AppendJSON encodes v and appends it to a collection.
func AppendJSON(ctx context.Context, s Store, collection string, v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return s.Append(ctx, collection, raw)
}

// QueryJSON decodes every record of a collection that keep accepts, in id order.
func QueryJSON[T any](ctx context.Context, s Store, collection string, keep func(T) bool) ([]T, []string, error) {
	recs, err := s.Query(ctx, collection, nil)
	if err != nil {
		return nil, nil, err
	}
	items := make([]T, 0, len(recs))
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		var v T
		if err := json.Unmarshal(r.Value, &v); err != nil {
			return nil, nil, fmt.Errorf("decode %s/%s: %w", collection, r.ID, err)
		}
		if keep != nil && !keep(v) {
			continue
		}
		items = append(items, v)
		ids = append(ids, r.ID)
	}
	return items, ids, nil
}
