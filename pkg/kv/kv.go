package kv

import (
	"context"
	"encoding/json"
	"errors"
)

// DB is a generic key-value database.
//
// Implementations own durable state. Values are stored as last written;
// DB does not expire entries on its own.
type DB[V any] interface {
	// Get retrieves a value by key.
	// Returns ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) (V, error)

	// Set stores a value, overwriting any previous value for the key.
	Set(ctx context.Context, key string, value V) error

	// Remove deletes a key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// Lister is implemented by backends that can enumerate their keys.
type Lister interface {
	// Keys returns every key that starts with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Marshaler serializes and deserializes values for backends that store
// bytes (Redis, PostgreSQL).
type Marshaler[V any] interface {
	Marshal(v V) ([]byte, error)
	Unmarshal(data []byte) (V, error)
}

// JSON returns the default JSON Marshaler for V.
func JSON[V any]() Marshaler[V] {
	return jsonMarshaler[V]{}
}

type jsonMarshaler[V any] struct{}

func (jsonMarshaler[V]) Marshal(v V) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Join(ErrMarshal, err)
	}
	return data, nil
}

func (jsonMarshaler[V]) Unmarshal(data []byte) (V, error) {
	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		return v, errors.Join(ErrUnmarshal, err)
	}
	return v, nil
}
