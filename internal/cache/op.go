package cache

import (
	"encoding/json"
	"fmt"
)

// UpdateFunc computes the next value of an entry. Returning write=false
// leaves the entry as it is.
type UpdateFunc func(current []byte, present bool) (next []byte, write bool, err error)

// Op is one write of an atomic batch. With Prefix set, Update runs against
// every existing entry under Key instead of the single entry at Key.
type Op struct {
	Key    Key
	Prefix bool
	Value  []byte
	Update UpdateFunc
	Delete bool
}

// Set writes value at key.
func Set(key Key, value []byte) Op {
	return Op{Key: key, Value: value}
}

// Delete removes the entry at key.
func Delete(key Key) Op {
	return Op{Key: key, Delete: true}
}

// SetJSON writes the JSON encoding of v at key.
func SetJSON(key Key, v any) Op {
	return Op{Key: key, Update: func([]byte, bool) ([]byte, bool, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, false, fmt.Errorf("failed to encode %s: %w", key, err)
		}
		return data, true, nil
	}}
}

// UpdateJSON decodes the entry at key, lets fn modify it and writes it back
// when fn returns true. Absent entries are left absent.
func UpdateJSON[T any](key Key, fn func(*T) bool) Op {
	return Op{Key: key, Update: jsonUpdate(key, fn)}
}

// UpdateEachJSON applies UpdateJSON to every existing entry under prefix.
func UpdateEachJSON[T any](prefix Key, fn func(*T) bool) Op {
	return Op{Key: prefix, Prefix: true, Update: jsonUpdate(prefix, fn)}
}

func jsonUpdate[T any](key Key, fn func(*T) bool) UpdateFunc {
	return func(current []byte, present bool) ([]byte, bool, error) {
		if !present {
			return nil, false, nil
		}
		var v T
		if err := json.Unmarshal(current, &v); err != nil {
			return nil, false, fmt.Errorf("failed to decode %s: %w", key, err)
		}
		if !fn(&v) {
			return nil, false, nil
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, false, fmt.Errorf("failed to encode %s: %w", key, err)
		}
		return data, true, nil
	}
}

// Decode unmarshals an entry value.
func Decode[T any](data []byte) (T, error) {
	var v T
	if len(data) == 0 {
		return v, nil
	}
	err := json.Unmarshal(data, &v)
	return v, err
}

// Get reads and decodes the entry at key.
func Get[T any](s *Store, key Key) (T, bool, error) {
	e, ok := s.Read(key)
	if !ok {
		var zero T
		return zero, false, nil
	}
	v, err := Decode[T](e.Value)
	return v, true, err
}
