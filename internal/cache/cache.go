// Package cache stores computed results between rebuilds. Values are JSON
// encoded so the in-process and redis backends behave the same.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// Namespaces group keys that are invalidated together.
const (
	NamespacePositions = "positions"
	NamespaceHistory   = "history"
	NamespacePrices    = "prices"
)

// Cache is a keyed store of JSON values with expiry.
type Cache interface {
	// Get decodes the value at key into dest and reports whether it existed.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// Keys builds namespaced keys of the form prefix:part:part.
type Keys struct {
	Prefix string
}

func (k Keys) Key(parts ...string) string {
	all := make([]string, 0, len(parts)+1)
	if k.Prefix != "" {
		all = append(all, k.Prefix)
	}
	all = append(all, parts...)
	return strings.Join(all, ":")
}

// Namespace is the prefix shared by every key of ns, for DeleteByPrefix.
func (k Keys) Namespace(ns string) string {
	return k.Key(ns) + ":"
}

func encode(value interface{}) ([]byte, error) {
	return json.Marshal(value)
}

func decode(raw []byte, dest interface{}) error {
	return json.Unmarshal(raw, dest)
}
