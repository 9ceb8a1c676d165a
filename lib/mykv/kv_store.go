package mykv

import (
	"context"

	"github.com/MarcGrol/storefront/lib/mystore"
)

// Entry is the record persisted by store backed key-values.
type Entry struct {
	Key   string
	Value string `datastore:",noindex"`
}

type storeKV struct {
	store mystore.Store[Entry]
}

func NewStoreBacked(store mystore.Store[Entry]) KeyValuer {
	return &storeKV{
		store: store,
	}
}

func (s *storeKV) Get(c context.Context, key string) (string, bool, error) {
	entry, found, err := s.store.Get(c, key)
	if err != nil {
		return "", false, err
	}
	if !found {
		return "", false, nil
	}
	return entry.Value, true, nil
}

func (s *storeKV) Set(c context.Context, key string, value string) error {
	return s.store.Put(c, key, Entry{
		Key:   key,
		Value: value,
	})
}
