package mykv

import (
	"context"
	"fmt"

	"github.com/MarcGrol/storefront/lib/mylog"
	"github.com/MarcGrol/storefront/lib/mystore"
)

const (
	KindMemory    = "memory"
	KindFile      = "file"
	KindRedis     = "redis"
	KindDatastore = "datastore"
)

type Config struct {
	Kind          string
	FileDir       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ProjectID     string
}

// New opens the backend selected by cfg.Kind. The returned cleanup releases
// the underlying connection.
func New(c context.Context, cfg Config, logger mylog.Logger) (KeyValuer, func(), error) {
	logger.Log(c, "", mylog.SeverityInfo, "Opening %s key-value backend", cfg.Kind)

	switch cfg.Kind {
	case KindMemory:
		store, cleanup, err := mystore.NewInMemoryStore[Entry](c)
		if err != nil {
			return nil, func() {}, err
		}
		return NewStoreBacked(store), cleanup, nil
	case KindDatastore:
		store, cleanup, err := mystore.NewGcloudStore[Entry](c, cfg.ProjectID)
		if err != nil {
			return nil, func() {}, err
		}
		return NewStoreBacked(store), cleanup, nil
	case KindFile:
		return NewFileBacked(cfg.FileDir), func() {}, nil
	case KindRedis:
		return NewRedisBacked(c, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	default:
		return nil, func() {}, fmt.Errorf("unknown key-value backend %q", cfg.Kind)
	}
}
