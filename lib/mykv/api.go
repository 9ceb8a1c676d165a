package mykv

import (
	"context"
)

//go:generate mockgen -source=api.go -package mykv -destination kv_mock.go KeyValuer
type KeyValuer interface {
	Get(c context.Context, key string) (string, bool, error)
	Set(c context.Context, key string, value string) error
}
