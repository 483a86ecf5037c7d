package service

import "context"

// KeyValueStore is the durable string store a device persists its token, theme and server IP in.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
