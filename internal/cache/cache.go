package cache

import (
	"context"
	"time"
)

// Cache - вторичное key/value хранилище для сериализованных значений.
//
// Get возвращает ok=false при промахе, ошибка означает недоступность
// самого кэша. Delete отсутствующего ключа не считается ошибкой.
// ttl <= 0 означает хранение без срока.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
