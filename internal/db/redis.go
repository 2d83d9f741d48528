package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedis подключается к Redis для гео-индекса исполнителей.
// Redis необязателен: при пустом адресе возвращается nil без ошибки,
// и поиск поблизости работает через запасной путь по базе.
func NewRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis: не удалось подключиться к %s: %w", addr, err)
	}

	return client, nil
}
